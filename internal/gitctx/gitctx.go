package gitctx

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Comparison identifies the two revisions a run compares. An empty Base
// means no explicit context was given.
type Comparison struct {
	Base string
	Head string
}

// IsZero reports whether no explicit revision pair was given.
func (c Comparison) IsZero() bool {
	return c.Base == "" && c.Head == ""
}

// resolved fills in the default HEAD^..HEAD pair.
func (c Comparison) resolved() Comparison {
	if c.Base == "" {
		c.Base = "HEAD^"
	}
	if c.Head == "" {
		c.Head = "HEAD"
	}
	return c
}

func (c Comparison) String() string {
	r := c.resolved()
	return r.Base + ".." + r.Head
}

// Filter selects candidate paths.
type Filter struct {
	// Extensions is the allow-list, compared case-insensitively. Empty allows all.
	Extensions []string
	// DenyPrefixes are path prefixes to skip. Entries containing glob
	// metacharacters are matched with [MatchesAny] instead.
	DenyPrefixes []string
}

// Allows reports whether path passes the filter.
func (f Filter) Allows(path string) bool {
	for _, deny := range f.DenyPrefixes {
		if strings.ContainsAny(deny, "*?[") {
			if MatchesAny(path, []string{deny}) {
				return false
			}
			continue
		}
		if strings.HasPrefix(path, deny) {
			return false
		}
	}
	if len(f.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range f.Extensions {
		if strings.ToLower(allowed) == ext {
			return true
		}
	}
	return false
}

// ChangeSet is the ordered, deduplicated set of candidate paths for a run.
type ChangeSet struct {
	Paths      []string
	Comparison Comparison
	// FullTree is set when the comparison failed and the tracked tree was
	// enumerated instead; no hunk information exists in that case.
	FullTree bool
}

// Empty reports whether there is nothing to review.
func (cs ChangeSet) Empty() bool {
	return len(cs.Paths) == 0
}

// RepoMeta contains git repository metadata.
type RepoMeta struct {
	Root   string
	Head   string
	Branch string
}

// Git runs git commands inside Dir (the current directory when empty).
type Git struct {
	Dir string
}

// New returns a Git rooted at dir.
func New(dir string) *Git {
	return &Git{Dir: dir}
}

// RepoMeta collects repository metadata from git.
func (g *Git) RepoMeta(ctx context.Context) (RepoMeta, error) {
	root, err := g.output(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return RepoMeta{}, fmt.Errorf("not a git repository: %w", err)
	}
	head, err := g.output(ctx, "rev-parse", "HEAD")
	if err != nil {
		head = "" // new repo with no commits
	}
	branch, err := g.output(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		branch = ""
	}
	return RepoMeta{
		Root:   strings.TrimSpace(root),
		Head:   strings.TrimSpace(head),
		Branch: strings.TrimSpace(branch),
	}, nil
}

// Resolve returns the filtered paths changed between cmp.Base and cmp.Head.
// When the comparison cannot be made (no parent commit, unknown revision) it
// falls back to every tracked file under the same filter, so a transient
// comparison failure never yields an empty run. An error is returned only if
// the fallback listing fails too.
func (g *Git) Resolve(ctx context.Context, cmp Comparison, filter Filter) (ChangeSet, error) {
	r := cmp.resolved()
	out, diffErr := g.output(ctx, "diff", "--name-only", "--diff-filter=d", r.Base, r.Head)
	if diffErr == nil {
		return ChangeSet{
			Paths:      filterPaths(out, filter),
			Comparison: cmp,
		}, nil
	}

	out, err := g.output(ctx, "ls-files")
	if err != nil {
		return ChangeSet{}, fmt.Errorf("git diff %s: %v; git ls-files: %w", r, diffErr, err)
	}
	return ChangeSet{
		Paths:      filterPaths(out, filter),
		Comparison: cmp,
		FullTree:   true,
	}, nil
}

// FileDiff returns the zero-context unified diff of a single path between
// the two revisions of cmp.
func (g *Git) FileDiff(ctx context.Context, cmp Comparison, path string) (string, error) {
	r := cmp.resolved()
	out, err := g.output(ctx, "diff", "-U0", r.Base, r.Head, "--", path)
	if err != nil {
		return "", fmt.Errorf("git diff %s -- %s: %w", r, path, err)
	}
	return out, nil
}

// Path joins a repository-relative path onto Dir.
func (g *Git) Path(rel string) string {
	if g.Dir == "" {
		return rel
	}
	return filepath.Join(g.Dir, rel)
}

func filterPaths(out string, filter Filter) []string {
	var files []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		if filter.Allows(line) {
			files = append(files, line)
		}
	}
	return files
}

// MatchesAny returns true if the path matches any of the given glob patterns.
func MatchesAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		matched, err := filepath.Match(pattern, path)
		if err == nil && matched {
			return true
		}
		clean := strings.TrimPrefix(pattern, "**/")
		if clean != pattern {
			matched, err = filepath.Match(clean, filepath.Base(path))
			if err == nil && matched {
				return true
			}
			matched, err = filepath.Match(clean, path)
			if err == nil && matched {
				return true
			}
		}
		// "dir/**" matches everything below dir
		if prefix, ok := strings.CutSuffix(pattern, "/**"); ok && strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

func (g *Git) output(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.Dir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), fmt.Errorf("%s: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}

// HunkReader serves per-file diffs for one comparison.
type HunkReader struct {
	Git        *Git
	Comparison Comparison
}

// Hunks returns a HunkReader for cs, or nil when cs came from the fallback
// enumeration and has no comparison to diff against.
func (g *Git) Hunks(cs ChangeSet) *HunkReader {
	if cs.FullTree {
		return nil
	}
	return &HunkReader{Git: g, Comparison: cs.Comparison}
}

// FileDiff returns the zero-context diff of path.
func (h *HunkReader) FileDiff(ctx context.Context, path string) (string, error) {
	return h.Git.FileDiff(ctx, h.Comparison, path)
}
