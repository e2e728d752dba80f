package gitctx

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

type testRepo struct {
	t   *testing.T
	dir string
}

func (r *testRepo) run(args ...string) {
	r.t.Helper()
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = r.dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test",
		"GIT_AUTHOR_EMAIL=test@test.com",
		"GIT_COMMITTER_NAME=test",
		"GIT_COMMITTER_EMAIL=test@test.com",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		r.t.Fatalf("command %v failed: %v\n%s", args, err, out)
	}
}

func (r *testRepo) write(rel, content string) {
	r.t.Helper()
	path := filepath.Join(r.dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		r.t.Fatal(err)
	}
}

func (r *testRepo) commit(msg string) {
	r.t.Helper()
	r.run("git", "add", "-A")
	r.run("git", "commit", "-m", msg)
}

func setupTestRepo(t *testing.T) *testRepo {
	t.Helper()
	requireGit(t)
	r := &testRepo{t: t, dir: t.TempDir()}
	r.run("git", "init")
	r.run("git", "checkout", "-b", "main")

	r.write("queries/report.sql", "SELECT id FROM orders;\n")
	r.write("src/Dao.java", "class Dao {}\n")
	r.write("README.md", "# demo\n")
	r.write("vendor/lib.sql", "SELECT 1;\n")
	r.commit("init")
	return r
}

var sqlFilter = Filter{
	Extensions:   []string{".sql", ".java"},
	DenyPrefixes: []string{"vendor/"},
}

func TestResolve_ChangedFiles(t *testing.T) {
	r := setupTestRepo(t)
	r.write("queries/report.sql", "SELECT id, total FROM orders;\n")
	r.write("queries/new.SQL", "DELETE FROM orders;\n")
	r.write("vendor/lib.sql", "SELECT 2;\n")
	r.write("README.md", "# changed\n")
	r.commit("second")

	cs, err := New(r.dir).Resolve(context.Background(), Comparison{}, sqlFilter)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if cs.FullTree {
		t.Error("FullTree should be false when the comparison succeeds")
	}
	want := []string{"queries/new.SQL", "queries/report.sql"}
	if !reflect.DeepEqual(cs.Paths, want) {
		t.Errorf("Paths = %v, want %v", cs.Paths, want)
	}
}

func TestResolve_FallbackToTrackedTree(t *testing.T) {
	// A single commit has no HEAD^, so the comparison fails.
	r := setupTestRepo(t)

	cs, err := New(r.dir).Resolve(context.Background(), Comparison{}, sqlFilter)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if !cs.FullTree {
		t.Error("expected fallback enumeration")
	}
	want := []string{"queries/report.sql", "src/Dao.java"}
	if !reflect.DeepEqual(cs.Paths, want) {
		t.Errorf("Paths = %v, want %v", cs.Paths, want)
	}
}

func TestResolve_EmptyIsValid(t *testing.T) {
	r := setupTestRepo(t)
	r.write("README.md", "# only docs\n")
	r.commit("docs")

	cs, err := New(r.dir).Resolve(context.Background(), Comparison{}, sqlFilter)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if !cs.Empty() {
		t.Errorf("expected empty change set, got %v", cs.Paths)
	}
}

func TestResolve_NotARepository(t *testing.T) {
	requireGit(t)
	_, err := New(t.TempDir()).Resolve(context.Background(), Comparison{}, sqlFilter)
	if err == nil {
		t.Fatal("expected error outside a repository")
	}
}

func TestFileDiff(t *testing.T) {
	r := setupTestRepo(t)
	r.write("queries/report.sql", "SELECT id FROM orders;\n-- added\nSELECT 2;\n")
	r.commit("second")

	out, err := New(r.dir).FileDiff(context.Background(), Comparison{Base: "HEAD^", Head: "HEAD"}, "queries/report.sql")
	if err != nil {
		t.Fatalf("FileDiff error: %v", err)
	}
	if !strings.Contains(out, "@@ -1,0 +2,2 @@") {
		t.Errorf("expected zero-context hunk header, got:\n%s", out)
	}
}

func TestRepoMeta(t *testing.T) {
	r := setupTestRepo(t)
	meta, err := New(r.dir).RepoMeta(context.Background())
	if err != nil {
		t.Fatalf("RepoMeta error: %v", err)
	}
	if meta.Branch != "main" {
		t.Errorf("Branch = %q, want main", meta.Branch)
	}
	if len(meta.Head) != 40 {
		t.Errorf("Head = %q, want a full sha", meta.Head)
	}
}

func TestFilterAllows(t *testing.T) {
	f := Filter{
		Extensions:   []string{".sql", ".XML"},
		DenyPrefixes: []string{"vendor/", "**/generated/**"},
	}
	tests := []struct {
		path string
		want bool
	}{
		{"a.sql", true},
		{"db/mapper.xml", true},
		{"A.SQL", true},
		{"main.go", false},
		{"vendor/x.sql", false},
		{"generated/x.sql", false},
	}
	for _, tt := range tests {
		if got := f.Allows(tt.path); got != tt.want {
			t.Errorf("Allows(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
	if !(Filter{}).Allows("anything.txt") {
		t.Error("empty filter should allow everything")
	}
}

func TestComparisonString(t *testing.T) {
	if got := (Comparison{}).String(); got != "HEAD^..HEAD" {
		t.Errorf("default comparison = %q", got)
	}
	if got := (Comparison{Base: "origin/main"}).String(); got != "origin/main..HEAD" {
		t.Errorf("comparison = %q", got)
	}
}

func TestMatchesAny(t *testing.T) {
	tests := []struct {
		path     string
		patterns []string
		want     bool
	}{
		{"vendor/lib.go", []string{"vendor/**"}, true},
		{"vendor/deep/lib.go", []string{"vendor/**"}, true},
		{"main.go", []string{"vendor/**"}, false},
		{"foo.gen.go", []string{"**/*.gen.go"}, true},
		{"pkg/foo.gen.go", []string{"**/*.gen.go"}, true},
		{"dist/bundle.js", []string{"**/dist/**"}, true},
		{"main.go", []string{"*.go"}, true},
		{"main.go", nil, false},
	}
	for _, tt := range tests {
		got := MatchesAny(tt.path, tt.patterns)
		if got != tt.want {
			t.Errorf("MatchesAny(%q, %v) = %v, want %v", tt.path, tt.patterns, got, tt.want)
		}
	}
}
