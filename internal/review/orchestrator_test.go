package review

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/sqlgate/internal/config"
	"github.com/dshills/sqlgate/internal/gitctx"
	"github.com/dshills/sqlgate/internal/lint"
	"github.com/dshills/sqlgate/internal/security"
	"github.com/dshills/sqlgate/internal/window"
)

type fakeRepo struct {
	paths      []string
	resolveErr error
}

func (f *fakeRepo) RepoMeta(context.Context) (gitctx.RepoMeta, error) {
	return gitctx.RepoMeta{Root: "/repo", Head: "abc123", Branch: "main"}, nil
}

func (f *fakeRepo) Resolve(_ context.Context, cmp gitctx.Comparison, _ gitctx.Filter) (gitctx.ChangeSet, error) {
	if f.resolveErr != nil {
		return gitctx.ChangeSet{}, f.resolveErr
	}
	return gitctx.ChangeSet{Paths: f.paths, Comparison: cmp}, nil
}

func (f *fakeRepo) Hunks(gitctx.ChangeSet) *gitctx.HunkReader { return nil }

func (f *fakeRepo) Path(rel string) string { return rel }

type fakeReviewer struct {
	requests []Request
	review   func(ctx context.Context, req Request) (Result, error)
}

func (f *fakeReviewer) Name() string { return "fake" }

func (f *fakeReviewer) Review(ctx context.Context, req Request) (Result, error) {
	f.requests = append(f.requests, req)
	if f.review != nil {
		return f.review(ctx, req)
	}
	low := security.Classify(req.Text)
	return Result{Security: &low, Syntax: &lint.SyntaxVerdict{Details: []string{}}}, nil
}

func newTestOrchestrator(t *testing.T, repo Repository, reviewer Reviewer, files map[string]string) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(config.Default(), repo, reviewer, nil)
	require.NoError(t, err)
	o.Version = "test"
	o.ReadFile = func(path string) ([]byte, error) {
		content, ok := files[path]
		if !ok {
			return nil, fs.ErrNotExist
		}
		return []byte(content), nil
	}
	return o
}

func TestRun_NothingToReview(t *testing.T) {
	reviewer := &fakeReviewer{}
	o := newTestOrchestrator(t, &fakeRepo{}, reviewer, nil)

	report, err := o.Run(context.Background(), gitctx.Comparison{})
	require.NoError(t, err)
	assert.Equal(t, StatusNothing, report.Status())
	assert.False(t, report.Rejected)
	assert.Empty(t, report.Verdicts)
	assert.Empty(t, reviewer.requests)
	assert.Equal(t, "HEAD^..HEAD", report.Inputs.Comparison)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "main", report.Repo.Branch)
}

func TestRun_ClassifiesRawAndSendsMasked(t *testing.T) {
	reviewer := &fakeReviewer{}
	o := newTestOrchestrator(t, &fakeRepo{paths: []string{"q/users.sql", "q/cleanup.sql"}}, reviewer, map[string]string{
		"q/users.sql":   "SELECT * FROM users WHERE rrn = '900101-1234567';\n",
		"q/cleanup.sql": "DROP TABLE audit_log;\n",
	})

	report, err := o.Run(context.Background(), gitctx.Comparison{Base: "main", Head: "feature"})
	require.NoError(t, err)
	require.Len(t, report.Verdicts, 2)
	require.Len(t, reviewer.requests, 2)

	users := report.Verdicts[0]
	assert.Equal(t, "q/users.sql", users.Path)
	assert.Equal(t, 1, users.Index)
	assert.Equal(t, security.SeverityMedium, users.Local.Severity)
	assert.True(t, users.Local.PIIDetected)
	assert.False(t, users.Rejected)
	assert.NotContains(t, reviewer.requests[0].Text, "1234567")
	assert.Contains(t, reviewer.requests[0].Text, "900101")
	assert.Equal(t, "ansi", reviewer.requests[0].Dialect)

	cleanup := report.Verdicts[1]
	assert.Equal(t, security.SeverityHigh, cleanup.Local.Severity)
	assert.True(t, cleanup.Rejected)

	assert.True(t, report.Rejected)
	assert.Equal(t, StatusRejected, report.Status())
	assert.Equal(t, 1, report.Summary.Rejected)
	assert.Equal(t, security.SeverityHigh, report.Summary.HighestSeverity)
	assert.Equal(t, "main..feature", report.Inputs.Comparison)
}

func TestRun_ReviewerFailureIsRejectedVerdict(t *testing.T) {
	calls := 0
	reviewer := &fakeReviewer{review: func(context.Context, Request) (Result, error) {
		calls++
		if calls == 1 {
			return Result{}, errors.New("connection refused")
		}
		return Result{Report: "## 상태: **승인**"}, nil
	}}
	o := newTestOrchestrator(t, &fakeRepo{paths: []string{"a.sql", "b.sql"}}, reviewer, map[string]string{
		"a.sql": "SELECT id FROM a;",
		"b.sql": "SELECT id FROM b;",
	})

	report, err := o.Run(context.Background(), gitctx.Comparison{})
	require.NoError(t, err)
	require.Len(t, report.Verdicts, 2)

	assert.True(t, report.Verdicts[0].Failed)
	assert.Contains(t, report.Verdicts[0].Failure, "connection refused")
	assert.True(t, report.Verdicts[0].Rejected)
	assert.False(t, report.Verdicts[1].Rejected)
	assert.Equal(t, "## 상태: **승인**", report.Verdicts[1].Report)
	assert.Equal(t, 1, report.Summary.Failed)
	assert.True(t, report.Rejected)
}

func TestRun_CallTimeout(t *testing.T) {
	reviewer := &fakeReviewer{review: func(ctx context.Context, _ Request) (Result, error) {
		<-ctx.Done()
		return Result{}, fmt.Errorf("sending request: %w", ctx.Err())
	}}
	o := newTestOrchestrator(t, &fakeRepo{paths: []string{"a.sql"}}, reviewer, map[string]string{"a.sql": "SELECT 1;"})
	o.CallTimeout = 20 * time.Millisecond

	report, err := o.Run(context.Background(), gitctx.Comparison{})
	require.NoError(t, err)
	require.Len(t, report.Verdicts, 1)
	assert.True(t, report.Verdicts[0].Failed)
	assert.Contains(t, report.Verdicts[0].Failure, "timed out")
	assert.False(t, report.Interrupted)
	assert.True(t, report.Rejected)
}

func TestRun_SkipsUnreadableFiles(t *testing.T) {
	reviewer := &fakeReviewer{}
	o := newTestOrchestrator(t, &fakeRepo{paths: []string{"gone.sql", "ok.sql"}}, reviewer, map[string]string{
		"ok.sql": "SELECT id FROM t;",
	})

	report, err := o.Run(context.Background(), gitctx.Comparison{})
	require.NoError(t, err)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "gone.sql", report.Skipped[0].Path)
	require.Len(t, report.Verdicts, 1)
	assert.Equal(t, "ok.sql", report.Verdicts[0].Path)
	assert.Equal(t, StatusPassed, report.Status())
}

func TestRun_FilesWithoutSnippetsPass(t *testing.T) {
	reviewer := &fakeReviewer{}
	o := newTestOrchestrator(t, &fakeRepo{paths: []string{"src/Util.java"}}, reviewer, map[string]string{
		"src/Util.java": "class Util { int add(int a, int b) { return a + b; } }\n",
	})

	report, err := o.Run(context.Background(), gitctx.Comparison{})
	require.NoError(t, err)
	assert.Empty(t, report.Verdicts)
	assert.Empty(t, reviewer.requests)
	assert.Equal(t, StatusPassed, report.Status())
}

func TestRun_ResolveError(t *testing.T) {
	o := newTestOrchestrator(t, &fakeRepo{resolveErr: errors.New("not a git repository")}, &fakeReviewer{}, nil)

	report, err := o.Run(context.Background(), gitctx.Comparison{})
	require.Error(t, err)
	require.NotNil(t, report)
	assert.Contains(t, report.Error, "not a git repository")
	assert.True(t, report.Rejected)
	assert.Equal(t, StatusRejected, report.Status())
}

func TestRun_CancellationKeepsProducedVerdicts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reviewer := &fakeReviewer{review: func(context.Context, Request) (Result, error) {
		cancel()
		return Result{Report: "**APPROVED**"}, nil
	}}
	o := newTestOrchestrator(t, &fakeRepo{paths: []string{"a.sql", "b.sql", "c.sql"}}, reviewer, map[string]string{
		"a.sql": "SELECT 1;",
		"b.sql": "SELECT 2;",
		"c.sql": "SELECT 3;",
	})

	report, err := o.Run(ctx, gitctx.Comparison{})
	require.NoError(t, err)
	assert.Len(t, reviewer.requests, 1)
	require.Len(t, report.Verdicts, 1)
	assert.False(t, report.Verdicts[0].Rejected)
	assert.True(t, report.Interrupted)
	assert.True(t, report.Rejected)
}

func TestRun_CancellationBetweenSnippets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reviewer := &fakeReviewer{review: func(context.Context, Request) (Result, error) {
		cancel()
		return Result{}, nil
	}}
	source := `@Query("SELECT a FROM t")
@Query("SELECT b FROM t")
@Query("SELECT c FROM t")`
	o := newTestOrchestrator(t, &fakeRepo{paths: []string{"Repo.java"}}, reviewer, map[string]string{"Repo.java": source})

	report, err := o.Run(ctx, gitctx.Comparison{})
	require.NoError(t, err)
	assert.Len(t, report.Verdicts, 1)
	assert.True(t, report.Interrupted)
}

func TestRun_PathRedaction(t *testing.T) {
	reviewer := &fakeReviewer{}
	o := newTestOrchestrator(t, &fakeRepo{paths: []string{"db/secrets.sql"}}, reviewer, map[string]string{
		"db/secrets.sql": "CREATE USER app IDENTIFIED BY 'hunter2';",
	})

	_, err := o.Run(context.Background(), gitctx.Comparison{})
	require.NoError(t, err)
	require.Len(t, reviewer.requests, 1)
	assert.NotContains(t, reviewer.requests[0].Text, "hunter2")
	assert.Contains(t, reviewer.requests[0].Text, "[REDACTED]")
}

// commitChange creates a git repo in a temp dir holding name with lines, then
// commits a second revision with line n (1-based) replaced by changed.
func commitChange(t *testing.T, name string, lines []string, n int, changed string) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	git := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test",
			"GIT_AUTHOR_EMAIL=test@test.com",
			"GIT_COMMITTER_NAME=test",
			"GIT_COMMITTER_EMAIL=test@test.com",
		)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	path := filepath.Join(dir, name)
	write := func() {
		require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	}

	git("init")
	write()
	git("add", "-A")
	git("commit", "-m", "init")
	lines[n-1] = changed
	write()
	git("add", "-A")
	git("commit", "-m", "change")
	return dir
}

func TestRun_WindowsLargeFilesAroundHunks(t *testing.T) {
	lines := make([]string, 300)
	for i := range lines {
		lines[i] = fmt.Sprintf("SELECT %d FROM numbers;", i+1)
	}
	dir := commitChange(t, "big.sql", lines, 150, "SELECT changed FROM numbers;")

	reviewer := &fakeReviewer{}
	o, err := NewOrchestrator(config.Default(), gitctx.New(dir), reviewer, nil)
	require.NoError(t, err)

	report, err := o.Run(context.Background(), gitctx.Comparison{})
	require.NoError(t, err)
	require.Len(t, reviewer.requests, 1)
	require.Len(t, report.Verdicts, 1)
	assert.True(t, report.Verdicts[0].Windowed)

	text := reviewer.requests[0].Text
	assert.Contains(t, text, "SELECT changed FROM numbers;")
	assert.NotContains(t, text, "SELECT 1 FROM numbers;")
	assert.NotContains(t, text, "SELECT 300 FROM numbers;")

	// Gaps reach the linter as comments, never as bare marker text.
	markers := 0
	for _, l := range strings.Split(text, "\n") {
		if strings.Contains(l, window.OmittedMarker) {
			assert.Equal(t, window.SQLOmittedMarker, l)
			markers++
			continue
		}
		assert.True(t, strings.HasPrefix(l, "SELECT "), l)
	}
	assert.Equal(t, 2, markers)
}

func TestRun_WindowedGenericKeepsSourceLineNumbers(t *testing.T) {
	lines := make([]string, 300)
	for i := range lines {
		lines[i] = fmt.Sprintf("x%d = %d", i+1, i+1)
	}
	dir := commitChange(t, "job.py", lines, 250, `cur.execute("SELECT id FROM orders")`)

	cfg := config.Default()
	cfg.Window.Padding = 2
	reviewer := &fakeReviewer{}
	o, err := NewOrchestrator(cfg, gitctx.New(dir), reviewer, nil)
	require.NoError(t, err)

	report, err := o.Run(context.Background(), gitctx.Comparison{})
	require.NoError(t, err)
	require.Len(t, report.Verdicts, 1)
	v := report.Verdicts[0]
	assert.True(t, v.Windowed)
	require.NotNil(t, v.Lines)
	assert.Equal(t, 250, v.Lines.Start)
	assert.Equal(t, 250, v.Lines.End)
	assert.Equal(t, `cur.execute("SELECT id FROM orders")`, reviewer.requests[0].Text)
}
