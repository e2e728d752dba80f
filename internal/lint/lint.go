package lint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// DefaultTimeout bounds one linter invocation.
const DefaultTimeout = 10 * time.Second

// Finding is one linter violation.
type Finding struct {
	Line        int    `json:"line"`
	Description string `json:"description"`
	Code        string `json:"code"`
}

// String renders a finding the way it appears in syntax details.
func (f Finding) String() string {
	line := "?"
	if f.Line > 0 {
		line = fmt.Sprint(f.Line)
	}
	return fmt.Sprintf("Line %s: %s (Code: %s)", line, f.Description, f.Code)
}

// SyntaxVerdict is the flattened linter result.
type SyntaxVerdict struct {
	FoundErrors bool      `json:"found_errors"`
	Details     []string  `json:"details"`
	Findings    []Finding `json:"-"`
}

// ErrTimeout is returned when the linter exceeds its time budget.
var ErrTimeout = errors.New("linter timed out")

// ToolingError means the linter could not produce a usable result.
type ToolingError struct {
	Message   string
	Stderr    string
	RawOutput string
	Err       error
}

func (e *ToolingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ToolingError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a linter timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsToolingError reports whether err is a linter tooling failure.
func IsToolingError(err error) bool {
	var te *ToolingError
	return errors.As(err, &te)
}

// Runner invokes an sqlfluff-compatible linter on a temporary file.
type Runner struct {
	// Command is the linter executable, "sqlfluff" when empty.
	Command string
	// Args are inserted before the lint subcommand.
	Args    []string
	Timeout time.Duration
}

// Lint writes text to a fresh temporary file and runs
// `<command> lint <file> --dialect <dialect> --format json` on it. Exit
// codes 0 and 1 are results; anything else is a *ToolingError. The
// temporary file is removed before Lint returns.
func (r *Runner) Lint(ctx context.Context, text, dialect string) (SyntaxVerdict, error) {
	tmp, err := os.CreateTemp("", "sqlgate-*.sql")
	if err != nil {
		return SyntaxVerdict{}, &ToolingError{Message: "creating temp file", Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return SyntaxVerdict{}, &ToolingError{Message: "writing temp file", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return SyntaxVerdict{}, &ToolingError{Message: "closing temp file", Err: err}
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if dialect == "" {
		dialect = "ansi"
	}
	command := r.Command
	if command == "" {
		command = "sqlfluff"
	}
	args := append(append([]string{}, r.Args...), "lint", tmp.Name(), "--dialect", dialect, "--format", "json")

	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	err = cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return SyntaxVerdict{}, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return SyntaxVerdict{}, &ToolingError{Message: "starting linter", Stderr: stderr.String(), Err: err}
		}
		if code := exitErr.ExitCode(); code != 1 {
			return SyntaxVerdict{}, &ToolingError{
				Message: fmt.Sprintf("linter process failed with exit status %d", code),
				Stderr:  stderr.String(),
			}
		}
	}

	findings, err := parseReport(stdout.Bytes())
	if err != nil {
		return SyntaxVerdict{}, &ToolingError{
			Message:   "failed to parse linter JSON output",
			RawOutput: stdout.String(),
			Err:       err,
		}
	}
	return newVerdict(findings), nil
}

type fileReport struct {
	Violations []violation `json:"violations"`
}

type violation struct {
	LineNo      *int   `json:"line_no"`
	StartLineNo *int   `json:"start_line_no"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// parseReport flattens sqlfluff's JSON report. Empty output means no files
// were linted.
func parseReport(out []byte) ([]Finding, error) {
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, nil
	}
	var files []fileReport
	if err := json.Unmarshal(out, &files); err != nil {
		return nil, err
	}
	var findings []Finding
	for _, f := range files {
		for _, v := range f.Violations {
			fd := Finding{Code: v.Code, Description: v.Description}
			switch {
			case v.LineNo != nil:
				fd.Line = *v.LineNo
			case v.StartLineNo != nil:
				fd.Line = *v.StartLineNo
			}
			if fd.Code == "" {
				fd.Code = "N/A"
			}
			if fd.Description == "" {
				fd.Description = "Unknown"
			}
			findings = append(findings, fd)
		}
	}
	return findings, nil
}

func newVerdict(findings []Finding) SyntaxVerdict {
	details := make([]string, 0, len(findings))
	for _, f := range findings {
		details = append(details, f.String())
	}
	return SyntaxVerdict{
		FoundErrors: len(findings) > 0,
		Details:     details,
		Findings:    findings,
	}
}
