package review

import (
	"context"

	"github.com/google/uuid"

	"github.com/dshills/sqlgate/internal/extract"
	"github.com/dshills/sqlgate/internal/lint"
	"github.com/dshills/sqlgate/internal/security"
)

// Request is one masked snippet sent to a reviewer.
type Request struct {
	Path    string
	Index   int
	Text    string
	Dialect string
}

// Result is a reviewer's answer for one snippet. The lint gateway fills
// Security and Syntax (Blocked on a hard block); generative reviewers fill
// Report.
type Result struct {
	Blocked  bool
	Security *security.Verdict
	Syntax   *lint.SyntaxVerdict
	Report   string
	Detail   string
}

// Reviewer reviews one snippet per call. Implementations must not retry.
type Reviewer interface {
	Review(ctx context.Context, req Request) (Result, error)
	Name() string
}

// Verdict is the outcome for one snippet.
type Verdict struct {
	Path     string             `json:"path"`
	Index    int                `json:"index"`
	Lines    *extract.LineRange `json:"lines,omitempty"`
	Windowed bool               `json:"windowed,omitempty"`
	Reviewer string             `json:"reviewer"`

	// Local is the offline classification of the unmasked snippet.
	Local security.Verdict `json:"local"`

	Blocked  bool                `json:"blocked"`
	Security *security.Verdict   `json:"security,omitempty"`
	Syntax   *lint.SyntaxVerdict `json:"syntax,omitempty"`
	Report   string              `json:"report,omitempty"`
	Detail   string              `json:"detail,omitempty"`

	Failed  bool   `json:"failed"`
	Failure string `json:"failure,omitempty"`

	Rejected bool   `json:"rejected"`
	Reason   string `json:"reason,omitempty"`
}

// Severity is the highest of the local and reviewer-side severities.
func (v Verdict) Severity() security.Severity {
	s := v.Local.Severity
	if v.Security != nil {
		s = s.Max(v.Security.Severity)
	}
	return s
}

// RepoInfo contains repository metadata.
type RepoInfo struct {
	Root   string `json:"root"`
	Head   string `json:"head"`
	Branch string `json:"branch"`
}

// InputInfo describes what was reviewed.
type InputInfo struct {
	Comparison string   `json:"comparison"`
	FullTree   bool     `json:"fullTree,omitempty"`
	Files      []string `json:"files"`
	Reviewer   string   `json:"reviewer"`
	Dialect    string   `json:"dialect"`
}

// SkippedFile is a candidate file that could not be read.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Summary counts verdict outcomes.
type Summary struct {
	Snippets        int               `json:"snippets"`
	Rejected        int               `json:"rejected"`
	Failed          int               `json:"failed"`
	Blocked         int               `json:"blocked"`
	HighestSeverity security.Severity `json:"highestSeverity,omitempty"`
}

// Timing contains performance metrics.
type Timing struct {
	ResolveMs int64 `json:"resolveMs"`
	ReviewMs  int64 `json:"reviewMs"`
	TotalMs   int64 `json:"totalMs"`
}

// Report statuses.
const (
	StatusPassed   = "PASSED"
	StatusRejected = "REJECTED"
	StatusNothing  = "NOTHING TO REVIEW"
)

// Report is the aggregate result of one run.
type Report struct {
	Tool          string        `json:"tool"`
	Version       string        `json:"version"`
	RunID         string        `json:"runId"`
	Repo          RepoInfo      `json:"repo"`
	Inputs        InputInfo     `json:"inputs"`
	Summary       Summary       `json:"summary"`
	Verdicts      []Verdict     `json:"verdicts"`
	Skipped       []SkippedFile `json:"skipped,omitempty"`
	Rejected      bool          `json:"rejected"`
	PolicyVersion string        `json:"policyVersion"`
	Interrupted   bool          `json:"interrupted,omitempty"`
	Error         string        `json:"error,omitempty"`
	Timing        Timing        `json:"timing"`
}

// Status is the overall decision line.
func (r *Report) Status() string {
	switch {
	case r.Rejected:
		return StatusRejected
	case len(r.Inputs.Files) == 0:
		return StatusNothing
	default:
		return StatusPassed
	}
}

// ComputeSummary counts outcomes across verdicts.
func ComputeSummary(verdicts []Verdict) Summary {
	s := Summary{Snippets: len(verdicts)}
	for _, v := range verdicts {
		if v.Rejected {
			s.Rejected++
		}
		if v.Failed {
			s.Failed++
		}
		if v.Blocked {
			s.Blocked++
		}
		s.HighestSeverity = s.HighestSeverity.Max(v.Severity())
	}
	return s
}

// finalize computes the summary and the overall decision. Errors and
// interruptions reject because analysis is incomplete.
// NewFailedReport returns the rejected report of a run that could not start.
func NewFailedReport(version, comparison string, cause error) *Report {
	r := &Report{
		Tool:     "sqlgate",
		Version:  version,
		RunID:    uuid.NewString(),
		Inputs:   InputInfo{Comparison: comparison, Files: []string{}},
		Verdicts: []Verdict{},
		Error:    cause.Error(),
	}
	r.finalize()
	return r
}

func (r *Report) finalize() {
	r.Summary = ComputeSummary(r.Verdicts)
	r.Rejected = r.Summary.Rejected > 0 || r.Error != "" || r.Interrupted
}
