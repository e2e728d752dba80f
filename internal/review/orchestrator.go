package review

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/sqlgate/internal/config"
	"github.com/dshills/sqlgate/internal/extract"
	"github.com/dshills/sqlgate/internal/gitctx"
	"github.com/dshills/sqlgate/internal/logging"
	"github.com/dshills/sqlgate/internal/redact"
	"github.com/dshills/sqlgate/internal/security"
	"github.com/dshills/sqlgate/internal/window"
)

// Repository is the git surface the orchestrator needs. *gitctx.Git
// satisfies it.
type Repository interface {
	RepoMeta(ctx context.Context) (gitctx.RepoMeta, error)
	Resolve(ctx context.Context, cmp gitctx.Comparison, filter gitctx.Filter) (gitctx.ChangeSet, error)
	Hunks(cs gitctx.ChangeSet) *gitctx.HunkReader
	Path(rel string) string
}

// Orchestrator drives one review run.
type Orchestrator struct {
	Repo        Repository
	Filter      gitctx.Filter
	Registry    *extract.Registry
	Window      window.Options
	Reviewer    Reviewer
	Policy      Policy
	Privacy     redact.Options
	Dialect     string
	CallTimeout time.Duration
	Version     string
	Log         *logging.Logger

	// ReadFile reads candidate files; os.ReadFile when nil.
	ReadFile func(path string) ([]byte, error)
}

// NewOrchestrator wires an Orchestrator from configuration.
func NewOrchestrator(cfg config.Config, repo Repository, reviewer Reviewer, log *logging.Logger) (*Orchestrator, error) {
	policy, err := NewPolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Nop()
	}
	timeout := cfg.Gateway.Timeout
	if cfg.Reviewer == "generative" {
		timeout = cfg.Generative.Timeout
	}
	return &Orchestrator{
		Repo: repo,
		Filter: gitctx.Filter{
			Extensions:   cfg.Files.Extensions,
			DenyPrefixes: cfg.Files.DenyPrefixes,
		},
		Registry: extract.NewRegistry(),
		Window: window.Options{
			Padding:           cfg.Window.Padding,
			FullScanThreshold: cfg.Window.FullScanThreshold,
		},
		Reviewer: reviewer,
		Policy:   policy,
		Privacy: redact.Options{
			Secrets: cfg.Privacy.RedactSecrets,
			Paths:   cfg.Privacy.RedactPaths,
		},
		Dialect:     cfg.Dialect,
		CallTimeout: timeout,
		Log:         log,
	}, nil
}

// Run reviews every snippet of every changed file, one at a time. The
// returned report is never nil. An error is returned only when the change
// set cannot be resolved; the report then carries the error and is rejected.
// Cancelling ctx stops the run before the next snippet and keeps the
// verdicts produced so far.
func (o *Orchestrator) Run(ctx context.Context, cmp gitctx.Comparison) (*Report, error) {
	start := time.Now()
	log := o.logger()

	report := &Report{
		Tool:          "sqlgate",
		Version:       o.Version,
		RunID:         uuid.NewString(),
		PolicyVersion: o.Policy.Version,
		Inputs: InputInfo{
			Comparison: cmp.String(),
			Files:      []string{},
			Reviewer:   o.Reviewer.Name(),
			Dialect:    o.Dialect,
		},
		Verdicts: []Verdict{},
	}
	defer func() {
		report.finalize()
		report.Timing.TotalMs = time.Since(start).Milliseconds()
	}()

	if meta, err := o.Repo.RepoMeta(ctx); err == nil {
		report.Repo = RepoInfo{Root: meta.Root, Head: meta.Head, Branch: meta.Branch}
	} else {
		log.Warn("reading repository metadata failed", map[string]any{"error": err.Error()})
	}

	cs, err := o.Repo.Resolve(ctx, cmp, o.Filter)
	report.Timing.ResolveMs = time.Since(start).Milliseconds()
	if err != nil {
		report.Error = fmt.Sprintf("resolving changed files: %v", err)
		return report, fmt.Errorf("resolving changed files: %w", err)
	}
	report.Inputs.Files = append(report.Inputs.Files, cs.Paths...)
	report.Inputs.FullTree = cs.FullTree
	if cs.FullTree {
		log.Warn("comparison failed, reviewing all tracked files", map[string]any{"comparison": cmp.String()})
	}
	log.Info("resolved change set", map[string]any{"files": len(cs.Paths), "comparison": cmp.String()})

	windower := &window.Windower{Options: o.Window, Log: log}
	// Assigning a nil *HunkReader would produce a non-nil interface.
	if h := o.Repo.Hunks(cs); h != nil {
		windower.Source = h
	}

	reviewStart := time.Now()
	defer func() { report.Timing.ReviewMs = time.Since(reviewStart).Milliseconds() }()

	for _, path := range cs.Paths {
		if ctx.Err() != nil {
			report.Interrupted = true
			log.Warn("run interrupted", map[string]any{"reviewed": len(report.Verdicts)})
			return report, nil
		}
		content, err := o.readFile(o.Repo.Path(path))
		if err != nil {
			log.Warn("skipping unreadable file", map[string]any{"path": path, "error": err.Error()})
			report.Skipped = append(report.Skipped, SkippedFile{Path: path, Reason: err.Error()})
			continue
		}
		if !o.reviewFile(ctx, windower, path, string(content), report) {
			report.Interrupted = true
			log.Warn("run interrupted", map[string]any{"reviewed": len(report.Verdicts)})
			return report, nil
		}
	}
	return report, nil
}

// reviewFile appends one verdict per snippet of path. It returns false when
// ctx was cancelled before all snippets were reviewed.
func (o *Orchestrator) reviewFile(ctx context.Context, windower *window.Windower, path, content string, report *Report) bool {
	artifact := extract.NewArtifact(path, content)
	windowed := false
	if artifact.Format.Windowable() {
		w := *windower
		if artifact.Format == extract.FormatPlain {
			w.Options.Marker = window.SQLOmittedMarker
		}
		res := w.Window(ctx, path, content)
		artifact.Content = res.Text
		artifact.LineMap = res.Origin
		windowed = res.Windowed
	}

	snippets := o.Registry.Extract(artifact)
	o.logger().Debug("extracted snippets", map[string]any{
		"path":     path,
		"format":   artifact.Format.String(),
		"snippets": len(snippets),
		"windowed": windowed,
	})
	for _, sn := range snippets {
		if ctx.Err() != nil {
			return false
		}
		v := o.reviewSnippet(ctx, sn)
		v.Windowed = windowed
		report.Verdicts = append(report.Verdicts, v)
	}
	return true
}

func (o *Orchestrator) reviewSnippet(ctx context.Context, sn extract.Snippet) Verdict {
	v := Verdict{
		Path:     sn.Path,
		Index:    sn.Index,
		Lines:    sn.Lines,
		Reviewer: o.Reviewer.Name(),
		Local:    security.Classify(sn.Text),
	}

	req := Request{
		Path:    sn.Path,
		Index:   sn.Index,
		Text:    redact.Mask(sn.Text, sn.Path, o.Privacy),
		Dialect: o.Dialect,
	}

	callCtx := ctx
	if o.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.CallTimeout)
		defer cancel()
	}

	res, err := o.Reviewer.Review(callCtx, req)
	if err != nil {
		v.Failed = true
		v.Failure = err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			v.Failure = fmt.Sprintf("reviewer call timed out after %s", o.CallTimeout)
		}
		o.logger().ErrorErr("review call failed", err, map[string]any{"path": sn.Path, "snippet": sn.Index})
	} else {
		v.Blocked = res.Blocked
		v.Security = res.Security
		v.Syntax = res.Syntax
		v.Report = res.Report
		v.Detail = res.Detail
	}

	v.Rejected, v.Reason = o.Policy.Rejects(v)
	return v
}

func (o *Orchestrator) readFile(path string) ([]byte, error) {
	if o.ReadFile != nil {
		return o.ReadFile(path)
	}
	return os.ReadFile(path)
}

func (o *Orchestrator) logger() *logging.Logger {
	if o.Log == nil {
		return logging.Nop()
	}
	return o.Log
}
