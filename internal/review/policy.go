package review

import (
	"fmt"
	"strings"

	"github.com/dshills/sqlgate/internal/config"
	"github.com/dshills/sqlgate/internal/security"
)

// Policy is the rejection predicate applied to each verdict. Marker
// matching against free-text reports is versioned with Version so it can
// follow the reviewer's report template.
type Policy struct {
	Version              string
	RejectOnBlocked      bool
	RejectSeverity       security.Severity
	RejectOnSyntaxErrors bool
	RejectMarkers        []string
	ConditionalMarkers   []string
	ConditionalPasses    bool
	PassMarkers          []string
	RequirePassMarker    bool
}

// NewPolicy builds a Policy from configuration.
func NewPolicy(cfg config.PolicyConfig) (Policy, error) {
	sev, err := security.ParseSeverity(cfg.RejectSeverity)
	if err != nil {
		return Policy{}, fmt.Errorf("policy: %w", err)
	}
	return Policy{
		Version:              cfg.Version,
		RejectOnBlocked:      cfg.RejectOnBlocked,
		RejectSeverity:       sev,
		RejectOnSyntaxErrors: cfg.RejectOnSyntaxErrors,
		RejectMarkers:        cfg.RejectMarkers,
		ConditionalMarkers:   cfg.ConditionalMarkers,
		ConditionalPasses:    cfg.ConditionalPasses,
		PassMarkers:          cfg.PassMarkers,
		RequirePassMarker:    cfg.RequirePassMarker,
	}, nil
}

// Rejects reports whether v fails the gate, with a short reason.
func (p Policy) Rejects(v Verdict) (bool, string) {
	if v.Failed {
		return true, "review could not be completed: " + v.Failure
	}
	if v.Blocked && p.RejectOnBlocked {
		return true, "hard-blocked by the lint gateway"
	}
	if sev := v.Severity(); sev.MeetsThreshold(p.RejectSeverity) {
		return true, fmt.Sprintf("severity %s", sev)
	}
	if v.Syntax != nil && v.Syntax.FoundErrors && p.RejectOnSyntaxErrors {
		return true, fmt.Sprintf("linter reported %d finding(s)", len(v.Syntax.Details))
	}
	if v.Report != "" {
		return p.rejectsReport(v.Report)
	}
	return false, ""
}

// rejectsReport applies marker matching. A reject marker always wins, even
// next to a pass marker.
func (p Policy) rejectsReport(report string) (bool, string) {
	if m := findMarker(report, p.RejectMarkers); m != "" {
		return true, "reviewer marked " + m
	}
	if m := findMarker(report, p.ConditionalMarkers); m != "" {
		if p.ConditionalPasses {
			return false, ""
		}
		return true, "reviewer marked " + m + " and conditional approval does not pass"
	}
	if p.RequirePassMarker && findMarker(report, p.PassMarkers) == "" {
		return true, "no approval marker in the review (inconclusive)"
	}
	return false, ""
}

func findMarker(report string, markers []string) string {
	lower := strings.ToLower(report)
	for _, m := range markers {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return m
		}
	}
	return ""
}
