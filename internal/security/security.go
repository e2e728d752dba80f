package security

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Severity is the risk level assigned by [Classify].
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank returns an ordinal for severity comparison. Unknown values rank
// below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	default:
		return 0
	}
}

// Max returns the higher of s and o.
func (s Severity) Max(o Severity) Severity {
	if o.Rank() > s.Rank() {
		return o
	}
	return s
}

// MeetsThreshold reports whether s is at or above threshold. An empty
// threshold is never met.
func (s Severity) MeetsThreshold(threshold Severity) bool {
	if threshold.Rank() == 0 {
		return false
	}
	return s.Rank() >= threshold.Rank()
}

// ParseSeverity parses a severity name. "none" and "" map to the empty
// Severity, which no verdict meets.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return "", nil
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	default:
		return "", fmt.Errorf("invalid severity %q: must be none, low, medium, or high", s)
	}
}

// Verdict is the deterministic security assessment of one snippet.
type Verdict struct {
	Warnings    []string `json:"warnings"`
	Severity    Severity `json:"severity"`
	PIIDetected bool     `json:"pii_detected"`
}

// IsSafe reports whether the snippet stays below high severity.
func (v Verdict) IsSafe() bool {
	return v.Severity != SeverityHigh
}

type verdictJSON struct {
	Warnings    []string `json:"warnings"`
	Severity    Severity `json:"severity"`
	IsSafe      bool     `json:"is_safe"`
	PIIDetected bool     `json:"pii_detected"`
}

// MarshalJSON adds the derived is_safe field and encodes nil warnings as [].
func (v Verdict) MarshalJSON() ([]byte, error) {
	w := v.Warnings
	if w == nil {
		w = []string{}
	}
	return json.Marshal(verdictJSON{
		Warnings:    w,
		Severity:    v.Severity,
		IsSafe:      v.IsSafe(),
		PIIDetected: v.PIIDetected,
	})
}

// UnmarshalJSON accepts the encoding produced by MarshalJSON.
func (v *Verdict) UnmarshalJSON(data []byte) error {
	var raw verdictJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = Verdict{Warnings: raw.Warnings, Severity: raw.Severity, PIIDetected: raw.PIIDetected}
	return nil
}

type keywordRule struct {
	keyword string
	pattern *regexp.Regexp
}

// destructiveKeywords escalate to high, one warning each, in this order.
var destructiveKeywords = func() []keywordRule {
	var rules []keywordRule
	for _, kw := range []string{"DROP", "TRUNCATE", "DELETE", "ALTER", "GRANT"} {
		rules = append(rules, keywordRule{
			keyword: kw,
			pattern: regexp.MustCompile(`(?i)\b` + kw + `\b`),
		})
	}
	return rules
}()

var (
	wildcardPattern = regexp.MustCompile(`(?i)\bSELECT\s+(?:DISTINCT\s+)?\*`)
	// raw or already masked resident registration number
	nationalIDPattern = regexp.MustCompile(`(?:^|[^0-9])\d{6}[- ]?(?:[1-4]\d{6}|\*{7})(?:[^0-9]|$)`)
)

// Classify scores text with fixed rules. Each rule only raises severity.
func Classify(text string) Verdict {
	v := Verdict{Severity: SeverityLow}

	for _, r := range destructiveKeywords {
		if r.pattern.MatchString(text) {
			v.Warnings = append(v.Warnings, "High-risk statement detected: "+r.keyword)
			v.Severity = v.Severity.Max(SeverityHigh)
		}
	}

	if wildcardPattern.MatchString(text) {
		v.Warnings = append(v.Warnings, "Performance/security warning: SELECT * used (list columns explicitly)")
		v.Severity = v.Severity.Max(SeverityMedium)
	}

	if nationalIDPattern.MatchString(text) {
		v.Warnings = append(v.Warnings, "Possible PII exposure: resident registration number pattern")
		v.Severity = v.Severity.Max(SeverityMedium)
		v.PIIDetected = true
	}

	return v
}
