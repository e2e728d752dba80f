package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dshills/sqlgate/internal/review"
)

func TestTextWriter_NothingToReview(t *testing.T) {
	report := &review.Report{
		Tool:   "sqlgate",
		Inputs: review.InputInfo{Comparison: "HEAD^..HEAD", Reviewer: "gateway"},
		Repo:   review.RepoInfo{Root: "/tmp/repo", Branch: "main"},
	}

	var buf bytes.Buffer
	w := &TextWriter{}
	if err := w.Write(&buf, report); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "NOTHING TO REVIEW") {
		t.Error("Output should show the status")
	}
	if !strings.Contains(out, "No changed files matched the review filters.") {
		t.Error("Output should explain the empty change set")
	}
}

func TestTextWriter_WithVerdicts(t *testing.T) {
	var buf bytes.Buffer
	w := &TextWriter{}
	if err := w.Write(&buf, sampleReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"REJECTED",
		"[!!] db/cleanup.sql #1  [REJECT] high",
		"High-risk statement detected: DROP",
		"[-] db/users.sql #1  [pass] low",
		"Line 1: Keywords must be upper case. (Code: CP01)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("the quick brown fox jumps over the lazy dog", 15)
	for _, l := range lines {
		if len(l) > 15 {
			t.Errorf("line %q exceeds width", l)
		}
	}
	if strings.Join(lines, " ") != "the quick brown fox jumps over the lazy dog" {
		t.Errorf("wrapText lost words: %v", lines)
	}
}
