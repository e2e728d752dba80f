package output

import (
	"io"
	"strings"

	"github.com/dshills/sqlgate/internal/review"
	"github.com/dshills/sqlgate/internal/security"
)

// TextWriter outputs a human-readable terminal report.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, report *review.Report) error {
	ew := &errWriter{w: w}

	ew.printf("sqlgate SQL review: %s\n", report.Status())
	ew.printf("Comparison: %s (reviewer: %s)\n", report.Inputs.Comparison, report.Inputs.Reviewer)
	if report.Repo.Root != "" {
		ew.printf("Repository: %s (branch: %s)\n", report.Repo.Root, report.Repo.Branch)
	}
	ew.println(strings.Repeat("─", 60))
	ew.printf("Files: %d  Snippets: %d  Rejected: %d  Failed: %d\n",
		len(report.Inputs.Files), report.Summary.Snippets, report.Summary.Rejected, report.Summary.Failed)
	ew.println(strings.Repeat("─", 60))

	if report.Error != "" {
		ew.printf("\nError: %s\n", report.Error)
	}
	if report.Interrupted {
		ew.println("\nInterrupted: remaining snippets were not reviewed.")
	}
	for _, s := range report.Skipped {
		ew.printf("Skipped %s: %s\n", s.Path, s.Reason)
	}

	if report.Error == "" {
		if len(report.Inputs.Files) == 0 {
			ew.println("\nNo changed files matched the review filters.")
			return ew.err
		}
		if len(report.Verdicts) == 0 && !report.Interrupted {
			ew.printf("\nNo SQL statements were extracted from %d changed file(s).\n", len(report.Inputs.Files))
			return ew.err
		}
	}

	for _, v := range report.Verdicts {
		decision := "pass"
		if v.Rejected {
			decision = "REJECT"
		}
		ew.printf("\n%s %s #%d  [%s] %s\n", severityIcon(v.Severity()), v.Path, v.Index, decision, v.Severity())
		if v.Reason != "" {
			ew.printf("    %s\n", v.Reason)
		}
		for _, warn := range v.Local.Warnings {
			ew.printf("    - %s\n", warn)
		}
		if v.Syntax != nil {
			for _, d := range v.Syntax.Details {
				ew.printf("    * %s\n", d)
			}
		}
		if v.Failed {
			for _, line := range wrapText(v.Failure, 70) {
				ew.printf("    ! %s\n", line)
			}
		}
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	ew.printf("Completed in %dms (resolve: %dms, review: %dms)\n",
		report.Timing.TotalMs, report.Timing.ResolveMs, report.Timing.ReviewMs)

	return ew.err
}

func severityIcon(s security.Severity) string {
	switch s {
	case security.SeverityHigh:
		return "[!!]"
	case security.SeverityMedium:
		return "[!]"
	case security.SeverityLow:
		return "[-]"
	default:
		return "[?]"
	}
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
