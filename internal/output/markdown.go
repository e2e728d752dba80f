package output

import (
	"io"
	"slices"
	"strings"

	"github.com/dshills/sqlgate/internal/review"
)

// MarkdownWriter outputs the persisted Markdown report.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *review.Report) error {
	ew := &errWriter{w: w}

	ew.println("# SQL Review Report")
	ew.println("")
	ew.printf("Overall status: %s\n\n", mdStatus(report.Status()))

	ew.printf("| | |\n|---|---|\n")
	ew.printf("| Comparison | `%s` |\n", report.Inputs.Comparison)
	if report.Repo.Head != "" {
		ew.printf("| Head | `%s` (%s) |\n", shortSHA(report.Repo.Head), report.Repo.Branch)
	}
	ew.printf("| Reviewer | %s |\n", report.Inputs.Reviewer)
	ew.printf("| Files | %d |\n", len(report.Inputs.Files))
	ew.printf("| Snippets | %d (%d rejected, %d failed) |\n",
		report.Summary.Snippets, report.Summary.Rejected, report.Summary.Failed)
	if report.Summary.HighestSeverity != "" {
		ew.printf("| Highest severity | %s |\n", report.Summary.HighestSeverity)
	}
	ew.printf("| Policy | v%s |\n", report.PolicyVersion)
	ew.printf("| Run | `%s` |\n\n", report.RunID)

	if report.Inputs.FullTree {
		ew.println("> ⚠️ The comparison could not be resolved; all tracked files were reviewed.")
		ew.println("")
	}
	if report.Error != "" {
		ew.printf("❌ Run failed: %s\n\n", report.Error)
	}
	if report.Interrupted {
		ew.printf("⚠️ Run interrupted after %d snippet(s); the remaining snippets were not reviewed.\n\n", len(report.Verdicts))
	}
	for _, s := range report.Skipped {
		ew.printf("- Skipped `%s`: %s\n", s.Path, s.Reason)
	}
	if len(report.Skipped) > 0 {
		ew.println("")
	}

	switch {
	case report.Error != "":
	case len(report.Inputs.Files) == 0:
		ew.println("No changed files matched the review filters.")
		return ew.err
	case len(report.Verdicts) == 0 && !report.Interrupted:
		ew.printf("No SQL statements were extracted from %d changed file(s).\n", len(report.Inputs.Files))
		return ew.err
	}

	for _, v := range report.Verdicts {
		writeVerdict(ew, v)
	}

	ew.printf("*Reviewed in %dms (resolve: %dms, review: %dms)*\n",
		report.Timing.TotalMs, report.Timing.ResolveMs, report.Timing.ReviewMs)
	return ew.err
}

func writeVerdict(ew *errWriter, v review.Verdict) {
	ew.printf("## 📄 `%s` (snippet #%d)\n\n", v.Path, v.Index)

	if v.Lines != nil {
		ew.printf("Lines %d-%d", v.Lines.Start, v.Lines.End)
		if v.Windowed {
			ew.printf(" (changed region only)")
		}
		ew.println("")
		ew.println("")
	}

	if v.Rejected {
		ew.printf("**Decision:** 🚫 rejected (%s)\n\n", v.Reason)
	} else {
		ew.println("**Decision:** ✅ passed")
		ew.println("")
	}

	ew.printf("**Severity:** %s\n\n", v.Severity())
	warnings := append([]string{}, v.Local.Warnings...)
	if v.Security != nil {
		for _, w := range v.Security.Warnings {
			if !slices.Contains(warnings, w) {
				warnings = append(warnings, w)
			}
		}
	}
	if v.Blocked {
		ew.println("⛔ Hard-blocked by the lint gateway before linting.")
		ew.println("")
	}
	for _, w := range warnings {
		ew.printf("- %s\n", w)
	}
	if len(warnings) > 0 {
		ew.println("")
	}

	if v.Syntax != nil {
		if v.Syntax.FoundErrors {
			ew.println("**Syntax findings:**")
			ew.println("")
			for _, d := range v.Syntax.Details {
				ew.printf("- %s\n", d)
			}
			ew.println("")
		} else {
			ew.println("**Syntax:** no findings")
			ew.println("")
		}
	}

	if v.Failed {
		ew.printf("❌ Reviewer call failed: %s\n\n", v.Failure)
	}
	if v.Report != "" {
		ew.println(strings.TrimSpace(v.Report))
		ew.println("")
	}
	if v.Detail != "" {
		ew.printf("```\n%s\n```\n\n", v.Detail)
	}
	ew.println("---")
	ew.println("")
}

func mdStatus(status string) string {
	switch status {
	case review.StatusRejected:
		return "🚫 **" + status + "**"
	case review.StatusPassed:
		return "✅ **" + status + "**"
	default:
		return "**" + status + "**"
	}
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
