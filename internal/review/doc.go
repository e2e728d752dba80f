// Package review runs the SQL gate and aggregates its outcome.
//
// The [Orchestrator] resolves the change set, reads each candidate file,
// windows large files around their diff hunks, extracts SQL snippets,
// classifies the raw text locally, masks it, and sends it to a [Reviewer]
// exactly once. Work is strictly sequential. Every snippet yields one
// [Verdict], including when the reviewer call fails; a failed verdict is
// always rejected.
//
// [Policy] decides rejection from the hard-block flag, the highest
// severity, linter findings, and status markers in free-text reports. The
// [Report] collects all verdicts and its overall decision rejects when any
// verdict rejects or when the run was interrupted or errored.
package review
