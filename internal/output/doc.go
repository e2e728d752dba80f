// Package output renders review reports.
//
// Three formats are supported:
//   - markdown: the persisted report (sql_review_report.md by default), one
//     section per snippet
//   - text: a compact terminal summary
//   - json: the full structured report
//
// Use [GetWriter] to obtain a [Writer] for a format string, or
// [WriteReport] to write a report file in one step.
package output
