// Package gateway implements the lint gateway: an HTTP service that
// classifies a SQL snippet, hard-blocks high-severity input before any
// linting, and otherwise runs the external linter.
//
// Endpoints:
//
//	GET  /health   liveness probe
//	POST /lint     {"text": "...", "dialect": "ansi"}
//	GET  /metrics  Prometheus metrics
//
// POST /lint answers 200 with security_analysis and syntax_analysis, 400
// with status "blocked" for high severity, 422 for an empty body, 504 when
// the linter times out and 500 when it fails. [Client] is the matching
// review.Reviewer used by the review command.
package gateway
