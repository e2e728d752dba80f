// Package security is the deterministic, offline risk classifier.
//
// [Classify] flags destructive statements (DROP, TRUNCATE, DELETE, ALTER,
// GRANT) as high severity, wildcard projections as medium, and resident
// registration number literals, raw or masked, as medium with PII detected.
// Both the CLI and the lint gateway run it before any external tool.
package security
