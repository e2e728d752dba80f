// Package cli wires together the Cobra command tree for the sqlgate binary.
//
// It defines the root command and its subcommands (review, serve, config,
// version), binds flags onto configuration overrides, builds the reviewer
// and the orchestrator, writes the report, and returns deterministic exit
// codes for CI gating: 0 pass, 1 rejected, 2 usage error, 4 runtime error.
package cli
