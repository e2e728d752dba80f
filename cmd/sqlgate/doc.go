// Sqlgate is a CI gate that reviews SQL embedded in changed files.
//
// It resolves the files changed between two revisions, extracts SQL from
// plain scripts, annotated source, XML mapper files and generic source,
// masks personal data, and reviews every snippet through a lint gateway or
// a generative reviewer. The Markdown report is always written; the exit
// code is 1 when any snippet is rejected.
//
// Usage:
//
//	sqlgate review                          # review HEAD^..HEAD
//	sqlgate review --base origin/main       # review a branch
//	sqlgate review --reviewer generative    # review with a Dify workflow
//	sqlgate serve --addr :8000              # run the lint gateway
//	sqlgate config show                     # print the effective config
package main
