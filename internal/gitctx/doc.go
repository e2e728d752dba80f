// Package gitctx resolves the set of files a sqlgate run reviews.
//
// It shells out to git: `git diff --name-only` between two revisions, with a
// fallback to `git ls-files` when the comparison is unavailable (for example
// on the first commit of a repository). Paths are filtered by an extension
// allow-list and a path-prefix deny-list. [Git.FileDiff] returns the
// zero-context hunks of a single file for diff-context windowing.
package gitctx
