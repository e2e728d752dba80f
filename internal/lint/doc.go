// Package lint runs an external SQL linter (sqlfluff by default) against one
// snippet and flattens its JSON report into a [SyntaxVerdict].
//
// Every invocation writes the snippet to its own temporary file, which is
// removed on all paths. Timeouts surface as [ErrTimeout]; unexpected exit
// statuses, start failures and unparsable output surface as *[ToolingError].
package lint
