// Package extract turns changed source files into SQL snippets.
//
// Each [Format] has one [Extractor]: plain .sql files become a single
// snippet, Java/Kotlin sources yield the string literals passed to query
// annotations and query-building calls, MyBatis-style XML mappers yield one
// snippet per statement element, and any other file yields the lines that
// mention a statement keyword. Extraction is heuristic; it never parses SQL.
package extract
