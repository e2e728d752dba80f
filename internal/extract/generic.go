package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// statementKeywords mark a line as statement text in generic sources.
var statementKeywords = []string{
	"SELECT", "INSERT", "UPDATE", "DELETE", "MERGE", "REPLACE",
	"CREATE", "DROP", "ALTER", "TRUNCATE", "GRANT",
}

// Generic joins every line containing a statement keyword into one snippet.
func Generic(a Artifact) []Snippet {
	upper := cases.Upper(language.Und)
	var (
		kept        []string
		first, last int
	)
	for i, line := range strings.Split(a.Content, "\n") {
		if !hasKeyword(upper.String(line)) {
			continue
		}
		if first == 0 {
			first = i + 1
		}
		last = i + 1
		kept = append(kept, strings.TrimRight(line, "\r"))
	}
	if len(kept) == 0 {
		return nil
	}
	return []Snippet{{
		Path:  a.Path,
		Text:  strings.Join(kept, "\n"),
		Lines: &LineRange{Start: first, End: last},
	}}
}

// hasKeyword reports whether line contains a keyword not followed by a
// word character.
func hasKeyword(line string) bool {
	for _, kw := range statementKeywords {
		rest := line
		for {
			i := strings.Index(rest, kw)
			if i < 0 {
				break
			}
			after := rest[i+len(kw):]
			r, _ := utf8.DecodeRuneInString(after)
			if after == "" || !isWordRune(r) {
				return true
			}
			rest = after
		}
	}
	return false
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
