package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// callSitePattern matches a query annotation or query-building call whose
// first literal argument is a Java/Kotlin string or text block. Leading
// attributes such as nativeQuery = true are skipped.
var callSitePattern = regexp.MustCompile(
	`(?s)(?:@(?:Query|Select|Insert|Update|Delete)|\.(?:createQuery|createNativeQuery|prepareStatement))` +
		`\s*\(\s*(?:\w+\s*=\s*\w+\s*,\s*)*(?:value\s*=\s*)?` +
		`(?:"""(.*?)"""|"((?:[^"\\\n]|\\.)*)")`)

// declPattern matches the head of a string variable whose name marks it as
// statement text, e.g. String sql = or val findQuery: String =.
var declPattern = regexp.MustCompile(
	`\b(?:String|var|val)\s+\w*(?i:sql|query|jpql|hql)\w*\s*(?::\s*String\s*)?=\s*`)

// Annotated extracts the literal payload of every call site and of every
// statement-named string variable holding a statement keyword, in source
// order.
func Annotated(a Artifact) []Snippet {
	type found struct {
		start, end int
		text       string
	}
	var all []found
	upper := cases.Upper(language.Und)

	for _, m := range callSitePattern.FindAllStringSubmatchIndex(a.Content, -1) {
		switch {
		case m[2] >= 0:
			all = append(all, found{m[2], m[3], a.Content[m[2]:m[3]]})
		case m[4] >= 0:
			all = append(all, found{m[4], m[5], unquote(a.Content[m[4]:m[5]])})
		}
	}
	for _, m := range declPattern.FindAllStringIndex(a.Content, -1) {
		text, start, end, ok := initializer(a.Content, m[1])
		if ok && hasKeyword(upper.String(text)) {
			all = append(all, found{start, end, text})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].start < all[j].start })

	out := make([]Snippet, 0, len(all))
	for _, f := range all {
		out = append(out, Snippet{
			Path: a.Path,
			Text: f.text,
			Lines: &LineRange{
				Start: lineAt(a.Content, f.start),
				End:   lineAt(a.Content, f.end),
			},
		})
	}
	return out
}

// initializer reads a string expression starting at off: a text block, or a
// chain of "..." literals and operands joined by +. Operands are rendered as
// ${operand} so concatenated input stays visible in the statement. It
// reports false unless the expression starts with a literal.
func initializer(src string, off int) (text string, start, end int, ok bool) {
	if strings.HasPrefix(src[off:], `"""`) {
		body := off + 3
		n := strings.Index(src[body:], `"""`)
		if n < 0 {
			return "", 0, 0, false
		}
		return src[body : body+n], body, body + n, true
	}
	if !strings.HasPrefix(src[off:], `"`) {
		return "", 0, 0, false
	}

	var b strings.Builder
	pos := off
	start = off + 1
	for {
		if pos < len(src) && src[pos] == '"' {
			lit, next, closed := stringLiteral(src, pos)
			if !closed {
				return "", 0, 0, false
			}
			b.WriteString(unquote(lit))
			end = next - 1
			pos = next
		} else {
			operand, next := operandAt(src, pos)
			if operand == "" {
				break
			}
			b.WriteString("${" + operand + "}")
			end = next
			pos = next
		}
		pos = skipSpace(src, pos)
		if pos >= len(src) || src[pos] != '+' {
			break
		}
		pos = skipSpace(src, pos+1)
	}
	return b.String(), start, end, true
}

// stringLiteral returns the body of the single-line literal opening at pos
// and the offset just past its closing quote.
func stringLiteral(src string, pos int) (body string, next int, closed bool) {
	for i := pos + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case '\n':
			return "", 0, false
		case '"':
			return src[pos+1 : i], i + 1, true
		}
	}
	return "", 0, false
}

// operandAt reads a non-literal operand up to the next top-level + or the
// end of the statement.
func operandAt(src string, pos int) (string, int) {
	depth := 0
	i := pos
loop:
	for i < len(src) {
		switch c := src[i]; {
		case c == '"':
			_, next, closed := stringLiteral(src, i)
			if !closed {
				break loop
			}
			i = next
			continue
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			if depth == 0 {
				break loop
			}
			depth--
		case depth == 0 && (c == '+' || c == ';' || c == ',' || c == '\n'):
			break loop
		}
		i++
	}
	return strings.TrimSpace(src[pos:i]), i
}

func skipSpace(src string, pos int) int {
	for pos < len(src) && strings.ContainsRune(" \t\r\n", rune(src[pos])) {
		pos++
	}
	return pos
}

// unquote resolves escapes in a single-line literal body, keeping the raw
// body when it is not a valid Go-compatible escape sequence.
func unquote(body string) string {
	if !strings.Contains(body, `\`) {
		return body
	}
	s, err := strconv.Unquote(`"` + body + `"`)
	if err != nil {
		return body
	}
	return s
}
