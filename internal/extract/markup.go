package extract

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// statementElements are the mapper elements that hold SQL.
var statementElements = map[string]bool{
	"select": true,
	"insert": true,
	"update": true,
	"delete": true,
}

type openElement struct {
	slot      int // index into the result slots, -1 for non-statement elements
	startLine int
	text      strings.Builder
}

// Markup extracts the text of every select/insert/update/delete element at
// any depth, in start-tag order, with whitespace runs collapsed. Text of
// nested dynamic elements (if, where, foreach, ...) is included. Malformed
// markup yields no snippets.
func Markup(a Artifact) []Snippet {
	snippets, err := parseMapper(a)
	if err != nil {
		return nil
	}
	return snippets
}

func parseMapper(a Artifact) ([]Snippet, error) {
	d := xml.NewDecoder(strings.NewReader(a.Content))
	d.CharsetReader = charsetReader

	var (
		stack []*openElement
		slots []*Snippet
	)
	for {
		line, _ := d.InputPos()
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &openElement{slot: -1, startLine: line}
			if statementElements[strings.ToLower(t.Name.Local)] {
				el.slot = len(slots)
				slots = append(slots, nil)
			}
			stack = append(stack, el)
		case xml.CharData:
			for _, el := range stack {
				if el.slot >= 0 {
					el.text.Write(t)
				}
			}
		case xml.EndElement:
			el := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if el.slot < 0 {
				continue
			}
			endLine, _ := d.InputPos()
			slots[el.slot] = &Snippet{
				Path:  a.Path,
				Text:  strings.Join(strings.Fields(el.text.String()), " "),
				Lines: &LineRange{Start: el.startLine, End: endLine},
			}
		}
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("unclosed element at end of %s", a.Path)
	}

	out := make([]Snippet, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out, nil
}

// charsetReader decodes mappers declared in a non-UTF-8 encoding such as
// EUC-KR.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, err
	}
	return enc.NewDecoder().Reader(input), nil
}
