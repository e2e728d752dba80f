package extract

import (
	"path/filepath"
	"strings"
)

// Format is the detected shape of a source artifact.
type Format int

const (
	FormatPlain     Format = iota // whole file is SQL
	FormatAnnotated               // SQL inside annotation or call-site string literals
	FormatMarkup                  // MyBatis-style XML mapper
	FormatGeneric                 // anything else, keyword line scan
)

func (f Format) String() string {
	switch f {
	case FormatPlain:
		return "plain"
	case FormatAnnotated:
		return "annotated"
	case FormatMarkup:
		return "markup"
	default:
		return "generic"
	}
}

// Windowable reports whether artifacts of this format may be narrowed to
// their changed regions before extraction. Annotated literals and markup
// trees must be seen whole to parse.
func (f Format) Windowable() bool {
	return f == FormatPlain || f == FormatGeneric
}

// DetectFormat picks a format from the file extension.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sql":
		return FormatPlain
	case ".java", ".kt", ".scala", ".groovy":
		return FormatAnnotated
	case ".xml":
		return FormatMarkup
	default:
		return FormatGeneric
	}
}

// Artifact is one file read from the working tree.
type Artifact struct {
	Path    string
	Content string
	Format  Format
	// LineMap gives the source line number of each line of Content, 0 for
	// lines that are not in the source. Nil means Content is the source.
	LineMap []int
}

// NewArtifact builds an Artifact with its format detected from path.
func NewArtifact(path, content string) Artifact {
	return Artifact{Path: path, Content: content, Format: DetectFormat(path)}
}

// LineRange is an inclusive, 1-based line span in the source file.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Snippet is one unit of statement text to review.
type Snippet struct {
	Path  string     `json:"path"`
	Index int        `json:"index"`
	Text  string     `json:"text"`
	Lines *LineRange `json:"lines,omitempty"`
}

// Extractor turns an artifact into snippets. Index is assigned by the
// Registry, so extractors may leave it zero.
type Extractor func(Artifact) []Snippet

// Registry maps formats to extractors.
type Registry struct {
	extractors map[Format]Extractor
}

// NewRegistry returns a Registry with the built-in extractor for every format.
func NewRegistry() *Registry {
	return &Registry{extractors: map[Format]Extractor{
		FormatPlain:     Plain,
		FormatAnnotated: Annotated,
		FormatMarkup:    Markup,
		FormatGeneric:   Generic,
	}}
}

// Register replaces the extractor for f.
func (r *Registry) Register(f Format, e Extractor) {
	r.extractors[f] = e
}

// Extract runs the extractor for a.Format. Snippet text is trimmed, empty
// snippets are dropped and the rest are numbered from 1. A panicking
// extractor yields no snippets.
func (r *Registry) Extract(a Artifact) (snippets []Snippet) {
	e, ok := r.extractors[a.Format]
	if !ok {
		return nil
	}
	defer func() {
		if recover() != nil {
			snippets = nil
		}
	}()

	for _, s := range e(a) {
		s.Text = strings.TrimSpace(s.Text)
		if s.Text == "" {
			continue
		}
		s.Path = a.Path
		s.Lines = a.sourceLines(s.Lines)
		s.Index = len(snippets) + 1
		snippets = append(snippets, s)
	}
	return snippets
}

// Plain treats the whole content as one statement block.
func Plain(a Artifact) []Snippet {
	return []Snippet{{Path: a.Path, Text: a.Content}}
}

// sourceLines translates a range over Content lines into source lines,
// skipping lines that have no source counterpart.
func (a Artifact) sourceLines(r *LineRange) *LineRange {
	if r == nil || a.LineMap == nil {
		return r
	}
	var out LineRange
	for n := max(r.Start, 1); n <= r.End && n <= len(a.LineMap); n++ {
		src := a.LineMap[n-1]
		if src == 0 {
			continue
		}
		if out.Start == 0 {
			out.Start = src
		}
		out.End = src
	}
	if out.Start == 0 {
		return nil
	}
	return &out
}

// lineAt returns the 1-based line number of byte offset off in s.
func lineAt(s string, off int) int {
	return strings.Count(s[:off], "\n") + 1
}
