// Package window narrows large files to their changed regions plus padding
// before extraction, so unchanged code in big files is not sent for review.
package window

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// OmittedMarker replaces every run of dropped lines. It is not valid SQL or
// source in any supported format.
const OmittedMarker = "⋯ [sqlgate: unchanged lines omitted] ⋯"

// SQLOmittedMarker is OmittedMarker as a line comment, for text handed to a
// SQL linter.
const SQLOmittedMarker = "-- " + OmittedMarker

// Range is an inclusive, 1-based range of new-file line numbers.
type Range struct {
	Start int
	End   int
}

// Options controls windowing.
type Options struct {
	Padding           int
	FullScanThreshold int
	// Marker replaces OmittedMarker when set.
	Marker string
}

// Result is the windowed text of one file.
type Result struct {
	Text string
	// Kept lists the original line numbers present in Text, ascending.
	Kept []int
	// Origin maps each line of a windowed Text to its original line number,
	// with 0 for marker lines. It is nil when Text is the full file.
	Origin []int
	// Windowed is false when the full text was returned.
	Windowed bool
}

// ErrNoHunks is returned by [ChangedRanges] when the diff has no text hunks.
var ErrNoHunks = errors.New("no hunks in diff")

// ChangedRanges parses a unified diff and returns the new-file line ranges
// touched by its hunks. A hunk that only deletes lines maps to the line it is
// anchored after.
func ChangedRanges(unifiedDiff string) ([]Range, error) {
	files, _, err := gitdiff.Parse(strings.NewReader(unifiedDiff))
	if err != nil {
		return nil, fmt.Errorf("parsing diff: %w", err)
	}
	var ranges []Range
	for _, f := range files {
		for _, frag := range f.TextFragments {
			start := int(frag.NewPosition)
			n := int(frag.NewLines)
			if n == 0 {
				if start < 1 {
					start = 1
				}
				ranges = append(ranges, Range{Start: start, End: start})
				continue
			}
			ranges = append(ranges, Range{Start: start, End: start + n - 1})
		}
	}
	if len(ranges) == 0 {
		return nil, ErrNoHunks
	}
	return ranges, nil
}

// Apply windows lines around ranges. Files at or under the threshold, and
// files with no ranges, are returned whole.
func Apply(lines []string, ranges []Range, opts Options) Result {
	total := len(lines)
	if total <= opts.FullScanThreshold || len(ranges) == 0 {
		return full(lines)
	}

	keep := make(map[int]bool)
	for _, r := range ranges {
		lo := max(1, r.Start-opts.Padding)
		hi := min(total, r.End+opts.Padding)
		for n := lo; n <= hi; n++ {
			keep[n] = true
		}
	}
	if len(keep) == 0 {
		// every range fell outside the file
		return full(lines)
	}

	kept := make([]int, 0, len(keep))
	for n := range keep {
		kept = append(kept, n)
	}
	sort.Ints(kept)

	marker := opts.Marker
	if marker == "" {
		marker = OmittedMarker
	}

	var b strings.Builder
	origin := make([]int, 0, len(kept)+2)
	prev := 0
	for _, n := range kept {
		if n != prev+1 {
			b.WriteString(marker)
			b.WriteByte('\n')
			origin = append(origin, 0)
		}
		b.WriteString(lines[n-1])
		b.WriteByte('\n')
		origin = append(origin, n)
		prev = n
	}
	if prev < total {
		b.WriteString(marker)
		b.WriteByte('\n')
		origin = append(origin, 0)
	}

	return Result{Text: b.String(), Kept: kept, Origin: origin, Windowed: true}
}

func full(lines []string) Result {
	kept := make([]int, len(lines))
	for i := range lines {
		kept[i] = i + 1
	}
	return Result{Text: strings.Join(lines, "\n"), Kept: kept}
}

// SplitLines splits content into lines without a phantom trailing empty line.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n")
}

// HunkSource supplies the unified diff of one file.
type HunkSource interface {
	FileDiff(ctx context.Context, path string) (string, error)
}

// Logger is the subset of the logging API the windower uses.
type Logger interface {
	Warn(msg string, fields ...map[string]any)
}

// Windower applies [Apply] to files using hunks from a [HunkSource].
type Windower struct {
	Source  HunkSource
	Options Options
	Log     Logger
}

// Window returns the windowed text for path. Small files skip hunk retrieval.
// A nil Source, a retrieval failure, or an unparsable diff all fall back to
// the full text.
func (w *Windower) Window(ctx context.Context, path, content string) Result {
	lines := SplitLines(content)
	if len(lines) <= w.Options.FullScanThreshold || w.Source == nil {
		return unchanged(content, lines)
	}

	diff, err := w.Source.FileDiff(ctx, path)
	if err != nil {
		w.warn("hunk retrieval failed, using full text", path, err)
		return unchanged(content, lines)
	}
	ranges, err := ChangedRanges(diff)
	if err != nil {
		w.warn("hunk parse failed, using full text", path, err)
		return unchanged(content, lines)
	}
	res := Apply(lines, ranges, w.Options)
	if !res.Windowed {
		res.Text = content
	}
	return res
}

func unchanged(content string, lines []string) Result {
	res := full(lines)
	res.Text = content
	return res
}

func (w *Windower) warn(msg, path string, err error) {
	if w.Log == nil {
		return
	}
	w.Log.Warn(msg, map[string]any{"path": path, "error": err.Error()})
}
