package redact

import (
	"regexp"
	"strings"
)

// NationalIDMask replaces the last seven digits of a resident registration
// number.
const NationalIDMask = "*******"

var (
	nationalIDPattern = regexp.MustCompile(`(\d{6})[- ]?[1-4]\d{6}`)
	mobilePattern     = regexp.MustCompile(`(01[016789])([-. ]?)\d{3,4}([-. ]?)(\d{4})`)
	emailPattern      = regexp.MustCompile(`[A-Za-z0-9._%+-]+@([A-Za-z0-9-]+(?:\.[A-Za-z0-9-]+)*\.[A-Za-z]{2,})`)
	// addressToken spans an email address, masked or not. Digit runs inside
	// one belong to the address, not to a phone or resident number.
	addressToken = regexp.MustCompile(`[A-Za-z0-9._%+*-]*@[A-Za-z0-9.-]+`)
)

// PII masks personal data in text: resident registration numbers, mobile
// numbers and email local parts. Masked output is stable under re-masking,
// and the classes never overlap, so the order they run in does not matter.
func PII(text string) string {
	for _, mask := range piiClasses {
		text = mask(text)
	}
	return text
}

var piiClasses = []func(string) string{maskNationalIDs, maskMobiles, maskEmails}

func maskNationalIDs(text string) string {
	return replaceIsolated(text, nationalIDPattern, func(m []string) string {
		return m[1] + "-" + NationalIDMask
	})
}

func maskMobiles(text string) string {
	return replaceIsolated(text, mobilePattern, func(m []string) string {
		return m[1] + m[2] + "****" + m[3] + m[4]
	})
}

func maskEmails(text string) string {
	return emailPattern.ReplaceAllString(text, "***@$1")
}

// replaceIsolated replaces matches of re that are not adjacent to other
// digits and not inside an email address. A rejected match is retried one
// byte further on, so a valid sequence starting inside a longer run is
// still considered.
func replaceIsolated(text string, re *regexp.Regexp, repl func([]string) string) string {
	addresses := addressToken.FindAllStringIndex(text, -1)
	var b strings.Builder
	done, pos := 0, 0
	for pos < len(text) {
		loc := re.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if (start > 0 && isDigit(text[start-1])) || (end < len(text) && isDigit(text[end])) || overlaps(addresses, start, end) {
			pos = start + 1
			continue
		}
		groups := make([]string, len(loc)/2)
		for i := range groups {
			if loc[2*i] >= 0 {
				groups[i] = text[pos+loc[2*i] : pos+loc[2*i+1]]
			}
		}
		b.WriteString(text[done:start])
		b.WriteString(repl(groups))
		done, pos = end, end
	}
	if done == 0 {
		return text
	}
	b.WriteString(text[done:])
	return b.String()
}

func overlaps(spans [][]int, start, end int) bool {
	for _, sp := range spans {
		if start < sp[1] && sp[0] < end {
			return true
		}
	}
	return false
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Options selects the redaction applied on top of PII masking.
type Options struct {
	Secrets bool
	Paths   []string
}

// Mask prepares text from path for transmission. Files matching a redaction
// path pattern are replaced wholesale; otherwise PII is always masked and
// secrets are masked when enabled.
func Mask(text, path string, opts Options) string {
	if ShouldRedactPath(path, opts.Paths) {
		return placeholder + " (file content redacted by path policy)"
	}
	text = PII(text)
	if opts.Secrets {
		text = Secrets(text)
	}
	return text
}
