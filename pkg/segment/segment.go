// Package segment splits long text into bounded, word-boundary-safe parts
// for storage in length-limited records.
package segment

import (
	"strings"
	"unicode"
)

// DefaultMaxLen is the column width of a stored translation part.
const DefaultMaxLen = 100

// Split divides text into ordered segments of at most maxLen characters.
//
// Text that already fits is returned as a single trimmed segment. Longer text
// is cut at the last whitespace inside each window, so words are never split
// across segments; the whitespace at a break is dropped. A word longer than
// maxLen has no such break and is cut hard at maxLen.
//
// Joining the segments with single spaces reproduces the text with its
// whitespace normalised at the breaks (hard-cut words gain a space).
// Blank text yields no segments at any length. Lengths are counted in
// runes. maxLen < 1 means DefaultMaxLen.
func Split(text string, maxLen int) []string {
	if maxLen < 1 {
		maxLen = DefaultMaxLen
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}

	var segments []string
	n := len(runes)
	start := 0
	for start < n {
		for start < n && unicode.IsSpace(runes[start]) {
			start++
		}
		if start >= n {
			break
		}

		end := min(start+maxLen, n)
		if end < n && !unicode.IsSpace(runes[end]) {
			if brk := lastSpace(runes, start, end); brk > start {
				end = brk
			}
		}

		if seg := strings.TrimSpace(string(runes[start:end])); seg != "" {
			segments = append(segments, seg)
		}
		start = end
	}
	return segments
}

// Oversized reports whether text contains a word longer than maxLen, i.e.
// whether Split will have to cut inside a word.
func Oversized(text string, maxLen int) bool {
	if maxLen < 1 {
		maxLen = DefaultMaxLen
	}
	for _, w := range strings.Fields(text) {
		if len([]rune(w)) > maxLen {
			return true
		}
	}
	return false
}

// lastSpace returns the index of the last whitespace rune in runes[start:end],
// or -1.
func lastSpace(runes []rune, start, end int) int {
	for i := end - 1; i >= start; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}
