// Package sanitize cleans user-entered item names and tags before they are
// written to list files. List rows are name,tags,score with tags joined by
// semicolons, so commas anywhere and semicolons inside a tag would split the
// value on the next load.
package sanitize

import (
	"regexp"
	"strings"
)

// MaxNameLength is the maximum allowed length for item names.
const MaxNameLength = 120

// MaxTagLength is the maximum allowed length for a single tag.
const MaxTagLength = 40

// reSpaces matches runs of whitespace.
var reSpaces = regexp.MustCompile(`\s+`)

// ItemName strips control characters and commas, collapses whitespace and
// truncates to MaxNameLength.
func ItemName(input string) string {
	return clean(input, ",", MaxNameLength)
}

// Tag cleans a single tag: like ItemName but also drops semicolons and
// truncates to MaxTagLength.
func Tag(input string) string {
	return clean(input, ",;", MaxTagLength)
}

// Tags cleans every tag, dropping blanks and exact duplicates while keeping
// the original order.
func Tags(input []string) []string {
	seen := make(map[string]bool, len(input))
	out := make([]string, 0, len(input))
	for _, t := range input {
		t = Tag(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func clean(input, drop string, maxLen int) string {
	if input == "" {
		return ""
	}

	s := stripControlChars(input)
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(drop, r) {
			return ' '
		}
		return r
	}, s)
	s = reSpaces.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if runes := []rune(s); len(runes) > maxLen {
		s = strings.TrimSpace(string(runes[:maxLen]))
	}
	return s
}

// stripControlChars removes ASCII control characters (0x00-0x1F and 0x7F).
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
