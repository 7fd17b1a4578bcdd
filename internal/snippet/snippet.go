// Package snippet extracts a short display excerpt around the first literal
// occurrence of a query in a note.
package snippet

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// Context is the number of characters kept on each side of the match.
	Context = 40
	// Ellipsis marks a window that does not reach the content boundary.
	Ellipsis = "..."
)

// Snippet is an excerpt with the 0-based line of the match.
type Snippet struct {
	Text string
	Line int
}

// Extract finds the first case-insensitive occurrence of query in content
// and returns the surrounding window. The match is literal: operators and
// quotes in query are not interpreted, so a result found through the index
// may have no snippet. ok is false when query does not occur.
func Extract(content, query string) (Snippet, bool) {
	if query == "" || content == "" {
		return Snippet{}, false
	}

	runes := []rune(content)
	start, n := find(runes, query)
	if start < 0 {
		return Snippet{}, false
	}

	line := 0
	for _, r := range runes[:start] {
		if r == '\n' {
			line++
		}
	}

	from := max(start-Context, 0)
	to := min(start+n+Context, len(runes))

	var sb strings.Builder
	if from > 0 {
		sb.WriteString(Ellipsis)
	}
	sb.WriteString(strings.TrimSpace(string(runes[from:to])))
	if to < len(runes) {
		sb.WriteString(Ellipsis)
	}

	return Snippet{Text: clean(sb.String()), Line: line}, true
}

// find returns the rune offset and rune length of the first case-insensitive
// occurrence of query in runes, or -1.
func find(runes []rune, query string) (int, int) {
	haystack := foldRunes(runes)
	needle := foldRunes([]rune(query))

	i := strings.Index(haystack, needle)
	if i < 0 {
		return -1, 0
	}
	return utf8.RuneCountInString(haystack[:i]), utf8.RuneCountInString(needle)
}

// foldRunes lowercases rune by rune so rune offsets survive the mapping.
func foldRunes(rs []rune) string {
	var sb strings.Builder
	sb.Grow(len(rs))
	for _, r := range rs {
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}

// clean turns line breaks into spaces, collapses space runs and trims.
func clean(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")

	var sb strings.Builder
	sb.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' {
			if prevSpace {
				continue
			}
			prevSpace = true
		} else {
			prevSpace = false
		}
		sb.WriteRune(r)
	}
	return strings.TrimSpace(sb.String())
}
