package snippet

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_ShortContent(t *testing.T) {
	// Given: content shorter than the window
	// When: extracting for a word on the first line
	s, ok := Extract("hello world", "hello")

	// Then: the whole content is returned without ellipses
	require.True(t, ok)
	assert.Equal(t, "hello world", s.Text)
	assert.Equal(t, 0, s.Line)
}

func TestExtract_CaseInsensitive(t *testing.T) {
	s, ok := Extract("Say HELLO to everyone", "hello")
	require.True(t, ok)
	assert.Equal(t, "Say HELLO to everyone", s.Text)

	s, ok = Extract("say hello", "HeLLo")
	require.True(t, ok)
	assert.Equal(t, "say hello", s.Text)
}

func TestExtract_MatchLineCountsNewlines(t *testing.T) {
	// Given: the match on the third line
	content := "# Title\n\nthe needle is here"

	// When: extracting
	s, ok := Extract(content, "needle")

	// Then: the line is 0-based and newlines become single spaces
	require.True(t, ok)
	assert.Equal(t, 2, s.Line)
	assert.Equal(t, "# Title the needle is here", s.Text)
}

func TestExtract_WindowWithEllipses(t *testing.T) {
	// Given: the match far from both ends
	content := strings.Repeat("a", 100) + "needle" + strings.Repeat("b", 100)

	// When: extracting
	s, ok := Extract(content, "needle")

	// Then: 40 characters on each side, with both ellipses
	require.True(t, ok)
	want := "..." + strings.Repeat("a", 40) + "needle" + strings.Repeat("b", 40) + "..."
	assert.Equal(t, want, s.Text)
}

func TestExtract_EllipsisOnlyWhereTruncated(t *testing.T) {
	head := "needle" + strings.Repeat("b", 100)
	s, ok := Extract(head, "needle")
	require.True(t, ok)
	assert.False(t, strings.HasPrefix(s.Text, Ellipsis))
	assert.True(t, strings.HasSuffix(s.Text, Ellipsis))

	tail := strings.Repeat("a", 100) + "needle"
	s, ok = Extract(tail, "needle")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(s.Text, Ellipsis))
	assert.False(t, strings.HasSuffix(s.Text, Ellipsis))
}

func TestExtract_MultiByteCharactersAreNotSplit(t *testing.T) {
	// Given: 60 multi-byte characters around the match
	content := strings.Repeat("é", 60) + "clé" + strings.Repeat("日", 60)

	// When: extracting
	s, ok := Extract(content, "CLÉ")

	// Then: the window counts characters, not bytes
	require.True(t, ok)
	assert.True(t, utf8.ValidString(s.Text))
	want := "..." + strings.Repeat("é", 40) + "clé" + strings.Repeat("日", 40) + "..."
	assert.Equal(t, want, s.Text)
}

func TestExtract_CollapsesWhitespace(t *testing.T) {
	content := "first  line\r\n\r\nsecond    line with match\n"
	s, ok := Extract(content, "match")
	require.True(t, ok)
	assert.Equal(t, "first line second line with match", s.Text)
	assert.Equal(t, 2, s.Line)
}

func TestExtract_NoMatch(t *testing.T) {
	// Given: a query parsed as an expression that is not a literal substring
	_, ok := Extract("hello brave world", `"hello world"`)
	assert.False(t, ok)

	_, ok = Extract("hello", "")
	assert.False(t, ok)

	_, ok = Extract("", "hello")
	assert.False(t, ok)
}

func TestExtract_FirstOccurrenceWins(t *testing.T) {
	s, ok := Extract("one\ntwo match\nthree match", "match")
	require.True(t, ok)
	assert.Equal(t, 1, s.Line)
}
