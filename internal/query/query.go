// Package query parses search strings into a backend-neutral form.
//
// Grammar, one clause per whitespace-separated token:
//
//	clause := [ "+" | "-" ] [ field ":" ] ( term | '"' phrase '"' )
//	field  := "filename" | "content" | "section"
//
// A clause without a field searches filename and content. Plain clauses are
// optional, "+" clauses are required and "-" clauses exclude documents.
package query

import (
	"strings"
	"unicode"

	nserrors "github.com/Aman-CERP/notesearch/internal/errors"
)

// Field names that can be targeted with "field:".
const (
	FieldFilename = "filename"
	FieldContent  = "content"
	FieldSection  = "section"
)

// DefaultFields are searched by clauses without a field prefix.
var DefaultFields = []string{FieldFilename, FieldContent}

var knownFields = map[string]bool{
	FieldFilename: true,
	FieldContent:  true,
	FieldSection:  true,
}

// Occur says how a clause affects matching.
type Occur int

const (
	// Should clauses contribute to the score; at least one must match when
	// the query has no Must clauses.
	Should Occur = iota
	// Must clauses are required.
	Must
	// MustNot clauses exclude matching documents.
	MustNot
)

func (o Occur) String() string {
	switch o {
	case Must:
		return "must"
	case MustNot:
		return "must_not"
	default:
		return "should"
	}
}

// Clause is a single term or phrase.
type Clause struct {
	Occur Occur
	// Field is empty for DefaultFields.
	Field  string
	Text   string
	Phrase bool
}

// Fields returns the fields the clause searches.
func (c Clause) Fields() []string {
	if c.Field == "" {
		return DefaultFields
	}
	return []string{c.Field}
}

// Query is a parsed search string.
type Query struct {
	Raw     string
	Clauses []Clause
}

// HasPositive reports whether any clause can produce matches.
func (q *Query) HasPositive() bool {
	for _, c := range q.Clauses {
		if c.Occur != MustNot {
			return true
		}
	}
	return false
}

// Parse parses raw into a Query. Malformed input returns an error matching
// errors.ErrQueryParse; Parse never panics and never yields a match-all query.
func Parse(raw string) (*Query, error) {
	p := parser{raw: raw, in: []rune(raw)}
	q := &Query{Raw: raw}

	for {
		p.skipSpace()
		if p.eof() {
			break
		}
		c, err := p.clause()
		if err != nil {
			return nil, err
		}
		q.Clauses = append(q.Clauses, c)
	}

	if len(q.Clauses) == 0 {
		return nil, nserrors.QueryParse(raw, "query is empty")
	}
	if !q.HasPositive() {
		return nil, nserrors.QueryParse(raw, "query has only excluded terms")
	}
	return q, nil
}

type parser struct {
	raw string
	in  []rune
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.in) }

func (p *parser) peek() rune { return p.in[p.pos] }

func (p *parser) skipSpace() {
	for !p.eof() && unicode.IsSpace(p.peek()) {
		p.pos++
	}
}

func (p *parser) atBoundary() bool {
	return p.eof() || unicode.IsSpace(p.peek())
}

func (p *parser) fail(reason string) error {
	return nserrors.QueryParse(p.raw, reason)
}

func (p *parser) clause() (Clause, error) {
	var c Clause

	switch p.peek() {
	case '+':
		c.Occur = Must
		p.pos++
	case '-':
		c.Occur = MustNot
		p.pos++
	}
	if c.Occur != Should && p.atBoundary() {
		return c, p.fail("operator without a term")
	}

	if field, ok := p.fieldPrefix(); ok {
		if !knownFields[field] {
			return c, p.fail("unknown field " + field + " (use filename, content or section)")
		}
		c.Field = field
		if p.atBoundary() {
			return c, p.fail("field " + field + " has no value")
		}
	}

	if p.peek() == '"' {
		text, err := p.phrase()
		if err != nil {
			return c, err
		}
		c.Text = text
		c.Phrase = true
		return c, nil
	}

	text, err := p.term()
	if err != nil {
		return c, err
	}
	c.Text = text
	return c, nil
}

// fieldPrefix consumes "name:" when name is made of letters or underscores.
// Anything else ("10:30", "a-b:c") is left for term() to read literally.
func (p *parser) fieldPrefix() (string, bool) {
	i := p.pos
	for i < len(p.in) && (unicode.IsLetter(p.in[i]) || p.in[i] == '_') {
		i++
	}
	if i == p.pos || i >= len(p.in) || p.in[i] != ':' {
		return "", false
	}
	name := strings.ToLower(string(p.in[p.pos:i]))
	p.pos = i + 1
	return name, true
}

func (p *parser) phrase() (string, error) {
	p.pos++ // opening quote
	start := p.pos
	for !p.eof() && p.peek() != '"' {
		p.pos++
	}
	if p.eof() {
		return "", p.fail("unbalanced quote")
	}
	text := strings.TrimSpace(string(p.in[start:p.pos]))
	p.pos++ // closing quote
	if text == "" {
		return "", p.fail("empty phrase")
	}
	if !p.atBoundary() {
		return "", p.fail("phrase must be followed by whitespace")
	}
	return text, nil
}

func (p *parser) term() (string, error) {
	start := p.pos
	for !p.atBoundary() {
		switch p.peek() {
		case '"':
			return "", p.fail("unbalanced quote")
		case '(', ')':
			return "", p.fail("grouping with parentheses is not supported")
		}
		p.pos++
	}
	return string(p.in[start:p.pos]), nil
}
