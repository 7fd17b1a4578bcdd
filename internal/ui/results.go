package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Aman-CERP/notesearch/internal/search"
)

// ResultsRenderer writes search results for the CLI.
type ResultsRenderer struct {
	out    io.Writer
	styles Styles
}

// NewResultsRenderer creates a results renderer.
func NewResultsRenderer(cfg Config) *ResultsRenderer {
	return &ResultsRenderer{
		out:    cfg.Output,
		styles: GetStyles(cfg.NoColor),
	}
}

type jsonResults struct {
	Query   string          `json:"query"`
	Count   int             `json:"count"`
	Results []search.Result `json:"results"`
}

// RenderJSON writes results as a single JSON document.
func (r *ResultsRenderer) RenderJSON(query string, results []search.Result) error {
	if results == nil {
		results = []search.Result{}
	}
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonResults{Query: query, Count: len(results), Results: results})
}

// Render writes results as text, one block per note.
func (r *ResultsRenderer) Render(query string, results []search.Result) error {
	if len(results) == 0 {
		_, err := fmt.Fprintf(r.out, "No notes found for %q\n", query)
		return err
	}

	noun := "notes"
	if len(results) == 1 {
		noun = "note"
	}
	if _, err := fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render(fmt.Sprintf("%d %s for %q", len(results), noun, query))); err != nil {
		return err
	}

	for i, res := range results {
		if err := r.renderOne(i+1, query, res); err != nil {
			return err
		}
	}
	return nil
}

func (r *ResultsRenderer) renderOne(n int, query string, res search.Result) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%d. %s", n, r.styles.Title.Render(res.Filename))
	if res.Section != "" {
		fmt.Fprintf(&sb, " %s", r.styles.Section.Render("["+res.Section+"]"))
	}
	fmt.Fprintf(&sb, " %s\n", r.styles.Score.Render(fmt.Sprintf("%.3f", res.Score)))

	loc := res.Path
	if res.MatchLine != nil {
		loc = fmt.Sprintf("%s:%d", res.Path, *res.MatchLine+1)
	}
	fmt.Fprintf(&sb, "   %s\n", r.styles.Path.Render(loc))

	if res.Snippet != "" {
		sb.WriteString(r.styles.Snippet.Render(r.highlight(res.Snippet, query)))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	_, err := io.WriteString(r.out, sb.String())
	return err
}

// highlight styles every case-insensitive occurrence of query in text.
// Matching is by byte offsets of the lowered text, so it only highlights
// when lowering preserves length.
func (r *ResultsRenderer) highlight(text, query string) string {
	lowText, lowQuery := strings.ToLower(text), strings.ToLower(query)
	if lowQuery == "" || len(lowText) != len(text) {
		return text
	}

	var sb strings.Builder
	pos := 0
	for {
		i := strings.Index(lowText[pos:], lowQuery)
		if i < 0 {
			break
		}
		start := pos + i
		end := start + len(lowQuery)
		sb.WriteString(text[pos:start])
		sb.WriteString(r.styles.Match.Render(text[start:end]))
		pos = end
	}
	sb.WriteString(text[pos:])
	return sb.String()
}
