package mcp

import (
	"fmt"
	"strings"
)

// FormatSearchResults formats note results as markdown.
func FormatSearchResults(query string, results []NoteResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No notes found for \"%s\"", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Notes matching \"%s\"\n\n", query)
	fmt.Fprintf(&sb, "Found %d note", len(results))
	if len(results) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range results {
		formatResult(&sb, i+1, r)
	}
	return sb.String()
}

func formatResult(sb *strings.Builder, num int, r NoteResult) {
	fmt.Fprintf(sb, "### %d. %s (score: %.2f)\n", num, r.Filename, r.Score)
	fmt.Fprintf(sb, "`%s`", r.Path)
	if r.Section != "" {
		fmt.Fprintf(sb, " in **%s**", r.Section)
	}
	sb.WriteString("\n\n")

	if r.Snippet != "" {
		fmt.Fprintf(sb, "> %s\n", r.Snippet)
		if r.MatchLine != nil {
			fmt.Fprintf(sb, "\n_line %d_\n", *r.MatchLine+1)
		}
		sb.WriteString("\n")
	}
}
