package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Aman-CERP/notesearch/internal/search"
)

// StatusRenderer displays index status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(cfg Config) *StatusRenderer {
	return &StatusRenderer{
		out:    cfg.Output,
		styles: GetStyles(cfg.NoColor),
	}
}

// Render displays status to the terminal.
func (r *StatusRenderer) Render(st search.Stats) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Index Status: "+st.NotesRoot))

	_, _ = fmt.Fprintf(r.out, "  %s %d\n", r.styles.Label.Render("Notes:       "), st.Documents)
	_, _ = fmt.Fprintf(r.out, "  %s %s\n", r.styles.Label.Render("Backend:     "), st.Backend)
	_, _ = fmt.Fprintf(r.out, "  %s %s\n", r.styles.Label.Render("Index dir:   "), st.IndexDir)
	_, _ = fmt.Fprintf(r.out, "  %s %d\n", r.styles.Label.Render("Generation:  "), st.Generation)
	_, _ = fmt.Fprintln(r.out)

	lr := st.LastRebuild
	_, _ = fmt.Fprintln(r.out, "  Last rebuild:")
	_, _ = fmt.Fprintf(r.out, "    Indexed:  %d\n", lr.Indexed)
	if lr.Skipped > 0 {
		_, _ = fmt.Fprintf(r.out, "    Skipped:  %s\n", r.styles.Warning.Render(fmt.Sprintf("%d", lr.Skipped)))
	} else {
		_, _ = fmt.Fprintf(r.out, "    Skipped:  0\n")
	}
	_, _ = fmt.Fprintf(r.out, "    Removed:  %d\n", lr.Removed)
	_, _ = fmt.Fprintf(r.out, "    Took:     %s\n", FormatDuration(lr.Duration))
	_, _ = fmt.Fprintln(r.out)

	if q := st.Queries; q.TotalQueries > 0 {
		_, _ = fmt.Fprintln(r.out, "  Queries:")
		_, _ = fmt.Fprintf(r.out, "    Served:   %d (%d cached)\n", q.TotalQueries, q.CacheHits)
		_, _ = fmt.Fprintf(r.out, "    No hits:  %.1f%%\n", q.ZeroResultPercentage())
		_, _ = fmt.Fprintln(r.out)
	}

	if st.Watching {
		_, _ = fmt.Fprintf(r.out, "  Watcher: %s (%s)\n", r.styles.Success.Render("running"), st.WatchMode)
		_, _ = fmt.Fprintf(r.out, "    Applied: %d\n", st.EventsApplied)
		if st.EventsFailed > 0 {
			_, _ = fmt.Fprintf(r.out, "    Failed:  %s\n", r.styles.Error.Render(fmt.Sprintf("%d", st.EventsFailed)))
		}
	} else {
		_, _ = fmt.Fprintf(r.out, "  Watcher: %s\n", r.styles.Dim.Render("stopped"))
	}
	return nil
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(st search.Stats) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(st)
}

// FormatDuration rounds d for display.
func FormatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(100 * time.Millisecond).String()
	}
}
