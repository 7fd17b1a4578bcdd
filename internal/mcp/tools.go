package mcp

import "github.com/Aman-CERP/notesearch/internal/search"

// Tool names.
const (
	ToolSearchNotes = "search_notes"
	ToolIndexStatus = "index_status"
)

// SearchNotesInput defines the input schema for the search_notes tool.
type SearchNotesInput struct {
	Query string `json:"query" jsonschema:"full-text query; +term requires, -term excludes, \"quoted phrase\", field:term on filename, section or content"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 20"`
}

// SearchNotesOutput defines the output schema for the search_notes tool.
type SearchNotesOutput struct {
	Query   string       `json:"query" jsonschema:"the query as executed"`
	Results []NoteResult `json:"results" jsonschema:"matching notes, best first"`
}

// NoteResult is a single matching note.
type NoteResult struct {
	Path      string  `json:"path" jsonschema:"absolute path of the note"`
	Filename  string  `json:"filename" jsonschema:"file name without extension"`
	Section   string  `json:"section" jsonschema:"name of the folder containing the note"`
	Snippet   string  `json:"snippet,omitempty" jsonschema:"text around the first literal match of the query"`
	MatchLine *int    `json:"match_line,omitempty" jsonschema:"0-based line of the snippet match"`
	Score     float64 `json:"score" jsonschema:"relevance score, higher is better"`
}

// IndexStatusInput defines the input schema for the index_status tool (no parameters).
type IndexStatusInput struct{}

// IndexStatusOutput defines the output schema for the index_status tool.
type IndexStatusOutput struct {
	Documents     int    `json:"documents" jsonschema:"number of indexed notes"`
	Backend       string `json:"backend" jsonschema:"index backend: bleve or sqlite"`
	NotesRoot     string `json:"notes_root" jsonschema:"directory being indexed"`
	IndexDir      string `json:"index_dir" jsonschema:"directory holding the index"`
	Watching      bool   `json:"watching" jsonschema:"true when changes are applied live"`
	WatchMode     string `json:"watch_mode,omitempty" jsonschema:"fsnotify or poll"`
	LastIndexed   int    `json:"last_rebuild_indexed" jsonschema:"notes indexed by the last full rebuild"`
	LastSkipped   int    `json:"last_rebuild_skipped" jsonschema:"notes skipped by the last full rebuild"`
	EventsApplied uint64 `json:"events_applied" jsonschema:"file changes applied since start"`
	EventsFailed  uint64 `json:"events_failed" jsonschema:"file changes that failed to apply"`
	QueriesServed int64  `json:"queries_served" jsonschema:"searches answered since start"`
	ZeroResults   int64  `json:"zero_result_queries" jsonschema:"searches that found nothing"`
}

// ToNoteResult converts a service result to the tool output format.
func ToNoteResult(r search.Result) NoteResult {
	return NoteResult{
		Path:      r.Path,
		Filename:  r.Filename,
		Section:   r.Section,
		Snippet:   r.Snippet,
		MatchLine: r.MatchLine,
		Score:     r.Score,
	}
}

// ToIndexStatus converts service stats to the tool output format.
func ToIndexStatus(st search.Stats) *IndexStatusOutput {
	return &IndexStatusOutput{
		Documents:     st.Documents,
		Backend:       st.Backend,
		NotesRoot:     st.NotesRoot,
		IndexDir:      st.IndexDir,
		Watching:      st.Watching,
		WatchMode:     st.WatchMode,
		LastIndexed:   st.LastRebuild.Indexed,
		LastSkipped:   st.LastRebuild.Skipped,
		EventsApplied: st.EventsApplied,
		EventsFailed:  st.EventsFailed,
		QueriesServed: st.Queries.TotalQueries,
		ZeroResults:   st.Queries.ZeroResultCount,
	}
}
