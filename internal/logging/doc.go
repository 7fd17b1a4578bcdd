// Package logging configures structured slog output for notesearch.
//
// Logs are JSON lines written to a size-rotated file under ~/.notesearch/logs
// and, outside of MCP mode, mirrored to stderr.
package logging
