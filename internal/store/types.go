// Package store provides the persistent full-text index behind notesearch.
//
// Two backends implement NoteIndex: bleve (scorch segments, the default) and
// SQLite FTS5 in WAL mode. Both key documents by absolute path and give
// readers point-in-time snapshots while a write is in flight.
package store

import (
	"context"

	"github.com/Aman-CERP/notesearch/internal/query"
)

// Field names stored for every note.
const (
	FieldPath     = "path"
	FieldFilename = query.FieldFilename
	FieldSection  = query.FieldSection
	FieldContent  = query.FieldContent
)

// Document is one indexed note.
type Document struct {
	// Path is the absolute file path and the unique key.
	Path string `json:"path"`
	// Filename is the base name without extension.
	Filename string `json:"filename"`
	// Section is the name of the immediate parent directory.
	Section string `json:"section"`
	Content string `json:"content"`
}

// Hit is a search match with its stored fields.
type Hit struct {
	Path     string
	Filename string
	Section  string
	Content  string
	Score    float64
}

// Batch is a set of mutations committed together. Within a batch deletes are
// applied before upserts.
type Batch struct {
	Upserts []*Document
	Deletes []string
}

// Len returns the number of mutations in the batch.
func (b *Batch) Len() int {
	return len(b.Upserts) + len(b.Deletes)
}

// NoteIndex is a persistent full-text index of notes.
//
// Implementations are safe for concurrent use. They do not serialize writers
// against each other; callers that need read-modify-write semantics must do
// so themselves. Search never blocks on Apply.
type NoteIndex interface {
	// Apply commits b durably. An upsert replaces any document with the
	// same path. Deleting an absent path is not an error.
	Apply(ctx context.Context, b *Batch) error

	// Search returns at most limit hits ordered by descending score, with
	// ties broken by ascending path.
	Search(ctx context.Context, q *query.Query, limit int) ([]*Hit, error)

	// Paths returns every indexed path in ascending order.
	Paths(ctx context.Context) ([]string, error)

	// Count returns the number of indexed documents.
	Count(ctx context.Context) (int, error)

	// Backend returns the backend name ("bleve" or "sqlite").
	Backend() string

	// Close releases the index. Further calls return ErrClosed.
	Close() error
}
