package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	bquery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/Aman-CERP/notesearch/internal/query"
)

// NoteAnalyzerName is the analyzer used for every text field: Unicode word
// segmentation plus lowercasing, no stemming and no stop words.
const NoteAnalyzerName = "note_text"

// BleveIndex implements NoteIndex on bleve's scorch engine.
//
// Scorch publishes an immutable, reference-counted snapshot per batch, so a
// search keeps reading the segments it started with while Apply commits.
type BleveIndex struct {
	// mu guards the handle lifetime only. Apply and Search both hold the
	// read side; Close takes the write side.
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

var _ NoteIndex = (*BleveIndex)(nil)

// NewBleveIndex opens the bleve index at path, creating it if needed.
// An existing index that cannot be read fails with ErrCorrupt and is left
// untouched. An empty path creates an in-memory index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im, err := newNoteMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(im)
	} else {
		idx, err = openOrCreateBleve(path, im)
	}
	if err != nil {
		return nil, err
	}

	return &BleveIndex{index: idx, path: path}, nil
}

func openOrCreateBleve(path string, im mapping.IndexMapping) (bleve.Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	if verr := validateBleveIntegrity(path); verr != nil {
		slog.Warn("bleve_index_corrupted",
			slog.String("path", path),
			slog.String("error", verr.Error()))
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, verr)
	}

	idx, err := bleve.Open(path)
	switch {
	case err == nil:
		return idx, nil
	case errors.Is(err, bleve.ErrorIndexPathDoesNotExist):
		return newBleveAt(path, im)
	case isBleveCorruption(err):
		slog.Warn("bleve_index_open_failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	default:
		return nil, fmt.Errorf("failed to open index at %s: %w", path, err)
	}
}

func newBleveAt(path string, im mapping.IndexMapping) (bleve.Index, error) {
	idx, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create index at %s: %w", path, err)
	}
	slog.Info("bleve_index_created", slog.String("path", path))
	return idx, nil
}

// validateBleveIntegrity reports a damaged index_meta.json. A missing index
// directory is valid: it will be created.
func validateBleveIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(filepath.Join(path, "index_meta.json"))
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing")
	}
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("index_meta.json is empty")
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

func isBleveCorruption(err error) bool {
	if errors.Is(err, bleve.ErrorIndexMetaCorrupt) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "unexpected end of JSON") ||
		strings.Contains(msg, "error parsing mapping JSON") ||
		strings.Contains(msg, "failed to load segment") ||
		strings.Contains(msg, "error opening bolt")
}

// newNoteMapping maps path as an exact keyword and the three text fields
// through NoteAnalyzerName. Term vectors are kept for phrase queries.
func newNoteMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	err := im.AddCustomAnalyzer(NoteAnalyzerName, map[string]any{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add analyzer: %w", err)
	}
	im.DefaultAnalyzer = NoteAnalyzerName

	textField := func() *mapping.FieldMapping {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = NoteAnalyzerName
		fm.Store = true
		fm.IncludeTermVectors = true
		return fm
	}

	pathField := bleve.NewKeywordFieldMapping()
	pathField.IncludeInAll = false

	doc := bleve.NewDocumentMapping()
	doc.Dynamic = false
	doc.AddFieldMappingsAt(FieldPath, pathField)
	doc.AddFieldMappingsAt(FieldFilename, textField())
	doc.AddFieldMappingsAt(FieldSection, textField())
	doc.AddFieldMappingsAt(FieldContent, textField())
	im.DefaultMapping = doc

	return im, nil
}

// Apply commits b as a single bleve batch. Deletes are queued before
// upserts, so an upsert of a deleted path wins.
func (b *BleveIndex) Apply(ctx context.Context, batch *Batch) error {
	if batch == nil || batch.Len() == 0 {
		return nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	bb := b.index.NewBatch()
	for _, p := range batch.Deletes {
		bb.Delete(p)
	}
	for _, doc := range batch.Upserts {
		if err := bb.Index(doc.Path, doc); err != nil {
			return fmt.Errorf("failed to index document %s: %w", doc.Path, err)
		}
	}

	if err := b.index.Batch(bb); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// Search runs q against the current snapshot.
func (b *BleveIndex) Search(ctx context.Context, q *query.Query, limit int) ([]*Hit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}
	if q == nil || limit <= 0 {
		return []*Hit{}, nil
	}

	req := bleve.NewSearchRequestOptions(toBleveQuery(q), limit, 0, false)
	req.Fields = []string{FieldFilename, FieldSection, FieldContent}
	req.SortBy([]string{"-_score", "_id"})

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]*Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, &Hit{
			Path:     h.ID,
			Filename: stringField(h.Fields, FieldFilename),
			Section:  stringField(h.Fields, FieldSection),
			Content:  stringField(h.Fields, FieldContent),
			Score:    h.Score,
		})
	}
	return hits, nil
}

func stringField(fields map[string]any, name string) string {
	if s, ok := fields[name].(string); ok {
		return s
	}
	return ""
}

// toBleveQuery maps each clause to a disjunction over its fields and
// combines clauses in a boolean query.
func toBleveQuery(q *query.Query) bquery.Query {
	bq := bleve.NewBooleanQuery()
	for _, c := range q.Clauses {
		sub := clauseQuery(c)
		switch c.Occur {
		case query.Must:
			bq.AddMust(sub)
		case query.MustNot:
			bq.AddMustNot(sub)
		default:
			bq.AddShould(sub)
		}
	}
	return bq
}

func clauseQuery(c query.Clause) bquery.Query {
	fields := c.Fields()
	subs := make([]bquery.Query, 0, len(fields))
	for _, f := range fields {
		if c.Phrase {
			pq := bleve.NewMatchPhraseQuery(c.Text)
			pq.SetField(f)
			subs = append(subs, pq)
			continue
		}
		mq := bleve.NewMatchQuery(c.Text)
		mq.SetField(f)
		subs = append(subs, mq)
	}
	if len(subs) == 1 {
		return subs[0]
	}
	return bleve.NewDisjunctionQuery(subs...)
}

// Paths returns every document ID.
func (b *BleveIndex) Paths(ctx context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}

	count, err := b.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	if count == 0 {
		return []string{}, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), int(count), 0, false)
	req.Fields = []string{}
	req.SortBy([]string{"_id"})

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	paths := make([]string, len(res.Hits))
	for i, h := range res.Hits {
		paths[i] = h.ID
	}
	return paths, nil
}

// Count returns the document count of the current snapshot.
func (b *BleveIndex) Count(_ context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0, ErrClosed
	}
	n, err := b.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return int(n), nil
}

// Backend returns "bleve".
func (b *BleveIndex) Backend() string { return BackendBleve }

// Close closes the index. It waits for in-flight searches and batches.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}
