// Package index owns the note index: it opens the backend under an
// exclusive directory lock, serializes every mutation and runs queries
// against the backend's read snapshots.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	nserrors "github.com/Aman-CERP/notesearch/internal/errors"
	"github.com/Aman-CERP/notesearch/internal/query"
	"github.com/Aman-CERP/notesearch/internal/store"
	"github.com/Aman-CERP/notesearch/internal/walker"
)

// Config configures an Engine.
type Config struct {
	// Dir is the index directory. Empty keeps the index in memory and takes
	// no lock.
	Dir string
	// Backend is store.BackendBleve (default) or store.BackendSQLite.
	Backend string
	// Filter selects the notes a rebuild indexes.
	Filter *walker.Filter
	// Workers is the number of concurrent file readers during rebuild.
	Workers int
	// BatchSize is the number of documents per rebuild commit.
	BatchSize int
	// MaxFileSize skips larger notes; 0 means DefaultMaxFileSize.
	MaxFileSize int64
	// Reset discards existing index data, corrupt or not, before opening.
	Reset bool
}

func (c *Config) withDefaults() {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 256
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
}

// RebuildStats summarizes a full rebuild.
type RebuildStats struct {
	Indexed  int           `json:"indexed"`
	Skipped  int           `json:"skipped"`
	Removed  int           `json:"removed"`
	Duration time.Duration `json:"duration"`
}

// Engine is the single writer for one index directory.
//
// Rebuild, Upsert, Remove and RemoveTree are linearized by writeMu. Search
// and Count never take it.
type Engine struct {
	cfg     Config
	idx     store.NoteIndex
	lock    *dirLock
	writeMu sync.Mutex

	// generation advances after every committed mutation.
	generation atomic.Uint64
	closed     atomic.Bool
}

// Open opens or creates the index described by cfg. Failures to create the
// directory, take its lock or open the backend are IndexUnavailable,
// including existing data that is corrupt (store.ErrCorrupt). Set
// Config.Reset to start over from an empty index instead.
func Open(cfg Config) (*Engine, error) {
	cfg.withDefaults()
	if cfg.Filter == nil {
		return nil, nserrors.ValidationError("index engine requires a walker filter", nil)
	}

	e := &Engine{cfg: cfg}
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, nserrors.IndexUnavailable(cfg.Dir, err)
		}
		e.lock = newDirLock(cfg.Dir)
		if err := e.lock.tryLock(); err != nil {
			return nil, nserrors.IndexUnavailable(cfg.Dir, err)
		}
	}

	if cfg.Reset {
		if err := store.Reset(cfg.Dir, cfg.Backend); err != nil {
			if e.lock != nil {
				_ = e.lock.unlock()
			}
			return nil, nserrors.IndexUnavailable(cfg.Dir, err)
		}
		slog.Info("index_reset", slog.String("dir", cfg.Dir), slog.String("backend", cfg.Backend))
	}

	idx, err := store.Open(cfg.Dir, cfg.Backend)
	if err != nil {
		if e.lock != nil {
			_ = e.lock.unlock()
		}
		nerr := nserrors.IndexUnavailable(cfg.Dir, err)
		if errors.Is(err, store.ErrCorrupt) {
			nerr = nerr.WithSuggestion("Run 'notesearch index --force' to discard the index and rebuild it")
		}
		return nil, nerr
	}
	e.idx = idx

	slog.Info("index_opened",
		slog.String("dir", cfg.Dir),
		slog.String("backend", idx.Backend()))
	return e, nil
}

// Backend returns the backend name.
func (e *Engine) Backend() string { return e.idx.Backend() }

// Dir returns the index directory ("" for in-memory).
func (e *Engine) Dir() string { return e.cfg.Dir }

// Root returns the notes root the engine rebuilds from.
func (e *Engine) Root() string { return e.cfg.Filter.Root() }

// Filter returns the filter deciding which notes are indexable.
func (e *Engine) Filter() *walker.Filter { return e.cfg.Filter }

// Generation returns a counter that changes whenever committed content may
// have changed. Cached results keyed by it are safe to reuse.
func (e *Engine) Generation() uint64 { return e.generation.Load() }

func (e *Engine) commit(ctx context.Context, op string, b *store.Batch) error {
	if err := e.idx.Apply(ctx, b); err != nil {
		if errors.Is(err, store.ErrClosed) {
			return nserrors.IndexUnavailable(e.cfg.Dir, err)
		}
		return nserrors.CommitFailed(op, err)
	}
	e.generation.Add(1)
	return nil
}

// Rebuild makes the index hold exactly one document per indexable note
// under the root. Notes that cannot be read are skipped and counted.
//
// Documents are replaced in place and stale ones deleted last, so readers
// never observe an empty index mid-rebuild.
func (e *Engine) Rebuild(ctx context.Context) (RebuildStats, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	var stats RebuildStats
	start := time.Now()

	var paths []string
	err := e.cfg.Filter.Walk(ctx, func(p string) error {
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("failed to walk notes: %w", err)
	}

	rctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan string)
	docs := make(chan *store.Document, e.cfg.Workers*2)
	var skipped atomic.Int64

	g, gctx := errgroup.WithContext(rctx)
	g.Go(func() error {
		defer close(jobs)
		for _, p := range paths {
			select {
			case jobs <- p:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for i := 0; i < e.cfg.Workers; i++ {
		g.Go(func() error {
			for p := range jobs {
				doc, err := loadDocument(p, e.cfg.MaxFileSize)
				if err != nil {
					skipped.Add(1)
					slog.Warn("rebuild_skip", nserrors.LogAttrs(err)...)
					continue
				}
				select {
				case docs <- doc:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	var readErr error
	go func() {
		readErr = g.Wait()
		close(docs)
	}()

	seen := make(map[string]bool, len(paths))
	batch := &store.Batch{}
	var commitErr error
	for doc := range docs {
		if commitErr != nil {
			continue
		}
		seen[doc.Path] = true
		batch.Upserts = append(batch.Upserts, doc)
		if len(batch.Upserts) >= e.cfg.BatchSize {
			if commitErr = e.commit(ctx, "rebuild", batch); commitErr != nil {
				cancel()
				continue
			}
			stats.Indexed += len(batch.Upserts)
			batch = &store.Batch{}
		}
	}
	if commitErr != nil {
		return stats, commitErr
	}
	if readErr != nil {
		return stats, readErr
	}

	existing, err := e.idx.Paths(ctx)
	if err != nil {
		return stats, nserrors.CommitFailed("rebuild", err)
	}
	for _, p := range existing {
		if !seen[p] {
			batch.Deletes = append(batch.Deletes, p)
		}
	}
	if err := e.commit(ctx, "rebuild", batch); err != nil {
		return stats, err
	}

	stats.Indexed += len(batch.Upserts)
	stats.Removed = len(batch.Deletes)
	stats.Skipped = int(skipped.Load())
	stats.Duration = time.Since(start)

	slog.Info("rebuild_complete",
		slog.String("root", e.Root()),
		slog.Int("indexed", stats.Indexed),
		slog.Int("skipped", stats.Skipped),
		slog.Int("removed", stats.Removed),
		slog.Duration("duration", stats.Duration))
	return stats, nil
}

// Upsert reads path and replaces its document. If the file cannot be read
// the previous document, if any, stays and DocumentUnreadable is returned.
func (e *Engine) Upsert(ctx context.Context, path string) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return nserrors.New(nserrors.ErrCodeInvalidPath, "invalid path", err)
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	doc, err := loadDocument(path, e.cfg.MaxFileSize)
	if err != nil {
		return err
	}
	if err := e.commit(ctx, "upsert", &store.Batch{Upserts: []*store.Document{doc}}); err != nil {
		return err
	}
	slog.Debug("note_indexed", slog.String("path", path))
	return nil
}

// Remove deletes the document for path. Removing an unknown path succeeds.
func (e *Engine) Remove(ctx context.Context, path string) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return nserrors.New(nserrors.ErrCodeInvalidPath, "invalid path", err)
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if err := e.commit(ctx, "remove", &store.Batch{Deletes: []string{path}}); err != nil {
		return err
	}
	slog.Debug("note_removed", slog.String("path", path))
	return nil
}

// RemoveTree deletes every document below dir and returns how many were
// removed. It handles directories that were deleted or renamed away.
func (e *Engine) RemoveTree(ctx context.Context, dir string) (int, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return 0, nserrors.New(nserrors.ErrCodeInvalidPath, "invalid path", err)
	}
	prefix := strings.TrimSuffix(dir, string(filepath.Separator)) + string(filepath.Separator)

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	all, err := e.idx.Paths(ctx)
	if err != nil {
		return 0, nserrors.CommitFailed("remove_tree", err)
	}
	b := &store.Batch{}
	for _, p := range all {
		if strings.HasPrefix(p, prefix) {
			b.Deletes = append(b.Deletes, p)
		}
	}
	if len(b.Deletes) == 0 {
		return 0, nil
	}
	if err := e.commit(ctx, "remove_tree", b); err != nil {
		return 0, err
	}
	slog.Debug("tree_removed", slog.String("dir", dir), slog.Int("count", len(b.Deletes)))
	return len(b.Deletes), nil
}

// Search parses raw and returns up to limit hits from the current snapshot.
func (e *Engine) Search(ctx context.Context, raw string, limit int) ([]*store.Hit, error) {
	q, err := query.Parse(raw)
	if err != nil {
		return nil, err
	}

	hits, err := e.idx.Search(ctx, q, limit)
	if err != nil {
		if errors.Is(err, store.ErrClosed) {
			return nil, nserrors.IndexUnavailable(e.cfg.Dir, err)
		}
		return nil, nserrors.New(nserrors.ErrCodeSearchFailed, "search failed", err)
	}
	return hits, nil
}

// Count returns the number of indexed notes.
func (e *Engine) Count(ctx context.Context) (int, error) {
	return e.idx.Count(ctx)
}

// Close closes the backend and releases the directory lock. It waits for an
// in-flight mutation to finish.
func (e *Engine) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	err := e.idx.Close()
	if e.lock != nil {
		if uerr := e.lock.unlock(); uerr != nil && err == nil {
			err = uerr
		}
	}
	return err
}
