// Package search is the entry point for callers: it owns the index engine,
// keeps it in sync with the notes tree through the watcher, and turns index
// hits into results with snippets.
package search

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/notesearch/internal/config"
	nserrors "github.com/Aman-CERP/notesearch/internal/errors"
	"github.com/Aman-CERP/notesearch/internal/index"
	"github.com/Aman-CERP/notesearch/internal/snippet"
	"github.com/Aman-CERP/notesearch/internal/store"
	"github.com/Aman-CERP/notesearch/internal/telemetry"
	"github.com/Aman-CERP/notesearch/internal/walker"
	"github.com/Aman-CERP/notesearch/internal/watcher"
)

// Result is one search hit as returned to callers.
type Result struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	Section  string `json:"section"`
	// Snippet is empty when the literal query text does not occur in the
	// note, which can happen for matches found through tokenization.
	Snippet string `json:"snippet"`
	// MatchLine is the 0-based line of the snippet match, nil without one.
	MatchLine *int    `json:"match_line"`
	Score     float64 `json:"score"`
}

// Stats describes the service state.
type Stats struct {
	Documents   int                `json:"documents"`
	Backend     string             `json:"backend"`
	IndexDir    string             `json:"index_dir"`
	NotesRoot   string             `json:"notes_root"`
	Generation  uint64             `json:"generation"`
	LastRebuild index.RebuildStats `json:"last_rebuild"`
	Watching    bool               `json:"watching"`
	WatchMode   string             `json:"watch_mode,omitempty"`
	// EventsApplied and EventsFailed count dispatched watcher events.
	EventsApplied uint64 `json:"events_applied"`
	EventsFailed  uint64 `json:"events_failed"`
	// Queries aggregates searches that reached the index.
	Queries telemetry.Snapshot `json:"queries"`
}

type cacheKey struct {
	generation uint64
	query      string
	limit      int
}

// Option configures New.
type Option func(*options)

type options struct {
	skipRebuild bool
	reset       bool
}

// WithoutRebuild opens the existing index as is instead of rebuilding it
// from the notes tree.
func WithoutRebuild() Option {
	return func(o *options) { o.skipRebuild = true }
}

// WithReset discards the existing index data before opening it. It is the
// way to recover from a corrupt index.
func WithReset() Option {
	return func(o *options) { o.reset = true }
}

// Service coordinates the index engine, the watcher and queries. All
// methods are safe for concurrent use.
type Service struct {
	cfg    config.Config
	engine *index.Engine
	// cache maps (generation, query, limit) to results. Keys from older
	// generations are never looked up again and age out.
	cache   *lru.Cache[cacheKey, []Result]
	metrics *telemetry.QueryMetrics

	mu          sync.Mutex
	watcher     *watcher.Watcher
	watchDone   chan struct{}
	lastRebuild index.RebuildStats
	closed      bool

	applied atomic.Uint64
	failed  atomic.Uint64
}

// New opens the index for cfg and, unless WithoutRebuild is given, rebuilds
// it from the notes tree. An index that cannot be opened is fatal.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, nserrors.ValidationError("config is required", nil)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c := *cfg
	c.Extensions = append([]string(nil), cfg.Extensions...)
	if err := c.Normalize(); err != nil {
		return nil, nserrors.ConfigError("invalid configuration", err)
	}
	if err := c.Validate(); err != nil {
		return nil, nserrors.ConfigError("invalid configuration", err)
	}

	info, err := os.Stat(c.NotesRoot)
	if err != nil || !info.IsDir() {
		if err == nil {
			err = errors.New("not a directory")
		}
		return nil, nserrors.New(nserrors.ErrCodeNotesRootMissing,
			fmt.Sprintf("notes root %s is not a readable directory", c.NotesRoot), err).
			WithSuggestion("Set notes_root in the config file or pass --notes")
	}

	filter, err := walker.NewFilter(c.NotesRoot, walker.Options{
		Extensions: c.Extensions,
		Exclude:    c.Exclude,
	})
	if err != nil {
		return nil, nserrors.ConfigError("invalid exclude pattern", err)
	}

	engine, err := index.Open(index.Config{
		Dir:         c.IndexDir,
		Backend:     c.Backend,
		Filter:      filter,
		Workers:     c.Index.Workers,
		BatchSize:   c.Index.BatchSize,
		MaxFileSize: c.Index.MaxFileSize,
		Reset:       o.reset,
	})
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:     c,
		engine:  engine,
		metrics: telemetry.NewQueryMetrics(telemetry.DefaultConfig()),
	}
	if c.Search.CacheSize > 0 {
		cache, err := lru.New[cacheKey, []Result](c.Search.CacheSize)
		if err != nil {
			_ = engine.Close()
			return nil, nserrors.InternalError("create result cache", err)
		}
		s.cache = cache
	}

	if !o.skipRebuild {
		if _, err := s.Rebuild(ctx); err != nil {
			_ = engine.Close()
			return nil, err
		}
	}
	return s, nil
}

// Rebuild re-indexes the whole notes tree.
func (s *Service) Rebuild(ctx context.Context) (index.RebuildStats, error) {
	stats, err := s.engine.Rebuild(ctx)
	if err != nil {
		return stats, err
	}
	s.mu.Lock()
	s.lastRebuild = stats
	s.mu.Unlock()
	return stats, nil
}

// Search runs query and returns up to limit results with snippets.
//
// Queries shorter than the configured minimum length, counted in characters
// after trimming, return an empty slice without being parsed. A limit of 0
// means the configured default; others are clamped to [1, max_limit].
func (s *Service) Search(ctx context.Context, q string, limit int) ([]Result, error) {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < s.cfg.Search.MinQueryLength {
		return []Result{}, nil
	}
	limit = s.clampLimit(limit)
	start := time.Now()

	key := cacheKey{generation: s.engine.Generation(), query: q, limit: limit}
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			s.metrics.Record(telemetry.QueryEvent{
				Query:       q,
				ResultCount: len(cached),
				Latency:     time.Since(start),
				Cached:      true,
			})
			return copyResults(cached), nil
		}
	}

	hits, err := s.engine.Search(ctx, q, limit)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		r := Result{
			Path:     h.Path,
			Filename: h.Filename,
			Section:  h.Section,
			Score:    h.Score,
		}
		if snip, ok := snippet.Extract(h.Content, q); ok {
			line := snip.Line
			r.Snippet = snip.Text
			r.MatchLine = &line
		}
		results = append(results, r)
	}

	if s.cache != nil {
		s.cache.Add(key, copyResults(results))
	}
	s.metrics.Record(telemetry.QueryEvent{
		Query:       q,
		ResultCount: len(results),
		Latency:     time.Since(start),
	})
	slog.Debug("search_complete",
		slog.String("query", q),
		slog.Int("limit", limit),
		slog.Int("results", len(results)))
	return results, nil
}

// copyResults copies rs deeply enough that callers cannot reach the cached
// slice or its MatchLine values.
func copyResults(rs []Result) []Result {
	out := make([]Result, len(rs))
	for i, r := range rs {
		if r.MatchLine != nil {
			line := *r.MatchLine
			r.MatchLine = &line
		}
		out[i] = r
	}
	return out
}

func (s *Service) clampLimit(limit int) int {
	switch {
	case limit == 0:
		limit = s.cfg.Search.DefaultLimit
	case limit < 1:
		limit = 1
	}
	if limit > s.cfg.Search.MaxLimit {
		limit = s.cfg.Search.MaxLimit
	}
	return limit
}

// IndexFile indexes or re-indexes one note. Paths outside the notes root,
// hidden or excluded paths and other extensions are rejected.
func (s *Service) IndexFile(ctx context.Context, path string) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return nserrors.New(nserrors.ErrCodeInvalidPath, "invalid path", err)
	}
	path = s.engine.Filter().Canonical(path)
	if !s.engine.Filter().Indexable(path) {
		return nserrors.New(nserrors.ErrCodeInvalidPath,
			fmt.Sprintf("%s is not an indexable note under %s", path, s.engine.Root()), nil)
	}
	return s.engine.Upsert(ctx, path)
}

// RemoveFile removes one note from the index. Unknown paths are a no-op.
func (s *Service) RemoveFile(ctx context.Context, path string) error {
	if abs, err := filepath.Abs(path); err == nil {
		path = s.engine.Filter().Canonical(abs)
	}
	return s.engine.Remove(ctx, path)
}

// StartWatcher subscribes to changes under the notes root and applies them
// on a background goroutine until ctx is cancelled or Close is called.
// It can be called once per Service.
func (s *Service) StartWatcher(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nserrors.IndexUnavailable(s.cfg.IndexDir, store.ErrClosed)
	}
	if s.watcher != nil {
		return nserrors.InternalError("watcher already started", nil)
	}

	debounce, _ := s.cfg.DebounceDuration()
	poll, _ := s.cfg.PollIntervalDuration()
	w, err := watcher.New(watcher.Options{
		Mode:            s.cfg.Watch.Mode,
		DebounceWindow:  debounce,
		PollInterval:    poll,
		EventBufferSize: s.cfg.Watch.EventBuffer,
		Filter:          s.engine.Filter(),
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx, s.engine.Root()); err != nil {
		_ = w.Stop()
		return err
	}

	s.watcher = w
	s.watchDone = make(chan struct{})
	go s.dispatch(ctx, w, s.watchDone)
	return nil
}

// dispatch applies debounced batches until the watcher closes its channels.
func (s *Service) dispatch(ctx context.Context, w *watcher.Watcher, done chan struct{}) {
	defer close(done)

	events, errs := w.Events(), w.Errors()
	for events != nil || errs != nil {
		select {
		case batch, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			for _, ev := range batch {
				s.applyEvent(ctx, ev)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.handleWatchError(ctx, err)
		}
	}
	slog.Debug("watch_dispatch_stopped")
}

// applyEvent brings the index in line with the current state of ev.Path.
// Failures are logged and counted; they never stop the dispatch loop.
func (s *Service) applyEvent(ctx context.Context, ev watcher.FileEvent) {
	if err := s.syncPath(ctx, ev); err != nil {
		s.failed.Add(1)
		attrs := append([]any{
			"path", ev.Path,
			"op", ev.Operation.String(),
		}, nserrors.LogAttrs(err)...)
		slog.Warn("watch_event_failed", attrs...)
		return
	}
	s.applied.Add(1)
}

func (s *Service) syncPath(ctx context.Context, ev watcher.FileEvent) error {
	filter := s.engine.Filter()

	info, err := os.Lstat(ev.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if ev.IsDir {
			n, err := s.engine.RemoveTree(ctx, ev.Path)
			if err == nil && n > 0 {
				slog.Info("watch_tree_removed", slog.String("dir", ev.Path), slog.Int("count", n))
			}
			return err
		}
		if !filter.HasIndexableExt(ev.Path) {
			return nil
		}
		return s.engine.Remove(ctx, ev.Path)
	case err != nil:
		return nserrors.DocumentUnreadable(ev.Path, err)
	case info.IsDir():
		// Contents were reported individually when the directory appeared.
		return nil
	case !filter.Indexable(ev.Path):
		return nil
	case !info.Mode().IsRegular():
		// A note replaced by a symlink or device is no longer indexed.
		return s.engine.Remove(ctx, ev.Path)
	default:
		return s.engine.Upsert(ctx, ev.Path)
	}
}

func (s *Service) handleWatchError(ctx context.Context, err error) {
	if !errors.Is(err, watcher.ErrOverflow) {
		slog.Warn("watch_error", slog.String("error", err.Error()))
		return
	}
	slog.Warn("watch_overflow_rebuilding")
	if _, err := s.Rebuild(ctx); err != nil {
		slog.Error("watch_overflow_rebuild_failed", nserrors.LogAttrs(err)...)
	}
}

// Stats returns index and watcher counters.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	count, err := s.engine.Count(ctx)
	if err != nil {
		return Stats{}, nserrors.IndexUnavailable(s.cfg.IndexDir, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Documents:     count,
		Backend:       s.engine.Backend(),
		IndexDir:      s.cfg.IndexDir,
		NotesRoot:     s.engine.Root(),
		Generation:    s.engine.Generation(),
		LastRebuild:   s.lastRebuild,
		EventsApplied: s.applied.Load(),
		EventsFailed:  s.failed.Load(),
		Queries:       s.metrics.Snapshot(),
	}
	if s.watcher != nil && !s.closed && !isDone(s.watchDone) {
		st.Watching = true
		st.WatchMode = s.watcher.Mode()
	}
	return st, nil
}

// isDone reports whether ch has been closed.
func isDone(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// Config returns the normalized configuration the service runs with.
func (s *Service) Config() config.Config {
	return s.cfg
}

// Close stops the watcher, waits for in-flight events, closes the index and
// releases its lock. Safe to call more than once.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	w, done := s.watcher, s.watchDone
	s.mu.Unlock()

	if w != nil {
		if err := w.Stop(); err != nil {
			slog.Warn("watcher_stop_failed", slog.String("error", err.Error()))
		}
		<-done
	}
	return s.engine.Close()
}
