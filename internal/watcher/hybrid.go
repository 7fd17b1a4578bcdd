package watcher

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

	"github.com/fsnotify/fsnotify"

	nserrors "github.com/Aman-CERP/notesearch/internal/errors"
	"github.com/Aman-CERP/notesearch/internal/walker"
)

// Watcher watches a notes tree recursively and emits debounced batches of
// file events. It uses fsnotify and falls back to polling when an fsnotify
// instance cannot be created, or when Options.Mode is "poll".
type Watcher struct {
	opts      Options
	debouncer *Debouncer
	errors    chan error
	stopCh    chan struct{}
	wg        sync.WaitGroup

	mu       sync.Mutex
	filter   *walker.Filter
	fsw      *fsnotify.Watcher
	poller   *poller
	mode     string
	dirs     map[string]struct{}
	started  bool
	stopped  bool
	dropped  atomic.Uint64
	observed atomic.Uint64
}

// New creates a watcher. Nothing is watched until Start.
func New(opts Options) (*Watcher, error) {
	opts = opts.WithDefaults()
	if opts.Mode != ModeFsnotify && opts.Mode != ModePoll {
		return nil, nserrors.ValidationError(fmt.Sprintf("unknown watch mode %q", opts.Mode), nil).
			WithSuggestion("Use \"fsnotify\" or \"poll\"")
	}
	if opts.DebounceWindow < 0 || opts.PollInterval < 0 {
		return nil, nserrors.ValidationError("watch durations must not be negative", nil)
	}

	return &Watcher{
		opts:      opts,
		debouncer: NewDebouncer(opts.DebounceWindow, opts.EventBufferSize),
		errors:    make(chan error, 16),
		stopCh:    make(chan struct{}),
		mode:      opts.Mode,
		dirs:      make(map[string]struct{}),
	}, nil
}

// Start subscribes to changes under root and returns once the subscription
// is established. Events flow until ctx is cancelled or Stop is called.
// A watcher can be started once.
func (w *Watcher) Start(ctx context.Context, root string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nserrors.InternalError("watcher is stopped", nil)
	}
	if w.started {
		return nserrors.InternalError("watcher already started", nil)
	}

	filter, err := w.resolveFilter(root)
	if err != nil {
		return nserrors.WatchSubscriptionFailed(root, err)
	}
	info, err := os.Stat(filter.Root())
	if err != nil {
		return nserrors.WatchSubscriptionFailed(filter.Root(), err)
	}
	if !info.IsDir() {
		return nserrors.WatchSubscriptionFailed(filter.Root(), errors.New("not a directory"))
	}
	w.filter = filter

	if w.mode == ModeFsnotify {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			slog.Warn("fsnotify_unavailable_falling_back_to_poll",
				slog.String("error", err.Error()))
			w.mode = ModePoll
		} else {
			w.fsw = fsw
		}
	}

	switch w.mode {
	case ModeFsnotify:
		if err := w.addRecursive(filter.Root()); err != nil {
			_ = w.fsw.Close()
			w.fsw = nil
			w.dirs = make(map[string]struct{})
			return nserrors.WatchSubscriptionFailed(filter.Root(), err)
		}
		w.wg.Add(1)
		go w.runFsnotify(ctx)
	case ModePoll:
		p := newPoller(filter, w.opts.PollInterval, w.debouncer.Add)
		if err := p.scan(ctx); err != nil {
			return nserrors.WatchSubscriptionFailed(filter.Root(), err)
		}
		w.poller = p
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			p.run(ctx, w.stopCh, w.emitError)
		}()
	}

	w.started = true
	go func() {
		select {
		case <-ctx.Done():
			_ = w.Stop()
		case <-w.stopCh:
		}
	}()

	slog.Info("watcher_started",
		slog.String("root", filter.Root()),
		slog.String("mode", w.mode),
		slog.Duration("debounce", w.opts.DebounceWindow))
	return nil
}

func (w *Watcher) resolveFilter(root string) (*walker.Filter, error) {
	if w.opts.Filter == nil {
		return walker.NewFilter(root, walker.Options{})
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if w.opts.Filter.Canonical(abs) != w.opts.Filter.Root() {
		return nil, fmt.Errorf("filter root %s does not match %s", w.opts.Filter.Root(), abs)
	}
	return w.opts.Filter, nil
}

func (w *Watcher) runFsnotify(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFsnotifyEvent(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				err = ErrOverflow
			}
			w.emitError(err)
		}
	}
}

// handleFsnotifyEvent filters a raw event and feeds it to the debouncer.
func (w *Watcher) handleFsnotifyEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if w.filter.Skipped(event.Name) {
		return
	}
	w.observed.Add(1)

	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Lstat(event.Name)
		if err == nil && info.IsDir() {
			w.addDir(ctx, event.Name)
			return
		}
		w.debouncer.Add(FileEvent{Path: event.Name, Operation: OpCreate})
	case event.Has(fsnotify.Write):
		w.debouncer.Add(FileEvent{Path: event.Name, Operation: OpModify})
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		op := OpDelete
		if event.Has(fsnotify.Rename) {
			op = OpRename
		}
		isDir := w.forgetDir(event.Name)
		w.debouncer.Add(FileEvent{Path: event.Name, Operation: op, IsDir: isDir})
	}
}

// addDir watches a directory that appeared after Start and reports the
// notes already inside it, since they were created before the watch.
func (w *Watcher) addDir(ctx context.Context, dir string) {
	w.mu.Lock()
	err := w.addRecursive(dir)
	w.mu.Unlock()
	if err != nil {
		w.emitError(fmt.Errorf("watch new directory %s: %w", dir, err))
	}

	err = w.filter.WalkDir(ctx, dir, func(path string) error {
		w.debouncer.Add(FileEvent{Path: path, Operation: OpCreate})
		return nil
	})
	if err != nil && ctx.Err() == nil {
		w.emitError(fmt.Errorf("scan new directory %s: %w", dir, err))
	}
}

// addRecursive adds top and every non-skipped directory below it.
// Must be called with w.mu held.
func (w *Watcher) addRecursive(top string) error {
	return filepath.WalkDir(top, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == top {
				return err
			}
			slog.Warn("watch_walk_failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.filter.Root() && w.filter.Skipped(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("add watch %s: %w", path, err)
		}
		w.dirs[path] = struct{}{}
		return nil
	})
}

// forgetDir drops path and its descendants from the watched set and
// reports whether path itself was a watched directory.
func (w *Watcher) forgetDir(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, isDir := w.dirs[path]
	if !isDir {
		return false
	}
	prefix := path + string(filepath.Separator)
	for dir := range w.dirs {
		if dir == path || strings.HasPrefix(dir, prefix) {
			delete(w.dirs, dir)
			// Renamed directories keep their inotify watch; removed ones
			// are already gone, so the error is expected there.
			_ = w.fsw.Remove(dir)
		}
	}
	return true
}

func (w *Watcher) emitError(err error) {
	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		return
	}

	select {
	case w.errors <- err:
	default:
		count := w.dropped.Add(1)
		slog.Warn("watch_error_dropped",
			slog.String("error", err.Error()),
			slog.Uint64("total_dropped", count))
	}
}

// Stop stops watching and releases resources. Events and Errors are closed
// once in-flight work has drained. Safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	fsw := w.fsw
	w.mu.Unlock()

	var err error
	if fsw != nil {
		err = fsw.Close()
	}
	w.debouncer.Stop()
	w.wg.Wait()
	close(w.errors)
	return err
}

// Events returns the channel of debounced batches. It is closed by Stop.
func (w *Watcher) Events() <-chan []FileEvent {
	return w.debouncer.Output()
}

// Errors returns the channel of non-fatal watch errors. It is closed by Stop.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Mode returns the active mode, which may differ from Options.Mode after
// a fallback to polling.
func (w *Watcher) Mode() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mode
}

// WatchedDirs returns the number of directories with an active watch.
func (w *Watcher) WatchedDirs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.dirs)
}

// Observed returns the number of raw events accepted before debouncing.
func (w *Watcher) Observed() uint64 {
	return w.observed.Load()
}
