package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/Aman-CERP/notesearch/internal/walker"
)

// poller detects changes by periodically scanning the tree. Used for
// network mounts and other filesystems where fsnotify sees nothing.
type poller struct {
	filter    *walker.Filter
	interval  time.Duration
	emit      func(FileEvent)
	fileState map[string]fileSnapshot
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
	isDir   bool
}

func newPoller(filter *walker.Filter, interval time.Duration, emit func(FileEvent)) *poller {
	return &poller{
		filter:    filter,
		interval:  interval,
		emit:      emit,
		fileState: make(map[string]fileSnapshot),
	}
}

// scan records the baseline state without emitting anything.
func (p *poller) scan(ctx context.Context) error {
	state, err := p.snapshot(ctx)
	if err != nil {
		return err
	}
	p.fileState = state
	return nil
}

func (p *poller) run(ctx context.Context, stopCh <-chan struct{}, onError func(error)) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			if err := p.detectChanges(ctx); err != nil && ctx.Err() == nil {
				onError(err)
			}
		}
	}
}

// snapshot walks the tree and records every non-skipped directory and every
// regular file with an indexable extension.
func (p *poller) snapshot(ctx context.Context) (map[string]fileSnapshot, error) {
	root := p.filter.Root()
	state := make(map[string]fileSnapshot)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}
		if d.IsDir() {
			if p.filter.Skipped(path) {
				return filepath.SkipDir
			}
		} else if !d.Type().IsRegular() || !p.filter.Indexable(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		state[path] = fileSnapshot{
			modTime: info.ModTime(),
			size:    info.Size(),
			isDir:   d.IsDir(),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return state, nil
}

// detectChanges compares the current tree with the previous scan and emits
// one event per changed path.
func (p *poller) detectChanges(ctx context.Context) error {
	current, err := p.snapshot(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	for path, snap := range current {
		if snap.isDir {
			continue
		}
		prev, exists := p.fileState[path]
		switch {
		case !exists:
			p.emit(FileEvent{Path: path, Operation: OpCreate, Timestamp: now})
		case prev.modTime != snap.modTime || prev.size != snap.size:
			p.emit(FileEvent{Path: path, Operation: OpModify, Timestamp: now})
		}
	}

	for path, snap := range p.fileState {
		if _, exists := current[path]; !exists {
			p.emit(FileEvent{Path: path, Operation: OpDelete, IsDir: snap.isDir, Timestamp: now})
		}
	}

	p.fileState = current
	return nil
}
