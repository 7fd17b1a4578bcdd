// Package watcher reports changes under a notes root as debounced batches
// of file events.
//
// Notifications come from fsnotify, with every non-hidden, non-excluded
// directory watched individually and new directories added as they appear.
// Poll mode rescans the tree on an interval for filesystems where inotify
// sees nothing, such as network mounts.
//
// Each path is debounced on its own clock: a path is emitted once it has
// been quiet for the window, carrying the last operation seen. Consumers
// should treat the operation as a hint and check the filesystem.
//
// Usage:
//
//	w, err := watcher.New(watcher.Options{Filter: filter})
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	if err := w.Start(ctx, filter.Root()); err != nil {
//	    return err
//	}
//
//	for batch := range w.Events() {
//	    for _, ev := range batch {
//	        // stat ev.Path: upsert if present, remove if gone
//	    }
//	}
package watcher
