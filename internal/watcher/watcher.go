package watcher

import (
	"errors"
	"time"

	"github.com/Aman-CERP/notesearch/internal/walker"
)

// Operation represents a file system operation type.
type Operation int

const (
	// OpCreate indicates a new file or directory was created.
	OpCreate Operation = iota
	// OpModify indicates an existing file was modified.
	OpModify
	// OpDelete indicates a file or directory was deleted.
	OpDelete
	// OpRename indicates a file or directory was renamed away from Path.
	// The new name, if it stays under the root, arrives as OpCreate.
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// FileEvent represents a debounced change to one path.
type FileEvent struct {
	// Path is the absolute path of the file or directory.
	Path string

	// Operation is the last operation observed for Path within the
	// debounce window.
	Operation Operation

	// IsDir is true when Path was a watched directory. For deletes this is
	// the only record that a whole subtree went away.
	IsDir bool

	// Timestamp is when the last raw event for Path was observed.
	Timestamp time.Time
}

// Watch modes.
const (
	ModeFsnotify = "fsnotify"
	ModePoll     = "poll"
)

// ErrOverflow is reported on Errors when the kernel queue overflowed and
// events were lost. Consumers should reconcile with a full rebuild.
var ErrOverflow = errors.New("watch event queue overflow")

// Options configures watcher behavior.
type Options struct {
	// Mode selects the notification source: "fsnotify" (default) or "poll".
	Mode string

	// DebounceWindow is how long a path must stay quiet before its event
	// is emitted. Default: 500ms.
	DebounceWindow time.Duration

	// PollInterval is the scan interval in poll mode. Default: 5s.
	PollInterval time.Duration

	// EventBufferSize is the buffer size of the batch channel.
	// Default: 1000.
	EventBufferSize int

	// Filter decides which paths are hidden or excluded. When nil, a
	// filter with default options is built for the root passed to Start.
	Filter *walker.Filter
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Mode:            ModeFsnotify,
		DebounceWindow:  500 * time.Millisecond,
		PollInterval:    5 * time.Second,
		EventBufferSize: 1000,
	}
}

// WithDefaults returns a copy of options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()

	if o.Mode == "" {
		o.Mode = defaults.Mode
	}
	if o.DebounceWindow == 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval == 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}

	return o
}
