package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveBatch(t *testing.T, d *Debouncer, timeout time.Duration) []FileEvent {
	t.Helper()
	select {
	case batch, ok := <-d.Output():
		require.True(t, ok, "output closed")
		return batch
	case <-time.After(timeout):
		t.Fatal("timeout waiting for debounced batch")
		return nil
	}
}

func TestDebouncer_BurstCoalescesToLastEvent(t *testing.T) {
	// Given: a debouncer with a short window
	d := NewDebouncer(50*time.Millisecond, 10)
	defer d.Stop()

	// When: several events arrive for one path in quick succession
	d.Add(FileEvent{Path: "/n/a.md", Operation: OpCreate})
	d.Add(FileEvent{Path: "/n/a.md", Operation: OpModify})
	d.Add(FileEvent{Path: "/n/a.md", Operation: OpModify})

	// Then: exactly one event is emitted, carrying the last operation
	batch := receiveBatch(t, d, time.Second)
	require.Len(t, batch, 1)
	assert.Equal(t, "/n/a.md", batch[0].Path)
	assert.Equal(t, OpModify, batch[0].Operation)

	select {
	case extra := <-d.Output():
		t.Fatalf("unexpected extra batch: %v", extra)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDebouncer_DeleteAfterCreateIsKept(t *testing.T) {
	d := NewDebouncer(30*time.Millisecond, 10)
	defer d.Stop()

	d.Add(FileEvent{Path: "/n/a.md", Operation: OpCreate})
	d.Add(FileEvent{Path: "/n/a.md", Operation: OpDelete})

	batch := receiveBatch(t, d, time.Second)
	require.Len(t, batch, 1)
	assert.Equal(t, OpDelete, batch[0].Operation)
}

func TestDebouncer_EventResetsOnlyItsOwnPath(t *testing.T) {
	// Given: a busy path and a quiet path
	d := NewDebouncer(100*time.Millisecond, 10)
	defer d.Stop()

	d.Add(FileEvent{Path: "/n/quiet.md", Operation: OpModify})

	// When: the busy path keeps receiving events
	stop := time.After(250 * time.Millisecond)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	var first []FileEvent
loop:
	for {
		select {
		case batch := <-d.Output():
			first = batch
			break loop
		case <-ticker.C:
			d.Add(FileEvent{Path: "/n/busy.md", Operation: OpModify})
		case <-stop:
			t.Fatal("quiet path was not emitted while another path was busy")
		}
	}

	// Then: the quiet path is emitted on its own schedule
	require.Len(t, first, 1)
	assert.Equal(t, "/n/quiet.md", first[0].Path)
}

func TestDebouncer_BatchSortedByPath(t *testing.T) {
	d := NewDebouncer(30*time.Millisecond, 10)
	defer d.Stop()

	d.Add(FileEvent{Path: "/n/c.md", Operation: OpModify})
	d.Add(FileEvent{Path: "/n/a.md", Operation: OpModify})
	d.Add(FileEvent{Path: "/n/b.md", Operation: OpModify})

	var paths []string
	deadline := time.After(time.Second)
	for len(paths) < 3 {
		select {
		case batch := <-d.Output():
			for _, ev := range batch {
				paths = append(paths, ev.Path)
			}
		case <-deadline:
			t.Fatalf("got %v before timeout", paths)
		}
	}
	assert.Equal(t, []string{"/n/a.md", "/n/b.md", "/n/c.md"}, paths)
}

func TestDebouncer_DirectoryFlagSticks(t *testing.T) {
	d := NewDebouncer(30*time.Millisecond, 10)
	defer d.Stop()

	d.Add(FileEvent{Path: "/n/projects", Operation: OpRename, IsDir: true})
	d.Add(FileEvent{Path: "/n/projects", Operation: OpCreate})

	batch := receiveBatch(t, d, time.Second)
	require.Len(t, batch, 1)
	assert.True(t, batch[0].IsDir)
	assert.Equal(t, OpCreate, batch[0].Operation)
}

func TestDebouncer_BlocksInsteadOfDropping(t *testing.T) {
	// Given: an unbuffered output nobody is reading yet
	d := NewDebouncer(10*time.Millisecond, 0)
	defer d.Stop()

	for _, p := range []string{"/n/a.md", "/n/b.md", "/n/c.md"} {
		d.Add(FileEvent{Path: p, Operation: OpModify})
		time.Sleep(30 * time.Millisecond)
	}

	// When: the consumer finally reads
	seen := map[string]bool{}
	deadline := time.After(time.Second)
	for len(seen) < 3 {
		select {
		case batch := <-d.Output():
			for _, ev := range batch {
				seen[ev.Path] = true
			}
		case <-deadline:
			t.Fatalf("lost events, saw %v", seen)
		}
	}

	// Then: every path is delivered
	assert.Len(t, seen, 3)
}

func TestDebouncer_StopClosesOutputAndDropsPending(t *testing.T) {
	d := NewDebouncer(time.Hour, 10)
	d.Add(FileEvent{Path: "/n/a.md", Operation: OpModify})
	assert.Equal(t, 1, d.Pending())

	d.Stop()
	d.Stop()

	_, ok := <-d.Output()
	assert.False(t, ok)
	assert.Equal(t, 0, d.Pending())

	// Add after Stop is ignored
	d.Add(FileEvent{Path: "/n/b.md", Operation: OpModify})
	assert.Equal(t, 0, d.Pending())
}

func TestDebouncer_StopUnblocksPendingSend(t *testing.T) {
	d := NewDebouncer(time.Millisecond, 0)
	d.Add(FileEvent{Path: "/n/a.md", Operation: OpModify})
	time.Sleep(20 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		d.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on an unread batch")
	}
}

func TestDebouncer_ZeroTimestampIsFilled(t *testing.T) {
	d := NewDebouncer(10*time.Millisecond, 10)
	defer d.Stop()

	d.Add(FileEvent{Path: "/n/a.md", Operation: OpCreate})
	batch := receiveBatch(t, d, time.Second)
	require.Len(t, batch, 1)
	assert.False(t, batch[0].Timestamp.IsZero())
}
