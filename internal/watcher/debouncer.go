package watcher

import (
	"sort"
	"sync"
	"time"
)

// Debouncer holds each path until it has been quiet for the window, then
// emits it. A new event for a pending path replaces the pending one and
// restarts that path's window, so the last operation wins. Paths are timed
// independently: a busy file never delays a quiet one.
//
// Batches are delivered with a blocking send. A slow consumer stalls the
// debouncer instead of losing events.
type Debouncer struct {
	window  time.Duration
	now     func() time.Time
	mu      sync.Mutex
	pending map[string]*pendingEvent
	kick    chan struct{}
	output  chan []FileEvent
	stopCh  chan struct{}
	done    chan struct{}
	stopped bool
}

type pendingEvent struct {
	event FileEvent
	due   time.Time
}

// NewDebouncer creates a debouncer with the given window and starts its
// flush loop. The output channel is closed after Stop.
func NewDebouncer(window time.Duration, buffer int) *Debouncer {
	if buffer < 0 {
		buffer = 0
	}
	d := &Debouncer{
		window:  window,
		now:     time.Now,
		pending: make(map[string]*pendingEvent),
		kick:    make(chan struct{}, 1),
		output:  make(chan []FileEvent, buffer),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Add records an event. It never blocks on the consumer.
func (d *Debouncer) Add(event FileEvent) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}

	now := d.now()
	if event.Timestamp.IsZero() {
		event.Timestamp = now
	}
	if existing, ok := d.pending[event.Path]; ok {
		// A directory stays a directory until it is emitted; RemoveTree
		// must still run if a file event for the same name follows.
		event.IsDir = event.IsDir || existing.event.IsDir
		existing.event = event
		existing.due = now.Add(d.window)
	} else {
		d.pending[event.Path] = &pendingEvent{event: event, due: now.Add(d.window)}
	}
	d.mu.Unlock()

	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// Pending returns the number of paths waiting for their window to close.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Output returns the channel of debounced batches.
func (d *Debouncer) Output() <-chan []FileEvent {
	return d.output
}

// Stop discards pending events and stops the flush loop.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.pending = make(map[string]*pendingEvent)
	close(d.stopCh)
	d.mu.Unlock()

	<-d.done
}

func (d *Debouncer) run() {
	defer close(d.done)
	defer close(d.output)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		batch, wait := d.takeDue(d.now())
		if len(batch) > 0 {
			select {
			case d.output <- batch:
			case <-d.stopCh:
				return
			}
			continue
		}
		if wait > 0 {
			timer.Reset(wait)
		}

		select {
		case <-d.stopCh:
			return
		case <-d.kick:
		case <-timer.C:
		}
	}
}

// takeDue removes and returns every event whose window has closed, sorted
// by path, and the time until the next one is due (0 when none pending).
func (d *Debouncer) takeDue(now time.Time) ([]FileEvent, time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var batch []FileEvent
	var next time.Duration
	for path, p := range d.pending {
		if !p.due.After(now) {
			batch = append(batch, p.event)
			delete(d.pending, path)
			continue
		}
		if wait := p.due.Sub(now); next == 0 || wait < next {
			next = wait
		}
	}

	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	return batch, next
}
