package watcher

import (
	"sort"
	"sync"
	"time"
)

// Kind classifies what happened to a path.
type Kind int

const (
	// Changed means the path was created or written.
	Changed Kind = iota
	// Removed means the path was removed or renamed away.
	Removed
)

func (k Kind) String() string {
	if k == Removed {
		return "removed"
	}
	return "changed"
}

// ReportEvent is one debounced change to a path.
type ReportEvent struct {
	Path string
	Kind Kind
}

// Debouncer collects events and emits them as one batch after a quiet
// period. Events for the same path within the window collapse to the latest.
// BLAST writes a report in many small appends, so a running search produces
// a single batch once output pauses.
type Debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	pending  map[string]Kind
	timer    *time.Timer
	output   chan []ReportEvent
}

// NewDebouncer creates a debouncer with the given quiet interval.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		pending:  make(map[string]Kind),
		output:   make(chan []ReportEvent, 16),
	}
}

// Output returns the channel that receives batches, sorted by path.
func (d *Debouncer) Output() <-chan []ReportEvent {
	return d.output
}

// Add records an event and restarts the quiet period.
func (d *Debouncer) Add(path string, kind Kind) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[path] = kind
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.flush)
}

// Pending returns the number of paths waiting for the next flush.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.pending) == 0 {
		return
	}
	batch := make([]ReportEvent, 0, len(d.pending))
	for path, kind := range d.pending {
		batch = append(batch, ReportEvent{Path: path, Kind: kind})
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })

	d.pending = make(map[string]Kind)
	d.output <- batch
}
