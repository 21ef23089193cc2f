package midi

import (
	"sync"
	"time"
)

// DefaultDebounceWindow is how long a repeated note-on is ignored.
const DefaultDebounceWindow = 200 * time.Millisecond

// Debouncer drops a note-on that arrives within the window of the last
// accepted note-on of the same number. It is shared by every open input,
// so one key press seen by two device handles fires once.
type Debouncer struct {
	window time.Duration

	mu   sync.Mutex
	last map[uint8]time.Time
}

// NewDebouncer creates a debouncer; window <= 0 uses the default.
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{window: window, last: make(map[uint8]time.Time)}
}

// Accept reports whether a note-on at time at should fire.
func (d *Debouncer) Accept(note uint8, at time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.last[note]; ok && at.Sub(last) < d.window {
		return false
	}
	d.last[note] = at
	return true
}
