// Package events fans state-change notifications out to subscribers with an
// explicit subscribe/unsubscribe lifecycle.
package events

import (
	"sync"
	"time"
)

// Kind identifies a notification.
type Kind string

const (
	PlaybackStateChanged Kind = "playback_state_changed"
	RegionsChanged       Kind = "regions_changed"
	SetlistsChanged      Kind = "setlists_changed"
	TransitionCompleted  Kind = "transition_completed"
	TransitionFailed     Kind = "transition_failed"
	ConnectivityDegraded Kind = "connectivity_degraded"
	ConnectivityRestored Kind = "connectivity_restored"
	ProjectChanged       Kind = "project_changed"
)

// Event is one notification. Payload holds a copy of the changed value
// (playback.State, []region.Region, []setlist.Setlist, Transition) or a
// reason string for failures.
type Event struct {
	Kind    Kind
	Payload any
	At      time.Time
}

// Transition describes a completed or failed seek/play choreography.
type Transition struct {
	FromRegionID string `json:"from_region_id,omitempty"`
	ToRegionID   string `json:"to_region_id,omitempty"`
	Action       string `json:"action"`
	Automatic    bool   `json:"automatic"`
	Reason       string `json:"reason,omitempty"`
}

// Publisher is the write side of the bus.
type Publisher interface {
	Publish(kind Kind, payload any)
}

// Bus delivers events to every live subscriber. Publishing never blocks:
// a subscriber whose buffer is full misses the event.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	now    func() time.Time
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event), now: time.Now}
}

// Subscribe registers a subscriber. The returned function unsubscribes and
// closes the channel; it is safe to call more than once.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish sends an event to all subscribers.
func (b *Bus) Publish(kind Kind, payload any) {
	ev := Event{Kind: kind, Payload: payload, At: b.now()}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Discard is a Publisher that drops everything.
type Discard struct{}

// Publish implements Publisher.
func (Discard) Publish(Kind, any) {}
