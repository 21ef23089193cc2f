package playback

import (
	"sync"

	"github.com/rpggio/setlistd/internal/events"
)

// Store owns the single State value. All writes go through Apply or Reset,
// which serialize on a mutex and announce changes on the bus.
type Store struct {
	mu        sync.RWMutex
	state     State
	publisher events.Publisher
}

// NewStore creates a store holding DefaultState.
func NewStore(publisher events.Publisher) *Store {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &Store{state: DefaultState(), publisher: publisher}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Apply merges patch into the state. It reports whether anything changed.
func (s *Store) Apply(patch Patch) (State, bool) {
	s.mu.Lock()
	next := patch.Merge(s.state)
	changed := next != s.state
	s.state = next
	s.mu.Unlock()

	if changed {
		s.publisher.Publish(events.PlaybackStateChanged, next)
	}
	return next, changed
}

// Reset restores DefaultState, as on a fresh connection.
func (s *Store) Reset() State {
	s.mu.Lock()
	s.state = DefaultState()
	next := s.state
	s.mu.Unlock()

	s.publisher.Publish(events.PlaybackStateChanged, next)
	return next
}

// SetAutoplay toggles automatic advancing.
func (s *Store) SetAutoplay(enabled bool) State {
	next, _ := s.Apply(Patch{AutoplayEnabled: Some(enabled)})
	return next
}

// SetCountIn toggles the pre-roll before resumed playback.
func (s *Store) SetCountIn(enabled bool) State {
	next, _ := s.Apply(Patch{CountInEnabled: Some(enabled)})
	return next
}

// SelectSetlist stores the selected setlist; "" clears the selection.
func (s *Store) SelectSetlist(id string) State {
	next, _ := s.Apply(Patch{SelectedSetlistID: Some(id)})
	return next
}
