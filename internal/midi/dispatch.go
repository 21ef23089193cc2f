// Package midi turns note-on events from MIDI inputs into navigation
// actions.
package midi

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/rpggio/setlistd/internal/domain/playback"
	"github.com/rpggio/setlistd/internal/navigation"
)

// ActionKind enumerates what a note can trigger.
type ActionKind string

const (
	ActionNext          ActionKind = "next"
	ActionPrevious      ActionKind = "previous"
	ActionTogglePlay    ActionKind = "toggle_play"
	ActionSelectSetlist ActionKind = "select_setlist"
	ActionSeekRegion    ActionKind = "seek_region"
)

// Action is a parsed mapping target, e.g. "select_setlist:abc".
type Action struct {
	Kind ActionKind
	Arg  string
}

func (a Action) String() string {
	if a.Arg == "" {
		return string(a.Kind)
	}
	return string(a.Kind) + ":" + a.Arg
}

// ParseAction parses "next", "previous", "toggle_play",
// "select_setlist:<id>" or "seek_region:<id>".
func ParseAction(s string) (Action, error) {
	kind, arg, _ := strings.Cut(strings.TrimSpace(s), ":")
	a := Action{Kind: ActionKind(strings.ToLower(kind)), Arg: strings.TrimSpace(arg)}
	switch a.Kind {
	case ActionNext, ActionPrevious, ActionTogglePlay:
		if a.Arg != "" {
			return Action{}, fmt.Errorf("action %q takes no argument", a.Kind)
		}
	case ActionSeekRegion:
		if a.Arg == "" {
			return Action{}, fmt.Errorf("action %q needs an id", a.Kind)
		}
	case ActionSelectSetlist:
		// An empty id clears the selection.
	default:
		return Action{}, fmt.Errorf("unknown action %q", s)
	}
	return a, nil
}

// Navigator is the facade surface MIDI can drive.
type Navigator interface {
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	TogglePlay(ctx context.Context) (playback.State, error)
	SelectSetlist(ctx context.Context, id string) error
	SeekToRegion(ctx context.Context, regionID string, opts navigation.SeekOptions) error
}

// Dispatcher routes debounced note-ons to navigation actions.
type Dispatcher struct {
	nav       Navigator
	debouncer *Debouncer
	actions   map[uint8]Action
	logger    *slog.Logger
}

// NewDispatcher builds a dispatcher from note → action mappings, where keys
// are note numbers 0-127.
func NewDispatcher(nav Navigator, mappings map[string]string, debouncer *Debouncer, logger *slog.Logger) (*Dispatcher, error) {
	if debouncer == nil {
		debouncer = NewDebouncer(0)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	actions := make(map[uint8]Action, len(mappings))
	for key, value := range mappings {
		note, err := strconv.ParseUint(strings.TrimSpace(key), 10, 8)
		if err != nil || note > 127 {
			return nil, fmt.Errorf("invalid MIDI note %q", key)
		}
		action, err := ParseAction(value)
		if err != nil {
			return nil, fmt.Errorf("note %d: %w", note, err)
		}
		actions[uint8(note)] = action
	}
	return &Dispatcher{nav: nav, debouncer: debouncer, actions: actions, logger: logger}, nil
}

// Mapped reports how many notes have an action.
func (d *Dispatcher) Mapped() int {
	return len(d.actions)
}

// Accept returns the action mapped to a note-on that arrived at at, unless
// the note is unmapped or debounced. It is cheap and safe to call on the
// driver's goroutine.
func (d *Dispatcher) Accept(note uint8, at time.Time) (Action, bool) {
	action, ok := d.actions[note]
	if !ok {
		return Action{}, false
	}
	if !d.debouncer.Accept(note, at) {
		return Action{}, false
	}
	return action, true
}

// Dispatch runs an accepted action against the navigator.
func (d *Dispatcher) Dispatch(ctx context.Context, note uint8, action Action) error {
	var err error
	switch action.Kind {
	case ActionNext:
		err = d.nav.Next(ctx)
	case ActionPrevious:
		err = d.nav.Previous(ctx)
	case ActionTogglePlay:
		_, err = d.nav.TogglePlay(ctx)
	case ActionSelectSetlist:
		err = d.nav.SelectSetlist(ctx, action.Arg)
	case ActionSeekRegion:
		err = d.nav.SeekToRegion(ctx, action.Arg, navigation.SeekOptions{})
	}
	if err != nil {
		d.logger.Warn("midi action failed", "note", note, "action", action.String(), "error", err)
		return err
	}
	d.logger.Debug("midi action", "note", note, "action", action.String())
	return nil
}

// HandleNoteOn accepts and dispatches in one call. It reports whether an
// action ran.
func (d *Dispatcher) HandleNoteOn(ctx context.Context, note uint8, at time.Time) (bool, error) {
	action, ok := d.Accept(note, at)
	if !ok {
		return false, nil
	}
	return true, d.Dispatch(ctx, note, action)
}
