// Package navigation is the operation surface shared by the operator API
// and MIDI dispatch.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rpggio/setlistd/internal/daw"
	"github.com/rpggio/setlistd/internal/domain/playback"
	"github.com/rpggio/setlistd/internal/domain/region"
	"github.com/rpggio/setlistd/internal/domain/setlist"
	"github.com/rpggio/setlistd/internal/engine"
)

// Action names used on the bus and in MIDI mappings.
const (
	ActionNext          = "next"
	ActionPrevious      = "previous"
	ActionSelectSetlist = "select_setlist"
	ActionSeekRegion    = "seek_region"
)

// Seeker executes seek-and-play choreographies.
type Seeker interface {
	SeekAndPlay(ctx context.Context, regionID string, opts engine.SeekOptions) error
	Phase() engine.Phase
}

// Setlists is the part of the setlist service navigation relies on.
type Setlists interface {
	Get(id string) (setlist.Setlist, error)
	FirstItem(setlistID string) (setlist.Item, error)
	NextItem(setlistID, regionID string) (setlist.Item, error)
	PreviousItem(setlistID, regionID string) (setlist.Item, error)
	SetSelected(ctx context.Context, id string) error
}

// Transport is the part of the DAW client toggling playback needs.
type Transport interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
}

// SeekOptions are the caller-controlled flags of SeekToRegion.
type SeekOptions struct {
	Autoplay *bool
	CountIn  *bool
}

// Facade resolves setlist-relative or region-relative navigation and hands
// execution to the engine. It never panics; failures are returned as the
// sentinel errors of this package or wrapped DAW errors.
type Facade struct {
	store     *playback.Store
	regions   *region.Catalog
	setlists  Setlists
	seeker    Seeker
	transport Transport
	logger    *slog.Logger
}

// NewFacade creates a navigation facade.
func NewFacade(store *playback.Store, regions *region.Catalog, setlists Setlists, seeker Seeker, transport Transport, logger *slog.Logger) *Facade {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Facade{
		store:     store,
		regions:   regions,
		setlists:  setlists,
		seeker:    seeker,
		transport: transport,
		logger:    logger,
	}
}

// State returns the current playback state.
func (f *Facade) State() playback.State {
	return f.store.Snapshot()
}

// Next moves to the next setlist item, or the next region when no setlist
// is selected.
func (f *Facade) Next(ctx context.Context) error {
	st := f.store.Snapshot()
	if st.SelectedSetlistID != "" {
		item, err := f.setlists.NextItem(st.SelectedSetlistID, st.CurrentRegionID)
		if err != nil {
			return mapSetlistErr(err)
		}
		return f.seek(ctx, item.RegionID, ActionNext, st.CountInEnabled)
	}

	target, err := f.adjacentRegion(st, true)
	if err != nil {
		return err
	}
	return f.seek(ctx, target.ID, ActionNext, st.CountInEnabled)
}

// Previous moves to the previous setlist item, or the previous region when
// no setlist is selected.
func (f *Facade) Previous(ctx context.Context) error {
	st := f.store.Snapshot()
	if st.SelectedSetlistID != "" {
		item, err := f.setlists.PreviousItem(st.SelectedSetlistID, st.CurrentRegionID)
		if err != nil {
			return mapSetlistErr(err)
		}
		return f.seek(ctx, item.RegionID, ActionPrevious, st.CountInEnabled)
	}

	target, err := f.adjacentRegion(st, false)
	if err != nil {
		return err
	}
	return f.seek(ctx, target.ID, ActionPrevious, st.CountInEnabled)
}

// TogglePlay pauses when playing and plays otherwise.
func (f *Facade) TogglePlay(ctx context.Context) (playback.State, error) {
	if f.seeker.Phase() == engine.Transitioning {
		return f.store.Snapshot(), ErrTransitionInProgress
	}
	st := f.store.Snapshot()
	if st.IsPlaying {
		if err := f.transport.Pause(ctx); err != nil {
			return st, fmt.Errorf("pausing: %w", err)
		}
	} else {
		if err := f.transport.Play(ctx); err != nil {
			return st, fmt.Errorf("playing: %w", err)
		}
	}
	next, _ := f.store.Apply(playback.Patch{IsPlaying: playback.Some(!st.IsPlaying)})
	return next, nil
}

// SeekToRegion moves to a region. Count-in stays off unless requested.
func (f *Facade) SeekToRegion(ctx context.Context, regionID string, opts SeekOptions) error {
	if _, err := f.regions.Get(regionID); err != nil {
		return ErrNotFound
	}
	return f.run(ctx, regionID, engine.SeekOptions{Autoplay: opts.Autoplay, CountIn: opts.CountIn, Action: ActionSeekRegion})
}

// SelectSetlist seeks to the first item of the setlist with playback
// paused, then stores the selection. The selection is published last so
// the engine cannot arm and advance before the paused seek. An empty id
// clears the selection.
func (f *Facade) SelectSetlist(ctx context.Context, id string) error {
	if id == "" {
		return f.storeSelection(ctx, id)
	}
	if _, err := f.setlists.Get(id); err != nil {
		return ErrNotFound
	}

	first, err := f.setlists.FirstItem(id)
	switch {
	case errors.Is(err, setlist.ErrItemNotFound):
		f.logger.Info("selected empty setlist", "setlist_id", id)
		if err := f.pause(ctx); err != nil {
			return err
		}
	case err != nil:
		return mapSetlistErr(err)
	default:
		paused := false
		if err := f.run(ctx, first.RegionID, engine.SeekOptions{Autoplay: &paused, Action: ActionSelectSetlist}); err != nil {
			return err
		}
	}
	return f.storeSelection(ctx, id)
}

func (f *Facade) storeSelection(ctx context.Context, id string) error {
	if err := f.setlists.SetSelected(ctx, id); err != nil {
		return fmt.Errorf("saving selection: %w", err)
	}
	f.store.SelectSetlist(id)
	return nil
}

// pause stops playback if it is running.
func (f *Facade) pause(ctx context.Context) error {
	if f.seeker.Phase() == engine.Transitioning {
		return ErrTransitionInProgress
	}
	if !f.store.Snapshot().IsPlaying {
		return nil
	}
	if err := f.transport.Pause(ctx); err != nil {
		return fmt.Errorf("pausing: %w", err)
	}
	f.store.Apply(playback.Patch{IsPlaying: playback.Some(false)})
	return nil
}

// SetAutoplay toggles automatic advancing.
func (f *Facade) SetAutoplay(enabled bool) playback.State {
	return f.store.SetAutoplay(enabled)
}

// SetCountIn toggles pre-roll for next/previous.
func (f *Facade) SetCountIn(enabled bool) playback.State {
	return f.store.SetCountIn(enabled)
}

func (f *Facade) seek(ctx context.Context, regionID, action string, countIn bool) error {
	if _, err := f.regions.Get(regionID); err != nil {
		f.logger.Warn("setlist item points at a missing region", "region_id", regionID)
		return ErrNotFound
	}
	opts := engine.SeekOptions{Action: action}
	if countIn {
		opts.CountIn = &countIn
	}
	return f.run(ctx, regionID, opts)
}

func (f *Facade) run(ctx context.Context, regionID string, opts engine.SeekOptions) error {
	err := f.seeker.SeekAndPlay(ctx, regionID, opts)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, engine.ErrTransitionInProgress):
		return ErrTransitionInProgress
	case errors.Is(err, region.ErrRegionNotFound):
		return ErrNotFound
	case errors.Is(err, daw.ErrUnavailable):
		return fmt.Errorf("%s: %w", opts.Action, err)
	default:
		return fmt.Errorf("%s failed: %w", opts.Action, err)
	}
}

// adjacentRegion steps through the timeline. Outside any region it picks
// the nearest region after (or before) the cursor.
func (f *Facade) adjacentRegion(st playback.State, forward bool) (region.Region, error) {
	currentID := st.CurrentRegionID
	if currentID == "" {
		if r, ok := f.regions.AtPosition(st.Position); ok {
			currentID = r.ID
		}
	}
	if currentID != "" {
		var (
			r   region.Region
			err error
		)
		if forward {
			r, err = f.regions.Next(currentID)
		} else {
			r, err = f.regions.Previous(currentID)
		}
		if err == nil {
			return r, nil
		}
		if errors.Is(err, region.ErrNoAdjacentRegion) {
			return region.Region{}, ErrNoTarget
		}
	}

	all := f.regions.All()
	if forward {
		for _, r := range all {
			if r.Start > st.Position {
				return r, nil
			}
		}
	} else {
		for i := len(all) - 1; i >= 0; i-- {
			if all[i].End < st.Position {
				return all[i], nil
			}
		}
	}
	return region.Region{}, ErrNoTarget
}

func mapSetlistErr(err error) error {
	switch {
	case errors.Is(err, setlist.ErrNoAdjacentItem), errors.Is(err, setlist.ErrItemNotFound):
		return ErrNoTarget
	case errors.Is(err, setlist.ErrSetlistNotFound):
		return ErrNotFound
	default:
		return err
	}
}
