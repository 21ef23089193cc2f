package playback_test

import (
	"testing"

	"github.com/rpggio/setlistd/internal/daw"
	"github.com/rpggio/setlistd/internal/domain/playback"
	"github.com/rpggio/setlistd/internal/events"
	"github.com/stretchr/testify/require"
)

func TestPatch_AbsentFieldsCarryForward(t *testing.T) {
	store := playback.NewStore(nil)
	store.SetAutoplay(true)
	store.SetCountIn(true)
	store.SelectSetlist("s1")

	// A transport poll only knows about the cursor.
	next, changed := store.Apply(playback.Patch{
		IsPlaying: playback.Some(true),
		Position:  playback.Some(12.5),
	})
	require.True(t, changed)
	require.True(t, next.AutoplayEnabled)
	require.True(t, next.CountInEnabled)
	require.Equal(t, "s1", next.SelectedSetlistID)
	require.True(t, next.IsPlaying)
	require.Equal(t, 12.5, next.Position)
}

func TestPatch_ExplicitClear(t *testing.T) {
	store := playback.NewStore(nil)
	store.SelectSetlist("s1")

	next := store.SelectSetlist("")
	require.Empty(t, next.SelectedSetlistID)
}

func TestPatch_InvalidTimeSignatureIgnored(t *testing.T) {
	store := playback.NewStore(nil)
	next, _ := store.Apply(playback.Patch{TimeSignature: playback.Some(daw.TimeSignature{})})
	require.Equal(t, daw.CommonTime, next.TimeSignature)
}

func TestStore_PublishesOnlyOnChange(t *testing.T) {
	bus := events.NewBus()
	ch, unsub := bus.Subscribe(8)
	defer unsub()

	store := playback.NewStore(bus)
	store.Apply(playback.Patch{Position: playback.Some(1.0)})
	store.Apply(playback.Patch{Position: playback.Some(1.0)})

	ev := <-ch
	require.Equal(t, events.PlaybackStateChanged, ev.Kind)
	require.Equal(t, 1.0, ev.Payload.(playback.State).Position)
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %v", ev)
	default:
	}
}

func TestStore_ResetRestoresDefaults(t *testing.T) {
	store := playback.NewStore(nil)
	store.SetAutoplay(false)
	store.Apply(playback.Patch{IsPlaying: playback.Some(true), BPM: playback.Some(90.0)})

	state := store.Reset()
	require.Equal(t, playback.DefaultState(), state)
	require.True(t, state.AutoplayEnabled)
	require.Equal(t, float64(playback.DefaultBPM), state.BPM)
}
