package midi_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rpggio/setlistd/internal/domain/playback"
	"github.com/rpggio/setlistd/internal/midi"
	"github.com/rpggio/setlistd/internal/navigation"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type navMock struct {
	mock.Mock
}

func (m *navMock) Next(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *navMock) Previous(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *navMock) TogglePlay(ctx context.Context) (playback.State, error) {
	args := m.Called(ctx)
	return args.Get(0).(playback.State), args.Error(1)
}

func (m *navMock) SelectSetlist(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *navMock) SeekToRegion(ctx context.Context, regionID string, opts navigation.SeekOptions) error {
	return m.Called(ctx, regionID, opts).Error(0)
}

func TestDebouncer_Window(t *testing.T) {
	d := midi.NewDebouncer(200 * time.Millisecond)
	t0 := time.Date(2025, 1, 1, 20, 0, 0, 0, time.UTC)

	require.True(t, d.Accept(60, t0))
	require.False(t, d.Accept(60, t0.Add(50*time.Millisecond)))
	require.True(t, d.Accept(61, t0.Add(50*time.Millisecond)), "other notes are independent")
	require.True(t, d.Accept(60, t0.Add(250*time.Millisecond)))
}

func TestDebouncer_DroppedPressDoesNotExtendWindow(t *testing.T) {
	d := midi.NewDebouncer(0)
	t0 := time.Unix(0, 0)

	require.True(t, d.Accept(1, t0))
	require.False(t, d.Accept(1, t0.Add(150*time.Millisecond)))
	require.True(t, d.Accept(1, t0.Add(200*time.Millisecond)))
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		in      string
		want    midi.Action
		wantErr bool
	}{
		{in: "next", want: midi.Action{Kind: midi.ActionNext}},
		{in: " Previous ", want: midi.Action{Kind: midi.ActionPrevious}},
		{in: "toggle_play", want: midi.Action{Kind: midi.ActionTogglePlay}},
		{in: "select_setlist:abc", want: midi.Action{Kind: midi.ActionSelectSetlist, Arg: "abc"}},
		{in: "select_setlist", want: midi.Action{Kind: midi.ActionSelectSetlist}},
		{in: "seek_region:7", want: midi.Action{Kind: midi.ActionSeekRegion, Arg: "7"}},
		{in: "seek_region", wantErr: true},
		{in: "next:1", wantErr: true},
		{in: "explode", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := midi.ParseAction(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNewDispatcher_RejectsBadNotes(t *testing.T) {
	_, err := midi.NewDispatcher(&navMock{}, map[string]string{"128": "next"}, nil, nil)
	require.Error(t, err)
	_, err = midi.NewDispatcher(&navMock{}, map[string]string{"x": "next"}, nil, nil)
	require.Error(t, err)
	_, err = midi.NewDispatcher(&navMock{}, map[string]string{"60": "bogus"}, nil, nil)
	require.Error(t, err)
}

func TestDispatcher_RoutesAndDebounces(t *testing.T) {
	nav := &navMock{}
	ctx := context.Background()
	d, err := midi.NewDispatcher(nav, map[string]string{
		"60": "next",
		"61": "previous",
		"62": "toggle_play",
		"63": "select_setlist:s1",
		"64": "seek_region:5",
	}, midi.NewDebouncer(200*time.Millisecond), nil)
	require.NoError(t, err)
	require.Equal(t, 5, d.Mapped())

	clock := time.Unix(1000, 0)

	nav.On("Next", ctx).Return(nil).Once()
	nav.On("Previous", ctx).Return(nil).Once()
	nav.On("TogglePlay", ctx).Return(playback.State{IsPlaying: true}, nil).Once()
	nav.On("SelectSetlist", ctx, "s1").Return(nil).Once()
	nav.On("SeekToRegion", ctx, "5", navigation.SeekOptions{}).Return(nil).Once()

	for note := uint8(60); note <= 64; note++ {
		fired, err := d.HandleNoteOn(ctx, note, clock)
		require.NoError(t, err)
		require.True(t, fired, "note %d", note)
	}

	clock = clock.Add(50 * time.Millisecond)
	fired, err := d.HandleNoteOn(ctx, 60, clock)
	require.NoError(t, err)
	require.False(t, fired)

	fired, err = d.HandleNoteOn(ctx, 10, clock)
	require.NoError(t, err)
	require.False(t, fired, "unmapped note")

	clock = clock.Add(200 * time.Millisecond)
	nav.On("Next", ctx).Return(navigation.ErrNoTarget).Once()
	fired, err = d.HandleNoteOn(ctx, 60, clock)
	require.True(t, fired)
	require.True(t, errors.Is(err, navigation.ErrNoTarget))

	nav.AssertExpectations(t)
}

func TestListener_Matches(t *testing.T) {
	l := midi.NewListener(nil, nil, func(uint8, time.Time) {}, nil)
	require.True(t, l.Accepts("nanoKONTROL2"))
	require.False(t, l.Accepts("Midi Through Port-0"))

	l = midi.NewListener(nil, []string{"fcb", "Kontrol"}, func(uint8, time.Time) {}, nil)
	require.True(t, l.Accepts("FCB1010 MIDI 1"))
	require.True(t, l.Accepts("nanoKONTROL2"))
	require.False(t, l.Accepts("USB Keyboard"))
}

func TestDispatcher_DebouncesOnArrivalTime(t *testing.T) {
	nav := &navMock{}
	ctx := context.Background()
	d, err := midi.NewDispatcher(nav, map[string]string{"60": "next"}, midi.NewDebouncer(200*time.Millisecond), nil)
	require.NoError(t, err)

	// Two handles deliver the same press; the actions run later.
	arrived := time.Unix(2000, 0)
	first, ok := d.Accept(60, arrived)
	require.True(t, ok)
	_, ok = d.Accept(60, arrived.Add(50*time.Millisecond))
	require.False(t, ok)

	nav.On("Next", ctx).Return(nil).Once()
	require.NoError(t, d.Dispatch(ctx, 60, first))
	nav.AssertExpectations(t)

	_, ok = d.Accept(61, arrived)
	require.False(t, ok, "unmapped note")
}
