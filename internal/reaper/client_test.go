package reaper_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rpggio/setlistd/internal/daw"
	"github.com/rpggio/setlistd/internal/reaper"
	"github.com/rpggio/setlistd/internal/testserver"
	"github.com/stretchr/testify/require"
)

func TestClient_TransportAndBeatPosition(t *testing.T) {
	fake := testserver.NewFakeReaper(t)
	fake.SetTransport(daw.PlayStatePlaying, 12.5)
	fake.SetTempo(90, daw.TimeSignature{Numerator: 3, Denominator: 4})

	c := reaper.New(fake.URL())
	ctx := context.Background()

	ts, err := c.TransportState(ctx)
	require.NoError(t, err)
	require.True(t, ts.PlayState.IsPlaying())
	require.InDelta(t, 12.5, ts.Position, 1e-9)
	require.Empty(t, ts.RegionID)

	bp, err := c.BeatPosition(ctx)
	require.NoError(t, err)
	require.InDelta(t, 12.5, bp.PositionSeconds, 1e-9)
	require.InDelta(t, 18.75, bp.FullBeats, 1e-6)
	require.Equal(t, daw.TimeSignature{Numerator: 3, Denominator: 4}, bp.TimeSignature)

	sig, err := c.TimeSignature(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, sig.Numerator)
}

func TestClient_RegionsAndMarkers(t *testing.T) {
	fake := testserver.NewFakeReaper(t)
	fake.SetRegions(
		daw.RegionInfo{ID: "1", Name: "Intro", Start: 0, End: 10, Color: "0"},
		daw.RegionInfo{ID: "2", Name: "Verse", Start: 10, End: 20},
	)
	fake.SetMarkers(daw.MarkerInfo{ID: "1", Name: "!bpm:128", Position: 10})

	c := reaper.New(fake.URL() + "/")
	ctx := context.Background()

	regions, err := c.Regions(ctx)
	require.NoError(t, err)
	require.Len(t, regions, 2)
	require.Equal(t, "Verse", regions[1].Name)
	require.Equal(t, "2", regions[1].ID)
	require.InDelta(t, 20.0, regions[1].End, 1e-9)

	markers, err := c.Markers(ctx)
	require.NoError(t, err)
	require.Len(t, markers, 1)
	require.Equal(t, "!bpm:128", markers[0].Name)
}

func TestClient_Commands(t *testing.T) {
	fake := testserver.NewFakeReaper(t)
	c := reaper.New(fake.URL(), reaper.WithCountInCommand("_SWS_PREROLL"))
	ctx := context.Background()

	require.NoError(t, c.Seek(ctx, 20.001))
	require.NoError(t, c.Play(ctx))
	require.NoError(t, c.Pause(ctx))
	require.NoError(t, c.PlayWithCountIn(ctx))
	require.NoError(t, c.Seek(ctx, -4))

	require.Equal(t, []string{"seek:20.001", "play", "pause", "action:_SWS_PREROLL", "seek:0.000"}, fake.Commands())
}

func TestClient_ProjectExtState(t *testing.T) {
	fake := testserver.NewFakeReaper(t)
	c := reaper.New(fake.URL())
	ctx := context.Background()

	v, err := c.ProjectExtState(ctx, "setlistd", "project_id")
	require.NoError(t, err)
	require.Empty(t, v)

	require.NoError(t, c.SetProjectExtState(ctx, "setlistd", "project_name", "Friday / Late"))
	require.Equal(t, "Friday / Late", fake.ExtState("setlistd", "project_name"))

	v, err = c.ProjectExtState(ctx, "setlistd", "project_name")
	require.NoError(t, err)
	require.Equal(t, "Friday / Late", v)
}

func TestClient_FailuresAreUnavailable(t *testing.T) {
	fake := testserver.NewFakeReaper(t)
	fake.SetFailing(true)
	c := reaper.New(fake.URL())

	_, err := c.TransportState(context.Background())
	require.ErrorIs(t, err, daw.ErrUnavailable)

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("TRANSPORT\tnope\n"))
	}))
	defer garbage.Close()
	_, err = reaper.New(garbage.URL).TransportState(context.Background())
	require.ErrorIs(t, err, daw.ErrUnavailable)

	err = reaper.New("http://127.0.0.1:1", reaper.WithTimeout(100*time.Millisecond)).Pause(context.Background())
	require.ErrorIs(t, err, daw.ErrUnavailable)
}
