package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rpggio/setlistd/internal/daw"
	"github.com/rpggio/setlistd/internal/domain/playback"
	"github.com/rpggio/setlistd/internal/domain/project"
	"github.com/rpggio/setlistd/internal/domain/region"
	"github.com/rpggio/setlistd/internal/domain/setlist"
	"github.com/rpggio/setlistd/internal/events"
	"github.com/rpggio/setlistd/internal/repository/mocks"
	"github.com/rpggio/setlistd/internal/tempo"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeProjects struct {
	ids []string
	n   int
}

func (f *fakeProjects) Resolve(context.Context) (*project.Project, error) {
	id := f.ids[min(f.n, len(f.ids)-1)]
	f.n++
	return &project.Project{ID: id}, nil
}

type fakeSetlists struct {
	loads    []string
	selected string
}

func (f *fakeSetlists) Load(_ context.Context, projectID string) (*setlist.Document, error) {
	f.loads = append(f.loads, projectID)
	return &setlist.Document{SelectedSetlistID: f.selected}, nil
}

type harness struct {
	client    *mocks.DAWClient
	store     *playback.Store
	catalog   *region.Catalog
	estimator *tempo.Estimator
	projects  *fakeProjects
	setlists  *fakeSetlists
	bus       *events.Bus
	rec       *Reconciler
	clock     time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		client:    &mocks.DAWClient{},
		bus:       events.NewBus(),
		estimator: tempo.NewEstimator(),
		projects:  &fakeProjects{ids: []string{"proj1"}},
		setlists:  &fakeSetlists{selected: "s1"},
		clock:     time.Date(2025, 1, 1, 20, 0, 0, 0, time.UTC),
	}
	h.store = playback.NewStore(h.bus)
	h.catalog = region.NewCatalog(h.bus)
	h.rec = New(Deps{
		Client:    h.client,
		Store:     h.store,
		Regions:   h.catalog,
		Estimator: h.estimator,
		Projects:  h.projects,
		Setlists:  h.setlists,
		Publisher: h.bus,
	}, Config{FailureThreshold: 3, RegionInterval: 5 * time.Second})
	h.rec.now = func() time.Time { return h.clock }
	return h
}

func (h *harness) expectListing() {
	h.client.On("Regions", mock.Anything).Return([]daw.RegionInfo{
		{ID: "1", Name: "A", Start: 10, End: 20},
		{ID: "2", Name: "B", Start: 20, End: 30},
	}, nil)
	h.client.On("Markers", mock.Anything).Return([]daw.MarkerInfo{}, nil)
}

func TestTick_MergesTransportTempoAndRegion(t *testing.T) {
	h := newHarness(t)
	h.expectListing()
	h.client.On("TransportState", mock.Anything).Return(daw.TransportSnapshot{PlayState: daw.PlayStatePlaying, Position: 12}, nil)
	h.client.On("BeatPosition", mock.Anything).Return(daw.BeatPosition{
		PlayState:       daw.PlayStatePlaying,
		PositionSeconds: 12,
		FullBeats:       24,
		TimeSignature:   daw.TimeSignature{Numerator: 3, Denominator: 4},
	}, nil)

	h.store.SetAutoplay(false)
	require.NoError(t, h.rec.Tick(context.Background()))

	st := h.store.Snapshot()
	require.True(t, st.IsPlaying)
	require.Equal(t, 12.0, st.Position)
	require.Equal(t, "1", st.CurrentRegionID)
	require.Equal(t, 120.0, st.BPM)
	require.Equal(t, daw.TimeSignature{Numerator: 3, Denominator: 4}, st.TimeSignature)
	require.False(t, st.AutoplayEnabled, "user toggle must survive the poll")
	require.Equal(t, "s1", st.SelectedSetlistID)
	require.Equal(t, []string{"proj1"}, h.setlists.loads)
}

func TestTick_RegionRefreshCadence(t *testing.T) {
	h := newHarness(t)
	h.expectListing()
	h.client.On("TransportState", mock.Anything).Return(daw.TransportSnapshot{PlayState: daw.PlayStatePaused, Position: 25}, nil)
	h.client.On("BeatPosition", mock.Anything).Return(daw.BeatPosition{}, errors.New("no beatpos"))
	ctx := context.Background()

	require.NoError(t, h.rec.Tick(ctx))
	h.clock = h.clock.Add(time.Second)
	require.NoError(t, h.rec.Tick(ctx))
	h.client.AssertNumberOfCalls(t, "Regions", 1)

	h.clock = h.clock.Add(5 * time.Second)
	require.NoError(t, h.rec.Tick(ctx))
	h.client.AssertNumberOfCalls(t, "Regions", 2)

	st := h.store.Snapshot()
	require.Equal(t, "2", st.CurrentRegionID)
	require.Equal(t, daw.CommonTime, st.TimeSignature)
}

func TestTick_FailuresDegradeAndRestore(t *testing.T) {
	h := newHarness(t)
	h.expectListing()
	ch, unsub := h.bus.Subscribe(64)
	defer unsub()
	ctx := context.Background()

	h.client.On("TransportState", mock.Anything).Return(daw.TransportSnapshot{PlayState: daw.PlayStatePlaying, Position: 15}, nil).Once()
	h.client.On("BeatPosition", mock.Anything).Return(daw.BeatPosition{}, errors.New("skip"))
	require.NoError(t, h.rec.Tick(ctx))
	h.store.SetCountIn(true)
	before := h.store.Snapshot()

	h.client.On("TransportState", mock.Anything).Return(daw.TransportSnapshot{}, daw.ErrUnavailable).Times(4)
	for i := 0; i < 4; i++ {
		require.ErrorIs(t, h.rec.Tick(ctx), daw.ErrUnavailable)
		require.Equal(t, before, h.store.Snapshot(), "failed poll must not touch state")
		require.Equal(t, i >= 2, h.rec.Degraded())
	}

	h.client.On("TransportState", mock.Anything).Return(daw.TransportSnapshot{PlayState: daw.PlayStatePaused, Position: 15}, nil)
	require.NoError(t, h.rec.Tick(ctx))
	require.False(t, h.rec.Degraded())

	st := h.store.Snapshot()
	require.False(t, st.CountInEnabled, "reconnect resets to defaults")
	require.True(t, st.AutoplayEnabled)
	require.Equal(t, "s1", st.SelectedSetlistID, "selection restored from persistence")
	require.Equal(t, []string{"proj1", "proj1"}, h.setlists.loads)

	var degraded, restored int
	for len(ch) > 0 {
		switch (<-ch).Kind {
		case events.ConnectivityDegraded:
			degraded++
		case events.ConnectivityRestored:
			restored++
		}
	}
	require.Equal(t, 1, degraded)
	require.Equal(t, 1, restored)
}

func TestSyncProject_ChangeResetsAndReloads(t *testing.T) {
	h := newHarness(t)
	h.projects.ids = []string{"proj1", "proj1", "proj2"}
	ctx := context.Background()

	require.NoError(t, h.rec.SyncProject(ctx))
	h.store.SetCountIn(true)
	require.NoError(t, h.rec.SyncProject(ctx))
	require.True(t, h.store.Snapshot().CountInEnabled)

	require.NoError(t, h.rec.SyncProject(ctx))
	require.Equal(t, "proj2", h.rec.ProjectID())
	require.False(t, h.store.Snapshot().CountInEnabled)
	require.Equal(t, []string{"proj1", "proj2"}, h.setlists.loads)
}

func TestObserve_ScansCatalogForRegion(t *testing.T) {
	h := newHarness(t)
	h.catalog.Replace([]region.Region{
		{ID: "1", Start: 10, End: 20},
		{ID: "2", Start: 20, End: 30},
	}, nil)

	st := h.rec.Observe(daw.TransportSnapshot{PlayState: daw.PlayStatePlaying, Position: 20})
	require.Equal(t, "1", st.CurrentRegionID)

	st = h.rec.Observe(daw.TransportSnapshot{PlayState: daw.PlayStatePlaying, Position: 40})
	require.Empty(t, st.CurrentRegionID)

	st = h.rec.Observe(daw.TransportSnapshot{PlayState: daw.PlayStateRecording, Position: 12, RegionID: "7"})
	require.Equal(t, "7", st.CurrentRegionID)
	require.True(t, st.IsRecordingArmed)
}

func TestTick_CancelledTickDoesNotMergeOrDegrade(t *testing.T) {
	h := newHarness(t)
	h.rec.lastRegionRefresh = h.clock
	before := h.store.Snapshot()

	ctx, cancel := context.WithCancel(context.Background())
	h.client.On("TransportState", mock.Anything).Return(daw.TransportSnapshot{PlayState: daw.PlayStatePlaying, Position: 15}, nil).Run(func(mock.Arguments) {
		cancel()
	}).Once()
	h.client.On("BeatPosition", mock.Anything).Return(daw.BeatPosition{}, context.Canceled)

	require.ErrorIs(t, h.rec.Tick(ctx), context.Canceled)
	require.Equal(t, before, h.store.Snapshot(), "snapshot read before the seek must not be merged")

	h.client.On("TransportState", mock.Anything).Return(daw.TransportSnapshot{}, context.Canceled)
	for i := 0; i < 4; i++ {
		require.ErrorIs(t, h.rec.Tick(ctx), context.Canceled)
	}
	require.False(t, h.rec.Degraded())
}
