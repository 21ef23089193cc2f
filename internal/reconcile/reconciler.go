// Package reconcile keeps the shared playback state in line with what the
// DAW reports, refreshes the region catalog, and tracks connectivity.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rpggio/setlistd/internal/daw"
	"github.com/rpggio/setlistd/internal/domain/playback"
	"github.com/rpggio/setlistd/internal/domain/project"
	"github.com/rpggio/setlistd/internal/domain/region"
	"github.com/rpggio/setlistd/internal/domain/setlist"
	"github.com/rpggio/setlistd/internal/events"
	"github.com/rpggio/setlistd/internal/tempo"
)

// Defaults for Config.
const (
	DefaultFailureThreshold = 3
	DefaultRegionInterval   = 5 * time.Second
)

// ProjectResolver identifies the project open in the DAW.
type ProjectResolver interface {
	Resolve(ctx context.Context) (*project.Project, error)
}

// SetlistLoader loads the setlists of a project into the catalog.
type SetlistLoader interface {
	Load(ctx context.Context, projectID string) (*setlist.Document, error)
}

// Config tunes the reconciler.
type Config struct {
	// FailureThreshold is the number of consecutive failed polls after which
	// connectivity is reported as degraded.
	FailureThreshold int
	// RegionInterval is the cadence of region, marker and project refreshes.
	RegionInterval time.Duration
}

// Reconciler merges polled DAW truth into the playback store.
type Reconciler struct {
	client    daw.Client
	store     *playback.Store
	regions   *region.Catalog
	estimator *tempo.Estimator
	projects  ProjectResolver
	setlists  SetlistLoader
	publisher events.Publisher
	logger    *slog.Logger
	cfg       Config
	now       func() time.Time

	mu                sync.Mutex
	failures          int
	degraded          bool
	lastRegionRefresh time.Time
	projectID         string
}

// Deps groups the collaborators of a Reconciler.
type Deps struct {
	Client    daw.Client
	Store     *playback.Store
	Regions   *region.Catalog
	Estimator *tempo.Estimator
	Projects  ProjectResolver
	Setlists  SetlistLoader
	Publisher events.Publisher
	Logger    *slog.Logger
}

// New creates a reconciler. Projects and Setlists may be nil.
func New(deps Deps, cfg Config) *Reconciler {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.RegionInterval <= 0 {
		cfg.RegionInterval = DefaultRegionInterval
	}
	if deps.Publisher == nil {
		deps.Publisher = events.Discard{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	return &Reconciler{
		client:    deps.Client,
		store:     deps.Store,
		regions:   deps.Regions,
		estimator: deps.Estimator,
		projects:  deps.Projects,
		setlists:  deps.Setlists,
		publisher: deps.Publisher,
		logger:    deps.Logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Poll runs Tick and logs its failure; it is the body of the slow poller.
func (r *Reconciler) Poll(ctx context.Context) {
	if err := r.Tick(ctx); err != nil {
		r.logger.Debug("transport poll failed", "error", err)
	}
}

// Tick performs one low-frequency reconciliation. A failed tick leaves the
// playback state untouched.
func (r *Reconciler) Tick(ctx context.Context) error {
	snap, err := r.client.TransportState(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// Stopped for a transition; not a DAW failure.
			return ctx.Err()
		}
		r.recordFailure(err)
		return fmt.Errorf("polling transport: %w", err)
	}
	restored := r.recordSuccess()
	if restored {
		r.reconnect(ctx)
	}

	patch := r.transportPatch(snap)

	bp, err := r.client.BeatPosition(ctx)
	if err != nil {
		r.logger.Debug("beat position unavailable", "error", err)
	} else {
		if bp.PlayState.IsPlaying() {
			r.estimator.AddSample(bp.PositionSeconds, bp.FullBeats)
		}
		if bp.TimeSignature.Valid() {
			patch.TimeSignature = playback.Some(bp.TimeSignature)
		}
	}
	patch.BPM = playback.Some(r.estimator.Estimate(playback.DefaultBPM))

	if r.regionRefreshDue() {
		if err := r.SyncProject(ctx); err != nil {
			r.logger.Warn("project sync failed", "error", err)
		}
		if err := r.RefreshRegions(ctx); err != nil {
			r.logger.Warn("region refresh failed", "error", err)
		} else {
			// The cursor region may have moved with the new listing.
			patch = patch.WithRegion(r.regionFor(snap))
		}
	}

	// A tick cancelled mid-flight holds a pre-seek snapshot.
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.Apply(patch)
	return nil
}

// Observe merges a transport snapshot taken elsewhere (the transition
// watcher) and returns the resulting state.
func (r *Reconciler) Observe(snap daw.TransportSnapshot) playback.State {
	state, _ := r.store.Apply(r.transportPatch(snap))
	return state
}

// RefreshRegions reloads regions and markers from the DAW.
func (r *Reconciler) RefreshRegions(ctx context.Context) error {
	infos, err := r.client.Regions(ctx)
	if err != nil {
		return fmt.Errorf("listing regions: %w", err)
	}
	markerInfos, err := r.client.Markers(ctx)
	if err != nil {
		return fmt.Errorf("listing markers: %w", err)
	}

	regions := make([]region.Region, 0, len(infos))
	for _, info := range infos {
		regions = append(regions, region.Region{ID: info.ID, Name: info.Name, Start: info.Start, End: info.End, Color: info.Color})
	}
	markers := make([]region.Marker, 0, len(markerInfos))
	for _, info := range markerInfos {
		markers = append(markers, region.Marker{ID: info.ID, Name: info.Name, Position: info.Position, Color: info.Color})
	}
	if r.regions.Replace(regions, markers) {
		r.logger.Info("regions changed", "count", len(r.regions.All()))
	}

	r.mu.Lock()
	r.lastRegionRefresh = r.now()
	r.mu.Unlock()
	return nil
}

// SyncProject resolves the open project and, when it differs from the one
// loaded, resets playback and loads its setlists.
func (r *Reconciler) SyncProject(ctx context.Context) error {
	if r.projects == nil {
		return nil
	}
	proj, err := r.projects.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolving project: %w", err)
	}

	r.mu.Lock()
	previous := r.projectID
	r.projectID = proj.ID
	r.mu.Unlock()
	if previous == proj.ID {
		return nil
	}

	if previous != "" {
		r.logger.Info("project changed", "from", previous, "to", proj.ID)
		r.store.Reset()
		r.estimator.Reset(nil)
	}
	r.publisher.Publish(events.ProjectChanged, proj.ID)
	return r.loadSetlists(ctx, proj.ID)
}

// ProjectID returns the project last resolved.
func (r *Reconciler) ProjectID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.projectID
}

// Degraded reports whether connectivity is currently considered degraded.
func (r *Reconciler) Degraded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.degraded
}

func (r *Reconciler) transportPatch(snap daw.TransportSnapshot) playback.Patch {
	return playback.Patch{
		IsPlaying:        playback.Some(snap.PlayState.IsPlaying()),
		Position:         playback.Some(snap.Position),
		IsRecordingArmed: playback.Some(snap.PlayState.IsRecording()),
	}.WithRegion(r.regionFor(snap))
}

// regionFor prefers the region the DAW reports and otherwise scans the
// catalog. "" means the cursor is outside every region.
func (r *Reconciler) regionFor(snap daw.TransportSnapshot) string {
	if snap.RegionID != "" {
		return snap.RegionID
	}
	if rg, ok := r.regions.AtPosition(snap.Position); ok {
		return rg.ID
	}
	return ""
}

func (r *Reconciler) regionRefreshDue() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRegionRefresh.IsZero() || r.now().Sub(r.lastRegionRefresh) >= r.cfg.RegionInterval
}

func (r *Reconciler) recordFailure(err error) {
	r.mu.Lock()
	r.failures++
	trip := !r.degraded && r.failures >= r.cfg.FailureThreshold
	if trip {
		r.degraded = true
	}
	failures := r.failures
	r.mu.Unlock()

	if trip {
		r.logger.Warn("DAW connectivity degraded", "consecutive_failures", failures, "error", err)
		r.publisher.Publish(events.ConnectivityDegraded, fmt.Sprintf("%d consecutive poll failures: %v", failures, err))
	}
}

func (r *Reconciler) recordSuccess() (restored bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	restored = r.degraded
	r.failures = 0
	r.degraded = false
	return restored
}

// reconnect treats a restored connection as a fresh one.
func (r *Reconciler) reconnect(ctx context.Context) {
	r.logger.Info("DAW connectivity restored")
	r.store.Reset()
	r.estimator.Reset(nil)

	r.mu.Lock()
	r.lastRegionRefresh = time.Time{}
	projectID := r.projectID
	r.mu.Unlock()

	r.publisher.Publish(events.ConnectivityRestored, nil)
	if projectID != "" {
		if err := r.loadSetlists(ctx, projectID); err != nil {
			r.logger.Warn("reloading setlists after reconnect failed", "error", err)
		}
	}
}

func (r *Reconciler) loadSetlists(ctx context.Context, projectID string) error {
	if r.setlists == nil {
		return nil
	}
	doc, err := r.setlists.Load(ctx, projectID)
	if err != nil {
		return fmt.Errorf("loading setlists: %w", err)
	}
	r.store.SelectSetlist(doc.SelectedSetlistID)
	return nil
}
