// Package engine watches the transport while a setlist is playing and
// performs the seek/play choreography for automatic and manual transitions.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rpggio/setlistd/internal/daw"
	"github.com/rpggio/setlistd/internal/domain/playback"
	"github.com/rpggio/setlistd/internal/domain/region"
	"github.com/rpggio/setlistd/internal/domain/setlist"
	"github.com/rpggio/setlistd/internal/events"
	"github.com/rpggio/setlistd/internal/poller"
	"github.com/rpggio/setlistd/internal/tempo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrTransitionInProgress is returned to callers that arrive while a
// transition is executing. Calls are never queued.
var ErrTransitionInProgress = errors.New("transition in progress")

// Transition actions reported on the bus.
const (
	ActionAdvance      = "advance"
	ActionHardStop     = "hard_stop"
	ActionEndOfSetlist = "end_of_setlist"
	ActionSeek         = "seek"
)

// Phase is the externally visible engine state.
type Phase int

const (
	Idle Phase = iota
	ArmedWatching
	Transitioning
)

func (p Phase) String() string {
	switch p {
	case ArmedWatching:
		return "armed_watching"
	case Transitioning:
		return "transitioning"
	default:
		return "idle"
	}
}

// Config tunes timing. Zero values take the defaults below.
type Config struct {
	// WatchInterval is the period of the end-of-region watcher.
	WatchInterval time.Duration
	// TriggerBefore: a transition fires once timeToEnd < TriggerBefore.
	TriggerBefore float64
	// TriggerAfter: and while timeToEnd >= -TriggerAfter.
	TriggerAfter float64
	// Cooldown is the minimum time between two automatic transitions.
	Cooldown time.Duration
	// SettleDelay separates pause, seek and play commands.
	SettleDelay time.Duration
	// RestartDelay is the pause before the watcher resumes after a transition.
	RestartDelay time.Duration
	// SeekEpsilon places the cursor just inside the target region.
	SeekEpsilon float64
}

// Defaults for Config.
const (
	DefaultWatchInterval = 67 * time.Millisecond
	DefaultTriggerBefore = 0.6
	DefaultTriggerAfter  = 0.1
	DefaultCooldown      = time.Second
	DefaultSettleDelay   = 150 * time.Millisecond
	DefaultRestartDelay  = 100 * time.Millisecond
	DefaultSeekEpsilon   = 0.001
)

func (c Config) withDefaults() Config {
	if c.WatchInterval <= 0 {
		c.WatchInterval = DefaultWatchInterval
	}
	if c.TriggerBefore <= 0 {
		c.TriggerBefore = DefaultTriggerBefore
	}
	if c.TriggerAfter < 0 {
		c.TriggerAfter = 0
	} else if c.TriggerAfter == 0 {
		c.TriggerAfter = DefaultTriggerAfter
	}
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}
	if c.RestartDelay < 0 {
		c.RestartDelay = 0
	}
	if c.SeekEpsilon <= 0 {
		c.SeekEpsilon = DefaultSeekEpsilon
	}
	return c
}

// Observer merges a transport snapshot into the playback state.
type Observer interface {
	Observe(snap daw.TransportSnapshot) playback.State
}

// SetlistNavigator resolves setlist items around a region.
type SetlistNavigator interface {
	ItemForRegion(setlistID, regionID string) (setlist.Item, error)
	NextItem(setlistID, regionID string) (setlist.Item, error)
}

// PreRoller computes the count-in start before a region.
type PreRoller interface {
	PreRollStart(ctx context.Context, regionStart float64) float64
}

// Deps groups the collaborators of an Engine.
type Deps struct {
	Client    daw.Client
	Store     *playback.Store
	Regions   *region.Catalog
	Setlists  SetlistNavigator
	Estimator *tempo.Estimator
	CountIn   PreRoller
	Observer  Observer
	Publisher events.Publisher
	Logger    *slog.Logger
	// TransportPoller, when set, is restarted together with the watcher.
	TransportPoller *poller.Poller

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// SeekOptions control one seek-and-play.
type SeekOptions struct {
	// Autoplay overrides the live autoplay flag when set.
	Autoplay *bool
	// CountIn requests a pre-roll; nil means no count-in.
	CountIn *bool
	// Direct marks an automatic transition during continuous playback.
	Direct bool
	// Action labels the transition on the bus.
	Action string
}

// Engine is the transition state machine.
type Engine struct {
	client    daw.Client
	store     *playback.Store
	regions   *region.Catalog
	setlists  SetlistNavigator
	estimator *tempo.Estimator
	countIn   PreRoller
	observer  Observer
	publisher events.Publisher
	logger    *slog.Logger
	tracer    trace.Tracer
	cfg       Config
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error

	watcher   *poller.Poller
	transport *poller.Poller

	mu             sync.Mutex
	runCtx         context.Context
	transitioning  bool
	lastTransition time.Time
	activeRegionID string
}

// New creates an engine with a stopped watcher.
func New(deps Deps, cfg Config) *Engine {
	e := &Engine{
		client:    deps.Client,
		store:     deps.Store,
		regions:   deps.Regions,
		setlists:  deps.Setlists,
		estimator: deps.Estimator,
		countIn:   deps.CountIn,
		observer:  deps.Observer,
		publisher: deps.Publisher,
		logger:    deps.Logger,
		tracer:    otel.Tracer("github.com/rpggio/setlistd/internal/engine"),
		cfg:       cfg.withDefaults(),
		now:       deps.Now,
		sleep:     deps.Sleep,
		transport: deps.TransportPoller,
	}
	if e.publisher == nil {
		e.publisher = events.Discard{}
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.sleep == nil {
		e.sleep = sleepContext
	}
	e.watcher = poller.New(e.cfg.WatchInterval, e.watch)
	return e
}

// Phase reports the current state of the machine.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	transitioning := e.transitioning
	e.mu.Unlock()
	switch {
	case transitioning:
		return Transitioning
	case e.watcher.Running():
		return ArmedWatching
	default:
		return Idle
	}
}

// ActiveRegionID is the region the engine last moved to.
func (e *Engine) ActiveRegionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeRegionID
}

// Run arms and disarms the watcher from playback state changes until ctx
// is done or the channel closes.
func (e *Engine) Run(ctx context.Context, in <-chan events.Event) {
	e.mu.Lock()
	e.runCtx = ctx
	e.mu.Unlock()
	defer e.watcher.Stop()
	e.syncArming(ctx, e.store.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			if st, isState := ev.Payload.(playback.State); isState && ev.Kind == events.PlaybackStateChanged {
				e.syncArming(ctx, st)
			}
		}
	}
}

func (e *Engine) syncArming(ctx context.Context, st playback.State) {
	e.mu.Lock()
	transitioning := e.transitioning
	e.mu.Unlock()
	if transitioning {
		return
	}
	switch {
	case armed(st) && !e.watcher.Running():
		e.logger.Debug("watcher armed", "setlist_id", st.SelectedSetlistID)
		e.watcher.Start(ctx)
	case !armed(st) && e.watcher.Running():
		e.logger.Debug("watcher disarmed")
		e.watcher.Stop()
	}
}

func armed(st playback.State) bool {
	return st.SelectedSetlistID != "" && st.IsPlaying
}

func (e *Engine) watch(ctx context.Context) {
	if err := e.Tick(ctx); err != nil {
		e.logger.Debug("watcher tick failed", "error", err)
	}
}

// Tick is one high-frequency evaluation: fetch the transport, merge it,
// and transition when the cursor is inside the trigger window.
func (e *Engine) Tick(ctx context.Context) error {
	snap, err := e.client.TransportState(ctx)
	if err != nil {
		return fmt.Errorf("polling transport: %w", err)
	}
	state, ok := e.observe(snap)
	if !ok {
		// A transition owns the transport; its snapshot may predate the seek.
		return nil
	}
	if !armed(state) {
		e.watcher.Stop()
		return nil
	}

	current, ok := e.currentRegion(state)
	if !ok {
		return nil
	}
	directives := e.regions.Directives(current)
	timeToEnd := directives.EffectiveEnd(current) - state.Position
	if timeToEnd >= e.cfg.TriggerBefore || timeToEnd < -e.cfg.TriggerAfter {
		return nil
	}
	if !directives.HardStop {
		if _, err := e.setlists.ItemForRegion(state.SelectedSetlistID, current.ID); err != nil {
			return nil
		}
	}
	if !e.begin(true) {
		return nil
	}
	defer e.finish(e.quiesce(true))

	e.logger.Debug("end of region reached", "region_id", current.ID, "time_to_end", timeToEnd)
	return e.advance(ctx, state, current, directives)
}

func (e *Engine) currentRegion(state playback.State) (region.Region, bool) {
	if state.CurrentRegionID != "" {
		if r, err := e.regions.Get(state.CurrentRegionID); err == nil {
			return r, true
		}
	}
	return e.regions.AtPosition(state.Position)
}

func (e *Engine) advance(ctx context.Context, state playback.State, current region.Region, directives region.Directives) error {
	if directives.HardStop {
		return e.stopAt(ctx, state, current, ActionHardStop)
	}

	item, err := e.setlists.NextItem(state.SelectedSetlistID, current.ID)
	if errors.Is(err, setlist.ErrNoAdjacentItem) {
		return e.stopAt(ctx, state, current, ActionEndOfSetlist)
	}
	if err != nil {
		return e.fail(events.Transition{FromRegionID: current.ID, Action: ActionAdvance, Automatic: true}, fmt.Errorf("resolving next item: %w", err))
	}

	target, err := e.regions.Get(item.RegionID)
	if err != nil {
		return e.fail(events.Transition{FromRegionID: current.ID, ToRegionID: item.RegionID, Action: ActionAdvance, Automatic: true},
			fmt.Errorf("resolving region %s: %w", item.RegionID, err))
	}

	autoplay := state.AutoplayEnabled
	return e.execute(ctx, state, current.ID, target, SeekOptions{Autoplay: &autoplay, Direct: true, Action: ActionAdvance})
}

// stopAt pauses without seeking.
func (e *Engine) stopAt(ctx context.Context, state playback.State, current region.Region, action string) error {
	tr := events.Transition{FromRegionID: current.ID, Action: action, Automatic: true}
	if state.IsPlaying {
		if err := e.client.Pause(ctx); err != nil {
			return e.fail(tr, fmt.Errorf("pausing: %w", err))
		}
		e.store.Apply(playback.Patch{IsPlaying: playback.Some(false)})
	}
	e.logger.Info("playback stopped", "action", action, "region_id", current.ID)
	e.publisher.Publish(events.TransitionCompleted, tr)
	return nil
}

// SeekAndPlay moves to regionID on behalf of an operator. It fails fast
// with ErrTransitionInProgress instead of queuing.
func (e *Engine) SeekAndPlay(ctx context.Context, regionID string, opts SeekOptions) error {
	target, err := e.regions.Get(regionID)
	if err != nil {
		return fmt.Errorf("seeking to region %s: %w", regionID, err)
	}
	if !e.begin(false) {
		return ErrTransitionInProgress
	}
	defer e.finish(e.quiesce(false))

	if opts.Action == "" {
		opts.Action = ActionSeek
	}
	state := e.store.Snapshot()
	return e.execute(ctx, state, state.CurrentRegionID, target, opts)
}

func (e *Engine) execute(ctx context.Context, state playback.State, fromID string, target region.Region, opts SeekOptions) (err error) {
	tr := events.Transition{FromRegionID: fromID, ToRegionID: target.ID, Action: opts.Action, Automatic: opts.Direct}

	ctx, span := e.tracer.Start(ctx, "engine.transition", trace.WithAttributes(
		attribute.String("setlistd.action", opts.Action),
		attribute.String("setlistd.from_region", fromID),
		attribute.String("setlistd.to_region", target.ID),
		attribute.Bool("setlistd.automatic", opts.Direct),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	wasPlaying := state.IsPlaying
	autoplay := state.AutoplayEnabled
	explicitPlay := false
	if opts.Autoplay != nil {
		autoplay = *opts.Autoplay
		explicitPlay = *opts.Autoplay
	}
	countIn := opts.CountIn != nil && *opts.CountIn
	resume := (wasPlaying || explicitPlay) && autoplay

	e.seedTempo(target)

	if opts.Direct && wasPlaying {
		if at, ok := e.regions.AtPosition(state.Position); ok && region.SameID(at.ID, target.ID) {
			e.setActive(target.ID)
			e.store.Apply(playback.Patch{}.WithRegion(target.ID))
			span.SetAttributes(attribute.Bool("setlistd.seek_skipped", true))
			e.logger.Debug("already inside target region, skipping seek", "region_id", target.ID)
			e.publisher.Publish(events.TransitionCompleted, tr)
			return nil
		}
	}

	if wasPlaying {
		if err := e.client.Pause(ctx); err != nil {
			return e.fail(tr, fmt.Errorf("pausing: %w", err))
		}
		if err := e.sleep(ctx, e.cfg.SettleDelay); err != nil {
			return e.fail(tr, err)
		}
	}

	position := target.Start + e.cfg.SeekEpsilon
	if countIn && e.countIn != nil {
		position = e.countIn.PreRollStart(ctx, target.Start)
	}
	if err := e.client.Seek(ctx, position); err != nil {
		return e.fail(tr, fmt.Errorf("seeking to %.3f: %w", position, err))
	}
	e.setActive(target.ID)
	e.store.Apply(playback.Patch{
		Position:  playback.Some(position),
		IsPlaying: playback.Some(false),
	}.WithRegion(target.ID))

	if resume {
		if err := e.sleep(ctx, e.cfg.SettleDelay); err != nil {
			return e.fail(tr, err)
		}
		play := e.client.Play
		if countIn {
			play = e.client.PlayWithCountIn
		}
		if err := play(ctx); err != nil {
			return e.fail(tr, fmt.Errorf("resuming playback: %w", err))
		}
		e.store.Apply(playback.Patch{IsPlaying: playback.Some(true)})
	}

	e.logger.Info("transition complete", "action", opts.Action, "from", fromID, "to", target.ID, "position", position, "playing", resume)
	e.publisher.Publish(events.TransitionCompleted, tr)
	return nil
}

// seedTempo starts a fresh tempo history for the target, seeded from its
// !bpm marker when present.
func (e *Engine) seedTempo(target region.Region) {
	if e.estimator == nil {
		return
	}
	e.estimator.Reset(e.regions.Directives(target).BPM)
}

// observe merges snap unless a transition holds the guard.
func (e *Engine) observe(snap daw.TransportSnapshot) (playback.State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.transitioning {
		return playback.State{}, false
	}
	return e.observer.Observe(snap), true
}

// held records which loops were running when a transition took the guard.
type held struct {
	watcher   bool
	transport bool
}

// quiesce stops both loops for the duration of a transition. The transport
// poller is drained so no tick in flight merges pre-seek state. An
// automatic transition runs on the watcher itself, which is therefore
// already idle and must keep its context until the choreography ends.
func (e *Engine) quiesce(automatic bool) held {
	h := held{watcher: e.watcher.Running()}
	if e.transport != nil && e.transport.Running() {
		h.transport = true
		e.transport.Stop()
		e.transport.Wait()
	}
	if !automatic {
		e.watcher.Stop()
	}
	return h
}

func (e *Engine) fail(tr events.Transition, err error) error {
	tr.Reason = err.Error()
	e.logger.Warn("transition failed", "action", tr.Action, "to", tr.ToRegionID, "error", err)
	e.publisher.Publish(events.TransitionFailed, tr)
	return err
}

// begin takes the guard. Automatic transitions also honour the cooldown.
func (e *Engine) begin(automatic bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.transitioning {
		return false
	}
	now := e.now()
	if automatic && !e.lastTransition.IsZero() && now.Sub(e.lastTransition) < e.cfg.Cooldown {
		return false
	}
	e.transitioning = true
	e.lastTransition = now
	return true
}

// finish releases the guard, restarts the loops stopped by quiesce and
// re-evaluates arming, since state events seen while the guard was held
// were ignored.
func (e *Engine) finish(h held) {
	e.mu.Lock()
	e.transitioning = false
	runCtx := e.runCtx
	e.mu.Unlock()

	if h.transport {
		e.transport.Restart(e.cfg.RestartDelay)
	}
	switch {
	case !armed(e.store.Snapshot()):
		e.watcher.Stop()
	case runCtx != nil:
		e.watcher.StartAfter(runCtx, e.cfg.RestartDelay)
	case h.watcher:
		e.watcher.Restart(e.cfg.RestartDelay)
	}
}

func (e *Engine) setActive(id string) {
	e.mu.Lock()
	e.activeRegionID = id
	e.mu.Unlock()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
