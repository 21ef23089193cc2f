// Package app wires the playback core, persistence, operator API and MIDI
// input into one runnable unit.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/setlistd/internal/config"
	"github.com/rpggio/setlistd/internal/daw"
	"github.com/rpggio/setlistd/internal/domain/activity"
	"github.com/rpggio/setlistd/internal/domain/playback"
	"github.com/rpggio/setlistd/internal/domain/project"
	"github.com/rpggio/setlistd/internal/domain/region"
	"github.com/rpggio/setlistd/internal/domain/setlist"
	"github.com/rpggio/setlistd/internal/engine"
	"github.com/rpggio/setlistd/internal/events"
	"github.com/rpggio/setlistd/internal/mcp"
	"github.com/rpggio/setlistd/internal/midi"
	"github.com/rpggio/setlistd/internal/navigation"
	"github.com/rpggio/setlistd/internal/poller"
	"github.com/rpggio/setlistd/internal/reaper"
	"github.com/rpggio/setlistd/internal/reconcile"
	"github.com/rpggio/setlistd/internal/sqlite"
	"github.com/rpggio/setlistd/internal/tempo"
	"github.com/rpggio/setlistd/internal/transport"
	"golang.org/x/sync/errgroup"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// Options are the external inputs of an App.
type Options struct {
	Config config.Config
	DB     *sqlite.DB
	// Client overrides the REAPER client built from Config.DAW.
	Client daw.Client
	// MIDIDriver is nil when MIDI support is not compiled in.
	MIDIDriver midi.Driver
	Logger     *slog.Logger
}

// App is a fully wired setlistd instance.
type App struct {
	Bus        *events.Bus
	Store      *playback.Store
	Regions    *region.Catalog
	Setlists   *setlist.Service
	Projects   *project.Service
	Activity   *activity.Service
	Reconciler *reconcile.Reconciler
	Engine     *engine.Engine
	Navigation *navigation.Facade
	MCP        *sdkmcp.Server

	cfg        config.Config
	logger     *slog.Logger
	transport  *poller.Poller
	recorder   *activity.Recorder
	dispatcher *midi.Dispatcher
	listener   *midi.Listener

	mu     sync.Mutex
	runCtx context.Context
}

// New builds an App. It does not touch the DAW until Run.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.DB == nil {
		return nil, fmt.Errorf("database is required")
	}

	client := opts.Client
	if client == nil {
		client = reaper.New(cfg.DAW.URL,
			reaper.WithTimeout(cfg.DAW.Timeout),
			reaper.WithCountInCommand(cfg.CountIn.Command),
			reaper.WithLogger(logger.With("component", "reaper")),
		)
	}

	a := &App{cfg: cfg, logger: logger}
	a.Bus = events.NewBus()
	a.Store = playback.NewStore(a.Bus)
	a.Regions = region.NewCatalog(a.Bus)
	estimator := tempo.NewEstimator()

	a.Projects = project.NewService(sqlite.NewProjectRepository(opts.DB), client, logger.With("component", "project"))
	a.Setlists = setlist.NewService(sqlite.NewSetlistRepository(opts.DB), a.Bus, logger.With("component", "setlist"))
	a.Activity = activity.NewService(sqlite.NewActivityRepository(opts.DB), logger.With("component", "activity"))

	a.Reconciler = reconcile.New(reconcile.Deps{
		Client:    client,
		Store:     a.Store,
		Regions:   a.Regions,
		Estimator: estimator,
		Projects:  a.Projects,
		Setlists:  a.Setlists,
		Publisher: a.Bus,
		Logger:    logger.With("component", "reconcile"),
	}, reconcile.Config{
		FailureThreshold: cfg.Polling.FailureThreshold,
		RegionInterval:   cfg.Polling.RegionInterval,
	})
	a.transport = poller.New(cfg.Polling.TransportInterval, a.Reconciler.Poll)

	a.Engine = engine.New(engine.Deps{
		Client:          client,
		Store:           a.Store,
		Regions:         a.Regions,
		Setlists:        a.Setlists,
		Estimator:       estimator,
		CountIn:         tempo.NewCountIn(client, estimator, logger.With("component", "countin")),
		Observer:        a.Reconciler,
		Publisher:       a.Bus,
		Logger:          logger.With("component", "engine"),
		TransportPoller: a.transport,
	}, engine.Config{
		WatchInterval: cfg.Transition.WatchInterval,
		TriggerBefore: cfg.Transition.TriggerBefore,
		TriggerAfter:  cfg.Transition.TriggerAfter,
		Cooldown:      cfg.Transition.Cooldown,
		SettleDelay:   cfg.Transition.SettleDelay,
		RestartDelay:  cfg.Transition.RestartDelay,
	})

	a.Navigation = navigation.NewFacade(a.Store, a.Regions, a.Setlists, a.Engine, client, logger.With("component", "navigation"))
	a.recorder = activity.NewRecorder(a.Activity, a.Reconciler.ProjectID)

	a.MCP = mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Navigation: a.Navigation,
			Regions:    a.Regions,
			Setlists:   a.Setlists,
			Projects:   a.Projects,
			Activity:   a.Activity,
			Status:     status{engine: a.Engine, reconciler: a.Reconciler},
		},
		Version: Version,
		Logger:  logger.With("component", "mcp"),
	})

	if cfg.MIDI.Enabled {
		dispatcher, err := midi.NewDispatcher(a.Navigation, cfg.MIDI.Mappings, midi.NewDebouncer(cfg.MIDI.Debounce), logger.With("component", "midi"))
		if err != nil {
			return nil, fmt.Errorf("midi mappings: %w", err)
		}
		a.dispatcher = dispatcher
		if opts.MIDIDriver == nil {
			logger.Warn("midi enabled but no driver is available in this build")
		} else {
			a.listener = midi.NewListener(opts.MIDIDriver, cfg.MIDI.Devices, a.onNote, logger.With("component", "midi"))
		}
	}

	return a, nil
}

// Run starts the background loops and blocks until ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	a.mu.Lock()
	a.runCtx = ctx
	a.mu.Unlock()

	engineEvents, unsubEngine := a.Bus.Subscribe(64)
	defer unsubEngine()
	activityEvents, unsubActivity := a.Bus.Subscribe(256)
	defer unsubActivity()

	g.Go(func() error {
		a.Engine.Run(ctx, engineEvents)
		return nil
	})
	g.Go(func() error {
		a.recorder.Run(ctx, activityEvents)
		return nil
	})

	// First reconciliation runs immediately so the API has state to report.
	a.Reconciler.Poll(ctx)
	a.transport.Start(ctx)
	g.Go(func() error {
		<-ctx.Done()
		a.transport.Stop()
		return nil
	})

	if a.listener != nil {
		names, err := a.listener.Open()
		if err != nil {
			a.logger.Warn("midi unavailable", "error", err)
		} else {
			a.logger.Info("midi listening", "inputs", len(names), "mappings", a.dispatcher.Mapped())
			g.Go(func() error {
				<-ctx.Done()
				a.listener.Close()
				return nil
			})
		}
	}

	return g.Wait()
}

// HTTPHandler serves the operator API and health. An empty token disables
// auth.
func (a *App) HTTPHandler(token string) http.Handler {
	var auth func(http.Handler) http.Handler
	if token != "" {
		auth = transport.AuthMiddleware(transport.StaticToken(token))
	}
	return transport.NewHandler(a.MCP, auth, a.Health)
}

// Health summarises DAW connectivity and engine phase.
func (a *App) Health() transport.Health {
	h := transport.Health{
		Status:    "ok",
		DAW:       "ok",
		Phase:     a.Engine.Phase().String(),
		ProjectID: a.Reconciler.ProjectID(),
	}
	if a.Reconciler.Degraded() {
		h.DAW = "degraded"
	}
	return h
}

// HandleNoteOn feeds a note that arrived at at to the MIDI dispatcher, if
// configured, and waits for its action.
func (a *App) HandleNoteOn(ctx context.Context, note uint8, at time.Time) (bool, error) {
	if a.dispatcher == nil {
		return false, nil
	}
	return a.dispatcher.HandleNoteOn(ctx, note, at)
}

// onNote runs on the MIDI driver's goroutine. Debouncing happens here
// against the arrival time; the action runs on its own goroutine because
// the driver must not block on the transition choreography.
func (a *App) onNote(note uint8, at time.Time) {
	action, ok := a.dispatcher.Accept(note, at)
	if !ok {
		return
	}
	ctx := a.runContext()
	go func() {
		_ = a.dispatcher.Dispatch(ctx, note, action)
	}()
}

// runContext is the context of the running App, cancelled on shutdown.
func (a *App) runContext() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runCtx == nil {
		return context.Background()
	}
	return a.runCtx
}

type status struct {
	engine     *engine.Engine
	reconciler *reconcile.Reconciler
}

func (s status) Phase() string     { return s.engine.Phase().String() }
func (s status) Degraded() bool    { return s.reconciler.Degraded() }
func (s status) ProjectID() string { return s.reconciler.ProjectID() }
