package mcp

import (
	"context"
	"log/slog"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/setlistd/internal/domain/activity"
	"github.com/rpggio/setlistd/internal/domain/playback"
	"github.com/rpggio/setlistd/internal/domain/project"
	"github.com/rpggio/setlistd/internal/domain/region"
	"github.com/rpggio/setlistd/internal/domain/setlist"
	"github.com/rpggio/setlistd/internal/navigation"
)

// NavigationService defines the playback operations exposed over MCP.
type NavigationService interface {
	State() playback.State
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	TogglePlay(ctx context.Context) (playback.State, error)
	SeekToRegion(ctx context.Context, regionID string, opts navigation.SeekOptions) error
	SelectSetlist(ctx context.Context, id string) error
	SetAutoplay(enabled bool) playback.State
	SetCountIn(enabled bool) playback.State
}

// RegionCatalog defines region lookups needed by MCP.
type RegionCatalog interface {
	All() []region.Region
	Markers() []region.Marker
	Get(id string) (region.Region, error)
	Directives(r region.Region) region.Directives
}

// SetlistService defines setlist operations needed by MCP.
type SetlistService interface {
	All() []setlist.Setlist
	Get(id string) (setlist.Setlist, error)
	Create(ctx context.Context, name string) (*setlist.Setlist, error)
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
	AddItem(ctx context.Context, setlistID, regionID, name string) (*setlist.Item, error)
	RemoveItem(ctx context.Context, setlistID, itemID string) error
	MoveItem(ctx context.Context, setlistID string, from, to int) error
}

// ProjectService defines project operations needed by MCP.
type ProjectService interface {
	List(ctx context.Context) ([]project.ProjectSummary, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// StatusProvider reports engine and connectivity status.
type StatusProvider interface {
	Phase() string
	Degraded() bool
	ProjectID() string
}

// Services contains all domain services needed by MCP.
type Services struct {
	Navigation NavigationService
	Regions    RegionCatalog
	Setlists   SetlistService
	Projects   ProjectService
	Activity   ActivityService
	Status     StatusProvider
}

// Config contains server configuration.
type Config struct {
	Services Services
	// ToolTimeout bounds a single tool call; zero uses DefaultToolTimeout.
	ToolTimeout time.Duration
	Version     string
	Logger      *slog.Logger
}

// DefaultToolTimeout bounds tool calls that reach the DAW.
const DefaultToolTimeout = 10 * time.Second

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = DefaultToolTimeout
	}
	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "setlistd",
		Version: cfg.Version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)
	registerStateResource(server, cfg.Services)

	server.AddReceivingMiddleware(recoverMiddleware(cfg.Logger))
	server.AddReceivingMiddleware(toolTimeoutMiddleware(cfg.ToolTimeout))
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Services)

	return server
}
