package project

import "context"

// Repository provides persistence for known projects.
type Repository interface {
	Upsert(ctx context.Context, proj *Project) error
	Get(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context) ([]ProjectSummary, error)
}

// ExtState reads and writes the DAW project's extended state.
type ExtState interface {
	ProjectExtState(ctx context.Context, section, key string) (string, error)
	SetProjectExtState(ctx context.Context, section, key, value string) error
}
