package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/setlistd/internal/repository"
)

// Extended state location of the project identity.
const (
	ExtStateSection = "setlistd"
	ExtStateIDKey   = "project_id"
	ExtStateNameKey = "project_name"
)

// Service handles project identity.
type Service struct {
	repo   Repository
	state  ExtState
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new project service.
func NewService(repo Repository, state ExtState, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, state: state, logger: logger, now: time.Now}
}

// Resolve identifies the project open in the DAW, stamping a new id into
// its extended state when it has none, and records it as seen.
func (s *Service) Resolve(ctx context.Context) (*Project, error) {
	id, err := s.state.ProjectExtState(ctx, ExtStateSection, ExtStateIDKey)
	if err != nil {
		return nil, fmt.Errorf("reading project id: %w", err)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
		if err := s.state.SetProjectExtState(ctx, ExtStateSection, ExtStateIDKey, id); err != nil {
			return nil, fmt.Errorf("writing project id: %w", err)
		}
		s.logger.Info("assigned project id", "project_id", id)
	}

	name, err := s.state.ProjectExtState(ctx, ExtStateSection, ExtStateNameKey)
	if err != nil {
		s.logger.Debug("project name unavailable", "error", err)
		name = ""
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Project " + shortID(id)
	}

	now := s.now().UTC()
	proj := &Project{ID: id, Name: name, FirstSeen: now, LastSeen: now}
	existing, err := s.repo.Get(ctx, id)
	switch {
	case err == nil:
		proj.FirstSeen = existing.FirstSeen
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("getting project: %w", err)
	}

	if err := s.repo.Upsert(ctx, proj); err != nil {
		return nil, fmt.Errorf("saving project: %w", err)
	}
	return proj, nil
}

// Rename stores a display name in the DAW project and the local record.
func (s *Service) Rename(ctx context.Context, id, name string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}
	proj, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.state.SetProjectExtState(ctx, ExtStateSection, ExtStateNameKey, name); err != nil {
		return nil, fmt.Errorf("writing project name: %w", err)
	}
	proj.Name = name
	if err := s.repo.Upsert(ctx, proj); err != nil {
		return nil, fmt.Errorf("saving project: %w", err)
	}
	return proj, nil
}

// Get fetches a project by ID.
func (s *Service) Get(ctx context.Context, id string) (*Project, error) {
	proj, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("getting project: %w", err)
	}
	return proj, nil
}

// List returns project summaries.
func (s *Service) List(ctx context.Context) ([]ProjectSummary, error) {
	return s.repo.List(ctx)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
