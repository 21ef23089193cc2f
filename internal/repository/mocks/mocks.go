package mocks

import (
	"context"

	"github.com/rpggio/setlistd/internal/daw"
	"github.com/rpggio/setlistd/internal/domain/activity"
	"github.com/rpggio/setlistd/internal/domain/project"
	"github.com/rpggio/setlistd/internal/domain/setlist"
	"github.com/stretchr/testify/mock"
)

// ProjectRepository is a mock for project.Repository.
type ProjectRepository struct {
	mock.Mock
}

func (m *ProjectRepository) Upsert(ctx context.Context, proj *project.Project) error {
	args := m.Called(ctx, proj)
	return args.Error(0)
}

func (m *ProjectRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	args := m.Called(ctx, id)
	if proj, ok := args.Get(0).(*project.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) List(ctx context.Context) ([]project.ProjectSummary, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]project.ProjectSummary); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// SetlistRepository is a mock for setlist.Repository.
type SetlistRepository struct {
	mock.Mock
}

func (m *SetlistRepository) Load(ctx context.Context, projectID string) (*setlist.Document, error) {
	args := m.Called(ctx, projectID)
	if doc, ok := args.Get(0).(*setlist.Document); ok && doc != nil {
		return doc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SetlistRepository) Save(ctx context.Context, projectID string, doc *setlist.Document) error {
	args := m.Called(ctx, projectID, doc)
	return args.Error(0)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// DAWClient is a mock for daw.Client.
type DAWClient struct {
	mock.Mock
}

func (m *DAWClient) TransportState(ctx context.Context) (daw.TransportSnapshot, error) {
	args := m.Called(ctx)
	return args.Get(0).(daw.TransportSnapshot), args.Error(1)
}

func (m *DAWClient) BeatPosition(ctx context.Context) (daw.BeatPosition, error) {
	args := m.Called(ctx)
	return args.Get(0).(daw.BeatPosition), args.Error(1)
}

func (m *DAWClient) TimeSignature(ctx context.Context) (daw.TimeSignature, error) {
	args := m.Called(ctx)
	return args.Get(0).(daw.TimeSignature), args.Error(1)
}

func (m *DAWClient) Seek(ctx context.Context, position float64) error {
	args := m.Called(ctx, position)
	return args.Error(0)
}

func (m *DAWClient) Play(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *DAWClient) Pause(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *DAWClient) PlayWithCountIn(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *DAWClient) Regions(ctx context.Context) ([]daw.RegionInfo, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]daw.RegionInfo); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DAWClient) Markers(ctx context.Context) ([]daw.MarkerInfo, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]daw.MarkerInfo); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DAWClient) ProjectExtState(ctx context.Context, section, key string) (string, error) {
	args := m.Called(ctx, section, key)
	return args.String(0), args.Error(1)
}

func (m *DAWClient) SetProjectExtState(ctx context.Context, section, key, value string) error {
	args := m.Called(ctx, section, key, value)
	return args.Error(0)
}
