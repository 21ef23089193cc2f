package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/setlistd/internal/domain/project"
	"github.com/rpggio/setlistd/internal/domain/setlist"
	"github.com/rpggio/setlistd/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestProjectRepository_UpsertAndGet(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	first := time.Date(2025, 5, 1, 19, 0, 0, 0, time.UTC)
	proj := &project.Project{ID: "p1", Name: "Club Gig", FirstSeen: first, LastSeen: first}
	require.NoError(t, repo.Upsert(ctx, proj))

	later := first.Add(48 * time.Hour)
	require.NoError(t, repo.Upsert(ctx, &project.Project{ID: "p1", Name: "Club Gig II", FirstSeen: later, LastSeen: later}))

	retrieved, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "Club Gig II", retrieved.Name)
	require.True(t, retrieved.FirstSeen.Equal(first))
	require.True(t, retrieved.LastSeen.Equal(later))
}

func TestProjectRepository_GetNotFound(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)

	_, err := repo.Get(context.Background(), "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProjectRepository_ListCountsSetlists(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	setlists := NewSetlistRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repo.Upsert(ctx, &project.Project{ID: "p1", Name: "Old", FirstSeen: now, LastSeen: now.Add(-time.Hour)}))
	require.NoError(t, repo.Upsert(ctx, &project.Project{ID: "p2", Name: "New", FirstSeen: now, LastSeen: now}))
	require.NoError(t, setlists.Save(ctx, "p1", &setlist.Document{
		Setlists:    []setlist.Setlist{{ID: "s1", Name: "A"}, {ID: "s2", Name: "B"}},
		LastUpdated: now,
	}))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "p2", list[0].ID)
	require.Equal(t, 0, list[0].SetlistCount)
	require.Equal(t, "p1", list[1].ID)
	require.Equal(t, 2, list[1].SetlistCount)
}
