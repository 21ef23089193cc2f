package setlist_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rpggio/setlistd/internal/domain/setlist"
	"github.com/rpggio/setlistd/internal/events"
	"github.com/rpggio/setlistd/internal/repository"
	"github.com/rpggio/setlistd/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func loadedService(t *testing.T, doc *setlist.Document) (*setlist.Service, *mocks.SetlistRepository) {
	t.Helper()
	ctx := context.Background()
	repo := &mocks.SetlistRepository{}
	if doc == nil {
		repo.On("Load", ctx, "proj1").Return((*setlist.Document)(nil), repository.ErrNotFound)
	} else {
		repo.On("Load", ctx, "proj1").Return(doc, nil)
	}
	svc := setlist.NewService(repo, nil, nil)
	_, err := svc.Load(ctx, "proj1")
	require.NoError(t, err)
	return svc, repo
}

func threeItemDoc() *setlist.Document {
	return &setlist.Document{
		SelectedSetlistID: "s1",
		Setlists: []setlist.Setlist{{
			ID:   "s1",
			Name: "Friday",
			Items: []setlist.Item{
				{ID: "a", RegionID: "1", Name: "A", Position: 0},
				{ID: "b", RegionID: "2", Name: "B", Position: 1},
				{ID: "c", RegionID: "3", Name: "C", Position: 2},
			},
		}},
	}
}

func requireDense(t *testing.T, sl setlist.Setlist) {
	t.Helper()
	for i, item := range sl.Items {
		require.Equal(t, i, item.Position, "item %s", item.ID)
	}
}

func itemIDs(sl setlist.Setlist) []string {
	ids := make([]string, len(sl.Items))
	for i, item := range sl.Items {
		ids[i] = item.ID
	}
	return ids
}

func TestSetlistService_LoadMissingDocumentStartsEmpty(t *testing.T) {
	svc, _ := loadedService(t, nil)
	require.Empty(t, svc.All())
	_, ok := svc.Selected()
	require.False(t, ok)
	require.Equal(t, "proj1", svc.ProjectID())
}

func TestSetlistService_LoadDropsStaleSelection(t *testing.T) {
	doc := threeItemDoc()
	doc.SelectedSetlistID = "gone"
	svc, _ := loadedService(t, doc)
	_, ok := svc.Selected()
	require.False(t, ok)
}

func TestSetlistService_MoveItemKeepsPositionsDense(t *testing.T) {
	svc, repo := loadedService(t, threeItemDoc())
	ctx := context.Background()
	repo.On("Save", ctx, "proj1", mock.Anything).Return(nil)

	moves := [][2]int{{0, 2}, {2, 0}, {1, 1}, {2, 1}}
	for _, m := range moves {
		require.NoError(t, svc.MoveItem(ctx, "s1", m[0], m[1]))
		sl, err := svc.Get("s1")
		require.NoError(t, err)
		require.Len(t, sl.Items, 3)
		requireDense(t, sl)
	}

	sl, _ := svc.Get("s1")
	require.Equal(t, []string{"a", "c", "b"}, itemIDs(sl))
}

func TestSetlistService_MoveItemOutOfRange(t *testing.T) {
	svc, repo := loadedService(t, threeItemDoc())
	ctx := context.Background()

	err := svc.MoveItem(ctx, "s1", 0, 3)
	require.ErrorIs(t, err, setlist.ErrInvalidPosition)
	err = svc.MoveItem(ctx, "s1", -1, 0)
	require.ErrorIs(t, err, setlist.ErrInvalidPosition)

	sl, _ := svc.Get("s1")
	require.Equal(t, []string{"a", "b", "c"}, itemIDs(sl))
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestSetlistService_SaveFailureLeavesCatalogUntouched(t *testing.T) {
	svc, repo := loadedService(t, threeItemDoc())
	ctx := context.Background()
	repo.On("Save", ctx, "proj1", mock.Anything).Return(errors.New("disk full"))

	err := svc.RemoveItem(ctx, "s1", "b")
	require.Error(t, err)

	sl, _ := svc.Get("s1")
	require.Equal(t, []string{"a", "b", "c"}, itemIDs(sl))
}

func TestSetlistService_CreateAddRemove(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.SetlistRepository{}
	repo.On("Load", ctx, "proj1").Return((*setlist.Document)(nil), repository.ErrNotFound)
	repo.On("Save", ctx, "proj1", mock.Anything).Return(nil)

	bus := events.NewBus()
	ch, unsub := bus.Subscribe(16)
	defer unsub()

	svc := setlist.NewService(repo, bus, nil)
	_, err := svc.Load(ctx, "proj1")
	require.NoError(t, err)

	sl, err := svc.Create(ctx, "  Saturday ")
	require.NoError(t, err)
	require.Equal(t, "Saturday", sl.Name)
	require.Equal(t, "proj1", sl.ProjectID)

	first, err := svc.AddItem(ctx, sl.ID, "4", "Opener")
	require.NoError(t, err)
	second, err := svc.AddItem(ctx, sl.ID, "7", "Closer")
	require.NoError(t, err)
	require.Equal(t, 1, second.Position)

	require.NoError(t, svc.RemoveItem(ctx, sl.ID, first.ID))
	got, err := svc.Get(sl.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	requireDense(t, got)

	require.ErrorIs(t, svc.RemoveItem(ctx, sl.ID, "nope"), setlist.ErrItemNotFound)

	kinds := 0
	for len(ch) > 0 {
		ev := <-ch
		require.Equal(t, events.SetlistsChanged, ev.Kind)
		kinds++
	}
	require.Equal(t, 5, kinds)
}

func TestSetlistService_Validation(t *testing.T) {
	svc, _ := loadedService(t, threeItemDoc())
	ctx := context.Background()

	_, err := svc.Create(ctx, " ")
	require.ErrorIs(t, err, setlist.ErrInvalidInput)
	require.ErrorIs(t, svc.Rename(ctx, "s1", ""), setlist.ErrInvalidInput)
	_, err = svc.AddItem(ctx, "s1", "", "x")
	require.ErrorIs(t, err, setlist.ErrInvalidInput)
	require.ErrorIs(t, svc.Delete(ctx, "missing"), setlist.ErrSetlistNotFound)
	require.ErrorIs(t, svc.SetSelected(ctx, "missing"), setlist.ErrSetlistNotFound)
}

func TestSetlistService_MutationWithoutProject(t *testing.T) {
	svc := setlist.NewService(&mocks.SetlistRepository{}, nil, nil)
	_, err := svc.Create(context.Background(), "x")
	require.ErrorIs(t, err, setlist.ErrNoProject)
}

func TestSetlistService_DeleteSelectedClearsSelection(t *testing.T) {
	svc, repo := loadedService(t, threeItemDoc())
	ctx := context.Background()
	repo.On("Save", ctx, "proj1", mock.MatchedBy(func(doc *setlist.Document) bool {
		return doc.SelectedSetlistID == "" && len(doc.Setlists) == 0
	})).Return(nil)

	require.NoError(t, svc.Delete(ctx, "s1"))
	_, ok := svc.Selected()
	require.False(t, ok)
	repo.AssertExpectations(t)
}

func TestSetlistService_Neighbours(t *testing.T) {
	svc, _ := loadedService(t, threeItemDoc())

	item, err := svc.NextItem("s1", "1.0")
	require.NoError(t, err)
	require.Equal(t, "b", item.ID)

	item, err = svc.PreviousItem("s1", "3")
	require.NoError(t, err)
	require.Equal(t, "b", item.ID)

	_, err = svc.NextItem("s1", "3")
	require.ErrorIs(t, err, setlist.ErrNoAdjacentItem)
	_, err = svc.PreviousItem("s1", "1")
	require.ErrorIs(t, err, setlist.ErrNoAdjacentItem)

	item, err = svc.NextItem("s1", "99")
	require.NoError(t, err)
	require.Equal(t, "a", item.ID)
	_, err = svc.PreviousItem("s1", "99")
	require.ErrorIs(t, err, setlist.ErrItemNotFound)

	item, err = svc.ItemForRegion("s1", " 2")
	require.NoError(t, err)
	require.Equal(t, "b", item.ID)

	first, err := svc.FirstItem("s1")
	require.NoError(t, err)
	require.Equal(t, "a", first.ID)
}
