package setlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/setlistd/internal/domain/region"
	"github.com/rpggio/setlistd/internal/events"
	"github.com/rpggio/setlistd/internal/repository"
)

// Service holds the setlists of the active project and persists every
// mutation before announcing it.
type Service struct {
	repo      Repository
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time

	mu        sync.RWMutex
	projectID string
	setlists  []Setlist
	selected  string
}

// NewService creates a new setlist service.
func NewService(repo Repository, publisher events.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.Discard{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, publisher: publisher, logger: logger, now: time.Now}
}

// Load replaces the catalog with the persisted document of projectID. A
// project without a document starts empty.
func (s *Service) Load(ctx context.Context, projectID string) (*Document, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, ErrInvalidInput
	}
	doc, err := s.repo.Load(ctx, projectID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("loading setlists: %w", err)
		}
		doc = &Document{}
	}

	setlists := cloneAll(doc.Setlists)
	for i := range setlists {
		setlists[i].ProjectID = projectID
		setlists[i].renumber()
	}
	selected := doc.SelectedSetlistID
	if selected != "" && indexOf(setlists, selected) < 0 {
		s.logger.Warn("dropping stale setlist selection", "project_id", projectID, "setlist_id", selected)
		selected = ""
	}

	s.mu.Lock()
	s.projectID = projectID
	s.setlists = setlists
	s.selected = selected
	s.mu.Unlock()

	s.publisher.Publish(events.SetlistsChanged, cloneAll(setlists))
	return &Document{Setlists: cloneAll(setlists), SelectedSetlistID: selected, LastUpdated: doc.LastUpdated}, nil
}

// ProjectID returns the project whose setlists are loaded.
func (s *Service) ProjectID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projectID
}

// All returns every setlist.
func (s *Service) All() []Setlist {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.setlists)
}

// Get fetches a setlist by ID.
func (s *Service) Get(id string) (Setlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := indexOf(s.setlists, id)
	if i < 0 {
		return Setlist{}, ErrSetlistNotFound
	}
	return s.setlists[i].clone(), nil
}

// Selected returns the persisted selection, if any.
func (s *Service) Selected() (Setlist, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := indexOf(s.setlists, s.selected)
	if i < 0 {
		return Setlist{}, false
	}
	return s.setlists[i].clone(), true
}

// ItemForRegion returns the first item of the setlist referencing regionID.
func (s *Service) ItemForRegion(setlistID, regionID string) (Item, error) {
	sl, err := s.Get(setlistID)
	if err != nil {
		return Item{}, err
	}
	if i := itemIndexForRegion(sl, regionID); i >= 0 {
		return sl.Items[i], nil
	}
	return Item{}, ErrItemNotFound
}

// FirstItem returns the opening item of a setlist.
func (s *Service) FirstItem(setlistID string) (Item, error) {
	sl, err := s.Get(setlistID)
	if err != nil {
		return Item{}, err
	}
	if len(sl.Items) == 0 {
		return Item{}, ErrItemNotFound
	}
	return sl.Items[0], nil
}

// NextItem returns the item after the one playing regionID. When the region
// is not part of the setlist the first item is returned.
func (s *Service) NextItem(setlistID, regionID string) (Item, error) {
	sl, err := s.Get(setlistID)
	if err != nil {
		return Item{}, err
	}
	i := itemIndexForRegion(sl, regionID)
	if i < 0 {
		if len(sl.Items) == 0 {
			return Item{}, ErrItemNotFound
		}
		return sl.Items[0], nil
	}
	if i+1 >= len(sl.Items) {
		return Item{}, ErrNoAdjacentItem
	}
	return sl.Items[i+1], nil
}

// PreviousItem returns the item before the one playing regionID.
func (s *Service) PreviousItem(setlistID, regionID string) (Item, error) {
	sl, err := s.Get(setlistID)
	if err != nil {
		return Item{}, err
	}
	i := itemIndexForRegion(sl, regionID)
	if i < 0 {
		return Item{}, ErrItemNotFound
	}
	if i == 0 {
		return Item{}, ErrNoAdjacentItem
	}
	return sl.Items[i-1], nil
}

// Create adds an empty setlist.
func (s *Service) Create(ctx context.Context, name string) (*Setlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}
	var created Setlist
	err := s.mutate(ctx, func(projectID string, setlists []Setlist, selected *string) ([]Setlist, error) {
		created = Setlist{ID: uuid.NewString(), Name: name, ProjectID: projectID, Items: []Item{}}
		return append(setlists, created), nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Rename changes a setlist's name.
func (s *Service) Rename(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidInput
	}
	return s.mutate(ctx, func(_ string, setlists []Setlist, _ *string) ([]Setlist, error) {
		i := indexOf(setlists, id)
		if i < 0 {
			return nil, ErrSetlistNotFound
		}
		setlists[i].Name = name
		return setlists, nil
	})
}

// Delete removes a setlist. Deleting the selected setlist clears the selection.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, func(_ string, setlists []Setlist, selected *string) ([]Setlist, error) {
		i := indexOf(setlists, id)
		if i < 0 {
			return nil, ErrSetlistNotFound
		}
		if *selected == id {
			*selected = ""
		}
		return append(setlists[:i], setlists[i+1:]...), nil
	})
}

// AddItem appends a region to a setlist. An empty name is allowed; the
// caller usually passes the region name.
func (s *Service) AddItem(ctx context.Context, setlistID, regionID, name string) (*Item, error) {
	if strings.TrimSpace(regionID) == "" {
		return nil, ErrInvalidInput
	}
	var added Item
	err := s.mutate(ctx, func(_ string, setlists []Setlist, _ *string) ([]Setlist, error) {
		i := indexOf(setlists, setlistID)
		if i < 0 {
			return nil, ErrSetlistNotFound
		}
		added = Item{ID: uuid.NewString(), RegionID: strings.TrimSpace(regionID), Name: name, Position: len(setlists[i].Items)}
		setlists[i].Items = append(setlists[i].Items, added)
		return setlists, nil
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}

// RemoveItem drops an item and renumbers the rest.
func (s *Service) RemoveItem(ctx context.Context, setlistID, itemID string) error {
	return s.mutate(ctx, func(_ string, setlists []Setlist, _ *string) ([]Setlist, error) {
		i := indexOf(setlists, setlistID)
		if i < 0 {
			return nil, ErrSetlistNotFound
		}
		items := setlists[i].Items
		for j := range items {
			if items[j].ID == itemID {
				setlists[i].Items = append(items[:j], items[j+1:]...)
				setlists[i].renumber()
				return setlists, nil
			}
		}
		return nil, ErrItemNotFound
	})
}

// MoveItem moves the item at index from to index to. Every item's position
// equals its index afterwards.
func (s *Service) MoveItem(ctx context.Context, setlistID string, from, to int) error {
	return s.mutate(ctx, func(_ string, setlists []Setlist, _ *string) ([]Setlist, error) {
		i := indexOf(setlists, setlistID)
		if i < 0 {
			return nil, ErrSetlistNotFound
		}
		items := setlists[i].Items
		if from < 0 || from >= len(items) || to < 0 || to >= len(items) {
			return nil, fmt.Errorf("%w: move %d -> %d with %d items", ErrInvalidPosition, from, to, len(items))
		}
		moved := items[from]
		items = append(items[:from], items[from+1:]...)
		items = append(items[:to], append([]Item{moved}, items[to:]...)...)
		setlists[i].Items = items
		setlists[i].renumber()
		return setlists, nil
	})
}

// SetSelected persists the selection; "" clears it.
func (s *Service) SetSelected(ctx context.Context, id string) error {
	return s.mutate(ctx, func(_ string, setlists []Setlist, selected *string) ([]Setlist, error) {
		if id != "" && indexOf(setlists, id) < 0 {
			return nil, ErrSetlistNotFound
		}
		*selected = id
		return setlists, nil
	})
}

// mutate applies fn to a copy of the catalog, persists the result and only
// then commits it. A failed validation or save leaves the catalog untouched.
func (s *Service) mutate(ctx context.Context, fn func(projectID string, setlists []Setlist, selected *string) ([]Setlist, error)) error {
	s.mu.Lock()
	if s.projectID == "" {
		s.mu.Unlock()
		return ErrNoProject
	}
	projectID := s.projectID
	selected := s.selected
	next, err := fn(projectID, cloneAll(s.setlists), &selected)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	doc := &Document{Setlists: next, SelectedSetlistID: selected, LastUpdated: s.now().UTC()}
	if err := s.repo.Save(ctx, projectID, doc); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("saving setlists: %w", err)
	}
	s.setlists = next
	s.selected = selected
	s.mu.Unlock()

	s.publisher.Publish(events.SetlistsChanged, cloneAll(next))
	return nil
}

func indexOf(setlists []Setlist, id string) int {
	if id == "" {
		return -1
	}
	for i := range setlists {
		if setlists[i].ID == id {
			return i
		}
	}
	return -1
}

func itemIndexForRegion(sl Setlist, regionID string) int {
	for i, item := range sl.Items {
		if region.SameID(item.RegionID, regionID) {
			return i
		}
	}
	return -1
}
