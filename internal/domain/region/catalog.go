package region

import (
	"slices"
	"sort"
	"sync"

	"github.com/rpggio/setlistd/internal/events"
)

// Catalog holds the regions and markers of the active project. Both
// collections are replaced wholesale on each refresh.
type Catalog struct {
	mu        sync.RWMutex
	regions   []Region
	markers   []Marker
	publisher events.Publisher
}

// NewCatalog creates an empty catalog.
func NewCatalog(publisher events.Publisher) *Catalog {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &Catalog{publisher: publisher}
}

// Replace swaps in a fresh listing. Regions with end <= start are dropped;
// the rest are ordered by start time. It reports whether the region set
// changed, in which case regionsChanged is published.
func (c *Catalog) Replace(regions []Region, markers []Marker) bool {
	valid := make([]Region, 0, len(regions))
	for _, r := range regions {
		if r.End > r.Start {
			valid = append(valid, r)
		}
	}
	sort.SliceStable(valid, func(i, j int) bool { return valid[i].Start < valid[j].Start })

	sortedMarkers := slices.Clone(markers)
	sort.SliceStable(sortedMarkers, func(i, j int) bool { return sortedMarkers[i].Position < sortedMarkers[j].Position })

	c.mu.Lock()
	changed := !slices.Equal(c.regions, valid)
	c.regions = valid
	c.markers = sortedMarkers
	c.mu.Unlock()

	if changed {
		c.publisher.Publish(events.RegionsChanged, slices.Clone(valid))
	}
	return changed
}

// All returns the regions ordered by start time.
func (c *Catalog) All() []Region {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.regions)
}

// Markers returns the markers ordered by position.
func (c *Catalog) Markers() []Marker {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.markers)
}

// Get looks up a region by id.
func (c *Catalog) Get(id string) (Region, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexLocked(id); i >= 0 {
		return c.regions[i], nil
	}
	return Region{}, ErrRegionNotFound
}

// AtPosition returns the first region, in start order, containing position.
func (c *Catalog) AtPosition(position float64) (Region, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.regions {
		if r.Contains(position) {
			return r, true
		}
	}
	return Region{}, false
}

// Next returns the region following id in start order.
func (c *Catalog) Next(id string) (Region, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.indexLocked(id)
	if i < 0 {
		return Region{}, ErrRegionNotFound
	}
	if i+1 >= len(c.regions) {
		return Region{}, ErrNoAdjacentRegion
	}
	return c.regions[i+1], nil
}

// Previous returns the region preceding id in start order.
func (c *Catalog) Previous(id string) (Region, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.indexLocked(id)
	if i < 0 {
		return Region{}, ErrRegionNotFound
	}
	if i == 0 {
		return Region{}, ErrNoAdjacentRegion
	}
	return c.regions[i-1], nil
}

// First returns the earliest region.
func (c *Catalog) First() (Region, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.regions) == 0 {
		return Region{}, ErrRegionNotFound
	}
	return c.regions[0], nil
}

// Directives returns the marker directives that apply to r.
func (c *Catalog) Directives(r Region) Directives {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return DirectivesFor(r, c.markers)
}

func (c *Catalog) indexLocked(id string) int {
	for i, r := range c.regions {
		if SameID(r.ID, id) {
			return i
		}
	}
	return -1
}
