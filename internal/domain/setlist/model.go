package setlist

import "time"

// Item is one entry of a setlist, pointing at a region.
type Item struct {
	ID       string `json:"id"`
	RegionID string `json:"regionId"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// Setlist is an ordered playlist of regions owned by a project.
type Setlist struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ProjectID string `json:"projectId"`
	Items     []Item `json:"items"`
}

// Document is the persisted form of a project's setlists.
type Document struct {
	Setlists          []Setlist `json:"setlists"`
	SelectedSetlistID string    `json:"selectedSetlistId,omitempty"`
	LastUpdated       time.Time `json:"lastUpdated"`
}

func (s Setlist) clone() Setlist {
	out := s
	out.Items = make([]Item, len(s.Items))
	copy(out.Items, s.Items)
	return out
}

func (s *Setlist) renumber() {
	for i := range s.Items {
		s.Items[i].Position = i
	}
}

func cloneAll(in []Setlist) []Setlist {
	out := make([]Setlist, len(in))
	for i, s := range in {
		out[i] = s.clone()
	}
	return out
}
