package mcp

import (
	"time"

	"github.com/rpggio/setlistd/internal/domain/activity"
	"github.com/rpggio/setlistd/internal/domain/playback"
	"github.com/rpggio/setlistd/internal/domain/project"
	"github.com/rpggio/setlistd/internal/domain/region"
	"github.com/rpggio/setlistd/internal/domain/setlist"
)

type EmptyParams struct{}

type SeekToRegionParams struct {
	RegionID string `json:"region_id" jsonschema:"id of the region to move to"`
	Autoplay *bool  `json:"autoplay,omitempty" jsonschema:"start playback after seeking; defaults to the autoplay setting"`
	CountIn  *bool  `json:"count_in,omitempty" jsonschema:"pre-roll two bars before the region; defaults to off"`
}

type SelectSetlistParams struct {
	SetlistID string `json:"setlist_id" jsonschema:"setlist to select; empty clears the selection"`
}

type ToggleParams struct {
	Enabled bool `json:"enabled" jsonschema:"new value"`
}

type CreateSetlistParams struct {
	Name string `json:"name" jsonschema:"setlist display name"`
}

type RenameSetlistParams struct {
	SetlistID string `json:"setlist_id" jsonschema:"setlist to rename"`
	Name      string `json:"name" jsonschema:"new display name"`
}

type DeleteSetlistParams struct {
	SetlistID string `json:"setlist_id" jsonschema:"setlist to delete"`
}

type AddSetlistItemParams struct {
	SetlistID string `json:"setlist_id" jsonschema:"setlist to append to"`
	RegionID  string `json:"region_id" jsonschema:"region the item plays"`
	Name      string `json:"name,omitempty" jsonschema:"item label; defaults to the region name"`
}

type RemoveSetlistItemParams struct {
	SetlistID string `json:"setlist_id" jsonschema:"setlist owning the item"`
	ItemID    string `json:"item_id" jsonschema:"item to remove"`
}

type MoveSetlistItemParams struct {
	SetlistID string `json:"setlist_id" jsonschema:"setlist owning the item"`
	From      int    `json:"from" jsonschema:"current zero-based position"`
	To        int    `json:"to" jsonschema:"new zero-based position"`
}

type RecentActivityParams struct {
	ProjectID string `json:"project_id,omitempty" jsonschema:"project to query; defaults to the open project"`
	Type      string `json:"type,omitempty" jsonschema:"only entries of this activity type"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of entries"`
	Offset    int    `json:"offset,omitempty" jsonschema:"offset for pagination"`
}

// PlaybackStateResult is the live state plus engine status.
type PlaybackStateResult struct {
	State        playback.State `json:"state"`
	Phase        string         `json:"phase,omitempty"`
	Connectivity string         `json:"connectivity,omitempty"`
	ProjectID    string         `json:"project_id,omitempty"`
}

type RegionView struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Start    float64  `json:"start"`
	End      float64  `json:"end"`
	Color    string   `json:"color,omitempty"`
	HardStop bool     `json:"hard_stop,omitempty"`
	BPM      *float64 `json:"bpm,omitempty"`
	Length   *float64 `json:"length,omitempty"`
}

type MarkerView struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Position float64 `json:"position"`
}

type ListRegionsResult struct {
	Regions []RegionView `json:"regions"`
	Markers []MarkerView `json:"markers"`
}

type ItemView struct {
	ID       string `json:"id"`
	RegionID string `json:"region_id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

type SetlistView struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Items []ItemView `json:"items"`
}

type ListSetlistsResult struct {
	Setlists          []SetlistView `json:"setlists"`
	SelectedSetlistID string        `json:"selected_setlist_id,omitempty"`
}

type DeleteSetlistResult struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

type ProjectView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SetlistCount int    `json:"setlist_count"`
	LastSeen     string `json:"last_seen"`
}

type ListProjectsResult struct {
	Projects []ProjectView `json:"projects"`
}

type ActivityView struct {
	ID        int64  `json:"id"`
	ProjectID string `json:"project_id"`
	SetlistID string `json:"setlist_id,omitempty"`
	RegionID  string `json:"region_id,omitempty"`
	Type      string `json:"type"`
	Summary   string `json:"summary"`
	Details   string `json:"details,omitempty"`
	CreatedAt string `json:"created_at"`
}

type RecentActivityResult struct {
	Entries []ActivityView `json:"entries"`
}

func toRegionView(r region.Region, d region.Directives) RegionView {
	return RegionView{
		ID:       r.ID,
		Name:     r.Name,
		Start:    r.Start,
		End:      r.End,
		Color:    r.Color,
		HardStop: d.HardStop,
		BPM:      d.BPM,
		Length:   d.Length,
	}
}

func toSetlistView(s setlist.Setlist) SetlistView {
	items := make([]ItemView, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, ItemView{ID: it.ID, RegionID: it.RegionID, Name: it.Name, Position: it.Position})
	}
	return SetlistView{ID: s.ID, Name: s.Name, Items: items}
}

func toProjectView(p project.ProjectSummary) ProjectView {
	return ProjectView{
		ID:           p.ID,
		Name:         p.Name,
		SetlistCount: p.SetlistCount,
		LastSeen:     p.LastSeen.UTC().Format(time.RFC3339),
	}
}

func toActivityView(e activity.ActivityEntry) ActivityView {
	v := ActivityView{
		ID:        e.ID,
		ProjectID: e.ProjectID,
		Type:      string(e.ActivityType),
		Summary:   e.Summary,
		Details:   e.Details,
		CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
	}
	if e.SetlistID != nil {
		v.SetlistID = *e.SetlistID
	}
	if e.RegionID != nil {
		v.RegionID = *e.RegionID
	}
	return v
}
