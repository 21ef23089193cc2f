package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeTransitionCompleted  ActivityType = "transition_completed"
	TypeTransitionFailed     ActivityType = "transition_failed"
	TypeSetlistSelected      ActivityType = "setlist_selected"
	TypeSetlistsChanged      ActivityType = "setlists_changed"
	TypeConnectivityDegraded ActivityType = "connectivity_degraded"
	TypeConnectivityRestored ActivityType = "connectivity_restored"
	TypeProjectChanged       ActivityType = "project_changed"
)

// ActivityEntry represents an event in the activity log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	ProjectID    string       `json:"project_id"`
	SetlistID    *string      `json:"setlist_id,omitempty"`
	RegionID     *string      `json:"region_id,omitempty"`
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
}
