package project

import "time"

// Project is a DAW project known to setlistd, identified by the id stored
// in the project's extended state.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// ProjectSummary is a lightweight representation for listing
type ProjectSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	SetlistCount int       `json:"setlist_count"`
	LastSeen     time.Time `json:"last_seen"`
}
