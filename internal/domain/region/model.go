package region

import (
	"math"
	"strconv"
	"strings"
)

// Region is a named, bounded interval of the project timeline; in
// performance use, one song.
type Region struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Color string  `json:"color,omitempty"`
}

// Duration returns End - Start.
func (r Region) Duration() float64 {
	return r.End - r.Start
}

// Contains reports whether position lies within [Start, End].
func (r Region) Contains(position float64) bool {
	return position >= r.Start && position <= r.End
}

// Marker is a named point on the timeline. Its name may carry directives.
type Marker struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Position float64 `json:"position"`
	Color    string  `json:"color,omitempty"`
}

// Directives are the marker tags that apply to one region.
type Directives struct {
	// BPM is the authoritative starting tempo, from the first !bpm marker.
	BPM *float64
	// HardStop forbids automatic advancing at the end of the region.
	HardStop bool
	// Length overrides the effective duration; only used with HardStop.
	Length *float64
}

// EffectiveEnd returns where playback of r should be considered finished.
func (d Directives) EffectiveEnd(r Region) float64 {
	if d.HardStop && d.Length != nil && *d.Length > 0 {
		return r.Start + *d.Length
	}
	return r.End
}

// SameID compares region identifiers, tolerating the number formatting
// differences seen between the DAW listing and persisted setlists.
func SameID(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA != nil || errB != nil {
		return false
	}
	return fa == fb && !math.IsNaN(fa)
}
