package playback

import "github.com/rpggio/setlistd/internal/daw"

// Defaults applied on connect and reconnect.
const (
	DefaultBPM = 120
)

// State is the canonical playback snapshot shared by the reconciler, the
// transition engine and the operator surface.
type State struct {
	IsPlaying         bool              `json:"is_playing"`
	Position          float64           `json:"position"`
	CurrentRegionID   string            `json:"current_region_id,omitempty"`
	BPM               float64           `json:"bpm"`
	TimeSignature     daw.TimeSignature `json:"time_signature"`
	AutoplayEnabled   bool              `json:"autoplay_enabled"`
	CountInEnabled    bool              `json:"count_in_enabled"`
	SelectedSetlistID string            `json:"selected_setlist_id,omitempty"`
	IsRecordingArmed  bool              `json:"is_recording_armed"`
}

// DefaultState is the state of a fresh DAW connection.
func DefaultState() State {
	return State{
		BPM:             DefaultBPM,
		TimeSignature:   daw.CommonTime,
		AutoplayEnabled: true,
	}
}

// Opt is an optional patch field. The zero value means "absent".
type Opt[T any] struct {
	Value T
	Set   bool
}

// Some returns a present Opt.
func Some[T any](v T) Opt[T] {
	return Opt[T]{Value: v, Set: true}
}

// Patch describes a partial update. Absent fields keep their previous value;
// a present string field holding "" clears it.
type Patch struct {
	IsPlaying         Opt[bool]
	Position          Opt[float64]
	CurrentRegionID   Opt[string]
	BPM               Opt[float64]
	TimeSignature     Opt[daw.TimeSignature]
	AutoplayEnabled   Opt[bool]
	CountInEnabled    Opt[bool]
	SelectedSetlistID Opt[string]
	IsRecordingArmed  Opt[bool]
}

// Merge applies p to s and returns the result.
func (p Patch) Merge(s State) State {
	if p.IsPlaying.Set {
		s.IsPlaying = p.IsPlaying.Value
	}
	if p.Position.Set {
		s.Position = p.Position.Value
	}
	if p.CurrentRegionID.Set {
		s.CurrentRegionID = p.CurrentRegionID.Value
	}
	if p.BPM.Set {
		s.BPM = p.BPM.Value
	}
	if p.TimeSignature.Set && p.TimeSignature.Value.Valid() {
		s.TimeSignature = p.TimeSignature.Value
	}
	if p.AutoplayEnabled.Set {
		s.AutoplayEnabled = p.AutoplayEnabled.Value
	}
	if p.CountInEnabled.Set {
		s.CountInEnabled = p.CountInEnabled.Value
	}
	if p.SelectedSetlistID.Set {
		s.SelectedSetlistID = p.SelectedSetlistID.Value
	}
	if p.IsRecordingArmed.Set {
		s.IsRecordingArmed = p.IsRecordingArmed.Value
	}
	return s
}

// Empty reports whether no field is present.
func (p Patch) Empty() bool {
	return p == Patch{}
}

// WithRegion returns p with CurrentRegionID set; "" clears it.
func (p Patch) WithRegion(id string) Patch {
	p.CurrentRegionID = Some(id)
	return p
}
