// Package daw describes the remote-controlled workstation as seen by the
// rest of setlistd: typed snapshots and the command surface of its web API.
package daw

import (
	"context"
	"errors"
)

// ErrUnavailable wraps every transport-level failure talking to the DAW
// (unreachable host, timeout, malformed response). Callers treat it as
// transient and retry on the next poll.
var ErrUnavailable = errors.New("daw unavailable")

// PlayState mirrors the DAW's numeric transport state.
type PlayState int

const (
	PlayStateStopped         PlayState = 0
	PlayStatePlaying         PlayState = 1
	PlayStatePaused          PlayState = 2
	PlayStateRecording       PlayState = 5
	PlayStateRecordingPaused PlayState = 6
)

// IsPlaying reports whether the transport is moving.
func (s PlayState) IsPlaying() bool {
	return s == PlayStatePlaying || s == PlayStateRecording
}

// IsRecording reports whether the record bit is set.
func (s PlayState) IsRecording() bool {
	return s&4 != 0
}

// TransportSnapshot is one transport poll result.
type TransportSnapshot struct {
	PlayState PlayState
	Position  float64
	// RegionID is set only by DAWs that report the active region directly.
	RegionID string
}

// TimeSignature is a musical meter.
type TimeSignature struct {
	Numerator   int `json:"numerator"`
	Denominator int `json:"denominator"`
}

// CommonTime is 4/4.
var CommonTime = TimeSignature{Numerator: 4, Denominator: 4}

// Valid reports whether both parts are positive.
func (ts TimeSignature) Valid() bool {
	return ts.Numerator > 0 && ts.Denominator > 0
}

// BeatPosition is one (seconds, beats) reading together with the meter in
// effect at that point.
type BeatPosition struct {
	PlayState       PlayState
	PositionSeconds float64
	FullBeats       float64
	TimeSignature   TimeSignature
}

// RegionInfo is a raw region as listed by the DAW.
type RegionInfo struct {
	ID    string
	Name  string
	Start float64
	End   float64
	Color string
}

// MarkerInfo is a raw marker as listed by the DAW.
type MarkerInfo struct {
	ID       string
	Name     string
	Position float64
	Color    string
}

// Client is the command surface of the DAW web API.
type Client interface {
	TransportState(ctx context.Context) (TransportSnapshot, error)
	BeatPosition(ctx context.Context) (BeatPosition, error)
	TimeSignature(ctx context.Context) (TimeSignature, error)
	Seek(ctx context.Context, position float64) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	PlayWithCountIn(ctx context.Context) error
	Regions(ctx context.Context) ([]RegionInfo, error)
	Markers(ctx context.Context) ([]MarkerInfo, error)
	ProjectExtState(ctx context.Context, section, key string) (string, error)
	SetProjectExtState(ctx context.Context, section, key, value string) error
}
