// Package tempo estimates the DAW tempo from polled beat positions and
// converts count-in bars to seconds.
package tempo

import (
	"math"
	"sync"
	"time"
)

// MaxPlausibleBPM bounds estimates; anything above it is treated as noise.
const MaxPlausibleBPM = 999

const historySize = 2

// Sample is one (elapsed seconds, elapsed beats) observation.
type Sample struct {
	PositionSeconds float64
	BeatPosition    float64
	Timestamp       time.Time
}

// Estimator derives tempo from the two most recent beat samples.
type Estimator struct {
	mu      sync.Mutex
	samples []Sample
	seed    float64
	now     func() time.Time
}

// NewEstimator creates an empty estimator without a seed tempo.
func NewEstimator() *Estimator {
	return &Estimator{
		samples: make([]Sample, 0, historySize),
		now:     time.Now,
	}
}

// Reset discards the sample history and stores an optional seed tempo,
// typically taken from a !bpm marker of the region about to play.
func (e *Estimator) Reset(seed *float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.samples = e.samples[:0]
	e.seed = 0
	if seed != nil {
		e.seed = *seed
	}
}

// AddSample appends a sample, evicting the oldest once the history is full.
func (e *Estimator) AddSample(positionSeconds, beatPosition float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.samples) == historySize {
		copy(e.samples, e.samples[1:])
		e.samples = e.samples[:historySize-1]
	}
	e.samples = append(e.samples, Sample{
		PositionSeconds: positionSeconds,
		BeatPosition:    beatPosition,
		Timestamp:       e.now(),
	})
}

// Samples returns a copy of the current history, oldest first.
func (e *Estimator) Samples() []Sample {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Sample, len(e.samples))
	copy(out, e.samples)
	return out
}

// Estimate returns the tempo in beats per minute. Measured values win over
// the seed, and the seed wins over defaultBPM.
func (e *Estimator) Estimate(defaultBPM float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.samples) == 2 {
		oldest, newest := e.samples[0], e.samples[1]
		seconds := newest.PositionSeconds - oldest.PositionSeconds
		beats := newest.BeatPosition - oldest.BeatPosition
		if bpm := round2(beats / seconds * 60); plausible(bpm) {
			return bpm
		}
	}
	if n := len(e.samples); n > 0 {
		// A rejected delta (seek between samples) still leaves the newest
		// sample, which measures tempo from the project origin.
		s := e.samples[n-1]
		if bpm := round2(s.BeatPosition / s.PositionSeconds * 60); plausible(bpm) {
			return bpm
		}
	}

	if e.seed > 0 {
		return e.seed
	}
	return defaultBPM
}

func plausible(bpm float64) bool {
	if math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		return false
	}
	return bpm > 0 && bpm <= MaxPlausibleBPM
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
