package tempo

import (
	"context"
	"log/slog"
	"math"

	"github.com/rpggio/setlistd/internal/daw"
)

// DefaultCountInBPM is substituted whenever no usable tempo is known.
const DefaultCountInBPM = 90

// CountInBars is the pre-roll length used before a region.
const CountInBars = 2

// SignatureSource provides the meter currently in effect.
type SignatureSource interface {
	TimeSignature(ctx context.Context) (daw.TimeSignature, error)
}

// TempoSource provides the current tempo estimate.
type TempoSource interface {
	Estimate(defaultBPM float64) float64
}

// CountIn converts musical bars into seconds at the current tempo and meter.
type CountIn struct {
	signatures SignatureSource
	tempo      TempoSource
	logger     *slog.Logger
}

// NewCountIn creates a count-in calculator.
func NewCountIn(signatures SignatureSource, tempo TempoSource, logger *slog.Logger) *CountIn {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CountIn{signatures: signatures, tempo: tempo, logger: logger}
}

// BarsToSeconds returns the duration of bars at the current tempo. A missing
// or non-positive tempo falls back to defaultBPM; a failed meter lookup
// falls back to 4/4 at defaultBPM.
func (c *CountIn) BarsToSeconds(ctx context.Context, bars, defaultBPM float64) float64 {
	if defaultBPM <= 0 {
		defaultBPM = DefaultCountInBPM
	}

	ts, err := c.signatures.TimeSignature(ctx)
	if err != nil || !ts.Valid() {
		if err != nil {
			c.logger.Debug("count-in using 4/4 fallback", "error", err)
		}
		return Seconds(bars, daw.CommonTime, defaultBPM)
	}

	bpm := defaultBPM
	if c.tempo != nil {
		bpm = c.tempo.Estimate(defaultBPM)
	}
	if bpm <= 0 || math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		bpm = defaultBPM
	}
	return Seconds(bars, ts, bpm)
}

// PreRollStart returns the position playback should start from so that
// CountInBars elapse before regionStart, clamped at the project origin.
func (c *CountIn) PreRollStart(ctx context.Context, regionStart float64) float64 {
	return math.Max(0, regionStart-c.BarsToSeconds(ctx, CountInBars, DefaultCountInBPM))
}

// Seconds is bars * beats-per-bar * seconds-per-beat.
func Seconds(bars float64, ts daw.TimeSignature, bpm float64) float64 {
	return bars * float64(ts.Numerator) * (60 / bpm)
}
