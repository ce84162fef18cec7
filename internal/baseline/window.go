// Package baseline maintains per-metric rolling history and computes
// standardized deviations against it.
package baseline

import (
	"math"
	"time"

	"github.com/halcyonlabs/meridian/internal/models"
)

const (
	shortWindowHours = 7 * 24
	longWindowHours  = 30 * 24
)

// newWindow creates an empty rolling window with the given span.
func newWindow(spanHours int) models.RollingWindow {
	return models.RollingWindow{SpanHours: spanHours}
}

// appendObservation adds one observation, drops everything older than the
// window span, and recomputes the window statistics.
func appendObservation(w *models.RollingWindow, obs models.Observation, now time.Time) {
	w.Observations = append(w.Observations, obs)

	cutoff := now.Add(-time.Duration(w.SpanHours) * time.Hour)
	kept := w.Observations[:0]
	for _, o := range w.Observations {
		if !o.At.Before(cutoff) {
			kept = append(kept, o)
		}
	}
	w.Observations = kept
	w.Stats = computeStats(w.Observations)
}

// computeStats returns mean, sample standard deviation and count.
func computeStats(observations []models.Observation) models.RollingStats {
	n := len(observations)
	if n == 0 {
		return models.RollingStats{}
	}

	sum := 0.0
	for _, o := range observations {
		sum += o.Value
	}
	mean := sum / float64(n)

	stddev := 0.0
	if n > 1 {
		sumSquares := 0.0
		for _, o := range observations {
			diff := o.Value - mean
			sumSquares += diff * diff
		}
		stddev = math.Sqrt(sumSquares / float64(n-1))
	}

	return models.RollingStats{
		Mean:        mean,
		StdDev:      stddev,
		SampleCount: n,
	}
}
