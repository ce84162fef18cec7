package models

import "time"

// Observation is a single sampled metric value inside a rolling window.
type Observation struct {
	At    time.Time `json:"at"`
	Value float64   `json:"value"`
}

// RollingStats summarizes one rolling window.
type RollingStats struct {
	Mean        float64 `json:"mean"`
	StdDev      float64 `json:"stddev"`
	SampleCount int     `json:"sample_count"`
}

// RollingWindow holds the raw observations of one window span alongside the
// derived statistics. Observations older than the span are pruned on update.
type RollingWindow struct {
	SpanHours    int           `json:"span_hours"`
	Observations []Observation `json:"observations"`
	Stats        RollingStats  `json:"stats"`
}

// Baseline is the per-metric rolling history used for anomaly detection.
// The only analytic state, besides the prior country composite, that must
// outlive a single refresh cycle.
type Baseline struct {
	MetricKey   string        `json:"metric_key" badgerhold:"key"`
	WindowShort RollingWindow `json:"window_short"` // 7 days
	WindowLong  RollingWindow `json:"window_long"`  // 30 days
	UpdatedAt   time.Time     `json:"updated_at"`
}

// DeviationLevel grades a standardized deviation.
type DeviationLevel string

const (
	DeviationSpike    DeviationLevel = "spike"    // z > 2.5
	DeviationElevated DeviationLevel = "elevated" // z > 1.5
	DeviationQuiet    DeviationLevel = "quiet"    // z < -2
	DeviationNormal   DeviationLevel = "normal"
)

// Deviation is the standardized distance of the current observation from the
// rolling mean.
type Deviation struct {
	MetricKey string         `json:"metric_key"`
	Current   float64        `json:"current"`
	ZScore    float64        `json:"z_score"`
	Level     DeviationLevel `json:"level"`
}
