package models

import "time"

// ScoreLevel bands a composite instability score.
type ScoreLevel string

const (
	ScoreLevelCritical ScoreLevel = "critical" // 81-100
	ScoreLevelHigh     ScoreLevel = "high"     // 66-80
	ScoreLevelElevated ScoreLevel = "elevated" // 51-65
	ScoreLevelNormal   ScoreLevel = "normal"   // 31-50
	ScoreLevelLow      ScoreLevel = "low"      // 0-30
)

// ScoreTrend compares a composite against the prior cycle's value.
type ScoreTrend string

const (
	ScoreTrendRising  ScoreTrend = "rising"  // delta >= +5
	ScoreTrendFalling ScoreTrend = "falling" // delta <= -5
	ScoreTrendStable  ScoreTrend = "stable"
)

// CountryInputs are the per-country raw counts a single cycle feeds into the
// instability scorer. Assembled by the pipeline from geo events, clusters and
// convergence alerts; all fields default to zero under partial input.
type CountryInputs struct {
	CountryCode       string
	ProtestCount      int
	Fatalities        int
	HighSeverityCount int
	MilitaryFlights   int
	NavalVessels      int
	NewsCount         int
	NewsVolume        int
	AvgVelocity       float64
	AnyAlert          bool
}

// CountryScore is the composite instability index for one monitored country,
// recomputed every cycle. Trend requires the prior cycle's composite, which is
// persisted across restarts.
type CountryScore struct {
	CountryCode  string     `json:"country_code" badgerhold:"key"`
	Unrest       int        `json:"unrest"`
	Security     int        `json:"security"`
	Information  int        `json:"information"`
	Composite    int        `json:"composite"`
	Level        ScoreLevel `json:"level"`
	Trend        ScoreTrend `json:"trend"`
	FloorApplied bool       `json:"floor_applied"`
	ComputedAt   time.Time  `json:"computed_at"`
}
