package models

import "time"

// GeoEventKind classifies a geolocated event.
type GeoEventKind string

const (
	GeoKindProtest        GeoEventKind = "protest"
	GeoKindMilitaryFlight GeoEventKind = "military_flight"
	GeoKindMilitaryVessel GeoEventKind = "military_vessel"
	GeoKindEarthquake     GeoEventKind = "earthquake"
	GeoKindOutage         GeoEventKind = "outage"
)

// ValidGeoEventKinds lists every accepted geo event kind.
var ValidGeoEventKinds = []GeoEventKind{
	GeoKindProtest,
	GeoKindMilitaryFlight,
	GeoKindMilitaryVessel,
	GeoKindEarthquake,
	GeoKindOutage,
}

// IsValid reports whether k is a known geo event kind.
func (k GeoEventKind) IsValid() bool {
	for _, v := range ValidGeoEventKinds {
		if k == v {
			return true
		}
	}
	return false
}

// GeoEvent is a geolocated event delivered by the geo/military/outage
// collaborators. Read-only to this core; discarded after the cycle.
// Fatalities and Severity are populated only for event kinds where the
// upstream collaborator reports them (protests, primarily) — absence means zero.
type GeoEvent struct {
	ID          string       `json:"id"`
	Kind        GeoEventKind `json:"kind"`
	Lat         float64      `json:"lat"`
	Lon         float64      `json:"lon"`
	OccurredAt  time.Time    `json:"occurred_at"`
	CountryCode string       `json:"country_code,omitempty"`
	Fatalities  int          `json:"fatalities,omitempty"`
	Severity    string       `json:"severity,omitempty"` // "low", "medium", "high"
}

// AlertLevel grades a convergence alert.
type AlertLevel string

const (
	AlertLevelMedium   AlertLevel = "medium"
	AlertLevelHigh     AlertLevel = "high"
	AlertLevelCritical AlertLevel = "critical"
)

// ConvergenceAlert flags a grid cell where several distinct event kinds
// co-occur inside the trailing window.
type ConvergenceAlert struct {
	CellKey       string               `json:"cell_key"`
	CellLat       float64              `json:"cell_lat"` // cell south-west corner, degrees
	CellLon       float64              `json:"cell_lon"`
	CountryCode   string               `json:"country_code,omitempty"`
	DistinctKinds int                  `json:"distinct_kinds"`
	TotalEvents   int                  `json:"total_events"`
	EventsByKind  map[GeoEventKind]int `json:"events_by_kind"`
	Score         int                  `json:"score"`
	Level         AlertLevel           `json:"level"`
	WindowStart   time.Time            `json:"window_start"`
	WindowEnd     time.Time            `json:"window_end"`
}
