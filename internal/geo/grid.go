// Package geo bins geolocated events into a fixed-degree grid and flags
// cells where several distinct event kinds converge inside a trailing
// window.
package geo

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/ternarybob/arbor"

	"github.com/halcyonlabs/meridian/internal/common"
	"github.com/halcyonlabs/meridian/internal/models"
)

// Grid is stateless between cycles: every Converge call bins the events it
// is handed and reports from scratch. Events older than the trailing window
// never contribute, regardless of what the caller passes in.
type Grid struct {
	cfg    common.ConvergenceConfig
	clock  clockwork.Clock
	logger arbor.ILogger
}

// NewGrid creates a convergence grid from configuration.
func NewGrid(cfg common.ConvergenceConfig, clock clockwork.Clock, logger arbor.ILogger) *Grid {
	return &Grid{cfg: cfg, clock: clock, logger: logger}
}

type cell struct {
	latIdx  int
	lonIdx  int
	byKind  map[models.GeoEventKind]int
	total   int
	country map[string]int
}

// CellKey returns the canonical key of the cell containing the coordinate.
// Cells are addressed by the floor of lat/lon over the cell size, so events
// on a cell's southern or western edge belong to that cell.
func (g *Grid) CellKey(lat, lon float64) string {
	latIdx, lonIdx := g.cellIndex(lat, lon)
	return cellKeyFromIndex(latIdx, lonIdx)
}

func (g *Grid) cellIndex(lat, lon float64) (int, int) {
	return int(math.Floor(lat / g.cfg.CellSizeDeg)), int(math.Floor(lon / g.cfg.CellSizeDeg))
}

func cellKeyFromIndex(latIdx, lonIdx int) string {
	return fmt.Sprintf("%d:%d", latIdx, lonIdx)
}

// Converge bins events into grid cells, drops anything outside the trailing
// window or with out-of-range coordinates, and returns one alert per cell
// where at least the configured number of distinct kinds co-occur. Alerts
// are ordered by score descending, cell key ascending on ties.
func (g *Grid) Converge(events []models.GeoEvent) []models.ConvergenceAlert {
	now := g.clock.Now()
	windowStart := now.Add(-time.Duration(g.cfg.WindowHours) * time.Hour)

	cells := make(map[string]*cell)
	skipped := 0
	for _, ev := range events {
		if !ev.Kind.IsValid() || ev.Lat < -90 || ev.Lat > 90 || ev.Lon < -180 || ev.Lon > 180 {
			skipped++
			continue
		}
		if ev.OccurredAt.Before(windowStart) || ev.OccurredAt.After(now) {
			continue
		}

		latIdx, lonIdx := g.cellIndex(ev.Lat, ev.Lon)
		key := cellKeyFromIndex(latIdx, lonIdx)
		c, ok := cells[key]
		if !ok {
			c = &cell{
				latIdx:  latIdx,
				lonIdx:  lonIdx,
				byKind:  make(map[models.GeoEventKind]int),
				country: make(map[string]int),
			}
			cells[key] = c
		}
		c.byKind[ev.Kind]++
		c.total++
		if ev.CountryCode != "" {
			c.country[ev.CountryCode]++
		}
	}
	if skipped > 0 {
		g.logger.Warn().Int("count", skipped).Msg("Dropped malformed geo events")
	}

	alerts := make([]models.ConvergenceAlert, 0)
	for key, c := range cells {
		if len(c.byKind) < g.cfg.MinKinds {
			continue
		}

		score := convergenceScore(len(c.byKind), c.total)
		alerts = append(alerts, models.ConvergenceAlert{
			CellKey:       key,
			CellLat:       float64(c.latIdx) * g.cfg.CellSizeDeg,
			CellLon:       float64(c.lonIdx) * g.cfg.CellSizeDeg,
			CountryCode:   majorityCountry(c.country),
			DistinctKinds: len(c.byKind),
			TotalEvents:   c.total,
			EventsByKind:  c.byKind,
			Score:         score,
			Level:         alertLevel(score),
			WindowStart:   windowStart,
			WindowEnd:     now,
		})
	}

	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].Score != alerts[j].Score {
			return alerts[i].Score > alerts[j].Score
		}
		return alerts[i].CellKey < alerts[j].CellKey
	})

	for _, a := range alerts {
		g.logger.Info().
			Str("cell", a.CellKey).
			Int("kinds", a.DistinctKinds).
			Int("events", a.TotalEvents).
			Int("score", a.Score).
			Str("level", string(a.Level)).
			Msg("Convergence alert")
	}

	return alerts
}

// convergenceScore weights breadth of kinds over raw event volume: 25 points
// per distinct kind plus 2 per event, the volume part capped at 25, the
// whole capped at 100.
func convergenceScore(distinctKinds, totalEvents int) int {
	score := distinctKinds*25 + min(totalEvents*2, 25)
	return min(score, 100)
}

func alertLevel(score int) models.AlertLevel {
	switch {
	case score >= 80:
		return models.AlertLevelCritical
	case score >= 60:
		return models.AlertLevelHigh
	default:
		return models.AlertLevelMedium
	}
}

// majorityCountry picks the most frequent country code among a cell's
// events, lowest code on ties, empty when no event carried one.
func majorityCountry(counts map[string]int) string {
	best := ""
	bestCount := 0
	for code, n := range counts {
		if n > bestCount || (n == bestCount && (best == "" || code < best)) {
			best = code
			bestCount = n
		}
	}
	return best
}
