package geo

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/halcyonlabs/meridian/internal/common"
	"github.com/halcyonlabs/meridian/internal/models"
)

func testConvergenceConfig() common.ConvergenceConfig {
	return common.ConvergenceConfig{
		CellSizeDeg: 1.0,
		WindowHours: 24,
		MinKinds:    3,
	}
}

func newTestGrid() (*Grid, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return NewGrid(testConvergenceConfig(), clock, arbor.NewLogger()), clock
}

func geoEvent(kind models.GeoEventKind, lat, lon float64, at time.Time) models.GeoEvent {
	return models.GeoEvent{
		ID:         string(kind) + "-" + at.Format(time.RFC3339Nano),
		Kind:       kind,
		Lat:        lat,
		Lon:        lon,
		OccurredAt: at,
	}
}

func TestGrid_CellKey(t *testing.T) {
	g, _ := newTestGrid()

	tests := []struct {
		name     string
		lat, lon float64
		want     string
	}{
		{name: "taiwan strait", lat: 25.1, lon: 121.4, want: "25:121"},
		{name: "southern edge belongs to cell", lat: 25.0, lon: 121.0, want: "25:121"},
		{name: "negative coordinates floor downward", lat: -0.5, lon: -0.5, want: "-1:-1"},
		{name: "just below equator", lat: -0.001, lon: 10.5, want: "-1:10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.CellKey(tt.lat, tt.lon))
		})
	}
}

func TestGrid_Converge_MultiKindCell(t *testing.T) {
	g, clock := newTestGrid()
	now := clock.Now()

	// Three flights, two vessels and one protest, all inside one cell and
	// the trailing day.
	events := []models.GeoEvent{
		geoEvent(models.GeoKindMilitaryFlight, 25.1, 121.2, now.Add(-1*time.Hour)),
		geoEvent(models.GeoKindMilitaryFlight, 25.3, 121.4, now.Add(-2*time.Hour)),
		geoEvent(models.GeoKindMilitaryFlight, 25.6, 121.8, now.Add(-3*time.Hour)),
		geoEvent(models.GeoKindMilitaryVessel, 25.2, 121.1, now.Add(-5*time.Hour)),
		geoEvent(models.GeoKindMilitaryVessel, 25.9, 121.9, now.Add(-6*time.Hour)),
		geoEvent(models.GeoKindProtest, 25.5, 121.5, now.Add(-10*time.Hour)),
	}

	alerts := g.Converge(events)
	require.Len(t, alerts, 1)

	a := alerts[0]
	assert.Equal(t, "25:121", a.CellKey)
	assert.Equal(t, 25.0, a.CellLat)
	assert.Equal(t, 121.0, a.CellLon)
	assert.Equal(t, 3, a.DistinctKinds)
	assert.Equal(t, 6, a.TotalEvents)
	assert.Equal(t, 87, a.Score) // 3*25 + 6*2
	assert.Equal(t, models.AlertLevelCritical, a.Level)
	assert.Equal(t, 3, a.EventsByKind[models.GeoKindMilitaryFlight])
	assert.Equal(t, 2, a.EventsByKind[models.GeoKindMilitaryVessel])
	assert.Equal(t, 1, a.EventsByKind[models.GeoKindProtest])
	assert.Equal(t, now, a.WindowEnd)
	assert.Equal(t, now.Add(-24*time.Hour), a.WindowStart)
}

func TestGrid_Converge_BelowMinKinds(t *testing.T) {
	g, clock := newTestGrid()
	now := clock.Now()

	// Heavy traffic of only two kinds stays silent.
	events := []models.GeoEvent{}
	for i := 0; i < 10; i++ {
		events = append(events,
			geoEvent(models.GeoKindMilitaryFlight, 25.5, 121.5, now.Add(-time.Duration(i)*time.Hour)),
			geoEvent(models.GeoKindMilitaryVessel, 25.5, 121.5, now.Add(-time.Duration(i)*time.Hour)),
		)
	}

	assert.Empty(t, g.Converge(events))
}

func TestGrid_Converge_WindowExcludesOldEvents(t *testing.T) {
	g, clock := newTestGrid()
	now := clock.Now()

	events := []models.GeoEvent{
		geoEvent(models.GeoKindMilitaryFlight, 25.5, 121.5, now.Add(-1*time.Hour)),
		geoEvent(models.GeoKindMilitaryVessel, 25.5, 121.5, now.Add(-2*time.Hour)),
		// The third kind happened yesterday and a bit: outside the window.
		geoEvent(models.GeoKindProtest, 25.5, 121.5, now.Add(-25*time.Hour)),
	}

	assert.Empty(t, g.Converge(events))
}

func TestGrid_Converge_AdjacentCellsDoNotMerge(t *testing.T) {
	g, clock := newTestGrid()
	now := clock.Now()

	// Kinds straddle a cell boundary: neither cell reaches three kinds even
	// though the events are geographically close.
	events := []models.GeoEvent{
		geoEvent(models.GeoKindMilitaryFlight, 24.99, 121.5, now.Add(-1*time.Hour)),
		geoEvent(models.GeoKindMilitaryVessel, 24.98, 121.5, now.Add(-1*time.Hour)),
		geoEvent(models.GeoKindProtest, 25.01, 121.5, now.Add(-1*time.Hour)),
		geoEvent(models.GeoKindOutage, 25.02, 121.5, now.Add(-1*time.Hour)),
	}

	assert.Empty(t, g.Converge(events))
}

func TestGrid_Converge_DropsMalformedEvents(t *testing.T) {
	g, clock := newTestGrid()
	now := clock.Now()

	events := []models.GeoEvent{
		geoEvent(models.GeoKindMilitaryFlight, 25.5, 121.5, now.Add(-1*time.Hour)),
		geoEvent(models.GeoKindMilitaryVessel, 25.5, 121.5, now.Add(-1*time.Hour)),
		geoEvent(models.GeoKindProtest, 125.5, 121.5, now.Add(-1*time.Hour)),     // latitude out of range
		geoEvent(models.GeoEventKind("ufo"), 25.5, 121.5, now.Add(-1*time.Hour)), // unknown kind
	}

	assert.Empty(t, g.Converge(events))
}

func TestGrid_Converge_CountryAttribution(t *testing.T) {
	g, clock := newTestGrid()
	now := clock.Now()

	withCountry := func(ev models.GeoEvent, cc string) models.GeoEvent {
		ev.CountryCode = cc
		return ev
	}

	events := []models.GeoEvent{
		withCountry(geoEvent(models.GeoKindMilitaryFlight, 25.1, 121.2, now.Add(-1*time.Hour)), "TW"),
		withCountry(geoEvent(models.GeoKindMilitaryFlight, 25.2, 121.3, now.Add(-1*time.Hour)), "TW"),
		withCountry(geoEvent(models.GeoKindMilitaryVessel, 25.3, 121.4, now.Add(-1*time.Hour)), "CN"),
		geoEvent(models.GeoKindProtest, 25.4, 121.5, now.Add(-1*time.Hour)),
	}

	alerts := g.Converge(events)
	require.Len(t, alerts, 1)
	assert.Equal(t, "TW", alerts[0].CountryCode)
}

func TestGrid_Converge_SortedByScore(t *testing.T) {
	g, clock := newTestGrid()
	now := clock.Now()

	events := []models.GeoEvent{
		// Cell 10:10 with exactly three kinds, three events: score 81.
		geoEvent(models.GeoKindProtest, 10.5, 10.5, now.Add(-1*time.Hour)),
		geoEvent(models.GeoKindOutage, 10.5, 10.5, now.Add(-1*time.Hour)),
		geoEvent(models.GeoKindEarthquake, 10.5, 10.5, now.Add(-1*time.Hour)),
		// Cell 25:121 with four kinds, four events: 4*25 + 8 caps at 100.
		geoEvent(models.GeoKindProtest, 25.5, 121.5, now.Add(-1*time.Hour)),
		geoEvent(models.GeoKindOutage, 25.5, 121.5, now.Add(-1*time.Hour)),
		geoEvent(models.GeoKindMilitaryFlight, 25.5, 121.5, now.Add(-1*time.Hour)),
		geoEvent(models.GeoKindMilitaryVessel, 25.5, 121.5, now.Add(-1*time.Hour)),
	}

	alerts := g.Converge(events)
	require.Len(t, alerts, 2)
	assert.Equal(t, "25:121", alerts[0].CellKey)
	assert.Equal(t, 100, alerts[0].Score)
	assert.Equal(t, "10:10", alerts[1].CellKey)
	assert.Equal(t, 81, alerts[1].Score)
	assert.Equal(t, models.AlertLevelCritical, alerts[1].Level)
}
