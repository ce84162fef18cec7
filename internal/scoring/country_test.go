package scoring

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

func testScoringConfig() common.ScoringConfig {
	return common.ScoringConfig{
		NewsVolumeThreshold: 50,
		Floors:              map[string]int{"UA": 70},
	}
}

func newTestScorer() *Scorer {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return NewScorer(testScoringConfig(), clock, arbor.NewLogger())
}

func TestScorer_SubScoresAndComposite(t *testing.T) {
	s := newTestScorer()

	scores := s.Score([]models.CountryInputs{{
		CountryCode:       "TW",
		ProtestCount:      3,  // 24
		HighSeverityCount: 1,  // 10
		MilitaryFlights:   20, // 60, capped to 50
		NavalVessels:      4,  // 20
		NewsCount:         10, // 50, capped to 40
		AvgVelocity:       2.5,
		AnyAlert:          true,
	}}, nil)

	require.Len(t, scores, 1)
	sc := scores[0]
	assert.Equal(t, 34, sc.Unrest)
	assert.Equal(t, 70, sc.Security)
	assert.Equal(t, 85, sc.Information) // 40 + 25 + 20

	// round(34*0.4 + 70*0.3 + 85*0.3) = 60
	assert.Equal(t, 60, sc.Composite)
	assert.Equal(t, models.ScoreLevelElevated, sc.Level)
	assert.Equal(t, models.ScoreTrendStable, sc.Trend, "first computation is stable")
	assert.False(t, sc.FloorApplied)
}

func TestScorer_ComponentCaps(t *testing.T) {
	s := newTestScorer()

	// Absurd volumes must still clamp each component and sub-score.
	scores := s.Score([]models.CountryInputs{{
		CountryCode:       "XX",
		ProtestCount:      1000,
		Fatalities:        1000,
		HighSeverityCount: 1000,
		MilitaryFlights:   1000,
		NavalVessels:      1000,
		NewsCount:         1000,
		AvgVelocity:       1000,
		AnyAlert:          true,
	}}, nil)

	require.Len(t, scores, 1)
	sc := scores[0]
	assert.Equal(t, 100, sc.Unrest)      // 50+30+20
	assert.Equal(t, 80, sc.Security)     // 50+30
	assert.Equal(t, 100, sc.Information) // 40+40+20
	assert.Equal(t, 94, sc.Composite)
	assert.Equal(t, models.ScoreLevelCritical, sc.Level)
}

func TestScorer_MediaVolumeDamping(t *testing.T) {
	s := newTestScorer()

	// newsVolume 500 over threshold 50 gives factor 1/(1+log10(10)) = 0.5.
	// Unrest raw 40 halves to 20; information raw 80 halves to 40; security
	// is never damped.
	scores := s.Score([]models.CountryInputs{{
		CountryCode:     "US",
		ProtestCount:    5, // 40
		MilitaryFlights: 10,
		NewsCount:       8,  // 40
		AvgVelocity:     10, // 100, capped to 40
		NewsVolume:      500,
	}}, nil)

	require.Len(t, scores, 1)
	sc := scores[0]
	assert.Equal(t, 20, sc.Unrest)
	assert.Equal(t, 30, sc.Security)
	assert.Equal(t, 40, sc.Information)
}

func TestScorer_DampingInactiveAtOrBelowThreshold(t *testing.T) {
	s := newTestScorer()

	for _, volume := range []int{0, 25, 50} {
		scores := s.Score([]models.CountryInputs{{
			CountryCode:  "DE",
			ProtestCount: 5,
			NewsVolume:   volume,
		}}, nil)
		require.Len(t, scores, 1)
		assert.Equal(t, 40, scores[0].Unrest, "volume %d", volume)
	}
}

func TestScorer_FloorPolicy(t *testing.T) {
	s := newTestScorer()

	t.Run("raises a quiet country to its floor", func(t *testing.T) {
		scores := s.Score([]models.CountryInputs{{CountryCode: "UA", ProtestCount: 1}}, nil)
		require.Len(t, scores, 1)
		assert.Equal(t, 70, scores[0].Composite)
		assert.True(t, scores[0].FloorApplied)
		assert.Equal(t, models.ScoreLevelHigh, scores[0].Level)
	})

	t.Run("never lowers a score above the floor", func(t *testing.T) {
		scores := s.Score([]models.CountryInputs{{
			CountryCode:       "UA",
			ProtestCount:      100,
			Fatalities:        100,
			HighSeverityCount: 100,
			MilitaryFlights:   100,
			NavalVessels:      100,
			NewsCount:         100,
			AvgVelocity:       100,
			AnyAlert:          true,
		}}, nil)
		require.Len(t, scores, 1)
		assert.Equal(t, 94, scores[0].Composite)
		assert.False(t, scores[0].FloorApplied)
	})
}

func TestScorer_Trend(t *testing.T) {
	s := newTestScorer()

	tests := []struct {
		name  string
		prior map[string]int
		want  models.ScoreTrend
	}{
		{name: "no prior", prior: nil, want: models.ScoreTrendStable},
		{name: "rising at +5", prior: map[string]int{"TW": 55}, want: models.ScoreTrendRising},
		{name: "falling at -5", prior: map[string]int{"TW": 65}, want: models.ScoreTrendFalling},
		{name: "small delta stable", prior: map[string]int{"TW": 62}, want: models.ScoreTrendStable},
	}

	inputs := []models.CountryInputs{{
		CountryCode:       "TW",
		ProtestCount:      3,
		HighSeverityCount: 1,
		MilitaryFlights:   20,
		NavalVessels:      4,
		NewsCount:         10,
		AvgVelocity:       2.5,
		AnyAlert:          true,
	}} // composite 60

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores := s.Score(inputs, tt.prior)
			require.Len(t, scores, 1)
			assert.Equal(t, tt.want, scores[0].Trend)
		})
	}
}

func TestScorer_SortedAndSkipsEmptyCode(t *testing.T) {
	s := newTestScorer()

	scores := s.Score([]models.CountryInputs{
		{CountryCode: "TW", ProtestCount: 1},
		{CountryCode: ""},
		{CountryCode: "JP", ProtestCount: 1},
		{CountryCode: "CN", ProtestCount: 10},
	}, nil)

	require.Len(t, scores, 3)
	assert.Equal(t, "CN", scores[0].CountryCode)
	assert.Equal(t, "JP", scores[1].CountryCode)
	assert.Equal(t, "TW", scores[2].CountryCode)
}

func TestLevelFor_Bands(t *testing.T) {
	tests := []struct {
		composite int
		want      models.ScoreLevel
	}{
		{0, models.ScoreLevelLow},
		{30, models.ScoreLevelLow},
		{31, models.ScoreLevelNormal},
		{50, models.ScoreLevelNormal},
		{51, models.ScoreLevelElevated},
		{65, models.ScoreLevelElevated},
		{66, models.ScoreLevelHigh},
		{80, models.ScoreLevelHigh},
		{81, models.ScoreLevelCritical},
		{100, models.ScoreLevelCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFor(tt.composite), "composite %d", tt.composite)
	}
}
