// Package scoring computes the composite instability index per monitored
// country from the cycle's raw event counts.
package scoring

import (
	"math"
	"sort"

	"github.com/jonboulle/clockwork"
	"github.com/ternarybob/arbor"

	"github.com/halcyonlabs/meridian/internal/common"
	"github.com/halcyonlabs/meridian/internal/models"
)

// Component weights of the composite.
const (
	weightUnrest      = 0.4
	weightSecurity    = 0.3
	weightInformation = 0.3

	trendDelta = 5
)

// Scorer computes country scores. It holds no cross-cycle state itself: the
// prior composites it needs for trend come in with each call, so the
// calculation stays a pure function of its inputs.
type Scorer struct {
	cfg    common.ScoringConfig
	clock  clockwork.Clock
	logger arbor.ILogger
}

// NewScorer creates a country scorer from configuration.
func NewScorer(cfg common.ScoringConfig, clock clockwork.Clock, logger arbor.ILogger) *Scorer {
	return &Scorer{cfg: cfg, clock: clock, logger: logger}
}

// Score computes one CountryScore per input. prior maps country code to
// the previous cycle's composite; countries absent from prior get a stable
// trend. Results are sorted by composite descending, country code ascending
// on ties.
func (s *Scorer) Score(inputs []models.CountryInputs, prior map[string]int) []models.CountryScore {
	now := s.clock.Now()

	out := make([]models.CountryScore, 0, len(inputs))
	for _, in := range inputs {
		if in.CountryCode == "" {
			continue
		}

		damping := s.dampingFactor(in.NewsVolume)

		unrest := clampScore(damping * float64(
			min(in.ProtestCount*8, 50)+
				min(in.Fatalities*5, 30)+
				min(in.HighSeverityCount*10, 20)))

		security := clampScore(float64(
			min(in.MilitaryFlights*3, 50) +
				min(in.NavalVessels*5, 30)))

		information := clampScore(damping * (float64(min(in.NewsCount*5, 40)) +
			math.Min(in.AvgVelocity*10, 40) +
			alertBonus(in.AnyAlert)))

		composite := int(math.Round(
			float64(unrest)*weightUnrest +
				float64(security)*weightSecurity +
				float64(information)*weightInformation))

		floorApplied := false
		if floor, ok := s.cfg.Floors[in.CountryCode]; ok && composite < floor {
			composite = floor
			floorApplied = true
		}

		score := models.CountryScore{
			CountryCode:  in.CountryCode,
			Unrest:       unrest,
			Security:     security,
			Information:  information,
			Composite:    composite,
			Level:        LevelFor(composite),
			Trend:        trendFor(composite, prior, in.CountryCode),
			FloorApplied: floorApplied,
			ComputedAt:   now,
		}
		out = append(out, score)

		s.logger.Debug().
			Str("country", score.CountryCode).
			Int("composite", score.Composite).
			Str("level", string(score.Level)).
			Str("trend", string(score.Trend)).
			Bool("floor", score.FloorApplied).
			Msg("Country score computed")
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Composite != out[j].Composite {
			return out[i].Composite > out[j].Composite
		}
		return out[i].CountryCode < out[j].CountryCode
	})

	return out
}

// dampingFactor corrects for media-volume bias: countries whose news volume
// exceeds the calibrated threshold have their unrest and information raw
// scores scaled by 1/(1+log10(volume/threshold)).
func (s *Scorer) dampingFactor(newsVolume int) float64 {
	threshold := s.cfg.NewsVolumeThreshold
	if threshold <= 0 || newsVolume <= threshold {
		return 1.0
	}
	return 1.0 / (1.0 + math.Log10(float64(newsVolume)/float64(threshold)))
}

func clampScore(v float64) int {
	n := int(math.Round(v))
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

func alertBonus(anyAlert bool) float64 {
	if anyAlert {
		return 20
	}
	return 0
}

// LevelFor bands a composite into its severity level.
func LevelFor(composite int) models.ScoreLevel {
	switch {
	case composite >= 81:
		return models.ScoreLevelCritical
	case composite >= 66:
		return models.ScoreLevelHigh
	case composite >= 51:
		return models.ScoreLevelElevated
	case composite >= 31:
		return models.ScoreLevelNormal
	default:
		return models.ScoreLevelLow
	}
}

// trendFor compares against the prior composite; a country scored for the
// first time is stable by definition.
func trendFor(composite int, prior map[string]int, countryCode string) models.ScoreTrend {
	prev, ok := prior[countryCode]
	if !ok {
		return models.ScoreTrendStable
	}
	delta := composite - prev
	switch {
	case delta >= trendDelta:
		return models.ScoreTrendRising
	case delta <= -trendDelta:
		return models.ScoreTrendFalling
	default:
		return models.ScoreTrendStable
	}
}
