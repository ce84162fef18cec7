package pipeline

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/halcyonlabs/meridian/internal/common"
	"github.com/halcyonlabs/meridian/internal/entity"
	"github.com/halcyonlabs/meridian/internal/models"
)

// detectionsFromClusters raises velocity and triangulation detections. The
// subject key is the cluster ID, which is itself the primary item's ID, so a
// story that keeps growing maps to a stable subject.
func detectionsFromClusters(clusters []models.NewsCluster, cfg common.ClusteringConfig, now time.Time) []models.Detection {
	out := make([]models.Detection, 0)
	for i := range clusters {
		c := &clusters[i]

		if c.VelocityPerHr >= cfg.VelocityThreshold && c.Size() >= cfg.MinClusterSize {
			severity := models.SeverityMedium
			if c.VelocityPerHr >= 2*cfg.VelocityThreshold {
				severity = models.SeverityHigh
			}
			out = append(out, models.Detection{
				Kind:       models.SignalNewsVelocity,
				SubjectKey: c.ID,
				Severity:   severity,
				Details: map[string]string{
					"headline":    c.PrimaryTitle,
					"members":     fmt.Sprintf("%d", c.Size()),
					"velocity_hr": fmt.Sprintf("%.2f", c.VelocityPerHr),
					"trend":       string(c.Trend),
				},
				ObservedAt: now,
			})
		}

		if len(c.SourceTypes) >= 3 {
			severity := models.SeverityMedium
			if len(c.SourceTypes) >= 4 {
				severity = models.SeverityHigh
			}
			types := make([]string, 0, len(c.SourceTypes))
			for _, st := range c.SourceTypes {
				types = append(types, string(st))
			}
			sort.Strings(types)
			out = append(out, models.Detection{
				Kind:       models.SignalNewsTriangulation,
				SubjectKey: c.ID,
				Severity:   severity,
				Details: map[string]string{
					"headline":     c.PrimaryTitle,
					"source_types": fmt.Sprintf("%v", types),
				},
				ObservedAt: now,
			})
		}
	}
	return out
}

// detectionsFromCorrelations raises explained-move and silent-divergence
// detections. The subject is the ticker symbol alone; the magnitude belongs
// in details, never in the key.
func detectionsFromCorrelations(results []models.CorrelationResult, moveThresholdPct float64, now time.Time) []models.Detection {
	out := make([]models.Detection, 0)
	for _, r := range results {
		severity := models.SeverityMedium
		if math.Abs(r.MovePercent) >= 2*moveThresholdPct {
			severity = models.SeverityHigh
		}

		switch r.Outcome {
		case models.CorrelationExplained:
			out = append(out, models.Detection{
				Kind:       models.SignalExplainedMove,
				SubjectKey: r.Symbol,
				Severity:   severity,
				Confidence: r.Confidence,
				Details: map[string]string{
					"move_pct":   fmt.Sprintf("%.2f", r.MovePercent),
					"entity":     r.EntityName,
					"cluster_id": r.ClusterID,
					"headline":   r.Headline,
					"term":       r.MatchedTerm,
				},
				ObservedAt: now,
			})
		case models.CorrelationSilent:
			out = append(out, models.Detection{
				Kind:       models.SignalSilentDivergence,
				SubjectKey: r.Symbol,
				Severity:   severity,
				Details: map[string]string{
					"move_pct": fmt.Sprintf("%.2f", r.MovePercent),
				},
				ObservedAt: now,
			})
		}
	}
	return out
}

// detectionsFromDeviations raises volume-anomaly detections for spikes. The
// metric key is the subject, so one noisy metric fires once per TTL.
func detectionsFromDeviations(deviations []models.Deviation, now time.Time) []models.Detection {
	out := make([]models.Detection, 0)
	for _, d := range deviations {
		if d.Level != models.DeviationSpike {
			continue
		}
		severity := models.SeverityMedium
		if d.ZScore >= 4 {
			severity = models.SeverityHigh
		}
		out = append(out, models.Detection{
			Kind:       models.SignalVolumeAnomaly,
			SubjectKey: d.MetricKey,
			Severity:   severity,
			Details: map[string]string{
				"z_score": fmt.Sprintf("%.2f", d.ZScore),
				"current": fmt.Sprintf("%.1f", d.Current),
			},
			ObservedAt: now,
		})
	}
	return out
}

// detectionsFromAlerts raises a geo-convergence detection per alerted cell.
func detectionsFromAlerts(alerts []models.ConvergenceAlert, now time.Time) []models.Detection {
	out := make([]models.Detection, 0, len(alerts))
	for _, a := range alerts {
		var severity models.Severity
		switch a.Level {
		case models.AlertLevelCritical:
			severity = models.SeverityCritical
		case models.AlertLevelHigh:
			severity = models.SeverityHigh
		default:
			severity = models.SeverityMedium
		}
		out = append(out, models.Detection{
			Kind:        models.SignalGeoConvergence,
			SubjectKey:  a.CellKey,
			Severity:    severity,
			CountryCode: a.CountryCode,
			Details: map[string]string{
				"kinds":  fmt.Sprintf("%d", a.DistinctKinds),
				"events": fmt.Sprintf("%d", a.TotalEvents),
				"score":  fmt.Sprintf("%d", a.Score),
			},
			ObservedAt: now,
		})
	}
	return out
}

// detectionsFromScores raises instability detections from the committed
// country scores. A critical country that is also rising produces both
// kinds; they deduplicate independently.
func detectionsFromScores(scores []models.CountryScore, now time.Time) []models.Detection {
	out := make([]models.Detection, 0)
	for _, s := range scores {
		if s.Level == models.ScoreLevelCritical {
			out = append(out, models.Detection{
				Kind:        models.SignalInstabilityCritical,
				SubjectKey:  s.CountryCode,
				Severity:    models.SeverityCritical,
				CountryCode: s.CountryCode,
				Details: map[string]string{
					"composite": fmt.Sprintf("%d", s.Composite),
					"trend":     string(s.Trend),
				},
				ObservedAt: now,
			})
		}
		if s.Trend == models.ScoreTrendRising {
			severity := models.SeverityMedium
			if s.Composite > 50 {
				severity = models.SeverityHigh
			}
			out = append(out, models.Detection{
				Kind:        models.SignalInstabilityRising,
				SubjectKey:  s.CountryCode,
				Severity:    severity,
				CountryCode: s.CountryCode,
				Details: map[string]string{
					"composite": fmt.Sprintf("%d", s.Composite),
					"level":     string(s.Level),
				},
				ObservedAt: now,
			})
		}
	}
	return out
}

// countryAggregate accumulates one country's raw counts while the cycle's
// inputs are scanned.
type countryAggregate struct {
	inputs       models.CountryInputs
	velocitySum  float64
	newsClusters int
}

// buildCountryInputs assembles per-country raw counts from the cycle's geo
// events, clusters and convergence alerts. News is attributed to a country
// when the entity registry finds one of that country's aliases in a cluster
// title; geo events carry their country code directly.
func buildCountryInputs(batch *Batch, clusters []models.NewsCluster, alerts []models.ConvergenceAlert, index *entity.Index) []models.CountryInputs {
	agg := make(map[string]*countryAggregate)
	get := func(code string) *countryAggregate {
		a, ok := agg[code]
		if !ok {
			a = &countryAggregate{inputs: models.CountryInputs{CountryCode: code}}
			agg[code] = a
		}
		return a
	}

	for _, ev := range batch.GeoEvents {
		if ev.CountryCode == "" {
			continue
		}
		a := get(ev.CountryCode)
		switch ev.Kind {
		case models.GeoKindProtest:
			a.inputs.ProtestCount++
			a.inputs.Fatalities += ev.Fatalities
			if ev.Severity == "high" {
				a.inputs.HighSeverityCount++
			}
		case models.GeoKindMilitaryFlight:
			a.inputs.MilitaryFlights++
		case models.GeoKindMilitaryVessel:
			a.inputs.NavalVessels++
		}
	}

	for i := range clusters {
		c := &clusters[i]
		for _, code := range index.CountriesInText(c.PrimaryTitle) {
			a := get(code)
			a.inputs.NewsCount++
			a.inputs.NewsVolume += c.Size()
			a.velocitySum += c.VelocityPerHr
			a.newsClusters++
		}
	}

	for _, alert := range alerts {
		if alert.CountryCode != "" {
			get(alert.CountryCode).inputs.AnyAlert = true
		}
	}

	out := make([]models.CountryInputs, 0, len(agg))
	for _, a := range agg {
		if a.newsClusters > 0 {
			a.inputs.AvgVelocity = a.velocitySum / float64(a.newsClusters)
		}
		out = append(out, a.inputs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CountryCode < out[j].CountryCode })
	return out
}
