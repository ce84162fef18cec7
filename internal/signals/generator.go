package signals

import (
	"fmt"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/ternarybob/arbor"

	"github.com/halcyonlabs/meridian/internal/common"
	"github.com/halcyonlabs/meridian/internal/models"
)

// marketDivergenceKinds share the long market-class suppression window.
var marketDivergenceKinds = map[models.SignalKind]bool{
	models.SignalExplainedMove:       true,
	models.SignalSilentDivergence:    true,
	models.SignalFlowPriceDivergence: true,
}

const fallbackConfidence = 0.5

// Generator merges the cycle's detections into signals: it drops malformed
// and warm-up-gated detections, suppresses repeats of a (kind, subjectKey)
// pair inside the kind's TTL, attaches confidence, and orders the output.
type Generator struct {
	clock  clockwork.Clock
	logger arbor.ILogger
	dedup  *DedupIndex

	ttlMarket     time.Duration
	ttlPrediction time.Duration
	ttlDefault    time.Duration
	defaults      map[string]float64

	warmupUntil time.Time
}

// NewGenerator creates a generator. The instability-signal gate stays closed
// until warmup has elapsed from the moment of construction. Config TTLs are
// validated at load time; a malformed duration here is a programming error.
func NewGenerator(cfg common.SignalsConfig, warmup time.Duration, clock clockwork.Clock, logger arbor.ILogger) (*Generator, error) {
	ttlMarket, err := time.ParseDuration(cfg.TTLMarket)
	if err != nil {
		return nil, fmt.Errorf("invalid market signal ttl %q: %w", cfg.TTLMarket, err)
	}
	ttlPrediction, err := time.ParseDuration(cfg.TTLPrediction)
	if err != nil {
		return nil, fmt.Errorf("invalid prediction signal ttl %q: %w", cfg.TTLPrediction, err)
	}
	ttlDefault, err := time.ParseDuration(cfg.TTLDefault)
	if err != nil {
		return nil, fmt.Errorf("invalid default signal ttl %q: %w", cfg.TTLDefault, err)
	}

	return &Generator{
		clock:         clock,
		logger:        logger,
		dedup:         NewDedupIndex(clock),
		ttlMarket:     ttlMarket,
		ttlPrediction: ttlPrediction,
		ttlDefault:    ttlDefault,
		defaults:      cfg.DefaultConfidence,
		warmupUntil:   clock.Now().Add(warmup),
	}, nil
}

// Seed restores dedup state from persisted unexpired signals, so a restart
// does not re-fire everything the previous process already reported.
func (g *Generator) Seed(persisted []*models.Signal) {
	g.dedup.Seed(persisted)
	g.logger.Info().Int("entries", g.dedup.Len()).Msg("Signal dedup index seeded")
}

// TTLFor returns the suppression window of a signal kind.
func (g *Generator) TTLFor(kind models.SignalKind) time.Duration {
	switch {
	case marketDivergenceKinds[kind]:
		return g.ttlMarket
	case kind == models.SignalPredictionMarketLead:
		return g.ttlPrediction
	default:
		return g.ttlDefault
	}
}

// Generate turns the cycle's detections into new signals. Suppressed and
// gated detections produce nothing; they are not errors. Output is sorted by
// severity descending, then confidence descending, then recency descending.
// The dedup index is not touched here: the caller Confirms the signals it
// actually delivered, so a signal lost to a failed commit stays eligible.
func (g *Generator) Generate(detections []models.Detection) []*models.Signal {
	now := g.clock.Now()
	warming := now.Before(g.warmupUntil)

	out := make([]*models.Signal, 0, len(detections))
	staged := make(map[string]bool)
	for _, det := range detections {
		if !det.Kind.IsValid() || det.SubjectKey == "" {
			g.logger.Warn().
				Str("kind", string(det.Kind)).
				Str("subject", det.SubjectKey).
				Msg("Dropping malformed detection")
			continue
		}
		if warming && det.Kind.IsInstability() {
			g.logger.Debug().
				Str("kind", string(det.Kind)).
				Str("subject", det.SubjectKey).
				Msg("Instability signal gated during warm-up")
			continue
		}
		if g.dedup.Suppressed(det.Kind, det.SubjectKey) {
			continue
		}
		key := dedupKey(det.Kind, det.SubjectKey)
		if staged[key] {
			continue
		}
		staged[key] = true

		expiresAt := now.Add(g.TTLFor(det.Kind))
		sig := &models.Signal{
			ID:           common.NewSignalID(),
			Kind:         det.Kind,
			SubjectKey:   det.SubjectKey,
			Confidence:   g.confidenceFor(det),
			Severity:     det.Severity,
			CountryCode:  det.CountryCode,
			Details:      det.Details,
			FirstFiredAt: now,
			ExpiresAt:    expiresAt,
		}
		out = append(out, sig)

		g.logger.Info().
			Str("kind", string(sig.Kind)).
			Str("subject", sig.SubjectKey).
			Str("severity", string(sig.Severity)).
			Float64("confidence", sig.Confidence).
			Msg("Signal fired")
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.FirstFiredAt.After(b.FirstFiredAt)
	})

	return out
}

// confidenceFor takes the detection's own confidence when the producing
// stage computed one, otherwise the per-kind configured default.
func (g *Generator) confidenceFor(det models.Detection) float64 {
	if det.Confidence > 0 {
		return det.Confidence
	}
	if def, ok := g.defaults[string(det.Kind)]; ok {
		return def
	}
	return fallbackConfidence
}

// Confirm records delivered signals in the dedup index, suppressing repeats
// until each signal's ExpiresAt. Called once the cycle commit succeeds.
func (g *Generator) Confirm(signals []*models.Signal) {
	for _, sig := range signals {
		g.dedup.Remember(sig.Kind, sig.SubjectKey, sig.ExpiresAt)
	}
}

// Sweep drops expired dedup entries, for housekeeping between cycles.
func (g *Generator) Sweep() int {
	return g.dedup.Sweep()
}
