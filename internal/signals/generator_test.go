package signals

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

func testSignalsConfig() common.SignalsConfig {
	return common.SignalsConfig{
		TTLMarket:     "6h",
		TTLPrediction: "2h",
		TTLDefault:    "30m",
		DefaultConfidence: map[string]float64{
			string(models.SignalNewsVelocity):     0.65,
			string(models.SignalGeoConvergence):   0.80,
			string(models.SignalSilentDivergence): 0.60,
		},
	}
}

func newTestGenerator(t *testing.T, warmup time.Duration) (*Generator, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	g, err := NewGenerator(testSignalsConfig(), warmup, clock, arbor.NewLogger())
	require.NoError(t, err)
	return g, clock
}

func detection(kind models.SignalKind, subject string, severity models.Severity) models.Detection {
	return models.Detection{Kind: kind, SubjectKey: subject, Severity: severity}
}

func TestNewGenerator_RejectsMalformedTTL(t *testing.T) {
	cfg := testSignalsConfig()
	cfg.TTLMarket = "six hours"
	clock := clockwork.NewFakeClockAt(time.Now())
	_, err := NewGenerator(cfg, 0, clock, arbor.NewLogger())
	assert.Error(t, err)
}

func TestGenerator_TTLFor(t *testing.T) {
	g, _ := newTestGenerator(t, 0)

	assert.Equal(t, 6*time.Hour, g.TTLFor(models.SignalExplainedMove))
	assert.Equal(t, 6*time.Hour, g.TTLFor(models.SignalSilentDivergence))
	assert.Equal(t, 6*time.Hour, g.TTLFor(models.SignalFlowPriceDivergence))
	assert.Equal(t, 2*time.Hour, g.TTLFor(models.SignalPredictionMarketLead))
	assert.Equal(t, 30*time.Minute, g.TTLFor(models.SignalNewsVelocity))
	assert.Equal(t, 30*time.Minute, g.TTLFor(models.SignalGeoConvergence))
}

func TestGenerator_SuppressesRepeatsWithinTTL(t *testing.T) {
	g, clock := newTestGenerator(t, 0)

	det := detection(models.SignalNewsVelocity, "cluster-abc", models.SeverityMedium)

	first := g.Generate([]models.Detection{det})
	require.Len(t, first, 1)
	g.Confirm(first)

	// Same pair a few minutes later stays quiet.
	clock.Advance(5 * time.Minute)
	assert.Empty(t, g.Generate([]models.Detection{det}))

	// Past the 30m default TTL it may fire again.
	clock.Advance(26 * time.Minute)
	again := g.Generate([]models.Detection{det})
	require.Len(t, again, 1)
	assert.NotEqual(t, first[0].ID, again[0].ID)
}

func TestGenerator_UnconfirmedSignalStaysEligible(t *testing.T) {
	g, clock := newTestGenerator(t, 0)

	det := detection(models.SignalMilitarySurge, "TW", models.SeverityHigh)

	// Generated but never confirmed, as happens when the cycle commit fails:
	// the next cycle must be able to fire the same pair.
	first := g.Generate([]models.Detection{det})
	require.Len(t, first, 1)

	clock.Advance(5 * time.Minute)
	second := g.Generate([]models.Detection{det})
	require.Len(t, second, 1)
	assert.NotEqual(t, first[0].ID, second[0].ID)

	// Once confirmed, the usual suppression applies.
	g.Confirm(second)
	clock.Advance(5 * time.Minute)
	assert.Empty(t, g.Generate([]models.Detection{det}))
}

func TestGenerator_SubjectKeyExcludesMagnitude(t *testing.T) {
	g, _ := newTestGenerator(t, 0)

	// Two moves of the same ticker at different magnitudes share a subject
	// key, so the second is a repeat.
	a := models.Detection{Kind: models.SignalExplainedMove, SubjectKey: "AVGO", Severity: models.SeverityHigh, Confidence: 0.95, Details: map[string]string{"move_pct": "2.5"}}
	b := models.Detection{Kind: models.SignalExplainedMove, SubjectKey: "AVGO", Severity: models.SeverityHigh, Confidence: 0.95, Details: map[string]string{"move_pct": "4.1"}}

	out := g.Generate([]models.Detection{a, b})
	assert.Len(t, out, 1)
}

func TestGenerator_DistinctKindsDoNotCollide(t *testing.T) {
	g, _ := newTestGenerator(t, 0)

	out := g.Generate([]models.Detection{
		detection(models.SignalExplainedMove, "AVGO", models.SeverityHigh),
		detection(models.SignalSilentDivergence, "AVGO", models.SeverityHigh),
	})
	assert.Len(t, out, 2)
}

func TestGenerator_WarmupGatesInstabilityKindsOnly(t *testing.T) {
	g, clock := newTestGenerator(t, 15*time.Minute)

	dets := []models.Detection{
		detection(models.SignalInstabilityRising, "TW", models.SeverityHigh),
		detection(models.SignalInstabilityCritical, "UA", models.SeverityCritical),
		detection(models.SignalGeoConvergence, "25:121", models.SeverityCritical),
	}

	warm := g.Generate(dets)
	require.Len(t, warm, 1)
	assert.Equal(t, models.SignalGeoConvergence, warm[0].Kind)
	g.Confirm(warm)

	// After warm-up the gated kinds come through.
	clock.Advance(16 * time.Minute)
	after := g.Generate(dets)
	require.Len(t, after, 2)
	for _, sig := range after {
		assert.True(t, sig.Kind.IsInstability())
	}
}

func TestGenerator_DefaultConfidence(t *testing.T) {
	g, _ := newTestGenerator(t, 0)

	out := g.Generate([]models.Detection{
		{Kind: models.SignalExplainedMove, SubjectKey: "AVGO", Severity: models.SeverityHigh, Confidence: 0.95},
		detection(models.SignalNewsVelocity, "cluster-1", models.SeverityMedium),
		detection(models.SignalMilitarySurge, "TW", models.SeverityHigh),
	})
	require.Len(t, out, 3)

	byKind := map[models.SignalKind]float64{}
	for _, sig := range out {
		byKind[sig.Kind] = sig.Confidence
	}
	assert.Equal(t, 0.95, byKind[models.SignalExplainedMove], "detection confidence wins")
	assert.Equal(t, 0.65, byKind[models.SignalNewsVelocity], "configured default")
	assert.Equal(t, fallbackConfidence, byKind[models.SignalMilitarySurge], "unconfigured kind falls back")
}

func TestGenerator_OutputOrdering(t *testing.T) {
	g, _ := newTestGenerator(t, 0)

	out := g.Generate([]models.Detection{
		detection(models.SignalNewsVelocity, "a", models.SeverityMedium),                                     // 0.65
		{Kind: models.SignalSilentDivergence, SubjectKey: "b", Severity: models.SeverityHigh},                // 0.60
		{Kind: models.SignalExplainedMove, SubjectKey: "c", Severity: models.SeverityHigh, Confidence: 0.95}, // 0.95
		{Kind: models.SignalGeoConvergence, SubjectKey: "d", Severity: models.SeverityCritical},              // 0.80
	})
	require.Len(t, out, 4)

	assert.Equal(t, models.SignalGeoConvergence, out[0].Kind)
	assert.Equal(t, models.SignalExplainedMove, out[1].Kind)
	assert.Equal(t, models.SignalSilentDivergence, out[2].Kind)
	assert.Equal(t, models.SignalNewsVelocity, out[3].Kind)
}

func TestGenerator_DropsMalformedDetections(t *testing.T) {
	g, _ := newTestGenerator(t, 0)

	out := g.Generate([]models.Detection{
		detection(models.SignalKind("psychic_hotline"), "x", models.SeverityLow),
		detection(models.SignalNewsVelocity, "", models.SeverityLow),
	})
	assert.Empty(t, out)
}

func TestGenerator_SeedSuppressesAcrossRestart(t *testing.T) {
	g, clock := newTestGenerator(t, 0)
	now := clock.Now()

	g.Seed([]*models.Signal{
		{Kind: models.SignalExplainedMove, SubjectKey: "AVGO", ExpiresAt: now.Add(3 * time.Hour)},
		{Kind: models.SignalNewsVelocity, SubjectKey: "stale", ExpiresAt: now.Add(-time.Minute)},
	})

	out := g.Generate([]models.Detection{
		detection(models.SignalExplainedMove, "AVGO", models.SeverityHigh),
		detection(models.SignalNewsVelocity, "stale", models.SeverityMedium),
	})
	require.Len(t, out, 1)
	assert.Equal(t, models.SignalNewsVelocity, out[0].Kind)
}

func TestDedupIndex_LazySweep(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	d := NewDedupIndex(clock)

	d.Remember(models.SignalNewsVelocity, "a", clock.Now().Add(10*time.Minute))
	d.Remember(models.SignalNewsVelocity, "b", clock.Now().Add(20*time.Minute))
	require.Equal(t, 2, d.Len())

	clock.Advance(15 * time.Minute)

	// Lookup of the lapsed key removes it; the untouched live key stays.
	assert.False(t, d.Suppressed(models.SignalNewsVelocity, "a"))
	assert.Equal(t, 1, d.Len())
	assert.True(t, d.Suppressed(models.SignalNewsVelocity, "b"))

	clock.Advance(10 * time.Minute)
	assert.Equal(t, 1, d.Sweep())
	assert.Equal(t, 0, d.Len())
}
