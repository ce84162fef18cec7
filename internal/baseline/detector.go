package baseline

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/ternarybob/arbor"

	"github.com/halcyonlabs/meridian/internal/common"
	"github.com/halcyonlabs/meridian/internal/interfaces"
	"github.com/halcyonlabs/meridian/internal/models"
)

// Detector owns the per-metric baselines. It is the only component that
// mutates them, once per refresh cycle, during its own stage of the single
// active cycle. The mutex is for the restart-seeding path, which may race an
// early cycle.
type Detector struct {
	cfg    common.BaselineConfig
	clock  clockwork.Clock
	logger arbor.ILogger

	mu        sync.Mutex
	baselines map[string]*models.Baseline
}

// NewDetector creates a detector with empty baselines.
func NewDetector(cfg common.BaselineConfig, clock clockwork.Clock, logger arbor.ILogger) *Detector {
	return &Detector{
		cfg:       cfg,
		clock:     clock,
		logger:    logger,
		baselines: make(map[string]*models.Baseline),
	}
}

// Seed loads persisted baselines, typically once at startup. Later seeds do
// not overwrite metrics that already progressed in memory.
func (d *Detector) Seed(baselines []*models.Baseline) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, b := range baselines {
		if b == nil || b.MetricKey == "" {
			continue
		}
		if _, exists := d.baselines[b.MetricKey]; !exists {
			copied := *b
			d.baselines[b.MetricKey] = &copied
		}
	}

	d.logger.Info().Int("metrics", len(d.baselines)).Msg("Baselines seeded from store")
}

// Observe computes the deviation of value against the metric's history as it
// stood before this cycle, then appends the observation to both windows.
// Returns interfaces.ErrInsufficientData when the history carries fewer than
// the configured minimum samples; the observation is still recorded.
func (d *Detector) Observe(metricKey string, value float64) (models.Deviation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	deviation, err := d.deviationLocked(metricKey, value)
	d.updateLocked(metricKey, value, d.clock.Now())
	return deviation, err
}

// Update appends an observation without computing a deviation.
func (d *Detector) Update(metricKey string, value float64) *models.Baseline {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.updateLocked(metricKey, value, d.clock.Now())
}

// Deviation computes the standardized deviation of value against the metric's
// current history without recording it.
func (d *Detector) Deviation(metricKey string, value float64) (models.Deviation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deviationLocked(metricKey, value)
}

func (d *Detector) updateLocked(metricKey string, value float64, now time.Time) *models.Baseline {
	b, ok := d.baselines[metricKey]
	if !ok {
		b = &models.Baseline{
			MetricKey:   metricKey,
			WindowShort: newWindow(shortWindowHours),
			WindowLong:  newWindow(longWindowHours),
		}
		d.baselines[metricKey] = b
	}

	obs := models.Observation{At: now, Value: value}
	appendObservation(&b.WindowShort, obs, now)
	appendObservation(&b.WindowLong, obs, now)
	b.UpdatedAt = now

	return b
}

func (d *Detector) deviationLocked(metricKey string, value float64) (models.Deviation, error) {
	deviation := models.Deviation{
		MetricKey: metricKey,
		Current:   value,
		Level:     models.DeviationNormal,
	}

	b, ok := d.baselines[metricKey]
	if !ok || b.WindowLong.Stats.SampleCount < d.cfg.MinSamples {
		return deviation, interfaces.ErrInsufficientData
	}

	stats := b.WindowLong.Stats
	if stats.StdDev == 0 {
		// A perfectly flat history cannot statistically be anomalous, and
		// dividing by zero is not an option either.
		return deviation, nil
	}

	deviation.ZScore = (value - stats.Mean) / stats.StdDev
	switch {
	case deviation.ZScore > d.cfg.SpikeZ:
		deviation.Level = models.DeviationSpike
	case deviation.ZScore > d.cfg.ElevatedZ:
		deviation.Level = models.DeviationElevated
	case deviation.ZScore < d.cfg.QuietZ:
		deviation.Level = models.DeviationQuiet
	default:
		deviation.Level = models.DeviationNormal
	}

	return deviation, nil
}

// Snapshot returns a copy of every baseline, sorted by metric key, for the
// cycle commit.
func (d *Detector) Snapshot() []*models.Baseline {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]*models.Baseline, 0, len(d.baselines))
	for _, b := range d.baselines {
		out = append(out, copyBaseline(b))
	}

	sort.Slice(out, func(a, b int) bool { return out[a].MetricKey < out[b].MetricKey })
	return out
}

// Keys returns every known metric key, sorted. A family the detector has seen
// before stays observable even when the current cycle carries nothing for it.
func (d *Detector) Keys() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	keys := make([]string, 0, len(d.baselines))
	for key := range d.baselines {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Staged holds one cycle's observations applied to a copy of the live
// baselines. The live detector stays untouched until Apply, so an abandoned
// cycle leaves no trace in the windows.
type Staged struct {
	d          *Detector
	at         time.Time
	values     map[string]float64
	baselines  []*models.Baseline
	deviations []models.Deviation
}

// Stage computes deviations for each metric against the history as it stands,
// then builds the would-be post-cycle baselines without mutating the live
// ones. Metrics still below the minimum sample count contribute no deviation.
func (d *Detector) Stage(values map[string]float64) *Staged {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()
	s := &Staged{
		d:      d,
		at:     now,
		values: make(map[string]float64, len(values)),
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		s.values[key] = values[key]
		dev, err := d.deviationLocked(key, values[key])
		if err != nil {
			continue
		}
		s.deviations = append(s.deviations, dev)
	}

	for _, b := range d.baselines {
		copied := copyBaseline(b)
		if value, ok := values[copied.MetricKey]; ok {
			obs := models.Observation{At: now, Value: value}
			appendObservation(&copied.WindowShort, obs, now)
			appendObservation(&copied.WindowLong, obs, now)
			copied.UpdatedAt = now
		}
		s.baselines = append(s.baselines, copied)
	}
	for _, key := range keys {
		if _, known := d.baselines[key]; known {
			continue
		}
		b := &models.Baseline{
			MetricKey:   key,
			WindowShort: newWindow(shortWindowHours),
			WindowLong:  newWindow(longWindowHours),
		}
		obs := models.Observation{At: now, Value: values[key]}
		appendObservation(&b.WindowShort, obs, now)
		appendObservation(&b.WindowLong, obs, now)
		b.UpdatedAt = now
		s.baselines = append(s.baselines, b)
	}
	sort.Slice(s.baselines, func(a, b int) bool { return s.baselines[a].MetricKey < s.baselines[b].MetricKey })

	return s
}

// Deviations returns the standardized deviations computed at staging time.
func (s *Staged) Deviations() []models.Deviation {
	return s.deviations
}

// Baselines returns the post-cycle baselines for the cycle commit, sorted by
// metric key.
func (s *Staged) Baselines() []*models.Baseline {
	return s.baselines
}

// Apply records the staged observations into the live detector, using the
// staging timestamp so the windows match what was committed.
func (s *Staged) Apply() {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	for key, value := range s.values {
		s.d.updateLocked(key, value, s.at)
	}
}

func copyBaseline(b *models.Baseline) *models.Baseline {
	copied := *b
	copied.WindowShort.Observations = append([]models.Observation(nil), b.WindowShort.Observations...)
	copied.WindowLong.Observations = append([]models.Observation(nil), b.WindowLong.Observations...)
	return &copied
}
