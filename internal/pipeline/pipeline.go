package pipeline

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/halcyonlabs/meridian/internal/baseline"
	"github.com/halcyonlabs/meridian/internal/cluster"
	"github.com/halcyonlabs/meridian/internal/common"
	"github.com/halcyonlabs/meridian/internal/entity"
	"github.com/halcyonlabs/meridian/internal/geo"
	"github.com/halcyonlabs/meridian/internal/interfaces"
	"github.com/halcyonlabs/meridian/internal/models"
	"github.com/halcyonlabs/meridian/internal/scoring"
	"github.com/halcyonlabs/meridian/internal/signals"
	"github.com/halcyonlabs/meridian/internal/tokenize"
)

// CycleSummary describes one completed refresh cycle, for the status
// surface and the cycle-completed event.
type CycleSummary struct {
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
	News         int           `json:"news"`
	Quotes       int           `json:"quotes"`
	GeoEvents    int           `json:"geo_events"`
	Clusters     int           `json:"clusters"`
	Correlations int           `json:"correlations"`
	Alerts       int           `json:"alerts"`
	Scores       int           `json:"scores"`
	Signals      int           `json:"signals"`
}

// Snapshot is the most recently committed cycle's output, served to the API
// surfaces between cycles.
type Snapshot struct {
	Summary      CycleSummary
	Clusters     []models.NewsCluster
	Correlations []models.CorrelationResult
	Alerts       []models.ConvergenceAlert
	Scores       []models.CountryScore
	Signals      []*models.Signal
}

// Pipeline runs the refresh cycle on a cron cadence. Only one cycle is ever
// active: a tick that lands while the prior cycle still computes is skipped,
// not queued.
type Pipeline struct {
	cfg     *common.Config
	clock   clockwork.Clock
	logger  arbor.ILogger
	storage interfaces.StorageManager
	events  interfaces.EventService

	tokenizer  *tokenize.Tokenizer
	engine     *cluster.Engine
	index      *entity.Index
	correlator *entity.Correlator
	detector   *baseline.Detector
	grid       *geo.Grid
	scorer     *scoring.Scorer
	generator  *signals.Generator

	gateway *Gateway
	pool    *Pool
	cron    *cron.Cron

	busy    atomic.Bool
	mu      sync.RWMutex
	last    Snapshot
	started bool
}

// New wires the analytic stages together. The entity index is built by the
// caller at startup from the registry directory.
func New(cfg *common.Config, index *entity.Index, storage interfaces.StorageManager, events interfaces.EventService, clock clockwork.Clock, logger arbor.ILogger) (*Pipeline, error) {
	tokenizer := tokenize.NewTokenizer(cfg.Clustering.MinTokenLength)

	generator, err := signals.NewGenerator(cfg.Signals, cfg.Pipeline.WarmupDuration(), clock, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build signal generator: %w", err)
	}

	return &Pipeline{
		cfg:        cfg,
		clock:      clock,
		logger:     logger,
		storage:    storage,
		events:     events,
		tokenizer:  tokenizer,
		engine:     cluster.NewEngine(tokenizer, cfg.Clustering.SimilarityThreshold),
		index:      index,
		correlator: entity.NewCorrelator(index, cfg.Correlation.MoveThresholdPct, clock, logger),
		detector:   baseline.NewDetector(cfg.Baseline, clock, logger),
		grid:       geo.NewGrid(cfg.Convergence, clock, logger),
		scorer:     scoring.NewScorer(cfg.Scoring, clock, logger),
		generator:  generator,
		gateway:    NewGateway(cfg.Ingest, clock, logger),
		pool:       NewPool(cfg.Pipeline.Workers, logger),
		cron:       cron.New(),
	}, nil
}

// Gateway returns the ingest gateway collaborators deliver into.
func (p *Pipeline) Gateway() *Gateway {
	return p.gateway
}

// Start seeds cross-cycle state from the store and begins the cron cadence.
func (p *Pipeline) Start(ctx context.Context) error {
	if p.started {
		return fmt.Errorf("pipeline already started")
	}

	persisted, err := p.storage.BaselineStorage().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load baselines: %w", err)
	}
	p.detector.Seed(persisted)

	unexpired, err := p.storage.SignalStorage().Unexpired(ctx, p.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to load unexpired signals: %w", err)
	}
	p.generator.Seed(unexpired)

	if _, err := p.cron.AddFunc(p.cfg.Pipeline.Schedule, func() {
		if err := p.RunCycle(context.Background()); err != nil && err != interfaces.ErrCycleBusy {
			p.logger.Error().Err(err).Msg("Refresh cycle failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule refresh cycle: %w", err)
	}
	p.cron.Start()
	p.started = true

	p.logger.Info().
		Str("schedule", p.cfg.Pipeline.Schedule).
		Str("warmup", p.cfg.Pipeline.Warmup).
		Msg("Pipeline started")

	return nil
}

// Stop halts the cadence and drains the worker pool.
func (p *Pipeline) Stop() {
	if p.started {
		p.cron.Stop()
		p.started = false
	}
	p.pool.Close()
	p.logger.Info().Msg("Pipeline stopped")
}

// Latest returns the most recently committed cycle's output.
func (p *Pipeline) Latest() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// RunCycle executes one refresh cycle. Returns ErrCycleBusy without doing
// anything when a prior cycle is still running.
func (p *Pipeline) RunCycle(ctx context.Context) error {
	if !p.busy.CompareAndSwap(false, true) {
		p.logger.Warn().Msg("Skipping refresh cycle, prior cycle still running")
		return interfaces.ErrCycleBusy
	}
	defer p.busy.Store(false)

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Pipeline.CycleTimeoutDuration())
	defer cancel()

	startedAt := p.clock.Now()
	batch := p.gateway.Drain()
	p.tokenizer.Reset()

	// Heavy compute goes to the pool; the snapshot handed over is owned by
	// the task from here on.
	clusters, err := p.clusterStage(ctx, &batch)
	if err != nil {
		return err
	}

	correlations, err := p.correlateStage(ctx, &batch, clusters)
	if err != nil {
		return err
	}

	staged := p.deviationStage(&batch)
	alerts := p.grid.Converge(batch.GeoEvents)

	prior, err := p.priorComposites(ctx)
	if err != nil {
		return err
	}
	inputs := buildCountryInputs(&batch, clusters, alerts, p.index)
	scores := p.scorer.Score(inputs, prior)

	now := p.clock.Now()
	detections := make([]models.Detection, 0)
	detections = append(detections, detectionsFromClusters(clusters, p.cfg.Clustering, now)...)
	detections = append(detections, detectionsFromCorrelations(correlations, p.cfg.Correlation.MoveThresholdPct, now)...)
	detections = append(detections, detectionsFromDeviations(staged.Deviations(), now)...)
	detections = append(detections, detectionsFromAlerts(alerts, now)...)
	detections = append(detections, detectionsFromScores(scores, now)...)
	detections = append(detections, batch.Detections...)

	emitted := p.generator.Generate(detections)

	// The cycle leaves a trace only if the commit lands: baseline windows and
	// dedup entries are applied afterwards, so a failed cycle's detections
	// stay eligible to fire again.
	commit := &interfaces.CycleCommit{
		Baselines: staged.Baselines(),
		Scores:    scoresAsPointers(scores),
		Signals:   emitted,
	}
	if err := p.storage.CommitCycle(ctx, commit); err != nil {
		return fmt.Errorf("failed to commit cycle: %w", err)
	}
	staged.Apply()
	p.generator.Confirm(emitted)
	p.generator.Sweep()
	if _, err := p.storage.SignalStorage().DeleteExpired(ctx, now); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to prune expired signals")
	}

	summary := CycleSummary{
		StartedAt:    startedAt,
		Duration:     p.clock.Now().Sub(startedAt),
		News:         len(batch.News),
		Quotes:       len(batch.Quotes),
		GeoEvents:    len(batch.GeoEvents),
		Clusters:     len(clusters),
		Correlations: len(correlations),
		Alerts:       len(alerts),
		Scores:       len(scores),
		Signals:      len(emitted),
	}

	p.mu.Lock()
	p.last = Snapshot{
		Summary:      summary,
		Clusters:     clusters,
		Correlations: correlations,
		Alerts:       alerts,
		Scores:       scores,
		Signals:      emitted,
	}
	p.mu.Unlock()

	p.publish(ctx, summary, scores, emitted)

	p.logger.Info().
		Int("news", summary.News).
		Int("clusters", summary.Clusters).
		Int("alerts", summary.Alerts).
		Int("signals", summary.Signals).
		Str("duration", summary.Duration.String()).
		Msg("Refresh cycle completed")

	return nil
}

func (p *Pipeline) clusterStage(ctx context.Context, batch *Batch) ([]models.NewsCluster, error) {
	if len(batch.News) == 0 {
		return nil, nil
	}

	reply := p.pool.Submit(ctx, "cluster", func(ctx context.Context) (interface{}, error) {
		return p.engine.Cluster(batch.News), nil
	})

	select {
	case result := <-reply:
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Value.([]models.NewsCluster), nil
	case <-ctx.Done():
		return nil, interfaces.ErrCycleTimeout
	}
}

func (p *Pipeline) correlateStage(ctx context.Context, batch *Batch, clusters []models.NewsCluster) ([]models.CorrelationResult, error) {
	movers := make([]models.MarketQuote, 0)
	for _, q := range batch.Quotes {
		if math.Abs(q.ChangePercent) >= p.correlator.Threshold() {
			movers = append(movers, q)
		}
	}
	if len(movers) == 0 {
		return nil, nil
	}

	reply := p.pool.Submit(ctx, "correlate", func(ctx context.Context) (interface{}, error) {
		results := make([]models.CorrelationResult, 0, len(movers))
		for _, q := range movers {
			results = append(results, p.correlator.Correlate(q, clusters))
		}
		return results, nil
	})

	select {
	case result := <-reply:
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Value.([]models.CorrelationResult), nil
	case <-ctx.Done():
		return nil, interfaces.ErrCycleTimeout
	}
}

// deviationStage stages this cycle's volume metrics against their baselines.
// Metrics keyed by source family so a wire-service surge is not drowned out
// by mainstream volume. Known families absent from the batch are staged as
// explicit zeros: total silence from a normally busy feed is the quiet case
// worth catching, and the windows must decay either way.
func (p *Pipeline) deviationStage(batch *Batch) *baseline.Staged {
	counts := make(map[string]float64)
	for _, item := range batch.News {
		counts["news:"+string(item.SourceType)]++
	}
	for _, ev := range batch.GeoEvents {
		counts["geo:"+string(ev.Kind)+":global"]++
	}
	for _, metricKey := range p.detector.Keys() {
		if _, ok := counts[metricKey]; !ok {
			counts[metricKey] = 0
		}
	}

	return p.detector.Stage(counts)
}

func (p *Pipeline) priorComposites(ctx context.Context) (map[string]int, error) {
	persisted, err := p.storage.ScoreStorage().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load prior scores: %w", err)
	}
	prior := make(map[string]int, len(persisted))
	for _, s := range persisted {
		prior[s.CountryCode] = s.Composite
	}
	return prior, nil
}

func (p *Pipeline) publish(ctx context.Context, summary CycleSummary, scores []models.CountryScore, emitted []*models.Signal) {
	for _, sig := range emitted {
		_ = p.events.Publish(ctx, interfaces.Event{Type: interfaces.EventSignalFired, Payload: sig})
	}
	if len(scores) > 0 {
		_ = p.events.Publish(ctx, interfaces.Event{Type: interfaces.EventScoresUpdated, Payload: scores})
	}
	_ = p.events.Publish(ctx, interfaces.Event{Type: interfaces.EventCycleCompleted, Payload: summary})
}

func scoresAsPointers(scores []models.CountryScore) []*models.CountryScore {
	out := make([]*models.CountryScore, len(scores))
	for i := range scores {
		out[i] = &scores[i]
	}
	return out
}
