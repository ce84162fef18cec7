// Package pipeline orchestrates the refresh cycle: it buffers collaborator
// input, runs the analytic stages in their fixed order, and commits the
// cycle's results atomically.
package pipeline

import (
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/halcyonlabs/meridian/internal/common"
	"github.com/halcyonlabs/meridian/internal/interfaces"
	"github.com/halcyonlabs/meridian/internal/models"
)

// Batch is one cycle's immutable input snapshot, drained from the gateway at
// cycle start. Later stages never see items that arrive mid-cycle.
type Batch struct {
	News       []models.NewsItem
	Quotes     []models.MarketQuote
	GeoEvents  []models.GeoEvent
	Detections []models.Detection // pre-classified by upstream collaborators
}

// Empty reports whether the batch carries no input at all.
func (b Batch) Empty() bool {
	return len(b.News) == 0 && len(b.Quotes) == 0 && len(b.GeoEvents) == 0 && len(b.Detections) == 0
}

// Gateway accepts collaborator deliveries between cycles. Each source family
// has its own rate allowance so one noisy feed cannot starve the others.
type Gateway struct {
	cfg    common.IngestConfig
	clock  clockwork.Clock
	logger arbor.ILogger

	mu      sync.Mutex
	pending Batch

	newsLimiter      *rate.Limiter
	marketLimiter    *rate.Limiter
	geoLimiter       *rate.Limiter
	detectionLimiter *rate.Limiter
}

// NewGateway creates an ingest gateway from configuration.
func NewGateway(cfg common.IngestConfig, clock clockwork.Clock, logger arbor.ILogger) *Gateway {
	newLimiter := func() *rate.Limiter {
		return rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst)
	}
	return &Gateway{
		cfg:              cfg,
		clock:            clock,
		logger:           logger,
		newsLimiter:      newLimiter(),
		marketLimiter:    newLimiter(),
		geoLimiter:       newLimiter(),
		detectionLimiter: newLimiter(),
	}
}

// AddNews buffers a news delivery for the next cycle.
func (g *Gateway) AddNews(items []models.NewsItem) error {
	if err := g.admit(g.newsLimiter, len(items), "news"); err != nil {
		return err
	}
	g.mu.Lock()
	g.pending.News = append(g.pending.News, items...)
	g.mu.Unlock()
	return nil
}

// AddQuotes buffers a market delivery for the next cycle.
func (g *Gateway) AddQuotes(quotes []models.MarketQuote) error {
	if err := g.admit(g.marketLimiter, len(quotes), "market"); err != nil {
		return err
	}
	g.mu.Lock()
	g.pending.Quotes = append(g.pending.Quotes, quotes...)
	g.mu.Unlock()
	return nil
}

// AddGeoEvents buffers a geo delivery for the next cycle.
func (g *Gateway) AddGeoEvents(events []models.GeoEvent) error {
	if err := g.admit(g.geoLimiter, len(events), "geo"); err != nil {
		return err
	}
	g.mu.Lock()
	g.pending.GeoEvents = append(g.pending.GeoEvents, events...)
	g.mu.Unlock()
	return nil
}

// AddDetections buffers pre-classified detections from an upstream
// collaborator (military surge, flow-price divergence and similar).
func (g *Gateway) AddDetections(detections []models.Detection) error {
	if err := g.admit(g.detectionLimiter, len(detections), "detections"); err != nil {
		return err
	}
	g.mu.Lock()
	g.pending.Detections = append(g.pending.Detections, detections...)
	g.mu.Unlock()
	return nil
}

func (g *Gateway) admit(limiter *rate.Limiter, n int, family string) error {
	if n == 0 {
		return nil
	}
	if n > g.cfg.MaxBatchSize {
		g.logger.Warn().Str("family", family).Int("size", n).Int("max", g.cfg.MaxBatchSize).Msg("Rejecting oversized batch")
		return fmt.Errorf("%w: %d items (max %d)", interfaces.ErrBatchTooLarge, n, g.cfg.MaxBatchSize)
	}
	if !limiter.AllowN(g.clock.Now(), n) {
		g.logger.Warn().Str("family", family).Int("size", n).Msg("Throttling ingest")
		return fmt.Errorf("%w: %s", interfaces.ErrThrottled, family)
	}
	return nil
}

// Drain snapshots and clears the pending input. Called once per cycle by the
// orchestrator.
func (g *Gateway) Drain() Batch {
	g.mu.Lock()
	defer g.mu.Unlock()

	batch := g.pending
	g.pending = Batch{}
	return batch
}

// Pending returns the current buffered counts, for the status surface.
func (g *Gateway) Pending() (news, quotes, geo, detections int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending.News), len(g.pending.Quotes), len(g.pending.GeoEvents), len(g.pending.Detections)
}
