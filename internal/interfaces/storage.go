package interfaces

import (
	"context"
	"time"

	"github.com/halcyonlabs/meridian/internal/models"
)

// BaselineStorage persists per-metric rolling baselines across restarts.
// Get must tolerate first-run absence by returning ErrNotFound.
type BaselineStorage interface {
	Get(ctx context.Context, metricKey string) (*models.Baseline, error)
	Put(ctx context.Context, baseline *models.Baseline) error
	List(ctx context.Context) ([]*models.Baseline, error)
}

// ScoreStorage persists the most recently committed country scores. The prior
// composite is the only cross-cycle scoring state.
type ScoreStorage interface {
	Get(ctx context.Context, countryCode string) (*models.CountryScore, error)
	Put(ctx context.Context, score *models.CountryScore) error
	List(ctx context.Context) ([]*models.CountryScore, error)
}

// SignalStorage journals emitted signals. Unexpired entries seed the dedup
// table on restart so a process bounce does not re-fire suppressed signals.
type SignalStorage interface {
	Put(ctx context.Context, signal *models.Signal) error
	Recent(ctx context.Context, limit int) ([]*models.Signal, error)
	Unexpired(ctx context.Context, now time.Time) ([]*models.Signal, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// CycleCommit is the atomic output of one completed refresh cycle. Either the
// whole commit lands or none of it does.
type CycleCommit struct {
	Baselines []*models.Baseline
	Scores    []*models.CountryScore
	Signals   []*models.Signal
}

// StorageManager provides access to all storage implementations and the
// all-or-nothing cycle commit.
type StorageManager interface {
	BaselineStorage() BaselineStorage
	ScoreStorage() ScoreStorage
	SignalStorage() SignalStorage

	// CommitCycle writes a completed cycle's baselines, scores and signals in
	// a single transaction.
	CommitCycle(ctx context.Context, commit *CycleCommit) error

	Close() error
}
