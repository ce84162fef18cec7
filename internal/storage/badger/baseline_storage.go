package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/halcyonlabs/meridian/internal/interfaces"
	"github.com/halcyonlabs/meridian/internal/models"
)

// BaselineStorage implements the BaselineStorage interface for Badger
type BaselineStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewBaselineStorage creates a new BaselineStorage instance
func NewBaselineStorage(db *BadgerDB, logger arbor.ILogger) interfaces.BaselineStorage {
	return &BaselineStorage{
		db:     db,
		logger: logger,
	}
}

// Get returns the persisted baseline for a metric, or ErrNotFound on a
// first run.
func (s *BaselineStorage) Get(ctx context.Context, metricKey string) (*models.Baseline, error) {
	var baseline models.Baseline
	if err := s.db.Store().Get(metricKey, &baseline); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get baseline %s: %w", metricKey, err)
	}
	return &baseline, nil
}

// Put upserts one baseline.
func (s *BaselineStorage) Put(ctx context.Context, baseline *models.Baseline) error {
	if baseline == nil || baseline.MetricKey == "" {
		return fmt.Errorf("baseline metric key is required")
	}
	if err := s.db.Store().Upsert(baseline.MetricKey, baseline); err != nil {
		return fmt.Errorf("failed to save baseline %s: %w", baseline.MetricKey, err)
	}
	return nil
}

// List returns every persisted baseline, sorted by metric key.
func (s *BaselineStorage) List(ctx context.Context) ([]*models.Baseline, error) {
	var baselines []models.Baseline
	query := badgerhold.Where("MetricKey").Ne("").SortBy("MetricKey")
	if err := s.db.Store().Find(&baselines, query); err != nil {
		return nil, fmt.Errorf("failed to list baselines: %w", err)
	}

	result := make([]*models.Baseline, len(baselines))
	for i := range baselines {
		result[i] = &baselines[i]
	}
	return result, nil
}
