package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/halcyonlabs/meridian/internal/interfaces"
	"github.com/halcyonlabs/meridian/internal/models"
)

// SignalStorage implements the SignalStorage interface for Badger
type SignalStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSignalStorage creates a new SignalStorage instance
func NewSignalStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SignalStorage {
	return &SignalStorage{
		db:     db,
		logger: logger,
	}
}

// Put journals one emitted signal.
func (s *SignalStorage) Put(ctx context.Context, signal *models.Signal) error {
	if signal == nil || signal.ID == "" {
		return fmt.Errorf("signal ID is required")
	}
	if err := s.db.Store().Upsert(signal.ID, signal); err != nil {
		return fmt.Errorf("failed to save signal %s: %w", signal.ID, err)
	}
	return nil
}

// Recent returns the most recently fired signals, newest first.
func (s *SignalStorage) Recent(ctx context.Context, limit int) ([]*models.Signal, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("FirstFiredAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var signals []models.Signal
	if err := s.db.Store().Find(&signals, query); err != nil {
		return nil, fmt.Errorf("failed to list recent signals: %w", err)
	}

	result := make([]*models.Signal, len(signals))
	for i := range signals {
		result[i] = &signals[i]
	}
	return result, nil
}

// Unexpired returns signals whose dedup horizon is still in the future,
// used to seed the dedup table on restart.
func (s *SignalStorage) Unexpired(ctx context.Context, now time.Time) ([]*models.Signal, error) {
	var signals []models.Signal
	query := badgerhold.Where("ExpiresAt").Gt(now)
	if err := s.db.Store().Find(&signals, query); err != nil {
		return nil, fmt.Errorf("failed to list unexpired signals: %w", err)
	}

	result := make([]*models.Signal, len(signals))
	for i := range signals {
		result[i] = &signals[i]
	}
	return result, nil
}

// DeleteExpired prunes journal entries past their dedup horizon and returns
// how many were removed.
func (s *SignalStorage) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	var expired []models.Signal
	query := badgerhold.Where("ExpiresAt").Le(now)
	if err := s.db.Store().Find(&expired, query); err != nil {
		return 0, fmt.Errorf("failed to find expired signals: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	if err := s.db.Store().DeleteMatching(&models.Signal{}, query); err != nil {
		return 0, fmt.Errorf("failed to delete expired signals: %w", err)
	}

	s.logger.Debug().Int("count", len(expired)).Msg("Expired signals pruned")
	return len(expired), nil
}
