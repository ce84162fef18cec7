package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/halcyonlabs/meridian/internal/interfaces"
	"github.com/halcyonlabs/meridian/internal/models"
)

// ScoreStorage implements the ScoreStorage interface for Badger
type ScoreStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewScoreStorage creates a new ScoreStorage instance
func NewScoreStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ScoreStorage {
	return &ScoreStorage{
		db:     db,
		logger: logger,
	}
}

// Get returns the last committed score for a country, or ErrNotFound.
func (s *ScoreStorage) Get(ctx context.Context, countryCode string) (*models.CountryScore, error) {
	var score models.CountryScore
	if err := s.db.Store().Get(countryCode, &score); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get score %s: %w", countryCode, err)
	}
	return &score, nil
}

// Put upserts one country score.
func (s *ScoreStorage) Put(ctx context.Context, score *models.CountryScore) error {
	if score == nil || score.CountryCode == "" {
		return fmt.Errorf("score country code is required")
	}
	if err := s.db.Store().Upsert(score.CountryCode, score); err != nil {
		return fmt.Errorf("failed to save score %s: %w", score.CountryCode, err)
	}
	return nil
}

// List returns every persisted country score, composite descending.
func (s *ScoreStorage) List(ctx context.Context) ([]*models.CountryScore, error) {
	var scores []models.CountryScore
	query := badgerhold.Where("CountryCode").Ne("").SortBy("Composite").Reverse()
	if err := s.db.Store().Find(&scores, query); err != nil {
		return nil, fmt.Errorf("failed to list scores: %w", err)
	}

	result := make([]*models.CountryScore, len(scores))
	for i := range scores {
		result[i] = &scores[i]
	}
	return result, nil
}
