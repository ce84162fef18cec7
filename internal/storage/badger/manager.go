package badger

import (
	"context"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"

	"github.com/halcyonlabs/meridian/internal/common"
	"github.com/halcyonlabs/meridian/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db       *BadgerDB
	baseline interfaces.BaselineStorage
	score    interfaces.ScoreStorage
	signal   interfaces.SignalStorage
	logger   arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:       db,
		baseline: NewBaselineStorage(db, logger),
		score:    NewScoreStorage(db, logger),
		signal:   NewSignalStorage(db, logger),
		logger:   logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// BaselineStorage returns the Baseline storage interface
func (m *Manager) BaselineStorage() interfaces.BaselineStorage {
	return m.baseline
}

// ScoreStorage returns the Score storage interface
func (m *Manager) ScoreStorage() interfaces.ScoreStorage {
	return m.score
}

// SignalStorage returns the Signal storage interface
func (m *Manager) SignalStorage() interfaces.SignalStorage {
	return m.signal
}

// CommitCycle writes one cycle's baselines, scores and signals inside a
// single Badger transaction, so a cancelled or crashed cycle never leaves a
// half-updated store behind.
func (m *Manager) CommitCycle(ctx context.Context, commit *interfaces.CycleCommit) error {
	if commit == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	store := m.db.Store()
	err := store.Badger().Update(func(tx *badgerdb.Txn) error {
		for _, b := range commit.Baselines {
			if b == nil || b.MetricKey == "" {
				continue
			}
			if err := store.TxUpsert(tx, b.MetricKey, b); err != nil {
				return fmt.Errorf("failed to commit baseline %s: %w", b.MetricKey, err)
			}
		}
		for _, s := range commit.Scores {
			if s == nil || s.CountryCode == "" {
				continue
			}
			if err := store.TxUpsert(tx, s.CountryCode, s); err != nil {
				return fmt.Errorf("failed to commit score %s: %w", s.CountryCode, err)
			}
		}
		for _, sig := range commit.Signals {
			if sig == nil || sig.ID == "" {
				continue
			}
			if err := store.TxUpsert(tx, sig.ID, sig); err != nil {
				return fmt.Errorf("failed to commit signal %s: %w", sig.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug().
		Int("baselines", len(commit.Baselines)).
		Int("scores", len(commit.Scores)).
		Int("signals", len(commit.Signals)).
		Msg("Cycle committed")

	return nil
}

// DB returns the underlying database connection
func (m *Manager) DB() interface{} {
	if m.db != nil {
		return m.db.Store()
	}
	return nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
