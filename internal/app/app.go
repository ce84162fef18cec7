package app

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/ternarybob/arbor"

	"github.com/halcyonlabs/meridian/internal/common"
	"github.com/halcyonlabs/meridian/internal/entity"
	"github.com/halcyonlabs/meridian/internal/handlers"
	"github.com/halcyonlabs/meridian/internal/interfaces"
	"github.com/halcyonlabs/meridian/internal/pipeline"
	"github.com/halcyonlabs/meridian/internal/services/events"
	"github.com/halcyonlabs/meridian/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager
	EventService   interfaces.EventService
	EntityIndex    *entity.Index
	Pipeline       *pipeline.Pipeline

	APIHandler    *handlers.APIHandler
	IngestHandler *handlers.IngestHandler
	WSHandler     *handlers.WebSocketHandler

	ctx       context.Context
	cancelCtx context.CancelFunc
}

// New wires the application: storage, entity registry, event bus, pipeline
// and handlers, in dependency order.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	storageManager, err := badger.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	records, err := entity.LoadDir(config.Registry.Dir, logger)
	if err != nil {
		cancel()
		storageManager.Close()
		return nil, fmt.Errorf("failed to load entity registry: %w", err)
	}
	index, err := entity.BuildIndex(records)
	if err != nil {
		cancel()
		storageManager.Close()
		return nil, fmt.Errorf("failed to build entity index: %w", err)
	}
	logger.Info().Int("entities", index.Len()).Str("dir", config.Registry.Dir).Msg("Entity registry loaded")

	eventService := events.NewService(logger)
	clock := clockwork.NewRealClock()

	p, err := pipeline.New(config, index, storageManager, eventService, clock, logger)
	if err != nil {
		cancel()
		storageManager.Close()
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	app := &App{
		Config:         config,
		Logger:         logger,
		StorageManager: storageManager,
		EventService:   eventService,
		EntityIndex:    index,
		Pipeline:       p,
		APIHandler:     handlers.NewAPIHandler(p, storageManager, logger),
		IngestHandler:  handlers.NewIngestHandler(p.Gateway(), logger),
		WSHandler:      handlers.NewWebSocketHandler(eventService, logger),
		ctx:            ctx,
		cancelCtx:      cancel,
	}

	return app, nil
}

// Start begins the refresh cadence.
func (a *App) Start() error {
	return a.Pipeline.Start(a.ctx)
}

// Close shuts components down in reverse dependency order.
func (a *App) Close() error {
	a.cancelCtx()
	a.Pipeline.Stop()

	if err := a.EventService.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close event service")
	}
	if err := a.StorageManager.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close storage")
		return err
	}

	a.Logger.Info().Msg("Application closed")
	return nil
}
