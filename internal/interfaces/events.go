package interfaces

import "context"

// EventType names a bus event.
type EventType string

const (
	// EventCycleCompleted fires after a refresh cycle commits. Payload is the
	// pipeline's cycle summary.
	EventCycleCompleted EventType = "cycle_completed"
	// EventSignalFired fires once per newly emitted signal. Payload is
	// *models.Signal.
	EventSignalFired EventType = "signal_fired"
	// EventScoresUpdated fires when country scores are recomputed. Payload is
	// []*models.CountryScore.
	EventScoresUpdated EventType = "scores_updated"
)

// Event is a system event.
type Event struct {
	Type    EventType
	Payload interface{}
}

// EventHandler handles bus events.
type EventHandler func(ctx context.Context, event Event) error

// EventService is a minimal pub/sub bus connecting the pipeline to the
// collaborator-facing surfaces (websocket hub, status endpoint).
type EventService interface {
	Subscribe(eventType EventType, handler EventHandler) error
	Publish(ctx context.Context, event Event) error
	PublishSync(ctx context.Context, event Event) error
	Close() error
}
