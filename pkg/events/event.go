package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "assistant.turn_completed").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type codes carried on the audit stream.
const (
	TypeTurnCompleted    = "assistant.turn_completed"
	TypeEventsRegistered = "assistant.events_registered"
)

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewTurnCompleted describes one finished conversational turn.
func NewTurnCompleted(sessionID, mode string, needsConfirmation bool, durationMs int64) Event {
	return BaseEvent{
		Type: TypeTurnCompleted,
		Data: map[string]interface{}{
			"session_id":         sessionID,
			"mode":               mode,
			"needs_confirmation": needsConfirmation,
			"duration_ms":        durationMs,
		},
		OccurredAt: time.Now(),
	}
}

// NewEventsRegistered describes a batch of calendar registrations.
func NewEventsRegistered(sessionID string, created, skipped, failed int) Event {
	return BaseEvent{
		Type: TypeEventsRegistered,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"created":    created,
			"skipped":    skipped,
			"failed":     failed,
		},
		OccurredAt: time.Now(),
	}
}
