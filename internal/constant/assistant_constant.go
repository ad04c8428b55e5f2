package constant

// Watermill topics for in-process events.
const (
	TurnCompletedTopic = "TURN_COMPLETED"
)

// Redis key prefix for the per-session turn lock.
const SessionLockPrefix = "assistant:turn_lock:"
