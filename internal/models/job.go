package models

// Job statuses for the ephemeral processing entry.
const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"

	// JobStatusUnknown is synthesized by status queries when neither an
	// ephemeral entry nor a terminal durable status exists.
	JobStatusUnknown = "unknown"
)
