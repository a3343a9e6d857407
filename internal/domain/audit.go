package domain

import "time"

type AuditEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	Event     string         `json:"event"`
	Context   map[string]any `json:"context,omitempty"`
}

// Snapshot is the periodic picture of a running daemon.
type Snapshot struct {
	TakenAt    time.Time
	PID        int
	InstanceID string
	Sessions   []SessionSummary
	Breakers   []BreakerStatus
}

type SessionSummary struct {
	ChatID    ChatID
	Kind      SessionKind
	Step      Step
	ExpiresAt time.Time
}

type BreakerStatus struct {
	Operation OperationName
	State     CircuitState
	Open      bool
}
