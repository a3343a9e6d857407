package domain

import (
	"fmt"
	"strings"
	"time"
)

type OperationName string

const (
	OperationAgent  OperationName = "agent"
	OperationDigest OperationName = "digest"
)

type BreakerConfig struct {
	Operation   OperationName
	MaxFailures int
	Cooldown    time.Duration
}

func (c BreakerConfig) Validate() error {
	if strings.TrimSpace(string(c.Operation)) == "" {
		return fmt.Errorf("operation is required")
	}
	if strings.ContainsAny(string(c.Operation), `/\`) {
		return fmt.Errorf("invalid operation name %q", c.Operation)
	}
	if c.MaxFailures <= 0 {
		return fmt.Errorf("max failures must be positive")
	}
	if c.Cooldown <= 0 {
		return fmt.Errorf("cooldown must be positive")
	}

	return nil
}

// CircuitState is the persisted failure record of one protected operation.
type CircuitState struct {
	FailureCount  int
	LastFailureAt time.Time
	MaxFailures   int
	Cooldown      time.Duration
}

// IsOpen reports failureCount >= maxFailures && now-lastFailureAt < cooldown.
func (s CircuitState) IsOpen(now time.Time) bool {
	if s.MaxFailures <= 0 || s.FailureCount < s.MaxFailures {
		return false
	}

	return now.Sub(s.LastFailureAt) < s.Cooldown
}

// ReopensAt is the instant a tripped breaker lets one probing attempt through.
// Zero when the breaker has not tripped.
func (s CircuitState) ReopensAt() time.Time {
	if s.MaxFailures <= 0 || s.FailureCount < s.MaxFailures {
		return time.Time{}
	}

	return s.LastFailureAt.Add(s.Cooldown)
}

func (s CircuitState) WithFailure(now time.Time) CircuitState {
	s.FailureCount++
	s.LastFailureAt = now
	return s
}

func (s CircuitState) WithSuccess() CircuitState {
	s.FailureCount = 0
	return s
}
