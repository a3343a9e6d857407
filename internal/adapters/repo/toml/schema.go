package toml

import "fmt"

const currentSchemaVersion = 1

type snapshotSchema struct {
	Version    int             `toml:"version"`
	TakenAt    string          `toml:"taken_at"`
	PID        int             `toml:"pid"`
	InstanceID string          `toml:"instance_id"`
	Sessions   []sessionSchema `toml:"sessions,omitempty"`
	Breakers   []breakerSchema `toml:"breakers,omitempty"`
}

func (s *snapshotSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s snapshotSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported snapshot schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type sessionSchema struct {
	ChatID    int64  `toml:"chat_id"`
	Kind      string `toml:"kind"`
	Step      string `toml:"step"`
	ExpiresAt string `toml:"expires_at"`
}

type breakerSchema struct {
	Operation     string `toml:"operation"`
	FailureCount  int    `toml:"failure_count"`
	MaxFailures   int    `toml:"max_failures"`
	CooldownMs    int64  `toml:"cooldown_ms"`
	LastFailureAt string `toml:"last_failure_at,omitempty"`
	Open          bool   `toml:"open"`
}
