package jsonfile

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bnema/mailbot/internal/domain"
	"github.com/bnema/mailbot/internal/ports"
)

// circuitSchema is the on-disk layout; times are unix milliseconds so other
// tooling can read the file without a date parser.
type circuitSchema struct {
	FailureCount  int   `json:"failureCount"`
	LastFailureAt int64 `json:"lastFailureAt"`
	MaxFailures   int   `json:"maxFailures"`
	CooldownMs    int64 `json:"cooldownMs"`
}

type CircuitRepository struct {
	dir string
}

var _ ports.CircuitRepository = (*CircuitRepository)(nil)

// NewCircuitRepository keeps one <operation>.json per breaker under dir.
func NewCircuitRepository(dir string) (*CircuitRepository, error) {
	dir, err := normalizeDir(dir)
	if err != nil {
		return nil, fmt.Errorf("circuit directory: %w", err)
	}
	return &CircuitRepository{dir: dir}, nil
}

func (r *CircuitRepository) Load(ctx context.Context, operation domain.OperationName) (domain.CircuitState, error) {
	if err := ctx.Err(); err != nil {
		return domain.CircuitState{}, err
	}

	path, err := r.pathFor(operation)
	if err != nil {
		return domain.CircuitState{}, err
	}

	var stored circuitSchema
	found, err := readJSON(path, &stored)
	if err != nil {
		return domain.CircuitState{}, fmt.Errorf("load circuit %s: %w", operation, err)
	}
	if !found {
		return domain.CircuitState{}, nil
	}

	return fromCircuitSchema(stored), nil
}

func (r *CircuitRepository) Save(ctx context.Context, operation domain.OperationName, state domain.CircuitState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := r.pathFor(operation)
	if err != nil {
		return err
	}

	if err := writeJSON(path, toCircuitSchema(state)); err != nil {
		return fmt.Errorf("save circuit %s: %w", operation, err)
	}

	return nil
}

func (r *CircuitRepository) pathFor(operation domain.OperationName) (string, error) {
	cfg := domain.BreakerConfig{Operation: operation, MaxFailures: 1, Cooldown: 1}
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	return filepath.Join(r.dir, string(operation)+".json"), nil
}

func toCircuitSchema(state domain.CircuitState) circuitSchema {
	stored := circuitSchema{
		FailureCount: state.FailureCount,
		MaxFailures:  state.MaxFailures,
		CooldownMs:   state.Cooldown.Milliseconds(),
	}
	if !state.LastFailureAt.IsZero() {
		stored.LastFailureAt = state.LastFailureAt.UnixMilli()
	}
	return stored
}

func fromCircuitSchema(stored circuitSchema) domain.CircuitState {
	state := domain.CircuitState{
		FailureCount: stored.FailureCount,
		MaxFailures:  stored.MaxFailures,
		Cooldown:     time.Duration(stored.CooldownMs) * time.Millisecond,
	}
	if stored.LastFailureAt > 0 {
		state.LastFailureAt = time.UnixMilli(stored.LastFailureAt).UTC()
	}
	return state
}
