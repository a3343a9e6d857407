package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bnema/mailbot/internal/domain"
	"github.com/bnema/mailbot/internal/ports"
)

// CircuitBreaker guards one operation with a persisted failure count. After
// the cooldown the breaker is half-open: the next attempt runs and its
// outcome decides the next state.
type CircuitBreaker struct {
	cfg     domain.BreakerConfig
	repo    ports.CircuitRepository
	audit   ports.AuditLog
	metrics ports.Metrics
	clock   ports.Clock
	logger  *slog.Logger

	mu sync.Mutex
}

type BreakerDeps struct {
	Repo    ports.CircuitRepository
	Audit   ports.AuditLog
	Metrics ports.Metrics
	Clock   ports.Clock
	Logger  *slog.Logger
}

func NewCircuitBreaker(cfg domain.BreakerConfig, deps BreakerDeps) (*CircuitBreaker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("breaker config: %w", err)
	}
	if deps.Repo == nil {
		return nil, fmt.Errorf("breaker %s: circuit repository is nil", cfg.Operation)
	}
	if deps.Audit == nil {
		deps.Audit = ports.NopAuditLog{}
	}
	if deps.Metrics == nil {
		deps.Metrics = ports.NopMetrics{}
	}
	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}

	return &CircuitBreaker{
		cfg:     cfg,
		repo:    deps.Repo,
		audit:   deps.Audit,
		metrics: deps.Metrics,
		clock:   deps.Clock,
		logger:  defaultLogger(deps.Logger),
	}, nil
}

func (b *CircuitBreaker) Operation() domain.OperationName {
	return b.cfg.Operation
}

// State loads the persisted state with the configured limits applied, so a
// config change takes effect without touching the file.
func (b *CircuitBreaker) State(ctx context.Context) (domain.CircuitState, error) {
	state, err := b.repo.Load(ctx, b.cfg.Operation)
	if err != nil {
		return domain.CircuitState{}, fmt.Errorf("load breaker %s: %w", b.cfg.Operation, err)
	}

	state.MaxFailures = b.cfg.MaxFailures
	state.Cooldown = b.cfg.Cooldown
	return state, nil
}

func (b *CircuitBreaker) IsOpen(ctx context.Context) (bool, error) {
	state, err := b.State(ctx)
	if err != nil {
		return false, err
	}
	return state.IsOpen(b.clock.Now()), nil
}

func (b *CircuitBreaker) Status(ctx context.Context) (domain.BreakerStatus, error) {
	state, err := b.State(ctx)
	if err != nil {
		return domain.BreakerStatus{}, err
	}
	return domain.BreakerStatus{Operation: b.cfg.Operation, State: state, Open: state.IsOpen(b.clock.Now())}, nil
}

func (b *CircuitBreaker) RecordFailure(ctx context.Context, reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, err := b.State(ctx)
	if err != nil {
		return err
	}

	now := b.clock.Now()
	wasOpen := state.IsOpen(now)
	state = state.WithFailure(now)

	if err := b.repo.Save(ctx, b.cfg.Operation, state); err != nil {
		return fmt.Errorf("save breaker %s: %w", b.cfg.Operation, err)
	}

	b.metrics.BreakerFailure(b.cfg.Operation)
	recordAudit(ctx, b.audit, b.logger, EventCircuitFailure, map[string]any{
		"operation": string(b.cfg.Operation),
		"failures":  state.FailureCount,
		"reason":    reason,
	})

	if !wasOpen && state.IsOpen(now) {
		b.metrics.BreakerOpened(b.cfg.Operation)
		b.logger.Warn("circuit opened", "operation", b.cfg.Operation, "failures", state.FailureCount, "reopens_at", state.ReopensAt())
		recordAudit(ctx, b.audit, b.logger, EventCircuitOpened, map[string]any{
			"operation":  string(b.cfg.Operation),
			"failures":   state.FailureCount,
			"reopens_at": state.ReopensAt().UTC().Format(time.RFC3339),
		})
	}

	return nil
}

// RecordSuccess resets the failure count. Nothing is written when the count
// is already zero and the file already carries the configured limits.
func (b *CircuitBreaker) RecordSuccess(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	stored, err := b.repo.Load(ctx, b.cfg.Operation)
	if err != nil {
		return fmt.Errorf("load breaker %s: %w", b.cfg.Operation, err)
	}
	if stored.FailureCount == 0 && stored.MaxFailures == b.cfg.MaxFailures && stored.Cooldown == b.cfg.Cooldown {
		return nil
	}

	state := domain.CircuitState{
		LastFailureAt: stored.LastFailureAt,
		MaxFailures:   b.cfg.MaxFailures,
		Cooldown:      b.cfg.Cooldown,
	}
	if err := b.repo.Save(ctx, b.cfg.Operation, state.WithSuccess()); err != nil {
		return fmt.Errorf("save breaker %s: %w", b.cfg.Operation, err)
	}

	return nil
}

// Reset is the operator's override: close the breaker now.
func (b *CircuitBreaker) Reset(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := domain.CircuitState{MaxFailures: b.cfg.MaxFailures, Cooldown: b.cfg.Cooldown}
	if err := b.repo.Save(ctx, b.cfg.Operation, state); err != nil {
		return fmt.Errorf("reset breaker %s: %w", b.cfg.Operation, err)
	}

	recordAudit(ctx, b.audit, b.logger, EventCircuitReset, map[string]any{"operation": string(b.cfg.Operation)})
	return nil
}
