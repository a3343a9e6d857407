package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/bnema/mailbot/internal/domain"
	"github.com/bnema/mailbot/internal/ports"
	"golang.org/x/sync/semaphore"
)

const DefaultQueryTimeout = 90 * time.Second

// Query outcomes reported to metrics.
const (
	QueryOutcomeOK      = "ok"
	QueryOutcomeError   = "error"
	QueryOutcomeTimeout = "timeout"
	QueryOutcomeBusy    = "busy"
)

// QueryGate lets one language-model query run at a time. A query that fails
// or overruns its timeout counts as a failure of the gate's breaker;
// successes are left to the caller, which knows whether the answer was
// usable.
type QueryGate struct {
	model   ports.LanguageModel
	breaker *CircuitBreaker
	sem     *semaphore.Weighted
	timeout time.Duration
	metrics ports.Metrics
	logger  *slog.Logger
}

type QueryGateDeps struct {
	Model   ports.LanguageModel
	Breaker *CircuitBreaker
	Timeout time.Duration
	Metrics ports.Metrics
	Logger  *slog.Logger
}

func NewQueryGate(deps QueryGateDeps) (*QueryGate, error) {
	if deps.Model == nil {
		return nil, errors.New("query gate: language model is nil")
	}
	if deps.Breaker == nil {
		return nil, errors.New("query gate: breaker is nil")
	}
	if deps.Timeout <= 0 {
		deps.Timeout = DefaultQueryTimeout
	}
	if deps.Metrics == nil {
		deps.Metrics = ports.NopMetrics{}
	}

	return &QueryGate{
		model:   deps.Model,
		breaker: deps.Breaker,
		sem:     semaphore.NewWeighted(1),
		timeout: deps.Timeout,
		metrics: deps.Metrics,
		logger:  defaultLogger(deps.Logger),
	}, nil
}

func (g *QueryGate) Breaker() *CircuitBreaker {
	return g.breaker
}

// Query waits for the running query, if any, then runs this one.
func (g *QueryGate) Query(ctx context.Context, query domain.Query) (string, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("wait for model: %w", err)
	}
	defer g.sem.Release(1)

	return g.run(ctx, query)
}

// TryQuery returns domain.ErrQueryBusy instead of waiting.
func (g *QueryGate) TryQuery(ctx context.Context, query domain.Query) (string, error) {
	if !g.sem.TryAcquire(1) {
		g.metrics.ModelQuery(QueryOutcomeBusy, 0)
		return "", domain.ErrQueryBusy
	}
	defer g.sem.Release(1)

	return g.run(ctx, query)
}

func (g *QueryGate) run(ctx context.Context, query domain.Query) (string, error) {
	queryCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	started := time.Now()
	answer, err := collect(queryCtx, g.model, query)
	elapsed := time.Since(started)
	if err == nil {
		g.metrics.ModelQuery(QueryOutcomeOK, elapsed)
		return answer, nil
	}

	// Shutdown is not the model's fault.
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	outcome := QueryOutcomeError
	if errors.Is(queryCtx.Err(), context.DeadlineExceeded) {
		outcome = QueryOutcomeTimeout
		err = fmt.Errorf("model query timed out after %s: %w", g.timeout, context.DeadlineExceeded)
	}
	g.metrics.ModelQuery(outcome, elapsed)
	g.logger.Warn("model query failed", "operation", g.breaker.Operation(), "outcome", outcome, "elapsed", elapsed, "error", err)

	if recordErr := g.breaker.RecordFailure(ctx, err.Error()); recordErr != nil {
		return "", errors.Join(err, recordErr)
	}
	return "", err
}

func collect(ctx context.Context, model ports.LanguageModel, query domain.Query) (string, error) {
	stream, err := model.Stream(ctx, query)
	if err != nil {
		return "", fmt.Errorf("open model stream: %w", err)
	}
	defer stream.Close()

	var answer strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read model stream: %w", err)
		}
		answer.WriteString(chunk)

		if err := ctx.Err(); err != nil {
			return "", err
		}
	}

	return answer.String(), nil
}
