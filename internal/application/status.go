package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/mailbot/internal/domain"
	"github.com/bnema/mailbot/internal/ports"
)

type DaemonStatus struct {
	PID      int
	Running  bool
	Snapshot *domain.Snapshot
}

type StatusReport struct {
	GeneratedAt time.Time
	Daemon      DaemonStatus
	Breakers    []domain.BreakerStatus
	Tokens      domain.TokenStatus
}

// StatusReporter assembles what `mailbot status` shows from the on-disk
// state, so it works whether or not a daemon is running.
type StatusReporter struct {
	breakers     []*CircuitBreaker
	tokens       *TokenRefreshCache
	snapshots    ports.SnapshotRepository
	daemonHolder func() (int, bool)
	clock        ports.Clock
}

type StatusDeps struct {
	Breakers  []*CircuitBreaker
	Tokens    *TokenRefreshCache
	Snapshots ports.SnapshotRepository
	// DaemonHolder reports the daemon lock holder and whether it is alive.
	DaemonHolder func() (int, bool)
	Clock        ports.Clock
}

func NewStatusReporter(deps StatusDeps) *StatusReporter {
	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}
	if deps.DaemonHolder == nil {
		deps.DaemonHolder = func() (int, bool) { return 0, false }
	}
	return &StatusReporter{
		breakers:     deps.Breakers,
		tokens:       deps.Tokens,
		snapshots:    deps.Snapshots,
		daemonHolder: deps.DaemonHolder,
		clock:        deps.Clock,
	}
}

func (r *StatusReporter) Report(ctx context.Context, account domain.AccountID) (StatusReport, error) {
	report := StatusReport{GeneratedAt: r.clock.Now()}
	report.Daemon.PID, report.Daemon.Running = r.daemonHolder()

	if r.snapshots != nil {
		snapshot, err := r.snapshots.Load(ctx)
		switch {
		case err == nil:
			report.Daemon.Snapshot = &snapshot
		case !errors.Is(err, domain.ErrSnapshotNotFound):
			return StatusReport{}, fmt.Errorf("load snapshot: %w", err)
		}
	}

	for _, breaker := range r.breakers {
		status, err := breaker.Status(ctx)
		if err != nil {
			return StatusReport{}, err
		}
		report.Breakers = append(report.Breakers, status)
	}

	if r.tokens != nil {
		tokens, err := r.tokens.Status(ctx, account)
		if err != nil {
			return StatusReport{}, err
		}
		report.Tokens = tokens
	}

	return report, nil
}

// Breaker returns the breaker guarding operation.
func (r *StatusReporter) Breaker(operation domain.OperationName) (*CircuitBreaker, error) {
	for _, breaker := range r.breakers {
		if breaker.Operation() == operation {
			return breaker, nil
		}
	}
	return nil, fmt.Errorf("unknown breaker %q", operation)
}
