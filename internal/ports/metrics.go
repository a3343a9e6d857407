package ports

import (
	"time"

	"github.com/bnema/mailbot/internal/domain"
)

type Metrics interface {
	BreakerFailure(operation domain.OperationName)
	BreakerOpened(operation domain.OperationName)
	DigestRun(outcome domain.DigestOutcome)
	ModelQuery(outcome string, elapsed time.Duration)
	ActiveSessions(n int)
}

type NopMetrics struct{}

func (NopMetrics) BreakerFailure(domain.OperationName) {}
func (NopMetrics) BreakerOpened(domain.OperationName) {}
func (NopMetrics) DigestRun(domain.DigestOutcome) {}
func (NopMetrics) ModelQuery(string, time.Duration) {}
func (NopMetrics) ActiveSessions(int) {}
