package ports

import (
	"context"

	"github.com/bnema/mailbot/internal/domain"
)

// CircuitRepository persists one CircuitState per protected operation. Load
// returns a zero state when nothing was persisted yet.
type CircuitRepository interface {
	Load(ctx context.Context, operation domain.OperationName) (domain.CircuitState, error)
	Save(ctx context.Context, operation domain.OperationName, state domain.CircuitState) error
}
