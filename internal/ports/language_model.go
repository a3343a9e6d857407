package ports

import (
	"context"

	"github.com/bnema/mailbot/internal/domain"
)

// TextStream yields chunks until Recv returns io.EOF.
type TextStream interface {
	Recv() (string, error)
	Close() error
}

type LanguageModel interface {
	Stream(ctx context.Context, query domain.Query) (TextStream, error)
}
