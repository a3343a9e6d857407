package ports

import (
	"context"

	"github.com/bnema/mailbot/internal/domain"
)

// ChatTransport delivers inbound updates and sends plain-text messages. Send
// returns *domain.RateLimitError when the remote side asks for a backoff.
type ChatTransport interface {
	Receive(ctx context.Context) ([]domain.Event, error)
	Send(ctx context.Context, chatID domain.ChatID, text string) error
}
