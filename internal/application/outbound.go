package application

import (
	"context"
	"errors"
	"time"

	"github.com/bnema/mailbot/internal/domain"
	"github.com/bnema/mailbot/internal/ports"
)

// maxRetryAfter caps how long a send waits on a backoff request.
const maxRetryAfter = 2 * time.Minute

// sendWithBackoff sends text and, when the transport asks for a backoff,
// waits once and retries once.
func sendWithBackoff(ctx context.Context, transport ports.ChatTransport, chatID domain.ChatID, text string) error {
	err := transport.Send(ctx, chatID, text)

	var rateLimited *domain.RateLimitError
	if !errors.As(err, &rateLimited) {
		return err
	}

	wait := rateLimited.RetryAfter
	if wait <= 0 {
		wait = time.Second
	}
	if wait > maxRetryAfter {
		return err
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	return transport.Send(ctx, chatID, text)
}
