package ports

import (
	"context"

	"github.com/bnema/mailbot/internal/domain"
)

type MailClient interface {
	List(ctx context.Context, windowHours int) ([]domain.MailItem, error)
	Create(ctx context.Context, draft domain.Draft) (string, error)
}
