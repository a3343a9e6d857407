package ports

import (
	"context"

	"github.com/bnema/mailbot/internal/domain"
)

// TokenRepository keeps the two credential files of an account apart so the
// hourly refresh only ever rewrites the token file.
type TokenRepository interface {
	LoadTokens(ctx context.Context, account domain.AccountID) (domain.TokenRecord, error)
	SaveTokens(ctx context.Context, account domain.AccountID, tokens domain.TokenRecord) error
	LoadAppCredentials(ctx context.Context, account domain.AccountID) (domain.AppCredentials, error)
	SaveAppCredentials(ctx context.Context, account domain.AccountID, creds domain.AppCredentials) error
}

// TokenExchanger trades a refresh token for a fresh access token. A refresh
// token rejected by the identity provider is reported as
// domain.ErrReauthorizationRequired.
type TokenExchanger interface {
	Refresh(ctx context.Context, creds domain.AppCredentials, refreshToken string) (domain.TokenRecord, error)
}
