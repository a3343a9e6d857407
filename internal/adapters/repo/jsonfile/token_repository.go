package jsonfile

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bnema/mailbot/internal/domain"
	"github.com/bnema/mailbot/internal/ports"
)

type tokenSchema struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiryDate   int64  `json:"expiry_date,omitempty"`
}

type appCredentialsSchema struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// TokenRepository writes <id>.json (refreshed often) and
// <id>.app-credentials.json (written once) side by side.
type TokenRepository struct {
	dir string
}

var _ ports.TokenRepository = (*TokenRepository)(nil)

func NewTokenRepository(dir string) (*TokenRepository, error) {
	dir, err := normalizeDir(dir)
	if err != nil {
		return nil, fmt.Errorf("token directory: %w", err)
	}
	return &TokenRepository{dir: dir}, nil
}

func (r *TokenRepository) LoadTokens(ctx context.Context, account domain.AccountID) (domain.TokenRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.TokenRecord{}, err
	}
	if err := account.Validate(); err != nil {
		return domain.TokenRecord{}, err
	}

	var stored tokenSchema
	found, err := readJSON(r.tokensPath(account), &stored)
	if err != nil {
		return domain.TokenRecord{}, fmt.Errorf("load tokens for %s: %w", account, err)
	}
	if !found {
		return domain.TokenRecord{}, fmt.Errorf("load tokens for %s: %w", account, domain.ErrTokensNotFound)
	}

	record := domain.TokenRecord{AccessToken: stored.AccessToken, RefreshToken: stored.RefreshToken}
	if stored.ExpiryDate > 0 {
		record.ExpiryDate = time.UnixMilli(stored.ExpiryDate).UTC()
	}
	return record, nil
}

func (r *TokenRepository) SaveTokens(ctx context.Context, account domain.AccountID, tokens domain.TokenRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := account.Validate(); err != nil {
		return err
	}

	stored := tokenSchema{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}
	if !tokens.ExpiryDate.IsZero() {
		stored.ExpiryDate = tokens.ExpiryDate.UnixMilli()
	}

	if err := writeJSON(r.tokensPath(account), stored); err != nil {
		return fmt.Errorf("save tokens for %s: %w", account, err)
	}
	return nil
}

func (r *TokenRepository) LoadAppCredentials(ctx context.Context, account domain.AccountID) (domain.AppCredentials, error) {
	if err := ctx.Err(); err != nil {
		return domain.AppCredentials{}, err
	}
	if err := account.Validate(); err != nil {
		return domain.AppCredentials{}, err
	}

	var stored appCredentialsSchema
	found, err := readJSON(r.appCredentialsPath(account), &stored)
	if err != nil {
		return domain.AppCredentials{}, fmt.Errorf("load app credentials for %s: %w", account, err)
	}
	if !found {
		return domain.AppCredentials{}, fmt.Errorf("load app credentials for %s: %w", account, domain.ErrAppCredentialsNotFound)
	}

	return domain.AppCredentials{ClientID: stored.ClientID, ClientSecret: stored.ClientSecret}, nil
}

func (r *TokenRepository) SaveAppCredentials(ctx context.Context, account domain.AccountID, creds domain.AppCredentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := account.Validate(); err != nil {
		return err
	}
	if err := creds.Validate(); err != nil {
		return err
	}

	stored := appCredentialsSchema{ClientID: creds.ClientID, ClientSecret: creds.ClientSecret}
	if err := writeJSON(r.appCredentialsPath(account), stored); err != nil {
		return fmt.Errorf("save app credentials for %s: %w", account, err)
	}
	return nil
}

func (r *TokenRepository) tokensPath(account domain.AccountID) string {
	return filepath.Join(r.dir, string(account)+".json")
}

func (r *TokenRepository) appCredentialsPath(account domain.AccountID) string {
	return filepath.Join(r.dir, string(account)+".app-credentials.json")
}
