package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bnema/mailbot/internal/domain"
	"github.com/bnema/mailbot/internal/ports"
)

// TokenExpirySkew refreshes access tokens this long before they expire.
const TokenExpirySkew = 60 * time.Second

// AppCredentialsSecretKey names the secret-store entry holding an account's
// OAuth client.
func AppCredentialsSecretKey(account domain.AccountID) string {
	return "mailbot/" + string(account) + "/app-credentials"
}

// TokenRefreshCache hands out valid access tokens. Tokens are refreshed on
// demand; app credentials come from the secret store once and live in the
// local repository after that.
type TokenRefreshCache struct {
	repo      ports.TokenRepository
	secrets   ports.SecretStore
	exchanger ports.TokenExchanger
	audit     ports.AuditLog
	clock     ports.Clock
	logger    *slog.Logger

	mu sync.Mutex
}

type TokenCacheDeps struct {
	Repo      ports.TokenRepository
	Secrets   ports.SecretStore
	Exchanger ports.TokenExchanger
	Audit     ports.AuditLog
	Clock     ports.Clock
	Logger    *slog.Logger
}

func NewTokenRefreshCache(deps TokenCacheDeps) *TokenRefreshCache {
	if deps.Audit == nil {
		deps.Audit = ports.NopAuditLog{}
	}
	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}

	return &TokenRefreshCache{
		repo:      deps.Repo,
		secrets:   deps.Secrets,
		exchanger: deps.Exchanger,
		audit:     deps.Audit,
		clock:     deps.Clock,
		logger:    defaultLogger(deps.Logger),
	}
}

func (c *TokenRefreshCache) GetValidAccessToken(ctx context.Context, account domain.AccountID) (string, error) {
	tokens, err := c.refresh(ctx, account, false)
	if err != nil {
		return "", err
	}
	return tokens.AccessToken, nil
}

// ForceRefresh exchanges the refresh token even when the access token is
// still valid.
func (c *TokenRefreshCache) ForceRefresh(ctx context.Context, account domain.AccountID) (domain.TokenRecord, error) {
	return c.refresh(ctx, account, true)
}

func (c *TokenRefreshCache) refresh(ctx context.Context, account domain.AccountID, force bool) (domain.TokenRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.TokenRecord{}, err
	}
	if err := account.Validate(); err != nil {
		return domain.TokenRecord{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tokens, err := c.repo.LoadTokens(ctx, account)
	if errors.Is(err, domain.ErrTokensNotFound) {
		return domain.TokenRecord{}, c.reauthRequired(ctx, account, "no stored tokens")
	}
	if err != nil {
		return domain.TokenRecord{}, fmt.Errorf("load tokens for %s: %w", account, err)
	}

	if !force && !tokens.ExpiringSoon(c.clock.Now(), TokenExpirySkew) {
		return tokens, nil
	}
	if strings.TrimSpace(tokens.RefreshToken) == "" {
		return domain.TokenRecord{}, c.reauthRequired(ctx, account, "no refresh token")
	}

	creds, err := c.appCredentials(ctx, account)
	if err != nil {
		return domain.TokenRecord{}, err
	}

	refreshed, err := c.exchanger.Refresh(ctx, creds, tokens.RefreshToken)
	if errors.Is(err, domain.ErrReauthorizationRequired) {
		return domain.TokenRecord{}, c.reauthRequired(ctx, account, "refresh token rejected")
	}
	if err != nil {
		return domain.TokenRecord{}, fmt.Errorf("refresh tokens for %s: %w", account, err)
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = tokens.RefreshToken
	}

	if err := c.repo.SaveTokens(ctx, account, refreshed); err != nil {
		return domain.TokenRecord{}, fmt.Errorf("save tokens for %s: %w", account, err)
	}

	c.logger.Info("access token refreshed", "account", account, "expires_at", refreshed.ExpiryDate)
	recordAudit(ctx, c.audit, c.logger, EventTokenRefreshed, map[string]any{
		"account":    string(account),
		"expires_at": refreshed.ExpiryDate.UTC().Format(time.RFC3339),
	})
	return refreshed, nil
}

// AppCredentials returns the account's OAuth client, reading the secret
// store only when no local copy exists yet.
func (c *TokenRefreshCache) AppCredentials(ctx context.Context, account domain.AccountID) (domain.AppCredentials, error) {
	if err := account.Validate(); err != nil {
		return domain.AppCredentials{}, err
	}
	return c.appCredentials(ctx, account)
}

func (c *TokenRefreshCache) appCredentials(ctx context.Context, account domain.AccountID) (domain.AppCredentials, error) {
	creds, err := c.repo.LoadAppCredentials(ctx, account)
	if err == nil {
		return creds, nil
	}
	if !errors.Is(err, domain.ErrAppCredentialsNotFound) {
		return domain.AppCredentials{}, fmt.Errorf("load app credentials for %s: %w", account, err)
	}

	raw, err := c.secrets.Get(ctx, AppCredentialsSecretKey(account))
	if errors.Is(err, domain.ErrSecretNotFound) {
		return domain.AppCredentials{}, c.reauthRequired(ctx, account, "app credentials missing from secret store")
	}
	if err != nil {
		return domain.AppCredentials{}, fmt.Errorf("read app credentials for %s: %w", account, err)
	}

	creds, err = ParseAppCredentials(raw)
	if err != nil {
		return domain.AppCredentials{}, fmt.Errorf("parse app credentials for %s: %w", account, err)
	}
	if err := c.repo.SaveAppCredentials(ctx, account, creds); err != nil {
		return domain.AppCredentials{}, fmt.Errorf("cache app credentials for %s: %w", account, err)
	}

	return creds, nil
}

// SetAppCredentials stores a new OAuth client in the secret store and
// replaces the local copy.
func (c *TokenRefreshCache) SetAppCredentials(ctx context.Context, account domain.AccountID, raw string) (domain.AppCredentials, error) {
	if err := account.Validate(); err != nil {
		return domain.AppCredentials{}, err
	}

	creds, err := ParseAppCredentials(raw)
	if err != nil {
		return domain.AppCredentials{}, err
	}

	normalized, err := json.Marshal(appCredentialsJSON{ClientID: creds.ClientID, ClientSecret: creds.ClientSecret})
	if err != nil {
		return domain.AppCredentials{}, fmt.Errorf("encode app credentials: %w", err)
	}
	if err := c.secrets.Put(ctx, AppCredentialsSecretKey(account), string(normalized)); err != nil {
		return domain.AppCredentials{}, fmt.Errorf("store app credentials for %s: %w", account, err)
	}
	if err := c.repo.SaveAppCredentials(ctx, account, creds); err != nil {
		return domain.AppCredentials{}, fmt.Errorf("cache app credentials for %s: %w", account, err)
	}

	return creds, nil
}

func (c *TokenRefreshCache) SaveTokens(ctx context.Context, account domain.AccountID, tokens domain.TokenRecord) error {
	if err := account.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.repo.SaveTokens(ctx, account, tokens); err != nil {
		return fmt.Errorf("save tokens for %s: %w", account, err)
	}

	recordAudit(ctx, c.audit, c.logger, EventTokenSaved, map[string]any{
		"account":    string(account),
		"expires_at": tokens.ExpiryDate.UTC().Format(time.RFC3339),
	})
	return nil
}

func (c *TokenRefreshCache) Status(ctx context.Context, account domain.AccountID) (domain.TokenStatus, error) {
	if err := account.Validate(); err != nil {
		return domain.TokenStatus{}, err
	}
	status := domain.TokenStatus{Account: account}

	tokens, err := c.repo.LoadTokens(ctx, account)
	switch {
	case err == nil:
		status.HasTokens = true
		status.ExpiryDate = tokens.ExpiryDate
	case !errors.Is(err, domain.ErrTokensNotFound):
		return domain.TokenStatus{}, fmt.Errorf("load tokens for %s: %w", account, err)
	}

	_, err = c.repo.LoadAppCredentials(ctx, account)
	switch {
	case err == nil:
		status.HasAppCredentials = true
	case !errors.Is(err, domain.ErrAppCredentialsNotFound):
		return domain.TokenStatus{}, fmt.Errorf("load app credentials for %s: %w", account, err)
	}

	return status, nil
}

func (c *TokenRefreshCache) reauthRequired(ctx context.Context, account domain.AccountID, reason string) error {
	c.logger.Warn("reauthorization required", "account", account, "reason", reason)
	recordAudit(ctx, c.audit, c.logger, EventTokenReauthRequired, map[string]any{
		"account": string(account),
		"reason":  reason,
	})
	return fmt.Errorf("account %s: %s: %w", account, reason, domain.ErrReauthorizationRequired)
}

type appCredentialsJSON struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// ParseAppCredentials accepts {"client_id","client_secret"} as well as the
// client file Google's console downloads ({"installed":{...}} or
// {"web":{...}}).
func ParseAppCredentials(raw string) (domain.AppCredentials, error) {
	var envelope struct {
		appCredentialsJSON
		Installed *appCredentialsJSON `json:"installed"`
		Web       *appCredentialsJSON `json:"web"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &envelope); err != nil {
		return domain.AppCredentials{}, fmt.Errorf("decode app credentials: %w", err)
	}

	selected := envelope.appCredentialsJSON
	switch {
	case envelope.Installed != nil:
		selected = *envelope.Installed
	case envelope.Web != nil:
		selected = *envelope.Web
	}

	creds := domain.AppCredentials{
		ClientID:     strings.TrimSpace(selected.ClientID),
		ClientSecret: strings.TrimSpace(selected.ClientSecret),
	}
	if err := creds.Validate(); err != nil {
		return domain.AppCredentials{}, fmt.Errorf("invalid app credentials: %w", err)
	}
	return creds, nil
}
