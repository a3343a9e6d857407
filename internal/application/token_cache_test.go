package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bnema/mailbot/internal/adapters/repo/jsonfile"
	"github.com/bnema/mailbot/internal/domain"
	"github.com/bnema/mailbot/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAccount = domain.AccountID("work")

func newTestTokenCache(t *testing.T, dir string, clock *manualClock, audit *memoryAudit) (*TokenRefreshCache, *mocks.MockSecretStore, *mocks.MockTokenExchanger, *jsonfile.TokenRepository) {
	t.Helper()

	repo, err := jsonfile.NewTokenRepository(dir)
	require.NoError(t, err)
	secrets := mocks.NewMockSecretStore(t)
	exchanger := mocks.NewMockTokenExchanger(t)

	cache := NewTokenRefreshCache(TokenCacheDeps{
		Repo:      repo,
		Secrets:   secrets,
		Exchanger: exchanger,
		Audit:     audit,
		Clock:     clock,
	})
	return cache, secrets, exchanger, repo
}

func TestTokenCacheReturnsUnexpiredTokenWithoutRefresh(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cache, _, _, repo := newTestTokenCache(t, t.TempDir(), newManualClock(now), &memoryAudit{})
	require.NoError(t, repo.SaveTokens(context.Background(), testAccount, domain.TokenRecord{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiryDate:   now.Add(time.Hour),
	}))

	token, err := cache.GetValidAccessToken(context.Background(), testAccount)
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)
}

func TestTokenCacheRefreshFetchesSecretOnceAndPersistsTokenFile(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := newManualClock(now)
	audit := &memoryAudit{}
	cache, secrets, exchanger, repo := newTestTokenCache(t, t.TempDir(), clock, audit)
	creds := domain.AppCredentials{ClientID: "client-id", ClientSecret: "client-secret"}

	require.NoError(t, repo.SaveTokens(context.Background(), testAccount, domain.TokenRecord{
		AccessToken:  "stale",
		RefreshToken: "refresh-1",
		ExpiryDate:   now.Add(30 * time.Second),
	}))

	secrets.EXPECT().Get(mockAnyContext(), "mailbot/work/app-credentials").
		Return(`{"installed":{"client_id":"client-id","client_secret":"client-secret"}}`, nil).Once()
	exchanger.EXPECT().Refresh(mockAnyContext(), creds, "refresh-1").
		Return(domain.TokenRecord{AccessToken: "fresh-1", ExpiryDate: now.Add(time.Hour)}, nil).Once()
	exchanger.EXPECT().Refresh(mockAnyContext(), creds, "refresh-1").
		Return(domain.TokenRecord{AccessToken: "fresh-2", RefreshToken: "refresh-2", ExpiryDate: now.Add(3 * time.Hour)}, nil).Once()

	token, err := cache.GetValidAccessToken(context.Background(), testAccount)
	require.NoError(t, err)
	assert.Equal(t, "fresh-1", token)

	stored, err := repo.LoadTokens(context.Background(), testAccount)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", stored.RefreshToken, "refresh token kept when provider omits it")

	clock.Advance(2 * time.Hour)
	token, err = cache.GetValidAccessToken(context.Background(), testAccount)
	require.NoError(t, err)
	assert.Equal(t, "fresh-2", token)

	stored, err = repo.LoadTokens(context.Background(), testAccount)
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", stored.RefreshToken)
	assert.Equal(t, []string{EventTokenRefreshed, EventTokenRefreshed}, audit.Events())
}

func TestTokenCacheReloadAfterRestartNeedsNoNetwork(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	dir := t.TempDir()
	first, secrets, exchanger, repo := newTestTokenCache(t, dir, newManualClock(now), &memoryAudit{})
	require.NoError(t, repo.SaveTokens(context.Background(), testAccount, domain.TokenRecord{
		AccessToken:  "stale",
		RefreshToken: "refresh-1",
		ExpiryDate:   now.Add(-time.Minute),
	}))

	secrets.EXPECT().Get(mockAnyContext(), "mailbot/work/app-credentials").
		Return(`{"client_id":"client-id","client_secret":"client-secret"}`, nil).Once()
	exchanger.EXPECT().Refresh(mockAnyContext(), domain.AppCredentials{ClientID: "client-id", ClientSecret: "client-secret"}, "refresh-1").
		Return(domain.TokenRecord{AccessToken: "fresh", ExpiryDate: now.Add(time.Hour)}, nil).Once()

	_, err := first.GetValidAccessToken(context.Background(), testAccount)
	require.NoError(t, err)

	// Fresh mocks carry no expectations: any secret-store or exchanger call fails the test.
	restarted, _, _, _ := newTestTokenCache(t, dir, newManualClock(now.Add(time.Minute)), &memoryAudit{})

	creds, err := restarted.AppCredentials(context.Background(), testAccount)
	require.NoError(t, err)
	assert.Equal(t, domain.AppCredentials{ClientID: "client-id", ClientSecret: "client-secret"}, creds)

	token, err := restarted.GetValidAccessToken(context.Background(), testAccount)
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
}

func TestTokenCacheReauthorizationRequired(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	expired := domain.TokenRecord{AccessToken: "stale", RefreshToken: "refresh-1", ExpiryDate: now.Add(-time.Hour)}
	creds := domain.AppCredentials{ClientID: "id", ClientSecret: "secret"}

	tests := []struct {
		name   string
		tokens *domain.TokenRecord
		setup  func(*testing.T, *mocks.MockSecretStore, *mocks.MockTokenExchanger, *jsonfile.TokenRepository)
	}{
		{
			name: "no token file",
		},
		{
			name:   "no refresh token",
			tokens: &domain.TokenRecord{AccessToken: "stale", ExpiryDate: now.Add(-time.Hour)},
		},
		{
			name:   "app credentials never stored",
			tokens: &expired,
			setup: func(_ *testing.T, secrets *mocks.MockSecretStore, _ *mocks.MockTokenExchanger, _ *jsonfile.TokenRepository) {
				secrets.EXPECT().Get(mockAnyContext(), "mailbot/work/app-credentials").
					Return("", fmt.Errorf("pass show: %w", domain.ErrSecretNotFound))
			},
		},
		{
			name:   "refresh token rejected",
			tokens: &expired,
			setup: func(t *testing.T, _ *mocks.MockSecretStore, exchanger *mocks.MockTokenExchanger, repo *jsonfile.TokenRepository) {
				require.NoError(t, repo.SaveAppCredentials(context.Background(), testAccount, creds))
				exchanger.EXPECT().Refresh(mockAnyContext(), creds, "refresh-1").
					Return(domain.TokenRecord{}, fmt.Errorf("invalid_grant: %w", domain.ErrReauthorizationRequired)).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			audit := &memoryAudit{}
			cache, secrets, exchanger, repo := newTestTokenCache(t, t.TempDir(), newManualClock(now), audit)
			if tt.tokens != nil {
				require.NoError(t, repo.SaveTokens(context.Background(), testAccount, *tt.tokens))
			}
			if tt.setup != nil {
				tt.setup(t, secrets, exchanger, repo)
			}

			_, err := cache.GetValidAccessToken(context.Background(), testAccount)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrReauthorizationRequired))
			assert.ErrorContains(t, err, "account work")

			fields, ok := audit.Last(EventTokenReauthRequired)
			require.True(t, ok)
			assert.Equal(t, "work", fields["account"])
		})
	}
}

func TestTokenCacheTransientFailuresAreNotReauth(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cache, secrets, exchanger, repo := newTestTokenCache(t, t.TempDir(), newManualClock(now), &memoryAudit{})
	require.NoError(t, repo.SaveTokens(context.Background(), testAccount, domain.TokenRecord{
		AccessToken:  "stale",
		RefreshToken: "refresh-1",
		ExpiryDate:   now.Add(-time.Hour),
	}))

	secrets.EXPECT().Get(mockAnyContext(), "mailbot/work/app-credentials").Return("", errors.New("gpg agent timeout")).Once()

	_, err := cache.GetValidAccessToken(context.Background(), testAccount)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrReauthorizationRequired))

	require.NoError(t, repo.SaveAppCredentials(context.Background(), testAccount, domain.AppCredentials{ClientID: "id", ClientSecret: "secret"}))
	exchanger.EXPECT().Refresh(mockAnyContext(), domain.AppCredentials{ClientID: "id", ClientSecret: "secret"}, "refresh-1").
		Return(domain.TokenRecord{}, errors.New("connection reset")).Once()

	_, err = cache.GetValidAccessToken(context.Background(), testAccount)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrReauthorizationRequired))

	stored, err := repo.LoadTokens(context.Background(), testAccount)
	require.NoError(t, err)
	assert.Equal(t, "stale", stored.AccessToken, "failed refresh leaves the token file alone")
}

func TestTokenCacheSetAppCredentialsOverwritesLocalCopy(t *testing.T) {
	t.Parallel()

	cache, secrets, _, repo := newTestTokenCache(t, t.TempDir(), newManualClock(time.Now()), &memoryAudit{})
	require.NoError(t, repo.SaveAppCredentials(context.Background(), testAccount, domain.AppCredentials{ClientID: "old", ClientSecret: "old"}))

	secrets.EXPECT().Put(mockAnyContext(), "mailbot/work/app-credentials", `{"client_id":"new-id","client_secret":"new-secret"}`).Return(nil).Once()

	creds, err := cache.SetAppCredentials(context.Background(), testAccount, `{"web":{"client_id":"new-id","client_secret":"new-secret"}}`)
	require.NoError(t, err)
	assert.Equal(t, "new-id", creds.ClientID)

	stored, err := repo.LoadAppCredentials(context.Background(), testAccount)
	require.NoError(t, err)
	assert.Equal(t, creds, stored)
}

func TestTokenCacheForceRefreshAndStatus(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cache, _, exchanger, repo := newTestTokenCache(t, t.TempDir(), newManualClock(now), &memoryAudit{})

	status, err := cache.Status(context.Background(), testAccount)
	require.NoError(t, err)
	assert.False(t, status.HasTokens)
	assert.False(t, status.HasAppCredentials)

	creds := domain.AppCredentials{ClientID: "id", ClientSecret: "secret"}
	require.NoError(t, repo.SaveAppCredentials(context.Background(), testAccount, creds))
	require.NoError(t, cache.SaveTokens(context.Background(), testAccount, domain.TokenRecord{
		AccessToken:  "valid",
		RefreshToken: "refresh-1",
		ExpiryDate:   now.Add(time.Hour),
	}))

	exchanger.EXPECT().Refresh(mockAnyContext(), creds, "refresh-1").
		Return(domain.TokenRecord{AccessToken: "forced", ExpiryDate: now.Add(2 * time.Hour)}, nil).Once()

	tokens, err := cache.ForceRefresh(context.Background(), testAccount)
	require.NoError(t, err)
	assert.Equal(t, "forced", tokens.AccessToken)

	status, err = cache.Status(context.Background(), testAccount)
	require.NoError(t, err)
	assert.True(t, status.HasTokens)
	assert.True(t, status.HasAppCredentials)
	assert.Equal(t, now.Add(2*time.Hour), status.ExpiryDate)
}

func TestParseAppCredentials(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    domain.AppCredentials
		wantErr bool
	}{
		{name: "flat", raw: `{"client_id":"a","client_secret":"b"}`, want: domain.AppCredentials{ClientID: "a", ClientSecret: "b"}},
		{name: "installed", raw: `{"installed":{"client_id":"a","client_secret":"b"}}`, want: domain.AppCredentials{ClientID: "a", ClientSecret: "b"}},
		{name: "web with whitespace", raw: "  {\"web\":{\"client_id\":\" a \",\"client_secret\":\"b\"}}\n", want: domain.AppCredentials{ClientID: "a", ClientSecret: "b"}},
		{name: "missing secret", raw: `{"client_id":"a"}`, wantErr: true},
		{name: "not json", raw: "client_id=a", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAppCredentials(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
