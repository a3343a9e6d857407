// Package oauth adapts golang.org/x/oauth2 to the token ports: refresh-token
// exchange for the token cache and the one-time browser login.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/mailbot/internal/domain"
	"github.com/bnema/mailbot/internal/ports"
	"golang.org/x/oauth2"
)

const errorCodeInvalidGrant = "invalid_grant"

type Endpoint struct {
	AuthURL  string
	TokenURL string
	// DeviceAuthURL is optional; only the device flow needs it.
	DeviceAuthURL string
	Scopes        []string
}

func (e Endpoint) config(creds domain.AppCredentials, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:       e.AuthURL,
			TokenURL:      e.TokenURL,
			DeviceAuthURL: e.DeviceAuthURL,
			AuthStyle:     oauth2.AuthStyleInParams,
		},
		RedirectURL: redirectURL,
		Scopes:      e.Scopes,
	}
}

type Exchanger struct {
	endpoint   Endpoint
	httpClient *http.Client
}

var _ ports.TokenExchanger = (*Exchanger)(nil)

func NewExchanger(endpoint Endpoint, httpClient *http.Client) (*Exchanger, error) {
	if strings.TrimSpace(endpoint.TokenURL) == "" {
		return nil, errors.New("token url is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Exchanger{endpoint: endpoint, httpClient: httpClient}, nil
}

// Refresh trades refreshToken for a new access token. The identity provider
// may omit a new refresh token, in which case the old one is kept.
func (e *Exchanger) Refresh(ctx context.Context, creds domain.AppCredentials, refreshToken string) (domain.TokenRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.TokenRecord{}, err
	}
	if err := creds.Validate(); err != nil {
		return domain.TokenRecord{}, fmt.Errorf("refresh token: %w", err)
	}
	if strings.TrimSpace(refreshToken) == "" {
		return domain.TokenRecord{}, fmt.Errorf("refresh token is empty: %w", domain.ErrReauthorizationRequired)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)
	expired := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)}

	token, err := e.endpoint.config(creds, "").TokenSource(ctx, expired).Token()
	if err != nil {
		return domain.TokenRecord{}, classify(err)
	}

	return toRecord(token), nil
}

func classify(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode == errorCodeInvalidGrant {
		return fmt.Errorf("refresh token rejected: %w", domain.ErrReauthorizationRequired)
	}
	return fmt.Errorf("refresh access token: %w", err)
}

func toRecord(token *oauth2.Token) domain.TokenRecord {
	return domain.TokenRecord{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiryDate:   token.Expiry.UTC(),
	}
}
