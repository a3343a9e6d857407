package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/mailbot/internal/domain"
	"golang.org/x/oauth2"
)

var ErrDeviceFlowTimeout = errors.New("timed out waiting for device authorization")

// DeviceFlow authorizes from a host without a browser: the operator enters a
// short code on another device while the flow polls the token endpoint.
type DeviceFlow struct {
	Endpoint   Endpoint
	HTTPClient *http.Client
	Timeout    time.Duration
	// Show tells the operator where to go and which code to type.
	Show func(verificationURL, userCode string) error
}

func (f DeviceFlow) Run(ctx context.Context, creds domain.AppCredentials) (domain.TokenRecord, error) {
	if err := creds.Validate(); err != nil {
		return domain.TokenRecord{}, err
	}
	if strings.TrimSpace(f.Endpoint.DeviceAuthURL) == "" {
		return domain.TokenRecord{}, errors.New("device authorization url is not configured")
	}
	if f.Show == nil {
		return domain.TokenRecord{}, errors.New("device flow has no way to show the user code")
	}

	if f.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, f.HTTPClient)
	}
	cfg := f.Endpoint.config(creds, "")

	auth, err := cfg.DeviceAuth(ctx)
	if err != nil {
		return domain.TokenRecord{}, fmt.Errorf("request device code: %w", err)
	}

	verificationURL := auth.VerificationURI
	if auth.VerificationURIComplete != "" {
		verificationURL = auth.VerificationURIComplete
	}
	if err := f.Show(verificationURL, auth.UserCode); err != nil {
		return domain.TokenRecord{}, fmt.Errorf("show user code: %w", err)
	}

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	token, err := cfg.DeviceAccessToken(pollCtx, auth)
	if err != nil {
		if errors.Is(pollCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return domain.TokenRecord{}, ErrDeviceFlowTimeout
		}
		return domain.TokenRecord{}, fmt.Errorf("poll device token: %w", err)
	}
	if token.RefreshToken == "" {
		return domain.TokenRecord{}, errors.New("token response has no refresh token")
	}

	return toRecord(token), nil
}
