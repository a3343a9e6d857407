package domain

import (
	"fmt"
	"strings"
	"time"
)

type AccountID string

func (id AccountID) Validate() error {
	trimmed := strings.TrimSpace(string(id))
	if trimmed == "" {
		return fmt.Errorf("account id is required")
	}
	if strings.ContainsAny(trimmed, `/\`) || strings.HasPrefix(trimmed, ".") {
		return fmt.Errorf("invalid account id %q", id)
	}

	return nil
}

// TokenRecord is the mutable half of an account's OAuth credentials.
type TokenRecord struct {
	AccessToken  string
	RefreshToken string
	ExpiryDate   time.Time
}

// ExpiringSoon treats a zero expiry as never expiring, matching what
// providers that omit expires_in mean.
func (t TokenRecord) ExpiringSoon(now time.Time, skew time.Duration) bool {
	if strings.TrimSpace(t.AccessToken) == "" {
		return true
	}
	if t.ExpiryDate.IsZero() {
		return false
	}

	return !t.ExpiryDate.After(now.Add(skew))
}

// AppCredentials is the static half: fetched from the secret store once.
type AppCredentials struct {
	ClientID     string
	ClientSecret string
}

func (c AppCredentials) Validate() error {
	if strings.TrimSpace(c.ClientID) == "" {
		return fmt.Errorf("client id is required")
	}
	if strings.TrimSpace(c.ClientSecret) == "" {
		return fmt.Errorf("client secret is required")
	}

	return nil
}

type TokenStatus struct {
	Account           AccountID
	HasTokens         bool
	HasAppCredentials bool
	ExpiryDate        time.Time
}
