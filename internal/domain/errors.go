package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrSecretNotFound          = errors.New("secret not found")
	ErrTokensNotFound          = errors.New("tokens not found")
	ErrAppCredentialsNotFound  = errors.New("app credentials not found")
	ErrReauthorizationRequired = errors.New("reauthorization required")
	ErrSessionNotFound         = errors.New("session not found")
	ErrSnapshotNotFound        = errors.New("no daemon snapshot recorded")
	ErrContaminatedOutput      = errors.New("model output failed contamination check")
	ErrInvalidClassification   = errors.New("model output is not a valid classification")
	ErrQueryBusy               = errors.New("a model query is already running")
)

// RateLimitError is returned by a chat transport that was told to back off.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}
