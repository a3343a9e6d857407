// Package chain tries pass first and falls back to plain files.
package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	filestore "github.com/bnema/mailbot/internal/adapters/secrets/file"
	passstore "github.com/bnema/mailbot/internal/adapters/secrets/pass"
	"github.com/bnema/mailbot/internal/domain"
	"github.com/bnema/mailbot/internal/ports"
)

// Backend is one store in the chain, named for operator-facing messages.
type Backend struct {
	Name  string
	Store ports.SecretStore
}

type Store struct {
	primary  Backend
	fallback Backend
}

var _ ports.SecretStore = (*Store)(nil)

var (
	errNilPrimaryStore  = errors.New("primary secret store is nil")
	errNilFallbackStore = errors.New("fallback secret store is nil")
)

func NewStore(primary Backend, fallback Backend) (*Store, error) {
	if primary.Store == nil {
		return nil, errNilPrimaryStore
	}
	if fallback.Store == nil {
		return nil, errNilFallbackStore
	}
	if strings.TrimSpace(primary.Name) == "" {
		primary.Name = "primary"
	}
	if strings.TrimSpace(fallback.Name) == "" {
		fallback.Name = "fallback"
	}

	return &Store{primary: primary, fallback: fallback}, nil
}

func NewPassFirstWithFileFallback(pass passstore.Options, fileRoot string) (*Store, error) {
	return NewStore(
		Backend{Name: "pass", Store: passstore.NewStore(pass)},
		Backend{Name: "file " + fileRoot, Store: filestore.NewStore(fileRoot)},
	)
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	_, err := s.Save(ctx, key, value)
	return err
}

// Save is Put that also reports which backend took the value.
func (s *Store) Save(ctx context.Context, key string, value string) (string, error) {
	err := s.primary.Store.Put(ctx, key, value)
	if err == nil {
		return s.primary.Name, nil
	}
	if shouldSkipFallback(err) {
		return "", err
	}

	fallbackErr := s.fallback.Store.Put(ctx, key, value)
	if fallbackErr == nil {
		return s.fallback.Name, nil
	}

	return "", fmt.Errorf("%s put failed: %w; %s put failed: %w", s.primary.Name, err, s.fallback.Name, fallbackErr)
}

// Get reports domain.ErrSecretNotFound only when neither backend has the key
// and neither failed for another reason; a broken primary never reads as
// "missing".
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.primary.Store.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if shouldSkipFallback(err) {
		return "", err
	}

	fallbackValue, fallbackErr := s.fallback.Store.Get(ctx, key)
	if fallbackErr == nil {
		return fallbackValue, nil
	}

	primaryMissing := errors.Is(err, domain.ErrSecretNotFound) || errors.Is(err, passstore.ErrUnavailable)
	if primaryMissing && errors.Is(fallbackErr, domain.ErrSecretNotFound) {
		return "", fmt.Errorf("secret %q: %w", key, domain.ErrSecretNotFound)
	}

	return "", fmt.Errorf("%s get failed: %v; %s get failed: %v", s.primary.Name, err, s.fallback.Name, fallbackErr)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.primary.Store.Delete(ctx, key)
	if shouldSkipFallback(err) {
		return err
	}

	// Remove from both so a stale fallback copy cannot resurface.
	fallbackErr := s.fallback.Store.Delete(ctx, key)
	if err == nil || errors.Is(err, passstore.ErrUnavailable) {
		return fallbackErr
	}
	if fallbackErr == nil {
		return nil
	}

	return fmt.Errorf("%s delete failed: %w; %s delete failed: %w", s.primary.Name, err, s.fallback.Name, fallbackErr)
}

func shouldSkipFallback(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
