package ports

import "context"

// SecretStore is the system secret store. Get wraps domain.ErrSecretNotFound
// when the key has never been stored, which callers treat as "a human has to
// authorize this account"; every other error is transient.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
