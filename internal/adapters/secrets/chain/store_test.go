package chain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	passstore "github.com/bnema/mailbot/internal/adapters/secrets/pass"
	"github.com/bnema/mailbot/internal/domain"
	portmocks "github.com/bnema/mailbot/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testKey = "mailbot/work/app-credentials"

func newChain(t *testing.T) (*Store, *portmocks.MockSecretStore, *portmocks.MockSecretStore) {
	t.Helper()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store, err := NewStore(Backend{Name: "pass", Store: primary}, Backend{Name: "file", Store: fallback})
	require.NoError(t, err)
	return store, primary, fallback
}

func TestNewStoreRejectsNilBackends(t *testing.T) {
	t.Parallel()

	_, err := NewStore(Backend{}, Backend{Store: portmocks.NewMockSecretStore(t)})
	assert.ErrorIs(t, err, errNilPrimaryStore)
	_, err = NewStore(Backend{Store: portmocks.NewMockSecretStore(t)}, Backend{})
	assert.ErrorIs(t, err, errNilFallbackStore)
}

func TestStoreGetUsesPrimaryWhenItSucceeds(t *testing.T) {
	t.Parallel()

	store, primary, _ := newChain(t)
	primary.EXPECT().Get(mock.Anything, testKey).Return("from-pass", nil).Once()

	value, err := store.Get(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, "from-pass", value)
}

func TestStoreGetFallsBackWhenPassIsUnavailable(t *testing.T) {
	t.Parallel()

	store, primary, fallback := newChain(t)
	primary.EXPECT().Get(mock.Anything, testKey).Return("", passstore.ErrUnavailable).Once()
	fallback.EXPECT().Get(mock.Anything, testKey).Return("from-file", nil).Once()

	value, err := store.Get(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, "from-file", value)
}

func TestStoreGetNotFoundOnlyWhenBothBackendsMiss(t *testing.T) {
	t.Parallel()

	notFound := fmt.Errorf("lookup: %w", domain.ErrSecretNotFound)
	tests := []struct {
		name         string
		primaryErr   error
		fallbackErr  error
		wantNotFound bool
	}{
		{name: "both missing", primaryErr: notFound, fallbackErr: notFound, wantNotFound: true},
		{name: "pass unavailable, file missing", primaryErr: passstore.ErrUnavailable, fallbackErr: notFound, wantNotFound: true},
		{name: "pass broken, file missing", primaryErr: errors.New("gpg failed"), fallbackErr: notFound},
		{name: "pass missing, file unreadable", primaryErr: notFound, fallbackErr: errors.New("permission denied")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store, primary, fallback := newChain(t)
			primary.EXPECT().Get(mock.Anything, testKey).Return("", tt.primaryErr).Once()
			fallback.EXPECT().Get(mock.Anything, testKey).Return("", tt.fallbackErr).Once()

			_, err := store.Get(context.Background(), testKey)
			require.Error(t, err)
			assert.Equal(t, tt.wantNotFound, errors.Is(err, domain.ErrSecretNotFound))
		})
	}
}

func TestStoreGetDoesNotFallbackOnCanceledContext(t *testing.T) {
	t.Parallel()

	store, primary, _ := newChain(t)
	primary.EXPECT().Get(mock.Anything, testKey).Return("", context.Canceled).Once()

	_, err := store.Get(context.Background(), testKey)
	require.ErrorIs(t, err, context.Canceled)
}

func TestStorePutFallsBackWhenPrimaryFails(t *testing.T) {
	t.Parallel()

	store, primary, fallback := newChain(t)
	primary.EXPECT().Put(mock.Anything, testKey, "secret").Return(errors.New("pass failed")).Once()
	fallback.EXPECT().Put(mock.Anything, testKey, "secret").Return(nil).Once()

	backend, err := store.Save(context.Background(), testKey, "secret")
	require.NoError(t, err)
	assert.Equal(t, "file", backend)
}

func TestStoreSaveReportsPrimaryOnSuccess(t *testing.T) {
	t.Parallel()

	store, primary, _ := newChain(t)
	primary.EXPECT().Put(mock.Anything, testKey, "secret").Return(nil).Once()

	backend, err := store.Save(context.Background(), testKey, "secret")
	require.NoError(t, err)
	assert.Equal(t, "pass", backend)
}

func TestStoreGetLockedPassIsNotMissing(t *testing.T) {
	t.Parallel()

	store, primary, fallback := newChain(t)
	primary.EXPECT().Get(mock.Anything, testKey).Return("", fmt.Errorf("pass show: %w", passstore.ErrLocked)).Once()
	fallback.EXPECT().Get(mock.Anything, testKey).Return("", fmt.Errorf("file: %w", domain.ErrSecretNotFound)).Once()

	_, err := store.Get(context.Background(), testKey)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSecretNotFound)
	assert.ErrorContains(t, err, "unlock the gpg agent")
}

func TestStorePutReportsBothFailures(t *testing.T) {
	t.Parallel()

	store, primary, fallback := newChain(t)
	primary.EXPECT().Put(mock.Anything, testKey, "secret").Return(errors.New("pass failed")).Once()
	fallback.EXPECT().Put(mock.Anything, testKey, "secret").Return(errors.New("disk full")).Once()

	err := store.Put(context.Background(), testKey, "secret")
	assert.ErrorContains(t, err, "pass put failed: pass failed")
	assert.ErrorContains(t, err, "disk full")
}

func TestStoreDeleteRemovesFromBothBackends(t *testing.T) {
	t.Parallel()

	store, primary, fallback := newChain(t)
	primary.EXPECT().Delete(mock.Anything, testKey).Return(nil).Once()
	fallback.EXPECT().Delete(mock.Anything, testKey).Return(nil).Once()

	require.NoError(t, store.Delete(context.Background(), testKey))
}

func TestStoreDeleteToleratesOneBackendFailing(t *testing.T) {
	t.Parallel()

	store, primary, fallback := newChain(t)
	primary.EXPECT().Delete(mock.Anything, testKey).Return(errors.New("pass failed")).Once()
	fallback.EXPECT().Delete(mock.Anything, testKey).Return(nil).Once()

	require.NoError(t, store.Delete(context.Background(), testKey))
}
