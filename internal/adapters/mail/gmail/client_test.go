package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/mailbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), Options{
		AccessToken: func(context.Context) (string, error) { return "tok-1", nil },
		Endpoint:    server.URL,
		HTTPClient:  server.Client(),
		Clock:       fixedClock{now: testNow},
	})
	require.NoError(t, err)
	return client
}

func TestListFetchesWindowAndMetadata(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/gmail/v1/users/me/messages":
			wantAfter := testNow.Add(-24 * time.Hour).Unix()
			assert.Equal(t, "in:inbox after:"+strconv.FormatInt(wantAfter, 10), r.URL.Query().Get("q"))
			_, _ = w.Write([]byte(`{"messages":[{"id":"m1","threadId":"t1"}]}`))
		case "/gmail/v1/users/me/messages/m1":
			assert.Equal(t, "metadata", r.URL.Query().Get("format"))
			_, _ = w.Write([]byte(`{"id":"m1","threadId":"t1","snippet":"Please sign","internalDate":"1772355600000",
				"payload":{"headers":[{"name":"From","value":"Ana <ana@example.com>"},{"name":"Subject","value":"Contract"}]}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	items, err := client.List(context.Background(), 24)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.MailItem{
		ID:         "m1",
		ThreadID:   "t1",
		From:       "Ana <ana@example.com>",
		Subject:    "Contract",
		Snippet:    "Please sign",
		ReceivedAt: time.UnixMilli(1772355600000).UTC(),
	}, items[0])
}

func TestListEmptyWindow(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"resultSizeEstimate":0}`))
	})

	items, err := client.List(context.Background(), 6)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = client.List(context.Background(), 0)
	assert.Error(t, err)
}

func TestListSurfacesAPIErrors(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":503,"message":"backend error"}}`))
	})

	_, err := client.List(context.Background(), 24)
	assert.ErrorContains(t, err, "list messages")
}

func TestCreateComposeDraft(t *testing.T) {
	t.Parallel()

	var raw string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/gmail/v1/users/me/drafts", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		var body struct {
			Message struct {
				Raw      string `json:"raw"`
				ThreadID string `json:"threadId"`
			} `json:"message"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		decoded, err := base64.RawURLEncoding.DecodeString(body.Message.Raw)
		require.NoError(t, err)
		raw = string(decoded)
		assert.Empty(t, body.Message.ThreadID)
		_, _ = w.Write([]byte(`{"id":"d-1"}`))
	})

	id, err := client.Create(context.Background(), domain.Draft{To: "to@x.com", Subject: "Hi", Body: "Body text"})
	require.NoError(t, err)
	assert.Equal(t, "d-1", id)
	assert.Contains(t, raw, "To: <to@x.com>\r\n")
	assert.Contains(t, raw, "Subject: Hi\r\n")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nBody text"))
	assert.NotContains(t, raw, "In-Reply-To")
}

func TestCreateReplyDraftThreadsOnOriginal(t *testing.T) {
	t.Parallel()

	var raw, threadID string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/gmail/v1/users/me/messages/m9":
			_, _ = w.Write([]byte(`{"id":"m9","threadId":"t9","payload":{"headers":[
				{"name":"From","value":"bob@example.com"},
				{"name":"Subject","value":"Lunch?"},
				{"name":"Message-ID","value":"<abc@mail.example.com>"}]}}`))
		case "/gmail/v1/users/me/drafts":
			var body struct {
				Message struct {
					Raw      string `json:"raw"`
					ThreadID string `json:"threadId"`
				} `json:"message"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			decoded, err := base64.RawURLEncoding.DecodeString(body.Message.Raw)
			require.NoError(t, err)
			raw, threadID = string(decoded), body.Message.ThreadID
			_, _ = w.Write([]byte(`{"id":"d-2"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	id, err := client.Create(context.Background(), domain.Draft{Body: "Sure", InReplyTo: "m9"})
	require.NoError(t, err)
	assert.Equal(t, "d-2", id)
	assert.Equal(t, "t9", threadID)
	assert.Contains(t, raw, "To: <bob@example.com>\r\n")
	assert.Contains(t, raw, "Subject: Re: Lunch?\r\n")
	assert.Contains(t, raw, "In-Reply-To: <abc@mail.example.com>\r\n")
	assert.Contains(t, raw, "References: <abc@mail.example.com>\r\n")
}

func TestCreateRejectsBadRecipient(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected, got %s", r.URL.Path)
	})

	_, err := client.Create(context.Background(), domain.Draft{To: "not an address", Subject: "x", Body: "y"})
	assert.ErrorContains(t, err, "invalid recipient")
}

func TestTokenErrorsAbortRequests(t *testing.T) {
	t.Parallel()

	client, err := NewClient(context.Background(), Options{
		AccessToken: func(context.Context) (string, error) { return "", domain.ErrReauthorizationRequired },
		Endpoint:    "http://127.0.0.1:1",
	})
	require.NoError(t, err)

	_, err = client.List(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrReauthorizationRequired))
}

// rotatingTokens stands in for the token cache: refresh swaps in the next
// access token.
type rotatingTokens struct {
	mu        sync.Mutex
	current   string
	next      string
	refreshes int
	err       error
}

func (r *rotatingTokens) get(context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, nil
}

func (r *rotatingTokens) refresh(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshes++
	if r.err != nil {
		return r.err
	}
	r.current = r.next
	return nil
}

func newRotatingClient(t *testing.T, tokens *rotatingTokens, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), Options{
		AccessToken: tokens.get,
		Refresh:     tokens.refresh,
		Endpoint:    server.URL,
		HTTPClient:  server.Client(),
		Clock:       fixedClock{now: testNow},
	})
	require.NoError(t, err)
	return client
}

func rejectRevoked(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") == "Bearer revoked" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
		return true
	}
	return false
}

func TestRejectedAccessTokenIsRefreshedAndRetried(t *testing.T) {
	t.Parallel()

	tokens := &rotatingTokens{current: "revoked", next: "tok-2"}
	var requests atomic.Int32
	client := newRotatingClient(t, tokens, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if rejectRevoked(w, r) {
			return
		}
		assert.Equal(t, "Bearer tok-2", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"resultSizeEstimate":0}`))
	})

	items, err := client.List(context.Background(), 24)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 1, tokens.refreshes)
	assert.Equal(t, int32(2), requests.Load())
}

func TestCreateRetriesDraftAfterRefresh(t *testing.T) {
	t.Parallel()

	tokens := &rotatingTokens{current: "revoked", next: "tok-2"}
	client := newRotatingClient(t, tokens, func(w http.ResponseWriter, r *http.Request) {
		if rejectRevoked(w, r) {
			return
		}
		_, _ = w.Write([]byte(`{"id":"d-3"}`))
	})

	id, err := client.Create(context.Background(), domain.Draft{To: "to@x.com", Subject: "Hi", Body: "Body text"})
	require.NoError(t, err)
	assert.Equal(t, "d-3", id)
	assert.Equal(t, 1, tokens.refreshes)
}

func TestRejectedAccessTokenRefreshesOnlyOnce(t *testing.T) {
	t.Parallel()

	tokens := &rotatingTokens{current: "revoked", next: "revoked"}
	client := newRotatingClient(t, tokens, func(w http.ResponseWriter, r *http.Request) {
		rejectRevoked(w, r)
	})

	_, err := client.List(context.Background(), 24)
	require.Error(t, err)
	assert.Equal(t, 1, tokens.refreshes)
	assert.ErrorContains(t, err, "401")
}

func TestRevokedRefreshTokenSurfacesReauthorization(t *testing.T) {
	t.Parallel()

	tokens := &rotatingTokens{current: "revoked", err: domain.ErrReauthorizationRequired}
	client := newRotatingClient(t, tokens, func(w http.ResponseWriter, r *http.Request) {
		rejectRevoked(w, r)
	})

	_, err := client.List(context.Background(), 24)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrReauthorizationRequired))
	assert.Equal(t, 1, tokens.refreshes)
}

func TestUnauthorizedWithoutRefreshIsReturned(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		rejectRevoked(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), Options{
		AccessToken: func(context.Context) (string, error) { return "revoked", nil },
		Endpoint:    server.URL,
		HTTPClient:  server.Client(),
		Clock:       fixedClock{now: testNow},
	})
	require.NoError(t, err)

	_, err = client.List(context.Background(), 24)
	assert.ErrorContains(t, err, "list messages")
}
