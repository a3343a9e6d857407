package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bnema/mailbot/internal/domain"
	"golang.org/x/oauth2"
)

const callbackPath = "/oauth/callback"

var (
	ErrStateMismatch   = errors.New("oauth callback state mismatch")
	ErrCallbackTimeout = errors.New("timed out waiting for oauth callback")
	ErrMissingState    = errors.New("expected state is required")
)

func NewState() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// LoginFlow runs the installed-app authorization code flow with PKCE against
// a loopback redirect and returns the first token pair.
type LoginFlow struct {
	Endpoint   Endpoint
	ListenAddr string
	Timeout    time.Duration
	HTTPClient *http.Client
	// OpenURL shows the consent URL to the operator; usually prints it.
	OpenURL func(authURL string) error
}

func (f LoginFlow) Run(ctx context.Context, creds domain.AppCredentials) (domain.TokenRecord, error) {
	if err := creds.Validate(); err != nil {
		return domain.TokenRecord{}, err
	}
	if f.OpenURL == nil {
		return domain.TokenRecord{}, errors.New("login flow has no way to show the consent url")
	}

	state, err := NewState()
	if err != nil {
		return domain.TokenRecord{}, fmt.Errorf("create oauth state: %w", err)
	}

	server, err := StartCallbackServer(f.ListenAddr, state)
	if err != nil {
		return domain.TokenRecord{}, err
	}
	defer func() { _ = server.Close() }()

	cfg := f.Endpoint.config(creds, server.RedirectURI())
	verifier := oauth2.GenerateVerifier()
	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce, oauth2.S256ChallengeOption(verifier))

	if err := f.OpenURL(authURL); err != nil {
		return domain.TokenRecord{}, fmt.Errorf("show consent url: %w", err)
	}

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	code, err := server.WaitForCode(ctx, timeout)
	if err != nil {
		return domain.TokenRecord{}, err
	}

	if f.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, f.HTTPClient)
	}
	token, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return domain.TokenRecord{}, fmt.Errorf("exchange authorization code: %w", err)
	}
	if token.RefreshToken == "" {
		return domain.TokenRecord{}, errors.New("token response has no refresh token; revoke the app grant and retry")
	}

	return toRecord(token), nil
}

type CallbackServer struct {
	expectedState string
	listener      net.Listener
	server        *http.Server
	resultCh      chan callbackResult
	resultOnce    sync.Once
	closeOnce     sync.Once
}

type callbackResult struct {
	code string
	err  error
}

func StartCallbackServer(listenAddr string, expectedState string) (*CallbackServer, error) {
	if expectedState == "" {
		return nil, ErrMissingState
	}
	if listenAddr == "" {
		listenAddr = "127.0.0.1:0"
	}

	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen callback server: %w", err)
	}

	cb := &CallbackServer{
		expectedState: expectedState,
		listener:      listener,
		resultCh:      make(chan callbackResult, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, cb.handleCallback)
	cb.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if serveErr := cb.server.Serve(cb.listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			cb.trySendResult(callbackResult{err: serveErr})
		}
	}()

	return cb, nil
}

func (c *CallbackServer) RedirectURI() string {
	if tcpAddr, ok := c.listener.Addr().(*net.TCPAddr); ok {
		return fmt.Sprintf("http://127.0.0.1:%d%s", tcpAddr.Port, callbackPath)
	}
	return "http://127.0.0.1" + callbackPath
}

func (c *CallbackServer) WaitForCode(ctx context.Context, timeout time.Duration) (string, error) {
	defer func() { _ = c.Close() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-c.resultCh:
		return result.code, result.err
	case <-timer.C:
		return "", ErrCallbackTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *CallbackServer) Close() error {
	var closeErr error
	c.closeOnce.Do(func() {
		closeErr = c.server.Close()
	})
	return closeErr
}

func (c *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if query.Get("state") != c.expectedState {
		c.trySendResult(callbackResult{err: ErrStateMismatch})
		http.Error(w, "state mismatch", http.StatusBadRequest)
		return
	}
	if oauthError := query.Get("error"); oauthError != "" {
		if description := query.Get("error_description"); description != "" {
			oauthError += ": " + description
		}
		c.trySendResult(callbackResult{err: fmt.Errorf("authorization denied: %s", oauthError)})
		http.Error(w, "authorization denied", http.StatusBadRequest)
		return
	}

	code := strings.TrimSpace(query.Get("code"))
	if code == "" {
		c.trySendResult(callbackResult{err: errors.New("missing authorization code")})
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}

	c.trySendResult(callbackResult{code: code})
	_, _ = w.Write([]byte("mailbot is authorized. You can close this window."))
}

func (c *CallbackServer) trySendResult(result callbackResult) {
	c.resultOnce.Do(func() {
		c.resultCh <- result
	})
}
