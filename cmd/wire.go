package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/bnema/mailbot/internal/adapters/audit/ndjson"
	"github.com/bnema/mailbot/internal/adapters/llm/openai"
	"github.com/bnema/mailbot/internal/adapters/lock/pidfile"
	"github.com/bnema/mailbot/internal/adapters/mail/gmail"
	"github.com/bnema/mailbot/internal/adapters/metrics/prom"
	"github.com/bnema/mailbot/internal/adapters/oauth"
	statusadapter "github.com/bnema/mailbot/internal/adapters/render/status"
	"github.com/bnema/mailbot/internal/adapters/repo/jsonfile"
	tomlrepo "github.com/bnema/mailbot/internal/adapters/repo/toml"
	chainstore "github.com/bnema/mailbot/internal/adapters/secrets/chain"
	passstore "github.com/bnema/mailbot/internal/adapters/secrets/pass"
	"github.com/bnema/mailbot/internal/adapters/transport/telegram"
	"github.com/bnema/mailbot/internal/application"
	"github.com/bnema/mailbot/internal/config"
	"github.com/bnema/mailbot/internal/domain"
	"github.com/bnema/mailbot/internal/ports"
	"github.com/spf13/viper"
)

const askSystemPrompt = "You are a concise assistant answering questions from the mailbox owner over chat."

// app holds everything the commands share. Network collaborators are built on
// demand so that status and breaker commands work offline.
type app struct {
	cfg            config.Config
	logger         *slog.Logger
	clock          ports.Clock
	secrets        *chainstore.Store
	audit          *ndjson.Log
	snapshots      *tomlrepo.SnapshotRepository
	metrics        *prom.Metrics
	agentBreaker   *application.CircuitBreaker
	digestBreaker  *application.CircuitBreaker
	tokens         *application.TokenRefreshCache
	status         *application.StatusReporter
	statusRenderer func(application.StatusReport, statusadapter.RenderOptions) (string, error)
	oauthEndpoint  oauth.Endpoint
	httpClient     *http.Client
}

func wireApp(logOutput io.Writer) (*app, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg, err := config.Load(viper.New(), homeDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(logOutput, cfg.LogLevel)
	clock := ports.SystemClock{}
	httpClient := &http.Client{Timeout: 2 * time.Minute}

	secretStore, err := chainstore.NewPassFirstWithFileFallback(passstore.Options{
		Dir:     cfg.Pass.Dir,
		Timeout: cfg.Pass.Timeout,
	}, cfg.SecretsDir)
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}

	auditLog, err := ndjson.NewLog(cfg.AuditDir(), cfg.AuditRetention, clock)
	if err != nil {
		return nil, fmt.Errorf("wire audit log: %w", err)
	}

	circuits, err := jsonfile.NewCircuitRepository(cfg.CircuitsDir())
	if err != nil {
		return nil, fmt.Errorf("wire circuit repository: %w", err)
	}

	tokenRepo, err := jsonfile.NewTokenRepository(cfg.TokensDir())
	if err != nil {
		return nil, fmt.Errorf("wire token repository: %w", err)
	}

	snapshots, err := tomlrepo.NewSnapshotRepository(cfg.SnapshotPath())
	if err != nil {
		return nil, fmt.Errorf("wire snapshot repository: %w", err)
	}

	metrics := prom.New()
	breakerDeps := application.BreakerDeps{
		Repo:    circuits,
		Audit:   auditLog,
		Metrics: metrics,
		Clock:   clock,
		Logger:  logger,
	}

	agentBreaker, err := application.NewCircuitBreaker(cfg.AgentBreaker, breakerDeps)
	if err != nil {
		return nil, err
	}
	digestBreaker, err := application.NewCircuitBreaker(cfg.DigestBreaker, breakerDeps)
	if err != nil {
		return nil, err
	}

	endpoint := oauth.Endpoint{
		AuthURL:       cfg.OAuth.AuthURL,
		TokenURL:      cfg.OAuth.TokenURL,
		DeviceAuthURL: cfg.OAuth.DeviceAuthURL,
		Scopes:        cfg.OAuth.Scopes,
	}
	exchanger, err := oauth.NewExchanger(endpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("wire token exchanger: %w", err)
	}

	tokens := application.NewTokenRefreshCache(application.TokenCacheDeps{
		Repo:      tokenRepo,
		Secrets:   secretStore,
		Exchanger: exchanger,
		Audit:     auditLog,
		Clock:     clock,
		Logger:    logger,
	})

	breakers := []*application.CircuitBreaker{agentBreaker, digestBreaker}
	daemonLock := pidfile.New(cfg.LockPath(roleDaemon))

	return &app{
		cfg:           cfg,
		logger:        logger,
		clock:         clock,
		secrets:       secretStore,
		audit:         auditLog,
		snapshots:     snapshots,
		metrics:       metrics,
		agentBreaker:  agentBreaker,
		digestBreaker: digestBreaker,
		tokens:        tokens,
		status: application.NewStatusReporter(application.StatusDeps{
			Breakers:     breakers,
			Tokens:       tokens,
			Snapshots:    snapshots,
			DaemonHolder: daemonLock.Holder,
			Clock:        clock,
		}),
		statusRenderer: statusadapter.Render,
		oauthEndpoint:  endpoint,
		httpClient:     httpClient,
	}, nil
}

func newLogger(output io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level}))
}

func (a *app) breakers() []*application.CircuitBreaker {
	return []*application.CircuitBreaker{a.agentBreaker, a.digestBreaker}
}

// secret reads a credential the operator stored ahead of time.
func (a *app) secret(ctx context.Context, key string) (string, error) {
	value, err := a.secrets.Get(ctx, key)
	if errors.Is(err, domain.ErrSecretNotFound) {
		return "", fmt.Errorf("secret %q is not stored; add it to pass or %s", key, a.cfg.SecretsDir)
	}
	if err != nil {
		return "", fmt.Errorf("read secret %q: %w", key, err)
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("secret %q is empty", key)
	}
	return value, nil
}

func (a *app) mailClient(ctx context.Context) (*gmail.Client, error) {
	account := a.cfg.Account
	client, err := gmail.NewClient(ctx, gmail.Options{
		AccessToken: func(ctx context.Context) (string, error) {
			return a.tokens.GetValidAccessToken(ctx, account)
		},
		Refresh: func(ctx context.Context) error {
			_, err := a.tokens.ForceRefresh(ctx, account)
			return err
		},
		HTTPClient: a.httpClient,
		Clock:      a.clock,
	})
	if err != nil {
		return nil, fmt.Errorf("wire mail client: %w", err)
	}
	return client, nil
}

func (a *app) chatTransport(ctx context.Context) (*telegram.Transport, error) {
	token, err := a.secret(ctx, a.cfg.Telegram.TokenSecretRef)
	if err != nil {
		return nil, err
	}

	transport, err := telegram.NewTransport(telegram.Options{
		APIURL:        a.cfg.Telegram.APIURL,
		Token:         token,
		PollTimeout:   a.cfg.Telegram.PollTimeout,
		SendPerSecond: a.cfg.Telegram.SendPerSecond,
	})
	if err != nil {
		return nil, fmt.Errorf("wire chat transport: %w", err)
	}
	return transport, nil
}

func (a *app) queryGate(ctx context.Context, breaker *application.CircuitBreaker) (*application.QueryGate, error) {
	apiKey, err := a.secret(ctx, a.cfg.LLM.APIKeySecretRef)
	if err != nil {
		return nil, err
	}

	model, err := openai.NewModel(openai.Options{
		APIKey:  apiKey,
		Model:   a.cfg.LLM.Model,
		BaseURL: a.cfg.LLM.BaseURL,
		Logger:  a.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("wire language model: %w", err)
	}

	return application.NewQueryGate(application.QueryGateDeps{
		Model:   model,
		Breaker: breaker,
		Timeout: a.cfg.LLM.Timeout,
		Metrics: a.metrics,
		Logger:  a.logger,
	})
}

// pruneAudit drops day files older than the retention window. Failure only
// costs disk space, so it is logged and ignored.
func (a *app) pruneAudit() {
	removed, err := a.audit.Prune(a.clock.Now())
	if err != nil {
		a.logger.Warn("prune audit log", "error", err)
		return
	}
	if len(removed) > 0 {
		a.logger.Info("pruned audit log", "files", removed)
	}
}
