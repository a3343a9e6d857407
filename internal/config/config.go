// Package config loads ~/.mailbot/config.toml through viper. Every key can be
// overridden with a MAILBOT_ environment variable, dots replaced by
// underscores (MAILBOT_STATE_DIR, MAILBOT_TELEGRAM_NOTIFY_CHAT_ID).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/mailbot/internal/domain"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".mailbot"
	envPrefix  = "MAILBOT"
)

const (
	keyStateDir              = "state_dir"
	keySecretsDir            = "secrets_dir"
	keyPassDir               = "pass.dir"
	keyPassTimeout           = "pass.timeout"
	keyAccount               = "account"
	keyLogLevel              = "log.level"
	keyAgentMaxFailures      = "breaker.agent.max_failures"
	keyAgentCooldown         = "breaker.agent.cooldown"
	keyDigestMaxFailures     = "breaker.digest.max_failures"
	keyDigestCooldown        = "breaker.digest.cooldown"
	keyAuditRetentionDays    = "audit.retention_days"
	keySessionTTL            = "session.ttl"
	keySessionSweepInterval  = "session.sweep_interval"
	keySnapshotInterval      = "session.snapshot_interval"
	keyTelegramAPIURL        = "telegram.api_url"
	keyTelegramTokenRef      = "telegram.token_secret_ref"
	keyTelegramNotifyChatID  = "telegram.notify_chat_id"
	keyTelegramAllowedChats  = "telegram.allowed_chat_ids"
	keyTelegramPollTimeout   = "telegram.poll_timeout"
	keyTelegramSendPerSecond = "telegram.send_per_second"
	keyOAuthAuthURL          = "oauth.auth_url"
	keyOAuthTokenURL         = "oauth.token_url"
	keyOAuthDeviceAuthURL    = "oauth.device_auth_url"
	keyOAuthListen           = "oauth.listen"
	keyOAuthScopes           = "oauth.scopes"
	keyDigestWindowHours     = "digest.window_hours"
	keyDigestSystemPrompt    = "digest.system_prompt"
	keyDigestMaxTurns        = "digest.max_turns"
	keyLLMModel              = "llm.model"
	keyLLMBaseURL            = "llm.base_url"
	keyLLMAPIKeyRef          = "llm.api_key_secret_ref"
	keyLLMTimeout            = "llm.timeout"
	keyMetricsListen         = "metrics.listen"
)

const DefaultDigestSystemPrompt = `You triage an inbox. For every message you are given, answer with one JSON object
{"items":[{"id":"<message id>","category":"action_required|reply_needed|fyi|newsletter|promotion","urgency":"high|medium|low","summary":"<one sentence>"}]}
and nothing else.`

type Config struct {
	StateDir       string
	SecretsDir     string
	Pass           PassConfig
	Account        domain.AccountID
	LogLevel       slog.Level
	AgentBreaker   domain.BreakerConfig
	DigestBreaker  domain.BreakerConfig
	AuditRetention time.Duration
	Session        SessionConfig
	Telegram       TelegramConfig
	OAuth          OAuthConfig
	Digest         DigestConfig
	LLM            LLMConfig
	MetricsListen  string
}

// PassConfig points pass(1) at a store; an empty Dir uses the default one.
type PassConfig struct {
	Dir     string
	Timeout time.Duration
}

type SessionConfig struct {
	TTL              time.Duration
	SweepInterval    time.Duration
	SnapshotInterval time.Duration
}

type TelegramConfig struct {
	APIURL         string
	TokenSecretRef string
	NotifyChatID   domain.ChatID
	AllowedChatIDs []domain.ChatID
	PollTimeout    time.Duration
	SendPerSecond  float64
}

type OAuthConfig struct {
	AuthURL       string
	TokenURL      string
	DeviceAuthURL string
	Listen        string
	Scopes        []string
}

type DigestConfig struct {
	WindowHours  int
	SystemPrompt string
	MaxTurns     int
}

type LLMConfig struct {
	Model           string
	BaseURL         string
	APIKeySecretRef string
	Timeout         time.Duration
}

// Load reads <home>/.mailbot/config.toml. A missing file is not an error:
// every key has a default.
func Load(cfg *viper.Viper, homeDir string) (Config, error) {
	if cfg == nil {
		cfg = viper.New()
	}
	if homeDir == "" {
		return Config{}, errors.New("home directory is empty")
	}

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(filepath.Join(homeDir, configDir))
	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()
	setDefaults(cfg, homeDir)

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	level, err := parseLevel(cfg.GetString(keyLogLevel))
	if err != nil {
		return Config{}, err
	}

	stateDir, err := absPath(cfg.GetString(keyStateDir))
	if err != nil {
		return Config{}, fmt.Errorf("resolve state dir: %w", err)
	}
	secretsDir, err := absPath(cfg.GetString(keySecretsDir))
	if err != nil {
		return Config{}, fmt.Errorf("resolve secrets dir: %w", err)
	}

	allowed := make([]domain.ChatID, 0)
	for _, id := range cfg.GetIntSlice(keyTelegramAllowedChats) {
		allowed = append(allowed, domain.ChatID(id))
	}

	loaded := Config{
		StateDir:   stateDir,
		SecretsDir: secretsDir,
		Pass: PassConfig{
			Dir:     cfg.GetString(keyPassDir),
			Timeout: cfg.GetDuration(keyPassTimeout),
		},
		Account:    domain.AccountID(cfg.GetString(keyAccount)),
		LogLevel:   level,
		AgentBreaker: domain.BreakerConfig{
			Operation:   domain.OperationAgent,
			MaxFailures: cfg.GetInt(keyAgentMaxFailures),
			Cooldown:    cfg.GetDuration(keyAgentCooldown),
		},
		DigestBreaker: domain.BreakerConfig{
			Operation:   domain.OperationDigest,
			MaxFailures: cfg.GetInt(keyDigestMaxFailures),
			Cooldown:    cfg.GetDuration(keyDigestCooldown),
		},
		AuditRetention: time.Duration(cfg.GetInt(keyAuditRetentionDays)) * 24 * time.Hour,
		Session: SessionConfig{
			TTL:              cfg.GetDuration(keySessionTTL),
			SweepInterval:    cfg.GetDuration(keySessionSweepInterval),
			SnapshotInterval: cfg.GetDuration(keySnapshotInterval),
		},
		Telegram: TelegramConfig{
			APIURL:         strings.TrimRight(cfg.GetString(keyTelegramAPIURL), "/"),
			TokenSecretRef: cfg.GetString(keyTelegramTokenRef),
			NotifyChatID:   domain.ChatID(cfg.GetInt64(keyTelegramNotifyChatID)),
			AllowedChatIDs: allowed,
			PollTimeout:    cfg.GetDuration(keyTelegramPollTimeout),
			SendPerSecond:  cfg.GetFloat64(keyTelegramSendPerSecond),
		},
		OAuth: OAuthConfig{
			AuthURL:       cfg.GetString(keyOAuthAuthURL),
			TokenURL:      cfg.GetString(keyOAuthTokenURL),
			DeviceAuthURL: cfg.GetString(keyOAuthDeviceAuthURL),
			Listen:        cfg.GetString(keyOAuthListen),
			Scopes:        cfg.GetStringSlice(keyOAuthScopes),
		},
		Digest: DigestConfig{
			WindowHours:  cfg.GetInt(keyDigestWindowHours),
			SystemPrompt: cfg.GetString(keyDigestSystemPrompt),
			MaxTurns:     cfg.GetInt(keyDigestMaxTurns),
		},
		LLM: LLMConfig{
			Model:           cfg.GetString(keyLLMModel),
			BaseURL:         cfg.GetString(keyLLMBaseURL),
			APIKeySecretRef: cfg.GetString(keyLLMAPIKeyRef),
			Timeout:         cfg.GetDuration(keyLLMTimeout),
		},
		MetricsListen: cfg.GetString(keyMetricsListen),
	}

	if err := loaded.validate(); err != nil {
		return Config{}, err
	}

	return loaded, nil
}

func setDefaults(cfg *viper.Viper, homeDir string) {
	base := filepath.Join(homeDir, configDir)

	cfg.SetDefault(keyStateDir, filepath.Join(base, "state"))
	cfg.SetDefault(keySecretsDir, filepath.Join(base, "secrets"))
	cfg.SetDefault(keyPassDir, "")
	cfg.SetDefault(keyPassTimeout, "10s")
	cfg.SetDefault(keyAccount, "default")
	cfg.SetDefault(keyLogLevel, "info")
	cfg.SetDefault(keyAgentMaxFailures, 3)
	cfg.SetDefault(keyAgentCooldown, "5m")
	cfg.SetDefault(keyDigestMaxFailures, 3)
	cfg.SetDefault(keyDigestCooldown, "30m")
	cfg.SetDefault(keyAuditRetentionDays, 14)
	cfg.SetDefault(keySessionTTL, "10m")
	cfg.SetDefault(keySessionSweepInterval, "1m")
	cfg.SetDefault(keySnapshotInterval, "5m")
	cfg.SetDefault(keyTelegramAPIURL, "https://api.telegram.org")
	cfg.SetDefault(keyTelegramTokenRef, "mailbot/telegram/bot-token")
	cfg.SetDefault(keyTelegramNotifyChatID, 0)
	cfg.SetDefault(keyTelegramAllowedChats, []int{})
	cfg.SetDefault(keyTelegramPollTimeout, "30s")
	cfg.SetDefault(keyTelegramSendPerSecond, 1.0)
	cfg.SetDefault(keyOAuthAuthURL, "https://accounts.google.com/o/oauth2/auth")
	cfg.SetDefault(keyOAuthTokenURL, "https://oauth2.googleapis.com/token")
	cfg.SetDefault(keyOAuthDeviceAuthURL, "https://oauth2.googleapis.com/device/code")
	cfg.SetDefault(keyOAuthListen, "127.0.0.1:8085")
	cfg.SetDefault(keyOAuthScopes, []string{
		"https://www.googleapis.com/auth/gmail.readonly",
		"https://www.googleapis.com/auth/gmail.compose",
	})
	cfg.SetDefault(keyDigestWindowHours, 24)
	cfg.SetDefault(keyDigestSystemPrompt, DefaultDigestSystemPrompt)
	cfg.SetDefault(keyDigestMaxTurns, 1)
	cfg.SetDefault(keyLLMModel, "gpt-4o-mini")
	cfg.SetDefault(keyLLMBaseURL, "")
	cfg.SetDefault(keyLLMAPIKeyRef, "mailbot/llm/api-key")
	cfg.SetDefault(keyLLMTimeout, "90s")
	cfg.SetDefault(keyMetricsListen, "")
}

func (c Config) validate() error {
	if err := c.Account.Validate(); err != nil {
		return fmt.Errorf("invalid account: %w", err)
	}
	if err := c.AgentBreaker.Validate(); err != nil {
		return fmt.Errorf("invalid agent breaker: %w", err)
	}
	if err := c.DigestBreaker.Validate(); err != nil {
		return fmt.Errorf("invalid digest breaker: %w", err)
	}
	if c.AuditRetention <= 0 {
		return errors.New("audit retention must be positive")
	}
	if c.Session.TTL <= 0 || c.Session.SweepInterval <= 0 || c.Session.SnapshotInterval <= 0 {
		return errors.New("session durations must be positive")
	}
	if c.Digest.WindowHours <= 0 {
		return errors.New("digest window must be positive")
	}
	if c.Pass.Timeout <= 0 {
		return errors.New("pass timeout must be positive")
	}
	if c.LLM.Timeout <= 0 {
		return errors.New("llm timeout must be positive")
	}
	if c.Telegram.SendPerSecond <= 0 {
		return errors.New("telegram send rate must be positive")
	}

	return nil
}

// RequireNotifyChat reports whether the digest has somewhere to deliver.
func (c Config) RequireNotifyChat() error {
	if c.Telegram.NotifyChatID == 0 {
		return fmt.Errorf("%s is not set", keyTelegramNotifyChatID)
	}
	return nil
}

func (c Config) RequireAllowedChats() error {
	if len(c.Telegram.AllowedChatIDs) == 0 {
		return fmt.Errorf("%s is empty", keyTelegramAllowedChats)
	}
	return nil
}

func (c Config) LocksDir() string { return filepath.Join(c.StateDir, "locks") }
func (c Config) CircuitsDir() string { return filepath.Join(c.StateDir, "circuits") }
func (c Config) TokensDir() string { return filepath.Join(c.StateDir, "tokens") }
func (c Config) AuditDir() string { return filepath.Join(c.StateDir, "audit") }
func (c Config) SnapshotPath() string { return filepath.Join(c.StateDir, "snapshot.toml") }

// LockPath is the pid file of one process role ("daemon", "digest").
func (c Config) LockPath(role string) string {
	return filepath.Join(c.LocksDir(), role+".pid")
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", keyLogLevel, raw, err)
	}
	return level, nil
}

func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}
