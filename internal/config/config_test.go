package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/mailbot/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	t.Parallel()

	home := t.TempDir()

	cfg, err := Load(viper.New(), home)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".mailbot", "state"), cfg.StateDir)
	assert.Equal(t, domain.AccountID("default"), cfg.Account)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, domain.BreakerConfig{Operation: domain.OperationDigest, MaxFailures: 3, Cooldown: 30 * time.Minute}, cfg.DigestBreaker)
	assert.Equal(t, 14*24*time.Hour, cfg.AuditRetention)
	assert.Equal(t, PassConfig{Timeout: 10 * time.Second}, cfg.Pass)
	assert.Equal(t, 10*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 24, cfg.Digest.WindowHours)
	assert.Equal(t, DefaultDigestSystemPrompt, cfg.Digest.SystemPrompt)
	assert.Empty(t, cfg.Telegram.AllowedChatIDs)
	assert.Equal(t, filepath.Join(cfg.StateDir, "locks", "digest.pid"), cfg.LockPath("digest"))
	assert.Equal(t, filepath.Join(cfg.StateDir, "snapshot.toml"), cfg.SnapshotPath())

	assert.Error(t, cfg.RequireNotifyChat())
	assert.Error(t, cfg.RequireAllowedChats())
}

func TestLoadReadsConfigFile(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	writeConfig(t, home, `
state_dir = "/var/lib/mailbot"
account = "work"

[log]
level = "debug"

[breaker.agent]
max_failures = 5
cooldown = "30s"

[telegram]
notify_chat_id = 4242
allowed_chat_ids = [4242, 99]

[session]
ttl = "2m"

[pass]
dir = "/srv/mailbot/password-store"
timeout = "3s"
`)

	cfg, err := Load(viper.New(), home)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/mailbot", cfg.StateDir)
	assert.Equal(t, domain.AccountID("work"), cfg.Account)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 5, cfg.AgentBreaker.MaxFailures)
	assert.Equal(t, 30*time.Second, cfg.AgentBreaker.Cooldown)
	assert.Equal(t, domain.ChatID(4242), cfg.Telegram.NotifyChatID)
	assert.Equal(t, []domain.ChatID{4242, 99}, cfg.Telegram.AllowedChatIDs)
	assert.Equal(t, 2*time.Minute, cfg.Session.TTL)
	assert.Equal(t, PassConfig{Dir: "/srv/mailbot/password-store", Timeout: 3 * time.Second}, cfg.Pass)
	assert.NoError(t, cfg.RequireNotifyChat())
	assert.NoError(t, cfg.RequireAllowedChats())
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	home := t.TempDir()
	writeConfig(t, home, "[breaker.digest]\nmax_failures = 5\n")
	t.Setenv("MAILBOT_BREAKER_DIGEST_MAX_FAILURES", "9")
	t.Setenv("MAILBOT_STATE_DIR", filepath.Join(home, "elsewhere"))

	cfg, err := Load(viper.New(), home)
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.DigestBreaker.MaxFailures)
	assert.Equal(t, filepath.Join(home, "elsewhere"), cfg.StateDir)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "bad level", body: "[log]\nlevel = \"chatty\"\n", wantErr: "log.level"},
		{name: "zero failures", body: "[breaker.digest]\nmax_failures = 0\n", wantErr: "digest breaker"},
		{name: "account path", body: "account = \"../x\"\n", wantErr: "invalid account"},
		{name: "malformed toml", body: "state_dir = \n", wantErr: "read config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			home := t.TempDir()
			writeConfig(t, home, tt.body)

			_, err := Load(viper.New(), home)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func writeConfig(t *testing.T, home, body string) {
	t.Helper()

	dir := filepath.Join(home, ".mailbot")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(body), 0o600))
}
