package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)

	_, stderr, err := runMailbot(t, binaryPath, home, `{"web":{"client_id":"cid-9","client_secret":"shh"}}`,
		"auth", "set-app-credentials",
	)
	require.NoError(t, err, "stderr: %s", stderr)

	stdout, stderr, err := runMailbot(t, binaryPath, home, "", "status")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "not running")
	assert.Contains(t, stdout, "app credentials")

	stdout, stderr, err = runMailbot(t, binaryPath, home, "", "breaker", "show", "agent")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Equal(t, "agent: 0/3 failures, closed\n", stdout)
}

func TestDigestExitsQuietlyWhileAnotherRunHoldsTheLock(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)

	lockPath := filepath.Join(home, ".mailbot", "state", "locks", "digest.pid")
	require.NoError(t, os.MkdirAll(filepath.Dir(lockPath), 0o700))
	holder := strconv.Itoa(os.Getpid()) + "\n"
	lockFile, err := os.OpenFile(lockPath, os.O_RDWR|os.O_CREATE, 0o600)
	require.NoError(t, err)
	defer lockFile.Close()
	_, err = lockFile.WriteString(holder)
	require.NoError(t, err)
	require.NoError(t, unix.Flock(int(lockFile.Fd()), unix.LOCK_EX|unix.LOCK_NB))

	stdout, stderr, err := runMailbot(t, binaryPath, home, "", "digest", "--verbose")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "another instance is running")

	raw, err := os.ReadFile(lockPath)
	require.NoError(t, err)
	assert.Equal(t, holder, string(raw), "lock held by a live process is left alone")
}

func TestDaemonStatusReportsStaleLock(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)

	lockPath := filepath.Join(home, ".mailbot", "state", "locks", "daemon.pid")
	require.NoError(t, os.MkdirAll(filepath.Dir(lockPath), 0o700))
	// pid_max on Linux is at most 2^22, so this pid cannot be alive.
	require.NoError(t, os.WriteFile(lockPath, []byte("9999999\n"), 0o600))

	stdout, stderr, err := runMailbot(t, binaryPath, home, "", "status")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "stale lock from pid 9999999")
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "mailbot-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/mailbot")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build mailbot binary: %s", string(output))
	return binaryPath
}

func runMailbot(t *testing.T, binaryPath, home, input string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(withoutEnv(os.Environ(), "PATH", "HOME"),
		"HOME="+home,
		"PATH="+t.TempDir(),
		"MAILBOT_TELEGRAM_NOTIFY_CHAT_ID=42",
	)
	cmd.Stdin = strings.NewReader(input)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func withoutEnv(env []string, keys ...string) []string {
	kept := make([]string, 0, len(env))
	for _, entry := range env {
		name, _, _ := strings.Cut(entry, "=")
		drop := false
		for _, key := range keys {
			if name == key {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, entry)
		}
	}
	return kept
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}
