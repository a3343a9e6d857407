// Package pass reads and writes secrets through the pass(1) password store.
package pass

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/bnema/mailbot/internal/domain"
	"github.com/bnema/mailbot/internal/ports"
)

var (
	ErrUnavailable = errors.New("pass command unavailable")
	// ErrLocked means pass did not answer before the timeout, usually gpg
	// waiting on a pinentry nobody will see.
	ErrLocked = errors.New("pass did not answer in time; unlock the gpg agent")
)

const DefaultTimeout = 10 * time.Second

// pass prints this on stderr, with exit status 1, for a missing entry.
const notInStoreMarker = "is not in the password store"

type Options struct {
	// Dir selects a store other than ~/.password-store.
	Dir     string
	Timeout time.Duration
}

type runFunc func(ctx context.Context, env []string, input string, args ...string) (stdout string, stderr string, err error)

type Store struct {
	env     []string
	timeout time.Duration
	run     runFunc
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore(opts Options) *Store {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var env []string
	if dir := strings.TrimSpace(opts.Dir); dir != "" {
		env = append(os.Environ(), "PASSWORD_STORE_DIR="+dir)
	}

	return &Store{env: env, timeout: timeout, run: runPassCommand}
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	_, err := s.invoke(ctx, "insert", key, strings.TrimRight(value, "\n")+"\n", "insert", "--multiline", "--force", key)
	return err
}

// Get wraps domain.ErrSecretNotFound only when pass says the entry does not
// exist. A locked or broken gpg setup stays a transient error.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	stdout, err := s.invoke(ctx, "show", key, "", "show", key)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(stdout, "\r\n"), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.invoke(ctx, "rm", key, "", "rm", "--force", key)
	if errors.Is(err, domain.ErrSecretNotFound) {
		return nil
	}
	return err
}

func (s *Store) invoke(ctx context.Context, op, key, input string, args ...string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stdout, stderr, err := s.run(callCtx, s.env, input, args...)
	switch {
	case err == nil:
		return stdout, nil
	case errors.Is(err, ErrUnavailable):
		return "", fmt.Errorf("pass %s %q: %w", op, key, ErrUnavailable)
	case ctx.Err() != nil:
		return "", ctx.Err()
	case errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return "", fmt.Errorf("pass %s %q after %s: %w", op, key, s.timeout, ErrLocked)
	case strings.Contains(stderr, notInStoreMarker):
		return "", fmt.Errorf("pass %s %q: %w", op, key, domain.ErrSecretNotFound)
	case stderr == "":
		return "", fmt.Errorf("pass %s %q: %w", op, key, err)
	default:
		return "", fmt.Errorf("pass %s %q: %w: %s", op, key, err, stderr)
	}
}

func runPassCommand(ctx context.Context, env []string, input string, args ...string) (string, string, error) {
	path, err := exec.LookPath("pass")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", "", ErrUnavailable
		}
		return "", "", fmt.Errorf("locate pass command: %w", err)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Env = env
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	return stdout.String(), strings.TrimSpace(stderr.String()), err
}
