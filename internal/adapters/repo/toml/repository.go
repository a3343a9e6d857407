// Package toml persists the daemon's periodic state snapshot so that
// `mailbot status` can describe a running daemon from another process.
package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bnema/mailbot/internal/domain"
	"github.com/bnema/mailbot/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	snapshotFileMode = 0o600
	snapshotDirMode  = 0o700
	tempFilePattern  = ".snapshot-*.toml.tmp"
)

type SnapshotRepository struct {
	path string
	mu   *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.SnapshotRepository = (*SnapshotRepository)(nil)

func NewSnapshotRepository(path string) (*SnapshotRepository, error) {
	if path == "" {
		return nil, errors.New("snapshot path is empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve snapshot path: %w", err)
	}
	absPath = filepath.Clean(absPath)

	return &SnapshotRepository{path: absPath, mu: lockForPath(absPath)}, nil
}

func (r *SnapshotRepository) Save(ctx context.Context, snapshot domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.writeSchema(toSchema(snapshot))
}

// Load wraps domain.ErrSnapshotNotFound when no daemon has written one yet.
func (r *SnapshotRepository) Load(ctx context.Context) (domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Snapshot{}, fmt.Errorf("read snapshot: %w", domain.ErrSnapshotNotFound)
		}
		return domain.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}

	var file snapshotSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return domain.Snapshot{}, err
	}

	return fromSchema(file), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (r *SnapshotRepository) writeSchema(file snapshotSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.path), snapshotDirMode); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp snapshot file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp snapshot file: %w", err)
	}

	if err := tempFile.Chmod(snapshotFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp snapshot file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp snapshot file: %w", err)
	}

	if err := os.Rename(tempName, r.path); err != nil {
		return fmt.Errorf("replace snapshot file: %w", err)
	}

	cleanup = false
	return nil
}

func toSchema(snapshot domain.Snapshot) snapshotSchema {
	file := snapshotSchema{
		TakenAt:    formatTime(snapshot.TakenAt),
		PID:        snapshot.PID,
		InstanceID: snapshot.InstanceID,
	}

	for _, session := range snapshot.Sessions {
		file.Sessions = append(file.Sessions, sessionSchema{
			ChatID:    int64(session.ChatID),
			Kind:      string(session.Kind),
			Step:      string(session.Step),
			ExpiresAt: formatTime(session.ExpiresAt),
		})
	}

	for _, breaker := range snapshot.Breakers {
		file.Breakers = append(file.Breakers, breakerSchema{
			Operation:     string(breaker.Operation),
			FailureCount:  breaker.State.FailureCount,
			MaxFailures:   breaker.State.MaxFailures,
			CooldownMs:    breaker.State.Cooldown.Milliseconds(),
			LastFailureAt: formatTime(breaker.State.LastFailureAt),
			Open:          breaker.Open,
		})
	}

	return file
}

func fromSchema(file snapshotSchema) domain.Snapshot {
	snapshot := domain.Snapshot{
		TakenAt:    parseTime(file.TakenAt),
		PID:        file.PID,
		InstanceID: file.InstanceID,
	}

	for _, session := range file.Sessions {
		snapshot.Sessions = append(snapshot.Sessions, domain.SessionSummary{
			ChatID:    domain.ChatID(session.ChatID),
			Kind:      domain.SessionKind(session.Kind),
			Step:      domain.Step(session.Step),
			ExpiresAt: parseTime(session.ExpiresAt),
		})
	}

	for _, breaker := range file.Breakers {
		snapshot.Breakers = append(snapshot.Breakers, domain.BreakerStatus{
			Operation: domain.OperationName(breaker.Operation),
			State: domain.CircuitState{
				FailureCount:  breaker.FailureCount,
				MaxFailures:   breaker.MaxFailures,
				Cooldown:      time.Duration(breaker.CooldownMs) * time.Millisecond,
				LastFailureAt: parseTime(breaker.LastFailureAt),
			},
			Open: breaker.Open,
		})
	}

	return snapshot
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed.UTC()
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339)
}
