// Package ndjson appends audit events to one newline-delimited JSON file per
// UTC day and prunes whole files once they leave the retention window.
package ndjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bnema/mailbot/internal/domain"
	"github.com/bnema/mailbot/internal/ports"
)

const (
	filePrefix = "audit-"
	fileSuffix = ".ndjson"
	dayLayout  = "2006-01-02"
	fileMode   = 0o600
	dirMode    = 0o700
)

const DefaultRetention = 14 * 24 * time.Hour

type Log struct {
	dir       string
	retention time.Duration
	clock     ports.Clock

	mu sync.Mutex
}

var _ ports.AuditLog = (*Log)(nil)

func NewLog(dir string, retention time.Duration, clock ports.Clock) (*Log, error) {
	if dir == "" {
		return nil, errors.New("audit directory is empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve audit directory: %w", err)
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Log{dir: filepath.Clean(abs), retention: retention, clock: clock}, nil
}

func (l *Log) Record(ctx context.Context, event string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(event) == "" {
		return errors.New("audit event name is required")
	}

	entry := domain.AuditEvent{Timestamp: l.clock.Now().UTC(), Event: event, Context: fields}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit event %s: %w", event, err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, dirMode); err != nil {
		return fmt.Errorf("create audit directory: %w", err)
	}

	file, err := os.OpenFile(l.pathFor(entry.Timestamp), os.O_CREATE|os.O_APPEND|os.O_WRONLY, fileMode)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}

	_, writeErr := file.Write(line)
	closeErr := file.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		return fmt.Errorf("append audit event %s: %w", event, err)
	}

	return nil
}

// Prune deletes daily files whose day ended before now minus the retention
// window. Files it cannot parse as a day are left alone.
func (l *Log) Prune(now time.Time) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read audit directory: %w", err)
	}

	cutoff := now.UTC().Add(-l.retention)
	removed := make([]string, 0)
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		day, ok := parseDay(entry.Name())
		if !ok || !day.AddDate(0, 0, 1).Before(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(l.dir, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", entry.Name(), err))
			continue
		}
		removed = append(removed, entry.Name())
	}

	sort.Strings(removed)
	return removed, errors.Join(errs...)
}

// Read returns the events recorded on the UTC day of at, oldest first.
func (l *Log) Read(at time.Time) ([]domain.AuditEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.pathFor(at))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read audit file: %w", err)
	}

	events := make([]domain.AuditEvent, 0)
	for i, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if line == "" {
			continue
		}
		var event domain.AuditEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			return nil, fmt.Errorf("decode audit line %d: %w", i+1, err)
		}
		events = append(events, event)
	}

	return events, nil
}

func (l *Log) pathFor(at time.Time) string {
	return filepath.Join(l.dir, filePrefix+at.UTC().Format(dayLayout)+fileSuffix)
}

func parseDay(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return time.Time{}, false
	}

	raw := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	day, err := time.Parse(dayLayout, raw)
	if err != nil {
		return time.Time{}, false
	}

	return day, true
}
