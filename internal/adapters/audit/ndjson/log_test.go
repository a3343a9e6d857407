package ndjson

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func TestRecordAppendsOneLinePerEvent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
	log, err := NewLog(dir, 0, fixedClock{now: now})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, log.Record(ctx, "circuit.failure", map[string]any{"operation": "digest", "failures": 1}))
	require.NoError(t, log.Record(ctx, "digest.run", nil))

	path := filepath.Join(dir, "audit-2026-03-01.ndjson")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	events, err := log.Read(now)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "circuit.failure", events[0].Event)
	assert.Equal(t, "digest", events[0].Context["operation"])
	assert.Equal(t, float64(1), events[0].Context["failures"])
	assert.True(t, now.Equal(events[0].Timestamp))
	assert.Equal(t, "digest.run", events[1].Event)
	assert.Nil(t, events[1].Context)
}

func TestRecordUsesUTCDay(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	local := time.FixedZone("UTC+5", 5*3600)
	log, err := NewLog(dir, 0, fixedClock{now: time.Date(2026, 3, 2, 2, 0, 0, 0, local)})
	require.NoError(t, err)

	require.NoError(t, log.Record(context.Background(), "session.started", nil))
	assert.FileExists(t, filepath.Join(dir, "audit-2026-03-01.ndjson"))
}

func TestRecordRejectsEmptyEvent(t *testing.T) {
	t.Parallel()

	log, err := NewLog(t.TempDir(), 0, nil)
	require.NoError(t, err)

	assert.Error(t, log.Record(context.Background(), " ", nil))
}

func TestConcurrentRecordsStayWholeLines(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	log, err := NewLog(t.TempDir(), 0, fixedClock{now: now})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = log.Record(context.Background(), "session.step", map[string]any{"n": n})
		}(i)
	}
	wg.Wait()

	events, err := log.Read(now)
	require.NoError(t, err)
	assert.Len(t, events, 50)
}

func TestPruneDeletesWholeFilesOutsideRetention(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	log, err := NewLog(dir, 14*24*time.Hour, nil)
	require.NoError(t, err)

	for _, name := range []string{
		"audit-2026-02-10.ndjson",
		"audit-2026-02-14.ndjson",
		"audit-2026-02-15.ndjson",
		"audit-2026-03-01.ndjson",
		"notes.txt",
		"audit-garbage.ndjson",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}\n"), 0o600))
	}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	removed, err := log.Prune(now)
	require.NoError(t, err)
	assert.Equal(t, []string{"audit-2026-02-10.ndjson", "audit-2026-02-14.ndjson"}, removed)

	for _, kept := range []string{"audit-2026-02-15.ndjson", "audit-2026-03-01.ndjson", "notes.txt", "audit-garbage.ndjson"} {
		assert.FileExists(t, filepath.Join(dir, kept))
	}
}

func TestPruneMissingDirectory(t *testing.T) {
	t.Parallel()

	log, err := NewLog(filepath.Join(t.TempDir(), "absent"), 0, nil)
	require.NoError(t, err)

	removed, err := log.Prune(time.Now())
	require.NoError(t, err)
	assert.Empty(t, removed)
}
