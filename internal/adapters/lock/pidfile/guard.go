// Package pidfile keeps one live process per lock path.
//
// The lock is an exclusive flock(2) on the pid file, held for as long as the
// guard owns it. The kernel drops it when the holder exits, so a crashed
// holder never blocks the next run. The pid written into the file is for
// operators and status output only.
package pidfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

const (
	lockFileMode = 0o600
	lockDirMode  = 0o700

	// acquireAttempts bounds retries when the file is swapped under us by a
	// releasing holder.
	acquireAttempts = 5
)

type Guard struct {
	path  string
	pid   int
	alive func(pid int) bool

	mu   sync.Mutex
	file *os.File
}

type Option func(*Guard)

// WithPID records pid instead of the current process id.
func WithPID(pid int) Option {
	return func(g *Guard) { g.pid = pid }
}

// WithLiveness replaces the kill(pid, 0) liveness check used by Holder.
func WithLiveness(alive func(pid int) bool) Option {
	return func(g *Guard) { g.alive = alive }
}

func New(path string, opts ...Option) *Guard {
	g := &Guard{path: filepath.Clean(path), pid: os.Getpid(), alive: processAlive}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Guard) Path() string {
	return g.path
}

// Acquire claims the lock. It returns false, leaving the file untouched,
// while another open file holds the flock, including one of this process.
// A file left behind by a dead holder, whatever it contains, is taken over.
func (g *Guard) Acquire() (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.file != nil {
		return true, nil
	}
	if err := os.MkdirAll(filepath.Dir(g.path), lockDirMode); err != nil {
		return false, fmt.Errorf("create lock directory: %w", err)
	}

	for attempt := 0; attempt < acquireAttempts; attempt++ {
		file, err := os.OpenFile(g.path, os.O_RDWR|os.O_CREATE, lockFileMode)
		if err != nil {
			return false, fmt.Errorf("open lock file: %w", err)
		}

		if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
			_ = file.Close()
			if errors.Is(err, unix.EWOULDBLOCK) {
				return false, nil
			}
			return false, fmt.Errorf("lock %s: %w", g.path, err)
		}

		// A releasing holder unlinks the path before it unlocks, so the
		// flock may have landed on a file that is no longer the lock.
		linked, err := linkedAt(file, g.path)
		if err != nil {
			_ = file.Close()
			return false, err
		}
		if !linked {
			_ = file.Close()
			continue
		}

		if err := writePID(file, g.pid); err != nil {
			_ = file.Close()
			return false, fmt.Errorf("write lock file: %w", err)
		}
		g.file = file
		return true, nil
	}

	return false, fmt.Errorf("lock %s: file kept changing during %d attempts", g.path, acquireAttempts)
}

// Release removes the lock file and drops the flock. The file is only
// removed while it is still the one this guard locked. Safe to call more
// than once and on every exit path.
func (g *Guard) Release() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.file == nil {
		return nil
	}
	file := g.file
	g.file = nil
	defer file.Close()

	linked, err := linkedAt(file, g.path)
	if err != nil || !linked {
		return err
	}
	if err := os.Remove(g.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}

// Holder reports the pid recorded in the lock file and whether that process
// is alive. pid is 0 when no readable pid is recorded, which includes a
// holder that has locked the file but not written yet.
func (g *Guard) Holder() (pid int, alive bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pid, ok := g.readHolder()
	if !ok {
		return 0, false
	}
	return pid, g.alive(pid)
}

func (g *Guard) readHolder() (int, bool) {
	data, err := os.ReadFile(g.path)
	if err != nil {
		return 0, false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}

	return pid, true
}

func writePID(file *os.File, pid int) error {
	if err := file.Truncate(0); err != nil {
		return err
	}
	if _, err := file.WriteAt([]byte(strconv.Itoa(pid)+"\n"), 0); err != nil {
		return err
	}
	return file.Sync()
}

// linkedAt reports whether path still names the open file.
func linkedAt(file *os.File, path string) (bool, error) {
	opened, err := file.Stat()
	if err != nil {
		return false, fmt.Errorf("stat locked file: %w", err)
	}
	current, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat lock path: %w", err)
	}
	return os.SameFile(opened, current), nil
}

// EPERM means the process exists but belongs to someone else.
func processAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
