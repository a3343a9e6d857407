package cmd

import (
	"fmt"

	"github.com/bnema/mailbot/internal/adapters/lock/pidfile"
)

const (
	roleDaemon = "daemon"
	roleDigest = "digest"
)

// acquireRole claims the pid file of a process role. A false result means
// another live instance holds it and the caller should exit quietly.
func (a *app) acquireRole(role string) (release func(), acquired bool, err error) {
	guard := pidfile.New(a.cfg.LockPath(role))
	acquired, err = guard.Acquire()
	if err != nil {
		return nil, false, fmt.Errorf("acquire %s lock: %w", role, err)
	}
	if !acquired {
		pid, _ := guard.Holder()
		a.logger.Info("another instance is running", "role", role, "pid", pid)
		return nil, false, nil
	}

	return func() {
		if err := guard.Release(); err != nil {
			a.logger.Warn("release lock", "role", role, "error", err)
		}
	}, true, nil
}
