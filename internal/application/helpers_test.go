package application

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

func mockAnyContext() interface{} {
	return mock.Anything
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock(now time.Time) *manualClock {
	return &manualClock{now: now}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type auditEntry struct {
	event  string
	fields map[string]any
}

// memoryAudit keeps recorded events for assertions.
type memoryAudit struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (a *memoryAudit) Record(_ context.Context, event string, fields map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditEntry{event: event, fields: fields})
	return nil
}

func (a *memoryAudit) Events() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	events := make([]string, 0, len(a.entries))
	for _, entry := range a.entries {
		events = append(events, entry.event)
	}
	return events
}

func (a *memoryAudit) Last(event string) (map[string]any, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := len(a.entries) - 1; i >= 0; i-- {
		if a.entries[i].event == event {
			return a.entries[i].fields, true
		}
	}
	return nil, false
}
