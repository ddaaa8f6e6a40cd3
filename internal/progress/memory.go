package progress

import (
	"context"
	"sync"
	"time"

	"spiresync/internal/models"
)

// MemoryTracker keeps snapshots in process. Expiry is checked on read.
type MemoryTracker struct {
	mu    sync.Mutex
	runs  map[string]models.SyncRun
	clock func() time.Time
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		runs:  make(map[string]models.SyncRun),
		clock: time.Now,
	}
}

// WithClock replaces the time source.
func (m *MemoryTracker) WithClock(clock func() time.Time) *MemoryTracker {
	m.clock = clock
	return m
}

func (m *MemoryTracker) Set(ctx context.Context, run models.SyncRun, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stamp(&run, m.clock(), ttl)
	m.runs[Key(run.RunKey)] = run
	return nil
}

func (m *MemoryTracker) Get(ctx context.Context, runKey string) (*models.SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := Key(runKey)
	run, ok := m.runs[key]
	if !ok {
		return nil, ErrNotFound
	}
	if !m.clock().Before(run.ExpiresAt) {
		delete(m.runs, key)
		return nil, ErrNotFound
	}
	return &run, nil
}
