package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage is an in-memory Storage implementation, useful for tests and
// simple single-process deployments.
type MemoryStorage struct {
	mu       sync.RWMutex
	settings map[string]string
	jobs     map[string]ScheduledJob
	locks    keyLocks
}

func NewMemory() *MemoryStorage {
	return &MemoryStorage{
		settings: make(map[string]string),
		jobs:     make(map[string]ScheduledJob),
	}
}

func (m *MemoryStorage) Close() error { return nil }

func (m *MemoryStorage) Ping(ctx context.Context) error { return nil }

func (m *MemoryStorage) GetSetting(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings[key], nil
}

func (m *MemoryStorage) SetSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

func (m *MemoryStorage) UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := m.jobs[name]
	job.Name = name
	job.LastRunAt = started
	job.LastDurationMs = dur.Milliseconds()
	job.LastSuccess = success
	job.LastError = errMsg
	if success {
		job.ConsecutiveFailures = 0
	} else {
		job.ConsecutiveFailures++
	}
	m.jobs[name] = job
	return nil
}

func (m *MemoryStorage) GetScheduledJob(ctx context.Context, name string) (*ScheduledJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[name]
	if !ok {
		return nil, nil
	}
	cp := job
	return &cp, nil
}

func (m *MemoryStorage) WithLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error {
	if !m.locks.tryLock(key) {
		return ErrLocked
	}
	defer m.locks.unlock(key)
	return fn(ctx)
}
