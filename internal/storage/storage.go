package storage

import (
	"context"
	"errors"
	"time"
)

// ErrLocked is returned by WithLock when another holder has the lock.
var ErrLocked = errors.New("lock held by another run")

// Storage persists service bookkeeping: runtime settings and the outcome of
// scheduled jobs. Pickup dates themselves are never stored.
type Storage interface {
	// Settings
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// Scheduled jobs
	UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error
	GetScheduledJob(ctx context.Context, name string) (*ScheduledJob, error)

	// WithLock runs fn while holding the lock for key and releases it
	// afterwards. It returns ErrLocked without calling fn when the lock is
	// held elsewhere.
	WithLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error

	Ping(ctx context.Context) error
	// Close releases any resources (no-op for in-memory).
	Close() error
}

// Setting keys.
const (
	SettingRefreshInterval = "refresh_interval"
)
