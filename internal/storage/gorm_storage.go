package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type GormStorage struct {
	db    *gorm.DB
	locks keyLocks
}

func NewGormStorage(driver, dsn string) (*GormStorage, error) {
	var gormDialector gorm.Dialector
	switch driver {
	case "postgres":
		gormDialector = postgres.Open(dsn)
	case "sqlite":
		if dsn == "" {
			dsn = "avfallsor.db"
		}
		gormDialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := gorm.Open(gormDialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	return &GormStorage{db: db}, nil
}

func (s *GormStorage) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&Setting{},
		&ScheduledJob{},
	)
}

// Settings

func (s *GormStorage) GetSetting(ctx context.Context, key string) (string, error) {
	var setting Setting
	result := s.db.WithContext(ctx).First(&setting, "key = ?", key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", result.Error
	}
	return setting.Value, nil
}

func (s *GormStorage) SetSetting(ctx context.Context, key, value string) error {
	setting := Setting{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&setting).Error
}

// Scheduled jobs

func (s *GormStorage) GetScheduledJob(ctx context.Context, name string) (*ScheduledJob, error) {
	var job ScheduledJob
	result := s.db.WithContext(ctx).First(&job, "name = ?", name)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &job, nil
}

func (s *GormStorage) UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev ScheduledJob
		err := tx.First(&prev, "name = ?", name).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		failures := 0
		if !success {
			failures = prev.ConsecutiveFailures + 1
		}
		job := ScheduledJob{
			Name:                name,
			LastRunAt:           started,
			LastDurationMs:      dur.Milliseconds(),
			LastSuccess:         success,
			LastError:           errMsg,
			ConsecutiveFailures: failures,
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			UpdateAll: true,
		}).Create(&job).Error
	})
}

// Locking

// WithLock serialises runs inside this process and, on postgres, across
// replicas with a session advisory lock. The lock, fn and the unlock share one
// pooled connection so the unlock reaches the session that took the lock.
func (s *GormStorage) WithLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error {
	if !s.locks.tryLock(key) {
		return ErrLocked
	}
	defer s.locks.unlock(key)

	if s.db.Dialector.Name() != "postgres" {
		return fn(ctx)
	}

	return s.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		var ok bool
		if err := conn.Raw("SELECT pg_try_advisory_lock(?)", key).Scan(&ok).Error; err != nil {
			return fmt.Errorf("acquire advisory lock %d: %w", key, err)
		}
		if !ok {
			return ErrLocked
		}

		runErr := fn(ctx)

		// Unlock even when ctx is done, otherwise the pooled session keeps the lock.
		var released bool
		err := conn.WithContext(context.WithoutCancel(ctx)).
			Raw("SELECT pg_advisory_unlock(?)", key).Scan(&released).Error
		return errors.Join(runErr, unlockResult(key, released, err))
	})
}

func unlockResult(key int64, released bool, err error) error {
	if err != nil {
		return fmt.Errorf("release advisory lock %d: %w", key, err)
	}
	if !released {
		return fmt.Errorf("release advisory lock %d: not held by this session", key)
	}
	return nil
}

// Close & Ping

func (s *GormStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStorage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
