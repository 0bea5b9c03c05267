package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestOpen_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "avfallsor.db")

	st, err := Open(ctx, Config{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()

	if err := st.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	if err := st.SetSetting(ctx, SettingRefreshInterval, "0 6 * * *"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	if err := st.SetSetting(ctx, SettingRefreshInterval, "@hourly"); err != nil {
		t.Fatalf("SetSetting overwrite failed: %v", err)
	}
	if v, err := st.GetSetting(ctx, SettingRefreshInterval); err != nil || v != "@hourly" {
		t.Fatalf("expected @hourly, got %q err=%v", v, err)
	}

	started := time.Now().UTC().Truncate(time.Second)
	if err := st.UpdateScheduledJob(ctx, "publish", started, 2*time.Second, false, "boom"); err != nil {
		t.Fatalf("UpdateScheduledJob failed: %v", err)
	}
	if err := st.UpdateScheduledJob(ctx, "publish", started, 2*time.Second, false, "boom"); err != nil {
		t.Fatalf("UpdateScheduledJob failed: %v", err)
	}
	job, err := st.GetScheduledJob(ctx, "publish")
	if err != nil || job == nil {
		t.Fatalf("GetScheduledJob failed: %+v err=%v", job, err)
	}
	if job.ConsecutiveFailures != 2 || job.LastDurationMs != 2000 {
		t.Errorf("unexpected job %+v", job)
	}
}

func TestGorm_WithLock(t *testing.T) {
	ctx := context.Background()
	st, err := NewGormStorage("sqlite", filepath.Join(t.TempDir(), "lock.db"))
	if err != nil {
		t.Fatalf("NewGormStorage failed: %v", err)
	}
	defer st.Close()

	ran := false
	err = st.WithLock(ctx, 7, func(ctx context.Context) error {
		ran = true
		if err := st.WithLock(ctx, 7, func(context.Context) error { return nil }); !errors.Is(err, ErrLocked) {
			t.Errorf("expected ErrLocked for nested lock, got %v", err)
		}
		return nil
	})
	if err != nil || !ran {
		t.Fatalf("WithLock: ran=%v err=%v", ran, err)
	}
	if err := st.WithLock(ctx, 7, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("expected lock to be free again, got %v", err)
	}

	boom := errors.New("boom")
	if err := st.WithLock(ctx, 7, func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected fn error to propagate, got %v", err)
	}
}

func TestUnlockResult(t *testing.T) {
	if err := unlockResult(7, true, nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := unlockResult(7, false, nil); err == nil {
		t.Fatal("expected error when the session did not hold the lock")
	}
	if err := unlockResult(7, true, errors.New("conn reset")); err == nil {
		t.Fatal("expected query error to surface")
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: "mongo"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
