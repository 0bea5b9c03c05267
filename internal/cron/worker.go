package cron

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bher20/avfallsor-mqtt/internal/storage"
)

// NextRun returns when the job should next run after lastRun. setting is
// integer seconds or a standard cron expression; anything else falls back to
// one hour.
func NextRun(setting string, lastRun time.Time) time.Time {
	setting = strings.TrimSpace(setting)
	if v, err := strconv.Atoi(setting); err == nil && v > 0 {
		return lastRun.Add(time.Duration(v) * time.Second)
	}
	if sched, err := cron.ParseStandard(setting); err == nil {
		return sched.Next(lastRun)
	}
	return lastRun.Add(time.Hour)
}

// ValidInterval reports whether setting is usable by NextRun.
func ValidInterval(setting string) bool {
	setting = strings.TrimSpace(setting)
	if v, err := strconv.Atoi(setting); err == nil {
		return v > 0
	}
	_, err := cron.ParseStandard(setting)
	return err == nil
}

// Run executes job immediately and then on the configured interval until ctx
// is cancelled. A refresh_interval setting in storage overrides interval and
// is re-read on every tick.
func Run(ctx context.Context, job *Job, interval string) error {
	return run(ctx, job, interval, 10*time.Second)
}

func run(ctx context.Context, job *Job, interval string, tick time.Duration) error {
	if !ValidInterval(interval) {
		return fmt.Errorf("invalid refresh interval %q: want seconds or a cron expression", interval)
	}

	st := job.Store
	intervalSetting := interval
	rejected := ""
	if val, err := st.GetSetting(ctx, storage.SettingRefreshInterval); err == nil && val != "" {
		if ValidInterval(val) {
			intervalSetting = val
		} else {
			log.Printf("cron: ignoring invalid interval setting %q", val)
			rejected = val
		}
	}

	// Control loop ticker (check config and run time)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	// If starting fresh, run immediately, then schedule next
	nextRun := time.Now()

	log.Printf("cron worker starting, interval=%q provider=%s", intervalSetting, job.Provider.Key)

	for {
		if !time.Now().Before(nextRun) {
			// Errors are logged, recorded and alerted inside the job.
			if _, err := job.Run(ctx); errors.Is(err, storage.ErrLocked) {
				log.Printf("cron: lock held by another run, skipping")
			}
			nextRun = NextRun(intervalSetting, time.Now())
			log.Printf("cron: next run at %s", nextRun.Format(time.RFC3339))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			val, err := st.GetSetting(ctx, storage.SettingRefreshInterval)
			if err != nil || val == "" || val == intervalSetting || val == rejected {
				continue
			}
			if !ValidInterval(val) {
				log.Printf("cron: ignoring invalid interval setting %q", val)
				rejected = val
				continue
			}
			log.Printf("cron: interval updated from %q to %q", intervalSetting, val)
			intervalSetting = val
			rejected = ""
			nextRun = NextRun(intervalSetting, time.Now())
		}
	}
}
