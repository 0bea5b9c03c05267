package cron

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/bher20/avfallsor-mqtt/internal/alerting"
	"github.com/bher20/avfallsor-mqtt/internal/calendar"
	"github.com/bher20/avfallsor-mqtt/internal/metrics"
	"github.com/bher20/avfallsor-mqtt/internal/storage"
)

// JobName identifies the publish job in storage and metrics.
const JobName = "publish_schedule"

// lockKey guards the publish job across replicas sharing a postgres database.
const lockKey int64 = 0x61766673

// ScheduleSource produces the pickup schedule for an address.
type ScheduleSource interface {
	Run(ctx context.Context, address string, ref calendar.Date) (calendar.Schedule, error)
}

// SchedulePublisher delivers a schedule to its consumers.
type SchedulePublisher interface {
	Publish(ctx context.Context, s calendar.Schedule) error
}

// Job looks up the schedule for one address and publishes it.
type Job struct {
	Provider  calendar.ProviderDescriptor
	Address   string
	Source    ScheduleSource
	Publisher SchedulePublisher
	Store     storage.Storage
	Alerter   *alerting.Alerter

	// FetchAttempts bounds how often a run is attempted when the remote
	// site is unreachable. Other failures are not retried.
	FetchAttempts uint64
	RetryBase     time.Duration

	// Today returns the reference date; defaults to calendar.Today.
	Today func() calendar.Date

	// guards runs when no Store is configured
	mu sync.Mutex
}

// Run performs RunOnce while holding the publish lock, so scheduled and
// manual runs never overlap. It returns storage.ErrLocked when another run
// holds the lock.
func (j *Job) Run(ctx context.Context) (calendar.Schedule, error) {
	if j.Store == nil {
		if !j.mu.TryLock() {
			return nil, storage.ErrLocked
		}
		defer j.mu.Unlock()
		return j.RunOnce(ctx)
	}

	var sched calendar.Schedule
	err := j.Store.WithLock(ctx, lockKey, func(ctx context.Context) error {
		s, err := j.RunOnce(ctx)
		sched = s
		return err
	})
	if err != nil {
		return nil, err
	}
	return sched, nil
}

// RunOnce performs a single lookup-and-publish run. Nothing is published when
// the lookup fails.
func (j *Job) RunOnce(ctx context.Context) (calendar.Schedule, error) {
	runID := uuid.NewString()
	started := time.Now()

	sched, err := j.lookup(ctx)
	metrics.ObservePipeline(j.Provider.Key, started, len(sched), err)
	if err == nil {
		err = j.Publisher.Publish(ctx, sched)
		if err != nil {
			err = fmt.Errorf("publish: %w", err)
		}
	}

	dur := time.Since(started)
	metrics.UpdateJobMetrics(JobName, started, err)
	j.record(ctx, runID, started, dur, err)

	if err != nil {
		log.Printf("cron: run %s failed after %s: %v", runID, dur, err)
		return nil, err
	}
	log.Printf("cron: run %s published %d waste types (duration=%s)", runID, len(sched), dur)
	return sched, nil
}

func (j *Job) lookup(ctx context.Context) (calendar.Schedule, error) {
	today := calendar.Today
	if j.Today != nil {
		today = j.Today
	}
	attempts := j.FetchAttempts
	if attempts == 0 {
		attempts = 1
	}
	base := j.RetryBase
	if base <= 0 {
		base = 2 * time.Second
	}

	var sched calendar.Schedule
	backoff := retry.WithMaxRetries(attempts-1, retry.NewExponential(base))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		s, err := j.Source.Run(ctx, j.Address, today())
		if err != nil {
			if errors.Is(err, calendar.ErrFetch) {
				log.Printf("cron: lookup for %q failed, will retry: %v", j.Address, err)
				return retry.RetryableError(err)
			}
			return err
		}
		sched = s
		return nil
	})
	return sched, err
}

func (j *Job) record(ctx context.Context, runID string, started time.Time, dur time.Duration, runErr error) {
	if j.Store == nil {
		return
	}
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	if err := j.Store.UpdateScheduledJob(ctx, JobName, started, dur, runErr == nil, errMsg); err != nil {
		log.Printf("cron: update scheduled_jobs failed: %v", err)
		return
	}
	if runErr == nil || j.Alerter == nil {
		return
	}

	failures := 1
	if job, err := j.Store.GetScheduledJob(ctx, JobName); err == nil && job != nil {
		failures = job.ConsecutiveFailures
	}
	alert := alerting.RunAlert{
		JobName:             JobName,
		RunID:               runID,
		Provider:            j.Provider.Key,
		Address:             j.Address,
		Error:               errMsg,
		ConsecutiveFailures: failures,
		Duration:            dur,
		Timestamp:           started,
	}
	if err := j.Alerter.SendRunAlert(ctx, alert); err != nil {
		log.Printf("cron: send alert failed: %v", err)
	}
}
