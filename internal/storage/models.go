package storage

import "time"

// Setting is a runtime override, e.g. the refresh interval.
type Setting struct {
	Key       string    `json:"key" gorm:"primaryKey;column:key"`
	Value     string    `json:"value" gorm:"column:value"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// ScheduledJob records the last run of a named job.
type ScheduledJob struct {
	Name           string    `json:"name" gorm:"primaryKey;column:name"`
	LastRunAt      time.Time `json:"last_run_at" gorm:"column:last_run_at"`
	LastDurationMs int64     `json:"last_duration_ms" gorm:"column:last_duration_ms"`
	LastSuccess    bool      `json:"last_success" gorm:"column:last_success"`
	LastError      string    `json:"last_error,omitempty" gorm:"column:last_error"`
	// ConsecutiveFailures resets to zero on success.
	ConsecutiveFailures int `json:"consecutive_failures" gorm:"column:consecutive_failures"`
}

func (ScheduledJob) TableName() string { return "scheduled_jobs" }
func (Setting) TableName() string      { return "settings" }
