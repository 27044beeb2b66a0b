package domain

import (
	"fmt"
	"time"
)

// TaskIDRecordSync fires retry waves for records waiting out their backoff.
const TaskIDRecordSync = "record-sync"

// MinTaskInterval is the shortest interval an enabled task may use. Record
// backoff starts at seconds, so anything tighter only burns battery.
const MinTaskInterval = 10 * time.Second

// ScheduledTask is a periodic task and its last outcome, persisted so a task
// that came due while the process was down runs on the next start.
type ScheduledTask struct {
	ID       string
	Name     string
	Interval time.Duration
	Enabled  bool

	LastRun     time.Time
	NextRun     time.Time
	LastSuccess time.Time

	// LastError is empty after a successful run.
	LastError string
}

// IsDue reports whether an enabled task should run at now. A task that
// has never been scheduled is due immediately.
func (t *ScheduledTask) IsDue(now time.Time) bool {
	if !t.Enabled {
		return false
	}
	return t.NextRun.IsZero() || !t.NextRun.After(now)
}

// Complete folds a run result into the task and schedules the next run one
// interval after the run ended.
func (t *ScheduledTask) Complete(r TaskResult) {
	t.LastRun = r.StartedAt
	t.NextRun = r.EndedAt.Add(t.Interval)
	if r.Success {
		t.LastError = ""
		t.LastSuccess = r.EndedAt
		return
	}
	t.LastError = r.Error
}

// TaskResult is one execution of a task.
type TaskResult struct {
	TaskID    string
	StartedAt time.Time
	EndedAt   time.Time
	Success   bool
	Error     string

	// ItemsProcessed is the number of records the run confirmed.
	ItemsProcessed int
}

// Duration is how long the run took.
func (r TaskResult) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// SchedulerConfig is the scheduler section of config.toml.
type SchedulerConfig struct {
	// Enabled is the master switch.
	Enabled     bool
	TaskConfigs map[string]TaskConfig
}

// TaskConfig holds configuration for a single task.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
}

// GetTaskConfig returns a zero TaskConfig for unconfigured tasks.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// Validate rejects enabled tasks whose interval is below MinTaskInterval.
// A disabled scheduler is always valid.
func (c *SchedulerConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	for id, task := range c.TaskConfigs {
		if task.Enabled && task.Interval < MinTaskInterval {
			return fmt.Errorf("%w: scheduler task %s interval %s is below %s",
				ErrInvalidInput, id, task.Interval, MinTaskInterval)
		}
	}
	return nil
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled: true,
		TaskConfigs: map[string]TaskConfig{
			TaskIDRecordSync: {
				Enabled:  true,
				Interval: time.Minute,
			},
		},
	}
}
