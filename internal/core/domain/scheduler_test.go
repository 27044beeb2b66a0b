package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSchedulerConfig(t *testing.T) {
	config := DefaultSchedulerConfig()

	assert.True(t, config.Enabled)
	assert.Len(t, config.TaskConfigs, 1)
	assert.Equal(t, TaskConfig{Enabled: true, Interval: time.Minute}, config.GetTaskConfig(TaskIDRecordSync))
	assert.NoError(t, config.Validate())
}

func TestSchedulerConfig_GetTaskConfig_Unknown(t *testing.T) {
	config := DefaultSchedulerConfig()
	assert.Equal(t, TaskConfig{}, config.GetTaskConfig("unknown-task"))

	empty := SchedulerConfig{Enabled: true}
	assert.Equal(t, TaskConfig{}, empty.GetTaskConfig(TaskIDRecordSync))
}

func TestSchedulerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  SchedulerConfig
		wantErr bool
	}{
		{
			name:   "disabled scheduler ignores intervals",
			config: SchedulerConfig{TaskConfigs: map[string]TaskConfig{TaskIDRecordSync: {Enabled: true, Interval: time.Second}}},
		},
		{
			name:   "disabled task ignores interval",
			config: SchedulerConfig{Enabled: true, TaskConfigs: map[string]TaskConfig{TaskIDRecordSync: {Interval: time.Second}}},
		},
		{
			name:   "minimum interval",
			config: SchedulerConfig{Enabled: true, TaskConfigs: map[string]TaskConfig{TaskIDRecordSync: {Enabled: true, Interval: MinTaskInterval}}},
		},
		{
			name:    "too short",
			config:  SchedulerConfig{Enabled: true, TaskConfigs: map[string]TaskConfig{TaskIDRecordSync: {Enabled: true, Interval: time.Second}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestScheduledTask_IsDue(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		task ScheduledTask
		want bool
	}{
		{"never scheduled", ScheduledTask{Enabled: true}, true},
		{"past", ScheduledTask{Enabled: true, NextRun: now.Add(-time.Second)}, true},
		{"exactly now", ScheduledTask{Enabled: true, NextRun: now}, true},
		{"future", ScheduledTask{Enabled: true, NextRun: now.Add(time.Second)}, false},
		{"disabled", ScheduledTask{NextRun: now.Add(-time.Hour)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.task.IsDue(now))
		})
	}
}

func TestScheduledTask_Complete(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Second)
	task := ScheduledTask{ID: TaskIDRecordSync, Interval: time.Minute, Enabled: true}

	task.Complete(TaskResult{StartedAt: start, EndedAt: end, Error: "remote unavailable"})
	assert.Equal(t, start, task.LastRun)
	assert.Equal(t, end.Add(time.Minute), task.NextRun)
	assert.Equal(t, "remote unavailable", task.LastError)
	assert.True(t, task.LastSuccess.IsZero())

	task.Complete(TaskResult{StartedAt: end, EndedAt: end.Add(time.Second), Success: true})
	assert.Empty(t, task.LastError)
	assert.Equal(t, end.Add(time.Second), task.LastSuccess)
}

func TestTaskResult_Duration(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	r := TaskResult{StartedAt: start, EndedAt: start.Add(1500 * time.Millisecond)}
	assert.Equal(t, 1500*time.Millisecond, r.Duration())
}
