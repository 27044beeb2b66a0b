package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
	"github.com/custodia-labs/herbtrace/internal/core/ports/driven"
	"github.com/custodia-labs/herbtrace/internal/core/ports/driving"
	"github.com/custodia-labs/herbtrace/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// historyRetention is the number of results kept per task.
const historyRetention = 100

// Scheduler manages background task execution.
// It is a pure core service with no external control API.
type Scheduler struct {
	config domain.SchedulerConfig
	store  driven.SchedulerStore
	syncer driving.SyncCoordinator
	clock  driven.Clock
	tick   time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	syncer driving.SyncCoordinator,
	clock driven.Clock,
) *Scheduler {
	return &Scheduler{
		config: config,
		store:  store,
		syncer: syncer,
		clock:  clockOrSystem(clock),
		tick:   time.Minute,
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if !s.config.Enabled {
		logger.Debug("Scheduler disabled")
	} else if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("Scheduler: failed to initialise tasks: %v", err)
	}

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// initialiseTasks ensures all configured tasks exist in the store and
// removes stored tasks this build no longer runs.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	taskCfg := s.config.GetTaskConfig(domain.TaskIDRecordSync)
	if err := s.ensureTask(ctx, domain.TaskIDRecordSync, "Record Sync", taskCfg); err != nil {
		return err
	}

	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return err
	}
	for _, task := range tasks {
		if task.ID == domain.TaskIDRecordSync {
			continue
		}
		logger.Debug("Scheduler: removing unknown task %s", task.ID)
		if err := s.store.DeleteTask(ctx, task.ID); err != nil {
			return err
		}
	}
	return nil
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
			NextRun:  now.Add(cfg.Interval),
		}
	} else {
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			task.NextRun = now.Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	if s.config.Enabled {
		s.checkAndRunDueTasks(ctx)
	}

	for {
		timer := s.clock.NewTimer(s.tick)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-s.stopCh:
			timer.Stop()
			return nil
		case <-timer.C():
			if s.config.Enabled {
				s.checkAndRunDueTasks(ctx)
			}
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("Scheduler: failed to list tasks: %v", err)
		return
	}

	now := s.clock.Now()
	for i := range tasks {
		if tasks[i].IsDue(now) {
			s.runTask(ctx, &tasks[i])
		}
	}
}

// runTask executes a single task.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		result := &domain.TaskResult{
			TaskID:    task.ID,
			StartedAt: s.clock.Now(),
		}

		var err error
		switch task.ID {
		case domain.TaskIDRecordSync:
			result.ItemsProcessed, err = s.runRecordSync(ctx)
		default:
			logger.Warn("Scheduler: unknown task ID: %s", task.ID)
			return
		}

		result.EndedAt = s.clock.Now()
		if err != nil {
			result.Error = err.Error()
		} else {
			result.Success = true
		}
		task.Complete(*result)
		logger.Debug("Scheduler: %s finished in %s (%d synced)", task.ID, result.Duration(), result.ItemsProcessed)

		if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
			logger.Warn("Scheduler: failed to save task %s: %v", task.ID, saveErr)
		}
		if recordErr := s.store.RecordResult(ctx, result); recordErr != nil {
			logger.Warn("Scheduler: failed to record result for %s: %v", task.ID, recordErr)
		}
		if pruneErr := s.store.PruneHistory(ctx, historyRetention); pruneErr != nil {
			logger.Warn("Scheduler: failed to prune history: %v", pruneErr)
		}
	}()
}

// runRecordSync triggers a sync cycle and reports how many records it confirmed.
func (s *Scheduler) runRecordSync(ctx context.Context) (int, error) {
	if s.syncer == nil {
		return 0, nil
	}

	before := s.syncer.Status().LastCycle.EndedAt
	if err := s.syncer.TriggerSync(ctx); err != nil {
		return 0, err
	}

	after := s.syncer.Status().LastCycle
	if after.EndedAt.Equal(before) {
		// Offline: no cycle ran.
		return 0, nil
	}
	return after.Synced, nil
}
