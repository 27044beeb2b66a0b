package cli

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/herbtrace/internal/logger"
)

// Task is a long-running component started by run and status --watch.
// Run blocks until ctx is done.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// backgroundTasks holds the tasks injected by main.
var backgroundTasks []Task

// SetBackgroundTasks sets the tasks started by long-running commands.
func SetBackgroundTasks(tasks ...Task) {
	backgroundTasks = tasks
}

// startBackground runs every task in its own goroutine. The returned stop
// function cancels them and waits for all to return. A task that fails
// early is logged and does not stop the others.
func startBackground(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup

	for _, task := range backgroundTasks {
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			logger.Debug("Starting %s", t.Name)
			err := t.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("%s stopped: %v", t.Name, err)
				return
			}
			logger.Debug("%s stopped", t.Name)
		}(task)
	}

	return func() {
		cancel()
		wg.Wait()
	}
}
