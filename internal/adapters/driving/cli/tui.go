package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/herbtrace/internal/adapters/driving/tui"
)

// runDashboard launches the interactive status dashboard. Background tasks
// are started first so connectivity and sync progress update live.
func runDashboard(cmd *cobra.Command) (err error) {
	// Recover panics so the terminal is restored with a stack trace.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	stop := startBackground(cmd.Context())
	defer stop()

	app, err := tui.NewApp(&tui.Ports{
		Status: statusService,
		Queue:  recordQueue,
		Sync:   syncCoordinator,
	})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
