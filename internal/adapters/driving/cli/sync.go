package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronise queued records with the remote authority",
	Long: `Runs one sync cycle: queued records are submitted in waves until every
record is acknowledged or waiting for a retry. If a cycle is already running
this command joins it. When the device is offline nothing is submitted.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().Duration("timeout", 0, "give up waiting after this long (0 = no limit)")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if syncCoordinator == nil {
		return errors.New("sync service not configured")
	}

	ctx := cmd.Context()
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	refreshConnectivity(ctx)
	cmd.Println("Synchronising queued records...")

	if err := syncCoordinator.TriggerSync(ctx); err != nil {
		if errors.Is(err, domain.ErrRemoteNotConfigured) {
			return fmt.Errorf("sync failed: %w (set remote.base_url)", err)
		}
		return fmt.Errorf("sync failed: %w", err)
	}

	activity := syncCoordinator.Status()
	if activity.LastCycle.Waves == 0 {
		cmd.Println("Nothing submitted (offline or queue empty).")
		return nil
	}
	printCycle(cmd, activity.LastCycle)
	return nil
}

func printCycle(cmd *cobra.Command, c domain.CycleResult) {
	cmd.Printf("Cycle finished in %s: %d wave(s), %d submitted, %d synced, %d failed\n",
		c.EndedAt.Sub(c.StartedAt).Round(time.Millisecond), c.Waves, c.Submitted, c.Synced, c.Failed)
}
