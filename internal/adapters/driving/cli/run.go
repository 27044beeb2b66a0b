package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
	"github.com/custodia-labs/herbtrace/internal/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the background sync daemon",
	Long: `Runs until interrupted:
  - the connectivity monitor probes the remote authority,
  - the sync coordinator drains the queue whenever the device comes online,
  - the scheduler fires retry waves for records waiting out their backoff,
  - the inbox directory queues JSON envelopes dropped into it,
  - config.toml is watched and changes are applied without a restart.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	if len(backgroundTasks) == 0 {
		return errors.New("no background tasks configured")
	}

	logger.SetTimestamps(true)
	defer logger.SetTimestamps(false)

	stop := startBackground(cmd.Context())
	defer stop()

	if statusService != nil {
		unsubscribe := statusService.Subscribe(func(s domain.SyncSnapshot) {
			logger.Info("%s (pending=%d failed=%d)", s.Summary(), s.PendingCount, s.FailedCount)
		})
		defer unsubscribe()
	}

	cmd.Println("herbtrace running. Press Ctrl+C to stop.")
	<-cmd.Context().Done()
	cmd.Println("Shutting down...")
	return nil
}
