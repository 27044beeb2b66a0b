package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and manage the local record queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued records",
	Long: `List records held on the device, oldest first.

Synced records are purged after acknowledgement, so the queue only holds
pending, syncing and failed records.`,
	RunE: runQueueList,
}

var queueRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Reset failed records so the next sync retries them",
	Long: `Records that failed the configured number of attempts stay failed until
they are reset. This command resets every failed record to pending with
zero attempts.`,
	RunE: runQueueRetry,
}

var queueExportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Write the queue to a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueExport,
}

var queueImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Load records from a JSON export",
	Long:  `Load records from a file written by "queue export". Records already in the queue are skipped.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueImport,
}

func init() {
	queueListCmd.Flags().String("state", "", "only records in this state (pending, syncing, failed)")
	queueListCmd.Flags().Bool("failed", false, "only failed records, shorthand for --state failed")
	queueListCmd.MarkFlagsMutuallyExclusive("state", "failed")

	queueCmd.AddCommand(queueListCmd, queueRetryCmd, queueExportCmd, queueImportCmd)
	rootCmd.AddCommand(queueCmd)
}

func runQueueList(cmd *cobra.Command, _ []string) error {
	if recordQueue == nil {
		return errors.New("record queue not configured")
	}

	var states []domain.SyncState
	if failed, _ := cmd.Flags().GetBool("failed"); failed {
		states = append(states, domain.SyncStateFailed)
	}
	if s, _ := cmd.Flags().GetString("state"); s != "" {
		state := domain.SyncState(s)
		if !state.IsValid() {
			return fmt.Errorf("%w: unknown state %q", domain.ErrInvalidInput, s)
		}
		states = append(states, state)
	}

	records, err := recordQueue.Records(cmd.Context(), states...)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	if len(records) == 0 {
		cmd.Println("No records queued.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CLIENT ID\tKIND\tSTATE\tATTEMPTS\tCREATED\tLAST ERROR")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ClientID, r.Kind, r.SyncState, r.Attempts,
			r.CreatedAt.Local().Format("2006-01-02 15:04"), r.LastError)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	cmd.Printf("\n%d record(s)\n", len(records))
	return nil
}

func runQueueRetry(cmd *cobra.Command, _ []string) error {
	if syncCoordinator == nil {
		return errors.New("sync service not configured")
	}

	n, err := syncCoordinator.RetryFailed(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to reset records: %w", err)
	}

	if n == 0 {
		cmd.Println("No failed records to retry.")
		return nil
	}
	cmd.Printf("Reset %d record(s). They will be retried on the next sync.\n", n)
	return nil
}

func runQueueExport(cmd *cobra.Command, args []string) error {
	if recordArchive == nil {
		return errors.New("record archive not configured")
	}

	f, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("creating export: %w", err)
	}

	if err := recordArchive.Export(cmd.Context(), f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to export: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing export: %w", err)
	}

	cmd.Printf("Exported queue to %s\n", args[0])
	return nil
}

func runQueueImport(cmd *cobra.Command, args []string) error {
	if recordArchive == nil {
		return errors.New("record archive not configured")
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening import: %w", err)
	}
	defer f.Close()

	n, err := recordArchive.Import(cmd.Context(), f)
	if err != nil {
		return fmt.Errorf("failed to import: %w", err)
	}

	cmd.Printf("Imported %d record(s) from %s\n", n, args[0])
	return nil
}
