package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connectivity and pending work",
	Long: `Show whether the device is online and how many records are waiting to be
synchronised.

With --watch the status is followed live. On a terminal this opens the
interactive dashboard; otherwise (or with --json) one line is printed per
change until interrupted.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolP("watch", "w", false, "follow status changes")
	statusCmd.Flags().Bool("json", false, "print snapshots as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if statusService == nil {
		return errors.New("status service not configured")
	}

	watch, _ := cmd.Flags().GetBool("watch")
	asJSON, _ := cmd.Flags().GetBool("json")

	if !watch {
		refreshConnectivity(cmd.Context())
		snap, err := statusService.GetSnapshot(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), snap)
		}
		printSnapshot(cmd, snap)
		return nil
	}

	if !asJSON && isTerminal(cmd.OutOrStdout()) {
		return runDashboard(cmd)
	}
	return watchStatus(cmd, asJSON)
}

// watchStatus prints one line per published snapshot until the command's
// context is cancelled.
func watchStatus(cmd *cobra.Command, asJSON bool) error {
	stop := startBackground(cmd.Context())
	defer stop()

	updates := make(chan domain.SyncSnapshot, 16)
	unsubscribe := statusService.Subscribe(func(s domain.SyncSnapshot) {
		select {
		case updates <- s:
		default:
		}
	})
	defer unsubscribe()

	initial, err := statusService.GetSnapshot(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	emit := func(s domain.SyncSnapshot) error {
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), s)
		}
		cmd.Println(snapshotLine(s))
		return nil
	}

	if err := emit(initial); err != nil {
		return err
	}
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case s := <-updates:
			if err := emit(s); err != nil {
				return err
			}
		}
	}
}

func printSnapshot(cmd *cobra.Command, s domain.SyncSnapshot) {
	cmd.Printf("Status:       %s\n", s.Summary())
	cmd.Printf("Connectivity: %s\n", s.Connectivity)
	cmd.Printf("Pending:      %d\n", s.PendingCount)
	if s.FailedCount > 0 {
		cmd.Printf("Failed:       %d (%d exhausted)\n", s.FailedCount, s.ExhaustedCount)
	}
	cmd.Printf("Last sync:    %s\n", formatTime(s.LastSyncAt))
	if s.ExhaustedCount > 0 {
		cmd.Println()
		cmd.Println("Run 'herbtrace queue retry' to retry exhausted records.")
	}
}

func snapshotLine(s domain.SyncSnapshot) string {
	return fmt.Sprintf("%s  %-7s pending=%d failed=%d exhausted=%d  %s",
		time.Now().Format("15:04:05"), s.Connectivity, s.PendingCount, s.FailedCount, s.ExhaustedCount, s.Summary())
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
