// Package cli provides the cobra command tree for herbtrace.
// It is a driving adapter: commands call core services through driving ports
// that main injects with SetServices before Execute.
package cli

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/herbtrace/internal/core/ports/driving"
	"github.com/custodia-labs/herbtrace/internal/logger"
)

// Environment variables that override the default directories.
const (
	EnvDataDir   = "HERBTRACE_DATA_DIR"
	EnvConfigDir = "HERBTRACE_CONFIG_DIR"
	EnvInboxDir  = "HERBTRACE_INBOX_DIR"
)

// version is set at build time via SetVersion.
var version = "dev"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "herbtrace",
	Short: "Offline-first capture and sync for field records",
	Long: `herbtrace queues field records (herb collections, farmer registrations)
on the device and reconciles them with the remote authority whenever the
network allows. Records are never lost and never silently duplicated.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

// Services injected by main.
var (
	captureService  driving.CaptureService
	draftService    driving.DraftService
	statusService   driving.StatusService
	recordQueue     driving.RecordQueue
	recordArchive   driving.RecordArchive
	syncCoordinator driving.SyncCoordinator
	geolocation     driving.GeolocationAcquirer
	settingsService driving.SettingsService
	connectivity    driving.ConnectivityRefresher
)

// Services bundles the driving ports the commands call.
type Services struct {
	Capture     driving.CaptureService
	Drafts      driving.DraftService
	Status      driving.StatusService
	Queue       driving.RecordQueue
	Archive     driving.RecordArchive
	Sync        driving.SyncCoordinator
	Geolocation driving.GeolocationAcquirer
	Settings    driving.SettingsService

	// Connectivity is probed by one-shot commands before they read or act
	// on the connectivity state.
	Connectivity driving.ConnectivityRefresher
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetServices injects the services used by the commands.
func SetServices(s Services) {
	captureService = s.Capture
	draftService = s.Drafts
	statusService = s.Status
	recordQueue = s.Queue
	recordArchive = s.Archive
	syncCoordinator = s.Sync
	geolocation = s.Geolocation
	settingsService = s.Settings
	connectivity = s.Connectivity
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// refreshConnectivity probes once when a refresher is configured.
func refreshConnectivity(ctx context.Context) {
	if connectivity != nil {
		connectivity.Refresh(ctx)
	}
}

// LoadEnv reads a .env file from the working directory when one exists.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// DataDir returns the directory holding the record database.
func DataDir() string {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		return dir
	}
	return filepath.Join(xdg.DataHome, "herbtrace")
}

// ConfigDir returns the directory holding config.toml.
func ConfigDir() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir
	}
	return filepath.Join(xdg.ConfigHome, "herbtrace")
}

// InboxDir returns the directory watched for record envelopes.
func InboxDir() string {
	if dir := os.Getenv(EnvInboxDir); dir != "" {
		return dir
	}
	return filepath.Join(DataDir(), "inbox")
}

// VerboseRequested reports whether --verbose appears in args. main uses it
// to enable logging while services are constructed, before cobra parses flags.
func VerboseRequested(args []string) bool {
	for _, a := range args {
		if a == "--verbose" || a == "-v" {
			return true
		}
	}
	return false
}
