package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change settings stored in config.toml.

Settings are addressed by dotted keys, for example sync.max_attempts or
remote.base_url. A running daemon picks up changes without a restart.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:     "set KEY VALUE",
	Short:   "Change one setting",
	Example: "  herbtrace settings set remote.base_url https://registry.example.org/api\n  herbtrace settings set sync.backoff_base 5s",
	Args:    cobra.ExactArgs(2),
	RunE:    runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List every setting key",
	RunE:  runSettingsKeys,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd, settingsKeysCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Printf("Config file: %s\n", settingsService.ConfigPath())
	cmd.Printf("Device ID: %s\n", settings.DeviceID)
	cmd.Println()

	cmd.Println("[Remote]")
	if settings.Remote.IsConfigured() {
		cmd.Printf("  Base URL: %s\n", settings.Remote.BaseURL)
	} else {
		cmd.Println("  Base URL: (not set)")
	}
	cmd.Printf("  Rate: %.1f/s, burst %d\n", settings.Remote.RatePerSecond, settings.Remote.Burst)
	cmd.Println()

	cmd.Println("[Sync]")
	cmd.Printf("  Pool size: %d\n", settings.Sync.PoolSize)
	cmd.Printf("  Max attempts: %d\n", settings.Sync.MaxAttempts)
	cmd.Printf("  Backoff: %s doubling to %s\n", settings.Sync.BackoffBase, settings.Sync.BackoffMax)
	cmd.Printf("  Submit timeout: %s\n", settings.Sync.SubmitTimeout)
	cmd.Println()

	cmd.Println("[Connectivity]")
	cmd.Printf("  Debounce: %s\n", settings.Connectivity.Debounce)
	cmd.Printf("  Poll interval: %s\n", settings.Connectivity.PollInterval)
	cmd.Printf("  Probe address: %s\n", orNotSet(settings.Connectivity.ProbeAddress))
	cmd.Println()

	cmd.Println("[Geolocation]")
	cmd.Printf("  Timeout: %s (+%s grace)\n", settings.Geolocation.Timeout, settings.Geolocation.Grace)
	cmd.Printf("  Maximum age: %s\n", settings.Geolocation.MaximumAge)
	cmd.Printf("  Max attempts: %d\n", settings.Geolocation.MaxAttempts)
	cmd.Printf("  gpsd: %s\n", orNotSet(settings.Geolocation.GPSDAddress))
	cmd.Printf("  Static: %s\n", orNotSet(settings.Geolocation.Static))
	cmd.Println()

	cmd.Println("[Scheduler]")
	cmd.Printf("  Enabled: %s\n", yesNo(settings.Scheduler.Enabled))
	syncTask := settings.Scheduler.GetTaskConfig(domain.TaskIDRecordSync)
	cmd.Printf("  Record sync: %s, every %s\n", yesNo(syncTask.Enabled), syncTask.Interval)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else if !settings.Remote.IsConfigured() {
		cmd.Println("Run 'herbtrace settings set remote.base_url URL' to enable sync.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	cmd.Printf("%s = %s\n", key, value)

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	}
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	for _, k := range settingsService.Keys() {
		cmd.Println(k)
	}
	return nil
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
