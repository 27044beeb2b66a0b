package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Acquire the device position",
	Long: `Acquire one position fix from the configured location source (gpsd or a
static coordinate).

Failed attempts are counted. Once the configured number of attempts is
used up, or the location permission is denied, no further platform calls
are made. With --fallback a manual coordinate (or the last known fix when
the value is "last") is returned instead of an error.`,
	Example: `  herbtrace locate --timeout 20s
  herbtrace locate --fallback 12.9716,77.5946,50
  herbtrace locate --fallback last`,
	RunE: runLocate,
}

func init() {
	locateCmd.Flags().Duration("timeout", 0, "platform timeout (0 = configured geolocation.timeout)")
	locateCmd.Flags().String("fallback", "", `"lat,lon[,accuracy]" or "last" to use when acquisition fails`)
	locateCmd.Flags().Bool("json", false, "print the fix as JSON")
	rootCmd.AddCommand(locateCmd)
}

func runLocate(cmd *cobra.Command, _ []string) error {
	if geolocation == nil {
		return errors.New("geolocation not configured")
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	fallback, _ := cmd.Flags().GetString("fallback")
	asJSON, _ := cmd.Flags().GetBool("json")

	fix, err := geolocation.Acquire(cmd.Context(), domain.GeoOptions{Timeout: timeout})
	if err != nil {
		if fallback == "" {
			return explainGeoError(err)
		}
		cmd.PrintErrf("Location unavailable (%v), using fallback\n", err)

		fix, err = resolveFallback(fallback)
		if err != nil {
			return err
		}
	}

	if asJSON {
		return writeJSON(cmd.OutOrStdout(), fix)
	}
	cmd.Printf("%.6f,%.6f accuracy=%.0fm source=%s at %s\n",
		fix.Latitude, fix.Longitude, fix.Accuracy, fix.Source, formatTime(fix.CapturedAt))
	return nil
}

func resolveFallback(value string) (domain.GeoFix, error) {
	var manual *domain.GeoFix
	if value != "last" {
		parsed, err := domain.ParseCoordinate(value)
		if err != nil {
			return domain.GeoFix{}, err
		}
		manual = &parsed
	}
	fix, err := geolocation.Fallback(manual)
	if err != nil {
		return domain.GeoFix{}, fmt.Errorf("no fallback location: %w", err)
	}
	return fix, nil
}

// explainGeoError adds a hint for the terminal conditions.
func explainGeoError(err error) error {
	var gerr *domain.GeolocationError
	if !errors.As(err, &gerr) {
		return fmt.Errorf("failed to acquire location: %w", err)
	}
	switch {
	case errors.Is(err, domain.ErrGeoExhausted):
		return fmt.Errorf("failed to acquire location: %w (retry limit reached)", err)
	case gerr.Kind == domain.GeoErrPermissionDenied:
		return fmt.Errorf("failed to acquire location: %w (grant location access and retry)", err)
	case gerr.Kind == domain.GeoErrUnsupported:
		return fmt.Errorf("failed to acquire location: %w (set geolocation.gpsd_address or geolocation.static)", err)
	}
	return fmt.Errorf("failed to acquire location: %w", err)
}
