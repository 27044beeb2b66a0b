package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("herbtrace version %s\n", version)
		if verbose {
			cmd.Printf("  go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			cmd.Printf("  config: %s\n", ConfigDir())
			cmd.Printf("  data: %s\n", DataDir())
			cmd.Printf("  inbox: %s\n", InboxDir())
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
