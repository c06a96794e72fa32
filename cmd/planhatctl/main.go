// Command planhatctl replays saved notifications against Planhat and checks
// connector settings files.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:          "planhatctl",
		Short:        "Operate the Planhat connector from the terminal",
		Long:         "planhatctl runs the outbound sync on a saved notification and validates connector settings files.",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newReplayCmd(&logLevel),
		newSettingsCmd(),
	)
	return rootCmd
}
