// Package commands implements the CLI of the gammarpc demo client.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global connection flags.
	serverHost string
	serverPort int
)

var rootCmd = &cobra.Command{
	Use:   "gammactl",
	Short: "gammactl - gammarpc client",
	Long: `gammactl connects to a gammarpc server, resolves handlers by name,
and invokes them with a small tagged payload.

Use "gammactl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverHost, "host", "i", "localhost", "server host to connect to")
	rootCmd.PersistentFlags().IntVarP(&serverPort, "port", "p", 3000, "server port to connect to")

	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(versionCmd)
}
