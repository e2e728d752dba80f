package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// Exit codes for CI gating.
const (
	ExitSuccess      = 0
	ExitRejected     = 1
	ExitUsageError   = 2
	ExitRuntimeError = 4
)

var rootCmd = &cobra.Command{
	Use:          "sqlgate",
	Short:        "SQL review gate for CI",
	Long:         "sqlgate extracts SQL from changed files, reviews each snippet through a lint gateway or a generative reviewer, and fails the build when the policy rejects it.",
	SilenceUsage: true,
}

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}

	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print sqlgate version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "sqlgate version %s\n", version)
	},
}
