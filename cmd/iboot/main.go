// Iboot controls Dataprobe iBoot remote power switches over the network.
//
// It queries the outlet state and switches power on, off, or through a
// power cycle using the device's TCP control protocol. Devices can be
// addressed directly with --host or by name from the local device registry.
//
// Usage:
//
//	iboot [command] [flags]
//
// See 'iboot --help' for available commands.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/iboot/internal/logging"
	"github.com/muurk/iboot/internal/version"
)

// errReported signals that a command already rendered its failure
var errReported = errors.New("failure already reported")

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "iboot",
	Short: "iBoot Remote Power Control",
	Long: `A command line client for Dataprobe iBoot remote power switches.

Query the outlet state and switch power on, off, or through a power cycle.
Devices are addressed with --host, the IBOOT_HOST environment variable, or
by name from the device registry (see 'iboot device').

The device password is read from --password, IBOOT_PASSWORD, or prompted
for interactively. Passwords are never stored.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Silent unless --log-level or IBOOT_LOG_LEVEL is set
		if opts.logLevel != "" {
			return logging.Initialize(opts.logLevel)
		}
		return logging.InitializeFromEnv()
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Full("iboot"))
	},
}
