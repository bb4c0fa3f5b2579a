// Iboot-sim emulates an iBoot remote power switch on a TCP port.
//
// It accepts the same request frames as the real device, keeps an outlet
// state, and answers with the device's status words. Use it to try the
// iboot command without hardware.
//
// Usage:
//
//	iboot-sim serve [flags]
//
// See 'iboot-sim serve --help' for available options.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/iboot/internal/iboot"
	"github.com/muurk/iboot/internal/logging"
	"github.com/muurk/iboot/internal/simulator"
	"github.com/muurk/iboot/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "iboot-sim",
	Short: "iBoot device simulator",
	Long: `A standalone simulator for Dataprobe iBoot remote power switches.

The simulator listens for iBoot control frames, checks the password, and
answers ON, OFF, CYCLE or BUSY like the real device. Requests with a wrong
password or a malformed frame are dropped without a reply.`,
	Version: version.Version,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Serve command flags
var (
	host         string
	port         int
	password     string
	initialState string
	cycleDelay   time.Duration
	replyDelay   time.Duration
	logLevel     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the simulator",
	Example: `  # Simulate a device on port 9100 with password "secret"
  iboot-sim serve --port 9100 --password secret

  # Start powered on, with a slow 1s reply and a 3s cycle
  iboot-sim serve --password secret --initial on --reply-delay 1s --cycle-delay 3s

  # Then, from another terminal
  iboot query --host 127.0.0.1 --port 9100 --password secret`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&host, "host", "", "Listen address (empty = all interfaces)")
	serveCmd.Flags().IntVar(&port, "port", 9100, "Listen port")
	serveCmd.Flags().StringVar(&password, "password", os.Getenv("IBOOT_PASSWORD"), "Device password (env IBOOT_PASSWORD)")
	serveCmd.Flags().StringVar(&initialState, "initial", "off", "Initial outlet state (on, off)")
	serveCmd.Flags().DurationVar(&cycleDelay, "cycle-delay", simulator.DefaultCycleDelay, "How long a power cycle lasts")
	serveCmd.Flags().DurationVar(&replyDelay, "reply-delay", 0, "Processing delay before each reply")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("--password (or IBOOT_PASSWORD) is required")
	}

	if err := logging.Initialize(logLevel); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	sim, err := simulator.New(&simulator.Config{
		Host:         host,
		Port:         port,
		Password:     password,
		InitialState: iboot.Status(strings.ToLower(initialState)),
		CycleDelay:   cycleDelay,
		ReplyDelay:   replyDelay,
	})
	if err != nil {
		return fmt.Errorf("failed to create simulator: %w", err)
	}

	if err := sim.Listen(); err != nil {
		return err
	}

	fmt.Printf("iBoot simulator listening on %s (initial state: %s)\n", sim.Addr(), sim.State())
	fmt.Println("Press Ctrl+C to stop")

	return sim.Wait()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Full("iboot-sim"))
	},
}
