package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/iboot/internal/config"
)

var (
	devicePort        int
	deviceTimeout     time.Duration
	deviceDescription string
)

func init() {
	deviceAddCmd.Flags().IntVar(&devicePort, "device-port", 0, "TCP port (default 80)")
	deviceAddCmd.Flags().DurationVar(&deviceTimeout, "device-timeout", 0, "Exchange timeout for this device (default from preferences)")
	deviceAddCmd.Flags().StringVar(&deviceDescription, "description", "", "Free text description")

	deviceCmd.AddCommand(deviceAddCmd)
	deviceCmd.AddCommand(deviceListCmd)
	deviceCmd.AddCommand(deviceRemoveCmd)
	rootCmd.AddCommand(deviceCmd)
}

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Manage the device registry",
	Long: `Manage named iBoot devices stored in the configuration file.

Registered devices can be addressed with --device/-d instead of --host.
Passwords are never stored in the registry.`,
}

var deviceAddCmd = &cobra.Command{
	Use:     "add <name> <host>",
	Short:   "Register a device",
	Example: `  iboot device add rack-1 10.0.0.5 --description "Lab router"`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.LoadRegistry()
		if err != nil {
			return fmt.Errorf("failed to load device registry: %w", err)
		}

		name := strings.TrimSpace(args[0])
		replaced := reg.GetDevice(name) != nil
		if err := reg.AddDevice(name, &config.Device{
			Host:        args[1],
			Port:        devicePort,
			Timeout:     deviceTimeout,
			Description: deviceDescription,
		}); err != nil {
			return err
		}
		if err := reg.Save(); err != nil {
			return err
		}

		verb := "Added"
		if replaced {
			verb = "Updated"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s device %q (%s)\n", verb, name, args[1])
		return nil
	},
}

var deviceListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List registered devices",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(); err != nil {
			return err
		}
		reg, err := config.LoadRegistry()
		if err != nil {
			return fmt.Errorf("failed to load device registry: %w", err)
		}

		out := cmd.OutOrStdout()
		if opts.format == formatJSON {
			return writeJSON(out, reg.Devices)
		}

		names := reg.Names()
		if len(names) == 0 {
			fmt.Fprintln(out, "No devices registered. Use 'iboot device add' or 'iboot scan --save'.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tADDRESS\tLAST STATUS\tLAST SEEN\tDESCRIPTION")
		for _, name := range names {
			d := reg.GetDevice(name)
			port := d.Port
			if port == 0 {
				port = 80
			}
			status, seen := "-", "-"
			if d.LastStatus != "" {
				status = d.LastStatus
			}
			if !d.LastSeen.IsZero() {
				seen = d.LastSeen.Local().Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%s\t%s:%d\t%s\t%s\t%s\n", name, d.Host, port, status, seen, d.Description)
		}
		return w.Flush()
	},
}

var deviceRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a registered device",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.LoadRegistry()
		if err != nil {
			return fmt.Errorf("failed to load device registry: %w", err)
		}
		if !reg.RemoveDevice(args[0]) {
			return fmt.Errorf("device %q not found (see 'iboot device list')", args[0])
		}
		if err := reg.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed device %q\n", args[0])
		return nil
	},
}
