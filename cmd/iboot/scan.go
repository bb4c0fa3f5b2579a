package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/iboot/internal/config"
	"github.com/muurk/iboot/internal/discovery"
	"github.com/muurk/iboot/internal/ui"
)

var (
	scanTimeout time.Duration
	scanSave    bool
	scanName    string
)

func init() {
	scanCmd.Flags().DurationVar(&scanTimeout, "scan-timeout", 0, "How long to listen for announcements (default 5s)")
	scanCmd.Flags().BoolVar(&scanSave, "save", false, "Add discovered devices to the registry")
	scanCmd.Flags().StringVar(&scanName, "name", "", "Wait for one device by mDNS name and stop as soon as it answers")
	rootCmd.AddCommand(scanCmd)
}

// scanCmd discovers devices on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for iBoot devices on the network",
	Long: `Scan for iBoot devices using mDNS/DNS-SD discovery.

iBoot units announce their web interface over mDNS with hostnames starting
with "iboot". Discovered devices can be added to the registry with --save.`,
	Example: `  # Scan for 5 seconds (default)
  iboot scan

  # Longer scan, register every device found
  iboot scan --scan-timeout 15s --save

  # Wait for a single unit and register it
  iboot scan --name iBoot-0A1B2C --save`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

// scanDevices lists the devices announcing themselves over mDNS
var scanDevices = discovery.ScanForDevices

func runScan(cmd *cobra.Command, args []string) error {
	if err := checkFormat(); err != nil {
		return err
	}

	reg, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load device registry: %w", err)
	}

	timeout := scanTimeout
	if timeout <= 0 {
		timeout = reg.Preferences.DiscoverTimeout
	}

	out := cmd.OutOrStdout()
	var devices []*discovery.Device

	if scanName != "" {
		if opts.format == formatText {
			fmt.Fprintf(out, "Waiting for %s (timeout: %s)...\n\n", scanName, timeout)
		}
		device, err := findDevice(scanName, timeout)
		if err != nil {
			if opts.format == formatJSON {
				if err := writeJSON(out, []*discovery.Device{}); err != nil {
					return err
				}
				return errReported
			}
			result := ui.NewWarningResult("Device not found", []ui.Param{
				{Key: "Name", Value: scanName},
				{Key: "Timeout", Value: timeout.String()},
				{Key: "Hint", Value: "Run 'iboot scan' to list the names on the network"},
			})
			fmt.Fprintln(out, result.Render())
			return errReported
		}
		devices = append(devices, device)
	} else {
		if opts.format == formatText {
			fmt.Fprintf(out, "Scanning for iBoot devices (timeout: %s)...\n\n", timeout)
		}
		found, err := scanDevices(timeout)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		devices = found
	}

	if scanSave {
		for _, device := range devices {
			if reg.GetDevice(device.Name) != nil {
				continue
			}
			if err := reg.AddDevice(device.Name, &config.Device{
				Host:        device.IP,
				Port:        device.Port,
				Description: "Discovered as " + device.Hostname,
			}); err != nil {
				return err
			}
		}
		if len(devices) > 0 {
			if err := reg.Save(); err != nil {
				return err
			}
		}
	}

	if opts.format == formatJSON {
		return writeJSON(out, devices)
	}

	if len(devices) == 0 {
		result := ui.NewWarningResult("No iBoot devices found", []ui.Param{
			{Key: "Timeout", Value: timeout.String()},
			{Key: "Hint", Value: "Try a longer --scan-timeout"},
			{Key: "Manual", Value: "iboot device add <name> <host>"},
		})
		fmt.Fprintln(out, result.Render())
		return nil
	}

	fmt.Fprintf(out, "Found %d device(s):\n\n", len(devices))
	for i, device := range devices {
		fmt.Fprintf(out, "%d. %s\n", i+1, device.Name)
		fmt.Fprintf(out, "   Hostname: %s\n", device.Hostname)
		fmt.Fprintf(out, "   Address:  %s\n", device.Address())
		if device.Serial != "" {
			fmt.Fprintf(out, "   Serial:   %s\n", device.Serial)
		}
		fmt.Fprintln(out)
	}

	if scanSave {
		fmt.Fprintln(out, "Devices saved. Use 'iboot query -d <name>' to query one.")
	} else {
		fmt.Fprintln(out, "Use 'iboot scan --save' to register these devices")
	}
	return nil
}
