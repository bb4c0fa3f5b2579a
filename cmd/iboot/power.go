package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/iboot/internal/iboot"
	"github.com/muurk/iboot/internal/ui"
)

func init() {
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(onCmd)
	rootCmd.AddCommand(offCmd)
	rootCmd.AddCommand(cycleCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(actionsCmd)
}

var queryCmd = &cobra.Command{
	Use:     "query",
	Aliases: []string{"status"},
	Short:   "Show the outlet state",
	Example: `  # Query a device by address
  iboot query --host 10.0.0.5 --password secret

  # Query a registered device, JSON output
  iboot query -d rack-1 --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, string(iboot.ActionQuery))
	},
}

var onCmd = &cobra.Command{
	Use:   "on",
	Short: "Switch the outlet on",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, string(iboot.ActionOn))
	},
}

var offCmd = &cobra.Command{
	Use:   "off",
	Short: "Switch the outlet off",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, string(iboot.ActionOff))
	},
}

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Power cycle the outlet",
	Long: `Power cycle the outlet: the device switches power off, waits for its
configured cycle time, and switches it back on. The device reports "cycle"
while the cycle is in progress.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, string(iboot.ActionCycle))
	},
}

var execCmd = &cobra.Command{
	Use:   "exec <action>",
	Short: "Send an action by name",
	Long: `Send an action by name. Valid actions are listed by 'iboot actions'.
Names are matched exactly.`,
	Example: `  iboot exec cycle --host 10.0.0.5`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, args[0])
	},
}

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List supported actions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if opts.format == formatJSON {
			return writeJSON(out, iboot.Actions())
		}
		for _, action := range iboot.Actions() {
			fmt.Fprintln(out, action)
		}
		return nil
	},
}

// outcome is the JSON form of one exchange
type outcome struct {
	Device    string `json:"device,omitempty"`
	Address   string `json:"address"`
	Action    string `json:"action"`
	Status    string `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

func runAction(cmd *cobra.Command, action string) error {
	t, err := resolveTarget(cmd)
	if err != nil {
		return err
	}

	start := time.Now()
	status, err := t.client.Execute(action)
	elapsed := time.Since(start)
	t.record(status, err)

	return printOutcome(cmd.OutOrStdout(), t, action, status, err, elapsed)
}

// printOutcome renders one exchange. A failed exchange returns errReported
// so the process exits non-zero without printing the error twice.
func printOutcome(out io.Writer, t *target, action string, status iboot.Status, err error, elapsed time.Duration) error {
	if opts.format == formatJSON {
		o := outcome{
			Device:    t.name,
			Address:   t.client.Address(),
			Action:    action,
			Status:    string(status),
			ElapsedMS: elapsed.Milliseconds(),
		}
		if err != nil {
			o.Error = err.Error()
			o.ErrorType = errorType(err)
		}
		if encErr := writeJSON(out, o); encErr != nil {
			return encErr
		}
		if err != nil {
			return errReported
		}
		return nil
	}

	if err != nil {
		title := fmt.Sprintf("%q on %s", action, t.label())
		fmt.Fprintln(out, ui.NewFailureResult(title, err, iboot.TroubleshootingTips(err)).Render())
		return errReported
	}

	result := ui.NewSuccessResult(fmt.Sprintf("Outlet is %s", strings.ToUpper(string(status))), []ui.Param{
		{Key: "Device", Value: t.label()},
		{Key: "Address", Value: t.client.Address()},
		{Key: "Action", Value: action},
		{Key: "Status", Value: ui.RenderStatus(status)},
		{Key: "Duration", Value: elapsed.Round(time.Millisecond).String()},
	})
	fmt.Fprintln(out, result.Render())
	return nil
}

// errorType names the error category for JSON output
func errorType(err error) string {
	var ierr *iboot.Error
	if errors.As(err, &ierr) {
		return ierr.Type.String()
	}
	return "Transport"
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}
