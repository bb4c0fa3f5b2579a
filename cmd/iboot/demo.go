package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/iboot/internal/config"
	"github.com/muurk/iboot/internal/iboot"
	"github.com/muurk/iboot/internal/ui"
)

// Demo steps, in order
const (
	demoStepQuery = iota + 1
	demoStepOn
	demoStepWaitOn
	demoStepOff
	demoStepWaitOff
	demoStepCycle
)

var demoStepNames = []string{
	"Query status",
	"Switch on",
	"Wait",
	"Switch off",
	"Wait",
	"Power cycle",
}

var (
	demoDelay time.Duration
	demoYes   bool
)

func init() {
	demoCmd.Flags().DurationVar(&demoDelay, "delay", 0, "Pause between power changes (default from registry preferences, 2s)")
	demoCmd.Flags().BoolVarP(&demoYes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(demoCmd)
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a power sequence to exercise a device",
	Long: `Run a short power sequence against a device:

  1. Query the outlet state
  2. Switch on if it is off, then wait
  3. Switch off, then wait
  4. Power cycle

Any failure stops the sequence. This switches real power; connected
equipment will lose power.`,
	Example: `  iboot demo --host 10.0.0.5 --delay 5s
  iboot demo -d rack-1 --yes`,
	Args: cobra.NoArgs,
	RunE: runDemoCmd,
}

// powerSwitch is the part of the client the demo needs
type powerSwitch interface {
	Query() (iboot.Status, error)
	On() (iboot.Status, error)
	Off() (iboot.Status, error)
	Cycle() (iboot.Status, error)
}

func runDemoCmd(cmd *cobra.Command, args []string) error {
	t, err := resolveTarget(cmd)
	if err != nil {
		return err
	}

	delay := demoDelay
	if !cmd.Flags().Changed("delay") {
		delay = 2 * time.Second
		if reg, err := config.LoadRegistry(); err == nil && reg.Preferences.DemoDelay > 0 {
			delay = reg.Preferences.DemoDelay
		}
	}

	out := cmd.OutOrStdout()
	if !demoYes {
		warnings := []string{
			fmt.Sprintf("The outlet on %s will be switched on, off and power cycled", t.label()),
			"Equipment connected to the outlet will lose power",
		}
		if !ui.Confirm(os.Stdin, out, "POWER SEQUENCE", warnings) {
			return errReported
		}
	}

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   "Power Demo",
		Command: "iboot demo",
		Params: []ui.Param{
			{Key: "Device", Value: t.label()},
			{Key: "Address", Value: t.client.Address()},
			{Key: "Delay", Value: delay.String()},
		},
		StepNames: demoStepNames,
		TipsFor:   iboot.TroubleshootingTips,
		Output:    out,
	})

	err = runner.Run(func(onStep ui.StepCallback) ([]ui.Param, error) {
		final, err := runDemo(t.client, delay, time.Sleep, onStep)
		t.record(final, err)
		if err != nil {
			return nil, err
		}
		return []ui.Param{{Key: "Final status", Value: ui.RenderStatus(final)}}, nil
	})
	if err != nil {
		return errReported
	}
	return nil
}

// runDemo performs the demo sequence and returns the last reported status.
// When the outlet is already on the switch-on step and its wait are skipped.
func runDemo(sw powerSwitch, delay time.Duration, sleep func(time.Duration), onStep ui.StepCallback) (iboot.Status, error) {
	step := func(n int, call func() (iboot.Status, error)) (iboot.Status, error) {
		onStep(n, ui.StepRunning, "")
		status, err := call()
		if err != nil {
			onStep(n, ui.StepFailed, iboot.ShortErrorMessage(err))
			return status, err
		}
		onStep(n, ui.StepComplete, strings.ToUpper(string(status)))
		return status, nil
	}
	wait := func(n int) {
		onStep(n, ui.StepRunning, delay.String())
		sleep(delay)
		onStep(n, ui.StepComplete, delay.String())
	}

	status, err := step(demoStepQuery, sw.Query)
	if err != nil {
		return status, err
	}

	if status == iboot.StatusOn {
		onStep(demoStepOn, ui.StepSkipped, "already on")
		onStep(demoStepWaitOn, ui.StepSkipped, "")
	} else {
		if status, err = step(demoStepOn, sw.On); err != nil {
			return status, err
		}
		wait(demoStepWaitOn)
	}

	if status, err = step(demoStepOff, sw.Off); err != nil {
		return status, err
	}
	wait(demoStepWaitOff)

	return step(demoStepCycle, sw.Cycle)
}
