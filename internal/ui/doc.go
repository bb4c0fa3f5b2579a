// Package ui provides terminal UI components for the iboot CLI.
//
// These components follow a "run once and exit" pattern: they render
// styled output with Lipgloss but do not take over the terminal. The
// interactive control panel lives in the panel subpackage.
//
// # Components
//
//   - Header: Command banner showing operation name and parameters
//   - Progress: Progress bar with step list
//   - Result: Success/failure boxes with details and troubleshooting tips
//   - Runner: Header, steps, and result for multi-step commands such as demo
//   - Confirm: Typed confirmation before switching power
//
// Example:
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:     "Power Demo",
//	    Command:   "iboot demo",
//	    Params:    []ui.Param{{Key: "Device", Value: client.Address()}},
//	    StepNames: []string{"Query status", "Switch off"},
//	})
//
//	err := runner.Run(func(onStep ui.StepCallback) ([]ui.Param, error) {
//	    onStep(1, ui.StepRunning, "")
//	    status, err := client.Query()
//	    ...
//	})
//
// # Logging Integration
//
// zap logging is controlled by IBOOT_LOG_LEVEL. When unset it is silent so
// the styled output is displayed cleanly.
package ui
