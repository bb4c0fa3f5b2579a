package ui

import (
	"fmt"
	"io"
	"os"
	"time"
)

// RunnerConfig holds configuration for a multi-step command
type RunnerConfig struct {
	Title           string               // Command title (e.g., "Power Demo")
	Command         string               // Full command (e.g., "iboot demo")
	Params          []Param              // Parameters to display in header
	StepNames       []string             // Names for each step
	Troubleshooting []string             // Tips shown when the operation fails
	TipsFor         func(error) []string // Error specific tips, shown first
	Output          io.Writer            // Output writer (default: os.Stdout)
}

// Runner orchestrates header, step list, and result box for a command
// that performs a fixed sequence of device operations.
type Runner struct {
	config   RunnerConfig
	header   *Header
	progress *Progress
	output   io.Writer
	width    int

	// live is set when output is a terminal; running steps are then
	// shown and overwritten in place
	live bool
}

// Operation is the function executed by a Runner. It reports progress
// through onStep and returns details for the success box.
type Operation func(onStep StepCallback) ([]Param, error)

// NewRunner creates a new runner
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	width := GetTerminalWidth()

	return &Runner{
		config:   config,
		header:   NewHeader(config.Title, config.Command, config.Params).SetWidth(width),
		progress: NewProgress(config.StepNames).SetWidth(width),
		output:   config.Output,
		width:    width,
		live:     config.Output == os.Stdout && IsTerminal(),
	}
}

// Run prints the header, executes op while printing step updates, then
// the progress bar and a success or failure box. The error from op is returned.
func (r *Runner) Run(op Operation) error {
	start := time.Now()

	_, _ = fmt.Fprintln(r.output, r.header.Render())
	_, _ = fmt.Fprintln(r.output)

	details, err := op(r.onStep)
	duration := time.Since(start)

	_, _ = fmt.Fprintln(r.output)
	_, _ = fmt.Fprintln(r.output, r.progress.RenderBar())
	_, _ = fmt.Fprintln(r.output)

	if err != nil {
		tips := r.config.Troubleshooting
		if r.config.TipsFor != nil {
			tips = append(r.config.TipsFor(err), tips...)
		}
		result := NewFailureResult(r.config.Title+" failed", err, tips).SetWidth(r.width)
		_, _ = fmt.Fprintln(r.output, result.Render())
		return err
	}

	details = append(details, Param{Key: "Duration", Value: duration.Round(time.Millisecond).String()})
	result := NewSuccessResult(r.config.Title+" complete", details).SetWidth(r.width)
	_, _ = fmt.Fprintln(r.output, result.Render())
	return nil
}

func (r *Runner) onStep(stepNumber int, status StepStatus, message string) {
	r.progress.UpdateStep(stepNumber, status, message)

	line := r.progress.RenderStep(stepNumber)
	if line == "" {
		return
	}
	if status == StepRunning {
		if r.live {
			// Overwritten when the step finishes
			_, _ = fmt.Fprint(r.output, line+"\r")
		}
		return
	}
	_, _ = fmt.Fprintln(r.output, line)
}
