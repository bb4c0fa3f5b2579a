package main

import (
	"github.com/spf13/cobra"

	"github.com/muurk/iboot/internal/iboot"
	"github.com/muurk/iboot/internal/panel"
)

func init() {
	rootCmd.AddCommand(panelCmd)
}

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Open the interactive control panel",
	Long: `Open a full screen control panel for one device.

Keys: s query, n on, f off, c cycle, ? help, q quit.
Power off and cycle ask for confirmation.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := resolveTarget(cmd)
		if err != nil {
			return err
		}

		m := panel.New(t.label(), t.client)
		m.Recorder = func(status iboot.Status) {
			t.record(status, nil)
		}
		return panel.Run(m)
	},
}
