package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-scanner/internal/bootstrap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process every PDF in the input folder once",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		sink := newTerminalSink()
		defer sink.Close()

		app, err := bootstrap.Build(cmd.Context(), cfg, sink, nil)
		if err != nil {
			return err
		}
		defer app.Close()

		res, runErr := app.Processor.Run(cmd.Context())
		sink.Close()

		if err := renderResults(res); err != nil {
			pterm.Warning.Printfln("could not render results: %v", err)
		}
		if res.LedgerErr != nil {
			pterm.Error.Printfln("log file not updated: %v", res.LedgerErr)
		}
		return runErr
	},
}
