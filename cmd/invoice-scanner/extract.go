package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-scanner/internal/bootstrap"
	"github.com/joseph-ayodele/invoice-scanner/internal/extract"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file.pdf>",
	Short: "Print the text the selected strategy extracts from one PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		tx, method, err := bootstrap.NewTextExtractor(cfg, nil)
		if err != nil {
			return err
		}

		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		res, err := tx.Extract(cmd.Context(), extract.Document{Name: filepath.Base(path), Data: data})
		if err != nil {
			return err
		}
		pterm.Info.Printfln("%s: %d pages, %d chars via %s (%s)", filepath.Base(path), res.Pages, len(res.Text), method, res.Method)
		for _, w := range res.Warnings {
			pterm.Warning.Println(w)
		}
		fmt.Println(res.Text)
		return nil
	},
}
