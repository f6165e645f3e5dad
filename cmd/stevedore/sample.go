package main

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/ALT-F4-LLC/stevedore/internal/manifest"
	"github.com/ALT-F4-LLC/stevedore/internal/output"
	"github.com/spf13/cobra"
)

var sampleCmd = &cobra.Command{
	Use:         "sample [path]",
	Short:       "Write a starter CSV manifest with every recognized column",
	Annotations: map[string]string{"skipJournal": "true"},
	Args:        cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)

		path := "stevedore-sample.csv"
		if len(args) == 1 {
			path = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")

		if !force {
			if _, err := os.Stat(path); err == nil {
				return cmdErr(
					fmt.Errorf("%s already exists, pass --force to overwrite", path),
					output.ErrGeneral,
				)
			}
		}

		f, err := os.Create(path)
		if err != nil {
			return cmdErr(fmt.Errorf("creating %s: %w", path, err), output.ErrGeneral)
		}
		defer f.Close()

		records := append([][]string{manifest.Columns}, sampleRows()...)
		if err := csv.NewWriter(f).WriteAll(records); err != nil {
			return cmdErr(fmt.Errorf("writing %s: %w", path, err), output.ErrGeneral)
		}

		rows := len(records) - 1
		w.Success(struct {
			Path string `json:"path"`
			Rows int    `json:"rows"`
		}{
			Path: path,
			Rows: rows,
		}, fmt.Sprintf("Wrote %d sample rows to %s", rows, path))

		w.Info("Edit the file, then dry-run it with: stevedore plan %s", path)

		return nil
	},
}

// sampleRows covers a parent with two children, project custom fields, and a
// standalone row in a second repository.
func sampleRows() [][]string {
	return [][]string{
		{"organization", "acme", "platform", "Milestone: payment rework", "Track the payment rework end to end.", "7", "8", "epic,payments", "PAY-1", ""},
		{"organization", "acme", "platform", "Extract the billing service", "Move billing out of the monolith.", "7", "3", "payments", "PAY-2", "PAY-1"},
		{"organization", "acme", "platform", "Switch checkout to the new API", "Point checkout at the billing service.", "7", "2", "payments", "PAY-3", "PAY-1"},
		{"user", "jdoe", "dotfiles", "Clean up the install script", "The install script still assumes bash 3.", "", "", "", "", ""},
	}
}

func init() {
	sampleCmd.Flags().Bool("force", false, "Overwrite the file if it exists")
	rootCmd.AddCommand(sampleCmd)
}
