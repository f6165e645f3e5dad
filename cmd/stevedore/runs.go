package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ALT-F4-LLC/stevedore/internal/journal"
	"github.com/ALT-F4-LLC/stevedore/internal/output"
	"github.com/ALT-F4-LLC/stevedore/internal/render"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded import runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getJournal(cmd)

		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := journal.ListRuns(conn, limit)
		if err != nil {
			return cmdErr(fmt.Errorf("listing runs: %w", err), output.ErrGeneral)
		}

		var message string
		if !w.JSONMode {
			message = render.RenderRuns(runs)
		}

		w.Success(struct {
			Runs  []*journal.Run `json:"runs"`
			Total int            `json:"total"`
		}{
			Runs:  runs,
			Total: len(runs),
		}, message)
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id|latest>",
	Short: "Show one run with its recorded rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getJournal(cmd)

		var run *journal.Run
		var err error
		if args[0] == "latest" {
			run, err = journal.LatestRun(conn)
		} else {
			id, perr := strconv.Atoi(args[0])
			if perr != nil {
				return cmdErr(fmt.Errorf("invalid run id %q", args[0]), output.ErrValidation)
			}
			run, err = journal.GetRun(conn, id)
		}
		if err != nil {
			if errors.Is(err, journal.ErrNotFound) {
				return cmdErr(fmt.Errorf("run %s not found", args[0]), output.ErrNotFound)
			}
			return cmdErr(fmt.Errorf("loading run: %w", err), output.ErrGeneral)
		}

		var message string
		if !w.JSONMode {
			message = render.RenderRun(run)
		}

		w.Success(run, message)
		return nil
	},
}

func init() {
	runsCmd.Flags().Int("limit", 20, "Maximum number of runs listed")
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
