package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/ALT-F4-LLC/stevedore/internal/config"
	"github.com/ALT-F4-LLC/stevedore/internal/github"
	"github.com/ALT-F4-LLC/stevedore/internal/importer"
	"github.com/ALT-F4-LLC/stevedore/internal/journal"
	"github.com/ALT-F4-LLC/stevedore/internal/output"
	"github.com/ALT-F4-LLC/stevedore/internal/render"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Create GitHub issues from a CSV manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		cfg := getCfg(cmd)
		conn := getJournal(cmd)

		yes, _ := cmd.Flags().GetBool("yes")
		strict, _ := cmd.Flags().GetBool("strict")
		board, _ := cmd.Flags().GetBool("board")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		plan, err := resolvePlan(args[0], selectionFromFlags(cmd))
		if err != nil {
			return err
		}

		if len(plan.Nodes) == 0 {
			w.Success(planData(plan), render.EmptyState(
				"No rows to import.",
				"Check the input file or loosen --repo/--id/--label filters.",
				w.QuietMode,
			))
			return nil
		}

		if dryRun {
			var message string
			if !w.JSONMode {
				message = render.RenderPlan(plan, false) + "\n\n" + render.PlanSummary(plan)
			}
			w.Success(planData(plan), message)
			return nil
		}

		settings, err := cfg.LoadSettings()
		if err != nil {
			return cmdErr(fmt.Errorf("loading settings: %w", err), output.ErrGeneral)
		}
		settings = settings.WithEnvOverrides()

		token := config.Token()
		if token == "" {
			return cmdErr(
				fmt.Errorf("no GitHub token found: set GITHUB_TOKEN or GH_TOKEN"),
				output.ErrAuth,
			)
		}

		if !w.JSONMode && !yes {
			w.Progress(render.RenderPlan(plan, false))

			var confirmed bool
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewConfirm().
						Title(fmt.Sprintf("Import %s?", render.PlanSummary(plan))).
						Affirmative("Import").
						Negative("Cancel").
						Value(&confirmed),
				),
			)
			if err := form.Run(); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					w.Info("Cancelled.")
					return nil
				}
				return cmdErr(fmt.Errorf("interactive form failed: %w", err), output.ErrGeneral)
			}
			if !confirmed {
				w.Info("Cancelled.")
				return nil
			}
		}

		client, err := github.New(github.Config{
			Token:      token,
			APIBaseURL: settings.APIURL,
			GraphQLURL: settings.GraphQLURL,
			MaxRetries: settings.MaxRetries,
		})
		if err != nil {
			return cmdErr(fmt.Errorf("creating client: %w", err), output.ErrGeneral)
		}

		started := time.Now()
		rep := importer.Run(cmd.Context(), plan, client, importer.Options{
			ExternalIDField: settings.ExternalIDField,
			EstimateField:   settings.EstimateField,
			Progress: func(res *importer.Result) {
				w.Progress(render.ProgressLine(res))
			},
		})
		finished := time.Now()

		// The issues already exist remotely, so a journal problem must not
		// turn the run into a failure.
		run := journal.NewRun(args[0], rep, started, finished)
		if id, rerr := journal.RecordRun(conn, run); rerr != nil {
			w.Warn("Recording run: %v", rerr)
		} else {
			w.Info("Recorded as run #%d", id)
		}

		var view string
		if !w.JSONMode {
			if board {
				view = render.RenderBoard(rep)
			} else {
				view = render.RenderReport(rep)
			}
			view += "\n\n" + render.ReportSummary(rep)
		}

		if rep.Fatal != nil {
			w.Progress(view)
			code := output.ErrGeneral
			if github.Fatal(rep.Fatal) {
				code = output.ErrAuth
			}
			return cmdErr(fmt.Errorf("run aborted: %w", rep.Fatal), code)
		}

		if strict && rep.HasFailures() {
			w.Progress(view)
			return cmdErr(
				fmt.Errorf("%d of %d rows did not produce an issue", rep.Failed+rep.Skipped, rep.Total()),
				output.ErrGeneral,
			)
		}

		w.Success(rep, view)
		return nil
	},
}

func init() {
	importCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	importCmd.Flags().Bool("strict", false, "Exit non-zero when any row fails or is skipped")
	importCmd.Flags().Bool("board", false, "Show results grouped by outcome")
	importCmd.Flags().Bool("dry-run", false, "Resolve and show the plan without creating anything")
	addSelectionFlags(importCmd)
	rootCmd.AddCommand(importCmd)
}
