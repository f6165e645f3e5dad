package main

import (
	"github.com/ALT-F4-LLC/stevedore/internal/manifest"
	"github.com/ALT-F4-LLC/stevedore/internal/planner"
	"github.com/ALT-F4-LLC/stevedore/internal/render"
	"github.com/spf13/cobra"
)

// planResult is the wire form of a resolved plan. Rows appear in creation
// order, parents ahead of their children.
type planResult struct {
	Rows       []manifest.Row `json:"rows"`
	Total      int            `json:"total"`
	Parents    int            `json:"parents"`
	Children   int            `json:"children"`
	Standalone int            `json:"standalone"`
}

func planData(plan *planner.Plan) planResult {
	rows := make([]manifest.Row, 0, len(plan.Nodes))
	for _, node := range plan.Nodes {
		rows = append(rows, node.Row)
	}
	return planResult{
		Rows:       rows,
		Total:      plan.TotalRows,
		Parents:    plan.Parents,
		Children:   plan.Children,
		Standalone: plan.Singletons,
	}
}

var planCmd = &cobra.Command{
	Use:         "plan <file.csv>",
	Short:       "Validate a manifest and show its creation order without touching GitHub",
	Annotations: map[string]string{"skipJournal": "true"},
	Args:        cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		treeMode, _ := cmd.Flags().GetBool("tree")

		plan, err := resolvePlan(args[0], selectionFromFlags(cmd))
		if err != nil {
			return err
		}

		var message string
		if !w.JSONMode {
			message = render.RenderPlan(plan, treeMode)
			if len(plan.Nodes) > 0 {
				message += "\n\n" + render.PlanSummary(plan)
			}
		}

		w.Success(planData(plan), message)
		return nil
	},
}

func init() {
	planCmd.Flags().Bool("tree", false, "Display the plan as an indented hierarchy")
	addSelectionFlags(planCmd)
	rootCmd.AddCommand(planCmd)
}
