package main

import (
	"strings"

	"github.com/ALT-F4-LLC/stevedore/internal/importer"
	"github.com/ALT-F4-LLC/stevedore/internal/render"
	"github.com/spf13/cobra"
)

type previewEntry struct {
	IssueID string `json:"issue_id,omitempty"`
	Row     int    `json:"row"`
	Title   string `json:"title"`
	Body    string `json:"body"`
}

var previewCmd = &cobra.Command{
	Use:         "preview <file.csv> [id]",
	Short:       "Preview parent issue bodies with their sub-task checklists",
	Annotations: map[string]string{"skipJournal": "true"},
	Args:        cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)

		selection := selectionFromFlags(cmd)
		if len(args) == 2 {
			selection.IDs = append(selection.IDs, args[1])
		}

		plan, err := resolvePlan(args[0], selection)
		if err != nil {
			return err
		}

		// Issue URLs only exist after an import, so the checklist shows each
		// child's title instead.
		entries := []previewEntry{}
		for _, node := range plan.Nodes {
			if !node.IsParent() {
				continue
			}
			refs := make([]string, 0, len(node.Children))
			for _, child := range node.Children {
				refs = append(refs, child.Row.Title)
			}
			entries = append(entries, previewEntry{
				IssueID: node.Row.IssueID,
				Row:     node.Row.Position,
				Title:   node.Row.Title,
				Body:    importer.ComposeParentBody(node.Row.Body, refs),
			})
		}

		if len(entries) == 0 {
			w.Success(entries, render.EmptyState(
				"No parent rows in the plan.",
				"Only rows referenced by a parent_issue_id get a checklist.",
				w.QuietMode,
			))
			return nil
		}

		var message string
		if !w.JSONMode {
			sections := make([]string, 0, len(entries))
			for _, e := range entries {
				rendered, err := render.RenderMarkdown("# " + e.Title + "\n\n" + e.Body)
				if err != nil {
					rendered = e.Body
				}
				sections = append(sections, rendered)
			}
			message = strings.Join(sections, "\n\n")
		}

		w.Success(entries, message)
		return nil
	},
}

func init() {
	addSelectionFlags(previewCmd)
	rootCmd.AddCommand(previewCmd)
}
