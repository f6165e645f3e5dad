package main

import (
	"errors"
	"io/fs"

	"github.com/ALT-F4-LLC/stevedore/internal/filter"
	"github.com/ALT-F4-LLC/stevedore/internal/manifest"
	"github.com/ALT-F4-LLC/stevedore/internal/output"
	"github.com/ALT-F4-LLC/stevedore/internal/planner"
	"github.com/spf13/cobra"
)

// addSelectionFlags registers the row-selection flags shared by every command
// that reads a manifest.
func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("repo", nil, "Only rows targeting account/repo (repeatable)")
	cmd.Flags().StringSlice("id", nil, "Only the given issue id and its parent or children (repeatable)")
	cmd.Flags().StringSlice("label", nil, "Only rows carrying every given label (repeatable)")
	cmd.Flags().Int("max", 0, "Cap the number of top-level issues taken")
}

func selectionFromFlags(cmd *cobra.Command) filter.Filter {
	repos, _ := cmd.Flags().GetStringSlice("repo")
	ids, _ := cmd.Flags().GetStringSlice("id")
	labels, _ := cmd.Flags().GetStringSlice("label")
	max, _ := cmd.Flags().GetInt("max")
	return filter.Filter{Repos: repos, IDs: ids, Labels: labels, Max: max}
}

// loadManifest reads a manifest file and applies the selection filter. A
// missing file maps to NOT_FOUND, an unreadable one to GENERAL, and bad
// header or field data to VALIDATION.
func loadManifest(path string, f filter.Filter) ([]manifest.Row, error) {
	rows, err := manifest.LoadFile(path)
	if err != nil {
		var pathErr *fs.PathError
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, cmdErr(err, output.ErrNotFound)
		case errors.As(err, &pathErr):
			return nil, cmdErr(err, output.ErrGeneral)
		default:
			return nil, cmdErr(err, output.ErrValidation)
		}
	}
	return filter.Apply(rows, f), nil
}

func resolvePlan(path string, f filter.Filter) (*planner.Plan, error) {
	rows, err := loadManifest(path, f)
	if err != nil {
		return nil, err
	}
	plan, err := planner.Resolve(rows)
	if err != nil {
		return nil, cmdErr(err, output.ErrValidation)
	}
	return plan, nil
}
