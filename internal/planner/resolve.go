package planner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ALT-F4-LLC/stevedore/internal/manifest"
)

// Validation failure kinds. A ValidationError unwraps to these, so callers
// can classify with errors.Is.
var (
	ErrDuplicateIssueID = errors.New("duplicate issue_id")
	ErrDanglingParent   = errors.New("dangling parent reference")
	ErrTooDeep          = errors.New("hierarchy deeper than two levels")
)

// RowError records one constraint violation tied to the offending row.
type RowError struct {
	Row  manifest.Row
	Kind error
	Msg  string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row.Position, e.Msg)
}

func (e *RowError) Unwrap() error { return e.Kind }

// ValidationError aggregates every constraint violation found in one input
// set. Resolve reports all of them at once so a bad file is fixed in one
// round trip instead of one error per attempt.
type ValidationError struct {
	Errors []*RowError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, re := range e.Errors {
		msgs[i] = re.Error()
	}
	return fmt.Sprintf("%d validation error(s):\n  - %s", len(e.Errors), strings.Join(msgs, "\n  - "))
}

// Unwrap exposes the individual RowErrors for errors.Is and errors.As.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, re := range e.Errors {
		errs[i] = re
	}
	return errs
}

// Resolve validates referential constraints between rows and builds the
// creation plan. It returns a *ValidationError listing every violation when
// the input is invalid; no plan is produced and the caller must make no
// remote calls (an invalid file has no partial side effects).
//
// Constraints checked, in order:
//   - issue_id values are unique across all rows (ErrDuplicateIssueID)
//   - every parent_issue_id names a different row's issue_id (ErrDanglingParent)
//   - a row referenced as a parent has no parent itself (ErrTooDeep)
//
// The plan is the pre-order traversal of the resulting forest: each top-level
// node in input order, immediately followed by its children in input order.
func Resolve(rows []manifest.Row) (*Plan, error) {
	var verrs []*RowError

	// Index issue_ids, catching duplicates. The first occurrence wins the
	// index slot; later ones are reported.
	index := make(map[string]int, len(rows))
	for i, row := range rows {
		if row.IssueID == "" {
			continue
		}
		if first, ok := index[row.IssueID]; ok {
			verrs = append(verrs, &RowError{
				Row:  row,
				Kind: ErrDuplicateIssueID,
				Msg:  fmt.Sprintf("issue_id %q already used by row %d", row.IssueID, rows[first].Position),
			})
			continue
		}
		index[row.IssueID] = i
	}

	// Resolve parent references. A parent must be a different row, so a
	// self-reference is dangling, not a cycle of its own.
	parentOf := make(map[int]int, len(rows))
	referenced := make(map[int]struct{}, len(rows))
	for i, row := range rows {
		if row.ParentIssueID == "" {
			continue
		}
		j, ok := index[row.ParentIssueID]
		if !ok || j == i {
			verrs = append(verrs, &RowError{
				Row:  row,
				Kind: ErrDanglingParent,
				Msg:  fmt.Sprintf("parent_issue_id %q does not match any other row's issue_id", row.ParentIssueID),
			})
			continue
		}
		parentOf[i] = j
		referenced[j] = struct{}{}
	}

	// Two-level limit. With only two levels, no row referenced as a parent
	// may have a parent itself; this also rules out cycles.
	for i, row := range rows {
		if _, isChild := parentOf[i]; !isChild {
			continue
		}
		if _, isParent := referenced[i]; isParent {
			verrs = append(verrs, &RowError{
				Row:  row,
				Kind: ErrTooDeep,
				Msg:  fmt.Sprintf("%q has a parent and is referenced as one; only two levels are supported", row.IssueID),
			})
		}
	}

	if len(verrs) > 0 {
		return nil, &ValidationError{Errors: verrs}
	}

	// Build the forest.
	nodes := make([]*Node, len(rows))
	for i, row := range rows {
		nodes[i] = &Node{Row: row}
	}
	for i, j := range parentOf {
		nodes[i].Parent = nodes[j]
	}
	for i := range rows {
		if j, ok := parentOf[i]; ok {
			nodes[j].Children = append(nodes[j].Children, nodes[i])
		}
	}

	// Emit the pre-order plan.
	plan := &Plan{TotalRows: len(rows)}
	for _, n := range nodes {
		if n.Parent != nil {
			plan.Children++
			continue // emitted right after its parent
		}
		plan.Nodes = append(plan.Nodes, n)
		if n.IsParent() {
			plan.Parents++
			plan.Nodes = append(plan.Nodes, n.Children...)
		} else {
			plan.Singletons++
		}
	}

	return plan, nil
}
