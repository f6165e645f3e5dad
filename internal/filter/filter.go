// Package filter narrows a loaded manifest to the rows a run should touch.
// Selection is family-aware: a parent and its children always travel
// together, so a filtered import never produces dangling parent references.
package filter

import "github.com/ALT-F4-LLC/stevedore/internal/manifest"

// Filter selects a subset of manifest rows before planning.
type Filter struct {
	Repos  []string // "account/repo" paths; empty selects all
	IDs    []string // issue_id values; empty selects all
	Labels []string // labels every selected row must carry; empty selects all
	Max    int      // cap on top-level groups; 0 means no cap
}

// IsZero reports whether the filter selects everything.
func (f Filter) IsZero() bool {
	return len(f.Repos) == 0 && len(f.IDs) == 0 && len(f.Labels) == 0 && f.Max == 0
}

// Apply returns the rows that pass the filter, preserving input order.
// Selection closes over the hierarchy: matching any member of a family keeps
// the whole family. Max caps the number of families (a parent with all its
// children, or one standalone row), never splitting one.
func Apply(rows []manifest.Row, f Filter) []manifest.Row {
	if f.IsZero() {
		return rows
	}

	repos := ToStringSet(f.Repos)
	ids := ToStringSet(f.IDs)
	labels := ToStringSet(f.Labels)

	// Group rows into families keyed by the top-level row's index. A parent
	// row may appear after its children in the file, so ids are indexed
	// over the whole input first.
	index := make(map[string]int, len(rows))
	for i, row := range rows {
		if row.IssueID != "" {
			index[row.IssueID] = i
		}
	}
	groupOf := make([]int, len(rows))
	for i, row := range rows {
		groupOf[i] = i
		if row.ParentIssueID == "" {
			continue
		}
		if j, ok := index[row.ParentIssueID]; ok && j != i {
			groupOf[i] = j
		}
	}

	// Match rows, selecting the whole family of every hit.
	selected := make(map[int]bool)
	for i, row := range rows {
		if matches(row, repos, ids, labels) {
			selected[groupOf[i]] = true
		}
	}

	// Max counts families in order of first appearance.
	allowed := make(map[int]bool)
	groups := 0
	for i := range rows {
		g := groupOf[i]
		if !selected[g] {
			continue
		}
		if _, seen := allowed[g]; seen {
			continue
		}
		if f.Max > 0 && groups == f.Max {
			allowed[g] = false
			continue
		}
		allowed[g] = true
		groups++
	}

	out := make([]manifest.Row, 0, len(rows))
	for i, row := range rows {
		if allowed[groupOf[i]] {
			out = append(out, row)
		}
	}
	return out
}

func matches(row manifest.Row, repos, ids, labels map[string]struct{}) bool {
	if repos != nil {
		if _, ok := repos[row.Target.String()]; !ok {
			return false
		}
	}
	if ids != nil {
		if _, ok := ids[row.IssueID]; !ok {
			return false
		}
	}
	if labels != nil && !HasAllLabels(row.Labels, labels) {
		return false
	}
	return true
}

// ToStringSet converts a slice of strings to a set for O(1) membership checks.
func ToStringSet(ss []string) map[string]struct{} {
	if len(ss) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ss))
	for _, s := range ss {
		set[s] = struct{}{}
	}
	return set
}

// HasAllLabels returns true if labels contains every label in the required set.
func HasAllLabels(labels []string, required map[string]struct{}) bool {
	have := ToStringSet(labels)
	for l := range required {
		if _, ok := have[l]; !ok {
			return false
		}
	}
	return true
}
