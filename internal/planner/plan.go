package planner

import (
	"github.com/ALT-F4-LLC/stevedore/internal/manifest"
)

// Node is one resolved row in the two-level forest. Children are owned
// exclusively by their parent and appear in input order. Remote identities
// are not stored here; the importer owns a per-run identity map.
type Node struct {
	Row      manifest.Row
	Parent   *Node
	Children []*Node
}

// IsParent reports whether the node has children.
func (n *Node) IsParent() bool {
	return len(n.Children) > 0
}

// Plan is the ordered creation sequence produced by Resolve: every parent
// precedes all of its children, and input order is preserved otherwise.
// A plan is immutable after construction and consumed once per run.
type Plan struct {
	Nodes []*Node

	TotalRows  int
	Parents    int
	Children   int
	Singletons int
}
