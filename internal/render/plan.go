package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize/english"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/ALT-F4-LLC/stevedore/internal/manifest"
	"github.com/ALT-F4-LLC/stevedore/internal/planner"
)

// RenderPlan renders a resolved plan as a formatted table in creation order.
// If treeMode is true, rows are rendered as an indented hierarchy instead.
func RenderPlan(plan *planner.Plan, treeMode bool) string {
	if len(plan.Nodes) == 0 {
		return EmptyState("No rows to import.", "Check the input file or loosen --repo/--id/--label filters.", false)
	}

	if treeMode {
		return RenderPlanTree(plan)
	}

	if !ColorsEnabled() {
		return renderPlainPlan(plan)
	}

	headers := []string{"Row", "ID", "Repo", "Title", "Project", "Labels"}

	rows := make([][]string, 0, len(plan.Nodes))
	childRows := make(map[int]bool, len(plan.Nodes))
	for i, node := range plan.Nodes {
		rows = append(rows, planToRow(node))
		if node.Parent != nil {
			childRows[i] = true
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)

			if row == table.HeaderRow {
				return s.Bold(true).Foreground(lipgloss.Color("15"))
			}

			switch col {
			case 1: // ID
				if childRows[row] {
					return s.Foreground(lipgloss.Color("8"))
				}
				return s.Foreground(lipgloss.Color("15"))
			case 3: // Title
				if childRows[row] {
					return s
				}
				return s.Bold(true)
			case 4: // Project
				return s.Foreground(lipgloss.Color("12"))
			case 5: // Labels
				return s.Foreground(lipgloss.Color("8"))
			default:
				return s
			}
		})

	return t.Render()
}

func planToRow(node *planner.Node) []string {
	row := node.Row
	title := truncate(row.Title, maxTitleWidth)
	if node.Parent != nil {
		title = "└ " + title
	}
	return []string{
		strconv.Itoa(row.Position),
		row.IssueID,
		row.Target.String(),
		title,
		projectCell(row),
		strings.Join(row.Labels, ", "),
	}
}

// projectCell formats the project column, e.g. "#7 est 2.5".
func projectCell(row manifest.Row) string {
	if !row.HasProject() {
		return ""
	}
	cell := fmt.Sprintf("#%d", *row.ProjectNumber)
	if row.ProjectEstimate != nil {
		cell += " est " + strconv.FormatFloat(*row.ProjectEstimate, 'f', -1, 64)
	}
	return cell
}

func renderPlainPlan(plan *planner.Plan) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%-5s %-12s %-24s %-42s %-12s %s\n",
		"Row", "ID", "Repo", "Title", "Project", "Labels")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 110))

	for _, node := range plan.Nodes {
		cells := planToRow(node)
		fmt.Fprintf(&b, "%-5s %-12s %-24s %-42s %-12s %s\n",
			cells[0], cells[1], cells[2], cells[3], cells[4], cells[5])
	}

	return b.String()
}

// RenderPlanTree renders the plan as an indented hierarchy using tree lines.
// Top-level nodes keep input order; children sit under their parent. The
// hierarchy is two levels deep, so one pass over Children is enough.
func RenderPlanTree(plan *planner.Plan) string {
	if len(plan.Nodes) == 0 {
		return EmptyState("No rows to import.", "Check the input file or loosen --repo/--id/--label filters.", false)
	}

	if !ColorsEnabled() {
		return renderPlainPlanTree(plan)
	}

	t := tree.New().Root("Import plan")

	for _, node := range plan.Nodes {
		if node.Parent != nil {
			continue
		}
		root := tree.Root(formatPlanNode(node))
		for _, child := range node.Children {
			root.Child(formatPlanNode(child))
		}
		t.Child(root)
	}

	return t.String()
}

func formatPlanNode(node *planner.Node) string {
	row := node.Row

	if !ColorsEnabled() {
		line := fmt.Sprintf("%s  %s  %s", row.Ref(), truncate(row.Title, maxTitleWidth), row.Target.String())
		if cell := projectCell(row); cell != "" {
			line += "  " + cell
		}
		return line
	}

	idStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	titleStyle := lipgloss.NewStyle().Bold(true)
	repoStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	projectStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("12"))

	parts := []string{
		idStyle.Render(row.Ref()),
		titleStyle.Render(truncate(row.Title, maxTitleWidth)),
		repoStyle.Render(row.Target.String()),
	}
	if row.HasProject() {
		parts = append(parts, projectStyle.Render(projectCell(row)))
	}
	return strings.Join(parts, "  ")
}

func renderPlainPlanTree(plan *planner.Plan) string {
	var b strings.Builder
	for _, node := range plan.Nodes {
		if node.Parent != nil {
			continue
		}
		fmt.Fprintf(&b, "%s\n", formatPlanNode(node))
		for _, child := range node.Children {
			fmt.Fprintf(&b, "  %s\n", formatPlanNode(child))
		}
	}
	return b.String()
}

// PlanSummary returns a one-line description of what a plan will do,
// e.g. "9 issues across 2 repositories (2 parents, 5 children, 2 standalone)".
func PlanSummary(plan *planner.Plan) string {
	repos := make(map[string]bool)
	for _, node := range plan.Nodes {
		repos[node.Row.Target.String()] = true
	}

	line := fmt.Sprintf("%s across %s",
		english.Plural(plan.TotalRows, "issue", ""),
		english.Plural(len(repos), "repository", "repositories"))
	if plan.Parents > 0 {
		line += fmt.Sprintf(" (%s, %s, %d standalone)",
			english.Plural(plan.Parents, "parent", ""),
			english.Plural(plan.Children, "child", "children"),
			plan.Singletons)
	}
	return line
}
