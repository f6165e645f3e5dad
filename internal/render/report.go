package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ALT-F4-LLC/stevedore/internal/importer"
)

// RenderReport renders per-row outcomes as a formatted table in plan order.
func RenderReport(rep *importer.Report) string {
	if len(rep.Results) == 0 {
		return EmptyState("No rows were processed.", "", false)
	}

	if !ColorsEnabled() {
		return renderPlainReport(rep)
	}

	headers := []string{"Status", "Row", "Title", "Issue", "Detail"}

	rows := make([][]string, 0, len(rep.Results))
	colors := make([]string, 0, len(rep.Results))
	for _, res := range rep.Results {
		rows = append(rows, resultToRow(res))
		colors = append(colors, statusColor(string(res.Status)))
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
			if row < 0 || row >= len(colors) {
				return s
			}

			switch col {
			case 0: // Status
				return s.Foreground(ColorFromName(colors[row]))
			case 1: // Row
				return s.Foreground(lipgloss.Color("15"))
			case 2: // Title
				return s.Bold(true)
			case 4: // Detail
				return s.Foreground(lipgloss.Color("8"))
			default:
				return s
			}
		})

	return t.Render()
}

func resultToRow(res *importer.Result) []string {
	return []string{
		statusLabel(string(res.Status)),
		res.Row.Ref(),
		truncate(res.Row.Title, maxTitleWidth),
		issueCell(res),
		truncate(resultDetail(res), maxTitleWidth),
	}
}

func issueCell(res *importer.Result) string {
	if res.Identity.Zero() {
		return ""
	}
	return fmt.Sprintf("%s#%d", res.Row.Target.String(), res.Identity.Number)
}

// resultDetail summarizes what went wrong, or stays empty for clean rows.
func resultDetail(res *importer.Result) string {
	if res.Err != nil {
		return res.Err.Error()
	}
	if len(res.StepErrors) == 0 {
		return ""
	}
	parts := make([]string, 0, len(res.StepErrors))
	for _, se := range res.StepErrors {
		parts = append(parts, se.Error())
	}
	return strings.Join(parts, "; ")
}

func renderPlainReport(rep *importer.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%-12s %-12s %-42s %-28s %s\n",
		"Status", "Row", "Title", "Issue", "Detail")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 110))

	for _, res := range rep.Results {
		cells := resultToRow(res)
		fmt.Fprintf(&b, "%-12s %-12s %-42s %-28s %s\n",
			cells[0], cells[1], cells[2], cells[3], cells[4])
	}

	return b.String()
}

// ReportSummary returns a one-line tally of a run, e.g.
// "5 created, 1 updated, 1 failed, 2 skipped". Zero counts render dim.
func ReportSummary(rep *importer.Report) string {
	return tallyLine(rep.Created, rep.Updated, rep.Failed, rep.Skipped)
}

func tallyLine(created, updated, failed, skipped int) string {
	counts := []struct {
		n      int
		status string
	}{
		{created, "created"},
		{updated, "updated"},
		{failed, "failed"},
		{skipped, "skipped"},
	}

	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		text := fmt.Sprintf("%d %s", c.n, c.status)
		color := statusColor(c.status)
		if c.n == 0 {
			color = "gray"
		}
		parts = append(parts, StyledText(text, lipgloss.NewStyle().Foreground(ColorFromName(color))))
	}

	return strings.Join(parts, ", ")
}

// ProgressLine formats one row outcome for live display while a run works,
// e.g. "✔ created build-api acme/tools#12".
func ProgressLine(res *importer.Result) string {
	statusStyle := lipgloss.NewStyle().Foreground(ColorFromName(statusColor(string(res.Status))))
	line := StyledText(statusLabel(string(res.Status)), statusStyle) + " " + res.Row.Ref()

	if cell := issueCell(res); cell != "" {
		line += " " + StyledText(cell, lipgloss.NewStyle().Foreground(lipgloss.Color("8")))
	}
	if detail := resultDetail(res); detail != "" {
		line += ": " + detail
	}
	return line
}
