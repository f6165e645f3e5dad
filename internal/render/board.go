package render

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/ALT-F4-LLC/stevedore/internal/importer"
)

const (
	maxCardsPerColumn = 10
	minColumnWidth    = 20
	defaultTermWidth  = 100
	cardPadding       = 2 // left+right padding inside cards
)

// StatusOrder defines the left-to-right column order for the outcome board.
var StatusOrder = []importer.Status{
	importer.StatusCreated,
	importer.StatusUpdated,
	importer.StatusFailed,
	importer.StatusSkipped,
}

// RenderBoard renders an import report as a board with one column per
// outcome, so large runs can be scanned status by status.
func RenderBoard(rep *importer.Report) string {
	if len(rep.Results) == 0 {
		return EmptyState("No rows were processed.", "", false)
	}

	if !ColorsEnabled() {
		return renderPlainBoard(rep)
	}

	return renderColorBoard(rep)
}

// terminalWidth returns the current terminal width, falling back to a default.
func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultTermWidth
	}
	return w
}

// groupByStatus groups results into a map keyed by status.
func groupByStatus(results []*importer.Result) map[importer.Status][]*importer.Result {
	groups := make(map[importer.Status][]*importer.Result)
	for _, res := range results {
		groups[res.Status] = append(groups[res.Status], res)
	}
	return groups
}

func renderColorBoard(rep *importer.Report) string {
	groups := groupByStatus(rep.Results)

	var activeStatuses []importer.Status
	for _, s := range StatusOrder {
		if len(groups[s]) > 0 {
			activeStatuses = append(activeStatuses, s)
		}
	}

	if len(activeStatuses) == 0 {
		return ""
	}

	tw := terminalWidth()
	// Account for gaps between columns (1 space each).
	gaps := len(activeStatuses) - 1
	colWidth := (tw - gaps) / len(activeStatuses)
	if colWidth < minColumnWidth {
		colWidth = minColumnWidth
	}

	// Inner width available for card content (minus border/padding).
	cardContentWidth := max(colWidth-cardPadding-2, 5) // 2 for left+right border chars

	var columns []string
	for _, status := range activeStatuses {
		col := renderColorColumn(status, groups[status], colWidth, cardContentWidth)
		columns = append(columns, col)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, columns...)
}

func renderColorColumn(status importer.Status, results []*importer.Result, colWidth, contentWidth int) string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorFromName(statusColor(string(status)))).
		Width(colWidth).
		Align(lipgloss.Center)

	header := headerStyle.Render(fmt.Sprintf("%s %s (%d)", statusIcon(string(status)), strings.ToUpper(string(status)), len(results)))

	visible := results
	overflow := 0
	if len(results) > maxCardsPerColumn {
		visible = results[:maxCardsPerColumn]
		overflow = len(results) - maxCardsPerColumn
	}

	cards := make([]string, 0, len(visible)+2) // +2 for header and possible overflow
	cards = append(cards, header)

	for _, res := range visible {
		cards = append(cards, renderColorCard(res, colWidth, contentWidth))
	}

	if overflow > 0 {
		moreStyle := lipgloss.NewStyle().
			Width(colWidth).
			Align(lipgloss.Center).
			Foreground(lipgloss.Color("8"))
		cards = append(cards, moreStyle.Render(fmt.Sprintf("+%d more", overflow)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

func renderColorCard(res *importer.Result, colWidth, contentWidth int) string {
	if contentWidth < 5 {
		contentWidth = 5
	}

	refStyle := lipgloss.NewStyle().Bold(true)
	line1 := refStyle.Render(truncate(res.Row.Ref(), contentWidth))

	line2 := truncate(res.Row.Title, contentWidth)

	var line3 string
	if cell := issueCell(res); cell != "" {
		line3 = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(truncate(cell, contentWidth))
	}

	var line4 string
	if detail := resultDetail(res); detail != "" {
		line4 = lipgloss.NewStyle().Foreground(ColorFromName("red")).Render(truncate(detail, contentWidth))
	}

	lines := []string{line1, line2}
	if line3 != "" {
		lines = append(lines, line3)
	}
	if line4 != "" {
		lines = append(lines, line4)
	}
	body := strings.Join(lines, "\n")

	cardStyle := lipgloss.NewStyle().
		Width(colWidth - 2). // account for outer spacing
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorFromName(statusColor(string(res.Status))))

	return cardStyle.Render(body)
}

// --- Plain text fallback ---

func renderPlainBoard(rep *importer.Report) string {
	groups := groupByStatus(rep.Results)

	var activeStatuses []importer.Status
	for _, s := range StatusOrder {
		if len(groups[s]) > 0 {
			activeStatuses = append(activeStatuses, s)
		}
	}

	if len(activeStatuses) == 0 {
		return ""
	}

	var b strings.Builder

	for i, status := range activeStatuses {
		if i > 0 {
			b.WriteString("\n")
		}

		col := groups[status]
		fmt.Fprintf(&b, "=== %s %s (%d) ===\n", statusIcon(string(status)), strings.ToUpper(string(status)), len(col))

		visible := col
		overflow := 0
		if len(col) > maxCardsPerColumn {
			visible = col[:maxCardsPerColumn]
			overflow = len(col) - maxCardsPerColumn
		}

		for _, res := range visible {
			renderPlainCard(&b, res)
		}

		if overflow > 0 {
			fmt.Fprintf(&b, "  +%d more\n", overflow)
		}
	}

	return b.String()
}

func renderPlainCard(b *strings.Builder, res *importer.Result) {
	fmt.Fprintf(b, "  %s\n", res.Row.Ref())
	fmt.Fprintf(b, "  %s\n", truncate(res.Row.Title, maxTitleWidth))

	if cell := issueCell(res); cell != "" {
		fmt.Fprintf(b, "  %s\n", cell)
	}
	if detail := resultDetail(res); detail != "" {
		fmt.Fprintf(b, "  %s\n", truncate(detail, maxTitleWidth))
	}

	b.WriteString("\n")
}
