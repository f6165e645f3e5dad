package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ALT-F4-LLC/stevedore/internal/journal"
)

const maxSourceWidth = 30

// RenderRuns renders recorded runs as a table, newest first.
func RenderRuns(runs []*journal.Run) string {
	if len(runs) == 0 {
		return EmptyState("No runs recorded.", "Import a file with: stevedore import tasks.csv", false)
	}

	if !ColorsEnabled() {
		return renderPlainRuns(runs)
	}

	headers := []string{"Run", "Imported", "Source", "Created", "Updated", "Failed", "Skipped", "Duration"}

	rows := make([][]string, 0, len(runs))
	broken := make(map[int]bool, len(runs))
	for i, run := range runs {
		rows = append(rows, runToRow(run))
		if run.Failed > 0 || run.Fatal != "" {
			broken[i] = true
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
			case 0: // Run
				return s.Foreground(lipgloss.Color("15"))
			case 1, 7: // Imported, Duration
				return s.Foreground(lipgloss.Color("8"))
			case 3: // Created
				return s.Foreground(ColorFromName("green"))
			case 4: // Updated
				return s.Foreground(ColorFromName("blue"))
			case 5: // Failed
				if broken[row] {
					return s.Foreground(ColorFromName("red")).Bold(true)
				}
				return s.Foreground(lipgloss.Color("8"))
			case 6: // Skipped
				return s.Foreground(lipgloss.Color("8"))
			default:
				return s
			}
		})

	return t.Render()
}

func runToRow(run *journal.Run) []string {
	return []string{
		fmt.Sprintf("#%d", run.ID),
		humanize.Time(run.StartedAt),
		truncate(run.Source, maxSourceWidth),
		strconv.Itoa(run.Created),
		strconv.Itoa(run.Updated),
		strconv.Itoa(run.Failed),
		strconv.Itoa(run.Skipped),
		formatDuration(run.Duration()),
	}
}

// formatDuration trims sub-second noise from run durations.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

func renderPlainRuns(runs []*journal.Run) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%-6s %-16s %-32s %-8s %-8s %-8s %-8s %s\n",
		"Run", "Imported", "Source", "Created", "Updated", "Failed", "Skipped", "Duration")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 100))

	for _, run := range runs {
		cells := runToRow(run)
		fmt.Fprintf(&b, "%-6s %-16s %-32s %-8s %-8s %-8s %-8s %s\n",
			cells[0], cells[1], cells[2], cells[3], cells[4], cells[5], cells[6], cells[7])
	}

	return b.String()
}

// RenderRun renders a full run detail view: header, metadata, and the
// recorded outcome of every row.
func RenderRun(run *journal.Run) string {
	if !ColorsEnabled() {
		return renderPlainRun(run)
	}

	sections := []string{
		renderRunHeader(run),
		renderRunMetadata(run),
	}
	if len(run.Rows) > 0 {
		sections = append(sections, renderRunRows(run.Rows))
	}

	return strings.Join(sections, "\n\n")
}

func renderRunHeader(run *journal.Run) string {
	idStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	sourceStyle := lipgloss.NewStyle().Bold(true)

	line := fmt.Sprintf("%s  %s", idStyle.Render(fmt.Sprintf("Run #%d", run.ID)), sourceStyle.Render(run.Source))
	if run.Fatal != "" {
		fatalStyle := lipgloss.NewStyle().Foreground(ColorFromName("red")).Bold(true)
		line += "\n" + fatalStyle.Render("✘ aborted: "+run.Fatal)
	}
	return line
}

func renderRunMetadata(run *journal.Run) string {
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	lines := []string{
		fmt.Sprintf("%s %s", labelStyle.Render("Imported:"), humanize.Time(run.StartedAt)),
		fmt.Sprintf("%s %s", labelStyle.Render("Duration:"), formatDuration(run.Duration())),
		fmt.Sprintf("%s %s", labelStyle.Render("Rows:"), tallyLine(run.Created, run.Updated, run.Failed, run.Skipped)),
	}

	return strings.Join(lines, "\n")
}

func renderRunRows(rows []journal.RunRow) string {
	headers := []string{"Status", "Row", "Repo", "Title", "Issue", "Detail"}

	cells := make([][]string, 0, len(rows))
	colors := make([]string, 0, len(rows))
	for _, row := range rows {
		cells = append(cells, runRowToRow(row))
		colors = append(colors, statusColor(row.Status))
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(headers...).
		Rows(cells...).
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
			case 3: // Title
				return s.Bold(true)
			case 5: // Detail
				return s.Foreground(lipgloss.Color("8"))
			default:
				return s
			}
		})

	return t.Render()
}

func runRowToRow(row journal.RunRow) []string {
	return []string{
		statusLabel(row.Status),
		runRowRef(row),
		row.Repo,
		truncate(row.Title, maxTitleWidth),
		runIssueCell(row),
		truncate(row.Error, maxTitleWidth),
	}
}

func runRowRef(row journal.RunRow) string {
	if row.IssueID != "" {
		return row.IssueID
	}
	return fmt.Sprintf("row %d", row.Position)
}

func runIssueCell(row journal.RunRow) string {
	if row.Number == 0 {
		return ""
	}
	return fmt.Sprintf("#%d", row.Number)
}

func renderPlainRun(run *journal.Run) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run #%d  %s\n", run.ID, run.Source)
	if run.Fatal != "" {
		fmt.Fprintf(&b, "aborted: %s\n", run.Fatal)
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "Imported: %s\n", humanize.Time(run.StartedAt))
	fmt.Fprintf(&b, "Duration: %s\n", formatDuration(run.Duration()))
	fmt.Fprintf(&b, "Rows: %s\n", tallyLine(run.Created, run.Updated, run.Failed, run.Skipped))

	if len(run.Rows) > 0 {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%-12s %-12s %-24s %-42s %-8s %s\n",
			"Status", "Row", "Repo", "Title", "Issue", "Detail")
		fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 110))
		for _, row := range run.Rows {
			cells := runRowToRow(row)
			fmt.Fprintf(&b, "%-12s %-12s %-24s %-42s %-8s %s\n",
				cells[0], cells[1], cells[2], cells[3], cells[4], cells[5])
		}
	}

	return b.String()
}
