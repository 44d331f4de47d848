package console

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"git.home.luguber.info/inful/assetflow/internal/history"
	"git.home.luguber.info/inful/assetflow/internal/orchestrator"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// BuildSummary renders the task table and outcome line of a plan run.
func BuildSummary(r *orchestrator.Report) string {
	t := newTable("Task", "Status", "Duration")
	for _, rec := range r.Tasks {
		t.Row(rec.Name, statusStyle(string(rec.Status)).Render(string(rec.Status)), formatDuration(rec.Duration()))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s %s", r.Plan, r.BuildID)))
	b.WriteByte('\n')
	b.WriteString(t.Render())
	b.WriteByte('\n')

	status := string(r.Status())
	line := fmt.Sprintf("%s %s in %s", outcomeMark(status), status, formatDuration(r.Duration()))
	b.WriteString(statusStyle(status).Render(line))
	b.WriteByte('\n')
	return b.String()
}

// ServeBanner renders the box printed when a server starts.
func ServeBanner(title, url string, lines ...string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")
	b.WriteString("Local: " + url)
	for _, l := range lines {
		b.WriteByte('\n')
		b.WriteString(mutedStyle.Render(l))
	}
	return bannerStyle.Render(b.String()) + "\n"
}

// Graph renders the tasks of g in execution order with their dependencies.
func Graph(g *orchestrator.Graph) string {
	t := newTable("#", "Task", "Depends on")
	for i, name := range g.TopologicalOrder() {
		deps := g.Dependencies(name)
		dep := mutedStyle.Render("-")
		if len(deps) > 0 {
			dep = strings.Join(deps, ", ")
		}
		t.Row(fmt.Sprint(i+1), name, dep)
	}
	return titleStyle.Render("plan "+g.Name()) + "\n" + t.Render() + "\n"
}

// History renders a list of recorded builds.
func History(builds []history.Build, now time.Time) string {
	if len(builds) == 0 {
		return mutedStyle.Render("No builds recorded yet.") + "\n"
	}
	t := newTable("Build", "Plan", "Status", "Started", "Duration")
	for _, b := range builds {
		t.Row(
			shortID(b.ID),
			b.Plan,
			statusStyle(b.Status).Render(b.Status),
			humanize.RelTime(b.Started, now, "ago", "from now"),
			formatDuration(b.Duration()),
		)
	}
	return t.Render() + "\n"
}

// BuildDetail renders one recorded build with its tasks.
func BuildDetail(b history.Build) string {
	t := newTable("Task", "Status", "Duration", "Error")
	for _, task := range b.Tasks {
		t.Row(task.Name, statusStyle(task.Status).Render(task.Status), formatDuration(task.Duration()), task.Error)
	}
	head := titleStyle.Render(fmt.Sprintf("%s %s", b.Plan, b.ID))
	line := fmt.Sprintf("%s %s in %s (%s)", outcomeMark(b.Status), b.Status, formatDuration(b.Duration()),
		b.Started.Format(time.RFC3339))
	return head + "\n" + t.Render() + "\n" + statusStyle(b.Status).Render(line) + "\n"
}

// Error renders a one-line failure message.
func Error(msg string) string {
	return errorStyle.Render("✗ "+msg) + "\n"
}

func outcomeMark(status string) string {
	if status == "succeeded" {
		return "✓"
	}
	return "✗"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return d.Round(10 * time.Millisecond).String()
	}
}
