package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/trackprop/internal/propagator"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ffff"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888899"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ccff")).
			Bold(true)

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666688"))

	statusStyles = map[propagator.Status]lipgloss.Style{
		propagator.Success:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88")),
		propagator.Aborted:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffcc00")),
		propagator.PolicyStop: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffaa00")),
		propagator.Failed:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff4444")),
	}
)

func renderStatus(s propagator.Status) string {
	style, ok := statusStyles[s]
	if !ok {
		return s.String()
	}
	return style.Render(s.String())
}

type row struct {
	label string
	value string
}

// renderPanel draws a titled box of label/value rows.
func renderPanel(title string, rows []row) string {
	width := 0
	for _, r := range rows {
		width = max(width, len(r.label))
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	for _, r := range rows {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-*s", width, r.label)))
		b.WriteString("  ")
		b.WriteString(valueStyle.Render(r.value))
	}
	return panelStyle.Render(b.String())
}

func renderOutcome(runID string, out *propagator.Outcome) string {
	rows := []row{
		{"status", renderStatus(out.Status)},
		{"steps", fmt.Sprintf("%d", out.Steps)},
		{"path length", fmt.Sprintf("%.3f mm", out.State.PathLength)},
		{"momentum", fmt.Sprintf("%.6f GeV", out.State.Momentum)},
		{"position", fmt.Sprintf("(%.3f, %.3f, %.3f)", out.State.Position[0], out.State.Position[1], out.State.Position[2])},
	}
	if out.Trigger != "" {
		rows = append(rows, row{"trigger", out.Trigger})
	}
	if out.Reason != "" {
		rows = append(rows, row{"reason", out.Reason})
	}
	if n := len(out.Navigation.SurfacesPassed); n > 0 {
		rows = append(rows, row{"surfaces", strings.Join(out.Navigation.SurfacesPassed, " ")})
	}
	if out.Err != nil {
		rows = append(rows, row{"error", out.Err.Error()})
	}
	if runID != "" {
		rows = append(rows, row{"run id", runID})
	}
	return renderPanel("propagation", rows)
}

func separator(width int) string {
	mid := width / 2
	left := strings.Repeat("─", max(mid-3, 0))
	right := strings.Repeat("─", max(width-mid-3, 0))
	return subtleStyle.Render(left + " ◆ " + right)
}
