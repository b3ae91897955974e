package main

import (
	"fmt"

	"github.com/Lllllllleong/dailyuploadflow/internal/app"
	"github.com/charmbracelet/lipgloss"
)

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Width(10)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
)

// renderStatus formats the -status report as a small bordered table.
func renderStatus(st app.Status) string {
	row := func(label string, value any) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(fmt.Sprint(value)))
	}
	next := st.Next
	if next == "" {
		next = "-"
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		row("processed", st.Processed),
		row("pending", st.Pending),
		row("next run", next),
	))
}
