package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/naiba/nezha-uptime/model"
	"github.com/naiba/nezha-uptime/service/reconciler"
)

const (
	colorUp      lipgloss.Color = "2"
	colorDown    lipgloss.Color = "1"
	colorPaused  lipgloss.Color = "8"
	colorLoading lipgloss.Color = "3"
)

const cardsPerRow = 3

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			MarginRight(1).
			Width(28)

	nameStyle   = lipgloss.NewStyle().Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(colorPaused)
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

func monitorColor(m model.Monitor) lipgloss.Color {
	switch {
	case !m.Active:
		return colorPaused
	case m.Status == 0:
		return colorUp
	default:
		return colorDown
	}
}

func monitorState(m model.Monitor) string {
	switch {
	case !m.Active:
		return "paused"
	case m.Status == 0:
		return "up"
	default:
		return "down"
	}
}

// render draws the current page in the persisted view mode.
func render(s reconciler.State, page []model.Monitor) string {
	var b strings.Builder
	b.WriteString(renderHeader(s))
	b.WriteString("\n")
	if len(page) == 0 {
		b.WriteString("no monitors\n")
		return b.String()
	}
	if s.View == model.ViewTable {
		b.WriteString(renderTable(page))
	} else {
		b.WriteString(renderBoxes(page))
	}
	b.WriteString("\n")
	return b.String()
}

func renderHeader(s reconciler.State) string {
	parts := []string{
		fmt.Sprintf("%d monitors", len(s.Monitors)),
		fmt.Sprintf("showing %d-%d", s.Window.Start+1, min(s.Window.End, len(s.Monitors))),
		"auto refresh " + map[bool]string{true: "on", false: "off"}[s.UI.EnableRefresh],
	}
	header := strings.Join(parts, " | ")
	if s.UI.AutoRefreshLoading || s.Loading {
		header += " " + lipgloss.NewStyle().Foreground(colorLoading).Render("(refreshing)")
	}
	return header
}

func renderBoxes(page []model.Monitor) string {
	cards := make([]string, 0, len(page))
	for _, m := range page {
		body := strings.Join([]string{
			nameStyle.Render(m.Name),
			labelStyle.Render(strings.ToUpper(m.Type)) + " " + m.URL,
			labelStyle.Render("every ") + fmt.Sprintf("%ds", m.Frequency),
			lipgloss.NewStyle().Foreground(monitorColor(m)).Render(monitorState(m)),
		}, "\n")
		cards = append(cards, cardStyle.BorderForeground(monitorColor(m)).Render(body))
	}
	var rows []string
	for i := 0; i < len(cards); i += cardsPerRow {
		end := min(i+cardsPerRow, len(cards))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:end]...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

var tableColumns = []struct {
	title string
	width int
	value func(model.Monitor) string
}{
	{"NAME", 24, func(m model.Monitor) string { return m.Name }},
	{"TYPE", 10, func(m model.Monitor) string { return strings.ToUpper(m.Type) }},
	{"URL", 36, func(m model.Monitor) string { return m.URL }},
	{"FREQ", 8, func(m model.Monitor) string { return fmt.Sprintf("%ds", m.Frequency) }},
	{"STATE", 8, monitorState},
}

func renderTable(page []model.Monitor) string {
	cell := func(width int, s string) string {
		return lipgloss.NewStyle().Width(width).MaxWidth(width).Render(s)
	}
	lines := make([]string, 0, len(page)+1)
	header := make([]string, 0, len(tableColumns))
	for _, col := range tableColumns {
		header = append(header, cell(col.width, headerStyle.Render(col.title)))
	}
	lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, header...))
	for _, m := range page {
		row := make([]string, 0, len(tableColumns))
		for _, col := range tableColumns {
			row = append(row, cell(col.width, col.value(m)))
		}
		lines = append(lines, lipgloss.NewStyle().Foreground(monitorColor(m)).Render(lipgloss.JoinHorizontal(lipgloss.Top, row...)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
