package report

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title      lipgloss.Style
	header     lipgloss.Style
	stage      lipgloss.Style
	elapsed    lipgloss.Style
	ok         lipgloss.Style
	failure    lipgloss.Style
	empty      lipgloss.Style
	barBracket lipgloss.Style
	barFill    lipgloss.Style
	barEmpty   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:      lipgloss.NewStyle().Bold(true),
		header:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		stage:      lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Width(16),
		elapsed:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(10).Align(lipgloss.Right),
		ok:         lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
		failure:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		empty:      lipgloss.NewStyle().Faint(true),
		barBracket: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		barFill:    lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		barEmpty:   lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	}
}
