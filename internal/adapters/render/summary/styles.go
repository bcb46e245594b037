package summary

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	step     lipgloss.Style
	detail   lipgloss.Style
	success  lipgloss.Style
	failure  lipgloss.Style
	timeout  lipgloss.Style
	section  lipgloss.Style
	empty    lipgloss.Style
	footnote lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true),
		header:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		step:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		success:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		failure:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		timeout:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		section:  lipgloss.NewStyle().MarginTop(1),
		empty:    lipgloss.NewStyle().Faint(true),
		footnote: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}
