package status

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title       lipgloss.Style
	header      lipgloss.Style
	participant lipgloss.Style
	detail      lipgloss.Style
	warning     lipgloss.Style
	healthy     lipgloss.Style
	section     lipgloss.Style
	empty       lipgloss.Style
	key         lipgloss.Style
	barBracket  lipgloss.Style
	barFill     lipgloss.Style
	barEmpty    lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:       lipgloss.NewStyle().Bold(true),
		header:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		participant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:      lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		warning:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		healthy:     lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
		section:     lipgloss.NewStyle().MarginTop(1),
		empty:       lipgloss.NewStyle().Faint(true),
		key:         lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		barBracket:  lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		barFill:     lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		barEmpty:    lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	}
}
