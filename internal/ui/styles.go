package ui

import (
	"github.com/charmbracelet/lipgloss"

	"occhat/internal/config"
)

// Styles holds the lipgloss styles for the chat view, derived from the
// theme config.
type Styles struct {
	UserLabel lipgloss.Style
	UserText  lipgloss.Style
	Status    lipgloss.Style
	Error     lipgloss.Style
	StatusBar lipgloss.Style
	InputBox  lipgloss.Style
	Highlight lipgloss.Style
}

// NewStyles builds styles from the theme.
func NewStyles(theme config.ThemeConfig) Styles {
	highlight := lipgloss.Color(theme.Highlight)
	subtle := lipgloss.Color(theme.Subtle)
	errColor := lipgloss.Color(theme.Error)

	return Styles{
		UserLabel: lipgloss.NewStyle().Bold(true).Foreground(highlight),
		UserText:  lipgloss.NewStyle(),
		Status:    lipgloss.NewStyle().Foreground(subtle).Italic(true),
		Error:     lipgloss.NewStyle().Foreground(errColor),
		StatusBar: lipgloss.NewStyle().Foreground(subtle),
		InputBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(subtle),
		Highlight: lipgloss.NewStyle().Foreground(highlight),
	}
}
