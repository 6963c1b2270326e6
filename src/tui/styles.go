package tui

import (
	"github.com/charmbracelet/lipgloss"

	"buildwatch-agent/src/watch"
)

// StyleConfig holds the colors of the watch view.
type StyleConfig struct {
	PrimaryBlue   lipgloss.Color
	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	BorderColor   lipgloss.Color
	Spinner       lipgloss.Color

	Success lipgloss.Color
	Failure lipgloss.Color
	Warning lipgloss.Color
}

// DefaultStyles returns the default color palette
func DefaultStyles() *StyleConfig {
	return &StyleConfig{
		PrimaryBlue:   lipgloss.Color("#8AB4F8"),
		TextPrimary:   lipgloss.Color("#E8EAED"),
		TextSecondary: lipgloss.Color("#9AA0A6"),
		BorderColor:   lipgloss.Color("#5F6368"),
		Spinner:       lipgloss.Color("#FFD700"),
		Success:       lipgloss.Color("#34A853"),
		Failure:       lipgloss.Color("#EA4335"),
		Warning:       lipgloss.Color("#FBBC04"),
	}
}

// TitleStyle returns the style of the heading line.
func (s *StyleConfig) TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.PrimaryBlue).
		Bold(true)
}

// HelpStyle returns the style of secondary text.
func (s *StyleConfig) HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.TextSecondary)
}

// SpinnerStyle returns the style of the spinner glyph.
func (s *StyleConfig) SpinnerStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.Spinner)
}

// OutcomeStyle returns the badge style for a watch outcome.
func (s *StyleConfig) OutcomeStyle(outcome string) lipgloss.Style {
	color := s.Failure
	switch outcome {
	case watch.OutcomeSuccess:
		color = s.Success
	case watch.OutcomeTimeout:
		color = s.Warning
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#1E1E1E")).
		Background(color).
		Bold(true).
		Padding(0, 1)
}

// PanelStyle returns the bordered box around the diagnostic line.
func (s *StyleConfig) PanelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextPrimary).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(s.BorderColor)
}
