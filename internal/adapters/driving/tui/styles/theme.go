// Package styles provides the colour theme for the chat TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is the colour palette.
type Theme struct {
	Accent  lipgloss.Color
	Graph   lipgloss.Color
	Text    lipgloss.Color
	Dim     lipgloss.Color
	Good    lipgloss.Color
	Caution lipgloss.Color
	Bad     lipgloss.Color
	Frame   lipgloss.Color
}

// DefaultTheme returns the default palette.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:  lipgloss.Color("#2563EB"),
		Graph:   lipgloss.Color("#10B981"),
		Text:    lipgloss.Color("#E5E7EB"),
		Dim:     lipgloss.Color("#6B7280"),
		Good:    lipgloss.Color("#84CC16"),
		Caution: lipgloss.Color("#F59E0B"),
		Bad:     lipgloss.Color("#EF4444"),
		Frame:   lipgloss.Color("#374151"),
	}
}

// Styles holds the rendered styles for each part of a chat transcript.
type Styles struct {
	theme *Theme

	Header    lipgloss.Style
	Question  lipgloss.Style
	Answer    lipgloss.Style
	Citation  lipgloss.Style
	GraphPath lipgloss.Style
	Muted     lipgloss.Style
	Degraded  lipgloss.Style
	Error     lipgloss.Style
	Input     lipgloss.Style
	Status    lipgloss.Style
}

// NewStyles builds styles from a theme. A nil theme uses DefaultTheme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		theme: theme,

		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Accent),

		Question: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Text),

		Answer: lipgloss.NewStyle().
			Foreground(theme.Text).
			PaddingLeft(2),

		Citation: lipgloss.NewStyle().
			Foreground(theme.Accent).
			PaddingLeft(4),

		GraphPath: lipgloss.NewStyle().
			Foreground(theme.Graph).
			PaddingLeft(4),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Dim),

		Degraded: lipgloss.NewStyle().
			Foreground(theme.Caution),

		Error: lipgloss.NewStyle().
			Foreground(theme.Bad),

		Input: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Frame).
			Padding(0, 1),

		Status: lipgloss.NewStyle().
			Foreground(theme.Dim).
			Padding(0, 1),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the palette the styles were built from.
func (s *Styles) Theme() *Theme {
	return s.theme
}
