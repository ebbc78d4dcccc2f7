package tui

import "github.com/charmbracelet/lipgloss"

// Color constants matching the dark dashboard theme
const (
	ColorBg     = "#0d1117"
	ColorCard   = "#161b22"
	ColorBorder = "#30363d"
	ColorBlue   = "#58a6ff"
	ColorGreen  = "#3fb950"
	ColorRed    = "#f85149"
	ColorYellow = "#d29922"
	ColorGray   = "#8b949e"
	ColorText   = "#c9d1d9"
	ColorBright = "#f0f6fc"
)

// Styles holds all lipgloss styles for the explorer
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Help     lipgloss.Style

	// Status badges
	StatusOK      lipgloss.Style
	StatusCycle   lipgloss.Style
	StatusFlagged lipgloss.Style
	StatusMuted   lipgloss.Style

	Detail lipgloss.Style

	Border       lipgloss.Style
	ActiveBorder lipgloss.Style

	Item         lipgloss.Style
	SelectedItem lipgloss.Style
}

func badge(color string) lipgloss.Style {
	return lipgloss.NewStyle().
		Background(lipgloss.Color(color)).
		Foreground(lipgloss.Color(ColorBg)).
		Padding(0, 1).
		Bold(true)
}

// DefaultStyles creates the default style set
func DefaultStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorBright)).
			MarginBottom(1),

		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorText)).
			MarginBottom(1),

		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)).
			Italic(true),

		StatusOK:      badge(ColorGreen),
		StatusCycle:   badge(ColorRed),
		StatusFlagged: badge(ColorYellow),
		StatusMuted:   badge(ColorGray),

		Detail: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorText)).
			Padding(0, 1),

		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorBorder)).
			Padding(0, 1),

		ActiveBorder: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorBlue)).
			Padding(0, 1),

		Item: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorText)),

		SelectedItem: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBlue)).
			Bold(true),
	}
}

// HealthColor returns a badge style for a 0-100 health score:
// green from 90, yellow from 70, red below.
func HealthColor(score int) lipgloss.Style {
	switch {
	case score >= 90:
		return badge(ColorGreen)
	case score >= 70:
		return badge(ColorYellow)
	default:
		return badge(ColorRed)
	}
}
