package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SummaryModel lists the flagged modules once exploring is done.
type SummaryModel struct {
	session  *ExploreSession
	styles   *Styles
	quitting bool
}

// NewSummaryModel creates a new summary screen
func NewSummaryModel(session *ExploreSession) SummaryModel {
	return SummaryModel{
		session: session,
		styles:  DefaultStyles(),
	}
}

// Init implements tea.Model
func (m SummaryModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m SummaryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "q", "esc", "enter", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model
func (m SummaryModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Exploration Summary: " + m.session.Project))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatsTable())
	b.WriteString("\n")

	if flagged := m.session.Flagged(); len(flagged) > 0 {
		b.WriteString(m.styles.Subtitle.Render("Modules Flagged for Follow-up:"))
		b.WriteString("\n")
		for _, it := range flagged {
			b.WriteString(m.renderItem(it))
		}
		b.WriteString("\n")
	}

	b.WriteString(m.styles.Help.Render("Press enter to exit"))
	return b.String()
}

func (m SummaryModel) renderStatsTable() string {
	var b strings.Builder
	b.WriteString(m.styles.Subtitle.Render("Statistics"))
	b.WriteString("\n")

	total, healthy, circular := len(m.session.Items), 0, 0
	for _, it := range m.session.Items {
		if it.Health.HealthScore >= 90 {
			healthy++
		}
		if it.Health.IsCircular {
			circular++
		}
	}

	green := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGreen)).Bold(true)
	red := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)).Bold(true)
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)).Bold(true)

	fmt.Fprintf(&b, "  Modules:            %d\n", total)
	fmt.Fprintf(&b, "  Healthy (>= 90):    %s\n", green.Render(fmt.Sprint(healthy)))
	fmt.Fprintf(&b, "  On a cycle:         %s\n", red.Render(fmt.Sprint(circular)))
	fmt.Fprintf(&b, "  Flagged:            %s\n", yellow.Render(fmt.Sprint(len(m.session.Flagged()))))
	return b.String()
}

func (m SummaryModel) renderItem(it *ModuleItem) string {
	line := fmt.Sprintf("  %s %s", HealthColor(it.Health.HealthScore).Render(fmt.Sprintf("%3d", it.Health.HealthScore)), it.Name())
	if it.Note != "" {
		line += "  " + m.styles.Help.Render(it.Note)
	}
	return line + "\n"
}
