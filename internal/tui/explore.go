package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/LexxLuey/fascraft/internal/depgraph"
)

type Pane int

const (
	PaneList Pane = iota
	PaneDetail
)

type inputMode int

const (
	inputNone inputMode = iota
	inputFilter
	inputNote
)

// ExploreModel browses the modules of a session: a list on the left and the
// selected module's health, dependencies and load chain on the right.
type ExploreModel struct {
	session    *ExploreSession
	styles     *Styles
	visible    []int // indexes into session.Items after filtering
	cursor     int   // position in visible
	filter     string
	viewport   viewport.Model
	activePane Pane
	width      int
	height     int
	quitting   bool
	mode       inputMode
	textInput  textinput.Model
	help       help.Model
	keys       keyMap
}

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Tab    key.Binding
	Flag   key.Binding
	Note   key.Binding
	Filter key.Binding
	Enter  key.Binding
	Escape key.Binding
	Quit   key.Binding
}

func (km keyMap) ShortHelp() []key.Binding {
	return []key.Binding{km.Up, km.Down, km.Tab, km.Flag, km.Note, km.Filter, km.Quit}
}

func (km keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{km.Up, km.Down, km.Tab},
		{km.Flag, km.Note, km.Filter},
		{km.Enter, km.Escape, km.Quit},
	}
}

func newKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "prev module"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "next module"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch pane"),
		),
		Flag: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "flag"),
		),
		Note: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "note"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func NewExploreModel(session *ExploreSession) ExploreModel {
	ti := textinput.New()
	ti.Width = 40

	m := ExploreModel{
		session:    session,
		styles:     DefaultStyles(),
		visible:    session.Filter(""),
		viewport:   viewport.New(40, 14),
		activePane: PaneList,
		width:      80,
		height:     24,
		textInput:  ti,
		help:       help.New(),
		keys:       newKeyMap(),
	}
	m.viewport.SetContent(m.renderDetail())
	return m
}

// Selected returns the module under the cursor, or nil when the filter
// matches nothing.
func (m ExploreModel) Selected() *ModuleItem {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return nil
	}
	return m.session.Items[m.visible[m.cursor]]
}

// Session returns the explored session, including flags and notes.
func (m ExploreModel) Session() *ExploreSession {
	return m.session
}

func (m ExploreModel) Init() tea.Cmd {
	return nil
}

func (m ExploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = max(10, msg.Width/2-4)
		m.viewport.Height = max(3, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		if m.mode != inputNone {
			return m.updateInput(msg)
		}

		switch {
		case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.Escape):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab):
			if m.activePane == PaneList {
				m.activePane = PaneDetail
			} else {
				m.activePane = PaneList
			}
			return m, nil

		case key.Matches(msg, m.keys.Filter):
			m.mode = inputFilter
			m.textInput.Placeholder = "module name..."
			m.textInput.SetValue(m.filter)
			m.textInput.Focus()
			return m, textinput.Blink

		case key.Matches(msg, m.keys.Flag):
			if it := m.Selected(); it != nil {
				it.Flagged = !it.Flagged
				m.refreshDetail()
			}
			return m, nil

		case key.Matches(msg, m.keys.Note):
			if m.Selected() == nil {
				return m, nil
			}
			m.mode = inputNote
			m.textInput.Placeholder = "why does this module need attention?"
			m.textInput.SetValue(m.Selected().Note)
			m.textInput.Focus()
			return m, textinput.Blink
		}

		if m.activePane == PaneDetail {
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

		switch {
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.visible)-1 {
				m.cursor++
				m.refreshDetail()
			}
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
				m.refreshDetail()
			}
		}
	}

	return m, nil
}

func (m ExploreModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		value := m.textInput.Value()
		switch m.mode {
		case inputFilter:
			m.applyFilter(value)
		case inputNote:
			if it := m.Selected(); it != nil {
				it.Note = strings.TrimSpace(value)
				if it.Note != "" {
					it.Flagged = true
				}
			}
		}
		m.endInput()
		m.refreshDetail()
		return m, nil

	case tea.KeyEsc:
		m.endInput()
		return m, nil
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m *ExploreModel) endInput() {
	m.mode = inputNone
	m.textInput.SetValue("")
	m.textInput.Blur()
}

// applyFilter narrows the list and keeps the cursor on the same module when
// it still matches.
func (m *ExploreModel) applyFilter(query string) {
	current := m.Selected()
	m.filter = strings.TrimSpace(query)
	m.visible = m.session.Filter(m.filter)
	m.cursor = 0
	for i, idx := range m.visible {
		if m.session.Items[idx] == current {
			m.cursor = i
			break
		}
	}
}

func (m *ExploreModel) refreshDetail() {
	m.viewport.SetContent(m.renderDetail())
	m.viewport.GotoTop()
}

func (m ExploreModel) View() string {
	if m.quitting {
		return ""
	}
	if len(m.session.Items) == 0 {
		return m.styles.StatusMuted.Render("No modules to explore")
	}

	sections := []string{
		m.renderTopBar(),
		m.renderPanels(),
		m.renderBottom(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m ExploreModel) renderTopBar() string {
	st := m.session.Statistics
	title := m.styles.Title.Render("Dependencies: " + m.session.Project)
	summary := fmt.Sprintf("%d modules  %d dependencies", st.TotalModules, st.TotalDependencies)

	status := m.styles.StatusOK.Render("acyclic")
	if st.HasCircularDependencies {
		status = m.styles.StatusCycle.Render(fmt.Sprintf("%d cycle(s)", len(st.CircularDependencies)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", m.styles.Subtitle.Render(summary), "  ", status)
}

func (m ExploreModel) renderPanels() string {
	listStyle, detailStyle := m.styles.ActiveBorder, m.styles.Border
	if m.activePane == PaneDetail {
		listStyle, detailStyle = m.styles.Border, m.styles.ActiveBorder
	}

	panelWidth := max(20, (m.width-6)/2)
	left := listStyle.Width(panelWidth).Render(m.renderList())
	right := detailStyle.Width(panelWidth).Render(m.viewport.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (m ExploreModel) renderList() string {
	if len(m.visible) == 0 {
		return m.styles.Help.Render(fmt.Sprintf("no module matches %q", m.filter))
	}

	rows := max(1, m.height-8)
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}

	var b strings.Builder
	for i := start; i < len(m.visible) && i < start+rows; i++ {
		it := m.session.Items[m.visible[i]]
		marker := "  "
		style := m.styles.Item
		if i == m.cursor {
			marker = "> "
			style = m.styles.SelectedItem
		}
		flag := " "
		if it.Flagged {
			flag = "!"
		}
		score := HealthColor(it.Health.HealthScore).Render(fmt.Sprintf("%3d", it.Health.HealthScore))
		fmt.Fprintf(&b, "%s%s %s %s\n", marker, flag, score, style.Render(it.Name()))
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderDetail is plain text so it can live in the viewport.
func (m ExploreModel) renderDetail() string {
	it := m.Selected()
	if it == nil {
		return ""
	}
	h := it.Health

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", it.Name())
	if it.Path != "" {
		fmt.Fprintf(&b, "path: %s\n", it.Path)
	}
	fmt.Fprintf(&b, "\nHealth Score:  %d/100\n", h.HealthScore)
	fmt.Fprintf(&b, "Dependencies:  %d\n", h.DependencyCount)
	fmt.Fprintf(&b, "Dependents:    %d\n", h.DependentCount)
	if h.Depth >= 0 {
		fmt.Fprintf(&b, "Depth:         %d\n", h.Depth)
	} else {
		fmt.Fprintf(&b, "Depth:         undefined (cycle reachable)\n")
	}

	writeList(&b, "Depends on", it.Dependencies)
	writeList(&b, "Used by", it.Dependents)

	if it.Chain != nil {
		fmt.Fprintf(&b, "\nLoad chain:\n  %s\n", strings.Join(it.Chain, " -> "))
	}
	if len(h.Cycles) > 0 {
		b.WriteString("\nCycles:\n")
		for _, c := range h.Cycles {
			fmt.Fprintf(&b, "  %s\n", depgraph.FormatCycle(c))
		}
	}
	if sgs := m.session.SuggestionsFor(it.Name()); len(sgs) > 0 {
		b.WriteString("\nSuggestions:\n")
		for _, sg := range sgs {
			fmt.Fprintf(&b, "  [%s] %s\n", strings.ToUpper(string(sg.Type)), sg.Issue)
		}
	}
	if it.Flagged {
		b.WriteString("\nFlagged for follow-up")
		if it.Note != "" {
			fmt.Fprintf(&b, ": %s", it.Note)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeList(b *strings.Builder, title string, names []string) {
	fmt.Fprintf(b, "\n%s:\n", title)
	if len(names) == 0 {
		b.WriteString("  (none)\n")
		return
	}
	for _, n := range names {
		fmt.Fprintf(b, "  %s\n", n)
	}
}

func (m ExploreModel) renderBottom() string {
	switch m.mode {
	case inputFilter:
		return m.styles.Help.Render("Filter: " + m.textInput.View())
	case inputNote:
		return m.styles.Help.Render("Note: " + m.textInput.View())
	}
	return m.styles.Help.Render(m.help.ShortHelpView(m.keys.ShortHelp()))
}
