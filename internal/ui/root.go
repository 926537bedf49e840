package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	log "github.com/sirupsen/logrus"

	"github.com/dori/vikta/internal/app"
	"github.com/dori/vikta/internal/ui/theme"
	"github.com/dori/vikta/internal/ui/views"
)

// RootModel is the main application model
type RootModel struct {
	app    *app.App
	keys   KeyMap
	help   help.Model
	width  int
	height int

	tasks       views.TasksView
	helpVisible bool

	statusMsg string
}

// NewRootModel creates a new root model
func NewRootModel(application *app.App) RootModel {
	h := help.New()
	h.ShowAll = false

	return RootModel{
		app:   application,
		keys:  DefaultKeyMap(),
		help:  h,
		tasks: views.NewTasksView(application.Service),
	}
}

// Init initializes the model
func (m RootModel) Init() tea.Cmd {
	return m.tasks.Init()
}

// Update handles messages
func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		log.Debugf("window resized to %dx%d", msg.Width, msg.Height)

		// Reserve space for header (2 lines) and footer (2 lines)
		contentHeight := m.height - 4
		m.tasks = m.tasks.SetSize(m.width, contentHeight)

	case tea.KeyMsg:
		// Clear status on any keypress
		m.statusMsg = ""

		isInputMode := m.tasks.IsInputMode()

		// Global keybindings
		switch {
		case key.Matches(msg, m.keys.Quit):
			// ctrl+c always quits, but 'q' only quits when not in input mode
			if msg.String() == "ctrl+c" || !isInputMode {
				return m, tea.Quit
			}
			// Otherwise, let the view handle 'q' as a character

		case key.Matches(msg, m.keys.ThemeCycle):
			// ctrl+t always works (unlikely to type)
			m.cycleTheme()
			return m, nil
		}

		if !isInputMode && key.Matches(msg, m.keys.Help) {
			m.helpVisible = !m.helpVisible
			m.help.ShowAll = m.helpVisible
			return m, nil
		}
	}

	// Delegate to the tasks view
	newView, cmd := m.tasks.Update(msg)
	m.tasks = newView.(views.TasksView)
	return m, cmd
}

// View renders the UI
func (m RootModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var sections []string

	header := m.renderHeader()
	sections = append(sections, header)

	// Reserve: 1 line for header + 3 lines for footer
	contentHeight := m.height - 4
	if m.statusMsg != "" {
		contentHeight--
	}
	var content string
	if m.helpVisible {
		content = m.renderHelp(contentHeight)
	} else {
		content = m.tasks.View()
	}

	// Ensure content fills available space
	contentLines := strings.Count(content, "\n") + 1
	if contentLines < contentHeight {
		content += strings.Repeat("\n", contentHeight-contentLines)
	}
	sections = append(sections, content)

	footer := m.renderFooter()
	sections = append(sections, footer)

	return strings.Join(sections, "\n")
}

// renderHeader renders the header bar
func (m RootModel) renderHeader() string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	title := styles.Header.Render("vikta")

	indicatorStyle := lipgloss.NewStyle().
		Foreground(t.Subtle).
		Padding(0, 1)

	// Filter and page indicator
	indicator := fmt.Sprintf("[%s]", m.tasks.Filter())
	if page, total := m.tasks.PageInfo(); total > 0 {
		indicator = fmt.Sprintf("[%s] page %d/%d", m.tasks.Filter(), page, total)
	}
	filterIndicator := indicatorStyle.Render(indicator)

	themeIndicator := indicatorStyle.Render(fmt.Sprintf("theme: %s", t.Name))

	leftSide := lipgloss.JoinHorizontal(lipgloss.Center, title, filterIndicator)
	rightSide := themeIndicator

	gap := m.width - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if gap < 0 {
		gap = 0
	}

	return leftSide + strings.Repeat(" ", gap) + rightSide
}

// renderFooter renders the footer/status bar
func (m RootModel) renderFooter() string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	// Helper to format key hints
	key := func(k, desc string) string {
		return styles.HelpKey.Render(k) + styles.HelpDesc.Render(" "+desc)
	}
	sep := styles.HelpSeparator.Render(" │ ")

	var statusLine string
	if m.statusMsg != "" {
		statusLine = lipgloss.NewStyle().Foreground(t.Info).Render(m.statusMsg)
	}

	var line1, line2 string
	if m.tasks.IsInputMode() {
		line1 = key("enter", "save") + sep +
			key("tab", "field") + sep +
			key("esc", "cancel")
	} else {
		line1 = key("a", "add") + sep +
			key("enter", "details") + sep +
			key("x", "toggle done") + sep +
			key("t", "done/undone") + sep +
			key("r", "refresh")
		line2 = key("n/p", "page") + sep +
			key("j/k", "navigate") + sep +
			key("ctrl+t", "theme") + sep +
			key("?", "help") + sep +
			key("q", "quit")
	}

	var lines []string
	if statusLine != "" {
		lines = append(lines, statusLine)
	}
	if line1 != "" {
		lines = append(lines, line1)
	}
	if line2 != "" {
		lines = append(lines, line2)
	}

	return strings.Join(lines, "\n")
}

// renderHelp renders the help overlay
func (m RootModel) renderHelp(height int) string {
	t := theme.Current.Theme

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Primary).
		MarginBottom(1)

	sectionStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Secondary).
		MarginTop(1)

	keyStyle := lipgloss.NewStyle().
		Foreground(t.Foreground).
		Bold(true).
		Width(16)

	descStyle := lipgloss.NewStyle().
		Foreground(t.Subtle)

	var b strings.Builder

	b.WriteString(titleStyle.Render("Vikta Help"))
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render("Navigation"))
	b.WriteString("\n")
	navKeys := [][]string{
		{"↑/k ↓/j", "Move up/down"},
		{"g / G", "Go to top/bottom"},
		{"n / p", "Next/previous page"},
		{"J / K", "Scroll the detail pane"},
	}
	for _, kv := range navKeys {
		b.WriteString(keyStyle.Render(kv[0]))
		b.WriteString(descStyle.Render(kv[1]))
		b.WriteString("\n")
	}

	b.WriteString(sectionStyle.Render("Tasks"))
	b.WriteString("\n")
	actionKeys := [][]string{
		{"a", "Add a new task"},
		{"enter", "View task details"},
		{"x", "Toggle done"},
		{"t", "Switch between done and undone"},
		{"r", "Refresh the current page"},
	}
	for _, kv := range actionKeys {
		b.WriteString(keyStyle.Render(kv[0]))
		b.WriteString(descStyle.Render(kv[1]))
		b.WriteString("\n")
	}

	b.WriteString(sectionStyle.Render("Quick Add"))
	b.WriteString("\n")
	quickKeys := [][]string{
		{"!1 .. !5", "Set priority (5 is highest)"},
		{"due:2025-03-01", "Set the due date"},
	}
	for _, kv := range quickKeys {
		b.WriteString(keyStyle.Render(kv[0]))
		b.WriteString(descStyle.Render(kv[1]))
		b.WriteString("\n")
	}
	b.WriteString(descStyle.Render("Tokens are removed from the title: \"Pay rent !2 due:2025-03-01\""))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("System"))
	b.WriteString("\n")
	sysKeys := [][]string{
		{"ctrl+t", "Cycle theme"},
		{"q / ctrl+c", "Quit"},
	}
	for _, kv := range sysKeys {
		b.WriteString(keyStyle.Render(kv[0]))
		b.WriteString(descStyle.Render(kv[1]))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(descStyle.Render("Press ? to close"))

	return b.String()
}

// cycleTheme cycles through available themes
func (m *RootModel) cycleTheme() {
	themes := theme.Available()
	current := theme.Current.Theme.Name

	for i, t := range themes {
		if t.Name == current {
			next := themes[(i+1)%len(themes)]
			theme.SetTheme(next)
			m.statusMsg = fmt.Sprintf("Theme: %s", next.Name)
			log.Debugf("theme switched to %s", next.Name)
			return
		}
	}
}
