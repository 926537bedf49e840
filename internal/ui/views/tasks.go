package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	log "github.com/sirupsen/logrus"

	"github.com/dori/vikta/internal/model"
	"github.com/dori/vikta/internal/quickadd"
	"github.com/dori/vikta/internal/service"
	"github.com/dori/vikta/internal/ui/theme"
)

// TasksMode represents the current input mode of the tasks view
type TasksMode int

const (
	TasksModeNormal TasksMode = iota
	TasksModeAdd
)

// Add-form fields
const (
	fieldTitle = iota
	fieldDescription
)

// phase is the loading state of the task list. Exactly one variant is
// active at a time. An error keeps the previously loaded page on screen.
type phase interface{ isPhase() }

type phaseLoading struct{}
type phaseReady struct{}
type phaseError struct{ err error }

func (phaseLoading) isPhase() {}
func (phaseReady) isPhase()   {}
func (phaseError) isPhase()   {}

// TasksView displays one page of tasks next to a detail pane
type TasksView struct {
	svc    service.Service
	width  int
	height int

	filter model.Filter
	page   model.Page // last page applied, replaced wholesale
	phase  phase

	cursor       int
	scrollOffset int // First visible task index

	// seq tags every list request; responses carrying an older tag are
	// dropped, so the newest request always wins regardless of arrival
	// order. reqPage is the page of the newest accepted request.
	seq     int
	reqPage int

	mode        TasksMode
	titleInput  textinput.Model
	descInput   textinput.Model
	activeField int
	submitting  bool

	spin spinner.Model

	detail    *model.Task // loaded detail shown in the right pane
	detailSeq int
	detailVP  viewport.Model

	statusMsg string
	errorMsg  string
}

// NewTasksView creates a new tasks view
func NewTasksView(svc service.Service) TasksView {
	ti := textinput.New()
	ti.Placeholder = "New task..."
	ti.CharLimit = 256

	di := textinput.New()
	di.Placeholder = "Description (optional)"
	di.CharLimit = 512

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Current.Theme.Primary)

	return TasksView{
		svc:        svc,
		filter:     model.ShowIncomplete,
		phase:      phaseLoading{},
		reqPage:    1,
		titleInput: ti,
		descInput:  di,
		spin:       sp,
	}
}

// Init initializes the tasks view
func (v TasksView) Init() tea.Cmd {
	return tea.Batch(v.spin.Tick, v.loadPage(v.reqPage))
}

// IsInputMode returns true when the view is capturing text input
func (v TasksView) IsInputMode() bool {
	return v.mode == TasksModeAdd
}

// Filter returns the active completion filter.
func (v TasksView) Filter() model.Filter {
	return v.filter
}

// PageInfo returns the applied page number and the total page count as
// last reported by the backend. The total is 0 before the first page
// arrives.
func (v TasksView) PageInfo() (int, int) {
	return v.page.Number, v.page.TotalPages
}

// SetSize updates the view dimensions
func (v TasksView) SetSize(width, height int) TasksView {
	v.width = width
	v.height = height
	v.titleInput.Width = width - 8
	v.descInput.Width = width - 8

	vpWidth := v.detailWidth() - 4
	if vpWidth < 10 {
		vpWidth = 10
	}
	vpHeight := height - 12
	if vpHeight < 3 {
		vpHeight = 3
	}
	v.detailVP.Width = vpWidth
	v.detailVP.Height = vpHeight
	return v
}

func (v TasksView) listWidth() int {
	return v.width * 65 / 100
}

func (v TasksView) detailWidth() int {
	return v.width - v.listWidth()
}

// visibleTaskCount returns how many tasks can fit in the viewport
func (v TasksView) visibleTaskCount() int {
	// Reserve lines for the pane title, messages and scroll indicators.
	available := v.height - 5
	if v.mode == TasksModeAdd {
		available -= 7
	}
	if available < 1 {
		available = 1
	}
	return available
}

// ensureCursorVisible adjusts scrollOffset to keep cursor in view
func (v *TasksView) ensureCursorVisible() {
	visible := v.visibleTaskCount()

	// Cursor above viewport - scroll up
	if v.cursor < v.scrollOffset {
		v.scrollOffset = v.cursor
	}

	// Cursor below viewport - scroll down
	if v.cursor >= v.scrollOffset+visible {
		v.scrollOffset = v.cursor - visible + 1
	}

	// Clamp scrollOffset
	if v.scrollOffset < 0 {
		v.scrollOffset = 0
	}
	maxOffset := len(v.page.Tasks) - visible
	if maxOffset < 0 {
		maxOffset = 0
	}
	if v.scrollOffset > maxOffset {
		v.scrollOffset = maxOffset
	}
}

// Update handles messages for the tasks view
func (v TasksView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tasksLoadedMsg:
		if msg.seq != v.seq {
			log.Debugf("dropping stale page response (seq %d, want %d)", msg.seq, v.seq)
			return v, nil
		}
		if msg.err != nil {
			v.phase = phaseError{err: msg.err}
			return v, nil
		}
		v.phase = phaseReady{}
		v.page = msg.page
		log.Debugf("applied page %d/%d (%d tasks)", msg.page.Number, msg.page.TotalPages, len(msg.page.Tasks))
		if v.cursor >= len(v.page.Tasks) {
			v.cursor = max(0, len(v.page.Tasks)-1)
		}
		v.ensureCursorVisible()
		return v, nil

	case taskCreatedMsg:
		v.submitting = false
		if msg.err != nil {
			// The form stays open with the draft intact.
			v.phase = phaseError{err: msg.err}
			return v, nil
		}
		v.mode = TasksModeNormal
		v.resetForm()
		v.statusMsg = fmt.Sprintf("Created %q", msg.task.Title)
		return v.refresh()

	case taskToggledMsg:
		if msg.err != nil {
			v.phase = phaseError{err: msg.err}
			return v, nil
		}
		log.Debugf("task %d done=%v", msg.id, msg.done)
		if msg.done {
			v.statusMsg = "Task completed"
		} else {
			v.statusMsg = "Task reopened"
		}
		return v.refresh()

	case detailLoadedMsg:
		if msg.seq != v.detailSeq {
			return v, nil
		}
		if msg.err != nil {
			v.errorMsg = msg.err.Error()
			return v, nil
		}
		task := msg.task
		v.detail = &task
		v.detailVP.SetContent(detailDescription(task))
		v.detailVP.GotoTop()
		return v, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spin, cmd = v.spin.Update(msg)
		return v, cmd

	case tea.KeyMsg:
		switch v.mode {
		case TasksModeAdd:
			return v.handleAddMode(msg)
		default:
			return v.handleNormalMode(msg)
		}
	}

	return v, nil
}

// handleNormalMode handles keypresses in normal mode
func (v TasksView) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Clear transient messages on any keypress
	v.statusMsg = ""
	v.errorMsg = ""

	switch msg.String() {
	// Navigation
	case "up", "k":
		if v.cursor > 0 {
			v.cursor--
			v.ensureCursorVisible()
		}
	case "down", "j":
		if v.cursor < len(v.page.Tasks)-1 {
			v.cursor++
			v.ensureCursorVisible()
		}
	case "g":
		v.cursor = 0
		v.ensureCursorVisible()
	case "G":
		v.cursor = max(0, len(v.page.Tasks)-1)
		v.ensureCursorVisible()

	// Detail pane scrolling
	case "J":
		v.detailVP.LineDown(1)
	case "K":
		v.detailVP.LineUp(1)

	// Pages
	case "n":
		return v.gotoPage(v.reqPage + 1)
	case "p":
		return v.gotoPage(v.reqPage - 1)

	// Actions
	case "t":
		next := model.ShowComplete
		if v.filter == model.ShowComplete {
			next = model.ShowIncomplete
		}
		return v.setFilter(next)
	case "r":
		return v.refresh()
	case "a":
		v.mode = TasksModeAdd
		v.activeField = fieldTitle
		v.titleInput.Focus()
		v.descInput.Blur()
		return v, textinput.Blink
	case "x":
		return v.toggleSelected()
	case "enter":
		return v.showDetails()
	}

	return v, nil
}

// handleAddMode handles keypresses while the add form is open
func (v TasksView) handleAddMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v.statusMsg = ""
	v.errorMsg = ""

	switch msg.String() {
	case "enter":
		if v.submitting {
			return v, nil
		}
		draft := quickadd.Parse(v.titleInput.Value())
		draft.Description = strings.TrimSpace(v.descInput.Value())
		v.submitting = true
		v.phase = phaseLoading{}
		return v, v.createTask(draft)
	case "esc":
		v.mode = TasksModeNormal
		v.resetForm()
		return v, nil
	case "tab":
		if v.activeField == fieldTitle {
			v.activeField = fieldDescription
			v.titleInput.Blur()
			v.descInput.Focus()
		} else {
			v.activeField = fieldTitle
			v.descInput.Blur()
			v.titleInput.Focus()
		}
		return v, textinput.Blink
	}

	var cmd tea.Cmd
	if v.activeField == fieldTitle {
		v.titleInput, cmd = v.titleInput.Update(msg)
	} else {
		v.descInput, cmd = v.descInput.Update(msg)
	}
	return v, cmd
}

// setFilter switches between incomplete and done tasks. Selecting the
// filter already shown does nothing. Otherwise the selection resets and
// page 1 of the new filter loads.
func (v TasksView) setFilter(f model.Filter) (tea.Model, tea.Cmd) {
	if f == v.filter {
		return v, nil
	}
	v.filter = f
	v.cursor = 0
	v.scrollOffset = 0
	v.detail = nil
	v.detailSeq++
	v.seq++
	v.reqPage = 1
	v.phase = phaseLoading{}
	return v, v.loadPage(1)
}

// gotoPage requests a 1-based page. Pages outside the last known range
// are rejected right here: the condition is reported, no request goes
// out and nothing else changes.
func (v TasksView) gotoPage(n int) (tea.Model, tea.Cmd) {
	if n < 1 || n > v.lastKnownTotal() {
		v.errorMsg = fmt.Sprintf("Page %d is out of range (1-%d)", n, v.lastKnownTotal())
		return v, nil
	}
	v.seq++
	v.reqPage = n
	v.phase = phaseLoading{}
	return v, v.loadPage(n)
}

// lastKnownTotal is the page count of the last applied page. Before
// anything has loaded only page 1 can be assumed to exist.
func (v TasksView) lastKnownTotal() int {
	if v.page.TotalPages < 1 {
		return 1
	}
	return v.page.TotalPages
}

// refresh re-fetches the current page with the current filter.
func (v TasksView) refresh() (tea.Model, tea.Cmd) {
	v.seq++
	v.phase = phaseLoading{}
	return v, v.loadPage(v.reqPage)
}

// toggleSelected flips the done state of the task under the cursor. The
// page is never mutated locally; the follow-up refresh brings back the
// authoritative state.
func (v TasksView) toggleSelected() (tea.Model, tea.Cmd) {
	if len(v.page.Tasks) == 0 {
		return v, nil
	}
	t := v.page.Tasks[v.cursor]
	v.phase = phaseLoading{}
	return v, v.toggleTask(t.ID, !t.Done)
}

// showDetails fetches the full task under the cursor for the detail pane.
func (v TasksView) showDetails() (tea.Model, tea.Cmd) {
	if len(v.page.Tasks) == 0 {
		return v, nil
	}
	v.detailSeq++
	return v, v.loadDetail(v.page.Tasks[v.cursor].ID)
}

func (v *TasksView) resetForm() {
	v.titleInput.SetValue("")
	v.descInput.SetValue("")
	v.titleInput.Blur()
	v.descInput.Blur()
	v.activeField = fieldTitle
	v.submitting = false
}

// View renders the tasks view
func (v TasksView) View() string {
	var b strings.Builder

	if v.mode == TasksModeAdd {
		b.WriteString(v.renderAddForm())
		b.WriteString("\n")
	}

	list := v.renderList()
	if v.width >= 60 {
		detail := v.renderDetail()
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, list, detail))
	} else {
		b.WriteString(list)
	}

	return b.String()
}

// renderAddForm renders the two-field create form above the panes
func (v TasksView) renderAddForm() string {
	styles := theme.Current.Styles

	titleBox := styles.Input
	descBox := styles.Input
	if v.activeField == fieldTitle {
		titleBox = styles.InputFocused
	} else {
		descBox = styles.InputFocused
	}

	var b strings.Builder
	b.WriteString(titleBox.Render(v.titleInput.View()))
	b.WriteString("\n")
	b.WriteString(descBox.Render(v.descInput.View()))
	b.WriteString("\n")
	b.WriteString(styles.Placeholder.Render("tab switch field • enter save • esc cancel"))
	b.WriteString("\n")
	return b.String()
}

// renderList renders the left pane: banner, status and the task page
func (v TasksView) renderList() string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	var b strings.Builder

	b.WriteString(styles.PanelTitle.Render(fmt.Sprintf("Tasks (%s)", v.filter)))
	b.WriteString("\n")

	// Phase banner
	switch ph := v.phase.(type) {
	case phaseLoading:
		loadStyle := lipgloss.NewStyle().Foreground(t.Subtle)
		b.WriteString(v.spin.View())
		b.WriteString(loadStyle.Render(" Loading..."))
		b.WriteString("\n\n")
	case phaseError:
		errStyle := lipgloss.NewStyle().Foreground(t.Error).Bold(true)
		b.WriteString(errStyle.Render(fmt.Sprintf("Error: %v", ph.err)))
		b.WriteString("\n\n")
	}

	// Transient messages
	if v.errorMsg != "" {
		errStyle := lipgloss.NewStyle().Foreground(t.Error)
		b.WriteString(errStyle.Render(v.errorMsg))
		b.WriteString("\n\n")
	} else if v.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().Foreground(t.Info).Italic(true)
		b.WriteString(statusStyle.Render(v.statusMsg))
		b.WriteString("\n\n")
	}

	// Task list
	if len(v.page.Tasks) == 0 {
		emptyStyle := lipgloss.NewStyle().
			Foreground(t.Subtle).
			Italic(true).
			Padding(2, 0)
		if _, ok := v.phase.(phaseReady); ok {
			b.WriteString(emptyStyle.Render("No tasks. Press 'a' to add one."))
		}
	} else {
		visible := v.visibleTaskCount()
		endIdx := v.scrollOffset + visible
		if endIdx > len(v.page.Tasks) {
			endIdx = len(v.page.Tasks)
		}

		// Show scroll indicator if there are tasks above
		if v.scrollOffset > 0 {
			scrollStyle := lipgloss.NewStyle().Foreground(t.Subtle)
			b.WriteString(scrollStyle.Render(fmt.Sprintf("  ↑ %d more above", v.scrollOffset)))
			b.WriteString("\n")
		}

		// Render visible tasks
		for i := v.scrollOffset; i < endIdx; i++ {
			b.WriteString(v.renderTask(v.page.Tasks[i], i == v.cursor))
			b.WriteString("\n")
		}

		// Show scroll indicator if there are tasks below
		remaining := len(v.page.Tasks) - endIdx
		if remaining > 0 {
			scrollStyle := lipgloss.NewStyle().Foreground(t.Subtle)
			b.WriteString(scrollStyle.Render(fmt.Sprintf("  ↓ %d more below", remaining)))
			b.WriteString("\n")
		}
	}

	width := v.listWidth()
	if v.width < 60 {
		width = v.width
	}
	return lipgloss.NewStyle().Width(width).Render(b.String())
}

// renderTask renders one task line
func (v TasksView) renderTask(task model.Task, isCursor bool) string {
	t := theme.Current.Theme
	styles := theme.Current.Styles

	cursorMark := "  "
	if isCursor {
		cursorMark = "> "
	}

	// Checkbox
	checkbox := "[ ]"
	if task.Done {
		checkbox = "[x]"
	}

	// Priority indicator
	priority := "  "
	if task.HasPriority() {
		priority = lipgloss.NewStyle().
			Foreground(t.Priority(task.Priority)).
			Render(fmt.Sprintf("!%d", task.Priority))
	}

	// Title
	titleStyle := styles.TaskNormal
	if task.Done {
		titleStyle = styles.TaskDone
	} else if task.IsOverdue() {
		titleStyle = styles.TaskOverdue
	}

	// Due date
	var dueStr string
	if task.DueDate != nil {
		dueStyle := lipgloss.NewStyle().Foreground(t.Subtle)
		if task.IsOverdue() {
			dueStyle = lipgloss.NewStyle().Foreground(t.Error)
		} else if task.IsDueToday() {
			dueStyle = lipgloss.NewStyle().Foreground(t.Warning)
		}
		dueStr = " " + dueStyle.Render(task.DueDate.Format("2006-01-02"))
	}

	line := fmt.Sprintf("%s%s %s %s%s",
		cursorMark,
		checkbox,
		priority,
		titleStyle.Render(task.Title),
		dueStr,
	)

	if isCursor {
		return styles.TaskSelected.Render(line)
	}
	return line
}

// renderDetail renders the right pane with the fetched task details
func (v TasksView) renderDetail() string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	width := v.detailWidth() - 2
	if width < 10 {
		width = 10
	}

	var b strings.Builder
	b.WriteString(styles.PanelTitle.Render("Details"))
	b.WriteString("\n")

	if v.detail == nil {
		hintStyle := lipgloss.NewStyle().Foreground(t.Subtle).Italic(true)
		b.WriteString(hintStyle.Render("Press enter on a task to view its details."))
		return styles.PanelBorder.Width(width).Render(b.String())
	}

	d := v.detail

	titleStyle := lipgloss.NewStyle().Foreground(t.Foreground).Bold(true)
	b.WriteString(titleStyle.Render(d.Title))
	if d.Done {
		doneStyle := lipgloss.NewStyle().Foreground(t.Success).Bold(true)
		b.WriteString(doneStyle.Render("  DONE"))
	}
	b.WriteString("\n\n")

	b.WriteString(styles.Label.Render("Due Date: "))
	if d.DueDate != nil {
		b.WriteString(styles.DueDate.Render(d.DueDate.Format("2006-01-02")))
	} else {
		b.WriteString("No due date")
	}
	b.WriteString("\n")

	b.WriteString(styles.Label.Render("Priority: "))
	if d.HasPriority() {
		prioStyle := styles.Priority.Foreground(t.Priority(d.Priority))
		b.WriteString(prioStyle.Render(fmt.Sprintf("%d", d.Priority)))
	} else {
		b.WriteString("No priority")
	}
	b.WriteString("\n")

	b.WriteString(styles.Label.Render("Labels: "))
	if len(d.Labels) > 0 {
		var chips []string
		for _, l := range d.Labels {
			chips = append(chips, styles.Chip.Render(l.Title))
		}
		b.WriteString(strings.Join(chips, ""))
	} else {
		b.WriteString("No labels")
	}
	b.WriteString("\n\n")

	b.WriteString(styles.Label.Render("Description:"))
	b.WriteString("\n")
	b.WriteString(v.detailVP.View())

	return styles.PanelBorder.Width(width).Render(b.String())
}

// detailDescription is the text shown in the description viewport.
func detailDescription(task model.Task) string {
	if task.Description == "" {
		return "No description"
	}
	return task.Description
}

// Service commands

type tasksLoadedMsg struct {
	page model.Page
	seq  int
	err  error
}

type taskCreatedMsg struct {
	task model.Task
	err  error
}

type taskToggledMsg struct {
	id   int64
	done bool
	err  error
}

type detailLoadedMsg struct {
	task model.Task
	seq  int
	err  error
}

func (v TasksView) loadPage(page int) tea.Cmd {
	svc, filter, seq := v.svc, v.filter, v.seq
	return func() tea.Msg {
		log.Debugf("loading page %d (%s), seq %d", page, filter, seq)
		p, err := svc.List(context.Background(), filter, page)
		return tasksLoadedMsg{page: p, seq: seq, err: err}
	}
}

func (v TasksView) createTask(draft model.TaskDraft) tea.Cmd {
	svc := v.svc
	return func() tea.Msg {
		task, err := svc.Create(context.Background(), draft)
		return taskCreatedMsg{task: task, err: err}
	}
}

func (v TasksView) toggleTask(id int64, done bool) tea.Cmd {
	svc := v.svc
	return func() tea.Msg {
		err := svc.SetDone(context.Background(), id, done)
		return taskToggledMsg{id: id, done: done, err: err}
	}
}

func (v TasksView) loadDetail(id int64) tea.Cmd {
	svc, seq := v.svc, v.detailSeq
	return func() tea.Msg {
		task, err := svc.GetDetails(context.Background(), id)
		return detailLoadedMsg{task: task, seq: seq, err: err}
	}
}
