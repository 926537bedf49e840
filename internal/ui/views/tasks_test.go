package views

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/dori/vikta/internal/model"
	"github.com/dori/vikta/internal/service"
	"github.com/dori/vikta/internal/testutil"
)

// Rendered output must not depend on the terminal the tests run in.
func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

func seededFake(n int) *testutil.FakeService {
	svc := testutil.NewFakeService()
	for i := 1; i <= n; i++ {
		svc.AddTask(model.Task{Title: fmt.Sprintf("task %d", i)})
	}
	return svc
}

// newReadyView builds a view with the first page already applied.
func newReadyView(t *testing.T, svc service.Service) TasksView {
	t.Helper()
	v := NewTasksView(svc)
	v = v.SetSize(100, 30)
	m, _ := v.Update(v.loadPage(v.reqPage)())
	return m.(TasksView)
}

func press(t *testing.T, v TasksView, key string) (TasksView, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	m, cmd := v.Update(msg)
	return m.(TasksView), cmd
}

// apply runs a command, feeds its message back into the view and returns
// the follow-up command, if any.
func apply(t *testing.T, v TasksView, cmd tea.Cmd) (TasksView, tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command, got nil")
	}
	m, next := v.Update(cmd())
	return m.(TasksView), next
}

func TestInitialLoadShowsFirstPage(t *testing.T) {
	svc := seededFake(7)
	v := newReadyView(t, svc)

	if _, ok := v.phase.(phaseReady); !ok {
		t.Fatalf("phase = %T, want phaseReady", v.phase)
	}
	if v.page.Number != 1 {
		t.Errorf("page number = %d, want 1", v.page.Number)
	}
	if v.page.TotalPages != 2 {
		t.Errorf("total pages = %d, want 2", v.page.TotalPages)
	}
	if len(v.page.Tasks) != testutil.DefaultPageSize {
		t.Errorf("got %d tasks, want %d", len(v.page.Tasks), testutil.DefaultPageSize)
	}
	if svc.ListCalls != 1 {
		t.Errorf("ListCalls = %d, want 1", svc.ListCalls)
	}
}

func TestSetFilterSameFilterIsNoOp(t *testing.T) {
	svc := seededFake(3)
	v := newReadyView(t, svc)

	m, cmd := v.setFilter(model.ShowIncomplete)
	got := m.(TasksView)

	if cmd != nil {
		t.Error("expected no command for the active filter")
	}
	if got.seq != v.seq {
		t.Errorf("seq = %d, want %d", got.seq, v.seq)
	}
	if svc.ListCalls != 1 {
		t.Errorf("ListCalls = %d, want 1", svc.ListCalls)
	}
}

func TestFilterSwitchResetsSelection(t *testing.T) {
	svc := seededFake(4)
	svc.AddTask(model.Task{Title: "finished thing", Done: true})
	v := newReadyView(t, svc)

	v, _ = press(t, v, "j")
	v, _ = press(t, v, "j")
	if v.cursor != 2 {
		t.Fatalf("cursor = %d, want 2", v.cursor)
	}

	v, cmd := press(t, v, "t")
	if v.cursor != 0 {
		t.Errorf("cursor = %d, want 0 after filter switch", v.cursor)
	}
	if _, ok := v.phase.(phaseLoading); !ok {
		t.Errorf("phase = %T, want phaseLoading", v.phase)
	}

	v, _ = apply(t, v, cmd)
	if len(v.page.Tasks) != 1 || !v.page.Tasks[0].Done {
		t.Fatalf("expected the single done task, got %+v", v.page.Tasks)
	}
	if v.filter != model.ShowComplete {
		t.Errorf("filter = %v, want ShowComplete", v.filter)
	}
}

func TestGotoPageOutOfRangeIsRejected(t *testing.T) {
	svc := seededFake(7) // two pages
	v := newReadyView(t, svc)

	// Page 0 does not exist.
	m, cmd := press(t, v, "p")
	if cmd != nil {
		t.Error("expected no command for page 0")
	}
	if _, ok := m.phase.(phaseReady); !ok {
		t.Errorf("phase = %T, want phaseReady untouched", m.phase)
	}
	if !strings.Contains(m.errorMsg, "out of range") {
		t.Errorf("errorMsg = %q, want the rejection reported", m.errorMsg)
	}

	// Page 2 exists.
	v, cmd = press(t, v, "n")
	v, _ = apply(t, v, cmd)
	if v.page.Number != 2 {
		t.Fatalf("page number = %d, want 2", v.page.Number)
	}

	// Page 3 does not.
	calls := svc.ListCalls
	v, cmd = press(t, v, "n")
	if cmd != nil {
		t.Error("expected no command past the last page")
	}
	if svc.ListCalls != calls {
		t.Errorf("ListCalls = %d, want %d", svc.ListCalls, calls)
	}
	if v.page.Number != 2 {
		t.Errorf("page number = %d, want 2", v.page.Number)
	}
	if !strings.Contains(v.errorMsg, "out of range") {
		t.Errorf("errorMsg = %q, want the rejection reported", v.errorMsg)
	}
	if _, ok := v.phase.(phaseReady); !ok {
		t.Errorf("phase = %T, want phaseReady untouched", v.phase)
	}
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	svc := seededFake(7)
	svc.AddTask(model.Task{Title: "finished thing", Done: true})
	v := newReadyView(t, svc)

	// First request: page 2 of the incomplete tasks.
	v, cmdA := press(t, v, "n")

	// Second request before the first resolves: switch to done tasks.
	v, cmdB := press(t, v, "t")

	msgA := cmdA()
	msgB := cmdB()

	// The newer response lands first.
	next, _ := v.Update(msgB)
	v = next.(TasksView)
	if _, ok := v.phase.(phaseReady); !ok {
		t.Fatalf("phase = %T, want phaseReady", v.phase)
	}
	if len(v.page.Tasks) != 1 || v.page.Tasks[0].Title != "finished thing" {
		t.Fatalf("expected the done page, got %+v", v.page.Tasks)
	}

	// The stale response must not overwrite it.
	next, _ = v.Update(msgA)
	v = next.(TasksView)
	if len(v.page.Tasks) != 1 || v.page.Tasks[0].Title != "finished thing" {
		t.Errorf("stale response overwrote the page: %+v", v.page.Tasks)
	}
}

func TestStaleErrorDoesNotFlipPhase(t *testing.T) {
	svc := seededFake(3)
	v := newReadyView(t, svc)

	v, cmdA := press(t, v, "r")
	svc.ListErr = errors.New("socket closed")
	msgA := cmdA() // resolves to an error

	svc.ListErr = nil
	v, cmdB := press(t, v, "r")
	msgB := cmdB()

	next, _ := v.Update(msgB)
	v = next.(TasksView)
	next, _ = v.Update(msgA)
	v = next.(TasksView)

	if _, ok := v.phase.(phaseReady); !ok {
		t.Errorf("phase = %T, want phaseReady after a stale error", v.phase)
	}
}

func TestLoadErrorPreservesPage(t *testing.T) {
	svc := seededFake(5)
	v := newReadyView(t, svc)
	v, _ = press(t, v, "j")

	svc.ListErr = errors.New("gateway timeout")
	v, cmd := press(t, v, "r")
	v, _ = apply(t, v, cmd)

	pe, ok := v.phase.(phaseError)
	if !ok {
		t.Fatalf("phase = %T, want phaseError", v.phase)
	}
	if pe.err == nil {
		t.Fatal("phaseError carries no error")
	}
	if len(v.page.Tasks) != 5 {
		t.Errorf("got %d tasks, want the previous 5", len(v.page.Tasks))
	}
	if v.cursor != 1 {
		t.Errorf("cursor = %d, want 1 preserved", v.cursor)
	}

	// Retry recovers.
	svc.ListErr = nil
	v, cmd = press(t, v, "r")
	v, _ = apply(t, v, cmd)
	if _, ok := v.phase.(phaseReady); !ok {
		t.Errorf("phase = %T, want phaseReady after retry", v.phase)
	}
}

func TestSubmitCreatesAndRefreshes(t *testing.T) {
	svc := testutil.NewFakeService()
	v := newReadyView(t, svc)

	v, _ = press(t, v, "a")
	if !v.IsInputMode() {
		t.Fatal("expected input mode after 'a'")
	}
	v.titleInput.SetValue("Pay rent !2 due:2025-03-01")
	v.descInput.SetValue("  transfer before noon  ")

	v, cmd := press(t, v, "enter")
	if !v.submitting {
		t.Error("expected submitting to be set while the create is in flight")
	}
	if _, ok := v.phase.(phaseLoading); !ok {
		t.Errorf("phase = %T, want phaseLoading while the create is in flight", v.phase)
	}

	v, followUp := apply(t, v, cmd)
	if v.IsInputMode() {
		t.Error("expected the form to close after a successful create")
	}
	if !strings.Contains(v.statusMsg, "Pay rent") {
		t.Errorf("statusMsg = %q, want it to name the created task", v.statusMsg)
	}
	if svc.CreateCalls != 1 {
		t.Fatalf("CreateCalls = %d, want 1", svc.CreateCalls)
	}

	created, ok := svc.Task(1)
	if !ok {
		t.Fatal("created task not stored")
	}
	if created.Title != "Pay rent" {
		t.Errorf("title = %q, want %q", created.Title, "Pay rent")
	}
	if created.Priority != 2 {
		t.Errorf("priority = %d, want 2", created.Priority)
	}
	want := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if created.DueDate == nil || !created.DueDate.Equal(want) {
		t.Errorf("due date = %v, want %v", created.DueDate, want)
	}
	if created.Description != "transfer before noon" {
		t.Errorf("description = %q, want it trimmed", created.Description)
	}

	// The successful create triggered a refresh.
	if _, ok := v.phase.(phaseLoading); !ok {
		t.Fatalf("phase = %T, want phaseLoading during the refresh", v.phase)
	}
	v, _ = apply(t, v, followUp)
	if len(v.page.Tasks) != 1 || v.page.Tasks[0].Title != "Pay rent" {
		t.Errorf("refreshed page = %+v, want the created task", v.page.Tasks)
	}
}

func TestSubmitEmptyTitleKeepsFormOpen(t *testing.T) {
	svc := seededFake(2)
	v := newReadyView(t, svc)

	v, _ = press(t, v, "a")
	v.titleInput.SetValue("   !3  ") // a token but no title left

	v, cmd := press(t, v, "enter")
	if cmd == nil {
		t.Fatal("expected a create command")
	}

	msg := cmd().(taskCreatedMsg)
	var ve *service.ValidationError
	if !errors.As(msg.err, &ve) {
		t.Fatalf("err = %v, want a *service.ValidationError", msg.err)
	}

	next, _ := v.Update(msg)
	v = next.(TasksView)
	if !v.IsInputMode() {
		t.Error("expected the form to stay open after a rejected draft")
	}
	pe, ok := v.phase.(phaseError)
	if !ok {
		t.Fatalf("phase = %T, want phaseError", v.phase)
	}
	if !errors.As(pe.err, &ve) {
		t.Errorf("phase error = %v, want the validation error surfaced", pe.err)
	}
	if v.submitting {
		t.Error("expected submitting to clear so the draft can be fixed")
	}
	if len(v.page.Tasks) != 2 {
		t.Errorf("got %d tasks, want the page unchanged", len(v.page.Tasks))
	}
}

func TestToggleRoundTrip(t *testing.T) {
	svc := seededFake(2)
	v := newReadyView(t, svc)

	v, cmd := press(t, v, "x")
	v, followUp := apply(t, v, cmd)
	if svc.SetDoneCalls != 1 {
		t.Fatalf("SetDoneCalls = %d, want 1", svc.SetDoneCalls)
	}
	if v.statusMsg != "Task completed" {
		t.Errorf("statusMsg = %q, want %q", v.statusMsg, "Task completed")
	}

	// The follow-up refresh drops the now-done task from the incomplete page.
	v, _ = apply(t, v, followUp)
	if len(v.page.Tasks) != 1 {
		t.Errorf("got %d tasks after toggle, want 1", len(v.page.Tasks))
	}
	for _, task := range v.page.Tasks {
		if task.Done {
			t.Errorf("done task %q still on the incomplete page", task.Title)
		}
	}
}

func TestToggleOnEmptyPageIsNoOp(t *testing.T) {
	svc := testutil.NewFakeService()
	v := newReadyView(t, svc)

	_, cmd := press(t, v, "x")
	if cmd != nil {
		t.Error("expected no command on an empty page")
	}
	if svc.SetDoneCalls != 0 {
		t.Errorf("SetDoneCalls = %d, want 0", svc.SetDoneCalls)
	}
}

func TestToggleFailureKeepsPage(t *testing.T) {
	svc := seededFake(3)
	v := newReadyView(t, svc)
	v, _ = press(t, v, "j")

	svc.SetDoneErr = errors.New("task locked")
	v, cmd := press(t, v, "x")
	if _, ok := v.phase.(phaseLoading); !ok {
		t.Errorf("phase = %T, want phaseLoading while the toggle is in flight", v.phase)
	}

	v, followUp := apply(t, v, cmd)
	if followUp != nil {
		t.Error("expected no refresh after a failed toggle")
	}
	if _, ok := v.phase.(phaseError); !ok {
		t.Fatalf("phase = %T, want phaseError", v.phase)
	}
	if len(v.page.Tasks) != 3 {
		t.Errorf("got %d tasks, want the previous 3", len(v.page.Tasks))
	}
	if v.cursor != 1 {
		t.Errorf("cursor = %d, want 1 preserved", v.cursor)
	}
	if v.page.Tasks[1].Done {
		t.Error("task flipped locally despite the failure")
	}
}

func TestCursorClampsToShorterPage(t *testing.T) {
	svc := seededFake(6) // pages of 5 and 1
	v := newReadyView(t, svc)

	v, _ = press(t, v, "G")
	if v.cursor != 4 {
		t.Fatalf("cursor = %d, want 4", v.cursor)
	}

	v, cmd := press(t, v, "n")
	v, _ = apply(t, v, cmd)
	if len(v.page.Tasks) != 1 {
		t.Fatalf("got %d tasks on page 2, want 1", len(v.page.Tasks))
	}
	if v.cursor != 0 {
		t.Errorf("cursor = %d, want 0 after clamping", v.cursor)
	}
}

func TestDetailsLoadForSelectedTask(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask(model.Task{
		Title:       "Ask landlord",
		Priority:    4,
		Description: "Ask about the fee",
		Labels:      []model.Label{{ID: 1, Title: "home"}},
	})
	v := newReadyView(t, svc)

	v, cmd := press(t, v, "enter")
	v, _ = apply(t, v, cmd)

	if svc.GetDetailsCalls != 1 {
		t.Fatalf("GetDetailsCalls = %d, want 1", svc.GetDetailsCalls)
	}
	if v.detail == nil || v.detail.Title != "Ask landlord" {
		t.Fatalf("detail = %+v, want the selected task", v.detail)
	}

	out := v.View()
	for _, want := range []string{"Details", "Ask landlord", "home", "No due date", "Ask about the fee"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestStaleDetailResponseIsDiscarded(t *testing.T) {
	svc := seededFake(2)
	v := newReadyView(t, svc)

	v, cmdA := press(t, v, "enter") // detail for task 1
	v, _ = press(t, v, "j")
	v, cmdB := press(t, v, "enter") // detail for task 2

	msgA := cmdA()
	msgB := cmdB()

	next, _ := v.Update(msgB)
	v = next.(TasksView)
	next, _ = v.Update(msgA)
	v = next.(TasksView)

	if v.detail == nil || v.detail.Title != "task 2" {
		t.Errorf("detail = %+v, want task 2 to win", v.detail)
	}
}

func TestViewEmptyState(t *testing.T) {
	svc := testutil.NewFakeService()
	v := newReadyView(t, svc)

	out := v.View()
	if !strings.Contains(out, "Tasks (Incomplete)") {
		t.Error("view missing the pane title")
	}
	if !strings.Contains(out, "No tasks. Press 'a' to add one.") {
		t.Error("view missing the empty state hint")
	}
}

func TestViewScrollIndicators(t *testing.T) {
	svc := seededFake(12)
	svc.PageSize = 20
	v := NewTasksView(svc)
	v = v.SetSize(100, 10) // room for 5 task lines
	m, _ := v.Update(v.loadPage(v.reqPage)())
	v = m.(TasksView)

	out := v.View()
	if !strings.Contains(out, "↓ 7 more below") {
		t.Errorf("view missing the below indicator:\n%s", out)
	}

	v, _ = press(t, v, "G")
	out = v.View()
	if !strings.Contains(out, "↑ 7 more above") {
		t.Errorf("view missing the above indicator:\n%s", out)
	}
}

func TestViewErrorBanner(t *testing.T) {
	svc := seededFake(1)
	v := newReadyView(t, svc)

	svc.ListErr = errors.New("connection refused")
	v, cmd := press(t, v, "r")
	v, _ = apply(t, v, cmd)

	out := v.View()
	if !strings.Contains(out, "connection refused") {
		t.Error("view missing the load error")
	}
	if !strings.Contains(out, "task 1") {
		t.Error("view no longer shows the previous page")
	}
}
