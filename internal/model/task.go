package model

import (
	"time"
)

// Filter selects which completion state the task list shows. Exactly one
// filter is active at a time; switching it invalidates the current page.
type Filter int

const (
	ShowIncomplete Filter = iota
	ShowComplete
)

// Done reports the completion state the filter asks the service for.
func (f Filter) Done() bool {
	return f == ShowComplete
}

// String returns the display name for a filter
func (f Filter) String() string {
	switch f {
	case ShowComplete:
		return "Done"
	default:
		return "Incomplete"
	}
}

// Task is a single task as reported by the remote service. The service owns
// the data; the client only ever holds a read-through copy and never mutates
// one in place.
type Task struct {
	ID          int64 // assigned by the service, never reused
	Title       string
	Description string // plain text; adapters flatten any markup
	Done        bool
	Priority    int        // 0 = unset, 1 (lowest) to 5 (highest)
	DueDate     *time.Time // nil = no due date; date precision only
	Labels      []Label
}

// HasPriority reports whether an explicit priority is set.
func (t *Task) HasPriority() bool {
	return t.Priority >= 1 && t.Priority <= 5
}

// IsOverdue returns true if the task is past its due date and still open.
// A task is overdue once the calendar day its due date names has passed,
// whether the stored time is midnight or an end-of-day timestamp.
func (t *Task) IsOverdue() bool {
	if t.DueDate == nil || t.Done {
		return false
	}
	d := t.DueDate.UTC()
	end := time.Date(d.Year(), d.Month(), d.Day()+1, 0, 0, 0, 0, time.UTC)
	return !time.Now().UTC().Before(end)
}

// IsDueToday returns true if the task is due today
func (t *Task) IsDueToday() bool {
	if t.DueDate == nil {
		return false
	}
	now := time.Now().UTC()
	return t.DueDate.Year() == now.Year() &&
		t.DueDate.YearDay() == now.YearDay()
}

// TaskDraft is an unsaved, client-side task awaiting submission. The
// quick-add parser builds one from the title line; the add form merges the
// separately entered description in before the draft is submitted, and the
// draft is discarded afterwards.
type TaskDraft struct {
	Title       string
	Priority    int        // 0 = unset, 1-5 set
	DueDate     *time.Time // date precision; end-of-day applied on the wire
	Description string
}

// Page is one fetched, bounded slice of the filtered task list, as
// partitioned by the remote service. Every fetch replaces the whole value;
// there is no incremental patching.
type Page struct {
	Tasks      []Task
	Number     int // 1-based, as reported by the service
	TotalPages int // as reported by the service at fetch time
}
