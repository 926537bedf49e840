// Package service defines the backend-agnostic interface for task operations.
package service

import (
	"context"
	"errors"

	"github.com/dori/vikta/internal/model"
)

// ErrNotFound reports that the requested task does not exist on the server.
var ErrNotFound = errors.New("task not found")

// ValidationError reports a draft the backend rejected (or would reject),
// such as an empty title. Callers pick it out with errors.As to show it
// differently from transport failures.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Service defines the interface for task backend operations.
// All Vikunja API calls go through this interface.
// The UI never imports the HTTP client directly.
type Service interface {
	// List returns one page of tasks matching the filter.
	// page is 1-based. The returned Page carries the page number served
	// and the total page count as reported by the backend; its task
	// slice is complete for that page, never a partial update.
	List(ctx context.Context, filter model.Filter, page int) (model.Page, error)

	// Create makes a new task from the draft and returns it as stored,
	// with its server-assigned ID. A draft the backend cannot accept
	// fails with a *ValidationError.
	Create(ctx context.Context, draft model.TaskDraft) (model.Task, error)

	// SetDone sets the completion state of the task with the given ID.
	SetDone(ctx context.Context, id int64, done bool) error

	// GetDetails returns the full task, including its description and
	// labels. Fails with ErrNotFound if no such task exists.
	GetDetails(ctx context.Context, id int64) (model.Task, error)
}
