// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/dori/vikta/internal/model"
	"github.com/dori/vikta/internal/service"
)

// DefaultPageSize is the page size a new FakeService serves.
const DefaultPageSize = 5

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu       sync.RWMutex
	tasks    []model.Task
	nextID   int64
	PageSize int

	// Error injection for testing
	ListErr       error
	CreateErr     error
	SetDoneErr    error
	GetDetailsErr error

	// Call counts, one per method
	ListCalls       int
	CreateCalls     int
	SetDoneCalls    int
	GetDetailsCalls int
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{PageSize: DefaultPageSize}
}

// AddTask appends a task and returns it with its assigned ID.
func (f *FakeService) AddTask(t model.Task) model.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t.ID = f.nextID
	f.tasks = append(f.tasks, t)
	return t
}

// Task returns the stored task with the given ID.
func (f *FakeService) Task(id int64) (model.Task, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, t := range f.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

// List implements service.Service.
func (f *FakeService) List(ctx context.Context, filter model.Filter, page int) (model.Page, error) {
	f.mu.Lock()
	f.ListCalls++
	f.mu.Unlock()
	if f.ListErr != nil {
		return model.Page{}, f.ListErr
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	var matching []model.Task
	for _, t := range f.tasks {
		if t.Done == filter.Done() {
			matching = append(matching, t)
		}
	}

	total := (len(matching) + f.PageSize - 1) / f.PageSize
	if total < 1 {
		total = 1
	}

	p := model.Page{Number: page, TotalPages: total}
	start := (page - 1) * f.PageSize
	if start >= len(matching) {
		return p, nil
	}
	end := start + f.PageSize
	if end > len(matching) {
		end = len(matching)
	}
	p.Tasks = append(p.Tasks, matching[start:end]...)
	return p, nil
}

// Create implements service.Service.
func (f *FakeService) Create(ctx context.Context, draft model.TaskDraft) (model.Task, error) {
	f.mu.Lock()
	f.CreateCalls++
	f.mu.Unlock()
	if f.CreateErr != nil {
		return model.Task{}, f.CreateErr
	}
	if strings.TrimSpace(draft.Title) == "" {
		return model.Task{}, &service.ValidationError{Reason: "task title cannot be empty"}
	}

	return f.AddTask(model.Task{
		Title:       draft.Title,
		Description: draft.Description,
		Priority:    draft.Priority,
		DueDate:     draft.DueDate,
	}), nil
}

// SetDone implements service.Service.
func (f *FakeService) SetDone(ctx context.Context, id int64, done bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SetDoneCalls++
	if f.SetDoneErr != nil {
		return f.SetDoneErr
	}

	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].Done = done
			return nil
		}
	}
	return service.ErrNotFound
}

// GetDetails implements service.Service.
func (f *FakeService) GetDetails(ctx context.Context, id int64) (model.Task, error) {
	f.mu.Lock()
	f.GetDetailsCalls++
	f.mu.Unlock()
	if f.GetDetailsErr != nil {
		return model.Task{}, f.GetDetailsErr
	}

	if t, ok := f.Task(id); ok {
		return t, nil
	}
	return model.Task{}, service.ErrNotFound
}
