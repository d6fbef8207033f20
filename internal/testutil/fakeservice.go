// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"sync"

	"todo/internal/service"
)

// FakeService is an in-memory implementation of service.Service for testing.
// Ids are sequential integers starting at 1 and are never reused.
type FakeService struct {
	mu     sync.RWMutex
	tasks  []service.Task
	nextID int64
	calls  map[string]int

	// Error injection for testing
	ListErr   error
	CreateErr error
	UpdateErr error
	ToggleErr error
	DeleteErr error

	// FailCreateAfter makes Create fail with CreateErr once this many
	// creates have succeeded. Zero means CreateErr applies immediately.
	FailCreateAfter int
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		nextID: 1,
		calls:  make(map[string]int),
	}
}

// AddTask seeds a task with the given text and flag and returns it.
func (f *FakeService) AddTask(text string, completed bool) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := service.Task{ID: service.IntID(f.nextID), Text: text, Completed: completed}
	f.nextID++
	f.tasks = append(f.tasks, t)
	return t
}

// Tasks returns a copy of the stored tasks without counting as a call.
func (f *FakeService) Tasks() []service.Task {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]service.Task, len(f.tasks))
	copy(out, f.tasks)
	return out
}

// Calls returns how many times the named operation ("list", "create",
// "update", "toggle", "delete") was invoked.
func (f *FakeService) Calls(op string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls[op]
}

// TotalCalls returns the number of store calls of any kind.
func (f *FakeService) TotalCalls() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// ResetCalls zeroes the call counters.
func (f *FakeService) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = make(map[string]int)
}

func (f *FakeService) count(op string) {
	f.calls[op]++
}

// List implements service.Service.
func (f *FakeService) List(ctx context.Context) ([]service.Task, error) {
	f.mu.Lock()
	f.count("list")
	f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.Tasks(), nil
}

// Create implements service.Service.
func (f *FakeService) Create(ctx context.Context, text string, completed bool) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("create")

	if f.CreateErr != nil {
		if f.FailCreateAfter <= 0 {
			return service.Task{}, f.CreateErr
		}
		f.FailCreateAfter--
	}

	text, err := service.NormalizeText(text)
	if err != nil {
		return service.Task{}, err
	}
	t := service.Task{ID: service.IntID(f.nextID), Text: text, Completed: completed}
	f.nextID++
	f.tasks = append(f.tasks, t)
	return t, nil
}

// Update implements service.Service.
func (f *FakeService) Update(ctx context.Context, id service.ID, text string, completed bool) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("update")

	if f.UpdateErr != nil {
		return service.Task{}, f.UpdateErr
	}
	text, err := service.NormalizeText(text)
	if err != nil {
		return service.Task{}, err
	}
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].Text = text
			f.tasks[i].Completed = completed
			return f.tasks[i], nil
		}
	}
	return service.Task{}, &service.NotFoundError{ID: id}
}

// Toggle implements service.Service.
func (f *FakeService) Toggle(ctx context.Context, id service.ID) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("toggle")

	if f.ToggleErr != nil {
		return service.Task{}, f.ToggleErr
	}
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].Completed = !f.tasks[i].Completed
			return f.tasks[i], nil
		}
	}
	return service.Task{}, &service.NotFoundError{ID: id}
}

// Delete implements service.Service.
func (f *FakeService) Delete(ctx context.Context, id service.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("delete")

	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return &service.NotFoundError{ID: id}
}

// FakeReplacer is a FakeService that also implements service.Replacer,
// standing in for a local store.
type FakeReplacer struct {
	*FakeService
	ReplaceErr error
}

// NewFakeReplacer creates an empty FakeReplacer.
func NewFakeReplacer() *FakeReplacer {
	return &FakeReplacer{FakeService: NewFakeService()}
}

// Replace implements service.Replacer.
func (f *FakeReplacer) Replace(ctx context.Context, tasks []service.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("replace")

	if f.ReplaceErr != nil {
		return f.ReplaceErr
	}
	valid, err := service.ValidateCollection(tasks)
	if err != nil {
		return err
	}
	f.tasks = valid
	return nil
}
