// Package editsession tracks a task being edited in place.
//
// A Session is Idle until Begin captures a task's text as the working
// value. Commit sends the trimmed working value through the collection
// unless it is empty or unchanged, then returns to Idle whatever the
// result. Cancel drops the working value without touching the store.
package editsession

import (
	"context"
	"strings"
	"sync"

	"todo/internal/service"
)

// State is the lifecycle position of a Session.
type State int

const (
	Idle State = iota
	Editing
	Committing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Editing:
		return "editing"
	case Committing:
		return "committing"
	default:
		return "unknown"
	}
}

// Outcome reports which path a Commit or Cancel took.
type Outcome int

const (
	// Discarded: nothing to commit, or the working text was blank.
	Discarded Outcome = iota
	// Unchanged: the trimmed text matched the original.
	Unchanged
	// Updated: the store accepted the new text.
	Updated
	// Failed: the update was sent and returned an error.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Discarded:
		return "discarded"
	case Unchanged:
		return "unchanged"
	case Updated:
		return "updated"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Updater is the mutation a commit goes through. *collection.Collection
// satisfies it.
type Updater interface {
	Update(ctx context.Context, id service.ID, text string, completed bool) (service.Task, error)
}

// Session is the edit state of one UI surface.
type Session struct {
	upd Updater

	mu      sync.Mutex
	state   State
	task    service.Task
	working string
}

// New returns an idle session that commits through upd.
func New(upd Updater) *Session {
	return &Session{upd: upd}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Task returns the task being edited and whether a session is open.
func (s *Session) Task() (service.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.task, s.state == Editing
}

// Text returns the working value.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.working
}

// Begin starts editing task. An edit already in progress is cancelled.
func (s *Session) Begin(task service.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Editing
	s.task = task
	s.working = task.Text
}

// SetText replaces the working value. Ignored unless editing.
func (s *Session) SetText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Editing {
		s.working = text
	}
}

// Cancel discards the working value and returns to Idle.
func (s *Session) Cancel() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return Discarded
}

// Commit ends the edit. The returned error is only non-nil when the
// outcome is Failed; the session is Idle either way.
func (s *Session) Commit(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	if s.state != Editing {
		s.mu.Unlock()
		return Discarded, nil
	}
	task := s.task
	text := strings.TrimSpace(s.working)
	s.state = Committing
	s.mu.Unlock()

	outcome, err := s.commit(ctx, task, text)

	s.mu.Lock()
	s.reset()
	s.mu.Unlock()
	return outcome, err
}

func (s *Session) commit(ctx context.Context, task service.Task, text string) (Outcome, error) {
	if text == "" {
		return Discarded, nil
	}
	if text == task.Text {
		return Unchanged, nil
	}
	if _, err := s.upd.Update(ctx, task.ID, text, task.Completed); err != nil {
		return Failed, err
	}
	return Updated, nil
}

func (s *Session) reset() {
	s.state = Idle
	s.task = service.Task{}
	s.working = ""
}
