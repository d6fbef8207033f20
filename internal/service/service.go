// Package service defines the backend-agnostic interface for task operations.
package service

import (
	"context"
	"fmt"
)

// Service is the Task Store contract.
// Every backend (file, SQLite, REST, Google Tasks) implements it.
// Commands and the collection never import a backend directly.
type Service interface {
	// List returns every task in store order.
	List(ctx context.Context) ([]Task, error)

	// Create validates text, assigns a new id and appends the task.
	// Returns the stored representation, not the input echoed back.
	Create(ctx context.Context, text string, completed bool) (Task, error)

	// Update replaces text and completed of an existing task.
	// Returns *NotFoundError if id does not exist.
	Update(ctx context.Context, id ID, text string, completed bool) (Task, error)

	// Toggle flips completed of an existing task and leaves text alone.
	Toggle(ctx context.Context, id ID) (Task, error)

	// Delete removes a task. The id is never reused.
	Delete(ctx context.Context, id ID) error
}

// Replacer is implemented by stores that can swap the whole collection
// while keeping ids and flags as given. Only local stores offer it.
type Replacer interface {
	Replace(ctx context.Context, tasks []Task) error
}

// ValidateCollection checks a full collection before it replaces a store's
// contents: every id present and unique, every text persistable.
// Texts are returned trimmed.
func ValidateCollection(tasks []Task) ([]Task, error) {
	seen := make(map[ID]struct{}, len(tasks))
	out := make([]Task, 0, len(tasks))
	for i, t := range tasks {
		if t.ID == "" {
			return nil, &ValidationError{Field: fieldAt(i, "id"), Reason: "must not be empty"}
		}
		if _, dup := seen[t.ID]; dup {
			return nil, &ValidationError{Field: fieldAt(i, "id"), Reason: "duplicates " + string(t.ID)}
		}
		seen[t.ID] = struct{}{}
		text, err := NormalizeText(t.Text)
		if err != nil {
			ve := err.(*ValidationError)
			ve.Field = fieldAt(i, ve.Field)
			return nil, ve
		}
		t.Text = text
		out = append(out, t)
	}
	return out, nil
}

func fieldAt(i int, name string) string {
	return fmt.Sprintf("[%d].%s", i, name)
}
