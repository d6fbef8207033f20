package commands

import (
	"fmt"

	"todo/internal/service"
)

// resolveRef finds the task a reference points at in items, which must be
// in list order. Position references are resolved against the same order
// the list command prints.
func resolveRef(items []service.Task, ref TaskRef) (service.Task, error) {
	if ref.ID != "" {
		task, ok := service.Find(items, ref.ID)
		if !ok {
			return service.Task{}, &service.NotFoundError{ID: ref.ID}
		}
		return task, nil
	}
	if ref.Num < 1 || ref.Num > len(items) {
		return service.Task{}, fmt.Errorf("task number out of range: %d", ref.Num)
	}
	return items[ref.Num-1], nil
}

// resolveRefs resolves every reference before anything is changed, so
// positions stay valid while a batch is applied. Repeated tasks are
// collapsed to their first occurrence.
func resolveRefs(items []service.Task, refs []TaskRef) ([]service.Task, error) {
	seen := make(map[service.ID]struct{}, len(refs))
	out := make([]service.Task, 0, len(refs))
	for _, ref := range refs {
		task, err := resolveRef(items, ref)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[task.ID]; dup {
			continue
		}
		seen[task.ID] = struct{}{}
		out = append(out, task)
	}
	return out, nil
}
