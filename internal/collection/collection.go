// Package collection keeps an in-memory copy of a task store in step with
// the store itself.
//
// The cache is never patched from a mutation's response. After every
// successful mutation it is replaced wholesale by a fresh List. If that
// refresh fails the mutation still stands, the cache stays stale and the
// returned *OpError has Applied set.
package collection

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"todo/internal/service"
)

// Collection owns the cached task list for one UI surface.
// Operations are serialized: at most one store round trip is in flight.
type Collection struct {
	svc service.Service

	op sync.Mutex // serializes operations

	mu      sync.RWMutex // guards the fields below
	items   []service.Task
	lastErr string
	subs    []func([]service.Task)
}

// New returns an empty collection backed by svc. Call Load to populate it.
func New(svc service.Service) *Collection {
	return &Collection{svc: svc, items: []service.Task{}}
}

// Items returns a copy of the cached tasks.
func (c *Collection) Items() []service.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyTasks(c.items)
}

// Get returns the cached task with the given id.
func (c *Collection) Get(id service.ID) (service.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return service.Find(c.items, id)
}

// LastError returns the message of the most recent failed operation,
// or "" if the last operation succeeded or ClearError was called.
func (c *Collection) LastError() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// ClearError forgets the last error message.
func (c *Collection) ClearError() {
	c.mu.Lock()
	c.lastErr = ""
	c.mu.Unlock()
}

// Subscribe registers fn to be called with the new contents after every
// successful refresh. fn must not call mutating methods on c.
func (c *Collection) Subscribe(fn func([]service.Task)) {
	c.mu.Lock()
	c.subs = append(c.subs, fn)
	c.mu.Unlock()
}

// Load replaces the cache with the store's current contents.
// On failure the cache is left as it was.
func (c *Collection) Load(ctx context.Context) error {
	c.op.Lock()
	defer c.op.Unlock()
	return c.finish(c.refresh(ctx, OpLoad))
}

// Create adds a task. Blank text is rejected before the store is contacted.
func (c *Collection) Create(ctx context.Context, text string, completed bool) (service.Task, error) {
	c.op.Lock()
	defer c.op.Unlock()

	if _, err := service.NormalizeText(text); err != nil {
		return service.Task{}, c.finish(opError(OpCreate, err))
	}
	task, err := c.svc.Create(ctx, text, completed)
	if err != nil {
		return service.Task{}, c.finish(opError(OpCreate, err))
	}
	return task, c.finish(c.afterMutation(ctx, OpCreate))
}

// Update replaces the text and completed flag of a task.
//
// If the task is cached and neither the trimmed text nor the flag differ
// from the cached copy, nothing is sent to the store and the cached task
// is returned.
func (c *Collection) Update(ctx context.Context, id service.ID, text string, completed bool) (service.Task, error) {
	c.op.Lock()
	defer c.op.Unlock()

	trimmed, err := service.NormalizeText(text)
	if err != nil {
		return service.Task{}, c.finish(opError(OpUpdate, err))
	}
	if cur, ok := c.Get(id); ok && cur.Text == trimmed && cur.Completed == completed {
		return cur, nil
	}

	task, err := c.svc.Update(ctx, id, trimmed, completed)
	if err != nil {
		return service.Task{}, c.finish(opError(OpUpdate, err))
	}
	return task, c.finish(c.afterMutation(ctx, OpUpdate))
}

// Toggle flips the completed flag of a task.
func (c *Collection) Toggle(ctx context.Context, id service.ID) (service.Task, error) {
	c.op.Lock()
	defer c.op.Unlock()

	task, err := c.svc.Toggle(ctx, id)
	if err != nil {
		return service.Task{}, c.finish(opError(OpToggle, err))
	}
	return task, c.finish(c.afterMutation(ctx, OpToggle))
}

// Delete removes a task.
func (c *Collection) Delete(ctx context.Context, id service.ID) error {
	_, err := c.DeleteMany(ctx, []service.ID{id})
	return err
}

// DeleteMany removes tasks in order and refreshes once. It stops at the
// first failure and reports how many deletes were applied before it.
// Applied deletes are kept and the refresh still runs.
func (c *Collection) DeleteMany(ctx context.Context, ids []service.ID) (int, error) {
	c.op.Lock()
	defer c.op.Unlock()

	applied := 0
	var failure error
	for _, id := range ids {
		if err := c.svc.Delete(ctx, id); err != nil {
			failure = opError(OpDelete, err)
			break
		}
		applied++
	}
	if applied == 0 {
		return 0, c.finish(failure)
	}

	refreshErr := c.afterMutation(ctx, OpDelete)
	if failure != nil {
		return applied, c.finish(failure)
	}
	return applied, c.finish(refreshErr)
}

// CreateMany creates tasks in order and refreshes once. Every text is
// checked before the first store call, so a blank or oversized record
// rejects the whole batch. A store failure stops the batch; creates
// already applied stay and are counted.
func (c *Collection) CreateMany(ctx context.Context, tasks []service.Task) (int, error) {
	c.op.Lock()
	defer c.op.Unlock()

	texts := make([]string, len(tasks))
	for i, t := range tasks {
		text, err := service.NormalizeText(t.Text)
		if err != nil {
			var ve *service.ValidationError
			if errors.As(err, &ve) {
				ve.Field = fmt.Sprintf("[%d].%s", i, ve.Field)
			}
			return 0, c.finish(opError(OpImport, err))
		}
		texts[i] = text
	}

	applied := 0
	var failure error
	for i, t := range tasks {
		if _, err := c.svc.Create(ctx, texts[i], t.Completed); err != nil {
			failure = opError(OpImport, err)
			break
		}
		applied++
	}
	if applied == 0 && failure != nil {
		return 0, c.finish(failure)
	}

	refreshErr := c.afterMutation(ctx, OpImport)
	if failure != nil {
		return applied, c.finish(failure)
	}
	return applied, c.finish(refreshErr)
}

// Replace swaps the whole stored collection, keeping ids and flags, then
// refreshes. The store must implement service.Replacer. The records are
// validated before the store is contacted.
func (c *Collection) Replace(ctx context.Context, tasks []service.Task) error {
	c.op.Lock()
	defer c.op.Unlock()

	rep, ok := c.svc.(service.Replacer)
	if !ok {
		return c.finish(opError(OpImport, ErrReplaceUnsupported))
	}
	valid, err := service.ValidateCollection(tasks)
	if err != nil {
		return c.finish(opError(OpImport, err))
	}
	if err := rep.Replace(ctx, valid); err != nil {
		return c.finish(opError(OpImport, err))
	}
	return c.finish(c.afterMutation(ctx, OpImport))
}

// Reset replaces the cache with the store contents after an out-of-band
// change such as a bulk import. It behaves like Load but reports failures
// as a stale refresh of an applied change.
func (c *Collection) Reset(ctx context.Context, op string) error {
	c.op.Lock()
	defer c.op.Unlock()
	return c.finish(c.afterMutation(ctx, op))
}

// afterMutation refreshes the cache after a store change went through.
func (c *Collection) afterMutation(ctx context.Context, op string) error {
	err := c.refresh(ctx, op)
	var oe *OpError
	if errors.As(err, &oe) {
		oe.Applied = true
		oe.Reason = reasonStale
	}
	return err
}

func (c *Collection) refresh(ctx context.Context, op string) error {
	tasks, err := c.svc.List(ctx)
	if err != nil {
		return opError(op, err)
	}
	if tasks == nil {
		tasks = []service.Task{}
	}

	c.mu.Lock()
	c.items = tasks
	subs := slices.Clone(c.subs)
	c.mu.Unlock()

	for _, fn := range subs {
		fn(copyTasks(tasks))
	}
	return nil
}

// finish records err as the last error (or clears it) and returns it.
func (c *Collection) finish(err error) error {
	c.mu.Lock()
	if err != nil {
		c.lastErr = err.Error()
	} else {
		c.lastErr = ""
	}
	c.mu.Unlock()
	return err
}

func copyTasks(tasks []service.Task) []service.Task {
	out := make([]service.Task, len(tasks))
	copy(out, tasks)
	return out
}
