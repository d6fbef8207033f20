package testutil

import (
	"context"
	"errors"
	"testing"

	"todo/internal/service"
)

// RunStoreSuite checks the Task Store contract against a fresh store
// returned by newStore for every subtest.
func RunStoreSuite(t *testing.T, newStore func(t *testing.T) service.Service) {
	t.Helper()
	ctx := context.Background()

	t.Run("EmptyList", func(t *testing.T) {
		svc := newStore(t)
		tasks, err := svc.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(tasks) != 0 {
			t.Errorf("expected empty store, got %+v", tasks)
		}
	})

	t.Run("CreateTrimsAndAssignsUniqueIDs", func(t *testing.T) {
		svc := newStore(t)
		a, err := svc.Create(ctx, "  buy milk  ", false)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		b, err := svc.Create(ctx, "buy eggs", true)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if a.Text != "buy milk" || a.Completed {
			t.Errorf("unexpected first task %+v", a)
		}
		if !b.Completed {
			t.Errorf("expected completed flag to be stored, got %+v", b)
		}
		if a.ID == "" || a.ID == b.ID {
			t.Errorf("expected distinct non-empty ids, got %q and %q", a.ID, b.ID)
		}

		tasks, err := svc.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(tasks) != 2 || tasks[0] != a || tasks[1] != b {
			t.Errorf("expected [%+v %+v] in insertion order, got %+v", a, b, tasks)
		}
	})

	t.Run("CreateRejectsBlankText", func(t *testing.T) {
		svc := newStore(t)
		for _, text := range []string{"", "   ", "\n\t"} {
			if _, err := svc.Create(ctx, text, false); !errors.Is(err, service.ErrValidation) {
				t.Errorf("create(%q): expected validation error, got %v", text, err)
			}
		}
		tasks, _ := svc.List(ctx)
		if len(tasks) != 0 {
			t.Errorf("expected nothing persisted, got %+v", tasks)
		}
	})

	t.Run("ToggleTwiceRestores", func(t *testing.T) {
		svc := newStore(t)
		orig, err := svc.Create(ctx, "buy milk", false)
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		once, err := svc.Toggle(ctx, orig.ID)
		if err != nil {
			t.Fatalf("toggle: %v", err)
		}
		if !once.Completed || once.Text != orig.Text || once.ID != orig.ID {
			t.Errorf("expected only completed to flip, got %+v", once)
		}

		twice, err := svc.Toggle(ctx, orig.ID)
		if err != nil {
			t.Fatalf("toggle: %v", err)
		}
		if twice != orig {
			t.Errorf("expected %+v after two toggles, got %+v", orig, twice)
		}
	})

	t.Run("UpdateKeepsIdentity", func(t *testing.T) {
		svc := newStore(t)
		orig, _ := svc.Create(ctx, "buy milk", false)

		got, err := svc.Update(ctx, orig.ID, " buy oat milk ", true)
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		want := service.Task{ID: orig.ID, Text: "buy oat milk", Completed: true}
		if got != want {
			t.Errorf("expected %+v, got %+v", want, got)
		}

		tasks, _ := svc.List(ctx)
		if len(tasks) != 1 || tasks[0] != want {
			t.Errorf("expected stored %+v, got %+v", want, tasks)
		}

		if _, err := svc.Update(ctx, orig.ID, "  ", false); !errors.Is(err, service.ErrValidation) {
			t.Errorf("expected validation error for blank update, got %v", err)
		}
	})

	t.Run("UnknownIDIsNotFound", func(t *testing.T) {
		svc := newStore(t)
		kept, _ := svc.Create(ctx, "buy milk", false)
		missing := service.ID("999999")

		if _, err := svc.Update(ctx, missing, "x", false); !errors.Is(err, service.ErrNotFound) {
			t.Errorf("update: expected not found, got %v", err)
		}
		if _, err := svc.Toggle(ctx, missing); !errors.Is(err, service.ErrNotFound) {
			t.Errorf("toggle: expected not found, got %v", err)
		}
		if err := svc.Delete(ctx, missing); !errors.Is(err, service.ErrNotFound) {
			t.Errorf("delete: expected not found, got %v", err)
		}

		tasks, _ := svc.List(ctx)
		if len(tasks) != 1 || tasks[0] != kept {
			t.Errorf("expected collection unchanged, got %+v", tasks)
		}
	})

	t.Run("DeleteRemovesAndNeverReusesID", func(t *testing.T) {
		svc := newStore(t)
		a, _ := svc.Create(ctx, "one", false)
		b, _ := svc.Create(ctx, "two", false)

		if err := svc.Delete(ctx, b.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		tasks, _ := svc.List(ctx)
		for _, task := range tasks {
			if task.ID == b.ID {
				t.Fatalf("deleted id %q still listed", b.ID)
			}
		}
		if len(tasks) != 1 || tasks[0] != a {
			t.Errorf("expected only %+v, got %+v", a, tasks)
		}

		c, err := svc.Create(ctx, "three", false)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if c.ID == a.ID || c.ID == b.ID {
			t.Errorf("expected fresh id, got reused %q", c.ID)
		}
	})
}
