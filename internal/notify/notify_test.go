package notify_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"todo/internal/api"
	"todo/internal/backend/filestore"
	"todo/internal/logging"
	"todo/internal/notify"
	"todo/internal/testutil"
)

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestFileNotifier_FiresOnSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", filestore.FileName)
	n, err := notify.NewFileNotifier(path)
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- n.Run(ctx, func() { changed <- struct{}{} })
	}()

	store := filestore.New(path)
	if _, err := store.Create(context.Background(), "buy milk", false); err != nil {
		t.Fatalf("create: %v", err)
	}
	waitFor(t, changed, "change after first save")

	cancel()
	if err := <-done; err != nil {
		t.Errorf("expected clean stop, got %v", err)
	}
}

func TestFileNotifier_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	n, err := notify.NewFileNotifier(filepath.Join(dir, filestore.FileName))
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 10)
	go func() { _ = n.Run(ctx, func() { changed <- struct{}{} }) }()

	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte("[]"), 0600); err != nil {
		t.Fatal(err)
	}
	select {
	case <-changed:
		t.Error("expected no callback for an unrelated file")
	case <-time.After(3 * notify.DefaultDebounce):
	}
}

func TestFeedURL(t *testing.T) {
	tests := map[string]string{
		"http://localhost:8000/api":  "http://localhost:8000/api/events",
		"http://localhost:8000/api/": "http://localhost:8000/api/events",
	}
	for in, want := range tests {
		if got := notify.FeedURL(in); got != want {
			t.Errorf("FeedURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFeedNotifier_FiresOnServerEvents(t *testing.T) {
	srv := api.New(testutil.NewFakeService(), api.Options{Logger: logging.Discard()})
	defer srv.Close()
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 10)
	n := notify.NewFeedNotifier(ts.URL+api.BasePath, logging.Discard())
	go func() { _ = n.Run(ctx, func() { changed <- struct{}{} }) }()

	waitFor(t, changed, "greeting")

	resp, err := http.Post(ts.URL+"/api/tasks", "application/json", strings.NewReader(`{"text":"buy milk"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	waitFor(t, changed, "task_update event")
}

func TestFeedNotifier_FirstDialFails(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	base := ts.URL + api.BasePath
	ts.Close()

	n := notify.NewFeedNotifier(base, logging.Discard())
	if err := n.Run(context.Background(), func() {}); err == nil {
		t.Error("expected error when the server is unreachable")
	}
}
