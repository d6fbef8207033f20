package httpapi_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"todo/internal/api"
	"todo/internal/backend/httpapi"
	"todo/internal/backend/sqlite"
	"todo/internal/logging"
	"todo/internal/service"
	"todo/internal/testutil"
)

// newServerStack starts the real API over a fresh SQLite store.
func newServerStack(t *testing.T) *httpapi.Client {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), sqlite.DefaultFileName))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	srv := api.New(store, api.Options{Logger: logging.Discard(), IntegerIDs: true})
	t.Cleanup(srv.Close)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	client, err := httpapi.New(ts.URL+api.BasePath, 0)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestClientAgainstServer(t *testing.T) {
	testutil.RunStoreSuite(t, func(t *testing.T) service.Service {
		return newServerStack(t)
	})
}

func TestNonIntegerIDNotFound(t *testing.T) {
	client := newServerStack(t)
	_, err := client.Toggle(context.Background(), "abc")
	var nf *service.NotFoundError
	if !errors.As(err, &nf) || nf.ID != "abc" {
		t.Errorf("expected a not found error for abc, got %v", err)
	}
}

func fixedServer(t *testing.T, status int, body string) *httpapi.Client {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	client, err := httpapi.New(ts.URL+"/api", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    error
		message string
	}{
		{"not found", 404, `{"message":"Task not found"}`, service.ErrNotFound, "task not found: 7"},
		{"unprocessable", 422, `{"message":"text must not be empty"}`, service.ErrValidation, "text must not be empty"},
		{"bad request", 400, `{"message":"invalid task id: x"}`, service.ErrValidation, "invalid task id: x"},
		{"server error with message", 500, `{"message":"database is locked"}`, service.ErrTransport, "toggle: database is locked"},
		{"server error without body", 503, ``, service.ErrTransport, "toggle: unexpected status 503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := fixedServer(t, tt.status, tt.body)
			_, err := client.Toggle(context.Background(), "7")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if err.Error() != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, err.Error())
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	t.Run("malformed list", func(t *testing.T) {
		client := fixedServer(t, 200, `{"not": "an array"}`)
		if _, err := client.List(context.Background()); !errors.Is(err, service.ErrDecode) {
			t.Errorf("expected decode error, got %v", err)
		}
	})

	t.Run("missing task", func(t *testing.T) {
		client := fixedServer(t, 200, `{"message":"Task not found"}`)
		_, err := client.Toggle(context.Background(), "7")
		if !errors.Is(err, service.ErrDecode) {
			t.Fatalf("expected decode error, got %v", err)
		}
		if !strings.Contains(err.Error(), "Task not found") {
			t.Errorf("expected server message in error, got %q", err.Error())
		}
	})
}

func TestNetworkFailure(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	client, err := httpapi.New(url+"/api", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	_, err = client.List(context.Background())

	var te *service.TransportError
	if !errors.As(err, &te) || te.Status != 0 {
		t.Errorf("expected transport error without status, got %v", err)
	}
}

func TestTimeout(t *testing.T) {
	block := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(block)

	client, err := httpapi.New(ts.URL+"/api", 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	_, err = client.List(context.Background())
	if !errors.Is(err, service.ErrTransport) || !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout transport error, got %v", err)
	}
}

func TestCreateBlankNeverSent(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer ts.Close()

	client, _ := httpapi.New(ts.URL+"/api", time.Second)
	if _, err := client.Create(context.Background(), "   ", false); !errors.Is(err, service.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no request, got %d", calls)
	}
}

func TestNew_RejectsBadURL(t *testing.T) {
	for _, raw := range []string{"localhost:8000", "ftp://host/api", "http:///api"} {
		if _, err := httpapi.New(raw, 0); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}
