// Package api serves a task store over HTTP under /api.
//
//	GET    /api/tasks              list
//	POST   /api/tasks              create  {text, completed}
//	PUT    /api/tasks/{id}         update  {text, completed}
//	PATCH  /api/tasks/{id}/toggle  toggle
//	DELETE /api/tasks/{id}         delete
//	GET    /api/health             liveness and feed client count
//	GET    /api/events             WebSocket change feed
//
// Errors are {"message": "..."} with 400 for malformed requests, 404 for
// unknown ids, 422 for rejected task text and 500 for anything else.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"

	"todo/internal/service"
)

// BasePath prefixes every route.
const BasePath = "/api"

// Options configures a Server.
type Options struct {
	Logger *log.Logger

	// IntegerIDs answers non-integer ids with 404 before the store is
	// called. Set it when the store only issues integer ids.
	IntegerIDs bool
}

// Server exposes a service.Service over HTTP.
type Server struct {
	svc        service.Service
	logger     *log.Logger
	hub        *Hub
	integerIDs bool
	handler    http.Handler
}

// New builds a server for svc. Call Close to stop the event feed.
func New(svc service.Service, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		svc:        svc,
		logger:     logger,
		hub:        NewHub(logger),
		integerIDs: opts.IntegerIDs,
	}
	s.handler = withCORS(s.withAccessLog(s.routes()))
	return s
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix(BasePath).Subrouter()

	api.Methods(http.MethodGet).Path("/tasks").HandlerFunc(s.listTasks)
	api.Methods(http.MethodPost).Path("/tasks").HandlerFunc(s.createTask)
	api.Methods(http.MethodPut).Path("/tasks/{id}").HandlerFunc(s.updateTask)
	api.Methods(http.MethodPatch).Path("/tasks/{id}/toggle").HandlerFunc(s.toggleTask)
	api.Methods(http.MethodDelete).Path("/tasks/{id}").HandlerFunc(s.deleteTask)
	api.Methods(http.MethodGet).Path("/health").HandlerFunc(s.health)
	api.Methods(http.MethodGet).Path("/events").Handler(s.hub)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, MessageResponse{Message: "Not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, MessageResponse{Message: "Method not allowed"})
	})
	return r
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub returns the change feed.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Close stops the change feed and disconnects its clients.
func (s *Server) Close() {
	s.hub.Close()
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts
// down gracefully, giving in-flight requests five seconds to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.hub.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	s.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	<-errCh
	return nil
}

func (s *Server) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		s.logger.Info("handled",
			"method", r.Method,
			"url", r.URL.String(),
			"status", m.Code,
			"duration", m.Duration,
			"bytes", m.Written)
	})
}

// withCORS allows any origin, method and header.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if origin := r.Header.Get("Origin"); origin != "" {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		} else {
			h.Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
				h.Set("Access-Control-Allow-Headers", req)
			}
			h.Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
