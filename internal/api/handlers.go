package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"todo/internal/service"
)

// Response messages.
const (
	MsgTaskAdded   = "Task added"
	MsgTaskUpdated = "Task updated"
	MsgTaskToggled = "Task status changed"
	MsgTaskDeleted = "Task deleted"
	MsgNotFound    = "Task not found"
)

const maxBodyBytes = 1 << 20

// TaskPayload is the request body of create and update.
type TaskPayload struct {
	Text      *string `json:"text"`
	Completed bool    `json:"completed"`
}

// TaskResponse is the body of a successful create, update or toggle.
type TaskResponse struct {
	Message string       `json:"message"`
	Task    service.Task `json:"task"`
}

// MessageResponse is the body of a delete and of every error.
type MessageResponse struct {
	Message string `json:"message"`
}

// requestError is a client mistake caught before the store is called.
type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string { return e.message }

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.svc.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []service.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	p, err := decodePayload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	task, err := s.svc.Create(r.Context(), *p.Text, p.Completed)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.hub.Publish(Event{Type: EventTaskUpdate, Action: ActionCreated, ID: task.ID})
	writeJSON(w, http.StatusOK, TaskResponse{Message: MsgTaskAdded, Task: task})
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := decodePayload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	task, err := s.svc.Update(r.Context(), id, *p.Text, p.Completed)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.hub.Publish(Event{Type: EventTaskUpdate, Action: ActionUpdated, ID: task.ID})
	writeJSON(w, http.StatusOK, TaskResponse{Message: MsgTaskUpdated, Task: task})
}

func (s *Server) toggleTask(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	task, err := s.svc.Toggle(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.hub.Publish(Event{Type: EventTaskUpdate, Action: ActionToggled, ID: task.ID})
	writeJSON(w, http.StatusOK, TaskResponse{Message: MsgTaskToggled, Task: task})
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.hub.Publish(Event{Type: EventTaskUpdate, Action: ActionDeleted, ID: id})
	writeJSON(w, http.StatusOK, MessageResponse{Message: MsgTaskDeleted})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) pathID(r *http.Request) (service.ID, error) {
	raw := mux.Vars(r)["id"]
	if raw == "" {
		return "", &requestError{status: http.StatusBadRequest, message: "missing task id"}
	}
	if s.integerIDs {
		if _, ok := service.ID(raw).Int(); !ok {
			return "", &service.NotFoundError{ID: service.ID(raw)}
		}
	}
	return service.ID(raw), nil
}

// decodePayload reads a TaskPayload strictly: one JSON object, no unknown
// fields, text present.
func decodePayload(w http.ResponseWriter, r *http.Request) (TaskPayload, error) {
	var p TaskPayload
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&p); err != nil {
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &typeErr):
			return p, &service.ValidationError{Field: typeErr.Field, Reason: "has the wrong type"}
		case errors.Is(err, io.EOF):
			return p, &requestError{status: http.StatusBadRequest, message: "request body is empty"}
		default:
			return p, &requestError{status: http.StatusBadRequest, message: "invalid request body: " + err.Error()}
		}
	}
	if dec.More() {
		return p, &requestError{status: http.StatusBadRequest, message: "invalid request body: unexpected data after object"}
	}
	if p.Text == nil {
		return p, &service.ValidationError{Field: "text", Reason: "is required"}
	}
	return p, nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		writeJSON(w, reqErr.status, MessageResponse{Message: reqErr.message})
	case errors.Is(err, service.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, MessageResponse{Message: err.Error()})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, MessageResponse{Message: MsgNotFound})
	default:
		s.logger.Error("request failed", "method", r.Method, "url", r.URL.String(), "err", err)
		writeJSON(w, http.StatusInternalServerError, MessageResponse{Message: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
