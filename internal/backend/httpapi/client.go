// Package httpapi implements service.Service against a remote task server.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"todo/internal/service"
)

const (
	// DefaultBaseURL is where the server listens by default.
	DefaultBaseURL = "http://localhost:8000/api"

	// DefaultTimeout bounds each round trip.
	DefaultTimeout = 5 * time.Second
)

// Client implements service.Service over HTTP.
type Client struct {
	base    string
	http    *http.Client
	timeout time.Duration
}

// New creates a client for the API rooted at baseURL, e.g.
// "http://localhost:8000/api". A zero timeout means DefaultTimeout.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	return NewWithHTTPClient(baseURL, timeout, &http.Client{})
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(baseURL string, timeout time.Duration, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid api url %q: missing host", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		base:    strings.TrimRight(u.String(), "/"),
		http:    httpClient,
		timeout: timeout,
	}, nil
}

type taskPayload struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

type taskEnvelope struct {
	Message string        `json:"message"`
	Task    *service.Task `json:"task"`
}

type messageBody struct {
	Message string `json:"message"`
}

// List implements service.Service.
func (c *Client) List(ctx context.Context) ([]service.Task, error) {
	body, err := c.do(ctx, "list", http.MethodGet, "/tasks", "", nil)
	if err != nil {
		return nil, err
	}
	var tasks []service.Task
	if err := json.Unmarshal(body, &tasks); err != nil {
		return nil, &service.DecodeError{What: "task list", Err: err}
	}
	if tasks == nil {
		tasks = []service.Task{}
	}
	return tasks, nil
}

// Create implements service.Service.
func (c *Client) Create(ctx context.Context, text string, completed bool) (service.Task, error) {
	text, err := service.NormalizeText(text)
	if err != nil {
		return service.Task{}, err
	}
	return c.taskCall(ctx, "create", http.MethodPost, "/tasks", "", taskPayload{Text: text, Completed: completed})
}

// Update implements service.Service.
func (c *Client) Update(ctx context.Context, id service.ID, text string, completed bool) (service.Task, error) {
	text, err := service.NormalizeText(text)
	if err != nil {
		return service.Task{}, err
	}
	return c.taskCall(ctx, "update", http.MethodPut, taskPath(id), id, taskPayload{Text: text, Completed: completed})
}

// Toggle implements service.Service.
func (c *Client) Toggle(ctx context.Context, id service.ID) (service.Task, error) {
	return c.taskCall(ctx, "toggle", http.MethodPatch, taskPath(id)+"/toggle", id, nil)
}

// Delete implements service.Service.
func (c *Client) Delete(ctx context.Context, id service.ID) error {
	_, err := c.do(ctx, "delete", http.MethodDelete, taskPath(id), id, nil)
	return err
}

func taskPath(id service.ID) string {
	return "/tasks/" + url.PathEscape(string(id))
}

// taskCall performs a request whose success body is {message, task}.
func (c *Client) taskCall(ctx context.Context, op, method, path string, id service.ID, payload interface{}) (service.Task, error) {
	body, err := c.do(ctx, op, method, path, id, payload)
	if err != nil {
		return service.Task{}, err
	}
	var env taskEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return service.Task{}, &service.DecodeError{What: op + " response", Err: err}
	}
	if env.Task == nil {
		reason := "missing task"
		if env.Message != "" {
			reason = "missing task (server said: " + env.Message + ")"
		}
		return service.Task{}, &service.DecodeError{What: op + " response", Err: errors.New(reason)}
	}
	return *env.Task, nil
}

// do sends one request and returns the body of a 2xx response.
// Other statuses become typed errors; id is used for 404s.
func (c *Client) do(ctx context.Context, op, method, path string, id service.ID, payload interface{}) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reqBody)
	if err != nil {
		return nil, &service.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &service.TransportError{Op: op, Err: wrapError(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &service.TransportError{Op: op, Status: resp.StatusCode, Err: wrapError(err)}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}
	return nil, statusError(op, id, resp.StatusCode, body)
}

func statusError(op string, id service.ID, status int, body []byte) error {
	var msg messageBody
	_ = json.Unmarshal(body, &msg)

	switch {
	case status == http.StatusNotFound && id != "":
		return &service.NotFoundError{ID: id}
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		reason := msg.Message
		if reason == "" {
			reason = http.StatusText(status)
		}
		return &service.ValidationError{Reason: reason}
	default:
		return &service.TransportError{Op: op, Status: status, Message: msg.Message}
	}
}

// wrapError makes timeouts read as such.
func wrapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", err)
	}
	return err
}
