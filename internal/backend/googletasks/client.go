// Package googletasks implements the service.Service interface using Google Tasks API.
//
// One Google task list is the collection. A task's title is its text and
// its status ("completed" or "needsAction") is its completed flag.
package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"todo/internal/config"
	"todo/internal/service"
)

const (
	// DefaultListID is the special ID for the default list.
	DefaultListID = "@default"

	// PageSize is the number of tasks per page.
	PageSize = 100

	// Scope is the OAuth scope for Google Tasks.
	Scope = "https://www.googleapis.com/auth/tasks"

	statusCompleted   = "completed"
	statusNeedsAction = "needsAction"
)

// ErrAuth is matched by errors caused by missing or rejected credentials.
var ErrAuth = errors.New("google tasks authorization failed")

// Client implements service.Service using Google Tasks API.
type Client struct {
	svc    *tasks.Service
	listID string
}

// New creates a new Google Tasks client for the list named in cfg.
// Requires oauth_client.json and token.json to exist.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read oauth_client.json: %v", ErrAuth, err)
	}

	oauthConfig, err := google.ConfigFromJSON(clientJSON, Scope)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid oauth_client.json: %v", ErrAuth, err)
	}

	tokenData, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("%w: not logged in (run: todo login)", ErrAuth)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("%w: invalid token.json: %v", ErrAuth, err)
	}

	// Refreshes the access token as needed.
	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, &token))

	return NewWithHTTPClient(ctx, httpClient, cfg.GoogleList)
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
// Extra options, such as option.WithEndpoint, are passed to the API client.
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, listID string, opts ...option.ClientOption) (*Client, error) {
	if listID == "" {
		listID = DefaultListID
	}
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	return &Client{svc: svc, listID: listID}, nil
}

// ListID returns the Google task list this client works on.
func (c *Client) ListID() string {
	return c.listID
}

// List implements service.Service. Every page is fetched, including
// completed and hidden tasks.
func (c *Client) List(ctx context.Context) ([]service.Task, error) {
	result := []service.Task{}
	err := c.svc.Tasks.List(c.listID).
		MaxResults(PageSize).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(false).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, t := range resp.Items {
				result = append(result, fromAPI(t))
			}
			return nil
		})
	if err != nil {
		return nil, wrapError("list", "", err)
	}
	return result, nil
}

// Create implements service.Service.
func (c *Client) Create(ctx context.Context, text string, completed bool) (service.Task, error) {
	text, err := service.NormalizeText(text)
	if err != nil {
		return service.Task{}, err
	}
	created, err := c.svc.Tasks.Insert(c.listID, &tasks.Task{
		Title:  text,
		Status: statusFor(completed),
	}).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError("create", "", err)
	}
	return fromAPI(created), nil
}

// Update implements service.Service.
func (c *Client) Update(ctx context.Context, id service.ID, text string, completed bool) (service.Task, error) {
	text, err := service.NormalizeText(text)
	if err != nil {
		return service.Task{}, err
	}
	return c.patch(ctx, "update", id, text, completed)
}

// Toggle implements service.Service.
func (c *Client) Toggle(ctx context.Context, id service.ID) (service.Task, error) {
	cur, err := c.svc.Tasks.Get(c.listID, string(id)).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError("toggle", id, err)
	}
	return c.patch(ctx, "toggle", id, cur.Title, cur.Status != statusCompleted)
}

// Delete implements service.Service.
func (c *Client) Delete(ctx context.Context, id service.ID) error {
	if err := c.svc.Tasks.Delete(c.listID, string(id)).Context(ctx).Do(); err != nil {
		return wrapError("delete", id, err)
	}
	return nil
}

func (c *Client) patch(ctx context.Context, op string, id service.ID, title string, completed bool) (service.Task, error) {
	body := &tasks.Task{Title: title, Status: statusFor(completed)}
	if !completed {
		// Reopening a task must clear its completion time too.
		body.NullFields = []string{"Completed"}
	}
	updated, err := c.svc.Tasks.Patch(c.listID, string(id), body).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError(op, id, err)
	}
	return fromAPI(updated), nil
}

func fromAPI(t *tasks.Task) service.Task {
	return service.Task{
		ID:        service.ID(t.Id),
		Text:      t.Title,
		Completed: t.Status == statusCompleted,
	}
}

func statusFor(completed bool) string {
	if completed {
		return statusCompleted
	}
	return statusNeedsAction
}

// wrapError maps API errors onto the store error types.
func wrapError(op string, id service.ID, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &service.TransportError{Op: op, Message: "request timed out", Err: err}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			if id != "" {
				return &service.NotFoundError{ID: id}
			}
			return &service.TransportError{Op: op, Status: apiErr.Code, Message: "task list not found", Err: err}
		case http.StatusBadRequest:
			return &service.ValidationError{Reason: apiErr.Message}
		case http.StatusUnauthorized, http.StatusForbidden:
			return &service.TransportError{
				Op:      op,
				Status:  apiErr.Code,
				Message: "token expired or revoked (run: todo login)",
				Err:     fmt.Errorf("%w: %v", ErrAuth, err),
			}
		}
		return &service.TransportError{Op: op, Status: apiErr.Code, Message: apiErr.Message, Err: err}
	}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return &service.TransportError{
			Op:      op,
			Message: "token expired or revoked (run: todo login)",
			Err:     fmt.Errorf("%w: %v", ErrAuth, err),
		}
	}
	return &service.TransportError{Op: op, Err: err}
}
