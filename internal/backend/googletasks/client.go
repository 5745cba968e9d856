// Package googletasks implements the service.Service interface using Google Tasks API.
package googletasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"tasktree/internal/config"
	"tasktree/internal/logging"
	"tasktree/internal/service"
)

const (
	// PageSize is the number of tasks per page.
	PageSize = 100

	// TasksScope is the OAuth scope for Google Tasks.
	TasksScope = "https://www.googleapis.com/auth/tasks"

	statusCompleted   = "completed"
	statusNeedsAction = "needsAction"
)

// Client implements service.Service using Google Tasks API.
type Client struct {
	svc      *tasks.Service
	expanded *expandState
	timeout  time.Duration
	endpoint string
	log      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = logging.OrDiscard(l) }
}

// WithTimeout bounds every call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithExpandedPath sets the file that stores expand flags. Without it the
// flags live in memory only.
func WithExpandedPath(path string) Option {
	return func(c *Client) { c.expanded = newExpandState(path) }
}

// WithEndpoint overrides the API endpoint (for testing).
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// LoadOAuthConfig reads oauth_client.json.
func LoadOAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", config.OAuthClientFile, err)
	}
	oauthConfig, err := google.ConfigFromJSON(clientJSON, TasksScope)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.OAuthClientFile, err)
	}
	return oauthConfig, nil
}

// LoadToken reads token.json.
func LoadToken(cfg *config.Config) (*oauth2.Token, error) {
	data, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", config.TokenFile, err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.TokenFile, err)
	}
	return &token, nil
}

// SaveToken writes token.json with mode 0600.
func SaveToken(cfg *config.Config, token *oauth2.Token) error {
	if err := cfg.EnsureDir(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(cfg.TokenPath(), data, 0600)
}

// New creates a new Google Tasks client.
// Requires oauth_client.json and token.json to exist.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	oauthConfig, err := LoadOAuthConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", service.ErrUnauthorized, err)
	}
	token, err := LoadToken(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", service.ErrUnauthorized, err)
	}

	// Token source refreshes automatically
	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, token))

	opts = append([]Option{WithTimeout(cfg.Timeout), WithExpandedPath(cfg.ExpandedPath())}, opts...)
	return NewWithHTTPClient(ctx, httpClient, opts...)
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, opts ...Option) (*Client, error) {
	c := &Client{
		expanded: newExpandState(""),
		timeout:  config.DefaultTimeout,
		log:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}

	clientOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(c.endpoint))
	}
	svc, err := tasks.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	c.svc = svc
	return c, nil
}

// ListLists returns all task lists in API order.
func (c *Client) ListLists(ctx context.Context) ([]service.List, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var result []service.List
	err := c.svc.Tasklists.List().MaxResults(100).Pages(ctx, func(resp *tasks.TaskLists) error {
		for _, list := range resp.Items {
			result = append(result, service.List{ID: list.Id, Title: list.Title})
		}
		return nil
	})
	if err != nil {
		return nil, wrapError("list lists", err)
	}
	return result, nil
}

// CreateList creates a new task list.
func (c *Client) CreateList(ctx context.Context, title string) (service.List, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	list, err := c.svc.Tasklists.Insert(&tasks.TaskList{Title: title}).Context(ctx).Do()
	if err != nil {
		return service.List{}, wrapError("create list", err)
	}
	return service.List{ID: list.Id, Title: list.Title}, nil
}

// ListItems returns every task of a list, completed and hidden ones
// included, as a flat payload ordered by Position.
func (c *Client) ListItems(ctx context.Context, listID string) ([]service.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var result []service.Item
	err := c.svc.Tasks.List(listID).
		MaxResults(PageSize).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(false).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, t := range resp.Items {
				result = append(result, c.item(listID, t))
			}
			return nil
		})
	if err != nil {
		return nil, wrapError("list tasks", err)
	}
	c.log.Debug("listed tasks", "list", listID, "count", len(result))
	return result, nil
}

// CreateItem creates a task, under parentID when set.
func (c *Client) CreateItem(ctx context.Context, listID, content, parentID string) (service.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	call := c.svc.Tasks.Insert(listID, &tasks.Task{Title: content})
	if parentID != "" {
		call = call.Parent(parentID)
	}
	t, err := call.Context(ctx).Do()
	if err != nil {
		return service.Item{}, wrapError("create task", err)
	}
	return c.item(listID, t), nil
}

// UpdateItem patches title and status, records the expand flag locally and
// moves the task when a placement is given.
func (c *Client) UpdateItem(ctx context.Context, listID, itemID string, patch service.Patch) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if patch.Content != nil || patch.Completed != nil {
		t := &tasks.Task{}
		if patch.Content != nil {
			t.Title = *patch.Content
			t.ForceSendFields = append(t.ForceSendFields, "Title")
		}
		if patch.Completed != nil {
			if *patch.Completed {
				t.Status = statusCompleted
			} else {
				t.Status = statusNeedsAction
				t.NullFields = append(t.NullFields, "Completed")
			}
		}
		if _, err := c.svc.Tasks.Patch(listID, itemID, t).Context(ctx).Do(); err != nil {
			return wrapError("update task", err)
		}
	}

	if p := patch.Placement; p != nil {
		call := c.svc.Tasks.Move(listID, itemID)
		if p.ParentID != "" {
			call = call.Parent(p.ParentID)
		}
		if p.ListID != "" && p.ListID != listID {
			call = call.DestinationTasklist(p.ListID)
		}
		if _, err := call.Context(ctx).Do(); err != nil {
			return wrapError("move task", err)
		}
	}

	if patch.Expanded != nil {
		if err := c.expanded.Set(itemID, *patch.Expanded); err != nil {
			return fmt.Errorf("save expand state: %w", err)
		}
	}
	return nil
}

// DeleteItem deletes a task.
func (c *Client) DeleteItem(ctx context.Context, listID, itemID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.svc.Tasks.Delete(listID, itemID).Context(ctx).Do(); err != nil {
		return wrapError("delete task", err)
	}
	if err := c.expanded.Forget(itemID); err != nil {
		c.log.Warn("failed to save expand state", "err", err)
	}
	return nil
}

func (c *Client) item(listID string, t *tasks.Task) service.Item {
	return service.Item{
		ID:        t.Id,
		Content:   t.Title,
		Completed: t.Status == statusCompleted,
		Expanded:  c.expanded.Get(t.Id),
		ParentID:  t.Parent,
		ListID:    listID,
		Position:  t.Position,
	}
}

// wrapError maps API errors to the service sentinels.
func wrapError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %w: token expired or revoked (run: tasktree login)", op, service.ErrUnauthorized)
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", op, service.ErrNotFound)
		case http.StatusBadRequest, http.StatusConflict:
			return fmt.Errorf("%s: %w: %s", op, service.ErrRejected, gerr.Message)
		}
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return fmt.Errorf("%s: %w: %v", op, service.ErrUnauthorized, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
