// Package rest implements the service.Service interface over the /api HTTP
// surface of the task store.
package rest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"tasktree/internal/config"
	"tasktree/internal/logging"
	"tasktree/internal/service"
)

const (
	// SessionCookieName is the cookie the store uses for its login session.
	SessionCookieName = "session"

	// maxBody bounds how much of a response is read.
	maxBody = 8 << 20
)

// Client implements service.Service against the REST store.
type Client struct {
	http    *http.Client
	base    *url.URL
	timeout time.Duration
	log     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = logging.OrDiscard(l) }
}

// WithTimeout bounds every call. Zero keeps config.DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New creates a client for cfg.BaseURL. A configured token is sent as a
// bearer token; the session cookie saved by login is replayed on every call.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	var transport http.RoundTripper = http.DefaultTransport
	if cfg.Token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}),
			Base:   transport,
		}
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithTimeout(cfg.Timeout)}, opts...)
	c, err := NewWithHTTPClient(cfg.BaseURL, &http.Client{Transport: transport, Jar: jar}, opts...)
	if err != nil {
		return nil, err
	}
	if s := cfg.Session(); s != "" {
		c.SetSession(s)
	}
	return c, nil
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
// A cookie jar is added when the client has none.
func NewWithHTTPClient(baseURL string, hc *http.Client, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: base url: %q", config.ErrInvalid, baseURL)
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		hc.Jar = jar
	}
	c := &Client{
		http:    hc,
		base:    base,
		timeout: config.DefaultTimeout,
		log:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetSession installs a session cookie value.
func (c *Client) SetSession(value string) {
	c.http.Jar.SetCookies(c.base, []*http.Cookie{{Name: SessionCookieName, Value: value, Path: "/"}})
}

// Session returns the current session cookie value, or "".
func (c *Client) Session() string {
	for _, ck := range c.http.Jar.Cookies(c.base) {
		if ck.Name == SessionCookieName {
			return ck.Value
		}
	}
	return ""
}

// Login starts a session and returns its cookie value.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	err := c.do(ctx, http.MethodPost, "/api/login", credentials{Username: username, Password: password}, nil)
	if err != nil {
		return "", err
	}
	s := c.Session()
	if s == "" {
		return "", errors.New("login: store did not set a session cookie")
	}
	return s, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, username, password string) error {
	return c.do(ctx, http.MethodPost, "/api/register", credentials{Username: username, Password: password}, nil)
}

// ListLists returns all lists of the session in store order.
func (c *Client) ListLists(ctx context.Context) ([]service.List, error) {
	var wire []wireList
	if err := c.do(ctx, http.MethodGet, "/api/lists", nil, &wire); err != nil {
		return nil, err
	}
	lists := make([]service.List, 0, len(wire))
	for _, l := range wire {
		lists = append(lists, service.List{ID: string(l.ID), Title: l.Title})
	}
	return lists, nil
}

// CreateList creates a list.
func (c *Client) CreateList(ctx context.Context, title string) (service.List, error) {
	var l wireList
	if err := c.do(ctx, http.MethodPost, "/api/lists", map[string]string{"title": title}, &l); err != nil {
		return service.List{}, err
	}
	return service.List{ID: string(l.ID), Title: l.Title}, nil
}

// ListItems returns the nested top-level items of a list.
func (c *Client) ListItems(ctx context.Context, listID string) ([]service.Item, error) {
	var wire []wireItem
	if err := c.do(ctx, http.MethodGet, "/api/lists/"+url.PathEscape(listID)+"/items", nil, &wire); err != nil {
		return nil, err
	}
	return toItems(wire), nil
}

// CreateItem creates a task or, with parentID, a subtask.
func (c *Client) CreateItem(ctx context.Context, listID, content, parentID string) (service.Item, error) {
	var it wireItem
	body := createItem{Content: content, ParentID: wireID(parentID)}
	if err := c.do(ctx, http.MethodPost, "/api/lists/"+url.PathEscape(listID)+"/items", body, &it); err != nil {
		return service.Item{}, err
	}
	out := it.item()
	if out.ParentID == "" {
		out.ParentID = parentID
	}
	if out.ListID == "" {
		out.ListID = listID
	}
	return out, nil
}

// UpdateItem sends the fields set in patch. A placement always carries both
// parent_id (null for top level) and list_id.
func (c *Client) UpdateItem(ctx context.Context, listID, itemID string, patch service.Patch) error {
	body := updateItem{
		Content:    patch.Content,
		Completed:  patch.Completed,
		IsExpanded: patch.Expanded,
	}
	if p := patch.Placement; p != nil {
		parent, list := wireID(p.ParentID), wireID(p.ListID)
		if list == "" {
			list = wireID(listID)
		}
		body.ParentID = &parent
		body.ListID = &list
	}
	return c.do(ctx, http.MethodPut, "/api/items/"+url.PathEscape(itemID), body, nil)
}

// DeleteItem deletes an item; the store removes its descendants.
func (c *Client) DeleteItem(ctx context.Context, listID, itemID string) error {
	return c.do(ctx, http.MethodDelete, "/api/items/"+url.PathEscape(itemID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: encode: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed", "method", method, "path", path, "err", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%s %s: read: %w", method, path, err)
	}
	c.log.Debug("request", "method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}

// statusError maps a store status to a service sentinel, keeping the
// store's own message.
func statusError(code int, body []byte) error {
	var e struct {
		Error string `json:"error"`
	}
	msg := http.StatusText(code)
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		msg = e.Error
	}

	switch code {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", service.ErrUnauthorized, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", service.ErrNotFound, msg)
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", service.ErrRejected, msg)
	default:
		return fmt.Errorf("store returned %d: %s", code, msg)
	}
}
