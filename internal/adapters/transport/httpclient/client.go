// Package httpclient talks to a remote list server over its HTTP and websocket routes.
package httpclient

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

	"github.com/hylla/insync/internal/adapters/server/common"
	"github.com/hylla/insync/internal/editor"
)

// defaultTimeout bounds one request when the caller's context carries no deadline.
const defaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error body is kept in a StatusError.
const maxErrorBody = 4 << 10

// Config describes where the list server lives.
type Config struct {
	BaseURL      string
	Resource     string
	LiveEndpoint string
	HTTPClient   *http.Client
}

// Client implements editor.Remote against the list server routes.
type Client struct {
	baseURL      *url.URL
	resource     string
	liveEndpoint string
	httpClient   *http.Client
}

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, msg)
}

// Is lets 404 answers match editor.ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == editor.ErrNotFound && e.StatusCode == http.StatusNotFound
}

// New validates cfg and returns a client.
func New(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("base url is required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url scheme %q is not http or https", base.Scheme)
	}
	base.Path = strings.TrimRight(base.Path, "/")

	resource := strings.Trim(strings.TrimSpace(cfg.Resource), "/")
	if resource == "" {
		resource = "api"
	}
	live := strings.Trim(strings.TrimSpace(cfg.LiveEndpoint), "/")
	if live == "" {
		live = "ws/list"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:      base,
		resource:     resource,
		liveEndpoint: live,
		httpClient:   httpClient,
	}, nil
}

// createResponse mirrors the server's JSON create payload.
type createResponse struct {
	Item common.ItemView `json:"item"`
	HTML string          `json:"html"`
}

// CreateAfter asks the server to insert a blank item after afterItemID.
func (c *Client) CreateAfter(ctx context.Context, afterItemID string) (editor.Fragment, error) {
	var out createResponse
	err := c.do(ctx, http.MethodPost, "list/item", map[string]string{"after_item_id": afterItemID}, &out)
	if err != nil {
		return editor.Fragment{}, err
	}
	return editor.Fragment{
		Item:   editor.Item{ID: out.Item.ID, Text: out.Item.Text, Completed: out.Item.Completed},
		Markup: out.HTML,
	}, nil
}

// Delete removes one item. A 404 surfaces as editor.ErrNotFound.
func (c *Client) Delete(ctx context.Context, itemID string) error {
	return c.do(ctx, http.MethodDelete, "list/item/"+url.PathEscape(itemID), nil, nil)
}

// UpdateText replaces one item's text.
func (c *Client) UpdateText(ctx context.Context, itemID, text string) error {
	return c.do(ctx, http.MethodPut, "list/item/"+url.PathEscape(itemID), map[string]string{"text": text}, nil)
}

// SetCompleted marks one item done or open.
func (c *Client) SetCompleted(ctx context.Context, itemID string, done bool) error {
	return c.do(ctx, http.MethodPatch, "list/item/"+url.PathEscape(itemID)+"/completed", map[string]bool{"completed": done}, nil)
}

// LoadList fetches one list by id or name.
func (c *Client) LoadList(ctx context.Context, ref string) (editor.Outline, error) {
	var view common.ListView
	if err := c.do(ctx, http.MethodGet, "list/"+url.PathEscape(ref), nil, &view); err != nil {
		return editor.Outline{}, err
	}
	return OutlineFromView(view)
}

// Lists returns every list on the server.
func (c *Client) Lists(ctx context.Context) ([]common.ListSummary, error) {
	var out struct {
		Lists []common.ListSummary `json:"lists"`
	}
	if err := c.do(ctx, http.MethodGet, "lists", nil, &out); err != nil {
		return nil, err
	}
	return out.Lists, nil
}

// OutlineFromView converts a transport list view into an editor outline.
func OutlineFromView(view common.ListView) (editor.Outline, error) {
	items := make([]editor.Item, 0, len(view.Items))
	for _, item := range view.Items {
		items = append(items, editor.Item{ID: item.ID, Text: item.Text, Completed: item.Completed})
	}
	return editor.NewOutline(view.List.ID, view.List.Name, items)
}

// do sends one JSON request below the resource prefix and decodes a JSON answer.
func (c *Client) do(ctx context.Context, method, route string, body, result any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	path := c.apiPath(route)
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	u := *c.baseURL
	u.Path = path
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return readStatusError(method, path, resp)
	}
	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) apiPath(route string) string {
	return c.baseURL.Path + "/" + c.resource + "/" + route
}

// readStatusError decodes the server's error envelope when present.
func readStatusError(method, path string, resp *http.Response) error {
	statusErr := &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Code != "" {
		statusErr.Code = envelope.Error.Code
		statusErr.Message = envelope.Error.Message
	} else {
		statusErr.Message = strings.TrimSpace(string(raw))
	}
	return statusErr
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}
