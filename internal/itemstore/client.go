// Package itemstore talks to the remote item collection and keeps the last
// fetched list in memory.
package itemstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/itemdesk/internal/apperr"
	"github.com/starford/itemdesk/internal/models"
)

// TokenSource supplies the bearer credential for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// DeleteResult is the confirmation returned by a delete.
type DeleteResult struct {
	Message       string `json:"message"`
	DeletedItemID string `json:"deleted_item_id"`
}

// Client issues REST calls against the collection. Every non-2xx response is
// a *apperr.RequestError regardless of status.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// NewClient creates a client. timeout <= 0 leaves the transport default.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	hc := &http.Client{}
	if timeout > 0 {
		hc.Timeout = timeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		tokens:  tokens,
	}
}

func itemPath(id string) string {
	return "/items/" + url.PathEscape(id)
}

// List fetches every item.
func (c *Client) List(ctx context.Context) ([]models.Item, error) {
	var resp struct {
		Items []models.Item `json:"items"`
	}
	if err := c.do(ctx, "list", http.MethodGet, "/items", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		return []models.Item{}, nil
	}
	return resp.Items, nil
}

// Get fetches one item.
func (c *Client) Get(ctx context.Context, id string) (models.Item, error) {
	return c.itemCall(ctx, "get", http.MethodGet, itemPath(id), nil)
}

// Create submits a new item and returns the server-assigned record.
func (c *Client) Create(ctx context.Context, d models.Draft) (models.Item, error) {
	return c.itemCall(ctx, "create", http.MethodPost, "/items", d)
}

// Update replaces the user-supplied fields of an existing item.
func (c *Client) Update(ctx context.Context, id string, d models.Draft) (models.Item, error) {
	return c.itemCall(ctx, "update", http.MethodPut, itemPath(id), d)
}

// Delete removes an item.
func (c *Client) Delete(ctx context.Context, id string) (DeleteResult, error) {
	var res DeleteResult
	if err := c.do(ctx, "delete", http.MethodDelete, itemPath(id), nil, &res); err != nil {
		return DeleteResult{}, err
	}
	return res, nil
}

// itemCall accepts both a bare item and the {message, item} envelope.
func (c *Client) itemCall(ctx context.Context, op, method, path string, body any) (models.Item, error) {
	var raw json.RawMessage
	if err := c.do(ctx, op, method, path, body, &raw); err != nil {
		return models.Item{}, err
	}

	var env struct {
		Item *models.Item `json:"item"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && env.Item != nil {
		return *env.Item, nil
	}
	var it models.Item
	if err := json.Unmarshal(raw, &it); err != nil {
		return models.Item{}, &apperr.RequestError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return it, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return &apperr.RequestError{Op: op, Err: err}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &apperr.RequestError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &apperr.RequestError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &apperr.RequestError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &apperr.RequestError{Op: op, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &apperr.RequestError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
