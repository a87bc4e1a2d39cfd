// Package client is a small HTTP SDK for the lost-and-found API. It
// satisfies the view layer's Gateway interface so the profile and detail
// view models run unmodified against a live server.
package client

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

	"github.com/daruratku/lostfound/internal/models"
)

// Client talks to one lost-and-found API server on behalf of one user.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client. The token is the bearer token from the auth
// provider; an empty token yields a viewer-only client.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type apiError struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// ListItems returns the authenticated user's reports in one status, newest
// first. The ownerID argument exists to satisfy view.Gateway; the server
// derives the owner from the bearer token.
func (c *Client) ListItems(ctx context.Context, _ string, status string) ([]models.LostItem, error) {
	var out struct {
		Items []models.LostItem `json:"items"`
	}
	path := "/api/profile/items?status=" + url.QueryEscape(status)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// UpdateStatus changes one of the authenticated user's reports.
func (c *Client) UpdateStatus(ctx context.Context, itemID, _ string, newStatus string) error {
	body, err := json.Marshal(models.UpdateStatusRequest{Status: newStatus})
	if err != nil {
		return err
	}
	path := "/api/items/" + url.PathEscape(itemID) + "/status"
	return c.do(ctx, http.MethodPatch, path, bytes.NewReader(body), nil)
}

// DeleteItem removes one of the authenticated user's reports.
func (c *Client) DeleteItem(ctx context.Context, itemID, _ string) error {
	return c.do(ctx, http.MethodDelete, "/api/items/"+url.PathEscape(itemID), nil, nil)
}

// GetItem fetches one report.
func (c *Client) GetItem(ctx context.Context, itemID string) (*models.LostItem, error) {
	var out models.LostItem
	if err := c.do(ctx, http.MethodGet, "/api/items/"+url.PathEscape(itemID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Browse lists reports matching the public search filter.
func (c *Client) Browse(ctx context.Context, filter models.ItemFilter) ([]models.LostItem, error) {
	q := url.Values{}
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}
	if filter.CategoryID != "" {
		q.Set("category", filter.CategoryID)
	}
	if filter.Query != "" {
		q.Set("q", filter.Query)
	}
	path := "/api/items"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var out struct {
		Items []models.LostItem `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Profile returns the authenticated user's identity.
func (c *Client) Profile(ctx context.Context) (userID, email string, joinedAt time.Time, err error) {
	var out struct {
		UserID   string    `json:"user_id"`
		Email    string    `json:"email"`
		JoinedAt time.Time `json:"joined_at"`
	}
	if err = c.do(ctx, http.MethodGet, "/api/profile", nil, &out); err != nil {
		return "", "", time.Time{}, err
	}
	return out.UserID, out.Email, out.JoinedAt, nil
}
