package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/kailas-cloud/aigate/internal/domain"
)

const defaultTimeout = 10 * time.Second

// Client talks JSON to the platform admin API. It implements UserDirectory,
// FileReader and Access.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates an admin API client. baseURL has no trailing slash.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// Lookup resolves a user and its tier.
func (c *Client) Lookup(ctx context.Context, userID string) (User, error) {
	var u User
	err := c.getJSON(ctx, "/internal/users/"+url.PathEscape(userID), &u, domain.ErrUserNotFound)
	if err != nil {
		return User{}, fmt.Errorf("lookup user %s: %w", userID, err)
	}
	tier, err := domain.ParseTier(u.TierName)
	if err != nil {
		return User{}, fmt.Errorf("lookup user %s: %w", userID, err)
	}
	u.Tier = tier
	return u, nil
}

// Content fetches the extracted text of a file.
func (c *Client) Content(ctx context.Context, fileID string) (FileContent, error) {
	var fc FileContent
	err := c.getJSON(ctx, "/internal/files/"+url.PathEscape(fileID)+"/content", &fc, domain.ErrFileNotFound)
	if err != nil {
		return FileContent{}, fmt.Errorf("fetch file %s: %w", fileID, err)
	}
	return fc, nil
}

// CanQuery checks whether a user may search a knowledge base.
func (c *Client) CanQuery(ctx context.Context, userID, kbID string) (bool, error) {
	path := "/internal/acl/" + url.PathEscape(userID) + "/kb/" + url.PathEscape(kbID)
	var out struct {
		Allowed bool `json:"allowed"`
	}
	if err := c.getJSON(ctx, path, &out, nil); err != nil {
		return false, fmt.Errorf("check access %s/%s: %w", userID, kbID, err)
	}
	return out.Allowed, nil
}

// getJSON performs an authenticated GET and decodes the body. A 404 maps to
// notFound when one is given.
func (c *Client) getJSON(ctx context.Context, path string, out any, notFound error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call admin api: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound && notFound != nil:
		return notFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("admin api status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
