// Package rbacclient fetches capability snapshots from the permissions API and
// keeps a resolver fresh within a staleness window.
package rbacclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/muniadmin/muniadmin/internal/rbac"
)

// Client wraps the GET /permissions/me endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client. The http.Client should carry the session
// cookie, typically through a cookie jar; nil uses a default with a timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// FetchSnapshot requests the caller's capability snapshot.
func (c *Client) FetchSnapshot(ctx context.Context) (rbac.SnapshotResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/permissions/me", nil)
	if err != nil {
		return rbac.SnapshotResponse{}, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return rbac.SnapshotResponse{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return rbac.SnapshotResponse{}, fmt.Errorf("rbacclient: snapshot returned status %d", resp.StatusCode)
	}
	var out rbac.SnapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return rbac.SnapshotResponse{}, fmt.Errorf("rbacclient: decode snapshot: %w", err)
	}
	return out, nil
}
