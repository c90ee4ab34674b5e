package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"slidecast/types"
)

// Client is a thin HTTP client for the export API
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// GetExport fetches a job snapshot
func (c *Client) GetExport(id string) (*types.JobStatus, error) {
	resp, err := c.client.Get(c.baseURL + "/api/exports/" + id)
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	var status types.JobStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &status, nil
}
