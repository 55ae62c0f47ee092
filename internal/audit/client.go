package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// BatchResult is the sink's per-batch accounting.
type BatchResult struct {
	Processed  int `json:"processed"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// Client ships event batches to the audit sink over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a sink client with a short request timeout; slow audit
// delivery must never hold up anything else.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Send posts one batch to POST /api/logs and returns the sink's counts.
func (c *Client) Send(ctx context.Context, events []Event) (BatchResult, error) {
	payload, err := json.Marshal(map[string][]Event{"events": events})
	if err != nil {
		return BatchResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/logs", bytes.NewReader(payload))
	if err != nil {
		return BatchResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return BatchResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return BatchResult{}, fmt.Errorf("audit sink returned %d", resp.StatusCode)
	}
	var result BatchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return BatchResult{}, err
	}
	return result, nil
}
