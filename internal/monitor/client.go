package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/lifecycled/internal/server"
)

// StatusClient queries the lifecycled HTTP API. The dashboard polls it and
// lcctl drives it directly.
type StatusClient struct {
	baseURL string
	client  *http.Client
}

// NewStatusClient creates a client for the daemon at baseURL.
func NewStatusClient(baseURL string) *StatusClient {
	return &StatusClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 2 * time.Second,
		},
	}
}

// apiError mirrors the error body the server renders for failed requests.
type apiError struct {
	Message string `json:"message"`
}

// Health fetches GET /healthz.
func (c *StatusClient) Health(ctx context.Context) (server.HealthResponse, error) {
	var out server.HealthResponse
	err := c.get(ctx, "/healthz", &out)
	return out, err
}

// Status fetches GET /statusz.
func (c *StatusClient) Status(ctx context.Context) (server.StatusResponse, error) {
	var out server.StatusResponse
	err := c.get(ctx, "/statusz", &out)
	return out, err
}

// GroupOrder fetches the current group order.
func (c *StatusClient) GroupOrder(ctx context.Context) ([]string, error) {
	var out server.OrderResponse
	if err := c.get(ctx, "/v1/groups/order", &out); err != nil {
		return nil, err
	}
	return out.Order, nil
}

// SetGroupOrder replaces the group order and returns the order the daemon
// applied. Rejections carry the server's message.
func (c *StatusClient) SetGroupOrder(ctx context.Context, order []string) ([]string, error) {
	body, err := json.Marshal(server.OrderRequest{Order: order})
	if err != nil {
		return nil, fmt.Errorf("encode order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/v1/groups/order", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("set group order: %s", apiErr.Message)
		}
		return nil, fmt.Errorf("set group order: unexpected status code %d", resp.StatusCode)
	}

	var out server.OrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return out.Order, nil
}

func (c *StatusClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status code %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
