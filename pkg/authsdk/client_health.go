package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// GetLiveness checks if the service process is up.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.probe(ctx, "/livez")
}

// GetReadiness checks if the service can reach its dependencies. When a check
// fails the response is still returned, alongside an error matching
// ErrUnavailable, so callers can see which dependency is down.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.probe(ctx, "/readyz")
}

// probe fetches a health document. Health responses are not enveloped.
func (c *SDKClient) probe(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusServiceUnavailable:
	default:
		return nil, parseErrorResponse(resp, body)
	}

	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode == http.StatusServiceUnavailable {
		return &health, &APIError{StatusCode: resp.StatusCode, Message: health.Status}
	}
	return &health, nil
}
