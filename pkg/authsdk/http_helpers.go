package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// url builds a complete URL by appending the path to the base URL.
func (c *SDKClient) url(path string) string {
	return c.BaseURL + path
}

// doRequest performs an HTTP request with the SDKClient's HTTP client. A
// non-nil body is sent as JSON; a non-empty token is sent as a bearer
// credential.
func (c *SDKClient) doRequest(
	ctx context.Context,
	method, path string,
	body any,
	token string,
) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	return resp, nil
}

// decodeEnvelope decodes an enveloped response and returns its data.
// Returns an *APIError if the status is not expectedStatus.
func decodeEnvelope[T any](resp *http.Response, expectedStatus int) (T, error) {
	defer resp.Body.Close()

	var zero T

	// Read body once for both error parsing and success decoding
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		if err := parseErrorResponse(resp, bodyBytes); err != nil {
			return zero, err
		}
		return zero, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var env Envelope[T]
	if err := json.Unmarshal(bodyBytes, &env); err != nil {
		return zero, fmt.Errorf("failed to decode response: %w", err)
	}

	return env.Data, nil
}
