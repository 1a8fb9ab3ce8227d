package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxResponseBytes = 8 << 20

// DefaultHTTPClient is shared by the upstream clients when none is supplied.
var DefaultHTTPClient = &http.Client{Timeout: 30 * time.Second}

// UpstreamError is a non-2xx answer from a third-party API. Body is the raw
// response text so proxies can relay it unchanged.
type UpstreamError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API error: %d %s", e.Service, e.StatusCode, e.Body)
}

// Request describes one JSON call to an upstream API.
type Request struct {
	Service string
	Method  string
	URL     string
	Header  http.Header
	Body    any
}

// DoJSON sends r and returns the response body. Non-2xx answers come back as
// *UpstreamError; transport failures are returned as-is.
func DoJSON(ctx context.Context, client *http.Client, r Request) ([]byte, error) {
	if client == nil {
		client = DefaultHTTPClient
	}

	var body io.Reader
	if r.Body != nil {
		b, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Service: r.Service, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}
