package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the document extraction service. One synchronous call
// per ingested document.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ExtractRequest references the payload either by URL (the service
// downloads it itself, using the bearer token) or inline, base64-encoded.
type ExtractRequest struct {
	URL         string            `json:"url,omitempty"`
	InlineData  string            `json:"inline_data,omitempty"`
	Filename    string            `json:"filename"`
	DocID       string            `json:"doc_id"`
	BearerToken string            `json:"bearer_token,omitempty"`
	Context     map[string]string `json:"context,omitempty"`
}

func (c *Client) Extract(ctx context.Context, req ExtractRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("extraction service returned %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
