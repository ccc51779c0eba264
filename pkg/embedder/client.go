package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

const maxAttempts = 3

// Client triggers embedding computation for an ingested document. The
// collaborator is idempotent: it reports skipped:"exists" when embeddings
// were already computed, so re-triggering is always safe.
type Client struct {
	baseURL    string
	httpClient *http.Client
	backoff    time.Duration
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		backoff: 250 * time.Millisecond,
	}
}

// Trigger is best-effort: up to 3 attempts with linear backoff
// (250ms x attempt number). Exhaustion is logged, never returned as a
// failure — embeddings may lag ingestion.
func (c *Client) Trigger(ctx context.Context, docID string) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if lastErr = c.post(ctx, docID); lastErr == nil {
			return
		}
		if attempt < maxAttempts {
			select {
			case <-time.After(c.backoff * time.Duration(attempt)):
			case <-ctx.Done():
				log.Printf("[Embedder] Trigger cancelled for doc %s: %v", docID, ctx.Err())
				return
			}
		}
	}
	log.Printf("[Embedder] Giving up on doc %s after %d attempts: %v", docID, maxAttempts, lastErr)
}

func (c *Client) post(ctx context.Context, docID string) error {
	payload, err := json.Marshal(map[string]string{"doc_id": docID})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("embedding service returned %d", resp.StatusCode)
	}

	return nil
}
