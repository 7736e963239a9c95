// Package discord posts alert messages to a Discord webhook.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Webhook is a fire-and-forget notifier. A single POST, no retry; the
// caller swallows failures.
type Webhook struct {
	url        string
	httpClient HTTPDoer
}

// NewWebhook creates a webhook notifier. An empty URL yields an
// unconfigured notifier whose Notify is a no-op.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewWebhookWithClient creates a webhook notifier with a custom HTTP client.
func NewWebhookWithClient(url string, client HTTPDoer) *Webhook {
	return &Webhook{url: url, httpClient: client}
}

// Configured reports whether a webhook URL is set.
func (w *Webhook) Configured() bool {
	return w.url != ""
}

type message struct {
	Content string `json:"content"`
}

// Notify posts a short text message to the webhook.
func (w *Webhook) Notify(ctx context.Context, content string) error {
	if !w.Configured() {
		return nil
	}

	payload, err := json.Marshal(message{Content: content})
	if err != nil {
		return fmt.Errorf("marshal webhook message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d from webhook", resp.StatusCode)
	}
	return nil
}
