// Package sendgrid provides a minimal SendGrid v3 mail client for the
// contact-form relay.
package sendgrid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the base URL for the SendGrid API.
const DefaultBaseURL = "https://api.sendgrid.com"

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the SendGrid client.
type ClientConfig struct {
	// APIKey authorizes mail sends. Empty means mail delivery is not
	// configured.
	APIKey string

	// Sender is the from address.
	Sender string

	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use. If nil, a plain client with a
	// 10s timeout is created.
	HTTPClient HTTPDoer
}

// Client sends plain-text mail through the SendGrid v3 API.
type Client struct {
	apiKey     string
	sender     string
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a new SendGrid client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		apiKey:     cfg.APIKey,
		sender:     cfg.Sender,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

type personalization struct {
	To []address `json:"to"`
}

type address struct {
	Email string `json:"email"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Send delivers a plain-text message to recipient.
func (c *Client) Send(ctx context.Context, recipient, subject, body string) error {
	payload, err := json.Marshal(sendRequest{
		Personalizations: []personalization{{To: []address{{Email: recipient}}}},
		From:             address{Email: c.sender},
		Subject:          subject,
		Content:          []content{{Type: "text/plain", Value: body}},
	})
	if err != nil {
		return fmt.Errorf("marshal mail: %w", err)
	}

	url := c.baseURL + "/v3/mail/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d from mail send: %s", resp.StatusCode, detail)
	}
	return nil
}
