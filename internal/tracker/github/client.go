// Package github provides the issue tracker bridge: incidents are mirrored
// to GitHub issues in a configured repository.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the base URL for the GitHub REST API.
	DefaultBaseURL = "https://api.github.com"

	acceptHeader = "application/vnd.github.v3+json"
)

// issueNumberPattern extracts the issue number from an issue URL.
var issueNumberPattern = regexp.MustCompile(`issues/(\d+)`)

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the GitHub issues client.
type ClientConfig struct {
	// Token is the API token. Empty means the tracker is not configured and
	// every operation becomes a no-op.
	Token string

	// Repo is the target repository in owner/repo form.
	Repo string

	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use. If nil, a plain client with a
	// 10s timeout is created.
	HTTPClient HTTPDoer
}

// Client creates and closes GitHub issues for incidents.
type Client struct {
	token      string
	repo       string
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a new GitHub issues client.
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
		token:      cfg.Token,
		repo:       cfg.Repo,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Configured reports whether the client has credentials and a target repo.
func (c *Client) Configured() bool {
	return c.token != "" && c.repo != ""
}

type createIssueRequest struct {
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Labels []string `json:"labels,omitempty"`
}

type issueResponse struct {
	HTMLURL string `json:"html_url"`
}

// OpenIssue creates an issue and returns its URL. An unconfigured client
// returns ("", nil); failures return an error the caller logs and discards.
func (c *Client) OpenIssue(ctx context.Context, title, body string, labels []string) (string, error) {
	if !c.Configured() {
		return "", nil
	}

	payload, err := json.Marshal(createIssueRequest{Title: title, Body: body, Labels: labels})
	if err != nil {
		return "", fmt.Errorf("marshal issue: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/issues", c.baseURL, c.repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create issue: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d from issues endpoint", resp.StatusCode)
	}

	var issue issueResponse
	if err := json.NewDecoder(resp.Body).Decode(&issue); err != nil {
		return "", fmt.Errorf("decode issue response: %w", err)
	}
	return issue.HTMLURL, nil
}

// CloseIssue closes the issue referenced by issueURL. Returns false without
// error when the client is unconfigured or the URL carries no issue number.
func (c *Client) CloseIssue(ctx context.Context, issueURL string) (bool, error) {
	if !c.Configured() {
		return false, nil
	}

	number := issueNumber(issueURL)
	if number == "" {
		return false, nil
	}

	payload := []byte(`{"state":"closed"}`)
	url := fmt.Sprintf("%s/repos/%s/issues/%s", c.baseURL, c.repo, number)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("close issue: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Content-Type", "application/json")
}

// issueNumber pulls the numeric issue id out of an issue URL.
func issueNumber(issueURL string) string {
	m := issueNumberPattern.FindStringSubmatch(issueURL)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
