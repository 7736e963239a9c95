package github_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notdeathm/notdeath/internal/tracker/github"
)

func TestClient_Configured(t *testing.T) {
	assert.False(t, github.NewClient(github.ClientConfig{}).Configured())
	assert.False(t, github.NewClient(github.ClientConfig{Token: "t"}).Configured())
	assert.False(t, github.NewClient(github.ClientConfig{Repo: "o/r"}).Configured())
	assert.True(t, github.NewClient(github.ClientConfig{Token: "t", Repo: "o/r"}).Configured())
}

func TestClient_OpenIssue(t *testing.T) {
	var gotPath, gotAuth, gotAccept string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"html_url": "https://github.com/owner/status/issues/42"}`)
	}))
	defer server.Close()

	client := github.NewClient(github.ClientConfig{
		Token:   "secret",
		Repo:    "owner/status",
		BaseURL: server.URL,
	})

	url, err := client.OpenIssue(context.Background(), "Status: API is offline", "details", []string{"incident"})
	require.NoError(t, err)

	assert.Equal(t, "https://github.com/owner/status/issues/42", url)
	assert.Equal(t, "POST /repos/owner/status/issues", gotPath)
	assert.Equal(t, "token secret", gotAuth)
	assert.Equal(t, "application/vnd.github.v3+json", gotAccept)
	assert.Equal(t, "Status: API is offline", gotBody["title"])
	assert.Equal(t, "details", gotBody["body"])
	assert.Equal(t, []interface{}{"incident"}, gotBody["labels"])
}

func TestClient_OpenIssue_Unconfigured(t *testing.T) {
	client := github.NewClient(github.ClientConfig{})

	url, err := client.OpenIssue(context.Background(), "title", "body", nil)
	assert.NoError(t, err)
	assert.Empty(t, url)
}

func TestClient_OpenIssue_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := github.NewClient(github.ClientConfig{Token: "t", Repo: "o/r", BaseURL: server.URL})

	_, err := client.OpenIssue(context.Background(), "title", "body", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 403")
}

func TestClient_CloseIssue(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := github.NewClient(github.ClientConfig{Token: "t", Repo: "owner/status", BaseURL: server.URL})

	closed, err := client.CloseIssue(context.Background(), "https://github.com/owner/status/issues/42")
	require.NoError(t, err)

	assert.True(t, closed)
	assert.Equal(t, "PATCH /repos/owner/status/issues/42", gotPath)
	assert.Equal(t, map[string]string{"state": "closed"}, gotBody)
}

func TestClient_CloseIssue_NoIssueNumber(t *testing.T) {
	client := github.NewClient(github.ClientConfig{Token: "t", Repo: "o/r", BaseURL: "http://127.0.0.1:0"})

	closed, err := client.CloseIssue(context.Background(), "https://github.com/o/r/pulls/5")
	assert.NoError(t, err)
	assert.False(t, closed)
}

func TestClient_CloseIssue_Unconfigured(t *testing.T) {
	closed, err := github.NewClient(github.ClientConfig{}).CloseIssue(context.Background(), "https://github.com/o/r/issues/1")
	assert.NoError(t, err)
	assert.False(t, closed)
}
