package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notdeathm/notdeath/internal/api/handler"
)

// mockIssueOpener records opened issues.
type mockIssueOpener struct {
	configured bool
	issueURL   string
	err        error

	gotTitle  string
	gotBody   string
	gotLabels []string
	calls     int
}

func (m *mockIssueOpener) Configured() bool { return m.configured }

func (m *mockIssueOpener) OpenIssue(_ context.Context, title, body string, labels []string) (string, error) {
	m.calls++
	m.gotTitle = title
	m.gotBody = body
	m.gotLabels = labels
	if m.err != nil {
		return "", m.err
	}
	return m.issueURL, nil
}

func postReport(t *testing.T, h *handler.ReportHandler, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	switch p := payload.(type) {
	case string:
		body.WriteString(p)
	default:
		require.NoError(t, json.NewEncoder(&body).Encode(p))
	}

	req := httptest.NewRequest(http.MethodPost, "/api/report", &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	return rec
}

func validReport() handler.ReportRequest {
	return handler.ReportRequest{
		Title: "Website is down",
		Body:  "Getting 502 from the homepage",
		Ts:    time.Now().Add(-10 * time.Second).UnixMilli(),
	}
}

func problemDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var problem struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return problem.Detail
}

func TestReportHandler_Create(t *testing.T) {
	tracker := &mockIssueOpener{configured: true, issueURL: "https://github.com/o/r/issues/9"}
	h := handler.NewReportHandler(tracker)

	rec := postReport(t, h, validReport())

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp handler.ReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://github.com/o/r/issues/9", resp.Issue)

	assert.Equal(t, "[Status Report] Website is down", tracker.gotTitle)
	assert.Equal(t, "Getting 502 from the homepage", tracker.gotBody)
}

func TestReportHandler_Create_Validation(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(r *handler.ReportRequest)
		wantDetail string
	}{
		{
			name:       "missing title",
			mutate:     func(r *handler.ReportRequest) { r.Title = "" },
			wantDetail: "Missing title or body",
		},
		{
			name:       "missing body",
			mutate:     func(r *handler.ReportRequest) { r.Body = "" },
			wantDetail: "Missing title or body",
		},
		{
			name:       "title too long",
			mutate:     func(r *handler.ReportRequest) { r.Title = strings.Repeat("a", 101) },
			wantDetail: "Title too long",
		},
		{
			name:       "body too long",
			mutate:     func(r *handler.ReportRequest) { r.Body = strings.Repeat("b", 1001) },
			wantDetail: "Body too long",
		},
		{
			name:       "honeypot filled",
			mutate:     func(r *handler.ReportRequest) { r.Honeypot = "gotcha" },
			wantDetail: "Spam detected",
		},
		{
			name:       "submitted too quickly",
			mutate:     func(r *handler.ReportRequest) { r.Ts = time.Now().UnixMilli() },
			wantDetail: "Form submitted too quickly",
		},
		{
			name:       "missing timestamp",
			mutate:     func(r *handler.ReportRequest) { r.Ts = 0 },
			wantDetail: "Form submitted too quickly",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := &mockIssueOpener{configured: true}
			h := handler.NewReportHandler(tracker)

			report := validReport()
			tt.mutate(&report)
			rec := postReport(t, h, report)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantDetail, problemDetail(t, rec))
			assert.Zero(t, tracker.calls, "invalid report must not reach the tracker")
		})
	}
}

func TestReportHandler_Create_BoundaryLengthsAccepted(t *testing.T) {
	tracker := &mockIssueOpener{configured: true}
	h := handler.NewReportHandler(tracker)

	report := validReport()
	report.Title = strings.Repeat("a", 100)
	report.Body = strings.Repeat("b", 1000)

	rec := postReport(t, h, report)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReportHandler_Create_LimitsCountCharactersNotBytes(t *testing.T) {
	tracker := &mockIssueOpener{configured: true}
	h := handler.NewReportHandler(tracker)

	// 100 characters, 200 bytes; byte-based limits would reject this.
	report := validReport()
	report.Title = strings.Repeat("é", 100)
	report.Body = strings.Repeat("ü", 1000)

	rec := postReport(t, h, report)
	assert.Equal(t, http.StatusOK, rec.Code)

	report.Title = strings.Repeat("é", 101)
	rec = postReport(t, h, report)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Title too long", problemDetail(t, rec))
}

func TestReportHandler_Create_InvalidJSON(t *testing.T) {
	h := handler.NewReportHandler(&mockIssueOpener{configured: true})
	rec := postReport(t, h, "{broken")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportHandler_Create_Unconfigured(t *testing.T) {
	h := handler.NewReportHandler(&mockIssueOpener{configured: false})

	rec := postReport(t, h, validReport())

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Equal(t, "Issue creation not configured (set GITHUB_TOKEN and GITHUB_REPO)", problemDetail(t, rec))
}

func TestReportHandler_Create_TrackerFailure(t *testing.T) {
	h := handler.NewReportHandler(&mockIssueOpener{configured: true, err: errors.New("rate limited")})

	rec := postReport(t, h, validReport())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestReportHandler_Create_SanitizesMarkup(t *testing.T) {
	tracker := &mockIssueOpener{configured: true}
	h := handler.NewReportHandler(tracker)

	report := validReport()
	report.Title = "<img src=x>"
	report.Body = `<script>alert("x")</script>`

	rec := postReport(t, h, report)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.NotContains(t, tracker.gotTitle, "<img")
	assert.NotContains(t, tracker.gotBody, "<script>")
	assert.Contains(t, tracker.gotBody, "&lt;script&gt;")
}
