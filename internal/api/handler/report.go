package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/notdeathm/notdeath/internal/api/response"
)

// report limits mirrored client-side by the form.
const (
	maxReportTitle = 100
	maxReportBody  = 1000

	// minDwell rejects forms submitted within 5 seconds of being opened.
	minDwell = 5 * time.Second
)

var htmlSanitizer = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	"&", "&amp;",
	`"`, "&quot;",
)

// IssueOpener creates an external ticket for a user-submitted report.
type IssueOpener interface {
	Configured() bool
	OpenIssue(ctx context.Context, title, body string, labels []string) (string, error)
}

// ReportRequest is the incident report submission payload.
type ReportRequest struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Honeypot string `json:"honeypot"`
	// Ts is the form-open timestamp in Unix milliseconds.
	Ts int64 `json:"ts"`
}

// ReportResponse carries the created ticket URL.
type ReportResponse struct {
	Issue string `json:"issue"`
}

// ReportHandler accepts user incident reports and mirrors them to the issue
// tracker.
type ReportHandler struct {
	tracker IssueOpener
	now     func() time.Time
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(tracker IssueOpener) *ReportHandler {
	return &ReportHandler{tracker: tracker, now: time.Now}
}

// Create handles POST /api/report.
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body")
		return
	}

	if req.Title == "" || req.Body == "" {
		response.BadRequest(w, r, "Missing title or body")
		return
	}
	if utf8.RuneCountInString(req.Title) > maxReportTitle {
		response.BadRequest(w, r, "Title too long")
		return
	}
	if utf8.RuneCountInString(req.Body) > maxReportBody {
		response.BadRequest(w, r, "Body too long")
		return
	}

	// Anti-spam: legitimate users never fill the honeypot, and a real form
	// is open for at least minDwell before submission.
	if req.Honeypot != "" {
		response.BadRequest(w, r, "Spam detected")
		return
	}
	elapsed := h.now().UnixMilli() - req.Ts
	if req.Ts == 0 || elapsed < minDwell.Milliseconds() {
		response.BadRequest(w, r, "Form submitted too quickly")
		return
	}

	if h.tracker == nil || !h.tracker.Configured() {
		response.NotImplemented(w, r, "Issue creation not configured (set GITHUB_TOKEN and GITHUB_REPO)")
		return
	}

	title := "[Status Report] " + htmlSanitizer.Replace(req.Title)
	body := htmlSanitizer.Replace(req.Body)

	issueURL, err := h.tracker.OpenIssue(r.Context(), title, body, nil)
	if err != nil {
		response.InternalError(w, r, "failed to create issue")
		return
	}

	response.JSON(w, r, http.StatusOK, ReportResponse{Issue: issueURL})
}
