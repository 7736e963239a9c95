package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"unicode/utf8"

	"github.com/notdeathm/notdeath/internal/api/response"
)

// contact limits mirrored client-side by the form.
const (
	maxContactName    = 50
	maxContactMessage = 1000
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Mailer delivers a plain-text message through the configured provider.
type Mailer interface {
	Configured() bool
	Send(ctx context.Context, recipient, subject, body string) error
}

// ContactRequest is the contact form payload.
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
	ToEmail string `json:"to_email,omitempty"`
}

// ContactHandler relays contact form submissions to the mail provider.
type ContactHandler struct {
	mailer           Mailer
	defaultRecipient string
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(mailer Mailer, defaultRecipient string) *ContactHandler {
	return &ContactHandler{mailer: mailer, defaultRecipient: defaultRecipient}
}

// Send handles POST /api/send.
func (h *ContactHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body")
		return
	}

	if req.Name == "" || req.Email == "" || req.Message == "" {
		response.BadRequest(w, r, "Missing fields")
		return
	}
	if utf8.RuneCountInString(req.Name) > maxContactName {
		response.BadRequest(w, r, "Name too long")
		return
	}
	if utf8.RuneCountInString(req.Message) > maxContactMessage {
		response.BadRequest(w, r, "Message too long")
		return
	}
	if !emailPattern.MatchString(req.Email) {
		response.BadRequest(w, r, "Invalid email")
		return
	}

	if h.mailer == nil || !h.mailer.Configured() {
		response.NotImplemented(w, r, "No email provider configured. Set SENDGRID_API_KEY in environment.")
		return
	}

	recipient := req.ToEmail
	if recipient == "" {
		recipient = h.defaultRecipient
	}

	subject := fmt.Sprintf("Contact form message from %s", req.Name)
	body := fmt.Sprintf("From: %s <%s>\n\n%s", req.Name, req.Email, req.Message)

	if err := h.mailer.Send(r.Context(), recipient, subject, body); err != nil {
		response.InternalError(w, r, "mail delivery failed")
		return
	}

	response.JSON(w, r, http.StatusOK, map[string]bool{"ok": true})
}
