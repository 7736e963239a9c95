package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/notdeathm/notdeath/internal/api/response"
	"github.com/notdeathm/notdeath/internal/status"
)

// badge colors per status.
const (
	colorOnline   = "#4c1"
	colorDegraded = "#dfb317"
	colorOffline  = "#e05d44"
	colorUnknown  = "#9f9f9f"
)

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	`"`, "&quot;",
	"'", "&apos;",
	"<", "&lt;",
	">", "&gt;",
)

// BadgeHandler renders an SVG status badge for the overall status or one
// component.
type BadgeHandler struct {
	store status.Store
}

// NewBadgeHandler creates a new BadgeHandler.
func NewBadgeHandler(store status.Store) *BadgeHandler {
	return &BadgeHandler{store: store}
}

// Get handles GET /api/badge?component=<id>.
func (h *BadgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Load(r.Context())
	if err != nil || doc == nil {
		response.InternalError(w, r, "failed to render badge")
		return
	}

	label := "status"
	message := doc.Summary
	if message == "" {
		message = string(doc.Status)
	}

	if id := r.URL.Query().Get("component"); id != "" {
		if cmp := doc.ComponentByID(id); cmp != nil {
			label = cmp.Name
			if label == "" {
				label = cmp.ID
			}
			message = string(cmp.Status)
		} else {
			message = "not found"
		}
	}

	w.Header().Set("Content-Type", "image/svg+xml;charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, renderBadge(label, message))
}

// statusColor maps a badge message to its fill color; anything that is not
// a known status renders gray.
func statusColor(message string) string {
	switch message {
	case string(status.StatusOnline):
		return colorOnline
	case string(status.StatusDegraded):
		return colorDegraded
	case string(status.StatusOffline):
		return colorOffline
	default:
		return colorUnknown
	}
}

func renderBadge(label, message string) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="120" height="20">
  <linearGradient id="b" x2="0" y2="100%%">
    <stop offset="0" stop-color="#eee" stop-opacity=".7"/>
    <stop offset="1" stop-opacity=".7"/>
  </linearGradient>
  <rect rx="3" width="120" height="20" fill="#555"/>
  <rect rx="3" x="60" width="60" height="20" fill="%s"/>
  <rect rx="3" width="120" height="20" fill="url(#b)"/>
  <g fill="#fff" text-anchor="middle" font-family="Verdana,Geneva,DejaVu Sans,DejaVuSans,Bitstream Vera Sans,Arial,Helvetica,sans-serif" font-size="11">
    <text x="30" y="14">%s</text>
    <text x="90" y="14">%s</text>
  </g>
</svg>`, statusColor(message), xmlEscaper.Replace(label), xmlEscaper.Replace(message))
}
