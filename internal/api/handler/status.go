// Package handler provides HTTP handlers for the status API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/notdeathm/notdeath/internal/api/response"
	"github.com/notdeathm/notdeath/internal/status"
)

// Refresher re-runs the lightweight subset of component checks on demand.
type Refresher interface {
	RunChecksOnly(ctx context.Context) []status.Component
}

// StatusHandler serves the persisted status document.
type StatusHandler struct {
	store     status.Store
	refresher Refresher
	now       func() time.Time
}

// NewStatusHandler creates a new StatusHandler. refresher may be nil, in
// which case the on-demand flag is ignored.
func NewStatusHandler(store status.Store, refresher Refresher) *StatusHandler {
	return &StatusHandler{
		store:     store,
		refresher: refresher,
		now:       time.Now,
	}
}

// Get handles GET /api/status. With ?run=1 the configured components are
// re-probed synchronously and merged into the response; any refresh problem
// silently falls back to the persisted document.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Load(r.Context())
	if err != nil {
		response.InternalError(w, r, "failed to read status document")
		return
	}
	if doc == nil {
		response.NotFound(w, r, "status document not found")
		return
	}

	if r.URL.Query().Get("run") == "1" && h.refresher != nil {
		if components := h.refresher.RunChecksOnly(r.Context()); len(components) > 0 {
			doc.Components = components
			doc.UpdatedAt = h.now()
		}
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	response.JSON(w, r, http.StatusOK, doc)
}
