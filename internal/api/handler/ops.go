package handler

import (
	"net/http"
	"time"

	"github.com/notdeathm/notdeath/internal/api/response"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(version, buildTime string) *OpsHandler {
	return &OpsHandler{version: version, buildTime: buildTime}
}

// HealthCheck handles GET /health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"time":      time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"buildTime": h.buildTime,
	})
}
