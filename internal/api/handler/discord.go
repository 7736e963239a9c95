package handler

import (
	"fmt"
	"net/http"
)

// DiscordHandler serves the Discord domain verification payload from the
// environment so the token never lands in the repository.
type DiscordHandler struct {
	key string
}

// NewDiscordHandler creates a new DiscordHandler.
func NewDiscordHandler(key string) *DiscordHandler {
	return &DiscordHandler{key: key}
}

// Get handles GET /.well-known/discord.
func (h *DiscordHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.key == "" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "dh=%s", h.key)
}
