package handlers

import (
	"net/http"
)

// Stats returns a summary of the loaded rooms.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, h.hub.Stats())
}
