package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/collab"
	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	hub        *collab.Hub
	redis      *store.RedisStore
	logger     zerolog.Logger
	upgrader   websocket.Upgrader
	sendBuffer int
	joins      JoinLimiter
}

// NewHandler creates a new Handler serving the hub's documents.
func NewHandler(logger zerolog.Logger, hub *collab.Hub, redis *store.RedisStore, ws WSConfig) *Handler {
	if ws.SendBuffer <= 0 {
		ws.SendBuffer = DefaultSendBuffer
	}
	return &Handler{
		hub:        hub,
		redis:      redis,
		logger:     logger,
		upgrader:   newUpgrader(ws.AllowedOrigins),
		sendBuffer: ws.SendBuffer,
		joins:      ws.Joins,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
