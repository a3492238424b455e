package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/api/middleware"
	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/collab"
	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/metrics"
	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024

	// DefaultSendBuffer is how many outbound frames a connection may have
	// queued before it is dropped.
	DefaultSendBuffer = 256
)

var (
	errSendQueueFull = errors.New("send queue full")
	errConnClosed    = errors.New("connection closed")
)

// JoinLimiter caps how often one connection may join documents.
type JoinLimiter interface {
	AllowJoin(ctx context.Context, connID string) bool
}

// WSConfig configures the websocket endpoint.
type WSConfig struct {
	AllowedOrigins []string // "*" allows any origin
	SendBuffer     int
	Joins          JoinLimiter // optional
}

func newUpgrader(allowed []string) websocket.Upgrader {
	origins := make(map[string]bool, len(allowed))
	allowAll := false
	for _, o := range allowed {
		o = strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
		if o == "*" {
			allowAll = true
		}
		origins[o] = true
	}

	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// Non-browser clients send no Origin.
			if origin == "" || allowAll {
				return true
			}
			return origins[strings.ToLower(origin)]
		},
	}
}

// wsConn is a collab.Conn over a websocket. Frames are queued on send and
// written by writePump.
type wsConn struct {
	id string
	ws *websocket.Conn

	mu     sync.Mutex
	send   chan models.Envelope
	closed bool
}

func (c *wsConn) ID() string { return c.id }

// Send queues env without blocking.
func (c *wsConn) Send(env models.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errConnClosed
	}
	select {
	case c.send <- env:
		return nil
	default:
		return errSendQueueFull
	}
}

// Close stops the writer, which closes the socket after a close frame.
func (c *wsConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

func (c *wsConn) writePump(logger zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteJSON(env); err != nil {
				logger.Debug().Err(err).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsConn) readPump(ctx context.Context, client *collab.Client, joins JoinLimiter, logger zerolog.Logger) {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				logger.Warn().Err(err).Msg("websocket closed unexpectedly")
			}
			return
		}

		var in models.Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			logger.Warn().Err(err).Msg("invalid frame ignored")
			continue
		}
		if in.Event == models.EventJoinDocument && joins != nil && !joins.AllowJoin(ctx, c.id) {
			logger.Warn().Str("document_id", client.DocumentID()).Msg("join rate exceeded, frame ignored")
			continue
		}
		client.Handle(in)
	}
}

// ServeWS upgrades the request and runs the connection until it closes.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied.
		h.logger.Warn().Err(err).Str("origin", r.Header.Get("Origin")).Msg("websocket upgrade failed")
		return
	}

	conn := &wsConn{
		id:   uuid.NewString(),
		ws:   ws,
		send: make(chan models.Envelope, h.sendBuffer),
	}
	logger := h.logger.With().Str("conn_id", conn.id).Logger()
	client := collab.NewClient(h.hub, conn)

	metrics.ConnectionsActive.Inc()
	logger.Info().Str("remote_addr", middleware.RealIP(r)).Msg("websocket connected")

	go conn.writePump(logger)
	conn.readPump(r.Context(), client, h.joins, logger)

	docID := client.DocumentID()
	client.Close()
	conn.Close()

	metrics.ConnectionsActive.Dec()
	logger.Info().Str("document_id", docID).Msg("websocket disconnected")
}
