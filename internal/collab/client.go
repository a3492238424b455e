package collab

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/models"
	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/store"
)

// Client is the server side of one connection. It is either detached or
// joined to exactly one room.
//
// A Client is driven by the connection's reader and is not safe for
// concurrent use.
type Client struct {
	hub    *Hub
	conn   Conn
	logger zerolog.Logger
	room   *Room
}

// NewClient attaches conn to the hub, detached from any room.
func NewClient(hub *Hub, conn Conn) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		logger: hub.logger.With().Str("conn_id", conn.ID()).Logger(),
	}
}

// DocumentID returns the joined document, or "" when detached.
func (c *Client) DocumentID() string {
	if c.room == nil {
		return ""
	}
	return c.room.id
}

// Handle dispatches one inbound frame. Frames that cannot be decoded, name
// an unknown event, or arrive before a join are logged and ignored; a bad
// operation payload is answered with operation-rejected.
func (c *Client) Handle(in models.Inbound) {
	if in.Event == models.EventJoinDocument {
		var req models.JoinRequest
		if err := json.Unmarshal(in.Data, &req); err != nil {
			c.logger.Warn().Err(err).Msg("invalid join-document payload")
			return
		}
		if err := c.join(req); err != nil {
			c.logger.Warn().Err(err).Msg("join failed")
		}
		return
	}

	if c.room == nil {
		c.logger.Debug().Str("event", in.Event).Msg("message before join ignored")
		return
	}

	switch in.Event {
	case models.EventOperation:
		ev := &event{kind: eventOperation, conn: c.conn}
		if err := json.Unmarshal(in.Data, &ev.op); err != nil {
			ev.opErr = fmt.Errorf("%w: %v", store.ErrMalformedOperation, err)
		}
		c.room.submit(ev)

	case models.EventCursorUpdate:
		var cursor models.Cursor
		if err := json.Unmarshal(in.Data, &cursor); err != nil {
			c.logger.Warn().Err(err).Msg("invalid cursor-update payload")
			return
		}
		c.room.submit(&event{kind: eventCursor, conn: c.conn, cursor: cursor})

	case models.EventChatMessage:
		var text string
		if err := json.Unmarshal(in.Data, &text); err != nil {
			c.logger.Warn().Err(err).Msg("invalid chat-message payload")
			return
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		if len(text) > store.MaxMessageBytes {
			c.logger.Warn().Err(store.ErrMessageTooLong).Int("bytes", len(text)).Msg("chat message dropped")
			return
		}
		c.room.submit(&event{kind: eventChat, conn: c.conn, text: text})

	case models.EventTitleUpdate:
		var update models.TitleUpdate
		if err := json.Unmarshal(in.Data, &update); err != nil {
			c.logger.Warn().Err(err).Msg("invalid document-title-update payload")
			return
		}
		c.room.submit(&event{kind: eventTitle, conn: c.conn, text: sanitizeTitle(update.Title)})

	default:
		c.logger.Debug().Str("event", in.Event).Msg("unknown event ignored")
	}
}

// join binds the connection to req's document, leaving any other room first.
func (c *Client) join(req models.JoinRequest) error {
	docID := strings.TrimSpace(req.DocumentID)
	if docID == "" {
		docID = models.DefaultDocumentID
	}
	if !models.ValidDocumentID(docID) {
		return fmt.Errorf("%w: %q", ErrInvalidDocumentID, docID)
	}

	info := req.Info()
	p := models.Participant{
		ID:    strings.TrimSpace(info.ID),
		Name:  sanitizeName(info.Name),
		Color: strings.TrimSpace(info.Color),
	}
	if p.ID == "" {
		p.ID = c.conn.ID()
	}
	if p.Name == "" {
		p.Name = "Anonymous"
	}
	if p.Color == "" {
		p.Color = models.RandomColor()
	}

	if c.room != nil && c.room.id == docID {
		// Rejoining the same room refreshes identity and resends state.
		c.room.submit(&event{kind: eventJoin, conn: c.conn, participant: p})
		return nil
	}
	c.leave()

	room, err := c.hub.acquire(docID)
	if err != nil {
		return err
	}
	if !room.submit(&event{kind: eventJoin, conn: c.conn, participant: p}) {
		c.hub.release(room)
		return ErrHubClosed
	}
	c.room = room
	return nil
}

// leave detaches from the current room, if any.
func (c *Client) leave() {
	if c.room == nil {
		return
	}
	room := c.room
	c.room = nil
	room.submit(&event{kind: eventLeave, conn: c.conn})
	c.hub.release(room)
}

// Close runs the disconnect path. It is safe to call more than once.
func (c *Client) Close() {
	c.leave()
}
