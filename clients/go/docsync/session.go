package docsync

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

	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/delta"
	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/models"
)

// ErrSessionClosed is returned when writing to a closed session.
var ErrSessionClosed = errors.New("session closed")

// Event is one frame received from the server.
type Event struct {
	Name    string          `json:"event"`
	Data    json.RawMessage `json:"data"`
	Version int             `json:"version,omitempty"`
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

// Session is a joined realtime connection to one document.
type Session struct {
	DocumentID string
	User       models.ParticipantInfo

	ws     *websocket.Conn
	events chan Event
	done   chan struct{}

	mu       sync.Mutex // serializes writes and guards the fields below
	version  int
	closed   bool
	inflight bool         // an edit is waiting for its ack or rejection
	buffered *delta.Delta // edits made while one was in flight, composed
}

// Join opens a websocket and joins docID. A missing user ID or color is
// filled in.
func (c *Client) Join(ctx context.Context, docID string, user models.ParticipantInfo) (*Session, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Color == "" {
		user.Color = models.RandomColor()
	}

	wsURL := "ws" + strings.TrimPrefix(strings.TrimSuffix(c.BaseURL, "/"), "http") + "/ws"
	header := http.Header{}
	if c.Origin != "" {
		header.Set("Origin", c.Origin)
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, err
	}

	s := &Session{
		DocumentID: docID,
		User:       user,
		ws:         ws,
		events:     make(chan Event, 64),
		done:       make(chan struct{}),
	}
	go s.readLoop()

	if err := s.send(models.EventJoinDocument, models.JoinRequest{DocumentID: docID, User: &user}); err != nil {
		ws.Close()
		return nil, err
	}
	return s, nil
}

// Events delivers every frame from the server. It is closed when the
// connection ends.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Version is the latest document version this session has seen.
func (s *Session) Version() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

func (s *Session) readLoop() {
	defer close(s.events)
	for {
		var ev Event
		if err := s.ws.ReadJSON(&ev); err != nil {
			return
		}
		s.track(ev)
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

// track records the document version carried by ev and, once the edit in
// flight is answered, sends whatever was buffered behind it.
func (s *Session) track(ev Event) {
	v := 0
	answered, rejected := false, false
	switch ev.Name {
	case models.EventDocumentContent:
		var doc struct {
			Version int `json:"version"`
		}
		if ev.Decode(&doc) == nil {
			v = doc.Version
		}
	case models.EventDocumentUpdated:
		v = ev.Version
	case models.EventOperationAck, models.EventOperationRejected:
		var res models.OperationResult
		if ev.Decode(&res) == nil {
			v = res.Version
		}
		answered, rejected = true, ev.Name == models.EventOperationRejected
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if v > s.version {
		s.version = v
	}
	if !answered {
		return
	}
	s.inflight = false
	next := s.buffered
	s.buffered = nil
	// Buffered edits were made on top of the rejected one.
	if rejected || next == nil || s.closed {
		return
	}
	if err := s.sendEditLocked(*next); err == nil {
		s.inflight = true
	}
}

func (s *Session) send(event string, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.writeLocked(event, data)
}

func (s *Session) writeLocked(event string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	s.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.ws.WriteJSON(models.Inbound{Event: event, Data: b})
}

func (s *Session) sendEditLocked(change delta.Delta) error {
	text, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return s.writeLocked(models.EventOperation, models.Operation{
		Kind:      models.OperationInsert,
		Text:      string(text),
		UserID:    s.User.ID,
		Timestamp: time.Now().UnixMilli(),
		Version:   s.version,
	})
}

// Edit submits a change to the document as this session last saw it,
// including its own earlier edits. One edit is in flight at a time; edits
// made before it is acknowledged are composed and sent together against
// the acknowledged version.
func (s *Session) Edit(change delta.Delta) error {
	if err := change.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	if s.inflight {
		if s.buffered == nil {
			s.buffered = &change
			return nil
		}
		composed, err := delta.Compose(*s.buffered, change)
		if err != nil {
			return err
		}
		s.buffered = &composed
		return nil
	}

	if err := s.sendEditLocked(change); err != nil {
		return err
	}
	s.inflight = true
	return nil
}

// Format applies attributes to length units starting at index.
func (s *Session) Format(index, length int, attrs map[string]any) error {
	change := delta.Delta{}
	change.Retain(index, nil).Retain(length, attrs)
	return s.Edit(change)
}

// Cursor publishes this participant's selection.
func (s *Session) Cursor(index, length int) error {
	return s.send(models.EventCursorUpdate, models.Cursor{Index: index, Length: length})
}

// Chat posts a chat message to the document's room.
func (s *Session) Chat(message string) error {
	return s.send(models.EventChatMessage, message)
}

// SetTitle renames the document.
func (s *Session) SetTitle(title string) error {
	return s.send(models.EventTitleUpdate, models.TitleUpdate{Title: title})
}

// Close leaves the room and closes the connection.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.ws.SetWriteDeadline(time.Now().Add(time.Second))
	s.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.mu.Unlock()
	return s.ws.Close()
}
