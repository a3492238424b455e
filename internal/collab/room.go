package collab

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/metrics"
	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/models"
	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/store"
)

type eventKind int

const (
	eventJoin eventKind = iota
	eventLeave
	eventOperation
	eventCursor
	eventChat
	eventTitle
	eventPing
)

type event struct {
	kind eventKind
	conn Conn

	participant models.Participant
	op          models.Operation
	opErr       error // set when the operation payload could not be decoded
	cursor      models.Cursor
	text        string

	handled chan struct{}
}

// Room serializes every change to one document. All fields below are only
// touched by the run goroutine.
type Room struct {
	id     string
	logger zerolog.Logger

	docs     *store.DocumentStore
	sessions *store.SessionRegistry
	chat     *store.ChatLog
	members  map[string]Conn

	events chan *event
	quit   chan struct{}
	done   chan struct{}
}

func newRoom(id string, logger zerolog.Logger, docs *store.DocumentStore, sessions *store.SessionRegistry, chat *store.ChatLog) *Room {
	return &Room{
		id:       id,
		logger:   logger.With().Str("document_id", id).Logger(),
		docs:     docs,
		sessions: sessions,
		chat:     chat,
		members:  make(map[string]Conn),
		events:   make(chan *event),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (r *Room) run() {
	defer close(r.done)
	for {
		select {
		case ev := <-r.events:
			r.handle(ev)
			close(ev.handled)
		case <-r.quit:
			return
		}
	}
}

// stop ends the run loop and waits for it.
func (r *Room) stop() {
	select {
	case <-r.quit:
	default:
		close(r.quit)
	}
	<-r.done
}

// submit hands ev to the room and waits until it is handled. It reports
// false if the room stopped first.
func (r *Room) submit(ev *event) bool {
	ev.handled = make(chan struct{})
	select {
	case r.events <- ev:
	case <-r.done:
		return false
	}
	select {
	case <-ev.handled:
		return true
	case <-r.done:
		return false
	}
}

func (r *Room) handle(ev *event) {
	switch ev.kind {
	case eventJoin:
		r.join(ev.conn, ev.participant)
	case eventLeave:
		r.leave(ev.conn)
	case eventOperation:
		r.operation(ev.conn, ev.op, ev.opErr)
	case eventCursor:
		r.cursor(ev.conn, ev.cursor)
	case eventChat:
		r.chatMessage(ev.conn, ev.text)
	case eventTitle:
		r.title(ev.conn, ev.text)
	case eventPing:
	}
}

// ping waits for the run loop to take an empty event.
func (r *Room) ping(ctx context.Context) error {
	ev := &event{kind: eventPing, handled: make(chan struct{})}
	select {
	case r.events <- ev:
	case <-r.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ev.handled:
		return nil
	case <-r.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Room) join(conn Conn, p models.Participant) {
	r.members[conn.ID()] = conn
	roster := r.sessions.Join(r.id, conn.ID(), p)

	r.logger.Info().
		Str("conn_id", conn.ID()).
		Str("user_id", p.ID).
		Int("participants", len(roster)).
		Msg("participant joined")

	doc := r.docs.Get(r.id)
	if !r.send(conn, models.Envelope{Event: models.EventDocumentContent, Data: doc}) {
		return
	}
	if !r.send(conn, models.Envelope{Event: models.EventChatHistory, Data: r.chat.History(r.id)}) {
		return
	}
	r.broadcast(models.Envelope{Event: models.EventUsersUpdated, Data: roster}, "")
}

func (r *Room) leave(conn Conn) {
	delete(r.members, conn.ID())
	roster, ok := r.sessions.Leave(r.id, conn.ID())
	if !ok {
		return
	}

	r.logger.Info().
		Str("conn_id", conn.ID()).
		Int("participants", len(roster)).
		Msg("participant left")

	if len(roster) > 0 {
		r.broadcast(models.Envelope{Event: models.EventUsersUpdated, Data: roster}, "")
	}
}

func (r *Room) operation(conn Conn, op models.Operation, decodeErr error) {
	if !r.isMember(conn) {
		return
	}

	start := time.Now()
	var (
		doc models.Document
		err error
	)
	if decodeErr != nil {
		doc = r.docs.Get(r.id)
		err = decodeErr
	} else {
		doc, err = r.apply(conn, op)
	}
	metrics.ComposeDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		result := "rejected"
		if errors.Is(err, store.ErrStaleVersion) {
			result = "stale"
		}
		metrics.OperationsTotal.WithLabelValues(result).Inc()
		r.logger.Warn().
			Err(err).
			Str("conn_id", conn.ID()).
			Str("type", string(op.Kind)).
			Int("version", doc.Version).
			Msg("operation rejected")

		r.send(conn, models.Envelope{
			Event: models.EventOperationRejected,
			Data:  models.OperationResult{Version: doc.Version, Reason: err.Error()},
		})
		return
	}

	metrics.OperationsTotal.WithLabelValues("accepted").Inc()
	r.logger.Debug().
		Str("conn_id", conn.ID()).
		Str("type", string(op.Kind)).
		Int("version", doc.Version).
		Msg("operation applied")

	r.broadcast(models.Envelope{
		Event:   models.EventDocumentUpdated,
		Data:    doc.Content,
		Version: doc.Version,
	}, conn.ID())
	r.send(conn, models.Envelope{
		Event: models.EventOperationAck,
		Data:  models.OperationResult{Version: doc.Version},
	})
}

// apply composes op and moves the other members' cursors through it.
func (r *Room) apply(conn Conn, op models.Operation) (models.Document, error) {
	doc, change, err := r.docs.ApplyContentOperation(r.id, conn.ID(), op)
	if err != nil {
		return doc, err
	}
	r.sessions.ShiftCursors(r.id, change, conn.ID())
	return doc, nil
}

func (r *Room) cursor(conn Conn, c models.Cursor) {
	if !r.isMember(conn) {
		return
	}
	roster, ok := r.sessions.UpdateCursor(r.id, conn.ID(), c)
	if !ok {
		return
	}
	r.broadcast(models.Envelope{Event: models.EventUsersUpdated, Data: roster}, "")
}

func (r *Room) chatMessage(conn Conn, text string) {
	if !r.isMember(conn) {
		return
	}
	p, ok := r.sessions.Participant(r.id, conn.ID())
	if !ok {
		return
	}

	msg := r.chat.Append(r.id, models.ChatMessage{
		UserID:    p.ID,
		UserName:  p.Name,
		UserColor: p.Color,
		Message:   text,
	})
	metrics.ChatMessagesTotal.Inc()
	r.broadcast(models.Envelope{Event: models.EventChatMessage, Data: msg}, "")
}

func (r *Room) title(conn Conn, title string) {
	if !r.isMember(conn) {
		return
	}
	doc := r.docs.SetTitle(r.id, title)
	r.logger.Debug().Str("conn_id", conn.ID()).Str("title", doc.Title).Msg("title updated")
	r.broadcast(models.Envelope{Event: models.EventTitleUpdated, Data: doc.Title}, conn.ID())
}

func (r *Room) isMember(conn Conn) bool {
	_, ok := r.members[conn.ID()]
	if !ok {
		r.logger.Debug().Str("conn_id", conn.ID()).Msg("message from non-member ignored")
	}
	return ok
}

// send delivers env to one member, dropping the member if it cannot keep up.
func (r *Room) send(conn Conn, env models.Envelope) bool {
	if err := conn.Send(env); err != nil {
		r.drop(conn, err)
		return false
	}
	return true
}

// broadcast delivers env to every member except the one with ID except.
func (r *Room) broadcast(env models.Envelope, except string) {
	metrics.BroadcastsTotal.WithLabelValues(env.Event).Inc()

	var failed []Conn
	var errs []error
	for id, conn := range r.members {
		if id == except {
			continue
		}
		if err := conn.Send(env); err != nil {
			failed = append(failed, conn)
			errs = append(errs, err)
		}
	}
	for i, conn := range failed {
		r.drop(conn, errs[i])
	}
}

// drop removes a member whose connection failed and closes it; the
// remaining members get the new roster.
func (r *Room) drop(conn Conn, err error) {
	if _, ok := r.members[conn.ID()]; !ok {
		return
	}
	r.logger.Warn().Err(err).Str("conn_id", conn.ID()).Msg("dropping connection")
	metrics.SlowClientsDropped.Inc()
	_ = conn.Close()
	r.leave(conn)
}
