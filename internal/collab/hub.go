package collab

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/metrics"
	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/models"
	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/store"
)

// DefaultIdleTTL is how long an empty room stays loaded.
const DefaultIdleTTL = 10 * time.Minute

// Options configures a Hub.
type Options struct {
	// IdleTTL is how long a room without connections is kept before its
	// document, roster and chat are dropped. Zero evicts immediately.
	IdleTTL time.Duration

	// HistoryLimit bounds how many changes each document keeps for
	// rebasing late edits.
	HistoryLimit int
}

// Hub owns every loaded room.
type Hub struct {
	logger   zerolog.Logger
	opts     Options
	docs     *store.DocumentStore
	sessions *store.SessionRegistry
	chat     *store.ChatLog

	mu     sync.Mutex
	rooms  map[string]*roomRef
	closed bool
}

type roomRef struct {
	room   *Room
	refs   int
	pinned bool
	idle   *time.Timer
}

// RoomStats describes one loaded room.
type RoomStats struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Version      int    `json:"version"`
	Participants int    `json:"participants"`
	Messages     int    `json:"messages"`
}

// Stats describes the hub.
type Stats struct {
	Rooms        int         `json:"rooms"`
	Participants int         `json:"participants"`
	Details      []RoomStats `json:"details"`
}

// NewHub creates a hub with the default document already loaded.
func NewHub(logger zerolog.Logger, opts Options) *Hub {
	if opts.IdleTTL < 0 {
		opts.IdleTTL = 0
	}
	h := &Hub{
		logger:   logger.With().Str("component", "hub").Logger(),
		opts:     opts,
		docs:     store.NewDocumentStore(opts.HistoryLimit),
		sessions: store.NewSessionRegistry(),
		chat:     store.NewChatLog(),
		rooms:    make(map[string]*roomRef),
	}

	h.docs.Get(models.DefaultDocumentID)
	h.rooms[models.DefaultDocumentID] = &roomRef{
		room:   h.startRoom(models.DefaultDocumentID),
		pinned: true,
	}
	return h
}

func (h *Hub) startRoom(docID string) *Room {
	r := newRoom(docID, h.logger, h.docs, h.sessions, h.chat)
	go r.run()
	metrics.RoomsActive.Inc()
	h.logger.Debug().Str("document_id", docID).Msg("room started")
	return r
}

// acquire returns the room for docID, starting it if needed, and holds a
// reference until release.
func (h *Hub) acquire(docID string) (*Room, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}

	ref, ok := h.rooms[docID]
	if !ok {
		ref = &roomRef{room: h.startRoom(docID)}
		h.rooms[docID] = ref
	}
	if ref.idle != nil {
		ref.idle.Stop()
		ref.idle = nil
	}
	ref.refs++
	return ref.room, nil
}

// release drops a reference taken by acquire. The last release of an
// unpinned room schedules its eviction.
func (h *Hub) release(r *Room) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ref, ok := h.rooms[r.id]
	if !ok || ref.room != r {
		return
	}
	ref.refs--
	if ref.refs > 0 || ref.pinned || h.closed {
		return
	}
	if h.opts.IdleTTL == 0 {
		h.evictLocked(ref)
		return
	}
	ref.idle = time.AfterFunc(h.opts.IdleTTL, func() { h.tryEvict(r) })
}

func (h *Hub) tryEvict(r *Room) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ref, ok := h.rooms[r.id]
	if !ok || ref.room != r || ref.refs > 0 || ref.pinned {
		return
	}
	h.evictLocked(ref)
}

func (h *Hub) evictLocked(ref *roomRef) {
	id := ref.room.id
	delete(h.rooms, id)
	ref.room.stop()

	h.docs.Delete(id)
	h.sessions.Delete(id)
	h.chat.Delete(id)

	metrics.RoomsActive.Dec()
	metrics.RoomsEvicted.Inc()
	h.logger.Info().Str("document_id", id).Msg("idle room evicted")
}

// Snapshot returns a copy of a loaded document.
func (h *Hub) Snapshot(docID string) (models.Document, bool) {
	return h.docs.Snapshot(docID)
}

// Documents returns every loaded document, most recently modified first.
func (h *Hub) Documents() []models.Document {
	return h.docs.List()
}

// Stats returns a summary of every loaded room.
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	ids := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	h.mu.Unlock()
	sort.Strings(ids)

	s := Stats{Details: make([]RoomStats, 0, len(ids))}
	for _, id := range ids {
		doc, ok := h.docs.Snapshot(id)
		if !ok {
			continue
		}
		rs := RoomStats{
			ID:           id,
			Title:        doc.Title,
			Version:      doc.Version,
			Participants: h.sessions.Len(id),
			Messages:     h.chat.Len(id),
		}
		s.Rooms++
		s.Participants += rs.Participants
		s.Details = append(s.Details, rs)
	}
	return s
}

// Ping checks that the default room's goroutine still takes events.
func (h *Hub) Ping(ctx context.Context) error {
	h.mu.Lock()
	ref, ok := h.rooms[models.DefaultDocumentID]
	h.mu.Unlock()
	if !ok {
		return ErrHubClosed
	}
	return ref.room.ping(ctx)
}

// Close stops every room. Clients still attached see their later messages
// ignored and their close as a no-op.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ref := range h.rooms {
		if ref.idle != nil {
			ref.idle.Stop()
		}
		ref.room.stop()
		delete(h.rooms, id)
		metrics.RoomsActive.Dec()
	}
	h.logger.Info().Msg("hub closed")
}
