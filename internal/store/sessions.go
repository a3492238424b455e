package store

import (
	"sync"
	"time"

	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/delta"
	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/models"
)

// SessionRegistry tracks who is present in each document, keyed by
// connection ID. It never talks to connections itself; every mutating call
// returns the roster the caller should broadcast.
type SessionRegistry struct {
	mu    sync.RWMutex
	rooms map[string]*roster
	now   func() time.Time
}

// roster keeps participants in join order.
type roster struct {
	order   []string
	entries map[string]*models.Participant
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		rooms: make(map[string]*roster),
		now:   time.Now,
	}
}

// Join adds or replaces the participant for connID and returns the roster.
// A replaced participant keeps its position.
func (s *SessionRegistry) Join(docID, connID string, p models.Participant) []models.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[docID]
	if !ok {
		r = &roster{entries: make(map[string]*models.Participant)}
		s.rooms[docID] = r
	}

	p.SocketID = connID
	p.LastActive = s.now().UnixMilli()
	if p.Cursor != nil {
		c := *p.Cursor
		p.Cursor = &c
	}
	if _, exists := r.entries[connID]; !exists {
		r.order = append(r.order, connID)
	}
	r.entries[connID] = &p
	return r.snapshot()
}

// UpdateCursor records a new selection for connID. It reports false, and
// changes nothing, when connID is not in the room.
func (s *SessionRegistry) UpdateCursor(docID, connID string, cursor models.Cursor) ([]models.Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[docID]
	if !ok {
		return nil, false
	}
	p, ok := r.entries[connID]
	if !ok {
		return nil, false
	}
	p.Cursor = &cursor
	p.LastActive = s.now().UnixMilli()
	return r.snapshot(), true
}

// Leave removes connID. It reports false when connID was not in the room.
func (s *SessionRegistry) Leave(docID, connID string) ([]models.Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[docID]
	if !ok {
		return nil, false
	}
	if _, ok := r.entries[connID]; !ok {
		return r.snapshot(), false
	}
	delete(r.entries, connID)
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return r.snapshot(), true
}

// Roster returns the participants of a document in join order.
func (s *SessionRegistry) Roster(docID string) []models.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[docID]
	if !ok {
		return []models.Participant{}
	}
	return r.snapshot()
}

// Participant returns the entry for connID.
func (s *SessionRegistry) Participant(docID, connID string) (models.Participant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[docID]
	if !ok {
		return models.Participant{}, false
	}
	p, ok := r.entries[connID]
	if !ok {
		return models.Participant{}, false
	}
	out := *p
	if out.Cursor != nil {
		c := *out.Cursor
		out.Cursor = &c
	}
	return out, true
}

// Len returns the number of participants in a document.
func (s *SessionRegistry) Len(docID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.rooms[docID]; ok {
		return len(r.order)
	}
	return 0
}

// ShiftCursors moves every cursor except the one owned by except through an
// accepted change, so presence keeps pointing at the same text.
func (s *SessionRegistry) ShiftCursors(docID string, change delta.Delta, except string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[docID]
	if !ok {
		return
	}
	for connID, p := range r.entries {
		if connID == except || p.Cursor == nil {
			continue
		}
		start := delta.TransformIndex(change, p.Cursor.Index, false)
		end := delta.TransformIndex(change, p.Cursor.Index+p.Cursor.Length, false)
		if end < start {
			end = start
		}
		p.Cursor = &models.Cursor{Index: start, Length: end - start}
	}
}

// Delete forgets a document's roster.
func (s *SessionRegistry) Delete(docID string) {
	s.mu.Lock()
	delete(s.rooms, docID)
	s.mu.Unlock()
}

func (r *roster) snapshot() []models.Participant {
	out := make([]models.Participant, 0, len(r.order))
	for _, id := range r.order {
		p := *r.entries[id]
		if p.Cursor != nil {
			c := *p.Cursor
			p.Cursor = &c
		}
		out = append(out, p)
	}
	return out
}
