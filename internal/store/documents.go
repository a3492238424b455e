package store

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/delta"
	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/models"
)

// DefaultHistoryLimit is how many applied changes each document keeps for
// rebasing edits made against an older version.
const DefaultHistoryLimit = 500

// DocumentStore holds the authoritative content of every document.
type DocumentStore struct {
	mu           sync.RWMutex
	docs         map[string]*documentEntry
	historyLimit int
	now          func() time.Time
}

type documentEntry struct {
	mu  sync.Mutex
	doc models.Document

	// history[i] took the document from version historyBase+i to
	// historyBase+i+1.
	history     []applied
	historyBase int
}

// applied is one change in a document's history and the connection that
// made it.
type applied struct {
	change delta.Delta
	author string
}

// NewDocumentStore creates an empty store. historyLimit <= 0 disables
// rebasing: every edit must then be based on the current version.
func NewDocumentStore(historyLimit int) *DocumentStore {
	if historyLimit < 0 {
		historyLimit = 0
	}
	return &DocumentStore{
		docs:         make(map[string]*documentEntry),
		historyLimit: historyLimit,
		now:          time.Now,
	}
}

func (s *DocumentStore) newDocument(id string) models.Document {
	return models.Document{
		ID:           id,
		Title:        models.DefaultTitle,
		Content:      delta.Document(),
		Version:      1,
		LastModified: s.now().UnixMilli(),
	}
}

// entry returns the entry for id, creating a default document if needed.
func (s *DocumentStore) entry(id string) *documentEntry {
	s.mu.RLock()
	e, ok := s.docs[id]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.docs[id]; ok {
		return e
	}
	e = &documentEntry{doc: s.newDocument(id), historyBase: 1}
	s.docs[id] = e
	return e
}

// Get returns the document, creating a default one on first reference.
func (s *DocumentStore) Get(id string) models.Document {
	e := s.entry(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Clone()
}

// Snapshot returns the document only if it already exists.
func (s *DocumentStore) Snapshot(id string) (models.Document, bool) {
	s.mu.RLock()
	e, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return models.Document{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Clone(), true
}

// List returns every document, most recently modified first.
func (s *DocumentStore) List() []models.Document {
	s.mu.RLock()
	entries := make([]*documentEntry, 0, len(s.docs))
	for _, e := range s.docs {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	docs := make([]models.Document, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		docs = append(docs, e.doc.Clone())
		e.mu.Unlock()
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].LastModified != docs[j].LastModified {
			return docs[i].LastModified > docs[j].LastModified
		}
		return docs[i].ID < docs[j].ID
	})
	return docs
}

// Delete forgets a document.
func (s *DocumentStore) Delete(id string) {
	s.mu.Lock()
	delete(s.docs, id)
	s.mu.Unlock()
}

// ApplyContentOperation applies an edit made by author (a connection ID) and
// returns the updated document together with the change that was actually
// composed (after rebasing).
//
// An edit based on an older version is transformed over the changes since,
// which must all come from other authors: a client keeps at most one edit
// in flight and bases the next one on its acknowledgement.
//
// On error the document is left untouched and the returned document is its
// current state.
func (s *DocumentStore) ApplyContentOperation(id, author string, op models.Operation) (models.Document, delta.Delta, error) {
	e := s.entry(id)
	e.mu.Lock()
	defer e.mu.Unlock()

	change, err := changeFor(op)
	if err != nil {
		return e.doc.Clone(), delta.Delta{}, fmt.Errorf("%w: %w", ErrMalformedOperation, err)
	}

	if op.Version > 0 {
		change, err = e.rebase(change, op.Version, author)
		if err != nil {
			return e.doc.Clone(), delta.Delta{}, err
		}
	}

	content, err := delta.Compose(e.doc.Content, change)
	if err != nil {
		return e.doc.Clone(), delta.Delta{}, fmt.Errorf("%w: %w", ErrMalformedOperation, err)
	}

	e.doc.Content = content
	e.doc.Version++
	e.doc.LastModified = s.now().UnixMilli()
	e.record(change, author, s.historyLimit)

	return e.doc.Clone(), change, nil
}

// SetTitle replaces the document title.
func (s *DocumentStore) SetTitle(id, title string) models.Document {
	e := s.entry(id)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.doc.Title = title
	e.doc.LastModified = s.now().UnixMilli()
	return e.doc.Clone()
}

// changeFor turns a client edit into the delta to compose.
func changeFor(op models.Operation) (delta.Delta, error) {
	var change delta.Delta
	switch op.Kind {
	case models.OperationInsert:
		if op.Text == "" {
			return delta.Delta{}, fmt.Errorf("insert operation has no text")
		}
		parsed, err := delta.Parse(op.Text)
		if err != nil {
			return delta.Delta{}, err
		}
		change = parsed
	case models.OperationRetain:
		if len(op.Attributes) == 0 {
			return delta.Delta{}, fmt.Errorf("retain operation has no attributes")
		}
		if op.Index < 0 || op.Length <= 0 || op.Index > math.MaxInt-op.Length {
			return delta.Delta{}, fmt.Errorf("retain range %d+%d is invalid", op.Index, op.Length)
		}
		change.Retain(op.Index, nil).Retain(op.Length, op.Attributes)
	default:
		return delta.Delta{}, fmt.Errorf("unsupported operation type %q", op.Kind)
	}

	if err := change.Validate(); err != nil {
		return delta.Delta{}, err
	}
	return change, nil
}

// rebase transforms change, made against version base, over every change
// applied since. Changes already in the document win insert ties.
func (e *documentEntry) rebase(change delta.Delta, base int, author string) (delta.Delta, error) {
	current := e.doc.Version
	switch {
	case base > current:
		return delta.Delta{}, fmt.Errorf("%w: base version %d is ahead of %d", ErrStaleVersion, base, current)
	case base < e.historyBase:
		return delta.Delta{}, fmt.Errorf("%w: base version %d is older than retained history (%d)", ErrStaleVersion, base, e.historyBase)
	}

	since := e.history[base-e.historyBase:]
	for i, a := range since {
		if a.author == author {
			return delta.Delta{}, fmt.Errorf("%w: base version %d is behind the sender's own edit at version %d", ErrStaleVersion, base, base+i+1)
		}
	}
	for _, a := range since {
		change = delta.Transform(a.change, change, true)
	}
	return change, nil
}

func (e *documentEntry) record(change delta.Delta, author string, limit int) {
	if limit == 0 {
		e.historyBase = e.doc.Version
		return
	}
	e.history = append(e.history, applied{change: change, author: author})
	if over := len(e.history) - limit; over > 0 {
		e.history = append([]applied(nil), e.history[over:]...)
		e.historyBase += over
	}
}
