package store

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/models"
)

// MaxMessageBytes caps a single chat message.
const MaxMessageBytes = 4096

// ChatLog is an append-only list of chat messages per document.
type ChatLog struct {
	mu   sync.RWMutex
	logs map[string][]models.ChatMessage
	now  func() time.Time
}

// NewChatLog creates an empty chat log.
func NewChatLog() *ChatLog {
	return &ChatLog{
		logs: make(map[string][]models.ChatMessage),
		now:  time.Now,
	}
}

// Append stores msg with a fresh ID and server timestamp and returns it.
func (c *ChatLog) Append(docID string, msg models.ChatMessage) models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg.ID = ulid.Make().String()
	msg.Timestamp = c.now().UnixMilli()
	c.logs[docID] = append(c.logs[docID], msg)
	return msg
}

// History returns every message of a document, oldest first.
func (c *ChatLog) History(docID string) []models.ChatMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.ChatMessage, len(c.logs[docID]))
	copy(out, c.logs[docID])
	return out
}

// Len returns the number of messages in a document's log.
func (c *ChatLog) Len(docID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.logs[docID])
}

// Delete forgets a document's chat.
func (c *ChatLog) Delete(docID string) {
	c.mu.Lock()
	delete(c.logs, docID)
	c.mu.Unlock()
}
