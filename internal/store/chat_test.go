package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/models"
)

func TestChatLog_AppendAndHistory(t *testing.T) {
	c := NewChatLog()
	c.now = fixedClock(1234)

	first := c.Append("doc-1", models.ChatMessage{UserID: "u1", UserName: "Ada", Message: "hi"})
	second := c.Append("doc-1", models.ChatMessage{UserID: "u2", UserName: "Bob", Message: "hello"})

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, int64(1234), first.Timestamp)

	history := c.History("doc-1")
	require.Len(t, history, 2)
	assert.Equal(t, first, history[0])
	assert.Equal(t, second, history[1])
	assert.Less(t, history[0].ID, history[1].ID, "ids sort in append order")

	assert.Empty(t, c.History("doc-2"))
	assert.Equal(t, 2, c.Len("doc-1"))
}

func TestChatLog_AppendOverridesClientFields(t *testing.T) {
	c := NewChatLog()
	c.now = fixedClock(50)

	msg := c.Append("doc-1", models.ChatMessage{ID: "client-id", Timestamp: 1, Message: "x"})
	assert.NotEqual(t, "client-id", msg.ID)
	assert.Equal(t, int64(50), msg.Timestamp)
}

func TestChatLog_HistoryIsACopy(t *testing.T) {
	c := NewChatLog()
	c.Append("doc-1", models.ChatMessage{Message: "original"})

	history := c.History("doc-1")
	history[0].Message = "changed"
	assert.Equal(t, "original", c.History("doc-1")[0].Message)

	c.Delete("doc-1")
	assert.Empty(t, c.History("doc-1"))
}
