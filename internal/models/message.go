package models

// ChatMessage is a chat line posted to a document's room.
type ChatMessage struct {
	ID        string `json:"id"` // ULID
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	UserColor string `json:"userColor"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"` // Unix ms
}
