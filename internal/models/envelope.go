package models

import "encoding/json"

// Event names used on the realtime channel.
const (
	EventJoinDocument      = "join-document"
	EventOperation         = "operation"
	EventCursorUpdate      = "cursor-update"
	EventChatMessage       = "chat-message"
	EventTitleUpdate       = "document-title-update"
	EventDocumentContent   = "document-content"
	EventChatHistory       = "chat-history"
	EventUsersUpdated      = "users-updated"
	EventDocumentUpdated   = "document-updated"
	EventTitleUpdated      = "document-title-updated"
	EventOperationAck      = "operation-ack"
	EventOperationRejected = "operation-rejected"
)

// Envelope is one frame sent to a client.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`

	// Version is the document version after the change, set on
	// document-updated so receivers can base later edits on it.
	Version int `json:"version,omitempty"`
}

// Inbound is one frame received from a client; Data is decoded per event.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ParticipantInfo is the identity a client joins with.
type ParticipantInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// JoinRequest is the payload of join-document.
type JoinRequest struct {
	DocumentID  string           `json:"documentId"`
	User        *ParticipantInfo `json:"user,omitempty"`
	Participant *ParticipantInfo `json:"participant,omitempty"`
}

// Info returns whichever identity field the client used.
func (r JoinRequest) Info() ParticipantInfo {
	switch {
	case r.User != nil:
		return *r.User
	case r.Participant != nil:
		return *r.Participant
	default:
		return ParticipantInfo{}
	}
}

// TitleUpdate is the payload of document-title-update.
type TitleUpdate struct {
	Title string `json:"title"`
}

// OperationResult answers the sender of an operation.
type OperationResult struct {
	Version int    `json:"version"`
	Reason  string `json:"reason,omitempty"`
}
