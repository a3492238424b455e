package models

import "encoding/json"

// OperationKind is the kind of an edit sent by the editor.
type OperationKind string

const (
	// OperationInsert carries a serialized change delta in Text.
	OperationInsert OperationKind = "insert"
	// OperationRetain formats Length units starting at Index.
	OperationRetain OperationKind = "retain"
)

// Operation is an edit as sent by a client.
type Operation struct {
	Kind       OperationKind  `json:"type"`
	Index      int            `json:"index"`
	Length     int            `json:"length,omitempty"`
	Text       string         `json:"text,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	UserID     string         `json:"userId"`
	Timestamp  int64          `json:"timestamp"`

	// Version is the document version the edit was made against. Zero means
	// the client does not track versions and the edit applies as-is.
	Version int `json:"version,omitempty"`
}

// UnmarshalJSON accepts "kind" as an alias of "type".
func (o *Operation) UnmarshalJSON(b []byte) error {
	type plain Operation
	var aux struct {
		plain
		Kind OperationKind `json:"kind"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*o = Operation(aux.plain)
	if o.Kind == "" {
		o.Kind = aux.Kind
	}
	return nil
}
