// Package store holds the in-memory state of every document room: content,
// participant presence and chat. Each store is keyed by document ID and is
// safe for concurrent use, but ordering of changes to one document is the
// caller's job; the collab package gives every room a single writer.
package store

import "errors"

var (
	// ErrMalformedOperation means an edit could not be parsed or applied.
	ErrMalformedOperation = errors.New("malformed operation")

	// ErrStaleVersion means an edit was based on a version the server can
	// no longer rebase from, or one it has never produced.
	ErrStaleVersion = errors.New("stale document version")

	// ErrMessageTooLong means a chat message exceeded MaxMessageBytes.
	ErrMessageTooLong = errors.New("message too long")
)
