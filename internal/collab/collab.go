// Package collab runs document rooms. Every room is a single goroutine that
// owns the order of changes to one document; connections talk to it through
// a Client, and it talks back through the Conn interface.
package collab

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/models"
)

var (
	// ErrHubClosed is returned when joining after the hub shut down.
	ErrHubClosed = errors.New("hub closed")

	// ErrInvalidDocumentID is returned when joining a document whose ID
	// fails models.ValidDocumentID.
	ErrInvalidDocumentID = errors.New("invalid document id")
)

// Conn is the outbound side of one client connection.
//
// Send must not block: an implementation that cannot queue the envelope
// returns an error and the room drops the connection.
type Conn interface {
	ID() string
	Send(env models.Envelope) error
	Close() error
}

const (
	maxNameLength  = 100
	maxTitleLength = 200
)

// sanitizeName trims and limits a participant name, removing control characters.
func sanitizeName(name string) string {
	return clean(name, maxNameLength)
}

// sanitizeTitle trims and limits a document title, removing control characters.
func sanitizeTitle(title string) string {
	return clean(title, maxTitleLength)
}

func clean(s string, limit int) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)

	if utf8.RuneCountInString(s) > limit {
		s = string([]rune(s)[:limit])
	}
	return s
}
