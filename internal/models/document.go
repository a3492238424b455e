package models

import (
	"strings"

	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/delta"
)

const (
	// MaxDocumentIDLength caps the length of a document ID in bytes.
	MaxDocumentIDLength = 128

	// DefaultDocumentID is the document seeded at start-up.
	DefaultDocumentID = "default-doc"
	// DefaultTitle is given to every lazily created document.
	DefaultTitle = "Untitled Document"
)

// Document is the authoritative state of one shared document.
type Document struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Content      delta.Delta `json:"content"`
	Version      int         `json:"version"`
	LastModified int64       `json:"lastModified"` // Unix ms
}

// Clone returns a copy that shares nothing with d.
func (d *Document) Clone() Document {
	out := *d
	out.Content = d.Content.Clone()
	return out
}

// ValidDocumentID reports whether id can name a document: letters, digits
// and any of "-_.:~", at most MaxDocumentIDLength long.
func ValidDocumentID(id string) bool {
	if id == "" || len(id) > MaxDocumentIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("-_.:~", r):
		default:
			return false
		}
	}
	return true
}
