package models

import (
	"math/rand"
)

// UserColors is the palette the editor assigns participants from.
var UserColors = []string{
	"#ef4444", // red
	"#f97316", // orange
	"#eab308", // yellow
	"#22c55e", // green
	"#06b6d4", // cyan
	"#3b82f6", // blue
	"#8b5cf6", // violet
	"#ec4899", // pink
	"#10b981", // emerald
	"#f59e0b", // amber
	"#6366f1", // indigo
	"#84cc16", // lime
}

// RandomColor picks a color from UserColors.
func RandomColor() string {
	return UserColors[rand.Intn(len(UserColors))]
}

// Cursor is a selection in the document, in editor units.
type Cursor struct {
	Index  int `json:"index"`
	Length int `json:"length"`
}

// Participant is a connection's presence within a document.
type Participant struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Color      string  `json:"color"`
	Cursor     *Cursor `json:"cursor,omitempty"`
	LastActive int64   `json:"lastActive"` // Unix ms
	SocketID   string  `json:"socketId"`
}
