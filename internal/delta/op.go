package delta

import (
	"reflect"
	"unicode/utf16"
)

// Kind identifies which of the three step types an Op is.
type Kind int

const (
	KindInvalid Kind = iota
	KindInsert
	KindRetain
	KindDelete
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindRetain:
		return "retain"
	case KindDelete:
		return "delete"
	default:
		return "invalid"
	}
}

// Attributes holds formatting for insert and retain steps. A nil value means
// "remove this attribute" when carried by a retain.
type Attributes map[string]any

// Op is a single step of a Delta. Exactly one of Insert/Embed, Retain or
// Delete is set on a well-formed Op.
type Op struct {
	Insert     string
	Embed      map[string]any // non-text insert such as an image; length 1
	Retain     int
	Delete     int
	Attributes Attributes
}

// Kind reports the discriminant of the op.
func (o Op) Kind() Kind {
	n := 0
	k := KindInvalid
	if o.Insert != "" || o.Embed != nil {
		n++
		k = KindInsert
	}
	if o.Retain != 0 {
		n++
		k = KindRetain
	}
	if o.Delete != 0 {
		n++
		k = KindDelete
	}
	if n != 1 {
		return KindInvalid
	}
	return k
}

// Len returns the length of the op in UTF-16 code units.
func (o Op) Len() int {
	switch {
	case o.Delete != 0:
		return o.Delete
	case o.Retain != 0:
		return o.Retain
	case o.Embed != nil:
		return 1
	default:
		return textLen(o.Insert)
	}
}

func (o Op) isInsert() bool { return o.Insert != "" || o.Embed != nil }

func (o Op) equal(other Op) bool {
	return o.Insert == other.Insert &&
		o.Retain == other.Retain &&
		o.Delete == other.Delete &&
		reflect.DeepEqual(o.Embed, other.Embed) &&
		attributesEqual(o.Attributes, other.Attributes)
}

// textLen measures s the way the browser editor does.
func textLen(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// sliceText returns s[start:end] with offsets in UTF-16 code units.
func sliceText(s string, start, end int) string {
	if start == 0 && end >= textLen(s) {
		return s
	}
	units := utf16.Encode([]rune(s))
	if end > len(units) {
		end = len(units)
	}
	return string(utf16.Decode(units[start:end]))
}
