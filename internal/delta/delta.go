// Package delta implements the rich-text change format used by the browser
// editor: an ordered list of insert, retain and delete steps, plus the
// compose and transform operations over it.
//
// A Delta whose steps are all inserts describes a whole document. Any other
// Delta describes a change to one. Deltas are treated as immutable once
// built; Compose and Transform always return fresh values.
package delta

import (
	"strings"
)

// Delta is an ordered sequence of steps.
type Delta struct {
	Ops []Op
}

// New returns a Delta built from ops using the same normalization as Push.
func New(ops ...Op) Delta {
	d := Delta{}
	for _, op := range ops {
		d.Push(op)
	}
	return d
}

// Document returns the content of an empty document: a single newline.
func Document() Delta {
	return Delta{Ops: []Op{{Insert: "\n"}}}
}

// Insert appends a text insert.
func (d *Delta) Insert(text string, attrs Attributes) *Delta {
	if text == "" {
		return d
	}
	return d.Push(Op{Insert: text, Attributes: attrs})
}

// InsertEmbed appends a non-text insert.
func (d *Delta) InsertEmbed(embed map[string]any, attrs Attributes) *Delta {
	if embed == nil {
		return d
	}
	return d.Push(Op{Embed: embed, Attributes: attrs})
}

// Retain appends a retain of n units.
func (d *Delta) Retain(n int, attrs Attributes) *Delta {
	if n <= 0 {
		return d
	}
	return d.Push(Op{Retain: n, Attributes: attrs})
}

// Delete appends a delete of n units.
func (d *Delta) Delete(n int) *Delta {
	if n <= 0 {
		return d
	}
	return d.Push(Op{Delete: n})
}

// Push appends op, merging it into the previous step when both are the same
// kind with equal attributes. Inserts are kept ahead of an adjacent delete so
// equivalent changes have one canonical form. Zero-length ops are dropped.
func (d *Delta) Push(op Op) *Delta {
	if op.Len() <= 0 {
		return d
	}
	op.Attributes = op.Attributes.clone()
	if op.Delete != 0 {
		op.Attributes = nil
	}

	index := len(d.Ops)
	if index > 0 {
		last := d.Ops[index-1]
		if op.Delete != 0 && last.Delete != 0 {
			d.Ops[index-1] = Op{Delete: last.Delete + op.Delete}
			return d
		}
		if last.Delete != 0 && op.isInsert() {
			index--
			if index == 0 {
				d.Ops = append([]Op{op}, d.Ops...)
				return d
			}
			last = d.Ops[index-1]
		}
		if attributesEqual(op.Attributes, last.Attributes) {
			if op.Insert != "" && last.Insert != "" && op.Embed == nil && last.Embed == nil {
				d.Ops[index-1] = Op{Insert: last.Insert + op.Insert, Attributes: op.Attributes}
				return d
			}
			if op.Retain != 0 && last.Retain != 0 {
				d.Ops[index-1] = Op{Retain: last.Retain + op.Retain, Attributes: op.Attributes}
				return d
			}
		}
	}

	if index == len(d.Ops) {
		d.Ops = append(d.Ops, op)
		return d
	}
	d.Ops = append(d.Ops, Op{})
	copy(d.Ops[index+1:], d.Ops[index:])
	d.Ops[index] = op
	return d
}

// Chop removes a trailing plain retain, which is a no-op.
func (d *Delta) Chop() *Delta {
	if n := len(d.Ops); n > 0 {
		last := d.Ops[n-1]
		if last.Retain != 0 && len(last.Attributes) == 0 {
			d.Ops = d.Ops[:n-1]
		}
	}
	return d
}

// Length is the sum of every step's length.
func (d Delta) Length() int {
	n := 0
	for _, op := range d.Ops {
		n += op.Len()
	}
	return n
}

// ChangeLength is how much the change grows (or shrinks) a document.
func (d Delta) ChangeLength() int {
	n := 0
	for _, op := range d.Ops {
		switch op.Kind() {
		case KindInsert:
			n += op.Len()
		case KindDelete:
			n -= op.Delete
		}
	}
	return n
}

// IsDocument reports whether every step is an insert.
func (d Delta) IsDocument() bool {
	for _, op := range d.Ops {
		if op.Kind() != KindInsert {
			return false
		}
	}
	return true
}

// Validate checks that every step has exactly one discriminant and a
// positive length, and that deletes carry no attributes.
func (d Delta) Validate() error {
	for i, op := range d.Ops {
		if op.Retain < 0 || op.Delete < 0 {
			return malformed(i, "negative length")
		}
		switch op.Kind() {
		case KindInvalid:
			return malformed(i, "step must have exactly one of insert, retain or delete")
		case KindDelete:
			if len(op.Attributes) > 0 {
				return malformed(i, "delete cannot carry attributes")
			}
		}
	}
	return nil
}

// Text returns the plain text of a document, with embeds omitted.
func (d Delta) Text() string {
	var b strings.Builder
	for _, op := range d.Ops {
		b.WriteString(op.Insert)
	}
	return b.String()
}

// Concat appends other to d, merging at the seam.
func (d Delta) Concat(other Delta) Delta {
	out := Delta{Ops: append([]Op(nil), d.Ops...)}
	if len(other.Ops) > 0 {
		out.Push(other.Ops[0])
		out.Ops = append(out.Ops, other.Ops[1:]...)
	}
	return out
}

// Equal reports whether two deltas have identical steps.
func (d Delta) Equal(other Delta) bool {
	if len(d.Ops) != len(other.Ops) {
		return false
	}
	for i := range d.Ops {
		if !d.Ops[i].equal(other.Ops[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of d.
func (d Delta) Clone() Delta {
	if d.Ops == nil {
		return Delta{}
	}
	out := Delta{Ops: make([]Op, len(d.Ops))}
	for i, op := range d.Ops {
		op.Attributes = op.Attributes.clone()
		if op.Embed != nil {
			embed := make(map[string]any, len(op.Embed))
			for k, v := range op.Embed {
				embed[k] = v
			}
			op.Embed = embed
		}
		out.Ops[i] = op
	}
	return out
}
