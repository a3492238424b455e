package delta

import (
	"bytes"
	"encoding/json"
	"errors"
)

type wireOp struct {
	Insert     any        `json:"insert,omitempty"`
	Retain     int        `json:"retain,omitempty"`
	Delete     int        `json:"delete,omitempty"`
	Attributes Attributes `json:"attributes,omitempty"`
}

// MarshalJSON encodes the op in the editor's format.
func (o Op) MarshalJSON() ([]byte, error) {
	w := wireOp{Retain: o.Retain, Delete: o.Delete}
	switch {
	case o.Embed != nil:
		w.Insert = o.Embed
	case o.Insert != "":
		w.Insert = o.Insert
	}
	if len(o.Attributes) > 0 {
		w.Attributes = o.Attributes
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a single step. A step without exactly one of
// insert, retain or delete is rejected.
func (o *Op) UnmarshalJSON(b []byte) error {
	var raw struct {
		Insert     json.RawMessage `json:"insert"`
		Retain     json.RawMessage `json:"retain"`
		Delete     json.RawMessage `json:"delete"`
		Attributes Attributes      `json:"attributes"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return malformed(-1, "%v", err)
	}

	present := 0
	for _, f := range []json.RawMessage{raw.Insert, raw.Retain, raw.Delete} {
		if len(f) > 0 && !bytes.Equal(f, []byte("null")) {
			present++
		}
	}
	if present != 1 {
		return malformed(-1, "step must have exactly one of insert, retain or delete")
	}

	*o = Op{Attributes: raw.Attributes}
	switch {
	case len(raw.Insert) > 0 && !bytes.Equal(raw.Insert, []byte("null")):
		switch raw.Insert[0] {
		case '"':
			if err := json.Unmarshal(raw.Insert, &o.Insert); err != nil {
				return malformed(-1, "insert: %v", err)
			}
		case '{':
			if err := json.Unmarshal(raw.Insert, &o.Embed); err != nil {
				return malformed(-1, "insert: %v", err)
			}
		default:
			return malformed(-1, "insert must be a string or an object")
		}
	case len(raw.Retain) > 0 && !bytes.Equal(raw.Retain, []byte("null")):
		if err := json.Unmarshal(raw.Retain, &o.Retain); err != nil {
			return malformed(-1, "retain: %v", err)
		}
		if o.Retain < 0 {
			return malformed(-1, "retain must not be negative")
		}
	default:
		if err := json.Unmarshal(raw.Delete, &o.Delete); err != nil {
			return malformed(-1, "delete: %v", err)
		}
		if o.Delete < 0 {
			return malformed(-1, "delete must not be negative")
		}
	}
	return nil
}

// MarshalJSON encodes d as {"ops": [...]}.
func (d Delta) MarshalJSON() ([]byte, error) {
	ops := d.Ops
	if ops == nil {
		ops = []Op{}
	}
	return json.Marshal(struct {
		Ops []Op `json:"ops"`
	}{Ops: ops})
}

// UnmarshalJSON accepts either {"ops": [...]} or a bare array of steps.
// Zero-length steps are dropped; the remaining steps are kept verbatim so a
// document keeps the exact shape it was sent in.
func (d *Delta) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	var ops []Op
	if len(b) > 0 && b[0] == '[' {
		if err := json.Unmarshal(b, &ops); err != nil {
			return asMalformed(err)
		}
	} else {
		var wrapped struct {
			Ops *[]Op `json:"ops"`
		}
		if err := json.Unmarshal(b, &wrapped); err != nil {
			return asMalformed(err)
		}
		if wrapped.Ops == nil {
			return malformed(-1, "missing ops")
		}
		ops = *wrapped.Ops
	}

	d.Ops = make([]Op, 0, len(ops))
	for _, op := range ops {
		if op.Len() == 0 {
			continue
		}
		d.Ops = append(d.Ops, op)
	}
	return nil
}

// Parse decodes a serialized delta such as the text field of an edit.
func Parse(s string) (Delta, error) {
	var d Delta
	if err := json.Unmarshal([]byte(s), &d); err != nil {
		return Delta{}, asMalformed(err)
	}
	return d, nil
}

func asMalformed(err error) error {
	var me *MalformedDeltaError
	if errors.As(err, &me) {
		return err
	}
	return malformed(-1, "%v", err)
}
