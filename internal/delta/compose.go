package delta

// Compose returns a single Delta equivalent to applying base and then change.
//
// When base is a document (inserts only) change may not retain or delete
// past its end. Both inputs are validated first; any failure is reported as
// a *MalformedDeltaError and no partial result is returned.
func Compose(base, change Delta) (Delta, error) {
	if err := base.Validate(); err != nil {
		return Delta{}, err
	}
	if err := change.Validate(); err != nil {
		return Delta{}, err
	}
	if base.IsDocument() {
		if err := checkSpan(change, base.Length()); err != nil {
			return Delta{}, err
		}
	}

	thisIter := newIterator(base.Ops)
	otherIter := newIterator(change.Ops)
	out := Delta{}

	// Leading plain retain: copy the covered inserts over untouched.
	if first, ok := otherIter.peek(); ok && first.Retain != 0 && len(first.Attributes) == 0 {
		left := first.Retain
		for thisIter.peekKind() == KindInsert && thisIter.peekLength() <= left {
			left -= thisIter.peekLength()
			out.Ops = append(out.Ops, thisIter.next(0))
		}
		if first.Retain-left > 0 {
			otherIter.next(first.Retain - left)
		}
	}

	for thisIter.hasNext() || otherIter.hasNext() {
		switch {
		case otherIter.peekKind() == KindInsert:
			out.Push(otherIter.next(0))
		case thisIter.peekKind() == KindDelete:
			out.Push(thisIter.next(0))
		default:
			length := min(thisIter.peekLength(), otherIter.peekLength())
			thisOp := thisIter.next(length)
			otherOp := otherIter.next(length)

			switch {
			case otherOp.Retain != 0:
				var op Op
				if thisOp.Retain != 0 {
					op.Retain = length
				} else {
					op.Insert = thisOp.Insert
					op.Embed = thisOp.Embed
				}
				op.Attributes = composeAttributes(thisOp.Attributes, otherOp.Attributes, thisOp.Retain != 0)
				out.Push(op)

				// The rest of change is a plain retain: copy base through.
				if !otherIter.hasNext() && out.Ops[len(out.Ops)-1].equal(op) {
					rest := Delta{Ops: thisIter.rest()}
					out = out.Concat(rest)
					out.Chop()
					return out, nil
				}
			case otherOp.Delete != 0 && thisOp.Retain != 0:
				out.Push(otherOp)
			}
			// An insert followed by a delete of it cancels out.
		}
	}

	out.Chop()
	return out, nil
}

// Transform rebases b so that it applies after a. When both insert at the
// same position, priority decides whether a's insert goes first.
// Both inputs must already be valid.
func Transform(a, b Delta, priority bool) Delta {
	thisIter := newIterator(a.Ops)
	otherIter := newIterator(b.Ops)
	out := Delta{}

	for thisIter.hasNext() || otherIter.hasNext() {
		switch {
		case thisIter.peekKind() == KindInsert && (priority || otherIter.peekKind() != KindInsert):
			out.Retain(thisIter.next(0).Len(), nil)
		case otherIter.peekKind() == KindInsert:
			out.Push(otherIter.next(0))
		default:
			length := min(thisIter.peekLength(), otherIter.peekLength())
			thisOp := thisIter.next(length)
			otherOp := otherIter.next(length)
			switch {
			case thisOp.Delete != 0:
				// a already removed this range.
			case otherOp.Delete != 0:
				out.Push(otherOp)
			default:
				out.Retain(length, transformAttributes(thisOp.Attributes, otherOp.Attributes, priority))
			}
		}
	}

	out.Chop()
	return out
}

// TransformIndex moves a position through change d. Without priority an
// insert exactly at index pushes the position forward.
func TransformIndex(d Delta, index int, priority bool) int {
	it := newIterator(d.Ops)
	offset := 0
	for it.hasNext() && offset <= index {
		length := it.peekLength()
		kind := it.peekKind()
		it.next(0)
		if kind == KindDelete {
			index -= min(length, index-offset)
			continue
		}
		if kind == KindInsert && (offset < index || !priority) {
			index += length
		}
		offset += length
	}
	return index
}

// checkSpan fails on the first step of d that reads past size units of its
// base. d must already be valid, so each step has one length.
func checkSpan(d Delta, size int) error {
	read := 0
	for i, op := range d.Ops {
		step := op.Retain + op.Delete
		if step > size-read {
			return malformed(i, "change reads past the end of a %d unit document", size)
		}
		read += step
	}
	return nil
}
