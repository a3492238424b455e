package delta

import "math"

const infinity = math.MaxInt

// iterator walks a step list, handing out pieces of at most a requested
// length. Past the end it behaves like an endless plain retain.
type iterator struct {
	ops    []Op
	index  int
	offset int
}

func newIterator(ops []Op) *iterator {
	return &iterator{ops: ops}
}

func (it *iterator) hasNext() bool {
	return it.peekLength() < infinity
}

func (it *iterator) peekLength() int {
	if it.index < len(it.ops) {
		return it.ops[it.index].Len() - it.offset
	}
	return infinity
}

func (it *iterator) peekKind() Kind {
	if it.index < len(it.ops) {
		return it.ops[it.index].Kind()
	}
	return KindRetain
}

func (it *iterator) peek() (Op, bool) {
	if it.index < len(it.ops) {
		return it.ops[it.index], true
	}
	return Op{}, false
}

// next returns the next piece of at most length units. A length <= 0 takes
// the remainder of the current step.
func (it *iterator) next(length int) Op {
	if length <= 0 {
		length = infinity
	}
	if it.index >= len(it.ops) {
		return Op{Retain: infinity}
	}

	op := it.ops[it.index]
	offset := it.offset
	opLen := op.Len()
	if length >= opLen-offset {
		length = opLen - offset
		it.index++
		it.offset = 0
	} else {
		it.offset += length
	}

	switch {
	case op.Delete != 0:
		return Op{Delete: length}
	case op.Retain != 0:
		return Op{Retain: length, Attributes: op.Attributes}
	case op.Embed != nil:
		return Op{Embed: op.Embed, Attributes: op.Attributes}
	default:
		return Op{Insert: sliceText(op.Insert, offset, offset+length), Attributes: op.Attributes}
	}
}

// rest returns every remaining step, splitting the current one if needed,
// without advancing the iterator.
func (it *iterator) rest() []Op {
	if !it.hasNext() {
		return nil
	}
	if it.offset == 0 {
		return it.ops[it.index:]
	}
	index, offset := it.index, it.offset
	head := it.next(0)
	out := append([]Op{head}, it.ops[it.index:]...)
	it.index, it.offset = index, offset
	return out
}
