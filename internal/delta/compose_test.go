package delta

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(text string) Delta {
	return New(Op{Insert: text})
}

func TestCompose_InsertOntoEmptyDocument(t *testing.T) {
	got, err := Compose(Document(), New(Op{Insert: "hello"}))
	require.NoError(t, err)
	assert.Equal(t, []Op{{Insert: "hello\n"}}, got.Ops)
}

func TestCompose_InsertInMiddle(t *testing.T) {
	change := Delta{}
	change.Retain(5, nil).Insert(" world", nil)

	got, err := Compose(doc("hello\n"), change)
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", got.Text())
	assert.Len(t, got.Ops, 1)
}

func TestCompose_Delete(t *testing.T) {
	change := Delta{}
	change.Retain(1, nil).Delete(3)

	got, err := Compose(doc("hello\n"), change)
	require.NoError(t, err)
	assert.Equal(t, []Op{{Insert: "ho\n"}}, got.Ops)
}

func TestCompose_Format(t *testing.T) {
	change := Delta{}
	change.Retain(1, nil).Retain(3, Attributes{"bold": true})

	got, err := Compose(doc("hello\n"), change)
	require.NoError(t, err)
	assert.Equal(t, []Op{
		{Insert: "h"},
		{Insert: "ell", Attributes: Attributes{"bold": true}},
		{Insert: "o\n"},
	}, got.Ops)

	// A nil attribute removes the format again.
	unformat := Delta{}
	unformat.Retain(1, nil).Retain(3, Attributes{"bold": nil})

	got, err = Compose(got, unformat)
	require.NoError(t, err)
	assert.Equal(t, []Op{{Insert: "hello\n"}}, got.Ops)
}

func TestCompose_RetainOverRetainKeepsNull(t *testing.T) {
	a := Delta{}
	a.Retain(2, Attributes{"bold": true})
	b := Delta{}
	b.Retain(2, Attributes{"italic": nil})

	got, err := Compose(a, b)
	require.NoError(t, err)
	assert.Equal(t, []Op{{Retain: 2, Attributes: Attributes{"bold": true, "italic": nil}}}, got.Ops)
}

func TestCompose_OutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		change func() Delta
	}{
		{
			name: "retain past end",
			change: func() Delta {
				d := Delta{}
				d.Retain(5, nil).Insert("x", nil)
				return d
			},
		},
		{
			name: "delete past end",
			change: func() Delta {
				d := Delta{}
				d.Delete(4)
				return d
			},
		},
		{
			name: "format past end",
			change: func() Delta {
				d := Delta{}
				d.Retain(2, nil).Retain(2, Attributes{"bold": true})
				return d
			},
		},
		{
			name: "retains that overflow int",
			change: func() Delta {
				return Delta{Ops: []Op{
					{Retain: math.MaxInt},
					{Retain: math.MaxInt - 1, Attributes: Attributes{"bold": true}},
				}}
			},
		},
		{
			name: "format range that overflows int",
			change: func() Delta {
				return Delta{Ops: []Op{
					{Retain: math.MaxInt - 5},
					{Retain: 10, Attributes: Attributes{"bold": true}},
				}}
			},
		},
		{
			name: "delete after a huge retain",
			change: func() Delta {
				return Delta{Ops: []Op{{Retain: math.MaxInt}, {Delete: 2}}}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := doc("hi\n")
			_, err := Compose(base, tt.change())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedDelta)
			assert.Equal(t, "hi\n", base.Text())
		})
	}
}

func TestCompose_CountsUTF16Units(t *testing.T) {
	// The emoji is two units wide, so retaining 2 lands after it.
	change := Delta{}
	change.Retain(2, nil).Insert("x", nil)
	got, err := Compose(doc("😀\n"), change)
	require.NoError(t, err)
	assert.Equal(t, "😀x\n", got.Text())

	change = Delta{}
	change.Retain(3, nil).Insert("x", nil)
	got, err = Compose(doc("😀\n"), change)
	require.NoError(t, err)
	assert.Equal(t, "😀\nx", got.Text())

	change = Delta{}
	change.Retain(4, nil)
	_, err = Compose(doc("😀\n"), change)
	assert.ErrorIs(t, err, ErrMalformedDelta)
}

func TestCompose_RetainToEndIsAllowed(t *testing.T) {
	change := Delta{}
	change.Retain(2, nil).Delete(1).Insert("!", nil)

	got, err := Compose(doc("hi\n"), change)
	require.NoError(t, err)
	assert.Equal(t, "hi!", got.Text())
}

func TestCompose_RejectsStepWithoutDiscriminant(t *testing.T) {
	tests := []struct {
		name string
		op   Op
	}{
		{"empty", Op{}},
		{"two kinds", Op{Retain: 1, Delete: 1}},
		{"negative retain", Op{Retain: -1}},
		{"delete with attributes", Op{Delete: 1, Attributes: Attributes{"bold": true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compose(Document(), Delta{Ops: []Op{tt.op}})
			var me *MalformedDeltaError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, 0, me.Op)
		})
	}
}

func TestCompose_Associative(t *testing.T) {
	a := doc("abc\n")
	b := Delta{}
	b.Retain(1, nil).Insert("X", nil)
	c := Delta{}
	c.Retain(2, nil).Delete(1).Insert("Y", nil)

	ab, err := Compose(a, b)
	require.NoError(t, err)
	left, err := Compose(ab, c)
	require.NoError(t, err)

	bc, err := Compose(b, c)
	require.NoError(t, err)
	right, err := Compose(a, bc)
	require.NoError(t, err)

	assert.True(t, left.Equal(right), "left %v right %v", left.Ops, right.Ops)
	assert.Equal(t, "aXYc\n", left.Text())
}

func TestCompose_AssociativeWithFormatting(t *testing.T) {
	a := New(Op{Insert: "one two\n"})
	b := Delta{}
	b.Retain(4, Attributes{"bold": true}).Insert("three ", nil)
	c := Delta{}
	c.Retain(2, nil).Retain(6, Attributes{"italic": true}).Delete(2)

	ab, err := Compose(a, b)
	require.NoError(t, err)
	left, err := Compose(ab, c)
	require.NoError(t, err)

	bc, err := Compose(b, c)
	require.NoError(t, err)
	right, err := Compose(a, bc)
	require.NoError(t, err)

	assert.True(t, left.Equal(right), "left %v right %v", left.Ops, right.Ops)
}

func TestCompose_RetainToEndIsIdentity(t *testing.T) {
	a := New(
		Op{Insert: "ab", Attributes: Attributes{"bold": true}},
		Op{Insert: "c\n"},
	)
	identity := Delta{}
	identity.Retain(a.Length(), nil)

	got, err := Compose(a, identity)
	require.NoError(t, err)
	assert.True(t, a.Equal(got))

	got, err = Compose(a, Delta{})
	require.NoError(t, err)
	assert.True(t, a.Equal(got))
}

func TestCompose_NotCommutative(t *testing.T) {
	a := New(Op{Insert: "a"})
	b := New(Op{Insert: "b"})

	ab, err := Compose(a, b)
	require.NoError(t, err)
	ba, err := Compose(b, a)
	require.NoError(t, err)

	assert.Equal(t, "ba", ab.Text())
	assert.Equal(t, "ab", ba.Text())
	assert.False(t, ab.Equal(ba))
}

func TestCompose_DoesNotMutateInputs(t *testing.T) {
	base := New(Op{Insert: "abc\n", Attributes: Attributes{"bold": true}})
	change := Delta{}
	change.Retain(1, nil).Retain(1, Attributes{"bold": nil, "italic": true})

	_, err := Compose(base, change)
	require.NoError(t, err)
	assert.Equal(t, Attributes{"bold": true}, base.Ops[0].Attributes)
	assert.Equal(t, Attributes{"bold": nil, "italic": true}, change.Ops[1].Attributes)
}

func TestCompose_Embed(t *testing.T) {
	base := New(Op{Insert: "a"}, Op{Embed: map[string]any{"image": "x.png"}}, Op{Insert: "\n"})
	change := Delta{}
	change.Retain(1, nil).Retain(1, Attributes{"width": "10"})

	got, err := Compose(base, change)
	require.NoError(t, err)
	require.Len(t, got.Ops, 3)
	assert.Equal(t, map[string]any{"image": "x.png"}, got.Ops[1].Embed)
	assert.Equal(t, Attributes{"width": "10"}, got.Ops[1].Attributes)
	assert.Equal(t, 3, got.Length())
}

func TestTransform_ConcurrentInserts(t *testing.T) {
	a := New(Op{Insert: "A"})
	b := New(Op{Insert: "B"})

	assert.Equal(t, []Op{{Retain: 1}, {Insert: "B"}}, Transform(a, b, true).Ops)
	assert.Equal(t, []Op{{Insert: "B"}}, Transform(a, b, false).Ops)
}

func TestTransform_Converges(t *testing.T) {
	base := doc("hello\n")

	a := Delta{}
	a.Retain(1, nil).Delete(2).Insert("E", nil)
	b := Delta{}
	b.Retain(2, nil).Insert("XY", nil).Retain(2, Attributes{"bold": true})

	left, err := Compose(base, a)
	require.NoError(t, err)
	left, err = Compose(left, Transform(a, b, true))
	require.NoError(t, err)

	right, err := Compose(base, b)
	require.NoError(t, err)
	right, err = Compose(right, Transform(b, a, false))
	require.NoError(t, err)

	assert.True(t, left.Equal(right), "left %v right %v", left.Ops, right.Ops)
}

func TestTransform_DeleteWins(t *testing.T) {
	a := Delta{}
	a.Retain(1, nil).Delete(3)
	b := Delta{}
	b.Retain(2, nil).Delete(3)

	// b's overlap with a is dropped; only the trailing unit survives.
	assert.Equal(t, []Op{{Retain: 1}, {Delete: 1}}, Transform(a, b, true).Ops)
}

func TestTransformIndex(t *testing.T) {
	insert := Delta{}
	insert.Retain(2, nil).Insert("xyz", nil)
	del := Delta{}
	del.Retain(1, nil).Delete(2)

	tests := []struct {
		name     string
		change   Delta
		index    int
		priority bool
		want     int
	}{
		{"before insert", insert, 1, false, 1},
		{"after insert", insert, 5, false, 8},
		{"at insert", insert, 2, false, 5},
		{"at insert with priority", insert, 2, true, 2},
		{"after delete", del, 4, false, 2},
		{"inside delete", del, 2, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TransformIndex(tt.change, tt.index, tt.priority))
		})
	}
}
