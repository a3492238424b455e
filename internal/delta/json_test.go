package delta

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Op
	}{
		{
			name:  "bare array",
			input: `[{"insert":"hello"}]`,
			want:  []Op{{Insert: "hello"}},
		},
		{
			name:  "wrapped ops",
			input: `{"ops":[{"insert":"a","attributes":{"bold":true}},{"retain":2},{"delete":1}]}`,
			want: []Op{
				{Insert: "a", Attributes: Attributes{"bold": true}},
				{Retain: 2},
				{Delete: 1},
			},
		},
		{
			name:  "zero length steps dropped",
			input: `[{"retain":0},{"insert":""},{"insert":"x"}]`,
			want:  []Op{{Insert: "x"}},
		},
		{
			name:  "embed",
			input: `[{"insert":{"image":"x.png"}}]`,
			want:  []Op{{Embed: map[string]any{"image": "x.png"}}},
		},
		{
			name:  "attribute removal",
			input: `[{"retain":3,"attributes":{"bold":null}}]`,
			want:  []Op{{Retain: 3, Attributes: Attributes{"bold": nil}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Ops)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	inputs := []string{
		``,
		`not json`,
		`{"foo":[]}`,
		`[{"foo":1}]`,
		`[{"insert":"a","retain":1}]`,
		`[{"retain":-2}]`,
		`[{"retain":1.5}]`,
		`[{"insert":42}]`,
		`[{"delete":"2"}]`,
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			assert.ErrorIs(t, err, ErrMalformedDelta)
		})
	}
}

func TestMarshalJSON(t *testing.T) {
	b, err := json.Marshal(Document())
	require.NoError(t, err)
	assert.JSONEq(t, `{"ops":[{"insert":"\n"}]}`, string(b))

	b, err = json.Marshal(Delta{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ops":[]}`, string(b))

	d := Delta{}
	d.Retain(2, Attributes{"color": "#ef4444"}).Insert("x", nil).Delete(1)
	d.InsertEmbed(map[string]any{"image": "a.png"}, nil)
	b, err = json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ops":[
		{"retain":2,"attributes":{"color":"#ef4444"}},
		{"insert":"x"},
		{"insert":{"image":"a.png"}},
		{"delete":1}
	]}`, string(b))
}

func TestJSONRoundTripKeepsShape(t *testing.T) {
	input := `{"ops":[{"insert":"Hello"},{"insert":" world","attributes":{"bold":true}},{"insert":"\n"}]}`
	d, err := Parse(input)
	require.NoError(t, err)

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, input, string(b))
}

func TestLengths(t *testing.T) {
	assert.Equal(t, 2, textLen("😀"))
	assert.Equal(t, "😀", sliceText("a😀b", 1, 3))
	assert.Equal(t, 4, New(Op{Insert: "a😀b"}).Length())

	d := Delta{}
	d.Retain(3, nil).Insert("abc", nil).Delete(1)
	assert.Equal(t, 2, d.ChangeLength())
	assert.False(t, d.IsDocument())
	assert.True(t, Document().IsDocument())
}

func TestPush_InsertBeforeDelete(t *testing.T) {
	d := Delta{}
	d.Retain(1, nil).Delete(2).Insert("x", nil)
	assert.Equal(t, []Op{{Retain: 1}, {Insert: "x"}, {Delete: 2}}, d.Ops)

	d = Delta{}
	d.Delete(1).Insert("y", nil)
	assert.Equal(t, []Op{{Insert: "y"}, {Delete: 1}}, d.Ops)
}

func TestPush_MergesAdjacent(t *testing.T) {
	bold := Attributes{"bold": true}
	d := Delta{}
	d.Insert("a", bold).Insert("b", Attributes{"bold": true}).Retain(1, nil).Retain(2, nil).Delete(1).Delete(2)
	assert.Equal(t, []Op{{Insert: "ab", Attributes: bold}, {Retain: 3}, {Delete: 3}}, d.Ops)
}

func TestChop(t *testing.T) {
	d := Delta{}
	d.Insert("a", nil).Retain(3, nil)
	d.Chop()
	assert.Equal(t, []Op{{Insert: "a"}}, d.Ops)

	d = Delta{}
	d.Retain(3, Attributes{"bold": true})
	d.Chop()
	assert.Len(t, d.Ops, 1)
}
