package store

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/delta"
	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/models"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func insertOp(t *testing.T, d delta.Delta, version int) models.Operation {
	t.Helper()
	b, err := json.Marshal(d)
	require.NoError(t, err)
	return models.Operation{Kind: models.OperationInsert, Text: string(b), UserID: "u1", Version: version}
}

func TestDocumentStore_GetCreatesDefault(t *testing.T) {
	s := NewDocumentStore(DefaultHistoryLimit)
	s.now = fixedClock(1000)

	doc := s.Get("doc-1")
	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, models.DefaultTitle, doc.Title)
	assert.Equal(t, 1, doc.Version)
	assert.Equal(t, int64(1000), doc.LastModified)
	assert.True(t, delta.Document().Equal(doc.Content))

	_, ok := s.Snapshot("doc-1")
	assert.True(t, ok)
	_, ok = s.Snapshot("doc-2")
	assert.False(t, ok)
}

func TestDocumentStore_ApplyInsert(t *testing.T) {
	s := NewDocumentStore(DefaultHistoryLimit)
	s.now = fixedClock(1000)
	s.Get("doc-1")
	s.now = fixedClock(2000)

	doc, change, err := s.ApplyContentOperation("doc-1", "c1", models.Operation{
		Kind: models.OperationInsert,
		Text: `[{"insert":"hello"}]`,
	})
	require.NoError(t, err)
	assert.Equal(t, []delta.Op{{Insert: "hello\n"}}, doc.Content.Ops)
	assert.Equal(t, 2, doc.Version)
	assert.Equal(t, int64(2000), doc.LastModified)
	assert.Equal(t, []delta.Op{{Insert: "hello"}}, change.Ops)

	// The mutation is visible to later reads.
	assert.Equal(t, "hello\n", s.Get("doc-1").Content.Text())
}

func TestDocumentStore_ApplyFormat(t *testing.T) {
	s := NewDocumentStore(DefaultHistoryLimit)
	_, _, err := s.ApplyContentOperation("doc-1", "c1", models.Operation{Kind: models.OperationInsert, Text: `[{"insert":"hello"}]`})
	require.NoError(t, err)

	doc, _, err := s.ApplyContentOperation("doc-1", "c1", models.Operation{
		Kind:       models.OperationRetain,
		Index:      1,
		Length:     3,
		Attributes: map[string]any{"bold": true},
	})
	require.NoError(t, err)
	assert.Equal(t, []delta.Op{
		{Insert: "h"},
		{Insert: "ell", Attributes: delta.Attributes{"bold": true}},
		{Insert: "o\n"},
	}, doc.Content.Ops)
	assert.Equal(t, 3, doc.Version)
}

func TestDocumentStore_ApplyRejects(t *testing.T) {
	tests := []struct {
		name string
		op   models.Operation
	}{
		{"unparseable text", models.Operation{Kind: models.OperationInsert, Text: `{not json`}},
		{"missing text", models.Operation{Kind: models.OperationInsert}},
		{"step without kind", models.Operation{Kind: models.OperationInsert, Text: `[{"bold":true}]`}},
		{"delete past end", models.Operation{Kind: models.OperationInsert, Text: `[{"retain":1},{"delete":10}]`}},
		{"format past end", models.Operation{Kind: models.OperationRetain, Index: 4, Length: 5, Attributes: map[string]any{"bold": true}}},
		{"format without attributes", models.Operation{Kind: models.OperationRetain, Index: 0, Length: 1}},
		{"format negative index", models.Operation{Kind: models.OperationRetain, Index: -1, Length: 1, Attributes: map[string]any{"bold": true}}},
		{"format range overflows", models.Operation{Kind: models.OperationRetain, Index: math.MaxInt - 5, Length: 10, Attributes: map[string]any{"bold": true}}},
		{"retains overflow", models.Operation{Kind: models.OperationInsert, Text: fmt.Sprintf(`[{"retain":%d},{"retain":%d,"attributes":{"bold":true}}]`, math.MaxInt, math.MaxInt-1)}},
		{"unknown kind", models.Operation{Kind: "delete", Index: 0, Length: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewDocumentStore(DefaultHistoryLimit)
			before := s.Get("doc-1")

			doc, _, err := s.ApplyContentOperation("doc-1", "c1", tt.op)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedOperation)
			assert.Equal(t, before, doc)
			assert.Equal(t, before, s.Get("doc-1"))
			assert.True(t, s.Get("doc-1").Content.IsDocument())
		})
	}
}

func TestDocumentStore_MalformedDeltaIsWrapped(t *testing.T) {
	s := NewDocumentStore(DefaultHistoryLimit)
	_, _, err := s.ApplyContentOperation("doc-1", "c1", models.Operation{Kind: models.OperationInsert, Text: `[{"retain":5}]`})
	assert.ErrorIs(t, err, ErrMalformedOperation)
	assert.ErrorIs(t, err, delta.ErrMalformedDelta)
}

func TestDocumentStore_SequentialEditsFold(t *testing.T) {
	s := NewDocumentStore(DefaultHistoryLimit)

	edits := []string{
		`[{"insert":"Hello"}]`,
		`[{"retain":5},{"insert":" world"}]`,
		`[{"retain":6},{"delete":5},{"insert":"there"}]`,
		`[{"retain":11},{"insert":"!"}]`,
	}

	want := delta.Document()
	var doc models.Document
	for _, text := range edits {
		change, err := delta.Parse(text)
		require.NoError(t, err)
		want, err = delta.Compose(want, change)
		require.NoError(t, err)

		doc, _, err = s.ApplyContentOperation("doc-1", "c1", models.Operation{Kind: models.OperationInsert, Text: text})
		require.NoError(t, err)
	}

	assert.True(t, want.Equal(doc.Content))
	assert.Equal(t, "Hello there!\n", doc.Content.Text())
	assert.Equal(t, 1+len(edits), doc.Version)
}

func TestDocumentStore_RebasesConcurrentEdits(t *testing.T) {
	s := NewDocumentStore(DefaultHistoryLimit)

	_, _, err := s.ApplyContentOperation("doc-1", "c1", insertOp(t, delta.New(delta.Op{Insert: "A"}), 1))
	require.NoError(t, err)

	// Made against version 1 too, without having seen "A".
	doc, change, err := s.ApplyContentOperation("doc-1", "c2", insertOp(t, delta.New(delta.Op{Insert: "B"}), 1))
	require.NoError(t, err)
	assert.Equal(t, "AB\n", doc.Content.Text())
	assert.Equal(t, 3, doc.Version)
	assert.Equal(t, []delta.Op{{Retain: 1}, {Insert: "B"}}, change.Ops)

	// A client that is up to date is not transformed.
	doc, _, err = s.ApplyContentOperation("doc-1", "c1", insertOp(t, delta.New(delta.Op{Insert: "C"}), 3))
	require.NoError(t, err)
	assert.Equal(t, "CAB\n", doc.Content.Text())
}

func TestDocumentStore_RebaseKeepsDeletesOnTarget(t *testing.T) {
	s := NewDocumentStore(DefaultHistoryLimit)
	_, _, err := s.ApplyContentOperation("doc-1", "c1", insertOp(t, delta.New(delta.Op{Insert: "abcdef"}), 1))
	require.NoError(t, err)

	// Two clients at version 2: one prepends, the other deletes "cd".
	prepend := delta.New(delta.Op{Insert: "XX"})
	_, _, err = s.ApplyContentOperation("doc-1", "c2", insertOp(t, prepend, 2))
	require.NoError(t, err)

	del := delta.Delta{}
	del.Retain(2, nil).Delete(2)
	doc, _, err := s.ApplyContentOperation("doc-1", "c3", insertOp(t, del, 2))
	require.NoError(t, err)
	assert.Equal(t, "XXabef\n", doc.Content.Text())
}

func TestDocumentStore_StaleVersion(t *testing.T) {
	s := NewDocumentStore(1)

	for i := 0; i < 2; i++ {
		_, _, err := s.ApplyContentOperation("doc-1", "c1", insertOp(t, delta.New(delta.Op{Insert: "x"}), 0))
		require.NoError(t, err)
	}
	before := s.Get("doc-1")
	require.Equal(t, 3, before.Version)

	_, _, err := s.ApplyContentOperation("doc-1", "c2", insertOp(t, delta.New(delta.Op{Insert: "y"}), 1))
	assert.ErrorIs(t, err, ErrStaleVersion)

	_, _, err = s.ApplyContentOperation("doc-1", "c2", insertOp(t, delta.New(delta.Op{Insert: "y"}), 9))
	assert.ErrorIs(t, err, ErrStaleVersion)

	assert.Equal(t, before, s.Get("doc-1"))

	// One change back is still within the retained history.
	doc, _, err := s.ApplyContentOperation("doc-1", "c2", insertOp(t, delta.New(delta.Op{Insert: "y"}), 2))
	require.NoError(t, err)
	assert.Equal(t, "xyx\n", doc.Content.Text())
}

func TestDocumentStore_RejectsEditBehindOwnChange(t *testing.T) {
	s := NewDocumentStore(DefaultHistoryLimit)
	_, _, err := s.ApplyContentOperation("doc-1", "c1", insertOp(t, delta.New(delta.Op{Insert: "a"}), 1))
	require.NoError(t, err)

	// Typed after "a" but still based on version 1: transforming it over
	// its own earlier edit would move it a second time.
	after := delta.Delta{}
	after.Retain(1, nil).Insert("b", nil)
	before := s.Get("doc-1")
	_, _, err = s.ApplyContentOperation("doc-1", "c1", insertOp(t, after, 1))
	assert.ErrorIs(t, err, ErrStaleVersion)
	assert.Equal(t, before, s.Get("doc-1"))

	// Another connection's edit in between is still rebased over.
	_, _, err = s.ApplyContentOperation("doc-1", "c2", insertOp(t, delta.New(delta.Op{Insert: "Z"}), 2))
	require.NoError(t, err)
	doc, _, err := s.ApplyContentOperation("doc-1", "c1", insertOp(t, after, 2))
	require.NoError(t, err)
	assert.Equal(t, "Zab\n", doc.Content.Text())
}

func TestDocumentStore_SetTitle(t *testing.T) {
	s := NewDocumentStore(DefaultHistoryLimit)
	s.now = fixedClock(1000)
	s.Get("doc-1")
	s.now = fixedClock(5000)

	doc := s.SetTitle("doc-1", "Meeting notes")
	assert.Equal(t, "Meeting notes", doc.Title)
	assert.Equal(t, int64(5000), doc.LastModified)
	assert.Equal(t, 1, doc.Version)
	assert.Equal(t, "Meeting notes", s.Get("doc-1").Title)
}

func TestDocumentStore_GetReturnsCopy(t *testing.T) {
	s := NewDocumentStore(DefaultHistoryLimit)
	doc := s.Get("doc-1")
	doc.Content.Ops[0].Insert = "changed"
	doc.Title = "changed"

	fresh := s.Get("doc-1")
	assert.Equal(t, "\n", fresh.Content.Text())
	assert.Equal(t, models.DefaultTitle, fresh.Title)
}

func TestDocumentStore_ListAndDelete(t *testing.T) {
	s := NewDocumentStore(DefaultHistoryLimit)
	s.now = fixedClock(1000)
	s.Get("older")
	s.now = fixedClock(2000)
	s.Get("newer")

	docs := s.List()
	require.Len(t, docs, 2)
	assert.Equal(t, "newer", docs[0].ID)
	assert.Equal(t, "older", docs[1].ID)

	s.Delete("older")
	_, ok := s.Snapshot("older")
	assert.False(t, ok)
	assert.Len(t, s.List(), 1)
}
