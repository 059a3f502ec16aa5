package docs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"inlinelens/internal/lens"
)

func rangeOf(sl, sc, el, ec int) *lens.Range {
	return &lens.Range{
		Start: lens.Position{Line: sl, Character: sc},
		End:   lens.Position{Line: el, Character: ec},
	}
}

func TestApplyChangesIncremental(t *testing.T) {
	text := "func main() {\n\tprintln(1)\n}\n"
	got := ApplyChanges(text, []ContentChange{
		{Range: rangeOf(1, 9, 1, 10), Text: "42"},
		{Range: rangeOf(0, 5, 0, 9), Text: "run"},
	})
	require.Equal(t, "func run() {\n\tprintln(42)\n}\n", got)
}

func TestApplyChangesFullReplace(t *testing.T) {
	got := ApplyChanges("old", []ContentChange{{Text: "new"}})
	require.Equal(t, "new", got)
}

func TestOffsetForCountsUTF16(t *testing.T) {
	text := "a😀b\nc"
	// the emoji is two UTF-16 units and four bytes
	require.Equal(t, 5, OffsetFor(text, lens.Position{Line: 0, Character: 3}))
	require.Equal(t, 6, OffsetFor(text, lens.Position{Line: 0, Character: 99}))
	require.Equal(t, len(text), OffsetFor(text, lens.Position{Line: 7, Character: 0}))
}

func TestSnapshotLineEnd(t *testing.T) {
	store := NewStore(4)
	store.Open("file:///a.go", 1, "package a\r\n\nfunc é😀() {}\n")

	doc, ok := store.Document("file:///a.go")
	require.True(t, ok)
	require.Equal(t, 4, doc.LineCount())
	require.Equal(t, lens.Position{Line: 0, Character: 9}, doc.LineEnd(0))
	require.Equal(t, lens.Position{Line: 1, Character: 0}, doc.LineEnd(1))
	require.Equal(t, lens.Position{Line: 2, Character: 13}, doc.LineEnd(2))
	require.Equal(t, lens.Position{Line: 3, Character: 0}, doc.LineEnd(40))
}

func TestStoreVersionsAndCache(t *testing.T) {
	store := NewStore(4)
	uri := "file:///b.go"
	store.Open(uri, 1, "one\ntwo")

	_, ok := store.Document(uri)
	require.True(t, ok)
	_, ok = store.Document(uri)
	require.True(t, ok)
	require.Equal(t, 1, store.CachedLineTables())

	require.NoError(t, store.Change(uri, 2, []ContentChange{{Range: rangeOf(1, 3, 1, 3), Text: "\nthree"}}))
	v, ok := store.CurrentVersion(uri)
	require.True(t, ok)
	require.Equal(t, 2, v)

	doc, ok := store.Document(uri)
	require.True(t, ok)
	require.Equal(t, 3, doc.LineCount())
	require.Equal(t, 2, doc.Version())
	require.Equal(t, 2, store.CachedLineTables())

	saved := "one"
	store.Save(uri, &saved)
	doc, ok = store.Document(uri)
	require.True(t, ok)
	require.Equal(t, 1, doc.LineCount())

	require.True(t, store.Close(uri))
	_, ok = store.CurrentVersion(uri)
	require.False(t, ok)
	require.ErrorIs(t, store.Change(uri, 3, nil), ErrNotOpen)
}
