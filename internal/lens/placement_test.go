package lens

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveHeaderLineScenario(t *testing.T) {
	doc := newFakeDoc("file:///a.go", 20, 40)
	src := &fakeSource{items: []Item{
		titled(rng(10, 0, 10, 5), "3 refs", ""),
		titled(rng(10, 0, 10, 5), "2 impls", ""),
	}}
	syms := &fakeSymbols{symbols: []Symbol{{Name: "f", Kind: SymbolKindFunction, Range: rng(10, 0, 14, 1)}}}

	groups, err := NewAggregator(src, nil, nil).Aggregate(context.Background(), doc)
	require.NoError(t, err)
	headers, err := HeaderLines(context.Background(), syms, doc.URI())
	require.NoError(t, err)

	placements := Resolve(doc, groups, headers)
	require.Len(t, placements, 1)
	require.Equal(t, rng(10, 0, 10, 40), placements[0].Anchor)
	require.Equal(t, "3 refs | 2 impls", placements[0].Label)
	require.Equal(t, 2, placements[0].Items)
}

func TestResolveHeaderUsesLineOfEndPosition(t *testing.T) {
	doc := newFakeDoc("file:///a.go", 20, 40)
	doc.lines[12] = 17
	groups := GroupItems([]Item{titled(rng(10, 4, 12, 3), "x", "")})
	placements := Resolve(doc, groups, HeaderSet{10: {}})
	require.Equal(t, rng(10, 4, 12, 17), placements[0].Anchor)
}

func TestResolveNonHeaderKeepsRange(t *testing.T) {
	doc := newFakeDoc("file:///a.go", 20, 40)
	r := rng(5, 2, 5, 9)
	groups := GroupItems([]Item{titled(r, "1 ref", "")})
	placements := Resolve(doc, groups, HeaderSet{4: {}, 6: {}})
	require.Equal(t, r, placements[0].Anchor)
}

func TestResolveTooltipAndParts(t *testing.T) {
	doc := newFakeDoc("file:///a.go", 5, 10)
	r := rng(1, 0, 1, 4)
	groups := GroupItems([]Item{
		titled(r, "run", "go.run", "a"),
		titled(r, "", ""),
		titled(r, "debug", "go.debug"),
	})
	p := Resolve(doc, groups, nil)[0]

	require.Equal(t, "run | "+DefaultTitle+" | debug", p.Label)
	require.True(t, p.Tooltip.IsTrusted)
	links := strings.Split(p.Tooltip.Value, Separator)
	require.Len(t, links, 3)
	require.Equal(t, EncodeAction(groups.All()[0].Items[0]), links[0])
	require.Equal(t, "", links[1])

	var joined strings.Builder
	clickable := 0
	for _, part := range p.Parts {
		joined.WriteString(part.Value)
		if part.Command != nil {
			clickable++
			require.NotNil(t, part.Tooltip)
			require.True(t, part.Tooltip.IsTrusted)
		}
	}
	require.Equal(t, p.Label, joined.String())
	require.Equal(t, 2, clickable)
	require.Equal(t, "go.run", p.Parts[0].Command.ID)
}

func TestResolveIsIdempotent(t *testing.T) {
	doc := newFakeDoc("file:///a.go", 30, 25)
	src := &fakeSource{items: []Item{
		titled(rng(2, 0, 2, 4), "a", "x.a", "p"),
		titled(rng(8, 1, 8, 3), "b", ShowReferencesCommand, "file:///a.go"),
		titled(rng(2, 0, 2, 4), "c", ""),
	}}
	syms := &fakeSymbols{symbols: []Symbol{{Kind: SymbolKindMethod, Range: rng(8, 0, 9, 0)}}}
	agg := NewAggregator(src, nil, nil)

	run := func() []Placement {
		groups, err := agg.Aggregate(context.Background(), doc)
		require.NoError(t, err)
		headers, err := HeaderLines(context.Background(), syms, doc.URI())
		require.NoError(t, err)
		return Resolve(doc, groups, headers)
	}
	require.Equal(t, run(), run())
}
