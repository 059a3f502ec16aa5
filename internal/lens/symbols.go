package lens

import (
	"context"
	"fmt"
	"sort"
)

// HeaderSet holds the lines that begin a function, method or constructor.
type HeaderSet map[int]struct{}

// Has reports whether line begins a callable declaration.
func (h HeaderSet) Has(line int) bool {
	_, ok := h[line]
	return ok
}

// Lines returns the header lines in ascending order.
func (h HeaderSet) Lines() []int {
	out := make([]int, 0, len(h))
	for line := range h {
		out = append(out, line)
	}
	sort.Ints(out)
	return out
}

func isHeaderKind(kind SymbolKind) bool {
	switch kind {
	case SymbolKindConstructor, SymbolKindFunction, SymbolKindMethod:
		return true
	default:
		return false
	}
}

// ClassifyHeaders flattens a symbol tree into its header lines. Children are
// visited whatever the kind of their parent.
func ClassifyHeaders(symbols []Symbol) HeaderSet {
	headers := make(HeaderSet)
	var walk func([]Symbol)
	walk = func(list []Symbol) {
		for i := range list {
			sym := &list[i]
			if isHeaderKind(sym.Kind) {
				headers[sym.Range.Start.Line] = struct{}{}
			}
			if len(sym.Children) > 0 {
				walk(sym.Children)
			}
		}
	}
	walk(symbols)
	return headers
}

// HeaderLines queries src for the outline of uri and classifies it.
func HeaderLines(ctx context.Context, src SymbolSource, uri string) (HeaderSet, error) {
	if src == nil {
		return HeaderSet{}, nil
	}
	symbols, err := src.Symbols(ctx, uri)
	if err != nil {
		return HeaderSet{}, fmt.Errorf("symbols for %s: %w", uri, err)
	}
	return ClassifyHeaders(symbols), nil
}
