// Package render turns aggregated annotations into host decorations or
// inline hints, and keeps exactly one of the two backends active.
package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"inlinelens/internal/lens"
	"inlinelens/internal/trace"
)

// Logf is the logging hook shared by the backends.
type Logf func(format string, args ...any)

// StderrLogf writes "inlinelens: ..." lines to stderr.
func StderrLogf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "inlinelens: "+format+"\n", args...)
}

func (l Logf) orStderr() Logf {
	if l == nil {
		return StderrLogf
	}
	return l
}

// Pipeline runs aggregation, header classification and placement for one
// document.
type Pipeline struct {
	agg     *lens.Aggregator
	symbols lens.SymbolSource
	logf    Logf
}

// NewPipeline wires the aggregator and symbol source together.
func NewPipeline(agg *lens.Aggregator, symbols lens.SymbolSource, logf Logf) *Pipeline {
	return &Pipeline{agg: agg, symbols: symbols, logf: logf.orStderr()}
}

// Placements returns the resolved placements for doc. An empty result is not
// an error. lens.ErrStaleDocument is returned unchanged so callers can skip
// the cycle.
func (p *Pipeline) Placements(ctx context.Context, doc lens.Document) ([]lens.Placement, error) {
	ctx, span := trace.Start(ctx, trace.ScopeDocument, "pipeline")
	span.Doc(doc.URI()).Version(doc.Version())

	groups, err := p.agg.Aggregate(ctx, doc)
	if err != nil {
		if errors.Is(err, lens.ErrStaleDocument) {
			span.End("stale")
		} else {
			span.Fail(err)
		}
		return nil, err
	}
	if groups.Len() == 0 {
		span.End("empty")
		return nil, nil
	}

	headers, err := lens.HeaderLines(ctx, p.symbols, doc.URI())
	if err != nil {
		p.logf("symbols for %s: %v", doc.URI(), err)
		trace.Error(ctx, trace.ScopeDocument, "symbols", err)
	}
	placements := lens.Resolve(doc, groups, headers)
	span.Set("groups", strconv.Itoa(groups.Len())).
		Set("headers", strconv.Itoa(len(headers))).
		End("")
	return placements, nil
}
