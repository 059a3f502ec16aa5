package lens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/sync/singleflight"
)

// ErrStaleDocument reports that the document changed while a two-phase fetch was in flight.
var ErrStaleDocument = errors.New("document changed during annotation fetch")

// Group is the set of items sharing one exact source range.
type Group struct {
	Key   string
	Range Range
	Items []Item
}

// Groups is an insertion-ordered mapping from range key to group.
type Groups struct {
	order []*Group
	byKey map[string]*Group
}

// NewGroups returns an empty mapping.
func NewGroups() *Groups {
	return &Groups{byKey: make(map[string]*Group)}
}

// GroupItems groups items by exact range, preserving arrival order.
func GroupItems(items []Item) *Groups {
	g := NewGroups()
	for _, it := range items {
		g.Add(it)
	}
	return g
}

// Add appends it to the group for its range, creating the group on first use.
func (g *Groups) Add(it Item) {
	key := RangeKey(it.Range)
	grp, ok := g.byKey[key]
	if !ok {
		grp = &Group{Key: key, Range: it.Range}
		g.byKey[key] = grp
		g.order = append(g.order, grp)
	}
	grp.Items = append(grp.Items, it)
}

// Len returns the number of groups.
func (g *Groups) Len() int {
	if g == nil {
		return 0
	}
	return len(g.order)
}

// Get returns the group stored under key.
func (g *Groups) Get(key string) (*Group, bool) {
	if g == nil {
		return nil, false
	}
	grp, ok := g.byKey[key]
	return grp, ok
}

// All returns the groups in insertion order.
func (g *Groups) All() []*Group {
	if g == nil {
		return nil
	}
	out := make([]*Group, len(g.order))
	copy(out, g.order)
	return out
}

// RangeKey is the canonical serialization of r used for grouping.
func RangeKey(r Range) string {
	data, err := json.Marshal(r)
	if err != nil {
		return r.String()
	}
	return string(data)
}

// Aggregator fetches a document's annotations and groups them by position.
type Aggregator struct {
	source   AnnotationSource
	limit    func() int
	versions VersionSource
	flight   singleflight.Group
}

// NewAggregator returns an Aggregator reading the item cap from limit on every call.
// versions may be nil, in which case the two-phase fetch is not re-validated.
func NewAggregator(source AnnotationSource, limit func() int, versions VersionSource) *Aggregator {
	if limit == nil {
		limit = func() int { return NoLimit }
	}
	return &Aggregator{source: source, limit: limit, versions: versions}
}

// Aggregate returns the position groups of doc. Concurrent calls for the same
// document version share one fetch. The shared fetch is not cancelled with
// any one caller; each caller stops waiting when its own ctx ends.
func (a *Aggregator) Aggregate(ctx context.Context, doc Document) (*Groups, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit := a.limit()
	key := doc.URI() + "@" + strconv.Itoa(doc.Version()) + "#" + strconv.Itoa(limit)
	ch := a.flight.DoChan(key, func() (any, error) {
		return a.aggregate(context.WithoutCancel(ctx), doc, limit)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Groups), nil
	}
}

func (a *Aggregator) aggregate(ctx context.Context, doc Document, limit int) (*Groups, error) {
	items, err := a.fetch(ctx, doc, limit)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return NewGroups(), nil
	}
	return GroupItems(items), nil
}

func (a *Aggregator) fetch(ctx context.Context, doc Document, limit int) ([]Item, error) {
	uri := doc.URI()
	if limit >= 0 {
		items, err := a.source.Annotations(ctx, uri, limit)
		if err != nil {
			return nil, fmt.Errorf("annotations for %s: %w", uri, err)
		}
		return items, nil
	}

	before, tracked := a.currentVersion(uri)
	discovered, err := a.source.Annotations(ctx, uri, NoLimit)
	if err != nil {
		return nil, fmt.Errorf("discover annotations for %s: %w", uri, err)
	}
	total := len(discovered)
	if total == 0 {
		return nil, nil
	}
	items, err := a.source.Annotations(ctx, uri, total)
	if err != nil {
		return nil, fmt.Errorf("annotations for %s: %w", uri, err)
	}
	if tracked {
		if after, ok := a.currentVersion(uri); !ok || after != before {
			return nil, ErrStaleDocument
		}
	}
	return items, nil
}

func (a *Aggregator) currentVersion(uri string) (int, bool) {
	if a.versions == nil {
		return 0, false
	}
	return a.versions.CurrentVersion(uri)
}
