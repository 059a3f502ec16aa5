package render

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"inlinelens/internal/config"
	"inlinelens/internal/host"
	"inlinelens/internal/lens"
	"inlinelens/internal/schedule"
	"inlinelens/internal/trace"
)

// CodeLensForeground is the theme color of trailing labels.
var CodeLensForeground = host.ThemeColor{ID: "editorCodeLens.foreground"}

// InlineDecorationType is the single decoration style every overlay uses.
var InlineDecorationType = host.DecorationType{
	Key: "inline-codelens",
	After: host.Attachment{
		ContentText: "",
		Margin:      "0 0 0 1em",
		Color:       &CodeLensForeground,
	},
}

// maxParallelEditors bounds concurrent per-editor refreshes.
const maxParallelEditors = 8

// Decorations converts placements into overlay decorations.
func Decorations(placements []lens.Placement, fontDecoration string) []host.Decoration {
	out := make([]host.Decoration, 0, len(placements))
	for _, p := range placements {
		tooltip := p.Tooltip
		out = append(out, host.Decoration{
			Range: p.Anchor,
			After: host.Attachment{
				ContentText:    p.Label,
				Color:          &CodeLensForeground,
				TextDecoration: "none; " + fontDecoration,
			},
			HoverMessage: &tooltip,
		})
	}
	return out
}

// DecorationBackend paints trailing labels on every visible editor.
type DecorationBackend struct {
	ctx      context.Context
	ws       host.Workspace
	surface  host.DecorationSurface
	pipeline *Pipeline
	settings config.Store
	logf     Logf

	debounce *schedule.Debouncer
	subs     host.Disposables
	once     sync.Once

	// paintMu orders paints against the clear in Dispose.
	paintMu  sync.Mutex
	disposed bool
}

// NewDecorationBackend subscribes to ws and paints the current editors once.
// ctx bounds every refresh the backend starts on its own.
func NewDecorationBackend(ctx context.Context, ws host.Workspace, surface host.DecorationSurface, pipeline *Pipeline, settings config.Store, logf Logf) *DecorationBackend {
	b := &DecorationBackend{
		ctx:      ctx,
		ws:       ws,
		surface:  surface,
		pipeline: pipeline,
		settings: settings,
		logf:     logf.orStderr(),
	}
	b.debounce = schedule.New(func() { b.Refresh(b.ctx) })
	b.subs.Add(ws.OnDidChangeTextDocument(b.onTextChange))
	b.subs.Add(ws.OnDidChangeVisibleEditors(func([]host.Editor) { b.debounce.Now() }))
	b.debounce.Now()
	return b
}

// Kind implements Backend.
func (b *DecorationBackend) Kind() config.Provider { return config.ProviderDecoration }

func (b *DecorationBackend) onTextChange(change host.TextChange) {
	if !b.ws.IsVisible(change.URI) {
		return
	}
	b.debounce.Schedule(config.Read(b.settings).Debounce())
}

// Refresh repaints every visible editor. Each editor gets exactly one
// replacement; failures stay with their editor.
func (b *DecorationBackend) Refresh(ctx context.Context) {
	if b.subs.Disposed() {
		return
	}
	editors := b.ws.VisibleEditors()
	ctx, span := trace.Start(ctx, trace.ScopeRefresh, "decorations")
	fontDecoration := config.Read(b.settings).FontDecoration

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelEditors)
	for _, ed := range editors {
		ed := ed
		g.Go(func() error {
			b.paint(gctx, ed, fontDecoration)
			return nil
		})
	}
	_ = g.Wait()
	span.Set("editors", strconv.Itoa(len(editors))).End("")
}

func (b *DecorationBackend) paint(ctx context.Context, ed host.Editor, fontDecoration string) {
	doc, ok := b.ws.Document(ed.URI)
	if !ok {
		b.commit(ed.ID, nil)
		return
	}
	placements, err := b.pipeline.Placements(ctx, doc)
	switch {
	case errors.Is(err, lens.ErrStaleDocument):
		return
	case err != nil:
		b.logf("annotations for %s: %v", ed.URI, err)
		trace.Error(ctx, trace.ScopeDocument, "annotations", err)
		placements = nil
	}
	b.commit(ed.ID, Decorations(placements, fontDecoration))
}

// commit applies decorations unless the backend has been disposed.
func (b *DecorationBackend) commit(editorID string, decorations []host.Decoration) {
	b.paintMu.Lock()
	defer b.paintMu.Unlock()
	if b.disposed {
		return
	}
	b.apply(editorID, decorations)
}

func (b *DecorationBackend) apply(editorID string, decorations []host.Decoration) {
	if decorations == nil {
		decorations = []host.Decoration{}
	}
	if err := b.surface.SetDecorations(editorID, InlineDecorationType, decorations); err != nil {
		b.logf("set decorations on %s: %v", editorID, err)
	}
}

// Dispose cancels the pending refresh, releases subscriptions and clears
// every visible editor.
func (b *DecorationBackend) Dispose() {
	b.once.Do(func() {
		b.debounce.Stop()
		b.subs.Dispose()
		b.paintMu.Lock()
		defer b.paintMu.Unlock()
		b.disposed = true
		for _, ed := range b.ws.VisibleEditors() {
			b.apply(ed.ID, nil)
		}
	})
}
