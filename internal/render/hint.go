package render

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"inlinelens/internal/config"
	"inlinelens/internal/host"
	"inlinelens/internal/lens"
	"inlinelens/internal/schedule"
	"inlinelens/internal/trace"
)

// Hint is one native inline hint.
type Hint struct {
	Position    lens.Position    `json:"position" msgpack:"position"`
	Label       string           `json:"label,omitempty" msgpack:"label,omitempty"`
	Parts       []lens.LabelPart `json:"parts,omitempty" msgpack:"parts,omitempty"`
	Tooltip     *lens.Markdown   `json:"tooltip,omitempty" msgpack:"tooltip,omitempty"`
	PaddingLeft bool             `json:"paddingLeft" msgpack:"paddingLeft"`
}

// simpleLabelLead opens flat labels so they stand apart from the code even
// when the host ignores PaddingLeft.
const simpleLabelLead = "  "

// Hints converts placements into hints. Each hint sits at the end of the
// source line holding its anchor's end. Placements outside viewport's lines
// are dropped.
func Hints(doc lens.Document, placements []lens.Placement, viewport lens.Range, rich bool) []Hint {
	out := make([]Hint, 0, len(placements))
	for _, p := range placements {
		line := p.Anchor.End.Line
		if line < viewport.Start.Line || line > viewport.End.Line {
			continue
		}
		tooltip := p.Tooltip
		h := Hint{
			Position:    doc.LineEnd(line),
			Tooltip:     &tooltip,
			PaddingLeft: true,
		}
		if rich {
			h.Parts = p.Parts
		} else {
			h.Label = simpleLabelLead + p.Label
		}
		out = append(out, h)
	}
	return out
}

// HintBackend serves hints on demand and tells the host when to ask again.
type HintBackend struct {
	ws       host.Workspace
	pipeline *Pipeline
	settings config.Store
	logf     Logf

	changed  host.Emitter[struct{}]
	debounce *schedule.Debouncer
	subs     host.Disposables
	once     sync.Once
}

// NewHintBackend subscribes to ws. Text changes to visible documents are
// debounced; visibility changes notify at once.
func NewHintBackend(ws host.Workspace, pipeline *Pipeline, settings config.Store, logf Logf) *HintBackend {
	b := &HintBackend{
		ws:       ws,
		pipeline: pipeline,
		settings: settings,
		logf:     logf.orStderr(),
	}
	b.debounce = schedule.New(b.notify)
	b.subs.Add(ws.OnDidChangeTextDocument(func(change host.TextChange) {
		if ws.IsVisible(change.URI) {
			b.debounce.Schedule(config.Read(b.settings).Debounce())
		}
	}))
	b.subs.Add(ws.OnDidChangeVisibleEditors(func([]host.Editor) { b.debounce.Now() }))
	return b
}

// Kind implements Backend.
func (b *HintBackend) Kind() config.Provider { return config.ProviderInlayHints }

// OnDidChangeHints subscribes fn to re-request notifications.
func (b *HintBackend) OnDidChangeHints(fn func()) host.Disposable {
	return b.changed.Subscribe(func(struct{}) { fn() })
}

// Refresh asks the host to request hints again.
func (b *HintBackend) Refresh(context.Context) {
	b.debounce.Now()
}

func (b *HintBackend) notify() {
	if b.subs.Disposed() {
		return
	}
	b.changed.Fire(struct{}{})
}

// ProvideHints returns the hints for doc inside viewport. Cancellation yields
// an empty result and no error.
func (b *HintBackend) ProvideHints(ctx context.Context, doc lens.Document, viewport lens.Range) ([]Hint, error) {
	if ctx.Err() != nil || b.subs.Disposed() {
		return []Hint{}, nil
	}
	ctx, span := trace.Start(ctx, trace.ScopeRefresh, "hints")
	span.Doc(doc.URI()).Version(doc.Version())

	placements, err := b.pipeline.Placements(ctx, doc)
	if ctx.Err() != nil {
		span.End("cancelled")
		return []Hint{}, nil
	}
	switch {
	case errors.Is(err, lens.ErrStaleDocument):
		span.End("stale")
		return []Hint{}, nil
	case err != nil:
		span.Fail(err)
		return []Hint{}, err
	}

	hints := Hints(doc, placements, viewport, config.Read(b.settings).RichLabels)
	span.Set("hints", strconv.Itoa(len(hints))).End("")
	return hints, nil
}

// Dispose stops notifications and releases subscriptions.
func (b *HintBackend) Dispose() {
	b.once.Do(func() {
		b.debounce.Stop()
		b.subs.Dispose()
		b.changed.Clear()
	})
}
