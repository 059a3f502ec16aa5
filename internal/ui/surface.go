package ui

import (
	"sync"

	"inlinelens/internal/host"
)

// Surface is an in-memory decoration surface. It keeps the latest set of
// decorations per editor so they can be drawn later.
type Surface struct {
	mu      sync.RWMutex
	byID    map[string][]host.Decoration
	typ     host.DecorationType
	painted host.Emitter[string]
}

// NewSurface returns an empty surface.
func NewSurface() *Surface {
	return &Surface{byID: make(map[string][]host.Decoration)}
}

// SetDecorations replaces the decorations of editorID.
func (s *Surface) SetDecorations(editorID string, typ host.DecorationType, decorations []host.Decoration) error {
	s.mu.Lock()
	s.typ = typ
	if len(decorations) == 0 {
		delete(s.byID, editorID)
	} else {
		cp := make([]host.Decoration, len(decorations))
		copy(cp, decorations)
		s.byID[editorID] = cp
	}
	s.mu.Unlock()
	s.painted.Fire(editorID)
	return nil
}

// Decorations returns the current decorations of editorID.
func (s *Surface) Decorations(editorID string) []host.Decoration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[editorID]
}

// Type returns the decoration type of the last paint.
func (s *Surface) Type() host.DecorationType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.typ
}

// OnDidPaint reports the editor ID after each SetDecorations.
func (s *Surface) OnDidPaint(fn func(editorID string)) host.Disposable {
	return s.painted.Subscribe(fn)
}
