package render

import (
	"sync"
	"sync/atomic"

	"inlinelens/internal/host"
	"inlinelens/internal/host/hosttest"
)

type atomicCounter struct {
	n atomic.Int64
}

func (c *atomicCounter) inc()      { c.n.Add(1) }
func (c *atomicCounter) load() int { return int(c.n.Load()) }

// heldSurface parks the first non-empty paint after arming until release is
// closed.
type heldSurface struct {
	*hosttest.Surface
	armed   atomic.Bool
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newHeldSurface(inner *hosttest.Surface) *heldSurface {
	return &heldSurface{Surface: inner, entered: make(chan struct{}), release: make(chan struct{})}
}

func (s *heldSurface) SetDecorations(editorID string, typ host.DecorationType, decorations []host.Decoration) error {
	if s.armed.Load() && len(decorations) > 0 {
		s.once.Do(func() {
			close(s.entered)
			<-s.release
		})
	}
	return s.Surface.SetDecorations(editorID, typ, decorations)
}
