// Package host describes the editor-side collaborators the renderer consumes:
// visible editors, document lookup, change streams and the decoration surface.
package host

import (
	"sync"

	"inlinelens/internal/lens"
)

// Editor is a visible editor pane showing one document.
type Editor struct {
	ID  string `json:"id"`
	URI string `json:"uri"`
}

// TextChange announces a new version of a document.
type TextChange struct {
	URI     string
	Version int
}

// ThemeColor names a color from the host theme.
type ThemeColor struct {
	ID string `json:"id"`
}

// Attachment is text rendered after a decorated range.
type Attachment struct {
	ContentText    string      `json:"contentText"`
	Color          *ThemeColor `json:"color,omitempty"`
	TextDecoration string      `json:"textDecoration,omitempty"`
	Margin         string      `json:"margin,omitempty"`
}

// DecorationType is a registered decoration style shared by every editor.
type DecorationType struct {
	Key   string     `json:"key"`
	After Attachment `json:"after"`
}

// Decoration is one painted overlay.
type Decoration struct {
	Range        lens.Range     `json:"range"`
	After        Attachment     `json:"after"`
	HoverMessage *lens.Markdown `json:"hoverMessage,omitempty"`
}

// DecorationSurface applies decorations to an editor. Each call replaces the
// previous set for the same editor and type.
type DecorationSurface interface {
	SetDecorations(editorID string, typ DecorationType, decorations []Decoration) error
}

// Documents looks up the current snapshot of an open document.
type Documents interface {
	Document(uri string) (lens.Document, bool)
}

// Workspace is the editor state the render backends observe.
type Workspace interface {
	Documents
	VisibleEditors() []Editor
	IsVisible(uri string) bool
	OnDidChangeTextDocument(fn func(TextChange)) Disposable
	OnDidChangeVisibleEditors(fn func([]Editor)) Disposable
}

// Hub is the Workspace implementation driven by a host adapter.
type Hub struct {
	docs Documents

	mu      sync.RWMutex
	editors []Editor

	textChanged    Emitter[TextChange]
	editorsChanged Emitter[[]Editor]
}

// NewHub returns a Hub resolving documents through docs.
func NewHub(docs Documents) *Hub {
	return &Hub{docs: docs}
}

// Document implements Documents.
func (h *Hub) Document(uri string) (lens.Document, bool) {
	if h.docs == nil {
		return nil, false
	}
	return h.docs.Document(uri)
}

// VisibleEditors returns a copy of the visible editor set.
func (h *Hub) VisibleEditors() []Editor {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Editor(nil), h.editors...)
}

// SetVisibleEditors replaces the visible editor set and notifies listeners.
func (h *Hub) SetVisibleEditors(editors []Editor) {
	h.mu.Lock()
	h.editors = append([]Editor(nil), editors...)
	h.mu.Unlock()
	h.editorsChanged.Fire(h.VisibleEditors())
}

// DidChangeText notifies listeners that a document changed.
func (h *Hub) DidChangeText(change TextChange) {
	h.textChanged.Fire(change)
}

// IsVisible reports whether uri is shown in any visible editor.
func (h *Hub) IsVisible(uri string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ed := range h.editors {
		if ed.URI == uri {
			return true
		}
	}
	return false
}

// OnDidChangeTextDocument implements Workspace.
func (h *Hub) OnDidChangeTextDocument(fn func(TextChange)) Disposable {
	return h.textChanged.Subscribe(fn)
}

// OnDidChangeVisibleEditors implements Workspace.
func (h *Hub) OnDidChangeVisibleEditors(fn func([]Editor)) Disposable {
	return h.editorsChanged.Subscribe(fn)
}
