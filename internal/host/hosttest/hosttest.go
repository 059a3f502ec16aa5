// Package hosttest provides in-memory host collaborators for tests.
package hosttest

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"inlinelens/internal/host"
	"inlinelens/internal/lens"
)

// Doc is a fixed-text document.
type Doc struct {
	DocURI     string
	DocVersion int
	Lines      []string
}

// NewDoc splits text into lines.
func NewDoc(uri string, version int, text string) *Doc {
	return &Doc{DocURI: uri, DocVersion: version, Lines: strings.Split(text, "\n")}
}

func (d *Doc) URI() string    { return d.DocURI }
func (d *Doc) Version() int   { return d.DocVersion }
func (d *Doc) LineCount() int { return len(d.Lines) }

func (d *Doc) LineEnd(line int) lens.Position {
	if line >= len(d.Lines) {
		line = len(d.Lines) - 1
	}
	if line < 0 {
		line = 0
	}
	return lens.Position{Line: line, Character: len(d.Lines[line])}
}

// Docs is a map-backed host.Documents and lens.VersionSource.
type Docs struct {
	mu   sync.RWMutex
	docs map[string]*Doc
}

// NewDocs returns a store holding docs.
func NewDocs(docs ...*Doc) *Docs {
	d := &Docs{docs: make(map[string]*Doc)}
	for _, doc := range docs {
		d.docs[doc.DocURI] = doc
	}
	return d
}

// Put adds or replaces a document.
func (d *Docs) Put(doc *Doc) {
	d.mu.Lock()
	d.docs[doc.DocURI] = doc
	d.mu.Unlock()
}

func (d *Docs) Document(uri string) (lens.Document, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	doc, ok := d.docs[uri]
	if !ok {
		return nil, false
	}
	return doc, true
}

func (d *Docs) CurrentVersion(uri string) (int, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	doc, ok := d.docs[uri]
	if !ok {
		return 0, false
	}
	return doc.DocVersion, true
}

// Annotations serves fixed items per URI and counts calls.
type Annotations struct {
	mu    sync.Mutex
	Items map[string][]lens.Item
	Errs  map[string]error
	Calls int
}

func (a *Annotations) Annotations(_ context.Context, uri string, maxItems int) ([]lens.Item, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Calls++
	if err := a.Errs[uri]; err != nil {
		return nil, err
	}
	items := a.Items[uri]
	if maxItems >= 0 && maxItems < len(items) {
		items = items[:maxItems]
	}
	return append([]lens.Item(nil), items...), nil
}

// CallCount returns the number of Annotations calls so far.
func (a *Annotations) CallCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Calls
}

// Symbols serves fixed outlines per URI.
type Symbols struct {
	Tree map[string][]lens.Symbol
	Err  error
}

func (s *Symbols) Symbols(_ context.Context, uri string) ([]lens.Symbol, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Tree[uri], nil
}

// Paint is one recorded SetDecorations call.
type Paint struct {
	EditorID    string
	Type        host.DecorationType
	Decorations []host.Decoration
}

// Surface records every decoration replacement.
type Surface struct {
	mu     sync.Mutex
	paints []Paint
	Err    error
}

func (s *Surface) SetDecorations(editorID string, typ host.DecorationType, decorations []host.Decoration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paints = append(s.paints, Paint{EditorID: editorID, Type: typ, Decorations: decorations})
	return s.Err
}

// Paints returns a copy of the recorded calls.
func (s *Surface) Paints() []Paint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Paint(nil), s.paints...)
}

// Latest returns the most recent decorations for editorID.
func (s *Surface) Latest(editorID string) ([]host.Decoration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.paints) - 1; i >= 0; i-- {
		if s.paints[i].EditorID == editorID {
			return s.paints[i].Decorations, true
		}
	}
	return nil, false
}

// Reset drops the recorded calls.
func (s *Surface) Reset() {
	s.mu.Lock()
	s.paints = nil
	s.mu.Unlock()
}

// Call is one recorded command execution.
type Call struct {
	Command string
	Args    []any
}

// Executor records ExecuteCommand calls.
type Executor struct {
	mu    sync.Mutex
	calls []Call
}

func (e *Executor) ExecuteCommand(_ context.Context, command string, args ...any) (json.RawMessage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, Call{Command: command, Args: args})
	return json.RawMessage("null"), nil
}

// Calls returns a copy of the recorded calls.
func (e *Executor) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}
