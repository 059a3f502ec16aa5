package lens

import (
	"context"
	"encoding/json"
	"sync"
)

type fakeDoc struct {
	uri     string
	version int
	lines   []int
}

func (d *fakeDoc) URI() string    { return d.uri }
func (d *fakeDoc) Version() int   { return d.version }
func (d *fakeDoc) LineCount() int { return len(d.lines) }

func (d *fakeDoc) LineEnd(line int) Position {
	if line < 0 || line >= len(d.lines) {
		return Position{Line: line}
	}
	return Position{Line: line, Character: d.lines[line]}
}

// newFakeDoc returns a document of n lines, each width characters long.
func newFakeDoc(uri string, n, width int) *fakeDoc {
	lines := make([]int, n)
	for i := range lines {
		lines[i] = width
	}
	return &fakeDoc{uri: uri, version: 1, lines: lines}
}

type sourceCall struct {
	uri      string
	maxItems int
}

type fakeSource struct {
	mu    sync.Mutex
	items []Item
	calls []sourceCall
	err   error
}

func (s *fakeSource) Annotations(_ context.Context, uri string, maxItems int) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sourceCall{uri: uri, maxItems: maxItems})
	if s.err != nil {
		return nil, s.err
	}
	if maxItems >= 0 && maxItems < len(s.items) {
		return append([]Item(nil), s.items[:maxItems]...), nil
	}
	return append([]Item(nil), s.items...), nil
}

type fakeSymbols struct {
	symbols []Symbol
	err     error
}

func (s *fakeSymbols) Symbols(context.Context, string) ([]Symbol, error) {
	return s.symbols, s.err
}

type execCall struct {
	command string
	args    []any
}

type recordingExecutor struct {
	calls []execCall
}

func (e *recordingExecutor) ExecuteCommand(_ context.Context, command string, args ...any) (json.RawMessage, error) {
	e.calls = append(e.calls, execCall{command: command, args: args})
	return json.RawMessage(`null`), nil
}

func rng(sl, sc, el, ec int) Range {
	return Range{Start: Position{Line: sl, Character: sc}, End: Position{Line: el, Character: ec}}
}

func titled(r Range, title, command string, args ...any) Item {
	it := Item{Range: r, Title: title}
	if command != "" {
		it.Action = &Action{ID: command, Arguments: args}
	}
	return it
}
