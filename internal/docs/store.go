// Package docs keeps the text and version of every open document and serves
// them as lens.Document snapshots.
package docs

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"inlinelens/internal/lens"
)

// ErrNotOpen reports an edit to a document that was never opened.
var ErrNotOpen = errors.New("document not open")

// DefaultCacheSize bounds the number of cached line tables.
const DefaultCacheSize = 256

type entry struct {
	text    string
	version int
	// rev distinguishes text replaced on save without a version bump.
	rev uint64
}

// Store tracks open documents. It is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	docs map[string]*entry
	rev  uint64

	lines *lru.Cache[string, []uint32]
}

// NewStore creates a store caching up to cacheSize line tables.
func NewStore(cacheSize int) *Store {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, []uint32](cacheSize)
	if err != nil {
		panic(fmt.Sprintf("docs: line cache: %v", err))
	}
	return &Store{
		docs:  make(map[string]*entry),
		lines: cache,
	}
}

// Open records a newly opened document, replacing any previous state.
func (s *Store) Open(uri string, version int, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rev++
	s.docs[uri] = &entry{text: text, version: version, rev: s.rev}
}

// Change applies incremental edits and moves the document to version.
func (s *Store) Change(uri string, version int, changes []ContentChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.docs[uri]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotOpen, uri)
	}
	e.text = ApplyChanges(e.text, changes)
	e.version = version
	s.rev++
	e.rev = s.rev
	return nil
}

// Save replaces the text when the host includes it on save.
func (s *Store) Save(uri string, text *string) {
	if text == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.docs[uri]; ok && e.text != *text {
		e.text = *text
		s.rev++
		e.rev = s.rev
	}
}

// Close forgets a document and reports whether it was open.
func (s *Store) Close(uri string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[uri]; !ok {
		return false
	}
	delete(s.docs, uri)
	return true
}

// Text returns the current text of uri.
func (s *Store) Text(uri string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.docs[uri]
	if !ok {
		return "", false
	}
	return e.text, true
}

// CurrentVersion implements lens.VersionSource.
func (s *Store) CurrentVersion(uri string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.docs[uri]
	if !ok {
		return 0, false
	}
	return e.version, true
}

// Document returns an immutable snapshot of uri.
func (s *Store) Document(uri string) (lens.Document, bool) {
	snap, ok := s.Snapshot(uri)
	if !ok {
		return nil, false
	}
	return snap, true
}

// Snapshot is like Document but returns the concrete type.
func (s *Store) Snapshot(uri string) (*Snapshot, bool) {
	s.mu.RLock()
	e, ok := s.docs[uri]
	var text string
	var version int
	var rev uint64
	if ok {
		text, version, rev = e.text, e.version, e.rev
	}
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	key := fmt.Sprintf("%s@%d#%d", uri, version, rev)
	starts, hit := s.lines.Get(key)
	if !hit {
		var err error
		starts, err = lineStarts(text)
		if err != nil {
			return nil, false
		}
		s.lines.Add(key, starts)
	}
	return &Snapshot{uri: uri, version: version, text: text, starts: starts}, true
}

// CachedLineTables reports how many line tables are cached.
func (s *Store) CachedLineTables() int {
	return s.lines.Len()
}

// Snapshot is one version of a document. It implements lens.Document.
type Snapshot struct {
	uri     string
	version int
	text    string
	starts  []uint32
}

// NewSnapshot builds a standalone snapshot outside any store.
func NewSnapshot(uri string, version int, text string) (*Snapshot, error) {
	starts, err := lineStarts(text)
	if err != nil {
		return nil, err
	}
	return &Snapshot{uri: uri, version: version, text: text, starts: starts}, nil
}

func (d *Snapshot) URI() string    { return d.uri }
func (d *Snapshot) Version() int   { return d.version }
func (d *Snapshot) Text() string   { return d.text }
func (d *Snapshot) LineCount() int { return len(d.starts) }

// Line returns the text of line without its terminator.
func (d *Snapshot) Line(line int) string {
	if line < 0 || line >= len(d.starts) {
		return ""
	}
	start := int(d.starts[line])
	end := len(d.text)
	if line+1 < len(d.starts) {
		end = int(d.starts[line+1])
	}
	return strings.TrimRight(d.text[start:end], "\r\n")
}

// LineEnd returns the position after the last character of line, in UTF-16
// code units. Lines past the end clamp to the last line.
func (d *Snapshot) LineEnd(line int) lens.Position {
	if line < 0 {
		line = 0
	}
	if line >= len(d.starts) {
		line = len(d.starts) - 1
	}
	return lens.Position{Line: line, Character: utf16Width(d.Line(line))}
}
