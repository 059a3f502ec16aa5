package config

import (
	"reflect"
	"sort"
	"strings"
	"sync"

	"inlinelens/internal/host"
)

// Change describes which keys a settings update touched.
type Change struct {
	keys map[string]struct{}
}

// NewChange returns a Change naming the given unqualified keys.
func NewChange(keys ...string) Change {
	c := Change{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		c.keys[k] = struct{}{}
	}
	return c
}

// AffectsConfiguration reports whether the change touches section, which is
// either the namespace itself or "inline-codelens.<key>".
func (c Change) AffectsConfiguration(section string) bool {
	if section == Section {
		return len(c.keys) > 0
	}
	key, ok := strings.CutPrefix(section, Section+".")
	if !ok {
		return false
	}
	_, hit := c.keys[key]
	return hit
}

// Keys returns the touched keys in sorted order.
func (c Change) Keys() []string {
	out := make([]string, 0, len(c.keys))
	for k := range c.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Watchable is a Store that announces updates.
type Watchable interface {
	Store
	OnDidChangeConfiguration(fn func(Change)) host.Disposable
}

// MapStore is an in-memory store fed by the host's settings pushes.
type MapStore struct {
	mu      sync.RWMutex
	values  map[string]any
	changed host.Emitter[Change]
}

// NewMapStore returns a store seeded with values.
func NewMapStore(values map[string]any) *MapStore {
	s := &MapStore{values: make(map[string]any, len(values))}
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

// Get implements Store.
func (s *MapStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Replace swaps the whole value set and fires a Change for every key whose
// value differs. It reports the change.
func (s *MapStore) Replace(values map[string]any) Change {
	s.mu.Lock()
	var touched []string
	for k, v := range values {
		if old, ok := s.values[k]; !ok || !reflect.DeepEqual(old, v) {
			touched = append(touched, k)
		}
	}
	for k := range s.values {
		if _, ok := values[k]; !ok {
			touched = append(touched, k)
		}
	}
	next := make(map[string]any, len(values))
	for k, v := range values {
		next[k] = v
	}
	s.values = next
	s.mu.Unlock()

	change := NewChange(touched...)
	if len(touched) > 0 {
		s.changed.Fire(change)
	}
	return change
}

// Set updates a single key.
func (s *MapStore) Set(key string, value any) {
	s.mu.Lock()
	old, ok := s.values[key]
	if ok && reflect.DeepEqual(old, value) {
		s.mu.Unlock()
		return
	}
	s.values[key] = value
	s.mu.Unlock()
	s.changed.Fire(NewChange(key))
}

// OnDidChangeConfiguration implements Watchable.
func (s *MapStore) OnDidChangeConfiguration(fn func(Change)) host.Disposable {
	return s.changed.Subscribe(fn)
}

// Layered consults its stores in order; the first one holding a key wins.
type Layered []Store

// Get implements Store.
func (l Layered) Get(key string) (any, bool) {
	for _, s := range l {
		if s == nil {
			continue
		}
		if v, ok := s.Get(key); ok {
			return v, true
		}
	}
	return nil, false
}

// OnDidChangeConfiguration subscribes fn to every watchable layer.
func (l Layered) OnDidChangeConfiguration(fn func(Change)) host.Disposable {
	subs := &host.Disposables{}
	for _, s := range l {
		if w, ok := s.(Watchable); ok {
			subs.Add(w.OnDidChangeConfiguration(fn))
		}
	}
	return subs
}
