package host

import "sync"

// Disposable releases a resource acquired from the host.
type Disposable interface {
	Dispose()
}

// DisposeFunc adapts a function to Disposable.
type DisposeFunc func()

// Dispose calls f.
func (f DisposeFunc) Dispose() { f() }

// Disposables owns a set of resources and releases them exactly once.
type Disposables struct {
	mu       sync.Mutex
	items    []Disposable
	disposed bool
}

// Add takes ownership of d. Adding after Dispose releases d immediately.
func (s *Disposables) Add(d Disposable) {
	if d == nil {
		return
	}
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		d.Dispose()
		return
	}
	s.items = append(s.items, d)
	s.mu.Unlock()
}

// Dispose releases every owned resource in reverse order of acquisition.
func (s *Disposables) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	items := s.items
	s.items = nil
	s.mu.Unlock()
	for i := len(items) - 1; i >= 0; i-- {
		items[i].Dispose()
	}
}

// Disposed reports whether Dispose has run.
func (s *Disposables) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// Emitter is a typed event stream. Listeners run synchronously in Fire's goroutine.
type Emitter[T any] struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[uint64]func(T)
	order     []uint64
}

// Subscribe registers fn and returns the handle that removes it.
func (e *Emitter[T]) Subscribe(fn func(T)) Disposable {
	e.mu.Lock()
	if e.listeners == nil {
		e.listeners = make(map[uint64]func(T))
	}
	e.nextID++
	id := e.nextID
	e.listeners[id] = fn
	e.order = append(e.order, id)
	e.mu.Unlock()

	var once sync.Once
	return DisposeFunc(func() {
		once.Do(func() { e.remove(id) })
	})
}

func (e *Emitter[T]) remove(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.listeners, id)
	for i, v := range e.order {
		if v == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// Fire delivers v to the listeners registered at the time of the call.
func (e *Emitter[T]) Fire(v T) {
	e.mu.Lock()
	fns := make([]func(T), 0, len(e.order))
	for _, id := range e.order {
		fns = append(fns, e.listeners[id])
	}
	e.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

// Len returns the number of live listeners.
func (e *Emitter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.order)
}

// Clear drops every listener.
func (e *Emitter[T]) Clear() {
	e.mu.Lock()
	e.listeners = nil
	e.order = nil
	e.mu.Unlock()
}
