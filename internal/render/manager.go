package render

import (
	"context"
	"fmt"
	"sync"

	"inlinelens/internal/config"
	"inlinelens/internal/host"
)

// BuildFunc constructs the backend for a provider.
type BuildFunc func(provider config.Provider) (Backend, error)

// Manager keeps exactly one backend alive and swaps it when the provider
// setting changes. The old backend is always disposed before the new one is
// built.
type Manager struct {
	settings config.Watchable
	build    BuildFunc
	logf     Logf

	mu      sync.Mutex
	active  Backend
	sub     host.Disposable
	closed  bool
	changed host.Emitter[Backend]
}

// NewManager returns a manager; Start activates the configured backend.
func NewManager(settings config.Watchable, build BuildFunc, logf Logf) *Manager {
	return &Manager{settings: settings, build: build, logf: logf.orStderr()}
}

// Start builds the configured backend and begins watching the provider key.
func (m *Manager) Start() error {
	m.mu.Lock()
	if m.sub != nil || m.closed {
		m.mu.Unlock()
		return nil
	}
	m.sub = m.settings.OnDidChangeConfiguration(m.onConfigChange)
	m.mu.Unlock()
	return m.Switch(config.Read(m.settings).Provider)
}

func (m *Manager) onConfigChange(change config.Change) {
	if !change.AffectsConfiguration(config.Section + "." + config.KeyProvider) {
		return
	}
	if err := m.Switch(config.Read(m.settings).Provider); err != nil {
		m.logf("switch provider: %v", err)
	}
}

// Switch makes provider the active backend.
func (m *Manager) Switch(provider config.Provider) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	if m.active != nil && m.active.Kind() == provider {
		m.mu.Unlock()
		return nil
	}
	if m.active != nil {
		m.active.Dispose()
		m.active = nil
	}
	next, err := m.build(provider)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("build %s backend: %w", provider, err)
	}
	m.active = next
	m.mu.Unlock()
	m.changed.Fire(next)
	return nil
}

// Active returns the live backend, or nil.
func (m *Manager) Active() Backend {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// OnDidChangeBackend reports each newly activated backend.
func (m *Manager) OnDidChangeBackend(fn func(Backend)) host.Disposable {
	return m.changed.Subscribe(fn)
}

// Refresh refreshes the active backend.
func (m *Manager) Refresh(ctx context.Context) {
	if b := m.Active(); b != nil {
		b.Refresh(ctx)
	}
}

// Close disposes the active backend and stops watching settings.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	if m.sub != nil {
		m.sub.Dispose()
	}
	if m.active != nil {
		m.active.Dispose()
		m.active = nil
	}
}
