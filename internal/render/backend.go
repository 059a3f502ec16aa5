package render

import (
	"context"

	"inlinelens/internal/config"
)

// Backend is one rendering strategy.
type Backend interface {
	// Kind names the provider setting this backend serves.
	Kind() config.Provider
	// Refresh re-renders every visible document.
	Refresh(ctx context.Context)
	// Dispose clears rendered output and releases subscriptions. Later calls
	// do nothing.
	Dispose()
}
