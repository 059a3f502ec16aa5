// Package config reads the inline-codelens settings from layered key/value stores.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Section is the settings namespace.
const Section = "inline-codelens"

const (
	KeyLimit          = "limit"
	KeyDebounceDelay  = "debounceDelay"
	KeyFontDecoration = "fontDecoration"
	KeyProvider       = "provider"
	KeyRichLabels     = "richLabels"
)

// Keys lists every recognised setting.
var Keys = []string{KeyLimit, KeyDebounceDelay, KeyFontDecoration, KeyProvider, KeyRichLabels}

// Provider selects the render backend.
type Provider string

const (
	ProviderDecoration Provider = "Decoration"
	ProviderInlayHints Provider = "Inlay Hints"
)

const (
	DefaultLimit          = -1
	DefaultDebounceDelay  = 300
	DefaultFontDecoration = "font-size: 0.75em;"
	DefaultProvider       = ProviderDecoration
	DefaultRichLabels     = true
)

// Configuration is one fresh read of the settings.
type Configuration struct {
	Limit          int
	DebounceDelay  int
	FontDecoration string
	Provider       Provider
	RichLabels     bool
}

// Debounce returns DebounceDelay as a duration.
func (c Configuration) Debounce() time.Duration {
	if c.DebounceDelay < 0 {
		return 0
	}
	return time.Duration(c.DebounceDelay) * time.Millisecond
}

// Default returns the configuration used when no store has a value.
func Default() Configuration {
	return Configuration{
		Limit:          DefaultLimit,
		DebounceDelay:  DefaultDebounceDelay,
		FontDecoration: DefaultFontDecoration,
		Provider:       DefaultProvider,
		RichLabels:     DefaultRichLabels,
	}
}

// Store is a simple key/value settings reader. Keys are unqualified.
type Store interface {
	Get(key string) (any, bool)
}

// Read returns the current configuration, falling back to defaults for
// missing or malformed values.
func Read(s Store) Configuration {
	cfg := Default()
	if s == nil {
		return cfg
	}
	if v, ok := s.Get(KeyLimit); ok {
		if n, err := toInt(v); err == nil && n >= -1 {
			cfg.Limit = n
		}
	}
	if v, ok := s.Get(KeyDebounceDelay); ok {
		if n, err := toInt(v); err == nil && n >= 0 {
			cfg.DebounceDelay = n
		}
	}
	if v, ok := s.Get(KeyFontDecoration); ok {
		if str, ok := v.(string); ok {
			cfg.FontDecoration = str
		}
	}
	if v, ok := s.Get(KeyProvider); ok {
		if p, err := ParseProvider(fmt.Sprint(v)); err == nil {
			cfg.Provider = p
		}
	}
	if v, ok := s.Get(KeyRichLabels); ok {
		if b, err := toBool(v); err == nil {
			cfg.RichLabels = b
		}
	}
	return cfg
}

// ParseProvider accepts the provider names case-insensitively.
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "decoration", "decorations":
		return ProviderDecoration, nil
	case "inlay hints", "inlayhints", "inlay-hints":
		return ProviderInlayHints, nil
	default:
		return DefaultProvider, fmt.Errorf("invalid provider: %q (expected: Decoration|Inlay Hints)", s)
	}
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("not an integer: %v", n)
		}
		return int(n), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	default:
		return 0, fmt.Errorf("not an integer: %T", v)
	}
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(b))
	default:
		return false, fmt.Errorf("not a boolean: %T", v)
	}
}
