package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "INLINE_CODELENS_"

var envNames = map[string]string{
	KeyLimit:          EnvPrefix + "LIMIT",
	KeyDebounceDelay:  EnvPrefix + "DEBOUNCE_DELAY",
	KeyFontDecoration: EnvPrefix + "FONT_DECORATION",
	KeyProvider:       EnvPrefix + "PROVIDER",
	KeyRichLabels:     EnvPrefix + "RICH_LABELS",
}

// EnvStore reads settings from the process environment.
type EnvStore struct {
	lookup func(string) (string, bool)
}

// NewEnvStore loads a .env file from the working directory, if present, and
// returns a store over the environment.
func NewEnvStore() *EnvStore {
	_ = godotenv.Load()
	return &EnvStore{lookup: os.LookupEnv}
}

// EnvName returns the variable overriding key.
func EnvName(key string) string {
	return envNames[key]
}

// Get implements Store. Values are returned as strings and parsed by Read.
func (s *EnvStore) Get(key string) (any, bool) {
	name, ok := envNames[key]
	if !ok || s == nil || s.lookup == nil {
		return nil, false
	}
	v, ok := s.lookup(name)
	if !ok || strings.TrimSpace(v) == "" {
		return nil, false
	}
	return v, true
}
