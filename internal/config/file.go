package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the settings file looked up from the working directory upwards.
const FileName = "inlinelens.toml"

// FileStore holds the values of the [inline-codelens] table of a TOML file.
type FileStore struct {
	Path   string
	values map[string]any
}

// Get implements Store.
func (s *FileStore) Get(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.values[key]
	return v, ok
}

// FindFile walks from startDir to the filesystem root looking for FileName.
func FindFile(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// LoadFile parses path. Values may live under an [inline-codelens] table or at
// the top level.
func LoadFile(path string) (*FileStore, error) {
	var raw map[string]any
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	values := make(map[string]any)
	if meta.IsDefined(Section) {
		table, ok := raw[Section].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: [%s] must be a table", path, Section)
		}
		for k, v := range table {
			values[k] = v
		}
	} else {
		for _, k := range Keys {
			if v, ok := raw[k]; ok {
				values[k] = v
			}
		}
	}
	for k := range values {
		if !knownKey(k) {
			return nil, fmt.Errorf("%s: unknown setting %q", path, k)
		}
	}
	return &FileStore{Path: path, values: values}, nil
}

func knownKey(k string) bool {
	for _, known := range Keys {
		if k == known {
			return true
		}
	}
	return false
}
