package main

import (
	"inlinelens/internal/config"
)

// loadSettings layers the environment over the settings file. The file is
// --config when given, otherwise the nearest inlinelens.toml above startDir.
func loadSettings(startDir string) (config.Layered, error) {
	path := globals.config
	if path == "" {
		found, ok, err := config.FindFile(startDir)
		if err != nil {
			return nil, err
		}
		if ok {
			path = found
		}
	}

	layers := config.Layered{config.NewEnvStore()}
	if path != "" {
		file, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		layers = append(layers, file)
	}
	return layers, nil
}
