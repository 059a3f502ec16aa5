package lsp

import (
	"encoding/json"

	"inlinelens/internal/config"
	"inlinelens/internal/jsonrpc"
)

func (s *Server) handleDidChangeConfiguration(msg *jsonrpc.Message) error {
	s.forwardNotification(msg)
	if len(msg.Params) == 0 {
		return nil
	}
	var params didChangeConfigurationParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil
	}
	// A provider switch repaints through the upstream server.
	s.enqueue(func() { s.applySettings(params.Settings) })
	return nil
}

// applySettings replaces the editor-pushed settings with the
// "inline-codelens" section of raw. Keys absent from the section fall back
// to the base stores.
func (s *Server) applySettings(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var settings map[string]json.RawMessage
	if err := json.Unmarshal(raw, &settings); err != nil {
		return
	}
	section, ok := settings[config.Section]
	if !ok {
		return
	}
	var values map[string]any
	if err := json.Unmarshal(section, &values); err != nil {
		s.logf("settings: %v", err)
		return
	}
	known := make(map[string]any, len(values))
	for _, key := range config.Keys {
		if v, ok := values[key]; ok && v != nil {
			known[key] = v
		}
	}
	change := s.settings.Replace(known)
	if keys := change.Keys(); len(keys) > 0 {
		s.logf("settings changed: %v", keys)
	}
}
