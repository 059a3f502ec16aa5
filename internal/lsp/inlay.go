package lsp

import (
	"context"
	"encoding/json"
	"strconv"

	"inlinelens/internal/jsonrpc"
	"inlinelens/internal/render"
	"inlinelens/internal/trace"
)

// handleInlayHint merges the upstream server's own hints with the lens
// hints when the hint backend is active.
func (s *Server) handleInlayHint(ctx context.Context, msg *jsonrpc.Message) (any, error) {
	var params inlayHintParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "invalid params")
	}
	hints := make([]any, 0)

	if s.up.Capabilities().InlayHints() {
		raw, err := s.up.Forward(ctx, msg.Method, msg.Params)
		if err != nil {
			s.logf("upstream inlayHint: %v", err)
		} else {
			var upstreamHints []json.RawMessage
			if err := json.Unmarshal(raw, &upstreamHints); err == nil {
				for _, h := range upstreamHints {
					hints = append(hints, h)
				}
			}
		}
	}

	backend, ok := s.manager.Active().(*render.HintBackend)
	if !ok {
		return hints, nil
	}
	doc, ok := s.docs.Document(params.TextDocument.URI)
	if !ok {
		return hints, nil
	}
	ours, err := backend.ProvideHints(ctx, doc, params.Range)
	if err != nil {
		s.logf("inlayHint %s: %v", params.TextDocument.URI, err)
		return hints, nil
	}
	for _, h := range ours {
		wire, err := toInlayHint(h)
		if err != nil {
			s.logf("skip hint at %s: %v", h.Position, err)
			continue
		}
		hints = append(hints, wire)
	}
	trace.Point(ctx, trace.ScopeDocument, "lsp:inlayHint", strconv.Itoa(len(ours))+" hints")
	return hints, nil
}
