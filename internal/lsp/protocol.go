package lsp

import (
	"encoding/json"

	"fortio.org/safecast"

	"inlinelens/internal/docs"
	"inlinelens/internal/host"
	"inlinelens/internal/lens"
	"inlinelens/internal/render"
)

// Custom methods exchanged with the editor extension.
const (
	MethodSetDecorations          = "inlineCodelens/setDecorations"
	MethodDidChangeVisibleEditors = "inlineCodelens/didChangeVisibleEditors"
	MethodExecuteClientCommand    = "inlineCodelens/executeClientCommand"
	methodInlayHintRefresh        = "workspace/inlayHint/refresh"
	markupKindMarkdown            = "markdown"
)

type textDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

type textDocumentIdentifier struct {
	URI string `json:"uri"`
}

type versionedTextDocumentIdentifier struct {
	URI     string `json:"uri"`
	Version int    `json:"version"`
}

type didOpenTextDocumentParams struct {
	TextDocument textDocumentItem `json:"textDocument"`
}

type didChangeTextDocumentParams struct {
	TextDocument   versionedTextDocumentIdentifier `json:"textDocument"`
	ContentChanges []docs.ContentChange            `json:"contentChanges"`
}

type didSaveTextDocumentParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Text         *string                `json:"text,omitempty"`
}

type didCloseTextDocumentParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
}

type didChangeConfigurationParams struct {
	Settings json.RawMessage `json:"settings"`
}

type didChangeVisibleEditorsParams struct {
	Editors []host.Editor `json:"editors"`
}

type cancelParams struct {
	ID json.RawMessage `json:"id"`
}

type executeCommandParams struct {
	Command   string `json:"command"`
	Arguments []any  `json:"arguments,omitempty"`
}

type inlayHintParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Range        lens.Range             `json:"range"`
}

// LSP positions are uinteger on the wire.
type position struct {
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
}

type lspRange struct {
	Start position `json:"start"`
	End   position `json:"end"`
}

func toPosition(p lens.Position) (position, error) {
	line, err := safecast.Conv[uint32](p.Line)
	if err != nil {
		return position{}, err
	}
	char, err := safecast.Conv[uint32](p.Character)
	if err != nil {
		return position{}, err
	}
	return position{Line: line, Character: char}, nil
}

func toRange(r lens.Range) (lspRange, error) {
	start, err := toPosition(r.Start)
	if err != nil {
		return lspRange{}, err
	}
	end, err := toPosition(r.End)
	if err != nil {
		return lspRange{}, err
	}
	return lspRange{Start: start, End: end}, nil
}

type markupContent struct {
	Kind      string `json:"kind"`
	Value     string `json:"value"`
	IsTrusted bool   `json:"isTrusted,omitempty"`
}

func toMarkup(md *lens.Markdown) *markupContent {
	if md == nil {
		return nil
	}
	return &markupContent{Kind: markupKindMarkdown, Value: md.Value, IsTrusted: md.IsTrusted}
}

type command struct {
	Title     string `json:"title"`
	Command   string `json:"command"`
	Arguments []any  `json:"arguments,omitempty"`
}

type inlayHintLabelPart struct {
	Value   string         `json:"value"`
	Tooltip *markupContent `json:"tooltip,omitempty"`
	Command *command       `json:"command,omitempty"`
}

type inlayHint struct {
	Position    position       `json:"position"`
	Label       any            `json:"label"`
	Tooltip     *markupContent `json:"tooltip,omitempty"`
	PaddingLeft bool           `json:"paddingLeft,omitempty"`
}

func toInlayHint(h render.Hint) (inlayHint, error) {
	pos, err := toPosition(h.Position)
	if err != nil {
		return inlayHint{}, err
	}
	out := inlayHint{Position: pos, Tooltip: toMarkup(h.Tooltip), PaddingLeft: h.PaddingLeft}
	if len(h.Parts) == 0 {
		out.Label = h.Label
		return out, nil
	}
	parts := make([]inlayHintLabelPart, len(h.Parts))
	for i, p := range h.Parts {
		parts[i] = inlayHintLabelPart{Value: p.Value, Tooltip: toMarkup(p.Tooltip)}
		if p.Command != nil {
			parts[i].Command = &command{Title: p.Value, Command: p.Command.ID, Arguments: p.Command.Arguments}
		}
	}
	out.Label = parts
	return out, nil
}

type themeColor struct {
	ID string `json:"id"`
}

type attachment struct {
	ContentText    string      `json:"contentText"`
	Color          *themeColor `json:"color,omitempty"`
	TextDecoration string      `json:"textDecoration,omitempty"`
	Margin         string      `json:"margin,omitempty"`
}

func toAttachment(a host.Attachment) attachment {
	out := attachment{ContentText: a.ContentText, TextDecoration: a.TextDecoration, Margin: a.Margin}
	if a.Color != nil {
		out.Color = &themeColor{ID: a.Color.ID}
	}
	return out
}

type renderOptions struct {
	After attachment `json:"after"`
}

type decorationOptions struct {
	Range         lspRange       `json:"range"`
	RenderOptions renderOptions  `json:"renderOptions"`
	HoverMessage  *markupContent `json:"hoverMessage,omitempty"`
}

type decorationType struct {
	Key   string     `json:"key"`
	After attachment `json:"after"`
}

type setDecorationsParams struct {
	Editor         string              `json:"editor"`
	DecorationType decorationType      `json:"decorationType"`
	Decorations    []decorationOptions `json:"decorations"`
}
