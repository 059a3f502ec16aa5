package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"

	"inlinelens/internal/lens"
)

type textDocumentIdentifier struct {
	URI string `json:"uri"`
}

type textDocumentParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
}

type command struct {
	Title     string `json:"title"`
	Command   string `json:"command"`
	Arguments []any  `json:"arguments,omitempty"`
}

type codeLens struct {
	Range   lens.Range      `json:"range"`
	Command *command        `json:"command,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (c codeLens) item() lens.Item {
	it := lens.Item{Range: c.Range}
	if c.Command != nil {
		it.Title = c.Command.Title
		if c.Command.Command != "" {
			it.Action = &lens.Action{ID: c.Command.Command, Arguments: c.Command.Arguments}
		}
	}
	return it
}

type documentSymbol struct {
	Name     string           `json:"name"`
	Kind     lens.SymbolKind  `json:"kind"`
	Range    lens.Range       `json:"range"`
	Children []documentSymbol `json:"children,omitempty"`
}

func (d documentSymbol) symbol() lens.Symbol {
	sym := lens.Symbol{Name: d.Name, Kind: d.Kind, Range: d.Range}
	for _, child := range d.Children {
		sym.Children = append(sym.Children, child.symbol())
	}
	return sym
}

type symbolInformation struct {
	Name     string          `json:"name"`
	Kind     lens.SymbolKind `json:"kind"`
	Location struct {
		URI   string     `json:"uri"`
		Range lens.Range `json:"range"`
	} `json:"location"`
}

// decodeSymbols accepts either DocumentSymbol[] or SymbolInformation[].
func decodeSymbols(raw json.RawMessage) ([]lens.Symbol, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("decode document symbols: %w", err)
	}
	out := make([]lens.Symbol, 0, len(elems))
	for i, elem := range elems {
		var shape struct {
			Location json.RawMessage `json:"location"`
		}
		if err := json.Unmarshal(elem, &shape); err != nil {
			return nil, fmt.Errorf("decode document symbol %d: %w", i, err)
		}
		if len(shape.Location) > 0 {
			var info symbolInformation
			if err := json.Unmarshal(elem, &info); err != nil {
				return nil, fmt.Errorf("decode symbol information %d: %w", i, err)
			}
			out = append(out, lens.Symbol{Name: info.Name, Kind: info.Kind, Range: info.Location.Range})
			continue
		}
		var sym documentSymbol
		if err := json.Unmarshal(elem, &sym); err != nil {
			return nil, fmt.Errorf("decode document symbol %d: %w", i, err)
		}
		out = append(out, sym.symbol())
	}
	return out, nil
}

type executeCommandParams struct {
	Command   string `json:"command"`
	Arguments []any  `json:"arguments,omitempty"`
}

// Capabilities is the part of the upstream server's capabilities the proxy uses.
type Capabilities struct {
	CodeLensProvider *struct {
		ResolveProvider bool `json:"resolveProvider,omitempty"`
	} `json:"codeLensProvider,omitempty"`
	DocumentSymbolProvider json.RawMessage `json:"documentSymbolProvider,omitempty"`
	InlayHintProvider      json.RawMessage `json:"inlayHintProvider,omitempty"`
	ExecuteCommandProvider *struct {
		Commands []string `json:"commands"`
	} `json:"executeCommandProvider,omitempty"`
}

func enabled(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(raw, []byte("false")) && !bytes.Equal(raw, []byte("null"))
}

// CodeLens reports whether the server offers code lenses.
func (c Capabilities) CodeLens() bool { return c.CodeLensProvider != nil }

// ResolvesCodeLens reports whether unresolved lenses can be completed.
func (c Capabilities) ResolvesCodeLens() bool {
	return c.CodeLensProvider != nil && c.CodeLensProvider.ResolveProvider
}

// DocumentSymbols reports whether the server offers an outline.
func (c Capabilities) DocumentSymbols() bool { return enabled(c.DocumentSymbolProvider) }

// InlayHints reports whether the server offers its own inlay hints.
func (c Capabilities) InlayHints() bool { return enabled(c.InlayHintProvider) }

// Commands lists the commands the server executes.
func (c Capabilities) Commands() []string {
	if c.ExecuteCommandProvider == nil {
		return nil
	}
	return c.ExecuteCommandProvider.Commands
}
