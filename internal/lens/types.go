package lens

import (
	"context"
	"encoding/json"
	"fmt"
)

// DefaultTitle is shown for annotations whose action carries no title.
const DefaultTitle = "⤵️"

// Separator joins co-located annotations in labels and tooltips.
const Separator = " | "

// NoLimit asks an AnnotationSource for its default item count.
const NoLimit = -1

// Position is a zero-based line and UTF-16 character offset.
type Position struct {
	Line      int `json:"line" msgpack:"line"`
	Character int `json:"character" msgpack:"character"`
}

// Range is a half-open span between two positions.
type Range struct {
	Start Position `json:"start" msgpack:"start"`
	End   Position `json:"end" msgpack:"end"`
}

// Before reports whether p sorts strictly before q.
func (p Position) Before(q Position) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Character < q.Character
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Character)
}

func (r Range) String() string {
	return fmt.Sprintf("%s-%s", r.Start, r.End)
}

// Action references a host command that reproduces the original annotation click.
type Action struct {
	ID        string `json:"command" msgpack:"command"`
	Arguments []any  `json:"arguments,omitempty" msgpack:"arguments,omitempty"`
}

// Item is one annotation reported by the host for a document.
type Item struct {
	Range  Range   `json:"range" msgpack:"range"`
	Title  string  `json:"title,omitempty" msgpack:"title,omitempty"`
	Action *Action `json:"action,omitempty" msgpack:"action,omitempty"`
}

// DisplayTitle returns the item title, or DefaultTitle when it has none.
func (it Item) DisplayTitle() string {
	if it.Title == "" {
		return DefaultTitle
	}
	return it.Title
}

// SymbolKind follows the LSP SymbolKind numbering.
type SymbolKind int

const (
	SymbolKindFile        SymbolKind = 1
	SymbolKindModule      SymbolKind = 2
	SymbolKindNamespace   SymbolKind = 3
	SymbolKindPackage     SymbolKind = 4
	SymbolKindClass       SymbolKind = 5
	SymbolKindMethod      SymbolKind = 6
	SymbolKindProperty    SymbolKind = 7
	SymbolKindField       SymbolKind = 8
	SymbolKindConstructor SymbolKind = 9
	SymbolKindEnum        SymbolKind = 10
	SymbolKindInterface   SymbolKind = 11
	SymbolKindFunction    SymbolKind = 12
	SymbolKindVariable    SymbolKind = 13
	SymbolKindConstant    SymbolKind = 14
	SymbolKindStruct      SymbolKind = 23
)

// Symbol is a node of the host's document outline.
type Symbol struct {
	Name     string     `json:"name" msgpack:"name"`
	Kind     SymbolKind `json:"kind" msgpack:"kind"`
	Range    Range      `json:"range" msgpack:"range"`
	Children []Symbol   `json:"children,omitempty" msgpack:"children,omitempty"`
}

// Markdown is tooltip content. IsTrusted enables command links.
type Markdown struct {
	Value     string `json:"value"`
	IsTrusted bool   `json:"isTrusted"`
}

// LabelPart is one segment of a rich label. Command is nil for separators.
type LabelPart struct {
	Value   string    `json:"value"`
	Tooltip *Markdown `json:"tooltip,omitempty"`
	Command *Action   `json:"command,omitempty"`
}

// Placement is the resolved rendering of one position group.
type Placement struct {
	Anchor  Range
	Label   string
	Parts   []LabelPart
	Tooltip Markdown
	Items   int
}

// Document is the read-only view of a text document the pipeline needs.
type Document interface {
	URI() string
	Version() int
	LineCount() int
	// LineEnd returns the position just past the last character of line.
	LineEnd(line int) Position
}

// AnnotationSource produces annotation items for a document. maxItems < 0
// asks for the source's default count.
type AnnotationSource interface {
	Annotations(ctx context.Context, uri string, maxItems int) ([]Item, error)
}

// SymbolSource produces the outline tree of a document.
type SymbolSource interface {
	Symbols(ctx context.Context, uri string) ([]Symbol, error)
}

// VersionSource reports the current version of an open document.
type VersionSource interface {
	CurrentVersion(uri string) (int, bool)
}

// CommandExecutor invokes a host command.
type CommandExecutor interface {
	ExecuteCommand(ctx context.Context, command string, args ...any) (json.RawMessage, error)
}
