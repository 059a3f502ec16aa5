package lens

import (
	"bytes"
	"encoding/json"
	"strings"
)

const (
	// ShowReferencesCommand is the host's built-in references peek.
	ShowReferencesCommand = "editor.action.showReferences"
	// WrapperCommand re-types show-references arguments before forwarding them.
	WrapperCommand = "inline-codelens.showReferencesWrapper"
)

// LinkTarget returns the command a click on it should run. Show-references
// actions are routed through WrapperCommand with the original identifier
// prepended to the arguments.
func LinkTarget(it Item) (Action, bool) {
	if it.Action == nil {
		return Action{}, false
	}
	if it.Action.ID != ShowReferencesCommand {
		args := it.Action.Arguments
		if args == nil {
			args = []any{}
		}
		return Action{ID: it.Action.ID, Arguments: args}, true
	}
	args := make([]any, 0, len(it.Action.Arguments)+1)
	args = append(args, it.Action.ID)
	args = append(args, it.Action.Arguments...)
	return Action{ID: WrapperCommand, Arguments: args}, true
}

// EncodeAction renders it as a markdown command link, or "" when it has no action.
func EncodeAction(it Item) string {
	target, ok := LinkTarget(it)
	if !ok {
		return ""
	}
	return "[" + it.DisplayTitle() + "](" + CommandURI(target) + ")"
}

// CommandURI renders a command: URI with percent-encoded JSON arguments.
func CommandURI(a Action) string {
	return "command:" + a.ID + "?" + encodeURIComponent(marshalArgs(a.Arguments))
}

func marshalArgs(args []any) string {
	if args == nil {
		args = []any{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(args); err != nil {
		return "[]"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

const upperHex = "0123456789ABCDEF"

// encodeURIComponent escapes everything but A-Z a-z 0-9 - _ . ! ~ * ' ( ).
func encodeURIComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreservedComponent(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&15])
	}
	return b.String()
}

func isUnreservedComponent(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
