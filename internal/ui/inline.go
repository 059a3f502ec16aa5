// Package ui draws documents with their inline annotations in a terminal.
package ui

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"inlinelens/internal/host"
	"inlinelens/internal/lens"
	"inlinelens/internal/render"
)

// Inline is a label drawn inside a source line, after Position.
type Inline struct {
	Position lens.Position
	Text     string
	Tooltip  string
	Padding  bool
	Italic   bool
	Bold     bool
}

// FromDecorations places each decoration's attachment after its range. The
// type supplies the margin when a decoration does not set its own.
func FromDecorations(typ host.DecorationType, decorations []host.Decoration) []Inline {
	out := make([]Inline, 0, len(decorations))
	for _, d := range decorations {
		in := Inline{
			Position: d.Range.End,
			Text:     label(d.After.ContentText),
			Padding:  d.After.Margin != "" || typ.After.Margin != "",
		}
		applyFont(&in, d.After.TextDecoration)
		if d.HoverMessage != nil {
			in.Tooltip = d.HoverMessage.Value
		}
		out = append(out, in)
	}
	sortInlines(out)
	return out
}

// FromHints places each hint at its position. Rich hints join their parts.
func FromHints(hints []render.Hint) []Inline {
	out := make([]Inline, 0, len(hints))
	for _, h := range hints {
		// Padding already spaces the label from the code.
		text := strings.TrimLeft(h.Label, " ")
		if len(h.Parts) > 0 {
			var b strings.Builder
			for _, p := range h.Parts {
				b.WriteString(p.Value)
			}
			text = b.String()
		}
		in := Inline{Position: h.Position, Text: label(text), Padding: h.PaddingLeft}
		if h.Tooltip != nil {
			in.Tooltip = h.Tooltip.Value
		}
		out = append(out, in)
	}
	sortInlines(out)
	return out
}

func label(s string) string {
	return norm.NFC.String(strings.ReplaceAll(s, "\n", " "))
}

// applyFont maps the css-ish font decoration onto terminal attributes.
func applyFont(in *Inline, css string) {
	css = strings.ToLower(css)
	in.Italic = strings.Contains(css, "italic")
	in.Bold = strings.Contains(css, "bold") || strings.Contains(css, "font-weight: 700")
}

func sortInlines(in []Inline) {
	sort.SliceStable(in, func(i, j int) bool {
		return in[i].Position.Before(in[j].Position)
	})
}
