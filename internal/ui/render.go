package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"inlinelens/internal/docs"
	"inlinelens/internal/lens"
)

// Options controls Render.
type Options struct {
	// Width truncates each output line. Zero disables truncation.
	Width       int
	LineNumbers bool
	// Tooltips appends the tooltip of every label below the document.
	Tooltips bool
}

// Styles holds the lipgloss styles used by Render.
type Styles struct {
	Gutter  lipgloss.Style
	Label   lipgloss.Style
	Tooltip lipgloss.Style
}

// NewStyles builds styles for output written to w.
func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Gutter:  r.NewStyle().Foreground(lipgloss.Color("8")),
		Label:   r.NewStyle().Foreground(lipgloss.Color("6")),
		Tooltip: r.NewStyle().Foreground(lipgloss.Color("7")),
	}
}

type segment struct {
	text  string
	style *lipgloss.Style
}

// Render draws every line of doc with the inlines placed on it.
func Render(doc *docs.Snapshot, inlines []Inline, styles Styles, opts Options) string {
	byLine := make(map[int][]Inline)
	for _, in := range inlines {
		byLine[in.Position.Line] = append(byLine[in.Position.Line], in)
	}

	gutterWidth := len(strconv.Itoa(doc.LineCount()))
	var b strings.Builder
	for line := 0; line < doc.LineCount(); line++ {
		if line == doc.LineCount()-1 && line > 0 && doc.Line(line) == "" && len(byLine[line]) == 0 {
			break
		}
		var segs []segment
		if opts.LineNumbers {
			segs = append(segs, segment{text: fmt.Sprintf("%*d │ ", gutterWidth, line+1), style: &styles.Gutter})
		}
		segs = append(segs, lineSegments(doc.Line(line), byLine[line], styles)...)
		b.WriteString(fit(segs, opts.Width))
		b.WriteByte('\n')
	}

	if opts.Tooltips {
		for _, in := range inlines {
			if in.Tooltip == "" {
				continue
			}
			head := styles.Gutter.Render(fmt.Sprintf("%d:%d", in.Position.Line+1, in.Position.Character))
			b.WriteString(head + " " + styles.Tooltip.Render(in.Tooltip) + "\n")
		}
	}
	return b.String()
}

func lineSegments(text string, inlines []Inline, styles Styles) []segment {
	var segs []segment
	last := 0
	for _, in := range inlines {
		off := docs.OffsetFor(text, lens.Position{Character: in.Position.Character})
		if off < last {
			off = last
		}
		if off > last {
			segs = append(segs, segment{text: text[last:off]})
		}
		last = off
		st := styles.Label.Italic(in.Italic).Bold(in.Bold)
		txt := in.Text
		if in.Padding {
			txt = " " + txt
		}
		segs = append(segs, segment{text: txt, style: &st})
	}
	if last < len(text) {
		segs = append(segs, segment{text: text[last:]})
	}
	return segs
}

// fit renders segs, cutting the plain text at width before styling.
func fit(segs []segment, width int) string {
	var b strings.Builder
	used := 0
	for _, s := range segs {
		text := strings.ReplaceAll(s.text, "\t", "    ")
		if width > 0 {
			remaining := width - used
			if remaining <= 0 {
				break
			}
			w := runewidth.StringWidth(text)
			if w > remaining {
				text = truncate(text, remaining)
				w = runewidth.StringWidth(text)
			}
			used += w
		}
		if s.style != nil {
			b.WriteString(s.style.Render(text))
		} else {
			b.WriteString(text)
		}
	}
	return b.String()
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
