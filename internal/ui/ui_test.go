package ui

import (
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"inlinelens/internal/docs"
	"inlinelens/internal/host"
	"inlinelens/internal/lens"
	"inlinelens/internal/render"
)

var ansi = regexp.MustCompile("\x1b\\[[0-9;]*m")

func plain(s string) string {
	return ansi.ReplaceAllString(s, "")
}

func snapshot(t *testing.T, text string) *docs.Snapshot {
	t.Helper()
	doc, err := docs.NewSnapshot("file:///tmp/a.go", 1, text)
	require.NoError(t, err)
	return doc
}

func placement(line, endChar int, label string) lens.Placement {
	return lens.Placement{
		Anchor:  lens.Range{Start: lens.Position{Line: line}, End: lens.Position{Line: line, Character: endChar}},
		Label:   label,
		Tooltip: lens.Markdown{Value: "[" + label + "](command:x)", IsTrusted: true},
		Parts:   []lens.LabelPart{{Value: label}},
		Items:   1,
	}
}

func TestRenderDecorationsAfterRange(t *testing.T) {
	doc := snapshot(t, "func main() {\n\tprintln()\n}\n")
	decs := render.Decorations([]lens.Placement{placement(0, 13, "2 references")}, "font-style: italic;")
	inlines := FromDecorations(render.InlineDecorationType, decs)
	require.Len(t, inlines, 1)
	require.True(t, inlines[0].Italic)

	out := plain(Render(doc, inlines, NewStyles(io.Discard), Options{}))
	require.Equal(t, "func main() { 2 references\n    println()\n}\n", out)
}

func TestRenderDecorationMidLine(t *testing.T) {
	doc := snapshot(t, "type T struct{}")
	decs := render.Decorations([]lens.Placement{placement(0, 6, "1 implementation")}, "")
	out := plain(Render(doc, FromDecorations(host.DecorationType{}, decs), NewStyles(io.Discard), Options{}))
	require.Equal(t, "type T1 implementation struct{}\n", out)
}

func TestRenderHintsRichAndSimple(t *testing.T) {
	doc := snapshot(t, "a\nb\n")
	placements := []lens.Placement{placement(1, 0, "run")}
	viewport := lens.Range{End: lens.Position{Line: 1, Character: 1}}

	rich := FromHints(render.Hints(doc, placements, viewport, true))
	simple := FromHints(render.Hints(doc, placements, viewport, false))
	require.Equal(t, rich, simple)

	out := plain(Render(doc, rich, NewStyles(io.Discard), Options{Tooltips: true}))
	require.Equal(t, "a\nb run\n2:1 [run](command:x)\n", out)
}

func TestRenderLineNumbersAndWidth(t *testing.T) {
	doc := snapshot(t, "package main\n")
	out := plain(Render(doc, nil, NewStyles(io.Discard), Options{LineNumbers: true, Width: 10}))
	require.Equal(t, "1 │ pac...\n", out)
}

func TestRenderNormalizesLabels(t *testing.T) {
	doc := snapshot(t, "x")
	decomposed := "cafe\u0301"
	decs := render.Decorations([]lens.Placement{placement(0, 1, decomposed)}, "")
	inlines := FromDecorations(render.InlineDecorationType, decs)
	require.Equal(t, "caf\u00e9", inlines[0].Text)

	out := plain(Render(doc, inlines, NewStyles(io.Discard), Options{}))
	require.Equal(t, "x caf\u00e9\n", out)
}

func TestSurfaceKeepsLatestPerEditor(t *testing.T) {
	s := NewSurface()
	var painted []string
	sub := s.OnDidPaint(func(id string) { painted = append(painted, id) })
	defer sub.Dispose()

	decs := render.Decorations([]lens.Placement{placement(0, 1, "x")}, "")
	require.NoError(t, s.SetDecorations("e1", render.InlineDecorationType, decs))
	require.NoError(t, s.SetDecorations("e2", render.InlineDecorationType, decs))
	require.Len(t, s.Decorations("e1"), 1)
	require.Equal(t, render.InlineDecorationType.Key, s.Type().Key)

	require.NoError(t, s.SetDecorations("e1", render.InlineDecorationType, nil))
	require.Empty(t, s.Decorations("e1"))
	require.Len(t, s.Decorations("e2"), 1)
	require.Equal(t, []string{"e1", "e2", "e1"}, painted)
}

func TestViewerToggleAndResize(t *testing.T) {
	mode := "Decoration"
	var widths []int
	m := NewViewer(ViewerOptions{
		Title: "a.go",
		Mode:  mode,
		Content: func(width int) (string, error) {
			widths = append(widths, width)
			return "content for " + mode, nil
		},
		Toggle: func() (string, error) {
			mode = "Inlay Hints"
			return mode, nil
		},
	})
	require.Equal(t, "loading...", m.View())

	m, _ = m.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	require.Equal(t, []int{40}, widths)
	require.Contains(t, plain(m.View()), "a.go (Decoration)")
	require.Contains(t, plain(m.View()), "content for Decoration")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	view := plain(m.View())
	require.Contains(t, view, "a.go (Inlay Hints)")
	require.Contains(t, view, "content for Inlay Hints")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

func TestViewerShowsToggleError(t *testing.T) {
	m := NewViewer(ViewerOptions{
		Title:   "a.go",
		Content: func(int) (string, error) { return "body", nil },
		Toggle:  func() (string, error) { return "", errors.New("no backend") },
	})
	m, _ = m.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	view := plain(m.View())
	require.Contains(t, view, "no backend")
	require.True(t, strings.Contains(view, "body"))
}

func TestViewerRedrawsOnUpdate(t *testing.T) {
	updates := make(chan struct{}, 1)
	calls := 0
	m := NewViewer(ViewerOptions{
		Content: func(int) (string, error) { calls++; return "body", nil },
		Updates: updates,
	})
	cmd := m.Init()
	require.NotNil(t, cmd)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 20, Height: 5})
	require.Equal(t, 1, calls)

	updates <- struct{}{}
	msg := cmd()
	_, next := m.Update(msg)
	require.Equal(t, 2, calls)
	require.NotNil(t, next)
}
