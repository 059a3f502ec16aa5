package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Content produces the document view for the given terminal width.
type Content func(width int) (string, error)

// ViewerOptions configures NewViewer.
type ViewerOptions struct {
	Title   string
	Content Content
	// Toggle switches the render provider and returns its new name.
	Toggle func() (string, error)
	// Mode is the provider name shown before the first toggle.
	Mode string
	// Updates signals that Content should be redrawn. Closing it is allowed.
	Updates <-chan struct{}
}

type viewerModel struct {
	opts    ViewerOptions
	mode    string
	vp      viewport.Model
	ready   bool
	width   int
	err     error
	updates <-chan struct{}
}

type redrawMsg struct{}

// NewViewer returns a Bubble Tea model showing a scrollable document.
// Keys: q quits, t toggles the provider, r redraws.
func NewViewer(opts ViewerOptions) tea.Model {
	return &viewerModel{opts: opts, mode: opts.Mode, width: 80, updates: opts.Updates}
}

func (m *viewerModel) Init() tea.Cmd {
	return m.listenForUpdate()
}

func (m *viewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "t":
			if m.opts.Toggle != nil {
				mode, err := m.opts.Toggle()
				if err != nil {
					m.err = err
					return m, nil
				}
				m.mode = mode
				m.redraw()
			}
			return m, nil
		case "r":
			m.redraw()
			return m, nil
		}
	case tea.WindowSizeMsg:
		headerHeight := 2
		if !m.ready {
			m.vp = viewport.New(msg.Width, msg.Height-headerHeight)
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = msg.Height - headerHeight
		}
		m.width = msg.Width
		m.redraw()
		return m, nil
	case redrawMsg:
		m.redraw()
		return m, m.listenForUpdate()
	}

	if !m.ready {
		return m, nil
	}
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m *viewerModel) View() string {
	if !m.ready {
		return "loading..."
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.opts.Title
	if m.mode != "" {
		header = fmt.Sprintf("%s (%s)", header, m.mode)
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(truncate(header, m.width)))
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Render(truncate(m.err.Error(), m.width)))
	}
	b.WriteString("\n")
	b.WriteString(m.vp.View())
	return b.String()
}

func (m *viewerModel) redraw() {
	if !m.ready || m.opts.Content == nil {
		return
	}
	content, err := m.opts.Content(m.width)
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.vp.SetContent(content)
}

func (m *viewerModel) listenForUpdate() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-m.updates; !ok {
			return nil
		}
		return redrawMsg{}
	}
}
