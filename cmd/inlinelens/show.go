package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"inlinelens/internal/config"
	"inlinelens/internal/docs"
	"inlinelens/internal/fixture"
	"inlinelens/internal/host"
	"inlinelens/internal/lens"
	"inlinelens/internal/lsp"
	"inlinelens/internal/render"
	"inlinelens/internal/trace"
	"inlinelens/internal/ui"
)

const showEditorID = "show"

var showCmd = &cobra.Command{
	Use:   "show <fixture>",
	Short: "Render a captured document with its annotations",
	Long: `show replays a fixture written by capture through the render pipeline
and draws the result. In a terminal the view is interactive: t toggles the
provider, q quits`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().String("provider", "", "render provider (Decoration|Inlay Hints)")
	showCmd.Flags().Int("limit", 0, "annotations to fetch (negative for all)")
	showCmd.Flags().Bool("rich", true, "use rich hint labels")
	showCmd.Flags().Bool("plain", false, "print once instead of opening the viewer")
	showCmd.Flags().Int("width", 0, "truncate lines to this width in plain mode")
	showCmd.Flags().Bool("line-numbers", true, "show line numbers")
	showCmd.Flags().Bool("tooltips", false, "list tooltips below the document")
}

type showSession struct {
	ctx       context.Context
	doc       *docs.Snapshot
	overrides *config.MapStore
	settings  config.Layered
	surface   *ui.Surface
	manager   *render.Manager
	styles    ui.Styles
	opts      ui.Options
}

func runShow(cmd *cobra.Command, args []string) error {
	path := args[0]
	fx, err := fixture.Load(path)
	if err != nil {
		return err
	}
	plain, err := cmd.Flags().GetBool("plain")
	if err != nil {
		return err
	}
	interactive := !plain && isTerminal(os.Stdout)

	overrides, err := showOverrides(cmd)
	if err != nil {
		return err
	}
	base, err := loadSettings(filepath.Dir(path))
	if err != nil {
		return err
	}
	settings := config.Layered{overrides, base}

	ctx := cmd.Context()
	logf := render.StderrLogf
	if interactive {
		logf = func(format string, args ...any) {
			trace.Point(ctx, trace.ScopeRefresh, "log", fmt.Sprintf(format, args...))
		}
	}

	store := docs.NewStore(0)
	store.Open(fx.URI, fx.Version, fx.Text)
	doc, ok := store.Snapshot(fx.URI)
	if !ok {
		return fmt.Errorf("fixture %s: document did not open", path)
	}
	hub := host.NewHub(store)
	hub.SetVisibleEditors([]host.Editor{{ID: showEditorID, URI: fx.URI}})

	agg := lens.NewAggregator(fx, func() int { return config.Read(settings).Limit }, store)
	pipeline := render.NewPipeline(agg, fx, logf)

	s := &showSession{
		ctx:       ctx,
		doc:       doc,
		overrides: overrides,
		settings:  settings,
		surface:   ui.NewSurface(),
		styles:    ui.NewStyles(os.Stdout),
	}
	s.opts.LineNumbers, _ = cmd.Flags().GetBool("line-numbers")
	s.opts.Tooltips, _ = cmd.Flags().GetBool("tooltips")
	s.manager = render.NewManager(settings, func(p config.Provider) (render.Backend, error) {
		switch p {
		case config.ProviderDecoration:
			return render.NewDecorationBackend(ctx, hub, s.surface, pipeline, settings, logf), nil
		case config.ProviderInlayHints:
			return render.NewHintBackend(hub, pipeline, settings, logf), nil
		default:
			return nil, fmt.Errorf("unknown provider %q", p)
		}
	}, logf)
	if err := s.manager.Start(); err != nil {
		return err
	}
	defer s.manager.Close()

	if !interactive {
		width, err := cmd.Flags().GetInt("width")
		if err != nil {
			return err
		}
		out, err := s.content(width)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	}

	updates := make(chan struct{}, 1)
	sub := s.surface.OnDidPaint(func(string) {
		select {
		case updates <- struct{}{}:
		default:
		}
	})
	defer sub.Dispose()

	title := lsp.URIToPath(fx.URI)
	if title == "" {
		title = fx.URI
	}
	model := ui.NewViewer(ui.ViewerOptions{
		Title:   title,
		Mode:    string(config.Read(settings).Provider),
		Content: s.content,
		Toggle:  s.toggle,
		Updates: updates,
	})
	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func showOverrides(cmd *cobra.Command) (*config.MapStore, error) {
	values := map[string]any{}
	if cmd.Flags().Changed("provider") {
		raw, err := cmd.Flags().GetString("provider")
		if err != nil {
			return nil, err
		}
		provider, err := config.ParseProvider(raw)
		if err != nil {
			return nil, err
		}
		values[config.KeyProvider] = string(provider)
	}
	if cmd.Flags().Changed("limit") {
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return nil, err
		}
		values[config.KeyLimit] = limit
	}
	if cmd.Flags().Changed("rich") {
		rich, err := cmd.Flags().GetBool("rich")
		if err != nil {
			return nil, err
		}
		values[config.KeyRichLabels] = rich
	}
	return config.NewMapStore(values), nil
}

// content draws the document as the active provider currently renders it.
func (s *showSession) content(width int) (string, error) {
	var inlines []ui.Inline
	switch b := s.manager.Active().(type) {
	case *render.DecorationBackend:
		inlines = ui.FromDecorations(s.surface.Type(), s.surface.Decorations(showEditorID))
	case *render.HintBackend:
		whole := lens.Range{End: s.doc.LineEnd(s.doc.LineCount() - 1)}
		hints, err := b.ProvideHints(s.ctx, s.doc, whole)
		if err != nil {
			return "", err
		}
		inlines = ui.FromHints(hints)
	default:
		return "", errors.New("no active provider")
	}
	opts := s.opts
	opts.Width = width
	return ui.Render(s.doc, inlines, s.styles, opts), nil
}

// toggle switches to the other provider and returns its name.
func (s *showSession) toggle() (string, error) {
	next := config.ProviderInlayHints
	if config.Read(s.settings).Provider == config.ProviderInlayHints {
		next = config.ProviderDecoration
	}
	s.overrides.Set(config.KeyProvider, string(next))
	if b := s.manager.Active(); b == nil || b.Kind() != next {
		return "", fmt.Errorf("provider %s did not start", next)
	}
	return string(next), nil
}
