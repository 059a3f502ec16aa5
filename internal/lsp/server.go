// Package lsp serves the editor side of the proxy. It forwards document sync
// and unknown requests to the upstream language server and renders the
// upstream code lenses inline.
package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"inlinelens/internal/config"
	"inlinelens/internal/docs"
	"inlinelens/internal/host"
	"inlinelens/internal/jsonrpc"
	"inlinelens/internal/lens"
	"inlinelens/internal/render"
	"inlinelens/internal/trace"
	"inlinelens/internal/upstream"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("lsp exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")
)

// Upstream is the wrapped language server.
type Upstream interface {
	lens.AnnotationSource
	lens.SymbolSource
	lens.CommandExecutor
	Initialize(ctx context.Context, params json.RawMessage) (json.RawMessage, error)
	Notify(method string, params json.RawMessage) error
	Forward(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error)
	Capabilities() upstream.Capabilities
	SetPeer(p upstream.Peer)
	Shutdown(ctx context.Context) error
}

// ServerOptions configures LSP server behavior.
type ServerOptions struct {
	Upstream Upstream
	// Base holds settings below the ones the editor pushes, such as a
	// config file or the environment.
	Base config.Store
	// LineCacheSize bounds the document line-table cache.
	LineCacheSize int
	Logf          func(format string, args ...any)
}

// Server handles one editor connection.
type Server struct {
	conn     *jsonrpc.Conn
	up       Upstream
	logf     func(format string, args ...any)
	docs     *docs.Store
	hub      *host.Hub
	settings *config.MapStore
	store    config.Layered
	pipeline *render.Pipeline
	manager  *render.Manager
	wrapper  *lens.Wrapper

	baseCtx  context.Context
	mu       sync.Mutex
	inflight map[string]context.CancelFunc

	// Render work queued off the read loop, run in order by runRenderer.
	qmu   sync.Mutex
	tasks []func()
	wake  chan struct{}

	shutdownRequested bool
	started           bool
}

// NewServer constructs a server speaking over stream.
func NewServer(stream jsonrpc.Stream, opts ServerOptions) *Server {
	logf := opts.Logf
	if logf == nil {
		logf = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, "lsp: "+format+"\n", args...)
		}
	}
	s := &Server{
		conn:     jsonrpc.NewConn(stream),
		up:       opts.Upstream,
		logf:     logf,
		docs:     docs.NewStore(opts.LineCacheSize),
		settings: config.NewMapStore(nil),
		wake:     make(chan struct{}, 1),
		inflight: make(map[string]context.CancelFunc),
	}
	s.store = config.Layered{s.settings, opts.Base}
	s.hub = host.NewHub(s.docs)
	agg := lens.NewAggregator(s.up, func() int { return config.Read(s.store).Limit }, s.docs)
	s.pipeline = render.NewPipeline(agg, s.up, render.Logf(logf))
	s.manager = render.NewManager(s.store, s.buildBackend, render.Logf(logf))
	var activated atomic.Bool
	s.manager.OnDidChangeBackend(func(render.Backend) {
		// Hints the editor holds were produced by the previous provider.
		if activated.Swap(true) {
			s.requestHintRefresh()
		}
	})
	s.wrapper = lens.NewWrapper(clientExecutor{s}, logf)
	s.up.SetPeer(s.conn)
	return s
}

// Run serves requests until the editor disconnects or sends exit.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.baseCtx = ctx
	go s.runRenderer(ctx)

	trace.Point(ctx, trace.ScopeServer, "lsp:run", "")
	err := s.conn.Run(ctx, s.handleMessage)
	s.manager.Close()
	return err
}

// enqueue hands fn to the render goroutine. Anything that may refresh a
// backend waits on the upstream server, so it never runs on the read loop.
func (s *Server) enqueue(fn func()) {
	s.qmu.Lock()
	s.tasks = append(s.tasks, fn)
	s.qmu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Server) runRenderer(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}
		s.qmu.Lock()
		tasks := s.tasks
		s.tasks = nil
		s.qmu.Unlock()
		for _, fn := range tasks {
			if ctx.Err() != nil {
				return
			}
			fn()
		}
	}
}

func (s *Server) buildBackend(provider config.Provider) (render.Backend, error) {
	switch provider {
	case config.ProviderDecoration:
		return render.NewDecorationBackend(s.baseCtx, s.hub, clientSurface{s}, s.pipeline, s.store, render.Logf(s.logf)), nil
	case config.ProviderInlayHints:
		b := render.NewHintBackend(s.hub, s.pipeline, s.store, render.Logf(s.logf))
		b.OnDidChangeHints(s.requestHintRefresh)
		return b, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

func (s *Server) requestHintRefresh() {
	go func() {
		if err := s.conn.Call(s.baseCtx, methodInlayHintRefresh, nil, nil); err != nil {
			s.logf("inlay hint refresh: %v", err)
		}
	}()
}

func (s *Server) handleMessage(ctx context.Context, msg *jsonrpc.Message) error {
	switch msg.Method {
	case "initialize":
		return s.handleInitialize(ctx, msg)
	case "initialized":
		return s.handleInitialized(msg)
	case "shutdown":
		return s.handleShutdown(ctx, msg)
	case "exit":
		if s.shutdownRequested {
			return ErrExit
		}
		return ErrExitWithoutShutdown
	case "$/cancelRequest":
		return s.handleCancel(msg)
	case "workspace/didChangeConfiguration":
		return s.handleDidChangeConfiguration(msg)
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didSave":
		return s.handleDidSave(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case MethodDidChangeVisibleEditors:
		return s.handleDidChangeVisibleEditors(msg)
	case "textDocument/codeLens":
		return s.conn.Reply(msg.ID, []any{})
	case "textDocument/inlayHint":
		s.async(ctx, msg, s.handleInlayHint)
		return nil
	case "workspace/executeCommand":
		s.async(ctx, msg, s.handleExecuteCommand)
		return nil
	default:
		if msg.IsRequest() {
			s.async(ctx, msg, s.forwardRequest)
			return nil
		}
		s.forwardNotification(msg)
		return nil
	}
}

// async runs a request handler in its own goroutine, cancellable through
// $/cancelRequest.
func (s *Server) async(ctx context.Context, msg *jsonrpc.Message, fn func(context.Context, *jsonrpc.Message) (any, error)) {
	ctx, cancel := context.WithCancel(ctx)
	key := string(msg.ID)
	s.mu.Lock()
	s.inflight[key] = cancel
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.inflight, key)
			s.mu.Unlock()
			cancel()
		}()
		result, err := fn(ctx, msg)
		s.reply(ctx, msg, result, err)
	}()
}

func (s *Server) reply(ctx context.Context, msg *jsonrpc.Message, result any, err error) {
	var rpcErr *jsonrpc.Error
	switch {
	case err == nil:
		err = s.conn.Reply(msg.ID, result)
	case errors.As(err, &rpcErr):
		err = s.conn.ReplyError(msg.ID, rpcErr)
	case ctx.Err() != nil:
		err = s.conn.ReplyError(msg.ID, jsonrpc.NewError(jsonrpc.CodeRequestCancelled, "request cancelled"))
	default:
		err = s.conn.ReplyError(msg.ID, jsonrpc.NewError(jsonrpc.CodeInternalError, "%v", err))
	}
	if err != nil {
		s.logf("reply to %s: %v", msg.Method, err)
	}
}

func (s *Server) handleCancel(msg *jsonrpc.Message) error {
	var params cancelParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil
	}
	s.mu.Lock()
	cancel, ok := s.inflight[string(params.ID)]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return nil
}

func (s *Server) handleInitialize(ctx context.Context, msg *jsonrpc.Message) error {
	result, err := s.up.Initialize(ctx, msg.Params)
	if err != nil {
		s.logf("initialize upstream: %v", err)
		return s.conn.ReplyError(msg.ID, jsonrpc.NewError(jsonrpc.CodeInternalError, "initialize upstream: %v", err))
	}
	merged, err := mergeCapabilities(result)
	if err != nil {
		return s.conn.ReplyError(msg.ID, jsonrpc.NewError(jsonrpc.CodeInternalError, "%v", err))
	}
	return s.conn.Reply(msg.ID, merged)
}

// mergeCapabilities hides the upstream code lenses, which are rendered
// inline instead, and adds inlay hints and the wrapper command.
func mergeCapabilities(raw json.RawMessage) (map[string]any, error) {
	result := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("decode upstream initialize result: %w", err)
		}
	}
	caps, _ := result["capabilities"].(map[string]any)
	if caps == nil {
		caps = map[string]any{}
	}
	delete(caps, "codeLensProvider")
	if _, ok := caps["inlayHintProvider"]; !ok {
		caps["inlayHintProvider"] = true
	}
	exec, _ := caps["executeCommandProvider"].(map[string]any)
	if exec == nil {
		exec = map[string]any{}
	}
	commands, _ := exec["commands"].([]any)
	exec["commands"] = append(commands, lens.WrapperCommand)
	caps["executeCommandProvider"] = exec
	result["capabilities"] = caps
	return result, nil
}

func (s *Server) handleInitialized(msg *jsonrpc.Message) error {
	s.forwardNotification(msg)
	s.mu.Lock()
	started := s.started
	s.started = true
	s.mu.Unlock()
	if started {
		return nil
	}
	s.enqueue(func() {
		if err := s.manager.Start(); err != nil {
			s.logf("start renderer: %v", err)
		}
	})
	return nil
}

func (s *Server) handleShutdown(ctx context.Context, msg *jsonrpc.Message) error {
	s.mu.Lock()
	s.shutdownRequested = true
	s.mu.Unlock()
	s.manager.Close()
	if err := s.up.Shutdown(ctx); err != nil {
		s.logf("shutdown upstream: %v", err)
	}
	return s.conn.Reply(msg.ID, nil)
}

func (s *Server) forwardNotification(msg *jsonrpc.Message) {
	if err := s.up.Notify(msg.Method, msg.Params); err != nil {
		s.logf("forward %s: %v", msg.Method, err)
	}
}

func (s *Server) forwardRequest(ctx context.Context, msg *jsonrpc.Message) (any, error) {
	return s.up.Forward(ctx, msg.Method, msg.Params)
}

func (s *Server) handleDidOpen(msg *jsonrpc.Message) error {
	s.forwardNotification(msg)
	var params didOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.logf("didOpen: %v", err)
		return nil
	}
	uri := params.TextDocument.URI
	if uri == "" {
		return nil
	}
	s.docs.Open(uri, params.TextDocument.Version, params.TextDocument.Text)
	s.hub.DidChangeText(host.TextChange{URI: uri, Version: params.TextDocument.Version})
	return nil
}

func (s *Server) handleDidChange(msg *jsonrpc.Message) error {
	s.forwardNotification(msg)
	var params didChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.logf("didChange: %v", err)
		return nil
	}
	uri := params.TextDocument.URI
	if err := s.docs.Change(uri, params.TextDocument.Version, params.ContentChanges); err != nil {
		s.logf("didChange: %v", err)
		return nil
	}
	s.hub.DidChangeText(host.TextChange{URI: uri, Version: params.TextDocument.Version})
	return nil
}

func (s *Server) handleDidSave(msg *jsonrpc.Message) error {
	s.forwardNotification(msg)
	var params didSaveTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.logf("didSave: %v", err)
		return nil
	}
	s.docs.Save(params.TextDocument.URI, params.Text)
	return nil
}

func (s *Server) handleDidClose(msg *jsonrpc.Message) error {
	s.forwardNotification(msg)
	var params didCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.logf("didClose: %v", err)
		return nil
	}
	s.docs.Close(params.TextDocument.URI)
	return nil
}

func (s *Server) handleDidChangeVisibleEditors(msg *jsonrpc.Message) error {
	var params didChangeVisibleEditorsParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.logf("didChangeVisibleEditors: %v", err)
		return nil
	}
	s.enqueue(func() { s.hub.SetVisibleEditors(params.Editors) })
	return nil
}

func (s *Server) handleExecuteCommand(ctx context.Context, msg *jsonrpc.Message) (any, error) {
	var params executeCommandParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "invalid params")
	}
	if params.Command != lens.WrapperCommand {
		return s.up.ExecuteCommand(ctx, params.Command, params.Arguments...)
	}
	return s.wrapper.Run(ctx, params.Arguments)
}

// clientSurface paints decorations through the editor extension.
type clientSurface struct{ s *Server }

func (c clientSurface) SetDecorations(editorID string, typ host.DecorationType, decorations []host.Decoration) error {
	params := setDecorationsParams{
		Editor:         editorID,
		DecorationType: decorationType{Key: typ.Key, After: toAttachment(typ.After)},
		Decorations:    make([]decorationOptions, 0, len(decorations)),
	}
	for _, d := range decorations {
		rng, err := toRange(d.Range)
		if err != nil {
			c.s.logf("skip decoration at %s: %v", d.Range, err)
			continue
		}
		params.Decorations = append(params.Decorations, decorationOptions{
			Range:         rng,
			RenderOptions: renderOptions{After: toAttachment(d.After)},
			HoverMessage:  toMarkup(d.HoverMessage),
		})
	}
	return c.s.conn.Notify(MethodSetDecorations, params)
}

// clientExecutor runs commands inside the editor.
type clientExecutor struct{ s *Server }

func (c clientExecutor) ExecuteCommand(ctx context.Context, cmd string, args ...any) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.s.conn.Call(ctx, MethodExecuteClientCommand, executeCommandParams{Command: cmd, Arguments: args}, &result); err != nil {
		return nil, fmt.Errorf("execute %s in editor: %w", cmd, err)
	}
	return result, nil
}
