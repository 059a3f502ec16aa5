// Package upstream drives the wrapped language server: it forwards document
// sync and serves code lenses and outlines to the lens pipeline.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"inlinelens/internal/jsonrpc"
	"inlinelens/internal/lens"
	"inlinelens/internal/trace"
)

// ErrClosed reports use of a client whose server has exited.
var ErrClosed = errors.New("upstream: server closed")

// maxParallelResolves bounds concurrent codeLens/resolve calls.
const maxParallelResolves = 16

// Peer receives the upstream server's own requests and notifications that the
// proxy does not answer itself, normally the editor connection.
type Peer interface {
	Call(ctx context.Context, method string, params, result any) error
	Notify(method string, params any) error
}

// Options configures Start.
type Options struct {
	Command []string
	Dir     string
	Logf    func(format string, args ...any)
}

// Client talks to one upstream language server.
type Client struct {
	conn *jsonrpc.Conn
	cmd  *exec.Cmd
	logf func(format string, args ...any)

	mu   sync.RWMutex
	caps Capabilities
	peer Peer
}

// Start launches the server process and begins serving its output.
func Start(ctx context.Context, opts Options) (*Client, error) {
	if len(opts.Command) == 0 || strings.TrimSpace(opts.Command[0]) == "" {
		return nil, errors.New("upstream: empty command")
	}
	cmd := exec.Command(opts.Command[0], opts.Command[1:]...)
	cmd.Dir = opts.Dir
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("upstream stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("upstream stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", opts.Command[0], err)
	}
	c := New(jsonrpc.NewConn(jsonrpc.NewHeaderStream(stdout, stdin, stdin)), opts.Logf)
	c.cmd = cmd
	go func() {
		if err := c.Serve(ctx); err != nil {
			c.logf("upstream connection: %v", err)
		}
	}()
	return c, nil
}

// New wraps an existing connection. The caller must run Serve.
func New(conn *jsonrpc.Conn, logf func(format string, args ...any)) *Client {
	if logf == nil {
		logf = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, "inlinelens: "+format+"\n", args...)
		}
	}
	return &Client{conn: conn, logf: logf}
}

// Serve reads the server's messages until the connection ends.
func (c *Client) Serve(ctx context.Context) error {
	return c.conn.Run(ctx, c.handle)
}

// SetPeer routes unanswered server traffic to p.
func (c *Client) SetPeer(p Peer) {
	c.mu.Lock()
	c.peer = p
	c.mu.Unlock()
}

func (c *Client) currentPeer() Peer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.peer
}

// Capabilities returns what the server announced in initialize.
func (c *Client) Capabilities() Capabilities {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.caps
}

func (c *Client) handle(ctx context.Context, msg *jsonrpc.Message) error {
	peer := c.currentPeer()
	if msg.IsNotification() {
		if peer != nil {
			if err := peer.Notify(msg.Method, msg.Params); err != nil {
				c.logf("forward %s: %v", msg.Method, err)
			}
		} else if msg.Method == "window/logMessage" {
			c.logf("upstream: %s", msg.Params)
		}
		return nil
	}

	switch msg.Method {
	case "client/registerCapability", "client/unregisterCapability", "window/workDoneProgress/create":
		return c.conn.Reply(msg.ID, nil)
	case "workspace/configuration":
		var params struct {
			Items []json.RawMessage `json:"items"`
		}
		_ = json.Unmarshal(msg.Params, &params)
		if peer == nil {
			return c.conn.Reply(msg.ID, make([]any, len(params.Items)))
		}
	}
	if peer == nil {
		return c.conn.ReplyError(msg.ID, jsonrpc.NewError(jsonrpc.CodeMethodNotFound, "method not found: %s", msg.Method))
	}
	go func() {
		var result json.RawMessage
		err := peer.Call(ctx, msg.Method, msg.Params, &result)
		var rpcErr *jsonrpc.Error
		switch {
		case errors.As(err, &rpcErr):
			_ = c.conn.ReplyError(msg.ID, rpcErr)
		case err != nil:
			_ = c.conn.ReplyError(msg.ID, jsonrpc.NewError(jsonrpc.CodeInternalError, "%v", err))
		default:
			if len(result) == 0 {
				result = json.RawMessage("null")
			}
			_ = c.conn.Reply(msg.ID, result)
		}
	}()
	return nil
}

// Initialize performs the initialize handshake with params forwarded from
// the editor and returns the raw result.
func (c *Client) Initialize(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.conn.Call(ctx, "initialize", params, &result); err != nil {
		return nil, c.wrap("initialize", err)
	}
	var decoded struct {
		Capabilities Capabilities `json:"capabilities"`
	}
	if err := json.Unmarshal(result, &decoded); err != nil {
		return nil, fmt.Errorf("decode initialize result: %w", err)
	}
	c.mu.Lock()
	c.caps = decoded.Capabilities
	c.mu.Unlock()
	if err := c.conn.Notify("initialized", struct{}{}); err != nil {
		return nil, c.wrap("initialized", err)
	}
	return result, nil
}

// Notify forwards a notification unchanged.
func (c *Client) Notify(method string, params json.RawMessage) error {
	if err := c.conn.Notify(method, params); err != nil {
		return c.wrap(method, err)
	}
	return nil
}

// Forward relays a request and returns the raw result.
func (c *Client) Forward(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.conn.Call(ctx, method, params, &result); err != nil {
		return nil, c.wrap(method, err)
	}
	return result, nil
}

// Annotations implements lens.AnnotationSource. A negative maxItems returns
// every lens as reported. Otherwise lenses the server already resolved are
// all kept, and only the first maxItems unresolved ones are resolved and
// returned.
func (c *Client) Annotations(ctx context.Context, uri string, maxItems int) ([]lens.Item, error) {
	caps := c.Capabilities()
	if !caps.CodeLens() {
		return nil, nil
	}
	_, span := trace.Start(ctx, trace.ScopeDocument, "upstream:codeLens")
	span.Doc(uri)
	defer span.End("")

	var lenses []codeLens
	if err := c.conn.Call(ctx, "textDocument/codeLens", textDocumentParams{TextDocument: textDocumentIdentifier{URI: uri}}, &lenses); err != nil {
		return nil, c.wrap("textDocument/codeLens", err)
	}
	if maxItems >= 0 {
		lenses = capUnresolved(lenses, maxItems)
		if caps.ResolvesCodeLens() {
			c.resolve(ctx, lenses)
		}
	}
	items := make([]lens.Item, len(lenses))
	for i, l := range lenses {
		items[i] = l.item()
	}
	return items, nil
}

// capUnresolved keeps every lens that already has a command and the first
// limit lenses that do not, in arrival order.
func capUnresolved(lenses []codeLens, limit int) []codeLens {
	kept := make([]codeLens, 0, len(lenses))
	unresolved := 0
	for _, l := range lenses {
		if l.Command == nil {
			if unresolved == limit {
				continue
			}
			unresolved++
		}
		kept = append(kept, l)
	}
	return kept
}

// resolve completes unresolved lenses in place. A lens that fails to resolve
// stays as it was.
func (c *Client) resolve(ctx context.Context, lenses []codeLens) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelResolves)
	for i := range lenses {
		if lenses[i].Command != nil {
			continue
		}
		i := i
		g.Go(func() error {
			var resolved codeLens
			if err := c.conn.Call(gctx, "codeLens/resolve", lenses[i], &resolved); err != nil {
				c.logf("resolve code lens at %s: %v", lenses[i].Range, err)
				return nil
			}
			lenses[i] = resolved
			return nil
		})
	}
	_ = g.Wait()
}

// Symbols implements lens.SymbolSource.
func (c *Client) Symbols(ctx context.Context, uri string) ([]lens.Symbol, error) {
	if !c.Capabilities().DocumentSymbols() {
		return nil, nil
	}
	_, span := trace.Start(ctx, trace.ScopeDocument, "upstream:documentSymbol")
	span.Doc(uri)
	defer span.End("")

	var raw json.RawMessage
	if err := c.conn.Call(ctx, "textDocument/documentSymbol", textDocumentParams{TextDocument: textDocumentIdentifier{URI: uri}}, &raw); err != nil {
		return nil, c.wrap("textDocument/documentSymbol", err)
	}
	return decodeSymbols(raw)
}

// ExecuteCommand implements lens.CommandExecutor against the server.
func (c *Client) ExecuteCommand(ctx context.Context, cmd string, args ...any) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.conn.Call(ctx, "workspace/executeCommand", executeCommandParams{Command: cmd, Arguments: args}, &result); err != nil {
		return nil, c.wrap("workspace/executeCommand", err)
	}
	return result, nil
}

// Shutdown asks the server to exit and waits briefly for the process.
func (c *Client) Shutdown(ctx context.Context) error {
	if err := c.conn.Call(ctx, "shutdown", nil, nil); err != nil && !errors.Is(err, jsonrpc.ErrClosed) {
		return c.wrap("shutdown", err)
	}
	_ = c.conn.Notify("exit", nil)
	return c.wait(2 * time.Second)
}

func (c *Client) wait(timeout time.Duration) error {
	if c.cmd == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- c.cmd.Wait() }()
	select {
	case err := <-done:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return err
	case <-time.After(timeout):
		_ = c.cmd.Process.Kill()
		return <-done
	}
}

// Close drops the connection and kills the process if it is still running.
func (c *Client) Close() error {
	err := c.conn.Close()
	if c.cmd != nil && c.cmd.Process != nil && c.cmd.ProcessState == nil {
		_ = c.cmd.Process.Kill()
	}
	return err
}

func (c *Client) wrap(method string, err error) error {
	if errors.Is(err, jsonrpc.ErrClosed) {
		return fmt.Errorf("%s: %w", method, ErrClosed)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("upstream %s: %w", method, err)
}
