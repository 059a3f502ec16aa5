package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"inlinelens/internal/jsonrpc"
	"inlinelens/internal/lens"
)

type closers []io.Closer

func (cs closers) Close() error {
	for _, c := range cs {
		_ = c.Close()
	}
	return nil
}

type fakeServer struct {
	conn     *jsonrpc.Conn
	symbols  string
	resolves atomic.Int32
}

func (s *fakeServer) handle(_ context.Context, msg *jsonrpc.Message) error {
	if msg.IsNotification() {
		return nil
	}
	switch msg.Method {
	case "initialize":
		return s.conn.Reply(msg.ID, json.RawMessage(`{"capabilities":{"codeLensProvider":{"resolveProvider":true},"documentSymbolProvider":true}}`))
	case "textDocument/codeLens":
		lenses := []map[string]any{
			{"range": lens.Range{Start: lens.Position{Line: 2, Character: 5}, End: lens.Position{Line: 2, Character: 8}}, "data": 0},
			{"range": lens.Range{Start: lens.Position{Line: 2, Character: 5}, End: lens.Position{Line: 2, Character: 8}}, "data": 1},
			{"range": lens.Range{Start: lens.Position{Line: 9, Character: 0}, End: lens.Position{Line: 9, Character: 4}}, "command": map[string]any{"title": "run", "command": "test.run"}},
		}
		return s.conn.Reply(msg.ID, lenses)
	case "codeLens/resolve":
		s.resolves.Add(1)
		var l map[string]any
		_ = json.Unmarshal(msg.Params, &l)
		l["command"] = map[string]any{
			"title":     fmt.Sprintf("%v refs", l["data"]),
			"command":   "editor.action.showReferences",
			"arguments": []any{"file:///a.go"},
		}
		return s.conn.Reply(msg.ID, l)
	case "textDocument/documentSymbol":
		return s.conn.Reply(msg.ID, json.RawMessage(s.symbols))
	case "workspace/executeCommand":
		return s.conn.Reply(msg.ID, json.RawMessage(msg.Params))
	default:
		return s.conn.ReplyError(msg.ID, jsonrpc.NewError(jsonrpc.CodeMethodNotFound, "method not found"))
	}
}

func startFake(t *testing.T, symbols string) (*Client, *fakeServer) {
	t.Helper()
	ar, bw := io.Pipe()
	br, aw := io.Pipe()
	clientConn := jsonrpc.NewConn(jsonrpc.NewHeaderStream(ar, aw, closers{ar, aw}))
	serverConn := jsonrpc.NewConn(jsonrpc.NewHeaderStream(br, bw, closers{br, bw}))

	ctx, cancel := context.WithCancel(context.Background())
	srv := &fakeServer{conn: serverConn, symbols: symbols}
	go func() { _ = serverConn.Run(ctx, srv.handle) }()

	client := New(clientConn, func(string, ...any) {})
	go func() { _ = client.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		_ = client.Close()
		_ = serverConn.Close()
	})

	_, err := client.Initialize(ctx, json.RawMessage(`{"processId":null}`))
	require.NoError(t, err)
	return client, srv
}

func TestAnnotationsDiscoveryIsUnresolved(t *testing.T) {
	client, srv := startFake(t, `[]`)
	items, err := client.Annotations(context.Background(), "file:///a.go", lens.NoLimit)
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Nil(t, items[0].Action)
	require.Equal(t, lens.DefaultTitle, items[0].DisplayTitle())
	require.Zero(t, srv.resolves.Load())
}

func TestAnnotationsResolvesFirstNUnresolved(t *testing.T) {
	client, srv := startFake(t, `[]`)
	titles := func(items []lens.Item) []string {
		out := make([]string, len(items))
		for i, it := range items {
			out[i] = it.Title
		}
		return out
	}

	items, err := client.Annotations(context.Background(), "file:///a.go", 0)
	require.NoError(t, err)
	require.Equal(t, []string{"run"}, titles(items))
	require.Zero(t, srv.resolves.Load())

	items, err = client.Annotations(context.Background(), "file:///a.go", 1)
	require.NoError(t, err)
	require.Equal(t, []string{"0 refs", "run"}, titles(items))
	require.EqualValues(t, 1, srv.resolves.Load())

	items, err = client.Annotations(context.Background(), "file:///a.go", 3)
	require.NoError(t, err)
	require.Equal(t, []string{"0 refs", "1 refs", "run"}, titles(items))
	require.Equal(t, lens.ShowReferencesCommand, items[1].Action.ID)
	require.Equal(t, "test.run", items[2].Action.ID)
	require.EqualValues(t, 3, srv.resolves.Load())
}

func TestSymbolsHierarchical(t *testing.T) {
	client, _ := startFake(t, `[{"name":"T","kind":23,"range":{"start":{"line":1,"character":0},"end":{"line":5,"character":1}},
		"children":[{"name":"M","kind":6,"range":{"start":{"line":3,"character":0},"end":{"line":4,"character":1}}}]}]`)
	syms, err := client.Symbols(context.Background(), "file:///a.go")
	require.NoError(t, err)
	require.Len(t, syms, 1)
	require.Equal(t, lens.SymbolKindStruct, syms[0].Kind)
	require.Len(t, syms[0].Children, 1)
	require.Equal(t, lens.SymbolKindMethod, syms[0].Children[0].Kind)
	require.True(t, lens.ClassifyHeaders(syms).Has(3))
}

func TestSymbolsFlat(t *testing.T) {
	client, _ := startFake(t, `[{"name":"F","kind":12,"location":{"uri":"file:///a.go","range":{"start":{"line":7,"character":0},"end":{"line":9,"character":1}}}}]`)
	syms, err := client.Symbols(context.Background(), "file:///a.go")
	require.NoError(t, err)
	require.Equal(t, []int{7}, lens.ClassifyHeaders(syms).Lines())
}

func TestSymbolsNull(t *testing.T) {
	client, _ := startFake(t, `null`)
	syms, err := client.Symbols(context.Background(), "file:///a.go")
	require.NoError(t, err)
	require.Empty(t, syms)
}

func TestExecuteCommand(t *testing.T) {
	client, _ := startFake(t, `[]`)
	raw, err := client.ExecuteCommand(context.Background(), "gopls.tidy", "file:///go.mod")
	require.NoError(t, err)
	require.JSONEq(t, `{"command":"gopls.tidy","arguments":["file:///go.mod"]}`, string(raw))
}
