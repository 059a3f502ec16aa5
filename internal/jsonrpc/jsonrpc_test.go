package jsonrpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestFramingMultipleMessages(t *testing.T) {
	var buf bytes.Buffer
	msg1 := []byte(`{"jsonrpc":"2.0","method":"one"}`)
	msg2 := []byte(`{"jsonrpc":"2.0","method":"two"}`)

	if err := writeMessage(&buf, msg1); err != nil {
		t.Fatalf("write message 1: %v", err)
	}
	if err := writeMessage(&buf, msg2); err != nil {
		t.Fatalf("write message 2: %v", err)
	}

	reader := bufio.NewReader(bytes.NewReader(buf.Bytes()))
	got1, err := readMessage(reader)
	if err != nil {
		t.Fatalf("read message 1: %v", err)
	}
	got2, err := readMessage(reader)
	if err != nil {
		t.Fatalf("read message 2: %v", err)
	}
	if string(got1) != string(msg1) {
		t.Fatalf("unexpected message 1: %s", got1)
	}
	if string(got2) != string(msg2) {
		t.Fatalf("unexpected message 2: %s", got2)
	}
}

func TestFramingMissingLength(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("X-Other: 1\r\n\r\n{}"))
	if _, err := readMessage(reader); err == nil {
		t.Fatal("expected error for missing Content-Length")
	}
}

// pipePair returns two connected header-framed connections.
func pipePair() (*Conn, *Conn) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()
	a := NewConn(NewHeaderStream(ar, aw, multiCloser{ar, aw}))
	b := NewConn(NewHeaderStream(br, bw, multiCloser{br, bw}))
	return a, b
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	for _, c := range m {
		_ = c.Close()
	}
	return nil
}

func TestCallAndReply(t *testing.T) {
	client, server := pipePair()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer client.Close()
	defer server.Close()

	go func() {
		_ = server.Run(ctx, func(_ context.Context, msg *Message) error {
			switch msg.Method {
			case "echo":
				var params map[string]string
				_ = json.Unmarshal(msg.Params, &params)
				return server.Reply(msg.ID, params["text"])
			default:
				return server.ReplyError(msg.ID, NewError(CodeMethodNotFound, "method not found"))
			}
		})
	}()
	go func() { _ = client.Run(ctx, func(context.Context, *Message) error { return nil }) }()

	var got string
	if err := client.Call(ctx, "echo", map[string]string{"text": "hi"}, &got); err != nil {
		t.Fatalf("call: %v", err)
	}
	if got != "hi" {
		t.Fatalf("unexpected result %q", got)
	}

	err := client.Call(ctx, "missing", nil, nil)
	var rpcErr *Error
	if !errors.As(err, &rpcErr) || rpcErr.Code != CodeMethodNotFound {
		t.Fatalf("expected method-not-found, got %v", err)
	}
}

func TestCallCancellationNotifiesPeer(t *testing.T) {
	client, server := pipePair()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer client.Close()
	defer server.Close()

	cancelled := make(chan json.RawMessage, 1)
	go func() {
		_ = server.Run(ctx, func(_ context.Context, msg *Message) error {
			if msg.Method == "$/cancelRequest" {
				cancelled <- msg.Params
			}
			return nil
		})
	}()
	go func() { _ = client.Run(ctx, func(context.Context, *Message) error { return nil }) }()

	callCtx, stop := context.WithTimeout(ctx, 20*time.Millisecond)
	defer stop()
	if err := client.Call(callCtx, "slow", nil, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	select {
	case params := <-cancelled:
		if !strings.Contains(string(params), `"id":1`) {
			t.Fatalf("unexpected cancel params %s", params)
		}
	case <-time.After(time.Second):
		t.Fatal("peer never saw $/cancelRequest")
	}
}

func TestCallAfterCloseFails(t *testing.T) {
	client, _ := pipePair()
	done := make(chan struct{})
	go func() {
		_ = client.Run(context.Background(), func(context.Context, *Message) error { return nil })
		close(done)
	}()
	_ = client.Close()
	<-done
	if err := client.Call(context.Background(), "x", nil, nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestWebsocketStream(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewConn(NewWebsocketStream(ws))
		defer conn.Close()
		_ = conn.Run(r.Context(), func(_ context.Context, msg *Message) error {
			return conn.Reply(msg.ID, msg.Method)
		})
	}))
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	client := NewConn(NewWebsocketStream(ws))
	defer client.Close()
	go func() { _ = client.Run(context.Background(), func(context.Context, *Message) error { return nil }) }()

	var got string
	if err := client.Call(context.Background(), "ping", nil, &got); err != nil {
		t.Fatalf("call: %v", err)
	}
	if got != "ping" {
		t.Fatalf("unexpected result %q", got)
	}
}
