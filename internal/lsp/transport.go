package lsp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"inlinelens/internal/jsonrpc"
)

// WebsocketPath is where ServeWebsocket accepts editor connections.
const WebsocketPath = "/lsp"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1 << 14,
	WriteBufferSize: 1 << 14,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// SessionFunc serves one editor connection until it ends.
type SessionFunc func(ctx context.Context, stream jsonrpc.Stream) error

// ServeWebsocket accepts editor connections on addr, one message per frame,
// and runs session for each until ctx is done.
func ServeWebsocket(ctx context.Context, addr string, session SessionFunc, logf func(format string, args ...any)) error {
	mux := http.NewServeMux()
	mux.HandleFunc(WebsocketPath, func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf("websocket upgrade: %v", err)
			return
		}
		stream := jsonrpc.NewWebsocketStream(ws)
		defer stream.Close()
		sessCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := session(sessCtx, stream); err != nil && !errors.Is(err, ErrExit) {
			logf("session %s: %v", r.RemoteAddr, err)
		}
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
