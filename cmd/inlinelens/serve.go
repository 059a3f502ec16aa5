package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"inlinelens/internal/jsonrpc"
	"inlinelens/internal/lsp"
	"inlinelens/internal/trace"
	"inlinelens/internal/upstream"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Proxy a language server and render its codelenses inline",
	Long: `serve speaks LSP to the editor over stdio (or websocket with --listen)
and starts one upstream language server per editor connection`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("upstream", "", `language server command, e.g. "gopls serve"`)
	serveCmd.Flags().String("listen", "", "accept websocket editors on this address instead of stdio")
	serveCmd.Flags().String("cwd", "", "working directory of the upstream server")
	serveCmd.Flags().Int("line-cache", 0, "line tables kept in memory (0 for the default)")
	_ = serveCmd.MarkFlagRequired("upstream")
}

func runServe(cmd *cobra.Command, _ []string) error {
	upstreamCmd, err := cmd.Flags().GetString("upstream")
	if err != nil {
		return err
	}
	command := strings.Fields(upstreamCmd)
	if len(command) == 0 {
		return errors.New("--upstream must name a command")
	}
	listen, err := cmd.Flags().GetString("listen")
	if err != nil {
		return err
	}
	dir, err := cmd.Flags().GetString("cwd")
	if err != nil {
		return err
	}
	lineCache, err := cmd.Flags().GetInt("line-cache")
	if err != nil {
		return err
	}

	base, err := loadSettings(dir)
	if err != nil {
		return err
	}
	logf := func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, "inlinelens: "+format+"\n", args...)
	}

	session := func(ctx context.Context, stream jsonrpc.Stream) error {
		up, err := upstream.Start(ctx, upstream.Options{Command: command, Dir: dir, Logf: logf})
		if err != nil {
			return err
		}
		defer func() {
			if err := up.Close(); err != nil && !errors.Is(err, jsonrpc.ErrClosed) {
				logf("close upstream: %v", err)
			}
		}()
		server := lsp.NewServer(stream, lsp.ServerOptions{
			Upstream:      up,
			Base:          base,
			LineCacheSize: lineCache,
			Logf:          logf,
		})
		return server.Run(ctx)
	}

	ctx := cmd.Context()
	trace.Point(ctx, trace.ScopeServer, "serve", strings.Join(command, " "))
	if listen != "" {
		logf("listening on ws://%s%s", listen, lsp.WebsocketPath)
		return lsp.ServeWebsocket(ctx, listen, session, logf)
	}

	err = session(ctx, jsonrpc.NewHeaderStream(os.Stdin, os.Stdout, nil))
	switch {
	case err == nil, errors.Is(err, lsp.ErrExit):
		return nil
	case errors.Is(err, lsp.ErrExitWithoutShutdown):
		return fmt.Errorf("lsp exit without shutdown")
	default:
		return err
	}
}
