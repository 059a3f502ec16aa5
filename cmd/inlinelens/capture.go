package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"inlinelens/internal/docs"
	"inlinelens/internal/fixture"
	"inlinelens/internal/lsp"
	"inlinelens/internal/observ"
	"inlinelens/internal/upstream"
)

var captureCmd = &cobra.Command{
	Use:   "capture <file>",
	Short: "Record a file's codelenses and outline into a fixture",
	Long: `capture opens file in a language server, fetches its codelenses and
document symbols, and writes them next to the text so show can replay them.
A .mp output is written as MessagePack, anything else as JSON`,
	Args: cobra.ExactArgs(1),
	RunE: runCapture,
}

func init() {
	captureCmd.Flags().String("upstream", "", `language server command, e.g. "gopls serve"`)
	captureCmd.Flags().StringP("output", "o", "", "fixture path (default: <file>.lens.json)")
	captureCmd.Flags().String("language-id", "", "language id sent on open (default: from the extension)")
	captureCmd.Flags().Duration("settle", 0, "wait this long after opening before fetching")
	captureCmd.Flags().Duration("timeout", 30*time.Second, "give up after this long")
	captureCmd.Flags().Bool("timings", false, "print phase timings to stderr")
	_ = captureCmd.MarkFlagRequired("upstream")
}

func runCapture(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	upstreamCmd, _ := cmd.Flags().GetString("upstream")
	command := strings.Fields(upstreamCmd)
	if len(command) == 0 {
		return errors.New("--upstream must name a command")
	}
	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		out = path + ".lens.json"
	}
	languageID, _ := cmd.Flags().GetString("language-id")
	if languageID == "" {
		languageID = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	settle, _ := cmd.Flags().GetDuration("settle")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	timings, _ := cmd.Flags().GetBool("timings")

	ctx := cmd.Context()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	dir := filepath.Dir(path)
	uri := lsp.PathToURI(path)
	timer := observ.NewTimer()

	var up *upstream.Client
	err = timer.Track(ctx, "start", func(ctx context.Context) error {
		up, err = upstream.Start(ctx, upstream.Options{Command: command, Dir: dir})
		return err
	})
	if err != nil {
		return err
	}
	defer up.Close()

	if err := timer.Track(ctx, "initialize", func(ctx context.Context) error { return initializeUpstream(ctx, up, dir) }); err != nil {
		return err
	}
	err = timer.Track(ctx, "open", func(ctx context.Context) error {
		return openDocument(ctx, up, uri, languageID, string(text), settle)
	})
	if err != nil {
		return err
	}

	var fx *fixture.Fixture
	err = timer.Track(ctx, "capture", func(ctx context.Context) error {
		doc, err := docs.NewSnapshot(uri, 1, string(text))
		if err != nil {
			return err
		}
		fx, err = fixture.Capture(ctx, doc, up, up)
		return err
	})
	if err != nil {
		return err
	}
	if err := timer.Track(ctx, "save", func(context.Context) error { return fixture.Save(out, fx) }); err != nil {
		return err
	}
	_ = timer.Track(ctx, "shutdown", func(ctx context.Context) error {
		if err := up.Shutdown(ctx); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "inlinelens: shutdown upstream: %v\n", err)
			return err
		}
		return nil
	})

	summary := color.New(color.FgGreen, color.Bold)
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d annotations, %d symbols -> %s\n",
		summary.Sprint("captured"), len(fx.Items), len(fx.Outline), out)
	if fx.SymbolError != "" {
		color.New(color.FgYellow).Fprintf(cmd.ErrOrStderr(), "outline unavailable: %s\n", fx.SymbolError)
	}
	if timings {
		fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}
	return nil
}

func initializeUpstream(ctx context.Context, up *upstream.Client, dir string) error {
	params, err := json.Marshal(map[string]any{
		"processId": os.Getpid(),
		"rootUri":   lsp.PathToURI(dir),
		"workspaceFolders": []map[string]string{
			{"uri": lsp.PathToURI(dir), "name": filepath.Base(dir)},
		},
		"capabilities": map[string]any{
			"textDocument": map[string]any{
				"codeLens":       map[string]any{},
				"documentSymbol": map[string]any{"hierarchicalDocumentSymbolSupport": true},
			},
		},
	})
	if err != nil {
		return err
	}
	if _, err := up.Initialize(ctx, params); err != nil {
		return err
	}
	return up.Notify("initialized", json.RawMessage(`{}`))
}

func openDocument(ctx context.Context, up *upstream.Client, uri, languageID, text string, settle time.Duration) error {
	params, err := json.Marshal(map[string]any{
		"textDocument": map[string]any{
			"uri":        uri,
			"languageId": languageID,
			"version":    1,
			"text":       text,
		},
	})
	if err != nil {
		return err
	}
	if err := up.Notify("textDocument/didOpen", params); err != nil {
		return err
	}
	if settle <= 0 {
		return nil
	}
	select {
	case <-time.After(settle):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
