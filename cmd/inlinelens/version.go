package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"inlinelens/internal/lsp"
	"inlinelens/internal/version"
)

// versionPayload is what `version --format json` prints. Build metadata
// fields are present only when requested.
type versionPayload struct {
	Tool      string   `json:"tool"`
	Version   string   `json:"version"`
	Go        string   `json:"go"`
	Protocol  []string `json:"protocol"`
	Commit    string   `json:"commit,omitempty"`
	Message   string   `json:"message,omitempty"`
	BuildDate string   `json:"build_date,omitempty"`
}

var (
	versionFormat string
	versionFull   bool
)

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "pretty", "output format (pretty|json)")
	versionCmd.Flags().BoolVar(&versionFull, "full", false, "include commit and build date")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show inlinelens build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := currentVersion(versionFull)
		switch strings.ToLower(versionFormat) {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		case "pretty":
			printVersion(cmd.OutOrStdout(), p)
			return nil
		}
		return fmt.Errorf("unsupported format %q (must be pretty or json)", versionFormat)
	},
}

func currentVersion(full bool) versionPayload {
	p := versionPayload{
		Tool:    "inlinelens",
		Version: orDefault(version.Version, "dev"),
		Go:      runtime.Version(),
		Protocol: []string{
			lsp.MethodSetDecorations,
			lsp.MethodDidChangeVisibleEditors,
			lsp.MethodExecuteClientCommand,
		},
	}
	if full {
		p.Commit = orDefault(version.GitCommit, "unknown")
		p.Message = orDefault(version.GitMessage, "unknown")
		p.BuildDate = orDefault(version.BuildDate, "unknown")
	}
	return p
}

func printVersion(out io.Writer, p versionPayload) {
	fmt.Fprintf(out, "inlinelens %s (%s)\n", version.Pretty(), p.Go)
	dim := color.New(color.Faint)
	for _, m := range p.Protocol {
		dim.Fprintf(out, "  speaks %s\n", m)
	}
	if p.Commit != "" {
		fmt.Fprintf(out, "commit:  %s\n", p.Commit)
		fmt.Fprintf(out, "message: %s\n", p.Message)
		fmt.Fprintf(out, "built:   %s\n", p.BuildDate)
	}
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
