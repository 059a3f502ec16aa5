package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"inlinelens/internal/fixture"
	"inlinelens/internal/lens"
	"inlinelens/internal/version"
)

var ansi = regexp.MustCompile("\x1b\\[[0-9;]*m")

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return ansi.ReplaceAllString(out.String(), ""), err
}

func writeFixture(t *testing.T) string {
	t.Helper()
	rng := lens.Range{Start: lens.Position{Line: 2, Character: 5}, End: lens.Position{Line: 2, Character: 9}}
	fx := &fixture.Fixture{
		URI:     "file:///tmp/main.go",
		Version: 1,
		Text:    "package main\n\nfunc main() {\n}\n",
		Items: []lens.Item{
			{Range: rng, Title: "2 references", Action: &lens.Action{ID: "editor.action.showReferences"}},
			{Range: rng, Title: "run test"},
		},
		Outline: []lens.Symbol{{
			Name:  "main",
			Kind:  lens.SymbolKindFunction,
			Range: lens.Range{Start: lens.Position{Line: 2}, End: lens.Position{Line: 3, Character: 1}},
		}},
	}
	path := filepath.Join(t.TempDir(), "main.mp")
	require.NoError(t, fixture.Save(path, fx))
	return path
}

func TestShowPlainDecorations(t *testing.T) {
	path := writeFixture(t)
	out, err := execute(t, "show", "--plain", "--line-numbers=false", "--tooltips=false", "--provider", "Decoration", path)
	require.NoError(t, err)
	require.Equal(t, "package main\n\nfunc main() { 2 references | run test\n}\n", out)
}

func TestShowPlainInlayHints(t *testing.T) {
	path := writeFixture(t)
	out, err := execute(t, "show", "--plain", "--line-numbers=false", "--tooltips=false", "--provider", "Inlay Hints", path)
	require.NoError(t, err)
	require.Equal(t, "package main\n\nfunc main() { 2 references | run test\n}\n", out)
}

func TestShowRejectsUnknownProvider(t *testing.T) {
	path := writeFixture(t)
	_, err := execute(t, "show", "--plain", "--provider", "Sidebar", path)
	require.Error(t, err)
}

func TestVersionJSON(t *testing.T) {
	out, err := execute(t, "version", "--format", "json")
	require.NoError(t, err)
	var payload versionPayload
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	require.Equal(t, "inlinelens", payload.Tool)
	require.NotEmpty(t, payload.Version)
	require.Contains(t, payload.Protocol, "inlineCodelens/setDecorations")
	require.Empty(t, payload.Commit)
}

func TestVersionPrettyFull(t *testing.T) {
	out, err := execute(t, "version", "--format", "pretty", "--full")
	versionFull = false
	require.NoError(t, err)
	require.Contains(t, out, "inlinelens "+version.Version)
	require.Contains(t, out, "commit:  unknown")
}

func TestVersionRejectsUnknownFormat(t *testing.T) {
	_, err := execute(t, "version", "--format", "yaml")
	require.ErrorContains(t, err, "unsupported format")
	versionFormat = "pretty"
}
