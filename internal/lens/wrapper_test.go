package lens

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func pos(line, char int) map[string]any {
	return map[string]any{"line": float64(line), "character": float64(char)}
}

func wrapperArgs(locations ...any) []any {
	return []any{
		ShowReferencesCommand,
		map[string]any{"scheme": "file", "path": "/src/a.go"},
		pos(3, 5),
		locations,
	}
}

func TestReconstructRangeForms(t *testing.T) {
	uri := map[string]any{"scheme": "file", "path": "/src/b.go"}
	forms := []any{
		map[string]any{"uri": uri, "range": []any{pos(1, 2), pos(1, 7)}},
		map[string]any{"uri": uri, "range": map[string]any{"start": pos(1, 2), "end": pos(1, 7)}},
		map[string]any{"uri": uri, "range": map[string]any{"_start": pos(1, 2), "_end": pos(1, 7)}},
	}
	want := Location{URI: "file:///src/b.go", Range: rng(1, 2, 1, 7)}
	for i, form := range forms {
		got, err := ReconstructShowReferences(wrapperArgs(form))
		require.NoError(t, err, "form %d", i)
		require.Equal(t, "file:///src/a.go", got.URI)
		require.Equal(t, Position{Line: 3, Character: 5}, got.Position)
		require.Equal(t, []Location{want}, got.Locations, "form %d", i)
	}
}

func TestReconstructUnknownRangeFormNamesIndex(t *testing.T) {
	good := map[string]any{"uri": "file:///b.go", "range": []any{pos(0, 0), pos(0, 1)}}
	bad := map[string]any{"uri": "file:///b.go", "range": map[string]any{"from": pos(0, 0), "to": pos(0, 1)}}

	_, err := ReconstructShowReferences(wrapperArgs(good, good, bad))
	var rfe *RangeFormatError
	require.True(t, errors.As(err, &rfe))
	require.Equal(t, 2, rfe.Index)
	require.Contains(t, err.Error(), "location 2")
}

func TestReconstructMissingArguments(t *testing.T) {
	_, err := ReconstructShowReferences([]any{ShowReferencesCommand})
	require.Error(t, err)
}

func TestWrapperForwardsTypedArguments(t *testing.T) {
	exec := &recordingExecutor{}
	w := NewWrapper(exec, func(string, ...any) {})
	loc := map[string]any{"uri": "file:///b.go", "range": []any{pos(2, 0), pos(2, 4)}}

	_, err := w.Run(context.Background(), wrapperArgs(loc))
	require.NoError(t, err)
	require.Len(t, exec.calls, 1)
	require.Equal(t, ShowReferencesCommand, exec.calls[0].command)
	require.Equal(t, []any{
		"file:///src/a.go",
		Position{Line: 3, Character: 5},
		[]Location{{URI: "file:///b.go", Range: rng(2, 0, 2, 4)}},
	}, exec.calls[0].args)
}

func TestWrapperAbortsOnMalformedLocation(t *testing.T) {
	exec := &recordingExecutor{}
	var logged []string
	w := NewWrapper(exec, func(format string, args ...any) {
		logged = append(logged, fmt.Sprintf(format, args...))
	})
	bad := map[string]any{"uri": "file:///b.go", "range": "nowhere"}

	result, err := w.Run(context.Background(), wrapperArgs(bad))
	require.NoError(t, err)
	require.Nil(t, result)
	require.Empty(t, exec.calls)
	require.Len(t, logged, 1)
	require.Contains(t, logged[0], "location 0")
}
