package lens

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeLink(t *testing.T, link string) (title, command string, args []any) {
	t.Helper()
	require.True(t, strings.HasPrefix(link, "["), "link %q", link)
	closeTitle := strings.Index(link, "](command:")
	require.Positive(t, closeTitle, "link %q", link)
	title = link[1:closeTitle]
	target := strings.TrimSuffix(link[closeTitle+len("](command:"):], ")")
	command, query, ok := strings.Cut(target, "?")
	require.True(t, ok, "link %q has no query", link)
	raw, err := url.PathUnescape(query)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(raw), &args))
	return title, command, args
}

func TestEncodeActionWithoutAction(t *testing.T) {
	require.Equal(t, "", EncodeAction(Item{Title: "3 references"}))
}

func TestEncodeActionDirectLink(t *testing.T) {
	it := titled(rng(0, 0, 0, 1), "run test", "gopls.run_tests", "file:///a.go", float64(3))
	link := EncodeAction(it)
	require.Equal(t, "[run test](command:gopls.run_tests?%5B%22file%3A%2F%2F%2Fa.go%22%2C3%5D)", link)

	title, command, args := decodeLink(t, link)
	require.Equal(t, "run test", title)
	require.Equal(t, "gopls.run_tests", command)
	require.Equal(t, []any{"file:///a.go", float64(3)}, args)
}

func TestEncodeActionNilArgumentsBecomeEmptyArray(t *testing.T) {
	it := Item{Action: &Action{ID: "x.y"}}
	require.Equal(t, "["+DefaultTitle+"](command:x.y?%5B%5D)", EncodeAction(it))
}

func TestEncodeActionShowReferencesUsesWrapper(t *testing.T) {
	pos := map[string]any{"line": float64(4), "character": float64(2)}
	it := titled(rng(4, 2, 4, 8), "2 references", ShowReferencesCommand, "file:///a.go", pos, []any{})
	link := EncodeAction(it)

	title, command, args := decodeLink(t, link)
	require.Equal(t, "2 references", title)
	require.Equal(t, WrapperCommand, command)
	require.Equal(t, []any{ShowReferencesCommand, "file:///a.go", pos, []any{}}, args)
}

func TestEncodeActionKeepsHTMLCharacters(t *testing.T) {
	it := titled(rng(0, 0, 0, 1), "t", "a.b", "<x&y>")
	_, _, args := decodeLink(t, EncodeAction(it))
	require.Equal(t, []any{"<x&y>"}, args)
}

func TestEncodeURIComponentUnreserved(t *testing.T) {
	require.Equal(t, "AZaz09-_.!~*'()", encodeURIComponent("AZaz09-_.!~*'()"))
	require.Equal(t, "%20%2B%26%3D%3F%23%E2%A4%B5", encodeURIComponent(" +&=?#⤵"))
}
