package lens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
)

// Location is a range inside a document.
type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

// ShowReferencesArgs are the typed arguments of the built-in references peek.
type ShowReferencesArgs struct {
	Command   string
	URI       string
	Position  Position
	Locations []Location
}

// Forward returns the argument list passed on to Command.
func (a ShowReferencesArgs) Forward() []any {
	return []any{a.URI, a.Position, a.Locations}
}

// RangeFormatError reports a location whose range matched none of the known shapes.
type RangeFormatError struct {
	Index int
	Value any
}

func (e *RangeFormatError) Error() string {
	return fmt.Sprintf("unexpected range format in location %d", e.Index)
}

var errMissingArguments = errors.New("show references: expected command, uri, position and locations")

// ReconstructShowReferences rebuilds typed show-references arguments from
// their plain-data form: [command, uri, position, locations].
func ReconstructShowReferences(args []any) (ShowReferencesArgs, error) {
	if len(args) < 4 {
		return ShowReferencesArgs{}, errMissingArguments
	}
	command, ok := args[0].(string)
	if !ok || command == "" {
		return ShowReferencesArgs{}, fmt.Errorf("show references: command identifier is %T, want string", args[0])
	}
	uri, err := reconstructURI(args[1])
	if err != nil {
		return ShowReferencesArgs{}, fmt.Errorf("show references uri: %w", err)
	}
	pos, err := reconstructPosition(args[2])
	if err != nil {
		return ShowReferencesArgs{}, fmt.Errorf("show references position: %w", err)
	}
	rawLocs, ok := args[3].([]any)
	if !ok {
		return ShowReferencesArgs{}, fmt.Errorf("show references: locations is %T, want array", args[3])
	}
	locs := make([]Location, 0, len(rawLocs))
	for i, raw := range rawLocs {
		loc, err := reconstructLocation(i, raw)
		if err != nil {
			return ShowReferencesArgs{}, err
		}
		locs = append(locs, loc)
	}
	return ShowReferencesArgs{Command: command, URI: uri, Position: pos, Locations: locs}, nil
}

func reconstructLocation(index int, raw any) (Location, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Location{}, &RangeFormatError{Index: index, Value: raw}
	}
	uri, err := reconstructURI(obj["uri"])
	if err != nil {
		return Location{}, fmt.Errorf("location %d uri: %w", index, err)
	}
	start, end, ok := rangeEnds(obj["range"])
	if !ok {
		return Location{}, &RangeFormatError{Index: index, Value: obj["range"]}
	}
	startPos, err := reconstructPosition(start)
	if err != nil {
		return Location{}, fmt.Errorf("location %d start: %w", index, err)
	}
	endPos, err := reconstructPosition(end)
	if err != nil {
		return Location{}, fmt.Errorf("location %d end: %w", index, err)
	}
	return Location{URI: uri, Range: Range{Start: startPos, End: endPos}}, nil
}

// rangeEnds tries the array-pair form first, then start/end or _start/_end objects.
func rangeEnds(raw any) (start, end any, ok bool) {
	if pair, isArray := raw.([]any); isArray && len(pair) == 2 {
		return pair[0], pair[1], true
	}
	obj, isObject := raw.(map[string]any)
	if !isObject {
		return nil, nil, false
	}
	start = firstPresent(obj, "start", "_start")
	end = firstPresent(obj, "end", "_end")
	if start == nil || end == nil {
		return nil, nil, false
	}
	return start, end, true
}

func firstPresent(obj map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func reconstructPosition(raw any) (Position, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Position{}, fmt.Errorf("position is %T, want object", raw)
	}
	line, ok := toInt(firstPresent(obj, "line", "_line"))
	if !ok {
		return Position{}, errors.New("position has no numeric line")
	}
	char, ok := toInt(firstPresent(obj, "character", "_character"))
	if !ok {
		return Position{}, errors.New("position has no numeric character")
	}
	return Position{Line: line, Character: char}, nil
}

// reconstructURI accepts a URI string or serialized URI components.
func reconstructURI(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		if v == "" {
			return "", errors.New("empty uri")
		}
		return v, nil
	case map[string]any:
		if ext, ok := v["external"].(string); ok && ext != "" {
			return ext, nil
		}
		scheme, _ := v["scheme"].(string)
		if scheme == "" {
			return "", errors.New("uri components without scheme")
		}
		u := url.URL{Scheme: scheme}
		u.Host, _ = v["authority"].(string)
		u.Path, _ = v["path"].(string)
		u.RawQuery, _ = v["query"].(string)
		u.Fragment, _ = v["fragment"].(string)
		return u.String(), nil
	default:
		return "", fmt.Errorf("uri is %T, want string or object", raw)
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}

// Wrapper implements WrapperCommand on top of a host command executor.
type Wrapper struct {
	exec CommandExecutor
	logf func(format string, args ...any)
}

// NewWrapper returns a Wrapper forwarding to exec. logf may be nil.
func NewWrapper(exec CommandExecutor, logf func(format string, args ...any)) *Wrapper {
	if logf == nil {
		logf = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, "inlinelens: "+format+"\n", args...)
		}
	}
	return &Wrapper{exec: exec, logf: logf}
}

// Run reconstructs args and forwards the call. A reconstruction failure is
// logged and nothing is forwarded.
func (w *Wrapper) Run(ctx context.Context, args []any) (json.RawMessage, error) {
	typed, err := ReconstructShowReferences(args)
	if err != nil {
		w.logf("failed to reconstruct arguments for %s: %v", ShowReferencesCommand, err)
		return nil, nil
	}
	return w.exec.ExecuteCommand(ctx, typed.Command, typed.Forward()...)
}
