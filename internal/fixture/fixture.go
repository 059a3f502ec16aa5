// Package fixture stores a captured document together with the annotations
// and outline its language server reported, so the render pipeline can be
// replayed offline.
package fixture

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"inlinelens/internal/docs"
	"inlinelens/internal/lens"
)

const schemaVersion uint16 = 1

// ErrUnknownURI is returned when a fixture is asked about another document.
var ErrUnknownURI = errors.New("fixture: unknown document")

// Fixture is a captured document and the host data reported for it.
type Fixture struct {
	Schema      uint16        `json:"schema" msgpack:"schema"`
	URI         string        `json:"uri" msgpack:"uri"`
	Version     int           `json:"version" msgpack:"version"`
	Text        string        `json:"text" msgpack:"text"`
	Items       []lens.Item   `json:"annotations" msgpack:"annotations"`
	Outline     []lens.Symbol `json:"symbols,omitempty" msgpack:"symbols,omitempty"`
	SymbolError string        `json:"symbolError,omitempty" msgpack:"symbolError,omitempty"`
}

// Document returns a snapshot of the captured text.
func (f *Fixture) Document() (*docs.Snapshot, error) {
	return docs.NewSnapshot(f.URI, f.Version, f.Text)
}

// Annotations returns the first maxItems captured items, or all of them when
// maxItems is negative.
func (f *Fixture) Annotations(_ context.Context, uri string, maxItems int) ([]lens.Item, error) {
	if uri != f.URI {
		return nil, fmt.Errorf("%w: %s", ErrUnknownURI, uri)
	}
	items := f.Items
	if maxItems >= 0 && maxItems < len(items) {
		items = items[:maxItems]
	}
	out := make([]lens.Item, len(items))
	copy(out, items)
	return out, nil
}

// Symbols returns the captured outline. A recorded symbol error is replayed.
func (f *Fixture) Symbols(_ context.Context, uri string) ([]lens.Symbol, error) {
	if uri != f.URI {
		return nil, fmt.Errorf("%w: %s", ErrUnknownURI, uri)
	}
	if f.SymbolError != "" {
		return nil, errors.New(f.SymbolError)
	}
	return f.Outline, nil
}

// CurrentVersion reports the captured version. Fixtures never change.
func (f *Fixture) CurrentVersion(uri string) (int, bool) {
	if uri != f.URI {
		return 0, false
	}
	return f.Version, true
}

// Capture fetches the annotations and outline of doc from the given sources
// using the same two-phase fetch the renderer uses.
func Capture(ctx context.Context, doc *docs.Snapshot, src lens.AnnotationSource, symbols lens.SymbolSource) (*Fixture, error) {
	agg := lens.NewAggregator(src, nil, nil)
	groups, err := agg.Aggregate(ctx, doc)
	if err != nil {
		return nil, err
	}
	f := &Fixture{
		Schema:  schemaVersion,
		URI:     doc.URI(),
		Version: doc.Version(),
		Text:    doc.Text(),
		Items:   []lens.Item{},
	}
	for _, grp := range groups.All() {
		f.Items = append(f.Items, grp.Items...)
	}
	f.Outline, err = symbols.Symbols(ctx, doc.URI())
	if err != nil {
		f.SymbolError = err.Error()
	}
	return f, nil
}

func isMsgpack(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp", ".msgpack":
		return true
	default:
		return false
	}
}

// Load reads a fixture. Files ending in .mp or .msgpack are MessagePack,
// everything else is JSON.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f Fixture
	if isMsgpack(path) {
		dec := msgpack.NewDecoder(bytes.NewReader(data))
		dec.UseLooseInterfaceDecoding(true)
		err = dec.Decode(&f)
	} else {
		err = json.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	if f.Schema > schemaVersion {
		return nil, fmt.Errorf("fixture %s: schema %d is newer than %d", path, f.Schema, schemaVersion)
	}
	if f.URI == "" {
		return nil, fmt.Errorf("fixture %s: missing uri", path)
	}
	return &f, nil
}

// Save writes f to path, replacing any existing file atomically.
func Save(path string, f *Fixture) (err error) {
	if f.Schema == 0 {
		f.Schema = schemaVersion
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "fixture-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if isMsgpack(path) {
		enc := msgpack.NewEncoder(tmp)
		enc.SetSortMapKeys(true)
		err = enc.Encode(f)
	} else {
		enc := json.NewEncoder(tmp)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		err = enc.Encode(f)
	}
	if err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
