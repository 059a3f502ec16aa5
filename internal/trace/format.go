package trace

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Format selects how events are written.
type Format uint8

const (
	FormatAuto   Format = iota // text, or NDJSON for .ndjson and .jsonl paths
	FormatText
	FormatNDJSON
)

// FormatEvent renders ev as one newline-terminated line.
func FormatEvent(ev *Event, format Format) []byte {
	if format == FormatNDJSON {
		return formatNDJSON(ev)
	}
	return formatText(ev)
}

type jsonEvent struct {
	Time    string            `json:"time"`
	Seq     uint64            `json:"seq"`
	Kind    string            `json:"kind"`
	Scope   string            `json:"scope"`
	Span    uint64            `json:"span,omitempty"`
	Parent  uint64            `json:"parent,omitempty"`
	Name    string            `json:"name"`
	URI     string            `json:"uri,omitempty"`
	Version *int              `json:"version,omitempty"`
	Detail  string            `json:"detail,omitempty"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

func formatNDJSON(ev *Event) []byte {
	j := jsonEvent{
		Time:   ev.Time.UTC().Format(time.RFC3339Nano),
		Seq:    ev.Seq,
		Kind:   ev.Kind.String(),
		Scope:  ev.Scope.String(),
		Span:   ev.SpanID,
		Parent: ev.ParentID,
		Name:   ev.Name,
		URI:    ev.URI,
		Detail: ev.Detail,
		Attrs:  ev.Attrs,
	}
	if ev.HasVersion {
		v := ev.Version
		j.Version = &v
	}
	data, err := json.Marshal(j)
	if err != nil {
		return []byte(`{"kind":"error","name":"trace","detail":` + strconv.Quote(err.Error()) + "}\n")
	}
	return append(data, '\n')
}

var kindMarks = map[Kind]string{
	KindSpanBegin: "→",
	KindSpanEnd:   "←",
	KindPoint:     "•",
	KindError:     "!",
}

// formatText renders
//
//	15:04:05.000 document   ← pipeline file:///a.go@3 (ok) dur=1ms groups=2
func formatText(ev *Event) []byte {
	var b strings.Builder
	b.WriteString(ev.Time.Format("15:04:05.000"))
	b.WriteByte(' ')
	scope := ev.Scope.String()
	b.WriteString(scope)
	if pad := len("document") - len(scope); pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	b.WriteByte(' ')
	if mark, ok := kindMarks[ev.Kind]; ok {
		b.WriteString(mark)
		b.WriteByte(' ')
	}
	b.WriteString(ev.Name)
	if ev.URI != "" {
		b.WriteByte(' ')
		b.WriteString(ev.URI)
		if ev.HasVersion {
			b.WriteByte('@')
			b.WriteString(strconv.Itoa(ev.Version))
		}
	}
	if ev.Detail != "" {
		b.WriteString(" (")
		b.WriteString(ev.Detail)
		b.WriteByte(')')
	}
	keys := make([]string, 0, len(ev.Attrs))
	for k := range ev.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(ev.Attrs[k])
	}
	b.WriteByte('\n')
	return []byte(b.String())
}
