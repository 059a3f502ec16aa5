package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	KindError // kept at every level but off
)

var kindNames = [...]string{
	KindSpanBegin: "begin",
	KindSpanEnd:   "end",
	KindPoint:     "point",
	KindError:     "error",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// Scope is the granularity of an event. Coarser scopes have lower values.
type Scope uint8

const (
	ScopeServer   Scope = iota + 1 // process and connection lifecycle
	ScopeRefresh                   // one refresh cycle over the visible editors
	ScopeDocument                  // pipeline work for one document
	ScopeItem                      // individual annotations and hints
)

var scopeNames = [...]string{
	ScopeServer:   "server",
	ScopeRefresh:  "refresh",
	ScopeDocument: "document",
	ScopeItem:     "item",
}

func (s Scope) String() string {
	if int(s) < len(scopeNames) && scopeNames[s] != "" {
		return scopeNames[s]
	}
	return "unknown"
}

// Event is one trace record. URI and Version attribute it to a document;
// Version is meaningful only when HasVersion is set.
type Event struct {
	Time       time.Time
	Seq        uint64
	Kind       Kind
	Scope      Scope
	SpanID     uint64
	ParentID   uint64
	Name       string
	URI        string
	Version    int
	HasVersion bool
	Detail     string
	Attrs      map[string]string
}
