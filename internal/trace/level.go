package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	LevelOff    Level = iota // no tracing
	LevelError               // errors only
	LevelPhase               // server lifecycle and refresh cycles
	LevelDetail              // per-document work
	LevelDebug               // everything
)

var levelNames = []string{"off", "error", "phase", "detail", "debug"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel accepts a level name, case-insensitively.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level %q (expected %s)", s, strings.Join(levelNames, "|"))
}

// maxScope is the finest scope a level lets through.
func (l Level) maxScope() Scope {
	switch l {
	case LevelPhase:
		return ScopeRefresh
	case LevelDetail:
		return ScopeDocument
	case LevelDebug:
		return ScopeItem
	}
	return 0
}

// ShouldEmit reports whether an event of kind at scope passes l. Errors pass
// every level but off.
func (l Level) ShouldEmit(scope Scope, kind Kind) bool {
	if l == LevelOff {
		return false
	}
	return kind == KindError || scope <= l.maxScope()
}
