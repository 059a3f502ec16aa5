package docs

import (
	"unicode/utf8"

	"fortio.org/safecast"

	"inlinelens/internal/lens"
)

// ContentChange is one incremental edit; a nil Range replaces the whole text.
type ContentChange struct {
	Range *lens.Range `json:"range,omitempty"`
	Text  string      `json:"text"`
}

// ApplyChanges applies edits in order and returns the resulting text.
func ApplyChanges(text string, changes []ContentChange) string {
	for _, change := range changes {
		if change.Range == nil {
			text = change.Text
			continue
		}
		start := OffsetFor(text, change.Range.Start)
		end := OffsetFor(text, change.Range.End)
		if end < start {
			end = start
		}
		text = text[:start] + change.Text + text[end:]
	}
	return text
}

// OffsetFor converts a UTF-16 position to a byte offset in text, clamping
// positions past the end of a line or of the text.
func OffsetFor(text string, pos lens.Position) int {
	if pos.Line < 0 || pos.Character < 0 {
		return 0
	}
	line := 0
	i := 0
	for i < len(text) && line < pos.Line {
		if text[i] == '\n' {
			line++
		}
		i++
	}
	if line < pos.Line {
		return len(text)
	}
	units := 0
	for i < len(text) && units < pos.Character {
		if text[i] == '\n' || text[i] == '\r' {
			break
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		need := utf16Len(r)
		if units+need > pos.Character {
			break
		}
		units += need
		i += size
	}
	return i
}

// lineStarts returns the byte offset of every line start.
func lineStarts(text string) ([]uint32, error) {
	starts := []uint32{0}
	for i := 0; i < len(text); i++ {
		if text[i] != '\n' {
			continue
		}
		off, err := safecast.Conv[uint32](i + 1)
		if err != nil {
			return nil, err
		}
		starts = append(starts, off)
	}
	return starts, nil
}

// utf16Width counts UTF-16 code units in s.
func utf16Width(s string) int {
	n := 0
	for _, r := range s {
		n += utf16Len(r)
	}
	return n
}

func utf16Len(r rune) int {
	if r > 0xFFFF {
		return 2
	}
	return 1
}
