package token

import "fmt"

// Position is a location in pyxc source. Lines keep counting across the
// units of one session, so a position is only meaningful together with
// the ledger that recorded the text.
type Position struct {
	Filename string
	Line     int // 1-based
	Column   int // 1-based byte column
	Offset   int // 0-based byte offset into the unit's text
}

// String returns "file:line:col", or "line:col" without a file name.
func (p Position) String() string {
	if p.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// IsValid reports whether p refers to a source line.
func (p Position) IsValid() bool {
	return p.Line > 0
}

// Shift returns the position n bytes further along the same line.
func (p Position) Shift(n int) Position {
	p.Column += n
	p.Offset += n
	return p
}

// NoPos is the zero Position, used when no location is known.
var NoPos = Position{}
