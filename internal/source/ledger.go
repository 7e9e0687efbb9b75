// Package source keeps the text of every line fed to the compiler so that
// diagnostics can reprint the offending line with a caret under the column.
package source

import (
	"fmt"
	"io"
	"strings"

	"github.com/kolkov/pyxc/internal/token"
)

// Ledger is an append-only store of source lines.
//
// The lexer records every character it consumes. A newline moves the line
// under construction into the completed store; the line under construction
// is visible through LineText before it is terminated. Lines are never
// rewritten, so a Ledger can be shared by successive compilation units of
// one session and line numbers keep increasing across them.
type Ledger struct {
	lines   []string
	current strings.Builder
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Record appends one consumed character. '\n' terminates the current line.
func (l *Ledger) Record(ch byte) {
	if ch == '\n' {
		l.lines = append(l.lines, l.current.String())
		l.current.Reset()
		return
	}
	l.current.WriteByte(ch)
}

// Terminate completes a partial final line, if any.
func (l *Ledger) Terminate() {
	if l.current.Len() > 0 {
		l.Record('\n')
	}
}

// Lines returns the number of completed lines.
func (l *Ledger) Lines() int {
	return len(l.lines)
}

// NextLine returns the number the next recorded character will be placed
// on. Lexers started mid-session begin counting there.
func (l *Ledger) NextLine() int {
	return len(l.lines) + 1
}

// LineText returns line n (1-based). The line still being assembled is
// reported as well; anything past it is not found.
func (l *Ledger) LineText(n int) (string, bool) {
	switch {
	case n <= 0:
		return "", false
	case n <= len(l.lines):
		return l.lines[n-1], true
	case n == len(l.lines)+1:
		return l.current.String(), true
	}
	return "", false
}

// Report writes msg anchored at pos, followed by the source line and a
// caret under pos.Column. Nothing but the message is written when the line
// is unknown.
func (l *Ledger) Report(w io.Writer, pos token.Position, msg string) {
	if pos.IsValid() {
		fmt.Fprintf(w, "%s: %s\n", pos, msg)
	} else {
		fmt.Fprintf(w, "%s\n", msg)
	}
	text, ok := l.LineText(pos.Line)
	if !ok {
		return
	}
	fmt.Fprintf(w, "%s\n%s^~~~\n", text, caretPad(text, pos.Column))
}

// caretPad returns the padding placing a caret under column col. Tabs in
// the line are kept so the caret lines up in a terminal.
func caretPad(text string, col int) string {
	var sb strings.Builder
	for i := 0; i < col-1; i++ {
		if i < len(text) && text[i] == '\t' {
			sb.WriteByte('\t')
			continue
		}
		sb.WriteByte(' ')
	}
	return sb.String()
}
