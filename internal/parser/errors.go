// Package parser builds pyxc syntax trees with recursive descent for
// statements and precedence climbing for expressions.
package parser

import (
	"fmt"
	"strings"

	"github.com/kolkov/pyxc/internal/token"
)

// ParseError is a syntax error, or a lexical error surfaced through the
// ILLEGAL token the lexer produced for it.
type ParseError struct {
	Pos     token.Position
	Message string
	Lexical bool
}

func (e *ParseError) Error() string {
	if !e.Pos.IsValid() {
		return e.Message
	}
	return e.Pos.String() + ": " + e.Message
}

// ErrorList collects the errors of the forms that failed to parse, at
// most one per form.
type ErrorList []*ParseError

// Add records a syntax error built from format and args.
func (el *ErrorList) Add(pos token.Position, format string, args ...any) {
	*el = append(*el, errorf(pos, format, args...))
}

// Err returns the list as an error, or nil when it is empty.
func (el ErrorList) Err() error {
	if len(el) > 0 {
		return el
	}
	return nil
}

// Error lists one error per line.
func (el ErrorList) Error() string {
	if len(el) == 0 {
		return "no errors"
	}
	lines := make([]string, len(el))
	for i, e := range el {
		lines[i] = e.Error()
	}
	return strings.Join(lines, "\n")
}

func errorf(pos token.Position, format string, args ...any) *ParseError {
	return &ParseError{Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// expectedError reports that the token described by got stands where the
// grammar requires want.
func expectedError(pos token.Position, want, got string) *ParseError {
	return errorf(pos, "expected %s, got %s", want, got)
}
