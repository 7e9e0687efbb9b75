package pyxc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kolkov/pyxc/internal/compiler"
	"github.com/kolkov/pyxc/internal/parser"
	"github.com/kolkov/pyxc/internal/semantic"
	"github.com/kolkov/pyxc/internal/ssa"
	"github.com/kolkov/pyxc/internal/token"
	"github.com/kolkov/pyxc/internal/vm"
)

// Execution failures reported inside a RuntimeError.
var (
	ErrDivideByZero  = ssa.ErrDivideByZero
	ErrStepLimit     = vm.ErrStepLimit
	ErrStackOverflow = vm.ErrStackOverflow
	ErrCallDepth     = vm.ErrCallDepth
	ErrBadAddress    = vm.ErrBadAddress
)

// ParseError represents a lexical or syntax error in pyxc source code.
type ParseError struct {
	Line    int    // 1-based line number
	Column  int    // 1-based column number
	Message string // Error description
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Column, e.Message)
}

// CompileError represents a type error or a failure to lower a unit.
// Line is zero when the error has no source location.
type CompileError struct {
	Line    int
	Column  int
	Message string
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("compile error at %d:%d: %s", e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("compile error: %s", e.Message)
}

// RuntimeError represents a failure while executing a program. Err is
// one of the Err variables of this package when the failure is one the
// interpreter detects.
type RuntimeError struct {
	Func    string // function executing when the error occurred
	Message string
	Err     error
}

func (e *RuntimeError) Error() string {
	if e.Func != "" {
		return fmt.Sprintf("runtime error in %s: %s", e.Func, e.Message)
	}
	return fmt.Sprintf("runtime error: %s", e.Message)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// ExitError reports a non-zero status returned by main.
type ExitError struct {
	Code int // Exit status code
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit %d", e.Code)
}

// IsExitError reports whether err is an ExitError and returns the exit code.
// Returns (code, true) if err is an ExitError, or (0, false) otherwise.
func IsExitError(err error) (int, bool) {
	var e *ExitError
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// ErrorList holds every diagnostic of a compilation in source order. Each
// element is a *ParseError or a *CompileError, so errors.As finds the
// first of either kind.
type ErrorList []error

func (el ErrorList) Error() string {
	switch len(el) {
	case 0:
		return "no errors"
	case 1:
		return el[0].Error()
	}
	msgs := make([]string, len(el))
	for i, e := range el {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

func (el ErrorList) Unwrap() []error {
	return el
}

// runtimeError converts an execution failure to the public type.
func runtimeError(err error) error {
	var exit *vm.ExitError
	if errors.As(err, &exit) {
		return &ExitError{Code: exit.Code}
	}
	var re *vm.RuntimeError
	if errors.As(err, &re) {
		return &RuntimeError{Func: re.Func, Message: re.Err.Error(), Err: re.Err}
	}
	return &RuntimeError{Message: err.Error(), Err: err}
}

// diagnostic is one internal error with its location, before conversion.
type diagnostic struct {
	err error // public form
	pos token.Position
	msg string
}

// diagnostics flattens the error returned by a pipeline stage.
func diagnostics(err error) []diagnostic {
	var (
		pl parser.ErrorList
		sl semantic.ErrorList
		ce *compiler.CompileError
	)
	var out []diagnostic
	switch {
	case errors.As(err, &pl):
		for _, e := range pl {
			out = append(out, diagnostic{
				err: &ParseError{Line: e.Pos.Line, Column: e.Pos.Column, Message: e.Message},
				pos: e.Pos,
				msg: e.Message,
			})
		}
	case errors.As(err, &sl):
		for _, e := range sl {
			out = append(out, diagnostic{
				err: &CompileError{Line: e.Pos.Line, Column: e.Pos.Column, Message: e.Message},
				pos: e.Pos,
				msg: e.Message,
			})
		}
	case errors.As(err, &ce):
		out = append(out, diagnostic{
			err: &CompileError{Line: ce.Pos.Line, Column: ce.Pos.Column, Message: ce.Message},
			pos: ce.Pos,
			msg: ce.Message,
		})
	default:
		out = append(out, diagnostic{err: &CompileError{Message: err.Error()}, msg: err.Error()})
	}
	return out
}
