// Package semantic checks pyxc declarations before they are lowered.
//
// The checker performs:
//   - Type resolution: builtin types, aliases (resolved lazily, cycles
//     rejected), pointers, arrays and structs
//   - Scope analysis: parameters, block-scoped declarations, for and var
//     bindings, with inner bindings shadowing outer ones
//   - Type checking: operands, calls, indexing, field access, addr()
//   - Control checks: break and continue outside loops, return values
//
// Every checked expression is annotated with its type. Declarations share
// an Env, so a session can check one top-level form at a time.
package semantic

import (
	"fmt"
	"strings"

	"github.com/kolkov/pyxc/internal/token"
)

// Error represents a semantic analysis error with source location.
type Error struct {
	Pos     token.Position
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// Warning represents a semantic warning (non-fatal issue).
type Warning struct {
	Pos     token.Position
	Message string
}

// String returns the warning as a formatted string.
func (w *Warning) String() string {
	return fmt.Sprintf("%s: warning: %s", w.Pos, w.Message)
}

// ErrorList is a collection of semantic errors.
type ErrorList []*Error

// Add appends an error to the list.
func (el *ErrorList) Add(pos token.Position, format string, args ...any) {
	*el = append(*el, &Error{
		Pos:     pos,
		Message: fmt.Sprintf(format, args...),
	})
}

// Err returns an error if the list is non-empty, nil otherwise.
func (el ErrorList) Err() error {
	if len(el) == 0 {
		return nil
	}
	return el
}

// Error implements the error interface for ErrorList.
func (el ErrorList) Error() string {
	switch len(el) {
	case 0:
		return "no errors"
	case 1:
		return el[0].Error()
	default:
		var sb strings.Builder
		sb.WriteString(el[0].Error())
		for _, e := range el[1:] {
			sb.WriteByte('\n')
			sb.WriteString(e.Error())
		}
		return sb.String()
	}
}

// WarningList is a collection of semantic warnings.
type WarningList []*Warning

// Add appends a warning to the list.
func (wl *WarningList) Add(pos token.Position, format string, args ...any) {
	*wl = append(*wl, &Warning{
		Pos:     pos,
		Message: fmt.Sprintf(format, args...),
	})
}

// Common error messages as constants for consistency.
const (
	errBreakOutsideLoop    = "break statement must be inside a loop"
	errContinueOutsideLoop = "continue statement must be inside a loop"
	errUnknownVar          = "unknown variable name %s"
	errUnknownFunc         = "unknown function %s"
	errUnknownType         = "unknown type %s"
	errUnknownField        = "unknown field %s on struct %s (fields: %s)"
	errAliasCycle          = "alias cycle detected at type %s"
	errRedefineBuiltinType = "cannot redefine builtin type %s"
	errStructRedefined     = "struct %s is already defined"
	errTypeRedeclared      = "type %s is already declared"
	errStructContainsSelf  = "struct %s cannot contain itself"
	errVoidElement         = "array element type cannot be void"
	errVoidField           = "field %s cannot have type void"
	errVoidVariable        = "variable %s cannot have type void"
	errVoidParam           = "parameter %s cannot have type void"
	errAggregateParam      = "parameter %s must have a scalar type, not %s"
	errAggregateResult     = "function %s cannot return %s"
	errFuncRedefined       = "function %s is already defined"
	errConflictingDecl     = "conflicting declaration of %s"
	errOperatorRedefined   = "operator %s is already defined"
	errArgCount            = "function %s expects %d arguments, got %d"
	errArgType             = "cannot use %s as %s in argument %d of %s"
	errVoidValue           = "%s is used as a value but has no value"
	errNotScalar           = "value of type %s cannot be used here"
	errMismatched          = "mismatched types %s and %s for operator %s"
	errIntegerOperands     = "operator %s requires integer operands, got %s and %s"
	errNumericOperand      = "operator %s requires a numeric operand, got %s"
	errIntegerOperand      = "operator %s requires an integer operand, got %s"
	errUnknownOperator     = "unknown operator %s"
	errNotAddressable      = "addr() requires an addressable expression"
	errNotIndexable        = "cannot index value of type %s"
	errVoidIndex           = "cannot index through ptr[void]"
	errIndexNotInteger     = "index must be an integer, got %s"
	errNotStruct           = "member access requires a struct, got %s"
	errAssignAggregate     = "cannot assign to value of type %s"
	errAssignType          = "cannot assign %s to %s"
	errInitAggregate       = "variable %s of type %s cannot have an initializer"
	errRedeclared          = "%s is already declared in this block at %s"
	errVoidReturnValue     = "void function cannot return a value"
	errMissingReturnValue  = "missing return value in function returning %s"
	errReturnType          = "cannot return %s from function returning %s"
	errPrintType           = "cannot print value of type %s"
	errMatchSubject        = "match subject must be an integer, got %s"
	errCaseValue           = "case value must be an integer, got %s"
	errRangeType           = "range bounds must be numeric, got %s"
	errDuplicateCase       = "duplicate case value %s"
	errCaseRange           = "case value %s overflows %s"
	errBranchTypes         = "branches have mismatched types %s and %s"
)

// Common warning messages.
const (
	warnUnreachable = "unreachable code"
)
