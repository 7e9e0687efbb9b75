package parser

import "fmt"

// Bounds for user-declared binary precedence.
const (
	MinPrecedence = 1
	MaxPrecedence = 100
)

// builtinBinary holds the precedence of every builtin binary operator.
// Higher binds tighter; all are left-associative.
var builtinBinary = map[string]int{
	"or":  5,
	"and": 6,
	"|":   7,
	"^":   8,
	"&":   9,
	"==":  10,
	"!=":  10,
	"<":   12,
	">":   12,
	"<=":  12,
	">=":  12,
	"<<":  15,
	">>":  15,
	"+":   20,
	"-":   20,
	"*":   40,
	"/":   40,
	"%":   40,
}

var builtinUnary = map[string]bool{
	"-":   true,
	"+":   true,
	"!":   true,
	"~":   true,
	"not": true,
}

// OpTable is the live operator table consulted while parsing. Operator
// definitions add entries as soon as their prototype is parsed, so later
// forms of the same unit (or session) parse with the new operators.
type OpTable struct {
	binary map[string]int
	unary  map[string]bool
}

// NewOpTable returns a table holding only the builtin operators.
func NewOpTable() *OpTable {
	t := &OpTable{
		binary: make(map[string]int, len(builtinBinary)),
		unary:  make(map[string]bool),
	}
	for op, prec := range builtinBinary {
		t.binary[op] = prec
	}
	for op := range builtinUnary {
		t.unary[op] = true
	}
	return t
}

// Clone returns an independent copy of the table.
func (t *OpTable) Clone() *OpTable {
	c := &OpTable{
		binary: make(map[string]int, len(t.binary)),
		unary:  make(map[string]bool, len(t.unary)),
	}
	for op, prec := range t.binary {
		c.binary[op] = prec
	}
	for op := range t.unary {
		c.unary[op] = true
	}
	return c
}

// Precedence returns the precedence of binary operator op.
func (t *OpTable) Precedence(op string) (int, bool) {
	prec, ok := t.binary[op]
	return prec, ok
}

// IsUnary reports whether op is a prefix operator.
func (t *OpTable) IsUnary(op string) bool {
	return t.unary[op]
}

// IsBuiltinBinary reports whether op is one of the builtin binary operators.
func IsBuiltinBinary(op string) bool {
	_, ok := builtinBinary[op]
	return ok
}

// IsBuiltinUnary reports whether op is one of the builtin prefix operators.
func IsBuiltinUnary(op string) bool {
	return builtinUnary[op]
}

// DefineBinary registers a user binary operator.
func (t *OpTable) DefineBinary(op string, prec int) error {
	if IsBuiltinBinary(op) {
		return fmt.Errorf("cannot redefine builtin binary operator %q", op)
	}
	if prec < MinPrecedence || prec > MaxPrecedence {
		return fmt.Errorf("precedence %d out of range [%d, %d]", prec, MinPrecedence, MaxPrecedence)
	}
	t.binary[op] = prec
	return nil
}

// DefineUnary registers a user prefix operator.
func (t *OpTable) DefineUnary(op string) error {
	if IsBuiltinUnary(op) {
		return fmt.Errorf("cannot redefine builtin unary operator %q", op)
	}
	t.unary[op] = true
	return nil
}

// RemoveBinary drops a user binary operator. Builtins are never removed.
func (t *OpTable) RemoveBinary(op string) {
	if !IsBuiltinBinary(op) {
		delete(t.binary, op)
	}
}

// RemoveUnary drops a user prefix operator. Builtins are never removed.
func (t *OpTable) RemoveUnary(op string) {
	if !IsBuiltinUnary(op) {
		delete(t.unary, op)
	}
}
