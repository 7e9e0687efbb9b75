package ast

import (
	"github.com/kolkov/pyxc/internal/token"
	"github.com/kolkov/pyxc/internal/types"
)

// -----------------------------------------------------------------------------
// Leaves
// -----------------------------------------------------------------------------

// NumberLit represents a numeric literal. A literal without a decimal
// point is an integer.
// Examples: 42, 2.5, 3., .5
type NumberLit struct {
	BaseExpr
	Raw     string  // Original source text
	IsFloat bool    // true if the literal has a decimal point
	Int     int64   // Value of an integer literal
	Float   float64 // Value of a floating-point literal
}

// Ident represents a variable reference.
type Ident struct {
	BaseExpr
	Name string
}

// -----------------------------------------------------------------------------
// Operations
// -----------------------------------------------------------------------------

// UnaryExpr represents a prefix operation. Op is the operator spelling,
// either a builtin (-, +, !, ~, not) or a user-defined unary operator.
// Examples: -x, not done, ~mask, !flag
type UnaryExpr struct {
	BaseExpr
	Op   string
	X    Expr
	User bool // resolved by the checker: Op names a user-defined operator
}

// BinaryExpr represents an infix operation. Op is the operator spelling,
// either a builtin or a user-defined binary operator.
// Examples: a + b, x << 2, p and q, a |> b
type BinaryExpr struct {
	BaseExpr
	X     Expr
	Op    string
	OpPos token.Position
	Y     Expr
	User  bool // resolved by the checker: Op names a user-defined operator
}

// GroupExpr represents a parenthesized expression.
// Used to preserve explicit grouping in the source.
type GroupExpr struct {
	BaseExpr
	X Expr
}

// -----------------------------------------------------------------------------
// Calls and addresses
// -----------------------------------------------------------------------------

// CallExpr represents a call of a named function.
// Example: fib(n - 1)
type CallExpr struct {
	BaseExpr
	Name    string
	NamePos token.Position
	Args    []Expr
}

// AddrExpr represents addr(x), the address of a storage location.
type AddrExpr struct {
	BaseExpr
	X Expr
}

// IndexExpr represents element access through a pointer or array.
// Example: buf[i]
type IndexExpr struct {
	BaseExpr
	X     Expr
	Index Expr
}

// MemberExpr represents struct field access. X may be a struct location
// or a pointer to a struct.
// Example: p.x
type MemberExpr struct {
	BaseExpr
	X        Expr
	Field    string
	FieldPos token.Position
}

// -----------------------------------------------------------------------------
// Structured expressions
// -----------------------------------------------------------------------------

// IfExpr represents a conditional expression.
// Example: if n < 2: n else: fib(n - 1) + fib(n - 2)
type IfExpr struct {
	BaseExpr
	Cond Expr
	Then Expr
	Else Expr
}

// ForExpr represents a loop evaluated for its effect; its value is 0.
// Example: for i in range(0, n): putchard(42)
type ForExpr struct {
	BaseExpr
	Var     string
	VarPos  token.Position
	Start   Expr
	Limit   Expr
	Step    Expr // nil means 1
	Body    Expr
	VarType *types.Type // resolved by the checker
}

// Binding is one name introduced by a var expression.
type Binding struct {
	Name string
	Pos  token.Position
	Init Expr        // nil means zero
	Type *types.Type // resolved by the checker
}

// VarExpr introduces local variables visible only in Body.
// Example: var a = 1, b = 2 in a + b
type VarExpr struct {
	BaseExpr
	Vars []*Binding
	Body Expr
}

// -----------------------------------------------------------------------------
// Compile-time checks
// -----------------------------------------------------------------------------

// Ensure all expression types implement Expr interface.
var (
	_ Expr = (*NumberLit)(nil)
	_ Expr = (*Ident)(nil)
	_ Expr = (*UnaryExpr)(nil)
	_ Expr = (*BinaryExpr)(nil)
	_ Expr = (*GroupExpr)(nil)
	_ Expr = (*CallExpr)(nil)
	_ Expr = (*AddrExpr)(nil)
	_ Expr = (*IndexExpr)(nil)
	_ Expr = (*MemberExpr)(nil)
	_ Expr = (*IfExpr)(nil)
	_ Expr = (*ForExpr)(nil)
	_ Expr = (*VarExpr)(nil)
)
