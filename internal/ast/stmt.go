package ast

import (
	"github.com/kolkov/pyxc/internal/token"
	"github.com/kolkov/pyxc/internal/types"
)

// -----------------------------------------------------------------------------
// Basic statements
// -----------------------------------------------------------------------------

// ExprStmt represents an expression used as a statement.
type ExprStmt struct {
	BaseStmt
	X Expr
}

// PrintStmt represents print(a, b, ...). Arguments are written separated
// by spaces and followed by a newline.
type PrintStmt struct {
	BaseStmt
	Args []Expr
}

// ReturnStmt represents a return statement.
type ReturnStmt struct {
	BaseStmt
	Value Expr // nil for a bare return
}

// BlockStmt represents a suite: either one inline statement after a colon
// or an indented block.
type BlockStmt struct {
	BaseStmt
	Stmts  []Stmt
	Inline bool
}

// DeclStmt declares a typed local variable.
// Examples: x: i32 = 5, buf: array[i8, 16]
type DeclStmt struct {
	BaseStmt
	Name    string
	NamePos token.Position
	Type    TypeExpr
	Value   Expr        // nil means zero
	VarType *types.Type // resolved by the checker
}

// AssignStmt stores a value into an existing location.
// Examples: x = x + 1, p[i] = 0, pt.x = 3
type AssignStmt struct {
	BaseStmt
	Target Expr
	Value  Expr
}

// -----------------------------------------------------------------------------
// Branching
// -----------------------------------------------------------------------------

// IfStmt represents an if/elif/else chain. An elif is an *IfStmt in Else.
type IfStmt struct {
	BaseStmt
	Cond Expr
	Then *BlockStmt
	Else Stmt // nil, *BlockStmt, or *IfStmt for elif

	// Ty is set by the checker when every branch ends in an expression
	// statement; the chain then yields the joined value.
	Ty *types.Type
}

// MatchStmt selects the first case whose values contain the subject.
// There is no fallthrough between cases.
type MatchStmt struct {
	BaseStmt
	Subject Expr
	Cases   []*CaseClause
}

// CaseClause is one arm of a match. A nil Values list is the default
// arm written case _.
type CaseClause struct {
	StartPos token.Position
	EndPos   token.Position
	Values   []Expr
	Body     *BlockStmt
}

func (c *CaseClause) Pos() token.Position { return c.StartPos }
func (c *CaseClause) End() token.Position { return c.EndPos }

// IsDefault reports whether the clause is the default arm.
func (c *CaseClause) IsDefault() bool {
	return c.Values == nil
}

// -----------------------------------------------------------------------------
// Loops
// -----------------------------------------------------------------------------

// ForStmt represents for v in range(start, end[, step]): body.
// The loop variable is scoped to the loop.
type ForStmt struct {
	BaseStmt
	Var     string
	VarPos  token.Position
	Start   Expr
	Limit   Expr
	Step    Expr // nil means 1
	Body    *BlockStmt
	VarType *types.Type // resolved by the checker
}

// WhileStmt represents a while loop.
type WhileStmt struct {
	BaseStmt
	Cond Expr
	Body *BlockStmt
}

// DoWhileStmt represents do: body while cond. The body runs at least once.
type DoWhileStmt struct {
	BaseStmt
	Body *BlockStmt
	Cond Expr
}

// BreakStmt exits the innermost loop.
type BreakStmt struct {
	BaseStmt
}

// ContinueStmt proceeds with the next iteration of the innermost loop.
type ContinueStmt struct {
	BaseStmt
}

// -----------------------------------------------------------------------------
// Compile-time checks
// -----------------------------------------------------------------------------

var (
	_ Stmt = (*ExprStmt)(nil)
	_ Stmt = (*PrintStmt)(nil)
	_ Stmt = (*ReturnStmt)(nil)
	_ Stmt = (*BlockStmt)(nil)
	_ Stmt = (*DeclStmt)(nil)
	_ Stmt = (*AssignStmt)(nil)
	_ Stmt = (*IfStmt)(nil)
	_ Stmt = (*MatchStmt)(nil)
	_ Stmt = (*ForStmt)(nil)
	_ Stmt = (*WhileStmt)(nil)
	_ Stmt = (*DoWhileStmt)(nil)
	_ Stmt = (*BreakStmt)(nil)
	_ Stmt = (*ContinueStmt)(nil)
	_ Node = (*CaseClause)(nil)
)
