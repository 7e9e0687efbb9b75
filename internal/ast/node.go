// Package ast defines the abstract syntax tree for pyxc programs.
//
// The node families are sealed: every concrete node implements exactly one
// of the marker interfaces below, and consumers switch over the concrete
// types exhaustively.
//
// Node hierarchy:
//
//	Node (interface)
//	├── Expr (interface) - expressions that produce values
//	│   ├── NumberLit, Ident - leaves
//	│   ├── UnaryExpr, BinaryExpr, GroupExpr - operations
//	│   ├── CallExpr, AddrExpr - calls and addresses
//	│   ├── IndexExpr, MemberExpr - element and field access
//	│   └── IfExpr, ForExpr, VarExpr - structured expressions
//	├── Stmt (interface) - statements that perform actions
//	│   ├── ExprStmt, PrintStmt, ReturnStmt, BlockStmt - basic
//	│   ├── DeclStmt, AssignStmt - storage
//	│   ├── IfStmt, MatchStmt - branching
//	│   ├── ForStmt, WhileStmt, DoWhileStmt - loops
//	│   └── BreakStmt, ContinueStmt - loop control
//	├── TypeExpr (interface) - type syntax
//	│   └── NamedType, PointerType, ArrayType
//	└── Decl (interface) - top-level forms
//	    └── FuncDecl, ExternDecl, TypeAliasDecl, StructDecl
package ast

import (
	"github.com/kolkov/pyxc/internal/token"
	"github.com/kolkov/pyxc/internal/types"
)

// Node is the interface implemented by all AST nodes.
type Node interface {
	// Pos returns the position of the first character belonging to this node.
	Pos() token.Position

	// End returns the position of the first character immediately after this node.
	End() token.Position
}

// Expr is the interface for all expression nodes.
// The type checker records the resolved type of every expression with
// SetType; code generation reads it back with Type.
type Expr interface {
	Node
	Type() *types.Type
	SetType(*types.Type)
	exprNode() // marker method to prevent external implementations
}

// Stmt is the interface for all statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// TypeExpr is the interface for type syntax such as ptr[i8].
type TypeExpr interface {
	Node
	typeNode()
}

// Decl is the interface for top-level forms. Each one is compiled as a
// unit of its own.
type Decl interface {
	Node
	declNode()
}

// BaseExpr provides common fields for all expression nodes.
type BaseExpr struct {
	StartPos token.Position // Position of first token
	EndPos   token.Position // Position after last token
	Ty       *types.Type    // Set by the type checker
}

func (b *BaseExpr) Pos() token.Position   { return b.StartPos }
func (b *BaseExpr) End() token.Position   { return b.EndPos }
func (b *BaseExpr) Type() *types.Type     { return b.Ty }
func (b *BaseExpr) SetType(t *types.Type) { b.Ty = t }
func (b *BaseExpr) exprNode()             {}

// BaseStmt provides common fields for all statement nodes.
type BaseStmt struct {
	StartPos token.Position
	EndPos   token.Position
}

func (b *BaseStmt) Pos() token.Position { return b.StartPos }
func (b *BaseStmt) End() token.Position { return b.EndPos }
func (b *BaseStmt) stmtNode()           {}

// BaseType provides common fields for type syntax nodes.
type BaseType struct {
	StartPos token.Position
	EndPos   token.Position
}

func (b *BaseType) Pos() token.Position { return b.StartPos }
func (b *BaseType) End() token.Position { return b.EndPos }
func (b *BaseType) typeNode()           {}

// BaseDecl provides common fields for declaration nodes.
type BaseDecl struct {
	StartPos token.Position
	EndPos   token.Position
}

func (b *BaseDecl) Pos() token.Position { return b.StartPos }
func (b *BaseDecl) End() token.Position { return b.EndPos }
func (b *BaseDecl) declNode()           {}

// IsLValue returns true if the expression denotes a storage location:
// a variable, an element p[n], or a field s.f of a location or pointer.
func IsLValue(e Expr) bool {
	switch n := e.(type) {
	case *Ident, *IndexExpr:
		return true
	case *MemberExpr:
		return true
	case *GroupExpr:
		return IsLValue(n.X)
	default:
		return false
	}
}

// Unparen strips any enclosing parentheses.
func Unparen(e Expr) Expr {
	for {
		g, ok := e.(*GroupExpr)
		if !ok {
			return e
		}
		e = g.X
	}
}

// -----------------------------------------------------------------------------
// Constructor helpers
// -----------------------------------------------------------------------------

// MakeBaseExpr creates a BaseExpr with the given positions.
func MakeBaseExpr(start, end token.Position) BaseExpr {
	return BaseExpr{StartPos: start, EndPos: end}
}

// MakeBaseStmt creates a BaseStmt with the given positions.
func MakeBaseStmt(start, end token.Position) BaseStmt {
	return BaseStmt{StartPos: start, EndPos: end}
}

// MakeBaseType creates a BaseType with the given positions.
func MakeBaseType(start, end token.Position) BaseType {
	return BaseType{StartPos: start, EndPos: end}
}

// MakeBaseDecl creates a BaseDecl with the given positions.
func MakeBaseDecl(start, end token.Position) BaseDecl {
	return BaseDecl{StartPos: start, EndPos: end}
}
