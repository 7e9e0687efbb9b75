package ast

import "github.com/kolkov/pyxc/internal/token"

// AnonName is the name given to the function wrapping a top-level
// statement. Such a function is run once and discarded.
const AnonName = "__anon_expr"

// -----------------------------------------------------------------------------
// Type syntax
// -----------------------------------------------------------------------------

// NamedType is a builtin type, an alias or a struct name.
// Examples: i32, double, Point
type NamedType struct {
	BaseType
	Name string
}

// PointerType is ptr[Elem].
type PointerType struct {
	BaseType
	Elem TypeExpr
}

// ArrayType is array[Elem, Len].
type ArrayType struct {
	BaseType
	Elem TypeExpr
	Len  int64
}

// -----------------------------------------------------------------------------
// Prototypes
// -----------------------------------------------------------------------------

// ProtoKind distinguishes plain functions from operator definitions.
type ProtoKind uint8

const (
	ProtoFunction ProtoKind = iota
	ProtoUnary
	ProtoBinary
)

// DefaultPrecedence is the precedence of a binary operator declared
// without an explicit one.
const DefaultPrecedence = 30

// Param is one declared parameter.
type Param struct {
	Name string
	Pos  token.Position
	Type TypeExpr
}

// Prototype is a function signature. For operator definitions Name is
// "unary" or "binary" followed by the operator symbol.
type Prototype struct {
	StartPos   token.Position
	EndPos     token.Position
	Name       string
	NamePos    token.Position
	Params     []*Param
	Result     TypeExpr
	Kind       ProtoKind
	Operator   string // symbol for ProtoUnary and ProtoBinary
	Precedence int    // ProtoBinary only
}

func (p *Prototype) Pos() token.Position { return p.StartPos }
func (p *Prototype) End() token.Position { return p.EndPos }

// IsOperator reports whether the prototype defines an operator.
func (p *Prototype) IsOperator() bool {
	return p.Kind != ProtoFunction
}

// OperatorName returns the function name under which an operator symbol
// is registered.
func OperatorName(kind ProtoKind, symbol string) string {
	switch kind {
	case ProtoUnary:
		return "unary" + symbol
	case ProtoBinary:
		return "binary" + symbol
	}
	return symbol
}

// -----------------------------------------------------------------------------
// Top-level forms
// -----------------------------------------------------------------------------

// FuncDecl is a function definition. Top-level statements are wrapped in
// a FuncDecl named AnonName with Anon set.
type FuncDecl struct {
	BaseDecl
	Proto *Prototype
	Body  *BlockStmt
	Anon  bool
}

// ExternDecl declares a function implemented elsewhere.
// Example: extern def putchard(c: f64) -> f64
type ExternDecl struct {
	BaseDecl
	Proto *Prototype
}

// TypeAliasDecl is type Name = Target.
type TypeAliasDecl struct {
	BaseDecl
	Name    string
	NamePos token.Position
	Target  TypeExpr
}

// FieldDecl is one field of a struct declaration.
type FieldDecl struct {
	Name string
	Pos  token.Position
	Type TypeExpr
}

// StructDecl declares a struct type with an ordered field list.
type StructDecl struct {
	BaseDecl
	Name    string
	NamePos token.Position
	Fields  []*FieldDecl
}

// Program is the sequence of top-level forms of one source text.
type Program struct {
	// Source file name (for error messages)
	Filename string

	// Top-level forms in source order.
	Decls []Decl

	StartPos token.Position
	EndPos   token.Position
}

// Pos returns the position of the first token in the program.
func (p *Program) Pos() token.Position { return p.StartPos }

// End returns the position after the last token in the program.
func (p *Program) End() token.Position { return p.EndPos }

// -----------------------------------------------------------------------------
// Compile-time checks
// -----------------------------------------------------------------------------

var (
	_ Node     = (*Program)(nil)
	_ Node     = (*Prototype)(nil)
	_ Decl     = (*FuncDecl)(nil)
	_ Decl     = (*ExternDecl)(nil)
	_ Decl     = (*TypeAliasDecl)(nil)
	_ Decl     = (*StructDecl)(nil)
	_ TypeExpr = (*NamedType)(nil)
	_ TypeExpr = (*PointerType)(nil)
	_ TypeExpr = (*ArrayType)(nil)
)
