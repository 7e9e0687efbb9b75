package ast

import "fmt"

// ExprVisitor is implemented by passes that compute a result per
// expression kind. Adding an expression node adds a method here, so every
// pass that implements the interface stops compiling until it handles the
// new kind.
//
// Example usage for type checking:
//
//	type checker struct{}
//	func (c *checker) VisitNumberLit(n *NumberLit) *types.Type { return types.I64 }
//	// ... other methods
type ExprVisitor[T any] interface {
	VisitNumberLit(*NumberLit) T
	VisitIdent(*Ident) T
	VisitUnaryExpr(*UnaryExpr) T
	VisitBinaryExpr(*BinaryExpr) T
	VisitGroupExpr(*GroupExpr) T
	VisitCallExpr(*CallExpr) T
	VisitAddrExpr(*AddrExpr) T
	VisitIndexExpr(*IndexExpr) T
	VisitMemberExpr(*MemberExpr) T
	VisitIfExpr(*IfExpr) T
	VisitForExpr(*ForExpr) T
	VisitVarExpr(*VarExpr) T
}

// StmtVisitor is the statement counterpart of ExprVisitor.
type StmtVisitor[T any] interface {
	VisitExprStmt(*ExprStmt) T
	VisitPrintStmt(*PrintStmt) T
	VisitReturnStmt(*ReturnStmt) T
	VisitBlockStmt(*BlockStmt) T
	VisitDeclStmt(*DeclStmt) T
	VisitAssignStmt(*AssignStmt) T
	VisitIfStmt(*IfStmt) T
	VisitMatchStmt(*MatchStmt) T
	VisitForStmt(*ForStmt) T
	VisitWhileStmt(*WhileStmt) T
	VisitDoWhileStmt(*DoWhileStmt) T
	VisitBreakStmt(*BreakStmt) T
	VisitContinueStmt(*ContinueStmt) T
}

// AcceptExpr dispatches to the visitor method for the expression's kind.
func AcceptExpr[T any](e Expr, v ExprVisitor[T]) T {
	switch n := e.(type) {
	case *NumberLit:
		return v.VisitNumberLit(n)
	case *Ident:
		return v.VisitIdent(n)
	case *UnaryExpr:
		return v.VisitUnaryExpr(n)
	case *BinaryExpr:
		return v.VisitBinaryExpr(n)
	case *GroupExpr:
		return v.VisitGroupExpr(n)
	case *CallExpr:
		return v.VisitCallExpr(n)
	case *AddrExpr:
		return v.VisitAddrExpr(n)
	case *IndexExpr:
		return v.VisitIndexExpr(n)
	case *MemberExpr:
		return v.VisitMemberExpr(n)
	case *IfExpr:
		return v.VisitIfExpr(n)
	case *ForExpr:
		return v.VisitForExpr(n)
	case *VarExpr:
		return v.VisitVarExpr(n)
	}
	panic(fmt.Sprintf("ast: unexpected expression %T", e))
}

// AcceptStmt dispatches to the visitor method for the statement's kind.
func AcceptStmt[T any](s Stmt, v StmtVisitor[T]) T {
	switch n := s.(type) {
	case *ExprStmt:
		return v.VisitExprStmt(n)
	case *PrintStmt:
		return v.VisitPrintStmt(n)
	case *ReturnStmt:
		return v.VisitReturnStmt(n)
	case *BlockStmt:
		return v.VisitBlockStmt(n)
	case *DeclStmt:
		return v.VisitDeclStmt(n)
	case *AssignStmt:
		return v.VisitAssignStmt(n)
	case *IfStmt:
		return v.VisitIfStmt(n)
	case *MatchStmt:
		return v.VisitMatchStmt(n)
	case *ForStmt:
		return v.VisitForStmt(n)
	case *WhileStmt:
		return v.VisitWhileStmt(n)
	case *DoWhileStmt:
		return v.VisitDoWhileStmt(n)
	case *BreakStmt:
		return v.VisitBreakStmt(n)
	case *ContinueStmt:
		return v.VisitContinueStmt(n)
	}
	panic(fmt.Sprintf("ast: unexpected statement %T", s))
}

// Walk traverses an AST in depth-first order.
// For each node, it calls fn(node). If fn returns false,
// the children of that node are not visited.
//
// Example: Count all identifiers
//
//	count := 0
//	ast.Walk(fn, func(n ast.Node) bool {
//	    if _, ok := n.(*ast.Ident); ok {
//	        count++
//	    }
//	    return true // continue traversal
//	})
func Walk(node Node, fn func(Node) bool) {
	Inspect(node, func(n, _ Node) bool { return fn(n) })
}

// Inspect traverses an AST with parent tracking.
// For each node, it calls fn(node, parent). The parent is nil for the root node.
// If fn returns false, the children of that node are not visited.
func Inspect(node Node, fn func(node, parent Node) bool) {
	inspect(node, nil, fn)
}

func inspect(node, parent Node, fn func(node, parent Node) bool) {
	if isNil(node) || !fn(node, parent) {
		return
	}

	switch n := node.(type) {
	case *Program:
		for _, d := range n.Decls {
			inspect(d, n, fn)
		}

	// Declarations
	case *FuncDecl:
		inspect(n.Proto, n, fn)
		inspect(n.Body, n, fn)
	case *ExternDecl:
		inspect(n.Proto, n, fn)
	case *Prototype:
		for _, p := range n.Params {
			inspect(p.Type, n, fn)
		}
		inspect(n.Result, n, fn)
	case *TypeAliasDecl:
		inspect(n.Target, n, fn)
	case *StructDecl:
		for _, f := range n.Fields {
			inspect(f.Type, n, fn)
		}

	// Types
	case *NamedType:
		// no children
	case *PointerType:
		inspect(n.Elem, n, fn)
	case *ArrayType:
		inspect(n.Elem, n, fn)

	// Expressions
	case *NumberLit, *Ident:
		// no children
	case *UnaryExpr:
		inspect(n.X, n, fn)
	case *BinaryExpr:
		inspect(n.X, n, fn)
		inspect(n.Y, n, fn)
	case *GroupExpr:
		inspect(n.X, n, fn)
	case *CallExpr:
		for _, arg := range n.Args {
			inspect(arg, n, fn)
		}
	case *AddrExpr:
		inspect(n.X, n, fn)
	case *IndexExpr:
		inspect(n.X, n, fn)
		inspect(n.Index, n, fn)
	case *MemberExpr:
		inspect(n.X, n, fn)
	case *IfExpr:
		inspect(n.Cond, n, fn)
		inspect(n.Then, n, fn)
		inspect(n.Else, n, fn)
	case *ForExpr:
		inspect(n.Start, n, fn)
		inspect(n.Limit, n, fn)
		inspect(n.Step, n, fn)
		inspect(n.Body, n, fn)
	case *VarExpr:
		for _, b := range n.Vars {
			inspect(b.Init, n, fn)
		}
		inspect(n.Body, n, fn)

	// Statements
	case *ExprStmt:
		inspect(n.X, n, fn)
	case *PrintStmt:
		for _, arg := range n.Args {
			inspect(arg, n, fn)
		}
	case *ReturnStmt:
		inspect(n.Value, n, fn)
	case *BlockStmt:
		for _, s := range n.Stmts {
			inspect(s, n, fn)
		}
	case *DeclStmt:
		inspect(n.Type, n, fn)
		inspect(n.Value, n, fn)
	case *AssignStmt:
		inspect(n.Target, n, fn)
		inspect(n.Value, n, fn)
	case *IfStmt:
		inspect(n.Cond, n, fn)
		inspect(n.Then, n, fn)
		inspect(n.Else, n, fn)
	case *MatchStmt:
		inspect(n.Subject, n, fn)
		for _, c := range n.Cases {
			inspect(c, n, fn)
		}
	case *CaseClause:
		for _, v := range n.Values {
			inspect(v, n, fn)
		}
		inspect(n.Body, n, fn)
	case *ForStmt:
		inspect(n.Start, n, fn)
		inspect(n.Limit, n, fn)
		inspect(n.Step, n, fn)
		inspect(n.Body, n, fn)
	case *WhileStmt:
		inspect(n.Cond, n, fn)
		inspect(n.Body, n, fn)
	case *DoWhileStmt:
		inspect(n.Body, n, fn)
		inspect(n.Cond, n, fn)
	case *BreakStmt, *ContinueStmt:
		// no children
	}
}

// isNil reports whether node is nil, including the typed nil pointers
// stored in optional fields of concrete pointer type.
func isNil(node Node) bool {
	switch n := node.(type) {
	case nil:
		return true
	case *BlockStmt:
		return n == nil
	case *Prototype:
		return n == nil
	case *CaseClause:
		return n == nil
	}
	return false
}
