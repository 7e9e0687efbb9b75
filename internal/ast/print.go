package ast

import (
	"fmt"
	"io"
	"strings"
)

// Printer renders AST nodes back to pyxc source. Every unary and binary
// operation is written fully parenthesized so the output shows how the
// parser grouped it; the output parses back to an equivalent tree.
type Printer struct {
	w      io.Writer
	indent int
	err    error
}

// NewPrinter creates a new Printer that writes to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Print writes a pretty-printed representation of the node to the writer.
func (p *Printer) Print(node Node) error {
	p.printNode(node)
	return p.err
}

func (p *Printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *Printer) writeIndent() {
	if p.err != nil {
		return
	}
	for i := 0; i < p.indent; i++ {
		_, p.err = io.WriteString(p.w, "    ")
	}
}

func (p *Printer) printNode(node Node) {
	if isNil(node) {
		p.printf("<nil>")
		return
	}

	switch n := node.(type) {
	case *Program:
		for _, d := range n.Decls {
			p.printDecl(d)
		}
	case Decl:
		p.printDecl(n)
	case *Prototype:
		p.printProto(n)
	case Expr:
		p.printExpr(n)
	case TypeExpr:
		p.printType(n)
	case Stmt:
		p.printStmt(n)
	default:
		p.printf("<%T>", node)
	}
}

// -----------------------------------------------------------------------------
// Declarations
// -----------------------------------------------------------------------------

func (p *Printer) printDecl(d Decl) {
	switch n := d.(type) {
	case *FuncDecl:
		if n.Anon {
			for _, s := range n.Body.Stmts {
				p.printLine(s)
			}
			return
		}
		switch n.Proto.Kind {
		case ProtoUnary:
			p.printf("@unary\n")
		case ProtoBinary:
			p.printf("@binary(precedence=%d)\n", n.Proto.Precedence)
		}
		p.printf("def ")
		p.printProto(n.Proto)
		p.printf(":")
		p.printSuite(n.Body)
		if n.Body.Inline {
			p.printf("\n")
		}

	case *ExternDecl:
		p.printf("extern def ")
		p.printProto(n.Proto)
		p.printf("\n")

	case *TypeAliasDecl:
		p.printf("type %s = ", n.Name)
		p.printType(n.Target)
		p.printf("\n")

	case *StructDecl:
		p.printf("struct %s:\n", n.Name)
		p.indent++
		for _, f := range n.Fields {
			p.writeIndent()
			p.printf("%s: ", f.Name)
			p.printType(f.Type)
			p.printf("\n")
		}
		p.indent--

	default:
		p.printf("<%T>\n", d)
	}
}

func (p *Printer) printProto(proto *Prototype) {
	name := proto.Name
	if proto.IsOperator() {
		name = proto.Operator
	}
	p.printf("%s(", name)
	for i, param := range proto.Params {
		if i > 0 {
			p.printf(", ")
		}
		p.printf("%s: ", param.Name)
		p.printType(param.Type)
	}
	p.printf(") -> ")
	p.printType(proto.Result)
}

func (p *Printer) printType(t TypeExpr) {
	switch n := t.(type) {
	case *NamedType:
		p.printf("%s", n.Name)
	case *PointerType:
		p.printf("ptr[")
		p.printType(n.Elem)
		p.printf("]")
	case *ArrayType:
		p.printf("array[")
		p.printType(n.Elem)
		p.printf(", %d]", n.Len)
	case nil:
		p.printf("<nil>")
	default:
		p.printf("<%T>", t)
	}
}

// -----------------------------------------------------------------------------
// Statements
// -----------------------------------------------------------------------------

// printLine writes one statement on its own line at the current indent.
func (p *Printer) printLine(s Stmt) {
	p.writeIndent()
	p.printStmt(s)
	if !endsWithBlock(s) {
		p.printf("\n")
	}
}

// printSuite writes the part of a compound statement after its colon.
// An inline suite stays on the line; a block suite ends with a newline.
func (p *Printer) printSuite(b *BlockStmt) {
	if b.Inline && len(b.Stmts) == 1 {
		p.printf(" ")
		p.printStmt(b.Stmts[0])
		return
	}
	p.printf("\n")
	p.indent++
	for _, s := range b.Stmts {
		p.printLine(s)
	}
	p.indent--
}

// endsWithBlock reports whether printing s already ended the line.
func endsWithBlock(s Stmt) bool {
	switch n := s.(type) {
	case *IfStmt:
		for {
			switch e := n.Else.(type) {
			case nil:
				return !n.Then.Inline
			case *IfStmt:
				n = e
				continue
			case *BlockStmt:
				return !e.Inline
			}
			return false
		}
	case *ForStmt:
		return !n.Body.Inline
	case *WhileStmt:
		return !n.Body.Inline
	case *MatchStmt:
		return true
	case *BlockStmt:
		return true
	}
	return false
}

func (p *Printer) printStmt(s Stmt) {
	switch n := s.(type) {
	case *ExprStmt:
		p.printExpr(n.X)

	case *PrintStmt:
		p.printf("print(")
		p.printArgs(n.Args)
		p.printf(")")

	case *ReturnStmt:
		p.printf("return")
		if n.Value != nil {
			p.printf(" ")
			p.printExpr(n.Value)
		}

	case *BlockStmt:
		for _, st := range n.Stmts {
			p.printLine(st)
		}

	case *DeclStmt:
		p.printf("%s: ", n.Name)
		p.printType(n.Type)
		if n.Value != nil {
			p.printf(" = ")
			p.printExpr(n.Value)
		}

	case *AssignStmt:
		p.printExpr(n.Target)
		p.printf(" = ")
		p.printExpr(n.Value)

	case *IfStmt:
		p.printIf(n, "if")

	case *MatchStmt:
		p.printf("match ")
		p.printExpr(n.Subject)
		p.printf(":\n")
		p.indent++
		for _, c := range n.Cases {
			p.writeIndent()
			p.printf("case ")
			if c.IsDefault() {
				p.printf("_")
			} else {
				p.printArgs(c.Values)
			}
			p.printf(":")
			p.printSuite(c.Body)
			if c.Body.Inline {
				p.printf("\n")
			}
		}
		p.indent--

	case *ForStmt:
		p.printf("for %s in range(", n.Var)
		p.printExpr(n.Start)
		p.printf(", ")
		p.printExpr(n.Limit)
		if n.Step != nil {
			p.printf(", ")
			p.printExpr(n.Step)
		}
		p.printf("):")
		p.printSuite(n.Body)

	case *WhileStmt:
		p.printf("while ")
		p.printExpr(n.Cond)
		p.printf(":")
		p.printSuite(n.Body)

	case *DoWhileStmt:
		p.printf("do:")
		p.printSuite(n.Body)
		if n.Body.Inline {
			p.printf(" ")
		} else {
			p.writeIndent()
		}
		p.printf("while ")
		p.printExpr(n.Cond)

	case *BreakStmt:
		p.printf("break")

	case *ContinueStmt:
		p.printf("continue")

	default:
		p.printf("<%T>", s)
	}
}

func (p *Printer) printIf(n *IfStmt, keyword string) {
	p.printf("%s ", keyword)
	p.printExpr(n.Cond)
	p.printf(":")
	p.printSuite(n.Then)

	sep := func() {
		if n.Then.Inline {
			p.printf(" ")
		} else {
			p.writeIndent()
		}
	}
	switch e := n.Else.(type) {
	case *IfStmt:
		sep()
		p.printIf(e, "elif")
	case *BlockStmt:
		sep()
		p.printf("else:")
		p.printSuite(e)
	}
}

// -----------------------------------------------------------------------------
// Expressions
// -----------------------------------------------------------------------------

func (p *Printer) printExpr(e Expr) {
	if e == nil {
		p.printf("<nil>")
		return
	}

	switch n := e.(type) {
	case *NumberLit:
		p.printf("%s", n.Raw)

	case *Ident:
		p.printf("%s", n.Name)

	case *UnaryExpr:
		if isWord(n.Op) {
			p.printf("(%s ", n.Op)
		} else {
			p.printf("(%s", n.Op)
		}
		p.printExpr(n.X)
		p.printf(")")

	case *BinaryExpr:
		p.printf("(")
		p.printExpr(n.X)
		p.printf(" %s ", n.Op)
		p.printExpr(n.Y)
		p.printf(")")

	case *GroupExpr:
		// operations already print their own parentheses
		if selfDelimited(n.X) {
			p.printExpr(n.X)
			return
		}
		p.printf("(")
		p.printExpr(n.X)
		p.printf(")")

	case *CallExpr:
		p.printf("%s(", n.Name)
		p.printArgs(n.Args)
		p.printf(")")

	case *AddrExpr:
		p.printf("addr(")
		p.printExpr(n.X)
		p.printf(")")

	case *IndexExpr:
		p.printExpr(n.X)
		p.printf("[")
		p.printExpr(n.Index)
		p.printf("]")

	case *MemberExpr:
		p.printExpr(n.X)
		p.printf(".%s", n.Field)

	case *IfExpr:
		p.printf("(if ")
		p.printExpr(n.Cond)
		p.printf(": ")
		p.printExpr(n.Then)
		p.printf(" else: ")
		p.printExpr(n.Else)
		p.printf(")")

	case *ForExpr:
		p.printf("(for %s in range(", n.Var)
		p.printExpr(n.Start)
		p.printf(", ")
		p.printExpr(n.Limit)
		if n.Step != nil {
			p.printf(", ")
			p.printExpr(n.Step)
		}
		p.printf("): ")
		p.printExpr(n.Body)
		p.printf(")")

	case *VarExpr:
		p.printf("(var ")
		for i, b := range n.Vars {
			if i > 0 {
				p.printf(", ")
			}
			p.printf("%s", b.Name)
			if b.Init != nil {
				p.printf(" = ")
				p.printExpr(b.Init)
			}
		}
		p.printf(" in ")
		p.printExpr(n.Body)
		p.printf(")")

	default:
		p.printf("<%T>", e)
	}
}

func (p *Printer) printArgs(args []Expr) {
	for i, arg := range args {
		if i > 0 {
			p.printf(", ")
		}
		p.printExpr(arg)
	}
}

// String returns a string representation of the node.
func String(node Node) string {
	var sb strings.Builder
	p := NewPrinter(&sb)
	p.Print(node)
	return sb.String()
}

func selfDelimited(e Expr) bool {
	switch e.(type) {
	case *UnaryExpr, *BinaryExpr, *GroupExpr, *IfExpr, *ForExpr, *VarExpr:
		return true
	}
	return false
}

func isWord(op string) bool {
	return op != "" && (op[0] >= 'a' && op[0] <= 'z')
}
