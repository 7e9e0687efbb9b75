package parser_test

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/kolkov/pyxc/internal/ast"
	"github.com/kolkov/pyxc/internal/lexer"
	"github.com/kolkov/pyxc/internal/parser"
	"github.com/kolkov/pyxc/internal/token"
)

// TestParseEmpty tests parsing an empty program.
func TestParseEmpty(t *testing.T) {
	for _, src := range []string{"", "\n\n", "# comment only\n", "   \n\t\n"} {
		prog, err := parser.Parse(src)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", src, err)
		}
		if len(prog.Decls) != 0 {
			t.Errorf("Parse(%q) decls = %d, want 0", src, len(prog.Decls))
		}
	}
}

// TestParseForms tests the kinds of top-level forms.
func TestParseForms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string // %T of each decl
	}{
		{
			name: "statement",
			src:  "print(1)\n",
			want: []string{"*ast.FuncDecl"},
		},
		{
			name: "def inline",
			src:  "def f(x: i32) -> i32: return x\n",
			want: []string{"*ast.FuncDecl"},
		},
		{
			name: "def block",
			src:  "def f(x: i32) -> i32:\n    y: i32 = x\n    return y\n",
			want: []string{"*ast.FuncDecl"},
		},
		{
			name: "extern",
			src:  "extern def putchard(c: f64) -> f64\n",
			want: []string{"*ast.ExternDecl"},
		},
		{
			name: "alias",
			src:  "type Byte = u8\n",
			want: []string{"*ast.TypeAliasDecl"},
		},
		{
			name: "struct",
			src:  "struct Point:\n    x: i32\n    y: i32\n",
			want: []string{"*ast.StructDecl"},
		},
		{
			name: "decorated",
			src:  "@binary(precedence=35)\ndef $(a: i64, b: i64) -> i64: return a\n",
			want: []string{"*ast.FuncDecl"},
		},
		{
			name: "mixed",
			src:  "extern def printd(x: f64) -> f64\ndef main() -> i32:\n    return 0\nprintd(1.5)\ntype T = ptr[i8]\n",
			want: []string{"*ast.ExternDecl", "*ast.FuncDecl", "*ast.FuncDecl", "*ast.TypeAliasDecl"},
		},
		{
			name: "no trailing newline",
			src:  "def f() -> void:\n    return",
			want: []string{"*ast.FuncDecl"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := parser.Parse(tt.src)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			var got []string
			for _, d := range prog.Decls {
				got = append(got, fmt.Sprintf("%T", d))
			}
			if strings.Join(got, " ") != strings.Join(tt.want, " ") {
				t.Errorf("decls = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestAnonWrapping checks that top-level statements become __anon_expr.
func TestAnonWrapping(t *testing.T) {
	prog, err := parser.Parse("if 1 < 2: return 10 else: return 20\n")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(prog.Decls) != 1 {
		t.Fatalf("decls = %d, want 1", len(prog.Decls))
	}
	fn, ok := prog.Decls[0].(*ast.FuncDecl)
	if !ok || !fn.Anon || fn.Proto.Name != ast.AnonName {
		t.Fatalf("decl = %#v, want anonymous function", prog.Decls[0])
	}
	stmt, ok := fn.Body.Stmts[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("body = %T, want *ast.IfStmt", fn.Body.Stmts[0])
	}
	if !stmt.Then.Inline {
		t.Error("then suite should be inline")
	}
	if _, ok := stmt.Else.(*ast.BlockStmt); !ok {
		t.Errorf("else = %T, want *ast.BlockStmt", stmt.Else)
	}
}

// TestParseExpr tests expression grouping through the printer.
func TestParseExpr(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"1 * 2 + 3", "((1 * 2) + 3)"},
		{"a - b - c", "((a - b) - c)"},
		{"a / b * c", "((a / b) * c)"},
		{"a << 1 + 2", "(a << (1 + 2))"},
		{"a & b | c ^ d", "((a & b) | (c ^ d))"},
		{"a < b == c > d", "((a < b) == (c > d))"},
		{"a or b and c", "(a or (b and c))"},
		{"not a and b", "((not a) and b)"},
		{"-a * b", "((-a) * b)"},
		{"- -a", "(-(-a))"},
		{"~x & 255", "((~x) & 255)"},
		{"!x", "(!x)"},
		{"(a + b) * c", "((a + b) * c)"},
		{"f(a, b + 1)", "f(a, (b + 1))"},
		{"g()", "g()"},
		{"addr(x)", "addr(x)"},
		{"p[i + 1]", "p[(i + 1)]"},
		{"pts[0].x", "pts[0].x"},
		{"s.a.b", "s.a.b"},
		{"if n < 2: n else: n - 1", "(if (n < 2): n else: (n - 1))"},
		{"for i in range(0, 10, 2): f(i)", "(for i in range(0, 10, 2): f(i))"},
		{"var a = 1, b in a + b", "(var a = 1, b in (a + b))"},
		{"(1 +\n 2)", "(1 + 2)"},
		{"2.5", "2.5"},
		{".5 + 3.", "(.5 + 3.)"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			expr, err := parser.ParseExpr(tt.src)
			if err != nil {
				t.Fatalf("ParseExpr() error = %v", err)
			}
			if got := ast.String(expr); got != tt.want {
				t.Errorf("ParseExpr() = %s, want %s", got, tt.want)
			}
		})
	}
}

// TestNumberLiterals checks literal classification.
func TestNumberLiterals(t *testing.T) {
	tests := []struct {
		src     string
		isFloat bool
		i       int64
		f       float64
	}{
		{"42", false, 42, 0},
		{"0", false, 0, 0},
		{"2.5", true, 0, 2.5},
		{"3.", true, 0, 3},
		{".25", true, 0, 0.25},
	}
	for _, tt := range tests {
		expr, err := parser.ParseExpr(tt.src)
		if err != nil {
			t.Fatalf("ParseExpr(%q) error = %v", tt.src, err)
		}
		lit, ok := expr.(*ast.NumberLit)
		if !ok {
			t.Fatalf("ParseExpr(%q) = %T, want *ast.NumberLit", tt.src, expr)
		}
		if lit.IsFloat != tt.isFloat || lit.Int != tt.i || lit.Float != tt.f {
			t.Errorf("ParseExpr(%q) = %+v", tt.src, lit)
		}
	}
}

var builtinPrec = map[string]int{
	"or": 5, "and": 6, "|": 7, "^": 8, "&": 9,
	"==": 10, "!=": 10, "<": 12, ">": 12, "<=": 12, ">=": 12,
	"<<": 15, ">>": 15, "+": 20, "-": 20, "*": 40, "/": 40, "%": 40,
}

// TestPrecedenceInvariant checks a OP1 b OP2 c for every pair of builtin
// operators: the tighter or equal left operator groups first.
func TestPrecedenceInvariant(t *testing.T) {
	for op1, p1 := range builtinPrec {
		for op2, p2 := range builtinPrec {
			src := fmt.Sprintf("a %s b %s c", op1, op2)
			expr, err := parser.ParseExpr(src)
			if err != nil {
				t.Fatalf("ParseExpr(%q) error = %v", src, err)
			}
			want := fmt.Sprintf("((a %s b) %s c)", op1, op2)
			if p1 < p2 {
				want = fmt.Sprintf("(a %s (b %s c))", op1, op2)
			}
			if got := ast.String(expr); got != want {
				t.Errorf("ParseExpr(%q) = %s, want %s", src, got, want)
			}
		}
	}
}

// TestUserOperatorPrecedence registers operators and checks that later
// expressions honor their precedence.
func TestUserOperatorPrecedence(t *testing.T) {
	ops := parser.NewOpTable()
	src := `@binary(precedence=50)
def $(a: i64, b: i64) -> i64: return a * b
@binary(precedence=3)
def ;(a: i64, b: i64) -> i64: return b
@binary
def ?(a: i64, b: i64) -> i64: return a
@unary
def &(a: i64) -> i64: return 0 - a
`
	_, err := parser.ParseProgram([]byte(src), parser.Options{Ops: ops})
	if err != nil {
		t.Fatalf("ParseProgram() error = %v", err)
	}

	tests := []struct {
		src  string
		want string
	}{
		{"1 $ 2 * 3", "((1 $ 2) * 3)"},
		{"1 * 2 $ 3", "(1 * (2 $ 3))"},
		{"1 ; 2 or 3", "(1 ; (2 or 3))"},
		{"1 ? 2 + 3", "((1 ? 2) + 3)"},
		{"1 + 2 ? 3", "(1 + (2 ? 3))"},
		{"1 ? 2 * 3", "(1 ? (2 * 3))"},
		{"1 ? 2 ? 3", "((1 ? 2) ? 3)"},
		{"&x + 1", "((&x) + 1)"},
		{"a & b", "(a & b)"},
	}
	for _, tt := range tests {
		expr, err := parser.ParseExprWith(tt.src, ops)
		if err != nil {
			t.Fatalf("ParseExprWith(%q) error = %v", tt.src, err)
		}
		if got := ast.String(expr); got != tt.want {
			t.Errorf("ParseExprWith(%q) = %s, want %s", tt.src, got, tt.want)
		}
	}

	// Every registered binary operator obeys the invariant too.
	all := map[string]int{"$": 50, ";": 3, "?": ast.DefaultPrecedence}
	for op, prec := range builtinPrec {
		all[op] = prec
	}
	for op1, p1 := range all {
		for op2, p2 := range all {
			if p1 <= p2 {
				continue
			}
			src := fmt.Sprintf("a %s b %s c", op1, op2)
			expr, err := parser.ParseExprWith(src, ops)
			if err != nil {
				t.Fatalf("ParseExprWith(%q) error = %v", src, err)
			}
			want := fmt.Sprintf("((a %s b) %s c)", op1, op2)
			if got := ast.String(expr); got != want {
				t.Errorf("ParseExprWith(%q) = %s, want %s", src, got, want)
			}
		}
	}
}

// TestOperatorWithdrawn checks that a failed operator definition does not
// stay in the table.
func TestOperatorWithdrawn(t *testing.T) {
	ops := parser.NewOpTable()
	src := "@binary(precedence=50)\ndef $(a: i64, b: i64) -> i64: return a +\n"
	if _, err := parser.ParseProgram([]byte(src), parser.Options{Ops: ops}); err == nil {
		t.Fatal("ParseProgram() succeeded, want error")
	}
	if _, ok := ops.Precedence("$"); ok {
		t.Error("operator $ still registered after failed definition")
	}
}

// TestStatements tests that statements print back in canonical form.
func TestStatements(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "declaration",
			src:  "x: i32 = 1 + 2\n",
			want: "x: i32 = (1 + 2)\n",
		},
		{
			name: "declaration without value",
			src:  "buf: array[i8, 16]\n",
			want: "buf: array[i8, 16]\n",
		},
		{
			name: "assignments",
			src:  "p[0] = 1\npt.x = 2\nx = x + 1\n",
			want: "p[0] = 1\npt.x = 2\nx = (x + 1)\n",
		},
		{
			name: "print",
			src:  "print(a, b + 1)\nprint()\n",
			want: "print(a, (b + 1))\nprint()\n",
		},
		{
			name: "inline if chain",
			src:  "if a: print(1) elif b: print(2) else: print(3)\n",
			want: "if a: print(1) elif b: print(2) else: print(3)\n",
		},
		{
			name: "block if chain",
			src:  "if a:\n    print(1)\nelif b:\n    print(2)\nelse:\n    print(3)\n",
			want: "if a:\n    print(1)\nelif b:\n    print(2)\nelse:\n    print(3)\n",
		},
		{
			name: "for",
			src:  "for i in range(0, 5, 1): print(i)\n",
			want: "for i in range(0, 5, 1): print(i)\n",
		},
		{
			name: "while with break",
			src:  "while 1:\n    if x: break\n    continue\n",
			want: "while 1:\n    if x: break\n    continue\n",
		},
		{
			name: "do while inline",
			src:  "do: x = x + 1 while x < 3\n",
			want: "do: x = (x + 1) while (x < 3)\n",
		},
		{
			name: "do while block",
			src:  "do:\n    x = x + 1\nwhile x < 3\n",
			want: "do:\n    x = (x + 1)\nwhile (x < 3)\n",
		},
		{
			name: "match",
			src:  "match x:\n    case 1, 2: print(1)\n    case 3:\n        print(3)\n    case _: print(0)\n",
			want: "match x:\n    case 1, 2: print(1)\n    case 3:\n        print(3)\n    case _: print(0)\n",
		},
		{
			name: "nested blocks",
			src:  "def f(n: i64) -> i64:\n    x: i64 = 0\n    for i in range(0, n):\n        if i % 2 == 0:\n            x = x + i\n    return x\n",
			want: "def f(n: i64) -> i64:\n    x: i64 = 0\n    for i in range(0, n):\n        if ((i % 2) == 0):\n            x = (x + i)\n    return x\n",
		},
		{
			name: "comments and blank lines",
			src:  "def f() -> i32:\n    # leading\n\n    return 1  # trailing\n\n# between\nprint(2)\n",
			want: "def f() -> i32:\n    return 1\nprint(2)\n",
		},
		{
			name: "tabs",
			src:  "def f() -> i32:\n\tif 1:\n\t\treturn 1\n\treturn 0\n",
			want: "def f() -> i32:\n    if 1:\n        return 1\n    return 0\n",
		},
		{
			name: "types",
			src:  "extern def memset(p: ptr[void], c: i32, n: size_t) -> ptr[void]\n",
			want: "extern def memset(p: ptr[void], c: i32, n: size_t) -> ptr[void]\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := parser.Parse(tt.src)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			got := ast.String(prog)
			if got != tt.want {
				t.Errorf("String() =\n%s\nwant:\n%s", got, tt.want)
			}

			// the printed form parses back to the same tree
			again, err := parser.Parse(got)
			if err != nil {
				t.Fatalf("Parse(printed) error = %v", err)
			}
			if s := ast.String(again); s != got {
				t.Errorf("reprinted =\n%s\nwant:\n%s", s, got)
			}
		})
	}
}

// TestParseErrors tests error messages.
func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"missing expression", "x = \n", "expected expression, got newline"},
		{"unexpected char", "y = 1 $ 2\n", "1:7: unexpected '$' at end of statement"},
		{"malformed number", "x = 1x\n", "1:5: malformed number literal \"1x\""},
		{"two dots", "x = 1.2.3\n", "malformed number literal"},
		{"stray else", "else: x = 1\n", "unexpected 'else' without matching if"},
		{"missing arrow", "def f(x: i32): return x\n", "expected '->'"},
		{"missing colon", "def f(x: i32) -> i32 return x\n", "expected ':'"},
		{"duplicate param", "def f(x: i32, x: i32) -> i32: return x\n", "duplicate parameter x"},
		{"empty struct", "struct S:\nx = 1\n", "struct S must declare at least one field"},
		{"duplicate field", "struct S:\n    a: i32\n    a: i64\n", "duplicate field a in struct S"},
		{"trailing comma", "print(1, 2,)\n", "trailing comma is not allowed in print"},
		{"assign to call", "f() = 1\n", "cannot assign to f()"},
		{"typed decl on index", "p[0]: i32 = 1\n", "typed declaration requires a variable name"},
		{"nested def", "def f() -> i32:\n    def g() -> i32: return 1\n", "'def' is only allowed at top level"},
		{"unknown decorator", "@inline\ndef f() -> i32: return 1\n", "unknown decorator @inline"},
		{"bad precedence", "@binary(precedence=0)\ndef $(a: i64, b: i64) -> i64: return a\n", "precedence must be between 1 and 100"},
		{"builtin binary", "@binary\ndef +(a: i64, b: i64) -> i64: return a\n", "cannot redefine builtin binary operator \"+\""},
		{"builtin unary", "@unary\ndef -(a: i64) -> i64: return a\n", "cannot redefine builtin unary operator \"-\""},
		{"unary arity", "@unary\ndef $(a: i64, b: i64) -> i64: return a\n", "unary operator $ must take exactly one parameter"},
		{"binary arity", "@binary\ndef $(a: i64) -> i64: return a\n", "binary operator $ must take exactly two parameters"},
		{"operator name", "@binary\ndef f(a: i64, b: i64) -> i64: return a\n", "expected operator symbol, got f"},
		{"unexpected indent", "x = 1\n    y = 2\n", "unexpected indent"},
		{"missing block", "while 1:\nx = 1\n", "expected indented block"},
		{"inline then block else", "if a: x = 1 else:\n    x = 2\n", "inconsistent suite style"},
		{"block then inline else", "if a:\n    x = 1\nelse: x = 2\n", "inconsistent suite style"},
		{"case after default", "match x:\n    case _: x = 1\n    case 1: x = 2\n", "case after default case"},
		{"expected case", "match x:\n    x = 1\n", "expected 'case'"},
		{"do without while", "do: x = 1\n", "expected 'while'"},
		{"array length", "a: array[i8, 0]\n", "array length must be positive"},
		{"mixed indentation", "def f() -> i32:\n    if 1:\n\t\treturn 1\n", "cannot mix tabs and spaces"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse(tt.src)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error containing %q", tt.src, tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse(%q) error = %q, want containing %q", tt.src, err.Error(), tt.want)
			}
		})
	}
}

// TestRecovery checks that a bad form is skipped and parsing resumes at
// the next top-level form.
func TestRecovery(t *testing.T) {
	src := `x = 1 +
def f(a: i32) -> i32:
    return a +
    print(2)
print(3)
y = (1 2)
def g() -> i32: return 1
`
	prog, err := parser.Parse(src)
	var list parser.ErrorList
	if !errors.As(err, &list) {
		t.Fatalf("Parse() error = %v, want ErrorList", err)
	}
	if len(list) != 3 {
		t.Errorf("errors = %d, want 3: %v", len(list), list)
	}
	if got, want := ast.String(prog), "print(3)\ndef g() -> i32: return 1\n"; got != want {
		t.Errorf("recovered program =\n%s\nwant:\n%s", got, want)
	}
}

// TestRecoverySkipsClauses checks that the else clause of a failed if is
// discarded with it rather than reported as a form of its own.
func TestRecoverySkipsClauses(t *testing.T) {
	src := "if x +:\n    1\nelse:\n    2\nprint(4)\n"
	prog, err := parser.Parse(src)
	var list parser.ErrorList
	if !errors.As(err, &list) || len(list) != 1 {
		t.Fatalf("Parse() error = %v, want one error", err)
	}
	if list[0].Pos.Line != 1 {
		t.Errorf("error at %s, want line 1", list[0].Pos)
	}
	if got, want := ast.String(prog), "print(4)\n"; got != want {
		t.Errorf("recovered program = %q, want %q", got, want)
	}
}

// TestInconsistentIndentation checks the lexer's indentation reset: the
// failing form is reported and the next top-level form still parses.
func TestInconsistentIndentation(t *testing.T) {
	src := `def f(x: i64) -> i64:
  if x > 0:
      return 1
    else:
      return 2
print(7)
`
	prog, err := parser.Parse(src)
	var list parser.ErrorList
	if !errors.As(err, &list) || len(list) != 1 {
		t.Fatalf("Parse() error = %v, want one error", err)
	}
	if !list[0].Lexical || list[0].Message != lexer.ErrInconsistentIndent {
		t.Errorf("error = %+v, want lexical inconsistent indentation", list[0])
	}
	if list[0].Pos.Line != 4 || list[0].Pos.Column != 5 {
		t.Errorf("error position = %s, want 4:5", list[0].Pos)
	}
	if got := ast.String(prog); got != "print(7)\n" {
		t.Errorf("recovered program = %q, want %q", got, "print(7)\n")
	}
}

// TestNext checks the incremental interface.
func TestNext(t *testing.T) {
	p := parser.New([]byte("x = 1\ny = \nz = 3\n"), parser.Options{Filename: "t.pyxc"})

	d, err := p.Next()
	if err != nil || d == nil {
		t.Fatalf("Next() #1 = %v, %v", d, err)
	}

	d, err = p.Next()
	var list parser.ErrorList
	if d != nil || !errors.As(err, &list) || len(list) != 1 {
		t.Fatalf("Next() #2 = %v, %v; want one error", d, err)
	}
	if list[0].Pos.Filename != "t.pyxc" || list[0].Pos.Line != 2 {
		t.Errorf("error position = %s, want t.pyxc:2", list[0].Pos)
	}

	d, err = p.Next()
	if err != nil || d == nil {
		t.Fatalf("Next() #3 = %v, %v", d, err)
	}
	if _, err := p.Next(); err != io.EOF {
		t.Errorf("Next() at end = %v, want io.EOF", err)
	}
	if len(p.Errors()) != 1 {
		t.Errorf("Errors() = %d, want 1", len(p.Errors()))
	}
}

// TestPositions checks node positions.
func TestPositions(t *testing.T) {
	expr, err := parser.ParseExpr("a + bc * 2")
	if err != nil {
		t.Fatal(err)
	}
	bin := expr.(*ast.BinaryExpr)
	if bin.Pos().Column != 1 || bin.End().Column != 11 {
		t.Errorf("span = %s-%s, want 1:1-1:11", bin.Pos(), bin.End())
	}
	if bin.OpPos.Column != 3 {
		t.Errorf("op position = %s, want column 3", bin.OpPos)
	}
	rhs := bin.Y.(*ast.BinaryExpr)
	if rhs.Pos().Column != 5 || rhs.X.End().Column != 7 {
		t.Errorf("rhs = %s, bc ends at %s", rhs.Pos(), rhs.X.End())
	}
}

// TestErrorList tests the combined message.
func TestErrorList(t *testing.T) {
	var list parser.ErrorList
	if list.Err() != nil {
		t.Error("empty list Err() should be nil")
	}
	list.Add(token.NoPos, "first")
	list.Add(token.Position{Line: 3, Column: 7}, "expected %s", "'case'")
	if got := list.Error(); got != "first\n3:7: expected 'case'" {
		t.Errorf("Error() = %q", got)
	}
}
