package semantic_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/kolkov/pyxc/internal/ast"
	"github.com/kolkov/pyxc/internal/parser"
	"github.com/kolkov/pyxc/internal/semantic"
	"github.com/kolkov/pyxc/internal/token"
	"github.com/kolkov/pyxc/internal/types"
)

// checkCode parses code and checks every form in a fresh environment.
func checkCode(t *testing.T, code string) ([]*semantic.Unit, error) {
	t.Helper()
	prog, err := parser.Parse(code)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return semantic.CheckProgram(prog)
}

// expectError checks that code fails with a message containing errSubstr.
func expectError(t *testing.T, code string, errSubstr string) {
	t.Helper()
	_, err := checkCode(t, code)
	if err == nil {
		t.Errorf("expected error containing %q, got no error", errSubstr)
		return
	}
	if !strings.Contains(err.Error(), errSubstr) {
		t.Errorf("expected error containing %q, got: %v", errSubstr, err)
	}
}

// expectNoError checks that code is accepted.
func expectNoError(t *testing.T, code string) []*semantic.Unit {
	t.Helper()
	units, err := checkCode(t, code)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return units
}

func TestAccepted(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"recursion", "def fib(n: i64) -> i64:\n    if n < 2: return n\n    return fib(n - 1) + fib(n - 2)\n"},
		{"extern then call", "extern def putchard(c: f64) -> f64\nputchard(65.0)\n"},
		{"repeated extern", "extern def printd(x: f64) -> f64\nextern def printd(x: f64) -> f64\n"},
		{"extern then def", "extern def f(x: i64) -> i64\ndef f(x: i64) -> i64: return x\n"},
		{"declaration", "def f() -> i32:\n    x: i32 = 5\n    x = x + 1\n    return x\n"},
		{"shadowing", "def f(n: i64) -> i64:\n    if n > 0:\n        n: f64 = 2.0\n        print(n)\n    return n\n"},
		{"mixed widths", "def f(a: i8, b: i64) -> i64: return a + b\n"},
		{"literal adapts to float", "def f(x: f32) -> f32: return x * 2 + 1\n"},
		{"float literal", "def f(x: f64) -> f64: return x * 0.5\n"},
		{"pointer arithmetic by index", "def f(p: ptr[i32], n: i64) -> i32:\n    p[n] = p[0] + 1\n    return p[n]\n"},
		{"addr", "def f() -> i32:\n    x: i32 = 1\n    p: ptr[i32] = addr(x)\n    p[0] = 2\n    return x\n"},
		{"struct fields", "struct Point:\n    x: i32\n    y: i32\ndef f() -> i32:\n    pt: Point\n    pt.x = 3\n    q: ptr[Point] = addr(pt)\n    return q.x + pt.y\n"},
		{"self pointer", "struct Node:\n    value: i64\n    next: ptr[Node]\n"},
		{"array", "def f() -> i64:\n    buf: array[i64, 4]\n    buf[1] = 7\n    return buf[1]\n"},
		{"alias", "type Byte = u8\ndef f(b: Byte) -> int: return b\n"},
		{"alias chain", "type A = B\ntype B = i16\ndef f(x: A) -> i16: return x\n"},
		{"predeclared aliases", "def f(a: int, b: char, c: long, d: size_t) -> double: return 1.0\n"},
		{"while and break", "def f() -> i64:\n    i: i64 = 0\n    while 1:\n        i = i + 1\n        if i > 3: break\n        continue\n    return i\n"},
		{"do while", "def f() -> i64:\n    i: i64 = 0\n    do: i = i + 1 while i < 3\n    return i\n"},
		{"for", "for i in range(0, 5, 1): print(i)\n"},
		{"for counts down", "for i in range(5, 0, -1): print(i)\n"},
		{"match", "def f(x: i32) -> i32:\n    match x:\n        case 1, 2: return 10\n        case -1: return 20\n        case _: return 0\n"},
		{"var expr", "var a = 1, b = a + 1 in a * b\n"},
		{"if expr", "def f(x: f64) -> f64: return if x < 0.0: -x else: x\n"},
		{"logic", "def f(a: i64, b: f64) -> i64: return a > 0 and not (b < 1.0) or !a\n"},
		{"user operators", "@binary(precedence=5)\ndef $(a: i64, b: i64) -> i64: return a\n@unary\ndef &(a: i64) -> i64: return -a\n1 $ &2\n"},
		{"void function", "def hello() -> void:\n    print(1)\n    return\nhello()\n"},
		{"main", "def main() -> i32:\n    return 0\n"},
		{"shifts and masks", "def f(x: u32) -> u32: return (x << 2 | x >> 1) & 255 ^ ~x % 7\n"},
		{"pointer comparison", "def f(p: ptr[i8], q: ptr[i8]) -> i64: return p == q\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectNoError(t, tt.code)
		})
	}
}

func TestRejected(t *testing.T) {
	tests := []struct {
		name string
		code string
		err  string
	}{
		{"void pointer index", "def f() -> i64:\n    p: ptr[void]\n    p[0]\n    return 0\n", "cannot index through ptr[void]"},
		{"alias cycle", "type A = B\ntype B = A\n", "2:10: alias cycle detected at type B"},
		{"self alias", "type A = ptr[A]\n", "1:14: alias cycle detected at type A"},
		{"builtin type", "type i32 = i64\n", "cannot redefine builtin type i32"},
		{"unknown type", "def f(x: Foo) -> i64: return 0\n", "unknown type Foo"},
		{"unknown alias target at use", "type A = Missing\ndef f(x: A) -> i64: return 0\n", "unknown type Missing"},
		{"struct contains itself", "struct S:\n    a: i32\n    s: S\n", "struct S cannot contain itself"},
		{"struct contains itself in array", "struct S:\n    s: array[S, 2]\n", "struct S cannot contain itself"},
		{"struct redefined", "struct S:\n    a: i32\nstruct S:\n    b: i32\n", "struct S is already defined"},
		{"void field", "struct S:\n    a: void\n", "field a cannot have type void"},
		{"void array", "def f() -> i64:\n    a: array[void, 2]\n    return 0\n", "array element type cannot be void"},
		{"unknown variable", "def f() -> i64: return y\n", "unknown variable name y"},
		{"unknown function", "g(1)\n", "unknown function g"},
		{"unknown field", "struct P:\n    x: i32\ndef f() -> i32:\n    p: P\n    return p.z\n", "unknown field z on struct P (fields: x)"},
		{"member of scalar", "def f(x: i64) -> i64: return x.y\n", "member access requires a struct, got i64"},
		{"float modulo", "def f(x: f64) -> f64: return x % 2.0\n", "operator % requires integer operands, got f64 and f64"},
		{"float shift", "def f(x: f64) -> i64: return 1 << x\n", "operator << requires integer operands"},
		{"float complement", "def f(x: f64) -> f64: return ~x\n", "operator ~ requires an integer operand, got f64"},
		{"mixed arithmetic", "def f(a: i64, b: f64) -> f64: return a + b\n", "mismatched types i64 and f64 for operator +"},
		{"float literal to int", "def f(a: i64) -> i64: return a + 1.5\n", "mismatched types i64 and f64"},
		{"break outside loop", "def f() -> i64:\n    break\n", "break statement must be inside a loop"},
		{"continue outside loop", "continue\n", "continue statement must be inside a loop"},
		{"arg count", "def g(a: i64) -> i64: return a\ng(1, 2)\n", "function g expects 1 arguments, got 2"},
		{"arg type", "def g(p: ptr[i8]) -> i64: return 0\ng(1)\n", "cannot use i64 as ptr[i8] in argument 1 of g"},
		{"addr of temporary", "def f(x: i64) -> i64:\n    p: ptr[i64] = addr(x + 1)\n    return 0\n", "addr() requires an addressable expression"},
		{"index scalar", "def f(x: i64) -> i64: return x[0]\n", "cannot index value of type i64"},
		{"float index", "def f(p: ptr[i8]) -> i8: return p[1.5]\n", "index must be an integer, got f64"},
		{"void variable", "def f() -> i64:\n    v: void\n    return 0\n", "variable v cannot have type void"},
		{"void param", "def f(v: void) -> i64: return 0\n", "parameter v cannot have type void"},
		{"struct param", "struct S:\n    a: i32\ndef f(s: S) -> i64: return 0\n", "parameter s must have a scalar type, not S"},
		{"array result", "def f() -> array[i8, 2]: return 0\n", "function f cannot return array[i8, 2]"},
		{"struct initializer", "struct S:\n    a: i32\ndef f() -> i64:\n    s: S = 1\n    return 0\n", "variable s of type S cannot have an initializer"},
		{"assign struct", "struct S:\n    a: i32\ndef f() -> i64:\n    s: S\n    t: S\n    s = t\n    return 0\n", "cannot assign to value of type S"},
		{"assign pointer from int", "def f() -> i64:\n    p: ptr[i8]\n    p = 3\n    return 0\n", "cannot assign i64 to ptr[i8]"},
		{"redeclared", "def f() -> i64:\n    x: i64 = 1\n    x: i64 = 2\n    return x\n", "x is already declared in this block at 2:5"},
		{"redeclared param", "def f(x: i64) -> i64:\n    x: i64 = 2\n    return x\n", "x is already declared in this block"},
		{"void return value", "def f() -> void: return 1\n", "void function cannot return a value"},
		{"missing return value", "def f() -> i64: return\n", "missing return value in function returning i64"},
		{"return pointer as int", "def f(p: ptr[i8]) -> i64: return p\n", "cannot return ptr[i8] from function returning i64"},
		{"print pointer", "def f(p: ptr[i8]) -> i64:\n    print(p)\n    return 0\n", "cannot print value of type ptr[i8]"},
		{"void as value", "def g() -> void: return\ndef f() -> i64: return g() + 1\n", "g() is used as a value but has no value"},
		{"struct as value", "struct S:\n    a: i32\ndef f() -> i64:\n    s: S\n    return s + 1\n", "value of type S cannot be used here"},
		{"float match", "def f(x: f64) -> i64:\n    match x:\n        case 1: return 1\n    return 0\n", "match subject must be an integer, got f64"},
		{"case out of range", "def f(x: i8) -> i64:\n    match x:\n        case 200: return 1\n    return 0\n", "3:14: case value 200 overflows i8"},
		{"negative case on unsigned", "def f(x: u16) -> i64:\n    match x:\n        case -1: return 1\n    return 0\n", "overflows u16"},
		{"duplicate case", "def f(x: i64) -> i64:\n    match x:\n        case 1, 2: return 1\n        case 2: return 2\n    return 0\n", "duplicate case value 2"},
		{"function redefined", "def f() -> i64: return 1\ndef f() -> i64: return 2\n", "function f is already defined"},
		{"conflicting extern", "extern def f(x: i64) -> i64\nextern def f(x: f64) -> f64\n", "conflicting declaration of f"},
		{"if expr branches", "def f(p: ptr[i8], x: i64) -> i64: return if x: p else: x\n", "branches have mismatched types ptr[i8] and i64"},
		{"range of pointers", "def f(p: ptr[i8]) -> i64:\n    for i in range(p, p): print(1)\n    return 0\n", "range bounds must be numeric, got ptr[i8]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, tt.code, tt.err)
		})
	}
}

func TestErrorPosition(t *testing.T) {
	_, err := checkCode(t, "def f() -> i64:\n    p: ptr[void]\n    p[0]\n    return 0\n")
	var list semantic.ErrorList
	if !errors.As(err, &list) {
		t.Fatalf("error = %T, want ErrorList", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(list), err)
	}
	if got := list[0].Pos.String(); got != "3:5" {
		t.Errorf("position = %s, want 3:5", got)
	}
}

func TestAnonResult(t *testing.T) {
	tests := []struct {
		code string
		want *types.Type
	}{
		{"1 + 2\n", types.I64},
		{"2.5 * 2\n", types.F64},
		{"if 1 < 2: return 10 else: return 20\n", types.I64},
		{"if 1 < 2: 10 else: 2.5\n", nil},
		{"if 1 < 2: 1.5 else: 2.5\n", types.F64},
		{"if 1: 1 elif 2: 2 else: 3\n", types.I64},
		{"for i in range(0, 5, 1): print(i)\n", types.Void},
		{"print(1)\n", types.Void},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.code), func(t *testing.T) {
			units := expectNoError(t, tt.code)
			fn := units[0].Func
			if !fn.Anon || fn.Name != ast.AnonName {
				t.Fatalf("unit is %s, want anonymous", fn.Name)
			}
			want := tt.want
			if want == nil {
				want = types.Void
			}
			if !types.Identical(fn.Result, want) {
				t.Errorf("result = %s, want %s", fn.Result, want)
			}
		})
	}
}

func TestValuedIf(t *testing.T) {
	units := expectNoError(t, "if 1 < 2: 10 else: 20\n")
	s := units[0].Func.Body.Stmts[0].(*ast.IfStmt)
	if !types.Identical(s.Ty, types.I64) {
		t.Errorf("if type = %s, want i64", s.Ty)
	}
}

func TestMainResult(t *testing.T) {
	units := expectNoError(t, "def main() -> void:\n    print(1)\n")
	fn := units[0].Func
	if !fn.IsMain() {
		t.Fatal("main not recognized")
	}
	if !types.Identical(fn.Sig.Result, types.I32) {
		t.Errorf("signature result = %s, want i32", fn.Sig.Result)
	}
	if !fn.Result.IsVoid() {
		t.Errorf("declared result = %s, want void", fn.Result)
	}
}

func TestExpressionTypes(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"a + b", "i64"},
		{"a + 1", "i64"},
		{"c + 1", "u8"},
		{"c + d", "i32"},
		{"d + e", "u32"},
		{"x * 2", "f32"},
		{"x + y", "f64"},
		{"a < 1", "i64"},
		{"x < 1.0", "i64"},
		{"not x", "i64"},
		{"-c", "u8"},
		{"addr(a)", "ptr[i64]"},
		{"addr(buf)", "ptr[array[i8, 4]]"},
		{"buf[0]", "i8"},
		{"p[0]", "u8"},
		{"pt.y", "f64"},
		{"pp.x", "i32"},
		{"(if a: 1 else: 2)", "i64"},
		{"(if a: x else: 2)", "f32"},
		{"var k = c in k", "u8"},
		{"(for i in range(0, d): i)", "i64"},
	}

	decls := "struct Pt:\n    x: i32\n    y: f64\n" +
		"def f(a: i64, b: i64, c: u8, d: i32, e: u32, x: f32, y: f64, p: ptr[u8], pp: ptr[Pt]) -> i64:\n" +
		"    buf: array[i8, 4]\n" +
		"    pt: Pt\n"

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			units := expectNoError(t, decls+"    "+tt.code+"\n    return 0\n")
			body := units[1].Func.Body
			stmt := body.Stmts[2].(*ast.ExprStmt)
			if got := stmt.X.Type().String(); got != tt.want {
				t.Errorf("type of %s = %s, want %s", tt.code, got, tt.want)
			}
		})
	}
}

func TestLiteralAdaptation(t *testing.T) {
	units := expectNoError(t, "def f(x: f32) -> f32: return x + -(1)\n")
	ret := units[0].Func.Body.Stmts[0].(*ast.ReturnStmt)
	bin := ret.Value.(*ast.BinaryExpr)
	if got := bin.Y.Type(); !types.Identical(got, types.F32) {
		t.Errorf("operand type = %s, want f32", got)
	}
	lit := ast.Unparen(bin.Y.(*ast.UnaryExpr).X).(*ast.NumberLit)
	if got := lit.Type(); !types.Identical(got, types.F32) {
		t.Errorf("literal type = %s, want f32", got)
	}
}

func TestUnreachableWarning(t *testing.T) {
	units := expectNoError(t, "def f() -> i64:\n    return 1\n    print(2)\n")
	w := units[0].Warnings
	if len(w) != 1 {
		t.Fatalf("got %d warnings, want 1", len(w))
	}
	if got := w[0].String(); got != "3:5: warning: unreachable code" {
		t.Errorf("warning = %q", got)
	}
}

func TestEnvPersistence(t *testing.T) {
	env := semantic.NewEnv()
	check := func(src string) error {
		t.Helper()
		prog, err := parser.Parse(src)
		if err != nil {
			t.Fatalf("parse error: %v", err)
		}
		for _, d := range prog.Decls {
			if _, err := env.Check(d); err != nil {
				return err
			}
		}
		return nil
	}

	if err := check("def sq(x: i64) -> i64: return x * x\n"); err != nil {
		t.Fatal(err)
	}
	if err := check("sq(3)\n"); err != nil {
		t.Fatalf("call in later unit: %v", err)
	}

	// A failed definition leaves no trace.
	if err := check("def bad(x: i64) -> i64: return y\n"); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := env.Lookup("bad"); ok {
		t.Error("failed definition was registered")
	}
	if err := check("def bad(x: i64) -> i64: return x\n"); err != nil {
		t.Errorf("redefinition after failure: %v", err)
	}

	// Without AllowRedefine a second body is an error; with it the new
	// signature replaces the old one.
	if err := check("def sq(x: f64) -> f64: return x * x\n"); err == nil {
		t.Error("expected redefinition error")
	}
	env.AllowRedefine = true
	if err := check("def sq(x: f64) -> f64: return x * x\n"); err != nil {
		t.Fatalf("redefinition: %v", err)
	}
	sig, _ := env.Lookup("sq")
	if got := sig.String(); got != "sq(x: f64) -> f64" {
		t.Errorf("signature = %s", got)
	}
}

func TestOperatorSignature(t *testing.T) {
	units := expectNoError(t, "@binary(precedence=7)\ndef $(a: i64, b: i64) -> i64: return a\n")
	sig := units[0].Sig
	if sig.Name != "binary$" || sig.Kind != ast.ProtoBinary || sig.Operator != "$" || sig.Precedence != 7 {
		t.Errorf("signature = %+v", sig)
	}
}

func TestSymbolTable(t *testing.T) {
	outer := semantic.NewSymbolTable(nil, "f")
	outer.Define("x", semantic.SymbolParam, types.I64, token.NoPos)
	inner := semantic.NewSymbolTable(outer, "block")
	if inner.Define("x", semantic.SymbolLocal, types.F64, token.NoPos) == nil {
		t.Fatal("shadowing definition rejected")
	}
	if inner.Define("x", semantic.SymbolLocal, types.F64, token.NoPos) != nil {
		t.Error("duplicate definition accepted")
	}
	sym, ok := inner.Lookup("x")
	if !ok || sym.Type != types.F64 {
		t.Errorf("inner lookup = %v", sym)
	}
	sym, ok = inner.Parent().Lookup("x")
	if !ok || sym.Kind != semantic.SymbolParam {
		t.Errorf("outer lookup = %v", sym)
	}
	if _, ok := inner.LookupLocal("y"); ok {
		t.Error("unexpected symbol y")
	}
}
