package semantic

import (
	"github.com/kolkov/pyxc/internal/ast"
	"github.com/kolkov/pyxc/internal/parser"
	"github.com/kolkov/pyxc/internal/token"
	"github.com/kolkov/pyxc/internal/types"
)

// Unit is one checked top-level form.
type Unit struct {
	Decl     ast.Decl
	Sig      *Signature // def and extern forms
	Func     *Func      // def forms and top-level statements
	Struct   *types.Type
	Warnings WarningList
}

// Func describes a checked function body.
type Func struct {
	Name   string
	Sig    *Signature
	Result *types.Type // declared result; main is called as returning i32
	Anon   bool
	Params []*Symbol
	Body   *ast.BlockStmt
}

// IsMain reports whether the function is the program entry point.
func (f *Func) IsMain() bool {
	return f.Name == "main" && !f.Anon
}

// Checker type-checks one function body. It annotates every expression
// with its type and every declaration with the type of its variable.
type Checker struct {
	env      *Env
	errors   ErrorList
	warnings WarningList

	scope  *SymbolTable
	fn     *Func
	result *types.Type // nil until an anonymous function's first return
	inLoop int
}

// Check checks one top-level form and records its declarations in env.
// A form with errors leaves env unchanged.
func (env *Env) Check(decl ast.Decl) (*Unit, error) {
	u := &Unit{Decl: decl}
	var errs ErrorList
	switch d := decl.(type) {
	case *ast.TypeAliasDecl:
		env.declareAlias(d, &errs)
	case *ast.StructDecl:
		u.Struct = env.declareStruct(d, &errs)
	case *ast.ExternDecl:
		u.Sig = env.declareExtern(d, &errs)
	case *ast.FuncDecl:
		c := &Checker{env: env}
		u.Func = c.checkFunc(d)
		if u.Func != nil {
			u.Sig = u.Func.Sig
		}
		errs = c.errors
		u.Warnings = c.warnings
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return u, nil
}

// CheckProgram checks every form of prog in order against a fresh
// environment. Forms with errors are left out of the returned units; the
// errors of all forms are returned together.
func CheckProgram(prog *ast.Program) ([]*Unit, error) {
	env := NewEnv()
	var units []*Unit
	var errs ErrorList
	for _, decl := range prog.Decls {
		u, err := env.Check(decl)
		if err != nil {
			errs = append(errs, err.(ErrorList)...)
			continue
		}
		units = append(units, u)
	}
	return units, errs.Err()
}

func (c *Checker) errorf(pos token.Position, format string, args ...any) {
	c.errors.Add(pos, format, args...)
}

func (c *Checker) pushScope(name string) {
	c.scope = NewSymbolTable(c.scope, name)
}

func (c *Checker) popScope() {
	c.scope = c.scope.Parent()
}

// declareLocal defines a local in the innermost scope. Shadowing an outer
// scope is allowed; a second declaration in the same scope is not.
func (c *Checker) declareLocal(name string, t *types.Type, pos token.Position) {
	if prev, ok := c.scope.LookupLocal(name); ok {
		c.errorf(pos, errRedeclared, name, prev.Pos)
		return
	}
	c.scope.Define(name, SymbolLocal, t, pos)
}

// -----------------------------------------------------------------------------
// Functions
// -----------------------------------------------------------------------------

func (c *Checker) checkFunc(d *ast.FuncDecl) *Func {
	env := c.env
	fn := &Func{Name: d.Proto.Name, Anon: d.Anon, Body: d.Body}

	var prev *Signature
	var wasDefined bool
	if d.Anon {
		fn.Sig = &Signature{Name: d.Proto.Name, Pos: d.Proto.NamePos}
	} else {
		sig := env.signature(d.Proto, &c.errors)
		if sig == nil {
			return nil
		}
		fn.Result = sig.Result
		if fn.IsMain() {
			sig.Result = types.I32
		}
		prev, _ = env.Lookup(sig.Name)
		wasDefined = env.Defined(sig.Name)
		if prev != nil && !env.AllowRedefine {
			switch {
			case wasDefined:
				c.errorf(d.Proto.NamePos, errFuncRedefined, sig.Name)
				return nil
			case !prev.Identical(sig):
				c.errorf(d.Proto.NamePos, errConflictingDecl, sig.Name)
				return nil
			}
		}
		fn.Sig = sig
		// Registered before the body so that the function can call itself.
		env.funcs[sig.Name] = sig
		env.defined[sig.Name] = true
		c.result = fn.Result
	}

	c.fn = fn
	c.scope = NewSymbolTable(nil, fn.Name)
	for i, p := range d.Proto.Params {
		sym := c.scope.Define(p.Name, SymbolParam, fn.Sig.Params[i], p.Pos)
		fn.Params = append(fn.Params, sym)
	}

	// The body's statements share the parameter scope, so a declaration
	// cannot redeclare a parameter.
	c.stmts(d.Body.Stmts)

	if d.Anon {
		if c.result == nil {
			c.result = types.Void
			if len(d.Body.Stmts) == 1 {
				if t := valueOf(d.Body.Stmts[0]); t != nil {
					c.result = t
				}
			}
		}
		fn.Result = c.result
		fn.Sig.Result = c.result
	}

	if len(c.errors) > 0 {
		if !d.Anon {
			if prev != nil {
				env.funcs[fn.Name] = prev
			} else {
				delete(env.funcs, fn.Name)
			}
			env.defined[fn.Name] = wasDefined
		}
		return nil
	}
	return fn
}

// valueOf returns the type of the value a statement leaves behind: an
// expression statement, or an if chain with an else whose every branch
// ends in one. Such a chain is marked with the joined type.
func valueOf(s ast.Stmt) *types.Type {
	switch s := s.(type) {
	case *ast.ExprStmt:
		if t := s.X.Type(); t.IsScalar() {
			return t
		}
	case *ast.BlockStmt:
		if len(s.Stmts) > 0 {
			return valueOf(s.Stmts[len(s.Stmts)-1])
		}
	case *ast.IfStmt:
		if s.Else == nil {
			return nil
		}
		a, b := valueOf(s.Then), valueOf(s.Else)
		if a == nil || b == nil {
			return nil
		}
		if x := tail(s.Then); isLiteral(x) && adapt(x, b) {
			a = b
		} else if y := tail(s.Else); isLiteral(y) && adapt(y, a) {
			b = a
		}
		if t := join(a, b); t != nil {
			s.Ty = t
			return t
		}
	}
	return nil
}

// tail returns the expression a branch ends in, or nil. A nested if
// chain is not a literal and yields nil.
func tail(s ast.Stmt) ast.Expr {
	switch s := s.(type) {
	case *ast.ExprStmt:
		return s.X
	case *ast.BlockStmt:
		if len(s.Stmts) > 0 {
			return tail(s.Stmts[len(s.Stmts)-1])
		}
	}
	return nil
}

// join returns the common type of two branch values, or nil.
func join(a, b *types.Type) *types.Type {
	switch {
	case types.Identical(a, b):
		return a
	case a.IsInteger() && b.IsInteger(), a.IsFloat() && b.IsFloat():
		return types.Promote(a, b)
	case a.IsPointer() && b.IsPointer():
		return a
	}
	return nil
}

// -----------------------------------------------------------------------------
// Statements
// -----------------------------------------------------------------------------

// stmts checks a statement list in the current scope and reports whether
// it always ends in return, break or continue.
func (c *Checker) stmts(list []ast.Stmt) bool {
	terminated := false
	for _, s := range list {
		if terminated {
			c.warnings.Add(s.Pos(), warnUnreachable)
			// Still checked so that every error is reported; the code
			// generator drops it.
			c.stmt(s)
			continue
		}
		terminated = c.stmt(s)
	}
	return terminated
}

func (c *Checker) stmt(s ast.Stmt) bool {
	return ast.AcceptStmt[bool](s, c)
}

func (c *Checker) VisitExprStmt(s *ast.ExprStmt) bool {
	c.expr(s.X)
	return false
}

func (c *Checker) VisitPrintStmt(s *ast.PrintStmt) bool {
	for _, arg := range s.Args {
		t := c.value(arg)
		if !t.IsInvalid() && !t.IsNumeric() {
			c.errorf(arg.Pos(), errPrintType, t)
		}
	}
	return false
}

func (c *Checker) VisitReturnStmt(s *ast.ReturnStmt) bool {
	if c.result == nil {
		// First return of an anonymous function fixes its result.
		c.result = types.Void
		if s.Value != nil {
			c.result = c.value(s.Value)
		}
		return true
	}
	if s.Value == nil {
		if !c.result.IsVoid() && !c.result.IsInvalid() {
			c.errorf(s.Pos(), errMissingReturnValue, c.result)
		}
		return true
	}
	if c.result.IsVoid() {
		c.errorf(s.Value.Pos(), errVoidReturnValue)
		c.expr(s.Value)
		return true
	}
	t := c.value(s.Value)
	if adapt(s.Value, c.result) {
		t = c.result
	}
	if !t.IsInvalid() && !c.result.IsInvalid() && !types.AssignableTo(t, c.result) {
		c.errorf(s.Value.Pos(), errReturnType, t, c.result)
	}
	return true
}

func (c *Checker) VisitBlockStmt(s *ast.BlockStmt) bool {
	c.pushScope("block")
	defer c.popScope()
	return c.stmts(s.Stmts)
}

func (c *Checker) VisitDeclStmt(s *ast.DeclStmt) bool {
	r := c.env.resolver(&c.errors)
	vt := r.resolve(s.Type)
	if vt.IsVoid() {
		c.errorf(s.NamePos, errVoidVariable, s.Name)
		vt = types.Invalid
	}
	if s.Value != nil {
		if !vt.IsInvalid() && !vt.IsScalar() {
			c.errorf(s.Value.Pos(), errInitAggregate, s.Name, vt)
			c.expr(s.Value)
		} else {
			c.assign(s.Value, vt)
		}
	}
	s.VarType = vt
	c.declareLocal(s.Name, vt, s.NamePos)
	return false
}

func (c *Checker) VisitAssignStmt(s *ast.AssignStmt) bool {
	tt := c.expr(s.Target)
	switch {
	case tt.IsInvalid():
		c.expr(s.Value)
	case !tt.IsScalar():
		c.errorf(s.Target.Pos(), errAssignAggregate, tt)
		c.expr(s.Value)
	default:
		c.assign(s.Value, tt)
	}
	return false
}

// assign checks a value stored into a location of type to.
func (c *Checker) assign(value ast.Expr, to *types.Type) {
	t := c.value(value)
	if adapt(value, to) {
		t = to
	}
	if !t.IsInvalid() && !to.IsInvalid() && !types.AssignableTo(t, to) {
		c.errorf(value.Pos(), errAssignType, t, to)
	}
}

func (c *Checker) VisitIfStmt(s *ast.IfStmt) bool {
	c.value(s.Cond)
	thenTerm := c.stmt(s.Then)
	if s.Else == nil {
		return false
	}
	elseTerm := c.stmt(s.Else)
	return thenTerm && elseTerm
}

func (c *Checker) VisitMatchStmt(s *ast.MatchStmt) bool {
	st := c.value(s.Subject)
	if !st.IsInvalid() && !st.IsInteger() {
		c.errorf(s.Subject.Pos(), errMatchSubject, st)
		st = types.Invalid
	}
	seen := make(map[int64]bool)
	terminated, hasDefault := true, false
	for _, clause := range s.Cases {
		if clause.IsDefault() {
			hasDefault = true
		}
		for _, v := range clause.Values {
			vt := c.value(v)
			if !st.IsInvalid() && adapt(v, st) {
				vt = st
			}
			if !vt.IsInvalid() && !vt.IsInteger() {
				c.errorf(v.Pos(), errCaseValue, vt)
				continue
			}
			if k, ok := constInt(v); ok {
				if st.IsInteger() && !types.FitsInt(st, k) {
					c.errorf(v.Pos(), errCaseRange, ast.String(v), st)
					continue
				}
				if seen[k] {
					c.errorf(v.Pos(), errDuplicateCase, ast.String(v))
				}
				seen[k] = true
			}
		}
		if !c.stmt(clause.Body) {
			terminated = false
		}
	}
	return terminated && hasDefault
}

// constInt evaluates a literal integer case value.
func constInt(e ast.Expr) (int64, bool) {
	switch n := e.(type) {
	case *ast.NumberLit:
		if !n.IsFloat {
			return n.Int, true
		}
	case *ast.GroupExpr:
		return constInt(n.X)
	case *ast.UnaryExpr:
		if n.Op == "-" {
			if k, ok := constInt(n.X); ok {
				return -k, true
			}
		}
	}
	return 0, false
}

func (c *Checker) VisitForStmt(s *ast.ForStmt) bool {
	s.VarType = c.rangeHeader(s.Start, s.Limit, s.Step)
	c.pushScope("for")
	defer c.popScope()
	c.scope.Define(s.Var, SymbolLocal, s.VarType, s.VarPos)
	c.inLoop++
	c.stmt(s.Body)
	c.inLoop--
	return false
}

// rangeHeader checks range(start, end, step) and returns the type of the
// loop variable: the type of start, or of end when start is a literal.
func (c *Checker) rangeHeader(start, end, step ast.Expr) *types.Type {
	vt := c.value(start)
	et := c.value(end)
	if isLiteral(start) && !isLiteral(end) && adapt(start, et) {
		vt = et
	}
	if vt.IsInvalid() {
		return types.Invalid
	}
	if !vt.IsNumeric() {
		c.errorf(start.Pos(), errRangeType, vt)
		return types.Invalid
	}
	c.rangeBound(end, et, vt)
	if step != nil {
		c.rangeBound(step, c.value(step), vt)
	}
	return vt
}

func (c *Checker) rangeBound(e ast.Expr, t, vt *types.Type) {
	if adapt(e, vt) {
		return
	}
	if !t.IsInvalid() && !types.AssignableTo(t, vt) {
		c.errorf(e.Pos(), errAssignType, t, vt)
	}
}

func (c *Checker) VisitWhileStmt(s *ast.WhileStmt) bool {
	c.value(s.Cond)
	c.inLoop++
	c.stmt(s.Body)
	c.inLoop--
	return false
}

func (c *Checker) VisitDoWhileStmt(s *ast.DoWhileStmt) bool {
	c.inLoop++
	c.stmt(s.Body)
	c.inLoop--
	c.value(s.Cond)
	return false
}

func (c *Checker) VisitBreakStmt(s *ast.BreakStmt) bool {
	if c.inLoop == 0 {
		c.errorf(s.Pos(), errBreakOutsideLoop)
	}
	return true
}

func (c *Checker) VisitContinueStmt(s *ast.ContinueStmt) bool {
	if c.inLoop == 0 {
		c.errorf(s.Pos(), errContinueOutsideLoop)
	}
	return true
}

// -----------------------------------------------------------------------------
// Expressions
// -----------------------------------------------------------------------------

// expr checks e in any position and returns its type.
func (c *Checker) expr(e ast.Expr) *types.Type {
	t := ast.AcceptExpr[*types.Type](e, c)
	e.SetType(t)
	return t
}

// value checks e where a scalar value is required.
func (c *Checker) value(e ast.Expr) *types.Type {
	t := c.expr(e)
	switch {
	case t.IsInvalid():
	case t.IsVoid():
		c.errorf(e.Pos(), errVoidValue, ast.String(e))
		return types.Invalid
	case !t.IsScalar():
		c.errorf(e.Pos(), errNotScalar, t)
		return types.Invalid
	}
	return t
}

// isLiteral reports whether e is a numeric literal, possibly signed or
// parenthesized.
func isLiteral(e ast.Expr) bool {
	switch n := e.(type) {
	case *ast.NumberLit:
		return true
	case *ast.GroupExpr:
		return isLiteral(n.X)
	case *ast.UnaryExpr:
		return (n.Op == "-" || n.Op == "+") && isLiteral(n.X)
	}
	return false
}

// adapt gives a literal the numeric type its context expects. Integer
// literals adapt to any numeric type, float literals only to floats.
// It reports whether e now has type want.
func adapt(e ast.Expr, want *types.Type) bool {
	if !want.IsNumeric() {
		return false
	}
	switch n := e.(type) {
	case *ast.NumberLit:
		if n.IsFloat && !want.IsFloat() {
			return false
		}
		n.SetType(want)
		return true
	case *ast.GroupExpr:
		if adapt(n.X, want) {
			n.SetType(want)
			return true
		}
	case *ast.UnaryExpr:
		if (n.Op == "-" || n.Op == "+") && adapt(n.X, want) {
			n.SetType(want)
			return true
		}
	}
	return false
}

func (c *Checker) VisitNumberLit(n *ast.NumberLit) *types.Type {
	if n.IsFloat {
		return types.F64
	}
	return types.I64
}

func (c *Checker) VisitIdent(n *ast.Ident) *types.Type {
	sym, ok := c.scope.Lookup(n.Name)
	if !ok {
		c.errorf(n.Pos(), errUnknownVar, n.Name)
		return types.Invalid
	}
	return sym.Type
}

func (c *Checker) VisitGroupExpr(n *ast.GroupExpr) *types.Type {
	return c.expr(n.X)
}

func (c *Checker) VisitUnaryExpr(n *ast.UnaryExpr) *types.Type {
	if !parser.IsBuiltinUnary(n.Op) {
		n.User = true
		return c.call(ast.OperatorName(ast.ProtoUnary, n.Op), n.Pos(), []ast.Expr{n.X}, true)
	}
	t := c.value(n.X)
	if t.IsInvalid() {
		return types.Invalid
	}
	switch n.Op {
	case "-", "+":
		if !t.IsNumeric() {
			c.errorf(n.Pos(), errNumericOperand, n.Op, t)
			return types.Invalid
		}
		return t
	case "~":
		if !t.IsInteger() {
			c.errorf(n.Pos(), errIntegerOperand, n.Op, t)
			return types.Invalid
		}
		return t
	}
	// ! and not
	return types.I64
}

func (c *Checker) VisitBinaryExpr(n *ast.BinaryExpr) *types.Type {
	if !parser.IsBuiltinBinary(n.Op) {
		n.User = true
		return c.call(ast.OperatorName(ast.ProtoBinary, n.Op), n.OpPos, []ast.Expr{n.X, n.Y}, true)
	}
	xt := c.value(n.X)
	yt := c.value(n.Y)
	if xt.IsInvalid() || yt.IsInvalid() {
		return types.Invalid
	}
	switch n.Op {
	case "and", "or":
		return types.I64
	}

	if isLiteral(n.X) && adapt(n.X, yt) {
		xt = yt
	} else if isLiteral(n.Y) && adapt(n.Y, xt) {
		yt = xt
	}

	switch n.Op {
	case "==", "!=", "<", ">", "<=", ">=":
		if xt.IsPointer() && yt.IsPointer() {
			return types.I64
		}
		if c.numeric(n, xt, yt).IsInvalid() {
			return types.Invalid
		}
		return types.I64
	case "%", "&", "|", "^", "<<", ">>":
		if !xt.IsInteger() || !yt.IsInteger() {
			c.errorf(n.OpPos, errIntegerOperands, n.Op, xt, yt)
			return types.Invalid
		}
		return types.Promote(xt, yt)
	}
	return c.numeric(n, xt, yt)
}

// numeric returns the promoted type of two arithmetic operands.
func (c *Checker) numeric(n *ast.BinaryExpr, xt, yt *types.Type) *types.Type {
	if (xt.IsInteger() && yt.IsInteger()) || (xt.IsFloat() && yt.IsFloat()) {
		return types.Promote(xt, yt)
	}
	c.errorf(n.OpPos, errMismatched, xt, yt, n.Op)
	return types.Invalid
}

func (c *Checker) VisitCallExpr(n *ast.CallExpr) *types.Type {
	return c.call(n.Name, n.NamePos, n.Args, false)
}

// call checks a call of a named function or of a user operator.
func (c *Checker) call(name string, pos token.Position, args []ast.Expr, operator bool) *types.Type {
	sig, ok := c.env.Lookup(name)
	if !ok {
		for _, arg := range args {
			c.expr(arg)
		}
		if operator {
			c.errorf(pos, errUnknownOperator, name)
		} else {
			c.errorf(pos, errUnknownFunc, name)
		}
		return types.Invalid
	}
	if len(args) != len(sig.Params) {
		for _, arg := range args {
			c.expr(arg)
		}
		c.errorf(pos, errArgCount, name, len(sig.Params), len(args))
		return types.Invalid
	}
	for i, arg := range args {
		pt := sig.Params[i]
		t := c.value(arg)
		if adapt(arg, pt) {
			t = pt
		}
		if !t.IsInvalid() && !types.AssignableTo(t, pt) {
			c.errorf(arg.Pos(), errArgType, t, pt, i+1, name)
		}
	}
	return sig.Result
}

func (c *Checker) VisitAddrExpr(n *ast.AddrExpr) *types.Type {
	t := c.expr(n.X)
	if t.IsInvalid() {
		return types.Invalid
	}
	if !ast.IsLValue(n.X) {
		c.errorf(n.X.Pos(), errNotAddressable)
		return types.Invalid
	}
	return types.NewPointer(t)
}

func (c *Checker) VisitIndexExpr(n *ast.IndexExpr) *types.Type {
	bt := c.expr(n.X)
	it := c.value(n.Index)
	if bt.IsInvalid() {
		return types.Invalid
	}
	if !bt.IsIndexable() {
		c.errorf(n.X.Pos(), errNotIndexable, bt)
		return types.Invalid
	}
	if bt.Elem.IsVoid() {
		c.errorf(n.Pos(), errVoidIndex)
		return types.Invalid
	}
	if !it.IsInvalid() && !it.IsInteger() {
		c.errorf(n.Index.Pos(), errIndexNotInteger, it)
		return types.Invalid
	}
	return bt.Elem
}

func (c *Checker) VisitMemberExpr(n *ast.MemberExpr) *types.Type {
	bt := c.expr(n.X)
	if bt.IsInvalid() {
		return types.Invalid
	}
	st := bt
	if st.IsPointer() {
		st = st.Elem
	}
	if !st.IsStruct() {
		c.errorf(n.X.Pos(), errNotStruct, bt)
		return types.Invalid
	}
	_, ft, ok := st.Field(n.Field)
	if !ok {
		c.errorf(n.FieldPos, errUnknownField, n.Field, st.Name, st.FieldNames())
		return types.Invalid
	}
	return ft
}

func (c *Checker) VisitIfExpr(n *ast.IfExpr) *types.Type {
	c.value(n.Cond)
	a := c.value(n.Then)
	b := c.value(n.Else)
	if a.IsInvalid() || b.IsInvalid() {
		return types.Invalid
	}
	if isLiteral(n.Then) && adapt(n.Then, b) {
		a = b
	} else if isLiteral(n.Else) && adapt(n.Else, a) {
		b = a
	}
	t := join(a, b)
	if t == nil {
		c.errorf(n.Pos(), errBranchTypes, a, b)
		return types.Invalid
	}
	return t
}

func (c *Checker) VisitForExpr(n *ast.ForExpr) *types.Type {
	n.VarType = c.rangeHeader(n.Start, n.Limit, n.Step)
	c.pushScope("for")
	defer c.popScope()
	c.scope.Define(n.Var, SymbolLocal, n.VarType, n.VarPos)
	c.expr(n.Body)
	return types.I64
}

func (c *Checker) VisitVarExpr(n *ast.VarExpr) *types.Type {
	c.pushScope("var")
	defer c.popScope()
	for _, b := range n.Vars {
		b.Type = types.I64
		if b.Init != nil {
			b.Type = c.value(b.Init)
		}
		c.declareLocal(b.Name, b.Type, b.Pos)
	}
	return c.expr(n.Body)
}

// Ensure the checker handles every node kind.
var (
	_ ast.ExprVisitor[*types.Type] = (*Checker)(nil)
	_ ast.StmtVisitor[bool]        = (*Checker)(nil)
)
