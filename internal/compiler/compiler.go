// Package compiler lowers checked pyxc units to SSA.
//
// Every local and parameter lives in a stack slot: reads are loads and
// writes are stores, so the only phis come from expressions whose
// branches both produce a value (if expressions, valued if statements and
// the short-circuit operators). A backend is expected to promote the
// slots to registers.
package compiler

import (
	"fmt"

	"github.com/kolkov/pyxc/internal/ast"
	"github.com/kolkov/pyxc/internal/runtime"
	"github.com/kolkov/pyxc/internal/semantic"
	"github.com/kolkov/pyxc/internal/ssa"
	"github.com/kolkov/pyxc/internal/token"
	"github.com/kolkov/pyxc/internal/types"
)

// CompileError represents a compilation error.
type CompileError struct {
	Pos     token.Position
	Message string
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s", e.Pos, e.Message)
	}
	return e.Message
}

// Registry is the prototype registry: it resolves the signature of a
// function that is called in a unit without being defined there.
type Registry interface {
	Lookup(name string) (*semantic.Signature, bool)
}

// Compile lowers one checked unit into a module of its own. A def or a
// top-level statement yields one function definition plus declarations
// of everything it calls; an extern yields a declaration; type and
// struct units yield an empty module.
func Compile(u *semantic.Unit, reg Registry) (mod *ssa.Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(*CompileError); ok {
				mod, err = nil, ce
			} else {
				panic(r) // Re-panic for non-compile errors
			}
		}
	}()

	mod = ssa.NewModule(UnitName(u))
	switch {
	case u.Func != nil:
		c := newCompiler(mod, reg, u.Func)
		c.compileFunc()
	case u.Sig != nil:
		mod.Declare(u.Sig.Name, u.Sig.Params, u.Sig.Result)
	}
	return mod, nil
}

// UnitName returns the name a unit's module is known by.
func UnitName(u *semantic.Unit) string {
	switch d := u.Decl.(type) {
	case *ast.FuncDecl:
		return d.Proto.Name
	case *ast.ExternDecl:
		return d.Proto.Name
	case *ast.TypeAliasDecl:
		return d.Name
	case *ast.StructDecl:
		return d.Name
	}
	return ""
}

// loop is the break and continue targets of an enclosing loop.
type loop struct {
	exit *ssa.Block
	next *ssa.Block
}

// compiler holds the state for lowering one function.
type compiler struct {
	mod *ssa.Module
	reg Registry
	fn  *semantic.Func

	f      *ssa.Func
	b      *ssa.Builder
	result *types.Type // type of the values ret returns

	scopes []map[string]ssa.Value // stack slots by name, innermost last
	loops  []loop
}

func newCompiler(mod *ssa.Module, reg Registry, fn *semantic.Func) *compiler {
	return &compiler{mod: mod, reg: reg, fn: fn, result: fn.Sig.Result}
}

func (c *compiler) errorf(pos token.Position, format string, args ...any) {
	panic(&CompileError{Pos: pos, Message: fmt.Sprintf(format, args...)})
}

// -----------------------------------------------------------------------------
// Scopes and loops
// -----------------------------------------------------------------------------

func (c *compiler) pushScope() {
	c.scopes = append(c.scopes, make(map[string]ssa.Value))
}

func (c *compiler) popScope() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

// local allocates a slot for a variable in the innermost scope.
func (c *compiler) local(name string, t *types.Type) ssa.Value {
	slot := c.b.Alloca(t, name)
	c.scopes[len(c.scopes)-1][name] = slot
	return slot
}

func (c *compiler) lookup(name string, pos token.Position) ssa.Value {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if slot, ok := c.scopes[i][name]; ok {
			return slot
		}
	}
	c.errorf(pos, "undefined variable %s", name)
	return nil
}

func (c *compiler) pushLoop(exit, next *ssa.Block) {
	c.loops = append(c.loops, loop{exit: exit, next: next})
}

func (c *compiler) popLoop() {
	c.loops = c.loops[:len(c.loops)-1]
}

// -----------------------------------------------------------------------------
// Functions
// -----------------------------------------------------------------------------

func (c *compiler) compileFunc() {
	fn := c.fn
	params := make([]*ssa.Param, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = &ssa.Param{Name: p.Name, Index: i, Typ: p.Type}
	}
	c.f = c.mod.NewFunc(fn.Name, params, c.result)
	c.b = ssa.NewBuilder(c.f)

	// Parameters and the body's top-level statements share one scope.
	c.pushScope()
	for _, p := range params {
		c.b.Store(p, c.local(p.Name, p.Typ))
	}

	if fn.Anon && !c.result.IsVoid() && isValued(fn.Body) {
		v := c.valueStmt(fn.Body.Stmts[0])
		if !c.b.Terminated() {
			c.b.Ret(c.convert(v, c.result))
		}
		return
	}

	c.stmts(fn.Body.Stmts)
	if !c.b.Terminated() {
		c.retDefault()
	}
}

// isValued reports whether an anonymous body is a single statement whose
// value the function returns.
func isValued(body *ast.BlockStmt) bool {
	if len(body.Stmts) != 1 {
		return false
	}
	switch s := body.Stmts[0].(type) {
	case *ast.ExprStmt:
		return s.X.Type().IsScalar()
	case *ast.IfStmt:
		return s.Ty != nil
	}
	return false
}

// retDefault returns the zero value of the function's result. main with
// a void result still returns an i32 exit status.
func (c *compiler) retDefault() {
	if c.result.IsVoid() {
		c.b.Ret(nil)
		return
	}
	c.b.Ret(ssa.ConstZero(c.result))
}

// declare makes a function callable from the unit, declaring it from the
// registry when the unit does not define it.
func (c *compiler) declare(name string, pos token.Position) *semantic.Signature {
	sig, ok := c.reg.Lookup(name)
	if !ok {
		c.errorf(pos, "unknown function %s", name)
	}
	if c.mod.Func(name) == nil {
		c.mod.Declare(name, sig.Params, sig.Result)
	}
	return sig
}

// declareHelper declares a runtime helper used by the lowering itself.
func (c *compiler) declareHelper(name string) *runtime.Func {
	f, ok := runtime.Lookup(name)
	if !ok {
		panic("compiler: missing runtime helper " + name)
	}
	if c.mod.Func(name) == nil {
		c.mod.Declare(name, f.Params, f.Result)
	}
	return f
}

// -----------------------------------------------------------------------------
// Statements
// -----------------------------------------------------------------------------

// stmts lowers a statement list. Statements after a terminator are
// unreachable and are not lowered.
func (c *compiler) stmts(list []ast.Stmt) {
	for _, s := range list {
		if c.b.Terminated() {
			return
		}
		c.compileStmt(s)
	}
}

// compileStmt lowers a statement.
func (c *compiler) compileStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		c.expr(s.X)

	case *ast.PrintStmt:
		c.compilePrint(s)

	case *ast.ReturnStmt:
		c.compileReturn(s)

	case *ast.BlockStmt:
		c.pushScope()
		c.stmts(s.Stmts)
		c.popScope()

	case *ast.DeclStmt:
		var init ssa.Value
		if s.Value != nil {
			init = c.convert(c.value(s.Value), s.VarType)
		} else if s.VarType.IsScalar() {
			init = ssa.ConstZero(s.VarType)
		}
		slot := c.local(s.Name, s.VarType)
		if init != nil {
			c.b.Store(init, slot)
		}

	case *ast.AssignStmt:
		addr := c.addr(s.Target)
		v := c.convert(c.value(s.Value), s.Target.Type())
		c.b.Store(v, addr)

	case *ast.IfStmt:
		c.compileIf(s)

	case *ast.MatchStmt:
		c.compileMatch(s)

	case *ast.ForStmt:
		c.compileFor(s.Var, s.VarType, s.Start, s.Limit, s.Step, func() {
			c.compileStmt(s.Body)
		})

	case *ast.WhileStmt:
		c.compileWhile(s)

	case *ast.DoWhileStmt:
		c.compileDoWhile(s)

	case *ast.BreakStmt:
		if len(c.loops) == 0 {
			c.errorf(s.Pos(), "break statement must be inside a loop")
		}
		c.b.Br(c.loops[len(c.loops)-1].exit)

	case *ast.ContinueStmt:
		if len(c.loops) == 0 {
			c.errorf(s.Pos(), "continue statement must be inside a loop")
		}
		c.b.Br(c.loops[len(c.loops)-1].next)

	default:
		panic(fmt.Sprintf("compiler: unexpected statement %T", stmt))
	}
}

// compilePrint writes the arguments separated by spaces and ends the
// line, calling the runtime helper that matches each argument's type.
func (c *compiler) compilePrint(s *ast.PrintStmt) {
	char := c.declareHelper(runtime.CharHelper)
	for i, arg := range s.Args {
		if i > 0 {
			c.b.Call(char.Name, char.Result, ssa.ConstFloat(types.F64, ' '))
		}
		v := c.value(arg)
		name := runtime.PrintHelper(v.Type())
		if name == "" {
			c.errorf(arg.Pos(), "cannot print value of type %s", v.Type())
		}
		h := c.declareHelper(name)
		c.b.Call(h.Name, h.Result, v)
	}
	c.b.Call(char.Name, char.Result, ssa.ConstFloat(types.F64, '\n'))
}

func (c *compiler) compileReturn(s *ast.ReturnStmt) {
	if s.Value == nil {
		c.retDefault()
		return
	}
	v := c.value(s.Value)
	if c.result.IsVoid() {
		c.b.Ret(nil)
		return
	}
	c.b.Ret(c.convert(v, c.result))
}

func (c *compiler) compileIf(s *ast.IfStmt) {
	cond := c.truth(c.value(s.Cond))
	then := c.b.NewBlock("then")
	merge := c.b.Reserve("ifcont")

	if s.Else == nil {
		c.b.CondBr(cond, then, merge)
		c.b.SetBlock(then)
		c.compileStmt(s.Then)
		if !c.b.Terminated() {
			c.b.Br(merge)
		}
		c.b.Place(merge)
		c.b.SetBlock(merge)
		return
	}

	els := c.b.Reserve("else")
	c.b.CondBr(cond, then, els)
	reached := false
	for _, br := range []struct {
		blk  *ssa.Block
		body ast.Stmt
	}{{then, s.Then}, {els, s.Else}} {
		if br.blk == els {
			c.b.Place(els)
		}
		c.b.SetBlock(br.blk)
		c.compileStmt(br.body)
		if !c.b.Terminated() {
			c.b.Br(merge)
			reached = true
		}
	}
	// Both branches left the function or the loop: the code after the
	// if is unreachable and the builder stays terminated.
	if reached {
		c.b.Place(merge)
		c.b.SetBlock(merge)
	}
}

func (c *compiler) compileMatch(s *ast.MatchStmt) {
	subject := c.value(s.Subject)
	st := subject.Type()

	var open []*ssa.Block
	var def *ast.CaseClause
	for _, clause := range s.Cases {
		if clause.IsDefault() {
			def = clause
			continue
		}
		body := c.b.NewBlock("case")
		for _, v := range clause.Values {
			eq := c.b.Compare(ssa.EQ, subject, c.convert(c.value(v), st))
			miss := c.b.NewBlock("case.next")
			c.b.CondBr(eq, body, miss)
			c.b.SetBlock(miss)
		}
		miss := c.b.Block()

		c.b.SetBlock(body)
		c.compileStmt(clause.Body)
		if !c.b.Terminated() {
			open = append(open, c.b.Block())
		}
		c.b.SetBlock(miss)
	}

	if def != nil {
		c.compileStmt(def.Body)
	}
	if !c.b.Terminated() {
		open = append(open, c.b.Block())
	}

	if len(open) == 0 {
		return
	}
	end := c.b.NewBlock("match.end")
	for _, blk := range open {
		c.b.SetBlock(blk)
		c.b.Br(end)
	}
	c.b.SetBlock(end)
}

// compileFor lowers for v in range(start, end, step). The loop variable
// is compared against end before every iteration, with > when step is a
// negative constant and < otherwise; continue jumps to the step.
func (c *compiler) compileFor(name string, vt *types.Type, start, end, step ast.Expr, body func()) {
	c.pushScope()
	defer c.popScope()

	first := c.convert(c.value(start), vt)
	slot := c.local(name, vt)
	c.b.Store(first, slot)

	condBlk := c.b.NewBlock("for.cond")
	bodyBlk := c.b.NewBlock("for.body")
	stepBlk := c.b.Reserve("for.step")
	exitBlk := c.b.Reserve("for.end")
	c.b.Br(condBlk)

	c.b.SetBlock(condBlk)
	pred := ssa.LT
	if step != nil && isNegative(step) {
		pred = ssa.GT
	}
	limit := c.convert(c.value(end), vt)
	c.b.CondBr(c.b.Compare(pred, c.b.Load(slot), limit), bodyBlk, exitBlk)

	c.b.SetBlock(bodyBlk)
	c.pushLoop(exitBlk, stepBlk)
	body()
	c.popLoop()
	if !c.b.Terminated() {
		c.b.Br(stepBlk)
	}

	c.b.Place(stepBlk)
	c.b.SetBlock(stepBlk)
	var inc ssa.Value
	if step != nil {
		inc = c.convert(c.value(step), vt)
	} else if vt.IsFloat() {
		inc = ssa.ConstFloat(vt, 1)
	} else {
		inc = ssa.ConstInt(vt, 1)
	}
	op := ssa.Add
	if vt.IsFloat() {
		op = ssa.FAdd
	}
	c.b.Store(c.b.Binary(op, c.b.Load(slot), inc), slot)
	c.b.Br(condBlk)

	c.b.Place(exitBlk)
	c.b.SetBlock(exitBlk)
}

// isNegative reports whether e is a negated numeric literal.
func isNegative(e ast.Expr) bool {
	switch n := e.(type) {
	case *ast.GroupExpr:
		return isNegative(n.X)
	case *ast.UnaryExpr:
		if n.Op == "+" {
			return isNegative(n.X)
		}
		return n.Op == "-" && isLiteral(n.X) && !isNegative(n.X)
	}
	return false
}

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

func (c *compiler) compileWhile(s *ast.WhileStmt) {
	condBlk := c.b.NewBlock("while.cond")
	bodyBlk := c.b.NewBlock("while.body")
	exitBlk := c.b.Reserve("while.end")
	c.b.Br(condBlk)

	c.b.SetBlock(condBlk)
	c.b.CondBr(c.truth(c.value(s.Cond)), bodyBlk, exitBlk)

	c.b.SetBlock(bodyBlk)
	c.pushLoop(exitBlk, condBlk)
	c.compileStmt(s.Body)
	c.popLoop()
	if !c.b.Terminated() {
		c.b.Br(condBlk)
	}
	c.b.Place(exitBlk)
	c.b.SetBlock(exitBlk)
}

func (c *compiler) compileDoWhile(s *ast.DoWhileStmt) {
	bodyBlk := c.b.NewBlock("do.body")
	condBlk := c.b.Reserve("do.cond")
	exitBlk := c.b.Reserve("do.end")
	c.b.Br(bodyBlk)

	c.b.SetBlock(bodyBlk)
	c.pushLoop(exitBlk, condBlk)
	c.compileStmt(s.Body)
	c.popLoop()
	if !c.b.Terminated() {
		c.b.Br(condBlk)
	}

	c.b.Place(condBlk)
	c.b.SetBlock(condBlk)
	c.b.CondBr(c.truth(c.value(s.Cond)), bodyBlk, exitBlk)
	c.b.Place(exitBlk)
	c.b.SetBlock(exitBlk)
}

// valueStmt lowers a statement that leaves a value behind: an expression
// statement, a block ending in one, or an if chain marked by the checker.
func (c *compiler) valueStmt(stmt ast.Stmt) ssa.Value {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		return c.value(s.X)
	case *ast.BlockStmt:
		c.pushScope()
		defer c.popScope()
		last := len(s.Stmts) - 1
		c.stmts(s.Stmts[:last])
		if c.b.Terminated() {
			return nil
		}
		return c.valueStmt(s.Stmts[last])
	case *ast.IfStmt:
		return c.valueIf(s)
	}
	panic(fmt.Sprintf("compiler: %T has no value", stmt))
}

// valueIf lowers an if chain whose branches all end in a value of type
// s.Ty and joins the values with a phi.
func (c *compiler) valueIf(s *ast.IfStmt) ssa.Value {
	cond := c.truth(c.value(s.Cond))
	then := c.b.NewBlock("then")
	els := c.b.Reserve("else")
	c.b.CondBr(cond, then, els)

	type incoming struct {
		v    ssa.Value
		from *ssa.Block
	}
	var in []incoming
	branch := func(blk *ssa.Block, body ast.Stmt) {
		c.b.SetBlock(blk)
		v := c.valueStmt(body)
		if !c.b.Terminated() {
			in = append(in, incoming{c.convert(v, s.Ty), c.b.Block()})
		}
	}
	branch(then, s.Then)
	c.b.Place(els)
	branch(els, s.Else)

	if len(in) == 0 {
		return nil
	}
	merge := c.b.NewBlock("ifcont")
	for _, e := range in {
		c.b.SetBlock(e.from)
		c.b.Br(merge)
	}
	c.b.SetBlock(merge)
	phi := c.b.Phi(s.Ty)
	for _, e := range in {
		phi.AddIncoming(e.v, e.from)
	}
	return phi
}
