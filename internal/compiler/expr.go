package compiler

import (
	"fmt"

	"github.com/kolkov/pyxc/internal/ast"
	"github.com/kolkov/pyxc/internal/ssa"
	"github.com/kolkov/pyxc/internal/token"
	"github.com/kolkov/pyxc/internal/types"
)

// comparisons maps comparison operators to predicates.
var comparisons = map[string]ssa.Pred{
	"==": ssa.EQ,
	"!=": ssa.NE,
	"<":  ssa.LT,
	"<=": ssa.LE,
	">":  ssa.GT,
	">=": ssa.GE,
}

// expr lowers an expression. A struct or array location yields its
// address; a call of a void function yields the call itself.
func (c *compiler) expr(e ast.Expr) ssa.Value {
	switch n := e.(type) {
	case *ast.NumberLit:
		t := n.Type()
		if t.IsFloat() {
			f := n.Float
			if !n.IsFloat {
				f = float64(n.Int)
			}
			return ssa.ConstFloat(t, f)
		}
		return ssa.ConstInt(t, n.Int)

	case *ast.Ident:
		slot := c.lookup(n.Name, n.Pos())
		if n.Type().IsScalar() {
			return c.b.Load(slot)
		}
		return slot

	case *ast.GroupExpr:
		return c.expr(n.X)

	case *ast.UnaryExpr:
		return c.unary(n)

	case *ast.BinaryExpr:
		return c.binary(n)

	case *ast.CallExpr:
		return c.call(n.Name, n.NamePos, n.Args)

	case *ast.AddrExpr:
		return c.addr(n.X)

	case *ast.IndexExpr, *ast.MemberExpr:
		a := c.addr(e)
		if e.Type().IsScalar() {
			return c.b.Load(a)
		}
		return a

	case *ast.IfExpr:
		return c.ifExpr(n)

	case *ast.ForExpr:
		c.compileFor(n.Var, n.VarType, n.Start, n.Limit, n.Step, func() {
			c.expr(n.Body)
		})
		return ssa.ConstInt(types.I64, 0)

	case *ast.VarExpr:
		return c.varExpr(n)
	}
	panic(fmt.Sprintf("compiler: unexpected expression %T", e))
}

// value lowers an expression used as a scalar operand.
func (c *compiler) value(e ast.Expr) ssa.Value {
	v := c.expr(e)
	if in, ok := v.(*ssa.Instr); ok && !in.HasValue() {
		c.errorf(e.Pos(), "%s is used as a value but has no value", ast.String(e))
	}
	return v
}

// convert converts v to type to following the promotion table.
func (c *compiler) convert(v ssa.Value, to *types.Type) ssa.Value {
	return c.b.Convert(v, to)
}

// truth tests a scalar against zero and returns an i1.
func (c *compiler) truth(v ssa.Value) ssa.Value {
	if v.Type().IsBool() {
		return v
	}
	return c.b.Compare(ssa.NE, v, ssa.ConstZero(v.Type()))
}

// addr lowers a storage location to its address.
func (c *compiler) addr(e ast.Expr) ssa.Value {
	switch n := e.(type) {
	case *ast.Ident:
		return c.lookup(n.Name, n.Pos())

	case *ast.GroupExpr:
		return c.addr(n.X)

	case *ast.IndexExpr:
		bt := n.X.Type()
		var base ssa.Value
		if bt.IsPointer() {
			base = c.value(n.X)
		} else {
			base = c.addr(n.X)
		}
		index := c.convert(c.value(n.Index), types.I64)
		return c.b.ElemAddr(base, index, bt.Elem)

	case *ast.MemberExpr:
		st := n.X.Type()
		var base ssa.Value
		if st.IsPointer() {
			base = c.value(n.X)
			st = st.Elem
		} else {
			base = c.addr(n.X)
		}
		i, _, ok := st.Field(n.Field)
		if !ok {
			c.errorf(n.FieldPos, "unknown field %s on struct %s", n.Field, st)
		}
		return c.b.FieldAddr(base, st, i)
	}
	c.errorf(e.Pos(), "addr() requires an addressable expression")
	return nil
}

func (c *compiler) unary(n *ast.UnaryExpr) ssa.Value {
	if n.User {
		return c.call(ast.OperatorName(ast.ProtoUnary, n.Op), n.Pos(), []ast.Expr{n.X})
	}
	x := c.value(n.X)
	switch n.Op {
	case "-":
		x = c.convert(x, n.Type())
		op := ssa.Neg
		if x.Type().IsFloat() {
			op = ssa.FNeg
		}
		// Negative literals stay constants.
		if k, ok := x.(*ssa.Const); ok {
			return ssa.NewConst(ssa.EvalUnary(op, k.Val))
		}
		return c.b.Unary(op, x)
	case "+":
		return c.convert(x, n.Type())
	case "~":
		return c.b.Unary(ssa.Not, x)
	}
	// ! and not
	isZero := c.b.Compare(ssa.EQ, x, ssa.ConstZero(x.Type()))
	return c.b.Convert(isZero, types.I64)
}

func (c *compiler) binary(n *ast.BinaryExpr) ssa.Value {
	if n.User {
		return c.call(ast.OperatorName(ast.ProtoBinary, n.Op), n.OpPos, []ast.Expr{n.X, n.Y})
	}
	if n.Op == "and" || n.Op == "or" {
		return c.logical(n)
	}

	x := c.value(n.X)
	y := c.value(n.Y)
	if pred, ok := comparisons[n.Op]; ok {
		t := x.Type()
		if !t.IsPointer() {
			t = types.Promote(x.Type(), y.Type())
		}
		cmp := c.b.Compare(pred, c.convert(x, t), c.convert(y, t))
		return c.b.Convert(cmp, types.I64)
	}

	t := n.Type()
	return c.b.Binary(arithOp(n.Op, t), c.convert(x, t), c.convert(y, t))
}

// arithOp selects the instruction for an arithmetic or bitwise operator
// on operands of type t.
func arithOp(op string, t *types.Type) ssa.Op {
	float := t.IsFloat()
	signed := t.IsInteger() && t.Signed
	switch op {
	case "+":
		if float {
			return ssa.FAdd
		}
		return ssa.Add
	case "-":
		if float {
			return ssa.FSub
		}
		return ssa.Sub
	case "*":
		if float {
			return ssa.FMul
		}
		return ssa.Mul
	case "/":
		switch {
		case float:
			return ssa.FDiv
		case signed:
			return ssa.SDiv
		}
		return ssa.UDiv
	case "%":
		switch {
		case float:
			return ssa.FRem
		case signed:
			return ssa.SRem
		}
		return ssa.URem
	case "&":
		return ssa.And
	case "|":
		return ssa.Or
	case "^":
		return ssa.Xor
	case "<<":
		return ssa.Shl
	case ">>":
		if signed {
			return ssa.AShr
		}
		return ssa.LShr
	}
	panic("compiler: unknown operator " + op)
}

// logical lowers and/or. The right operand runs only when the left one
// does not decide the result; the outcome is joined by an i1 phi.
func (c *compiler) logical(n *ast.BinaryExpr) ssa.Value {
	lhs := c.truth(c.value(n.X))
	from := c.b.Block()
	rhsBlk := c.b.NewBlock(n.Op + ".rhs")
	end := c.b.Reserve(n.Op + ".end")

	decided := n.Op == "or" // result when the left operand decides
	if decided {
		c.b.CondBr(lhs, end, rhsBlk)
	} else {
		c.b.CondBr(lhs, rhsBlk, end)
	}

	c.b.SetBlock(rhsBlk)
	rhs := c.truth(c.value(n.Y))
	rhsEnd := c.b.Block()
	c.b.Br(end)

	c.b.Place(end)
	c.b.SetBlock(end)
	phi := c.b.Phi(types.Bool)
	phi.AddIncoming(ssa.NewConst(types.Truth(decided)), from)
	phi.AddIncoming(rhs, rhsEnd)
	return c.b.Convert(phi, types.I64)
}

// call lowers a call of a named function or user operator, converting
// each argument to its parameter type.
func (c *compiler) call(name string, pos token.Position, args []ast.Expr) ssa.Value {
	sig := c.declare(name, pos)
	if len(args) != len(sig.Params) {
		c.errorf(pos, "function %s expects %d arguments, got %d", name, len(sig.Params), len(args))
	}
	vals := make([]ssa.Value, len(args))
	for i, arg := range args {
		vals[i] = c.convert(c.value(arg), sig.Params[i])
	}
	return c.b.Call(name, sig.Result, vals...)
}

func (c *compiler) ifExpr(n *ast.IfExpr) ssa.Value {
	t := n.Type()
	cond := c.truth(c.value(n.Cond))
	then := c.b.NewBlock("then")
	els := c.b.Reserve("else")
	merge := c.b.Reserve("ifcont")
	c.b.CondBr(cond, then, els)

	c.b.SetBlock(then)
	tv := c.convert(c.value(n.Then), t)
	thenEnd := c.b.Block()
	c.b.Br(merge)

	c.b.Place(els)
	c.b.SetBlock(els)
	ev := c.convert(c.value(n.Else), t)
	elseEnd := c.b.Block()
	c.b.Br(merge)

	c.b.Place(merge)
	c.b.SetBlock(merge)
	phi := c.b.Phi(t)
	phi.AddIncoming(tv, thenEnd)
	phi.AddIncoming(ev, elseEnd)
	return phi
}

// varExpr lowers var a = x, b = y in body. Each binding is visible to the
// bindings after it and to the body.
func (c *compiler) varExpr(n *ast.VarExpr) ssa.Value {
	c.pushScope()
	defer c.popScope()
	for _, b := range n.Vars {
		var init ssa.Value = ssa.ConstZero(b.Type)
		if b.Init != nil {
			init = c.convert(c.value(b.Init), b.Type)
		}
		c.b.Store(init, c.local(b.Name, b.Type))
	}
	return c.expr(n.Body)
}
