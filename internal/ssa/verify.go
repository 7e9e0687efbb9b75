package ssa

import (
	"fmt"

	"github.com/kolkov/pyxc/internal/types"
)

// VerifyError reports a function that breaks the SSA contract.
type VerifyError struct {
	Func    string
	Block   string
	Message string
}

func (e *VerifyError) Error() string {
	if e.Block == "" {
		return fmt.Sprintf("ssa: @%s: %s", e.Func, e.Message)
	}
	return fmt.Sprintf("ssa: @%s: %s: %s", e.Func, e.Block, e.Message)
}

// Verify checks every function of m and every call against the
// functions m defines or declares.
func Verify(m *Module) error {
	for _, f := range m.Funcs {
		if err := verifyFunc(f, m); err != nil {
			return err
		}
	}
	return nil
}

// VerifyFunc checks one function without resolving its calls.
func VerifyFunc(f *Func) error {
	return verifyFunc(f, nil)
}

type verifier struct {
	fn     *Func
	mod    *Module
	blocks map[*Block]bool
	params map[*Param]bool
	instrs map[*Instr]bool
	block  *Block
}

func verifyFunc(f *Func, m *Module) (err error) {
	if f.IsDecl() {
		return nil
	}
	v := &verifier{
		fn:     f,
		mod:    m,
		blocks: make(map[*Block]bool),
		params: make(map[*Param]bool),
		instrs: make(map[*Instr]bool),
	}
	defer func() {
		if r := recover(); r != nil {
			if ve, ok := r.(*VerifyError); ok {
				err = ve
				return
			}
			panic(r)
		}
	}()
	v.check()
	return nil
}

func (v *verifier) fail(format string, args ...any) {
	e := &VerifyError{Func: v.fn.Name, Message: fmt.Sprintf(format, args...)}
	if v.block != nil {
		e.Block = v.block.Name
	}
	panic(e)
}

func (v *verifier) check() {
	for _, p := range v.fn.Params {
		v.params[p] = true
	}
	for _, b := range v.fn.Blocks {
		if v.blocks[b] {
			v.fail("block %s listed twice", b.Name)
		}
		v.blocks[b] = true
		for _, in := range b.Instrs {
			v.instrs[in] = true
		}
	}
	preds := v.fn.Preds()
	for _, b := range v.fn.Blocks {
		v.block = b
		if len(b.Instrs) == 0 {
			v.fail("empty block")
		}
		phis := true
		for i, in := range b.Instrs {
			if in.Block != b {
				v.fail("%s instruction belongs to another block", in.Op)
			}
			if in.Op == Phi {
				if !phis {
					v.fail("phi after non-phi instruction")
				}
				v.checkPhi(in, preds[b])
			} else {
				phis = false
			}
			last := i == len(b.Instrs)-1
			if in.IsTerminator() != last {
				if last {
					v.fail("block does not end in a terminator")
				}
				v.fail("%s in the middle of the block", in.Op)
			}
			v.checkInstr(in)
		}
	}
}

func (v *verifier) checkPhi(in *Instr, preds []*Block) {
	if len(in.Args) != len(in.Preds) {
		v.fail("phi has %d values for %d blocks", len(in.Args), len(in.Preds))
	}
	if len(in.Preds) != len(preds) {
		v.fail("phi has %d incoming blocks, block has %d predecessors", len(in.Preds), len(preds))
	}
	seen := make(map[*Block]bool)
	for _, p := range in.Preds {
		if seen[p] {
			v.fail("phi lists %s twice", p.Name)
		}
		seen[p] = true
	}
	for _, p := range preds {
		if !seen[p] {
			v.fail("phi has no value for predecessor %s", p.Name)
		}
	}
}

func (v *verifier) checkInstr(in *Instr) {
	if in.Typ == nil {
		v.fail("%s has no type", in.Op)
	}
	for _, a := range in.Args {
		v.checkOperand(in, a)
	}
	for _, t := range in.Targets {
		if !v.blocks[t] {
			v.fail("%s targets a block outside the function", in.Op)
		}
	}

	switch {
	case in.Op.IsBinary():
		v.arity(in, 2)
		v.same(in, in.Args[0].Type(), in.Args[1].Type())
		v.same(in, in.Typ, in.Args[0].Type())
		if in.Op.IsFloat() != in.Typ.IsFloat() || (!in.Typ.IsFloat() && !in.Typ.IsInteger() && !in.Typ.IsBool()) {
			v.fail("%s on %s", in.Op, in.Typ)
		}
	case in.Op.IsUnary():
		v.arity(in, 1)
		v.same(in, in.Typ, in.Args[0].Type())
		if in.Op.IsFloat() != in.Typ.IsFloat() {
			v.fail("%s on %s", in.Op, in.Typ)
		}
	}

	switch in.Op {
	case Alloca:
		if !in.Typ.IsPointer() || !types.Identical(in.Typ.Elem, in.Elem) {
			v.fail("alloca of %s has type %s", in.Elem, in.Typ)
		}
	case Load:
		v.arity(in, 1)
		v.pointerTo(in, in.Args[0], in.Typ)
	case Store:
		v.arity(in, 2)
		v.pointerTo(in, in.Args[1], in.Args[0].Type())
	case ElemAddr:
		v.arity(in, 2)
		if !in.Args[0].Type().IsPointer() || !in.Args[1].Type().IsInteger() {
			v.fail("elemaddr needs a pointer and an integer index")
		}
	case FieldAddr:
		v.arity(in, 1)
		if !in.Args[0].Type().IsPointer() {
			v.fail("fieldaddr needs a pointer")
		}
	case ICmp, FCmp:
		v.arity(in, 2)
		v.same(in, in.Args[0].Type(), in.Args[1].Type())
		if (in.Op == FCmp) != in.Args[0].Type().IsFloat() {
			v.fail("%s on %s", in.Op, in.Args[0].Type())
		}
		v.same(in, in.Typ, types.Bool)
	case Conv:
		v.arity(in, 1)
		if types.Conversion(in.Args[0].Type(), in.Typ) != in.Conv {
			v.fail("%s does not convert %s to %s", in.Conv, in.Args[0].Type(), in.Typ)
		}
	case Phi:
		for _, a := range in.Args {
			v.same(in, in.Typ, a.Type())
		}
	case Call:
		v.checkCall(in)
	case Br:
		if len(in.Targets) != 1 {
			v.fail("br needs one target")
		}
	case CondBr:
		v.arity(in, 1)
		if len(in.Targets) != 2 {
			v.fail("conditional br needs two targets")
		}
		v.same(in, in.Args[0].Type(), types.Bool)
	case Ret:
		switch {
		case v.fn.Result.IsVoid() && len(in.Args) != 0:
			v.fail("ret with a value in a void function")
		case !v.fn.Result.IsVoid() && len(in.Args) != 1:
			v.fail("ret without a value in a function returning %s", v.fn.Result)
		case len(in.Args) == 1:
			v.same(in, v.fn.Result, in.Args[0].Type())
		}
	}
}

func (v *verifier) checkCall(in *Instr) {
	if v.mod == nil {
		return
	}
	callee := v.mod.Func(in.Callee)
	if callee == nil {
		v.fail("call of undeclared function @%s", in.Callee)
	}
	if len(in.Args) != len(callee.Params) {
		v.fail("call of @%s with %d arguments, want %d", in.Callee, len(in.Args), len(callee.Params))
	}
	for i, a := range in.Args {
		v.same(in, callee.Params[i].Typ, a.Type())
	}
	v.same(in, callee.Result, in.Typ)
}

func (v *verifier) checkOperand(in *Instr, a Value) {
	switch a := a.(type) {
	case nil:
		v.fail("%s has a nil operand", in.Op)
	case *Param:
		if !v.params[a] {
			v.fail("%s uses a parameter of another function", in.Op)
		}
	case *Instr:
		if !v.instrs[a] {
			v.fail("%s uses a value not defined in the function", in.Op)
		}
		if !a.HasValue() {
			v.fail("%s uses the result of %s", in.Op, a.Op)
		}
	}
	if a.Type() == nil {
		v.fail("%s operand has no type", in.Op)
	}
}

func (v *verifier) arity(in *Instr, n int) {
	if len(in.Args) != n {
		v.fail("%s has %d operands, want %d", in.Op, len(in.Args), n)
	}
}

func (v *verifier) same(in *Instr, want, got *types.Type) {
	if !types.Identical(want, got) {
		v.fail("%s: type mismatch %s and %s", in.Op, want, got)
	}
}

func (v *verifier) pointerTo(in *Instr, addr Value, elem *types.Type) {
	t := addr.Type()
	if !t.IsPointer() || !types.Identical(t.Elem, elem) {
		v.fail("%s of %s through %s", in.Op, elem, t)
	}
}
