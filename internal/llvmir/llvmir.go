// Package llvmir translates pyxc SSA modules into LLVM IR so that a
// native toolchain (llc, clang) can take over where the interpreter
// stops.
package llvmir

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/kolkov/pyxc/internal/ssa"
	"github.com/kolkov/pyxc/internal/types"
)

// Error reports an SSA construct that has no LLVM counterpart.
type Error struct {
	Func    string
	Message string
}

func (e *Error) Error() string {
	if e.Func == "" {
		return "llvm: " + e.Message
	}
	return fmt.Sprintf("llvm: in %s: %s", e.Func, e.Message)
}

// Emit translates modules into a single LLVM module. Functions are merged
// by name: a definition replaces a declaration, and a later definition
// replaces an earlier one.
func Emit(name string, mods ...*ssa.Module) (m *ir.Module, err error) {
	e := &emitter{
		mod:     ir.NewModule(),
		structs: make(map[string]*lltypes.StructType),
		funcs:   make(map[string]*ir.Func),
	}
	e.mod.SourceFilename = name

	defer func() {
		if r := recover(); r != nil {
			if ee, ok := r.(*Error); ok {
				m, err = nil, ee
				return
			}
			panic(r)
		}
	}()

	var order []string
	final := make(map[string]*ssa.Func)
	for _, sm := range mods {
		for _, f := range sm.Funcs {
			prev, seen := final[f.Name]
			if !seen {
				order = append(order, f.Name)
			}
			if !seen || !f.IsDecl() || prev.IsDecl() {
				final[f.Name] = f
			}
		}
	}

	for _, n := range order {
		e.declare(final[n])
	}
	for _, n := range order {
		if f := final[n]; !f.IsDecl() {
			e.define(f, e.funcs[n])
		}
	}
	return e.mod, nil
}

// String is like Emit but returns the textual IR.
func String(name string, mods ...*ssa.Module) (string, error) {
	m, err := Emit(name, mods...)
	if err != nil {
		return "", err
	}
	return m.String(), nil
}

type emitter struct {
	mod     *ir.Module
	structs map[string]*lltypes.StructType
	funcs   map[string]*ir.Func

	// per function
	fn     string
	blocks map[*ssa.Block]*ir.Block
	values map[*ssa.Instr]value.Value
	params map[*ssa.Param]*ir.Param
}

func (e *emitter) fail(format string, args ...any) {
	panic(&Error{Func: e.fn, Message: fmt.Sprintf(format, args...)})
}

func (e *emitter) declare(f *ssa.Func) {
	params := make([]*ir.Param, len(f.Params))
	for i, p := range f.Params {
		params[i] = ir.NewParam(p.Name, e.typ(p.Typ))
	}
	e.funcs[f.Name] = e.mod.NewFunc(f.Name, e.typ(f.Result), params...)
}

// typ maps a pyxc type to its LLVM type. Struct types become named type
// definitions of the module.
func (e *emitter) typ(t *types.Type) lltypes.Type {
	switch t.Kind {
	case types.KindVoid:
		return lltypes.Void
	case types.KindBool:
		return lltypes.I1
	case types.KindInt:
		return lltypes.NewInt(uint64(t.Bits))
	case types.KindFloat:
		if t.Bits == 32 {
			return lltypes.Float
		}
		return lltypes.Double
	case types.KindPointer:
		if t.Elem.IsVoid() {
			return lltypes.I8Ptr
		}
		return lltypes.NewPointer(e.typ(t.Elem))
	case types.KindArray:
		return lltypes.NewArray(uint64(t.Len), e.typ(t.Elem))
	case types.KindStruct:
		if st, ok := e.structs[t.Name]; ok {
			return st
		}
		st := &lltypes.StructType{TypeName: t.Name}
		e.structs[t.Name] = st
		e.mod.TypeDefs = append(e.mod.TypeDefs, st)
		for _, f := range t.Fields {
			st.Fields = append(st.Fields, e.typ(f.Type))
		}
		return st
	}
	e.fail("no LLVM type for %s", t)
	return nil
}

func (e *emitter) define(f *ssa.Func, lf *ir.Func) {
	e.fn = f.Name
	e.blocks = make(map[*ssa.Block]*ir.Block, len(f.Blocks))
	e.values = make(map[*ssa.Instr]value.Value)
	e.params = make(map[*ssa.Param]*ir.Param, len(f.Params))
	for i, p := range f.Params {
		e.params[p] = lf.Params[i]
	}
	for _, b := range f.Blocks {
		e.blocks[b] = lf.NewBlock(b.Name)
	}

	// Definitions dominate their uses, so reverse postorder sees every
	// operand before it is used. Phi operands are filled in afterwards.
	type pendingPhi struct {
		in  *ssa.Instr
		phi *ir.InstPhi
	}
	var phis []pendingPhi
	for _, b := range reversePostorder(f) {
		lb := e.blocks[b]
		for _, in := range b.Instrs {
			if in.Op == ssa.Phi {
				// Incoming values are added once every block is translated.
				phi := &ir.InstPhi{Typ: e.typ(in.Typ)}
				lb.Insts = append(lb.Insts, phi)
				e.values[in] = phi
				phis = append(phis, pendingPhi{in, phi})
				continue
			}
			e.instr(lb, in)
		}
	}
	for _, p := range phis {
		for i, v := range p.in.Args {
			p.phi.Incs = append(p.phi.Incs, ir.NewIncoming(e.operand(v), e.blocks[p.in.Preds[i]]))
		}
	}

	// Blocks never reached from the entry still need a terminator.
	for _, lb := range lf.Blocks {
		if lb.Term == nil {
			lb.NewUnreachable()
		}
	}
}

// reversePostorder returns the blocks reachable from the entry in reverse
// postorder, followed by the unreachable ones in their original order.
func reversePostorder(f *ssa.Func) []*ssa.Block {
	seen := make(map[*ssa.Block]bool, len(f.Blocks))
	var post []*ssa.Block
	var visit func(b *ssa.Block)
	visit = func(b *ssa.Block) {
		seen[b] = true
		for _, s := range b.Succs() {
			if !seen[s] {
				visit(s)
			}
		}
		post = append(post, b)
	}
	visit(f.Entry())

	order := make([]*ssa.Block, 0, len(f.Blocks))
	for i := len(post) - 1; i >= 0; i-- {
		order = append(order, post[i])
	}
	for _, b := range f.Blocks {
		if !seen[b] {
			order = append(order, b)
		}
	}
	return order
}

func (e *emitter) operand(v ssa.Value) value.Value {
	switch v := v.(type) {
	case *ssa.Const:
		return e.constant(v.Val)
	case *ssa.Param:
		if p, ok := e.params[v]; ok {
			return p
		}
		e.fail("parameter %s used outside its function", v.Name)
	case *ssa.Instr:
		if lv, ok := e.values[v]; ok {
			return lv
		}
		e.fail("%s used before it is defined", v.Op)
	}
	e.fail("unknown operand %T", v)
	return nil
}

func (e *emitter) constant(v types.Value) constant.Constant {
	t := v.Type()
	switch t.Kind {
	case types.KindBool:
		return constant.NewBool(v.IsTrue())
	case types.KindInt:
		return constant.NewInt(e.typ(t).(*lltypes.IntType), v.Int())
	case types.KindFloat:
		return constant.NewFloat(e.typ(t).(*lltypes.FloatType), v.Float())
	case types.KindPointer:
		pt := e.typ(t).(*lltypes.PointerType)
		if v.Bits() == 0 {
			return constant.NewNull(pt)
		}
		return constant.NewIntToPtr(constant.NewInt(lltypes.I64, int64(v.Bits())), pt)
	}
	e.fail("no LLVM constant for %s", t)
	return nil
}

func (e *emitter) callee(in *ssa.Instr) *ir.Func {
	if f, ok := e.funcs[in.Callee]; ok {
		return f
	}
	params := make([]*ir.Param, len(in.Args))
	for i, a := range in.Args {
		params[i] = ir.NewParam("", e.typ(a.Type()))
	}
	f := e.mod.NewFunc(in.Callee, e.typ(in.Typ), params...)
	e.funcs[in.Callee] = f
	return f
}

func (e *emitter) instr(b *ir.Block, in *ssa.Instr) {
	arg := func(i int) value.Value { return e.operand(in.Args[i]) }
	var v value.Value

	switch in.Op {
	case ssa.Alloca:
		v = b.NewAlloca(e.typ(in.Elem))
	case ssa.Load:
		v = b.NewLoad(e.typ(in.Typ), arg(0))
	case ssa.Store:
		b.NewStore(arg(0), arg(1))
	case ssa.ElemAddr:
		base := in.Args[0].Type().Elem
		if base.IsArray() {
			v = b.NewGetElementPtr(e.typ(base), arg(0), constant.NewInt(lltypes.I64, 0), arg(1))
		} else {
			v = b.NewGetElementPtr(e.typ(in.Elem), arg(0), arg(1))
		}
	case ssa.FieldAddr:
		st := in.Args[0].Type().Elem
		i, _, ok := st.Field(in.Field)
		if !ok {
			e.fail("unknown field %s of %s", in.Field, st)
		}
		v = b.NewGetElementPtr(e.typ(st), arg(0), constant.NewInt(lltypes.I32, 0), constant.NewInt(lltypes.I32, int64(i)))

	case ssa.Add:
		v = b.NewAdd(arg(0), arg(1))
	case ssa.Sub:
		v = b.NewSub(arg(0), arg(1))
	case ssa.Mul:
		v = b.NewMul(arg(0), arg(1))
	case ssa.SDiv:
		v = b.NewSDiv(arg(0), arg(1))
	case ssa.UDiv:
		v = b.NewUDiv(arg(0), arg(1))
	case ssa.SRem:
		v = b.NewSRem(arg(0), arg(1))
	case ssa.URem:
		v = b.NewURem(arg(0), arg(1))
	case ssa.FAdd:
		v = b.NewFAdd(arg(0), arg(1))
	case ssa.FSub:
		v = b.NewFSub(arg(0), arg(1))
	case ssa.FMul:
		v = b.NewFMul(arg(0), arg(1))
	case ssa.FDiv:
		v = b.NewFDiv(arg(0), arg(1))
	case ssa.FRem:
		v = b.NewFRem(arg(0), arg(1))
	case ssa.And:
		v = b.NewAnd(arg(0), arg(1))
	case ssa.Or:
		v = b.NewOr(arg(0), arg(1))
	case ssa.Xor:
		v = b.NewXor(arg(0), arg(1))
	case ssa.Shl:
		v = b.NewShl(arg(0), arg(1))
	case ssa.LShr:
		v = b.NewLShr(arg(0), arg(1))
	case ssa.AShr:
		v = b.NewAShr(arg(0), arg(1))

	case ssa.Neg:
		it := e.typ(in.Typ).(*lltypes.IntType)
		v = b.NewSub(constant.NewInt(it, 0), arg(0))
	case ssa.FNeg:
		v = b.NewFNeg(arg(0))
	case ssa.Not:
		if in.Typ.IsBool() {
			v = b.NewXor(arg(0), constant.True)
		} else {
			v = b.NewXor(arg(0), constant.NewInt(e.typ(in.Typ).(*lltypes.IntType), -1))
		}

	case ssa.ICmp:
		signed := in.Args[0].Type().IsInteger() && in.Args[0].Type().Signed
		v = b.NewICmp(intPred(in.Pred, signed), arg(0), arg(1))
	case ssa.FCmp:
		v = b.NewFCmp(floatPred(in.Pred), arg(0), arg(1))

	case ssa.Conv:
		v = e.conv(b, in)
	case ssa.Call:
		args := make([]value.Value, len(in.Args))
		for i := range in.Args {
			args[i] = arg(i)
		}
		v = b.NewCall(e.callee(in), args...)

	case ssa.Br:
		b.NewBr(e.blocks[in.Targets[0]])
	case ssa.CondBr:
		b.NewCondBr(arg(0), e.blocks[in.Targets[0]], e.blocks[in.Targets[1]])
	case ssa.Ret:
		if len(in.Args) == 0 {
			b.NewRet(nil)
		} else {
			b.NewRet(arg(0))
		}

	default:
		e.fail("unsupported instruction %s", in.Op)
	}

	if v != nil {
		e.values[in] = v
	}
}

func (e *emitter) conv(b *ir.Block, in *ssa.Instr) value.Value {
	x := e.operand(in.Args[0])
	to := e.typ(in.Typ)
	switch in.Conv {
	case types.ConvNone:
		if lltypes.Equal(x.Type(), to) {
			return x
		}
		return b.NewBitCast(x, to)
	case types.ConvTrunc:
		return b.NewTrunc(x, to)
	case types.ConvZExt:
		return b.NewZExt(x, to)
	case types.ConvSExt:
		return b.NewSExt(x, to)
	case types.ConvFPTrunc:
		return b.NewFPTrunc(x, to)
	case types.ConvFPExt:
		return b.NewFPExt(x, to)
	case types.ConvSIToFP:
		return b.NewSIToFP(x, to)
	case types.ConvUIToFP:
		return b.NewUIToFP(x, to)
	case types.ConvFPToSI:
		return b.NewFPToSI(x, to)
	case types.ConvFPToUI:
		return b.NewFPToUI(x, to)
	}
	e.fail("invalid conversion to %s", in.Typ)
	return nil
}

func intPred(p ssa.Pred, signed bool) enum.IPred {
	switch p {
	case ssa.EQ:
		return enum.IPredEQ
	case ssa.NE:
		return enum.IPredNE
	}
	if signed {
		return [...]enum.IPred{ssa.LT: enum.IPredSLT, ssa.LE: enum.IPredSLE, ssa.GT: enum.IPredSGT, ssa.GE: enum.IPredSGE}[p]
	}
	return [...]enum.IPred{ssa.LT: enum.IPredULT, ssa.LE: enum.IPredULE, ssa.GT: enum.IPredUGT, ssa.GE: enum.IPredUGE}[p]
}

// floatPred returns the ordered predicate, except for ne, which holds
// when either operand is NaN.
func floatPred(p ssa.Pred) enum.FPred {
	switch p {
	case ssa.EQ:
		return enum.FPredOEQ
	case ssa.NE:
		return enum.FPredUNE
	case ssa.LT:
		return enum.FPredOLT
	case ssa.LE:
		return enum.FPredOLE
	case ssa.GT:
		return enum.FPredOGT
	}
	return enum.FPredOGE
}
