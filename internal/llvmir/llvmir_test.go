package llvmir

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"github.com/kolkov/pyxc/internal/ssa"
	"github.com/kolkov/pyxc/internal/types"
)

func newAdd(m *ssa.Module) {
	a := &ssa.Param{Name: "a", Index: 0, Typ: types.I64}
	b := &ssa.Param{Name: "b", Index: 1, Typ: types.I64}
	f := m.NewFunc("add", []*ssa.Param{a, b}, types.I64)
	bld := ssa.NewBuilder(f)
	bld.Ret(bld.Binary(ssa.Add, a, b))
}

func TestEmitFunction(t *testing.T) {
	m := ssa.NewModule("add")
	m.Declare("putchard", []*types.Type{types.F64}, types.F64)
	newAdd(m)

	out, err := String("t.pyxc", m)
	be.Err(t, err, nil)
	be.True(t, strings.Contains(out, `source_filename = "t.pyxc"`))
	be.True(t, strings.Contains(out, "declare double @putchard(double"))
	be.True(t, strings.Contains(out, "define i64 @add(i64 %a, i64 %b) {"))
	be.True(t, strings.Contains(out, "add i64 %a, %b"))
	be.True(t, strings.Contains(out, "ret i64 %"))
}

func TestEmitMemoryAndBranches(t *testing.T) {
	pt := types.NewStruct("Point", []types.Field{{Name: "x", Type: types.I32}, {Name: "y", Type: types.F64}})
	m := ssa.NewModule("")
	m.Declare("printd", []*types.Type{types.F64}, types.F64)
	f := m.NewFunc("f", nil, types.Void)
	b := ssa.NewBuilder(f)
	slot := b.Alloca(pt, "p")
	y := b.FieldAddr(slot, pt, 1)
	v := b.Load(y)
	b.Call("printd", types.F64, v)
	cond := b.Compare(ssa.LT, v, ssa.ConstFloat(types.F64, 1))
	exit := b.NewBlock("exit")
	b.CondBr(cond, exit, exit)
	b.SetBlock(exit)
	b.Ret(nil)

	out, err := String("", m)
	be.Err(t, err, nil)
	for _, want := range []string{
		"%Point = type { i32, double }",
		"alloca %Point",
		"getelementptr %Point, %Point* %",
		"i32 0, i32 1",
		"load double, double* %",
		"call double @printd(double %",
		"fcmp olt double %",
		"br i1 %",
		"ret void",
	} {
		t.Run(want, func(t *testing.T) {
			be.True(t, strings.Contains(out, want))
		})
	}
}

func TestEmitIntegerOps(t *testing.T) {
	x := &ssa.Param{Name: "x", Typ: types.U32}
	m := ssa.NewModule("")
	f := m.NewFunc("g", []*ssa.Param{x}, types.I64)
	b := ssa.NewBuilder(f)
	shifted := b.Binary(ssa.LShr, x, ssa.ConstInt(types.U32, 1))
	neg := b.Unary(ssa.Neg, shifted)
	cmp := b.Compare(ssa.LT, neg, ssa.ConstInt(types.U32, 7))
	wide := b.Convert(cmp, types.I64)
	b.Ret(wide)

	out, err := String("", m)
	be.Err(t, err, nil)
	be.True(t, strings.Contains(out, "lshr i32 %x, 1"))
	be.True(t, strings.Contains(out, "sub i32 0, %"))
	be.True(t, strings.Contains(out, "icmp ult i32 %"))
	be.True(t, strings.Contains(out, "zext i1 %"))
}

func TestEmitPhiAfterUse(t *testing.T) {
	c := &ssa.Param{Name: "c", Typ: types.I64}
	m := ssa.NewModule("")
	f := m.NewFunc("pick", []*ssa.Param{c}, types.I64)
	b := ssa.NewBuilder(f)
	then := b.NewBlock("then")
	els := b.NewBlock("else")
	merge := b.NewBlock("merge")
	b.CondBr(b.Compare(ssa.NE, c, ssa.ConstInt(types.I64, 0)), then, els)
	b.SetBlock(then)
	tv := b.Binary(ssa.Mul, c, ssa.ConstInt(types.I64, 2))
	b.Br(merge)
	b.SetBlock(els)
	b.Br(merge)
	b.SetBlock(merge)
	phi := b.Phi(types.I64)
	phi.AddIncoming(tv, then)
	phi.AddIncoming(ssa.ConstInt(types.I64, 5), els)
	b.Ret(phi)

	out, err := String("", m)
	be.Err(t, err, nil)
	be.True(t, strings.Contains(out, "phi i64 [ %"))
	be.True(t, strings.Contains(out, "%then ], [ 5, %else ]"))
}

func TestEmitMergesUnits(t *testing.T) {
	first := ssa.NewModule("add")
	newAdd(first)
	second := ssa.NewModule("use")
	second.Declare("add", []*types.Type{types.I64, types.I64}, types.I64)
	f := second.NewFunc("three", nil, types.I64)
	b := ssa.NewBuilder(f)
	b.Ret(b.Call("add", types.I64, ssa.ConstInt(types.I64, 1), ssa.ConstInt(types.I64, 2)))

	m, err := Emit("", first, second)
	be.Err(t, err, nil)
	be.Equal(t, len(m.Funcs), 2)
	be.Equal(t, len(m.Funcs[0].Blocks), 1)
	be.True(t, strings.Contains(m.String(), "call i64 @add(i64 1, i64 2)"))
}

func TestEmitRejectsForeignParam(t *testing.T) {
	stray := &ssa.Param{Name: "p", Typ: types.I64}
	m := ssa.NewModule("")
	f := m.NewFunc("h", nil, types.I64)
	b := ssa.NewBuilder(f)
	b.Ret(stray)

	_, err := Emit("", m)
	be.Err(t, err, "parameter p used outside its function")
}
