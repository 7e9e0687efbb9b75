package ssa

import (
	"math"
	"testing"

	"github.com/nalgeon/be"

	"github.com/kolkov/pyxc/internal/types"
)

func i64(x int64) *Const { return ConstInt(types.I64, x) }

func newAdd(m *Module) *Func {
	a := &Param{Name: "a", Index: 0, Typ: types.I64}
	b := &Param{Name: "b", Index: 1, Typ: types.I64}
	f := m.NewFunc("add", []*Param{a, b}, types.I64)
	bld := NewBuilder(f)
	sum := bld.Binary(Add, a, b)
	bld.Ret(sum)
	return f
}

func TestPrintModule(t *testing.T) {
	m := NewModule("t")
	m.Declare("putchard", []*types.Type{types.F64}, types.F64)
	newAdd(m)

	want := "; module t\n" +
		"declare f64 @putchard(f64)\n" +
		"\n" +
		"define i64 @add(i64 %a, i64 %b) {\n" +
		"entry:\n" +
		"  %0 = add i64 %a, %b\n" +
		"  ret i64 %0\n" +
		"}\n"
	be.Equal(t, m.String(), want)
	be.Err(t, Verify(m), nil)
}

func TestPrintInstructions(t *testing.T) {
	pt := types.NewStruct("Point", []types.Field{{Name: "x", Type: types.I32}, {Name: "y", Type: types.F64}})
	m := NewModule("")
	m.Declare("printd", []*types.Type{types.F64}, types.F64)
	f := m.NewFunc("f", nil, types.Void)
	b := NewBuilder(f)
	slot := b.Alloca(pt, "p")
	y := b.FieldAddr(slot, pt, 1)
	v := b.Load(y)
	b.Call("printd", types.F64, v)
	cond := b.Compare(LT, v, ConstFloat(types.F64, 1))
	exit := b.NewBlock("exit")
	b.CondBr(cond, exit, exit)
	b.SetBlock(exit)
	b.Ret(nil)

	want := "define void @f() {\n" +
		"entry:\n" +
		"  %0 = alloca Point ; p\n" +
		"  %1 = fieldaddr ptr[Point] %0, 8 ; y\n" +
		"  %2 = load f64, ptr[f64] %1\n" +
		"  %3 = call f64 @printd(f64 %2)\n" +
		"  %4 = fcmp olt f64 %2, 1.0\n" +
		"  br i1 %4, label %exit, label %exit\n" +
		"\n" +
		"exit:\n" +
		"  ret void\n" +
		"}\n"
	be.Equal(t, f.String(), want)
}

func TestAllocaInEntry(t *testing.T) {
	m := NewModule("")
	f := m.NewFunc("f", nil, types.I64)
	b := NewBuilder(f)
	x := b.Alloca(types.I64, "x")
	b.Store(i64(1), x)
	loop := b.NewBlock("loop")
	b.Br(loop)
	b.SetBlock(loop)
	y := b.Alloca(types.I64, "y")
	b.Store(b.Load(x), y)
	b.Ret(b.Load(y))

	entry := f.Entry()
	be.Equal(t, entry.Instrs[0], x)
	be.Equal(t, entry.Instrs[1], y)
	be.Equal(t, y.Block, entry)
	be.Equal(t, len(loop.Instrs), 4)
	be.Err(t, VerifyFunc(f), nil)
}

func TestBlockNames(t *testing.T) {
	m := NewModule("")
	f := m.NewFunc("f", nil, types.Void)
	b := NewBuilder(f)
	be.Equal(t, b.NewBlock("loop").Name, "loop")
	be.Equal(t, b.NewBlock("loop").Name, "loop1")
	be.Equal(t, b.NewBlock("entry").Name, "entry1")

	exit := b.Reserve("exit")
	be.Equal(t, len(f.Blocks), 4)
	b.Br(exit)
	b.Place(exit)
	be.Equal(t, f.Blocks[4], exit)
}

func TestConvert(t *testing.T) {
	m := NewModule("")
	f := m.NewFunc("f", []*Param{{Name: "x", Typ: types.I32}}, types.F64)
	b := NewBuilder(f)

	c := b.Convert(i64(300), types.I8)
	k, ok := c.(*Const)
	be.True(t, ok)
	be.Equal(t, k.Val.Int(), int64(44))

	x := f.Params[0]
	be.Equal(t, b.Convert(x, types.I32), Value(x))

	conv := b.Convert(x, types.F64).(*Instr)
	be.Equal(t, conv.Conv, types.ConvSIToFP)
	b.Ret(conv)
	be.Err(t, VerifyFunc(f), nil)
}

func TestVerifyErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(m *Module) *Func
		want  string
	}{
		{
			name: "missing terminator",
			build: func(m *Module) *Func {
				f := m.NewFunc("f", nil, types.I64)
				NewBuilder(f).Binary(Add, i64(1), i64(2))
				return f
			},
			want: "ssa: @f: entry: block does not end in a terminator",
		},
		{
			name: "operand types",
			build: func(m *Module) *Func {
				f := m.NewFunc("f", nil, types.I64)
				b := NewBuilder(f)
				b.Ret(b.Binary(Add, i64(1), ConstInt(types.I32, 2)))
				return f
			},
			want: "add: type mismatch i64 and i32",
		},
		{
			name: "float op on integers",
			build: func(m *Module) *Func {
				f := m.NewFunc("f", nil, types.I64)
				b := NewBuilder(f)
				b.Ret(b.Binary(FAdd, i64(1), i64(2)))
				return f
			},
			want: "fadd on i64",
		},
		{
			name: "return type",
			build: func(m *Module) *Func {
				f := m.NewFunc("f", nil, types.Void)
				NewBuilder(f).Ret(i64(0))
				return f
			},
			want: "ret with a value in a void function",
		},
		{
			name: "store type",
			build: func(m *Module) *Func {
				f := m.NewFunc("f", nil, types.Void)
				b := NewBuilder(f)
				slot := b.Alloca(types.I32, "x")
				b.Store(i64(1), slot)
				b.Ret(nil)
				return f
			},
			want: "store of i64 through ptr[i32]",
		},
		{
			name: "phi predecessors",
			build: func(m *Module) *Func {
				f := m.NewFunc("f", nil, types.I64)
				b := NewBuilder(f)
				next := b.NewBlock("next")
				b.Br(next)
				b.SetBlock(next)
				phi := b.Phi(types.I64)
				b.Ret(phi)
				return f
			},
			want: "phi has 0 incoming blocks, block has 1 predecessors",
		},
		{
			name: "undeclared callee",
			build: func(m *Module) *Func {
				f := m.NewFunc("f", nil, types.Void)
				b := NewBuilder(f)
				b.Call("g", types.Void)
				b.Ret(nil)
				return f
			},
			want: "call of undeclared function @g",
		},
		{
			name: "argument type",
			build: func(m *Module) *Func {
				m.Declare("g", []*types.Type{types.F64}, types.F64)
				f := m.NewFunc("f", nil, types.Void)
				b := NewBuilder(f)
				b.Call("g", types.F64, i64(1))
				b.Ret(nil)
				return f
			},
			want: "call: type mismatch f64 and i64",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModule("")
			tt.build(m)
			err := Verify(m)
			be.Err(t, err, tt.want)
			_, ok := err.(*VerifyError)
			be.True(t, ok)
		})
	}
}

func TestOptimize(t *testing.T) {
	m := NewModule("")
	f := m.NewFunc("f", nil, types.I64)
	b := NewBuilder(f)
	cond := b.Compare(LT, i64(1), i64(2))
	then := b.NewBlock("then")
	els := b.NewBlock("else")
	merge := b.NewBlock("merge")
	b.CondBr(cond, then, els)
	b.SetBlock(then)
	x := b.Binary(Mul, i64(2), i64(5))
	b.Br(merge)
	b.SetBlock(els)
	b.Br(merge)
	b.SetBlock(merge)
	phi := b.Phi(types.I64)
	phi.AddIncoming(x, then)
	phi.AddIncoming(i64(20), els)
	b.Ret(phi)
	be.Err(t, VerifyFunc(f), nil)

	OptimizeFunc(f)

	want := "define i64 @f() {\n" +
		"entry:\n" +
		"  br label %then\n" +
		"\n" +
		"then:\n" +
		"  br label %merge\n" +
		"\n" +
		"merge:\n" +
		"  ret i64 10\n" +
		"}\n"
	be.Equal(t, f.String(), want)
	be.Err(t, VerifyFunc(f), nil)
}

func TestOptimizeKeepsDivideByZero(t *testing.T) {
	m := NewModule("")
	f := m.NewFunc("f", nil, types.I64)
	b := NewBuilder(f)
	b.Ret(b.Binary(SDiv, i64(1), i64(0)))
	Optimize(m)
	be.Equal(t, f.NumInstrs(), 2)
}

func TestEvalBinary(t *testing.T) {
	i8 := func(x int64) types.Value { return types.Int(types.I8, x) }
	u8 := func(x int64) types.Value { return types.Int(types.U8, x) }
	tests := []struct {
		name string
		op   Op
		x, y types.Value
		want int64
	}{
		{"sdiv truncates", SDiv, types.Int(types.I64, -7), types.Int(types.I64, 2), -3},
		{"srem sign", SRem, types.Int(types.I64, -7), types.Int(types.I64, 2), -1},
		{"udiv", UDiv, u8(200), u8(3), 66},
		{"add wraps", Add, i8(127), i8(1), -128},
		{"shl", Shl, i8(1), i8(7), -128},
		{"shl too far", Shl, i8(1), i8(9), 0},
		{"ashr", AShr, i8(-128), i8(1), -64},
		{"lshr", LShr, u8(128), u8(7), 1},
		{"sdiv overflow", SDiv, types.Int(types.I64, math.MinInt64), types.Int(types.I64, -1), math.MinInt64},
		{"and", And, u8(0xf0), u8(0x3c), 0x30},
		{"xor", Xor, u8(0xff), u8(0x0f), 0xf0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvalBinary(tt.op, tt.x, tt.y)
			be.Err(t, err, nil)
			be.Equal(t, got.Int(), tt.want)
		})
	}

	_, err := EvalBinary(SRem, types.Int(types.I64, 1), types.Int(types.I64, 0))
	be.Err(t, err, ErrDivideByZero)

	r, err := EvalBinary(FRem, types.Float(types.F64, 5.5), types.Float(types.F64, 2))
	be.Err(t, err, nil)
	be.Equal(t, r.Float(), 1.5)
}

func TestEvalCompare(t *testing.T) {
	nan := types.Float(types.F64, math.NaN())
	be.True(t, EvalCompare(NE, nan, nan).IsTrue())
	be.True(t, !EvalCompare(EQ, nan, nan).IsTrue())
	be.True(t, !EvalCompare(LT, nan, types.Float(types.F64, 1)).IsTrue())

	// Unsigned comparison of the same bits.
	be.True(t, EvalCompare(GT, types.Int(types.U8, -1), types.Int(types.U8, 1)).IsTrue())
	be.True(t, EvalCompare(LT, types.Int(types.I8, -1), types.Int(types.I8, 1)).IsTrue())
}

func TestFilter(t *testing.T) {
	m := NewModule("")
	for _, name := range []string{"fib", "fact", "__anon_expr"} {
		f := m.NewFunc(name, nil, types.Void)
		NewBuilder(f).Ret(nil)
	}
	out, err := m.Filter("^f")
	be.Err(t, err, nil)
	be.Equal(t, len(out.Funcs), 2)
	be.Equal(t, out.Funcs[0].Name, "fib")
	be.Equal(t, out.Funcs[1].Name, "fact")

	_, err = m.Filter("(")
	be.Err(t, err)
}

func TestNewFuncReplacesDeclaration(t *testing.T) {
	m := NewModule("")
	m.Declare("g", nil, types.I64)
	f := m.NewFunc("g", nil, types.I64)
	NewBuilder(f).Ret(i64(1))
	be.Equal(t, len(m.Funcs), 1)
	be.Equal(t, m.Func("g"), f)
	be.Equal(t, len(m.Defined()), 1)

	be.True(t, m.Remove("g"))
	be.True(t, !m.Remove("g"))
	be.Equal(t, len(m.Funcs), 0)
}
