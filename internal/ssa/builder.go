package ssa

import (
	"fmt"
	"strconv"

	"github.com/kolkov/pyxc/internal/types"
)

// Builder appends instructions to the blocks of one function.
type Builder struct {
	fn      *Func
	block   *Block
	allocas int // allocas at the start of the entry block
}

// NewBuilder returns a builder positioned at the end of fn's entry block.
func NewBuilder(fn *Func) *Builder {
	return &Builder{fn: fn, block: fn.Entry()}
}

// Func returns the function being built.
func (b *Builder) Func() *Func {
	return b.fn
}

// Block returns the current block.
func (b *Builder) Block() *Block {
	return b.block
}

// SetBlock moves the insertion point to the end of blk.
func (b *Builder) SetBlock(blk *Block) {
	b.block = blk
}

// NewBlock appends a new block. Names are made unique by a numeric
// suffix: loop, loop1, loop2, ...
func (b *Builder) NewBlock(name string) *Block {
	blk := b.Reserve(name)
	b.Place(blk)
	return blk
}

// Reserve creates a block that is not yet part of the function, so that
// branches can target it before its position is known. It must be added
// with Place before the function is used.
func (b *Builder) Reserve(name string) *Block {
	n := b.fn.names[name]
	b.fn.names[name] = n + 1
	if n > 0 {
		name += strconv.Itoa(n)
	}
	return &Block{Name: name, Func: b.fn}
}

// Place appends a reserved block to the function.
func (b *Builder) Place(blk *Block) {
	b.fn.Blocks = append(b.fn.Blocks, blk)
}

// Terminated reports whether the current block already ends in a
// terminator. Instructions emitted after that point would be unreachable.
func (b *Builder) Terminated() bool {
	return b.block.Terminator() != nil
}

func (b *Builder) emit(in *Instr) *Instr {
	if b.Terminated() {
		panic(fmt.Sprintf("ssa: emit %s after terminator in %s", in.Op, b.block.Name))
	}
	in.Block = b.block
	b.block.Instrs = append(b.block.Instrs, in)
	return in
}

// Alloca reserves a stack slot of type t. Slots are always placed at the
// start of the entry block, so a slot created inside a loop is still
// allocated once.
func (b *Builder) Alloca(t *types.Type, hint string) *Instr {
	entry := b.fn.Entry()
	in := &Instr{Op: Alloca, Typ: types.NewPointer(t), Elem: t, Hint: hint, Block: entry}
	entry.Instrs = append(entry.Instrs, nil)
	copy(entry.Instrs[b.allocas+1:], entry.Instrs[b.allocas:])
	entry.Instrs[b.allocas] = in
	b.allocas++
	return in
}

// Load reads the value stored at addr.
func (b *Builder) Load(addr Value) *Instr {
	return b.emit(&Instr{Op: Load, Typ: addr.Type().Elem, Args: []Value{addr}})
}

// Store writes v to addr.
func (b *Builder) Store(v, addr Value) *Instr {
	return b.emit(&Instr{Op: Store, Typ: types.Void, Args: []Value{v, addr}})
}

// ElemAddr returns the address of element index of the elem sequence
// starting at base.
func (b *Builder) ElemAddr(base, index Value, elem *types.Type) *Instr {
	return b.emit(&Instr{
		Op:   ElemAddr,
		Typ:  types.NewPointer(elem),
		Args: []Value{base, index},
		Elem: elem,
	})
}

// FieldAddr returns the address of field i of the struct at base.
func (b *Builder) FieldAddr(base Value, st *types.Type, i int) *Instr {
	f := st.Fields[i]
	return b.emit(&Instr{
		Op:     FieldAddr,
		Typ:    types.NewPointer(f.Type),
		Args:   []Value{base},
		Offset: types.FieldOffset(st, i),
		Field:  f.Name,
	})
}

// Binary emits an arithmetic or bitwise instruction. Both operands must
// already have the same type.
func (b *Builder) Binary(op Op, x, y Value) *Instr {
	return b.emit(&Instr{Op: op, Typ: x.Type(), Args: []Value{x, y}})
}

// Unary emits Neg, FNeg or Not.
func (b *Builder) Unary(op Op, x Value) *Instr {
	return b.emit(&Instr{Op: op, Typ: x.Type(), Args: []Value{x}})
}

// Compare emits an ICmp, or an FCmp for floating-point operands.
func (b *Builder) Compare(p Pred, x, y Value) *Instr {
	op := ICmp
	if x.Type().IsFloat() {
		op = FCmp
	}
	return b.emit(&Instr{Op: op, Typ: types.Bool, Pred: p, Args: []Value{x, y}})
}

// Convert converts v to type to. Constants are converted in place and
// values that already have type to are returned unchanged.
func (b *Builder) Convert(v Value, to *types.Type) Value {
	from := v.Type()
	if types.Identical(from, to) {
		return v
	}
	conv := types.Conversion(from, to)
	if conv == types.ConvInvalid {
		panic(fmt.Sprintf("ssa: cannot convert %s to %s", from, to))
	}
	if c, ok := v.(*Const); ok {
		return NewConst(c.Val.Convert(to))
	}
	return b.emit(&Instr{Op: Conv, Typ: to, Conv: conv, Args: []Value{v}})
}

// Phi emits an empty join of type t. Incoming values are added with
// AddIncoming.
func (b *Builder) Phi(t *types.Type) *Instr {
	return b.emit(&Instr{Op: Phi, Typ: t})
}

// Call emits a call of the named function.
func (b *Builder) Call(callee string, result *types.Type, args ...Value) *Instr {
	return b.emit(&Instr{Op: Call, Typ: result, Callee: callee, Args: args})
}

// Br ends the current block with a branch to dst.
func (b *Builder) Br(dst *Block) *Instr {
	return b.emit(&Instr{Op: Br, Typ: types.Void, Targets: []*Block{dst}})
}

// CondBr ends the current block with a branch on the i1 cond.
func (b *Builder) CondBr(cond Value, then, els *Block) *Instr {
	return b.emit(&Instr{
		Op:      CondBr,
		Typ:     types.Void,
		Args:    []Value{cond},
		Targets: []*Block{then, els},
	})
}

// Ret ends the current block with a return. A nil v returns nothing.
func (b *Builder) Ret(v Value) *Instr {
	in := &Instr{Op: Ret, Typ: types.Void}
	if v != nil {
		in.Args = []Value{v}
	}
	return b.emit(in)
}
