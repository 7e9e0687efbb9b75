// Package ssa defines the static single assignment form that pyxc
// functions are lowered to before execution.
//
// A Module holds functions. A defined function is a list of basic blocks;
// each block is a straight-line list of instructions ending in exactly one
// terminator (Br, CondBr or Ret). Every value has an explicit type before
// it is used. Locals live in stack slots created by Alloca and are read
// and written with Load and Store, so the only Phi instructions come from
// expressions whose branches both produce a value.
package ssa

import (
	"strconv"

	"github.com/kolkov/pyxc/internal/pattern"
	"github.com/kolkov/pyxc/internal/types"
)

// Value is an operand: a constant, a parameter or the result of an
// instruction.
type Value interface {
	Type() *types.Type
	valueNode()
}

// Const is a constant operand.
type Const struct {
	Val types.Value
}

// NewConst returns a constant operand holding v.
func NewConst(v types.Value) *Const {
	return &Const{Val: v}
}

// ConstInt returns the integer constant x of type t.
func ConstInt(t *types.Type, x int64) *Const {
	return &Const{Val: types.Int(t, x)}
}

// ConstFloat returns the floating-point constant x of type t.
func ConstFloat(t *types.Type, x float64) *Const {
	return &Const{Val: types.Float(t, x)}
}

// ConstZero returns the zero value of scalar type t.
func ConstZero(t *types.Type) *Const {
	return &Const{Val: types.Zero(t)}
}

func (c *Const) Type() *types.Type { return c.Val.Type() }
func (c *Const) valueNode()        {}

// Param is a function parameter.
type Param struct {
	Name  string
	Index int
	Typ   *types.Type
}

func (p *Param) Type() *types.Type { return p.Typ }
func (p *Param) valueNode()        {}

// Instr is one instruction. Which of the optional fields are used
// depends on Op.
type Instr struct {
	Op    Op
	Typ   *types.Type // result type; Void when nothing is produced
	Args  []Value
	Block *Block

	Pred    Pred        // ICmp, FCmp
	Conv    types.Conv  // Conv
	Elem    *types.Type // Alloca: slot type; ElemAddr: element type
	Offset  int64       // FieldAddr: byte offset of the field
	Field   string      // FieldAddr: field name
	Callee  string      // Call
	Targets []*Block    // Br: destination; CondBr: then, else
	Preds   []*Block    // Phi: predecessor that supplies each Arg
	Hint    string      // Alloca: variable name
}

func (in *Instr) Type() *types.Type { return in.Typ }
func (in *Instr) valueNode()        {}

// IsTerminator reports whether the instruction ends a block.
func (in *Instr) IsTerminator() bool {
	return in.Op.IsTerminator()
}

// HasValue reports whether the instruction produces a value.
func (in *Instr) HasValue() bool {
	return !in.Typ.IsVoid()
}

// AddIncoming adds a (value, predecessor) pair to a Phi.
func (in *Instr) AddIncoming(v Value, from *Block) {
	in.Args = append(in.Args, v)
	in.Preds = append(in.Preds, from)
}

// Block is a basic block.
type Block struct {
	Name   string
	Instrs []*Instr
	Func   *Func
}

// Terminator returns the last instruction if it is a terminator.
func (b *Block) Terminator() *Instr {
	if len(b.Instrs) == 0 {
		return nil
	}
	if last := b.Instrs[len(b.Instrs)-1]; last.IsTerminator() {
		return last
	}
	return nil
}

// Succs returns the blocks control can pass to from b.
func (b *Block) Succs() []*Block {
	if t := b.Terminator(); t != nil {
		return t.Targets
	}
	return nil
}

// Func is a function. A function without blocks is a declaration of a
// function defined in another module or provided by the runtime.
type Func struct {
	Name   string
	Params []*Param
	Result *types.Type
	Blocks []*Block

	names map[string]int
}

// IsDecl reports whether f only declares a function.
func (f *Func) IsDecl() bool {
	return len(f.Blocks) == 0
}

// Entry returns the entry block.
func (f *Func) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// NumInstrs returns the number of instructions in all blocks.
func (f *Func) NumInstrs() int {
	n := 0
	for _, b := range f.Blocks {
		n += len(b.Instrs)
	}
	return n
}

// Preds returns the predecessors of every block.
func (f *Func) Preds() map[*Block][]*Block {
	preds := make(map[*Block][]*Block, len(f.Blocks))
	for _, b := range f.Blocks {
		for _, s := range b.Succs() {
			preds[s] = append(preds[s], b)
		}
	}
	return preds
}

// Module is a unit of compilation.
type Module struct {
	Name  string
	Funcs []*Func
}

// NewModule returns an empty module.
func NewModule(name string) *Module {
	return &Module{Name: name}
}

// Func returns the function with the given name, or nil.
func (m *Module) Func(name string) *Func {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Declare adds a declaration of a function defined elsewhere. An existing
// function of that name is returned unchanged.
func (m *Module) Declare(name string, params []*types.Type, result *types.Type) *Func {
	if f := m.Func(name); f != nil {
		return f
	}
	f := &Func{Name: name, Result: result}
	for i, t := range params {
		f.Params = append(f.Params, &Param{Name: argName(i), Index: i, Typ: t})
	}
	m.Funcs = append(m.Funcs, f)
	return f
}

// NewFunc adds a function definition with an entry block. A declaration
// of the same name is replaced.
func (m *Module) NewFunc(name string, params []*Param, result *types.Type) *Func {
	f := &Func{Name: name, Params: params, Result: result, names: make(map[string]int)}
	f.Blocks = []*Block{{Name: "entry", Func: f}}
	f.names["entry"] = 1
	for i, old := range m.Funcs {
		if old.Name == name {
			m.Funcs[i] = f
			return f
		}
	}
	m.Funcs = append(m.Funcs, f)
	return f
}

// Remove deletes the named function. It reports whether one was found.
func (m *Module) Remove(name string) bool {
	for i, f := range m.Funcs {
		if f.Name == name {
			m.Funcs = append(m.Funcs[:i], m.Funcs[i+1:]...)
			return true
		}
	}
	return false
}

// Defined returns the functions of m that have bodies.
func (m *Module) Defined() []*Func {
	var fs []*Func
	for _, f := range m.Funcs {
		if !f.IsDecl() {
			fs = append(fs, f)
		}
	}
	return fs
}

// Filter returns a module holding only the functions whose names match
// the regular expression expr.
func (m *Module) Filter(expr string) (*Module, error) {
	re, err := pattern.Compile(expr)
	if err != nil {
		return nil, err
	}
	out := NewModule(m.Name)
	for _, f := range m.Funcs {
		if re.MatchString(f.Name) {
			out.Funcs = append(out.Funcs, f)
		}
	}
	return out, nil
}

func argName(i int) string {
	return "a" + strconv.Itoa(i)
}

// Ensure operand types implement Value.
var (
	_ Value = (*Const)(nil)
	_ Value = (*Param)(nil)
	_ Value = (*Instr)(nil)
)
