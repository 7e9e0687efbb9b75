package vm

import (
	"fmt"

	"github.com/kolkov/pyxc/internal/runtime"
	"github.com/kolkov/pyxc/internal/ssa"
	"github.com/kolkov/pyxc/internal/types"
)

// frame is the state of one active call.
type frame struct {
	fn   *ssa.Func
	args []types.Value
	vals map[*ssa.Instr]types.Value
	blk  *ssa.Block
}

func (fr *frame) value(v ssa.Value) types.Value {
	switch v := v.(type) {
	case *ssa.Const:
		return v.Val
	case *ssa.Param:
		return fr.args[v.Index]
	case *ssa.Instr:
		return fr.vals[v]
	}
	panic(fmt.Sprintf("vm: unexpected operand %T", v))
}

func (fr *frame) fail(err error) error {
	re := &RuntimeError{Func: fr.fn.Name, Err: err}
	if fr.blk != nil {
		re.Block = fr.blk.Name
	}
	return re
}

// call executes f. The memory its slots occupy is released on return.
func (e *Engine) call(f *ssa.Func, args []types.Value) (types.Value, error) {
	fr := &frame{fn: f, args: args, vals: make(map[*ssa.Instr]types.Value)}
	if e.depth >= e.config.MaxDepth {
		return types.Value{}, fr.fail(ErrCallDepth)
	}
	e.depth++
	base := e.sp
	defer func() {
		e.depth--
		e.sp = base
	}()

	var prev *ssa.Block
	fr.blk = f.Entry()
	for {
		next, ret, err := e.run(fr, prev)
		if err != nil {
			return types.Value{}, err
		}
		if next == nil {
			return ret, nil
		}
		prev, fr.blk = fr.blk, next
	}
}

// run executes the current block of fr, entered from prev. It returns the
// successor block, or nil and the result when the block returns.
func (e *Engine) run(fr *frame, prev *ssa.Block) (*ssa.Block, types.Value, error) {
	instrs := fr.blk.Instrs

	// Phis read their operands on the edge just taken, all before any of
	// them is assigned.
	n := 0
	for n < len(instrs) && instrs[n].Op == ssa.Phi {
		n++
	}
	if n > 0 {
		joined := make([]types.Value, n)
		for i, in := range instrs[:n] {
			v, ok := incoming(fr, in, prev)
			if !ok {
				return nil, types.Value{}, fr.fail(fmt.Errorf("phi has no value for predecessor %s", blockName(prev)))
			}
			joined[i] = v
		}
		for i, in := range instrs[:n] {
			fr.vals[in] = joined[i]
		}
	}

	var args []types.Value
	for _, in := range instrs[n:] {
		if err := e.step(); err != nil {
			return nil, types.Value{}, fr.fail(err)
		}

		args = args[:0]
		for _, a := range in.Args {
			args = append(args, fr.value(a))
		}

		switch in.Op {
		case ssa.Alloca:
			addr, err := e.alloc(in.Elem)
			if err != nil {
				return nil, types.Value{}, fr.fail(err)
			}
			fr.vals[in] = types.Pointer(in.Typ, addr)

		case ssa.Load:
			v, err := e.load(in.Typ, args[0].Bits())
			if err != nil {
				return nil, types.Value{}, fr.fail(err)
			}
			fr.vals[in] = v

		case ssa.Store:
			if err := e.store(args[0], args[1].Bits()); err != nil {
				return nil, types.Value{}, fr.fail(err)
			}

		case ssa.ElemAddr:
			offset := args[1].Int() * types.Stride(in.Elem)
			fr.vals[in] = types.Pointer(in.Typ, args[0].Bits()+uint64(offset))

		case ssa.FieldAddr:
			fr.vals[in] = types.Pointer(in.Typ, args[0].Bits()+uint64(in.Offset))

		case ssa.Call:
			v, err := e.invoke(in.Callee, append([]types.Value(nil), args...))
			if err != nil {
				if _, ok := err.(*RuntimeError); ok {
					return nil, types.Value{}, err
				}
				return nil, types.Value{}, fr.fail(err)
			}
			if in.HasValue() {
				fr.vals[in] = v
			}

		case ssa.Br:
			return in.Targets[0], types.Value{}, nil

		case ssa.CondBr:
			if args[0].IsTrue() {
				return in.Targets[0], types.Value{}, nil
			}
			return in.Targets[1], types.Value{}, nil

		case ssa.Ret:
			if len(args) == 0 {
				return nil, types.Value{}, nil
			}
			return nil, args[0], nil

		default:
			v, ok, err := ssa.Eval(in, args)
			if err != nil {
				return nil, types.Value{}, fr.fail(err)
			}
			if !ok {
				return nil, types.Value{}, fr.fail(fmt.Errorf("cannot execute %s", in.Op))
			}
			fr.vals[in] = v
		}
	}
	return nil, types.Value{}, fr.fail(fmt.Errorf("block has no terminator"))
}

// incoming returns the value a phi takes when entered from prev.
func incoming(fr *frame, phi *ssa.Instr, prev *ssa.Block) (types.Value, bool) {
	for i, p := range phi.Preds {
		if p == prev {
			return fr.value(phi.Args[i]), true
		}
	}
	return types.Value{}, false
}

func blockName(b *ssa.Block) string {
	if b == nil {
		return "<entry>"
	}
	return b.Name
}

// step counts one instruction against the budget and polls for
// cancellation.
func (e *Engine) step() error {
	e.steps++
	if e.config.MaxSteps > 0 && e.steps > e.config.MaxSteps {
		return ErrStepLimit
	}
	if e.steps%ctxCheckInterval == 0 {
		if err := e.ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// invoke calls a linked definition, or the runtime function of that name.
func (e *Engine) invoke(name string, args []types.Value) (types.Value, error) {
	if f, ok := e.funcs[name]; ok {
		return e.call(f, args)
	}
	if rf, ok := runtime.Lookup(name); ok {
		if len(args) != len(rf.Params) {
			return types.Value{}, fmt.Errorf("runtime function %s expects %d arguments, got %d", name, len(rf.Params), len(args))
		}
		return rf.Call(e.host, args), nil
	}
	return types.Value{}, fmt.Errorf("call of undefined function %s", name)
}
