package ssa

import "github.com/kolkov/pyxc/internal/types"

// Optimize simplifies every defined function of m. It folds instructions
// whose operands are constants, turns conditional branches on constants
// into plain branches, and drops the blocks that become unreachable.
// The passes repeat until nothing changes.
func Optimize(m *Module) {
	for _, f := range m.Defined() {
		OptimizeFunc(f)
	}
}

// OptimizeFunc runs the passes of Optimize on one function.
func OptimizeFunc(f *Func) {
	for {
		changed := foldConstants(f)
		if simplifyBranches(f) {
			changed = true
		}
		if removeUnreachable(f) {
			changed = true
		}
		if !changed {
			return
		}
	}
}

// foldConstants replaces pure instructions over constants by their value
// and phis whose incoming values agree by that value.
func foldConstants(f *Func) bool {
	repl := make(map[*Instr]Value)
	resolve := func(v Value) Value {
		for {
			in, ok := v.(*Instr)
			if !ok {
				return v
			}
			r, ok := repl[in]
			if !ok {
				return v
			}
			v = r
		}
	}

	for _, b := range f.Blocks {
		kept := b.Instrs[:0]
		for _, in := range b.Instrs {
			for i, a := range in.Args {
				in.Args[i] = resolve(a)
			}
			if v := fold(in); v != nil {
				repl[in] = v
				continue
			}
			kept = append(kept, in)
		}
		b.Instrs = kept
	}
	if len(repl) == 0 {
		return false
	}
	// Uses that precede their definition in block order, such as a phi
	// fed by a loop back edge.
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			for i, a := range in.Args {
				in.Args[i] = resolve(a)
			}
		}
	}
	return true
}

// fold returns the value an instruction reduces to, or nil.
func fold(in *Instr) Value {
	if in.Op == Phi {
		return foldPhi(in)
	}
	args := make([]types.Value, len(in.Args))
	for i, a := range in.Args {
		c, ok := a.(*Const)
		if !ok {
			return nil
		}
		args[i] = c.Val
	}
	v, ok, err := Eval(in, args)
	if !ok || err != nil {
		// Division by zero is left for the program to trip over.
		return nil
	}
	return NewConst(v)
}

func foldPhi(in *Instr) Value {
	if len(in.Args) == 0 {
		return nil
	}
	first := in.Args[0]
	for _, a := range in.Args[1:] {
		if !sameValue(a, first) {
			return nil
		}
	}
	if first == Value(in) {
		return nil
	}
	return first
}

func sameValue(a, b Value) bool {
	if a == b {
		return true
	}
	ca, ok1 := a.(*Const)
	cb, ok2 := b.(*Const)
	if !ok1 || !ok2 || !types.Identical(ca.Type(), cb.Type()) {
		return false
	}
	if ca.Type().IsFloat() {
		return ca.Val.Float() == cb.Val.Float()
	}
	return ca.Val.Bits() == cb.Val.Bits()
}

// simplifyBranches rewrites conditional branches whose condition is a
// constant or whose targets coincide.
func simplifyBranches(f *Func) bool {
	changed := false
	for _, b := range f.Blocks {
		t := b.Terminator()
		if t == nil || t.Op != CondBr {
			continue
		}
		then, els := t.Targets[0], t.Targets[1]
		var keep, drop *Block
		switch {
		case then == els:
			keep = then
		default:
			c, ok := t.Args[0].(*Const)
			if !ok {
				continue
			}
			keep, drop = els, then
			if c.Val.IsTrue() {
				keep, drop = then, els
			}
		}
		if drop != nil {
			removeIncoming(drop, b)
		} else {
			// Both edges went to keep; its phis list b once.
			dedupIncoming(keep, b)
		}
		t.Op = Br
		t.Args = nil
		t.Targets = []*Block{keep}
		changed = true
	}
	return changed
}

// removeUnreachable deletes blocks that cannot be reached from the entry.
func removeUnreachable(f *Func) bool {
	if len(f.Blocks) == 0 {
		return false
	}
	reached := map[*Block]bool{f.Blocks[0]: true}
	work := []*Block{f.Blocks[0]}
	for len(work) > 0 {
		b := work[len(work)-1]
		work = work[:len(work)-1]
		for _, s := range b.Succs() {
			if !reached[s] {
				reached[s] = true
				work = append(work, s)
			}
		}
	}
	if len(reached) == len(f.Blocks) {
		return false
	}
	kept := f.Blocks[:0]
	var dead []*Block
	for _, b := range f.Blocks {
		if reached[b] {
			kept = append(kept, b)
		} else {
			dead = append(dead, b)
		}
	}
	f.Blocks = kept
	for _, d := range dead {
		for _, s := range d.Succs() {
			if reached[s] {
				removeIncoming(s, d)
			}
		}
	}
	return true
}

// removeIncoming drops the phi operands of b that come from pred.
func removeIncoming(b, pred *Block) {
	for _, in := range b.Instrs {
		if in.Op != Phi {
			break
		}
		for i := 0; i < len(in.Preds); i++ {
			if in.Preds[i] == pred {
				in.Args = append(in.Args[:i], in.Args[i+1:]...)
				in.Preds = append(in.Preds[:i], in.Preds[i+1:]...)
				i--
			}
		}
	}
}

// dedupIncoming keeps only the first phi operand coming from pred.
func dedupIncoming(b, pred *Block) {
	for _, in := range b.Instrs {
		if in.Op != Phi {
			break
		}
		seen := false
		for i := 0; i < len(in.Preds); i++ {
			if in.Preds[i] != pred {
				continue
			}
			if seen {
				in.Args = append(in.Args[:i], in.Args[i+1:]...)
				in.Preds = append(in.Preds[:i], in.Preds[i+1:]...)
				i--
			}
			seen = true
		}
	}
}
