package ssa

import (
	"errors"
	"math"

	"github.com/kolkov/pyxc/internal/types"
)

// ErrDivideByZero is returned for integer division or remainder by zero.
var ErrDivideByZero = errors.New("integer divide by zero")

// EvalBinary applies a binary op to two values of type t. The folder and
// the interpreter share it, so folded and executed code agree.
func EvalBinary(op Op, x, y types.Value) (types.Value, error) {
	t := x.Type()
	bits := uint(t.Bits)
	switch op {
	case Add:
		return types.Uint(t, x.Bits()+y.Bits()), nil
	case Sub:
		return types.Uint(t, x.Bits()-y.Bits()), nil
	case Mul:
		return types.Uint(t, x.Bits()*y.Bits()), nil
	case SDiv, SRem:
		d := y.Int()
		if d == 0 {
			return types.Value{}, ErrDivideByZero
		}
		n := x.Int()
		if d == -1 {
			// Avoids the overflow trap of MinInt64 / -1.
			if op == SRem {
				return types.Int(t, 0), nil
			}
			return types.Uint(t, -uint64(n)), nil
		}
		if op == SDiv {
			return types.Int(t, n/d), nil
		}
		return types.Int(t, n%d), nil
	case UDiv, URem:
		d := y.Uint()
		if d == 0 {
			return types.Value{}, ErrDivideByZero
		}
		if op == UDiv {
			return types.Uint(t, x.Uint()/d), nil
		}
		return types.Uint(t, x.Uint()%d), nil
	case FAdd:
		return types.Float(t, x.Float()+y.Float()), nil
	case FSub:
		return types.Float(t, x.Float()-y.Float()), nil
	case FMul:
		return types.Float(t, x.Float()*y.Float()), nil
	case FDiv:
		return types.Float(t, x.Float()/y.Float()), nil
	case FRem:
		return types.Float(t, math.Mod(x.Float(), y.Float())), nil
	case And:
		return types.Uint(t, x.Bits()&y.Bits()), nil
	case Or:
		return types.Uint(t, x.Bits()|y.Bits()), nil
	case Xor:
		return types.Uint(t, x.Bits()^y.Bits()), nil
	case Shl:
		n := y.Uint()
		if n >= uint64(bits) {
			return types.Uint(t, 0), nil
		}
		return types.Uint(t, x.Bits()<<n), nil
	case LShr:
		n := y.Uint()
		if n >= uint64(bits) {
			return types.Uint(t, 0), nil
		}
		return types.Uint(t, x.Bits()>>n), nil
	case AShr:
		n := min(y.Uint(), uint64(bits-1))
		return types.Int(t, x.Int()>>n), nil
	}
	return types.Value{}, errors.New("ssa: not a binary op: " + op.String())
}

// EvalUnary applies Neg, FNeg or Not.
func EvalUnary(op Op, x types.Value) types.Value {
	t := x.Type()
	switch op {
	case Neg:
		return types.Uint(t, -x.Bits())
	case FNeg:
		return types.Float(t, -x.Float())
	}
	return types.Uint(t, ^x.Bits())
}

// EvalCompare evaluates a comparison and returns an i1.
func EvalCompare(p Pred, x, y types.Value) types.Value {
	cmp, ok := types.Compare(x, y)
	if !ok {
		return types.Truth(p == NE)
	}
	return types.Truth(p.Holds(cmp))
}

// Eval computes the result of a pure instruction whose operands are the
// given values. It reports false for instructions that touch memory,
// call, branch or join.
func Eval(in *Instr, args []types.Value) (types.Value, bool, error) {
	switch {
	case in.Op.IsBinary():
		v, err := EvalBinary(in.Op, args[0], args[1])
		return v, true, err
	case in.Op.IsUnary():
		return EvalUnary(in.Op, args[0]), true, nil
	case in.Op == ICmp || in.Op == FCmp:
		return EvalCompare(in.Pred, args[0], args[1]), true, nil
	case in.Op == Conv:
		return args[0].Convert(in.Typ), true, nil
	}
	return types.Value{}, false, nil
}
