package runtime

import (
	"math"
	"sort"
	"strconv"

	"github.com/kolkov/pyxc/internal/types"
)

// Func is a runtime function with its pyxc signature.
type Func struct {
	Name   string
	Params []*types.Type
	Result *types.Type
	Call   func(h *Host, args []types.Value) types.Value
}

var table = buildTable()

// Lookup returns the runtime function with the given name.
func Lookup(name string) (*Func, bool) {
	f, ok := table[name]
	return f, ok
}

// Funcs returns every runtime function sorted by name.
func Funcs() []*Func {
	fs := make([]*Func, 0, len(table))
	for _, f := range table {
		fs = append(fs, f)
	}
	sort.Slice(fs, func(i, j int) bool { return fs[i].Name < fs[j].Name })
	return fs
}

// PrintHelper returns the name of the helper that prints a value of type
// t, or "" when t cannot be printed. Helpers take and return t.
func PrintHelper(t *types.Type) string {
	switch {
	case t.IsFloat():
		return "printfloat" + strconv.Itoa(t.Bits)
	case t.IsInteger() && t.Signed:
		return "printi" + strconv.Itoa(t.Bits)
	case t.IsInteger():
		return "printu" + strconv.Itoa(t.Bits)
	}
	return ""
}

// CharHelper is the helper print uses for separators and the final newline.
const CharHelper = "printchard"

var scalarTypes = []*types.Type{
	types.I8, types.I16, types.I32, types.I64,
	types.U8, types.U16, types.U32, types.U64,
	types.F32, types.F64,
}

func buildTable() map[string]*Func {
	t := make(map[string]*Func)
	add := func(name string, params []*types.Type, result *types.Type, call func(*Host, []types.Value) types.Value) {
		t[name] = &Func{Name: name, Params: params, Result: result, Call: call}
	}
	f64 := []*types.Type{types.F64}
	zero := types.Float(types.F64, 0)

	putc := func(h *Host, args []types.Value) types.Value {
		h.WriteByte(charOf(args[0]))
		return types.Zero(args[0].Type())
	}
	add("putchard", f64, types.F64, putc)
	add(CharHelper, f64, types.F64, putc)
	add("putchari", []*types.Type{types.I64}, types.I64, putc)

	for _, st := range scalarTypes {
		p := []*types.Type{st}
		add("putchar"+suffix(st), p, st, putc)
		add(PrintHelper(st), p, st, func(h *Host, args []types.Value) types.Value {
			h.WriteString(formatValue(args[0]))
			return types.Zero(st)
		})
	}

	add("printi", []*types.Type{types.I64}, types.I64, func(h *Host, args []types.Value) types.Value {
		h.WriteString(strconv.FormatInt(args[0].Int(), 10))
		return types.Zero(types.I64)
	})
	add("printd", f64, types.F64, func(h *Host, args []types.Value) types.Value {
		h.WriteString(formatFloat(args[0].Float()))
		return zero
	})
	add("printlf", nil, types.F64, func(h *Host, _ []types.Value) types.Value {
		h.WriteByte('\n')
		return zero
	})
	add("flushd", nil, types.F64, func(h *Host, _ []types.Value) types.Value {
		h.Flush()
		return zero
	})
	add("seedrand", f64, types.F64, func(h *Host, args []types.Value) types.Value {
		h.Seed(uint64(math.Abs(args[0].Float())))
		return zero
	})
	add("randd", f64, types.F64, func(h *Host, args []types.Value) types.Value {
		limit := args[0].Float()
		if !(limit > 0) {
			return zero
		}
		return types.Float(types.F64, h.Float64()*limit)
	})
	add("clockms", nil, types.F64, func(h *Host, _ []types.Value) types.Value {
		ms := float64(h.Now().UnixNano()) / 1e6
		return types.Float(types.F64, ms)
	})
	return t
}

// suffix names a scalar type the way the putchar family does: i8, u32, f64.
func suffix(t *types.Type) string {
	if t.IsFloat() {
		return "f" + strconv.Itoa(t.Bits)
	}
	return t.Name
}

// charOf truncates a value to the byte written by the putchar family.
func charOf(v types.Value) byte {
	if v.Type().IsFloat() {
		return byte(int64(v.Float()))
	}
	return byte(v.Bits())
}

func formatValue(v types.Value) string {
	if v.Type().IsFloat() {
		return formatFloat(v.Float())
	}
	return types.Format(v)
}

// formatFloat renders f with six decimals, spelling infinities and NaN
// the way C's printf does.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'f', 6, 64)
}
