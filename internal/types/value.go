package types

import (
	"math"
	"strconv"
	"strings"
)

// Value is a scalar of a given type: an integer, i1, pointer or float.
// Integers and pointers keep their bit pattern truncated to the type
// width; f32 values are kept rounded to single precision.
// Values are passed by value.
type Value struct {
	typ  *Type
	bits uint64
	num  float64
}

// Constructors

// Int returns the integer x as a value of integer type t, wrapping it to
// the width of t.
func Int(t *Type, x int64) Value {
	return Value{typ: t, bits: wrap(uint64(x), t.Bits)}
}

// Uint returns x as a value of integer type t, wrapping it to the width of t.
func Uint(t *Type, x uint64) Value {
	return Value{typ: t, bits: wrap(x, t.Bits)}
}

// Float returns x as a value of floating-point type t.
func Float(t *Type, x float64) Value {
	if t.Bits == 32 {
		x = float64(float32(x))
	}
	return Value{typ: t, num: x}
}

// Truth returns the i1 value for b.
func Truth(b bool) Value {
	if b {
		return Value{typ: Bool, bits: 1}
	}
	return Value{typ: Bool}
}

// Pointer returns the address addr as a value of pointer type t.
func Pointer(t *Type, addr uint64) Value {
	return Value{typ: t, bits: addr}
}

// Zero returns the zero value of scalar type t.
func Zero(t *Type) Value {
	return Value{typ: t}
}

// Accessors

// Type returns the value's type.
func (v Value) Type() *Type {
	return v.typ
}

// Bits returns the raw bit pattern of an integer, i1 or pointer value.
func (v Value) Bits() uint64 {
	return v.bits
}

// Int returns an integer value sign-extended according to its type.
func (v Value) Int() int64 {
	if v.typ.IsFloat() {
		return int64(v.num)
	}
	if v.typ.IsInteger() && v.typ.Signed {
		return signExtend(v.bits, v.typ.Bits)
	}
	return int64(v.bits)
}

// Uint returns the bit pattern of an integer value as unsigned.
func (v Value) Uint() uint64 {
	return v.bits
}

// Float returns a floating-point value, or the numeric value of an integer.
func (v Value) Float() float64 {
	switch {
	case v.typ.IsFloat():
		return v.num
	case v.typ.IsInteger() && v.typ.Signed:
		return float64(v.Int())
	}
	return float64(v.bits)
}

// IsTrue applies the language truth convention: zero is false.
func (v Value) IsTrue() bool {
	if v.typ.IsFloat() {
		return v.num != 0
	}
	return v.bits != 0
}

// Conversions

// Convert returns v converted to type to following the Conversion table.
// Float to integer conversions saturate at the bounds of the target and
// map NaN to zero, so the result is always deterministic.
func (v Value) Convert(to *Type) Value {
	switch Conversion(v.typ, to) {
	case ConvNone, ConvTrunc, ConvZExt:
		if to.IsFloat() {
			return Float(to, v.num)
		}
		if to.IsPointer() {
			return Pointer(to, v.bits)
		}
		return Uint(to, v.bits)
	case ConvSExt:
		return Int(to, v.Int())
	case ConvFPTrunc, ConvFPExt:
		return Float(to, v.num)
	case ConvSIToFP:
		return Float(to, float64(v.Int()))
	case ConvUIToFP:
		return Float(to, float64(v.bits))
	case ConvFPToSI:
		return Int(to, saturateSigned(v.num, to.Bits))
	case ConvFPToUI:
		return Uint(to, saturateUnsigned(v.num, to.Bits))
	}
	return Zero(to)
}

// String returns the value in the syntax of the textual SSA form.
func (v Value) String() string {
	switch {
	case v.typ.IsFloat():
		return FormatFloat(v.num)
	case v.typ.IsPointer():
		if v.bits == 0 {
			return "null"
		}
		return "0x" + strconv.FormatUint(v.bits, 16)
	case v.typ.IsBool():
		if v.bits != 0 {
			return "true"
		}
		return "false"
	}
	return Format(v)
}

// Format renders v the way print shows it: signed integers in decimal,
// unsigned integers as unsigned decimal, floats with six decimals.
func Format(v Value) string {
	switch {
	case v.typ.IsFloat():
		return strconv.FormatFloat(v.num, 'f', 6, 64)
	case v.typ.IsInteger() && v.typ.Signed:
		return strconv.FormatInt(v.Int(), 10)
	}
	return strconv.FormatUint(v.bits, 10)
}

// FormatFloat renders a float so that it always reads back as a float.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if strings.ContainsAny(s, ".eIN") {
		return s
	}
	return s + ".0"
}

// Compare returns -1, 0 or 1 comparing two values of the same type.
// Integers compare by their type's signedness. NaN compares unordered
// and is reported through ok.
func Compare(a, b Value) (cmp int, ok bool) {
	switch {
	case a.typ.IsFloat():
		x, y := a.num, b.num
		if math.IsNaN(x) || math.IsNaN(y) {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case a.typ.IsInteger() && a.typ.Signed:
		x, y := a.Int(), b.Int()
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	}
	x, y := a.bits, b.bits
	switch {
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	}
	return 0, true
}

// ParseInt parses a decimal integer literal. Literals above the int64
// range wrap, matching two's complement arithmetic.
func ParseInt(s string) (int64, error) {
	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return int64(u), nil
}

// ParseFloat parses a decimal floating-point literal such as 2.5, 3. or .5.
func ParseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

func wrap(x uint64, bits int) uint64 {
	if bits >= 64 || bits <= 0 {
		return x
	}
	return x & (1<<uint(bits) - 1)
}

func signExtend(x uint64, bits int) int64 {
	if bits >= 64 || bits <= 0 {
		return int64(x)
	}
	shift := uint(64 - bits)
	return int64(x<<shift) >> shift
}

func saturateSigned(f float64, bits int) int64 {
	if math.IsNaN(f) {
		return 0
	}
	hi := math.Ldexp(1, bits-1)
	switch {
	case f >= hi:
		return int64(1)<<uint(bits-1) - 1
	case f <= -hi:
		return -(int64(1) << uint(bits-1))
	}
	return int64(f)
}

func saturateUnsigned(f float64, bits int) uint64 {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	hi := math.Ldexp(1, bits)
	if f >= hi {
		return wrap(math.MaxUint64, bits)
	}
	return uint64(f)
}
