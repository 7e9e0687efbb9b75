package types

// Conv names the machine conversion needed to turn a value of one scalar
// type into another.
type Conv uint8

const (
	ConvNone    Conv = iota // same representation
	ConvTrunc               // narrower integer
	ConvZExt                // wider integer, zero filled
	ConvSExt                // wider integer, sign filled
	ConvFPTrunc             // narrower float
	ConvFPExt               // wider float
	ConvSIToFP              // signed integer to float
	ConvUIToFP              // unsigned integer to float
	ConvFPToSI              // float to signed integer
	ConvFPToUI              // float to unsigned integer
	ConvInvalid
)

var convNames = [...]string{
	ConvNone:    "none",
	ConvTrunc:   "trunc",
	ConvZExt:    "zext",
	ConvSExt:    "sext",
	ConvFPTrunc: "fptrunc",
	ConvFPExt:   "fpext",
	ConvSIToFP:  "sitofp",
	ConvUIToFP:  "uitofp",
	ConvFPToSI:  "fptosi",
	ConvFPToUI:  "fptoui",
	ConvInvalid: "invalid",
}

func (c Conv) String() string {
	if int(c) < len(convNames) {
		return convNames[c]
	}
	return "invalid"
}

// Conversion returns the conversion from one scalar type to another.
// Pointers convert to pointers freely. i1 widens like an unsigned
// integer; nothing converts to i1 (truth tests compare against zero).
func Conversion(from, to *Type) Conv {
	switch {
	case Identical(from, to):
		return ConvNone
	case from.IsPointer() && to.IsPointer():
		return ConvNone
	case (from.IsInteger() || from.IsBool()) && to.IsInteger():
		switch {
		case from.Bits > to.Bits:
			return ConvTrunc
		case from.Bits == to.Bits:
			return ConvNone
		case from.IsInteger() && from.Signed:
			return ConvSExt
		default:
			return ConvZExt
		}
	case from.IsFloat() && to.IsFloat():
		if from.Bits > to.Bits {
			return ConvFPTrunc
		}
		return ConvFPExt
	case (from.IsInteger() || from.IsBool()) && to.IsFloat():
		if from.IsInteger() && from.Signed {
			return ConvSIToFP
		}
		return ConvUIToFP
	case from.IsFloat() && to.IsInteger():
		if to.Signed {
			return ConvFPToSI
		}
		return ConvFPToUI
	}
	return ConvInvalid
}

// FitsInt reports whether x is representable in integer type t.
func FitsInt(t *Type, x int64) bool {
	if t.Bits >= 64 {
		return t.Signed || x >= 0
	}
	if t.Signed {
		lim := int64(1) << (t.Bits - 1)
		return x >= -lim && x < lim
	}
	return x >= 0 && x < int64(1)<<t.Bits
}

// AssignableTo reports whether a value of type from may be stored into,
// passed as, or returned as type to. Numbers convert implicitly to any
// numeric type and pointers to any pointer type; aggregates and void
// are never assignable.
func AssignableTo(from, to *Type) bool {
	if !from.IsScalar() || !to.IsScalar() {
		return false
	}
	if from.IsPointer() || to.IsPointer() {
		return from.IsPointer() && to.IsPointer()
	}
	return Conversion(from, to) != ConvInvalid
}

// Promote returns the common type of two numeric operands: the wider
// width wins; between integers of equal width the unsigned one wins.
// Mixing integer and floating-point operands has no common type.
func Promote(a, b *Type) *Type {
	switch {
	case a.IsInteger() && b.IsInteger():
		switch {
		case a.Bits > b.Bits:
			return a
		case b.Bits > a.Bits:
			return b
		case !a.Signed:
			return a
		default:
			return b
		}
	case a.IsFloat() && b.IsFloat():
		if b.Bits > a.Bits {
			return b
		}
		return a
	}
	return Invalid
}
