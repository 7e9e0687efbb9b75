package ssa

// Op identifies an instruction.
type Op uint8

const (
	// Memory
	Alloca    Op = iota // Reserve a stack slot of type Elem: %r = alloca T
	Load                // Read a slot: %r = load T, ptr[T] addr
	Store               // Write a slot: store T v, ptr[T] addr
	ElemAddr            // Address of element: %r = elemaddr T, base, index
	FieldAddr           // Address of struct field: %r = fieldaddr base, offset

	// Integer arithmetic (operands and result of one type)
	Add
	Sub
	Mul
	SDiv
	UDiv
	SRem
	URem

	// Floating-point arithmetic
	FAdd
	FSub
	FMul
	FDiv
	FRem

	// Bitwise
	And
	Or
	Xor
	Shl
	LShr // logical shift right, zero filled
	AShr // arithmetic shift right, sign filled

	// Unary
	Neg  // integer negation
	FNeg // floating-point negation
	Not  // bitwise complement; on i1, logical not

	// Comparison: result is i1
	ICmp // integers, pointers and i1
	FCmp // floats; false when either operand is NaN, except ne

	// Other
	Conv // conversion selected by Instr.Conv
	Phi  // join of values by predecessor
	Call // call of Instr.Callee

	// Terminators
	Br     // unconditional branch
	CondBr // branch on an i1
	Ret    // return, with or without a value

	numOps
)

var opNames = [...]string{
	Alloca:    "alloca",
	Load:      "load",
	Store:     "store",
	ElemAddr:  "elemaddr",
	FieldAddr: "fieldaddr",
	Add:       "add",
	Sub:       "sub",
	Mul:       "mul",
	SDiv:      "sdiv",
	UDiv:      "udiv",
	SRem:      "srem",
	URem:      "urem",
	FAdd:      "fadd",
	FSub:      "fsub",
	FMul:      "fmul",
	FDiv:      "fdiv",
	FRem:      "frem",
	And:       "and",
	Or:        "or",
	Xor:       "xor",
	Shl:       "shl",
	LShr:      "lshr",
	AShr:      "ashr",
	Neg:       "neg",
	FNeg:      "fneg",
	Not:       "not",
	ICmp:      "icmp",
	FCmp:      "fcmp",
	Conv:      "conv",
	Phi:       "phi",
	Call:      "call",
	Br:        "br",
	CondBr:    "br",
	Ret:       "ret",
}

// String returns the mnemonic of the op.
func (op Op) String() string {
	if op < numOps {
		return opNames[op]
	}
	return "op(?)"
}

// IsTerminator reports whether op ends a block.
func (op Op) IsTerminator() bool {
	return op == Br || op == CondBr || op == Ret
}

// IsBinary reports whether op takes two operands of the result type.
func (op Op) IsBinary() bool {
	return op >= Add && op <= AShr
}

// IsFloat reports whether op operates on floating-point values.
func (op Op) IsFloat() bool {
	return op >= FAdd && op <= FRem || op == FNeg || op == FCmp
}

// IsUnary reports whether op takes one operand of the result type.
func (op Op) IsUnary() bool {
	return op == Neg || op == FNeg || op == Not
}

// Pred is the predicate of a comparison. Integer comparisons are signed
// or unsigned according to the operand type.
type Pred uint8

const (
	EQ Pred = iota
	NE
	LT
	LE
	GT
	GE
)

// String returns the predicate name.
func (p Pred) String() string {
	return [...]string{"eq", "ne", "lt", "le", "gt", "ge"}[p]
}

// Holds reports whether the predicate holds for a three-way comparison
// result.
func (p Pred) Holds(cmp int) bool {
	switch p {
	case EQ:
		return cmp == 0
	case NE:
		return cmp != 0
	case LT:
		return cmp < 0
	case LE:
		return cmp <= 0
	case GT:
		return cmp > 0
	}
	return cmp >= 0
}
