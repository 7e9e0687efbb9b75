package types

// PointerSize is the size and alignment of every pointer, in bytes.
const PointerSize = 8

// Size returns the storage size of t in bytes.
func Size(t *Type) int64 {
	switch t.Kind {
	case KindBool:
		return 1
	case KindInt, KindFloat:
		return int64(t.Bits / 8)
	case KindPointer:
		return PointerSize
	case KindArray:
		return stride(t.Elem) * t.Len
	case KindStruct:
		var off int64
		for _, f := range t.Fields {
			off = alignUp(off, Align(f.Type)) + Size(f.Type)
		}
		return alignUp(off, Align(t))
	}
	return 0
}

// Align returns the alignment of t in bytes.
func Align(t *Type) int64 {
	switch t.Kind {
	case KindArray:
		return Align(t.Elem)
	case KindStruct:
		a := int64(1)
		for _, f := range t.Fields {
			a = max(a, Align(f.Type))
		}
		return a
	case KindVoid, KindInvalid:
		return 1
	}
	return max(Size(t), 1)
}

// Stride returns the distance in bytes between consecutive elements of
// an array or pointer of elem.
func Stride(elem *Type) int64 {
	return stride(elem)
}

func stride(t *Type) int64 {
	if t.IsVoid() {
		return 1
	}
	return alignUp(Size(t), Align(t))
}

// FieldOffset returns the byte offset of field i of struct t.
func FieldOffset(t *Type, i int) int64 {
	var off int64
	for j, f := range t.Fields {
		off = alignUp(off, Align(f.Type))
		if j == i {
			return off
		}
		off += Size(f.Type)
	}
	return off
}

func alignUp(n, a int64) int64 {
	if a <= 1 {
		return n
	}
	return (n + a - 1) / a * a
}
