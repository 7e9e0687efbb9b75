// Package types defines the static type model of pyxc and the scalar
// values that flow through constant folding and execution.
package types

import (
	"fmt"
	"strings"
)

// Kind classifies a Type.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindVoid
	KindBool // i1, produced by comparisons inside the SSA form only
	KindInt
	KindFloat
	KindPointer
	KindArray
	KindStruct
)

// String returns a string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindPointer:
		return "pointer"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	default:
		return "invalid"
	}
}

// Type is a resolved pyxc type. Scalar types are shared singletons;
// pointer and array types are built on demand and compared structurally,
// struct types are compared by name.
type Type struct {
	Kind   Kind
	Bits   int     // width of Int and Float types
	Signed bool    // Int only
	Elem   *Type   // Pointer and Array element
	Len    int64   // Array length
	Name   string  // Struct name, or the builtin spelling of a scalar
	Fields []Field // Struct fields in declaration order
}

// Field is one member of a struct type.
type Field struct {
	Name string
	Type *Type
}

// Predeclared types.
var (
	Invalid = &Type{Kind: KindInvalid, Name: "invalid"}
	Void    = &Type{Kind: KindVoid, Name: "void"}
	Bool    = &Type{Kind: KindBool, Bits: 1, Name: "i1"}

	I8  = &Type{Kind: KindInt, Bits: 8, Signed: true, Name: "i8"}
	I16 = &Type{Kind: KindInt, Bits: 16, Signed: true, Name: "i16"}
	I32 = &Type{Kind: KindInt, Bits: 32, Signed: true, Name: "i32"}
	I64 = &Type{Kind: KindInt, Bits: 64, Signed: true, Name: "i64"}
	U8  = &Type{Kind: KindInt, Bits: 8, Name: "u8"}
	U16 = &Type{Kind: KindInt, Bits: 16, Name: "u16"}
	U32 = &Type{Kind: KindInt, Bits: 32, Name: "u32"}
	U64 = &Type{Kind: KindInt, Bits: 64, Name: "u64"}
	F32 = &Type{Kind: KindFloat, Bits: 32, Name: "f32"}
	F64 = &Type{Kind: KindFloat, Bits: 64, Name: "f64"}
)

// builtins maps the builtin type spellings to their types.
var builtins = map[string]*Type{
	"void": Void,
	"i8":   I8,
	"i16":  I16,
	"i32":  I32,
	"i64":  I64,
	"u8":   U8,
	"u16":  U16,
	"u32":  U32,
	"u64":  U64,
	"f32":  F32,
	"f64":  F64,
}

// DefaultAliases are the aliases every unit starts with.
var DefaultAliases = map[string]*Type{
	"int":    I32,
	"char":   I8,
	"float":  F32,
	"double": F64,
	"long":   I64,
	"size_t": U64,
}

// Builtin returns the builtin type spelled name, or nil.
func Builtin(name string) *Type {
	return builtins[name]
}

// IsBuiltinName reports whether name spells a builtin type or one of the
// type constructors ptr and array.
func IsBuiltinName(name string) bool {
	return builtins[name] != nil || name == "ptr" || name == "array"
}

// NewPointer returns the type ptr[elem].
func NewPointer(elem *Type) *Type {
	return &Type{Kind: KindPointer, Elem: elem}
}

// NewArray returns the type array[elem, n].
func NewArray(elem *Type, n int64) *Type {
	return &Type{Kind: KindArray, Elem: elem, Len: n}
}

// NewStruct returns a struct type with the given fields.
func NewStruct(name string, fields []Field) *Type {
	return &Type{Kind: KindStruct, Name: name, Fields: fields}
}

// String returns the type in source syntax.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case KindPointer:
		return "ptr[" + t.Elem.String() + "]"
	case KindArray:
		return fmt.Sprintf("array[%s, %d]", t.Elem, t.Len)
	}
	return t.Name
}

// Predicates

func (t *Type) IsVoid() bool    { return t != nil && t.Kind == KindVoid }
func (t *Type) IsBool() bool    { return t != nil && t.Kind == KindBool }
func (t *Type) IsInteger() bool { return t != nil && t.Kind == KindInt }
func (t *Type) IsFloat() bool   { return t != nil && t.Kind == KindFloat }
func (t *Type) IsPointer() bool { return t != nil && t.Kind == KindPointer }
func (t *Type) IsArray() bool   { return t != nil && t.Kind == KindArray }
func (t *Type) IsStruct() bool  { return t != nil && t.Kind == KindStruct }
func (t *Type) IsInvalid() bool { return t == nil || t.Kind == KindInvalid }

// IsNumeric reports whether t is an integer or floating-point type.
func (t *Type) IsNumeric() bool {
	return t.IsInteger() || t.IsFloat()
}

// IsScalar reports whether values of t fit in a register: numbers,
// pointers and i1. Only scalars can be parameters, results, operands
// or assigned as a whole.
func (t *Type) IsScalar() bool {
	return t.IsNumeric() || t.IsPointer() || t.IsBool()
}

// IsIndexable reports whether t can be indexed with p[n].
func (t *Type) IsIndexable() bool {
	return t.IsPointer() || t.IsArray()
}

// Field returns the index and type of the named struct field.
func (t *Type) Field(name string) (int, *Type, bool) {
	if !t.IsStruct() {
		return -1, nil, false
	}
	for i, f := range t.Fields {
		if f.Name == name {
			return i, f.Type, true
		}
	}
	return -1, nil, false
}

// FieldNames returns the struct's field names joined by ", ".
func (t *Type) FieldNames() string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return strings.Join(names, ", ")
}

// Identical reports whether a and b denote the same type.
func Identical(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindInt:
		return a.Bits == b.Bits && a.Signed == b.Signed
	case KindFloat, KindBool:
		return a.Bits == b.Bits
	case KindPointer:
		return Identical(a.Elem, b.Elem)
	case KindArray:
		return a.Len == b.Len && Identical(a.Elem, b.Elem)
	case KindStruct:
		return a.Name == b.Name
	}
	return true
}
