package ssa

import (
	"fmt"
	"strings"
)

// String returns the textual form of the module: declarations first, then
// definitions in the order they were added.
func (m *Module) String() string {
	var sb strings.Builder
	if m.Name != "" {
		fmt.Fprintf(&sb, "; module %s\n", m.Name)
	}
	for _, f := range m.Funcs {
		if f.IsDecl() {
			sb.WriteString(f.String())
		}
	}
	for _, f := range m.Funcs {
		if !f.IsDecl() {
			sb.WriteByte('\n')
			sb.WriteString(f.String())
		}
	}
	return sb.String()
}

// String returns the textual form of a function.
func (f *Func) String() string {
	var sb strings.Builder
	if f.IsDecl() {
		fmt.Fprintf(&sb, "declare %s @%s(", f.Result, f.Name)
		for i, p := range f.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.Typ.String())
		}
		sb.WriteString(")\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "define %s @%s(", f.Result, f.Name)
	for i, p := range f.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s %%%s", p.Typ, p.Name)
	}
	sb.WriteString(") {\n")

	pr := &printer{names: make(map[*Instr]string)}
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			if in.HasValue() {
				pr.names[in] = fmt.Sprintf("%%%d", len(pr.names))
			}
		}
	}
	for i, b := range f.Blocks {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%s:\n", b.Name)
		for _, in := range b.Instrs {
			sb.WriteString("  ")
			pr.instr(&sb, in)
			sb.WriteByte('\n')
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

// printer numbers instruction results in block order.
type printer struct {
	names map[*Instr]string
}

func (p *printer) operand(v Value) string {
	switch v := v.(type) {
	case *Const:
		return v.Val.String()
	case *Param:
		return "%" + v.Name
	case *Instr:
		if name, ok := p.names[v]; ok {
			return name
		}
		return "%?"
	}
	return "?"
}

// typed renders an operand preceded by its type.
func (p *printer) typed(v Value) string {
	return v.Type().String() + " " + p.operand(v)
}

func (p *printer) instr(sb *strings.Builder, in *Instr) {
	if in.HasValue() {
		fmt.Fprintf(sb, "%s = ", p.names[in])
	}
	switch in.Op {
	case Alloca:
		fmt.Fprintf(sb, "alloca %s", in.Elem)
		if in.Hint != "" {
			fmt.Fprintf(sb, " ; %s", in.Hint)
		}
	case Load:
		fmt.Fprintf(sb, "load %s, %s", in.Typ, p.typed(in.Args[0]))
	case Store:
		fmt.Fprintf(sb, "store %s, %s", p.typed(in.Args[0]), p.typed(in.Args[1]))
	case ElemAddr:
		fmt.Fprintf(sb, "elemaddr %s, %s, %s", in.Elem, p.typed(in.Args[0]), p.typed(in.Args[1]))
	case FieldAddr:
		fmt.Fprintf(sb, "fieldaddr %s, %d ; %s", p.typed(in.Args[0]), in.Offset, in.Field)
	case ICmp:
		prefix := "s"
		if t := in.Args[0].Type(); !t.IsInteger() || !t.Signed {
			prefix = "u"
		}
		if in.Pred == EQ || in.Pred == NE {
			prefix = ""
		}
		fmt.Fprintf(sb, "icmp %s%s %s, %s", prefix, in.Pred, p.typed(in.Args[0]), p.operand(in.Args[1]))
	case FCmp:
		fmt.Fprintf(sb, "fcmp o%s %s, %s", in.Pred, p.typed(in.Args[0]), p.operand(in.Args[1]))
	case Conv:
		name := in.Conv.String()
		if name == "none" {
			name = "bitcast"
		}
		fmt.Fprintf(sb, "%s %s to %s", name, p.typed(in.Args[0]), in.Typ)
	case Phi:
		fmt.Fprintf(sb, "phi %s ", in.Typ)
		for i, v := range in.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(sb, "[ %s, %%%s ]", p.operand(v), in.Preds[i].Name)
		}
	case Call:
		fmt.Fprintf(sb, "call %s @%s(", in.Typ, in.Callee)
		for i, a := range in.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.typed(a))
		}
		sb.WriteByte(')')
	case Br:
		fmt.Fprintf(sb, "br label %%%s", in.Targets[0].Name)
	case CondBr:
		fmt.Fprintf(sb, "br %s, label %%%s, label %%%s", p.typed(in.Args[0]), in.Targets[0].Name, in.Targets[1].Name)
	case Ret:
		if len(in.Args) == 0 {
			sb.WriteString("ret void")
		} else {
			fmt.Fprintf(sb, "ret %s", p.typed(in.Args[0]))
		}
	default:
		if in.Op.IsUnary() {
			fmt.Fprintf(sb, "%s %s", in.Op, p.typed(in.Args[0]))
		} else {
			fmt.Fprintf(sb, "%s %s, %s", in.Op, p.typed(in.Args[0]), p.operand(in.Args[1]))
		}
	}
}
