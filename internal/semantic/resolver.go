package semantic

import (
	"github.com/kolkov/pyxc/internal/ast"
	"github.com/kolkov/pyxc/internal/token"
	"github.com/kolkov/pyxc/internal/types"
)

// typeResolver turns type syntax into types. Aliases are followed
// through visiting, which detects alias cycles.
type typeResolver struct {
	env      *Env
	errors   *ErrorList
	visiting map[string]bool

	// lenient accepts names that are not declared yet; they resolve to
	// Invalid without an error. Used when an alias is declared.
	lenient bool

	// depth counts the aliases being followed. site is the outermost
	// reference, the one written in the syntax being resolved.
	depth int
	site  token.Position
}

func (env *Env) resolver(errs *ErrorList) *typeResolver {
	return &typeResolver{env: env, errors: errs, visiting: make(map[string]bool)}
}

func (r *typeResolver) resolve(te ast.TypeExpr) *types.Type {
	switch n := te.(type) {
	case *ast.NamedType:
		return r.named(n.Name, n.Pos())
	case *ast.PointerType:
		elem := r.resolve(n.Elem)
		if elem.IsInvalid() {
			return types.Invalid
		}
		return types.NewPointer(elem)
	case *ast.ArrayType:
		elem := r.resolve(n.Elem)
		if elem.IsInvalid() {
			return types.Invalid
		}
		if elem.IsVoid() {
			r.errors.Add(n.Elem.Pos(), errVoidElement)
			return types.Invalid
		}
		return types.NewArray(elem, n.Len)
	}
	return types.Invalid
}

func (r *typeResolver) named(name string, pos token.Position) *types.Type {
	if t := types.Builtin(name); t != nil {
		return t
	}
	if t, ok := r.env.Struct(name); ok {
		return t
	}
	a, ok := r.env.aliases[name]
	if !ok {
		if !r.lenient {
			r.errors.Add(pos, errUnknownType, name)
		}
		return types.Invalid
	}
	if a.fixed != nil {
		return a.fixed
	}
	if r.depth == 0 {
		r.site = pos
	}
	if r.visiting[name] {
		r.errors.Add(r.site, errAliasCycle, name)
		return types.Invalid
	}
	r.visiting[name] = true
	r.depth++
	defer func() {
		r.depth--
		delete(r.visiting, name)
	}()
	return r.resolve(a.target)
}

// declareAlias registers type Name = Target. A target naming a type that
// is not declared yet is accepted and reported where the alias is used;
// a target that leads back to the alias is rejected immediately.
func (env *Env) declareAlias(d *ast.TypeAliasDecl, errs *ErrorList) {
	if types.IsBuiltinName(d.Name) {
		errs.Add(d.NamePos, errRedefineBuiltinType, d.Name)
		return
	}
	if _, ok := env.structs[d.Name]; ok {
		errs.Add(d.NamePos, errTypeRedeclared, d.Name)
		return
	}

	prev, hadPrev := env.aliases[d.Name]
	env.aliases[d.Name] = &alias{name: d.Name, pos: d.NamePos, target: d.Target}

	r := env.resolver(errs)
	r.lenient = true
	r.visiting[d.Name] = true
	mark := len(*errs)
	r.resolve(d.Target)
	if len(*errs) > mark {
		if hadPrev {
			env.aliases[d.Name] = prev
		} else {
			delete(env.aliases, d.Name)
		}
	}
}

// declareStruct registers a struct type. The struct is visible to its own
// fields so that ptr[Self] works; containing itself by value does not.
func (env *Env) declareStruct(d *ast.StructDecl, errs *ErrorList) *types.Type {
	switch {
	case types.IsBuiltinName(d.Name):
		errs.Add(d.NamePos, errRedefineBuiltinType, d.Name)
		return nil
	case env.aliases[d.Name] != nil:
		errs.Add(d.NamePos, errTypeRedeclared, d.Name)
		return nil
	case env.structs[d.Name] != nil:
		errs.Add(d.NamePos, errStructRedefined, d.Name)
		return nil
	}

	st := types.NewStruct(d.Name, nil)
	env.structs[d.Name] = st

	mark := len(*errs)
	r := env.resolver(errs)
	fields := make([]types.Field, 0, len(d.Fields))
	for _, f := range d.Fields {
		ft := r.resolve(f.Type)
		switch {
		case ft.IsInvalid():
		case ft.IsVoid():
			errs.Add(f.Pos, errVoidField, f.Name)
		case contains(ft, st):
			errs.Add(f.Pos, errStructContainsSelf, d.Name)
		}
		fields = append(fields, types.Field{Name: f.Name, Type: ft})
	}
	if len(*errs) > mark {
		delete(env.structs, d.Name)
		return nil
	}
	st.Fields = fields
	return st
}

// contains reports whether a value of type t embeds st by value.
func contains(t, st *types.Type) bool {
	for t.IsArray() {
		t = t.Elem
	}
	return t == st
}

// signature resolves a prototype. Parameters must be scalars; the result
// is void or a scalar.
func (env *Env) signature(p *ast.Prototype, errs *ErrorList) *Signature {
	r := env.resolver(errs)
	mark := len(*errs)
	sig := &Signature{
		Name:       p.Name,
		Kind:       p.Kind,
		Operator:   p.Operator,
		Precedence: p.Precedence,
		Pos:        p.NamePos,
	}
	for _, param := range p.Params {
		t := r.resolve(param.Type)
		switch {
		case t.IsInvalid():
		case t.IsVoid():
			errs.Add(param.Pos, errVoidParam, param.Name)
		case !t.IsScalar():
			errs.Add(param.Pos, errAggregateParam, param.Name, t)
		}
		sig.Params = append(sig.Params, t)
		sig.ParamNames = append(sig.ParamNames, param.Name)
	}
	sig.Result = types.Void
	if p.Result != nil {
		sig.Result = r.resolve(p.Result)
		if !sig.Result.IsInvalid() && !sig.Result.IsVoid() && !sig.Result.IsScalar() {
			errs.Add(p.Result.Pos(), errAggregateResult, p.Name, sig.Result)
		}
	}
	if len(*errs) > mark {
		return nil
	}
	return sig
}

// declareExtern registers an extern prototype. Repeating an identical
// declaration is allowed.
func (env *Env) declareExtern(d *ast.ExternDecl, errs *ErrorList) *Signature {
	sig := env.signature(d.Proto, errs)
	if sig == nil {
		return nil
	}
	sig.Extern = true
	if prev, ok := env.Lookup(sig.Name); ok {
		if !prev.Identical(sig) && !env.AllowRedefine {
			errs.Add(d.Proto.NamePos, errConflictingDecl, sig.Name)
			return nil
		}
		if env.Defined(sig.Name) {
			return prev
		}
	}
	env.Declare(sig)
	return sig
}
