package semantic

import (
	"github.com/kolkov/pyxc/internal/ast"
	"github.com/kolkov/pyxc/internal/token"
	"github.com/kolkov/pyxc/internal/types"
)

// SymbolKind defines the category of a symbol.
type SymbolKind int

const (
	SymbolLocal SymbolKind = iota // Declared with x: T, a for variable or a var binding
	SymbolParam                   // Function parameter
)

// String returns a human-readable name for the symbol kind.
func (k SymbolKind) String() string {
	switch k {
	case SymbolLocal:
		return "local"
	case SymbolParam:
		return "param"
	default:
		return "unknown"
	}
}

// Symbol holds information about a declared variable.
type Symbol struct {
	Name string         // Symbol name
	Kind SymbolKind     // Category
	Type *types.Type    // Declared or inferred type
	Pos  token.Position // Declaration position
}

// SymbolTable implements a hierarchical symbol table with scope support.
// Each scope can have a parent, enabling nested lookups. A function body
// gets a fresh table whose parent is nil; every suite, for loop and var
// expression pushes a child that is dropped when it ends, so shadowed
// bindings come back into view exactly once.
type SymbolTable struct {
	parent  *SymbolTable
	symbols map[string]*Symbol
	name    string // Scope name (e.g., function name or "block")
}

// NewSymbolTable creates a new symbol table with the given parent.
func NewSymbolTable(parent *SymbolTable, name string) *SymbolTable {
	return &SymbolTable{
		parent:  parent,
		symbols: make(map[string]*Symbol),
		name:    name,
	}
}

// Name returns the scope name.
func (st *SymbolTable) Name() string {
	return st.name
}

// Parent returns the enclosing scope, or nil for a function scope.
func (st *SymbolTable) Parent() *SymbolTable {
	return st.parent
}

// Define adds a new symbol to the current scope.
// Returns the created symbol, or nil if a symbol with that name already exists.
func (st *SymbolTable) Define(name string, kind SymbolKind, typ *types.Type, pos token.Position) *Symbol {
	if _, exists := st.symbols[name]; exists {
		return nil
	}
	sym := &Symbol{Name: name, Kind: kind, Type: typ, Pos: pos}
	st.symbols[name] = sym
	return sym
}

// Lookup searches for a symbol in this scope and all parent scopes.
func (st *SymbolTable) Lookup(name string) (*Symbol, bool) {
	for scope := st; scope != nil; scope = scope.parent {
		if sym, ok := scope.symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// LookupLocal searches for a symbol only in the current scope.
func (st *SymbolTable) LookupLocal(name string) (*Symbol, bool) {
	sym, ok := st.symbols[name]
	return sym, ok
}

// Signature is the checked form of a prototype: what a call site needs
// to know about a function defined in this or an earlier unit.
type Signature struct {
	Name       string
	Params     []*types.Type
	ParamNames []string
	Result     *types.Type
	Kind       ast.ProtoKind
	Operator   string
	Precedence int
	Extern     bool // declared with extern and not defined in pyxc
	Pos        token.Position
}

// Identical reports whether two signatures have the same parameter and
// result types.
func (s *Signature) Identical(o *Signature) bool {
	if len(s.Params) != len(o.Params) || !types.Identical(s.Result, o.Result) {
		return false
	}
	for i, p := range s.Params {
		if !types.Identical(p, o.Params[i]) {
			return false
		}
	}
	return true
}

// String returns the signature in prototype syntax.
func (s *Signature) String() string {
	buf := []byte(s.Name)
	buf = append(buf, '(')
	for i, p := range s.Params {
		if i > 0 {
			buf = append(buf, ", "...)
		}
		if i < len(s.ParamNames) {
			buf = append(buf, s.ParamNames[i]...)
			buf = append(buf, ": "...)
		}
		buf = append(buf, p.String()...)
	}
	buf = append(buf, ") -> "...)
	buf = append(buf, s.Result.String()...)
	return string(buf)
}

// alias is a declared type alias. The target is kept as syntax and
// resolved at each use, so an alias may name a struct declared later.
type alias struct {
	name   string
	pos    token.Position
	target ast.TypeExpr
	fixed  *types.Type // predeclared aliases
}

// Env is the global environment shared by the units of one compilation
// or session: type aliases, struct types and the prototype registry.
// Entries are only added; a failed unit leaves the Env as it found it.
type Env struct {
	aliases map[string]*alias
	structs map[string]*types.Type
	funcs   map[string]*Signature
	defined map[string]bool

	// AllowRedefine lets a later def replace an earlier definition of the
	// same function, as an interactive session expects.
	AllowRedefine bool
}

// NewEnv returns an environment holding the predeclared aliases.
func NewEnv() *Env {
	env := &Env{
		aliases: make(map[string]*alias),
		structs: make(map[string]*types.Type),
		funcs:   make(map[string]*Signature),
		defined: make(map[string]bool),
	}
	for name, t := range types.DefaultAliases {
		env.aliases[name] = &alias{name: name, fixed: t}
	}
	return env
}

// Lookup returns the signature registered for a function name.
func (env *Env) Lookup(name string) (*Signature, bool) {
	sig, ok := env.funcs[name]
	return sig, ok
}

// Defined reports whether a body was checked for the named function.
func (env *Env) Defined(name string) bool {
	return env.defined[name]
}

// Declare registers a signature that has no pyxc body, such as an extern
// declaration of a runtime library function.
func (env *Env) Declare(sig *Signature) {
	env.funcs[sig.Name] = sig
}

// Struct returns the struct type with the given name.
func (env *Env) Struct(name string) (*types.Type, bool) {
	t, ok := env.structs[name]
	return t, ok
}
