package pyxc

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/kolkov/pyxc/internal/ast"
	"github.com/kolkov/pyxc/internal/llvmir"
	"github.com/kolkov/pyxc/internal/ssa"
)

// Program represents a compiled pyxc program ready for execution.
// It is safe for concurrent use; each call to Run links the units into
// a fresh interpreter.
type Program struct {
	source   string
	filename string
	units    []*Unit
	warnings []string
}

// Run executes the compiled program with the given configuration.
// Returns the output as a string, or an error if execution fails.
//
// If config is nil, default configuration is used.
// If config.Output is set, output is written there and the returned
// string will be empty. A non-zero result of main is returned as an
// *ExitError together with the output.
func (p *Program) Run(config *Config) (string, error) {
	return p.RunContext(context.Background(), config)
}

// RunContext is like Run but stops with the context's error when ctx is
// canceled.
func (p *Program) RunContext(ctx context.Context, config *Config) (string, error) {
	cfg := normalize(config)

	// Set output capture if not provided
	var outputBuf *bytes.Buffer
	out := cfg.Output
	if out == nil {
		outputBuf = &bytes.Buffer{}
		out = outputBuf
	}
	captured := func() string {
		if outputBuf == nil {
			return ""
		}
		return outputBuf.String()
	}

	x := newExecutor(&cfg, out)
	for _, u := range p.units {
		if err := x.link(u); err != nil {
			return captured(), &CompileError{Message: err.Error()}
		}
		if !u.anon {
			continue
		}
		if _, _, err := x.run(ctx, u); err != nil {
			return captured(), err
		}
	}
	if err := x.runMain(ctx); err != nil {
		return captured(), err
	}
	return captured(), nil
}

// Units returns the compiled units in source order.
func (p *Program) Units() []*Unit {
	return p.units
}

// Source returns the original pyxc source code.
func (p *Program) Source() string {
	return p.source
}

// Warnings returns the warnings reported while compiling, such as
// unreachable code.
func (p *Program) Warnings() []string {
	return p.warnings
}

// IR returns the textual SSA of every unit, one module after another.
func (p *Program) IR() string {
	mods := make([]string, 0, len(p.units))
	for _, u := range p.units {
		mods = append(mods, u.IR())
	}
	return strings.Join(mods, "\n")
}

// FilterIR is like IR but keeps only the functions whose names match the
// regular expression expr. Units left without a matching definition are
// omitted.
func (p *Program) FilterIR(expr string) (string, error) {
	var mods []string
	for _, u := range p.units {
		m, err := u.mod.Filter(expr)
		if err != nil {
			return "", err
		}
		if len(m.Defined()) > 0 {
			mods = append(mods, m.String())
		}
	}
	return strings.Join(mods, "\n"), nil
}

// LLVM returns the program as a single LLVM IR module. Top-level
// statements become the functions __anon_expr.0, __anon_expr.1, ... in
// source order.
func (p *Program) LLVM() (string, error) {
	mods := make([]*ssa.Module, 0, len(p.units))
	anon := 0
	for _, u := range p.units {
		if !u.anon {
			mods = append(mods, u.mod)
			continue
		}
		m := *u.mod
		m.Funcs = make([]*ssa.Func, len(u.mod.Funcs))
		for i, f := range u.mod.Funcs {
			if f.Name == ast.AnonName && !f.IsDecl() {
				renamed := *f
				renamed.Name = fmt.Sprintf("%s.%d", ast.AnonName, anon)
				f = &renamed
			}
			m.Funcs[i] = f
		}
		mods = append(mods, &m)
		anon++
	}
	name := "pyxc"
	if p.filename != "" {
		name = p.filename
	}
	return llvmir.String(name, mods...)
}

// AST returns the syntax tree of the program printed as source.
func (p *Program) AST() string {
	prog := &ast.Program{}
	for _, u := range p.units {
		prog.Decls = append(prog.Decls, u.decl)
	}
	return ast.String(prog)
}
