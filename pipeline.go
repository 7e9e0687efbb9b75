package pyxc

import (
	"context"
	"io"
	"log/slog"

	"github.com/kolkov/pyxc/internal/ast"
	"github.com/kolkov/pyxc/internal/compiler"
	"github.com/kolkov/pyxc/internal/parser"
	"github.com/kolkov/pyxc/internal/runtime"
	"github.com/kolkov/pyxc/internal/semantic"
	"github.com/kolkov/pyxc/internal/source"
	"github.com/kolkov/pyxc/internal/ssa"
	"github.com/kolkov/pyxc/internal/types"
	"github.com/kolkov/pyxc/internal/vm"
)

// Unit is one compiled top-level form: a function definition, an extern
// declaration, a type or struct declaration, or a top-level statement
// wrapped in an anonymous function.
type Unit struct {
	name string
	anon bool
	decl ast.Decl
	mod  *ssa.Module
}

// Name returns the unit's name: the function, type or struct it
// declares, or "__anon_expr" for a top-level statement.
func (u *Unit) Name() string { return u.name }

// IsAnon reports whether the unit is a top-level statement, executed when
// it is reached and then discarded.
func (u *Unit) IsAnon() bool { return u.anon }

// IR returns the textual SSA of the unit.
func (u *Unit) IR() string { return u.mod.String() }

// AST returns the unit's syntax tree printed as source.
func (u *Unit) AST() string { return ast.String(u.decl) }

// compilation is the state shared by the units of one program or session:
// the source ledger, the operator table and the global environment.
type compilation struct {
	cfg      *Config
	ledger   *source.Ledger
	ops      *parser.OpTable
	env      *semantic.Env
	log      *slog.Logger
	errs     ErrorList
	warnings []string
}

func newCompilation(cfg *Config) *compilation {
	return &compilation{
		cfg:    cfg,
		ledger: source.NewLedger(),
		ops:    parser.NewOpTable(),
		env:    semantic.NewEnv(),
		log:    cfg.logger(),
	}
}

// process parses, checks and lowers the top-level forms of src in order
// and hands each compiled unit to emit. A form with errors is reported
// and skipped, and processing resumes with the next form. process stops
// at the first error emit returns.
func (c *compilation) process(src string, emit func(*Unit) error) error {
	defer c.ledger.Terminate()
	p := parser.New([]byte(src), parser.Options{
		Filename: c.cfg.Filename,
		Ledger:   c.ledger,
		Ops:      c.ops,
	})
	for {
		decl, err := p.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			c.fail(err)
			continue
		}
		u, err := c.lower(decl)
		if err != nil {
			c.fail(err)
			c.withdraw(decl)
			continue
		}
		if err := emit(u); err != nil {
			return err
		}
	}
}

// lower checks and compiles one parsed form.
func (c *compilation) lower(decl ast.Decl) (*Unit, error) {
	cu, err := c.env.Check(decl)
	if err != nil {
		return nil, err
	}
	for _, w := range cu.Warnings {
		c.ledger.Report(c.cfg.Stderr, w.Pos, "warning: "+w.Message)
		c.warnings = append(c.warnings, w.String())
	}
	mod, err := compiler.Compile(cu, c.env)
	if err != nil {
		return nil, err
	}
	if c.cfg.Optimize {
		ssa.Optimize(mod)
	}
	return &Unit{
		name: mod.Name,
		anon: cu.Func != nil && cu.Func.Anon,
		decl: decl,
		mod:  mod,
	}, nil
}

// fail reports err through the ledger and records its diagnostics.
func (c *compilation) fail(err error) {
	for _, d := range diagnostics(err) {
		c.ledger.Report(c.cfg.Stderr, d.pos, d.msg)
		c.errs = append(c.errs, d.err)
	}
}

// withdraw removes the operator a rejected definition registered while it
// was parsed.
func (c *compilation) withdraw(decl ast.Decl) {
	fd, ok := decl.(*ast.FuncDecl)
	if !ok {
		return
	}
	switch fd.Proto.Kind {
	case ast.ProtoUnary:
		c.ops.RemoveUnary(fd.Proto.Operator)
	case ast.ProtoBinary:
		c.ops.RemoveBinary(fd.Proto.Operator)
	}
}

// executor links units into an interpreter and runs them.
type executor struct {
	engine *vm.Engine
	log    *slog.Logger
}

func newExecutor(cfg *Config, out io.Writer) *executor {
	host := runtime.NewHost(out, cfg.Seed)
	return &executor{
		engine: vm.New(host, cfg.vmConfig()),
		log:    cfg.logger(),
	}
}

// link adds u to the engine.
func (x *executor) link(u *Unit) error {
	if err := x.engine.Add(u.mod); err != nil {
		return err
	}
	blocks, instrs := 0, 0
	for _, f := range u.mod.Defined() {
		blocks += len(f.Blocks)
		instrs += f.NumInstrs()
	}
	x.log.Debug("unit linked", "unit", u.name, "funcs", len(u.mod.Funcs), "blocks", blocks, "instrs", instrs)
	return nil
}

// run calls an anonymous unit and unlinks it. The result is the value the
// statement produced, and false when it produced none.
func (x *executor) run(ctx context.Context, u *Unit) (types.Value, bool, error) {
	defer func() {
		x.engine.Remove(u.name)
		x.log.Debug("unit removed", "unit", u.name)
	}()
	v, err := x.engine.Call(ctx, u.name)
	if err != nil {
		x.log.Debug("unit failed", "unit", u.name, "err", err)
		return types.Value{}, false, runtimeError(err)
	}
	has := !v.Type().IsInvalid() && !v.Type().IsVoid()
	x.log.Debug("unit evaluated", "unit", u.name, "value", v.String())
	return v, has, nil
}

// runMain calls main when a linked unit defines it.
func (x *executor) runMain(ctx context.Context) error {
	found, err := x.engine.RunMain(ctx)
	if found {
		x.log.Debug("main returned", "err", err)
	}
	if err != nil {
		return runtimeError(err)
	}
	return nil
}
