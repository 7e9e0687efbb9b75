// Package vm is the reference backend for pyxc: an interpreter that
// executes verified SSA modules directly.
//
// An Engine links modules the way a JIT links object files: functions
// defined by any added module are callable from every other, and calls of
// declared-only functions fall through to the runtime support library.
// Stack slots live in one byte-addressed memory, so pointers, arrays and
// structs behave as they would in compiled code.
package vm

import (
	"context"
	"errors"
	"fmt"

	"github.com/kolkov/pyxc/internal/runtime"
	"github.com/kolkov/pyxc/internal/ssa"
	"github.com/kolkov/pyxc/internal/types"
)

// Error types
var (
	ErrStepLimit     = errors.New("instruction limit exceeded")
	ErrStackOverflow = errors.New("stack overflow")
	ErrCallDepth     = errors.New("call depth limit exceeded")
	ErrBadAddress    = errors.New("invalid memory address")
)

// Limit defaults.
const (
	// DefaultStackSize is the size of the interpreter memory in bytes.
	DefaultStackSize = 1 << 20

	// DefaultMaxDepth is the deepest call nesting allowed.
	DefaultMaxDepth = 10000

	// nullGuard is the number of bytes at address 0 that are never
	// allocated, so a null pointer never refers to a slot.
	nullGuard = 16

	// ctxCheckInterval is how many instructions run between checks for
	// cancellation.
	ctxCheckInterval = 1024
)

// RuntimeError reports a failure while executing a function.
type RuntimeError struct {
	Func  string
	Block string
	Err   error
}

func (e *RuntimeError) Error() string {
	if e.Block == "" {
		return fmt.Sprintf("runtime error in @%s: %v", e.Func, e.Err)
	}
	return fmt.Sprintf("runtime error in @%s (%s): %v", e.Func, e.Block, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// ExitError represents a non-zero status returned by main.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit %d", e.Code)
}

// Config holds interpreter limits.
type Config struct {
	// StackSize is the size of the addressable memory in bytes.
	// Default: DefaultStackSize
	StackSize int

	// MaxSteps bounds the instructions one Call may execute.
	// Zero means unlimited.
	MaxSteps int

	// MaxDepth bounds nested calls.
	// Default: DefaultMaxDepth
	MaxDepth int
}

// DefaultConfig returns the default limits.
func DefaultConfig() Config {
	return Config{StackSize: DefaultStackSize, MaxDepth: DefaultMaxDepth}
}

// Engine executes linked SSA modules. It is not safe for concurrent use.
type Engine struct {
	config Config
	host   *runtime.Host

	mods  []*ssa.Module
	funcs map[string]*ssa.Func // visible definitions by name

	mem   []byte
	sp    uint64 // first free byte of mem
	steps int
	depth int
	ctx   context.Context
}

// New creates an engine whose runtime functions use host.
func New(host *runtime.Host, config Config) *Engine {
	if config.StackSize <= 0 {
		config.StackSize = DefaultStackSize
	}
	if config.MaxDepth <= 0 {
		config.MaxDepth = DefaultMaxDepth
	}
	if host == nil {
		host = runtime.NewHost(nil, 0)
	}
	return &Engine{
		config: config,
		host:   host,
		funcs:  make(map[string]*ssa.Func),
		mem:    make([]byte, config.StackSize),
		sp:     nullGuard,
	}
}

// Host returns the runtime host.
func (e *Engine) Host() *runtime.Host {
	return e.host
}

// Add verifies m and links it. A function defined by m replaces any
// earlier definition of the same name.
func (e *Engine) Add(m *ssa.Module) error {
	if err := ssa.Verify(m); err != nil {
		return fmt.Errorf("vm: module %s: %w", m.Name, err)
	}
	for _, f := range m.Funcs {
		if !f.IsDecl() {
			continue
		}
		if def, ok := e.funcs[f.Name]; ok && !sameSignature(def, f) {
			return fmt.Errorf("vm: module %s: declaration of @%s does not match its definition", m.Name, f.Name)
		}
	}
	for _, f := range m.Defined() {
		e.funcs[f.Name] = f
	}
	e.mods = append(e.mods, m)
	return nil
}

// Remove unlinks the most recently added module with the given name. A
// definition it shadowed becomes visible again. It reports whether a
// module was found.
func (e *Engine) Remove(name string) bool {
	for i := len(e.mods) - 1; i >= 0; i-- {
		m := e.mods[i]
		if m.Name != name {
			continue
		}
		e.mods = append(e.mods[:i], e.mods[i+1:]...)
		for _, f := range m.Defined() {
			if e.funcs[f.Name] == f {
				delete(e.funcs, f.Name)
				e.restore(f.Name)
			}
		}
		return true
	}
	return false
}

// restore makes the latest remaining definition of name visible.
func (e *Engine) restore(name string) {
	for i := len(e.mods) - 1; i >= 0; i-- {
		if f := e.mods[i].Func(name); f != nil && !f.IsDecl() {
			e.funcs[name] = f
			return
		}
	}
}

// Lookup returns the visible definition of a function.
func (e *Engine) Lookup(name string) (*ssa.Func, bool) {
	f, ok := e.funcs[name]
	return f, ok
}

// Call runs the named function with args and returns its result. A void
// function returns the zero Value. Program output is flushed before Call
// returns.
func (e *Engine) Call(ctx context.Context, name string, args ...types.Value) (types.Value, error) {
	defer e.host.Flush()

	f, ok := e.funcs[name]
	if !ok {
		return types.Value{}, fmt.Errorf("vm: function %s is not defined", name)
	}
	if len(args) != len(f.Params) {
		return types.Value{}, fmt.Errorf("vm: function %s expects %d arguments, got %d", name, len(f.Params), len(args))
	}
	for i, p := range f.Params {
		if !types.Identical(args[i].Type(), p.Typ) {
			return types.Value{}, fmt.Errorf("vm: argument %d of %s has type %s, want %s", i+1, name, args[i].Type(), p.Typ)
		}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	e.ctx = ctx
	e.steps = 0
	e.depth = 0
	e.sp = nullGuard
	return e.call(f, args)
}

// RunMain calls main when it is defined and turns a non-zero result into
// an *ExitError. It reports whether main was found.
func (e *Engine) RunMain(ctx context.Context) (bool, error) {
	if _, ok := e.funcs["main"]; !ok {
		return false, nil
	}
	v, err := e.Call(ctx, "main")
	if err != nil {
		return true, err
	}
	if !v.Type().IsInvalid() && v.Int() != 0 {
		return true, &ExitError{Code: int(v.Int())}
	}
	return true, nil
}

func sameSignature(a, b *ssa.Func) bool {
	if len(a.Params) != len(b.Params) || !types.Identical(a.Result, b.Result) {
		return false
	}
	for i, p := range a.Params {
		if !types.Identical(p.Typ, b.Params[i].Typ) {
			return false
		}
	}
	return true
}
