package pyxc

import (
	"io"
	"log/slog"

	"github.com/kolkov/pyxc/internal/vm"
)

// Config holds configuration options for compiling and running pyxc.
type Config struct {
	// Output is the writer for program output.
	// If nil, output is captured and returned from Run.
	Output io.Writer

	// Stderr receives diagnostics: the message, the offending source line
	// and a caret under the column.
	// If nil, diagnostics are discarded.
	Stderr io.Writer

	// Filename is stamped on diagnostic positions.
	Filename string

	// Optimize folds constants and simplifies branches in every unit
	// before it is linked.
	Optimize bool

	// Verbose logs each unit as it is linked, evaluated and removed.
	// Records go to Logger, or to Stderr when Logger is nil.
	Verbose bool

	// Logger receives verbose records.
	Logger *slog.Logger

	// StackSize is the size of the interpreter memory in bytes.
	// Default: 1 MiB
	StackSize int

	// MaxSteps bounds the instructions one top-level unit or main may
	// execute. Zero means unlimited.
	MaxSteps int

	// MaxDepth bounds nested calls.
	// Default: 10000
	MaxDepth int

	// Seed seeds the runtime random number generator.
	Seed int64
}

// applyDefaults fills in default values for unset Config fields.
func (c *Config) applyDefaults() {
	if c.Stderr == nil {
		c.Stderr = io.Discard
	}
	if c.StackSize <= 0 {
		c.StackSize = vm.DefaultStackSize
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = vm.DefaultMaxDepth
	}
}

// logger returns the destination of verbose records.
func (c *Config) logger() *slog.Logger {
	if !c.Verbose {
		return slog.New(slog.DiscardHandler)
	}
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.NewTextHandler(c.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// vmConfig returns the interpreter limits.
func (c *Config) vmConfig() vm.Config {
	return vm.Config{
		StackSize: c.StackSize,
		MaxSteps:  c.MaxSteps,
		MaxDepth:  c.MaxDepth,
	}
}

// normalize copies config, or the zero Config when it is nil, and applies
// the defaults.
func normalize(config *Config) Config {
	var cfg Config
	if config != nil {
		cfg = *config
	}
	cfg.applyDefaults()
	return cfg
}
