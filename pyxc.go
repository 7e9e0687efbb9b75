package pyxc

import (
	"io"

	"github.com/kolkov/pyxc/internal/lexer"
)

// Version is the pyxc version string.
const Version = "0.1.0"

// Run compiles and executes a pyxc program.
// This is a convenience function for one-off execution.
// For repeated execution of the same program, use Compile followed by Program.Run.
//
// Top-level statements run in source order; main, when defined, runs
// last. Returns the program output as a string when config.Output is nil.
//
// Example:
//
//	output, err := pyxc.Run("for i in range(0, 3): print(i)\n", nil)
//	// output: "0\n1\n2\n"
func Run(src string, config *Config) (string, error) {
	prog, err := CompileConfig(src, config)
	if err != nil {
		return "", err
	}
	return prog.Run(config)
}

// Compile parses, checks and lowers every top-level form of a pyxc program.
// The returned Program can be executed multiple times.
//
// A form with an error is skipped and the forms after it are still
// compiled, so the returned ErrorList holds every diagnostic of the
// program.
//
// Example:
//
//	prog, err := pyxc.Compile("def sq(x: i64) -> i64: return x * x\nprint(sq(7))\n")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	output, _ := prog.Run(nil)
func Compile(src string) (*Program, error) {
	return CompileConfig(src, nil)
}

// CompileConfig is like Compile, taking the file name for diagnostics,
// the diagnostic writer and the optimization switch from config.
func CompileConfig(src string, config *Config) (*Program, error) {
	cfg := normalize(config)
	comp := newCompilation(&cfg)
	prog := &Program{source: src, filename: cfg.Filename}
	comp.process(src, func(u *Unit) error {
		prog.units = append(prog.units, u)
		return nil
	})
	if len(comp.errs) > 0 {
		return nil, comp.errs
	}
	prog.warnings = comp.warnings
	return prog, nil
}

// Exec is a simplified interface for running a pyxc program.
// It writes program output to out and returns any error.
//
// Example:
//
//	err := pyxc.Exec(src, os.Stdout, nil)
func Exec(src string, out io.Writer, config *Config) error {
	prog, err := CompileConfig(src, config)
	if err != nil {
		return err
	}

	cfg := Config{}
	if config != nil {
		cfg = *config
	}
	cfg.Output = out

	_, err = prog.Run(&cfg)
	return err
}

// MustCompile is like Compile but panics if the program cannot be compiled.
// It simplifies initialization of global program variables.
func MustCompile(src string) *Program {
	prog, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return prog
}

// Tokens returns the token stream of src, one token per line as
// "line:col kind value". Lexical errors appear as illegal tokens.
func Tokens(src string) string {
	return lexer.Dump(lexer.NewFromString(src).All())
}
