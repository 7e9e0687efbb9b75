// Package pyxc compiles and runs pyxc, a statically typed language with
// Python's indentation-based syntax.
//
// A pyxc source text is a sequence of top-level forms: function
// definitions, extern declarations, type aliases, struct declarations and
// plain statements. Each form is lexed, parsed, type checked and lowered
// to SSA as a unit of its own. Units are linked into an interpreter that
// executes the SSA directly; calls to extern functions reach the runtime
// support library (putchard, printd, randd, clockms, ...).
//
// # Quick Start
//
// For simple one-off execution:
//
//	output, err := pyxc.Run("for i in range(0, 5, 1): print(i)\n", nil)
//
// # Compiled Programs
//
// For repeated execution of the same program:
//
//	prog, err := pyxc.Compile(src)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(prog.IR())
//	output, err := prog.Run(nil)
//
// Top-level statements run in source order, then main is called when it
// is defined. A non-zero result of main is reported as an [ExitError].
// [Program.LLVM] renders the whole program as one LLVM IR module for a
// native toolchain.
//
// # Sessions
//
// A [Session] evaluates source incrementally, the way an interactive
// prompt does. Operators, types and functions defined by one call to
// [Session.Eval] remain visible to the next, and the value of each
// top-level expression is returned as it is computed:
//
//	s := pyxc.NewSession(nil)
//	s.Eval("def sq(x: i64) -> i64: return x * x\n")
//	res, _ := s.Eval("sq(12)\n")
//	// res.Value: "144"
//
// # Error Handling
//
// Errors are returned as specific types for detailed handling:
//   - [ParseError]: lexical and syntax errors
//   - [CompileError]: type errors and lowering failures
//   - [ErrorList]: every diagnostic of a compilation
//   - [RuntimeError]: errors during execution
//   - [ExitError]: non-zero status from main
//
// Diagnostics are also written to [Config.Stderr] with the offending
// source line and a caret under the column.
package pyxc
