// pyxc - compiler and interpreter for the pyxc language
//
// Compiles pyxc source to SSA and runs it on the reference interpreter.
// Uses manual argument parsing, in the same style for every flag.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kolkov/pyxc"
	"github.com/kolkov/pyxc/internal/testcase"
)

// version is set at build time via -ldflags.
// For development builds, it will be "dev".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	shortUsage = "usage: pyxc [-t] [-d] [-ir] [-ll] [-O] [-f regex] [-v] [-c 'src' | file ...]"
	longUsage  = `Input:
  -c src            compile and run src instead of reading files
  file ...          source files, concatenated in order (stdin when none)

Output:
  -t                print the token stream and exit
  -d                print the parsed program and exit
  -ir               print the SSA of every unit and exit
  -f regex          with -ir, print only functions whose names match regex
  -ll               print the program as LLVM IR and exit
  -O                fold constants and simplify branches before running

Testing:
  -test file.md     check the scenarios of a Markdown file
  -j N              check N scenarios at once (default: number of CPUs)

Other:
  -v                log units as they are linked and run
  -h, --help        show this help message
  -version          show pyxc version and exit
`
)

//nolint:gocyclo,funlen // CLI argument parsing is inherently complex
func main() {
	var (
		src        string
		haveSrc    bool
		dumpTokens bool
		dumpAST    bool
		dumpIR     bool
		dumpLLVM   bool
		filter     string
		optimize   bool
		verbose    bool
		testFiles  []string
		workers    int
	)

	var i int
	for i = 1; i < len(os.Args); i++ {
		// Stop on explicit end of args or first arg not prefixed with "-"
		arg := os.Args[i]
		if arg == "--" {
			i++
			break
		}
		if arg == "-" || !strings.HasPrefix(arg, "-") {
			break
		}

		switch arg {
		case "-c":
			if i+1 >= len(os.Args) {
				errorExitf("flag needs an argument: -c")
			}
			i++
			src = os.Args[i]
			haveSrc = true
		case "-f":
			if i+1 >= len(os.Args) {
				errorExitf("flag needs an argument: -f")
			}
			i++
			filter = os.Args[i]
		case "-test":
			if i+1 >= len(os.Args) {
				errorExitf("flag needs an argument: -test")
			}
			i++
			testFiles = append(testFiles, os.Args[i])
		case "-j":
			if i+1 >= len(os.Args) {
				errorExitf("flag needs an argument: -j")
			}
			i++
			n, err := strconv.Atoi(os.Args[i])
			if err != nil || n < 1 {
				errorExitf("invalid number of workers: %s", os.Args[i])
			}
			workers = n
		case "-t":
			dumpTokens = true
		case "-d":
			dumpAST = true
		case "-ir":
			dumpIR = true
		case "-ll":
			dumpLLVM = true
		case "-O":
			optimize = true
		case "-v":
			verbose = true
		case "-h", "--help":
			fmt.Printf("pyxc %s\n\n%s\n\n%s", version, shortUsage, longUsage)
			os.Exit(0)
		case "-version", "--version":
			fmt.Printf("pyxc version %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
			os.Exit(0)
		default:
			errorExitf("flag provided but not defined: %s", arg)
		}
	}

	if len(testFiles) > 0 {
		os.Exit(runTests(testFiles, workers))
	}

	// Remaining args are source files
	args := os.Args[i:]
	filename := "<stdin>"
	switch {
	case haveSrc:
		if len(args) > 0 {
			errorExitf("-c cannot be combined with source files")
		}
		filename = ""
	case len(args) > 0:
		var sb strings.Builder
		for _, f := range args {
			content, err := readSource(f)
			if err != nil {
				errorExitf("cannot read source file %s: %v", f, err)
			}
			sb.Write(content)
			if len(content) > 0 && content[len(content)-1] != '\n' {
				sb.WriteByte('\n')
			}
		}
		src = sb.String()
		if len(args) == 1 {
			filename = args[0]
		}
	default:
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			errorExitf("cannot read standard input: %v", err)
		}
		src = string(content)
	}

	if dumpTokens {
		fmt.Print(pyxc.Tokens(src))
		os.Exit(0)
	}

	// Build configuration with buffered output for performance
	stdout := bufio.NewWriter(os.Stdout)
	config := &pyxc.Config{
		Output:   stdout,
		Stderr:   os.Stderr,
		Filename: filename,
		Optimize: optimize,
		Verbose:  verbose,
	}

	// Diagnostics have already been written to stderr by the compiler.
	prog, err := pyxc.CompileConfig(src, config)
	if err != nil {
		os.Exit(1)
	}

	// Debug output modes
	if dumpAST {
		fmt.Print(prog.AST())
		os.Exit(0)
	}
	if dumpIR {
		ir := prog.IR()
		if filter != "" {
			ir, err = prog.FilterIR(filter)
			if err != nil {
				errorExitf("invalid -f pattern: %v", err)
			}
		}
		fmt.Print(ir)
		os.Exit(0)
	}
	if dumpLLVM {
		ll, err := prog.LLVM()
		if err != nil {
			errorExit(err)
		}
		fmt.Print(ll)
		os.Exit(0)
	}

	_, err = prog.Run(config)
	stdout.Flush()
	if err != nil {
		// Check if it's a normal exit with non-zero code
		if code, ok := pyxc.IsExitError(err); ok {
			os.Exit(code)
		}
		errorExit(err)
	}
}

// readSource reads a source file; "-" is standard input.
func readSource(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}

// runTests checks the scenarios of every file and returns the exit status.
func runTests(files []string, workers int) int {
	config := testcase.DefaultRunConfig()
	if workers > 0 {
		config.Workers = workers
	}

	failed, total := 0, 0
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			errorExitf("cannot read test file %s: %v", file, err)
		}
		cases, err := testcase.Extract(string(content))
		if err != nil {
			errorExitf("%s: %v", file, err)
		}

		start := time.Now()
		results := testcase.Run(context.Background(), cases, testcase.Check, config)
		total += len(results)
		failed += len(testcase.Failed(results))
		for _, r := range results {
			if r.Passed() {
				fmt.Printf("ok   %s: %s (%s)\n", file, r.Case.Name, r.Elapsed.Round(time.Microsecond))
				continue
			}
			fmt.Printf("FAIL %s:%d: %s\n", file, r.Case.Line, r.Case.Name)
			for _, line := range strings.Split(r.Err.Error(), "\n") {
				fmt.Printf("    %s\n", line)
			}
		}
		fmt.Printf("%s: %d tests in %s\n", file, len(results), time.Since(start).Round(time.Millisecond))
	}

	if failed > 0 {
		fmt.Printf("FAIL: %d of %d tests failed\n", failed, total)
		return 1
	}
	fmt.Printf("PASS: %d tests\n", total)
	return 0
}

// errorExitf prints formatted error message and exits with code 1
func errorExitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "pyxc: "+format+"\n", args...)
	os.Exit(1)
}

// errorExit prints error and exits with code 1
func errorExit(err error) {
	fmt.Fprintf(os.Stderr, "pyxc: %v\n", err)
	os.Exit(1)
}
