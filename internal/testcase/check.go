package testcase

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/kolkov/pyxc"
)

// Check runs one scenario and compares every assertion. When an output,
// value or error block is present the input is evaluated in a fresh
// session, so top-level statements run as they are compiled and forms
// after an erroneous one are still processed. Token, IR and AST blocks
// only render the input.
func Check(ctx context.Context, c Case) error {
	var diag bytes.Buffer
	res := &pyxc.EvalResult{}
	var evalErr error
	if c.evaluates() {
		s := pyxc.NewSession(&pyxc.Config{Stderr: &diag})
		res, evalErr = s.EvalContext(ctx, c.Input)
	}

	if evalErr != nil {
		if _, ok := c.Assertion(KindError); !ok {
			return fmt.Errorf("unexpected error: %v", evalErr)
		}
	}

	for _, a := range c.Assertions {
		var err error
		switch a.Kind {
		case KindOutput:
			err = compare(a, res.Output)
		case KindValue:
			if !res.HasValue {
				err = fmt.Errorf("line %d: no value, want %q", a.Line, a.Content)
				break
			}
			err = compare(a, res.Value)
		case KindError:
			err = checkError(a, evalErr, diag.String())
		case KindTokens:
			err = compare(a, pyxc.Tokens(c.Input))
		case KindIR, KindAST:
			prog, cerr := pyxc.Compile(c.Input)
			if cerr != nil {
				err = fmt.Errorf("line %d: %v", a.Line, cerr)
				break
			}
			if a.Kind == KindIR {
				err = compare(a, prog.IR())
			} else {
				err = compare(a, prog.AST())
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// compare reports a mismatch between an assertion and the actual text,
// ignoring trailing newlines.
func compare(a Assertion, got string) error {
	got = strings.TrimRight(got, "\n")
	if got == a.Content {
		return nil
	}
	return fmt.Errorf("line %d: %s mismatch\n got: %q\nwant: %q", a.Line, a.Kind, got, a.Content)
}

// checkError requires every line of the assertion to appear in the
// reported diagnostics.
func checkError(a Assertion, err error, diag string) error {
	if err == nil {
		return fmt.Errorf("line %d: no error, want %q", a.Line, a.Content)
	}
	text := err.Error() + "\n" + diag
	for _, want := range strings.Split(a.Content, "\n") {
		if !strings.Contains(text, want) {
			return fmt.Errorf("line %d: error %q does not mention %q", a.Line, text, want)
		}
	}
	return nil
}

// evaluates reports whether any assertion depends on running the input.
func (c *Case) evaluates() bool {
	for _, a := range c.Assertions {
		switch a.Kind {
		case KindOutput, KindValue, KindError:
			return true
		}
	}
	return false
}
