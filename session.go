package pyxc

import (
	"bytes"
	"context"
	"slices"

	"github.com/kolkov/pyxc/internal/types"
)

// Session is an incremental driver in the manner of a read-eval-print
// loop. Each top-level form passed to Eval becomes a unit of its own and
// is linked into a long-lived interpreter; top-level statements run as
// soon as they are compiled. Operator definitions, declared types and
// functions, and the source line numbering carry over from one Eval to
// the next. A later def replaces an earlier one of the same name.
//
// A Session is not safe for concurrent use.
type Session struct {
	cfg   Config
	comp  *compilation
	exec  *executor
	out   *bytes.Buffer // captured output, when cfg.Output is nil
	units []*Unit       // linked named units
}

// EvalResult is the outcome of one Eval.
type EvalResult struct {
	// Output is what the program printed during this Eval when the
	// session captures output.
	Output string

	// Value is the value of the last top-level statement that produced
	// one, formatted the way print shows it.
	Value    string
	HasValue bool

	// Units names the units linked or run, in order.
	Units []string
}

// NewSession creates a session. If config is nil, default configuration
// is used.
func NewSession(config *Config) *Session {
	s := &Session{cfg: normalize(config)}
	out := s.cfg.Output
	if out == nil {
		s.out = &bytes.Buffer{}
		out = s.out
	}
	s.comp = newCompilation(&s.cfg)
	s.comp.env.AllowRedefine = true
	s.exec = newExecutor(&s.cfg, out)
	return s
}

// Eval processes every top-level form of src. Forms with errors are
// reported to Config.Stderr and skipped; their diagnostics are returned
// together as an ErrorList after the remaining forms have run. A
// runtime error stops the evaluation at once.
func (s *Session) Eval(src string) (*EvalResult, error) {
	return s.EvalContext(context.Background(), src)
}

// EvalContext is like Eval but stops with the context's error when ctx
// is canceled.
func (s *Session) EvalContext(ctx context.Context, src string) (*EvalResult, error) {
	res := &EvalResult{}
	mark := len(s.comp.errs)

	err := s.comp.process(src, func(u *Unit) error {
		if err := s.exec.link(u); err != nil {
			s.comp.fail(err)
			return nil
		}
		res.Units = append(res.Units, u.name)
		if !u.anon {
			s.units = append(s.units, u)
			return nil
		}
		v, ok, err := s.exec.run(ctx, u)
		if err != nil {
			return err
		}
		if ok {
			res.Value = types.Format(v)
			res.HasValue = true
		}
		return nil
	})

	if s.out != nil {
		res.Output = s.out.String()
		s.out.Reset()
	}
	if err != nil {
		return res, err
	}
	if len(s.comp.errs) > mark {
		return res, slices.Clone(s.comp.errs[mark:])
	}
	return res, nil
}

// Units returns the named units linked so far, in order.
func (s *Session) Units() []*Unit {
	return s.units
}

// Warnings returns every warning reported so far.
func (s *Session) Warnings() []string {
	return s.comp.warnings
}
