package lexer

import (
	"testing"

	"github.com/kolkov/pyxc/internal/token"
)

// FuzzLexer tests that the lexer handles arbitrary input without panicking,
// terminates, and keeps INDENT and DEDENT balanced unless an inconsistent
// dedent forced a reset.
func FuzzLexer(f *testing.F) {
	seeds := []string{
		// Programs
		"def f(x: i64) -> i64:\n    return x * 2\n",
		"extern def putchard(c: f64) -> f64\n",
		"for i in range(0, 5, 1): print(i)\n",
		"if 1 < 2: return 10 else: return 20\n",
		"@binary(precedence=5)\ndef |(a: f64, b: f64) -> f64:\n  return a\n",

		// Layout
		"a:\n  b:\n    c\n  d\ne\n",
		"a:\n    b\n  c\n",
		"a:\n\t b\n",
		"f(1,\n  2)\n",
		"x\r\ny\rz",

		// Numbers
		"123 456.789 .5 3. 1.2.3 9abc",

		// Edge cases
		"",
		"# comment only",
		"\x00",
		"   \n\t\n",
		"$ ? ; ` '",

		// Unicode
		"x = \"héllo\"",
	}

	for _, seed := range seeds {
		f.Add([]byte(seed))
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		l := New(data)

		indents, dedents := 0, 0
		tokenCount := 0
		maxTokens := 4*len(data) + 16

		for tokenCount < maxTokens {
			tok := l.Scan()

			if tok.Pos.Line < 1 || tok.Pos.Column < 1 || tok.Pos.Offset < 0 {
				t.Errorf("invalid position: %v", tok.Pos)
			}

			switch tok.Type {
			case token.INDENT:
				indents++
			case token.DEDENT:
				dedents++
			}
			if tok.Type == token.EOF {
				break
			}
			tokenCount++
		}

		if tokenCount >= maxTokens {
			t.Fatalf("lexer did not terminate within %d tokens", maxTokens)
		}
		if l.Resets() == 0 && indents != dedents {
			t.Errorf("%d INDENT vs %d DEDENT", indents, dedents)
		}
	})
}

// FuzzFormat checks that formatting a token stream and lexing it again
// reproduces the token kinds.
func FuzzFormat(f *testing.F) {
	seeds := []string{
		"def f(x: i64) -> i64:\n    return x * 2\n",
		"while x < 10:\n  x = x + 1\n  if x == 5: break\n",
		"p.x = q[1] << 3\n",
	}
	for _, seed := range seeds {
		f.Add([]byte(seed))
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		l := New(data)
		toks := l.All()
		for _, tok := range toks {
			if tok.Type == token.ILLEGAL {
				t.Skip("input has lexical errors")
			}
		}
		again := NewFromString(Format(toks)).All()
		if len(again) != len(toks) {
			t.Fatalf("re-lex gave %d tokens, want %d", len(again), len(toks))
		}
		for i := range toks {
			if again[i].Type != toks[i].Type {
				t.Fatalf("token[%d] = %v, want %v", i, again[i].Type, toks[i].Type)
			}
		}
	})
}
