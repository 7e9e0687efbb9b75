// Package testcase reads pyxc scenarios written as Markdown and checks
// them against the compiler.
//
// A scenario starts at a heading "Test: name". It holds one fenced block
// of pyxc source and one or more assertion blocks:
//
//	## Test: countdown
//	```pyxc
//	for i in range(3, 0, -1): print(i)
//	```
//	```output
//	3
//	2
//	1
//	```
//
// Assertion kinds are output, value, error, ir, ast and tokens.
package testcase

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// InputLang is the fence language of scenario source.
const InputLang = "pyxc"

const headingPrefix = "Test: "

// Kind is the kind of an assertion block.
type Kind string

// Assertion kinds.
const (
	KindOutput Kind = "output" // printed output
	KindValue  Kind = "value"  // value of the last top-level expression
	KindError  Kind = "error"  // text every diagnostic line must contain
	KindIR     Kind = "ir"     // textual SSA of the program
	KindAST    Kind = "ast"    // syntax tree printed as source
	KindTokens Kind = "tokens" // token dump
)

var kinds = map[Kind]bool{
	KindOutput: true,
	KindValue:  true,
	KindError:  true,
	KindIR:     true,
	KindAST:    true,
	KindTokens: true,
}

// Assertion is one expected result of a scenario.
type Assertion struct {
	Kind    Kind
	Content string
	Line    int
}

// Case is one scenario.
type Case struct {
	Name       string
	Line       int // line of the heading
	Input      string
	Assertions []Assertion
}

// Assertion returns the case's assertion of kind k.
func (c *Case) Assertion(k Kind) (Assertion, bool) {
	for _, a := range c.Assertions {
		if a.Kind == k {
			return a, true
		}
	}
	return Assertion{}, false
}

// Extract parses a Markdown document and returns its scenarios in order.
func Extract(markdown string) ([]Case, error) {
	src := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var cases []Case
	var cur *Case
	finish := func() error {
		if cur == nil {
			return nil
		}
		if err := validate(cur); err != nil {
			return err
		}
		cases = append(cases, *cur)
		return nil
	}

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Heading:
			title := nodeText(n, src)
			if !strings.HasPrefix(title, headingPrefix) {
				return ast.WalkContinue, nil
			}
			if err := finish(); err != nil {
				return ast.WalkStop, err
			}
			cur = &Case{
				Name: strings.TrimSpace(strings.TrimPrefix(title, headingPrefix)),
				Line: lineOf(n, src),
			}

		case *ast.FencedCodeBlock:
			lang := string(n.Language(src))
			line := lineOf(n, src)
			if cur == nil {
				if lang == InputLang || kinds[Kind(lang)] {
					return ast.WalkStop, fmt.Errorf("line %d: %s fence outside of a test", line, lang)
				}
				return ast.WalkContinue, nil
			}
			content := blockContent(n, src)
			switch {
			case lang == InputLang:
				if cur.Input != "" {
					return ast.WalkStop, fmt.Errorf("line %d: multiple input fences in test %q", line, cur.Name)
				}
				cur.Input = content
			case kinds[Kind(lang)]:
				if _, dup := cur.Assertion(Kind(lang)); dup {
					return ast.WalkStop, fmt.Errorf("line %d: multiple %s fences in test %q", line, lang, cur.Name)
				}
				cur.Assertions = append(cur.Assertions, Assertion{
					Kind:    Kind(lang),
					Content: strings.TrimRight(content, "\n"),
					Line:    line,
				})
			case lang != "":
				return ast.WalkStop, fmt.Errorf("line %d: unknown fence language %q in test %q", line, lang, cur.Name)
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	if err := finish(); err != nil {
		return nil, err
	}
	return cases, nil
}

func validate(c *Case) error {
	if c.Input == "" {
		return fmt.Errorf("test %q has no %s fence", c.Name, InputLang)
	}
	if len(c.Assertions) == 0 {
		return fmt.Errorf("test %q has no assertion fences", c.Name)
	}
	return nil
}

// nodeText returns the plain text under a node.
func nodeText(node ast.Node, src []byte) string {
	var buf bytes.Buffer
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(src))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

// blockContent returns the lines of a fenced block, each ending in '\n'.
func blockContent(block *ast.FencedCodeBlock, src []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return buf.String()
}

// lineOf returns the 1-based line a block node starts on.
func lineOf(node ast.Node, src []byte) int {
	if node.Lines().Len() == 0 {
		return 0
	}
	start := node.Lines().At(0).Start
	if start > len(src) {
		start = len(src)
	}
	return bytes.Count(src[:start], []byte{'\n'}) + 1
}
