package testcase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/nalgeon/be"
)

const fence = "```"

func TestExtract(t *testing.T) {
	markdown := "# Loops\n\n" +
		"## Test: count\n" +
		fence + "pyxc\nfor i in range(0, 2): print(i)\n" + fence + "\n" +
		fence + "output\n0\n1\n" + fence + "\n\n" +
		"Some prose between tests.\n\n" +
		"## Test: value and tokens\n" +
		fence + "pyxc\n1 + 2\n" + fence + "\n" +
		fence + "value\n3\n" + fence + "\n" +
		fence + "tokens\n1:1 number 1\n" + fence + "\n"

	cases, err := Extract(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(cases), 2)

	c := cases[0]
	be.Equal(t, c.Name, "count")
	be.Equal(t, c.Line, 3)
	be.Equal(t, c.Input, "for i in range(0, 2): print(i)\n")
	be.Equal(t, len(c.Assertions), 1)
	be.Equal(t, c.Assertions[0].Kind, KindOutput)
	be.Equal(t, c.Assertions[0].Content, "0\n1")

	c = cases[1]
	be.Equal(t, c.Name, "value and tokens")
	be.Equal(t, len(c.Assertions), 2)
	a, ok := c.Assertion(KindTokens)
	be.True(t, ok)
	be.Equal(t, a.Content, "1:1 number 1")
	_, ok = c.Assertion(KindError)
	be.Equal(t, ok, false)
}

func TestExtractIgnoresPlainBlocks(t *testing.T) {
	markdown := fence + "\nnot a test\n" + fence + "\n\n" +
		"## Test: t\n" +
		fence + "pyxc\nprint(1)\n" + fence + "\n" +
		fence + "output\n1\n" + fence + "\n"

	cases, err := Extract(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(cases), 1)
}

func TestExtractErrors(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		want     string
	}{
		{
			name:     "no input",
			markdown: "## Test: t\n" + fence + "output\n1\n" + fence + "\n",
			want:     `test "t" has no pyxc fence`,
		},
		{
			name:     "no assertions",
			markdown: "## Test: t\n" + fence + "pyxc\nprint(1)\n" + fence + "\n",
			want:     `test "t" has no assertion fences`,
		},
		{
			name:     "fence outside test",
			markdown: fence + "pyxc\nprint(1)\n" + fence + "\n",
			want:     "pyxc fence outside of a test",
		},
		{
			name:     "unknown language",
			markdown: "## Test: t\n" + fence + "pyxc\nprint(1)\n" + fence + "\n" + fence + "stdout\n1\n" + fence + "\n",
			want:     `unknown fence language "stdout"`,
		},
		{
			name: "duplicate input",
			markdown: "## Test: t\n" + fence + "pyxc\nprint(1)\n" + fence + "\n" +
				fence + "pyxc\nprint(2)\n" + fence + "\n",
			want: "multiple input fences",
		},
		{
			name: "duplicate assertion",
			markdown: "## Test: t\n" + fence + "pyxc\nprint(1)\n" + fence + "\n" +
				fence + "output\n1\n" + fence + "\n" + fence + "output\n1\n" + fence + "\n",
			want: "multiple output fences",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.markdown)
			be.Err(t, err, tt.want)
		})
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name string
		c    Case
		want string // error substring, "" when the case passes
	}{
		{
			name: "output matches",
			c: Case{Input: "print(1, 2)\n", Assertions: []Assertion{
				{Kind: KindOutput, Content: "1 2"},
			}},
		},
		{
			name: "output differs",
			c: Case{Input: "print(1)\n", Assertions: []Assertion{
				{Kind: KindOutput, Content: "2", Line: 7},
			}},
			want: "line 7: output mismatch",
		},
		{
			name: "missing value",
			c: Case{Input: "print(1)\n", Assertions: []Assertion{
				{Kind: KindValue, Content: "1"},
			}},
			want: "no value",
		},
		{
			name: "unexpected error",
			c: Case{Input: "x = )\n", Assertions: []Assertion{
				{Kind: KindOutput, Content: ""},
			}},
			want: "unexpected error",
		},
		{
			name: "expected error missing",
			c: Case{Input: "print(1)\n", Assertions: []Assertion{
				{Kind: KindError, Content: "boom"},
			}},
			want: "no error",
		},
		{
			name: "error mentions every line",
			c: Case{Input: "print(nope())\n", Assertions: []Assertion{
				{Kind: KindError, Content: "unknown function nope\n1:7"},
			}},
		},
		{
			name: "tokens of incomplete input",
			c: Case{Input: "def f\n", Assertions: []Assertion{
				{Kind: KindTokens, Content: "1:1 keyword(def)\n1:5 identifier f\n1:6 newline\n2:1 eof"},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(context.Background(), tt.c)
			if tt.want == "" {
				be.Err(t, err, nil)
				return
			}
			be.Err(t, err, tt.want)
		})
	}
}

func TestRunKeepsOrder(t *testing.T) {
	var cases []Case
	for i := 0; i < 50; i++ {
		cases = append(cases, Case{Name: fmt.Sprint(i)})
	}
	var calls atomic.Int32
	check := func(_ context.Context, c Case) error {
		calls.Add(1)
		if strings.HasSuffix(c.Name, "7") {
			return errors.New("seven")
		}
		return nil
	}

	results := Run(context.Background(), cases, check, RunConfig{Workers: 4})
	be.Equal(t, len(results), 50)
	be.Equal(t, int(calls.Load()), 50)
	for i, r := range results {
		be.Equal(t, r.Index, i)
		be.Equal(t, r.Case.Name, fmt.Sprint(i))
	}
	be.Equal(t, len(Failed(results)), 5)
	be.Equal(t, Failed(results)[0].Case.Name, "7")
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cases := []Case{{Name: "a"}, {Name: "b"}}
	check := func(context.Context, Case) error {
		t.Error("check called after cancel")
		return nil
	}
	results := Run(ctx, cases, check, RunConfig{Workers: 2})
	be.Equal(t, len(results), 2)
	for _, r := range results {
		be.Err(t, r.Err, context.Canceled)
	}
}

// TestScenarios runs every scenario file in testdata.
func TestScenarios(t *testing.T) {
	files, err := filepath.Glob("testdata/*.md")
	be.Err(t, err, nil)
	be.True(t, len(files) > 0)

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".md")
		t.Run(name, func(t *testing.T) {
			content, err := os.ReadFile(file)
			be.Err(t, err, nil)

			cases, err := Extract(string(content))
			be.Err(t, err, nil)

			for _, r := range Run(context.Background(), cases, Check, DefaultRunConfig()) {
				t.Run(r.Case.Name, func(t *testing.T) {
					if r.Err != nil {
						t.Fatalf("%s (line %d): %v", r.Case.Name, r.Case.Line, r.Err)
					}
				})
			}
		})
	}
}
