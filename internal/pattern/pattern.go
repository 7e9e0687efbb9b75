// Package pattern wraps coregex for the places pyxc matches text against
// regular expressions: the numeric literal grammar in the lexer and
// function-name filters over SSA modules.
package pattern

import (
	"github.com/coregx/coregex"
)

// Regex is a compiled pattern.
type Regex struct {
	pattern string
	re      *coregex.Regexp
	longest bool
}

// Compile compiles pattern with leftmost-first semantics.
func Compile(pattern string) (*Regex, error) {
	re, err := coregex.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &Regex{pattern: pattern, re: re}, nil
}

// CompileLongest compiles pattern with leftmost-longest semantics, so that
// FullMatch sees the longest candidate at offset zero.
func CompileLongest(pattern string) (*Regex, error) {
	r, err := Compile(pattern)
	if err != nil {
		return nil, err
	}
	r.re.Longest()
	r.longest = true
	return r, nil
}

// MustCompileLongest is like CompileLongest but panics on error.
func MustCompileLongest(pattern string) *Regex {
	re, err := CompileLongest(pattern)
	if err != nil {
		panic(err)
	}
	return re
}

// String implements fmt.Stringer.
func (r *Regex) String() string {
	return r.pattern
}

// MatchString reports whether s contains any match.
func (r *Regex) MatchString(s string) bool {
	return r.re.MatchString(s)
}

// FindStringIndex returns the location of the leftmost match, or nil.
func (r *Regex) FindStringIndex(s string) []int {
	return r.re.FindStringIndex(s)
}

// FullMatch reports whether the leftmost-longest match covers all of s.
// Only meaningful for patterns compiled with CompileLongest.
func (r *Regex) FullMatch(s string) bool {
	loc := r.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}
