// Package lexer provides pyxc source code tokenization.
//
// The lexer is indentation aware: at the start of every logical line it
// measures leading whitespace against a stack of open levels and
// synthesizes INDENT and DEDENT tokens, in the manner of Python. Line
// structure is suspended inside parentheses and brackets.
package lexer

import (
	"fmt"

	"github.com/kolkov/pyxc/internal/pattern"
	"github.com/kolkov/pyxc/internal/source"
	"github.com/kolkov/pyxc/internal/token"
)

// numberLiteral is the grammar every scanned numeric lexeme must match.
var numberLiteral = pattern.MustCompileLongest(`[0-9]+(?:\.[0-9]*)?|\.[0-9]+`)

// Diagnostic messages carried by ILLEGAL tokens.
const (
	ErrMixedIndent        = "cannot mix tabs and spaces in indentation"
	ErrInconsistentIndent = "inconsistent indentation: dedent does not match any outer level"
)

const tabStop = 8

// Options configures a Lexer.
type Options struct {
	// Filename is stamped on every token position.
	Filename string

	// Ledger, when set, receives every consumed character. Line numbers
	// continue from the ledger's next line so that positions stay valid
	// across successive units of one session.
	Ledger *source.Ledger
}

// Lexer tokenizes pyxc source code.
type Lexer struct {
	src     []byte         // Source code
	ch      byte           // Current character (0 at EOF)
	offset  int            // Offset of the next unread byte
	pos     token.Position // Position of ch
	nextPos token.Position // Position of the next character
	ledger  *source.Ledger

	indents     []int   // open indentation levels, indents[0] == 0
	pending     []Token // queued DEDENT tokens
	indentChar  byte    // ' ' or '\t' once the unit has chosen, else 0
	atLineStart bool
	depth       int         // open ( and [
	last        token.Token // type of the last emitted token
	resets      int         // number of indentation stack resets
}

// New creates a new Lexer for the given source code.
func New(src []byte) *Lexer {
	return NewWithOptions(src, Options{})
}

// NewFromString creates a new Lexer from a string.
func NewFromString(src string) *Lexer {
	return New([]byte(src))
}

// NewWithOptions creates a Lexer with a filename and a shared ledger.
func NewWithOptions(src []byte, opts Options) *Lexer {
	line := 1
	if opts.Ledger != nil {
		line = opts.Ledger.NextLine()
	}
	l := &Lexer{
		src:    src,
		ledger: opts.Ledger,
		nextPos: token.Position{
			Filename: opts.Filename,
			Line:     line,
			Column:   1,
		},
		indents:     []int{0},
		atLineStart: true,
		last:        token.NEWLINE,
	}
	l.pos = l.nextPos
	l.next() // Initialize first character
	return l
}

// Token represents a scanned token with its position and value.
// For ILLEGAL tokens Value holds the diagnostic message.
type Token struct {
	Type  token.Token
	Pos   token.Position
	Value string
}

// String returns the token as it would be written in source.
func (t Token) String() string {
	switch t.Type {
	case token.NAME, token.NUMBER, token.CHAR:
		return t.Value
	case token.ILLEGAL:
		return "<illegal: " + t.Value + ">"
	}
	return t.Type.String()
}

// Resets reports how many times an inconsistent dedent forced the
// indentation stack back to its sentinel level.
func (l *Lexer) Resets() int {
	return l.resets
}

// Depth returns the number of open indentation levels.
func (l *Lexer) Depth() int {
	return len(l.indents) - 1
}

// Scan scans and returns the next token.
func (l *Lexer) Scan() Token {
	tok := l.scan()
	l.last = tok.Type
	return tok
}

// All scans the remaining input, including the final EOF token.
func (l *Lexer) All() []Token {
	var toks []Token
	for {
		tok := l.Scan()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func (l *Lexer) scan() Token {
	if len(l.pending) > 0 {
		tok := l.pending[0]
		l.pending = l.pending[1:]
		return tok
	}

	if l.atLineStart && l.depth == 0 {
		l.atLineStart = false
		if tok, ok := l.lineStart(); ok {
			return tok
		}
	}

	l.skipWhitespace()
	if l.ch == '#' {
		l.skipComment()
	}

	pos := l.pos

	if l.ch == 0 {
		return l.scanEOF(pos)
	}

	switch ch := l.ch; {
	case ch == '\n':
		l.next()
		if l.depth > 0 {
			return l.scan()
		}
		l.atLineStart = true
		return Token{Type: token.NEWLINE, Pos: pos}

	case isIdentStart(ch):
		return l.scanIdent(pos)

	case isDigit(ch) || (ch == '.' && isDigit(l.peek())):
		return l.scanNumber(pos)
	}

	return l.scanOperator(pos)
}

// lineStart measures the indentation of the next non-blank line and
// returns an INDENT, DEDENT or error token when the level changes.
func (l *Lexer) lineStart() (Token, bool) {
	var width int
	var mixed bool
	var first byte
	for {
		width, mixed, first = 0, false, 0
		for l.ch == ' ' || l.ch == '\t' {
			if first == 0 {
				first = l.ch
			} else if l.ch != first {
				mixed = true
			}
			if l.ch == '\t' {
				width += tabStop - width%tabStop
			} else {
				width++
			}
			l.next()
		}
		if l.ch == '#' {
			l.skipComment()
		}
		if l.ch != '\n' {
			break
		}
		l.next() // blank or comment-only line
	}

	pos := l.pos
	if l.ch == 0 {
		return Token{}, false
	}

	if first != 0 {
		if l.indentChar == 0 {
			l.indentChar = first
		}
		if mixed || first != l.indentChar {
			return Token{Type: token.ILLEGAL, Pos: pos, Value: ErrMixedIndent}, true
		}
	}

	top := l.indents[len(l.indents)-1]
	switch {
	case width > top:
		l.indents = append(l.indents, width)
		return Token{Type: token.INDENT, Pos: pos}, true

	case width < top:
		dedents := 0
		for width < l.indents[len(l.indents)-1] {
			l.indents = l.indents[:len(l.indents)-1]
			dedents++
		}
		if width != l.indents[len(l.indents)-1] {
			l.indents = l.indents[:1]
			l.pending = l.pending[:0]
			l.resets++
			return Token{Type: token.ILLEGAL, Pos: pos, Value: ErrInconsistentIndent}, true
		}
		for i := 1; i < dedents; i++ {
			l.pending = append(l.pending, Token{Type: token.DEDENT, Pos: pos})
		}
		return Token{Type: token.DEDENT, Pos: pos}, true
	}
	return Token{}, false
}

// scanEOF terminates the last logical line and closes every open level
// before reporting end of input.
func (l *Lexer) scanEOF(pos token.Position) Token {
	if l.last != token.NEWLINE && l.last != token.DEDENT && l.last != token.INDENT {
		return Token{Type: token.NEWLINE, Pos: pos}
	}
	if len(l.indents) > 1 {
		for i := 2; i < len(l.indents); i++ {
			l.pending = append(l.pending, Token{Type: token.DEDENT, Pos: pos})
		}
		l.indents = l.indents[:1]
		return Token{Type: token.DEDENT, Pos: pos}
	}
	return Token{Type: token.EOF, Pos: pos}
}

func (l *Lexer) scanIdent(pos token.Position) Token {
	start := pos.Offset
	for isIdentContinue(l.ch) {
		l.next()
	}
	name := string(l.src[start:l.endOffset()])
	return Token{Type: token.LookupIdent(name), Pos: pos, Value: name}
}

// scanNumber consumes a run of digits, dots and identifier characters and
// checks the lexeme against the numeric literal grammar. A malformed
// literal becomes a single ILLEGAL token so the parser can recover at the
// end of the line.
func (l *Lexer) scanNumber(pos token.Position) Token {
	start := pos.Offset
	for isDigit(l.ch) || l.ch == '.' || isIdentContinue(l.ch) {
		l.next()
	}
	lit := string(l.src[start:l.endOffset()])
	if !numberLiteral.FullMatch(lit) {
		return Token{Type: token.ILLEGAL, Pos: pos, Value: fmt.Sprintf("malformed number literal %q", lit)}
	}
	return Token{Type: token.NUMBER, Pos: pos, Value: lit}
}

func (l *Lexer) scanOperator(pos token.Position) Token {
	ch := l.ch
	l.next()

	// two-character operators: one character of lookahead
	follow := func(next byte, two, one token.Token) Token {
		if l.ch == next {
			l.next()
			return Token{Type: two, Pos: pos, Value: two.String()}
		}
		return Token{Type: one, Pos: pos, Value: one.String()}
	}

	switch ch {
	case '+':
		return Token{Type: token.ADD, Pos: pos, Value: "+"}
	case '-':
		return follow('>', token.ARROW, token.SUB)
	case '*':
		return Token{Type: token.MUL, Pos: pos, Value: "*"}
	case '/':
		return Token{Type: token.DIV, Pos: pos, Value: "/"}
	case '%':
		return Token{Type: token.MOD, Pos: pos, Value: "%"}
	case '&':
		return Token{Type: token.BIT_AND, Pos: pos, Value: "&"}
	case '|':
		return Token{Type: token.BIT_OR, Pos: pos, Value: "|"}
	case '^':
		return Token{Type: token.BIT_XOR, Pos: pos, Value: "^"}
	case '~':
		return Token{Type: token.BIT_NOT, Pos: pos, Value: "~"}
	case '!':
		return follow('=', token.NOT_EQUALS, token.NOT)
	case '=':
		return follow('=', token.EQUALS, token.ASSIGN)
	case '<':
		if l.ch == '<' {
			l.next()
			return Token{Type: token.SHL, Pos: pos, Value: "<<"}
		}
		return follow('=', token.LTE, token.LESS)
	case '>':
		if l.ch == '>' {
			l.next()
			return Token{Type: token.SHR, Pos: pos, Value: ">>"}
		}
		return follow('=', token.GTE, token.GREATER)
	case ':':
		return Token{Type: token.COLON, Pos: pos, Value: ":"}
	case ',':
		return Token{Type: token.COMMA, Pos: pos, Value: ","}
	case '.':
		return Token{Type: token.DOT, Pos: pos, Value: "."}
	case '(':
		l.depth++
		return Token{Type: token.LPAREN, Pos: pos, Value: "("}
	case ')':
		if l.depth > 0 {
			l.depth--
		}
		return Token{Type: token.RPAREN, Pos: pos, Value: ")"}
	case '[':
		l.depth++
		return Token{Type: token.LBRACKET, Pos: pos, Value: "["}
	case ']':
		if l.depth > 0 {
			l.depth--
		}
		return Token{Type: token.RBRACKET, Pos: pos, Value: "]"}
	case '@':
		return Token{Type: token.AT, Pos: pos, Value: "@"}
	}

	if ch > ' ' && ch < 0x7f {
		return Token{Type: token.CHAR, Pos: pos, Value: string(ch)}
	}
	return Token{Type: token.ILLEGAL, Pos: pos, Value: fmt.Sprintf("unexpected character %q", ch)}
}

// endOffset returns the correct end offset for slicing l.src.
// At EOF, l.pos is not updated, so we use len(l.src); otherwise l.pos.Offset.
func (l *Lexer) endOffset() int {
	if l.ch == 0 {
		return len(l.src)
	}
	return l.pos.Offset
}

// peek returns the character after ch without consuming it.
func (l *Lexer) peek() byte {
	if l.offset >= len(l.src) {
		return 0
	}
	return l.src[l.offset]
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || (l.depth > 0 && l.ch == '\n') {
		l.next()
	}
}

func (l *Lexer) skipComment() {
	for l.ch != 0 && l.ch != '\n' {
		l.next()
	}
}

// next reads one character. "\r\n" and a lone '\r' both become '\n'.
// Every character is recorded in the ledger as it is read.
func (l *Lexer) next() {
	if l.offset >= len(l.src) {
		if l.ch != 0 {
			l.pos = l.nextPos
		}
		l.ch = 0
		return
	}

	l.pos = l.nextPos
	l.ch = l.src[l.offset]
	l.offset++
	if l.ch == '\r' {
		l.ch = '\n'
		if l.offset < len(l.src) && l.src[l.offset] == '\n' {
			l.offset++
		}
	}
	l.nextPos.Column++
	l.nextPos.Offset = l.offset

	if l.ledger != nil {
		l.ledger.Record(l.ch)
	}
	if l.ch == '\n' {
		l.nextPos.Line++
		l.nextPos.Column = 1
	}
}

// Helper functions

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentContinue(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
