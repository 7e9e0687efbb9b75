// Package token defines lexical tokens for pyxc.
package token

import "strconv"

// Token represents a lexical token type.
type Token uint8

const (
	// Special tokens
	ILLEGAL Token = iota // <illegal>
	EOF                  // EOF
	NEWLINE              // <newline>
	INDENT               // <indent>
	DEDENT               // <dedent>

	// Operators and delimiters
	operatorStart
	ADD         // +
	SUB         // -
	MUL         // *
	DIV         // /
	MOD         // %
	BIT_AND     // &
	BIT_OR      // |
	BIT_XOR     // ^
	BIT_NOT     // ~
	NOT         // !
	SHL         // <<
	SHR         // >>
	EQUALS      // ==
	NOT_EQUALS  // !=
	LESS        // <
	LTE         // <=
	GREATER     // >
	GTE         // >=
	ASSIGN      // =
	COLON       // :
	COMMA       // ,
	DOT         // .
	LPAREN      // (
	RPAREN      // )
	LBRACKET    // [
	RBRACKET    // ]
	ARROW       // ->
	AT          // @
	operatorEnd

	// Keywords
	keywordStart
	DEF      // def
	EXTERN   // extern
	TYPE     // type
	STRUCT   // struct
	IF       // if
	ELIF     // elif
	ELSE     // else
	RETURN   // return
	FOR      // for
	IN       // in
	RANGE    // range
	VAR      // var
	PRINT    // print
	WHILE    // while
	DO       // do
	BREAK    // break
	CONTINUE // continue
	MATCH    // match
	CASE     // case
	LNOT     // not
	AND      // and
	OR       // or
	keywordEnd

	// Literals
	NAME   // name
	NUMBER // number
	CHAR   // char
)

var names = [...]string{
	ILLEGAL: "<illegal>",
	EOF:     "EOF",
	NEWLINE: "<newline>",
	INDENT:  "<indent>",
	DEDENT:  "<dedent>",

	ADD:        "+",
	SUB:        "-",
	MUL:        "*",
	DIV:        "/",
	MOD:        "%",
	BIT_AND:    "&",
	BIT_OR:     "|",
	BIT_XOR:    "^",
	BIT_NOT:    "~",
	NOT:        "!",
	SHL:        "<<",
	SHR:        ">>",
	EQUALS:     "==",
	NOT_EQUALS: "!=",
	LESS:       "<",
	LTE:        "<=",
	GREATER:    ">",
	GTE:        ">=",
	ASSIGN:     "=",
	COLON:      ":",
	COMMA:      ",",
	DOT:        ".",
	LPAREN:     "(",
	RPAREN:     ")",
	LBRACKET:   "[",
	RBRACKET:   "]",
	ARROW:      "->",
	AT:         "@",

	DEF:      "def",
	EXTERN:   "extern",
	TYPE:     "type",
	STRUCT:   "struct",
	IF:       "if",
	ELIF:     "elif",
	ELSE:     "else",
	RETURN:   "return",
	FOR:      "for",
	IN:       "in",
	RANGE:    "range",
	VAR:      "var",
	PRINT:    "print",
	WHILE:    "while",
	DO:       "do",
	BREAK:    "break",
	CONTINUE: "continue",
	MATCH:    "match",
	CASE:     "case",
	LNOT:     "not",
	AND:      "and",
	OR:       "or",

	NAME:   "name",
	NUMBER: "number",
	CHAR:   "char",
}

// String returns the spelling of operators and keywords, and a
// descriptive name for every other token.
func (t Token) String() string {
	if int(t) < len(names) && names[t] != "" {
		return names[t]
	}
	return "Token(" + strconv.Itoa(int(t)) + ")"
}

// IsOperator returns true if the token is an operator or delimiter.
func (t Token) IsOperator() bool {
	return t > operatorStart && t < operatorEnd
}

// IsKeyword returns true if the token is a keyword.
func (t Token) IsKeyword() bool {
	return t > keywordStart && t < keywordEnd
}

// IsLiteral returns true if the token carries a payload (name, number, char).
func (t Token) IsLiteral() bool {
	return t == NAME || t == NUMBER || t == CHAR
}

// keywords maps keyword strings to their token types.
var keywords = map[string]Token{
	"def":      DEF,
	"extern":   EXTERN,
	"type":     TYPE,
	"struct":   STRUCT,
	"if":       IF,
	"elif":     ELIF,
	"else":     ELSE,
	"return":   RETURN,
	"for":      FOR,
	"in":       IN,
	"range":    RANGE,
	"var":      VAR,
	"print":    PRINT,
	"while":    WHILE,
	"do":       DO,
	"break":    BREAK,
	"continue": CONTINUE,
	"match":    MATCH,
	"case":     CASE,
	"not":      LNOT,
	"and":      AND,
	"or":       OR,
}

// LookupIdent returns the token type for a given identifier.
// Returns a keyword token if found, otherwise NAME.
func LookupIdent(ident string) Token {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return NAME
}
