package lexer

import (
	"strings"

	"github.com/kolkov/pyxc/internal/token"
)

// Format renders a token stream back to source text in a canonical
// layout: one space between tokens, four spaces per indentation level,
// one line per NEWLINE. Lexing the result yields the same token kinds.
func Format(toks []Token) string {
	var sb strings.Builder
	level := 0
	bol := true
	for _, tok := range toks {
		switch tok.Type {
		case token.EOF:
			return sb.String()
		case token.NEWLINE:
			sb.WriteByte('\n')
			bol = true
			continue
		case token.INDENT:
			level++
			continue
		case token.DEDENT:
			if level > 0 {
				level--
			}
			continue
		}
		if bol {
			sb.WriteString(strings.Repeat("    ", level))
			bol = false
		} else {
			sb.WriteByte(' ')
		}
		sb.WriteString(tok.String())
	}
	return sb.String()
}

// Dump writes one token per line as "line:col kind value", the format of
// the token listing printed by the command line driver.
func Dump(toks []Token) string {
	var sb strings.Builder
	for _, tok := range toks {
		sb.WriteString(tok.Pos.String())
		sb.WriteByte(' ')
		sb.WriteString(tokenKind(tok.Type))
		if tok.Type.IsLiteral() || tok.Type == token.ILLEGAL {
			sb.WriteByte(' ')
			sb.WriteString(tok.Value)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func tokenKind(t token.Token) string {
	switch {
	case t.IsKeyword():
		return "keyword(" + t.String() + ")"
	case t.IsOperator():
		return "op(" + t.String() + ")"
	}
	switch t {
	case token.NAME:
		return "identifier"
	case token.NUMBER:
		return "number"
	case token.CHAR:
		return "char"
	case token.ILLEGAL:
		return "error"
	case token.NEWLINE:
		return "newline"
	case token.INDENT:
		return "indent"
	case token.DEDENT:
		return "dedent"
	case token.EOF:
		return "eof"
	}
	return t.String()
}
