package parser

import (
	"io"
	"strings"

	"github.com/kolkov/pyxc/internal/ast"
	"github.com/kolkov/pyxc/internal/lexer"
	"github.com/kolkov/pyxc/internal/source"
	"github.com/kolkov/pyxc/internal/token"
	"github.com/kolkov/pyxc/internal/types"
)

// tokenName returns a human-readable name for a token type.
func tokenName(t token.Token) string {
	switch t {
	case token.ILLEGAL:
		return "illegal"
	case token.EOF:
		return "end of file"
	case token.NEWLINE:
		return "newline"
	case token.INDENT:
		return "indent"
	case token.DEDENT:
		return "dedent"
	case token.NAME:
		return "name"
	case token.NUMBER:
		return "number"
	case token.CHAR:
		return "character"
	}
	if t.IsOperator() || t.IsKeyword() {
		return "'" + t.String() + "'"
	}
	return t.String()
}

// Options configures a Parser.
type Options struct {
	// Filename is stamped on positions.
	Filename string

	// Ledger receives the consumed source text for diagnostics.
	Ledger *source.Ledger

	// Ops is the operator table to parse with and to extend with operator
	// definitions. A fresh builtin table is used when nil.
	Ops *OpTable
}

// Parser is a recursive descent parser for pyxc programs. It yields one
// top-level form at a time; a form with a syntax error is skipped as a
// whole and parsing resumes at the next form.
type Parser struct {
	lexer    *lexer.Lexer // Lexer instance
	tok      lexer.Token  // Current token
	prevTok  lexer.Token  // Previous token
	errors   ErrorList    // Accumulated errors
	ops      *OpTable
	filename string

	level  int  // indentation depth of the current token
	resets int  // lexer indentation resets already seen
	failed bool // the current form has an error; later ones are dropped

	// operators registered by the current form, withdrawn if it fails
	defined []*ast.Prototype
}

// New creates a parser over src.
func New(src []byte, opts Options) *Parser {
	ops := opts.Ops
	if ops == nil {
		ops = NewOpTable()
	}
	p := &Parser{
		lexer: lexer.NewWithOptions(src, lexer.Options{
			Filename: opts.Filename,
			Ledger:   opts.Ledger,
		}),
		ops:      ops,
		filename: opts.Filename,
	}
	p.next() // Initialize first token
	return p
}

// Parse parses a pyxc program from source code.
// Returns the AST of the forms that parsed and any parse errors encountered.
func Parse(src string) (*ast.Program, error) {
	return ParseProgram([]byte(src), Options{})
}

// ParseProgram parses every top-level form of src. Forms with errors are
// left out of the program; their errors are returned as an ErrorList.
func ParseProgram(src []byte, opts Options) (*ast.Program, error) {
	p := New(src, opts)
	prog := &ast.Program{Filename: opts.Filename, StartPos: p.tok.Pos}
	for {
		decl, err := p.Next()
		if err == io.EOF {
			break
		}
		if decl != nil {
			prog.Decls = append(prog.Decls, decl)
		}
	}
	prog.EndPos = p.tok.Pos
	return prog, p.errors.Err()
}

// ParseExpr parses a single expression (useful for testing).
func ParseExpr(src string) (ast.Expr, error) {
	return ParseExprWith(src, NewOpTable())
}

// ParseExprWith parses a single expression using the given operator table.
func ParseExprWith(src string, ops *OpTable) (ast.Expr, error) {
	p := New([]byte(src), Options{Ops: ops})
	expr := p.parseExpr()
	if p.tok.Type == token.NEWLINE {
		p.next()
	}
	if p.tok.Type != token.EOF {
		p.error(expectedError(p.tok.Pos, "end of expression", p.tokenDesc()))
	}
	if err := p.errors.Err(); err != nil {
		return nil, err
	}
	return expr, nil
}

// Ops returns the operator table the parser extends.
func (p *Parser) Ops() *OpTable {
	return p.ops
}

// Errors returns every error reported so far.
func (p *Parser) Errors() ErrorList {
	return p.errors
}

// Next parses the next top-level form. It returns io.EOF at the end of
// input. When the form has errors, the form is discarded, its errors are
// returned as an ErrorList, and the parser is positioned at the start of
// the following form.
func (p *Parser) Next() (ast.Decl, error) {
	for p.tok.Type == token.NEWLINE {
		p.next()
	}
	if p.tok.Type == token.EOF {
		return nil, io.EOF
	}

	start := p.tok.Pos
	mark := len(p.errors)
	p.failed = false
	p.defined = p.defined[:0]

	decl := p.parseTopLevel()
	if !p.failed {
		p.endStmt()
	}
	if p.failed {
		p.withdrawOperators()
		p.syncForm(start)
		p.failed = false
		return nil, p.errors[mark:]
	}
	return decl, nil
}

// -----------------------------------------------------------------------------
// Token handling
// -----------------------------------------------------------------------------

// next advances to the next token.
func (p *Parser) next() {
	p.prevTok = p.tok
	p.tok = p.lexer.Scan()

	// An inconsistent dedent resets the lexer to the outermost level
	// without closing the open blocks.
	if r := p.lexer.Resets(); r != p.resets {
		p.resets = r
		p.level = 0
	}

	switch p.tok.Type {
	case token.INDENT:
		p.level++
	case token.DEDENT:
		if p.level > 0 {
			p.level--
		}
	}
}

// expect checks that the current token is tok and advances.
// If not, it records an error.
func (p *Parser) expect(tok token.Token) bool {
	if p.tok.Type != tok {
		p.error(expectedError(p.tok.Pos, tokenName(tok), p.tokenDesc()))
		return false
	}
	p.next()
	return true
}

// expectName expects a NAME token and returns its value and position.
func (p *Parser) expectName() (string, token.Position) {
	name := p.tok.Value
	pos := p.tok.Pos
	if !p.expect(token.NAME) {
		return "", pos
	}
	return name, pos
}

// tokenDesc returns a description of the current token for error messages.
func (p *Parser) tokenDesc() string {
	switch p.tok.Type {
	case token.NAME, token.NUMBER:
		return p.tok.Value
	case token.CHAR:
		return "'" + p.tok.Value + "'"
	case token.ILLEGAL:
		// ILLEGAL token's Value contains the actual error message
		return p.tok.Value
	default:
		return tokenName(p.tok.Type)
	}
}

// endPos returns the position just after the previous token.
func (p *Parser) endPos() token.Position {
	return p.prevTok.Pos.Shift(len(p.prevTok.Value))
}

// error records a parse error. Only the first error of a form is kept;
// the rest are usually consequences of it. No grammar rule accepts an
// ILLEGAL token, so an error raised while one is current is reported as
// the lexical error it carries.
func (p *Parser) error(err *ParseError) {
	if p.failed {
		return
	}
	if p.tok.Type == token.ILLEGAL {
		err = &ParseError{Pos: p.tok.Pos, Message: p.tok.Value, Lexical: true}
	}
	p.failed = true
	p.errors = append(p.errors, err)
}

// errorf records a formatted parse error at current position.
func (p *Parser) errorf(format string, args ...any) {
	p.error(errorf(p.tok.Pos, format, args...))
}

// -----------------------------------------------------------------------------
// Recovery
// -----------------------------------------------------------------------------

// syncForm discards tokens up to the first token of the next top-level
// form: a token at indentation level zero that begins a line and cannot
// continue the failed form. Recovery skips whole forms, not single
// lines, so the indented body of a failed def and its elif or else
// clauses are dropped along with it and never parsed as forms of
// their own.
func (p *Parser) syncForm(start token.Position) {
	for p.tok.Type != token.EOF {
		if p.tok.Pos != start && p.level == 0 && p.atLineStart() && !p.continuesForm() {
			return
		}
		p.next()
	}
}

func (p *Parser) atLineStart() bool {
	return p.prevTok.Type == token.NEWLINE || p.prevTok.Type == token.DEDENT
}

func (p *Parser) continuesForm() bool {
	switch p.tok.Type {
	case token.NEWLINE, token.INDENT, token.DEDENT, token.ILLEGAL, token.ELIF, token.ELSE:
		return true
	}
	return false
}

// endStmt consumes the end of a statement: the NEWLINE of a simple
// statement, or nothing after a compound statement closed by its block.
func (p *Parser) endStmt() {
	switch {
	case p.prevTok.Type == token.DEDENT:
	case p.tok.Type == token.NEWLINE:
		p.next()
	case p.tok.Type == token.DEDENT, p.tok.Type == token.EOF:
	default:
		p.errorf("unexpected %s at end of statement", p.tokenDesc())
	}
}

// withdrawOperators removes the operators registered by a failed form.
func (p *Parser) withdrawOperators() {
	for _, proto := range p.defined {
		switch proto.Kind {
		case ast.ProtoUnary:
			p.ops.RemoveUnary(proto.Operator)
		case ast.ProtoBinary:
			p.ops.RemoveBinary(proto.Operator)
		}
	}
	p.defined = p.defined[:0]
}

// -----------------------------------------------------------------------------
// Top-level forms
// -----------------------------------------------------------------------------

// parseTopLevel parses one top-level form. Statements are wrapped in an
// anonymous function.
func (p *Parser) parseTopLevel() ast.Decl {
	switch p.tok.Type {
	case token.DEF:
		return p.parseFuncDecl(p.tok.Pos, ast.ProtoFunction, 0)
	case token.AT:
		return p.parseDecorated()
	case token.EXTERN:
		return p.parseExtern()
	case token.TYPE:
		return p.parseTypeAlias()
	case token.STRUCT:
		return p.parseStruct()
	case token.INDENT:
		p.errorf("unexpected indent")
		return nil
	}

	start := p.tok.Pos
	stmt := p.parseStmt()
	if stmt == nil {
		return nil
	}
	end := p.endPos()
	proto := &ast.Prototype{
		StartPos: start,
		EndPos:   start,
		Name:     ast.AnonName,
		NamePos:  start,
	}
	return &ast.FuncDecl{
		BaseDecl: ast.MakeBaseDecl(start, end),
		Proto:    proto,
		Body: &ast.BlockStmt{
			BaseStmt: ast.MakeBaseStmt(start, end),
			Stmts:    []ast.Stmt{stmt},
		},
		Anon: true,
	}
}

// parseDecorated parses @unary, @binary or @binary(precedence=N) and the
// operator definition that follows it.
func (p *Parser) parseDecorated() ast.Decl {
	start := p.tok.Pos
	p.next() // consume '@'

	name, namePos := p.expectName()
	if p.failed {
		return nil
	}

	var kind ast.ProtoKind
	prec := ast.DefaultPrecedence
	switch name {
	case "unary":
		kind = ast.ProtoUnary
	case "binary":
		kind = ast.ProtoBinary
		if p.tok.Type == token.LPAREN {
			p.next()
			if p.tok.Type != token.RPAREN {
				if p.tok.Type != token.NAME || p.tok.Value != "precedence" {
					p.error(expectedError(p.tok.Pos, "'precedence'", p.tokenDesc()))
					return nil
				}
				p.next()
				p.expect(token.ASSIGN)
				prec = p.parsePrecedence()
			}
			p.expect(token.RPAREN)
		}
	default:
		p.error(errorf(namePos, "unknown decorator @%s", name))
		return nil
	}

	if p.tok.Type == token.NEWLINE {
		p.next()
	}
	if p.tok.Type != token.DEF {
		p.error(expectedError(p.tok.Pos, "'def' after decorator", p.tokenDesc()))
		return nil
	}
	return p.parseFuncDecl(start, kind, prec)
}

func (p *Parser) parsePrecedence() int {
	pos := p.tok.Pos
	if p.tok.Type != token.NUMBER || strings.Contains(p.tok.Value, ".") {
		p.error(expectedError(pos, "integer precedence", p.tokenDesc()))
		return 0
	}
	n, err := types.ParseInt(p.tok.Value)
	p.next()
	if err != nil || n < MinPrecedence || n > MaxPrecedence {
		p.error(errorf(pos, "precedence must be between %d and %d", MinPrecedence, MaxPrecedence))
		return 0
	}
	return int(n)
}

// parseFuncDecl parses def prototype: suite.
func (p *Parser) parseFuncDecl(start token.Position, kind ast.ProtoKind, prec int) ast.Decl {
	p.expect(token.DEF)
	proto := p.parsePrototype(kind, prec)
	if p.failed {
		return nil
	}
	p.defineOperator(proto)
	p.expect(token.COLON)
	body := p.parseSuite()
	if p.failed {
		return nil
	}
	return &ast.FuncDecl{
		BaseDecl: ast.MakeBaseDecl(start, p.endPos()),
		Proto:    proto,
		Body:     body,
	}
}

// defineOperator adds an operator prototype to the live table so the
// body and later forms can use it.
func (p *Parser) defineOperator(proto *ast.Prototype) {
	var err error
	switch proto.Kind {
	case ast.ProtoUnary:
		err = p.ops.DefineUnary(proto.Operator)
	case ast.ProtoBinary:
		err = p.ops.DefineBinary(proto.Operator, proto.Precedence)
	default:
		return
	}
	if err != nil {
		p.error(errorf(proto.NamePos, "%s", err.Error()))
		return
	}
	p.defined = append(p.defined, proto)
}

// parseExtern parses extern def prototype.
func (p *Parser) parseExtern() ast.Decl {
	start := p.tok.Pos
	p.next() // consume 'extern'
	p.expect(token.DEF)
	proto := p.parsePrototype(ast.ProtoFunction, 0)
	if p.failed {
		return nil
	}
	return &ast.ExternDecl{
		BaseDecl: ast.MakeBaseDecl(start, p.endPos()),
		Proto:    proto,
	}
}

// parsePrototype parses name(a: T, ...) -> R. Operator definitions use an
// operator symbol in place of the name.
func (p *Parser) parsePrototype(kind ast.ProtoKind, prec int) *ast.Prototype {
	proto := &ast.Prototype{
		StartPos:   p.tok.Pos,
		NamePos:    p.tok.Pos,
		Kind:       kind,
		Precedence: prec,
	}

	if kind == ast.ProtoFunction {
		proto.Name, proto.NamePos = p.expectName()
	} else {
		sym := symbolOf(p.tok)
		if sym == "" {
			p.error(expectedError(p.tok.Pos, "operator symbol", p.tokenDesc()))
			return proto
		}
		p.next()
		proto.Operator = sym
		proto.Name = ast.OperatorName(kind, sym)
	}

	p.expect(token.LPAREN)
	seen := make(map[string]bool)
	for p.tok.Type != token.RPAREN && !p.failed {
		if len(proto.Params) > 0 {
			p.expect(token.COMMA)
		}
		name, pos := p.expectName()
		if p.failed {
			break
		}
		if seen[name] {
			p.error(errorf(pos, "duplicate parameter %s", name))
			break
		}
		seen[name] = true
		p.expect(token.COLON)
		typ := p.parseType()
		proto.Params = append(proto.Params, &ast.Param{Name: name, Pos: pos, Type: typ})
	}
	p.expect(token.RPAREN)
	p.expect(token.ARROW)
	proto.Result = p.parseType()
	proto.EndPos = p.endPos()

	switch {
	case p.failed:
	case kind == ast.ProtoUnary && len(proto.Params) != 1:
		p.error(errorf(proto.NamePos, "unary operator %s must take exactly one parameter", proto.Operator))
	case kind == ast.ProtoBinary && len(proto.Params) != 2:
		p.error(errorf(proto.NamePos, "binary operator %s must take exactly two parameters", proto.Operator))
	}
	return proto
}

// parseTypeAlias parses type Name = T.
func (p *Parser) parseTypeAlias() ast.Decl {
	start := p.tok.Pos
	p.next() // consume 'type'
	name, namePos := p.expectName()
	p.expect(token.ASSIGN)
	target := p.parseType()
	if p.failed {
		return nil
	}
	return &ast.TypeAliasDecl{
		BaseDecl: ast.MakeBaseDecl(start, p.endPos()),
		Name:     name,
		NamePos:  namePos,
		Target:   target,
	}
}

// parseStruct parses a struct header and its indented field list.
func (p *Parser) parseStruct() ast.Decl {
	start := p.tok.Pos
	p.next() // consume 'struct'
	name, namePos := p.expectName()
	p.expect(token.COLON)
	p.expect(token.NEWLINE)
	if p.failed {
		return nil
	}
	if p.tok.Type != token.INDENT {
		p.error(errorf(namePos, "struct %s must declare at least one field", name))
		return nil
	}
	p.next()

	decl := &ast.StructDecl{Name: name, NamePos: namePos}
	seen := make(map[string]bool)
	for p.tok.Type != token.DEDENT && p.tok.Type != token.EOF && !p.failed {
		field, pos := p.expectName()
		if p.failed {
			break
		}
		if seen[field] {
			p.error(errorf(pos, "duplicate field %s in struct %s", field, name))
			break
		}
		seen[field] = true
		p.expect(token.COLON)
		typ := p.parseType()
		decl.Fields = append(decl.Fields, &ast.FieldDecl{Name: field, Pos: pos, Type: typ})
		p.endStmt()
	}
	p.expect(token.DEDENT)
	if p.failed {
		return nil
	}
	decl.BaseDecl = ast.MakeBaseDecl(start, p.endPos())
	return decl
}

// parseType parses a type: a name, ptr[T] or array[T, N].
func (p *Parser) parseType() ast.TypeExpr {
	start := p.tok.Pos
	name, _ := p.expectName()
	if p.failed {
		return &ast.NamedType{BaseType: ast.MakeBaseType(start, start), Name: name}
	}

	switch {
	case name == "ptr" && p.tok.Type == token.LBRACKET:
		p.next()
		elem := p.parseType()
		p.expect(token.RBRACKET)
		return &ast.PointerType{BaseType: ast.MakeBaseType(start, p.endPos()), Elem: elem}

	case name == "array" && p.tok.Type == token.LBRACKET:
		p.next()
		elem := p.parseType()
		p.expect(token.COMMA)
		lenPos := p.tok.Pos
		var n int64
		if p.tok.Type == token.NUMBER && !strings.Contains(p.tok.Value, ".") {
			n, _ = types.ParseInt(p.tok.Value)
			p.next()
		} else {
			p.error(expectedError(lenPos, "array length", p.tokenDesc()))
		}
		if !p.failed && n <= 0 {
			p.error(errorf(lenPos, "array length must be positive"))
		}
		p.expect(token.RBRACKET)
		return &ast.ArrayType{BaseType: ast.MakeBaseType(start, p.endPos()), Elem: elem, Len: n}
	}
	return &ast.NamedType{BaseType: ast.MakeBaseType(start, p.endPos()), Name: name}
}

// -----------------------------------------------------------------------------
// Suites
// -----------------------------------------------------------------------------

// parseSuite parses the statements after a colon: one inline statement,
// or NEWLINE INDENT statements DEDENT.
func (p *Parser) parseSuite() *ast.BlockStmt {
	if p.tok.Type == token.NEWLINE {
		return p.parseBlock()
	}
	start := p.tok.Pos
	block := &ast.BlockStmt{Inline: true}
	if s := p.parseStmt(); s != nil {
		block.Stmts = []ast.Stmt{s}
	}
	block.BaseStmt = ast.MakeBaseStmt(start, p.endPos())
	return block
}

// parseBlock parses NEWLINE INDENT statement-list DEDENT.
func (p *Parser) parseBlock() *ast.BlockStmt {
	start := p.tok.Pos
	block := &ast.BlockStmt{}
	p.next() // consume NEWLINE
	if p.tok.Type != token.INDENT {
		p.error(expectedError(p.tok.Pos, "indented block", p.tokenDesc()))
		return block
	}
	p.next()

	for p.tok.Type != token.DEDENT && p.tok.Type != token.EOF && !p.failed {
		if p.tok.Type == token.NEWLINE {
			p.next()
			continue
		}
		if s := p.parseStmt(); s != nil {
			block.Stmts = append(block.Stmts, s)
		}
		if !p.failed {
			p.endStmt()
		}
	}
	p.expect(token.DEDENT)
	block.BaseStmt = ast.MakeBaseStmt(start, p.endPos())
	return block
}

// -----------------------------------------------------------------------------
// Statements
// -----------------------------------------------------------------------------

// parseStmt parses a statement.
func (p *Parser) parseStmt() ast.Stmt {
	switch p.tok.Type {
	case token.IF:
		return p.parseIfStmt()
	case token.ELIF, token.ELSE:
		p.errorf("unexpected %s without matching if", p.tokenDesc())
		return nil
	case token.FOR:
		return p.parseForStmt()
	case token.WHILE:
		return p.parseWhileStmt()
	case token.DO:
		return p.parseDoWhileStmt()
	case token.MATCH:
		return p.parseMatchStmt()
	case token.BREAK:
		pos := p.tok.Pos
		p.next()
		return &ast.BreakStmt{BaseStmt: ast.MakeBaseStmt(pos, p.endPos())}
	case token.CONTINUE:
		pos := p.tok.Pos
		p.next()
		return &ast.ContinueStmt{BaseStmt: ast.MakeBaseStmt(pos, p.endPos())}
	case token.RETURN:
		return p.parseReturnStmt()
	case token.PRINT:
		return p.parsePrintStmt()
	case token.DEF, token.EXTERN, token.TYPE, token.STRUCT, token.AT:
		p.errorf("%s is only allowed at top level", p.tokenDesc())
		return nil
	case token.INDENT:
		p.errorf("unexpected indent")
		return nil
	}
	return p.parseSimpleStmt()
}

// parseSimpleStmt parses an expression statement, a typed declaration
// name: T [= value], or an assignment target = value.
func (p *Parser) parseSimpleStmt() ast.Stmt {
	start := p.tok.Pos
	x := p.parseExpr()
	if p.failed {
		return nil
	}

	switch p.tok.Type {
	case token.COLON:
		id, ok := x.(*ast.Ident)
		if !ok {
			p.errorf("typed declaration requires a variable name")
			return nil
		}
		p.next()
		typ := p.parseType()
		var value ast.Expr
		if p.tok.Type == token.ASSIGN {
			p.next()
			value = p.parseExpr()
		}
		return &ast.DeclStmt{
			BaseStmt: ast.MakeBaseStmt(start, p.endPos()),
			Name:     id.Name,
			NamePos:  id.Pos(),
			Type:     typ,
			Value:    value,
		}

	case token.ASSIGN:
		if !ast.IsLValue(x) {
			p.errorf("cannot assign to %s", ast.String(x))
			return nil
		}
		p.next()
		value := p.parseExpr()
		return &ast.AssignStmt{
			BaseStmt: ast.MakeBaseStmt(start, p.endPos()),
			Target:   x,
			Value:    value,
		}
	}

	return &ast.ExprStmt{BaseStmt: ast.MakeBaseStmt(start, p.endPos()), X: x}
}

// parseIfStmt parses an if/elif/else chain. All suites of one chain must
// be written the same way: all inline or all blocks.
func (p *Parser) parseIfStmt() *ast.IfStmt {
	stmt := p.parseIfClause()
	if p.failed {
		return nil
	}
	inline := stmt.Then.Inline

	tail := stmt
	for p.tok.Type == token.ELIF && !p.failed {
		clause := p.parseIfClause()
		if p.failed {
			return nil
		}
		p.checkSuiteStyle(clause.Then, inline)
		tail.Else = clause
		tail = clause
	}
	if p.tok.Type == token.ELSE && !p.failed {
		p.next()
		p.expect(token.COLON)
		els := p.parseSuite()
		p.checkSuiteStyle(els, inline)
		tail.Else = els
	}
	if p.failed {
		return nil
	}

	// the chain ends where its last clause ends
	end := p.endPos()
	for s := stmt; s != nil; {
		s.EndPos = end
		next, _ := s.Else.(*ast.IfStmt)
		s = next
	}
	return stmt
}

// parseIfClause parses if|elif cond: suite.
func (p *Parser) parseIfClause() *ast.IfStmt {
	start := p.tok.Pos
	p.next() // consume 'if' or 'elif'
	cond := p.parseExpr()
	p.expect(token.COLON)
	then := p.parseSuite()
	return &ast.IfStmt{
		BaseStmt: ast.MakeBaseStmt(start, p.endPos()),
		Cond:     cond,
		Then:     then,
	}
}

func (p *Parser) checkSuiteStyle(suite *ast.BlockStmt, inline bool) {
	if p.failed || suite.Inline == inline {
		return
	}
	if inline {
		p.error(errorf(suite.Pos(), "inconsistent suite style: if chain started inline but this branch is a block"))
	} else {
		p.error(errorf(suite.Pos(), "inconsistent suite style: if chain started with a block but this branch is inline"))
	}
}

// parseForStmt parses for v in range(start, end[, step]): suite.
func (p *Parser) parseForStmt() ast.Stmt {
	start := p.tok.Pos
	v, vpos, from, to, step := p.parseRangeHeader()
	body := p.parseSuite()
	if p.failed {
		return nil
	}
	return &ast.ForStmt{
		BaseStmt: ast.MakeBaseStmt(start, p.endPos()),
		Var:      v,
		VarPos:   vpos,
		Start:    from,
		Limit:    to,
		Step:     step,
		Body:     body,
	}
}

// parseRangeHeader parses for v in range(start, end[, step]): shared by
// the statement and expression forms.
func (p *Parser) parseRangeHeader() (v string, vpos token.Position, from, to, step ast.Expr) {
	p.next() // consume 'for'
	v, vpos = p.expectName()
	p.expect(token.IN)
	p.expect(token.RANGE)
	p.expect(token.LPAREN)
	from = p.parseExpr()
	p.expect(token.COMMA)
	to = p.parseExpr()
	if p.tok.Type == token.COMMA {
		p.next()
		step = p.parseExpr()
	}
	p.expect(token.RPAREN)
	p.expect(token.COLON)
	return v, vpos, from, to, step
}

// parseWhileStmt parses while cond: suite.
func (p *Parser) parseWhileStmt() ast.Stmt {
	start := p.tok.Pos
	p.next() // consume 'while'
	cond := p.parseExpr()
	p.expect(token.COLON)
	body := p.parseSuite()
	if p.failed {
		return nil
	}
	return &ast.WhileStmt{
		BaseStmt: ast.MakeBaseStmt(start, p.endPos()),
		Cond:     cond,
		Body:     body,
	}
}

// parseDoWhileStmt parses do: suite while cond.
func (p *Parser) parseDoWhileStmt() ast.Stmt {
	start := p.tok.Pos
	p.next() // consume 'do'
	p.expect(token.COLON)
	body := p.parseSuite()
	p.expect(token.WHILE)
	cond := p.parseExpr()
	if p.failed {
		return nil
	}
	return &ast.DoWhileStmt{
		BaseStmt: ast.MakeBaseStmt(start, p.endPos()),
		Body:     body,
		Cond:     cond,
	}
}

// parseMatchStmt parses match subject: followed by an indented list of
// case arms. case _ is the default arm and must come last.
func (p *Parser) parseMatchStmt() ast.Stmt {
	start := p.tok.Pos
	p.next() // consume 'match'
	subject := p.parseExpr()
	p.expect(token.COLON)
	p.expect(token.NEWLINE)
	p.expect(token.INDENT)

	stmt := &ast.MatchStmt{Subject: subject}
	var sawDefault bool
	for p.tok.Type != token.DEDENT && p.tok.Type != token.EOF && !p.failed {
		if p.tok.Type != token.CASE {
			p.error(expectedError(p.tok.Pos, "'case'", p.tokenDesc()))
			break
		}
		clause := &ast.CaseClause{StartPos: p.tok.Pos}
		p.next()
		if sawDefault {
			p.error(errorf(clause.StartPos, "case after default case"))
			break
		}
		if p.tok.Type == token.NAME && p.tok.Value == "_" {
			p.next()
			sawDefault = true
		} else {
			clause.Values = p.parseExprList()
		}
		p.expect(token.COLON)
		clause.Body = p.parseSuite()
		clause.EndPos = p.endPos()
		if !p.failed {
			p.endStmt()
		}
		stmt.Cases = append(stmt.Cases, clause)
	}
	p.expect(token.DEDENT)
	if p.failed {
		return nil
	}
	stmt.BaseStmt = ast.MakeBaseStmt(start, p.endPos())
	return stmt
}

// parseReturnStmt parses return [value].
func (p *Parser) parseReturnStmt() ast.Stmt {
	start := p.tok.Pos
	p.next() // consume 'return'
	var value ast.Expr
	if p.canStartExpr() {
		value = p.parseExpr()
	}
	return &ast.ReturnStmt{BaseStmt: ast.MakeBaseStmt(start, p.endPos()), Value: value}
}

// parsePrintStmt parses print(a, b, ...). A trailing comma is rejected.
func (p *Parser) parsePrintStmt() ast.Stmt {
	start := p.tok.Pos
	p.next() // consume 'print'
	p.expect(token.LPAREN)
	var args []ast.Expr
	if p.tok.Type != token.RPAREN {
		args = p.parseExprList()
		if p.tok.Type == token.RPAREN && p.prevTok.Type == token.COMMA {
			p.errorf("trailing comma is not allowed in print")
		}
	}
	p.expect(token.RPAREN)
	if p.failed {
		return nil
	}
	return &ast.PrintStmt{BaseStmt: ast.MakeBaseStmt(start, p.endPos()), Args: args}
}

// -----------------------------------------------------------------------------
// Expressions
// -----------------------------------------------------------------------------

// parseExpr parses an expression: a unary operand followed by any
// number of binary operators, grouped by precedence.
func (p *Parser) parseExpr() ast.Expr {
	return p.parseBinaryRHS(MinPrecedence, p.parseUnary())
}

// parseBinaryRHS folds binary operators binding at least as tightly as
// minPrec onto lhs. Operators of equal precedence associate to the left.
func (p *Parser) parseBinaryRHS(minPrec int, lhs ast.Expr) ast.Expr {
	for !p.failed {
		op, prec, ok := p.binaryOp()
		if !ok || prec < minPrec {
			return lhs
		}
		opPos := p.tok.Pos
		p.next()

		rhs := p.parseUnary()
		if _, next, ok := p.binaryOp(); ok && next > prec {
			rhs = p.parseBinaryRHS(prec+1, rhs)
		}

		lhs = &ast.BinaryExpr{
			BaseExpr: ast.MakeBaseExpr(lhs.Pos(), p.endPos()),
			X:        lhs,
			Op:       op,
			OpPos:    opPos,
			Y:        rhs,
		}
	}
	return lhs
}

// binaryOp returns the current token as a binary operator.
func (p *Parser) binaryOp() (string, int, bool) {
	key := opKey(p.tok)
	if key == "" {
		return "", 0, false
	}
	prec, ok := p.ops.Precedence(key)
	return key, prec, ok
}

// parseUnary parses prefix operators, builtin or user-defined.
func (p *Parser) parseUnary() ast.Expr {
	key := opKey(p.tok)
	if key != "" && p.ops.IsUnary(key) {
		start := p.tok.Pos
		p.next()
		x := p.parseUnary()
		return &ast.UnaryExpr{
			BaseExpr: ast.MakeBaseExpr(start, p.endPos()),
			Op:       key,
			X:        x,
		}
	}
	return p.parsePostfix(p.parsePrimary())
}

// parsePostfix parses element access x[i] and field access x.f.
func (p *Parser) parsePostfix(x ast.Expr) ast.Expr {
	for !p.failed {
		switch p.tok.Type {
		case token.LBRACKET:
			p.next()
			index := p.parseExpr()
			p.expect(token.RBRACKET)
			x = &ast.IndexExpr{
				BaseExpr: ast.MakeBaseExpr(x.Pos(), p.endPos()),
				X:        x,
				Index:    index,
			}
		case token.DOT:
			p.next()
			field, fieldPos := p.expectName()
			x = &ast.MemberExpr{
				BaseExpr: ast.MakeBaseExpr(x.Pos(), p.endPos()),
				X:        x,
				Field:    field,
				FieldPos: fieldPos,
			}
		default:
			return x
		}
	}
	return x
}

// parsePrimary parses literals, names, calls, addr(x), parenthesized
// expressions and the if, for and var expressions.
func (p *Parser) parsePrimary() ast.Expr {
	start := p.tok.Pos

	switch p.tok.Type {
	case token.NUMBER:
		return p.parseNumber()

	case token.NAME:
		name := p.tok.Value
		p.next()
		if p.tok.Type != token.LPAREN {
			return &ast.Ident{BaseExpr: ast.MakeBaseExpr(start, p.endPos()), Name: name}
		}
		p.next()
		if name == "addr" {
			x := p.parseExpr()
			p.expect(token.RPAREN)
			return &ast.AddrExpr{BaseExpr: ast.MakeBaseExpr(start, p.endPos()), X: x}
		}
		var args []ast.Expr
		if p.tok.Type != token.RPAREN {
			args = p.parseExprList()
		}
		p.expect(token.RPAREN)
		return &ast.CallExpr{
			BaseExpr: ast.MakeBaseExpr(start, p.endPos()),
			Name:     name,
			NamePos:  start,
			Args:     args,
		}

	case token.LPAREN:
		p.next()
		x := p.parseExpr()
		p.expect(token.RPAREN)
		return &ast.GroupExpr{BaseExpr: ast.MakeBaseExpr(start, p.endPos()), X: x}

	case token.IF:
		p.next()
		cond := p.parseExpr()
		p.expect(token.COLON)
		then := p.parseExpr()
		p.expect(token.ELSE)
		p.expect(token.COLON)
		els := p.parseExpr()
		return &ast.IfExpr{
			BaseExpr: ast.MakeBaseExpr(start, p.endPos()),
			Cond:     cond,
			Then:     then,
			Else:     els,
		}

	case token.FOR:
		v, vpos, from, to, step := p.parseRangeHeader()
		body := p.parseExpr()
		return &ast.ForExpr{
			BaseExpr: ast.MakeBaseExpr(start, p.endPos()),
			Var:      v,
			VarPos:   vpos,
			Start:    from,
			Limit:    to,
			Step:     step,
			Body:     body,
		}

	case token.VAR:
		return p.parseVarExpr()
	}

	p.error(expectedError(start, "expression", p.tokenDesc()))
	return p.bad(start)
}

// parseNumber converts a NUMBER token. Literals without a decimal point
// are integers.
func (p *Parser) parseNumber() ast.Expr {
	start := p.tok.Pos
	raw := p.tok.Value
	p.next()
	lit := &ast.NumberLit{BaseExpr: ast.MakeBaseExpr(start, p.endPos()), Raw: raw}
	if strings.Contains(raw, ".") {
		f, err := types.ParseFloat(raw)
		if err != nil {
			p.error(errorf(start, "invalid number literal %s", raw))
		}
		lit.IsFloat = true
		lit.Float = f
		return lit
	}
	n, err := types.ParseInt(raw)
	if err != nil {
		p.error(errorf(start, "integer literal %s out of range", raw))
	}
	lit.Int = n
	return lit
}

// parseVarExpr parses var a [= init], b [= init] in body.
func (p *Parser) parseVarExpr() ast.Expr {
	start := p.tok.Pos
	p.next() // consume 'var'
	expr := &ast.VarExpr{}
	for !p.failed {
		name, pos := p.expectName()
		b := &ast.Binding{Name: name, Pos: pos}
		if p.tok.Type == token.ASSIGN {
			p.next()
			b.Init = p.parseExpr()
		}
		expr.Vars = append(expr.Vars, b)
		if p.tok.Type != token.COMMA {
			break
		}
		p.next()
	}
	p.expect(token.IN)
	expr.Body = p.parseExpr()
	expr.BaseExpr = ast.MakeBaseExpr(start, p.endPos())
	return expr
}

// parseExprList parses a comma-separated list of expressions.
func (p *Parser) parseExprList() []ast.Expr {
	var exprs []ast.Expr
	for !p.failed {
		exprs = append(exprs, p.parseExpr())
		if p.tok.Type != token.COMMA {
			break
		}
		p.next()
		if p.tok.Type == token.RPAREN {
			break
		}
	}
	return exprs
}

// canStartExpr reports whether the current token can begin an expression.
func (p *Parser) canStartExpr() bool {
	switch p.tok.Type {
	case token.NUMBER, token.NAME, token.LPAREN, token.IF, token.FOR, token.VAR:
		return true
	}
	key := opKey(p.tok)
	return key != "" && p.ops.IsUnary(key)
}

// bad returns a placeholder for an expression that failed to parse.
func (p *Parser) bad(pos token.Position) ast.Expr {
	return &ast.Ident{BaseExpr: ast.MakeBaseExpr(pos, pos), Name: "_"}
}

// symbolOf returns the operator symbol spelled by tok, or "" when tok
// cannot name an operator definition.
func symbolOf(tok lexer.Token) string {
	switch tok.Type {
	case token.CHAR:
		return tok.Value
	case token.ADD, token.SUB, token.MUL, token.DIV, token.MOD,
		token.BIT_AND, token.BIT_OR, token.BIT_XOR, token.BIT_NOT, token.NOT,
		token.SHL, token.SHR, token.EQUALS, token.NOT_EQUALS,
		token.LESS, token.LTE, token.GREATER, token.GTE:
		return tok.Type.String()
	}
	return ""
}

// opKey returns the operator table key for tok.
func opKey(tok lexer.Token) string {
	switch tok.Type {
	case token.LNOT:
		return "not"
	case token.AND:
		return "and"
	case token.OR:
		return "or"
	}
	return symbolOf(tok)
}
