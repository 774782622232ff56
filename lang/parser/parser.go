// Package parser implements a recursive-descent parser producing the
// lang/ast tree from a lang/scanner token stream. Together with
// lang/scanner it is a conforming provider of the fixed external AST
// interface: the compile core depends only on lang/ast, never on this
// package directly.
package parser

import (
	"fmt"

	"github.com/mna/glade/lang/ast"
	"github.com/mna/glade/lang/scanner"
	"github.com/mna/glade/lang/token"
)

// Parser builds an *ast.Chunk from a single source file.
type Parser struct {
	sc   *scanner.Scanner
	name string

	tok token.Token
	lit string
	pos token.Pos

	errors scanner.ErrorList
}

// ParseFile scans and parses src (named name) using fset to record
// positions, returning the resulting chunk and any syntax errors.
func ParseFile(fset *token.FileSet, name, src string) (*ast.Chunk, error) {
	p := &Parser{sc: scanner.New(fset, name, src), name: name}
	p.next()
	chunk := p.parseChunk()
	p.errors.Sort()
	if err := p.errors.Err(); err != nil {
		return chunk, err
	}
	return chunk, nil
}

func (p *Parser) next() {
	p.tok, p.lit, p.pos = p.sc.Scan()
}

func (p *Parser) errorf(pos token.Pos, format string, args ...interface{}) {
	p.errors.Add(p.sc.Position(pos), fmt.Sprintf(format, args...))
}

func (p *Parser) expect(tok token.Token) token.Pos {
	pos := p.pos
	if p.tok != tok {
		p.errorf(p.pos, "expected %s, got %s", tok, p.tok)
	} else {
		p.next()
	}
	return pos
}

func (p *Parser) accept(tok token.Token) bool {
	if p.tok == tok {
		p.next()
		return true
	}
	return false
}

func (p *Parser) parseChunk() *ast.Chunk {
	block := p.parseStmtList(token.EOF)
	end := p.pos
	return &ast.Chunk{Name: p.name, Block: block, EOF: end}
}

// parseStmtList parses statements until it sees until or EOF.
func (p *Parser) parseStmtList(until token.Token) *ast.Block {
	start := p.pos
	var stmts []ast.Stmt
	for p.tok != until && p.tok != token.EOF {
		s := p.parseStmt()
		if s != nil {
			stmts = append(stmts, s)
		}
	}
	return &ast.Block{Start: start, End: p.pos, Stmts: stmts}
}

func (p *Parser) parseBlock() *ast.Block {
	p.expect(token.LBRACE)
	b := p.parseStmtList(token.RBRACE)
	p.expect(token.RBRACE)
	return b
}

func (p *Parser) parseStmt() ast.Stmt {
	switch p.tok {
	case token.LET, token.CONST:
		return p.parseLetStmt()
	case token.FUN:
		return p.parseFuncStmt()
	case token.CLASS:
		return p.parseClassStmt()
	case token.IF:
		return p.parseIfStmt()
	case token.WHILE:
		return p.parseWhileStmt()
	case token.FOR:
		return p.parseForStmt()
	case token.RETURN:
		return p.parseReturnStmt()
	case token.BREAK:
		pos := p.pos
		p.next()
		p.accept(token.SEMI)
		return &ast.BreakStmt{Break: pos}
	case token.CONTINUE:
		pos := p.pos
		p.next()
		p.accept(token.SEMI)
		return &ast.ContinueStmt{Continue: pos}
	case token.ASSERT:
		return p.parseAssertStmt()
	case token.SEMI:
		p.next()
		return nil
	default:
		return p.parseSimpleStmt()
	}
}

func (p *Parser) parseLetStmt() ast.Stmt {
	pos := p.pos
	mutable := p.tok == token.LET
	p.next()
	name := p.parseIdent()
	eq := p.expect(token.EQ)
	val := p.parseExpr()
	p.accept(token.SEMI)
	return &ast.LetStmt{Let: pos, Mutable: mutable, Name: name, Eq: eq, Value: val}
}

func (p *Parser) parseIdent() *ast.IdentExpr {
	pos, lit := p.pos, p.lit
	p.expect(token.IDENT)
	return &ast.IdentExpr{Start: pos, Lit: lit}
}

func (p *Parser) parseParams() ([]*ast.IdentExpr, bool) {
	p.expect(token.LPAREN)
	var params []*ast.IdentExpr
	varArg := false
	for p.tok != token.RPAREN && p.tok != token.EOF {
		if p.tok == token.DOTDOTDOT {
			p.next()
			varArg = true
			params = append(params, p.parseIdent())
			break
		}
		params = append(params, p.parseIdent())
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	return params, varArg
}

func (p *Parser) parseFuncStmt() ast.Stmt {
	pos := p.pos
	p.next()
	name := p.parseIdent()
	params, varArg := p.parseParams()
	body := p.parseBlock()
	return &ast.FuncStmt{Fn: pos, Name: name, Params: params, VarArg: varArg, Body: body, End: p.pos}
}

func (p *Parser) parseFuncExpr() ast.Expr {
	pos := p.pos
	p.next()
	params, varArg := p.parseParams()
	body := p.parseBlock()
	return &ast.FuncExpr{Fn: pos, Params: params, VarArg: varArg, Body: body, End: p.pos}
}

func (p *Parser) parseClassStmt() ast.Stmt {
	pos := p.pos
	p.next()
	name := p.parseIdent()
	p.expect(token.LBRACE)
	var fields []*ast.FieldDecl
	var methods []*ast.FuncStmt
	for p.tok != token.RBRACE && p.tok != token.EOF {
		if p.tok == token.FUN {
			m := p.parseFuncStmt().(*ast.FuncStmt)
			methods = append(methods, m)
			continue
		}
		fname := p.parseIdent()
		var def ast.Expr
		if p.accept(token.EQ) {
			def = p.parseExpr()
		}
		p.accept(token.SEMI)
		fields = append(fields, &ast.FieldDecl{Name: fname, Default: def})
	}
	p.expect(token.RBRACE)
	return &ast.ClassStmt{Class: pos, Name: name, Fields: fields, Methods: methods, End: p.pos}
}

func (p *Parser) parseIfStmt() ast.Stmt {
	pos := p.pos
	p.next()
	cond := p.parseExpr()
	then := p.parseBlock()
	stmt := &ast.IfStmt{If: pos, Cond: cond, Then: then, End: p.pos}
	if p.accept(token.ELSE) {
		if p.tok == token.IF {
			nested := p.parseIfStmt()
			start, end := nested.Span()
			stmt.Else = &ast.Block{Start: start, End: end, Stmts: []ast.Stmt{nested}}
		} else {
			stmt.Else = p.parseBlock()
		}
		stmt.End = p.pos
	}
	return stmt
}

func (p *Parser) parseWhileStmt() ast.Stmt {
	pos := p.pos
	p.next()
	cond := p.parseExpr()
	body := p.parseBlock()
	return &ast.WhileStmt{While: pos, Cond: cond, Body: body, End: p.pos}
}

func (p *Parser) parseForStmt() ast.Stmt {
	pos := p.pos
	p.next()
	var init ast.Stmt
	var cond ast.Expr
	var post ast.Stmt
	paren := p.accept(token.LPAREN)
	if p.tok == token.LET || p.tok == token.CONST {
		init = p.parseLetStmt() // consumes its own ';'
	} else {
		if p.tok != token.SEMI {
			init = p.parseSimpleStmtNoSemi()
		}
		p.expect(token.SEMI)
	}
	if p.tok != token.SEMI {
		cond = p.parseExpr()
	}
	p.expect(token.SEMI)
	if paren {
		if p.tok != token.RPAREN {
			post = p.parseSimpleStmtNoSemi()
		}
		p.expect(token.RPAREN)
	} else if p.tok != token.LBRACE {
		post = p.parseSimpleStmtNoSemi()
	}
	body := p.parseBlock()
	return &ast.ForStmt{For: pos, Init: init, Cond: cond, Post: post, Body: body, End: p.pos}
}

func (p *Parser) parseReturnStmt() ast.Stmt {
	pos := p.pos
	p.next()
	var val ast.Expr
	if p.tok != token.SEMI && p.tok != token.RBRACE {
		val = p.parseExpr()
	}
	p.accept(token.SEMI)
	return &ast.ReturnStmt{Return: pos, Value: val}
}

func (p *Parser) parseAssertStmt() ast.Stmt {
	pos := p.pos
	p.next()
	cond := p.parseExpr()
	p.accept(token.SEMI)
	return &ast.AssertStmt{Assert: pos, Cond: cond, End: p.pos}
}

// parseSimpleStmt parses an expression statement or an assignment,
// consuming a trailing semicolon if present.
func (p *Parser) parseSimpleStmt() ast.Stmt {
	s := p.parseSimpleStmtNoSemi()
	p.accept(token.SEMI)
	return s
}

func (p *Parser) parseSimpleStmtNoSemi() ast.Stmt {
	x := p.parseExpr()
	if p.tok.IsAssignOp() {
		op, opPos := p.tok, p.pos
		p.next()
		rhs := p.parseExpr()
		if !ast.IsAssignable(x) {
			p.errorf(opPos, "cannot assign to this expression")
		}
		return &ast.AssignStmt{Left: x, Op: op, OpPos: opPos, Right: rhs}
	}
	return &ast.ExprStmt{X: x}
}

// --- expressions, precedence climbing ---

var binPrec = map[token.Token]int{
	token.OROR:       1,
	token.ANDAND:     2,
	token.PIPE:       3,
	token.CIRCUMFLEX: 4,
	token.AMPERSAND:  5,
	token.EQEQ:       6,
	token.NOTEQ:      6,
	token.LT:         7,
	token.LE:         7,
	token.GT:         7,
	token.GE:         7,
	token.LTLT:       8,
	token.GTGT:       8,
	token.PLUS:       9,
	token.MINUS:      9,
	token.STAR:       10,
	token.SLASH:      10,
	token.PERCENT:    10,
}

func (p *Parser) parseExpr() ast.Expr { return p.parseTernary() }

func (p *Parser) parseTernary() ast.Expr {
	cond := p.parseBinary(1)
	if p.tok == token.QUESTION {
		q := p.pos
		p.next()
		then := p.parseTernary()
		c := p.expect(token.COLON)
		els := p.parseTernary()
		return &ast.TernaryExpr{Cond: cond, Question: q, Then: then, Colon: c, Else: els}
	}
	return cond
}

func (p *Parser) parseBinary(minPrec int) ast.Expr {
	left := p.parseUnary()
	for {
		prec, ok := binPrec[p.tok]
		if !ok || prec < minPrec {
			return left
		}
		op, opPos := p.tok, p.pos
		p.next()
		right := p.parseBinary(prec + 1)
		left = &ast.BinaryExpr{Left: left, Op: op, OpPos: opPos, Right: right}
	}
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.tok {
	case token.MINUS, token.NOT, token.TILDE:
		op, pos := p.tok, p.pos
		p.next()
		right := p.parseUnary()
		return &ast.UnaryExpr{Op: op, OpPos: pos, Right: right}
	default:
		return p.parsePostfix(p.parsePrimary())
	}
}

func (p *Parser) parsePostfix(x ast.Expr) ast.Expr {
	for {
		switch p.tok {
		case token.DOT:
			dot := p.pos
			p.next()
			name, namePos := p.lit, p.pos
			p.expect(token.IDENT)
			x = &ast.MemberExpr{Left: x, Dot: dot, Name: name, NamePos: namePos}
		case token.LBRACK:
			lb := p.pos
			p.next()
			idx := p.parseExpr()
			rb := p.expect(token.RBRACK)
			x = &ast.IndexExpr{Prefix: x, Lbrack: lb, Index: idx, Rbrack: rb}
		case token.LPAREN:
			lp := p.pos
			p.next()
			var args []ast.Expr
			for p.tok != token.RPAREN && p.tok != token.EOF {
				args = append(args, p.parseExpr())
				if !p.accept(token.COMMA) {
					break
				}
			}
			rp := p.expect(token.RPAREN)
			x = &ast.CallExpr{Fn: x, Lparen: lp, Args: args, Rparen: rp}
		default:
			return x
		}
	}
}

func (p *Parser) parsePrimary() ast.Expr {
	switch p.tok {
	case token.IDENT:
		return p.parseIdent()
	case token.INT, token.FLOAT, token.STRING:
		return p.parseLiteral()
	case token.BYTES:
		return p.parseByteArray()
	case token.NIL, token.TRUE, token.FALSE:
		return p.parseKeywordLiteral()
	case token.LPAREN:
		p.next()
		x := p.parseExpr()
		p.expect(token.RPAREN)
		return x
	case token.LBRACK:
		return p.parseArrayExpr()
	case token.LBRACE:
		return p.parseMapExpr()
	case token.FUN:
		return p.parseFuncExpr()
	case token.PIPE:
		return p.parsePipeFuncExpr()
	default:
		p.errorf(p.pos, "unexpected token %s", p.tok)
		pos := p.pos
		p.next()
		return &ast.LiteralExpr{Type: token.NIL, Start: pos, Value: nil}
	}
}

func (p *Parser) parseLiteral() ast.Expr {
	pos, tok, lit := p.pos, p.tok, p.lit
	p.next()
	var val interface{}
	switch tok {
	case token.INT:
		v, err := scanner.ParseIntLiteral(lit)
		if err != nil {
			p.errorf(pos, "invalid integer literal %q", lit)
		}
		val = v
	case token.FLOAT:
		v, err := scanner.ParseFloatLiteral(lit)
		if err != nil {
			p.errorf(pos, "invalid float literal %q", lit)
		}
		val = v
	case token.STRING:
		val = lit
	}
	return &ast.LiteralExpr{Type: tok, Start: pos, Raw: lit, Value: val}
}

func (p *Parser) parseByteArray() ast.Expr {
	pos, lit := p.pos, p.lit
	p.next()
	return &ast.ByteArrayExpr{Start: pos, Raw: lit, Value: []byte(lit)}
}

func (p *Parser) parseKeywordLiteral() ast.Expr {
	pos, tok := p.pos, p.tok
	p.next()
	var val interface{}
	switch tok {
	case token.TRUE:
		val = true
	case token.FALSE:
		val = false
	}
	return &ast.LiteralExpr{Type: tok, Start: pos, Value: val}
}

func (p *Parser) parseArrayExpr() ast.Expr {
	lb := p.pos
	p.next()
	var items []ast.Expr
	for p.tok != token.RBRACK && p.tok != token.EOF {
		items = append(items, p.parseExpr())
		if !p.accept(token.COMMA) {
			break
		}
	}
	rb := p.expect(token.RBRACK)
	return &ast.ArrayExpr{Lbrack: lb, Items: items, Rbrack: rb}
}

func (p *Parser) parseMapExpr() ast.Expr {
	lb := p.pos
	p.next()
	var items []*ast.KeyVal
	for p.tok != token.RBRACE && p.tok != token.EOF {
		var key ast.Expr
		if p.tok == token.IDENT {
			// bare-identifier map keys are string-literal sugar, e.g. {x: 1}
			// means {"x": 1}, not a reference to a variable named x.
			pos, lit := p.pos, p.lit
			p.next()
			key = &ast.LiteralExpr{Type: token.STRING, Start: pos, Raw: lit, Value: lit}
		} else {
			key = p.parseExpr()
		}
		p.expect(token.COLON)
		val := p.parseExpr()
		items = append(items, &ast.KeyVal{Key: key, Value: val})
		if !p.accept(token.COMMA) {
			break
		}
	}
	rb := p.expect(token.RBRACE)
	return &ast.MapExpr{Lbrace: lb, Items: items, Rbrace: rb}
}

// parsePipeFuncExpr parses the |x, y| expr closure shorthand, a
// single-expression body function literal.
func (p *Parser) parsePipeFuncExpr() ast.Expr {
	start := p.pos
	p.next()
	var params []*ast.IdentExpr
	for p.tok != token.PIPE && p.tok != token.EOF {
		params = append(params, p.parseIdent())
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.PIPE)
	body := p.parseExpr()
	end := p.pos
	block := &ast.Block{
		Start: start,
		End:   end,
		Stmts: []ast.Stmt{&ast.ReturnStmt{Return: start, Value: body}},
	}
	return &ast.FuncExpr{Fn: start, Params: params, Body: block, End: end}
}
