package parser

import (
	"github.com/yolomachine/PotatoCompiler/pkg/ast"
	"github.com/yolomachine/PotatoCompiler/pkg/config"
	"github.com/yolomachine/PotatoCompiler/pkg/lexer"
	"github.com/yolomachine/PotatoCompiler/pkg/scope"
	"github.com/yolomachine/PotatoCompiler/pkg/token"
	"github.com/yolomachine/PotatoCompiler/pkg/util"
)

// Parser pulls tokens from the lexer one at a time and validates the tree
// as it builds it. It stops at the first error.
type Parser struct {
	lex     *lexer.Lexer
	cfg     *config.Config
	current token.Token

	scopes   *ast.Scope
	aliases  *scope.Frame[*ast.Node]
	builtins *scope.Frame[*ast.Node]
}

func NewParser(lex *lexer.Lexer, cfg *config.Config) *Parser {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &Parser{
		lex:      lex,
		cfg:      cfg,
		scopes:   scope.NewStack[*ast.Node](nil),
		aliases:  scope.NewFrame[*ast.Node](),
		builtins: scope.Builtins[*ast.Node](),
	}
}

// BuildTree parses a whole program. On failure the returned error is a
// *util.Error carrying the position of the offending token.
func (p *Parser) BuildTree() (root *ast.Node, err error) {
	defer util.Catch(&err)
	p.advance()
	return p.parseProgram(), nil
}

// Parser helpers
func (p *Parser) advance() {
	tok, err := p.lex.Next()
	if err != nil {
		panic(err)
	}
	p.current = tok
}

func (p *Parser) check(tokType token.Type) bool {
	return p.current.Type == tokType
}

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

// require fails unless the current token has the given type.
func (p *Parser) require(tokType token.Type) {
	if p.check(tokType) {
		return
	}
	if p.current.Type == token.EOF {
		util.Throw(p.current, "Unexpected end of file")
	}
	util.Throw(p.current, "Syntax error, %q expected, but %q found", tokType.String(), found(p.current))
}

// expect consumes a token of the given type and returns it.
func (p *Parser) expect(tokType token.Type) token.Token {
	tok := p.current
	p.require(tokType)
	p.advance()
	return tok
}

func found(tok token.Token) string {
	if tok.Type == token.EOF {
		return "EOF"
	}
	return tok.Raw
}

func isDeclStart(t token.Type) bool {
	switch t {
	case token.Var, token.TypeKeyword, token.Const, token.Procedure, token.Function:
		return true
	}
	return false
}

func (p *Parser) parseProgram() *ast.Node {
	tok := p.expect(token.Program)
	nameTok := p.expect(token.Identifier)
	p.expect(token.Semicolon)
	name := ast.NewIdent(nameTok, nameTok.Text)

	var decls, body *ast.Node
	if isDeclStart(p.current.Type) {
		decls = p.parseDeclarations()
	}
	p.expect(token.Begin)
	if !p.check(token.End) {
		body = p.parseStatements()
	}
	p.expect(token.End)
	// Whatever follows the final dot is not scanned.
	p.require(token.Dot)
	return ast.NewProgram(tok, name, decls, body, p.scopes)
}

// parseStatements parses statements up to, not including, the closing
// "end". The semicolon before "end" is optional.
func (p *Parser) parseStatements() *ast.Node {
	tok := p.current
	var stmts []*ast.Node
	for !p.check(token.End) {
		if p.match(token.Semicolon) {
			continue
		}
		stmts = append(stmts, p.parseStatement())
		if !p.check(token.End) {
			p.expect(token.Semicolon)
		}
	}
	return ast.NewBlock(tok, stmts)
}

// parseBranch parses a mandatory "begin ... end" body.
func (p *Parser) parseBranch() *ast.Node {
	p.expect(token.Begin)
	body := p.parseStatements()
	p.expect(token.End)
	return body
}

func (p *Parser) parseStatement() *ast.Node {
	switch p.current.Type {
	case token.If:
		return p.parseIf()
	case token.For:
		return p.parseFor()
	case token.Begin:
		return p.parseBranch()
	}

	expr := p.parseExpr()
	if root := designatorRoot(expr); root != nil && p.check(token.Assign) {
		opTok := p.expect(token.Assign)
		root.MarkAssignment()
		value := p.parseExpr()
		p.validateAssignment(expr, value)
		return ast.NewBinaryOp(opTok, token.Assign, expr, value)
	}
	return p.parseCallStatement(expr)
}

// designatorRoot returns the variable an assignable expression is rooted
// at, or nil if expr cannot be assigned to.
func designatorRoot(expr *ast.Node) *ast.Node {
	for {
		switch d := expr.Data.(type) {
		case ast.IdentNode:
			return expr
		case ast.RecordAccessNode:
			expr = d.Record
		case ast.ArrayIndexNode:
			expr = d.Array
		default:
			return nil
		}
	}
}

// parseCallStatement turns an expression used as a statement into a call.
// write and writeln are found through the builtin table.
func (p *Parser) parseCallStatement(expr *ast.Node) *ast.Node {
	var args []*ast.Node
	switch expr.Type {
	case ast.FuncCall:
		args = expr.Data.(ast.FuncCallNode).Args
	case ast.Ident:
	default:
		util.Throw(expr.Tok, "Illegal expression")
	}

	name := expr.Name()
	if expr.Type == ast.FuncCall {
		name = expr.Data.(ast.FuncCallNode).Func.Name()
	}
	sym := p.lookup(name)
	switch {
	case sym == nil:
		util.Throw(expr.Tok, "Identifier not found: %q", name)
	case sym.Kind == scope.Builtin:
		return p.newWrite(expr.Tok, sym.Builtin == scope.WriteLn, args)
	case !sym.Kind.IsRoutine():
		if expr.Type == ast.FuncCall {
			util.Throw(expr.Tok, "Identifier's not a function or a procedure: %q", name)
		}
		util.Throw(expr.Tok, "Illegal expression")
	}

	if expr.Type == ast.Ident {
		expr = ast.NewFuncCall(expr.Tok, expr, nil)
	}
	p.checkExpr(expr)
	p.validateAndReturnExprType(expr)
	return expr
}

func (p *Parser) newWrite(tok token.Token, newline bool, args []*ast.Node) *ast.Node {
	for _, arg := range args {
		p.checkExpr(arg)
		if t := p.validateAndReturnExprType(arg); !t.IsScalar() && t != ast.TypeString {
			util.Throw(arg.Tok, "Can't write values of type %q", t.String())
		}
	}
	return ast.NewWrite(tok, newline, args)
}

func (p *Parser) parseIf() *ast.Node {
	tok := p.expect(token.If)
	cond := p.parseExpr()
	p.checkTyped(cond, ast.TypeInteger)
	p.expect(token.Then)
	then := p.parseBranch()

	var els *ast.Node
	if p.match(token.Else) {
		els = p.parseBranch()
	} else {
		els = ast.NewBlock(p.current, nil)
	}
	return ast.NewIf(tok, cond, then, els)
}

func (p *Parser) parseFor() *ast.Node {
	tok := p.expect(token.For)
	varTok := p.expect(token.Identifier)
	ctrl := ast.NewIdent(varTok, varTok.Text)
	ctrl.MarkAssignment()
	p.checkExpr(ctrl)
	kind := p.validateAndReturnExprType(ctrl)
	if kind != ast.TypeInteger && kind != ast.TypeChar {
		util.Throw(varTok, "Ordinal type expected")
	}

	p.expect(token.Assign)
	init := p.parseExpr()
	p.checkTyped(init, kind)

	dirTok := p.current
	if !p.match(token.DownTo) {
		p.expect(token.To)
	}
	dir := ast.NewDirection(dirTok, dirTok.Type == token.DownTo)

	final := p.parseExpr()
	p.checkTyped(final, kind)
	p.expect(token.Do)
	body := p.parseBranch()
	return ast.NewFor(tok, ctrl, init, dir, final, body)
}
