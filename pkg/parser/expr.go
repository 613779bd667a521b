package parser

import (
	"math"

	"github.com/yolomachine/PotatoCompiler/pkg/ast"
	"github.com/yolomachine/PotatoCompiler/pkg/token"
	"github.com/yolomachine/PotatoCompiler/pkg/util"
)

const (
	unaryLevel = iota
	multiplicativeLevel
	additiveLevel
	relationalLevel
)

var precedences = [...]map[token.Type]bool{
	unaryLevel: {token.Not: true, token.Plus: true, token.Minus: true, token.At: true, token.Caret: true},
	multiplicativeLevel: {
		token.Star: true, token.Slash: true, token.Div: true, token.Mod: true, token.And: true,
		token.Shl: true, token.Shr: true, token.ShlOp: true, token.ShrOp: true,
	},
	additiveLevel: {token.Plus: true, token.Minus: true, token.Or: true, token.Xor: true},
	relationalLevel: {
		token.Equal: true, token.NotEqual: true, token.Less: true, token.Greater: true,
		token.LessEqual: true, token.GreaterEqual: true, token.In: true,
	},
}

// "<<" and ">>" are spellings of shl and shr.
var opAliases = map[token.Type]token.Type{token.ShlOp: token.Shl, token.ShrOp: token.Shr}

func (p *Parser) parseExpr() *ast.Node {
	return p.parseBinOp(relationalLevel, p.parseSimpleExpr)
}

func (p *Parser) parseSimpleExpr() *ast.Node {
	return p.parseBinOp(additiveLevel, p.parseTerm)
}

func (p *Parser) parseTerm() *ast.Node {
	return p.parseBinOp(multiplicativeLevel, p.parseFactor)
}

// parseBinOp folds a left-associative chain of the operators at level,
// with operands parsed by next.
func (p *Parser) parseBinOp(level int, next func() *ast.Node) *ast.Node {
	left := next()
	for precedences[level][p.current.Type] {
		opTok := p.current
		p.advance()
		op := opTok.Type
		if alias, ok := opAliases[op]; ok {
			op = alias
		}
		left = ast.NewBinaryOp(opTok, op, left, next())
	}
	return left
}

func (p *Parser) parseFactor() *ast.Node {
	tok := p.current
	if precedences[unaryLevel][tok.Type] {
		p.advance()
		return ast.NewUnaryOp(tok, tok.Type, p.parseFactor())
	}

	switch tok.Type {
	case token.Identifier:
		p.advance()
		return p.parsePostfix(ast.NewIdent(tok, tok.Text))
	case token.IntConst:
		p.advance()
		if tok.Int > math.MaxInt64 {
			util.Throw(tok, "Constant out of range")
		}
		return ast.NewIntConst(tok, int64(tok.Int))
	case token.FloatConst:
		p.advance()
		return ast.NewFloatConst(tok, tok.Float)
	case token.CharConst:
		p.advance()
		return ast.NewCharConst(tok, tok.Text[0])
	case token.StringConst:
		p.advance()
		return ast.NewStringLiteral(tok, tok.Text)
	case token.LParen:
		p.advance()
		expr := p.parseExpr()
		p.expect(token.RParen)
		return expr
	case token.EOF:
		util.Throw(tok, "Unexpected end of file")
	}
	util.Throw(tok, "Illegal expression")
	return nil
}

// parsePostfix applies field access, indexing and calls to base.
func (p *Parser) parsePostfix(base *ast.Node) *ast.Node {
	for {
		tok := p.current
		switch {
		case p.match(token.Dot):
			fieldTok := p.expect(token.Identifier)
			base = ast.NewRecordAccess(tok, base, ast.NewIdent(fieldTok, fieldTok.Text))
		case p.match(token.LBracket):
			index := p.parseExpr()
			p.expect(token.RBracket)
			base = ast.NewArrayIndex(tok, base, index)
		case p.check(token.LParen):
			if base.Type != ast.Ident {
				util.Throw(tok, "Illegal function call")
			}
			p.advance()
			base = ast.NewFuncCall(base.Tok, base, p.parseArgs())
		default:
			return base
		}
	}
}

func (p *Parser) parseArgs() []*ast.Node {
	var args []*ast.Node
	if p.match(token.RParen) {
		return args
	}
	for {
		args = append(args, p.parseExpr())
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RParen)
	return args
}
