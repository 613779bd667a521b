package parser

import (
	"strings"

	"github.com/yolomachine/PotatoCompiler/pkg/ast"
	"github.com/yolomachine/PotatoCompiler/pkg/config"
	"github.com/yolomachine/PotatoCompiler/pkg/scope"
	"github.com/yolomachine/PotatoCompiler/pkg/token"
	"github.com/yolomachine/PotatoCompiler/pkg/util"
)

var primitiveTypes = map[string]ast.TypeKind{
	"integer": ast.TypeInteger,
	"real":    ast.TypeReal,
	"char":    ast.TypeChar,
}

// parseDeclarations parses consecutive var/type/const/procedure/function
// sections. Every section opens a frame on the current stack.
func (p *Parser) parseDeclarations() *ast.Node {
	tok := p.current
	var sections []*ast.Node
	for {
		sectionTok := p.current
		switch sectionTok.Type {
		case token.Var:
			p.advance()
			p.scopes.Push()
			sections = append(sections, ast.NewSection(sectionTok, ast.VarDecl, p.parseDeclList(token.Colon, declMode{})))
		case token.TypeKeyword:
			p.advance()
			p.scopes.Push()
			sections = append(sections, ast.NewSection(sectionTok, ast.TypeDecl, p.parseDeclList(token.Equal, declMode{restricted: true})))
		case token.Const:
			p.advance()
			p.scopes.Push()
			sections = append(sections, ast.NewSection(sectionTok, ast.ConstDecl, p.parseConstDecls()))
		case token.Procedure, token.Function:
			p.scopes.Push()
			sections = append(sections, p.parseRoutine())
		default:
			return ast.NewDeclBlock(tok, sections)
		}
	}
}

type declMode struct {
	restricted bool // initializers are not allowed
	local      bool // duplicates are checked against the innermost frame only
	params     bool // a parenthesised parameter list, "(" already consumed
}

// parseDeclList parses "a, b: T [= init];" groups when sep is a colon and
// "T = spec;" aliases when sep is an equal sign. Parameter lists separate
// groups with semicolons and end at ")".
func (p *Parser) parseDeclList(sep token.Type, mode declMode) []*ast.Node {
	if mode.params && p.match(token.RParen) {
		return nil
	}
	p.require(token.Identifier)

	kind, nodeType := scope.Var, ast.VarIdent
	if sep == token.Equal {
		kind, nodeType = scope.TypeAlias, ast.TypeIdent
	}

	var decls []*ast.Node
	for {
		names := []token.Token{p.expect(token.Identifier)}
		if sep == token.Colon {
			for p.match(token.Comma) {
				names = append(names, p.expect(token.Identifier))
			}
		}
		p.expect(sep)
		typeSpec := p.parseType()

		var entry *ast.Node
		var sym *ast.Symbol
		for i, name := range names {
			p.checkDuplicate(name, mode.local)
			spec := typeSpec
			if i > 0 {
				spec = ast.NewTypeRef(typeSpec.Tok, typeSpec.Label(), typeSpec)
			}
			entry = ast.NewEntry(name, nodeType, name.Text, spec)
			sym = &ast.Symbol{Name: name.Text, Kind: kind, Type: spec, Node: entry}
			p.scopes.Insert(sym)
			if kind == scope.TypeAlias {
				p.aliases.Insert(sym)
			}
			decls = append(decls, entry)
		}

		if !mode.restricted && p.check(token.Equal) {
			if len(names) > 1 {
				util.Throw(p.current, "Can't initialize more than one variable")
			}
			p.advance()
			value := p.parseInitialization(typeSpec)
			entry.SetValue(value)
			sym.Value = value
		}

		if mode.params {
			if p.match(token.Semicolon) {
				continue
			}
			p.expect(token.RParen)
			return decls
		}
		if mode.local && p.check(token.End) {
			return decls
		}
		p.expect(token.Semicolon)
		if !p.check(token.Identifier) {
			return decls
		}
	}
}

// checkDuplicate rejects a name already declared in the innermost frame
// (local) or anywhere on the current routine's stack.
func (p *Parser) checkDuplicate(name token.Token, local bool) {
	var sym *ast.Symbol
	if local {
		sym = p.scopes.Top().Lookup(name.Text)
	} else {
		sym = p.scopes.LookupLocal(name.Text)
	}
	if sym != nil {
		util.Throw(name, "Duplicate identifier %q", name.Text)
	}
}

func (p *Parser) parseConstDecls() []*ast.Node {
	p.require(token.Identifier)
	var decls []*ast.Node
	for p.check(token.Identifier) {
		name := p.expect(token.Identifier)
		p.checkDuplicate(name, false)

		var typeSpec, value *ast.Node
		if p.match(token.Colon) {
			typeSpec = p.parseType()
			p.expect(token.Equal)
			value = p.parseInitialization(typeSpec)
		} else {
			eq := p.expect(token.Equal)
			expr := p.parseConstExpr()
			typeSpec = ast.NewPrimitive(eq, expr.Typ, primitiveName(expr.Typ))
			value = ast.NewValue(eq, []*ast.Node{expr})
		}
		p.expect(token.Semicolon)

		entry := ast.NewEntry(name, ast.ConstIdent, name.Text, typeSpec)
		entry.SetValue(value)
		p.scopes.Insert(&ast.Symbol{Name: name.Text, Kind: scope.Const, Type: typeSpec, Value: value, Node: entry})
		decls = append(decls, entry)
	}
	return decls
}

func primitiveName(k ast.TypeKind) string {
	for name, kind := range primitiveTypes {
		if kind == k {
			return name
		}
	}
	return "string"
}

// parseConstExpr parses the right-hand side of "name = expr".
func (p *Parser) parseConstExpr() *ast.Node {
	expr := p.parseExpr()
	p.checkExpr(expr)
	if !p.validateAndReturnExprType(expr).IsScalar() {
		util.Throw(expr.Tok, "Scalar type expected")
	}
	p.checkIfExprIsConst(expr)
	return expr
}

// parseRoutine parses a procedure or function. The body is parsed against
// a fresh stack and a copy of the alias table; the routine name is bound in
// the enclosing scope once the routine is complete.
func (p *Parser) parseRoutine() *ast.Node {
	isFunc := p.current.Type == token.Function
	p.advance()
	nameTok := p.expect(token.Identifier)
	p.checkDuplicate(nameTok, false)

	nodeType, kind := ast.ProcDecl, scope.Procedure
	if isFunc {
		nodeType, kind = ast.FuncDecl, scope.Function
	}
	node := ast.NewRoutine(nameTok, nodeType, nameTok.Text)

	outerScopes, outerAliases := p.scopes, p.aliases
	var outer *ast.Scope
	if p.cfg.IsFeatureEnabled(config.FeatOuterScope) {
		outer = outerScopes
	}
	p.scopes, p.aliases = scope.NewStack[*ast.Node](outer), outerAliases.Clone()
	p.scopes.Push()

	// Visible inside its own body for recursion; a function name is also
	// its result variable.
	self := &ast.Symbol{Name: nameTok.Text, Kind: kind, Node: node, Result: isFunc}
	p.scopes.Insert(self)

	paramsTok := p.current
	var params []*ast.Node
	if p.match(token.LParen) {
		params = p.parseDeclList(token.Colon, declMode{restricted: true, params: true})
	}
	paramList := ast.NewParamList(paramsTok, params)

	var result *ast.Node
	if isFunc {
		p.expect(token.Colon)
		result = p.parseType()
		self.Type = result
	}
	p.expect(token.Semicolon)
	node.SetRoutine(paramList, result, nil, nil, p.scopes)

	var decls *ast.Node
	if isDeclStart(p.current.Type) {
		decls = p.parseDeclarations()
	}
	body := p.parseBranch()
	p.expect(token.Semicolon)
	node.SetRoutine(paramList, result, decls, body, p.scopes)

	p.scopes, p.aliases = outerScopes, outerAliases
	p.scopes.Insert(&ast.Symbol{Name: nameTok.Text, Kind: kind, Type: result, Node: node})
	return node
}

// parseType parses a type specification.
func (p *Parser) parseType() *ast.Node {
	tok := p.current
	switch tok.Type {
	case token.String:
		p.advance()
		return ast.NewPrimitive(tok, ast.TypeString, "string")
	case token.Array:
		return p.parseArrayType()
	case token.Record:
		return p.parseRecordType()
	case token.IntConst, token.Minus:
		return p.parseSubrange()
	case token.Identifier:
		sym := p.lookup(tok.Text)
		if kind, ok := primitiveTypes[strings.ToLower(tok.Text)]; ok && sym == nil {
			p.advance()
			return ast.NewPrimitive(tok, kind, strings.ToLower(tok.Text))
		}
		switch {
		case sym == nil:
			util.Throw(tok, "Identifier not found: %q", tok.Text)
		case sym.Kind == scope.TypeAlias:
			p.advance()
			return ast.NewTypeRef(tok, tok.Text, sym.Type)
		case sym.Kind == scope.Const:
			return p.parseSubrange()
		}
	}
	util.Throw(tok, "Error in type definition")
	return nil
}

func (p *Parser) parseSubrange() *ast.Node {
	tok := p.current
	lower := p.parseBound()
	p.expect(token.Range)
	upper := p.parseBound()
	if lower > upper {
		util.Throw(tok, "Upper bound is less than lower bound")
	}
	return ast.NewSubrange(tok, lower, upper)
}

// parseBound parses a subrange bound: an integer literal or an integer
// constant, optionally negated.
func (p *Parser) parseBound() int64 {
	neg := p.match(token.Minus)
	tok := p.current
	var v int64
	switch tok.Type {
	case token.IntConst:
		v = int64(tok.Int)
	case token.Identifier:
		sym := p.lookup(tok.Text)
		if sym == nil {
			util.Throw(tok, "Identifier not found: %q", tok.Text)
		}
		n, ok := p.evalInt(ast.NewIdent(tok, tok.Text))
		if sym.Kind != scope.Const || ast.KindOf(sym.Type) != ast.TypeInteger || !ok {
			util.Throw(tok, "Integer constant expected")
		}
		v = n
	default:
		p.require(token.IntConst)
	}
	p.advance()
	if neg {
		v = -v
	}
	return v
}

func (p *Parser) parseArrayType() *ast.Node {
	tok := p.expect(token.Array)
	p.expect(token.LBracket)
	rng := p.parseType()
	if r := ast.Resolve(rng); r.Type != ast.Subrange {
		util.Throw(rng.Tok, "Error in type definition")
	}
	p.expect(token.RBracket)
	p.expect(token.Of)
	return ast.NewArray(tok, rng, p.parseType())
}

func (p *Parser) parseRecordType() *ast.Node {
	tok := p.expect(token.Record)
	p.scopes.Push()
	fields := p.parseDeclList(token.Colon, declMode{restricted: true, local: true})
	frame := p.scopes.Pop()
	p.expect(token.End)
	return ast.NewRecord(tok, fields, frame)
}

// parseInitialization parses an initializer for a value of typeSpec:
// an expression for scalars, "(v, v, ...)" for arrays and
// "(field: v; ...)" for records.
func (p *Parser) parseInitialization(typeSpec *ast.Node) *ast.Node {
	tok := p.current
	resolved := ast.Resolve(typeSpec)
	switch resolved.Type {
	case ast.PrimitiveType, ast.Subrange:
		expr := p.parseExpr()
		p.checkInitializer(expr, ast.KindOf(resolved))
		if resolved.Type == ast.Subrange {
			rng := resolved.Data.(ast.SubrangeNode)
			if v, ok := p.evalInt(expr); ok && (v < rng.Lower || v > rng.Upper) {
				util.Throw(expr.Tok, "Range check error while evaluating constants")
			}
		}
		return ast.NewValue(tok, []*ast.Node{expr})
	case ast.Array:
		arr := resolved.Data.(ast.ArrayNode)
		rng := ast.Resolve(arr.Range).Data.(ast.SubrangeNode)
		p.expect(token.LParen)
		var items []*ast.Node
		for i := rng.Lower; i <= rng.Upper; i++ {
			items = append(items, p.parseInitialization(arr.Elem))
			if i < rng.Upper {
				p.expect(token.Comma)
			}
		}
		p.expect(token.RParen)
		return ast.NewValue(tok, items)
	case ast.Record:
		return p.parseRecordInit(tok, resolved)
	}
	util.Throw(tok, "Can't initialize variable of this type")
	return nil
}

func (p *Parser) parseRecordInit(tok token.Token, rec *ast.Node) *ast.Node {
	d := rec.Data.(ast.RecordNode)
	p.expect(token.LParen)
	var items []*ast.Node
	done := make(map[string]bool)
	for i, field := range d.Fields {
		nameTok := p.current
		p.require(token.Identifier)
		if nameTok.Text != field.Name() {
			switch {
			case done[nameTok.Text]:
				util.Throw(nameTok, "Field has already been initialized")
			case d.Frame.Lookup(nameTok.Text) != nil:
				util.Throw(nameTok, "Incorrect initialization order")
			default:
				util.Throw(nameTok, "Unknown field")
			}
		}
		done[nameTok.Text] = true
		p.advance()
		p.expect(token.Colon)
		value := p.parseInitialization(field.Data.(ast.EntryNode).TypeSpec)
		items = append(items, ast.NewFieldInit(nameTok, nameTok.Text, value))
		if i < len(d.Fields)-1 {
			p.expect(token.Semicolon)
		} else {
			p.match(token.Semicolon)
		}
	}
	p.expect(token.RParen)
	return ast.NewValue(tok, items)
}
