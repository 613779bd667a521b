package parser

import (
	"strings"

	"github.com/yolomachine/PotatoCompiler/pkg/ast"
	"github.com/yolomachine/PotatoCompiler/pkg/scope"
	"github.com/yolomachine/PotatoCompiler/pkg/token"
	"github.com/yolomachine/PotatoCompiler/pkg/util"
)

// lookup resolves a name through the scope stack, the alias table and
// finally the builtins.
func (p *Parser) lookup(name string) *ast.Symbol {
	if sym := p.scopes.Lookup(name); sym != nil {
		return sym
	}
	if sym := p.aliases.Lookup(name); sym != nil {
		return sym
	}
	return p.builtins.Lookup(name)
}

// constValue returns the defining expression of an integer-valued scalar
// constant.
func (p *Parser) constValue(name string) *ast.Node {
	sym := p.lookup(name)
	if sym == nil || sym.Kind != scope.Const || sym.Value == nil {
		return nil
	}
	items := sym.Value.Data.(ast.ValueNode).Items
	if len(items) != 1 || items[0].Type == ast.FieldInit {
		return nil
	}
	return items[0]
}

func (p *Parser) evalInt(n *ast.Node) (int64, bool) {
	return ast.EvalInt(n, p.constValue)
}

// checkExpr rejects unknown identifiers and writes to constants or type
// aliases anywhere in the expression.
func (p *Parser) checkExpr(n *ast.Node) {
	switch d := n.Data.(type) {
	case ast.IdentNode:
		sym := p.lookup(d.Name)
		switch {
		case sym == nil:
			util.Throw(n.Tok, "Identifier not found: %q", d.Name)
		case sym.Kind == scope.TypeAlias && d.IsAssignment:
			util.Throw(n.Tok, "Can't modify type aliases: %q", d.Name)
		case sym.Kind == scope.Const && d.IsAssignment:
			util.Throw(n.Tok, "Can't modify constant values: %q", d.Name)
		}
	case ast.BinaryOpNode:
		p.checkExpr(d.Left)
		p.checkExpr(d.Right)
	case ast.UnaryOpNode:
		p.checkExpr(d.Expr)
	case ast.RecordAccessNode:
		// The field is resolved against the record type, not the scopes.
		p.checkExpr(d.Record)
	case ast.ArrayIndexNode:
		p.checkExpr(d.Array)
		p.checkExpr(d.Index)
	case ast.FuncCallNode:
		p.checkExpr(d.Func)
		for _, arg := range d.Args {
			p.checkExpr(arg)
		}
	}
}

// validateAndReturnExprType infers the type class of an expression that
// already passed checkExpr and records it on every visited node.
func (p *Parser) validateAndReturnExprType(n *ast.Node) ast.TypeKind {
	var k ast.TypeKind
	switch d := n.Data.(type) {
	case ast.IntConstNode:
		k = ast.TypeInteger
	case ast.FloatConstNode:
		k = ast.TypeReal
	case ast.CharConstNode:
		k = ast.TypeChar
	case ast.StringLiteralNode:
		k = ast.TypeString
	case ast.BinaryOpNode:
		k = p.binaryType(n, d)
	case ast.UnaryOpNode:
		k = p.unaryType(n, d)
	default:
		k = ast.KindOf(p.typeSpecOf(n))
	}
	n.Typ = k
	return k
}

func operandName(k ast.TypeKind) string {
	return strings.ToLower(k.String())
}

func (p *Parser) binaryType(n *ast.Node, d ast.BinaryOpNode) ast.TypeKind {
	lk := p.validateAndReturnExprType(d.Left)
	rk := p.validateAndReturnExprType(d.Right)

	if d.Op == token.In {
		util.Throw(n.Tok, "Sets are not supported")
	}
	relational := precedences[relationalLevel][d.Op]
	for _, k := range []ast.TypeKind{lk, rk} {
		switch k {
		case ast.TypeProcedure:
			util.Throw(n.Tok, "Can't use procedures in expressions")
		case ast.TypeChar, ast.TypeString, ast.TypeArray, ast.TypeRecord:
			util.Throw(n.Tok, "Can't apply operator %q to %s", n.Tok.Raw, operandName(k))
		}
	}

	switch {
	case relational:
		return ast.TypeInteger
	case d.Op == token.Slash:
		return ast.TypeReal
	case d.Op == token.Plus, d.Op == token.Minus, d.Op == token.Star:
		if lk == ast.TypeReal || rk == ast.TypeReal {
			return ast.TypeReal
		}
		return ast.TypeInteger
	}
	if lk != ast.TypeInteger || rk != ast.TypeInteger {
		util.Throw(n.Tok, "Can't apply operator %q to other than integers", n.Tok.Raw)
	}
	return ast.TypeInteger
}

func (p *Parser) unaryType(n *ast.Node, d ast.UnaryOpNode) ast.TypeKind {
	if d.Op == token.At || d.Op == token.Caret {
		util.Throw(n.Tok, "Pointers are not supported")
	}
	k := p.validateAndReturnExprType(d.Expr)
	switch {
	case k == ast.TypeProcedure:
		util.Throw(n.Tok, "Can't use procedures in expressions")
	case d.Op == token.Not && k != ast.TypeInteger:
		util.Throw(n.Tok, "Can't apply operator %q to other than integers", n.Tok.Raw)
	case k != ast.TypeInteger && k != ast.TypeReal:
		util.Throw(n.Tok, "Can't apply operator %q to %s", n.Tok.Raw, operandName(k))
	}
	return k
}

// typeSpecOf returns the declared type of a designator: an identifier,
// field access, indexing or call. Procedures have no type.
func (p *Parser) typeSpecOf(n *ast.Node) *ast.Node {
	switch d := n.Data.(type) {
	case ast.IdentNode:
		sym := p.lookup(d.Name)
		if sym == nil {
			util.Throw(n.Tok, "Identifier not found: %q", d.Name)
		}
		switch {
		case sym.Kind.IsRoutine():
			if sym.Result && d.IsAssignment {
				return sym.Type
			}
			util.Throw(n.Tok, "Improper call of a function or a procedure: %q", d.Name)
		case sym.Kind == scope.TypeAlias:
			util.Throw(n.Tok, "Illegal expression")
		}
		return sym.Type
	case ast.RecordAccessNode:
		rec := ast.Resolve(p.typeSpecOf(d.Record))
		if rec == nil || rec.Type != ast.Record {
			util.Throw(n.Tok, "Illegal qualifier")
		}
		d.Record.Typ = ast.TypeRecord
		field := rec.Data.(ast.RecordNode).Frame.Lookup(d.Field.Name())
		if field == nil {
			util.Throw(d.Field.Tok, "Unknown field %q", d.Field.Name())
		}
		d.Field.Typ = ast.KindOf(field.Type)
		return field.Type
	case ast.ArrayIndexNode:
		arr := ast.Resolve(p.typeSpecOf(d.Array))
		if arr == nil || arr.Type != ast.Array {
			util.Throw(n.Tok, "Illegal qualifier")
		}
		d.Array.Typ = ast.TypeArray
		if k := p.validateAndReturnExprType(d.Index); k != ast.TypeInteger {
			util.Throw(d.Index.Tok, "Incompatible types: %q expected, but %q found", ast.TypeInteger.String(), k.String())
		}
		a := arr.Data.(ast.ArrayNode)
		rng := ast.Resolve(a.Range).Data.(ast.SubrangeNode)
		if v, ok := p.evalInt(d.Index); ok && (v < rng.Lower || v > rng.Upper) {
			util.Throw(d.Index.Tok, "Range check error while evaluating constants")
		}
		return a.Elem
	case ast.FuncCallNode:
		return p.callType(n, d)
	}
	util.Throw(n.Tok, "Illegal qualifier")
	return nil
}

// callType checks a call against the routine's parameter list and returns
// the result type, nil for procedures.
func (p *Parser) callType(n *ast.Node, d ast.FuncCallNode) *ast.Node {
	name := d.Func.Name()
	sym := p.lookup(name)
	switch {
	case sym == nil:
		util.Throw(n.Tok, "Identifier not found: %q", name)
	case sym.Kind == scope.Builtin:
		util.Throw(n.Tok, "Can't use procedures in expressions")
	case !sym.Kind.IsRoutine():
		util.Throw(n.Tok, "Identifier's not a function or a procedure: %q", name)
	}
	d.Func.Typ = ast.TypeProcedure

	routine := sym.Node.Data.(ast.RoutineNode)
	var params []*ast.Node
	if routine.Params != nil {
		params = routine.Params.Data.(ast.ParamListNode).Params
	}
	if len(params) != len(d.Args) {
		util.Throw(n.Tok, "Wrong amount of arguments in function call %q", name)
	}
	for i, arg := range d.Args {
		spec := params[i].Data.(ast.EntryNode).TypeSpec
		got := p.validateAndReturnExprType(arg)
		p.checkCompatible(arg.Tok, spec, ast.KindOf(spec), arg, got)
	}
	return routine.Result
}

// validateAssignment checks "target := value".
func (p *Parser) validateAssignment(target, value *ast.Node) {
	p.checkExpr(target)
	p.checkExpr(value)
	want := p.validateAndReturnExprType(target)
	got := p.validateAndReturnExprType(value)
	if got == ast.TypeProcedure {
		util.Throw(value.Tok, "Can't assign operand of this type")
	}
	p.checkCompatible(value.Tok, p.typeSpecOf(target), want, value, got)
}

// checkCompatible accepts any scalar for a scalar and a structurally equal
// type otherwise.
func (p *Parser) checkCompatible(tok token.Token, wantSpec *ast.Node, want ast.TypeKind, value *ast.Node, got ast.TypeKind) {
	switch {
	case want.IsScalar() && got.IsScalar():
		return
	case want.IsScalar() || got.IsScalar():
		util.Throw(tok, "Incompatible types: %q expected, but %q found", want.String(), got.String())
	}
	var gotSpec *ast.Node
	switch value.Type {
	case ast.Ident, ast.RecordAccess, ast.ArrayIndex, ast.FuncCall:
		gotSpec = p.typeSpecOf(value)
	}
	if wantSpec == nil || gotSpec == nil {
		if want != got {
			util.Throw(tok, "Incompatible types: %q expected, but %q found", want.String(), got.String())
		}
		return
	}
	p.validateNodeTypes(tok, wantSpec, gotSpec)
}

// validateNodeTypes requires two type specifications to have the same
// shape, subrange bounds included.
func (p *Parser) validateNodeTypes(tok token.Token, want, got *ast.Node) {
	want, got = ast.Resolve(want), ast.Resolve(got)
	if want == got {
		return
	}
	mismatch := func() {
		util.Throw(tok, "Incompatible types: %q expected, but %q found", ast.KindOf(want).String(), ast.KindOf(got).String())
	}
	if want == nil || got == nil || want.Type != got.Type {
		mismatch()
	}
	switch w := want.Data.(type) {
	case ast.PrimitiveNode:
		if w.Kind != got.Data.(ast.PrimitiveNode).Kind {
			mismatch()
		}
	case ast.SubrangeNode:
		if w != got.Data.(ast.SubrangeNode) {
			mismatch()
		}
	case ast.ArrayNode:
		g := got.Data.(ast.ArrayNode)
		p.validateNodeTypes(tok, w.Range, g.Range)
		p.validateNodeTypes(tok, w.Elem, g.Elem)
	case ast.RecordNode:
		g := got.Data.(ast.RecordNode)
		if len(w.Fields) != len(g.Fields) {
			mismatch()
		}
		for i, f := range w.Fields {
			if !strings.EqualFold(f.Name(), g.Fields[i].Name()) {
				mismatch()
			}
			p.validateNodeTypes(tok, f.Data.(ast.EntryNode).TypeSpec, g.Fields[i].Data.(ast.EntryNode).TypeSpec)
		}
	}
}

// checkIfExprIsConst fails unless every leaf of n is a literal or a named
// constant.
func (p *Parser) checkIfExprIsConst(n *ast.Node) {
	switch d := n.Data.(type) {
	case ast.IntConstNode, ast.FloatConstNode, ast.CharConstNode, ast.StringLiteralNode:
	case ast.IdentNode:
		if sym := p.lookup(d.Name); sym == nil || sym.Kind != scope.Const {
			util.Throw(n.Tok, "Const identifier or expression expected")
		}
	case ast.BinaryOpNode:
		p.checkIfExprIsConst(d.Left)
		p.checkIfExprIsConst(d.Right)
	case ast.UnaryOpNode:
		p.checkIfExprIsConst(d.Expr)
	default:
		util.Throw(n.Tok, "Const identifier or expression expected")
	}
}

// checkInitializer validates a scalar initializer against the declared
// type class. Integers widen to reals.
func (p *Parser) checkInitializer(expr *ast.Node, want ast.TypeKind) {
	p.checkIfExprIsConst(expr)
	p.checkTyped(expr, want)
}

// checkTyped requires expr to have type class want. Integers widen to
// reals.
func (p *Parser) checkTyped(expr *ast.Node, want ast.TypeKind) {
	p.checkExpr(expr)
	got := p.validateAndReturnExprType(expr)
	if got != want && !(want == ast.TypeReal && got == ast.TypeInteger) {
		util.Throw(expr.Tok, "Incompatible types: %q expected, but %q found", want.String(), got.String())
	}
}
