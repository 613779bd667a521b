package ast

import (
	"github.com/yolomachine/PotatoCompiler/pkg/token"
	"github.com/yolomachine/PotatoCompiler/pkg/util"
)

// Pascal truth values as produced by relational operators.
const (
	True  int64 = -1
	False int64 = 0
)

func boolValue(b bool) int64 {
	if b {
		return True
	}
	return False
}

func isNumber(n *Node) bool { return n.Type == IntConst || n.Type == FloatConst }

func floatOf(n *Node) float64 {
	if n.Type == IntConst {
		return float64(n.Data.(IntConstNode).Value)
	}
	return n.Data.(FloatConstNode).Value
}

func withType(n *Node, k TypeKind) *Node {
	n.Typ = k
	return n
}

// FoldConstants evaluates operators whose operands are literals. It expects
// a validated expression and keeps the inferred types.
func FoldConstants(node *Node) *Node {
	if node == nil {
		return nil
	}

	switch d := node.Data.(type) {
	case BinaryOpNode:
		if d.Op == token.Assign {
			d.Right = FoldConstants(d.Right)
			d.Right.Parent = node
			node.Data = d
			return node
		}
		d.Left = FoldConstants(d.Left)
		d.Right = FoldConstants(d.Right)
		d.Left.Parent, d.Right.Parent = node, node
		node.Data = d
		if !isNumber(d.Left) || !isNumber(d.Right) {
			return node
		}
		if d.Left.Type == IntConst && d.Right.Type == IntConst {
			if res, ok := foldInt(node, d.Op, d.Left.Data.(IntConstNode).Value, d.Right.Data.(IntConstNode).Value); ok {
				return withType(NewIntConst(node.Tok, res), TypeInteger)
			}
			if d.Op != token.Slash {
				return node
			}
		}
		return foldFloat(node, d.Op, floatOf(d.Left), floatOf(d.Right))
	case UnaryOpNode:
		d.Expr = FoldConstants(d.Expr)
		d.Expr.Parent = node
		node.Data = d
		switch {
		case d.Expr.Type == IntConst && d.Op == token.Minus:
			return withType(NewIntConst(node.Tok, -d.Expr.Data.(IntConstNode).Value), TypeInteger)
		case d.Expr.Type == IntConst && d.Op == token.Not:
			return withType(NewIntConst(node.Tok, ^d.Expr.Data.(IntConstNode).Value), TypeInteger)
		case d.Expr.Type == FloatConst && d.Op == token.Minus:
			return withType(NewFloatConst(node.Tok, -d.Expr.Data.(FloatConstNode).Value), TypeReal)
		case isNumber(d.Expr) && d.Op == token.Plus:
			return d.Expr
		}
	}
	return node
}

func foldInt(node *Node, op token.Type, l, r int64) (int64, bool) {
	switch op {
	case token.Plus:
		return l + r, true
	case token.Minus:
		return l - r, true
	case token.Star:
		return l * r, true
	case token.And:
		return l & r, true
	case token.Or:
		return l | r, true
	case token.Xor:
		return l ^ r, true
	case token.Shl:
		return l << uint64(r), true
	case token.Shr:
		return int64(uint32(l) >> uint64(r)), true
	case token.Div, token.Mod:
		if r == 0 {
			util.Throw(node.Tok, "Division by zero")
		}
		if op == token.Div {
			return l / r, true
		}
		return l % r, true
	case token.Equal:
		return boolValue(l == r), true
	case token.NotEqual:
		return boolValue(l != r), true
	case token.Less:
		return boolValue(l < r), true
	case token.Greater:
		return boolValue(l > r), true
	case token.LessEqual:
		return boolValue(l <= r), true
	case token.GreaterEqual:
		return boolValue(l >= r), true
	}
	return 0, false
}

func foldFloat(node *Node, op token.Type, l, r float64) *Node {
	switch op {
	case token.Plus:
		return withType(NewFloatConst(node.Tok, l+r), TypeReal)
	case token.Minus:
		return withType(NewFloatConst(node.Tok, l-r), TypeReal)
	case token.Star:
		return withType(NewFloatConst(node.Tok, l*r), TypeReal)
	case token.Slash:
		if r == 0 {
			util.Throw(node.Tok, "Division by zero")
		}
		return withType(NewFloatConst(node.Tok, l/r), TypeReal)
	case token.Equal:
		return withType(NewIntConst(node.Tok, boolValue(l == r)), TypeInteger)
	case token.NotEqual:
		return withType(NewIntConst(node.Tok, boolValue(l != r)), TypeInteger)
	case token.Less:
		return withType(NewIntConst(node.Tok, boolValue(l < r)), TypeInteger)
	case token.Greater:
		return withType(NewIntConst(node.Tok, boolValue(l > r)), TypeInteger)
	case token.LessEqual:
		return withType(NewIntConst(node.Tok, boolValue(l <= r)), TypeInteger)
	case token.GreaterEqual:
		return withType(NewIntConst(node.Tok, boolValue(l >= r)), TypeInteger)
	}
	return node
}

// EvalInt evaluates an integer constant expression without modifying it.
// consts returns the defining expression of a named constant, or nil.
func EvalInt(n *Node, consts func(name string) *Node) (int64, bool) {
	switch d := n.Data.(type) {
	case IntConstNode:
		return d.Value, true
	case IdentNode:
		if consts == nil {
			return 0, false
		}
		if def := consts(d.Name); def != nil {
			return EvalInt(def, consts)
		}
	case UnaryOpNode:
		v, ok := EvalInt(d.Expr, consts)
		if !ok {
			return 0, false
		}
		switch d.Op {
		case token.Minus:
			return -v, true
		case token.Plus:
			return v, true
		case token.Not:
			return ^v, true
		}
	case BinaryOpNode:
		l, ok := EvalInt(d.Left, consts)
		if !ok {
			return 0, false
		}
		r, ok := EvalInt(d.Right, consts)
		if !ok || (r == 0 && (d.Op == token.Div || d.Op == token.Mod)) {
			return 0, false
		}
		return foldInt(n, d.Op, l, r)
	}
	return 0, false
}
