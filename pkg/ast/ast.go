// Package ast defines the syntax tree built by the parser.
package ast

import (
	"github.com/yolomachine/PotatoCompiler/pkg/scope"
	"github.com/yolomachine/PotatoCompiler/pkg/token"
)

// NodeType defines the kind of a node in the tree
type NodeType int

const (
	Program NodeType = iota
	DeclBlock

	// Declaration sections and routines
	VarDecl
	TypeDecl
	ConstDecl
	ProcDecl
	FuncDecl

	// Declared entries
	VarIdent
	TypeIdent
	ConstIdent
	ParamList
	Value
	FieldInit

	// Type specifications
	PrimitiveType
	TypeRef
	Subrange
	Array
	Record

	// Expressions
	BinaryOp
	UnaryOp
	Ident
	IntConst
	FloatConst
	CharConst
	StringLiteral
	RecordAccess
	ArrayIndex
	FuncCall

	// Statements
	Block
	Write
	WriteLn
	If
	For
	To
	DownTo
)

// TypeKind is the inferred type class of an expression.
type TypeKind int

const (
	TypeUnknown TypeKind = iota
	TypeInteger
	TypeReal
	TypeChar
	TypeString
	TypeArray
	TypeRecord
	TypeProcedure
)

var typeKindNames = [...]string{"Unknown", "Integer", "Real", "Char", "String", "Array", "Record", "Procedure"}

func (k TypeKind) String() string { return typeKindNames[k] }

// IsScalar reports whether values of the kind reduce to a machine scalar.
func (k TypeKind) IsScalar() bool { return k == TypeInteger || k == TypeReal || k == TypeChar }

// Scope is the symbol table stack as stored on program and routine nodes.
type Scope = scope.Stack[*Node]

// Symbol is a binding in a Scope.
type Symbol = scope.Symbol[*Node]

// Node represents a node in the syntax tree
type Node struct {
	Type   NodeType
	Tok    token.Token
	Parent *Node
	Data   interface{}
	Typ    TypeKind // Set during validation
}

type ProgramNode struct {
	Name, Decls, Body *Node
	Scopes            *Scope
}
type DeclBlockNode struct{ Sections []*Node }
type SectionNode struct{ Entries []*Node }
type RoutineNode struct {
	Name                        string
	Params, Result, Decls, Body *Node
	Scopes                      *Scope
}
type EntryNode struct {
	Name            string
	TypeSpec, Value *Node
}
type ParamListNode struct{ Params []*Node }
type ValueNode struct{ Items []*Node }
type FieldInitNode struct {
	Name  string
	Value *Node
}
type PrimitiveNode struct {
	Kind TypeKind
	Name string
}
type TypeRefNode struct {
	Name   string
	Target *Node // the aliased type; not a child
}
type SubrangeNode struct{ Lower, Upper int64 }
type ArrayNode struct{ Range, Elem *Node }
type RecordNode struct {
	Fields []*Node
	Frame  *scope.Frame[*Node]
}
type BinaryOpNode struct {
	Op          token.Type
	Left, Right *Node
}
type UnaryOpNode struct {
	Op   token.Type
	Expr *Node
}
type IdentNode struct {
	Name         string
	IsAssignment bool
}
type IntConstNode struct{ Value int64 }
type FloatConstNode struct{ Value float64 }
type CharConstNode struct{ Value byte }
type StringLiteralNode struct{ Value string }
type RecordAccessNode struct{ Record, Field *Node }
type ArrayIndexNode struct{ Array, Index *Node }
type FuncCallNode struct {
	Func *Node
	Args []*Node
}
type BlockNode struct{ Stmts []*Node }
type WriteNode struct{ Args []*Node }
type IfNode struct{ Cond, Then, Else *Node }
type ForNode struct{ Var, Init, Dir, Final, Body *Node }

func newNode(tok token.Token, nodeType NodeType, data interface{}, children ...*Node) *Node {
	node := &Node{Type: nodeType, Tok: tok, Data: data}
	for _, child := range children {
		if child != nil {
			child.Parent = node
		}
	}
	return node
}

func NewProgram(tok token.Token, name, decls, body *Node, scopes *Scope) *Node {
	return newNode(tok, Program, ProgramNode{Name: name, Decls: decls, Body: body, Scopes: scopes}, name, decls, body)
}
func NewDeclBlock(tok token.Token, sections []*Node) *Node {
	return newNode(tok, DeclBlock, DeclBlockNode{Sections: sections}, sections...)
}
func NewSection(tok token.Token, nodeType NodeType, entries []*Node) *Node {
	return newNode(tok, nodeType, SectionNode{Entries: entries}, entries...)
}
func NewRoutine(tok token.Token, nodeType NodeType, name string) *Node {
	return newNode(tok, nodeType, RoutineNode{Name: name})
}
func NewEntry(tok token.Token, nodeType NodeType, name string, typeSpec *Node) *Node {
	return newNode(tok, nodeType, EntryNode{Name: name, TypeSpec: typeSpec}, typeSpec)
}
func NewParamList(tok token.Token, params []*Node) *Node {
	return newNode(tok, ParamList, ParamListNode{Params: params}, params...)
}
func NewValue(tok token.Token, items []*Node) *Node {
	return newNode(tok, Value, ValueNode{Items: items}, items...)
}
func NewFieldInit(tok token.Token, name string, value *Node) *Node {
	return newNode(tok, FieldInit, FieldInitNode{Name: name, Value: value}, value)
}
func NewPrimitive(tok token.Token, kind TypeKind, name string) *Node {
	return newNode(tok, PrimitiveType, PrimitiveNode{Kind: kind, Name: name})
}
func NewTypeRef(tok token.Token, name string, target *Node) *Node {
	return newNode(tok, TypeRef, TypeRefNode{Name: name, Target: target})
}
func NewSubrange(tok token.Token, lower, upper int64) *Node {
	return newNode(tok, Subrange, SubrangeNode{Lower: lower, Upper: upper})
}
func NewArray(tok token.Token, rng, elem *Node) *Node {
	return newNode(tok, Array, ArrayNode{Range: rng, Elem: elem}, rng, elem)
}
func NewRecord(tok token.Token, fields []*Node, frame *scope.Frame[*Node]) *Node {
	return newNode(tok, Record, RecordNode{Fields: fields, Frame: frame}, fields...)
}
func NewBinaryOp(tok token.Token, op token.Type, left, right *Node) *Node {
	return newNode(tok, BinaryOp, BinaryOpNode{Op: op, Left: left, Right: right}, left, right)
}
func NewUnaryOp(tok token.Token, op token.Type, expr *Node) *Node {
	return newNode(tok, UnaryOp, UnaryOpNode{Op: op, Expr: expr}, expr)
}
func NewIdent(tok token.Token, name string) *Node {
	return newNode(tok, Ident, IdentNode{Name: name})
}
func NewIntConst(tok token.Token, value int64) *Node {
	return newNode(tok, IntConst, IntConstNode{Value: value})
}
func NewFloatConst(tok token.Token, value float64) *Node {
	return newNode(tok, FloatConst, FloatConstNode{Value: value})
}
func NewCharConst(tok token.Token, value byte) *Node {
	return newNode(tok, CharConst, CharConstNode{Value: value})
}
func NewStringLiteral(tok token.Token, value string) *Node {
	return newNode(tok, StringLiteral, StringLiteralNode{Value: value})
}
func NewRecordAccess(tok token.Token, record, field *Node) *Node {
	return newNode(tok, RecordAccess, RecordAccessNode{Record: record, Field: field}, record, field)
}
func NewArrayIndex(tok token.Token, array, index *Node) *Node {
	return newNode(tok, ArrayIndex, ArrayIndexNode{Array: array, Index: index}, array, index)
}
func NewFuncCall(tok token.Token, fn *Node, args []*Node) *Node {
	node := newNode(tok, FuncCall, FuncCallNode{Func: fn, Args: args}, fn)
	for _, arg := range args {
		arg.Parent = node
	}
	return node
}
func NewBlock(tok token.Token, stmts []*Node) *Node {
	return newNode(tok, Block, BlockNode{Stmts: stmts}, stmts...)
}
func NewWrite(tok token.Token, newline bool, args []*Node) *Node {
	nodeType := Write
	if newline {
		nodeType = WriteLn
	}
	return newNode(tok, nodeType, WriteNode{Args: args}, args...)
}
func NewIf(tok token.Token, cond, then, els *Node) *Node {
	return newNode(tok, If, IfNode{Cond: cond, Then: then, Else: els}, cond, then, els)
}
func NewFor(tok token.Token, v, init, dir, final, body *Node) *Node {
	return newNode(tok, For, ForNode{Var: v, Init: init, Dir: dir, Final: final, Body: body}, v, init, dir, final, body)
}
func NewDirection(tok token.Token, downto bool) *Node {
	if downto {
		return newNode(tok, DownTo, nil)
	}
	return newNode(tok, To, nil)
}

// SetRoutine fills a routine node created ahead of its body so that the
// routine can refer to itself.
func (n *Node) SetRoutine(params, result, decls, body *Node, scopes *Scope) {
	d := n.Data.(RoutineNode)
	d.Params, d.Result, d.Decls, d.Body, d.Scopes = params, result, decls, body, scopes
	n.Data = d
	for _, child := range []*Node{params, result, decls, body} {
		if child != nil {
			child.Parent = n
		}
	}
}

// SetValue attaches an initializer to a declared entry.
func (n *Node) SetValue(value *Node) {
	d := n.Data.(EntryNode)
	d.Value = value
	n.Data = d
	value.Parent = n
}

// MarkAssignment flags an identifier as the target of an assignment.
func (n *Node) MarkAssignment() {
	d := n.Data.(IdentNode)
	d.IsAssignment = true
	n.Data = d
}

// IsAssignment reports whether n is an assignment statement.
func (n *Node) IsAssignment() bool {
	d, ok := n.Data.(BinaryOpNode)
	return ok && d.Op == token.Assign
}

// Name returns the identifier carried by identifier-like nodes.
func (n *Node) Name() string {
	switch d := n.Data.(type) {
	case IdentNode:
		return d.Name
	case EntryNode:
		return d.Name
	case RoutineNode:
		return d.Name
	case FieldInitNode:
		return d.Name
	case TypeRefNode:
		return d.Name
	case PrimitiveNode:
		return d.Name
	}
	return ""
}

func appendNonNil(list []*Node, nodes ...*Node) []*Node {
	for _, n := range nodes {
		if n != nil {
			list = append(list, n)
		}
	}
	return list
}

// Children returns the ordered child list of n.
func (n *Node) Children() []*Node {
	switch d := n.Data.(type) {
	case ProgramNode:
		return appendNonNil(nil, d.Name, d.Decls, d.Body)
	case DeclBlockNode:
		return d.Sections
	case SectionNode:
		return d.Entries
	case RoutineNode:
		return appendNonNil(nil, d.Params, d.Result, d.Decls, d.Body)
	case EntryNode:
		return appendNonNil(nil, d.TypeSpec, d.Value)
	case ParamListNode:
		return d.Params
	case ValueNode:
		return d.Items
	case FieldInitNode:
		return appendNonNil(nil, d.Value)
	case ArrayNode:
		return appendNonNil(nil, d.Range, d.Elem)
	case RecordNode:
		return d.Fields
	case BinaryOpNode:
		return appendNonNil(nil, d.Left, d.Right)
	case UnaryOpNode:
		return appendNonNil(nil, d.Expr)
	case RecordAccessNode:
		return appendNonNil(nil, d.Record, d.Field)
	case ArrayIndexNode:
		return appendNonNil(nil, d.Array, d.Index)
	case FuncCallNode:
		return appendNonNil([]*Node{d.Func}, d.Args...)
	case BlockNode:
		return d.Stmts
	case WriteNode:
		return d.Args
	case IfNode:
		return appendNonNil(nil, d.Cond, d.Then, d.Else)
	case ForNode:
		return appendNonNil(nil, d.Var, d.Init, d.Dir, d.Final, d.Body)
	}
	return nil
}

// Resolve follows alias references down to a concrete type specification.
func Resolve(typeSpec *Node) *Node {
	for typeSpec != nil && typeSpec.Type == TypeRef {
		typeSpec = typeSpec.Data.(TypeRefNode).Target
	}
	return typeSpec
}

// KindOf reduces a type specification to its type class. Subranges are
// integers.
func KindOf(typeSpec *Node) TypeKind {
	typeSpec = Resolve(typeSpec)
	if typeSpec == nil {
		return TypeProcedure
	}
	switch typeSpec.Type {
	case PrimitiveType:
		return typeSpec.Data.(PrimitiveNode).Kind
	case Subrange:
		return TypeInteger
	case Array:
		return TypeArray
	case Record:
		return TypeRecord
	}
	return TypeUnknown
}
