package codegen

import (
	"github.com/yolomachine/PotatoCompiler/pkg/ast"
	"github.com/yolomachine/PotatoCompiler/pkg/config"
	"github.com/yolomachine/PotatoCompiler/pkg/ir"
	"github.com/yolomachine/PotatoCompiler/pkg/scope"
	"github.com/yolomachine/PotatoCompiler/pkg/token"
	"github.com/yolomachine/PotatoCompiler/pkg/util"
)

// Context lowers the main block of a validated program to stack-machine IR.
// Routines are parsed and checked but not lowered.
type Context struct {
	prog *ir.Program
	cfg  *config.Config
	fold bool
}

func NewContext(cfg *config.Config) *Context {
	return &Context{
		prog: ir.NewProgram(cfg.WordSize),
		cfg:  cfg,
		fold: cfg.IsFeatureEnabled(config.FeatFoldConstants),
	}
}

// GenerateIR lowers root, a Program node. Constructs outside the supported
// subset fail with a positioned *util.Error.
func (ctx *Context) GenerateIR(root *ast.Node) (prog *ir.Program, err error) {
	defer util.Catch(&err)
	d := root.Data.(ast.ProgramNode)
	ctx.layout(d.Scopes)
	ctx.genInitializers(d.Scopes)
	if d.Body != nil {
		ctx.genStatement(d.Body)
	}
	return ctx.prog, nil
}

// layout assigns a stack slot to every variable and constant of the
// outermost scope, in declaration order.
func (ctx *Context) layout(scopes *ast.Scope) {
	for _, sym := range scopes.Symbols() {
		switch sym.Kind {
		case scope.Var, scope.Const:
			ctx.prog.AddSlot(slotName(sym.Name), irType(ast.KindOf(sym.Type)), sizeOf(sym.Type))
		case scope.Procedure, scope.Function:
			util.Warn(ctx.cfg, config.WarnNotLowered, sym.Node.Tok, "routine %q is not lowered", sym.Name)
		}
	}
}

func (ctx *Context) genInitializers(scopes *ast.Scope) {
	for _, sym := range scopes.Symbols() {
		if (sym.Kind != scope.Var && sym.Kind != scope.Const) || sym.Value == nil {
			continue
		}
		slot := ctx.prog.Slot(slotName(sym.Name))
		if slot.Typ == ir.TypeNone {
			util.Warn(ctx.cfg, config.WarnNotLowered, sym.Node.Tok, "initializer of %q is not lowered", sym.Name)
			continue
		}
		ctx.emit(&ir.Instruction{Op: ir.OpPushAddr, Name: slot.Name})
		ctx.genExprAs(ctx.foldExpr(sym.Value.Data.(ast.ValueNode).Items[0]), slot.Typ)
		ctx.emit(&ir.Instruction{Op: ir.OpStore, Typ: slot.Typ})
	}
}

func slotName(name string) string { return scope.Key(name) }

func irType(k ast.TypeKind) ir.Type {
	switch k {
	case ast.TypeInteger:
		return ir.TypeW
	case ast.TypeChar:
		return ir.TypeB
	case ast.TypeReal:
		return ir.TypeD
	}
	return ir.TypeNone
}

// sizeOf returns the storage size of a type specification in bytes.
func sizeOf(typeSpec *ast.Node) int64 {
	typeSpec = ast.Resolve(typeSpec)
	if typeSpec == nil {
		return 0
	}
	switch d := typeSpec.Data.(type) {
	case ast.PrimitiveNode:
		if d.Kind == ast.TypeReal {
			return 8
		}
	case ast.ArrayNode:
		rng := ast.Resolve(d.Range).Data.(ast.SubrangeNode)
		return (rng.Upper - rng.Lower + 1) * sizeOf(d.Elem)
	case ast.RecordNode:
		var size int64
		for _, field := range d.Fields {
			size += sizeOf(field.Data.(ast.EntryNode).TypeSpec)
		}
		return size
	}
	return 4
}

func (ctx *Context) emit(inst *ir.Instruction) { ctx.prog.Emit(inst) }

func (ctx *Context) label(name string) { ctx.emit(&ir.Instruction{Op: ir.OpLabel, Name: name}) }

func (ctx *Context) foldExpr(n *ast.Node) *ast.Node {
	if ctx.fold {
		return ast.FoldConstants(n)
	}
	return n
}

func (ctx *Context) genStatement(node *ast.Node) {
	switch d := node.Data.(type) {
	case ast.BlockNode:
		for _, stmt := range d.Stmts {
			ctx.genStatement(stmt)
		}
	case ast.BinaryOpNode:
		if d.Op != token.Assign {
			util.Throw(node.Tok, "Illegal expression")
		}
		ctx.genAssign(d.Left, ctx.foldExpr(d.Right))
	case ast.IfNode:
		ctx.genIf(d)
	case ast.ForNode:
		ctx.genFor(node, d)
	case ast.WriteNode:
		ctx.genWrite(node, d)
	case ast.FuncCallNode:
		util.Throw(node.Tok, "Calls are not supported by the code generator")
	default:
		util.Throw(node.Tok, "Statement is not supported by the code generator")
	}
}

func (ctx *Context) varSlot(n *ast.Node) *ir.Slot {
	if n.Type != ast.Ident {
		util.Throw(n.Tok, "Only plain variables are supported by the code generator")
	}
	slot := ctx.prog.Slot(slotName(n.Name()))
	if slot == nil {
		util.Throw(n.Tok, "Identifier %q has no storage in the generated routine", n.Name())
	}
	if slot.Typ == ir.TypeNone {
		util.Throw(n.Tok, "Values of type %q are not supported by the code generator", n.Typ.String())
	}
	return slot
}

// genAssign pushes the target address before the value.
func (ctx *Context) genAssign(target, value *ast.Node) {
	slot := ctx.varSlot(target)
	ctx.emit(&ir.Instruction{Op: ir.OpPushAddr, Name: slot.Name})
	ctx.genExprAs(value, slot.Typ)
	ctx.emit(&ir.Instruction{Op: ir.OpStore, Typ: slot.Typ})
}

func (ctx *Context) genIf(d ast.IfNode) {
	labels := ctx.prog.NewLabels("else_branch", "end_if")
	ctx.genExprAs(ctx.foldExpr(d.Cond), ir.TypeW)
	ctx.emit(&ir.Instruction{Op: ir.OpJz, Name: labels[0]})
	ctx.genStatement(d.Then)
	ctx.emit(&ir.Instruction{Op: ir.OpJmp, Name: labels[1]})
	ctx.label(labels[0])
	ctx.genStatement(d.Else)
	ctx.label(labels[1])
}

// genFor evaluates the final value once into a hidden slot and tests the
// control variable against it before every iteration.
func (ctx *Context) genFor(node *ast.Node, d ast.ForNode) {
	if !ctx.cfg.IsFeatureEnabled(config.FeatForLoops) {
		util.Warn(ctx.cfg, config.WarnNotLowered, node.Tok, "for statement is not lowered")
		return
	}
	ctrl := ctx.varSlot(d.Var)
	labels := ctx.prog.NewLabels("for_cond", "for_end", ".bound")
	bound := ctx.prog.AddSlot(labels[2], ctrl.Typ, ctrl.Typ.Size())

	exit, step := ir.OpCGt, ir.OpAdd
	if d.Dir.Type == ast.DownTo {
		exit, step = ir.OpCLt, ir.OpSub
	}

	ctx.emit(&ir.Instruction{Op: ir.OpPushAddr, Name: ctrl.Name})
	ctx.genExprAs(ctx.foldExpr(d.Init), ctrl.Typ)
	ctx.emit(&ir.Instruction{Op: ir.OpStore, Typ: ctrl.Typ})
	ctx.emit(&ir.Instruction{Op: ir.OpPushAddr, Name: bound.Name})
	ctx.genExprAs(ctx.foldExpr(d.Final), bound.Typ)
	ctx.emit(&ir.Instruction{Op: ir.OpStore, Typ: bound.Typ})

	ctx.label(labels[0])
	ctx.emit(&ir.Instruction{Op: ir.OpPushVar, Name: ctrl.Name, Typ: ctrl.Typ})
	ctx.emit(&ir.Instruction{Op: ir.OpPushVar, Name: bound.Name, Typ: bound.Typ})
	ctx.emit(&ir.Instruction{Op: exit, Typ: ir.TypeW})
	ctx.emit(&ir.Instruction{Op: ir.OpJnz, Name: labels[1]})

	ctx.genStatement(d.Body)

	ctx.emit(&ir.Instruction{Op: ir.OpPushAddr, Name: ctrl.Name})
	ctx.emit(&ir.Instruction{Op: ir.OpPushVar, Name: ctrl.Name, Typ: ctrl.Typ})
	ctx.emit(&ir.Instruction{Op: ir.OpPushInt, Int: 1})
	ctx.emit(&ir.Instruction{Op: step, Typ: ir.TypeW})
	ctx.emit(&ir.Instruction{Op: ir.OpStore, Typ: ctrl.Typ})
	ctx.emit(&ir.Instruction{Op: ir.OpJmp, Name: labels[0]})
	ctx.label(labels[1])
}

// genWrite pushes the arguments last to first so that the first one ends
// up on top of the stack.
func (ctx *Context) genWrite(node *ast.Node, d ast.WriteNode) {
	types := make([]ir.Type, len(d.Args))
	for i := len(d.Args) - 1; i >= 0; i-- {
		types[i] = ctx.genExpr(ctx.foldExpr(d.Args[i]))
	}
	ctx.emit(&ir.Instruction{Op: ir.OpWrite, Args: types, Newline: node.Type == ast.WriteLn})
}

func (ctx *Context) genExprAs(n *ast.Node, want ir.Type) {
	got := ctx.genExpr(n)
	switch {
	case want == ir.TypeD && got != ir.TypeD:
		ctx.emit(&ir.Instruction{Op: ir.OpIntToReal})
	case want != ir.TypeD && got == ir.TypeD:
		ctx.emit(&ir.Instruction{Op: ir.OpRealToInt})
	}
}

// genExpr emits n in post-order and returns the type of the pushed value.
func (ctx *Context) genExpr(n *ast.Node) ir.Type {
	switch d := n.Data.(type) {
	case ast.IntConstNode:
		ctx.emit(&ir.Instruction{Op: ir.OpPushInt, Int: d.Value})
		return ir.TypeW
	case ast.CharConstNode:
		ctx.emit(&ir.Instruction{Op: ir.OpPushInt, Int: int64(d.Value)})
		return ir.TypeB
	case ast.FloatConstNode:
		ctx.emit(&ir.Instruction{Op: ir.OpPushFloat, Float: d.Value})
		return ir.TypeD
	case ast.StringLiteralNode:
		ctx.emit(&ir.Instruction{Op: ir.OpPushString, Name: ctx.prog.AddString(d.Value)})
		return ir.TypePtr
	case ast.IdentNode:
		slot := ctx.varSlot(n)
		ctx.emit(&ir.Instruction{Op: ir.OpPushVar, Name: slot.Name, Typ: slot.Typ})
		return slot.Typ
	case ast.UnaryOpNode:
		t := ctx.genExpr(d.Expr)
		switch {
		case d.Op == token.Minus && t == ir.TypeD:
			ctx.emit(&ir.Instruction{Op: ir.OpNegF, Typ: t})
		case d.Op == token.Minus:
			ctx.emit(&ir.Instruction{Op: ir.OpNeg, Typ: ir.TypeW})
		case d.Op == token.Not:
			ctx.emit(&ir.Instruction{Op: ir.OpNot, Typ: ir.TypeW})
		}
		return t
	case ast.BinaryOpNode:
		return ctx.genBinary(n, d)
	case ast.FuncCallNode:
		util.Throw(n.Tok, "Calls are not supported by the code generator")
	}
	util.Throw(n.Tok, "Expression is not supported by the code generator")
	return ir.TypeNone
}

var intOps = map[token.Type]ir.Op{
	token.Plus: ir.OpAdd, token.Minus: ir.OpSub, token.Star: ir.OpMul,
	token.Div: ir.OpDiv, token.Mod: ir.OpRem,
	token.And: ir.OpAnd, token.Or: ir.OpOr, token.Xor: ir.OpXor,
	token.Shl: ir.OpShl, token.Shr: ir.OpShr,
}

var floatOps = map[token.Type]ir.Op{
	token.Plus: ir.OpAddF, token.Minus: ir.OpSubF, token.Star: ir.OpMulF, token.Slash: ir.OpDivF,
}

var compareOps = map[token.Type]ir.Op{
	token.Equal: ir.OpCEq, token.NotEqual: ir.OpCNeq,
	token.Less: ir.OpCLt, token.Greater: ir.OpCGt,
	token.LessEqual: ir.OpCLe, token.GreaterEqual: ir.OpCGe,
}

func (ctx *Context) genBinary(n *ast.Node, d ast.BinaryOpNode) ir.Type {
	operand := ir.TypeW
	if d.Left.Typ == ast.TypeReal || d.Right.Typ == ast.TypeReal || d.Op == token.Slash {
		operand = ir.TypeD
	}
	ctx.genExprAs(d.Left, operand)
	ctx.genExprAs(d.Right, operand)

	if op, ok := compareOps[d.Op]; ok {
		ctx.emit(&ir.Instruction{Op: op, Typ: operand})
		return ir.TypeW
	}
	ops := intOps
	if operand == ir.TypeD {
		ops = floatOps
	}
	op, ok := ops[d.Op]
	if !ok {
		util.Throw(n.Tok, "Operator %q is not supported by the code generator", n.Tok.Raw)
	}
	ctx.emit(&ir.Instruction{Op: op, Typ: operand})
	return operand
}
