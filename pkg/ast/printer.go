package ast

import (
	"fmt"
	"io"
	"strings"
)

// Label is the text shown for n in the tree view.
func (n *Node) Label() string {
	switch d := n.Data.(type) {
	case ProgramNode:
		return "program"
	case DeclBlockNode:
		return "declarations"
	case SectionNode:
		switch n.Type {
		case VarDecl:
			return "var"
		case TypeDecl:
			return "type"
		}
		return "const"
	case RoutineNode:
		if n.Type == FuncDecl {
			return "function " + d.Name
		}
		return "procedure " + d.Name
	case EntryNode:
		return d.Name
	case ParamListNode:
		return "params"
	case ValueNode:
		return "value"
	case FieldInitNode:
		return d.Name + ":"
	case PrimitiveNode:
		return d.Name
	case TypeRefNode:
		return d.Name
	case SubrangeNode:
		return fmt.Sprintf("%d..%d", d.Lower, d.Upper)
	case ArrayNode:
		return "array"
	case RecordNode:
		return "record"
	case BinaryOpNode:
		return d.Op.String()
	case UnaryOpNode:
		return d.Op.String()
	case IdentNode:
		return d.Name
	case IntConstNode:
		return fmt.Sprint(d.Value)
	case FloatConstNode:
		return n.Tok.Raw
	case CharConstNode, StringLiteralNode:
		return n.Tok.Raw
	case RecordAccessNode:
		return "."
	case ArrayIndexNode:
		return "[]"
	case FuncCallNode:
		return "()"
	case BlockNode:
		return "begin"
	case WriteNode:
		if n.Type == WriteLn {
			return "writeln"
		}
		return "write"
	case IfNode:
		return "if"
	case ForNode:
		return "for"
	}
	switch n.Type {
	case To:
		return "to"
	case DownTo:
		return "downto"
	}
	return "?"
}

// Fprint draws the tree rooted at root with box-drawing characters. Each
// child hangs off the end of its parent's label.
func Fprint(w io.Writer, root *Node) error {
	var sb strings.Builder
	printNode(&sb, root, "", true)
	_, err := io.WriteString(w, sb.String())
	return err
}

func printNode(sb *strings.Builder, n *Node, margin string, last bool) {
	label := n.Label()
	connector := "├─"
	if last {
		connector = "└─"
	}
	sb.WriteString(margin + connector + label + "\n")

	bar := "│"
	if last {
		bar = " "
	}
	childMargin := margin + bar + strings.Repeat(" ", len([]rune(label)))
	children := n.Children()
	for i, child := range children {
		printNode(sb, child, childMargin, i == len(children)-1)
	}
}
