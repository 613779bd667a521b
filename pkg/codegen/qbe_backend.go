package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yolomachine/PotatoCompiler/pkg/config"
	"github.com/yolomachine/PotatoCompiler/pkg/ir"
)

// qbeValue is an entry of the evaluation stack while lowering: either an
// immediate or a QBE temporary.
type qbeValue struct {
	val string
	typ ir.Type
}

type qbeBackend struct {
	out       *strings.Builder
	prog      *ir.Program
	stack     []qbeValue
	tempCount int
	formats   map[string]string
}

func NewQBEBackend() Backend { return &qbeBackend{} }

// GenerateIR renders prog as QBE intermediate language with a single
// exported main function.
func (b *qbeBackend) GenerateIR(prog *ir.Program, cfg *config.Config) (string, error) {
	var sb strings.Builder
	b.out, b.prog = &sb, prog
	b.stack, b.tempCount, b.formats = nil, 0, make(map[string]string)

	var body strings.Builder
	b.out = &body
	for _, inst := range prog.Insts {
		if err := b.genInstr(inst); err != nil {
			return "", err
		}
	}

	b.out = &sb
	b.genData()
	b.out.WriteString("\nexport function w $main() {\n@start\n")
	for _, slot := range prog.Slots {
		align := "alloc4"
		if slot.Typ == ir.TypeD {
			align = "alloc8"
		}
		fmt.Fprintf(b.out, "\t%s =l %s %d\n", b.slot(slot.Name), align, slot.Size)
	}
	b.out.WriteString(body.String())
	b.out.WriteString("\tret 0\n}\n")
	return sb.String(), nil
}

func (b *qbeBackend) genData() {
	for _, s := range b.prog.StringList() {
		fmt.Fprintf(b.out, "data $%s = %s\n", qbeName(s[0]), qbeBytes(s[1]))
	}
	for _, name := range sortedKeys(b.formats) {
		fmt.Fprintf(b.out, "data $%s = %s\n", qbeName(name), qbeBytes(b.formats[name]))
	}
}

// qbeBytes renders a zero-terminated data body. Only printable ASCII goes
// into quoted runs; every other byte is written as a number.
func qbeBytes(s string) string {
	var items []string
	start := -1
	flush := func(end int) {
		if start >= 0 {
			items = append(items, `b "`+s[start:end]+`"`)
			start = -1
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= ' ' && c <= '~' && c != '"' && c != '\\' {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
		items = append(items, fmt.Sprintf("b %d", c))
	}
	flush(len(s))
	items = append(items, "b 0")
	return "{ " + strings.Join(items, ", ") + " }"
}

const qbeInputName = "program.ssa"

// qbeFailure wraps an assembler error with the numbered IL it rejected.
func qbeFailure(il, stderr string, err error) error {
	var sb strings.Builder
	for i, line := range strings.Split(strings.TrimSuffix(il, "\n"), "\n") {
		fmt.Fprintf(&sb, "%4d  %s\n", i+1, line)
	}
	if stderr != "" {
		return fmt.Errorf("qbe rejected %s:\n%s%s: %w", qbeInputName, sb.String(), strings.TrimSpace(stderr), err)
	}
	return fmt.Errorf("qbe rejected %s:\n%s%w", qbeInputName, sb.String(), err)
}

// qbeName maps constant names onto the QBE identifier alphabet.
func qbeName(name string) string {
	return strings.NewReplacer("@", "_", ".", "_").Replace(name)
}

func (b *qbeBackend) slot(name string) string { return "%v." + qbeName(name) }

func (b *qbeBackend) push(val string, typ ir.Type) { b.stack = append(b.stack, qbeValue{val, typ}) }

func (b *qbeBackend) pop() qbeValue {
	v := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	return v
}

func (b *qbeBackend) newTemp() string {
	b.tempCount++
	return fmt.Sprintf("%%t.%d", b.tempCount)
}

func (b *qbeBackend) newLabel() string {
	b.tempCount++
	return fmt.Sprintf("@l.%d", b.tempCount)
}

// assign emits "tmp =typ op args" and pushes tmp.
func (b *qbeBackend) assign(typ ir.Type, op string, args ...string) string {
	t := b.newTemp()
	fmt.Fprintf(b.out, "\t%s =%s %s %s\n", t, b.formatType(typ), op, strings.Join(args, ", "))
	return t
}

func (b *qbeBackend) formatType(t ir.Type) string {
	switch t {
	case ir.TypeD:
		return "d"
	case ir.TypePtr:
		return "l"
	}
	return "w"
}

func (b *qbeBackend) genInstr(inst *ir.Instruction) error {
	switch inst.Op {
	case ir.OpPushInt:
		b.push(strconv.FormatInt(inst.Int, 10), ir.TypeW)
	case ir.OpPushFloat:
		b.push("d_"+strconv.FormatFloat(inst.Float, 'g', -1, 64), ir.TypeD)
	case ir.OpPushString:
		b.push("$"+qbeName(inst.Name), ir.TypePtr)
	case ir.OpPushAddr:
		b.push(b.slot(inst.Name), ir.TypePtr)
	case ir.OpPushVar:
		b.push(b.assign(inst.Typ, "load"+b.formatType(inst.Typ), b.slot(inst.Name)), inst.Typ)
	case ir.OpStore:
		val, addr := b.pop(), b.pop()
		fmt.Fprintf(b.out, "\tstore%s %s, %s\n", b.formatType(inst.Typ), val.val, addr.val)
	case ir.OpIntToReal:
		v := b.pop()
		b.push(b.assign(ir.TypeD, "swtof", v.val), ir.TypeD)
	case ir.OpRealToInt:
		v := b.pop()
		b.push(b.assign(ir.TypeW, "dtosi", v.val), ir.TypeW)
	case ir.OpNeg, ir.OpNegF:
		v := b.pop()
		b.push(b.assign(v.typ, "neg", v.val), v.typ)
	case ir.OpNot:
		v := b.pop()
		b.push(b.assign(ir.TypeW, "xor", v.val, "-1"), ir.TypeW)
	case ir.OpLabel:
		fmt.Fprintf(b.out, "@%s\n", inst.Name)
	case ir.OpJmp:
		fmt.Fprintf(b.out, "\tjmp @%s\n%s\n", inst.Name, b.newLabel())
	case ir.OpJz, ir.OpJnz:
		c, next := b.pop(), b.newLabel()
		if inst.Op == ir.OpJz {
			fmt.Fprintf(b.out, "\tjnz %s, %s, @%s\n%s\n", c.val, next, inst.Name, next)
		} else {
			fmt.Fprintf(b.out, "\tjnz %s, @%s, %s\n%s\n", c.val, inst.Name, next, next)
		}
	case ir.OpWrite:
		b.genWrite(inst)
	default:
		if inst.Op.IsCompare() {
			r, l := b.pop(), b.pop()
			flag := b.assign(ir.TypeW, b.compareOp(inst), l.val, r.val)
			// Pascal truth is -1.
			b.push(b.assign(ir.TypeW, "sub", "0", flag), ir.TypeW)
			return nil
		}
		op, ok := qbeArith[inst.Op]
		if !ok {
			return fmt.Errorf("qbe: unsupported operation %s", inst.Op)
		}
		r, l := b.pop(), b.pop()
		b.push(b.assign(inst.Typ, op, l.val, r.val), inst.Typ)
	}
	return nil
}

var qbeArith = map[ir.Op]string{
	ir.OpAdd: "add", ir.OpSub: "sub", ir.OpMul: "mul", ir.OpDiv: "div", ir.OpRem: "rem",
	ir.OpAnd: "and", ir.OpOr: "or", ir.OpXor: "xor", ir.OpShl: "shl", ir.OpShr: "shr",
	ir.OpAddF: "add", ir.OpSubF: "sub", ir.OpMulF: "mul", ir.OpDivF: "div",
}

func (b *qbeBackend) compareOp(inst *ir.Instruction) string {
	float := inst.Typ == ir.TypeD
	suffix := b.formatType(inst.Typ)
	switch inst.Op {
	case ir.OpCEq:
		return "ceq" + suffix
	case ir.OpCNeq:
		return "cne" + suffix
	}
	name := map[ir.Op]string{ir.OpCLt: "lt", ir.OpCGt: "gt", ir.OpCLe: "le", ir.OpCGe: "ge"}[inst.Op]
	if float {
		return "c" + name + suffix
	}
	return "cs" + name + suffix
}

// genWrite calls printf with a format built from the argument types. The
// first argument is on top of the stack.
func (b *qbeBackend) genWrite(inst *ir.Instruction) {
	name := formatName(inst.Args, inst.Newline)
	b.formats[name] = formatString(inst.Args, inst.Newline)

	args := []string{"l $" + qbeName(name), "..."}
	for range inst.Args {
		v := b.pop()
		args = append(args, b.formatType(v.typ)+" "+v.val)
	}
	fmt.Fprintf(b.out, "\tcall $printf(%s)\n", strings.Join(args, ", "))
}
