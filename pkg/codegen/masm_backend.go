package codegen

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/yolomachine/PotatoCompiler/pkg/config"
	"github.com/yolomachine/PotatoCompiler/pkg/ir"
)

// masmBackend emits 32-bit MASM for the masm32 SDK. The IR evaluation
// stack is the machine stack; eax and ebx serve as scratch registers and
// xmm0/xmm1 for reals.
type masmBackend struct {
	out    *strings.Builder
	consts map[string]string // name -> "dq ..." or "db ..."
}

func NewMasmBackend() Backend { return &masmBackend{} }

// invertedSet maps a comparison to the set instruction of its negation.
// The flag is then turned into -1 for true and 0 for false by "sub al, 1".
var invertedSet = map[ir.Op]string{
	ir.OpCEq: "setne", ir.OpCNeq: "sete",
	ir.OpCLt: "setge", ir.OpCGt: "setle",
	ir.OpCLe: "setg", ir.OpCGe: "setl",
}

// comisd sets the unsigned condition flags.
var invertedSetF = map[ir.Op]string{
	ir.OpCEq: "setne", ir.OpCNeq: "sete",
	ir.OpCLt: "setae", ir.OpCGt: "setbe",
	ir.OpCLe: "seta", ir.OpCGe: "setb",
}

var masmArith = map[ir.Op]string{
	ir.OpAdd: "add eax, ebx", ir.OpSub: "sub eax, ebx", ir.OpMul: "imul eax, ebx",
	ir.OpAnd: "and eax, ebx", ir.OpOr: "or eax, ebx", ir.OpXor: "xor eax, ebx",
}

var masmArithF = map[ir.Op]string{
	ir.OpAddF: "addsd", ir.OpSubF: "subsd", ir.OpMulF: "mulsd", ir.OpDivF: "divsd",
}

// GenerateIR lists the stack-machine program, one operation per line.
func (b *masmBackend) GenerateIR(prog *ir.Program, cfg *config.Config) (string, error) {
	var sb strings.Builder
	for _, slot := range prog.Slots {
		fmt.Fprintf(&sb, "; %s: %d bytes at [ebp - %d]\n", slot.Name, slot.Size, slot.Offset)
	}
	for _, inst := range prog.Insts {
		if inst.Op != ir.OpLabel {
			sb.WriteString("\t")
		}
		sb.WriteString(inst.String() + "\n")
	}
	return sb.String(), nil
}

func (b *masmBackend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	var code strings.Builder
	b.out, b.consts = &code, make(map[string]string)

	b.emit("push ebp")
	b.emit("mov ebp, esp")
	if prog.FrameSize > 0 {
		b.emit("sub esp, %d", prog.FrameSize)
	}
	for _, inst := range prog.Insts {
		if err := b.genInstr(prog, inst); err != nil {
			return nil, err
		}
	}
	for _, s := range prog.StringList() {
		b.consts[s[0]] = "db " + byteList(s[1])
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "include %s\n\n.xmm\n", cfg.MasmInclude)
	if len(b.consts) > 0 {
		buf.WriteString(".const\n")
		for _, name := range sortedKeys(b.consts) {
			fmt.Fprintf(&buf, "%s %s\n", name, b.consts[name])
		}
	}
	buf.WriteString(".code\n__@function0:\n")
	buf.WriteString(code.String())
	buf.WriteString("\tleave\n\tret 0\n\nstart:\n\tcall __@function0\n\texit\nend start\n")
	return &buf, nil
}

func (b *masmBackend) emit(format string, args ...interface{}) {
	fmt.Fprintf(b.out, "\t"+format+"\n", args...)
}

// byteList renders s as a zero-terminated list of byte codes.
func byteList(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		fmt.Fprintf(&sb, "%d, ", s[i])
	}
	sb.WriteString("0")
	return sb.String()
}

func floatConst(v float64) (name, decl string) {
	bits := math.Float64bits(v)
	return fmt.Sprintf("__@flt%016X", bits), fmt.Sprintf("dq 0%016Xh", bits)
}

func (b *masmBackend) addr(prog *ir.Program, name string) (string, error) {
	slot := prog.Slot(name)
	if slot == nil {
		return "", fmt.Errorf("masm: no stack slot for %q", name)
	}
	return fmt.Sprintf("[ebp - %d]", slot.Offset), nil
}

func (b *masmBackend) popReals() {
	b.emit("movsd xmm1, qword ptr [esp]")
	b.emit("add esp, 8")
	b.emit("movsd xmm0, qword ptr [esp]")
	b.emit("add esp, 8")
}

func (b *masmBackend) genInstr(prog *ir.Program, inst *ir.Instruction) error {
	switch inst.Op {
	case ir.OpPushInt:
		b.emit("push %d", inst.Int)
	case ir.OpPushFloat:
		name, decl := floatConst(inst.Float)
		b.consts[name] = decl
		b.emit("push dword ptr [%s + 4]", name)
		b.emit("push dword ptr [%s]", name)
	case ir.OpPushString:
		b.emit("push offset %s", inst.Name)
	case ir.OpPushVar, ir.OpPushAddr:
		a, err := b.addr(prog, inst.Name)
		if err != nil {
			return err
		}
		b.emit("lea eax, dword ptr %s", a)
		switch {
		case inst.Op == ir.OpPushAddr:
			b.emit("push eax")
		case inst.Typ == ir.TypeD:
			b.emit("push dword ptr [eax + 4]")
			b.emit("push dword ptr [eax]")
		default:
			b.emit("push dword ptr [eax]")
		}
	case ir.OpStore:
		b.emit("pop eax")
		if inst.Typ == ir.TypeD {
			b.emit("pop edx")
			b.emit("pop ebx")
			b.emit("mov dword ptr [ebx], eax")
			b.emit("mov dword ptr [ebx + 4], edx")
			break
		}
		b.emit("pop ebx")
		b.emit("mov dword ptr [ebx], eax")
	case ir.OpIntToReal:
		b.emit("pop eax")
		b.emit("cvtsi2sd xmm0, eax")
		b.emit("sub esp, 8")
		b.emit("movsd qword ptr [esp], xmm0")
	case ir.OpRealToInt:
		b.emit("movsd xmm0, qword ptr [esp]")
		b.emit("add esp, 8")
		b.emit("cvttsd2si eax, xmm0")
		b.emit("push eax")
	case ir.OpNeg, ir.OpNot:
		b.emit("pop eax")
		b.emit("%s eax", inst.Op)
		b.emit("push eax")
	case ir.OpNegF:
		b.emit("xor dword ptr [esp + 4], 80000000h")
	case ir.OpLabel:
		fmt.Fprintf(b.out, "%s:\n", inst.Name)
	case ir.OpJmp:
		b.emit("jmp %s", inst.Name)
	case ir.OpJz, ir.OpJnz:
		b.emit("pop eax")
		b.emit("test eax, eax")
		b.emit("%s %s", inst.Op, inst.Name)
	case ir.OpWrite:
		b.genWrite(inst)
	default:
		return b.genOperator(inst)
	}
	return nil
}

func (b *masmBackend) genOperator(inst *ir.Instruction) error {
	if inst.Op.IsCompare() {
		if inst.Typ == ir.TypeD {
			b.popReals()
			b.emit("comisd xmm0, xmm1")
			b.emit("%s al", invertedSetF[inst.Op])
		} else {
			b.emit("pop ebx")
			b.emit("pop eax")
			b.emit("cmp eax, ebx")
			b.emit("%s al", invertedSet[inst.Op])
		}
		b.emit("sub al, 1")
		b.emit("movsx eax, al")
		b.emit("push eax")
		return nil
	}

	if op, ok := masmArithF[inst.Op]; ok {
		b.popReals()
		b.emit("%s xmm0, xmm1", op)
		b.emit("sub esp, 8")
		b.emit("movsd qword ptr [esp], xmm0")
		return nil
	}

	b.emit("pop ebx")
	b.emit("pop eax")
	switch inst.Op {
	case ir.OpDiv, ir.OpRem:
		b.emit("cdq")
		b.emit("idiv ebx")
		if inst.Op == ir.OpRem {
			b.emit("mov eax, edx")
		}
	case ir.OpShl, ir.OpShr:
		b.emit("mov ecx, ebx")
		b.emit("%s eax, cl", inst.Op)
	default:
		op, ok := masmArith[inst.Op]
		if !ok {
			return fmt.Errorf("masm: unsupported operation %s", inst.Op)
		}
		b.emit("%s", op)
	}
	b.emit("push eax")
	return nil
}

// genWrite calls crt_printf. The arguments are already on the stack with
// the first one on top.
func (b *masmBackend) genWrite(inst *ir.Instruction) {
	name := formatName(inst.Args, inst.Newline)
	b.consts[name] = "db " + byteList(formatString(inst.Args, inst.Newline))

	size := int64(4)
	for _, a := range inst.Args {
		size += a.Size()
	}
	b.emit("push offset %s", name)
	b.emit("call crt_printf")
	b.emit("add esp, %d", size)
}
