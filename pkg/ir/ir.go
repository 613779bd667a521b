package ir

import (
	"fmt"
	"sort"
)

// Op is a stack-machine operation. Operands are popped from and results
// pushed onto an evaluation stack.
type Op int

const (
	OpPushInt Op = iota
	OpPushFloat
	OpPushString
	OpPushVar
	OpPushAddr
	OpStore
	OpIntToReal
	OpRealToInt
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpAddF
	OpSubF
	OpMulF
	OpDivF
	OpCEq
	OpCNeq
	OpCLt
	OpCGt
	OpCLe
	OpCGe
	OpNeg
	OpNegF
	OpNot
	OpLabel
	OpJmp
	OpJz
	OpJnz
	OpWrite
)

var opNames = [...]string{
	OpPushInt: "pushint", OpPushFloat: "pushfloat", OpPushString: "pushstr", OpPushVar: "pushvar",
	OpPushAddr: "pushaddr", OpStore: "store", OpIntToReal: "itof", OpRealToInt: "ftoi",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpRem: "rem",
	OpAnd: "and", OpOr: "or", OpXor: "xor", OpShl: "shl", OpShr: "shr",
	OpAddF: "addf", OpSubF: "subf", OpMulF: "mulf", OpDivF: "divf",
	OpCEq: "ceq", OpCNeq: "cne", OpCLt: "clt", OpCGt: "cgt", OpCLe: "cle", OpCGe: "cge",
	OpNeg: "neg", OpNegF: "negf", OpNot: "not",
	OpLabel: "label", OpJmp: "jmp", OpJz: "jz", OpJnz: "jnz", OpWrite: "write",
}

func (o Op) String() string {
	if int(o) < len(opNames) && opNames[o] != "" {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// IsCompare reports whether o is one of the relational operations.
func (o Op) IsCompare() bool { return o >= OpCEq && o <= OpCGe }

// Type is the machine class of a stack value.
type Type int

const (
	TypeNone Type = iota
	TypeW         // 32-bit integer
	TypeB         // character, widened to a word on the stack
	TypeD         // 64-bit float
	TypePtr       // address
)

func (t Type) String() string {
	switch t {
	case TypeW:
		return "w"
	case TypeB:
		return "b"
	case TypeD:
		return "d"
	case TypePtr:
		return "ptr"
	}
	return "none"
}

// Size is the number of bytes a value of type t occupies on the stack.
func (t Type) Size() int64 {
	switch t {
	case TypeD:
		return 8
	case TypeNone:
		return 0
	}
	return 4
}

type Instruction struct {
	Op      Op
	Typ     Type    // operand type for loads, stores and comparisons
	Int     int64   // OpPushInt
	Float   float64 // OpPushFloat
	Name    string  // slot, label or string constant
	Args    []Type  // OpWrite, in source order
	Newline bool    // OpWrite
}

func (i *Instruction) String() string {
	switch i.Op {
	case OpPushInt:
		return fmt.Sprintf("%s %d", i.Op, i.Int)
	case OpPushFloat:
		return fmt.Sprintf("%s %g", i.Op, i.Float)
	case OpLabel:
		return i.Name + ":"
	case OpPushVar, OpPushAddr, OpPushString, OpJmp, OpJz, OpJnz:
		return fmt.Sprintf("%s %s", i.Op, i.Name)
	case OpWrite:
		s := i.Op.String()
		if i.Newline {
			s += "ln"
		}
		for _, a := range i.Args {
			s += " " + a.String()
		}
		return s
	}
	if i.Typ != TypeNone {
		return fmt.Sprintf("%s.%s", i.Op, i.Typ)
	}
	return i.Op.String()
}

// Slot is a stack-allocated variable of the generated routine.
type Slot struct {
	Name   string
	Typ    Type // TypeNone for aggregates
	Size   int64
	Offset int64 // distance below the frame pointer, end of the slot
}

type Program struct {
	Slots     []*Slot
	FrameSize int64
	Insts     []*Instruction
	Strings   map[string]string // literal -> constant name
	WordSize  int

	slots      map[string]*Slot
	labelCount int
}

func NewProgram(wordSize int) *Program {
	return &Program{Strings: make(map[string]string), WordSize: wordSize, slots: make(map[string]*Slot)}
}

// AddSlot reserves size bytes for name below the ones already reserved.
func (p *Program) AddSlot(name string, typ Type, size int64) *Slot {
	if s, ok := p.slots[name]; ok {
		return s
	}
	p.FrameSize += size
	s := &Slot{Name: name, Typ: typ, Size: size, Offset: p.FrameSize}
	p.Slots = append(p.Slots, s)
	p.slots[name] = s
	return s
}

func (p *Program) Slot(name string) *Slot { return p.slots[name] }

func (p *Program) Emit(inst *Instruction) { p.Insts = append(p.Insts, inst) }

// NewLabels returns one label per prefix, all numbered with the same value
// unique within the program.
func (p *Program) NewLabels(prefixes ...string) []string {
	labels := make([]string, len(prefixes))
	for i, prefix := range prefixes {
		labels[i] = fmt.Sprintf("%s%d", prefix, p.labelCount)
	}
	p.labelCount++
	return labels
}

// AddString interns a string literal and returns its constant name.
func (p *Program) AddString(s string) string {
	if name, ok := p.Strings[s]; ok {
		return name
	}
	name := fmt.Sprintf("__@str%d", len(p.Strings))
	p.Strings[s] = name
	return name
}

// StringList returns the interned literals ordered by constant name.
func (p *Program) StringList() [][2]string {
	list := make([][2]string, 0, len(p.Strings))
	for s, name := range p.Strings {
		list = append(list, [2]string{name, s})
	}
	sort.Slice(list, func(i, j int) bool { return list[i][0] < list[j][0] })
	return list
}
