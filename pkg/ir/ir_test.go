package ir

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSlotsGrowDownward(t *testing.T) {
	p := NewProgram(4)
	a := p.AddSlot("a", TypeW, TypeW.Size())
	r := p.AddSlot("r", TypeD, TypeD.Size())
	again := p.AddSlot("a", TypeD, 8)

	if a.Offset != 4 || r.Offset != 12 {
		t.Errorf("offsets = %d, %d; want 4, 12", a.Offset, r.Offset)
	}
	if again != a || p.FrameSize != 12 {
		t.Errorf("re-adding a slot changed the frame: size %d", p.FrameSize)
	}
	if p.Slot("r") != r || p.Slot("missing") != nil {
		t.Error("Slot lookup mismatch")
	}
}

func TestLabelsShareACounter(t *testing.T) {
	p := NewProgram(4)
	first := p.NewLabels("else_branch", "end_if")
	second := p.NewLabels("for_cond", "for_end")
	want := []string{"else_branch0", "end_if0", "for_cond1", "for_end1"}
	if diff := cmp.Diff(want, append(first, second...)); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestStringsAreInterned(t *testing.T) {
	p := NewProgram(4)
	hi := p.AddString("hi")
	yo := p.AddString("yo")
	if p.AddString("hi") != hi {
		t.Error("duplicate literal got a new name")
	}
	want := [][2]string{{hi, "hi"}, {yo, "yo"}}
	if diff := cmp.Diff(want, p.StringList()); diff != "" {
		t.Errorf("string list mismatch (-want +got):\n%s", diff)
	}
	if hi != "__@str0" {
		t.Errorf("first literal named %q", hi)
	}
}

func TestInstructionString(t *testing.T) {
	tests := []struct {
		inst *Instruction
		want string
	}{
		{&Instruction{Op: OpPushInt, Int: -3}, "pushint -3"},
		{&Instruction{Op: OpPushFloat, Float: 2.5}, "pushfloat 2.5"},
		{&Instruction{Op: OpPushVar, Typ: TypeW, Name: "x"}, "pushvar x"},
		{&Instruction{Op: OpStore, Typ: TypeD}, "store.d"},
		{&Instruction{Op: OpCLt, Typ: TypeW}, "clt.w"},
		{&Instruction{Op: OpLabel, Name: "end_if0"}, "end_if0:"},
		{&Instruction{Op: OpJz, Name: "else_branch0"}, "jz else_branch0"},
		{&Instruction{Op: OpWrite, Newline: true, Args: []Type{TypeW, TypeB, TypePtr}}, "writeln w b ptr"},
		{&Instruction{Op: OpNeg}, "neg"},
		{&Instruction{Op: Op(99)}, "Op(99)"},
	}
	for _, tt := range tests {
		if got := tt.inst.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
	if !OpCGe.IsCompare() || OpAdd.IsCompare() {
		t.Error("IsCompare misclassifies")
	}
}
