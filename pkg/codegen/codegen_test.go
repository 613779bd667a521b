package codegen

import (
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/yolomachine/PotatoCompiler/pkg/config"
	"github.com/yolomachine/PotatoCompiler/pkg/ir"
	"github.com/yolomachine/PotatoCompiler/pkg/lexer"
	"github.com/yolomachine/PotatoCompiler/pkg/parser"
	"github.com/yolomachine/PotatoCompiler/pkg/util"
)

func init() { util.WarnOutput = io.Discard }

func lower(t *testing.T, src string, cfg *config.Config) *ir.Program {
	t.Helper()
	if cfg == nil {
		cfg = config.NewConfig()
	}
	root, err := parser.NewParser(lexer.NewLexer([]byte(src), cfg), cfg).BuildTree()
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	prog, err := NewContext(cfg).GenerateIR(root)
	if err != nil {
		t.Fatalf("GenerateIR failed: %v", err)
	}
	return prog
}

func listing(prog *ir.Program) []string {
	var out []string
	for _, inst := range prog.Insts {
		out = append(out, inst.String())
	}
	return out
}

func TestIfStatement(t *testing.T) {
	prog := lower(t, "program p; var a, b: integer; begin if a < b then begin a := 1 end end.", nil)
	want := []string{
		"pushvar a", "pushvar b", "clt.w", "jz else_branch0",
		"pushaddr a", "pushint 1", "store.w",
		"jmp end_if0",
		"else_branch0:",
		"end_if0:",
	}
	if diff := cmp.Diff(want, listing(prog)); diff != "" {
		t.Errorf("IR mismatch (-want +got):\n%s", diff)
	}
	if prog.FrameSize != 8 {
		t.Errorf("frame size = %d, want 8", prog.FrameSize)
	}
}

func TestForStatement(t *testing.T) {
	src := "program p; var i, s: integer; begin for i := 1 to 3 do begin s := s + i end end."
	prog := lower(t, src, nil)
	want := []string{
		"pushaddr i", "pushint 1", "store.w",
		"pushaddr .bound0", "pushint 3", "store.w",
		"for_cond0:",
		"pushvar i", "pushvar .bound0", "cgt.w", "jnz for_end0",
		"pushaddr s", "pushvar s", "pushvar i", "add.w", "store.w",
		"pushaddr i", "pushvar i", "pushint 1", "add.w", "store.w",
		"jmp for_cond0",
		"for_end0:",
	}
	if diff := cmp.Diff(want, listing(prog)); diff != "" {
		t.Errorf("IR mismatch (-want +got):\n%s", diff)
	}
	if prog.FrameSize != 12 {
		t.Errorf("frame size = %d, want 12 with the hidden bound", prog.FrameSize)
	}

	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatForLoops, false)
	if insts := lower(t, src, cfg).Insts; len(insts) != 0 {
		t.Errorf("disabled for loop emitted %d instructions", len(insts))
	}
}

func TestDownToCountsDown(t *testing.T) {
	prog := lower(t, "program p; var i: integer; begin for i := 3 downto 1 do begin end end.", nil)
	got := strings.Join(listing(prog), "; ")
	if !strings.Contains(got, "clt.w; jnz for_end0") || !strings.Contains(got, "pushint 1; sub.w") {
		t.Errorf("downto loop lowered as %s", got)
	}
}

func TestConversionsAndInitializers(t *testing.T) {
	prog := lower(t, `program p;
const k = 2;
var r: real = 1.5; i: integer;
begin
  r := i;
  i := r * k
end.`, nil)
	want := []string{
		"pushaddr k", "pushint 2", "store.w",
		"pushaddr r", "pushfloat 1.5", "store.d",
		"pushaddr r", "pushvar i", "itof", "store.d",
		"pushaddr i", "pushvar r", "pushvar k", "itof", "mulf.d", "ftoi", "store.w",
	}
	if diff := cmp.Diff(want, listing(prog)); diff != "" {
		t.Errorf("IR mismatch (-want +got):\n%s", diff)
	}
	if s := prog.Slot("r"); s.Typ != ir.TypeD || s.Offset != 12 {
		t.Errorf("slot r = %+v, want an 8-byte real ending at 12", s)
	}
}

func TestWriteArgumentsReversed(t *testing.T) {
	prog := lower(t, "program p; begin writeln(1, 'x', 2.5, 'hi') end.", nil)
	want := []string{"pushstr __@str0", "pushfloat 2.5", "pushint 120", "pushint 1", "writeln w b d ptr"}
	if diff := cmp.Diff(want, listing(prog)); diff != "" {
		t.Errorf("IR mismatch (-want +got):\n%s", diff)
	}
}

func TestFoldConstantsFeature(t *testing.T) {
	src := "program p; var a: integer; begin a := 2 + 3 * 4 end."
	if got := len(lower(t, src, nil).Insts); got != 7 {
		t.Errorf("unfolded assignment has %d instructions, want 7", got)
	}

	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatFoldConstants, true)
	want := []string{"pushaddr a", "pushint 14", "store.w"}
	if diff := cmp.Diff(want, listing(lower(t, src, cfg))); diff != "" {
		t.Errorf("IR mismatch (-want +got):\n%s", diff)
	}
}

func TestUnsupportedConstructs(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"array element", "program p; var a: array[1..2] of integer; begin a[1] := 1 end.", "Only plain variables"},
		{"procedure call", "program p; procedure q; begin end; begin q end.", "Calls are not supported"},
		{"record variable", "program p; var r, s: record x: integer end; begin r := s end.", "are not supported by the code generator"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewConfig()
			root, err := parser.NewParser(lexer.NewLexer([]byte(tt.src), cfg), cfg).BuildTree()
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			_, err = NewContext(cfg).GenerateIR(root)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}
