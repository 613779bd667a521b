package parser

import (
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/yolomachine/PotatoCompiler/pkg/ast"
	"github.com/yolomachine/PotatoCompiler/pkg/config"
	"github.com/yolomachine/PotatoCompiler/pkg/lexer"
	"github.com/yolomachine/PotatoCompiler/pkg/util"
)

func init() { util.WarnOutput = io.Discard }

func parse(src string) (*ast.Node, error) {
	cfg := config.NewConfig()
	return NewParser(lexer.NewLexer([]byte(src), cfg), cfg).BuildTree()
}

func mustParse(t *testing.T, src string) *ast.Node {
	t.Helper()
	root, err := parse(src)
	if err != nil {
		t.Fatalf("parse failed: %v\nsource: %s", err, src)
	}
	return root
}

func bodyStmts(root *ast.Node) []*ast.Node {
	return root.Data.(ast.ProgramNode).Body.Data.(ast.BlockNode).Stmts
}

func TestEmptyProgram(t *testing.T) {
	root := mustParse(t, "program P; begin end.")
	if root.Type != ast.Program {
		t.Fatalf("root type = %v, want Program", root.Type)
	}
	if n := len(root.Children()); n != 1 {
		t.Errorf("program has %d children, want 1", n)
	}
	if name := root.Data.(ast.ProgramNode).Name.Name(); name != "p" {
		t.Errorf("program name = %q, want \"p\"", name)
	}
}

func TestTextAfterFinalDotIsIgnored(t *testing.T) {
	mustParse(t, "program p; begin end. this is not scanned")
}

func TestExpressionTypes(t *testing.T) {
	root := mustParse(t, `program p;
var i: integer; r: real;
begin
  r := i + r;
  i := i < r;
  r := i / 2;
  i := i div 2 * 3
end.`)
	var got []ast.TypeKind
	for _, stmt := range bodyStmts(root) {
		got = append(got, stmt.Data.(ast.BinaryOpNode).Right.Typ)
	}
	want := []ast.TypeKind{ast.TypeReal, ast.TypeInteger, ast.TypeReal, ast.TypeInteger}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("inferred types mismatch (-want +got):\n%s", diff)
	}
}

func TestPrecedence(t *testing.T) {
	root := mustParse(t, "program p; var a: integer; begin a := 1 + 2 * 3 end.")
	rhs := bodyStmts(root)[0].Data.(ast.BinaryOpNode).Right
	var sb strings.Builder
	if err := ast.Fprint(&sb, rhs); err != nil {
		t.Fatal(err)
	}
	want := "" +
		"└─+\n" +
		"  ├─1\n" +
		"  └─*\n" +
		"    ├─2\n" +
		"    └─3\n"
	if diff := cmp.Diff(want, sb.String()); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestConstantResolution(t *testing.T) {
	root := mustParse(t, "program p; const MAX = 10; var x: integer; begin x := MAX end.")
	sym := root.Data.(ast.ProgramNode).Scopes.Lookup("Max")
	if sym == nil {
		t.Fatal("MAX not found in program scope")
	}
	if k := ast.KindOf(sym.Type); k != ast.TypeInteger {
		t.Errorf("MAX resolves to %s, want Integer", k)
	}
}

func TestNestedScopesAllowShadowing(t *testing.T) {
	mustParse(t, `program p;
var a: integer;
procedure q;
var a: real;
begin
  a := 1.5
end;
begin
  a := 1
end.`)
}

func TestFunctionsAndCalls(t *testing.T) {
	mustParse(t, `program p;
function f(x: integer; y: real): integer;
begin
  f := x * 2
end;
procedure show(c: char);
begin
  writeln(c)
end;
var n: integer;
begin
  n := f(3, 1);
  show('a');
  write(n, ' ', 2.5, 'text')
end.`)
}

func TestRecordsAndArrays(t *testing.T) {
	mustParse(t, `program p;
type pt = record x, y: integer end;
var a: array[1..3] of integer = (1, 2, 3);
    q: pt = (x: 1; y: 2);
    s: 0..9 = 5;
begin
  a[2] := q.x;
  q.y := a[1] + s
end.`)
}

func TestForAndIf(t *testing.T) {
	root := mustParse(t, `program p;
var i, s: integer;
begin
  s := 0;
  for i := 10 downto 1 do begin
    if i mod 2 = 0 then begin s := s + i end else begin s := s - 1 end
  end
end.`)
	stmts := bodyStmts(root)
	if stmts[1].Type != ast.For {
		t.Fatalf("second statement is %v, want For", stmts[1].Type)
	}
	if dir := stmts[1].Data.(ast.ForNode).Dir; dir.Type != ast.DownTo {
		t.Errorf("direction = %v, want DownTo", dir.Type)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"missing semicolon",
			"program p begin end.",
			`(1, 11): Syntax error, ";" expected, but "begin" found`,
		},
		{
			"unexpected eof",
			"program p; begin",
			`(1, 17): Unexpected end of file`,
		},
		{
			"eof instead of semicolon",
			"program p",
			`(1, 10): Unexpected end of file`,
		},
		{
			"eof after declaration",
			"program p; var a: integer",
			`(1, 26): Unexpected end of file`,
		},
		{
			"duplicate identifier",
			"program p; var a: integer; a: real; begin end.",
			`(1, 28): Duplicate identifier "a"`,
		},
		{
			"undeclared call",
			"program p; begin foo() end.",
			`(1, 18): Identifier not found: "foo"`,
		},
		{
			"constant assignment",
			"program p; const MAX = 10; begin MAX := 1 end.",
			`(1, 34): Can't modify constant values: "max"`,
		},
		{
			"alias assignment",
			"program p; type t = integer; begin t := 1 end.",
			`(1, 36): Can't modify type aliases: "t"`,
		},
		{
			"char arithmetic",
			"program p; var c: char; i: integer; begin i := c + 1 end.",
			`(1, 50): Can't apply operator "+" to char`,
		},
		{
			"char comparison",
			"program p; var c, d: char; i: integer; begin i := c < d end.",
			`(1, 53): Can't apply operator "<" to char`,
		},
		{
			"real condition",
			"program p; var r: real; begin if r then begin end end.",
			`(1, 34): Incompatible types: "Integer" expected, but "Real" found`,
		},
		{
			"several initialized names",
			"program p; var a, b: integer = 1; begin end.",
			`(1, 30): Can't initialize more than one variable`,
		},
		{
			"bad type",
			"program p; var a: begin; begin end.",
			`(1, 19): Error in type definition`,
		},
		{
			"inverted subrange",
			"program p; var a: 5..1; begin end.",
			`(1, 19): Upper bound is less than lower bound`,
		},
		{
			"non-constant initializer",
			"program p; var a: integer; b: integer = a; begin end.",
			`(1, 41): Const identifier or expression expected`,
		},
		{
			"subrange initializer out of range",
			"program p; var a: 1..5 = 7; begin end.",
			`(1, 26): Range check error while evaluating constants`,
		},
		{
			"procedure used as value",
			"program p; procedure q; begin end; var y: integer; begin y := q end.",
			`(1, 63): Improper call of a function or a procedure: "q"`,
		},
		{
			"wrong argument count",
			"program p; function f(x: integer): integer; begin f := x end; var y: integer; begin y := f(1, 2) end.",
			`(1, 90): Wrong amount of arguments in function call "f"`,
		},
		{
			"call of a variable",
			"program p; var v: integer; begin v(1) end.",
			`(1, 34): Identifier's not a function or a procedure: "v"`,
		},
		{
			"write in expression",
			"program p; var v: integer; begin v := writeln(1) end.",
			`(1, 39): Can't use procedures in expressions`,
		},
		{
			"unknown field",
			"program p; var r: record x: integer end; begin r.z := 1 end.",
			`(1, 50): Unknown field "z"`,
		},
		{
			"sets",
			"program p; var a: integer; begin a := a in a end.",
			`(1, 41): Sets are not supported`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(tt.src)
			if err == nil {
				t.Fatalf("parse succeeded, want %q", tt.want)
			}
			if err.Error() != tt.want {
				t.Errorf("error = %q, want %q", err.Error(), tt.want)
			}
		})
	}
}

func TestIncompatibleStructures(t *testing.T) {
	_, err := parse(`program p;
var a: array[1..3] of integer; b: array[1..4] of integer;
begin
  a := b
end.`)
	if err == nil || !strings.Contains(err.Error(), "Incompatible types") {
		t.Errorf("error = %v, want an incompatible types error", err)
	}
}

func TestOuterScopeFeature(t *testing.T) {
	src := `program p;
const k = 3;
procedure q;
var a: integer;
begin
  a := k
end;
begin end.`
	mustParse(t, src)

	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatOuterScope, false)
	_, err := NewParser(lexer.NewLexer([]byte(src), cfg), cfg).BuildTree()
	if err == nil || !strings.Contains(err.Error(), `Identifier not found: "k"`) {
		t.Errorf("error = %v, want identifier not found", err)
	}
}
