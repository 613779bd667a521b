package lexer

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/yolomachine/PotatoCompiler/pkg/config"
	"github.com/yolomachine/PotatoCompiler/pkg/token"
	"github.com/yolomachine/PotatoCompiler/pkg/util"
)

func init() { util.WarnOutput = io.Discard }

func scan(t *testing.T, src string, cfg *config.Config) []token.Token {
	t.Helper()
	toks, err := NewLexer([]byte(src), cfg).Tokenize()
	if err != nil {
		t.Fatalf("Tokenize(%q) failed: %v", src, err)
	}
	return toks
}

func types(toks []token.Token) []token.Type {
	var ts []token.Type
	for _, tok := range toks {
		ts = append(ts, tok.Type)
	}
	return ts
}

func TestProgramSkeleton(t *testing.T) {
	toks := scan(t, "ProGram Test; begin END.", nil)
	want := []token.Type{token.Program, token.Identifier, token.Semicolon, token.Begin, token.End, token.Dot, token.EOF}
	if diff := cmp.Diff(want, types(toks)); diff != "" {
		t.Errorf("token types mismatch (-want +got):\n%s", diff)
	}
	if toks[1].Text != "test" || toks[1].Raw != "Test" {
		t.Errorf("identifier = %q (raw %q), want \"test\" (raw \"Test\")", toks[1].Text, toks[1].Raw)
	}
	if toks[0].Kind != token.KindReservedWord || toks[1].Kind != token.KindIdentifier {
		t.Errorf("kinds = %s, %s", toks[0].Kind, toks[1].Kind)
	}
}

func TestPositions(t *testing.T) {
	toks := scan(t, "a :=\n  b", nil)
	var got []string
	for _, tok := range toks {
		got = append(got, tok.Pos())
	}
	want := []string{"(1, 1)", "(1, 3)", "(2, 3)", "(2, 4)"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("positions mismatch (-want +got):\n%s", diff)
	}
}

func TestRawReconstructsSource(t *testing.T) {
	src := "a:=b+1;c[2]:=d.e<>$1F"
	var sb strings.Builder
	for _, tok := range scan(t, src, nil) {
		if tok.Type != token.EOF {
			sb.WriteString(tok.Raw)
		}
	}
	if sb.String() != src {
		t.Errorf("raw text = %q, want %q", sb.String(), src)
	}
}

func TestNumbers(t *testing.T) {
	toks := scan(t, "12 $1F %101 &17 3.5 1e3 2.5E-2", nil)
	var ints []uint64
	var floats []float64
	for _, tok := range toks {
		switch tok.Type {
		case token.IntConst:
			ints = append(ints, tok.Int)
		case token.FloatConst:
			floats = append(floats, tok.Float)
		}
	}
	if diff := cmp.Diff([]uint64{12, 31, 5, 15}, ints); diff != "" {
		t.Errorf("integers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{3.5, 1000, 0.025}, floats); diff != "" {
		t.Errorf("floats mismatch (-want +got):\n%s", diff)
	}
}

func TestRangeAfterInteger(t *testing.T) {
	toks := scan(t, "1..5", nil)
	want := []token.Type{token.IntConst, token.Range, token.IntConst, token.EOF}
	if diff := cmp.Diff(want, types(toks)); diff != "" {
		t.Errorf("token types mismatch (-want +got):\n%s", diff)
	}
	if toks[1].Column != 2 {
		t.Errorf("'..' column = %d, want 2", toks[1].Column)
	}
}

func TestOperators(t *testing.T) {
	toks := scan(t, ":= <> <= >= += << >> (. .) **", nil)
	want := []token.Type{
		token.Assign, token.NotEqual, token.LessEqual, token.GreaterEqual, token.PlusAssign,
		token.ShlOp, token.ShrOp, token.LBracket, token.RBracket, token.Power, token.EOF,
	}
	if diff := cmp.Diff(want, types(toks)); diff != "" {
		t.Errorf("token types mismatch (-want +got):\n%s", diff)
	}
}

func TestStringsAndCharCodes(t *testing.T) {
	toks := scan(t, "'it''s' #65 'a'#10 ''", nil)
	type lit struct {
		Type token.Type
		Text string
	}
	var got []lit
	for _, tok := range toks[:len(toks)-1] {
		got = append(got, lit{tok.Type, tok.Text})
	}
	want := []lit{
		{token.StringConst, "it's"},
		{token.CharConst, "A"},
		{token.StringConst, "a\n"},
		{token.StringConst, ""},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("literals mismatch (-want +got):\n%s", diff)
	}
}

func TestComments(t *testing.T) {
	src := "{ a { b } c } x // y\n(* z *) w"
	toks := scan(t, src, nil)
	var names []string
	for _, tok := range toks {
		if tok.Type == token.Identifier {
			names = append(names, tok.Text)
		}
	}
	if diff := cmp.Diff([]string{"x", "w"}, names); diff != "" {
		t.Errorf("identifiers mismatch (-want +got):\n%s", diff)
	}

	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatNestedComments, false)
	_, err := NewLexer([]byte(src), cfg).Tokenize()
	if err == nil || err.Error() != "(1, 13): Illegal symbol '}'" {
		t.Errorf("flat comments: got error %v, want \"(1, 13): Illegal symbol '}'\"", err)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"'abc", "(1, 5): Unterminated string"},
		{"12a", "(1, 3): Invalid number"},
		{"1.e", "(1, 3): Missing fractional part"},
		{"1e+", "(1, 4): Missing exponent digits"},
		{"{ abc", "(1, 6): Unexpected end of file"},
		{"a ? b", "(1, 3): Illegal symbol '?'"},
		{"x := 99999999999999999999", "(1, 25): Invalid number"},
		{"x := $1FFFFFFFFFFFFFFFF", "(1, 23): Invalid number"},
		{"'a'#4294967296", "(1, 14): Invalid char code"},
		{"1e999", "(1, 5): Invalid number"},
	}
	for _, tt := range tests {
		_, err := NewLexer([]byte(tt.src), nil).Tokenize()
		if err == nil {
			t.Errorf("Tokenize(%q) succeeded, want %q", tt.src, tt.want)
			continue
		}
		if err.Error() != tt.want {
			t.Errorf("Tokenize(%q) error = %q, want %q", tt.src, err.Error(), tt.want)
		}
	}
}

func TestNextAfterEOF(t *testing.T) {
	l := NewLexer([]byte("x"), nil)
	for i := 0; i < 2; i++ {
		if _, err := l.Next(); err != nil {
			t.Fatal(err)
		}
	}
	tok, err := l.Next()
	if err != nil || tok.Type != token.EOF || !l.EOF() {
		t.Errorf("Next after EOF = %v, %v; want EOF token", tok, err)
	}
}

func TestWriteTokenTable(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTokenTable(&buf, scan(t, "x := 1", nil)); err != nil {
		t.Fatal(err)
	}
	want := "" +
		"(1, 1)  Identifier  x    x\n" +
		"(1, 3)  Operator    :=   :=\n" +
		"(1, 6)  Integer     1    1\n" +
		"(1, 7)  EOF         EOF  EOF\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("token table mismatch (-want +got):\n%s", diff)
	}
}
