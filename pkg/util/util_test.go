package util

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/yolomachine/PotatoCompiler/pkg/config"
	"github.com/yolomachine/PotatoCompiler/pkg/token"
)

var at = token.Token{Line: 2, Column: 3, Raw: "foo"}

func TestErrorFormat(t *testing.T) {
	err := Errorf(at, "Identifier not found: %q", "foo")
	if err.Error() != `(2, 3): Identifier not found: "foo"` {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Len != 3 {
		t.Errorf("Len = %d, want 3", err.Len)
	}
}

func TestCatch(t *testing.T) {
	run := func() (err error) {
		defer Catch(&err)
		Throw(at, "boom")
		return nil
	}
	err := run()
	var e *Error
	if !errors.As(err, &e) || e.Msg != "boom" || e.Line != 2 {
		t.Errorf("Catch stored %v", err)
	}
}

func TestCatchRepanicsForeignValues(t *testing.T) {
	defer func() {
		if r := recover(); r != "other" {
			t.Errorf("recovered %v, want the original panic", r)
		}
	}()
	var err error
	func() {
		defer Catch(&err)
		panic("other")
	}()
	t.Error("Catch swallowed a foreign panic")
}

func TestReport(t *testing.T) {
	SetSourceFile(SourceFile{Name: "prog.pas", Content: []byte("program p;\n  x := foo;\n")})
	defer SetSourceFile(SourceFile{})

	var buf bytes.Buffer
	Report(&buf, Errorf(token.Token{Line: 2, Column: 8, Raw: "foo"}, "Identifier not found: %q", "foo"))
	want := "" +
		"prog.pas:2:8: error: Identifier not found: \"foo\"\n" +
		"    x := foo;\n" +
		"         ^~~\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}

	buf.Reset()
	Report(&buf, errors.New("could not read file"))
	if buf.String() != "error: could not read file\n" {
		t.Errorf("plain report = %q", buf.String())
	}
}

func TestWarnRespectsConfig(t *testing.T) {
	var buf bytes.Buffer
	old := WarnOutput
	WarnOutput = &buf
	defer func() { WarnOutput = old }()

	cfg := config.NewConfig()
	Warn(cfg, config.WarnOverflow, at, "value %d truncated", 5)
	if !bytes.Contains(buf.Bytes(), []byte("warning: value 5 truncated [-Woverflow]")) {
		t.Errorf("warning output = %q", buf.String())
	}

	buf.Reset()
	cfg.SetWarning(config.WarnOverflow, false)
	Warn(cfg, config.WarnOverflow, at, "silent")
	Warn(nil, config.WarnOverflow, at, "silent")
	if buf.Len() != 0 {
		t.Errorf("disabled warning printed %q", buf.String())
	}
}
