package util

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/yolomachine/PotatoCompiler/pkg/config"
	"github.com/yolomachine/PotatoCompiler/pkg/token"
	"golang.org/x/term"
)

// Error is a positioned compile error. Every stage reports through it.
type Error struct {
	Line   int
	Column int
	Len    int
	Msg    string
}

func (e *Error) Error() string { return fmt.Sprintf("(%d, %d): %s", e.Line, e.Column, e.Msg) }

// Errorf builds an error located at tok.
func Errorf(tok token.Token, format string, args ...any) *Error {
	return &Error{Line: tok.Line, Column: tok.Column, Len: tok.Len(), Msg: fmt.Sprintf(format, args...)}
}

// ErrorAt builds an error located at an explicit position.
func ErrorAt(line, col int, format string, args ...any) *Error {
	return &Error{Line: line, Column: col, Len: 1, Msg: fmt.Sprintf(format, args...)}
}

// Throw aborts the current stage; it is recovered by Catch.
func Throw(tok token.Token, format string, args ...any) {
	panic(Errorf(tok, format, args...))
}

// Catch recovers a bail-out raised with Throw (or a panicked *Error) and
// stores it in errp. Runtime errors are re-panicked.
func Catch(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if _, ok := r.(runtime.Error); ok {
		panic(r)
	}
	if e, ok := r.(*Error); ok {
		*errp = e
		return
	}
	panic(r)
}

// SourceFile is the file diagnostics are rendered against.
type SourceFile struct {
	Name    string
	Content []byte
}

var source SourceFile

func SetSourceFile(f SourceFile) { source = f }

func colored(w io.Writer, code, s string) string {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "\033[" + code + "m" + s + "\033[0m"
	}
	return s
}

// printErrorLine prints the source line and a caret under the position.
func printErrorLine(w io.Writer, line, col, length int) {
	if line <= 0 || len(source.Content) == 0 {
		return
	}
	lines := strings.Split(string(source.Content), "\n")
	if line > len(lines) {
		return
	}
	text := strings.TrimRight(lines[line-1], "\r")
	fmt.Fprintf(w, "  %s\n", text)

	if col < 1 {
		col = 1
	}
	caret := "^"
	if length > 1 {
		caret += strings.Repeat("~", length-1)
	}
	fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", col-1), colored(w, "32", caret))
}

// Report prints err in "file:line:col: error: msg" form followed by the
// offending source line. Errors without a position are printed as is.
func Report(w io.Writer, err error) {
	var e *Error
	if !errors.As(err, &e) {
		fmt.Fprintf(w, "%s: %s\n", colored(w, "31", "error:"), err)
		return
	}
	fmt.Fprintf(w, "%s:%d:%d: %s %s\n", source.Name, e.Line, e.Column, colored(w, "31", "error:"), e.Msg)
	printErrorLine(w, e.Line, e.Column, e.Len)
}

// Warnings go to this stream; tests silence it.
var WarnOutput io.Writer = os.Stderr

// Warn prints a warning if it is enabled in cfg.
func Warn(cfg *config.Config, wt config.Warning, tok token.Token, format string, args ...any) {
	if cfg == nil || !cfg.IsWarningEnabled(wt) {
		return
	}
	w := WarnOutput
	fmt.Fprintf(w, "%s:%d:%d: %s ", source.Name, tok.Line, tok.Column, colored(w, "33", "warning:"))
	fmt.Fprintf(w, format, args...)
	fmt.Fprintf(w, " [-W%s]\n", cfg.Warnings[wt].Name)
	printErrorLine(w, tok.Line, tok.Column, tok.Len())
}
