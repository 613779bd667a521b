package scope

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func names(syms []*Symbol[string]) []string {
	var out []string
	for _, s := range syms {
		out = append(out, s.Name)
	}
	return out
}

func TestFrameKeepsDeclarationOrder(t *testing.T) {
	f := NewFrame[string]()
	for _, n := range []string{"Zeta", "alpha", "Mid"} {
		f.Insert(&Symbol[string]{Name: n, Kind: Var})
	}
	f.Insert(&Symbol[string]{Name: "ALPHA", Kind: Const})

	if diff := cmp.Diff([]string{"Zeta", "ALPHA", "Mid"}, names(f.Symbols())); diff != "" {
		t.Errorf("symbols mismatch (-want +got):\n%s", diff)
	}
	if sym := f.Lookup("Alpha"); sym == nil || sym.Kind != Const {
		t.Errorf("Lookup(Alpha) = %v, want the replacing constant", sym)
	}
	if f.Len() != 3 {
		t.Errorf("Len = %d, want 3", f.Len())
	}
}

func TestStackShadowing(t *testing.T) {
	outer := NewStack[string](nil)
	outer.Insert(&Symbol[string]{Name: "x", Type: "integer"})
	outer.Insert(&Symbol[string]{Name: "g", Type: "real"})

	inner := NewStack(outer)
	inner.Push()
	inner.Insert(&Symbol[string]{Name: "x", Type: "char"})

	if sym := inner.Lookup("X"); sym.Type != "char" {
		t.Errorf("inner x has type %q, want char", sym.Type)
	}
	if sym := inner.Lookup("g"); sym == nil || sym.Type != "real" {
		t.Errorf("outer g not visible: %v", sym)
	}
	if sym := inner.LookupLocal("g"); sym != nil {
		t.Errorf("LookupLocal reached the enclosing stack: %v", sym)
	}

	inner.Push()
	inner.Insert(&Symbol[string]{Name: "y"})
	if inner.Depth() != 2 {
		t.Errorf("Depth = %d, want 2", inner.Depth())
	}
	inner.Pop()
	if inner.Lookup("y") != nil {
		t.Error("y still visible after Pop")
	}
	if diff := cmp.Diff([]string{"x"}, names(inner.Symbols())); diff != "" {
		t.Errorf("inner symbols mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyStack(t *testing.T) {
	s := NewStack[string](nil)
	if s.Pop() != nil || s.Top() != nil || s.Lookup("x") != nil {
		t.Error("empty stack returned a frame or symbol")
	}
}

func TestCloneSharesSymbols(t *testing.T) {
	f := NewFrame[string]()
	sym := &Symbol[string]{Name: "t", Kind: TypeAlias}
	f.Insert(sym)
	c := f.Clone()
	c.Insert(&Symbol[string]{Name: "u", Kind: TypeAlias})

	if c.Lookup("t") != sym {
		t.Error("clone does not share the original symbol")
	}
	if f.Lookup("u") != nil {
		t.Error("insert into the clone leaked into the original")
	}
}

func TestBuiltins(t *testing.T) {
	b := Builtins[string]()
	for name, id := range map[string]BuiltinID{"write": Write, "WriteLn": WriteLn} {
		sym := b.Lookup(name)
		if sym == nil || sym.Builtin != id || !sym.Kind.IsRoutine() {
			t.Errorf("builtin %s = %+v", name, sym)
		}
	}
	if Var.IsRoutine() || Const.String() != "constant" {
		t.Error("kind helpers misbehave")
	}
}
