package ast

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/yolomachine/PotatoCompiler/pkg/token"
)

func TestFprint(t *testing.T) {
	cond := bin(token.Less, ident("a"), num(10))
	assign := bin(token.Assign, ident("a"), num(1))
	root := NewIf(tok, cond, NewBlock(tok, []*Node{assign}), nil)

	var sb strings.Builder
	if err := Fprint(&sb, root); err != nil {
		t.Fatal(err)
	}
	want := "" +
		"└─if\n" +
		"   ├─<\n" +
		"   │ ├─a\n" +
		"   │ └─10\n" +
		"   └─begin\n" +
		"         └─:=\n" +
		"            ├─a\n" +
		"            └─1\n"
	if diff := cmp.Diff(want, sb.String()); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestChildrenSkipMissingParts(t *testing.T) {
	n := NewIf(tok, num(1), NewBlock(tok, nil), nil)
	if got := len(n.Children()); got != 2 {
		t.Errorf("if without else has %d children, want 2", got)
	}
	for _, c := range n.Children() {
		if c.Parent != n {
			t.Errorf("child %s is not attached to its parent", c.Label())
		}
	}
}

func TestKindOfFollowsAliases(t *testing.T) {
	rng := NewSubrange(tok, 1, 5)
	alias := NewTypeRef(tok, "small", rng)
	outer := NewTypeRef(tok, "tiny", alias)
	if k := KindOf(outer); k != TypeInteger {
		t.Errorf("KindOf(alias of subrange) = %s, want Integer", k)
	}
	if k := KindOf(nil); k != TypeProcedure {
		t.Errorf("KindOf(nil) = %s, want Procedure", k)
	}
	if !TypeChar.IsScalar() || TypeString.IsScalar() {
		t.Error("IsScalar misclassifies char or string")
	}
}
