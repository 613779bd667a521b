// Package scope implements the symbol tables used while parsing: ordered
// frames, a stack of frames per routine, and the type-alias snapshot.
package scope

import "strings"

type Kind int

const (
	Var Kind = iota
	Const
	TypeAlias
	Procedure
	Function
	Builtin
)

var kindNames = [...]string{"variable", "constant", "type", "procedure", "function", "builtin"}

func (k Kind) String() string { return kindNames[k] }

// IsRoutine reports whether the symbol names something callable.
func (k Kind) IsRoutine() bool { return k == Procedure || k == Function || k == Builtin }

type BuiltinID int

const (
	NotBuiltin BuiltinID = iota
	Write
	WriteLn
)

// Symbol binds a name to its declared type and value. N is the tree node
// type; symbols never own the nodes they point at.
type Symbol[N comparable] struct {
	Name    string
	Kind    Kind
	Type    N // declared type, zero for procedures
	Value   N // initializer or constant expression, may be zero
	Node    N // declaring node
	Builtin BuiltinID
	Result  bool // function name used as its own result variable
}

// Frame is one lexical level. Names are case-insensitive and iteration
// follows declaration order.
type Frame[N comparable] struct {
	names   []string
	symbols map[string]*Symbol[N]
}

func NewFrame[N comparable]() *Frame[N] {
	return &Frame[N]{symbols: make(map[string]*Symbol[N])}
}

// Key folds a name to its table key.
func Key(name string) string { return strings.ToLower(name) }

// Insert adds sym, replacing any symbol of the same name.
func (f *Frame[N]) Insert(sym *Symbol[N]) {
	k := Key(sym.Name)
	if _, ok := f.symbols[k]; !ok {
		f.names = append(f.names, k)
	}
	f.symbols[k] = sym
}

func (f *Frame[N]) Lookup(name string) *Symbol[N] { return f.symbols[Key(name)] }

func (f *Frame[N]) Len() int { return len(f.names) }

// Symbols returns the frame's symbols in declaration order.
func (f *Frame[N]) Symbols() []*Symbol[N] {
	syms := make([]*Symbol[N], 0, len(f.names))
	for _, k := range f.names {
		syms = append(syms, f.symbols[k])
	}
	return syms
}

// Clone makes a shallow copy; the symbols themselves are shared.
func (f *Frame[N]) Clone() *Frame[N] {
	c := NewFrame[N]()
	for _, sym := range f.Symbols() {
		c.Insert(sym)
	}
	return c
}

// Stack is the ordered list of open frames of one routine (or of the
// program). Outer, when set, is the stack of the enclosing routine and is
// consulted only after every local frame.
type Stack[N comparable] struct {
	frames []*Frame[N]
	Outer  *Stack[N]
}

func NewStack[N comparable](outer *Stack[N]) *Stack[N] {
	return &Stack[N]{Outer: outer}
}

func (s *Stack[N]) Push() *Frame[N] {
	f := NewFrame[N]()
	s.frames = append(s.frames, f)
	return f
}

func (s *Stack[N]) Pop() *Frame[N] {
	if len(s.frames) == 0 {
		return nil
	}
	f := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return f
}

func (s *Stack[N]) Top() *Frame[N] {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

func (s *Stack[N]) Frames() []*Frame[N] { return s.frames }

func (s *Stack[N]) Depth() int { return len(s.frames) }

// Insert adds sym to the innermost frame, opening one if needed.
func (s *Stack[N]) Insert(sym *Symbol[N]) {
	if s.Top() == nil {
		s.Push()
	}
	s.Top().Insert(sym)
}

// LookupLocal walks this stack's frames, innermost first.
func (s *Stack[N]) LookupLocal(name string) *Symbol[N] {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if sym := s.frames[i].Lookup(name); sym != nil {
			return sym
		}
	}
	return nil
}

// Lookup walks this stack and then the enclosing ones.
func (s *Stack[N]) Lookup(name string) *Symbol[N] {
	for st := s; st != nil; st = st.Outer {
		if sym := st.LookupLocal(name); sym != nil {
			return sym
		}
	}
	return nil
}

// Symbols flattens the stack's frames, outermost first.
func (s *Stack[N]) Symbols() []*Symbol[N] {
	var syms []*Symbol[N]
	for _, f := range s.frames {
		syms = append(syms, f.Symbols()...)
	}
	return syms
}

// Builtins returns a frame holding the predeclared routines.
func Builtins[N comparable]() *Frame[N] {
	f := NewFrame[N]()
	f.Insert(&Symbol[N]{Name: "write", Kind: Builtin, Builtin: Write})
	f.Insert(&Symbol[N]{Name: "writeln", Kind: Builtin, Builtin: WriteLn})
	return f
}
