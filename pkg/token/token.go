package token

import (
	"fmt"
	"strings"
)

// Kind is the lexical class of a token.
type Kind int

const (
	KindEOF Kind = iota
	KindReservedWord
	KindIdentifier
	KindOperator
	KindSeparator
	KindIntConst
	KindFloatConst
	KindCharConst
	KindStringConst
)

var kindNames = [...]string{
	KindEOF:          "EOF",
	KindReservedWord: "Reserved word",
	KindIdentifier:   "Identifier",
	KindOperator:     "Operator",
	KindSeparator:    "Separator",
	KindIntConst:     "Integer",
	KindFloatConst:   "Float",
	KindCharConst:    "Char",
	KindStringConst:  "String",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Type identifies the specific lexeme.
type Type int

const (
	EOF Type = iota
	Identifier
	IntConst
	FloatConst
	CharConst
	StringConst

	// Operators
	Plus
	Minus
	Star
	Slash
	Equal
	Less
	Greater
	At
	Caret
	Dot
	PlusAssign
	MinusAssign
	StarAssign
	SlashAssign
	Assign
	ShlOp
	ShrOp
	NotEqual
	SymDiff
	Power
	Range
	LessEqual
	GreaterEqual
	And
	Div
	Mod
	Not
	Or
	Shl
	Shr
	Xor

	// Separators
	Semicolon
	Colon
	Comma
	LParen
	RParen
	LBracket
	RBracket

	// Reserved words
	Absolute
	Array
	Asm
	Begin
	Break
	Case
	Const
	Constructor
	Continue
	Destructor
	Do
	DownTo
	Else
	End
	False
	File
	For
	Function
	Goto
	If
	Implementation
	In
	Inline
	Interface
	Label
	Nil
	Object
	Of
	Packed
	Procedure
	Program
	Record
	Repeat
	Set
	String
	Then
	To
	True
	TypeKeyword
	Unit
	Until
	Uses
	Var
	While
	With
)

// Lookup maps normalised lexemes onto their token types. Words missing from
// the table are identifiers.
var Lookup = map[string]Type{
	"+": Plus, "-": Minus, "*": Star, "/": Slash, "=": Equal, "<": Less, ">": Greater,
	"@": At, "^": Caret, ".": Dot, "+=": PlusAssign, "-=": MinusAssign, "*=": StarAssign,
	"/=": SlashAssign, ":=": Assign, "<<": ShlOp, ">>": ShrOp, "<>": NotEqual, "><": SymDiff,
	"**": Power, "..": Range, "<=": LessEqual, ">=": GreaterEqual,
	"and": And, "div": Div, "mod": Mod, "not": Not, "or": Or, "shl": Shl, "shr": Shr, "xor": Xor,

	";": Semicolon, ":": Colon, ",": Comma, "(": LParen, ")": RParen, "[": LBracket, "]": RBracket,
	"(.": LBracket, ".)": RBracket,

	"absolute": Absolute, "array": Array, "asm": Asm, "begin": Begin, "break": Break,
	"case": Case, "const": Const, "constructor": Constructor, "continue": Continue,
	"destructor": Destructor, "do": Do, "downto": DownTo, "else": Else, "end": End,
	"false": False, "file": File, "for": For, "function": Function, "goto": Goto, "if": If,
	"implementation": Implementation, "in": In, "inline": Inline, "interface": Interface,
	"label": Label, "nil": Nil, "object": Object, "of": Of, "packed": Packed,
	"procedure": Procedure, "program": Program, "record": Record, "repeat": Repeat,
	"set": Set, "string": String, "then": Then, "to": To, "true": True, "type": TypeKeyword,
	"unit": Unit, "until": Until, "uses": Uses, "var": Var, "while": While, "with": With,
}

// TypeStrings is the reverse of Lookup, used for diagnostics.
var TypeStrings = make(map[Type]string)

func init() {
	for s, t := range Lookup {
		if prev, ok := TypeStrings[t]; ok && len(prev) <= len(s) {
			continue
		}
		TypeStrings[t] = s
	}
	TypeStrings[EOF] = "EOF"
	TypeStrings[Identifier] = "identifier"
	TypeStrings[IntConst] = "integer constant"
	TypeStrings[FloatConst] = "float constant"
	TypeStrings[CharConst] = "char constant"
	TypeStrings[StringConst] = "string constant"
	// "(." and ".)" share types with the brackets; keep the common spelling.
	TypeStrings[LBracket], TypeStrings[RBracket] = "[", "]"
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// KindOf reports the lexical class of a fixed lexeme type.
func KindOf(t Type) Kind {
	switch {
	case t == EOF:
		return KindEOF
	case t == Identifier:
		return KindIdentifier
	case t == IntConst:
		return KindIntConst
	case t == FloatConst:
		return KindFloatConst
	case t == CharConst:
		return KindCharConst
	case t == StringConst:
		return KindStringConst
	case t >= Plus && t <= Xor:
		return KindOperator
	case t >= Semicolon && t <= RBracket:
		return KindSeparator
	default:
		return KindReservedWord
	}
}

// ValueKind tags which payload of a Token is active.
type ValueKind int

const (
	ValString ValueKind = iota
	ValInt
	ValFloat
)

type Token struct {
	Type   Type
	Kind   Kind
	Raw    string // exact source text
	Text   string // normalised value
	Int    uint64
	Float  float64
	Val    ValueKind
	Line   int
	Column int
}

// Len is the width of the token in the source, used for carets.
func (t Token) Len() int { return len(t.Raw) }

func (t Token) Pos() string { return fmt.Sprintf("(%d, %d)", t.Line, t.Column) }

// Value renders the active payload.
func (t Token) Value() string {
	switch t.Val {
	case ValInt:
		return fmt.Sprintf("%d", t.Int)
	case ValFloat:
		return fmt.Sprintf("%g", t.Float)
	default:
		return t.Text
	}
}

// Describe names the token the way diagnostics quote it.
func (t Token) Describe() string {
	switch t.Kind {
	case KindIdentifier, KindReservedWord, KindOperator, KindSeparator:
		return t.Text
	case KindEOF:
		return "EOF"
	default:
		return strings.ToLower(t.Kind.String()) + " constant"
	}
}

func (t Token) String() string {
	return fmt.Sprintf("%s %s %q %s", t.Pos(), t.Kind, t.Raw, t.Value())
}
