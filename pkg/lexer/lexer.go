package lexer

import (
	"fmt"
	"math"
	"strconv"

	"github.com/yolomachine/PotatoCompiler/pkg/config"
	"github.com/yolomachine/PotatoCompiler/pkg/token"
	"github.com/yolomachine/PotatoCompiler/pkg/util"
)

type Lexer struct {
	src  []byte
	pos  int
	line int
	col  int
	cfg  *config.Config

	state state
	depth int // open comments of the current kind
	raw   []byte
	val   []byte
	code  []byte

	startLine, startCol int
	current             token.Token
	eof                 bool
}

func NewLexer(src []byte, cfg *config.Config) *Lexer {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &Lexer{src: src, line: 1, col: 1, cfg: cfg}
}

// Current returns the most recently produced token.
func (l *Lexer) Current() token.Token { return l.current }

// EOF reports whether the end-of-file token has been produced.
func (l *Lexer) EOF() bool { return l.eof }

func (l *Lexer) peek() (byte, class) {
	if l.pos >= len(l.src) {
		return 0, cEOF
	}
	c := l.src[l.pos]
	return c, classOf(c)
}

func (l *Lexer) advance(c byte) {
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
		return
	}
	l.col++
}

func (l *Lexer) putback() {
	l.pos--
	l.col--
}

func (l *Lexer) reset() {
	l.raw, l.val, l.code = l.raw[:0], l.val[:0], l.code[:0]
}

// Next scans the next token. After EOF it keeps returning the EOF token.
func (l *Lexer) Next() (token.Token, error) {
	if l.eof {
		return l.current, nil
	}
	l.state = sStart
	l.reset()

	for {
		c, cl := l.peek()
		next := transitions[l.state][cl]

		switch next {
		case sTokenEnd:
			return l.emit(l.state)
		case sLookBack:
			// "3." not followed by a digit: the dot belongs to the next token.
			l.putback()
			l.raw, l.val = l.raw[:len(l.raw)-1], l.val[:len(l.val)-1]
			return l.emit(sDecimal)
		case sEndOfFile:
			l.eof = true
			l.current = token.Token{Type: token.EOF, Kind: token.KindEOF, Raw: "EOF", Text: "EOF", Line: l.line, Column: l.col}
			return l.current, nil
		case sBraceCommentBegin, sParenCommentBegin:
			l.advance(c)
			l.openComment(next)
			continue
		case sBraceCommentEnd, sParenCommentEnd:
			l.advance(c)
			l.depth--
			switch {
			case l.depth > 0 && next == sBraceCommentEnd:
				l.state = sBraceComment
			case l.depth > 0:
				l.state = sParenComment
			default:
				l.state = sWhitespace
			}
			continue
		}

		if msg, ok := errorMessages[next]; ok {
			if next == sErrIllegalSymbol {
				msg = fmt.Sprintf("%s %q", msg, c)
			}
			return token.Token{}, util.ErrorAt(l.line, l.col, "%s", msg)
		}
		if err := l.accept(next, c); err != nil {
			return token.Token{}, err
		}
		l.advance(c)
		l.state = next
	}
}

func (l *Lexer) openComment(s state) {
	if l.depth == 0 {
		l.depth = 1
		l.reset()
		l.state = s
		return
	}
	if l.cfg.IsFeatureEnabled(config.FeatNestedComments) {
		l.depth++
	}
	if s == sBraceCommentBegin {
		l.state = sBraceComment
	} else {
		l.state = sParenComment
	}
}

func (l *Lexer) mark() {
	if len(l.raw) == 0 {
		l.startLine, l.startCol = l.line, l.col
	}
}

// accept applies the buffer actions of entering state s on character c.
func (l *Lexer) accept(s state, c byte) error {
	switch s {
	case sWhitespace, sNewLine, sLineComment, sBraceComment, sBraceCommentNewLine,
		sParenComment, sParenCommentNewLine, sParenCommentStar, sParenCommentLParen:
	case sLineCommentBegin:
		l.reset()
	case sStringStart, sControlString:
		if err := l.flushCode(l.state); err != nil {
			return err
		}
		l.mark()
		l.raw = append(l.raw, c)
	case sStringEnd, sDollar, sPercent, sAmpersand, sCharCodeDollar, sCharCodePercent, sCharCodeAmpersand:
		l.mark()
		l.raw = append(l.raw, c)
	case sDecCharCode, sHexCharCode, sBinCharCode, sOctCharCode:
		l.mark()
		l.raw = append(l.raw, c)
		l.code = append(l.code, c)
	case sIdentifier, sOperator, sPlus, sStar, sSlash, sLess, sGreater, sDot, sColon, sLParen, sSeparator:
		l.mark()
		l.raw = append(l.raw, c)
		l.val = append(l.val, lower(c))
	default:
		l.mark()
		l.raw = append(l.raw, c)
		l.val = append(l.val, c)
	}
	return nil
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

func charCodeBase(s state) int {
	switch s {
	case sHexCharCode:
		return 16
	case sBinCharCode:
		return 2
	case sOctCharCode:
		return 8
	default:
		return 10
	}
}

// flushCode decodes a pending '#' character code into val.
func (l *Lexer) flushCode(s state) error {
	if len(l.code) == 0 {
		return nil
	}
	n, err := strconv.ParseUint(string(l.code), charCodeBase(s), 32)
	if err != nil {
		col := l.startCol + len(l.raw) - len(l.code) + overflowAt(l.code, charCodeBase(s), 32)
		return util.ErrorAt(l.startLine, col, "Invalid char code")
	}
	if n > math.MaxUint8 {
		util.Warn(l.cfg, config.WarnCharCode, l.pending(), "character code %d truncated to %d", n, byte(n))
	}
	l.val = append(l.val, byte(n))
	l.code = l.code[:0]
	return nil
}

func (l *Lexer) pending() token.Token {
	return token.Token{Raw: string(l.raw), Text: string(l.val), Line: l.startLine, Column: l.startCol}
}

// overflowAt returns the index of the digit that takes the value out of range.
func overflowAt(digits []byte, base, bits int) int {
	for i := range digits {
		if _, err := strconv.ParseUint(string(digits[:i+1]), base, bits); err != nil {
			return i
		}
	}
	return 0
}

func numberBase(s state) int {
	switch s {
	case sHex:
		return 16
	case sBin:
		return 2
	case sOct:
		return 8
	default:
		return 10
	}
}

// emit builds the token recognised in final state s.
func (l *Lexer) emit(s state) (token.Token, error) {
	if err := l.flushCode(s); err != nil {
		return token.Token{}, err
	}
	tok := l.pending()

	switch s {
	case sDecimal, sHex, sBin, sOct:
		n, err := strconv.ParseUint(tok.Text, numberBase(s), 64)
		if err != nil {
			col := tok.Column + len(tok.Raw) - len(tok.Text) + overflowAt(l.val, numberBase(s), 64)
			return token.Token{}, util.ErrorAt(tok.Line, col, "Invalid number")
		}
		if n > math.MaxInt32 {
			util.Warn(l.cfg, config.WarnOverflow, tok, "integer constant %s does not fit in a 32-bit word", tok.Raw)
		}
		tok.Type, tok.Int, tok.Val = token.IntConst, n, token.ValInt
	case sFloat, sExponentDigits:
		f, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return token.Token{}, util.ErrorAt(tok.Line, tok.Column+len(tok.Raw)-1, "Invalid number")
		}
		tok.Type, tok.Float, tok.Val = token.FloatConst, f, token.ValFloat
	case sStringEnd, sDecCharCode, sHexCharCode, sBinCharCode, sOctCharCode:
		tok.Type = token.StringConst
		if len(tok.Text) == 1 {
			tok.Type = token.CharConst
		}
	default:
		tok.Type = token.Identifier
		if t, ok := token.Lookup[tok.Text]; ok {
			tok.Type = t
		}
	}
	tok.Kind = token.KindOf(tok.Type)
	l.current = tok
	return tok, nil
}

// Tokenize scans the whole input. The returned slice ends with the EOF token.
func (l *Lexer) Tokenize() ([]token.Token, error) {
	var toks []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			return toks, err
		}
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks, nil
		}
	}
}
