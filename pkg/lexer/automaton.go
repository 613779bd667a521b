package lexer

// class is a character class; the transition table is indexed by it.
type class int

const (
	cLetter    class = iota // letters other than hex digits and e, plus '_'
	cHexLetter              // a-d, f
	cE
	cBin // 0 1
	cOct // 2-7
	cDec // 8 9
	cPlus
	cMinus
	cStar
	cSlash
	cEqual
	cLess
	cGreater
	cDot
	cColon
	cSep // ; , [ ]
	cLParen
	cRParen
	cLBrace
	cRBrace
	cQuote
	cHash
	cDollar
	cPercent
	cAmp
	cAtCaret
	cSpace
	cNewline
	cEOF
	cOther
	classCount
)

var classes [256]class

func classOf(c byte) class { return classes[c] }

type state int

const (
	sStart state = iota
	sWhitespace
	sNewLine
	sIdentifier
	sDecimal
	sDollar
	sHex
	sPercent
	sBin
	sAmpersand
	sOct
	sFloatingPoint // digits and a '.', undecided
	sFloat
	sExponent
	sExponentSign
	sExponentDigits
	sStringStart
	sString
	sStringEnd
	sControlString
	sDecCharCode
	sCharCodeDollar
	sHexCharCode
	sCharCodePercent
	sBinCharCode
	sCharCodeAmpersand
	sOctCharCode
	sOperator // a complete operator
	sPlus     // '+' or '-'
	sStar
	sSlash
	sLess
	sGreater
	sDot
	sColon
	sLParen
	sSeparator
	sLineCommentBegin
	sLineComment
	sBraceCommentBegin
	sBraceComment
	sBraceCommentNewLine
	sBraceCommentEnd
	sParenCommentBegin
	sParenComment
	sParenCommentNewLine
	sParenCommentStar
	sParenCommentLParen
	sParenCommentEnd
	sEndOfFile
	sTokenEnd
	sLookBack

	sErrIllegalSymbol
	sErrNumber
	sErrFraction
	sErrExponent
	sErrString
	sErrEOF
	stateCount
)

var errorMessages = map[state]string{
	sErrIllegalSymbol: "Illegal symbol",
	sErrNumber:        "Invalid number",
	sErrFraction:      "Missing fractional part",
	sErrExponent:      "Missing exponent digits",
	sErrString:        "Unterminated string",
	sErrEOF:           "Unexpected end of file",
}

var transitions [stateCount][classCount]state

func fill(s, to state) {
	for c := range transitions[s] {
		transitions[s][c] = to
	}
}

func on(s, to state, cs ...class) {
	for _, c := range cs {
		transitions[s][c] = to
	}
}

var (
	digits  = []class{cBin, cOct, cDec}
	letters = []class{cLetter, cHexLetter, cE}
	hex     = []class{cBin, cOct, cDec, cHexLetter, cE}
)

func initClasses() {
	for i := range classes {
		classes[i] = cOther
	}
	for c := 'a'; c <= 'z'; c++ {
		classes[c], classes[c-'a'+'A'] = cLetter, cLetter
	}
	for _, c := range "abcdfABCDF" {
		classes[c] = cHexLetter
	}
	classes['e'], classes['E'], classes['_'] = cE, cE, cLetter
	for c := '0'; c <= '9'; c++ {
		switch {
		case c <= '1':
			classes[c] = cBin
		case c <= '7':
			classes[c] = cOct
		default:
			classes[c] = cDec
		}
	}
	for c, cl := range map[byte]class{
		'+': cPlus, '-': cMinus, '*': cStar, '/': cSlash, '=': cEqual, '<': cLess, '>': cGreater,
		'.': cDot, ':': cColon, ';': cSep, ',': cSep, '[': cSep, ']': cSep, '(': cLParen, ')': cRParen,
		'{': cLBrace, '}': cRBrace, '\'': cQuote, '#': cHash, '$': cDollar, '%': cPercent, '&': cAmp,
		'@': cAtCaret, '^': cAtCaret, ' ': cSpace, '\t': cSpace, '\r': cSpace, '\f': cSpace, '\v': cSpace,
		'\n': cNewline,
	} {
		classes[c] = cl
	}
}

// startRow fills the transitions taken between tokens.
func startRow(s state) {
	fill(s, sErrIllegalSymbol)
	on(s, sIdentifier, letters...)
	on(s, sDecimal, digits...)
	on(s, sDollar, cDollar)
	on(s, sPercent, cPercent)
	on(s, sAmpersand, cAmp)
	on(s, sControlString, cHash)
	on(s, sStringStart, cQuote)
	on(s, sPlus, cPlus, cMinus)
	on(s, sStar, cStar)
	on(s, sSlash, cSlash)
	on(s, sOperator, cEqual, cAtCaret)
	on(s, sLess, cLess)
	on(s, sGreater, cGreater)
	on(s, sDot, cDot)
	on(s, sColon, cColon)
	on(s, sSeparator, cSep, cRParen)
	on(s, sLParen, cLParen)
	on(s, sBraceCommentBegin, cLBrace)
	on(s, sWhitespace, cSpace)
	on(s, sNewLine, cNewline)
	on(s, sEndOfFile, cEOF)
}

func braceCommentRow(s state) {
	fill(s, sBraceComment)
	on(s, sBraceCommentEnd, cRBrace)
	on(s, sBraceCommentBegin, cLBrace)
	on(s, sBraceCommentNewLine, cNewline)
	on(s, sErrEOF, cEOF)
}

func parenCommentRow(s state) {
	fill(s, sParenComment)
	on(s, sParenCommentStar, cStar)
	on(s, sParenCommentLParen, cLParen)
	on(s, sParenCommentNewLine, cNewline)
	on(s, sErrEOF, cEOF)
}

// charCodeRow covers a '#' code in the given digit set.
func charCodeRow(s state, ds ...class) {
	fill(s, sTokenEnd)
	on(s, sErrNumber, letters...)
	on(s, sErrNumber, digits...)
	on(s, s, ds...)
	on(s, sControlString, cHash)
	on(s, sStringStart, cQuote)
}

func initTransitions() {
	for s := range transitions {
		fill(state(s), sTokenEnd)
	}
	startRow(sStart)
	startRow(sWhitespace)
	startRow(sNewLine)

	on(sIdentifier, sIdentifier, letters...)
	on(sIdentifier, sIdentifier, digits...)

	on(sDecimal, sDecimal, digits...)
	on(sDecimal, sFloatingPoint, cDot)
	on(sDecimal, sExponent, cE)
	on(sDecimal, sErrNumber, cLetter, cHexLetter)

	fill(sDollar, sErrNumber)
	on(sDollar, sHex, hex...)
	on(sHex, sHex, hex...)
	on(sHex, sErrNumber, cLetter)

	fill(sPercent, sErrNumber)
	on(sPercent, sBin, cBin)
	on(sBin, sBin, cBin)
	on(sBin, sErrNumber, cOct, cDec)
	on(sBin, sErrNumber, letters...)

	fill(sAmpersand, sErrNumber)
	on(sAmpersand, sOct, cBin, cOct)
	on(sOct, sOct, cBin, cOct)
	on(sOct, sErrNumber, cDec)
	on(sOct, sErrNumber, letters...)

	fill(sFloatingPoint, sLookBack)
	on(sFloatingPoint, sFloat, digits...)
	on(sFloatingPoint, sErrFraction, letters...)

	on(sFloat, sFloat, digits...)
	on(sFloat, sExponent, cE)
	on(sFloat, sErrNumber, cLetter, cHexLetter)

	fill(sExponent, sErrExponent)
	on(sExponent, sExponentSign, cPlus, cMinus)
	on(sExponent, sExponentDigits, digits...)
	fill(sExponentSign, sErrExponent)
	on(sExponentSign, sExponentDigits, digits...)
	on(sExponentDigits, sExponentDigits, digits...)
	on(sExponentDigits, sErrNumber, letters...)

	for _, s := range []state{sStringStart, sString} {
		fill(s, sString)
		on(s, sStringEnd, cQuote)
		on(s, sErrString, cNewline, cEOF)
	}
	on(sStringEnd, sString, cQuote)
	on(sStringEnd, sControlString, cHash)

	fill(sControlString, sErrNumber)
	on(sControlString, sDecCharCode, digits...)
	on(sControlString, sCharCodeDollar, cDollar)
	on(sControlString, sCharCodePercent, cPercent)
	on(sControlString, sCharCodeAmpersand, cAmp)
	charCodeRow(sDecCharCode, digits...)
	fill(sCharCodeDollar, sErrNumber)
	on(sCharCodeDollar, sHexCharCode, hex...)
	charCodeRow(sHexCharCode, hex...)
	fill(sCharCodePercent, sErrNumber)
	on(sCharCodePercent, sBinCharCode, cBin)
	charCodeRow(sBinCharCode, cBin)
	fill(sCharCodeAmpersand, sErrNumber)
	on(sCharCodeAmpersand, sOctCharCode, cBin, cOct)
	charCodeRow(sOctCharCode, cBin, cOct)

	on(sPlus, sOperator, cEqual)
	on(sStar, sOperator, cStar, cEqual)
	on(sSlash, sOperator, cEqual)
	on(sSlash, sLineCommentBegin, cSlash)
	on(sLess, sOperator, cEqual, cGreater, cLess)
	on(sGreater, sOperator, cEqual, cLess, cGreater)
	on(sDot, sOperator, cDot)
	on(sDot, sSeparator, cRParen)
	on(sColon, sOperator, cEqual)
	on(sLParen, sParenCommentBegin, cStar)
	on(sLParen, sSeparator, cDot)

	for _, s := range []state{sLineCommentBegin, sLineComment} {
		fill(s, sLineComment)
		on(s, sNewLine, cNewline)
		on(s, sEndOfFile, cEOF)
	}
	for _, s := range []state{sBraceCommentBegin, sBraceComment, sBraceCommentNewLine} {
		braceCommentRow(s)
	}
	for _, s := range []state{sParenCommentBegin, sParenComment, sParenCommentNewLine, sParenCommentLParen} {
		parenCommentRow(s)
	}
	on(sParenCommentLParen, sParenCommentBegin, cStar)
	parenCommentRow(sParenCommentStar)
	on(sParenCommentStar, sParenCommentEnd, cRParen)
}

func init() {
	initClasses()
	initTransitions()
}
