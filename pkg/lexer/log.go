package lexer

import (
	"fmt"
	"io"
	"strings"

	"github.com/yolomachine/PotatoCompiler/pkg/token"
)

// WriteTokenTable writes one aligned row per token: position, class, raw
// source text and value.
func WriteTokenTable(w io.Writer, toks []token.Token) error {
	posWidth, kindWidth, rawWidth := 0, 0, 0
	for _, tok := range toks {
		posWidth = max(posWidth, len(tok.Pos()))
		kindWidth = max(kindWidth, len(tok.Kind.String()))
		rawWidth = max(rawWidth, len(tok.Raw))
	}

	var sb strings.Builder
	for _, tok := range toks {
		fmt.Fprintf(&sb, "%-*s  %-*s  %-*s  %s\n", posWidth, tok.Pos(), kindWidth, tok.Kind, rawWidth, tok.Raw, tok.Value())
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
