package codegen

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/yolomachine/PotatoCompiler/pkg/config"
	"github.com/yolomachine/PotatoCompiler/pkg/ir"
)

// Backend is the interface that all code generation backends must implement.
type Backend interface {
	// GenerateIR renders the backend's own textual form of the program
	// before any external tool runs on it.
	GenerateIR(prog *ir.Program, cfg *config.Config) (string, error)
	// Generate produces the final output for the target.
	Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error)
}

// SelectBackend returns the backend registered under name.
func SelectBackend(name string) (Backend, error) {
	switch name {
	case config.BackendMASM:
		return NewMasmBackend(), nil
	case config.BackendQBE:
		return NewQBEBackend(), nil
	}
	return nil, fmt.Errorf("unsupported backend %q", name)
}

var formatLetters = map[ir.Type]string{ir.TypeW: "i", ir.TypeB: "c", ir.TypeD: "f", ir.TypePtr: "s"}
var formatVerbs = map[ir.Type]string{ir.TypeW: "%d", ir.TypeB: "%c", ir.TypeD: "%f", ir.TypePtr: "%s"}

// formatName names the printf format constant of a write statement, e.g.
// "__@strfmtifln" for writeln(1, 2.0).
func formatName(args []ir.Type, newline bool) string {
	var sb strings.Builder
	sb.WriteString("__@strfmt")
	for _, a := range args {
		sb.WriteString(formatLetters[a])
	}
	if newline {
		sb.WriteString("ln")
	}
	return sb.String()
}

// formatString is the printf format of a write statement: one verb and a
// space per argument.
func formatString(args []ir.Type, newline bool) string {
	var sb strings.Builder
	for _, a := range args {
		sb.WriteString(formatVerbs[a] + " ")
	}
	if newline {
		sb.WriteString("\n")
	}
	return sb.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
