//go:build !windows

package codegen

import (
	"bytes"
	"strings"

	"github.com/yolomachine/PotatoCompiler/pkg/config"
	"github.com/yolomachine/PotatoCompiler/pkg/ir"
	"modernc.org/libqbe"
)

// Generate lowers prog to QBE IL and assembles it with the embedded QBE for
// cfg.QbeTarget.
func (b *qbeBackend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	il, err := b.GenerateIR(prog, cfg)
	if err != nil {
		return nil, err
	}

	var asm bytes.Buffer
	if err := libqbe.Main(cfg.QbeTarget, qbeInputName, strings.NewReader(il), &asm, nil); err != nil {
		return nil, qbeFailure(il, "", err)
	}
	return &asm, nil
}
