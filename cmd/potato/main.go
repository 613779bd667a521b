package main

import (
	"bytes"
	"fmt"
	"os"
	"runtime"

	log "github.com/sirupsen/logrus"
	"github.com/yolomachine/PotatoCompiler/pkg/ast"
	"github.com/yolomachine/PotatoCompiler/pkg/cli"
	"github.com/yolomachine/PotatoCompiler/pkg/codegen"
	"github.com/yolomachine/PotatoCompiler/pkg/config"
	"github.com/yolomachine/PotatoCompiler/pkg/lexer"
	"github.com/yolomachine/PotatoCompiler/pkg/parser"
	"github.com/yolomachine/PotatoCompiler/pkg/util"
)

const (
	defaultInput     = "program.pas"
	defaultTokensLog = "tokens.log"
	defaultSyntaxLog = "syntax.log"
	defaultOutput    = "code.asm"
)

type options struct {
	lexOnly   bool
	outFile   string
	logFile   string
	target    string
	qbeTarget string
	include   string
	dumpIR    bool
	verbose   bool
	warnings  []string
	features  []string
}

func main() {
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})

	app := cli.NewApp("potato")
	app.Synopsis = "[options] [program.pas]"
	app.Description = "A compiler for a small Pascal dialect. Emits MASM32 assembly, or native assembly through QBE."
	app.Authors = []string{"yolomachine"}
	app.Repository = "<https://github.com/yolomachine/PotatoCompiler>"

	var opts options
	fs := app.FlagSet
	fs.Bool(&opts.lexOnly, "lex", "l", false, "Only run the lexer and write the token table to the log.")
	fs.String(&opts.outFile, "output", "o", defaultOutput, "Place the assembly into <file>.", "file")
	fs.String(&opts.logFile, "log", "", "", "Write the token table or syntax tree into <file>.", "file")
	fs.String(&opts.target, "target", "t", config.BackendMASM, "Set the backend (masm, qbe or qbe/<abi>).", "backend")
	fs.String(&opts.qbeTarget, "qbe-target", "", "", "Set the QBE target ABI.", "abi")
	fs.String(&opts.include, "include", "", config.DefaultMasmInclude, "Runtime header included by the MASM output.", "path")
	fs.Bool(&opts.dumpIR, "dump-ir", "d", false, "Write the backend's intermediate representation instead of assembly.")
	fs.Bool(&opts.verbose, "verbose", "v", false, "Log every compilation stage.")
	fs.Special(&opts.warnings, "W", "Enable or disable a warning (e.g. -Wall, -Wno-overflow)", "warning")
	fs.Special(&opts.features, "F", "Enable or disable a feature (e.g. -Fno-for-loops)", "feature")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(args []string) error {
		if opts.verbose {
			log.SetLevel(log.DebugLevel)
		}
		cfg.ApplyFlagGroups(warningFlags, featureFlags)
		for _, w := range opts.warnings {
			if err := cfg.ApplyFlag("-W" + w); err != nil {
				return report(err)
			}
		}
		for _, f := range opts.features {
			if err := cfg.ApplyFlag("-F" + f); err != nil {
				return report(err)
			}
		}

		target := opts.target
		if opts.qbeTarget != "" && target == config.BackendQBE {
			target += "/" + opts.qbeTarget
		}
		if err := cfg.SetTarget(runtime.GOOS, runtime.GOARCH, target); err != nil {
			return report(err)
		}
		cfg.MasmInclude = opts.include

		input := defaultInput
		switch len(args) {
		case 0:
		case 1:
			input = args[0]
		default:
			return report(fmt.Errorf("expected one input file, got %d", len(args)))
		}
		if opts.logFile == "" {
			opts.logFile = defaultSyntaxLog
			if opts.lexOnly {
				opts.logFile = defaultTokensLog
			}
		}
		return compile(input, &opts, cfg)
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func report(err error) error {
	util.Report(os.Stderr, err)
	return err
}

// compile runs the pipeline on one file. On failure the log file receives
// the error text and no assembly is written.
func compile(input string, opts *options, cfg *config.Config) error {
	src, err := os.ReadFile(input)
	if err != nil {
		return report(fmt.Errorf("could not read file '%s': %w", input, err))
	}
	util.SetSourceFile(util.SourceFile{Name: input, Content: src})

	var logBuf bytes.Buffer
	fail := func(err error) error {
		report(err)
		if werr := os.WriteFile(opts.logFile, []byte(err.Error()+"\n"), 0o644); werr != nil {
			log.Warnf("could not write log '%s': %v", opts.logFile, werr)
		}
		return err
	}

	lex := lexer.NewLexer(src, cfg)
	if opts.lexOnly {
		log.Infof("Tokenizing '%s'...", input)
		toks, err := lex.Tokenize()
		if err != nil {
			return fail(err)
		}
		log.Debugf("%d tokens", len(toks))
		if err := lexer.WriteTokenTable(&logBuf, toks); err != nil {
			return fail(err)
		}
		return writeFile(opts.logFile, logBuf.Bytes())
	}

	log.Infof("Parsing '%s'...", input)
	root, err := parser.NewParser(lex, cfg).BuildTree()
	if err != nil {
		return fail(err)
	}
	if err := ast.Fprint(&logBuf, root); err != nil {
		return fail(err)
	}

	log.Info("Creating intermediate representation...")
	prog, err := codegen.NewContext(cfg).GenerateIR(root)
	if err != nil {
		return fail(err)
	}
	log.Debugf("%d instructions, frame of %d bytes", len(prog.Insts), prog.FrameSize)

	backend, err := codegen.SelectBackend(cfg.BackendName)
	if err != nil {
		return fail(err)
	}

	var out []byte
	if opts.dumpIR {
		log.Infof("Dumping IR for '%s' backend...", cfg.BackendName)
		text, err := backend.GenerateIR(prog, cfg)
		if err != nil {
			return fail(err)
		}
		out = []byte(text)
	} else {
		log.Infof("Generating code with '%s' backend...", cfg.BackendName)
		buf, err := backend.Generate(prog, cfg)
		if err != nil {
			return fail(err)
		}
		out = buf.Bytes()
	}

	if err := writeFile(opts.logFile, logBuf.Bytes()); err != nil {
		return err
	}
	log.Infof("Writing '%s'", opts.outFile)
	return writeFile(opts.outFile, out)
}

func writeFile(name string, data []byte) error {
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return report(fmt.Errorf("could not write '%s': %w", name, err))
	}
	return nil
}
