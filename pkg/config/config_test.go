package config

import (
	"testing"

	"github.com/yolomachine/PotatoCompiler/pkg/cli"
)

func TestDefaults(t *testing.T) {
	cfg := NewConfig()
	for ft, want := range map[Feature]bool{
		FeatNestedComments: true,
		FeatForLoops:       true,
		FeatOuterScope:     true,
		FeatFoldConstants:  false,
	} {
		if got := cfg.IsFeatureEnabled(ft); got != want {
			t.Errorf("feature %s enabled = %v, want %v", cfg.Features[ft].Name, got, want)
		}
	}
	if cfg.BackendName != BackendMASM || cfg.WordSize != 4 {
		t.Errorf("default backend %s with word size %d", cfg.BackendName, cfg.WordSize)
	}
}

func TestApplyFlag(t *testing.T) {
	cfg := NewConfig()
	for _, flag := range []string{"-Wno-all", "-Woverflow", "-Fno-outer-scope", "-Ffold-constants"} {
		if err := cfg.ApplyFlag(flag); err != nil {
			t.Fatalf("ApplyFlag(%q): %v", flag, err)
		}
	}
	if !cfg.IsWarningEnabled(WarnOverflow) || cfg.IsWarningEnabled(WarnCharCode) || cfg.IsWarningEnabled(WarnExtra) {
		t.Error("warnings not applied in order")
	}
	if cfg.IsFeatureEnabled(FeatOuterScope) || !cfg.IsFeatureEnabled(FeatFoldConstants) {
		t.Error("features not applied")
	}

	for flag, want := range map[string]string{
		"-Wbogus":   "unknown warning 'bogus'",
		"-Fno-sets": "unknown feature 'sets'",
		"-X":        "malformed flag '-X'",
		"-Xfoo":     "malformed flag '-Xfoo'",
	} {
		if err := cfg.ApplyFlag(flag); err == nil || err.Error() != want {
			t.Errorf("ApplyFlag(%q) = %v, want %q", flag, err, want)
		}
	}
}

func TestFlagGroups(t *testing.T) {
	cfg := NewConfig()
	fs := cli.NewFlagSet("test")
	warnings, features := cfg.SetupFlagGroups(fs)
	if err := fs.Parse([]string{"-Wno-overflow", "-Fno-for-loops", "-Ffold-constants", "prog.pas"}); err != nil {
		t.Fatal(err)
	}
	cfg.ApplyFlagGroups(warnings, features)

	if cfg.IsWarningEnabled(WarnOverflow) || !cfg.IsWarningEnabled(WarnNotLowered) {
		t.Error("warning switches not applied")
	}
	if cfg.IsFeatureEnabled(FeatForLoops) || !cfg.IsFeatureEnabled(FeatFoldConstants) || !cfg.IsFeatureEnabled(FeatNestedComments) {
		t.Error("feature switches not applied")
	}
	if args := fs.Args(); len(args) != 1 || args[0] != "prog.pas" {
		t.Errorf("positional args = %v", args)
	}
}

func TestSetTarget(t *testing.T) {
	tests := []struct {
		target   string
		backend  string
		abi      string
		wordSize int
		wantErr  bool
	}{
		{target: "masm", backend: BackendMASM, wordSize: 4},
		{target: "", backend: BackendMASM, wordSize: 4},
		{target: "qbe/amd64_sysv", backend: BackendQBE, abi: "amd64_sysv", wordSize: 8},
		{target: "qbe/arm64_apple", backend: BackendQBE, abi: "arm64_apple", wordSize: 8},
		{target: "qbe/i386", wantErr: true},
		{target: "llvm", wantErr: true},
	}
	for _, tt := range tests {
		cfg := NewConfig()
		err := cfg.SetTarget("linux", "amd64", tt.target)
		if tt.wantErr {
			if err == nil {
				t.Errorf("SetTarget(%q) succeeded", tt.target)
			}
			continue
		}
		if err != nil {
			t.Errorf("SetTarget(%q): %v", tt.target, err)
			continue
		}
		if cfg.BackendName != tt.backend || cfg.QbeTarget != tt.abi || cfg.WordSize != tt.wordSize {
			t.Errorf("SetTarget(%q) = %s %q %d", tt.target, cfg.BackendName, cfg.QbeTarget, cfg.WordSize)
		}
	}
}
