package config

import (
	"fmt"
	"strings"

	"github.com/yolomachine/PotatoCompiler/pkg/cli"
	"modernc.org/libqbe"
)

type Feature int

const (
	FeatNestedComments Feature = iota
	FeatForLoops
	FeatOuterScope
	FeatFoldConstants
	FeatCount
)

type Warning int

const (
	WarnNotLowered Warning = iota
	WarnCharCode
	WarnOverflow
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

const (
	BackendMASM = "masm"
	BackendQBE  = "qbe"

	DefaultMasmInclude = `G:\masm32\include\masm32rt.inc`
)

type Config struct {
	Features    map[Feature]Info
	Warnings    map[Warning]Info
	FeatureMap  map[string]Feature
	WarningMap  map[string]Warning
	BackendName string
	QbeTarget   string
	MasmInclude string
	WordSize    int
}

func NewConfig() *Config {
	cfg := &Config{
		FeatureMap:  make(map[string]Feature),
		WarningMap:  make(map[string]Warning),
		BackendName: BackendMASM,
		MasmInclude: DefaultMasmInclude,
		WordSize:    4,
	}

	cfg.Features = map[Feature]Info{
		FeatNestedComments: {"nested-comments", true, "Allow comments of the same kind to nest, e.g. '{ a { b } c }'."},
		FeatForLoops:       {"for-loops", true, "Generate code for 'for' statements. When disabled they are parsed but emit nothing."},
		FeatOuterScope:     {"outer-scope", true, "Let routines look up identifiers declared in enclosing scopes."},
		FeatFoldConstants:  {"fold-constants", false, "Evaluate operators on literal operands before generating code."},
	}
	cfg.Warnings = map[Warning]Info{
		WarnNotLowered: {"not-lowered", true, "Warn when a declaration or initializer has no generated code."},
		WarnCharCode:   {"char-code", true, "Warn when a '#' character code does not fit in a byte."},
		WarnOverflow:   {"overflow", true, "Warn when an integer constant does not fit in a 32-bit word."},
		WarnExtra:      {"extra", true, "Enable extra miscellaneous warnings."},
	}

	for ft, info := range cfg.Features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range cfg.Warnings {
		cfg.WarningMap[info.Name] = wt
	}
	return cfg
}

// SetTarget selects the backend and, for QBE, the target ABI. A target of the
// form "qbe/<abi>" picks an explicit ABI; bare "qbe" falls back to the host.
func (c *Config) SetTarget(goos, goarch, target string) error {
	backend, abi, _ := strings.Cut(target, "/")
	switch backend {
	case "", BackendMASM:
		c.BackendName, c.WordSize = BackendMASM, 4
		return nil
	case BackendQBE:
		c.BackendName = BackendQBE
	default:
		return fmt.Errorf("unsupported backend '%s'. Supported: '%s', '%s'", backend, BackendMASM, BackendQBE)
	}

	if abi == "" {
		abi = libqbe.DefaultTarget(goos, goarch)
	}
	c.QbeTarget = abi
	switch abi {
	case "amd64_sysv", "amd64_apple", "arm64", "arm64_apple", "rv64":
		c.WordSize = 8
	default:
		return fmt.Errorf("unsupported QBE target '%s'", abi)
	}
	return nil
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// ApplyFlag handles a single "-W<name>", "-Wno-<name>", "-F<name>" or
// "-Fno-<name>" switch. "-Wall" and "-Wno-all" toggle every warning.
func (c *Config) ApplyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	if len(trimmed) < 2 {
		return fmt.Errorf("malformed flag '%s'", flag)
	}
	group, name := trimmed[0], trimmed[1:]
	enable := !strings.HasPrefix(name, "no-")
	name = strings.TrimPrefix(name, "no-")

	switch group {
	case 'W':
		if name == "all" {
			for i := Warning(0); i < WarnCount; i++ {
				c.SetWarning(i, enable)
			}
			return nil
		}
		wt, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("unknown warning '%s'", name)
		}
		c.SetWarning(wt, enable)
	case 'F':
		ft, ok := c.FeatureMap[name]
		if !ok {
			return fmt.Errorf("unknown feature '%s'", name)
		}
		c.SetFeature(ft, enable)
	default:
		return fmt.Errorf("malformed flag '%s'", flag)
	}
	return nil
}

// SetupFlagGroups registers one enable/disable pair per warning and feature.
// The returned entries are indexed by Warning and Feature respectively.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) ([]cli.FlagGroupEntry, []cli.FlagGroupEntry) {
	warningFlags := make([]cli.FlagGroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		enabled, disabled := info.Enabled, false
		warningFlags[i] = cli.FlagGroupEntry{Name: info.Name, Prefix: "W", Usage: info.Description, Enabled: &enabled, Disabled: &disabled}
	}
	featureFlags := make([]cli.FlagGroupEntry, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		enabled, disabled := info.Enabled, false
		featureFlags[i] = cli.FlagGroupEntry{Name: info.Name, Prefix: "F", Usage: info.Description, Enabled: &enabled, Disabled: &disabled}
	}
	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning", "Available Warnings:", warningFlags)
	fs.AddFlagGroup("Feature Flags", "Enable or disable specific features", "feature", "Available Features:", featureFlags)
	return warningFlags, featureFlags
}

// ApplyFlagGroups copies the parsed group switches back into the config.
func (c *Config) ApplyFlagGroups(warningFlags, featureFlags []cli.FlagGroupEntry) {
	for i, entry := range warningFlags {
		c.SetWarning(Warning(i), *entry.Enabled && !*entry.Disabled)
	}
	for i, entry := range featureFlags {
		c.SetFeature(Feature(i), *entry.Enabled && !*entry.Disabled)
	}
}
