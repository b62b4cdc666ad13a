// Package config holds the compiler's tunable knobs: which optional
// diagnostics are enabled and which lowering-time peepholes run. It follows
// the teacher's Feature/Warning enum-with-Info-map shape (pkg/config in the
// original gbc), scoped down to the handful of switches this backend
// actually has — there is no dialect selection here, since the source
// language has no B/Bx-style standards.
package config

import "github.com/al-romanov/lama-compiler-2022/internal/cliutil"

// Feature toggles a compile-time behavior of the backend itself, as
// opposed to a diagnostic (see Warning).
type Feature int

const (
	// FeatOptimizeLabels enables the lab_used dead-label elimination
	// peephole (spec §4.1/§8.1 property 4). Disabling it emits every
	// LABEL the naive per-node contracts would produce, which is useful
	// when debugging the AST→SM compiler against -emit-sm output line by
	// line, but produces a strictly larger and still-correct program.
	FeatOptimizeLabels Feature = iota
	// FeatAsmComments controls whether the x86 lowerer prefixes each
	// generated instruction group with a "# <SM insn>" comment line.
	FeatAsmComments
	FeatCount
)

// Warning toggles an optional, non-fatal diagnostic.
type Warning int

const (
	// WarnShadow is the toggle for a warning on a Scope's Var/Val
	// declaration that reuses a name already bound in an enclosing scope.
	// The toggle is stored and is part of cmd/lamac's build-cache flag
	// signature; no compiler pass reads it, so no such warning is printed.
	WarnShadow Warning = iota
	// WarnUnusedLocal is the toggle for a warning on a Var/Val that a
	// Scope's body never reads. Like WarnShadow it is stored and is part of
	// the flag signature; no compiler pass reads it, so no such warning is
	// printed.
	WarnUnusedLocal
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

// Config is the mutable compile-session configuration built from CLI flags
// (internal/cliutil) before compilation starts and passed as *Config from
// there on — unlike the persistent compile/codegen environments, it never
// changes once compilation begins.
type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning
	WordSize   int
}

// NewConfig returns the default configuration: label optimization and asm
// comments on, no warnings enabled. WordSize is fixed at 4 (spec §3.5: the
// backend targets 32-bit x86 exclusively; there is no target-selection
// step the way gbc's QBE backend had one).
func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
		WordSize:   4,
	}

	features := map[Feature]Info{
		FeatOptimizeLabels: {"optimize-labels", true, "Elide LABELs that no JMP/CJMP/fall-through target reaches."},
		FeatAsmComments:    {"asm-comments", true, "Emit a comment line above each instruction's generated code."},
	}
	warnings := map[Warning]Info{
		WarnShadow:      {"shadow", false, "Warn when a declaration shadows an enclosing scope's binding."},
		WarnUnusedLocal: {"unused-local", false, "Warn when a declared var/val is never read in its own scope's body."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}
	return cfg
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

// SetupFlagGroups registers one -W<name>/-Wno-<name> pair per warning and
// one -F<name>/-Fno-<name> pair per feature on fs (spec's ambient CLI
// stack: this backend's warnings/features are toggled the way gbc's are,
// through cliutil's flag-group machinery rather than a hand-rolled parser).
// The returned slices are ordered by Warning/Feature enum value, so callers
// can apply them back with SetWarning(Warning(i), ...)/SetFeature(Feature(i), ...).
func (c *Config) SetupFlagGroups(fs *cliutil.FlagSet) (warnings, features []cliutil.FlagGroupEntry) {
	for wt := Warning(0); wt < WarnCount; wt++ {
		info := c.Warnings[wt]
		enabled, disabled := new(bool), new(bool)
		*enabled = info.Enabled
		warnings = append(warnings, cliutil.FlagGroupEntry{
			Name: info.Name, Prefix: "W", Usage: info.Description,
			Enabled: enabled, Disabled: disabled,
		})
	}
	for ft := Feature(0); ft < FeatCount; ft++ {
		info := c.Features[ft]
		enabled, disabled := new(bool), new(bool)
		*enabled = info.Enabled
		features = append(features, cliutil.FlagGroupEntry{
			Name: info.Name, Prefix: "F", Usage: info.Description,
			Enabled: enabled, Disabled: disabled,
		})
	}
	fs.AddFlagGroup("Warnings", "Toggle optional diagnostics.", "warning", "Available warnings:", warnings)
	fs.AddFlagGroup("Features", "Toggle optional lowering behavior.", "feature", "Available features:", features)
	return warnings, features
}
