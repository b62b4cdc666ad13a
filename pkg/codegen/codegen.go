package codegen

import (
	"github.com/al-romanov/lama-compiler-2022/pkg/config"
	"github.com/al-romanov/lama-compiler-2022/pkg/sm"
)

// Generate lowers an SM instruction stream straight to text (spec §4.2,
// §6.3): the entry point pkg/compiler's callers use, composing Lower and
// Print so neither the Program intermediate nor the Env ever need to
// leave this package.
func Generate(code []sm.Insn, cfg *config.Config) string {
	return Print(Lower(code, cfg))
}
