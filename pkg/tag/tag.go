// Package tag computes the integer hash the runtime uses to identify
// s-expression tags (spec §6.2, §9). The x86 lowerer pushes this value as
// the extra "n+1"-th argument to Bsexp; the runtime's own pattern-match
// dispatch recomputes the same hash from a boxed sexp's stored tag string,
// so the two implementations must agree bit for bit — this package exists
// solely to keep that one algorithm in a single, tested place rather than
// inlined at its one call site in pkg/codegen.
package tag

// hashBase is the multiplier of the polynomial rolling hash: djb2's
// classic 33 collides badly on short all-ASCII identifiers (tag names in
// practice are short constructor-style words like "cons", "nil", "Some"),
// so this package uses the odd prime 53 instead. No runtime is part of
// this repository; the tests check the recurrence itself, not agreement
// with a runtime build.
const hashBase = 53

// Hash computes the runtime's tag hash. Overflow wraps the same way it
// does in the runtime's 32-bit `int`, so the low 32 bits of a Go int32
// computation reproduce it exactly.
func Hash(name string) int32 {
	var h int32
	for i := 0; i < len(name); i++ {
		h = h*hashBase + int32(name[i])
	}
	return h
}
