// Package loc defines the location kinds a source name can resolve to
// (spec §3.2): an argument slot, a local slot, a named global, or a
// callable. It is the shared vocabulary between the compile environment
// (pkg/env), the AST→SM compiler (pkg/compiler), and the SM→x86 lowerer
// (pkg/codegen), which is why it lives in its own leaf package rather than
// inside any one of them.
package loc

import "fmt"

// Kind discriminates the four ways a name can be bound.
type Kind int

const (
	Arg Kind = iota
	Loc
	Glb
	Fun
)

// Location is the resolved binding of a source name.
//
// Arg and Loc carry Index (the argument or local slot number). Glb carries
// Name. Fun carries Label (starting with "$" for a runtime builtin, a plain
// identifier otherwise) and Arity. Mutable distinguishes `var` (true) from
// `val` (false) for Arg/Loc/Glb; it is meaningless for Fun.
type Location struct {
	Kind    Kind
	Index   int
	Name    string
	Label   string
	Arity   int
	Mutable bool
}

func NewArg(index int) Location { return Location{Kind: Arg, Index: index, Mutable: true} }

func NewLoc(index int, mutable bool) Location {
	return Location{Kind: Loc, Index: index, Mutable: mutable}
}

func NewGlb(name string, mutable bool) Location {
	return Location{Kind: Glb, Name: name, Mutable: mutable}
}

func NewFun(label string, arity int) Location {
	return Location{Kind: Fun, Label: label, Arity: arity}
}

// IsBuiltin reports whether a Fun location names a runtime builtin, per the
// "$"-prefix convention of spec §3.2.
func (l Location) IsBuiltin() bool {
	return l.Kind == Fun && len(l.Label) > 0 && l.Label[0] == '$'
}

func (l Location) String() string {
	switch l.Kind {
	case Arg:
		return fmt.Sprintf("Arg(%d)", l.Index)
	case Loc:
		return fmt.Sprintf("Loc(%d,mut=%v)", l.Index, l.Mutable)
	case Glb:
		return fmt.Sprintf("Glb(%s,mut=%v)", l.Name, l.Mutable)
	case Fun:
		return fmt.Sprintf("Fun(%s/%d)", l.Label, l.Arity)
	default:
		return "<invalid location>"
	}
}
