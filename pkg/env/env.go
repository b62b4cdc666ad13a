// Package env implements the persistent compile environment of spec §3.4:
// a lexical symbol table, a label-id counter, the current scope depth and
// function context, and a queue of pending (hoisted) nested functions.
//
// Every mutator is a method with a value receiver that returns a new Env;
// callers thread the returned value forward instead of observing mutation,
// so a stale Env from an earlier branch of a recursive compile can never
// leak bindings into a sibling branch. Env itself stays a small value type
// (no heap-mutable maps) the way the teacher's scope/symbol linked list
// (pkg/codegen's `scope`/`symbol` pair) is a chain of small immutable
// nodes; we generalize the "chain of nodes, find walks it" idea and make
// the walk itself side-effect-free.
package env

import (
	"fmt"

	"github.com/al-romanov/lama-compiler-2022/pkg/ast"
	"github.com/al-romanov/lama-compiler-2022/pkg/loc"
)

type binding struct {
	parent *binding
	name   string
	loc    loc.Location
}

// PendingFunc is one nested function hoisted out of a Scope, waiting to be
// compiled when it reaches the front of the queue (spec §3.4, §4.1).
type PendingFunc struct {
	Label       string
	Args        []string
	Body        *ast.Node
	captured    *binding
	capturedDep int
}

// Env is the persistent compile environment.
type Env struct {
	nextLabelID int
	scope       *binding
	scopeDepth  int
	nLocals     int
	nArgs       int
	pending     []PendingFunc

	// OptimizeLabels mirrors config.FeatOptimizeLabels: when false, every
	// LABEL a per-node contract could reuse is instead emitted, so the
	// compiler never actually relies on nextLabelUsed? — useful for
	// diffing -emit-sm output against the naive, unoptimized contracts in
	// spec §4.1 line by line.
	OptimizeLabels bool
}

// New returns the environment the top-level program is compiled in, before
// it has been wrapped into the implicit "main" function (spec §4.1's
// top-level pipeline wraps the program as Fun("main", [], stmt)), with the
// label-reuse peephole enabled.
func New() Env {
	return Env{OptimizeLabels: true}
}

// NewWithOptions returns the top-level environment with the label-reuse
// peephole toggled explicitly, per config.FeatOptimizeLabels.
func NewWithOptions(optimizeLabels bool) Env {
	return Env{OptimizeLabels: optimizeLabels}
}

// NextLabel allocates a fresh control-flow label, e.g. "L7". Label ids are
// assigned in traversal order (spec §8.1 property 5: deterministic label
// naming), which is exactly what a plain incrementing counter threaded
// through recursion gives for free.
func (e Env) NextLabel() (Env, string) {
	e.nextLabelID++
	return e, fmt.Sprintf("L%d", e.nextLabelID-1)
}

// FunctionLabel allocates the SM label for a newly declared function, per
// spec §4.1: "L<name>" at global scope (scopeDepth == 2, i.e. the
// program's top level), "L<name>_<id>" otherwise.
func (e Env) FunctionLabel(name string) (Env, string) {
	if e.scopeDepth == 2 {
		return e, "L" + name
	}
	e, id := e.NextLabel()
	return e, "L" + name + "_" + id[1:]
}

// EnterFunction starts a new function scope: resets nLocals to 0 (spec
// §3.4 invariant: nLocals counts only the current function's locals),
// binds each argument name to Arg(i), and increments scopeDepth.
func (e Env) EnterFunction(argNames []string) Env {
	e.scopeDepth++
	e.nLocals = 0
	e.nArgs = len(argNames)
	for i, name := range argNames {
		e.scope = &binding{parent: e.scope, name: name, loc: loc.NewArg(i)}
	}
	return e
}

// EnterScope opens a nested lexical block (spec §3.4: scopeDepth == 2 is
// the program's top-level scope, i.e. one EnterFunction + one EnterScope
// from the initial Env).
func (e Env) EnterScope() Env {
	e.scopeDepth++
	return e
}

// LeaveScope closes the innermost lexical block, restoring the scope chain
// to what it was before the matching EnterScope/EnterFunction. It does not
// touch nLocals: locals persist for the whole function, not just the
// block that declared them (so nested blocks never reuse a slot that an
// outer block's still-live variable occupies).
func (e Env) LeaveScope(before Env) Env {
	return Env{
		nextLabelID:    e.nextLabelID,
		scope:          before.scope,
		scopeDepth:     before.scopeDepth,
		nLocals:        e.nLocals,
		nArgs:          before.nArgs,
		pending:        e.pending,
		OptimizeLabels: e.OptimizeLabels,
	}
}

// IsTopLevel reports whether the current scope is the program's top level
// (spec §3.4 invariant: scopeDepth == 2).
func (e Env) IsTopLevel() bool { return e.scopeDepth == 2 }

// AddVar binds name as a mutable ("var") slot: a Glb at top level, a Loc
// otherwise. Returns the new Env and the resolved Location; for a global
// the caller emits the GLOBAL pseudo-instruction into the enclosing
// Scope's prelude itself (spec §4.1 Scope case, step 2).
func (e Env) AddVar(name string) (Env, loc.Location) {
	return e.addName(name, true)
}

// AddVal binds name as an immutable ("val") slot.
func (e Env) AddVal(name string) (Env, loc.Location) {
	return e.addName(name, false)
}

func (e Env) addName(name string, mutable bool) (Env, loc.Location) {
	var l loc.Location
	if e.IsTopLevel() {
		l = loc.NewGlb(name, mutable)
	} else {
		l = loc.NewLoc(e.nLocals, mutable)
		e.nLocals++
	}
	e.scope = &binding{parent: e.scope, name: name, loc: l}
	return e, l
}

// AddFun binds name to a callable Location in the current scope. Functions
// are visible in their own defining scope (including to themselves and
// their siblings), which is what lets mutually- and self-recursive nested
// functions resolve each other.
func (e Env) AddFun(name, label string, arity int) Env {
	e.scope = &binding{parent: e.scope, name: name, loc: loc.NewFun(label, arity)}
	return e
}

// Enqueue appends a hoisted function definition to the pending queue,
// capturing the *current* symbol chain and scope depth so the function's
// body sees exactly the bindings visible at its point of declaration
// (spec §4.1 Scope case, step 3: "captures the current symbol state for
// closure-free lexical lookup").
func (e Env) Enqueue(label string, args []string, body *ast.Node) Env {
	pf := PendingFunc{
		Label:       label,
		Args:        args,
		Body:        body,
		captured:    e.scope,
		capturedDep: e.scopeDepth,
	}
	pending := make([]PendingFunc, len(e.pending), len(e.pending)+1)
	copy(pending, e.pending)
	e.pending = append(pending, pf)
	return e
}

// Dequeue pops the oldest pending function (FIFO; spec §9 notes the queue
// order affects label numbering but not correctness) and returns an Env
// whose lexical scope has been rebuilt from that function's captured
// state — ready to pass to EnterFunction for its argument bindings. The
// global counters (nextLabelID, the remaining pending queue) are carried
// forward from e, not from the snapshot, since those are truly global,
// not lexically scoped.
func (e Env) Dequeue() (Env, PendingFunc, bool) {
	if len(e.pending) == 0 {
		return e, PendingFunc{}, false
	}
	pf := e.pending[0]
	rest := make([]PendingFunc, len(e.pending)-1)
	copy(rest, e.pending[1:])
	e.pending = rest
	e.scope = pf.captured
	e.scopeDepth = pf.capturedDep
	e.nLocals = 0
	e.nArgs = 0
	return e, pf, true
}

// MergeGlobals copies the global counters (label ids, pending queue) from
// other into e, keeping e's own lexical fields untouched. Used by the
// top-level drain loop in pkg/compiler to fold a just-compiled function's
// side effects (new labels allocated, new nested functions hoisted) back
// into the environment driving the loop, without importing that
// function's now-irrelevant local scope.
func (e Env) MergeGlobals(other Env) Env {
	e.nextLabelID = other.nextLabelID
	e.pending = other.pending
	return e
}

// NLocals is the number of local slots used so far in the current
// function. At the end of compiling a function's body this is the localc
// operand of its BEGIN instruction (spec §4.1).
func (e Env) NLocals() int { return e.nLocals }

func (e Env) find(name string) (loc.Location, bool) {
	for b := e.scope; b != nil; b = b.parent {
		if b.name == name {
			return b.loc, true
		}
	}
	return loc.Location{}, false
}

// LookupVar resolves name for a Ref or Set, requiring a mutable binding
// (spec §3.2: lookupVar rejects non-mutable). ok is false both when the
// name is unresolved and when it resolves to something other than a
// mutable Arg/Loc/Glb (the caller distinguishes the two for its error
// message).
func (e Env) LookupVar(name string) (loc.Location, bool, bool) {
	l, found := e.find(name)
	if !found {
		return loc.Location{}, false, false
	}
	if l.Kind == loc.Fun || !l.Mutable {
		return l, true, false
	}
	return l, true, true
}

// LookupVal resolves name for a Var read, accepting either mutability
// (spec §3.2: lookupVal accepts either).
func (e Env) LookupVal(name string) (loc.Location, bool, bool) {
	l, found := e.find(name)
	if !found {
		return loc.Location{}, false, false
	}
	if l.Kind == loc.Fun {
		return l, true, false
	}
	return l, true, true
}

// LookupFun resolves name for a Call/Builtin target.
func (e Env) LookupFun(name string) (loc.Location, bool, bool) {
	l, found := e.find(name)
	if !found {
		return loc.Location{}, false, false
	}
	if l.Kind != loc.Fun {
		return l, true, false
	}
	return l, true, true
}
