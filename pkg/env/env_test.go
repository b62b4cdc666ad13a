package env

import (
	"testing"

	"github.com/al-romanov/lama-compiler-2022/pkg/loc"
)

func topLevel() Env {
	e := New()
	e = e.EnterFunction(nil)
	e = e.EnterScope()
	return e
}

func TestNextLabelIsSequentialAndDeterministic(t *testing.T) {
	e := New()
	var labels []string
	for i := 0; i < 3; i++ {
		var l string
		e, l = e.NextLabel()
		labels = append(labels, l)
	}
	want := []string{"L0", "L1", "L2"}
	for i, l := range labels {
		if l != want[i] {
			t.Fatalf("label %d = %s, want %s", i, l, want[i])
		}
	}
}

func TestIsTopLevelAfterOneFunctionAndOneScope(t *testing.T) {
	e := New()
	if e.IsTopLevel() {
		t.Fatal("fresh Env should not report top level")
	}
	e = e.EnterFunction(nil)
	if e.IsTopLevel() {
		t.Fatal("after EnterFunction alone, should not yet be top level")
	}
	e = e.EnterScope()
	if !e.IsTopLevel() {
		t.Fatal("after EnterFunction+EnterScope, should be top level")
	}
}

func TestFunctionLabelTopLevelDoesNotConsumeLabelCounter(t *testing.T) {
	e := topLevel()
	e, before := e.NextLabel() // "L0"
	e, label := e.FunctionLabel("fib")
	if label != "Lfib" {
		t.Fatalf("top-level FunctionLabel(%q) = %q, want %q", "fib", label, "Lfib")
	}
	// FunctionLabel at top level must not allocate a fresh numbered label,
	// so the next NextLabel call picks up right after "before".
	_, after := e.NextLabel()
	if before != "L0" || after != "L1" {
		t.Fatalf("labels around a top-level FunctionLabel call = %s, %s, want L0, L1", before, after)
	}
}

func TestFunctionLabelNestedUsesNumberedSuffix(t *testing.T) {
	e := topLevel()
	e = e.EnterScope() // simulate a nested block, scopeDepth == 3
	e, label := e.FunctionLabel("helper")
	if got, want := label[:len("Lhelper_")], "Lhelper_"; got != want {
		t.Fatalf("nested FunctionLabel(%q) = %q, want prefix %q", "helper", label, want)
	}
}

func TestAddVarTopLevelBindsGlobal(t *testing.T) {
	e := topLevel()
	e, l := e.AddVar("x")
	if l.Kind != loc.Glb {
		t.Fatalf("top-level AddVar bound Kind %v, want Glb", l.Kind)
	}
	if l.Name != "x" || !l.Mutable {
		t.Fatalf("AddVar(x) = %+v, want Name=x Mutable=true", l)
	}
}

func TestAddValNestedBindsIncrementingLocal(t *testing.T) {
	e := topLevel()
	e = e.EnterScope()
	e, l0 := e.AddVal("a")
	e, l1 := e.AddVal("b")
	if l0.Kind != loc.Loc || l1.Kind != loc.Loc {
		t.Fatalf("nested AddVal bound Kind %v/%v, want Loc/Loc", l0.Kind, l1.Kind)
	}
	if l0.Index != 0 || l1.Index != 1 {
		t.Fatalf("AddVal indices = %d,%d, want 0,1", l0.Index, l1.Index)
	}
	if l0.Mutable || l1.Mutable {
		t.Fatal("AddVal must bind immutable slots")
	}
	if e.NLocals() != 2 {
		t.Fatalf("NLocals() = %d, want 2", e.NLocals())
	}
}

func TestLookupVarRejectsImmutableAndFunctions(t *testing.T) {
	e := topLevel()
	e = e.EnterScope()
	e, _ = e.AddVal("k")
	e = e.AddFun("f", "Lf", 0)

	if _, found, ok := e.LookupVar("k"); !found || ok {
		t.Fatalf("LookupVar(k) = found=%v ok=%v, want found=true ok=false (val is immutable)", found, ok)
	}
	if _, found, ok := e.LookupVar("f"); !found || ok {
		t.Fatalf("LookupVar(f) = found=%v ok=%v, want found=true ok=false (functions aren't variables)", found, ok)
	}
	if _, found, _ := e.LookupVar("nope"); found {
		t.Fatal("LookupVar found an unbound name")
	}
}

func TestLookupValAcceptsEitherMutability(t *testing.T) {
	e := topLevel()
	e = e.EnterScope()
	e, _ = e.AddVar("v")
	e, _ = e.AddVal("k")

	if _, found, ok := e.LookupVal("v"); !found || !ok {
		t.Fatal("LookupVal should accept a mutable var")
	}
	if _, found, ok := e.LookupVal("k"); !found || !ok {
		t.Fatal("LookupVal should accept an immutable val")
	}
}

func TestShadowingResolvesToInnermostBinding(t *testing.T) {
	e := topLevel()
	e = e.EnterScope()
	e, outer := e.AddVal("x")
	saved := e
	e = e.EnterScope()
	e, inner := e.AddVal("x")

	l, _, _ := e.LookupVal("x")
	if l != inner {
		t.Fatalf("inner scope resolved x to %v, want %v", l, inner)
	}

	e = e.LeaveScope(saved)
	l, _, _ = e.LookupVal("x")
	if l != outer {
		t.Fatalf("after LeaveScope, x resolved to %v, want %v", l, outer)
	}
}

func TestEnqueueDequeueCapturesDeclarationTimeScope(t *testing.T) {
	e := topLevel()
	e, _ = e.AddVal("visible")
	e = e.Enqueue("Lf", []string{"n"}, nil)
	e, _ = e.AddVal("declared_after")

	e, pf, ok := e.Dequeue()
	if !ok {
		t.Fatal("Dequeue on a non-empty queue reported empty")
	}
	if pf.Label != "Lf" {
		t.Fatalf("Dequeue.Label = %q, want Lf", pf.Label)
	}

	// The dequeued Env's scope should see "visible" but not the binding
	// added to the enclosing scope after Enqueue captured its snapshot.
	if _, found, _ := e.LookupVal("visible"); !found {
		t.Fatal("dequeued function's scope lost a binding present at enqueue time")
	}
	if _, found, _ := e.LookupVal("declared_after"); found {
		t.Fatal("dequeued function's scope leaked a binding added after enqueue time")
	}
}

func TestDequeueEmptyQueue(t *testing.T) {
	e := New()
	_, _, ok := e.Dequeue()
	if ok {
		t.Fatal("Dequeue on an empty queue reported a function")
	}
}

func TestMergeGlobalsCarriesLabelCounterAndQueue(t *testing.T) {
	e := New()
	inner := e
	inner, _ = inner.NextLabel()
	inner, _ = inner.NextLabel()
	inner = inner.Enqueue("Lnested", nil, nil)

	e = e.MergeGlobals(inner)
	_, l := e.NextLabel()
	if l != "L2" {
		t.Fatalf("after MergeGlobals, next label = %s, want L2", l)
	}
	if len(e.pending) != 1 {
		t.Fatalf("after MergeGlobals, pending queue has %d entries, want 1", len(e.pending))
	}
}
