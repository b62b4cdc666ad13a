package compiler

import (
	"bytes"
	"strings"
	"testing"

	"github.com/al-romanov/lama-compiler-2022/pkg/ast"
	"github.com/al-romanov/lama-compiler-2022/pkg/config"
	"github.com/al-romanov/lama-compiler-2022/pkg/interp"
	"github.com/al-romanov/lama-compiler-2022/pkg/sm"
)

// run compiles program to SM and executes it against pkg/interp, exercising
// the same round-trip property (spec §8.1.1) that a real build would check
// against the x86-lowered-and-linked binary, without gcc.
func run(t *testing.T, program *ast.Node, stdin string) string {
	t.Helper()
	code := Compile(program, config.NewConfig())
	var out bytes.Buffer
	m := interp.New(code, strings.NewReader(stdin), &out)
	if err := m.Run(); err != nil {
		t.Fatalf("interp.Run() error: %v\nSM:\n%s", err, sm.Listing(code))
	}
	return out.String()
}

func TestScenarioArithmeticExpression(t *testing.T) {
	// write(1 + 2 * 3) = 7
	program := ast.NewBuiltin(pos(), "write", []*ast.Node{
		ast.NewBinop(pos(), ast.Add,
			ast.NewConst(pos(), 1),
			ast.NewBinop(pos(), ast.Mul, ast.NewConst(pos(), 2), ast.NewConst(pos(), 3)),
		),
	})
	if got, want := run(t, program, ""), "7\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestScenarioReadWriteSquare(t *testing.T) {
	// var x; x := read(); write(x*x) = 36 given input 6
	program := ast.NewScope(pos(),
		[]*ast.Def{ast.NewDefVar(pos(), "x")},
		ast.NewSeq(pos(),
			ast.NewSet(pos(), "x", ast.NewBuiltin(pos(), "read", nil)),
			ast.NewBuiltin(pos(), "write", []*ast.Node{
				ast.NewBinop(pos(), ast.Mul, ast.NewVar(pos(), "x"), ast.NewVar(pos(), "x")),
			}),
		),
	)
	if got, want := run(t, program, "6\n"), "36\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestScenarioLoopSum(t *testing.T) {
	// var sum, i; sum := 0; i := 1; while (i <= 5) { sum := sum+i; i := i+1 };
	// write(sum) = 15
	program := ast.NewScope(pos(),
		[]*ast.Def{ast.NewDefVar(pos(), "sum", "i")},
		ast.NewSeq(pos(),
			ast.NewSet(pos(), "sum", ast.NewConst(pos(), 0)),
			ast.NewSeq(pos(),
				ast.NewSet(pos(), "i", ast.NewConst(pos(), 1)),
				ast.NewSeq(pos(),
					ast.NewWhile(pos(),
						ast.NewBinop(pos(), ast.Lte, ast.NewVar(pos(), "i"), ast.NewConst(pos(), 5)),
						ast.NewSeq(pos(),
							ast.NewSet(pos(), "sum", ast.NewBinop(pos(), ast.Add, ast.NewVar(pos(), "sum"), ast.NewVar(pos(), "i"))),
							ast.NewSet(pos(), "i", ast.NewBinop(pos(), ast.Add, ast.NewVar(pos(), "i"), ast.NewConst(pos(), 1))),
						),
					),
					ast.NewBuiltin(pos(), "write", []*ast.Node{ast.NewVar(pos(), "sum")}),
				),
			),
		),
	)
	if got, want := run(t, program, ""), "15\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestScenarioRecursiveFib(t *testing.T) {
	// fun fib(n) { if n <= 1 then n else fib(n-1) + fib(n-2) }; write(fib(10)) = 55
	fibBody := ast.NewIf(pos(),
		ast.NewBinop(pos(), ast.Lte, ast.NewVar(pos(), "n"), ast.NewConst(pos(), 1)),
		ast.NewVar(pos(), "n"),
		ast.NewBinop(pos(), ast.Add,
			ast.NewCall(pos(), "fib", []*ast.Node{ast.NewBinop(pos(), ast.Sub, ast.NewVar(pos(), "n"), ast.NewConst(pos(), 1))}),
			ast.NewCall(pos(), "fib", []*ast.Node{ast.NewBinop(pos(), ast.Sub, ast.NewVar(pos(), "n"), ast.NewConst(pos(), 2))}),
		),
	)
	program := ast.NewScope(pos(),
		[]*ast.Def{ast.NewDefFun(pos(), "fib", []string{"n"}, fibBody)},
		ast.NewBuiltin(pos(), "write", []*ast.Node{
			ast.NewCall(pos(), "fib", []*ast.Node{ast.NewConst(pos(), 10)}),
		}),
	)
	if got, want := run(t, program, ""), "55\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestScenarioArrayElemUpdate(t *testing.T) {
	// var arr; arr := [10,20,30]; arr[1] := 50; write(arr[1]) = 50
	program := ast.NewScope(pos(),
		[]*ast.Def{ast.NewDefVar(pos(), "arr")},
		ast.NewSeq(pos(),
			ast.NewSet(pos(), "arr", ast.NewArray(pos(), []*ast.Node{
				ast.NewConst(pos(), 10), ast.NewConst(pos(), 20), ast.NewConst(pos(), 30),
			})),
			ast.NewSeq(pos(),
				ast.NewIgnore(pos(), ast.NewAssn(pos(),
					ast.NewElemRef(pos(), ast.NewVar(pos(), "arr"), ast.NewConst(pos(), 1)),
					ast.NewConst(pos(), 50),
				)),
				ast.NewBuiltin(pos(), "write", []*ast.Node{
					ast.NewElem(pos(), ast.NewVar(pos(), "arr"), ast.NewConst(pos(), 1)),
				}),
			),
		),
	)
	if got, want := run(t, program, ""), "50\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestScenarioIfTailInCallArgument(t *testing.T) {
	// write(if 1 then 5 else 6) = 5. Regresses a bug where the leftmost
	// argument inherited the caller's continuation label even though
	// BUILTIN trails it, so the then-branch's JMP skipped the BUILTIN call
	// entirely.
	program := ast.NewBuiltin(pos(), "write", []*ast.Node{
		ast.NewIf(pos(), ast.NewConst(pos(), 1), ast.NewConst(pos(), 5), ast.NewConst(pos(), 6)),
	})
	if got, want := run(t, program, ""), "5\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestScenarioIfTailInAssignmentRHS(t *testing.T) {
	// var arr; arr := [0]; arr[0] := if 1 then 5 else 6; write(arr[0]) = 5.
	// Regresses a bug where Assn's RHS inherited the caller's continuation
	// label even though STI/STA trails it, so the then-branch's JMP skipped
	// the store and left the LHS address on the symbolic stack forever.
	program := ast.NewScope(pos(),
		[]*ast.Def{ast.NewDefVar(pos(), "arr")},
		ast.NewSeq(pos(),
			ast.NewSet(pos(), "arr", ast.NewArray(pos(), []*ast.Node{ast.NewConst(pos(), 0)})),
			ast.NewSeq(pos(),
				ast.NewIgnore(pos(), ast.NewAssn(pos(),
					ast.NewElemRef(pos(), ast.NewVar(pos(), "arr"), ast.NewConst(pos(), 0)),
					ast.NewIf(pos(), ast.NewConst(pos(), 1), ast.NewConst(pos(), 5), ast.NewConst(pos(), 6)),
				)),
				ast.NewBuiltin(pos(), "write", []*ast.Node{
					ast.NewElem(pos(), ast.NewVar(pos(), "arr"), ast.NewConst(pos(), 0)),
				}),
			),
		),
	)
	if got, want := run(t, program, ""), "5\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestScenarioIfTailInElemIndex(t *testing.T) {
	// var arr; arr := [10,20]; write(arr[if 1 then 0 else 1]) = 10.
	// Regresses a bug where Elem's index inherited the caller's
	// continuation label even though ELEM trails it, so the then-branch's
	// JMP skipped the ELEM call entirely.
	program := ast.NewScope(pos(),
		[]*ast.Def{ast.NewDefVar(pos(), "arr")},
		ast.NewSeq(pos(),
			ast.NewSet(pos(), "arr", ast.NewArray(pos(), []*ast.Node{ast.NewConst(pos(), 10), ast.NewConst(pos(), 20)})),
			ast.NewBuiltin(pos(), "write", []*ast.Node{
				ast.NewElem(pos(), ast.NewVar(pos(), "arr"),
					ast.NewIf(pos(), ast.NewConst(pos(), 1), ast.NewConst(pos(), 0), ast.NewConst(pos(), 1)),
				),
			}),
		),
	)
	if got, want := run(t, program, ""), "10\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestScenarioStringLength(t *testing.T) {
	// write(length("hello")) = 5
	program := ast.NewBuiltin(pos(), "write", []*ast.Node{
		ast.NewBuiltin(pos(), "length", []*ast.Node{ast.NewString(pos(), "hello")}),
	})
	if got, want := run(t, program, ""), "5\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}
