package codegen

import (
	"strings"
	"testing"

	"github.com/al-romanov/lama-compiler-2022/pkg/ast"
	"github.com/al-romanov/lama-compiler-2022/pkg/config"
	"github.com/al-romanov/lama-compiler-2022/pkg/loc"
	"github.com/al-romanov/lama-compiler-2022/pkg/sm"
	"github.com/google/go-cmp/cmp"
)

func TestGenerateSimpleArithmeticFunction(t *testing.T) {
	code := []sm.Insn{
		sm.Label("main"),
		sm.Begin("main", 0, 0),
		sm.Const(1),
		sm.Const(2),
		sm.Binop(ast.Add),
		sm.End(),
	}
	want := strings.Join([]string{
		"\t.data",
		"",
		"\t.text",
		"\t.global\tmain",
		"\t# LABEL main",
		"main:",
		"\t# BEGIN main 0 0",
		"\tpushl\t%ebp",
		"\tmovl\t%esp, %ebp",
		"\tsubl\t$main_SIZE, %esp",
		"\t# CONST 1",
		"\tmovl\t$1, %ebx",
		"\t# CONST 2",
		"\tmovl\t$2, %ecx",
		"\t# BINOP +",
		"\taddl\t%ecx, %ebx",
		"\t# END",
		"\tmovl\t%ebp, %esp",
		"\tpopl\t%ebp",
		"\txorl\t%eax, %eax",
		"\tret",
		"\t.set\tmain_SIZE, 0",
		"",
	}, "\n")

	got := Generate(code, config.NewConfig())
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Generate() mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateWithoutAsmCommentsOmitsCommentLines(t *testing.T) {
	code := []sm.Insn{sm.Label("main"), sm.Begin("main", 0, 0), sm.Const(1), sm.End()}
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatAsmComments, false)
	got := Generate(code, cfg)
	if strings.Contains(got, "#") {
		t.Errorf("expected no comment lines with asm-comments disabled, got:\n%s", got)
	}
}

func TestGenerateEmitsGlobalDataSlot(t *testing.T) {
	code := []sm.Insn{
		sm.Label("main"),
		sm.Begin("main", 0, 0),
		sm.Global("counter"),
		sm.Const(0),
		sm.End(),
	}
	got := Generate(code, config.NewConfig())
	if !strings.Contains(got, "global_counter:\n\t.int\t0\n") {
		t.Errorf("expected a .data slot for the declared global, got:\n%s", got)
	}
}

func TestGenerateInternsStringLiteral(t *testing.T) {
	code := []sm.Insn{
		sm.Label("main"),
		sm.Begin("main", 0, 0),
		sm.Str("hi\n"),
		sm.End(),
	}
	got := Generate(code, config.NewConfig())
	if !strings.Contains(got, `string_0:`) {
		t.Errorf("expected an interned string_0 label, got:\n%s", got)
	}
	if !strings.Contains(got, "\t.string\t\"hi\\n\"") {
		t.Errorf("expected the escaped literal in .data, got:\n%s", got)
	}
}

func TestGenerateElemPushesContainerLastMatchingBelemSignature(t *testing.T) {
	// Elem(x,i) compiles container then index with no RTL fold, leaving
	// index on top of the symbolic stack (container = R(0)/%ebx, index =
	// R(1)/%ecx here). Belem's cdecl signature is (container, index), so
	// the generic "leftmost pushed last" push order must be reordered for
	// this one call: index is pushed first, container last, so container
	// lands at Belem's first parameter.
	code := []sm.Insn{
		sm.Label("main"),
		sm.Begin("main", 0, 0),
		sm.Const(10),
		sm.Const(1),
		sm.Elem(),
		sm.End(),
	}
	got := Generate(code, config.NewConfig())
	if !strings.Contains(got, "\tpushl\t%ecx\n\tpushl\t%ebx\n\tcall\tLBelem\n") {
		t.Errorf("expected index (%%ecx) pushed before container (%%ebx) ahead of LBelem, got:\n%s", got)
	}
}

func TestNonMainFunctionReturnsLastValueInEax(t *testing.T) {
	code := []sm.Insn{
		sm.Label("Lident"),
		sm.Begin("Lident", 1, 0),
		sm.Ld(loc.NewArg(0)),
		sm.End(),
	}
	got := Generate(code, config.NewConfig())
	// LD Arg(0) loads the caller's first argument (8(%ebp)) into a fresh
	// symbolic register; the epilogue then moves that register into %eax
	// before restoring %ebp, so the caller-frame offset is never read
	// through the wrong frame pointer.
	if !strings.Contains(got, "\tmovl\t8(%ebp), %ebx\n") {
		t.Errorf("expected LD Arg(0) to load 8(%%ebp), got:\n%s", got)
	}
	if !strings.Contains(got, "\tmovl\t%ebx, %eax\n\tmovl\t%ebp, %esp\n\tpopl\t%ebp\n\tret\n") {
		t.Errorf("expected the symbolic result moved into %%eax before %%ebp is restored, got:\n%s", got)
	}
}
