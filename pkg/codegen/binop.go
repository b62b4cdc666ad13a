package codegen

import (
	"fmt"

	"github.com/al-romanov/lama-compiler-2022/internal/diag"
	"github.com/al-romanov/lama-compiler-2022/pkg/ast"
)

// compileBinop lowers one BINOP instruction (spec §4.3). dst holds the
// left operand (pushed first, so it sits below src on the symbolic
// stack), src the right operand (popped from the top); the result is
// written back into dst's location, which lowerOne then re-pushes.
func compileBinop(e Env, op ast.BinOp, dst, src Operand) (Env, []string) {
	nLocals := e.NLocals()

	switch op {
	case ast.Add, ast.Sub, ast.Mul, ast.Xor:
		return e, compileArith(nLocals, op, dst, src)
	case ast.And, ast.Or:
		return e, compileLogical(nLocals, op, dst, src)
	case ast.Div:
		return e, compileDivMod(nLocals, dst, src, EAX())
	case ast.Mod:
		return e, compileDivMod(nLocals, dst, src, EDX())
	case ast.Eq, ast.Neq, ast.Lt, ast.Lte, ast.Gt, ast.Gte:
		return e, compileCompare(nLocals, op, dst, src)
	default:
		diag.Bug("compileBinop: unhandled operator %s", op)
		return e, nil
	}
}

func arithMnemonic(op ast.BinOp) string {
	switch op {
	case ast.Add:
		return "addl"
	case ast.Sub:
		return "subl"
	case ast.Mul:
		return "imull"
	case ast.Xor:
		return "xorl"
	default:
		return "?"
	}
}

// compileArith handles + - * ^ (spec §4.3 "simple arithmetic"): direct
// two-operand form unless dst is memory, in which case dst is staged
// through %eax — required unconditionally for `*` (imull has no
// memory-destination form) and needed for the others whenever src is also
// memory (x86 forbids two memory operands).
func compileArith(nLocals int, op ast.BinOp, dst, src Operand) []string {
	mnem := arithMnemonic(op)
	if dst.IsMemory() {
		return []string{
			fmt.Sprintf("\tmovl\t%s, %%eax", dst.Render(nLocals)),
			fmt.Sprintf("\t%s\t%s, %%eax", mnem, src.Render(nLocals)),
			fmt.Sprintf("\tmovl\t%%eax, %s", dst.Render(nLocals)),
		}
	}
	return []string{fmt.Sprintf("\t%s\t%s, %s", mnem, src.Render(nLocals), dst.Render(nLocals))}
}

// compileLogical handles && || (spec §4.3 "logical"): both operands are
// normalized to 0/1 first (the source language's booleans are ordinary
// integers, so a nonzero left/right operand must not survive as anything
// but exactly 1 through a logical operator), then combined with the plain
// bitwise instruction — which is exact once both inputs are 0/1.
func compileLogical(nLocals int, op ast.BinOp, dst, src Operand) []string {
	mnem := "andl"
	if op == ast.Or {
		mnem = "orl"
	}
	return []string{
		"\txorl\t%eax, %eax",
		fmt.Sprintf("\tcmpl\t$0, %s", dst.Render(nLocals)),
		"\tsetne\t%al",
		"\txorl\t%edx, %edx",
		fmt.Sprintf("\tcmpl\t$0, %s", src.Render(nLocals)),
		"\tsetne\t%dl",
		fmt.Sprintf("\t%s\t%%edx, %%eax", mnem),
		fmt.Sprintf("\tmovl\t%%eax, %s", dst.Render(nLocals)),
	}
}

// compileDivMod handles / and % (spec §4.3): idivl takes the dividend in
// %edx:%eax and a register/memory divisor — never an immediate — and
// leaves the quotient in %eax, remainder in %edx. resultReg picks which
// of the two the caller wants.
func compileDivMod(nLocals int, dst, src Operand, resultReg Operand) []string {
	lines := []string{
		fmt.Sprintf("\tmovl\t%s, %%eax", dst.Render(nLocals)),
		"\tcltd",
	}
	if src.Kind == Imm {
		lines = append(lines,
			fmt.Sprintf("\tpushl\t%s", src.Render(nLocals)),
			"\tidivl\t(%esp)",
			"\taddl\t$4, %esp",
		)
	} else {
		lines = append(lines, fmt.Sprintf("\tidivl\t%s", src.Render(nLocals)))
	}
	return append(lines, fmt.Sprintf("\tmovl\t%s, %s", resultReg.Render(nLocals), dst.Render(nLocals)))
}

var compareSuffix = map[ast.BinOp]string{
	ast.Lt:  "l",
	ast.Lte: "le",
	ast.Eq:  "e",
	ast.Neq: "ne",
	ast.Gte: "ge",
	ast.Gt:  "g",
}

// compileCompare handles == != < <= > >= (spec §4.3): cmp forbids two
// memory operands, so when src is memory, dst's value is staged through
// %edx before the comparison — leaving the original dst location as the
// eventual write target for the 0/1 result.
func compileCompare(nLocals int, op ast.BinOp, dst, src Operand) []string {
	origDst := dst
	lines := []string{"\txorl\t%eax, %eax"}
	if src.IsMemory() {
		lines = append(lines, fmt.Sprintf("\tmovl\t%s, %%edx", dst.Render(nLocals)))
		dst = EDX()
	}
	lines = append(lines,
		fmt.Sprintf("\tcmpl\t%s, %s", src.Render(nLocals), dst.Render(nLocals)),
		fmt.Sprintf("\tset%s\t%%al", compareSuffix[op]),
		fmt.Sprintf("\tmovl\t%%eax, %s", origDst.Render(nLocals)),
	)
	return lines
}
