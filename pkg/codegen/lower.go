package codegen

import (
	"fmt"

	"github.com/al-romanov/lama-compiler-2022/internal/diag"
	"github.com/al-romanov/lama-compiler-2022/pkg/config"
	"github.com/al-romanov/lama-compiler-2022/pkg/sm"
	"github.com/al-romanov/lama-compiler-2022/pkg/tag"
)

// move renders code that stores src into dst, routing memory-to-memory
// moves through %eax since x86 forbids two memory operands on most
// instructions (spec §4.3, "stack-to-memory constraint").
func move(e Env, src, dst Operand) []string {
	if src.IsMemory() && dst.IsMemory() {
		return []string{
			fmt.Sprintf("\tmovl\t%s, %%eax", src.Render(e.NLocals())),
			fmt.Sprintf("\tmovl\t%%eax, %s", dst.Render(e.NLocals())),
		}
	}
	return []string{fmt.Sprintf("\tmovl\t%s, %s", src.Render(e.NLocals()), dst.Render(e.NLocals()))}
}

// Program is the fully-lowered output: assembled function bodies plus the
// global/string tables the printer needs for .data (spec §6.3).
type Program struct {
	Body    string
	Globals []string
	Strings []StringLit
}

// Lower translates a whole SM instruction stream into x86 text, threading
// one Env across every instruction (spec §4.2, §4.4).
func Lower(code []sm.Insn, cfg *config.Config) Program {
	e := NewEnv()
	var out []string

	for _, insn := range code {
		var lines []string
		e, lines = lowerOne(e, insn, cfg)
		out = append(out, lines...)
	}

	body := ""
	for _, l := range out {
		body += l + "\n"
	}
	return Program{Body: body, Globals: e.Globals(), Strings: e.Strings()}
}

func comment(cfg *config.Config, insn sm.Insn) []string {
	if !cfg.IsFeatureEnabled(config.FeatAsmComments) {
		return nil
	}
	return []string{fmt.Sprintf("\t# %s", insn)}
}

func lowerOne(e Env, insn sm.Insn, cfg *config.Config) (Env, []string) {
	lines := comment(cfg, insn)

	switch insn.Op {
	case sm.CONST:
		var dst Operand
		e, dst = e.Push()
		lines = append(lines, move(e, NewImm(insn.IntArg), dst)...)

	case sm.GLOBAL:
		e = e.AddGlobal(insn.Str)

	case sm.LD:
		src := LocOperand(insn.Loc)
		var dst Operand
		e, dst = e.Push()
		lines = append(lines, move(e, src, dst)...)

	case sm.LDA:
		src := LocOperand(insn.Loc)
		var dst Operand
		e, dst = e.Push()
		lines = append(lines, leal(e, src, dst)...)

	case sm.ST:
		dst := LocOperand(insn.Loc)
		src := e.Peek()
		lines = append(lines, move(e, src, dst)...)

	case sm.STI:
		var val, addr Operand
		e, val = e.Pop()
		e, addr = e.Pop()
		if addr.IsMemory() {
			lines = append(lines, fmt.Sprintf("\tmovl\t%s, %%edx", addr.Render(e.NLocals())))
			addr = EDX()
		}
		ref := NewIndirect(0, addr)
		lines = append(lines, storeThroughReg(e, val, ref)...)
		var dst Operand
		e, dst = e.Push()
		lines = append(lines, move(e, val, dst)...)

	case sm.BINOP:
		var src, dst Operand
		e, src = e.Pop()
		e, dst = e.Pop()
		var opLines []string
		e, opLines = compileBinop(e, insn.BinOp, dst, src)
		lines = append(lines, opLines...)
		var result Operand
		e, result = e.Push()
		if result != dst {
			lines = append(lines, move(e, dst, result)...)
		}

	case sm.DROP:
		e, _ = e.Pop()

	case sm.DUP:
		top := e.Peek()
		var dst Operand
		e, dst = e.Push()
		lines = append(lines, move(e, top, dst)...)

	case sm.LABEL:
		if e.Barrier() {
			e = e.Restore(insn.Str)
		}
		lines = append(lines, insn.Str+":")

	case sm.JMP:
		lines = append(lines, fmt.Sprintf("\tjmp\t%s", insn.Str))
		e = e.Snapshot(insn.Str).SetBarrier()

	case sm.CJMP:
		var v Operand
		e, v = e.Pop()
		e = e.Snapshot(insn.Str)
		lines = append(lines, fmt.Sprintf("\tcmpl\t$0, %s", v.Render(e.NLocals())))
		lines = append(lines, fmt.Sprintf("\tj%s\t%s", jccSuffix(insn.Fname), insn.Str))

	case sm.CALL:
		var callLines []string
		e, callLines = lowerCall(e, insn.Str, insn.N)
		lines = append(lines, callLines...)

	case sm.BUILTIN:
		var callLines []string
		e, callLines = lowerCall(e, "L"+insn.Str, insn.N)
		lines = append(lines, callLines...)

	case sm.BEGIN:
		e = e.BeginFunction(insn.Fname, insn.Locals)
		lines = append(lines, prologue(insn.Fname)...)

	case sm.END:
		var epLines []string
		epLines = epilogue(e)
		lines = append(lines, epLines...)
		lines = append(lines, fmt.Sprintf("\t.set\t%s_SIZE, %d", e.FuncLabel(), (e.NLocals()+e.MaxSlots())*4))

	case sm.STRING:
		var label string
		e, label = e.InternString(escapeString(insn.Str))
		var slot Operand
		e, slot = e.Push()
		lines = append(lines, leal(e, NewRawMem(label), slot)...)
		var callLines []string
		e, callLines = lowerCall(e, "LBstring", 1)
		lines = append(lines, callLines...)

	case sm.ARRAY:
		var callLines []string
		e, callLines = lowerBoxed(e, "LBarray", insn.N, insn.N, nil)
		lines = append(lines, callLines...)

	case sm.SEXP:
		h := int(tag.Hash(insn.Str))
		var callLines []string
		e, callLines = lowerBoxed(e, "LBsexp", insn.N, insn.N+1, []Operand{NewImm(h)})
		lines = append(lines, callLines...)

	case sm.STA:
		var callLines []string
		e, callLines = lowerCall(e, "LBsta", 3)
		lines = append(lines, callLines...)

	case sm.ELEM:
		var callLines []string
		e, callLines = lowerCallReorder(e, "LBelem", 2, swapPair)
		lines = append(lines, callLines...)

	default:
		diag.Bug("codegeneration for instruction %s is not yet implemented", insn)
	}

	return e, lines
}

// pushArgsRTL emits hardware `push`es for a set of already-evaluated
// operands popped top-first off the symbolic stack (ops[0] was the top,
// i.e. the leftmost source argument — spec §9's resolved evaluation
// order). It pushes them in the reverse of that order, so the leftmost
// argument is pushed last and therefore ends up at the lowest address,
// matching the runtime ABI's "leftmost at lowest address" contract
// (spec §6.2, §6.3).
func pushArgsRTL(e Env, ops []Operand) []string {
	var lines []string
	for i := len(ops) - 1; i >= 0; i-- {
		lines = append(lines, fmt.Sprintf("\tpushl\t%s", ops[i].Render(e.NLocals())))
	}
	return lines
}

// lowerCall implements the CALL/BUILTIN/STA/STRING lowering of spec §4.2:
// save registers the call would clobber but that remain live below the n
// consumed arguments, marshal the arguments, call, clean up the hardware
// stack, restore the saved registers, and allocate a destination for the
// result in %eax.
func lowerCall(e Env, label string, n int) (Env, []string) {
	return lowerCallReorder(e, label, n, nil)
}

// swapPair reverses a two-operand slice popped top-first. Elem(x,i) →
// code(Seq(x,i)) (spec §3.1) is a plain left-to-right compile with no RTL
// fold, so it leaves index on top and container underneath — PopN(2) hands
// back [index, container]. Belem's cdecl signature is (container, index)
// (spec §6.2), so the pair must be swapped to [container, index] before
// pushArgsRTL's usual "leftmost argument pushed last" rule places container
// at arg0.
func swapPair(args []Operand) []Operand {
	return []Operand{args[1], args[0]}
}

// lowerCallReorder is lowerCall with an optional reorder applied to the
// popped operands (top-first) before they are pushed. Only ELEM needs
// this: every other caller's operands are already in cdecl order once
// popped (spec §9's resolved right-to-left argument fold for CALL/BUILTIN,
// or STRING/STA's own documented push order). ARRAY and SEXP go through
// lowerBoxed instead.
func lowerCallReorder(e Env, label string, n int, reorder func([]Operand) []Operand) (Env, []string) {
	live := e.LiveRegistersBelow(n)
	var lines []string
	for _, r := range live {
		lines = append(lines, fmt.Sprintf("\tpushl\t%s", r.Render(e.NLocals())))
	}

	var args []Operand
	e, args = e.PopN(n)
	if reorder != nil {
		args = reorder(args)
	}
	lines = append(lines, pushArgsRTL(e, args)...)
	lines = append(lines, fmt.Sprintf("\tcall\t%s", label))
	if n > 0 {
		lines = append(lines, fmt.Sprintf("\taddl\t$%d, %%esp", 4*n))
	}
	for i := len(live) - 1; i >= 0; i-- {
		lines = append(lines, fmt.Sprintf("\tpopl\t%s", live[i].Render(e.NLocals())))
	}

	var dst Operand
	e, dst = e.Push()
	lines = append(lines, move(e, EAX(), dst)...)
	return e, lines
}

// lowerBoxed implements the ARRAY/SEXP lowering: like lowerCall, but with
// a fixed slot-count argument (and, for SEXP, a leading tag hash) pushed
// ahead of the n already-evaluated element operands rather than in their
// place. count is the runtime-visible element count Barray/Bsexp expects
// (n for ARRAY, n+1 for SEXP, since Bsexp's extra trailing slot carries
// the tag hash itself); leading holds any operands to push before count
// (spec §4.2 SEXP row: "pushes tagHash(tag) first").
func lowerBoxed(e Env, label string, n, count int, leading []Operand) (Env, []string) {
	totalWords := len(leading) + 1 + n
	live := e.LiveRegistersBelow(n)
	var lines []string
	for _, r := range live {
		lines = append(lines, fmt.Sprintf("\tpushl\t%s", r.Render(e.NLocals())))
	}

	var args []Operand
	e, args = e.PopN(n)
	for _, l := range leading {
		lines = append(lines, fmt.Sprintf("\tpushl\t%s", l.Render(e.NLocals())))
	}
	lines = append(lines, fmt.Sprintf("\tpushl\t$%d", count))
	lines = append(lines, pushArgsRTL(e, args)...)
	lines = append(lines, fmt.Sprintf("\tcall\t%s", label))
	lines = append(lines, fmt.Sprintf("\taddl\t$%d, %%esp", 4*totalWords))
	for i := len(live) - 1; i >= 0; i-- {
		lines = append(lines, fmt.Sprintf("\tpopl\t%s", live[i].Render(e.NLocals())))
	}

	var dst Operand
	e, dst = e.Push()
	lines = append(lines, move(e, EAX(), dst)...)
	return e, lines
}

func jccSuffix(cond string) string {
	if cond == sm.CondZ {
		return "e"
	}
	return "ne"
}

// leal computes src's address into dst, routing through %eax if dst is a
// memory operand (spec §4.2 LDA row).
func leal(e Env, src, dst Operand) []string {
	if dst.IsMemory() {
		return []string{
			fmt.Sprintf("\tleal\t%s, %%eax", src.Render(e.NLocals())),
			fmt.Sprintf("\tmovl\t%%eax, %s", dst.Render(e.NLocals())),
		}
	}
	return []string{fmt.Sprintf("\tleal\t%s, %s", src.Render(e.NLocals()), dst.Render(e.NLocals()))}
}

// storeThroughReg stores val at address, routing val through %eax first
// when val itself is a memory operand (address is always Indirect over a
// register in this lowerer, so only val's class matters here).
func storeThroughReg(e Env, val, address Operand) []string {
	if val.IsMemory() {
		return []string{
			fmt.Sprintf("\tmovl\t%s, %%eax", val.Render(e.NLocals())),
			fmt.Sprintf("\tmovl\t%%eax, %s", address.Render(e.NLocals())),
		}
	}
	return []string{fmt.Sprintf("\tmovl\t%s, %s", val.Render(e.NLocals()), address.Render(e.NLocals()))}
}

// prologue does not emit fname's own label: pkg/compiler always precedes a
// function's BEGIN with a LABEL of the same name, and LABEL's own lowering
// already writes "fname:" — repeating it here would define the symbol
// twice and the assembler would reject the file.
func prologue(fname string) []string {
	return []string{
		"\tpushl\t%ebp",
		"\tmovl\t%esp, %ebp",
		fmt.Sprintf("\tsubl\t$%s_SIZE, %%esp", fname),
	}
}

// epilogue emits the function's return sequence (spec §4.2 END row): main
// always returns 0, every other function returns its last symbolic value.
//
// The result is read into %eax before %ebp is restored, not after: y may
// be a spill slot rendered as an %ebp-relative offset, and that offset
// only addresses the right frame while the callee's own %ebp is still
// live. Restoring %ebp first and then reading y would read through the
// caller's frame pointer instead.
func epilogue(e Env) []string {
	if e.FuncLabel() == "Lmain" || e.FuncLabel() == "main" {
		return []string{
			"\tmovl\t%ebp, %esp",
			"\tpopl\t%ebp",
			"\txorl\t%eax, %eax",
			"\tret",
		}
	}
	_, y := e.Pop()
	return []string{
		fmt.Sprintf("\tmovl\t%s, %%eax", y.Render(e.NLocals())),
		"\tmovl\t%ebp, %esp",
		"\tpopl\t%ebp",
		"\tret",
	}
}
