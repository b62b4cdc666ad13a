// Package sm defines the stack-machine intermediate representation that the
// AST→SM compiler (pkg/compiler) emits and the SM→x86 lowerer (pkg/codegen)
// consumes, per spec §3.3. It is a flat, linear instruction stream — no
// basic-block structure is materialized; LABEL/JMP/CJMP carry control flow
// the way a real assembler listing would.
package sm

import (
	"fmt"
	"strings"

	"github.com/al-romanov/lama-compiler-2022/pkg/ast"
	"github.com/al-romanov/lama-compiler-2022/pkg/loc"
)

// Op discriminates SM instruction opcodes.
type Op int

const (
	CONST Op = iota
	BINOP
	STRING
	ARRAY
	SEXP
	ELEM
	STA
	DUP
	DROP
	LD
	LDA
	ST
	STI
	GLOBAL
	LABEL
	JMP
	CJMP
	CALL
	BEGIN
	END
	BUILTIN
)

// CondZ and CondNZ are the two conditions CJMP supports.
const (
	CondZ  = "z"
	CondNZ = "nz"
)

// Insn is one SM instruction. Only the fields relevant to Op are populated;
// the rest are zero. This mirrors the teacher's single-struct-many-ops IR
// style (ir.Instruction) rather than one Go type per opcode, which keeps the
// lowerer's per-instruction dispatch a single flat switch.
type Insn struct {
	Op     Op
	IntArg int         // CONST
	BinOp  ast.BinOp   // BINOP
	Str    string      // STRING value, GLOBAL/LABEL/CALL/BUILTIN name, JMP/CJMP target
	Loc    loc.Location // LD/LDA/ST location
	N      int         // ARRAY/SEXP/CALL/BUILTIN arity, BEGIN argc
	Locals int         // BEGIN localc
	Fname  string       // BEGIN function name, CJMP cond
}

// --- Constructors, one per opcode, for readability at call sites. ---

func Const(n int) Insn                { return Insn{Op: CONST, IntArg: n} }
func Binop(op ast.BinOp) Insn         { return Insn{Op: BINOP, BinOp: op} }
func Str(s string) Insn               { return Insn{Op: STRING, Str: s} }
func Array(n int) Insn                { return Insn{Op: ARRAY, N: n} }
func Sexp(tag string, n int) Insn     { return Insn{Op: SEXP, Str: tag, N: n} }
func Elem() Insn                      { return Insn{Op: ELEM} }
func Sta() Insn                       { return Insn{Op: STA} }
func Dup() Insn                       { return Insn{Op: DUP} }
func Drop() Insn                      { return Insn{Op: DROP} }
func Ld(l loc.Location) Insn          { return Insn{Op: LD, Loc: l} }
func Lda(l loc.Location) Insn         { return Insn{Op: LDA, Loc: l} }
func St(l loc.Location) Insn          { return Insn{Op: ST, Loc: l} }
func Sti() Insn                       { return Insn{Op: STI} }
func Global(name string) Insn         { return Insn{Op: GLOBAL, Str: name} }
func Label(name string) Insn          { return Insn{Op: LABEL, Str: name} }
func Jmp(name string) Insn            { return Insn{Op: JMP, Str: name} }
func Cjmp(cond, name string) Insn     { return Insn{Op: CJMP, Str: name, Fname: cond} }
func Call(label string, n int) Insn   { return Insn{Op: CALL, Str: label, N: n} }
func Begin(fname string, argc, localc int) Insn {
	return Insn{Op: BEGIN, Fname: fname, N: argc, Locals: localc}
}
func End() Insn                        { return Insn{Op: END} }
func Builtin(name string, n int) Insn { return Insn{Op: BUILTIN, Str: name, N: n} }

// String renders an instruction the way it appears in -emit-sm listings and
// in the "# <showSMInsn>" comment the x86 lowerer prefixes to each
// instruction's generated code (spec §4.2).
func (i Insn) String() string {
	switch i.Op {
	case CONST:
		return fmt.Sprintf("CONST %d", i.IntArg)
	case BINOP:
		return fmt.Sprintf("BINOP %s", i.BinOp)
	case STRING:
		return fmt.Sprintf("STRING %q", i.Str)
	case ARRAY:
		return fmt.Sprintf("ARRAY %d", i.N)
	case SEXP:
		return fmt.Sprintf("SEXP %q %d", i.Str, i.N)
	case ELEM:
		return "ELEM"
	case STA:
		return "STA"
	case DUP:
		return "DUP"
	case DROP:
		return "DROP"
	case LD:
		return fmt.Sprintf("LD %s", i.Loc)
	case LDA:
		return fmt.Sprintf("LDA %s", i.Loc)
	case ST:
		return fmt.Sprintf("ST %s", i.Loc)
	case STI:
		return "STI"
	case GLOBAL:
		return fmt.Sprintf("GLOBAL %s", i.Str)
	case LABEL:
		return fmt.Sprintf("LABEL %s", i.Str)
	case JMP:
		return fmt.Sprintf("JMP %s", i.Str)
	case CJMP:
		return fmt.Sprintf("CJMP %s %s", i.Fname, i.Str)
	case CALL:
		return fmt.Sprintf("CALL %s %d", i.Str, i.N)
	case BEGIN:
		return fmt.Sprintf("BEGIN %s %d %d", i.Fname, i.N, i.Locals)
	case END:
		return "END"
	case BUILTIN:
		return fmt.Sprintf("BUILTIN %s %d", i.Str, i.N)
	default:
		return "<bad insn>"
	}
}

// Listing renders a full instruction stream, one instruction per line, for
// the -emit-sm driver flag.
func Listing(code []Insn) string {
	var b strings.Builder
	for _, insn := range code {
		b.WriteString(insn.String())
		b.WriteByte('\n')
	}
	return b.String()
}
