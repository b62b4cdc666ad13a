// Package codegen lowers the SM instruction stream (pkg/sm) to textual
// 32-bit x86 assembly (spec §4.2–§4.4): a symbolic compile-time stack
// assigns each pushed value to a hardware register or a spill slot, and a
// flat per-instruction table turns that into AT&T-syntax text.
package codegen

import "fmt"

// Kind discriminates the five symbolic operand shapes of spec §3.5.
type Kind int

const (
	Reg     Kind = iota // R(i): one of ebx, ecx, esi, edi
	Spill               // S(i): a stack-frame slot, i>=0 local-scratch, i<0 caller-frame argument
	Mem                 // M(name): a named global, rendered "global_<name>"
	Imm                 // L(n): an immediate constant
	Indirect            // I(off,base): off(base), base itself an Operand (a register, in practice)
)

var regNames = [4]string{"%ebx", "%ecx", "%esi", "%edi"}

// Operand is a compile-time value location: the "symbolic stack" of spec
// §3.5 is a list of these, not of raw x86 registers, so the lowerer can
// decide which hardware resource backs a value without revisiting earlier
// code.
type Operand struct {
	Kind   Kind
	Index  int // Reg: 0..3. Spill: slot index, see frameOffset().
	Name   string
	Value  int
	Offset int      // Indirect
	Base   *Operand // Indirect
}

func NewReg(i int) Operand { return Operand{Kind: Reg, Index: i} }

// eaxIndex marks the fixed scratch/return register. The allocation rule of
// spec §3.5 only ever assigns a symbolic value to R(0..3) (ebx/ecx/esi/edi);
// %eax is always available as scratch precisely because it is never one of
// those, which is why call results and comparison scratch work land there
// without disturbing whatever the symbolic stack currently holds.
const eaxIndex = -1

// EAX returns the operand for the fixed scratch/return register.
func EAX() Operand { return Operand{Kind: Reg, Index: eaxIndex} }

// EDX returns the operand for the fixed second scratch register, used by
// division/modulo and by logical-operator normalization (spec §4.3).
func EDX() Operand { return Operand{Kind: Reg, Index: edxIndex} }

const edxIndex = -2
func NewSpill(i int) Operand { return Operand{Kind: Spill, Index: i} }
func NewMem(name string) Operand {
	return Operand{Kind: Mem, Name: "global_" + name}
}
func NewRawMem(label string) Operand { return Operand{Kind: Mem, Name: label} }
func NewImm(n int) Operand           { return Operand{Kind: Imm, Value: n} }
func NewIndirect(off int, base Operand) Operand {
	return Operand{Kind: Indirect, Offset: off, Base: &base}
}

// IsMemory reports whether rendering this operand produces an x86 memory
// reference — Spill and Mem (Indirect always goes through a register base
// in this lowerer, so it is never itself classified as memory-class here;
// see compileBinop for why that matters).
func (o Operand) IsMemory() bool {
	return o.Kind == Spill || o.Kind == Mem
}

// frameOffset renders a Spill operand's %ebp-relative byte offset. nLocals
// is the enclosing function's local-slot count (BEGIN's localc): spill
// slot 0 sits immediately after the last named local, so slot i's offset
// is computed relative to nLocals, not from frame bottom directly — named
// locals and spill temporaries share one contiguous region of the frame,
// which is exactly what the "(nLocals+maxStackSlots)*4" frame-size formula
// of spec §6.3 assumes. A negative index is a caller-frame argument and is
// unaffected by nLocals (cdecl placed it before the lowerer ever runs).
func frameOffset(index, nLocals int) int {
	if index >= 0 {
		return -(nLocals + index + 1) * 4
	}
	return 8 + (-1-index)*4
}

// LocalOffset renders a named local slot's %ebp-relative offset (spec
// §3.2 Loc(i)), which is a distinct addressing scheme from spill slots:
// locals occupy the frame's first nLocals words, spills the rest.
func LocalOffset(index int) int { return -(index + 1) * 4 }

// String renders the operand in AT&T syntax as Render(0) does: Spill
// operands are placed as if the function had no named locals.
func (o Operand) String() string { return o.render(0) }

// Render is String with the enclosing function's local count supplied,
// required to place Spill operands correctly.
func (o Operand) Render(nLocals int) string { return o.render(nLocals) }

func (o Operand) render(nLocals int) string {
	switch o.Kind {
	case Reg:
		switch o.Index {
		case eaxIndex:
			return "%eax"
		case edxIndex:
			return "%edx"
		default:
			return regNames[o.Index]
		}
	case Spill:
		if o.Index > localSentinel/2 {
			return fmt.Sprintf("%d(%%ebp)", LocalOffset(localSentinel-o.Index))
		}
		return fmt.Sprintf("%d(%%ebp)", frameOffset(o.Index, nLocals))
	case Mem:
		return o.Name
	case Imm:
		return fmt.Sprintf("$%d", o.Value)
	case Indirect:
		return fmt.Sprintf("%d(%s)", o.Offset, o.Base.render(nLocals))
	default:
		return "<bad operand>"
	}
}
