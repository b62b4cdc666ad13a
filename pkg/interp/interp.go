// Package interp is the SM interpreter oracle of spec §8.1 property 1:
// it executes the same instruction stream pkg/codegen lowers to x86,
// directly, so tests can assert that the two backends agree on output
// without ever invoking gcc or an assembler.
package interp

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/al-romanov/lama-compiler-2022/pkg/loc"
	"github.com/al-romanov/lama-compiler-2022/pkg/runtimeabi"
	"github.com/al-romanov/lama-compiler-2022/pkg/sm"
)

// refKind discriminates what an LDA-produced reference points at, needed
// only because Go has no single "address of a slice slot or map key" type.
type refKind int

const (
	refArg refKind = iota
	refLoc
	refGlb
)

type ref struct {
	kind   refKind
	frame  *frame
	index  int
	global string
}

type frame struct {
	args   []runtimeabi.Value
	locals []runtimeabi.Value
}

// Machine executes a lowered SM stream against a shared operand stack and
// an explicit call-frame stack — the same shape the real x86 activation
// records take, minus the register/spill-slot bookkeeping that only
// matters for pkg/codegen's output.
type Machine struct {
	code       []sm.Insn
	labelIndex map[string]int

	stack   []runtimeabi.Value
	frames  []*frame
	retIP   []int
	globals map[string]runtimeabi.Value

	pendingArgs []runtimeabi.Value

	in  *bufio.Scanner
	out io.Writer
}

// New builds a Machine for code, reading Lread input from in and writing
// Lwrite output to out.
func New(code []sm.Insn, in io.Reader, out io.Writer) *Machine {
	m := &Machine{
		code:    code,
		globals: make(map[string]runtimeabi.Value),
		in:      bufio.NewScanner(in),
		out:     out,
	}
	m.in.Split(bufio.ScanWords)
	m.labelIndex = make(map[string]int, len(code))
	for i, insn := range code {
		if insn.Op == sm.LABEL {
			m.labelIndex[insn.Str] = i
		}
	}
	return m
}

// Run executes from the entry label "main" until its END instruction
// returns.
func (m *Machine) Run() error {
	entry, ok := m.labelIndex["main"]
	if !ok {
		return fmt.Errorf("interp: no LABEL main in program")
	}
	// The implicit entry frame args/locals are populated by the BEGIN
	// instruction immediately following LABEL main, exactly like any
	// other function.
	m.pendingArgs = nil
	depth := len(m.frames)
	ip := entry
	for {
		insn := m.code[ip]
		next, err := m.step(insn, ip)
		if err != nil {
			return err
		}
		if insn.Op == sm.END && len(m.frames) == depth {
			return nil
		}
		ip = next
	}
}

func (m *Machine) push(v runtimeabi.Value) { m.stack = append(m.stack, v) }

func (m *Machine) pop() runtimeabi.Value {
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v
}

// popN returns the top n values, index 0 being the top (the leftmost
// source argument, per spec §9's resolved evaluation order).
func (m *Machine) popN(n int) []runtimeabi.Value {
	out := make([]runtimeabi.Value, n)
	for i := 0; i < n; i++ {
		out[i] = m.pop()
	}
	return out
}

func (m *Machine) frame() *frame { return m.frames[len(m.frames)-1] }

func asInt(v runtimeabi.Value) int {
	n, _ := v.(int)
	return n
}

func boxLen(v runtimeabi.Value) int {
	switch b := v.(type) {
	case *runtimeabi.Boxed:
		if b.Kind == runtimeabi.BoxString {
			return len(b.Str)
		}
		return len(b.Elem)
	default:
		return 0
	}
}

func (m *Machine) step(insn sm.Insn, ip int) (int, error) {
	switch insn.Op {
	case sm.CONST:
		m.push(insn.IntArg)

	case sm.STRING:
		m.push(&runtimeabi.Boxed{Kind: runtimeabi.BoxString, Str: insn.Str})

	case sm.ARRAY:
		elems := reverse(m.popN(insn.N))
		m.push(&runtimeabi.Boxed{Kind: runtimeabi.BoxArray, Elem: elems})

	case sm.SEXP:
		elems := reverse(m.popN(insn.N))
		m.push(&runtimeabi.Boxed{Kind: runtimeabi.BoxSexp, Tag: insn.Str, Elem: elems})

	case sm.ELEM:
		index := asInt(m.pop())
		container := m.pop().(*runtimeabi.Boxed)
		if container.Kind == runtimeabi.BoxString {
			m.push(int(container.Str[index]))
		} else {
			m.push(container.Elem[index])
		}

	case sm.STA:
		val := m.pop()
		index := asInt(m.pop())
		container := m.pop().(*runtimeabi.Boxed)
		container.Elem[index] = val
		m.push(val)

	case sm.DUP:
		m.push(m.stack[len(m.stack)-1])

	case sm.DROP:
		m.pop()

	case sm.LD:
		m.push(m.load(insn.Loc))

	case sm.LDA:
		m.push(m.address(insn.Loc))

	case sm.ST:
		m.store(insn.Loc, m.stack[len(m.stack)-1])

	case sm.STI:
		val := m.pop()
		r := m.pop().(ref)
		m.writeRef(r, val)
		m.push(val)

	case sm.BINOP:
		src := m.pop()
		dst := m.pop()
		m.push(evalBinop(insn.BinOp, dst, src))

	case sm.GLOBAL:
		if _, ok := m.globals[insn.Str]; !ok {
			m.globals[insn.Str] = 0
		}

	case sm.LABEL:
		// no-op at runtime

	case sm.JMP:
		return m.labelIndex[insn.Str], nil

	case sm.CJMP:
		v := asInt(m.pop())
		taken := (insn.Fname == sm.CondZ && v == 0) || (insn.Fname == sm.CondNZ && v != 0)
		if taken {
			return m.labelIndex[insn.Str], nil
		}

	case sm.CALL:
		m.pendingArgs = reverse(m.popN(insn.N))
		m.retIP = append(m.retIP, ip+1)
		return m.labelIndex[insn.Str], nil

	case sm.BUILTIN:
		args := reverse(m.popN(insn.N))
		m.push(m.callBuiltin(insn.Str, args))

	case sm.BEGIN:
		m.frames = append(m.frames, &frame{
			args:   m.pendingArgs,
			locals: make([]runtimeabi.Value, insn.Locals),
		})
		m.pendingArgs = nil

	case sm.END:
		m.frames = m.frames[:len(m.frames)-1]
		if len(m.retIP) > 0 {
			ret := m.retIP[len(m.retIP)-1]
			m.retIP = m.retIP[:len(m.retIP)-1]
			return ret, nil
		}
	}
	return ip + 1, nil
}

// reverse copies a top-first pop result for boxing/binding without
// reordering it: the compiler's right-to-left argument order leaves the
// leftmost argument on top, so index 0 is already the leftmost value.
func reverse(vs []runtimeabi.Value) []runtimeabi.Value {
	out := make([]runtimeabi.Value, len(vs))
	copy(out, vs)
	return out
}

func (m *Machine) load(l loc.Location) runtimeabi.Value {
	switch l.Kind {
	case loc.Arg:
		return m.frame().args[l.Index]
	case loc.Loc:
		return m.frame().locals[l.Index]
	case loc.Glb:
		return m.globals[l.Name]
	default:
		return nil
	}
}

func (m *Machine) store(l loc.Location, v runtimeabi.Value) {
	switch l.Kind {
	case loc.Arg:
		m.frame().args[l.Index] = v
	case loc.Loc:
		m.frame().locals[l.Index] = v
	case loc.Glb:
		m.globals[l.Name] = v
	}
}

func (m *Machine) address(l loc.Location) ref {
	switch l.Kind {
	case loc.Arg:
		return ref{kind: refArg, frame: m.frame(), index: l.Index}
	case loc.Loc:
		return ref{kind: refLoc, frame: m.frame(), index: l.Index}
	default:
		return ref{kind: refGlb, global: l.Name}
	}
}

func (m *Machine) writeRef(r ref, v runtimeabi.Value) {
	switch r.kind {
	case refArg:
		r.frame.args[r.index] = v
	case refLoc:
		r.frame.locals[r.index] = v
	case refGlb:
		m.globals[r.global] = v
	}
}

func (m *Machine) callBuiltin(name string, args []runtimeabi.Value) runtimeabi.Value {
	switch name {
	case runtimeabi.Read:
		m.in.Scan()
		n, _ := strconv.Atoi(m.in.Text())
		return n
	case runtimeabi.Write:
		fmt.Fprintf(m.out, "%d\n", asInt(args[0]))
		return 0
	case runtimeabi.Length:
		return boxLen(args[0])
	default:
		panic("interp: unknown builtin " + name)
	}
}

func evalBinop(op interface{ String() string }, dst, src runtimeabi.Value) runtimeabi.Value {
	a, b := asInt(dst), asInt(src)
	switch op.String() {
	case "+":
		return a + b
	case "-":
		return a - b
	case "*":
		return a * b
	case "/":
		return a / b
	case "%":
		return a % b
	case "==":
		return boolToInt(a == b)
	case "!=":
		return boolToInt(a != b)
	case "<":
		return boolToInt(a < b)
	case "<=":
		return boolToInt(a <= b)
	case ">":
		return boolToInt(a > b)
	case ">=":
		return boolToInt(a >= b)
	case "&&":
		return boolToInt(a != 0 && b != 0)
	case "||":
		return boolToInt(a != 0 || b != 0)
	case "^":
		return a ^ b
	default:
		panic("interp: unknown binop " + op.String())
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
