// Package compiler implements the AST→SM compiler of spec §4.1: it walks
// the AST once, in source order, and emits a flat SM instruction stream. A
// continuation label ("lab") is threaded through every recursive call so a
// subtree whose fall-through path lands on the caller's label can reuse it
// instead of emitting a dead adjacent LABEL — the only peephole this stage
// performs (spec §4.1, "nextLabel").
package compiler

import (
	"strings"

	"github.com/al-romanov/lama-compiler-2022/internal/diag"
	"github.com/al-romanov/lama-compiler-2022/pkg/ast"
	"github.com/al-romanov/lama-compiler-2022/pkg/config"
	"github.com/al-romanov/lama-compiler-2022/pkg/env"
	"github.com/al-romanov/lama-compiler-2022/pkg/loc"
	"github.com/al-romanov/lama-compiler-2022/pkg/sm"
)

// Compile translates a whole program into an SM instruction stream. The
// program is implicitly wrapped as a zero-argument function named "main"
// (spec §4.1's top-level pipeline), then the pending-function queue is
// drained until no nested function declaration remains unhoisted.
func Compile(program *ast.Node, cfg *config.Config) []sm.Insn {
	e := env.NewWithOptions(cfg.IsFeatureEnabled(config.FeatOptimizeLabels))
	e = e.Enqueue("main", nil, program)

	var code []sm.Insn
	for {
		var pf env.PendingFunc
		var ok bool
		e, pf, ok = e.Dequeue()
		if !ok {
			break
		}
		code = append(code, compileFunction(e, &e, pf)...)
	}
	return code
}

// compileFunction compiles one hoisted function and folds its global
// side effects (new labels minted, new nested functions hoisted) back into
// *driverEnv, which drives the top-level drain loop in Compile.
func compileFunction(e env.Env, driverEnv *env.Env, pf env.PendingFunc) []sm.Insn {
	fe := e.EnterFunction(pf.Args)
	fe, exitLabel := fe.NextLabel()
	used, fe, bodyCode := compileNode(exitLabel, fe, pf.Body)

	code := []sm.Insn{sm.Label(pf.Label), sm.Begin(pf.Label, len(pf.Args), 0)}
	code = append(code, bodyCode...)
	if used {
		code = append(code, sm.Label(exitLabel))
	}
	code = append(code, sm.End())
	code[1].Locals = fe.NLocals()

	*driverEnv = driverEnv.MergeGlobals(fe)
	return code
}

// labelIfUsed emits LABEL lab only if the subtree that was just compiled
// against the continuation lab actually jumped to it (spec §4.1's
// "nextLabelUsed?" peephole).
func labelIfUsed(e env.Env, used bool, lab string) []sm.Insn {
	if !used && e.OptimizeLabels {
		return nil
	}
	return []sm.Insn{sm.Label(lab)}
}

// compileSeq implements the shared "evaluate a, then b in tail position"
// shape used by the Seq node and by ElemRef's container-index pair, neither
// of which appends any instruction after b — so b may inherit the caller's
// continuation label just like any other true tail.
func compileSeq(lab string, e env.Env, a, b *ast.Node) (bool, env.Env, []sm.Insn) {
	e, aLab := e.NextLabel()
	usedA, e, codeA := compileNode(aLab, e, a)
	code := append(codeA, labelIfUsed(e, usedA, aLab)...)
	usedB, e, codeB := compileNode(lab, e, b)
	code = append(code, codeB...)
	return usedB, e, code
}

// compileArgsRTL compiles a call/array/sexp argument list right-to-left,
// per spec §4.1 and §9: the source folds `foldr (fun e acc -> Seq(acc,e))
// Skip args`, whose net effect is that the rightmost argument is emitted
// first and the leftmost argument is emitted last — landing on top of the
// SM operand stack. Every caller appends a trailing instruction (CALL,
// BUILTIN, ARRAY, SEXP) right after this returns, so none of the arguments
// are in tail position: each gets its own fresh label, mirroring Binop's
// left/right operands.
func compileArgsRTL(e env.Env, args []*ast.Node) (env.Env, []sm.Insn) {
	var code []sm.Insn
	var fresh string
	for i := len(args) - 1; i >= 0; i-- {
		e, fresh = e.NextLabel()
		used, e2, c := compileNode(fresh, e, args[i])
		e = e2
		code = append(code, c...)
		code = append(code, labelIfUsed(e, used, fresh)...)
	}
	return e, code
}

func compileNode(lab string, e env.Env, node *ast.Node) (bool, env.Env, []sm.Insn) {
	switch node.Type {
	case ast.Skip:
		return false, e, nil

	case ast.Const:
		d := node.Data.(ast.ConstNode)
		return false, e, []sm.Insn{sm.Const(d.Value)}

	case ast.Var:
		d := node.Data.(ast.VarNode)
		l, found, ok := e.LookupVal(d.Name)
		if !found || !ok {
			diag.NameError(node.Pos, d.Name, "variable")
		}
		return false, e, []sm.Insn{sm.Ld(l)}

	case ast.Ref:
		d := node.Data.(ast.RefNode)
		l, found, ok := e.LookupVar(d.Name)
		if !found || !ok {
			diag.NameError(node.Pos, d.Name, "mutable variable")
		}
		return false, e, []sm.Insn{sm.Lda(l)}

	case ast.Set:
		d := node.Data.(ast.SetNode)
		e, exprLab := e.NextLabel()
		used, e, code := compileNode(exprLab, e, d.Expr)
		code = append(code, labelIfUsed(e, used, exprLab)...)
		l, found, ok := e.LookupVar(d.Name)
		if !found || !ok {
			diag.NameError(node.Pos, d.Name, "mutable variable")
		}
		code = append(code, sm.St(l))
		return false, e, code

	case ast.Assn:
		d := node.Data.(ast.AssnNode)
		e, lhsLab := e.NextLabel()
		usedLhs, e, lhsCode := compileNode(lhsLab, e, d.Lhs)
		lhsCode = append(lhsCode, labelIfUsed(e, usedLhs, lhsLab)...)
		e, rhsLab := e.NextLabel()
		usedRhs, e, rhsCode := compileNode(rhsLab, e, d.Rhs)
		rhsCode = append(rhsCode, labelIfUsed(e, usedRhs, rhsLab)...)
		code := append(lhsCode, rhsCode...)
		if d.Lhs.Type == ast.ElemRef {
			code = append(code, sm.Sta())
		} else {
			code = append(code, sm.Sti())
		}
		return false, e, code

	case ast.Seq:
		d := node.Data.(ast.SeqNode)
		return compileSeq(lab, e, d.First, d.Second)

	case ast.If:
		d := node.Data.(ast.IfNode)
		e, elseLabel := e.NextLabel()
		e, condLab := e.NextLabel()
		usedCond, e, condCode := compileNode(condLab, e, d.Cond)
		condCode = append(condCode, labelIfUsed(e, usedCond, condLab)...)
		condCode = append(condCode, sm.Cjmp(sm.CondZ, elseLabel))

		e, thenLab := e.NextLabel()
		usedThen, e, thenCode := compileNode(thenLab, e, d.Then)
		thenCode = append(thenCode, labelIfUsed(e, usedThen, thenLab)...)
		thenCode = append(thenCode, sm.Jmp(lab))
		thenCode = append(thenCode, sm.Label(elseLabel))

		_, e, elseCode := compileNode(lab, e, d.Else)

		code := append(condCode, thenCode...)
		code = append(code, elseCode...)
		// The then-branch unconditionally JMPs to lab, so lab is always a
		// real jump target once an If has been compiled.
		return true, e, code

	case ast.While:
		d := node.Data.(ast.WhileNode)
		e, condLab := e.NextLabel()
		e, bodyLab := e.NextLabel()
		code := []sm.Insn{sm.Jmp(condLab), sm.Label(bodyLab)}
		_, e, bodyCode := compileNode(condLab, e, d.Body)
		code = append(code, bodyCode...)
		code = append(code, sm.Label(condLab))

		e, condEndLab := e.NextLabel()
		usedCond, e, condCode := compileNode(condEndLab, e, d.Cond)
		condCode = append(condCode, labelIfUsed(e, usedCond, condEndLab)...)
		code = append(code, condCode...)
		code = append(code, sm.Cjmp(sm.CondNZ, bodyLab))
		return false, e, code

	case ast.DoWhile:
		d := node.Data.(ast.DoWhileNode)
		e, bodyLab := e.NextLabel()
		code := []sm.Insn{sm.Label(bodyLab)}

		e, bodyEndLab := e.NextLabel()
		usedBody, e, bodyCode := compileNode(bodyEndLab, e, d.Body)
		bodyCode = append(bodyCode, labelIfUsed(e, usedBody, bodyEndLab)...)

		e, condEndLab := e.NextLabel()
		usedCond, e, condCode := compileNode(condEndLab, e, d.Cond)
		condCode = append(condCode, labelIfUsed(e, usedCond, condEndLab)...)

		code = append(code, bodyCode...)
		code = append(code, condCode...)
		code = append(code, sm.Cjmp(sm.CondNZ, bodyLab))
		return false, e, code

	case ast.Ignore:
		d := node.Data.(ast.IgnoreNode)
		e, exprLab := e.NextLabel()
		used, e, code := compileNode(exprLab, e, d.Expr)
		code = append(code, labelIfUsed(e, used, exprLab)...)
		code = append(code, sm.Drop())
		return false, e, code

	case ast.Call:
		d := node.Data.(ast.CallNode)
		e, code := compileArgsRTL(e, d.Args)
		target, found, ok := e.LookupFun(d.Name)
		if !found || !ok {
			diag.NameError(node.Pos, d.Name, "function")
		}
		if target.IsBuiltin() {
			code = append(code, sm.Builtin(strings.TrimPrefix(target.Label, "$"), len(d.Args)))
		} else {
			code = append(code, sm.Call(target.Label, len(d.Args)))
		}
		return false, e, code

	case ast.Scope:
		return compileScope(lab, e, node)

	case ast.String:
		d := node.Data.(ast.StringNode)
		return false, e, []sm.Insn{sm.Str(d.Value)}

	case ast.Array:
		d := node.Data.(ast.ArrayNode)
		e, code := compileArgsRTL(e, d.Elems)
		code = append(code, sm.Array(len(d.Elems)))
		return false, e, code

	case ast.Sexp:
		d := node.Data.(ast.SexpNode)
		e, code := compileArgsRTL(e, d.Args)
		code = append(code, sm.Sexp(d.Tag, len(d.Args)))
		return false, e, code

	case ast.Elem:
		// ELEM trails both the container and the index, so unlike ElemRef
		// (compileSeq below) the index cannot inherit the caller's
		// continuation label — it needs its own, mirroring Binop.
		d := node.Data.(ast.ElemNode)
		e, containerLab := e.NextLabel()
		usedContainer, e, containerCode := compileNode(containerLab, e, d.Container)
		containerCode = append(containerCode, labelIfUsed(e, usedContainer, containerLab)...)

		e, indexLab := e.NextLabel()
		usedIndex, e, indexCode := compileNode(indexLab, e, d.Index)
		indexCode = append(indexCode, labelIfUsed(e, usedIndex, indexLab)...)

		code := append(containerCode, indexCode...)
		code = append(code, sm.Elem())
		return false, e, code

	case ast.ElemRef:
		d := node.Data.(ast.ElemRefNode)
		return compileSeq(lab, e, d.Container, d.Index)

	case ast.Builtin:
		d := node.Data.(ast.BuiltinNode)
		e, code := compileArgsRTL(e, d.Args)
		code = append(code, sm.Builtin(strings.TrimPrefix(d.Name, "$"), len(d.Args)))
		return false, e, code

	case ast.Binop:
		d := node.Data.(ast.BinopNode)
		e, leftLab := e.NextLabel()
		usedL, e, codeL := compileNode(leftLab, e, d.Left)
		codeL = append(codeL, labelIfUsed(e, usedL, leftLab)...)

		e, rightLab := e.NextLabel()
		usedR, e, codeR := compileNode(rightLab, e, d.Right)
		codeR = append(codeR, labelIfUsed(e, usedR, rightLab)...)

		code := append(codeL, codeR...)
		code = append(code, sm.Binop(d.Op))
		return false, e, code

	default:
		diag.Bug("compiler: unhandled AST node type %d", node.Type)
		return false, e, nil
	}
}

// compileScope implements the six-step contract of spec §4.1's Scope case.
func compileScope(lab string, e env.Env, node *ast.Node) (bool, env.Env, []sm.Insn) {
	d := node.Data.(ast.ScopeNode)
	saved := e
	e = e.EnterScope()

	type hoisted struct {
		label string
		args  []string
		body  *ast.Node
	}
	var prelude []sm.Insn
	var fns []hoisted

	// Pass 1: bind every name the scope introduces before compiling
	// anything, so forward references (including self/mutual recursion
	// between sibling functions) resolve.
	for _, def := range d.Defs {
		switch def.Type {
		case ast.DefVar:
			names := def.Data.(ast.DefVarNode).Names
			for _, name := range names {
				var l loc.Location
				e, l = e.AddVar(name)
				if l.Kind == loc.Glb {
					prelude = append(prelude, sm.Global(name))
				}
			}
		case ast.DefVal:
			names := def.Data.(ast.DefValNode).Names
			for _, name := range names {
				var l loc.Location
				e, l = e.AddVal(name)
				if l.Kind == loc.Glb {
					prelude = append(prelude, sm.Global(name))
				}
			}
		case ast.DefFun:
			fd := def.Data.(ast.DefFunNode)
			var label string
			e, label = e.FunctionLabel(fd.Name)
			e = e.AddFun(fd.Name, label, len(fd.Args))
			fns = append(fns, hoisted{label: label, args: fd.Args, body: fd.Body})
		}
	}

	// Pass 2: hoist the collected functions, capturing the symbol state as
	// it stands now — after all of this scope's own names are bound.
	for _, fn := range fns {
		e = e.Enqueue(fn.label, fn.args, fn.body)
	}

	usedBody, e, bodyCode := compileNode(lab, e, d.Body)
	e = e.LeaveScope(saved)

	code := append(prelude, bodyCode...)
	return usedBody, e, code
}
