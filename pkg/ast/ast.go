// Package ast defines the tagged tree produced by the (out-of-scope) parser
// and consumed by the AST→SM compiler (spec §3.1). Node variants, binary
// operators, and scope definitions are modeled the way the teacher compiler
// models its own AST: a single Node struct carrying a NodeType discriminant
// and an opaque per-variant Data payload, switched on exhaustively by every
// consumer.
package ast

import "github.com/al-romanov/lama-compiler-2022/pkg/token"

// NodeType discriminates the AST node variants of spec §3.1.
type NodeType int

const (
	Skip NodeType = iota
	Const
	Var
	Ref
	Binop
	Assn
	Set
	Seq
	If
	While
	DoWhile
	Ignore
	Call
	Scope
	String
	Array
	Sexp
	Elem
	ElemRef
	Builtin
)

// BinOp enumerates the binary operators SM's BINOP instruction accepts.
type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Mod
	Eq
	Neq
	Lt
	Lte
	Gt
	Gte
	And
	Or
	Xor
)

// String renders the operator the way it appears in SM text and asm
// comments, e.g. "BINOP +".
func (op BinOp) String() string {
	switch op {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	case Mod:
		return "%"
	case Eq:
		return "=="
	case Neq:
		return "!="
	case Lt:
		return "<"
	case Lte:
		return "<="
	case Gt:
		return ">"
	case Gte:
		return ">="
	case And:
		return "&&"
	case Or:
		return "||"
	case Xor:
		return "^"
	default:
		return "?"
	}
}

// Node is a single AST node. Data holds one of the *Node structs below,
// selected by Type.
type Node struct {
	Type NodeType
	Pos  token.Pos
	Data interface{}
}

// --- Per-variant data ---

type ConstNode struct{ Value int }
type VarNode struct{ Name string }
type RefNode struct{ Name string }
type BinopNode struct {
	Op          BinOp
	Left, Right *Node
}
type AssnNode struct{ Lhs, Rhs *Node }
type SetNode struct {
	Name string
	Expr *Node
}
type SeqNode struct{ First, Second *Node }
type IfNode struct{ Cond, Then, Else *Node }
type WhileNode struct{ Cond, Body *Node }
type DoWhileNode struct{ Body, Cond *Node }
type IgnoreNode struct{ Expr *Node }
type CallNode struct {
	Name string
	Args []*Node
}
type ScopeNode struct {
	Defs []*Def
	Body *Node
}
type StringNode struct{ Value string }
type ArrayNode struct{ Elems []*Node }
type SexpNode struct {
	Tag  string
	Args []*Node
}
type ElemNode struct{ Container, Index *Node }
type ElemRefNode struct{ Container, Index *Node }
type BuiltinNode struct {
	Name string
	Args []*Node
}

// --- Scope definitions ---

// DefType discriminates the three kinds of definition a Scope can carry.
type DefType int

const (
	DefVar DefType = iota
	DefVal
	DefFun
)

// Def is one definition inside a Scope's definition list.
type Def struct {
	Type DefType
	Pos  token.Pos
	Data interface{}
}

type DefVarNode struct{ Names []string }
type DefValNode struct{ Names []string }
type DefFunNode struct {
	Name string
	Args []string
	Body *Node
}

// --- Constructors ---

func NewSkip(pos token.Pos) *Node { return &Node{Type: Skip, Pos: pos} }

func NewConst(pos token.Pos, v int) *Node {
	return &Node{Type: Const, Pos: pos, Data: ConstNode{Value: v}}
}

func NewVar(pos token.Pos, name string) *Node {
	return &Node{Type: Var, Pos: pos, Data: VarNode{Name: name}}
}

func NewRef(pos token.Pos, name string) *Node {
	return &Node{Type: Ref, Pos: pos, Data: RefNode{Name: name}}
}

func NewBinop(pos token.Pos, op BinOp, l, r *Node) *Node {
	return &Node{Type: Binop, Pos: pos, Data: BinopNode{Op: op, Left: l, Right: r}}
}

func NewAssn(pos token.Pos, lhs, rhs *Node) *Node {
	return &Node{Type: Assn, Pos: pos, Data: AssnNode{Lhs: lhs, Rhs: rhs}}
}

func NewSet(pos token.Pos, name string, expr *Node) *Node {
	return &Node{Type: Set, Pos: pos, Data: SetNode{Name: name, Expr: expr}}
}

func NewSeq(pos token.Pos, a, b *Node) *Node {
	return &Node{Type: Seq, Pos: pos, Data: SeqNode{First: a, Second: b}}
}

func NewIf(pos token.Pos, cond, then, els *Node) *Node {
	return &Node{Type: If, Pos: pos, Data: IfNode{Cond: cond, Then: then, Else: els}}
}

func NewWhile(pos token.Pos, cond, body *Node) *Node {
	return &Node{Type: While, Pos: pos, Data: WhileNode{Cond: cond, Body: body}}
}

func NewDoWhile(pos token.Pos, body, cond *Node) *Node {
	return &Node{Type: DoWhile, Pos: pos, Data: DoWhileNode{Body: body, Cond: cond}}
}

func NewIgnore(pos token.Pos, expr *Node) *Node {
	return &Node{Type: Ignore, Pos: pos, Data: IgnoreNode{Expr: expr}}
}

func NewCall(pos token.Pos, name string, args []*Node) *Node {
	return &Node{Type: Call, Pos: pos, Data: CallNode{Name: name, Args: args}}
}

func NewScope(pos token.Pos, defs []*Def, body *Node) *Node {
	return &Node{Type: Scope, Pos: pos, Data: ScopeNode{Defs: defs, Body: body}}
}

func NewString(pos token.Pos, v string) *Node {
	return &Node{Type: String, Pos: pos, Data: StringNode{Value: v}}
}

func NewArray(pos token.Pos, elems []*Node) *Node {
	return &Node{Type: Array, Pos: pos, Data: ArrayNode{Elems: elems}}
}

func NewSexp(pos token.Pos, tag string, args []*Node) *Node {
	return &Node{Type: Sexp, Pos: pos, Data: SexpNode{Tag: tag, Args: args}}
}

func NewElem(pos token.Pos, container, index *Node) *Node {
	return &Node{Type: Elem, Pos: pos, Data: ElemNode{Container: container, Index: index}}
}

func NewElemRef(pos token.Pos, container, index *Node) *Node {
	return &Node{Type: ElemRef, Pos: pos, Data: ElemRefNode{Container: container, Index: index}}
}

func NewBuiltin(pos token.Pos, name string, args []*Node) *Node {
	return &Node{Type: Builtin, Pos: pos, Data: BuiltinNode{Name: name, Args: args}}
}

func NewDefVar(pos token.Pos, names ...string) *Def {
	return &Def{Type: DefVar, Pos: pos, Data: DefVarNode{Names: names}}
}

func NewDefVal(pos token.Pos, names ...string) *Def {
	return &Def{Type: DefVal, Pos: pos, Data: DefValNode{Names: names}}
}

func NewDefFun(pos token.Pos, name string, args []string, body *Node) *Def {
	return &Def{Type: DefFun, Pos: pos, Data: DefFunNode{Name: name, Args: args, Body: body}}
}
