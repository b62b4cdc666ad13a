package astjson

import (
	"testing"

	"github.com/al-romanov/lama-compiler-2022/pkg/ast"
)

func TestDecodeConst(t *testing.T) {
	n, err := Decode([]byte(`{"type":"Const","value":42,"pos":{"file":"a.lama","line":3,"col":5}}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if n.Type != ast.Const {
		t.Fatalf("Type = %v, want ast.Const", n.Type)
	}
	if got := n.Data.(ast.ConstNode).Value; got != 42 {
		t.Fatalf("Value = %d, want 42", got)
	}
	if n.Pos.File != "a.lama" || n.Pos.Line != 3 || n.Pos.Col != 5 {
		t.Fatalf("Pos = %+v, unexpected", n.Pos)
	}
}

func TestDecodeBinop(t *testing.T) {
	n, err := Decode([]byte(`{
		"type": "Binop", "op": "+", "pos": {},
		"left": {"type": "Const", "value": 1, "pos": {}},
		"right": {"type": "Const", "value": 2, "pos": {}}
	}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	d := n.Data.(ast.BinopNode)
	if d.Op != ast.Add {
		t.Fatalf("Op = %v, want ast.Add", d.Op)
	}
	if d.Left.Data.(ast.ConstNode).Value != 1 || d.Right.Data.(ast.ConstNode).Value != 2 {
		t.Fatalf("operands not decoded correctly: %+v", d)
	}
}

func TestDecodeIfWithoutElseDefaultsToSkip(t *testing.T) {
	n, err := Decode([]byte(`{
		"type": "If", "pos": {},
		"cond": {"type": "Const", "value": 1, "pos": {}},
		"then": {"type": "Skip", "pos": {}}
	}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	d := n.Data.(ast.IfNode)
	if d.Else == nil || d.Else.Type != ast.Skip {
		t.Fatalf("Else = %+v, want a Skip node", d.Else)
	}
}

func TestDecodeCallWithArgs(t *testing.T) {
	n, err := Decode([]byte(`{
		"type": "Call", "name": "fib", "pos": {},
		"args": [{"type": "Var", "name": "n", "pos": {}}]
	}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	d := n.Data.(ast.CallNode)
	if d.Name != "fib" || len(d.Args) != 1 {
		t.Fatalf("CallNode = %+v", d)
	}
	if d.Args[0].Data.(ast.VarNode).Name != "n" {
		t.Fatalf("arg not decoded: %+v", d.Args[0])
	}
}

func TestDecodeScopeWithDefsAndFunction(t *testing.T) {
	n, err := Decode([]byte(`{
		"type": "Scope", "pos": {},
		"defs": [
			{"type": "var", "names": ["x", "y"], "pos": {}},
			{"type": "fun", "name": "id", "args": ["a"], "pos": {},
			 "body": {"type": "Var", "name": "a", "pos": {}}}
		],
		"body": {"type": "Skip", "pos": {}}
	}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	d := n.Data.(ast.ScopeNode)
	if len(d.Defs) != 2 {
		t.Fatalf("got %d defs, want 2", len(d.Defs))
	}
	varDef := d.Defs[0].Data.(ast.DefVarNode)
	if len(varDef.Names) != 2 || varDef.Names[0] != "x" || varDef.Names[1] != "y" {
		t.Fatalf("var def names = %v", varDef.Names)
	}
	funDef := d.Defs[1].Data.(ast.DefFunNode)
	if funDef.Name != "id" || len(funDef.Args) != 1 || funDef.Args[0] != "a" {
		t.Fatalf("fun def = %+v", funDef)
	}
	if funDef.Body.Data.(ast.VarNode).Name != "a" {
		t.Fatalf("fun body not decoded: %+v", funDef.Body)
	}
}

func TestDecodeSexpAndArray(t *testing.T) {
	n, err := Decode([]byte(`{
		"type": "Sexp", "tag": "cons", "pos": {},
		"args": [{"type": "Const", "value": 1, "pos": {}}]
	}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	d := n.Data.(ast.SexpNode)
	if d.Tag != "cons" || len(d.Args) != 1 {
		t.Fatalf("SexpNode = %+v", d)
	}

	arr, err := Decode([]byte(`{
		"type": "Array", "pos": {},
		"elems": [{"type": "Const", "value": 1, "pos": {}}, {"type": "Const", "value": 2, "pos": {}}]
	}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if got := len(arr.Data.(ast.ArrayNode).Elems); got != 2 {
		t.Fatalf("Array elems = %d, want 2", got)
	}
}

func TestDecodeUnknownNodeType(t *testing.T) {
	_, err := Decode([]byte(`{"type": "Bogus", "pos": {}}`))
	if err == nil {
		t.Fatal("expected an error for an unknown node type")
	}
}

func TestDecodeUnknownBinop(t *testing.T) {
	_, err := Decode([]byte(`{
		"type": "Binop", "op": "???", "pos": {},
		"left": {"type": "Const", "value": 1, "pos": {}},
		"right": {"type": "Const", "value": 2, "pos": {}}
	}`))
	if err == nil {
		t.Fatal("expected an error for an unknown binary operator")
	}
}
