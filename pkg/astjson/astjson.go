// Package astjson decodes the JSON tree an external frontend hands the
// driver into pkg/ast's Node type. The lexer/parser producing that tree is
// explicitly out of scope for this backend (spec §1: "lexer/parser
// producing the AST" is an external collaborator specified only by its
// output shape) — this package is the boundary that shape crosses.
package astjson

import (
	"encoding/json"
	"fmt"

	"github.com/al-romanov/lama-compiler-2022/pkg/ast"
	"github.com/al-romanov/lama-compiler-2022/pkg/token"
)

// Decode parses one AST from its JSON encoding (field names and node "type"
// discriminants match ast.NodeType's names, e.g. {"type":"Binop","op":"+",
// "left":...,"right":...}).
func Decode(data []byte) (*ast.Node, error) {
	var raw json.RawMessage = data
	return decodeNode(raw)
}

func decodeNode(raw json.RawMessage) (*ast.Node, error) {
	var head struct {
		Type string `json:"type"`
		Pos  struct {
			File string `json:"file"`
			Line int    `json:"line"`
			Col  int    `json:"col"`
		} `json:"pos"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("astjson: %w", err)
	}
	pos := token.Pos{File: head.Pos.File, Line: head.Pos.Line, Col: head.Pos.Col}

	switch head.Type {
	case "Skip":
		return ast.NewSkip(pos), nil
	case "Const":
		var n struct {
			Value int `json:"value"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return ast.NewConst(pos, n.Value), nil
	case "Var":
		var n struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return ast.NewVar(pos, n.Name), nil
	case "Ref":
		var n struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return ast.NewRef(pos, n.Name), nil
	case "Binop":
		var n struct {
			Op    string          `json:"op"`
			Left  json.RawMessage `json:"left"`
			Right json.RawMessage `json:"right"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		op, err := binopFromString(n.Op)
		if err != nil {
			return nil, err
		}
		l, err := decodeNode(n.Left)
		if err != nil {
			return nil, err
		}
		r, err := decodeNode(n.Right)
		if err != nil {
			return nil, err
		}
		return ast.NewBinop(pos, op, l, r), nil
	case "Assn":
		var n struct {
			Lhs json.RawMessage `json:"lhs"`
			Rhs json.RawMessage `json:"rhs"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		lhs, err := decodeNode(n.Lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := decodeNode(n.Rhs)
		if err != nil {
			return nil, err
		}
		return ast.NewAssn(pos, lhs, rhs), nil
	case "Set":
		var n struct {
			Name string          `json:"name"`
			Expr json.RawMessage `json:"expr"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		expr, err := decodeNode(n.Expr)
		if err != nil {
			return nil, err
		}
		return ast.NewSet(pos, n.Name, expr), nil
	case "Seq":
		var n struct {
			First  json.RawMessage `json:"first"`
			Second json.RawMessage `json:"second"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		a, err := decodeNode(n.First)
		if err != nil {
			return nil, err
		}
		b, err := decodeNode(n.Second)
		if err != nil {
			return nil, err
		}
		return ast.NewSeq(pos, a, b), nil
	case "If":
		var n struct {
			Cond, Then, Else json.RawMessage
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		cond, err := decodeNode(n.Cond)
		if err != nil {
			return nil, err
		}
		then, err := decodeNode(n.Then)
		if err != nil {
			return nil, err
		}
		var els *ast.Node
		if len(n.Else) > 0 {
			els, err = decodeNode(n.Else)
			if err != nil {
				return nil, err
			}
		} else {
			els = ast.NewSkip(pos)
		}
		return ast.NewIf(pos, cond, then, els), nil
	case "While":
		var n struct{ Cond, Body json.RawMessage }
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		cond, err := decodeNode(n.Cond)
		if err != nil {
			return nil, err
		}
		body, err := decodeNode(n.Body)
		if err != nil {
			return nil, err
		}
		return ast.NewWhile(pos, cond, body), nil
	case "DoWhile":
		var n struct{ Body, Cond json.RawMessage }
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		body, err := decodeNode(n.Body)
		if err != nil {
			return nil, err
		}
		cond, err := decodeNode(n.Cond)
		if err != nil {
			return nil, err
		}
		return ast.NewDoWhile(pos, body, cond), nil
	case "Ignore":
		var n struct{ Expr json.RawMessage }
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		expr, err := decodeNode(n.Expr)
		if err != nil {
			return nil, err
		}
		return ast.NewIgnore(pos, expr), nil
	case "Call":
		var n struct {
			Name string            `json:"name"`
			Args []json.RawMessage `json:"args"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		args, err := decodeNodes(n.Args)
		if err != nil {
			return nil, err
		}
		return ast.NewCall(pos, n.Name, args), nil
	case "Scope":
		var n struct {
			Defs []json.RawMessage `json:"defs"`
			Body json.RawMessage   `json:"body"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		defs, err := decodeDefs(n.Defs)
		if err != nil {
			return nil, err
		}
		body, err := decodeNode(n.Body)
		if err != nil {
			return nil, err
		}
		return ast.NewScope(pos, defs, body), nil
	case "String":
		var n struct {
			Value string `json:"value"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return ast.NewString(pos, n.Value), nil
	case "Array":
		var n struct {
			Elems []json.RawMessage `json:"elems"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		elems, err := decodeNodes(n.Elems)
		if err != nil {
			return nil, err
		}
		return ast.NewArray(pos, elems), nil
	case "Sexp":
		var n struct {
			Tag  string            `json:"tag"`
			Args []json.RawMessage `json:"args"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		args, err := decodeNodes(n.Args)
		if err != nil {
			return nil, err
		}
		return ast.NewSexp(pos, n.Tag, args), nil
	case "Elem":
		var n struct{ Container, Index json.RawMessage }
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		c, err := decodeNode(n.Container)
		if err != nil {
			return nil, err
		}
		i, err := decodeNode(n.Index)
		if err != nil {
			return nil, err
		}
		return ast.NewElem(pos, c, i), nil
	case "ElemRef":
		var n struct{ Container, Index json.RawMessage }
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		c, err := decodeNode(n.Container)
		if err != nil {
			return nil, err
		}
		i, err := decodeNode(n.Index)
		if err != nil {
			return nil, err
		}
		return ast.NewElemRef(pos, c, i), nil
	case "Builtin":
		var n struct {
			Name string            `json:"name"`
			Args []json.RawMessage `json:"args"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		args, err := decodeNodes(n.Args)
		if err != nil {
			return nil, err
		}
		return ast.NewBuiltin(pos, n.Name, args), nil
	default:
		return nil, fmt.Errorf("astjson: unknown node type %q", head.Type)
	}
}

func decodeNodes(raws []json.RawMessage) ([]*ast.Node, error) {
	out := make([]*ast.Node, len(raws))
	for i, r := range raws {
		n, err := decodeNode(r)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func decodeDefs(raws []json.RawMessage) ([]*ast.Def, error) {
	out := make([]*ast.Def, len(raws))
	for i, raw := range raws {
		var head struct {
			Type string `json:"type"`
			Pos  struct {
				File string `json:"file"`
				Line int    `json:"line"`
				Col  int    `json:"col"`
			} `json:"pos"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return nil, err
		}
		pos := token.Pos{File: head.Pos.File, Line: head.Pos.Line, Col: head.Pos.Col}
		switch head.Type {
		case "var":
			var n struct {
				Names []string `json:"names"`
			}
			if err := json.Unmarshal(raw, &n); err != nil {
				return nil, err
			}
			out[i] = ast.NewDefVar(pos, n.Names...)
		case "val":
			var n struct {
				Names []string `json:"names"`
			}
			if err := json.Unmarshal(raw, &n); err != nil {
				return nil, err
			}
			out[i] = ast.NewDefVal(pos, n.Names...)
		case "fun":
			var n struct {
				Name string          `json:"name"`
				Args []string        `json:"args"`
				Body json.RawMessage `json:"body"`
			}
			if err := json.Unmarshal(raw, &n); err != nil {
				return nil, err
			}
			body, err := decodeNode(n.Body)
			if err != nil {
				return nil, err
			}
			out[i] = ast.NewDefFun(pos, n.Name, n.Args, body)
		default:
			return nil, fmt.Errorf("astjson: unknown def type %q", head.Type)
		}
	}
	return out, nil
}

func binopFromString(s string) (ast.BinOp, error) {
	switch s {
	case "+":
		return ast.Add, nil
	case "-":
		return ast.Sub, nil
	case "*":
		return ast.Mul, nil
	case "/":
		return ast.Div, nil
	case "%":
		return ast.Mod, nil
	case "==":
		return ast.Eq, nil
	case "!=":
		return ast.Neq, nil
	case "<":
		return ast.Lt, nil
	case "<=":
		return ast.Lte, nil
	case ">":
		return ast.Gt, nil
	case ">=":
		return ast.Gte, nil
	case "&&":
		return ast.And, nil
	case "||":
		return ast.Or, nil
	case "^":
		return ast.Xor, nil
	default:
		return 0, fmt.Errorf("astjson: unknown binop %q", s)
	}
}
