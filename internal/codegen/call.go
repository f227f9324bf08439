package codegen

import (
	"github.com/pictlang/pictc/internal/ast"
	"github.com/pictlang/pictc/internal/ir"
)

// lowerCall lowers a call expression: arguments right-to-left, the CALL
// itself, stack cleanup, and pushing the return value so calls compose
// inside expressions (spec §4.4.5).
func (g *generator) lowerCall(n *ast.Node) error {
	fn, ok := g.funcs.Lookup(n.Name)
	if !ok {
		return n.Errorf("undeclared function %q", n.Name)
	}

	var args []*ast.Node
	for a := n.Left; a != nil; a = a.Right {
		if a.Type != ast.Arg || a.Left == nil {
			return a.Errorf("malformed argument node")
		}
		args = append(args, a.Left)
	}
	if len(args) != fn.ArgCount {
		return n.Errorf("call to %q passes %d arguments, want %d", n.Name, len(args), fn.ArgCount)
	}

	for i := len(args) - 1; i >= 0; i-- {
		if err := g.lowerExpr(args[i]); err != nil {
			return err
		}
	}

	callSite, err := g.emitCall()
	if err != nil {
		return err
	}
	if err := g.buf.SetRelative(callSite, fn.CodeOffset); err != nil {
		return err
	}

	if len(args) > 0 {
		if err := g.emit(ir.ADD, ir.Reg(ir.W64, ir.SP), ir.Imm(ir.W32, int64(8*len(args)))); err != nil {
			return err
		}
	}
	return g.emit(ir.PUSH, ir.Reg(ir.W64, ir.A), ir.None())
}
