package codegen

import (
	"github.com/pictlang/pictc/internal/ast"
	"github.com/pictlang/pictc/internal/ir"
)

// jccFor maps a comparison operator to the conditional jump that is true
// exactly when the comparison holds, given CMP left, right (left lowered
// first, so it ends up below right on the stack and is the CMP's first
// operand).
var jccFor = map[ast.Op]ir.Opcode{
	ast.EQ:  ir.JE,
	ast.NEQ: ir.JNE,
	ast.GRE: ir.JG,
	ast.LES: ir.JL,
	ast.GEQ: ir.JGE,
	ast.LEQ: ir.JLE,
}

// lowerComparison lowers a comparison to a fixed-point truth value: 1000 if
// the comparison holds, 0 otherwise (spec §4.4.6).
func (g *generator) lowerComparison(n *ast.Node) error {
	if n.Left == nil || n.Right == nil {
		return n.Errorf("comparison missing an operand")
	}
	jcc, ok := jccFor[n.Op]
	if !ok {
		return n.Errorf("operator %d is not a comparison", n.Op)
	}

	if err := g.lowerExpr(n.Left); err != nil {
		return err
	}
	if err := g.lowerExpr(n.Right); err != nil {
		return err
	}

	if err := g.emit(ir.POP, ir.Reg(ir.W64, ir.SI), ir.None()); err != nil {
		return err
	}
	if err := g.emit(ir.POP, ir.Reg(ir.W64, ir.DI), ir.None()); err != nil {
		return err
	}
	if err := g.emit(ir.CMP, ir.Reg(ir.W64, ir.DI), ir.Reg(ir.W64, ir.SI)); err != nil {
		return err
	}
	if err := g.emit(ir.MOV, ir.Reg(ir.W64, ir.A), ir.Imm(ir.W32, 1000)); err != nil {
		return err
	}
	trueSite, err := g.emitJump(jcc)
	if err != nil {
		return err
	}
	if err := g.emit(ir.XOR, ir.Reg(ir.W64, ir.A), ir.Reg(ir.W64, ir.A)); err != nil {
		return err
	}
	if err := g.buf.SetRelative(trueSite, g.buf.IP()); err != nil {
		return err
	}
	return g.emit(ir.PUSH, ir.Reg(ir.W64, ir.A), ir.None())
}
