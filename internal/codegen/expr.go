package codegen

import (
	"github.com/pictlang/pictc/internal/ast"
	"github.com/pictlang/pictc/internal/ir"
)

// lowerExpr lowers an expression, leaving its one-word result on the
// machine stack (spec §4.4.4).
func (g *generator) lowerExpr(n *ast.Node) error {
	switch n.Type {
	case ast.Number:
		return g.emit(ir.PUSH, ir.Imm(ir.W32, round1000(n.Number)), ir.None())
	case ast.Variable:
		return g.pushFrom(n)
	case ast.Call:
		return g.lowerCall(n)
	case ast.Operator:
		return g.lowerBinary(n)
	default:
		return n.Errorf("unexpected expression node type %d", n.Type)
	}
}

// pushFrom emits PUSH [name] for a global or PUSH [BP+8*slot] for a
// local/parameter.
func (g *generator) pushFrom(n *ast.Node) error {
	entry, isGlobal, ok := g.chain.Lookup(n.Name)
	if !ok {
		return n.Errorf("undeclared variable %q", n.Name)
	}
	if isGlobal {
		site, err := g.emitSite(ir.PUSH, ir.MemAbs(ir.W64, 0), ir.None())
		if err != nil {
			return err
		}
		g.globalRefs = append(g.globalRefs, globalRef{site: site, index: entry.Slot})
		return nil
	}
	return g.emit(ir.PUSH, ir.Mem(ir.W64, ir.BP, int32(8*entry.Slot)), ir.None())
}

// lowerBinary lowers both operands left-then-right, then the operator
// itself.
func (g *generator) lowerBinary(n *ast.Node) error {
	switch n.Op {
	case ast.EQ, ast.NEQ, ast.GRE, ast.LES, ast.GEQ, ast.LEQ:
		return g.lowerComparison(n)
	}

	if n.Left == nil || n.Right == nil {
		return n.Errorf("binary operator missing an operand")
	}
	if err := g.lowerExpr(n.Left); err != nil {
		return err
	}
	if err := g.lowerExpr(n.Right); err != nil {
		return err
	}

	switch n.Op {
	case ast.ADD:
		return g.lowerAdd()
	case ast.SUB:
		return g.lowerSub()
	case ast.MUL:
		return g.lowerMul()
	case ast.DIV:
		return g.lowerDiv()
	default:
		return n.Errorf("unexpected operator %d in expression", n.Op)
	}
}

func (g *generator) lowerAdd() error {
	if err := g.emit(ir.POP, ir.Reg(ir.W64, ir.DI), ir.None()); err != nil {
		return err
	}
	if err := g.emit(ir.POP, ir.Reg(ir.W64, ir.SI), ir.None()); err != nil {
		return err
	}
	if err := g.emit(ir.ADD, ir.Reg(ir.W64, ir.DI), ir.Reg(ir.W64, ir.SI)); err != nil {
		return err
	}
	return g.emit(ir.PUSH, ir.Reg(ir.W64, ir.DI), ir.None())
}

// lowerSub pops in the opposite order to lowerAdd (SI first, then DI): the
// right operand is on top of the stack, so SUB computes DI-SI with DI
// holding the left operand (popped second).
func (g *generator) lowerSub() error {
	if err := g.emit(ir.POP, ir.Reg(ir.W64, ir.SI), ir.None()); err != nil {
		return err
	}
	if err := g.emit(ir.POP, ir.Reg(ir.W64, ir.DI), ir.None()); err != nil {
		return err
	}
	if err := g.emit(ir.SUB, ir.Reg(ir.W64, ir.DI), ir.Reg(ir.W64, ir.SI)); err != nil {
		return err
	}
	return g.emit(ir.PUSH, ir.Reg(ir.W64, ir.DI), ir.None())
}

// lowerMul multiplies then divides by 1000 to correct the fixed-point
// scale (spec §4.4.4).
func (g *generator) lowerMul() error {
	if err := g.emit(ir.POP, ir.Reg(ir.W64, ir.DI), ir.None()); err != nil {
		return err
	}
	if err := g.emit(ir.POP, ir.Reg(ir.W64, ir.A), ir.None()); err != nil {
		return err
	}
	if err := g.emit(ir.IMUL, ir.Reg(ir.W64, ir.DI), ir.None()); err != nil {
		return err
	}
	if err := g.emit(ir.MOV, ir.Reg(ir.W64, ir.DI), ir.Imm(ir.W32, 1000)); err != nil {
		return err
	}
	if err := g.emit(ir.IDIV, ir.Reg(ir.W64, ir.DI), ir.None()); err != nil {
		return err
	}
	if err := g.emit(ir.CDQE, ir.None(), ir.None()); err != nil {
		return err
	}
	return g.emit(ir.PUSH, ir.Reg(ir.W64, ir.A), ir.None())
}

// lowerDiv pre-multiplies by 1000 to preserve three fractional digits
// before dividing (spec §4.4.4).
func (g *generator) lowerDiv() error {
	if err := g.emit(ir.POP, ir.Reg(ir.W64, ir.DI), ir.None()); err != nil {
		return err
	}
	if err := g.emit(ir.POP, ir.Reg(ir.W64, ir.A), ir.None()); err != nil {
		return err
	}
	if err := g.emit(ir.MOV, ir.Reg(ir.W64, ir.SI), ir.Imm(ir.W32, 1000)); err != nil {
		return err
	}
	if err := g.emit(ir.IMUL, ir.Reg(ir.W64, ir.SI), ir.None()); err != nil {
		return err
	}
	if err := g.emit(ir.IDIV, ir.Reg(ir.W64, ir.DI), ir.None()); err != nil {
		return err
	}
	if err := g.emit(ir.CDQE, ir.None(), ir.None()); err != nil {
		return err
	}
	return g.emit(ir.PUSH, ir.Reg(ir.W64, ir.A), ir.None())
}
