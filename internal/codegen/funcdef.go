package codegen

import (
	"github.com/pictlang/pictc/internal/ast"
	"github.com/pictlang/pictc/internal/ir"
)

// lowerFuncDef lowers one function definition (spec §4.4.2): prologue,
// parameter frame, body, and a guard epilogue for fall-off-the-end.
func (g *generator) lowerFuncDef(n *ast.Node) error {
	argCount := 0
	for p := n.Left; p != nil; p = p.Right {
		argCount++
	}

	codeOffset := g.buf.IP()
	if _, err := g.funcs.Declare(n.Name, argCount, codeOffset); err != nil {
		return n.Errorf("%w", err)
	}

	g.printf("\n%s:\n", n.Name)
	if err := g.emit(ir.PUSH, ir.Reg(ir.W64, ir.BP), ir.None()); err != nil {
		return err
	}
	if err := g.emit(ir.MOV, ir.Reg(ir.W64, ir.BP), ir.Reg(ir.W64, ir.SP)); err != nil {
		return err
	}

	g.chain.PushParams()
	i := 0
	for p := n.Left; p != nil; p = p.Right {
		if _, err := g.chain.Declare(p.Name, 2+i, 0); err != nil {
			return p.Errorf("%w", err)
		}
		i++
	}
	g.chain.PushLocal()

	if err := g.lowerSequence(n.Right); err != nil {
		return err
	}

	// Guard against falling off the end of a non-void function: the
	// reference leaves this undefined, so emit an explicit zero-returning
	// epilogue (spec §9 Open Question).
	if err := g.emit(ir.MOV, ir.Reg(ir.W64, ir.A), ir.Imm(ir.W32, 0)); err != nil {
		return err
	}
	if err := g.emitEpilogue(); err != nil {
		return err
	}

	g.chain.Pop()
	g.chain.Pop()
	return nil
}

func (g *generator) emitEpilogue() error {
	if err := g.emit(ir.MOV, ir.Reg(ir.W64, ir.SP), ir.Reg(ir.W64, ir.BP)); err != nil {
		return err
	}
	if err := g.emit(ir.POP, ir.Reg(ir.W64, ir.BP), ir.None()); err != nil {
		return err
	}
	return g.emit(ir.RET, ir.None(), ir.None())
}
