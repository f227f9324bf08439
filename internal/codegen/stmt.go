package codegen

import (
	"github.com/pictlang/pictc/internal/ast"
	"github.com/pictlang/pictc/internal/ir"
	"github.com/pictlang/pictc/internal/symtab"
)

// lowerSequence walks a Sequence chain in source order, dispatching each
// statement by the type of its left child (spec §4.4.3). A nil sequence
// (an empty body or empty else-branch) lowers to nothing.
func (g *generator) lowerSequence(n *ast.Node) error {
	for seq := n; seq != nil; seq = seq.Right {
		stmt := seq.Left
		if stmt == nil {
			return seq.Errorf("sequence has no left child")
		}
		if err := g.lowerStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) lowerStatement(n *ast.Node) error {
	switch {
	case n.Type == ast.NewVar:
		return g.lowerNewVar(n)
	case n.IsOperator(ast.ASSIGN):
		return g.lowerAssign(n)
	case n.Type == ast.If:
		return g.lowerIf(n)
	case n.Type == ast.While:
		return g.lowerWhile(n)
	case n.Type == ast.Return:
		return g.lowerReturn(n)
	case n.Type == ast.Call:
		if err := g.lowerCall(n); err != nil {
			return err
		}
		return g.emit(ir.ADD, ir.Reg(ir.W64, ir.SP), ir.Imm(ir.W32, 8))
	default:
		return n.Errorf("unexpected statement node type %d", n.Type)
	}
}

// lowerNewVar declares a fresh local slot equal to -1-frameSize(chain) and
// lowers the initialiser, whose pushed value becomes that slot: the slot
// and the expression result are the same stack word, so no extra pop is
// emitted.
func (g *generator) lowerNewVar(n *ast.Node) error {
	if g.chain.IsGlobalScope() {
		return n.Errorf("local variable declared outside any function")
	}
	slot := -1 - symtab.FrameSize(g.chain)
	if _, err := g.chain.Declare(n.Name, slot, 0); err != nil {
		return n.Errorf("%w", err)
	}
	if n.Left == nil {
		return n.Errorf("variable %q has no initialiser", n.Name)
	}
	return g.lowerExpr(n.Left)
}

// lowerAssign lowers `target = expr`: the expression value, then a pop into
// the target's slot.
func (g *generator) lowerAssign(n *ast.Node) error {
	target := n.Left
	if target == nil || target.Type != ast.Variable {
		return n.Errorf("assignment target must be a variable")
	}
	if n.Right == nil {
		return n.Errorf("assignment has no right-hand expression")
	}
	if err := g.lowerExpr(n.Right); err != nil {
		return err
	}
	return g.popInto(target)
}

// popInto emits POP [name] for a global or POP [BP+8*slot] for a
// local/parameter, resolving target by name.
func (g *generator) popInto(target *ast.Node) error {
	entry, isGlobal, ok := g.chain.Lookup(target.Name)
	if !ok {
		return target.Errorf("undeclared variable %q", target.Name)
	}
	if isGlobal {
		site, err := g.emitSite(ir.POP, ir.MemAbs(ir.W64, 0), ir.None())
		if err != nil {
			return err
		}
		g.globalRefs = append(g.globalRefs, globalRef{site: site, index: entry.Slot})
		return nil
	}
	return g.emit(ir.POP, ir.Mem(ir.W64, ir.BP, int32(8*entry.Slot)), ir.None())
}

// lowerIf lowers a condition and its then/else branches (spec §4.4.3).
func (g *generator) lowerIf(n *ast.Node) error {
	branch := n.Right
	if branch == nil || branch.Type != ast.IfBranch {
		return n.Errorf("if has no branch holder")
	}
	if err := g.lowerExpr(n.Left); err != nil {
		return err
	}
	if err := g.emit(ir.POP, ir.Reg(ir.W64, ir.DI), ir.None()); err != nil {
		return err
	}
	if err := g.emit(ir.TEST, ir.Reg(ir.W64, ir.DI), ir.Reg(ir.W64, ir.DI)); err != nil {
		return err
	}
	falseSite, err := g.emitJump(ir.JE)
	if err != nil {
		return err
	}

	g.chain.PushLocal()
	if err := g.lowerSequence(branch.Left); err != nil {
		return err
	}
	g.chain.Pop()

	if branch.Right != nil {
		endSite, err := g.emitJump(ir.JMP)
		if err != nil {
			return err
		}
		if err := g.buf.SetRelative(falseSite, g.buf.IP()); err != nil {
			return err
		}
		g.chain.PushLocal()
		if err := g.lowerSequence(branch.Right); err != nil {
			return err
		}
		g.chain.Pop()
		if err := g.buf.SetRelative(endSite, g.buf.IP()); err != nil {
			return err
		}
		return nil
	}

	return g.buf.SetRelative(falseSite, g.buf.IP())
}

// lowerWhile lowers a bottom-testing loop: an entry JMP goes straight to the
// condition, and the body is reached only through the back-edge JNE, never
// by fall-through (spec §4.4.3).
func (g *generator) lowerWhile(n *ast.Node) error {
	condSite, err := g.emitJump(ir.JMP)
	if err != nil {
		return err
	}
	bodyIP := g.buf.IP()

	g.chain.PushLocal()
	if err := g.lowerSequence(n.Right); err != nil {
		return err
	}
	g.chain.Pop()

	if err := g.buf.SetRelative(condSite, g.buf.IP()); err != nil {
		return err
	}
	if err := g.lowerExpr(n.Left); err != nil {
		return err
	}
	if err := g.emit(ir.POP, ir.Reg(ir.W64, ir.DI), ir.None()); err != nil {
		return err
	}
	if err := g.emit(ir.TEST, ir.Reg(ir.W64, ir.DI), ir.Reg(ir.W64, ir.DI)); err != nil {
		return err
	}
	backSite, err := g.emitJump(ir.JNE)
	if err != nil {
		return err
	}
	return g.buf.SetRelative(backSite, bodyIP)
}

// lowerReturn lowers the returned expression and the function epilogue
// (spec §4.4.3).
func (g *generator) lowerReturn(n *ast.Node) error {
	if n.Left == nil {
		return n.Errorf("return has no expression")
	}
	if err := g.lowerExpr(n.Left); err != nil {
		return err
	}
	if err := g.emit(ir.POP, ir.Reg(ir.W64, ir.A), ir.None()); err != nil {
		return err
	}
	return g.emitEpilogue()
}
