// Package codegen walks a parsed AST once and emits abstract x86-64
// instructions into an ir.Buffer, implementing the calling convention,
// fixed-point arithmetic, and back-patched control flow of the back end.
package codegen

import (
	"fmt"
	"io"

	"github.com/pictlang/pictc/internal/ast"
	"github.com/pictlang/pictc/internal/ir"
	"github.com/pictlang/pictc/internal/symtab"
)

// Global is one declared global variable: its name (for the listing) and
// its rounded fixed-point initial value.
type Global struct {
	Name    string
	Initial int64
}

// generator threads the symbol tables, the IR buffer, and the assembly
// listing through every lowering method by reference, in place of the
// globals the reference implementation uses for the same bookkeeping.
type generator struct {
	buf     *ir.Buffer
	funcs   *symtab.FuncTable
	chain   *symtab.Chain
	listing io.Writer

	globals    []Global
	globalRefs []globalRef
	labelSeq   int
}

type globalRef struct {
	site  int
	index int
}

// Generate lowers root, a Definition-Sequence node, into buf and returns the
// declared globals in declaration order. funcs must already be seeded with
// the standard-library entries (symtab.NewFuncTable); stdlibSize is the
// fixed size in bytes of the standard-library blob that will precede the
// generated code in the final executable, needed to compute absolute
// addresses for global variable references.
func Generate(root *ast.Node, buf *ir.Buffer, funcs *symtab.FuncTable, stdlibSize int64, listing io.Writer) ([]Global, error) {
	if root == nil || root.Type != ast.DefSeq {
		return nil, fmt.Errorf("codegen: root must be a definition sequence")
	}

	g := &generator{
		buf:     buf,
		funcs:   funcs,
		chain:   symtab.NewChain(),
		listing: listing,
	}

	g.printf("; entry prelude\n")
	mainCallSite, err := g.emitCall()
	if err != nil {
		return nil, err
	}
	if err := g.emit(ir.MOV, ir.Reg(ir.W64, ir.DI), ir.Reg(ir.W64, ir.A)); err != nil {
		return nil, err
	}
	if err := g.emit(ir.MOV, ir.Reg(ir.W64, ir.A), ir.Imm(ir.W32, 60)); err != nil {
		return nil, err
	}
	if err := g.emit(ir.SYSCALL, ir.None(), ir.None()); err != nil {
		return nil, err
	}

	for n := root; n != nil; n = n.Right {
		def := n.Left
		if def == nil {
			return nil, n.Errorf("definition sequence has no left child")
		}
		switch def.Type {
		case ast.NewVar:
			if err := g.declareGlobal(def); err != nil {
				return nil, err
			}
		case ast.FuncDef:
			if err := g.lowerFuncDef(def); err != nil {
				return nil, err
			}
		default:
			return nil, def.Errorf("definition sequence left child has unexpected type %d", def.Type)
		}
	}

	mainFn, ok := g.funcs.Lookup("main")
	if !ok {
		return nil, fmt.Errorf("codegen: main not declared")
	}
	if err := g.buf.SetRelative(mainCallSite, mainFn.CodeOffset); err != nil {
		return nil, err
	}

	if len(g.globals) > 0 {
		g.printf("\n.data\n")
		for _, gl := range g.globals {
			g.printf("%s = %d\n", gl.Name, gl.Initial)
		}
	}

	base := globalsBase(stdlibSize, g.buf.IP())
	for _, ref := range g.globalRefs {
		g.buf.SetAbsolute(ref.site, base+8*int64(ref.index))
	}

	return g.globals, nil
}

const (
	startAddress = 0x400000
	pageAlign    = 4096
)

// globalsBase computes the virtual address of the globals segment given the
// size of the standard-library blob and the total size of the generated
// code, matching the ELF writer's layout (spec §4.5): code segment starts
// at startAddress+pageAlign and holds stdlibSize+codeSize bytes, aligned up
// to the next page boundary; globals immediately follow.
func globalsBase(stdlibSize, codeSize int64) int64 {
	codeSegSize := alignUp(stdlibSize+codeSize, pageAlign)
	return startAddress + pageAlign + codeSegSize
}

func alignUp(n, align int64) int64 {
	if n%align == 0 {
		return n
	}
	return n + (align - n%align)
}

// declareGlobal records a top-level `var` declaration. Only a constant
// initialiser is supported for globals: the ELF writer needs the rounded
// value before any code runs, so globals cannot depend on computed state.
func (g *generator) declareGlobal(n *ast.Node) error {
	init := n.Left
	if init == nil || init.Type != ast.Number {
		return n.Errorf("global %q must be initialised with a numeric literal", n.Name)
	}
	index := len(g.globals)
	if _, err := g.chain.Declare(n.Name, index, init.Number); err != nil {
		return n.Errorf("%w", err)
	}
	g.globals = append(g.globals, Global{Name: n.Name, Initial: round1000(init.Number)})
	return nil
}

func round1000(v float64) int64 {
	if v >= 0 {
		return int64(v*1000 + 0.5)
	}
	return -int64(-v*1000 + 0.5)
}

// emit appends an instruction, wrapping encoder errors with the generator's
// context.
func (g *generator) emit(op ir.Opcode, a, b ir.Operand) error {
	_, err := g.buf.Append(op, a, b)
	if err != nil {
		return fmt.Errorf("codegen: %w", err)
	}
	return nil
}

// emitSite is like emit but returns the buffer site for later back-patching.
func (g *generator) emitSite(op ir.Opcode, a, b ir.Operand) (int, error) {
	site, err := g.buf.Append(op, a, b)
	if err != nil {
		return 0, fmt.Errorf("codegen: %w", err)
	}
	return site, nil
}

// emitCall reserves a CALL rel32 site with a zero placeholder immediate.
func (g *generator) emitCall() (int, error) {
	return g.emitSite(ir.CALL, ir.Imm(ir.W32, 0), ir.None())
}

// emitJump reserves a jump site (conditional or not) with a zero
// placeholder immediate, returning the site for back-patching.
func (g *generator) emitJump(op ir.Opcode) (int, error) {
	return g.emitSite(op, ir.Imm(ir.W32, 0), ir.None())
}

func (g *generator) newLabel() int {
	g.labelSeq++
	return g.labelSeq
}

func (g *generator) printf(format string, args ...any) {
	if g.listing == nil {
		return
	}
	fmt.Fprintf(g.listing, format, args...)
}
