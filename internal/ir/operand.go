// Package ir implements the abstract assembler instruction buffer: a
// growable ordered sequence of instructions with a running byte-offset
// counter, serialisable to a contiguous byte slice by the amd64 encoder.
package ir

// Register IDs follow x86 hardware order, not alphabetical: A, C, D, B, SP,
// BP, SI, DI, then R8-R15.
const (
	A = iota
	C
	D
	B
	SP
	BP
	SI
	DI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
)

// OperandKind discriminates the tagged union an Operand carries.
type OperandKind int

const (
	KindNone OperandKind = iota
	KindReg
	KindMem
	KindImm
)

// Width is an operand's bit width.
type Width int

const (
	W8  Width = 8
	W16 Width = 16
	W32 Width = 32
	W64 Width = 64
)

// Operand is a tagged union of {None, Register, Memory, Constant}.
type Operand struct {
	Kind OperandKind

	// Register
	Width   Width
	Reg     int
	HighByte bool

	// Memory: only base+displacement is ever encoded; Index/Scale are
	// carried for completeness but never emitted in the supported subset.
	Base  int
	Index int
	Scale int
	Disp  int32
	HasBase bool

	// Constant
	Value int64
}

// None is the absent operand.
func None() Operand { return Operand{Kind: KindNone} }

// Reg builds a register operand.
func Reg(width Width, reg int) Operand {
	return Operand{Kind: KindReg, Width: width, Reg: reg}
}

// Mem builds a [base+disp] memory operand.
func Mem(width Width, base int, disp int32) Operand {
	return Operand{Kind: KindMem, Width: width, Base: base, Disp: disp, HasBase: true}
}

// MemAbs builds an absolute [disp32] memory operand (no base register).
func MemAbs(width Width, disp int32) Operand {
	return Operand{Kind: KindMem, Width: width, Disp: disp, HasBase: false}
}

// Imm builds an immediate operand.
func Imm(width Width, value int64) Operand {
	return Operand{Kind: KindImm, Width: width, Value: value}
}
