// Package amd64 implements the pure instruction encoder: one function from
// an abstract ir.Instruction to its x86-64 byte encoding (spec §4.2, §6.2).
package amd64

import (
	"encoding/binary"
	"fmt"

	"github.com/pictlang/pictc/internal/ir"
)

// StdEncoder adapts the package-level Size/Encode functions to ir.Encoder,
// the interface ir.Buffer depends on instead of this package directly.
type StdEncoder struct{}

func (StdEncoder) Size(inst ir.Instruction) (int, error)             { return Size(inst) }
func (StdEncoder) Encode(inst ir.Instruction, out []byte) (int, error) { return Encode(inst, out) }

// Size reports the byte length Encode would produce for inst, without
// emitting it.
func Size(inst ir.Instruction) (int, error) {
	b, err := build(inst)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// Encode writes inst's byte encoding into out, returning the number of
// bytes written. out must have at least Size(inst) bytes available.
func Encode(inst ir.Instruction, out []byte) (int, error) {
	b, err := build(inst)
	if err != nil {
		return 0, err
	}
	if len(out) < len(b) {
		return 0, fmt.Errorf("amd64: encode: output buffer too small (%d < %d)", len(out), len(b))
	}
	copy(out, b)
	return len(b), nil
}

// build is the single dispatch point both Size and Encode funnel through,
// so the two can never disagree about length.
func build(inst ir.Instruction) ([]byte, error) {
	switch inst.Op {
	case ir.MOV:
		return buildMov(inst)
	case ir.ADD:
		if inst.B.Kind == ir.KindImm {
			return buildAluImm(0x81, 0, inst)
		}
		return buildAluRegReg(0x01, inst)
	case ir.SUB:
		return buildAluRegReg(0x29, inst)
	case ir.AND:
		return buildAluRegReg(0x21, inst)
	case ir.OR:
		return buildAluRegReg(0x09, inst)
	case ir.XOR:
		return buildAluRegReg(0x31, inst)
	case ir.TEST:
		return buildAluRegReg(0x85, inst)
	case ir.CMP:
		return buildAluRegReg(0x39, inst)
	case ir.IMUL:
		return buildUnary(0xF7, 5, inst)
	case ir.IDIV:
		// Architecturally correct ModR/M is 11_111_rm (/7); the reference
		// source reuses IMUL's /5 byte for IDIV too. That is a bug, not an
		// intentional convention, so it is fixed here rather than
		// reproduced (spec §9 Open Question).
		return buildUnary(0xF7, 7, inst)
	case ir.PUSH:
		return buildPush(inst)
	case ir.POP:
		return buildPop(inst)
	case ir.CDQE:
		return []byte{0x48, 0x98}, nil
	case ir.RET:
		return []byte{0xC3}, nil
	case ir.SYSCALL:
		return []byte{0x0F, 0x05}, nil
	case ir.JMP:
		return append([]byte{0xE9}, imm32(inst.A.Value)...), nil
	case ir.JE, ir.JNE, ir.JG, ir.JGE, ir.JL, ir.JLE, ir.JA, ir.JAE, ir.JB, ir.JBE:
		code, ok := jccCode[inst.Op]
		if !ok {
			return nil, fmt.Errorf("amd64: unsupported conditional jump opcode")
		}
		return append([]byte{0x0F, code}, imm32(inst.A.Value)...), nil
	case ir.CALL:
		return append([]byte{0xE8}, imm32(inst.A.Value)...), nil
	default:
		return nil, fmt.Errorf("amd64: unsupported opcode %s", inst)
	}
}

var jccCode = map[ir.Opcode]byte{
	ir.JE:  0x84,
	ir.JNE: 0x85,
	ir.JG:  0x8F,
	ir.JGE: 0x8D,
	ir.JL:  0x8C,
	ir.JLE: 0x8E,
	ir.JA:  0x87,
	ir.JAE: 0x83,
	ir.JB:  0x82,
	ir.JBE: 0x86,
}

// rex builds a REX.W prefix: base 0x48, with REX.R set when regField
// selects an R8-R15 register and REX.B set when rmField does. This is the
// (src_is_R8+, dst_is_R8+) table of spec §4.2 generalised to any
// reg-field/rm-field pair.
func rex(regField, rmField int) byte {
	b := byte(0x48)
	if regField >= 8 {
		b |= 0x04
	}
	if rmField >= 8 {
		b |= 0x01
	}
	return b
}

// rexNoW is rex without the W bit, used by PUSH/POP whose operand size is
// implicitly 64 bits in long mode.
func rexNoW(regField, rmField int) byte {
	return rex(regField, rmField) &^ 0x48 | 0x40
}

func modrm(mod, regField, rmField int) byte {
	return byte(mod<<6) | byte((regField&7)<<3) | byte(rmField&7)
}

func imm32(v int64) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(int32(v)))
	return b
}

// buildMov handles both reg64<-reg64 and reg64<-imm64-as-imm32.
func buildMov(inst ir.Instruction) ([]byte, error) {
	if inst.A.Kind == ir.KindReg && inst.B.Kind == ir.KindReg {
		return buildAluRegReg(0x89, inst)
	}
	if inst.A.Kind == ir.KindReg && inst.B.Kind == ir.KindImm {
		b := []byte{rex(0, inst.A.Reg), 0xC7, modrm(3, 0, inst.A.Reg)}
		return append(b, imm32(inst.B.Value)...), nil
	}
	return nil, fmt.Errorf("amd64: unsupported MOV operand shape")
}

// buildAluRegReg handles the "64-bit register <-> register" pattern shared
// by MOV/ADD/SUB/AND/OR/XOR/TEST/CMP: REX, opcode, ModR/M 11_reg_rm, where
// A is the r/m operand and B is the reg operand (A op= B).
func buildAluRegReg(opcode byte, inst ir.Instruction) ([]byte, error) {
	if inst.A.Kind != ir.KindReg || inst.B.Kind != ir.KindReg {
		return nil, fmt.Errorf("amd64: opcode 0x%02X requires two register operands", opcode)
	}
	return []byte{rex(inst.B.Reg, inst.A.Reg), opcode, modrm(3, inst.B.Reg, inst.A.Reg)}, nil
}

// buildAluImm handles "ADD reg64, imm32": REX, opcode, ModR/M 11_ext_rm,
// imm32.
func buildAluImm(opcode byte, ext int, inst ir.Instruction) ([]byte, error) {
	if inst.A.Kind != ir.KindReg || inst.B.Kind != ir.KindImm {
		return nil, fmt.Errorf("amd64: opcode 0x%02X requires reg, imm32 operands", opcode)
	}
	b := []byte{rex(0, inst.A.Reg), opcode, modrm(3, ext, inst.A.Reg)}
	return append(b, imm32(inst.B.Value)...), nil
}

// buildUnary handles the one-operand register form used by IMUL/IDIV: REX,
// opcode, ModR/M 11_ext_rm.
func buildUnary(opcode byte, ext int, inst ir.Instruction) ([]byte, error) {
	if inst.A.Kind != ir.KindReg {
		return nil, fmt.Errorf("amd64: opcode 0x%02X requires a register operand", opcode)
	}
	return []byte{rex(0, inst.A.Reg), opcode, modrm(3, ext, inst.A.Reg)}, nil
}

func buildPush(inst ir.Instruction) ([]byte, error) {
	switch inst.A.Kind {
	case ir.KindReg:
		if inst.A.Reg >= 8 {
			return []byte{0x41, byte(0x50 + inst.A.Reg - 8)}, nil
		}
		return []byte{byte(0x50 + inst.A.Reg)}, nil
	case ir.KindImm:
		return append([]byte{0x68}, imm32(inst.A.Value)...), nil
	case ir.KindMem:
		return buildMemGroup(0xFF, 6, inst.A)
	default:
		return nil, fmt.Errorf("amd64: unsupported PUSH operand shape")
	}
}

func buildPop(inst ir.Instruction) ([]byte, error) {
	switch inst.A.Kind {
	case ir.KindReg:
		if inst.A.Reg >= 8 {
			return []byte{0x41, byte(0x58 + inst.A.Reg - 8)}, nil
		}
		return []byte{byte(0x58 + inst.A.Reg)}, nil
	case ir.KindMem:
		return buildMemGroup(0x8F, 0, inst.A)
	default:
		return nil, fmt.Errorf("amd64: unsupported POP operand shape")
	}
}

// buildMemGroup encodes the PUSH/POP [base+disp32] and [disp32] (absolute)
// forms. ext selects the ModR/M.reg group extension (6 for PUSH, 0 for
// POP). For the base+disp32 form this uses mod=10 with the base register
// directly in ModR/M.rm (correct for any base except RSP/R12, which our
// only base register - BP - never is); the absolute form goes through a
// SIB byte with no base, per spec §6.2/§4.2.
func buildMemGroup(opcode byte, ext int, m ir.Operand) ([]byte, error) {
	if m.HasBase {
		b := []byte{}
		if rx := rexNoW(0, m.Base); rx != 0x40 {
			b = append(b, rx)
		}
		b = append(b, opcode, modrm(2, ext, m.Base))
		return append(b, imm32(int64(m.Disp))...), nil
	}
	b := []byte{opcode, modrm(0, ext, 4), 0x25}
	return append(b, imm32(int64(m.Disp))...), nil
}
