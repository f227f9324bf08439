package amd64

import (
	"bytes"
	"testing"

	"github.com/pictlang/pictc/internal/ir"
)

func TestEncode_SizeAndEncodeAgree(t *testing.T) {
	scenarios := []struct {
		name string
		inst ir.Instruction
		want []byte
	}{
		{"MOV reg,reg", ir.Instruction{Op: ir.MOV, A: ir.Reg(ir.W64, ir.A), B: ir.Reg(ir.W64, ir.C)},
			[]byte{0x48, 0x89, 0xC8}},
		{"MOV reg,reg R8+ dst", ir.Instruction{Op: ir.MOV, A: ir.Reg(ir.W64, ir.R8), B: ir.Reg(ir.W64, ir.A)},
			[]byte{0x49, 0x89, 0xC0}},
		{"MOV reg,reg R8+ src", ir.Instruction{Op: ir.MOV, A: ir.Reg(ir.W64, ir.A), B: ir.Reg(ir.W64, ir.R9)},
			[]byte{0x4C, 0x89, 0xC8}},
		{"MOV reg,imm", ir.Instruction{Op: ir.MOV, A: ir.Reg(ir.W64, ir.DI), B: ir.Imm(ir.W32, 1000)},
			[]byte{0x48, 0xC7, 0xC7, 0xE8, 0x03, 0x00, 0x00}},
		{"ADD reg,reg", ir.Instruction{Op: ir.ADD, A: ir.Reg(ir.W64, ir.DI), B: ir.Reg(ir.W64, ir.SI)},
			[]byte{0x48, 0x01, 0xF7}},
		{"ADD reg,imm", ir.Instruction{Op: ir.ADD, A: ir.Reg(ir.W64, ir.SP), B: ir.Imm(ir.W32, 8)},
			[]byte{0x48, 0x81, 0xC4, 0x08, 0x00, 0x00, 0x00}},
		{"SUB reg,reg", ir.Instruction{Op: ir.SUB, A: ir.Reg(ir.W64, ir.DI), B: ir.Reg(ir.W64, ir.SI)},
			[]byte{0x48, 0x29, 0xF7}},
		{"PUSH reg low", ir.Instruction{Op: ir.PUSH, A: ir.Reg(ir.W64, ir.BP)},
			[]byte{0x55}},
		{"PUSH reg R8+", ir.Instruction{Op: ir.PUSH, A: ir.Reg(ir.W64, ir.R12)},
			[]byte{0x41, 0x54}},
		{"POP reg low", ir.Instruction{Op: ir.POP, A: ir.Reg(ir.W64, ir.BP)},
			[]byte{0x5D}},
		{"PUSH imm32", ir.Instruction{Op: ir.PUSH, A: ir.Imm(ir.W32, 42000)},
			[]byte{0x68, 0x10, 0xA4, 0x00, 0x00}},
		{"IMUL reg", ir.Instruction{Op: ir.IMUL, A: ir.Reg(ir.W64, ir.DI)},
			[]byte{0x48, 0xF7, 0xEF}},
		{"IDIV reg", ir.Instruction{Op: ir.IDIV, A: ir.Reg(ir.W64, ir.DI)},
			[]byte{0x48, 0xF7, 0xFF}},
		{"CDQE", ir.Instruction{Op: ir.CDQE}, []byte{0x48, 0x98}},
		{"RET", ir.Instruction{Op: ir.RET}, []byte{0xC3}},
		{"SYSCALL", ir.Instruction{Op: ir.SYSCALL}, []byte{0x0F, 0x05}},
		{"JMP rel32", ir.Instruction{Op: ir.JMP, A: ir.Imm(ir.W32, -10)},
			[]byte{0xE9, 0xF6, 0xFF, 0xFF, 0xFF}},
		{"JE rel32", ir.Instruction{Op: ir.JE, A: ir.Imm(ir.W32, 5)},
			[]byte{0x0F, 0x84, 0x05, 0x00, 0x00, 0x00}},
		{"CALL rel32", ir.Instruction{Op: ir.CALL, A: ir.Imm(ir.W32, 0)},
			[]byte{0xE8, 0x00, 0x00, 0x00, 0x00}},
		{"PUSH [BP+disp]", ir.Instruction{Op: ir.PUSH, A: ir.Mem(ir.W64, ir.BP, -8)},
			[]byte{0xFF, 0xB5, 0xF8, 0xFF, 0xFF, 0xFF}},
		{"POP [BP+disp]", ir.Instruction{Op: ir.POP, A: ir.Mem(ir.W64, ir.BP, 16)},
			[]byte{0x8F, 0x85, 0x10, 0x00, 0x00, 0x00}},
		{"PUSH [abs]", ir.Instruction{Op: ir.PUSH, A: ir.MemAbs(ir.W64, 0x401000)},
			[]byte{0xFF, 0x34, 0x25, 0x00, 0x10, 0x40, 0x00}},
		{"POP [abs]", ir.Instruction{Op: ir.POP, A: ir.MemAbs(ir.W64, 0x401000)},
			[]byte{0x8F, 0x04, 0x25, 0x00, 0x10, 0x40, 0x00}},
	}

	for _, s := range scenarios {
		t.Run(s.name, func(t *testing.T) {
			size, err := Size(s.inst)
			if err != nil {
				t.Fatalf("Size: %v", err)
			}
			if size != len(s.want) {
				t.Fatalf("Size = %d, want %d", size, len(s.want))
			}

			out := make([]byte, size)
			n, err := Encode(s.inst, out)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if n != size {
				t.Fatalf("Encode wrote %d bytes, Size reported %d", n, size)
			}
			if !bytes.Equal(out, s.want) {
				t.Fatalf("encoded = % X, want % X", out, s.want)
			}
		})
	}
}

func TestEncode_RejectsUnsupportedShapes(t *testing.T) {
	scenarios := []struct {
		name string
		inst ir.Instruction
	}{
		{"MOV mem,mem", ir.Instruction{Op: ir.MOV, A: ir.Mem(ir.W64, ir.BP, 0), B: ir.Mem(ir.W64, ir.BP, 8)}},
		{"SUB reg,imm", ir.Instruction{Op: ir.SUB, A: ir.Reg(ir.W64, ir.A), B: ir.Imm(ir.W32, 1)}},
		{"PUSH none", ir.Instruction{Op: ir.PUSH, A: ir.None()}},
		{"unknown opcode", ir.Instruction{Op: ir.Opcode(9999)}},
	}

	for _, s := range scenarios {
		t.Run(s.name, func(t *testing.T) {
			if _, err := Size(s.inst); err == nil {
				t.Fatalf("expected Size to reject %s", s.name)
			}
		})
	}
}

func TestEncode_OutputBufferTooSmall(t *testing.T) {
	inst := ir.Instruction{Op: ir.RET}
	if _, err := Encode(inst, make([]byte, 0)); err == nil {
		t.Fatalf("expected error encoding into an undersized buffer")
	}
}
