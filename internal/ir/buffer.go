package ir

import (
	"fmt"
	"io"
)

// Encoder is the pure function from one instruction to its byte encoding,
// implemented by package arch/amd64. The buffer depends only on this
// narrow interface so that the encoder (component 2) stays a separate,
// independently testable package from the buffer (component 1) despite the
// natural dependency running encoder -> ir, not ir -> encoder.
type Encoder interface {
	Size(Instruction) (int, error)
	Encode(Instruction, []byte) (int, error)
}

// Buffer is a growable ordered sequence of instructions with a running
// byte-offset counter. The invariant ip = sum(encoded size of every
// appended instruction) holds after every successful Append.
type Buffer struct {
	enc     Encoder
	instrs  []Instruction
	offsets []int64
	ip      int64
}

// NewBuffer returns an empty buffer. capacity is a hint only: Go's slice
// growth already doubles backing storage on overflow, so no separate
// capacity bookkeeping is needed to honour the growable-buffer contract.
func NewBuffer(enc Encoder, capacity int) *Buffer {
	return &Buffer{
		enc:     enc,
		instrs:  make([]Instruction, 0, capacity),
		offsets: make([]int64, 0, capacity),
	}
}

// IP returns the current instruction-pointer offset: the byte length the
// buffer would serialise to right now.
func (b *Buffer) IP() int64 { return b.ip }

// Len returns the number of instructions appended so far.
func (b *Buffer) Len() int { return len(b.instrs) }

// At returns the instruction at the given site index.
func (b *Buffer) At(site int) Instruction { return b.instrs[site] }

// OffsetOf returns the byte offset at which the instruction at site begins.
func (b *Buffer) OffsetOf(site int) int64 { return b.offsets[site] }

// Append encodes-to-measure and appends inst, advancing ip by its encoded
// size. Returns the site index used for later back-patching. Writing an
// instruction whose (opcode, operand-shape) is unsupported is a hard error
// and the buffer is left exactly as it was before the call.
func (b *Buffer) Append(op Opcode, a, b2 Operand) (site int, err error) {
	inst := Instruction{Op: op, A: a, B: b2}
	size, err := b.enc.Size(inst)
	if err != nil {
		return -1, fmt.Errorf("ir: append %s: %w", inst, err)
	}
	site = len(b.instrs)
	b.offsets = append(b.offsets, b.ip)
	b.instrs = append(b.instrs, inst)
	b.ip += int64(size)
	return site, nil
}

// SetAbsolute overwrites the A-operand of the instruction at site with addr
// verbatim: a memory operand's address lives in Disp (what the encoder
// actually reads for the absolute [disp32] form), not in Value, which is
// reserved for immediates.
func (b *Buffer) SetAbsolute(site int, addr int64) {
	if b.instrs[site].A.Kind == KindMem {
		b.instrs[site].A.Disp = int32(addr)
		return
	}
	b.instrs[site].A.Value = addr
}

// SetRelative overwrites the A-operand immediate of the instruction at site
// with targetIP minus the ip of the instruction immediately following the
// one at site (its own offset plus its encoded size). The placeholder
// immediate already stored at site is not read.
func (b *Buffer) SetRelative(site int, targetIP int64) error {
	size, err := b.enc.Size(b.instrs[site])
	if err != nil {
		return fmt.Errorf("ir: set-relative at site %d: %w", site, err)
	}
	stored := b.offsets[site] + int64(size)
	b.instrs[site].A.Value = targetIP - stored
	return nil
}

// WriteAll re-encodes every instruction, in order, into out. out must be at
// least IP() bytes long.
func (b *Buffer) WriteAll(out []byte) error {
	if int64(len(out)) < b.ip {
		return fmt.Errorf("ir: write-all: buffer too small (%d < %d)", len(out), b.ip)
	}
	for i, inst := range b.instrs {
		off := b.offsets[i]
		n, err := b.enc.Encode(inst, out[off:])
		if err != nil {
			return fmt.Errorf("ir: encode instruction %d (%s): %w", i, inst, err)
		}
		// The encoder must agree with Size, or ip bookkeeping is unsound.
		size, _ := b.enc.Size(inst)
		if n != size {
			return fmt.Errorf("ir: instruction %d (%s): encode wrote %d bytes, size reported %d", i, inst, n, size)
		}
	}
	return nil
}

// Dump writes a human-readable assembly listing, one line per instruction,
// in final (post back-patch) form.
func (b *Buffer) Dump(w io.Writer) error {
	for i, inst := range b.instrs {
		if _, err := fmt.Fprintf(w, "%6d  %s\n", b.offsets[i], formatInstruction(inst)); err != nil {
			return err
		}
	}
	return nil
}

func formatInstruction(inst Instruction) string {
	s := inst.String()
	if inst.A.Kind != KindNone {
		s += " " + formatOperand(inst.A)
	}
	if inst.B.Kind != KindNone {
		s += ", " + formatOperand(inst.B)
	}
	return s
}

func formatOperand(o Operand) string {
	switch o.Kind {
	case KindReg:
		return regName(o.Width, o.Reg)
	case KindImm:
		return fmt.Sprintf("%d", o.Value)
	case KindMem:
		if o.HasBase {
			return fmt.Sprintf("[%s+%d]", regName(W64, o.Base), o.Disp)
		}
		return fmt.Sprintf("[%d]", o.Disp)
	default:
		return ""
	}
}

var reg64Names = [...]string{"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15"}

func regName(w Width, reg int) string {
	if reg < 0 || reg >= len(reg64Names) {
		return "?"
	}
	return reg64Names[reg]
}
