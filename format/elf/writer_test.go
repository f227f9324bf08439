package elf

import (
	"bytes"
	"debug/elf"
	"testing"
)

func buildCode(stdlibSize, genSize int) []byte {
	code := make([]byte, stdlibSize+genSize)
	for i := range code {
		code[i] = byte(0xC0 + i%16)
	}
	return code
}

func TestWrite_TwoSegmentExecutableParses(t *testing.T) {
	code := buildCode(128, 64)
	var out bytes.Buffer
	if err := Write(&out, code, nil, 128); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := elf.NewFile(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatalf("parse written ELF: %v", err)
	}
	defer f.Close()

	if f.Type != elf.ET_EXEC {
		t.Fatalf("Type = %v, want ET_EXEC", f.Type)
	}
	if f.Machine != elf.EM_X86_64 {
		t.Fatalf("Machine = %v, want EM_X86_64", f.Machine)
	}

	var loads []*elf.Prog
	for _, p := range f.Progs {
		if p.Type == elf.PT_LOAD {
			loads = append(loads, p)
		}
	}
	if len(loads) != 2 {
		t.Fatalf("got %d PT_LOAD headers, want 2", len(loads))
	}

	codeSeg := loads[1]
	if f.Entry < codeSeg.Vaddr || f.Entry >= codeSeg.Vaddr+codeSeg.Filesz {
		t.Fatalf("entry 0x%x not inside the code segment [0x%x, 0x%x)", f.Entry, codeSeg.Vaddr, codeSeg.Vaddr+codeSeg.Filesz)
	}
	if f.Entry != codeSeg.Vaddr+128 {
		t.Fatalf("entry = 0x%x, want 0x%x (stdlib size past the code segment start)", f.Entry, codeSeg.Vaddr+128)
	}

	raw := make([]byte, codeSeg.Filesz)
	if _, err := codeSeg.ReadAt(raw, 0); err != nil {
		t.Fatalf("read code segment: %v", err)
	}
	if !bytes.Equal(raw, code) {
		t.Fatalf("code segment content does not round-trip")
	}
}

func TestWrite_ThreeSegmentExecutableWithGlobals(t *testing.T) {
	code := buildCode(32, 32)
	globals := []int64{10000, -5000, 0}
	var out bytes.Buffer
	if err := Write(&out, code, globals, 32); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := elf.NewFile(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatalf("parse written ELF: %v", err)
	}
	defer f.Close()

	var loads []*elf.Prog
	for _, p := range f.Progs {
		if p.Type == elf.PT_LOAD {
			loads = append(loads, p)
		}
	}
	if len(loads) != 3 {
		t.Fatalf("got %d PT_LOAD headers, want 3", len(loads))
	}

	globalsSeg := loads[2]
	if globalsSeg.Flags&elf.PF_W == 0 {
		t.Fatalf("globals segment must be writable")
	}
	if globalsSeg.Flags&elf.PF_X != 0 {
		t.Fatalf("globals segment must not be executable")
	}
	if globalsSeg.Filesz != uint64(8*len(globals)) {
		t.Fatalf("globals segment size = %d, want %d", globalsSeg.Filesz, 8*len(globals))
	}

	raw := make([]byte, globalsSeg.Filesz)
	if _, err := globalsSeg.ReadAt(raw, 0); err != nil {
		t.Fatalf("read globals segment: %v", err)
	}
	for i, want := range globals {
		got := int64(le64(raw[i*8:]))
		if got != want {
			t.Fatalf("global[%d] = %d, want %d", i, got, want)
		}
	}
}

func TestWrite_HeaderSegmentIsReadOnly(t *testing.T) {
	code := buildCode(8, 8)
	var out bytes.Buffer
	if err := Write(&out, code, nil, 8); err != nil {
		t.Fatalf("Write: %v", err)
	}
	f, err := elf.NewFile(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer f.Close()

	headerSeg := f.Progs[0]
	if headerSeg.Flags != elf.PF_R {
		t.Fatalf("header segment flags = %v, want PF_R only", headerSeg.Flags)
	}
	if headerSeg.Vaddr != StartAddress {
		t.Fatalf("header segment vaddr = 0x%x, want 0x%x", headerSeg.Vaddr, uint64(StartAddress))
	}
}

func TestWrite_CodeSegmentExecutableNotWritable(t *testing.T) {
	code := buildCode(8, 8)
	var out bytes.Buffer
	if err := Write(&out, code, nil, 8); err != nil {
		t.Fatalf("Write: %v", err)
	}
	f, err := elf.NewFile(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer f.Close()

	var codeSeg *elf.Prog
	for _, p := range f.Progs {
		if p.Type == elf.PT_LOAD && p.Vaddr == StartAddress+Align {
			codeSeg = p
		}
	}
	if codeSeg == nil {
		t.Fatalf("code segment not found")
	}
	if codeSeg.Flags&elf.PF_X == 0 {
		t.Fatalf("code segment must be executable")
	}
	if codeSeg.Flags&elf.PF_W != 0 {
		t.Fatalf("code segment must not be writable")
	}
}

func le64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
