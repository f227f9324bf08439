package symtab

import "fmt"

// FuncEntry is a flat ordered function-table record. CodeOffset is the
// function's first instruction as an ir.Buffer ip: a byte offset from the
// start of the generated code, negative for the stdlib entries whose blob
// precedes it (see NewFuncTable).
type FuncEntry struct {
	Name       string
	hash       uint32
	ArgCount   int
	CodeOffset int64
}

// FuncTable is the global, compilation-wide function table. It is
// pre-populated with the three standard-library entries before user
// definitions are appended.
type FuncTable struct {
	entries []*FuncEntry
}

// NewFuncTable returns a table pre-populated with the fixed-offset stdlib
// entries in/out/sqrt. inOffset, outOffset and sqrtOffset are each entry's
// byte offset from the start of the stdlib blob; stdlibSize is the blob's
// total length. CodeOffset is recorded generated-code-relative (i.e.
// relative to ip 0 of the ir.Buffer the code generator writes into, which
// begins immediately after the blob), the same coordinate space user
// function offsets are recorded in, so callers can feed either kind of
// entry straight into Buffer.SetRelative without special-casing stdlib
// calls.
func NewFuncTable(stdlibSize, inOffset, outOffset, sqrtOffset int64) *FuncTable {
	t := &FuncTable{}
	// These calls cannot fail: the names are known-distinct stdlib entries.
	_, _ = t.Declare("in", 0, inOffset-stdlibSize)
	_, _ = t.Declare("out", 1, outOffset-stdlibSize)
	_, _ = t.Declare("sqrt", 1, sqrtOffset-stdlibSize)
	return t
}

// Declare appends a new function entry, failing if the name is already
// present (function names are unique globally).
func (t *FuncTable) Declare(name string, argCount int, codeOffset int64) (*FuncEntry, error) {
	h := hash(name)
	for _, f := range t.entries {
		if f.hash == h && f.Name == name {
			return nil, fmt.Errorf("symtab: duplicate function %q", name)
		}
	}
	e := &FuncEntry{Name: name, hash: h, ArgCount: argCount, CodeOffset: codeOffset}
	t.entries = append(t.entries, e)
	return e, nil
}

// Lookup finds a function by name.
func (t *FuncTable) Lookup(name string) (*FuncEntry, bool) {
	h := hash(name)
	for _, f := range t.entries {
		if f.hash == h && f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// SetCodeOffset updates a previously declared function's recorded offset,
// used once its body has actually been lowered (user functions are
// declared with a placeholder offset of 0 at definition time in some
// calling conventions; here the generator declares them only once their
// prologue's ip is known).
func (t *FuncTable) SetCodeOffset(name string, offset int64) {
	h := hash(name)
	for _, f := range t.entries {
		if f.hash == h && f.Name == name {
			f.CodeOffset = offset
			return
		}
	}
}
