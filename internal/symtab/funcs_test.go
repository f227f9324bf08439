package symtab

import "testing"

func TestFuncTable_PrepopulatedWithStdlibEntries(t *testing.T) {
	tbl := NewFuncTable(0, 0, 32, 96)

	scenarios := []struct {
		name     string
		argCount int
		offset   int64
	}{
		{"in", 0, 0},
		{"out", 1, 32},
		{"sqrt", 1, 96},
	}

	for _, s := range scenarios {
		entry, ok := tbl.Lookup(s.name)
		if !ok {
			t.Fatalf("expected stdlib entry %q to be pre-populated", s.name)
		}
		if entry.ArgCount != s.argCount || entry.CodeOffset != s.offset {
			t.Fatalf("%s = (argCount %d, offset %d), want (%d, %d)", s.name, entry.ArgCount, entry.CodeOffset, s.argCount, s.offset)
		}
	}
}

// TestFuncTable_StdlibOffsetsAreGeneratedCodeRelative pins the coordinate
// convention a non-zero stdlib blob size implies: stdlib CodeOffsets must
// land in the same generated-code-relative space as user function offsets
// (negative, since the blob precedes generated code), so that
// ir.Buffer.SetRelative can patch a call to in/out/sqrt exactly like a call
// to a user function.
func TestFuncTable_StdlibOffsetsAreGeneratedCodeRelative(t *testing.T) {
	tbl := NewFuncTable(128, 0, 32, 96)

	scenarios := []struct {
		name   string
		offset int64
	}{
		{"in", -128},
		{"out", -96},
		{"sqrt", -32},
	}

	for _, s := range scenarios {
		entry, ok := tbl.Lookup(s.name)
		if !ok {
			t.Fatalf("expected stdlib entry %q to be pre-populated", s.name)
		}
		if entry.CodeOffset != s.offset {
			t.Fatalf("%s.CodeOffset = %d, want %d", s.name, entry.CodeOffset, s.offset)
		}
	}
}

func TestFuncTable_DuplicateDeclarationFails(t *testing.T) {
	tbl := NewFuncTable(0, 0, 32, 96)
	if _, err := tbl.Declare("main", 0, 1000); err != nil {
		t.Fatalf("declare main: %v", err)
	}
	if _, err := tbl.Declare("main", 1, 2000); err == nil {
		t.Fatalf("expected duplicate function declaration to fail")
	}
	if _, err := tbl.Declare("out", 1, 5000); err == nil {
		t.Fatalf("expected declaring a name that collides with a stdlib entry to fail")
	}
}

func TestFuncTable_LookupMissingFails(t *testing.T) {
	tbl := NewFuncTable(0, 0, 32, 96)
	if _, ok := tbl.Lookup("nope"); ok {
		t.Fatalf("lookup of undeclared function should fail")
	}
}

func TestFuncTable_SetCodeOffsetUpdatesEntry(t *testing.T) {
	tbl := NewFuncTable(0, 0, 32, 96)
	tbl.Declare("add", 2, 0)
	tbl.SetCodeOffset("add", 1234)

	entry, ok := tbl.Lookup("add")
	if !ok || entry.CodeOffset != 1234 {
		t.Fatalf("add.CodeOffset = %v (ok=%v), want 1234", entry, ok)
	}
}
