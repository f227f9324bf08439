// Package symtab implements the two scope-aware symbol tables described in
// spec §4.3: a global function table and a chain of variable frames.
package symtab

import "fmt"

// VarEntry records one declared name. Slot is: a negative 8-byte-unit
// offset from the frame-pointer register for a local, a positive offset
// >= +2 slots for a parameter, or a non-negative index into the globals
// array for a global.
type VarEntry struct {
	Name    string
	hash    uint32
	Slot    int
	Initial float64
}

// ScopeKind distinguishes the three frame roles that matter for
// FrameSize's "ignore globals and parameters" rule.
type ScopeKind int

const (
	ScopeGlobal ScopeKind = iota
	ScopeParams
	ScopeLocal
)

// Scope is one frame in the chain: the set of names declared in a single
// lexical scope.
type Scope struct {
	Kind ScopeKind
	Vars []*VarEntry
	Prev *Scope
}

// Chain is the singly-linked stack of variable frames. The tail is always
// the global frame.
type Chain struct {
	top *Scope
}

// NewChain returns a chain containing only the global frame.
func NewChain() *Chain {
	return &Chain{top: &Scope{Kind: ScopeGlobal}}
}

// PushParams pushes a new frame holding a function's formal parameters.
func (c *Chain) PushParams() {
	c.top = &Scope{Kind: ScopeParams, Prev: c.top}
}

// PushLocal pushes a new frame for a function body or nested block.
func (c *Chain) PushLocal() {
	c.top = &Scope{Kind: ScopeLocal, Prev: c.top}
}

// Pop discards the innermost frame.
func (c *Chain) Pop() {
	if c.top.Prev == nil {
		panic("symtab: pop of global frame")
	}
	c.top = c.top.Prev
}

// Depth returns the number of frames currently on the chain, globals and
// parameters included.
func (c *Chain) Depth() int {
	n := 0
	for s := c.top; s != nil; s = s.Prev {
		n++
	}
	return n
}

// IsGlobalScope reports whether the innermost frame is the global frame
// (i.e. there is no enclosing function).
func (c *Chain) IsGlobalScope() bool {
	return c.top.Kind == ScopeGlobal
}

// Declare adds entry to the innermost scope, failing if a name with the
// same hash and text already exists there (spec: variable names are unique
// within their innermost scope).
func (c *Chain) Declare(name string, slot int, initial float64) (*VarEntry, error) {
	h := hash(name)
	for _, v := range c.top.Vars {
		if v.hash == h && v.Name == name {
			return nil, fmt.Errorf("symtab: duplicate variable %q in scope", name)
		}
	}
	e := &VarEntry{Name: name, hash: h, Slot: slot, Initial: initial}
	c.top.Vars = append(c.top.Vars, e)
	return e, nil
}

// Lookup searches outward from the innermost scope to the global scope and
// returns the matching entry along with whether the match was found in the
// global (outermost) frame.
func (c *Chain) Lookup(name string) (entry *VarEntry, isGlobal bool, ok bool) {
	h := hash(name)
	for s := c.top; s != nil; s = s.Prev {
		for _, v := range s.Vars {
			if v.hash == h && v.Name == name {
				return v, s.Kind == ScopeGlobal, true
			}
		}
	}
	return nil, false, false
}

// FrameSize is the total number of local slots declared by every scope from
// the current innermost one up to (but not including) the nearest
// parameter or global scope. It must be recomputed on every new-variable
// declaration rather than cached, since popped frames must never be
// revisited.
func FrameSize(c *Chain) int {
	n := 0
	for s := c.top; s != nil && s.Kind == ScopeLocal; s = s.Prev {
		n += len(s.Vars)
	}
	return n
}
