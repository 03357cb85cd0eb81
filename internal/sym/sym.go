// Package sym interns word spellings into small integer identities.
//
// Grounded on vmregister/vm.go's globalNames map[string]uint16 (a name→slot
// table built once and consulted by index thereafter); generalized here to a
// process-wide table shared by every cell, keylist, and binder rather than
// one VM's global variables.
package sym

import "strings"

// Symbol is an interned word identity. The zero value is not a valid symbol.
type Symbol int32

// Table interns word spellings. Lookup is by canon form (case-folded);
// Spelling returns the form under which the symbol was first interned.
type Table struct {
	byCanon  map[string]Symbol
	spelling []string
}

// NewTable returns an empty interning table.
func NewTable() *Table {
	return &Table{byCanon: make(map[string]Symbol), spelling: []string{""}}
}

// Intern returns the Symbol for name, allocating a new one if unseen.
// Word comparison in this dialect is case-insensitive; the first spelling
// seen is retained for molding.
func (t *Table) Intern(name string) Symbol {
	canon := strings.ToLower(name)
	if s, ok := t.byCanon[canon]; ok {
		return s
	}
	s := Symbol(len(t.spelling))
	t.spelling = append(t.spelling, name)
	t.byCanon[canon] = s
	return s
}

// Lookup returns the symbol for name without interning; ok is false if the
// spelling has never been seen.
func (t *Table) Lookup(name string) (Symbol, bool) {
	s, ok := t.byCanon[strings.ToLower(name)]
	return s, ok
}

// Spelling returns the spelling a symbol was first interned under.
func (t *Table) Spelling(s Symbol) string {
	if int(s) <= 0 || int(s) >= len(t.spelling) {
		return ""
	}
	return t.spelling[s]
}

// Canon returns the case-folded form used for equality.
func (t *Table) Canon(s Symbol) string {
	return strings.ToLower(t.Spelling(s))
}

// Binder maps symbols to small integer slots during a single compile pass
// (e.g. the paramlist builder's duplicate-parameter scan). A binder must be
// fully torn down (Reset) before any error arising from its use is raised,
// since its indices are only valid while the transient buffer it describes
// is alive.
type Binder struct {
	index map[Symbol]int
}

// NewBinder returns an empty binder.
func NewBinder() *Binder { return &Binder{index: make(map[Symbol]int)} }

// Bind records sym at slot index. ok is false if sym was already bound,
// in which case the existing slot is returned instead of overwriting it.
func (b *Binder) Bind(s Symbol, index int) (existing int, ok bool) {
	if i, already := b.index[s]; already {
		return i, false
	}
	b.index[s] = index
	return index, true
}

// Lookup reports whether sym has been bound, and to what slot.
func (b *Binder) Lookup(s Symbol) (int, bool) {
	i, ok := b.index[s]
	return i, ok
}

// Reset tears down the binder, releasing all bound slots. Callers must
// invoke this before raising any error discovered via the binder's state,
// per the no-binder-survives-a-failure invariant.
func (b *Binder) Reset() {
	for k := range b.index {
		delete(b.index, k)
	}
}
