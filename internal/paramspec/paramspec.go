// Package paramspec compiles a spec block into a paramlist array and an
// optional meta-object.
//
// Grounded on internal/compiler/compiler.go's two-pass "visit the AST, emit
// into a growable chunk" shape (Compile walks expr.Accept(c) once, then
// appends a trailing terminator — the same "scan, then emit with a
// synthetic tail slot appended last" structure this package's pass
// one/pass two split follows), and on internal/parser/ast.go's small typed
// node set for what a scanned element can be.
package paramspec

import (
	"corelang/internal/cell"
	"corelang/internal/ser"
	"corelang/internal/sym"
)

// ParamClass is one of parameter classes.
type ParamClass uint8

const (
	ClassNormal ParamClass = iota
	ClassTight
	ClassHardQuote
	ClassSoftQuote
	ClassRefinement
	ClassLocal
	ClassReturn
)

// ModFlags are the per-parameter modifier flags.
type ModFlags uint8

const (
	ModHidden ModFlags = 1 << iota
	ModUnbindable
	ModEndable
	ModVariadic
)

// Type bitset sentinels live at the top of the 64-bit typeset, above any
// cell.Kind value (cell.Kind never exceeds 31).
const (
	AcceptsNullBit uint64 = 1 << 62
	AcceptsEndBit  uint64 = 1 << 63
)

func KindBit(k cell.Kind) uint64 { return 1 << uint(k) }

// TypesetHas reports whether bits admits kind k.
func TypesetHas(bits uint64, k cell.Kind) bool { return bits&KindBit(k) != 0 }

// Param is a single keylist entry past the rootkey: a parameter descriptor.
// It implements ser.Descriptor so a Context can resolve words against a
// paramlist-derived keylist.
type Param struct {
	Sym   sym.Symbol
	Class ParamClass
	Types uint64
	Mods  ModFlags
	Note  string

	// RefinementArg marks a ClassNormal parameter that was declared as one
	// of a preceding refinement's arguments rather than a top-level
	// parameter — forbids such a parameter from declaring
	// <opt>, since null already means "refinement not used" to the callee.
	RefinementArg bool
}

func (p *Param) DescriptorSymbol() sym.Symbol { return p.Sym }

func (p *Param) Hidden() bool     { return p.Mods&ModHidden != 0 }
func (p *Param) Unbindable() bool { return p.Mods&ModUnbindable != 0 }
func (p *Param) Endable() bool    { return p.Mods&ModEndable != 0 }
func (p *Param) Variadic() bool   { return p.Mods&ModVariadic != 0 }
func (p *Param) AcceptsNull() bool { return p.Types&AcceptsNullBit != 0 }
func (p *Param) AcceptsEnd() bool  { return p.Types&AcceptsEndBit != 0 }

// Accepts reports whether v's kind satisfies p's type constraint, honoring
// the <opt>/<end> sentinels for null/end values.
func (p *Param) Accepts(v *cell.Cell) bool {
	switch v.Kind() {
	case cell.KindNull:
		return p.AcceptsNull()
	case cell.KindEnd:
		return p.AcceptsEnd()
	}
	if p.Types&^(AcceptsNullBit|AcceptsEndBit) == 0 {
		return true // no explicit type block means "any non-null, non-end value"
	}
	return TypesetHas(p.Types, v.Kind())
}

// Meta carries a paramlist's documentation, attached only when the spec
// block contained any text/notes.
type Meta struct {
	Description    string
	ParameterNotes map[sym.Symbol]string
	ReturnNote     string
	With           []sym.Symbol // words named by a <with> mode section
}

// ParamList is a compiled action interface: an immutable paramlist array
// (flavor Paramlist) whose slot 0 is the action archetype, plus the
// optional meta-object.
type ParamList struct {
	Array *ser.Array
	Meta  *Meta
}

// Len returns the number of parameter slots, including the return slot
// when the paramlist has one and excluding slot 0 (the archetype).
func (pl *ParamList) Len() int { return pl.Array.Len() - 1 }

// ParamAt returns the Param descriptor at 1-based slot i (1..Len()).
func (pl *ParamList) ParamAt(i int) *Param {
	c := pl.Array.At(i)
	if c == nil {
		return nil
	}
	p, _ := c.Payload().(*Param)
	return p
}

// ReturnIndex returns the index of the last slot, which holds the return
// parameter whenever the paramlist has one (Build always places it last).
func (pl *ParamList) ReturnIndex() int { return pl.Array.Len() - 1 }
