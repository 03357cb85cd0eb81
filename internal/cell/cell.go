// Package cell implements the tagged value representation: a fixed-shape
// slot carrying a kind, a quote level, flag bits, a binding, and a payload
// reinterpreted by kind.
//
// vmregister/value.go NaN-boxes every value into a uint64 for cache
// locality and zero-allocation numbers; exposing that kind of internal cell
// bit layout is out of scope here. What is kept is the *shape* of its
// Object header (vmregister/value.go's Type/Marked/Next fields — a kind
// tag plus a GC-traversal flag plus a link) generalized from one concrete
// heap-object kind to the full cell kind set, expressed as an ordinary
// tagged Go struct rather than a packed machine word.
package cell

import "corelang/internal/sym"

// Kind is the tag distinguishing what a cell's payload means.
type Kind uint8

const (
	KindEnd Kind = iota // sentinel; never visible to user code
	KindNull
	KindVoid
	KindBlank
	KindLogic
	KindInteger
	KindDecimal
	KindText
	KindBinary
	KindBlock
	KindGroup
	KindWord
	KindSetWord
	KindGetWord
	KindLitWord
	KindRefinement
	KindIssue
	KindPath
	KindSetPath
	KindGetPath
	KindAction
	KindFrame
	KindObject
	KindError
	KindPort
	KindMap
	KindDatatype
	KindTypeset
	KindVarargs
	KindHandle
	KindTag // e.g. <local>, <opt>, <zero> — used by mode tags the paramlist
	// builder reads and returned directly from function bodies; added as a
	// first-class kind rather than overloading KindIssue, since issues are
	// this module's "tight" parameter marker and tags must stay
	// distinguishable from them.
)

var kindNames = map[Kind]string{
	KindEnd: "end", KindNull: "null", KindVoid: "void", KindBlank: "blank",
	KindLogic: "logic", KindInteger: "integer", KindDecimal: "decimal",
	KindText: "text", KindBinary: "binary", KindBlock: "block", KindGroup: "group",
	KindWord: "word", KindSetWord: "set-word", KindGetWord: "get-word",
	KindLitWord: "lit-word", KindRefinement: "refinement", KindIssue: "issue",
	KindPath: "path", KindSetPath: "set-path", KindGetPath: "get-path",
	KindAction: "action", KindFrame: "frame", KindObject: "object",
	KindError: "error", KindPort: "port", KindMap: "map", KindDatatype: "datatype",
	KindTypeset: "typeset", KindVarargs: "varargs", KindHandle: "handle",
	KindTag: "tag",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// IsWord reports whether k is one of the word kinds, whose payload is a symbol.
func (k Kind) IsWord() bool {
	switch k {
	case KindWord, KindSetWord, KindGetWord, KindLitWord, KindRefinement, KindIssue:
		return true
	}
	return false
}

// IsArray reports whether k's payload is an Array (block/group/path family).
func (k Kind) IsArray() bool {
	switch k {
	case KindBlock, KindGroup, KindPath, KindSetPath, KindGetPath:
		return true
	}
	return false
}

// Flags are the per-cell bits: protection, const-ness, enfix-ness, a
// traversal mark, and transient evaluator markers.
type Flags uint16

const (
	FlagProtected Flags = 1 << iota
	FlagEnfixed
	FlagUnevaluated
	FlagMarked
	FlagConst
	FlagArgMarkedChecked
	FlagOutMarkedStale
	FlagLine
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// transientFlags are cleared by Move — per-step bookkeeping that does not
// describe the value itself, only how the last step that produced it
// behaved.
const transientFlags = FlagUnevaluated | FlagMarked | FlagArgMarkedChecked | FlagOutMarkedStale | FlagLine

// BindKind distinguishes unbound cells from the two binding forms.
type BindKind uint8

const (
	Unbound BindKind = iota
	BoundAbsolute        // bound to a context
	BoundRelative        // bound to an action identity; needs a current frame to resolve
)

// ActionID is an action's stable identity, used both as the key for relative
// bindings and as the comparison key for definitional RETURN/throw labels.
type ActionID uint64

// Context is the minimal surface a binding target must provide so that
// cell, the lowest layer, never imports the series/context package that
// depends on it.
type Context interface {
	GetWord(s sym.Symbol) (Cell, bool)
	SetWord(s sym.Symbol, v Cell) bool
}

// Binding is a cell's binding slot: unbound, a context reference (absolute),
// or an action identity (relative — resolution requires a current frame
// whose phase matches.
type Binding struct {
	Kind    BindKind
	Context Context
	Action  ActionID
}

// Cell is the fixed-shape tagged slot every value in the system is stored
// as: a kind tag, a quote level, flag bits, a binding, and one of several
// typed payload fields selected by kind.
type Cell struct {
	kind  Kind
	quote uint8
	flags Flags
	bind  Binding

	sym Symbolic // word-family payload
	i   int64    // integer / logic (0/1) / datatype-as-kind payload
	f   float64  // decimal payload
	s   string   // text/binary/issue-spelling payload
	ptr any      // block/group/path Array, object/frame/action/map/error pointer
}

// Symbolic carries a word-family cell's interned identity.
type Symbolic struct {
	Sym sym.Symbol
}

// Reset reinitializes c to kind with only the given flags set, clearing
// quote level, binding, and payload. This is the universal entry point
// every InitX helper below goes through.
func Reset(c *Cell, kind Kind, flags Flags) {
	*c = Cell{kind: kind, flags: flags}
}

func (c *Cell) Kind() Kind       { return c.kind }
func (c *Cell) QuoteLevel() uint8 { return c.quote }
func (c *Cell) Flags() Flags     { return c.flags }
func (c *Cell) Binding() Binding { return c.bind }
func (c *Cell) SetBinding(b Binding) { c.bind = b }

func (c *Cell) GetFlag(f Flags) bool { return c.flags.Has(f) }
func (c *Cell) SetFlag(f Flags)      { c.flags |= f }
func (c *Cell) ClearFlag(f Flags)    { c.flags &^= f }

// IsKind reports whether c's kind (irrespective of quote level) is k.
func IsKind(c *Cell, k Kind) bool { return c.kind == k }

// ---- typed initializers -----------------------------------------------

func InitEnd(c *Cell)   { Reset(c, KindEnd, 0) }
func InitNull(c *Cell)  { Reset(c, KindNull, 0) }
func InitVoid(c *Cell)  { Reset(c, KindVoid, 0) }
func InitBlank(c *Cell) { Reset(c, KindBlank, 0) }

func InitLogic(c *Cell, v bool) {
	Reset(c, KindLogic, 0)
	if v {
		c.i = 1
	}
}
func (c *Cell) Logic() bool { return c.i != 0 }

func InitInteger(c *Cell, v int64) {
	Reset(c, KindInteger, 0)
	c.i = v
}
func (c *Cell) Integer() int64 { return c.i }

func InitDecimal(c *Cell, v float64) {
	Reset(c, KindDecimal, 0)
	c.f = v
}
func (c *Cell) Decimal() float64 { return c.f }

func InitText(c *Cell, v string) {
	Reset(c, KindText, 0)
	c.s = v
}
func InitTag(c *Cell, v string) {
	Reset(c, KindTag, 0)
	c.s = v
}
func (c *Cell) Tag() string { return c.s }

func InitBinary(c *Cell, v string) {
	Reset(c, KindBinary, 0)
	c.s = v
}
func (c *Cell) Text() string { return c.s }

// InitWord initializes c as one of the word-family kinds bearing symbol s.
// kind must be one of the IsWord() kinds.
func InitWord(c *Cell, kind Kind, s sym.Symbol) {
	Reset(c, kind, 0)
	c.sym = Symbolic{Sym: s}
}
func (c *Cell) Symbol() sym.Symbol { return c.sym.Sym }

// InitArray initializes c as one of the array-bearing kinds (block, group,
// path family). payload is an *ser.Array, stored untyped to avoid an import
// cycle between cell and ser.
func InitArray(c *Cell, kind Kind, payload any) {
	Reset(c, kind, 0)
	c.ptr = payload
}
func (c *Cell) Payload() any { return c.ptr }

// InitArrayAt initializes c like InitArray but positioned partway into the
// array: index is the 0-based offset the value's own head starts at. A
// series value and the same series "skipped forward" share one backing
// array and differ only in this offset, which is how FOR-SKIP's loop word
// walks a series without copying it.
func InitArrayAt(c *Cell, kind Kind, payload any, index int) {
	Reset(c, kind, 0)
	c.ptr = payload
	c.i = int64(index)
}

// ArrayIndex returns an array-bearing cell's head offset (0 for a cell made
// with InitArray).
func (c *Cell) ArrayIndex() int { return int(c.i) }

// InitAction initializes c as an action archetype. payload is the action's
// own identity-bearing structure (an *action.Action), untyped here.
func InitAction(c *Cell, payload any) {
	Reset(c, KindAction, 0)
	c.ptr = payload
}

// InitFrame initializes c as a reified frame value. payload is an
// *frame.Frame, untyped here.
func InitFrame(c *Cell, payload any) {
	Reset(c, KindFrame, 0)
	c.ptr = payload
}

// InitObject initializes c as an object/port/map context value.
func InitObject(c *Cell, kind Kind, payload any) {
	Reset(c, kind, 0)
	c.ptr = payload
}

// InitError initializes c as a thrown-error-bearing value.
func InitError(c *Cell, payload any) {
	Reset(c, KindError, 0)
	c.ptr = payload
}

// InitDatatype initializes c as a datatype value naming the given kind.
func InitDatatype(c *Cell, named Kind) {
	Reset(c, KindDatatype, 0)
	c.i = int64(named)
}
func (c *Cell) DatatypeKind() Kind { return Kind(c.i) }

// InitTypeset initializes c as a typeset bitset value.
func InitTypeset(c *Cell, bits uint64) {
	Reset(c, KindTypeset, 0)
	c.i = int64(bits)
}
func (c *Cell) TypesetBits() uint64 { return uint64(c.i) }

// ---- generic cell operations --------------------------------------------

// Move copies kind, quote level, binding, and payload from src to dst,
// clearing transient flags. It refuses to write into a protected dst.
// Move must not be used to smuggle a relative-bound cell into a context
// that expects absolute binding without reification; callers crossing
// that boundary must resolve the binding themselves first. Move itself
// only copies whatever binding src already carries.
func Move(dst, src *Cell) error {
	if dst.flags.Has(FlagProtected) {
		return errProtected
	}
	kept := src.flags &^ transientFlags
	*dst = Cell{
		kind:  src.kind,
		quote: src.quote,
		flags: kept,
		bind:  src.bind,
		sym:   src.sym,
		i:     src.i,
		f:     src.f,
		s:     src.s,
		ptr:   src.ptr,
	}
	return nil
}

type protectedError struct{}

func (protectedError) Error() string { return "attempt to modify a protected value" }

var errProtected = protectedError{}

// ErrProtected is returned by Move (and by higher layers performing direct
// writes) when the destination cell carries FlagProtected.
var ErrProtected error = errProtected

// Quotify increases c's quote level by n.
func Quotify(c *Cell, n uint8) { c.quote += n }

// Dequotify decreases c's quote level by one, floored at zero, and returns
// the resulting level.
func Dequotify(c *Cell) uint8 {
	if c.quote > 0 {
		c.quote--
	}
	return c.quote
}

// IsTruthy implements the conditional-truth rule shared by IF, the loop
// family's body results, and boolean natives: only NULL, blank, and logic
// FALSE are "falsy" — every other kind, including 0 and the empty block,
// is conditionally true.
func IsTruthy(c *Cell) bool {
	switch c.kind {
	case KindNull, KindBlank:
		return false
	case KindLogic:
		return c.Logic()
	default:
		return true
	}
}

// Equal reports value equality modulo quote level: two cells compare equal
// if their dequoted kind and payload match, regardless of quote depth.
func Equal(a, b *Cell) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindInteger, KindLogic, KindDatatype:
		return a.i == b.i
	case KindDecimal:
		return a.f == b.f
	case KindText, KindBinary:
		return a.s == b.s
	default:
		if a.kind.IsWord() {
			return a.sym.Sym == b.sym.Sym
		}
		// Same backing pointer but a different head offset is a different
		// series position, not the same value.
		return a.ptr == b.ptr && a.i == b.i
	}
}
