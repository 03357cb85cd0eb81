// Context implements the {varlist, keylist} pair: a vars array
// whose slot 0 is the context's archetype cell, paired with a keylist whose
// slot 0 is the rootkey and whose slots 1..n are parameter descriptors.
// Keylists may be shared between a context and its originating action's
// paramlist.
package ser

import (
	"corelang/internal/cell"
	"corelang/internal/sym"
)

// Descriptor is the minimal surface a keylist entry's payload must provide
// so Context can resolve words without importing the paramspec package
// that constructs parameter descriptors (avoiding an import cycle, since
// paramspec builds paramlists out of *Array).
type Descriptor interface {
	DescriptorSymbol() sym.Symbol
}

// Context pairs a varlist with a (possibly shared) keylist. It implements
// cell.Context so word cells can bind to it directly.
type Context struct {
	varlist *Array
	keylist *Array
}

// NewContext builds a context of the given archetype kind (Object, Frame,
// Error, or Port) whose varlist has one slot per keylist entry including
// slot 0. keylist may be shared with other contexts or an action's
// paramlist; Context never mutates it.
func NewContext(archetype cell.Kind, keylist *Array) *Context {
	vars := NewArray(keylist.Len(), FlavorVarlist)
	for i := 0; i < keylist.Len(); i++ {
		var v cell.Cell
		cell.InitBlank(&v)
		vars.Append(v)
	}
	ctx := &Context{varlist: vars, keylist: keylist}
	var archCell cell.Cell
	cell.InitObject(&archCell, archetype, ctx)
	*vars.At(0) = archCell
	return ctx
}

var _ cell.Context = (*Context)(nil)

func (c *Context) Varlist() *Array { return c.varlist }
func (c *Context) Keylist() *Array { return c.keylist }
func (c *Context) Len() int        { return c.varlist.Len() }

// Archetype returns the archetype cell at varlist[0].
func (c *Context) Archetype() *cell.Cell { return c.varlist.At(0) }

// SharesKeylistWith reports whether c and other were built over the same
// keylist array identity.
func (c *Context) SharesKeylistWith(other *Context) bool {
	return c.keylist == other.keylist
}

// indexOf returns the slot index of s in the keylist's parameter
// descriptors, scanning keylist[1:]. Returns 0 (never a valid slot) if not
// found. Descriptor lookup is by linear scan; a binder cache could
// accelerate this but is not required for correctness at this module's
// scale.
func (c *Context) indexOf(s sym.Symbol) int {
	for i := 1; i < c.keylist.Len(); i++ {
		if d, ok := c.keylist.At(i).Payload().(Descriptor); ok && d.DescriptorSymbol() == s {
			return i
		}
	}
	return 0
}

// GetWord resolves s against the keylist's descriptor symbols, returning
// the bound variable. ok is false if s has no matching slot.
func (c *Context) GetWord(s sym.Symbol) (cell.Cell, bool) {
	if c.varlist.Inaccessible() {
		return cell.Cell{}, false
	}
	i := c.indexOf(s)
	if i == 0 {
		return cell.Cell{}, false
	}
	return *c.varlist.At(i), true
}

// SetWord assigns v into the slot named by s, returning false if s has no
// matching slot, the context is inaccessible, or the slot is protected.
func (c *Context) SetWord(s sym.Symbol, v cell.Cell) bool {
	if c.varlist.Inaccessible() {
		return false
	}
	i := c.indexOf(s)
	if i == 0 {
		return false
	}
	dst := c.varlist.At(i)
	if dst.GetFlag(cell.FlagProtected) {
		return false
	}
	_ = cell.Move(dst, &v)
	return true
}

// VarAt returns the variable cell at slot i (0 is the archetype).
func (c *Context) VarAt(i int) *cell.Cell { return c.varlist.At(i) }

// KeyAt returns the keylist descriptor cell at slot i (0 is the rootkey).
func (c *Context) KeyAt(i int) *cell.Cell { return c.keylist.At(i) }

// Extend appends key as a new keylist entry with a matching blank variable
// slot, returning the new slot's index. Only valid for a context that owns
// its keylist outright (the root/user object does; a frame context shares
// its action's immutable paramlist and must never grow it).
func (c *Context) Extend(key cell.Cell) int {
	c.keylist.Append(key)
	var v cell.Cell
	cell.InitBlank(&v)
	c.varlist.Append(v)
	return c.varlist.Len() - 1
}

// Steal detaches this context's varlist so a new owner can take over the
// underlying elements while this context is marked inaccessible. This is
// the operation frame reification's inverse uses: once a stack frame's
// vars have been migrated into a heap varlist, the original stack storage
// is stolen away so the old context can never be read again.
func (c *Context) Steal() *Array {
	stolen := c.varlist
	c.varlist = NewArray(0, FlavorVarlist)
	c.varlist.info |= InfoInaccessible
	return stolen
}

// ErrInaccessible is the error for variable access against a stolen or
// dropped context. GetWord and SetWord do not return it; they report such
// access with a false result.
type inaccessibleError struct{}

func (inaccessibleError) Error() string { return "context is inaccessible" }

var errInaccessible error = inaccessibleError{}
var ErrInaccessible = errInaccessible
