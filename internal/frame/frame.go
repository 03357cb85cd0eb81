// Package frame implements the per-invocation activation record and call
// stack: the Initial -> FulfillingArgs -> Dispatching -> Dropped state
// machine, frame push/drop with dsp_orig-scoped restoration, and
// reification (promoting a stack-lifetime frame's vars onto the heap).
//
// Grounded on vmregister/vm.go's CallFrame (ip/slots/function fields linked
// into a fixed-size call stack) for the push/drop shape, generalized from an
// array-of-frames call stack to a Prior-linked list so a reified frame can
// outlive its stack position without invalidating neighbors' indices.
package frame

import (
	"corelang/internal/cell"
	"corelang/internal/ser"
	"corelang/internal/sym"
)

// Phase is the minimal surface of an action identity a Frame needs. Defined
// here (rather than imported from package action) so action can depend on
// frame without a cycle; action.Action satisfies this trivially.
type Phase interface {
	Paramlist() *ser.Array
	Identity() cell.ActionID
}

// State is one of frame lifecycle states.
type State uint8

const (
	Initial State = iota
	FulfillingArgs
	Dispatching
	Dropped
)

func (s State) String() string {
	switch s {
	case Initial:
		return "initial"
	case FulfillingArgs:
		return "fulfilling-args"
	case Dispatching:
		return "dispatching"
	case Dropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// RedoKind is one of the three restart requests a dispatcher may return
// instead of a value.
type RedoKind uint8

const (
	RedoNone RedoKind = iota
	RedoChecked
	RedoUnchecked
	ReevaluateCell
)

// Frame is an activation record. It lives stack-lifetime (pushed by a
// Stack, dropped when its action completes) until Reify promotes it to an
// independent heap value.
type Frame struct {
	Out     *cell.Cell // caller-supplied output slot
	Spare   cell.Cell  // scratch cell; also the Reevaluate-Cell injection slot
	Phase   Phase      // current action identity under dispatch
	Binding cell.Binding

	// Ctx backs this frame's variables. Its varlist carries the
	// stack-lifetime flag until Reify clears it; its keylist is always the
	// phase's paramlist.
	Ctx *ser.Context

	// ArgIndex is the paramlist slot cursor during FulfillingArgs.
	ArgIndex int

	Feed    *Feed
	DSPOrig int
	State   State
	Reified bool
	Prior   *Frame

	// Owner is the Stack that pushed f, so code holding only a *Frame (e.g.
	// a dispatcher evaluating a body block) can still reach the shared data
	// stack and push further nested frames without a separate parameter.
	Owner *Stack

	Redo    RedoKind
	RedoArg Phase // new phase for Redo-Checked/Unchecked, when swapped
}

// Reify promotes f's vars from stack-lifetime to independently-owned heap
// storage. In this module a Context's varlist is already a heap-allocated
// Go value (Go's collector subsumes the source's manual stack/heap split);
// reification here is the flag transition that makes the varlist survive
// Drop rather than a storage migration.
func (f *Frame) Reify() {
	if f.Reified {
		return
	}
	f.Ctx.Varlist().ClearStackLifetime()
	f.Reified = true
}

// DataStack is the shared refinement-ordering resource: a single stack of
// word cells pushed during path traversal and consumed, in call order,
// during argument fulfillment.
type DataStack struct {
	cells []cell.Cell
}

// DSP returns the current stack depth.
func (d *DataStack) DSP() int { return len(d.cells) }

// PushWord pushes a refinement-name word cell bound to s.
func (d *DataStack) PushWord(s sym.Symbol) {
	var c cell.Cell
	cell.InitWord(&c, cell.KindWord, s)
	d.cells = append(d.cells, c)
}

// At returns the cell at absolute stack position i.
func (d *DataStack) At(i int) *cell.Cell { return &d.cells[i] }

// RestoreDSP truncates the stack back to depth n, the scoped-drop discipline
// requires every frame to honor on every exit path.
func (d *DataStack) RestoreDSP(n int) {
	if n < len(d.cells) {
		d.cells = d.cells[:n]
	}
}

// IndexOf scans cells[from:] for a word cell bound to s, returning its
// absolute position or -1. Used by argument fulfillment to test "was this
// refinement's name pushed since dsp_orig" while preserving call order.
func (d *DataStack) IndexOf(from int, s sym.Symbol) int {
	for i := from; i < len(d.cells); i++ {
		if d.cells[i].Kind() == cell.KindWord && d.cells[i].Symbol() == s {
			return i
		}
	}
	return -1
}

// Stack is the single-threaded call stack ("there is exactly one evaluator
// at a time"): a Prior-linked chain of frames sharing one DataStack.
type Stack struct {
	Top  *Frame
	Data DataStack
}

// NewStack returns an empty call stack.
func NewStack() *Stack { return &Stack{} }

// Push builds and links a new stack-lifetime frame for invoking phase,
// capturing dsp_orig and prior.
func (s *Stack) Push(phase Phase, out *cell.Cell, feed *Feed) *Frame {
	keylist := phase.Paramlist()
	ctx := ser.NewContext(cell.KindFrame, keylist)
	ctx.Varlist().SetStackLifetime()
	f := &Frame{
		Out:     out,
		Phase:   phase,
		Ctx:     ctx,
		Feed:    feed,
		DSPOrig: s.Data.DSP(),
		State:   Initial,
		Prior:   s.Top,
		Owner:   s,
	}
	s.Top = f
	return f
}

// Drop restores the data stack to f's dsp_orig and, if f was never reified,
// marks its varlist inaccessible. f must be the current stack top
// (scoped-drop discipline: frames drop in LIFO order).
func (s *Stack) Drop(f *Frame) {
	s.Data.RestoreDSP(f.DSPOrig)
	if !f.Reified {
		f.Ctx.Varlist().MarkInaccessible()
	}
	f.State = Dropped
	if s.Top == f {
		s.Top = f.Prior
	}
}
