// Package action implements the action/dispatcher layer: an Action pairs a
// paramlist (from package paramspec) with a details array interpreted by
// one of a fixed set of dispatcher functions.
//
// Grounded on vmregister/vm.go's Closure/NativeFn split (a callable value is
// either a compiled body plus captured upvalues, or a Go function pointer;
// vm.go's call-site switches on which) generalized to a full dispatcher
// table — interpreted, specializer, adapter, encloser, chainer, hijacker,
// generic, datatype/typeset checkers, and native — all sharing one Action
// identity and paramlist shape.
package action

import (
	"corelang/internal/cell"
	"corelang/internal/ctrl"
	"corelang/internal/frame"
	"corelang/internal/paramspec"
	"corelang/internal/ser"
)

// Dispatcher runs an action's behavior against a fulfilled frame. It sets
// the frame's Redo field when it wants FulfillingArgs replayed instead of
// producing a value.
//
// outcome reports what happened to f.Out:
//   - OutcomeValue: f.Out holds the result.
//   - OutcomeInvisible: f.Out is unchanged (the action is invisible).
//   - OutcomeThrown: err is a *ctrl.Thrown to propagate.
type Dispatcher func(f *frame.Frame) (outcome Outcome, err error)

// Outcome is a dispatcher's disposition for a completed call.
// Redo-Checked/Unchecked are signaled via frame.Frame.Redo rather than
// here, since the frame (not the dispatcher's return value) is what
// FulfillingArgs rereads.
type Outcome uint8

const (
	OutcomeValue Outcome = iota
	OutcomeInvisible
	OutcomeThrown
)

var nextID cell.ActionID = 1

// Action is a callable identity: a paramlist (also the keylist shared by
// every frame built to call it) plus a details array the dispatcher
// interprets.
type Action struct {
	id        cell.ActionID
	paramlist *paramspec.ParamList
	details   *ser.Array
	dispatch  Dispatcher

	// hidden marks slots a specialization baked in, by 1-based paramlist
	// index. nil for every action that isn't itself a specialization.
	// Per-instance rather than a mutated Param.Mods flag, since a paramlist
	// is shared across every specialization built over the
	// same underlying action, and each may hide a different slot subset.
	hidden map[int]bool
}

// Hidden reports whether slot i is hidden on a's user-facing interface,
// i.e. it was baked in by a specialization.
func (a *Action) Hidden(i int) bool { return a.hidden != nil && a.hidden[i] }

// New allocates an action with a fresh, stable identity and wires the
// archetype cell at paramlist.Array[0] back to it: slot 0 holds the action
// archetype (kind=action, payload.paramlist=self).
func New(pl *paramspec.ParamList, details *ser.Array, dispatch Dispatcher) *Action {
	a := &Action{id: nextID, paramlist: pl, details: details, dispatch: dispatch}
	nextID++
	cell.InitAction(pl.Array.At(0), a)
	return a
}

func (a *Action) Identity() cell.ActionID   { return a.id }
func (a *Action) Paramlist() *ser.Array     { return a.paramlist.Array }
func (a *Action) ParamList() *paramspec.ParamList { return a.paramlist }
func (a *Action) Details() *ser.Array       { return a.details }
func (a *Action) Dispatch() Dispatcher      { return a.dispatch }

// SetDispatch swaps a's dispatcher in place, the mechanism Hijack uses when
// the hijacker shares a's paramlist exactly.
func (a *Action) SetDispatch(d Dispatcher) { a.dispatch = d }

var _ frame.Phase = (*Action)(nil)

// Cell wraps a in a KindAction value cell, bound nowhere.
func Cell(a *Action) cell.Cell {
	var c cell.Cell
	cell.InitAction(&c, a)
	return c
}

// FromCell extracts the *Action an action-kind cell carries, or nil if c is
// not an action cell.
func FromCell(c *cell.Cell) *Action {
	if c.Kind() != cell.KindAction {
		return nil
	}
	a, _ := c.Payload().(*Action)
	return a
}

// errorThrown lets a dispatcher return a *ctrl.Thrown through the ordinary
// error channel while still reporting OutcomeThrown for callers that switch
// on Outcome before checking err.
func errorThrown(th *ctrl.Thrown) (Outcome, error) { return OutcomeThrown, th }
