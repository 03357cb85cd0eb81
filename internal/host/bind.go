package host

import (
	"corelang/internal/action"
	"corelang/internal/cell"
	"corelang/internal/eval"
	"corelang/internal/frame"
	"corelang/internal/paramspec"
	"corelang/internal/ser"
	"corelang/internal/sym"
)

// EvalToEnd satisfies action.EvalToEnd directly: eval.EvalArrayToEnd already
// has the exact signature dispatcher constructors expect. Defined here, at
// the host/action/eval wiring boundary
// note (eval must import action to invoke actions, so action cannot import
// eval, and something above both must hand the dispatcher layer a concrete
// evaluation callback).
var EvalToEnd action.EvalToEnd = eval.EvalArrayToEnd

// Invoke returns an action.Invoke closure bound to h's call stack, the
// callback NewEnclose/NewChainer/Hijack use to run a nested action directly
// rather than through the feed-driven prefix-call path. A definitional
// RETURN raised by the invoked action's own body is absorbed at this
// boundary, the same way runAction absorbs it on the feed-driven path.
func (h *Host) Invoke() action.Invoke {
	return func(out *cell.Cell, target *action.Action, fill func(callFrame *frame.Frame)) error {
		fr := h.Stack.Push(target, out, frame.NewFeed(nil))
		defer h.Stack.Drop(fr)
		fill(fr)
		seedImplicitSlots(fr, target)
		return dispatchLoop(fr, target)
	}
}

// seedImplicitSlots fills the local and return slots a fill callback leaves
// untouched: locals get void, the return slot gets the definitional-return
// marker bound to target, matching what feed-driven fulfillment installs.
func seedImplicitSlots(fr *frame.Frame, target *action.Action) {
	pl := target.ParamList()
	for slot := 1; slot <= pl.Len(); slot++ {
		v := fr.Ctx.VarAt(slot)
		if v.Kind() != cell.KindBlank {
			continue
		}
		switch pl.ParamAt(slot).Class {
		case paramspec.ClassLocal:
			var loc cell.Cell
			cell.InitVoid(&loc)
			cell.Move(v, &loc)
		case paramspec.ClassReturn:
			var ret cell.Cell
			cell.InitAction(&ret, nil)
			ret.SetBinding(cell.Binding{Kind: cell.BoundRelative, Action: target.Identity()})
			cell.Move(v, &ret)
		}
	}
}

// bindBlock returns a deep copy of body with every word-family cell's
// binding resolved: a symbol matching one of pl's parameter names is bound
// relatively to actionID, and every other symbol is bound absolutely to
// globalCtx. Nested blocks/groups are recursed into, since a function
// body's inner blocks share its own scope unless they are themselves a
// nested function's spec/body (which this minimal binder does not need to
// special-case: MakeFunction is only ever asked to bind a single function's
// own top-level body).
func bindBlock(tbl *sym.Table, body *ser.Array, pl *paramspec.ParamList, actionID cell.ActionID, globalCtx *ser.Context) *ser.Array {
	paramSym := map[sym.Symbol]bool{}
	for i := 1; i <= pl.Len(); i++ {
		p := pl.ParamAt(i)
		if p.Unbindable() {
			continue // locals/return are reachable only via the relative chain anyway
		}
		paramSym[p.Sym] = true
	}
	return bindArray(body, pl, paramSym, actionID, globalCtx)
}

func bindArray(arr *ser.Array, pl *paramspec.ParamList, paramSym map[sym.Symbol]bool, actionID cell.ActionID, globalCtx *ser.Context) *ser.Array {
	out := ser.NewArray(arr.Len(), arr.Flavor())
	for i := 0; i < arr.Len(); i++ {
		c := *arr.At(i)
		switch c.Kind() {
		case cell.KindWord, cell.KindSetWord, cell.KindGetWord, cell.KindLitWord:
			if paramSym[c.Symbol()] || isLocalOrReturn(pl, c.Symbol()) {
				c.SetBinding(cell.Binding{Kind: cell.BoundRelative, Action: actionID})
			} else {
				if c.Kind() == cell.KindSetWord {
					// A body's set-word that names no parameter assigns a
					// global; declare it so the assignment has a slot.
					declareGlobal(globalCtx, c.Symbol())
				}
				c.SetBinding(cell.Binding{Kind: cell.BoundAbsolute, Context: globalCtx})
			}
		case cell.KindBlock, cell.KindGroup, cell.KindPath, cell.KindSetPath, cell.KindGetPath:
			if nested, ok := c.Payload().(*ser.Array); ok {
				rebound := bindArray(nested, pl, paramSym, actionID, globalCtx)
				cell.InitArray(&c, c.Kind(), rebound)
			}
		}
		out.Append(c)
	}
	return out
}

func isLocalOrReturn(pl *paramspec.ParamList, s sym.Symbol) bool {
	for i := 1; i <= pl.Len(); i++ {
		p := pl.ParamAt(i)
		if p.Sym == s && (p.Class == paramspec.ClassLocal || p.Class == paramspec.ClassReturn) {
			return true
		}
	}
	return false
}

// MakeFunction implements the `function`/`func` constructor: compile spec
// into a paramlist, bind body against it and the global
// context, and wire a returner (or voider, for a <void>-tagged spec)
// dispatcher over the bound body.
func MakeFunction(h *Host, specArr, bodyArr *ser.Array) (*action.Action, error) {
	pl, err := paramspec.Build(h.Symbols, specArr, true)
	if err != nil {
		return nil, err
	}
	voidify := paramspec.Voidify(specArr)

	details := ser.NewArray(0, ser.FlavorDetails)
	act := action.New(pl, details, nil)

	body := bindBlock(h.Symbols, bodyArr, pl, act.Identity(), h.Root)
	if voidify {
		act.SetDispatch(action.NewVoider(body, EvalToEnd))
	} else {
		ret := pl.ParamAt(pl.ReturnIndex())
		act.SetDispatch(action.NewReturner(body, EvalToEnd, ret))
	}
	return act, nil
}
