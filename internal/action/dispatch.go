package action

import (
	"corelang/internal/cell"
	"corelang/internal/ctrl"
	"corelang/internal/frame"
	"corelang/internal/paramspec"
	"corelang/internal/rterr"
	"corelang/internal/ser"
)

// EvalToEnd evaluates arr to completion inside frame f's binding context,
// writing the last non-invisible result to out. Supplied by package eval at
// action-construction time (the host package wires eval and action
// together) so package action never imports eval — eval invokes actions,
// so action cannot invoke eval without a cycle.
type EvalToEnd func(out *cell.Cell, arr *ser.Array, f *frame.Frame) error

// Invoke runs target as a nested call: fill is handed a freshly pushed
// frame for target so the caller can place already-evaluated arguments
// directly into its varlist, and the result is written to out. Also
// supplied by package eval, for the same reason as EvalToEnd.
type Invoke func(out *cell.Cell, target *Action, fill func(callFrame *frame.Frame)) error

func propagate(err error) (Outcome, error) {
	if th, ok := ctrl.AsThrown(err); ok {
		return errorThrown(th)
	}
	return OutcomeValue, err
}

// NewNullDispatcher always produces null.
func NewNullDispatcher() Dispatcher {
	return func(f *frame.Frame) (Outcome, error) {
		var v cell.Cell
		cell.InitNull(&v)
		cell.Move(f.Out, &v)
		return OutcomeValue, nil
	}
}

// NewVoidDispatcher always produces void.
func NewVoidDispatcher() Dispatcher {
	return func(f *frame.Frame) (Outcome, error) {
		var v cell.Cell
		cell.InitVoid(&v)
		cell.Move(f.Out, &v)
		return OutcomeValue, nil
	}
}

// NewElider (and COMMENT, which shares this shape) leaves f.Out untouched.
func NewElider() Dispatcher {
	return func(f *frame.Frame) (Outcome, error) { return OutcomeInvisible, nil }
}

// NewUnchecked evaluates body to f.Out with no return-type verification.
func NewUnchecked(body *ser.Array, run EvalToEnd) Dispatcher {
	return func(f *frame.Frame) (Outcome, error) {
		if err := run(f.Out, body, f); err != nil {
			return propagate(err)
		}
		return OutcomeValue, nil
	}
}

// NewReturner evaluates body to f.Out and verifies it against ret's
// typeset.
func NewReturner(body *ser.Array, run EvalToEnd, ret *paramspec.Param) Dispatcher {
	return func(f *frame.Frame) (Outcome, error) {
		if err := run(f.Out, body, f); err != nil {
			return propagate(err)
		}
		if ret != nil && !ret.Accepts(f.Out) {
			return OutcomeValue, rterr.ArgumentType("return", "action")
		}
		return OutcomeValue, nil
	}
}

// NewVoider evaluates body but always overwrites f.Out with void afterward.
func NewVoider(body *ser.Array, run EvalToEnd) Dispatcher {
	return func(f *frame.Frame) (Outcome, error) {
		if err := run(&f.Spare, body, f); err != nil {
			return propagate(err)
		}
		var v cell.Cell
		cell.InitVoid(&v)
		cell.Move(f.Out, &v)
		return OutcomeValue, nil
	}
}

// NewSpecializer copies exemplar's hidden (pre-filled) slots into f's vars
// and requests the fulfillment loop redo against underlying, so any slot
// the exemplar left unfilled still gathers normally. Copied slots are
// stamped arg-marked-checked so the redo pass keeps them instead of
// re-consuming the caller's feed for slots the exemplar already decided.
func NewSpecializer(exemplar *ser.Context, underlying *Action) Dispatcher {
	return func(f *frame.Frame) (Outcome, error) {
		n := exemplar.Varlist().Len()
		for i := 1; i < n; i++ {
			v := exemplar.VarAt(i)
			if v.Kind() == cell.KindBlank {
				continue
			}
			dst := f.Ctx.VarAt(i)
			if dst != nil {
				val := *v
				cell.Move(dst, &val)
				dst.SetFlag(cell.FlagArgMarkedChecked)
			}
		}
		f.Phase = underlying
		f.Redo = frame.RedoChecked
		return OutcomeValue, nil
	}
}

// NewAdapter evaluates prelude in the current frame's binding, then redoes
// with adaptee as the new phase.
func NewAdapter(prelude *ser.Array, adaptee *Action, run EvalToEnd) Dispatcher {
	return func(f *frame.Frame) (Outcome, error) {
		if err := run(&f.Spare, prelude, f); err != nil {
			return propagate(err)
		}
		f.Phase = adaptee
		f.Redo = frame.RedoUnchecked
		return OutcomeValue, nil
	}
}

// NewEnclose steals the current frame's vars into a FRAME! value and
// invokes outer with that frame as its sole argument.
func NewEnclose(outer *Action, invoke Invoke) Dispatcher {
	return func(f *frame.Frame) (Outcome, error) {
		f.Reify()
		var frameVal cell.Cell
		cell.InitFrame(&frameVal, f)
		err := invoke(f.Out, outer, func(callFrame *frame.Frame) {
			cell.Move(callFrame.Ctx.VarAt(1), &frameVal)
		})
		if err != nil {
			return propagate(err)
		}
		return OutcomeValue, nil
	}
}

// NewChainer runs pipeline[0] with the current frame's arguments, then
// threads its result through each subsequent stage as that stage's sole
// argument, implemented eagerly here rather than as a lazy per-redo
// continuation.
func NewChainer(pipeline []*Action, invoke Invoke) Dispatcher {
	return func(f *frame.Frame) (Outcome, error) {
		n := f.Ctx.Varlist().Len()
		original := make([]cell.Cell, n)
		for i := 0; i < n; i++ {
			original[i] = *f.Ctx.VarAt(i)
		}
		var result cell.Cell
		for i, step := range pipeline {
			stage := i
			err := invoke(&result, step, func(callFrame *frame.Frame) {
				if stage == 0 {
					m := callFrame.Ctx.Varlist().Len()
					if m > len(original) {
						m = len(original)
					}
					for j := 1; j < m; j++ {
						v := original[j]
						cell.Move(callFrame.Ctx.VarAt(j), &v)
					}
				} else {
					cell.Move(callFrame.Ctx.VarAt(1), &result)
				}
			})
			if err != nil {
				return propagate(err)
			}
		}
		cell.Move(f.Out, &result)
		return OutcomeValue, nil
	}
}

// Hijack replaces victim's effective behavior with hijacker's, in place:
// a matching paramlist swaps the dispatcher directly, otherwise a shim
// dispatcher rebuilds a compatible call on every invocation.
func Hijack(victim, hijacker *Action, invoke Invoke) {
	if victim.Paramlist() == hijacker.Paramlist() {
		victim.dispatch = hijacker.dispatch
		victim.details = hijacker.details
		return
	}
	victim.dispatch = func(f *frame.Frame) (Outcome, error) {
		n := f.Ctx.Varlist().Len()
		original := make([]cell.Cell, n)
		for i := 0; i < n; i++ {
			original[i] = *f.Ctx.VarAt(i)
		}
		var result cell.Cell
		err := invoke(&result, hijacker, func(callFrame *frame.Frame) {
			m := callFrame.Ctx.Varlist().Len()
			if m > len(original) {
				m = len(original)
			}
			for i := 1; i < m; i++ {
				v := original[i]
				cell.Move(callFrame.Ctx.VarAt(i), &v)
			}
		})
		if err != nil {
			return propagate(err)
		}
		cell.Move(f.Out, &result)
		return OutcomeValue, nil
	}
}

// GenericTable maps a first argument's kind to its handler.
type GenericTable map[cell.Kind]Dispatcher

// NewGeneric dispatches on f's first argument's kind through table, falling
// back to fallback (or a typed "argument type" error) if no handler is
// registered for that kind.
func NewGeneric(verb string, table GenericTable, fallback Dispatcher) Dispatcher {
	return func(f *frame.Frame) (Outcome, error) {
		arg1 := f.Ctx.VarAt(1)
		if h, ok := table[arg1.Kind()]; ok {
			return h(f)
		}
		if fallback != nil {
			return fallback(f)
		}
		return OutcomeValue, rterr.ArgumentType("arg1", verb)
	}
}

// NewDatatypeChecker reports whether the first argument's kind equals
// named.
func NewDatatypeChecker(named cell.Kind) Dispatcher {
	return func(f *frame.Frame) (Outcome, error) {
		arg1 := f.Ctx.VarAt(1)
		var result cell.Cell
		cell.InitLogic(&result, arg1.Kind() == named)
		cell.Move(f.Out, &result)
		return OutcomeValue, nil
	}
}

// NewTypesetChecker reports whether the first argument's kind is a member
// of bits.
func NewTypesetChecker(bits uint64) Dispatcher {
	return func(f *frame.Frame) (Outcome, error) {
		arg1 := f.Ctx.VarAt(1)
		var result cell.Cell
		cell.InitLogic(&result, paramspec.TypesetHas(bits, arg1.Kind()))
		cell.Move(f.Out, &result)
		return OutcomeValue, nil
	}
}

// NativeFunc is a host-supplied Go implementation of a native action.
type NativeFunc func(f *frame.Frame) (Outcome, error)

// NewNative wraps fn as a Dispatcher.
func NewNative(fn NativeFunc) Dispatcher { return Dispatcher(fn) }
