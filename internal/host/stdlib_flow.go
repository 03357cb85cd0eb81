// The non-loop control-flow natives: the user THROW/CATCH pair, the
// TRAP/RESCUE error interception pair, FAIL, the invisibles COMMENT and
// ELIDE, and REEVAL's Reevaluate-Cell request.
package host

import (
	"corelang/internal/action"
	"corelang/internal/cell"
	"corelang/internal/ctrl"
	"corelang/internal/frame"
	"corelang/internal/mold"
	"corelang/internal/rterr"
	"corelang/internal/ser"
	"corelang/internal/sym"
)

// buildThrowNative builds `throw value /name word`: an unnamed throw
// carries a null label only a plain CATCH matches; /name labels the throw
// with a word a CATCH/NAME must name back.
func buildThrowNative(tbl *sym.Table) *action.Action {
	pl := buildParamList(tbl, specOf(
		wordCell(cell.KindWord, tbl.Intern("value")),
		refinementCell(tbl.Intern("name")),
		wordCell(cell.KindGetWord, tbl.Intern("word")),
	))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		value := *f.Ctx.VarAt(1)
		var label cell.Cell
		cell.InitNull(&label)
		if f.Ctx.VarAt(2).Kind() == cell.KindInteger {
			w := f.Ctx.VarAt(3)
			if w.Kind() != cell.KindWord {
				return action.OutcomeValue, rterr.ArgumentType("word", "throw")
			}
			label = *w
		}
		return action.OutcomeThrown, ctrl.NewUser(label, value)
	}))
}

// buildCatchNative builds `catch body /name word`. Only user throws are
// candidates; BREAK/CONTINUE/RETURN/STOP keep their own catch sites.
func buildCatchNative(tbl *sym.Table, run action.EvalToEnd) *action.Action {
	pl := buildParamList(tbl, specOf(
		wordCell(cell.KindWord, tbl.Intern("body")),
		refinementCell(tbl.Intern("name")),
		wordCell(cell.KindGetWord, tbl.Intern("word")),
	))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		body, err := blockArg(f, 1, "body", "catch")
		if err != nil {
			return action.OutcomeValue, err
		}
		named := f.Ctx.VarAt(2).Kind() == cell.KindInteger
		var want sym.Symbol
		if named {
			w := f.Ctx.VarAt(3)
			if w.Kind() != cell.KindWord {
				return action.OutcomeValue, rterr.ArgumentType("word", "catch")
			}
			want = w.Symbol()
		}

		var out cell.Cell
		if err := run(&out, body, f); err != nil {
			th, ok := ctrl.AsThrown(err)
			if !ok || th.Signal != ctrl.SignalUser {
				return propagateNative(err)
			}
			caught := false
			if named {
				caught = th.Label.Kind() == cell.KindWord && th.Label.Symbol() == want
			} else {
				caught = th.Label.Kind() == cell.KindNull
			}
			if !caught {
				return action.OutcomeThrown, th
			}
			cell.Move(f.Out, &th.Payload)
			return action.OutcomeValue, nil
		}
		cell.Move(f.Out, &out)
		return action.OutcomeValue, nil
	}))
}

// buildTrapNative builds `trap body`: a failure raised while body runs is
// caught and returned as an error! value; a clean run returns the body's
// result. Thrown control flow is not a failure and keeps propagating.
func buildTrapNative(tbl *sym.Table, run action.EvalToEnd) *action.Action {
	pl := buildParamList(tbl, specOf(wordCell(cell.KindWord, tbl.Intern("body"))))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		body, err := blockArg(f, 1, "body", "trap")
		if err != nil {
			return action.OutcomeValue, err
		}
		var out cell.Cell
		if err := run(&out, body, f); err != nil {
			if th, ok := ctrl.AsThrown(err); ok {
				return action.OutcomeThrown, th
			}
			e, ok := err.(*rterr.Error)
			if !ok {
				e = rterr.New(rterr.KindInternal, "wrapped", "%s", err.Error())
			}
			var ev cell.Cell
			cell.InitError(&ev, e)
			cell.Move(f.Out, &ev)
			return action.OutcomeValue, nil
		}
		cell.Move(f.Out, &out)
		return action.OutcomeValue, nil
	}))
}

// buildRescueNative builds `rescue body handler`: when body fails, handler
// runs and supplies the result instead.
func buildRescueNative(tbl *sym.Table, run action.EvalToEnd) *action.Action {
	pl := buildParamList(tbl, specOf(
		wordCell(cell.KindWord, tbl.Intern("body")),
		wordCell(cell.KindWord, tbl.Intern("handler")),
	))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		body, err := blockArg(f, 1, "body", "rescue")
		if err != nil {
			return action.OutcomeValue, err
		}
		handler, err := blockArg(f, 2, "handler", "rescue")
		if err != nil {
			return action.OutcomeValue, err
		}
		var out cell.Cell
		if err := run(&out, body, f); err != nil {
			if th, ok := ctrl.AsThrown(err); ok {
				return action.OutcomeThrown, th
			}
			if herr := run(&out, handler, f); herr != nil {
				return propagateNative(herr)
			}
		}
		cell.Move(f.Out, &out)
		return action.OutcomeValue, nil
	}))
}

// buildFailNative builds `fail reason`: raise a user error. A text reason
// becomes the message directly; any other value is molded into one.
func buildFailNative(h *Host) *action.Action {
	tbl := h.Symbols
	pl := buildParamList(tbl, specOf(wordCell(cell.KindWord, tbl.Intern("reason"))))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		reason := f.Ctx.VarAt(1)
		msg := reason.Text()
		if reason.Kind() != cell.KindText {
			msg = mold.Mold(h.Symbols, reason)
		}
		return action.OutcomeValue, rterr.New(rterr.KindUser, "user", "%s", msg)
	}))
}

// buildCommentNative builds `comment 'value`: the argument is taken
// literally and discarded, and the step is invisible.
func buildCommentNative(tbl *sym.Table) *action.Action {
	pl := buildParamList(tbl, specOf(wordCell(cell.KindGetWord, tbl.Intern("value"))))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewElider())
}

// buildElideNative builds `elide value`: the argument IS evaluated (for its
// side effects) but the step itself is invisible.
func buildElideNative(tbl *sym.Table) *action.Action {
	pl := buildParamList(tbl, specOf(wordCell(cell.KindWord, tbl.Intern("value"))))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewElider())
}

// buildReevalNative builds `reeval value`: the argument is injected back
// into the evaluator as the next input without advancing the feed — an
// injected action gathers its remaining arguments from the real feed.
func buildReevalNative(tbl *sym.Table) *action.Action {
	pl := buildParamList(tbl, specOf(wordCell(cell.KindWord, tbl.Intern("value"))))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		f.Spare = *f.Ctx.VarAt(1)
		f.Redo = frame.ReevaluateCell
		return action.OutcomeValue, nil
	}))
}

// propagateNative forwards an error out of a native, reporting thrown
// values through the outcome channel.
func propagateNative(err error) (action.Outcome, error) {
	if th, ok := ctrl.AsThrown(err); ok {
		return action.OutcomeThrown, th
	}
	return action.OutcomeValue, err
}
