// The loop-driver natives: every variant in internal/ctrl's family gets a
// word in the root context here. Each native owns its iteration source —
// taking the hold on any series it walks — and hands internal/ctrl the
// next/body pair that variant's contract needs, the same division of labor
// buildForEachNative established.
package host

import (
	"corelang/internal/action"
	"corelang/internal/cell"
	"corelang/internal/ctrl"
	"corelang/internal/frame"
	"corelang/internal/rterr"
	"corelang/internal/ser"
	"corelang/internal/sym"
)

// loopOutcome converts a ctrl driver's (result, err) pair into the native
// calling convention: thrown values keep propagating, failures surface as
// errors, and a completed loop's result lands in f.Out.
func loopOutcome(f *frame.Frame, result cell.Cell, err error) (action.Outcome, error) {
	if err != nil {
		if th, ok := ctrl.AsThrown(err); ok {
			return action.OutcomeThrown, th
		}
		return action.OutcomeValue, err
	}
	cell.Move(f.Out, &result)
	return action.OutcomeValue, nil
}

// bodyRunner wraps a bound body block as a ctrl.RunBody.
func bodyRunner(run action.EvalToEnd, body *ser.Array, f *frame.Frame) ctrl.RunBody {
	return func() (cell.Cell, error) {
		var out cell.Cell
		if err := run(&out, body, f); err != nil {
			return cell.Cell{}, err
		}
		return out, nil
	}
}

func blockArg(f *frame.Frame, slot int, param, native string) (*ser.Array, error) {
	arr, ok := f.Ctx.VarAt(slot).Payload().(*ser.Array)
	if !ok {
		return nil, rterr.ArgumentType(param, native)
	}
	return arr, nil
}

func intArg(f *frame.Frame, slot int, param, native string) (int64, error) {
	v := f.Ctx.VarAt(slot)
	if v.Kind() != cell.KindInteger {
		return 0, rterr.ArgumentType(param, native)
	}
	return v.Integer(), nil
}

// loopVar reads the hard-quoted loop word at varSlot and binds the body
// block at bodySlot against a fresh one-slot context for it, the same
// per-call variable-scope technique buildForEachNative uses.
func loopVar(f *frame.Frame, varSlot, bodySlot int, native string) (sym.Symbol, *ser.Context, *ser.Array, error) {
	varWord := f.Ctx.VarAt(varSlot)
	if varWord.Kind() != cell.KindWord {
		return 0, nil, nil, rterr.ArgumentType("word", native)
	}
	bodyArr, err := blockArg(f, bodySlot, "body", native)
	if err != nil {
		return 0, nil, nil, err
	}
	s := varWord.Symbol()
	ctx := oneVarContext(s)
	return s, ctx, bindLoopVar(bodyArr, s, ctx), nil
}

// buildLoopNative builds `loop count body`: body runs count times.
func buildLoopNative(tbl *sym.Table, run action.EvalToEnd) *action.Action {
	pl := buildParamList(tbl, specOf(
		wordCell(cell.KindWord, tbl.Intern("count")),
		wordCell(cell.KindWord, tbl.Intern("body")),
	))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		n, err := intArg(f, 1, "count", "loop")
		if err != nil {
			return action.OutcomeValue, err
		}
		body, err := blockArg(f, 2, "body", "loop")
		if err != nil {
			return action.OutcomeValue, err
		}
		result, err := ctrl.Loop(n, bodyRunner(run, body, f))
		return loopOutcome(f, result, err)
	}))
}

// buildRepeatNative builds `repeat 'word count body`: word counts 1..count.
func buildRepeatNative(tbl *sym.Table, run action.EvalToEnd) *action.Action {
	pl := buildParamList(tbl, specOf(
		wordCell(cell.KindGetWord, tbl.Intern("word")),
		wordCell(cell.KindWord, tbl.Intern("count")),
		wordCell(cell.KindWord, tbl.Intern("body")),
	))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		n, err := intArg(f, 2, "count", "repeat")
		if err != nil {
			return action.OutcomeValue, err
		}
		s, ctx, body, err := loopVar(f, 1, 3, "repeat")
		if err != nil {
			return action.OutcomeValue, err
		}
		result, err := ctrl.Repeat(n, func(i int64) error {
			var v cell.Cell
			cell.InitInteger(&v, i)
			ctx.SetWord(s, v)
			return nil
		}, bodyRunner(run, body, f))
		return loopOutcome(f, result, err)
	}))
}

// buildForNative builds `for 'word start end bump body`.
func buildForNative(tbl *sym.Table, run action.EvalToEnd) *action.Action {
	pl := buildParamList(tbl, specOf(
		wordCell(cell.KindGetWord, tbl.Intern("word")),
		wordCell(cell.KindWord, tbl.Intern("start")),
		wordCell(cell.KindWord, tbl.Intern("end")),
		wordCell(cell.KindWord, tbl.Intern("bump")),
		wordCell(cell.KindWord, tbl.Intern("body")),
	))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		start, err := intArg(f, 2, "start", "for")
		if err != nil {
			return action.OutcomeValue, err
		}
		end, err := intArg(f, 3, "end", "for")
		if err != nil {
			return action.OutcomeValue, err
		}
		bump, err := intArg(f, 4, "bump", "for")
		if err != nil {
			return action.OutcomeValue, err
		}
		s, ctx, body, err := loopVar(f, 1, 5, "for")
		if err != nil {
			return action.OutcomeValue, err
		}
		result, err := ctrl.For(start, end, bump, func(i int64) error {
			var v cell.Cell
			cell.InitInteger(&v, i)
			ctx.SetWord(s, v)
			return nil
		}, bodyRunner(run, body, f))
		return loopOutcome(f, result, err)
	}))
}

// buildForSkipNative builds `for-skip 'word series n body`: word holds the
// series positioned at the current offset, stepping n items per iteration.
func buildForSkipNative(tbl *sym.Table, run action.EvalToEnd) *action.Action {
	pl := buildParamList(tbl, specOf(
		wordCell(cell.KindGetWord, tbl.Intern("word")),
		wordCell(cell.KindWord, tbl.Intern("series")),
		wordCell(cell.KindWord, tbl.Intern("skip")),
		wordCell(cell.KindWord, tbl.Intern("body")),
	))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		seriesVal := *f.Ctx.VarAt(2)
		dataArr, err := blockArg(f, 2, "series", "for-skip")
		if err != nil {
			return action.OutcomeValue, err
		}
		n, err := intArg(f, 3, "skip", "for-skip")
		if err != nil {
			return action.OutcomeValue, err
		}
		if n <= 0 {
			return action.OutcomeValue, rterr.New(rterr.KindScript, "bad-skip", "for-skip requires a positive skip count")
		}
		s, ctx, body, err := loopVar(f, 1, 4, "for-skip")
		if err != nil {
			return action.OutcomeValue, err
		}

		release := dataArr.Hold()
		defer release()

		pos := seriesVal.ArrayIndex()
		result, err := ctrl.ForSkip(
			func() bool { return pos >= dataArr.Len() },
			func() error {
				var v cell.Cell
				cell.InitArrayAt(&v, seriesVal.Kind(), dataArr, pos)
				ctx.SetWord(s, v)
				return nil
			},
			func() error { pos += int(n); return nil },
			bodyRunner(run, body, f),
		)
		return loopOutcome(f, result, err)
	}))
}

// buildWhileNative builds `while cond body`; negate turns it into
// `while-not`, looping while cond stays falsy.
func buildWhileNative(tbl *sym.Table, run action.EvalToEnd, negate bool) *action.Action {
	name := "while"
	if negate {
		name = "while-not"
	}
	pl := buildParamList(tbl, specOf(
		wordCell(cell.KindWord, tbl.Intern("cond")),
		wordCell(cell.KindWord, tbl.Intern("body")),
	))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		condArr, err := blockArg(f, 1, "cond", name)
		if err != nil {
			return action.OutcomeValue, err
		}
		body, err := blockArg(f, 2, "body", name)
		if err != nil {
			return action.OutcomeValue, err
		}
		test := func() (bool, error) {
			var c cell.Cell
			if err := run(&c, condArr, f); err != nil {
				return false, err
			}
			return cell.IsTruthy(&c), nil
		}
		var result cell.Cell
		if negate {
			result, err = ctrl.WhileNot(test, bodyRunner(run, body, f))
		} else {
			result, err = ctrl.While(test, bodyRunner(run, body, f))
		}
		return loopOutcome(f, result, err)
	}))
}

// buildUntilNative builds `until body` (negate: `until-not body`), the
// post-condition loops driven by the body's own result.
func buildUntilNative(tbl *sym.Table, run action.EvalToEnd, negate bool) *action.Action {
	name := "until"
	if negate {
		name = "until-not"
	}
	pl := buildParamList(tbl, specOf(wordCell(cell.KindWord, tbl.Intern("body"))))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		body, err := blockArg(f, 1, "body", name)
		if err != nil {
			return action.OutcomeValue, err
		}
		var result cell.Cell
		if negate {
			result, err = ctrl.UntilNot(bodyRunner(run, body, f))
		} else {
			result, err = ctrl.Until(bodyRunner(run, body, f))
		}
		return loopOutcome(f, result, err)
	}))
}

// buildCycleNative builds `cycle body`, the only loop that ends via STOP.
func buildCycleNative(tbl *sym.Table, run action.EvalToEnd) *action.Action {
	pl := buildParamList(tbl, specOf(wordCell(cell.KindWord, tbl.Intern("body"))))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		body, err := blockArg(f, 1, "body", "cycle")
		if err != nil {
			return action.OutcomeValue, err
		}
		result, err := ctrl.Cycle(bodyRunner(run, body, f))
		return loopOutcome(f, result, err)
	}))
}

// dataLoopSetup is the shared front half of map-each/every/remove-each:
// resolve the loop word, data series, and bound body, and take the
// iteration hold on data.
func dataLoopSetup(f *frame.Frame, native string) (next ctrl.Next, body ctrl.RunBody, dataArr *ser.Array, release func(), idx *int, err error) {
	dataArr, err = blockArg(f, 2, "data", native)
	if err != nil {
		return
	}
	s, ctx, bodyBlock, lerr := loopVar(f, 1, 3, native)
	if lerr != nil {
		err = lerr
		return
	}
	run := EvalToEnd
	i := -1
	idx = &i
	next = func() (bool, error) {
		if i+1 >= dataArr.Len() {
			return false, nil
		}
		i++
		ctx.SetWord(s, *dataArr.At(i))
		return true, nil
	}
	body = bodyRunner(run, bodyBlock, f)
	release = dataArr.Hold()
	return
}

// buildMapEachNative builds `map-each 'word data body`, collecting each
// iteration's result into a fresh block.
func buildMapEachNative(tbl *sym.Table) *action.Action {
	pl := buildParamList(tbl, specOf(
		wordCell(cell.KindGetWord, tbl.Intern("word")),
		wordCell(cell.KindWord, tbl.Intern("data")),
		wordCell(cell.KindWord, tbl.Intern("body")),
	))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		next, body, _, release, _, err := dataLoopSetup(f, "map-each")
		if err != nil {
			return action.OutcomeValue, err
		}
		defer release()
		result, err := ctrl.MapEach(next, body, func(collected []cell.Cell) cell.Cell {
			out := ser.NewArray(len(collected), ser.FlavorPlain)
			for _, c := range collected {
				out.Append(c)
			}
			var v cell.Cell
			cell.InitArray(&v, cell.KindBlock, out)
			return v
		})
		return loopOutcome(f, result, err)
	}))
}

// buildEveryNative builds `every 'word data body`.
func buildEveryNative(tbl *sym.Table) *action.Action {
	pl := buildParamList(tbl, specOf(
		wordCell(cell.KindGetWord, tbl.Intern("word")),
		wordCell(cell.KindWord, tbl.Intern("data")),
		wordCell(cell.KindWord, tbl.Intern("body")),
	))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		next, body, _, release, _, err := dataLoopSetup(f, "every")
		if err != nil {
			return action.OutcomeValue, err
		}
		defer release()
		result, err := ctrl.Every(next, body)
		return loopOutcome(f, result, err)
	}))
}

// buildRemoveEachNative builds `remove-each 'word data body`: elements whose
// body result is truthy are excised from data once iteration (and its hold)
// has finished; the result is the removal count.
func buildRemoveEachNative(tbl *sym.Table) *action.Action {
	pl := buildParamList(tbl, specOf(
		wordCell(cell.KindGetWord, tbl.Intern("word")),
		wordCell(cell.KindWord, tbl.Intern("data")),
		wordCell(cell.KindWord, tbl.Intern("body")),
	))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		next, body, dataArr, release, idx, err := dataLoopSetup(f, "remove-each")
		if err != nil {
			return action.OutcomeValue, err
		}
		removed := map[int]bool{}
		result, err := ctrl.RemoveEach(next, body, func() error {
			removed[*idx] = true
			return nil
		})
		release()
		if err != nil {
			return loopOutcome(f, cell.Cell{}, err)
		}

		// Compaction happens only after the hold is released; the loop
		// itself never resizes the series it is walking.
		w := 0
		for i := 0; i < dataArr.Len(); i++ {
			if removed[i] {
				continue
			}
			if w != i {
				*dataArr.At(w) = *dataArr.At(i)
			}
			w++
		}
		if err := dataArr.Truncate(w); err != nil {
			return action.OutcomeValue, err
		}
		return loopOutcome(f, result, nil)
	}))
}
