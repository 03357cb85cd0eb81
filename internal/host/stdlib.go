// Stdlib registers the small set of natives and constructors this module
// exercises: arithmetic, comparison, a conditional, the loop family, the
// throw/catch and other control natives, series and value helpers, and the
// action-composition constructors (function, adapt, hijack, specialize,
// chain, enclose). This is not the reference dialect's library,
// only enough of it to give every dispatcher layer of internal/action a
// concrete caller.
package host

import (
	"corelang/internal/action"
	"corelang/internal/cell"
	"corelang/internal/ctrl"
	"corelang/internal/eval"
	"corelang/internal/frame"
	"corelang/internal/paramspec"
	"corelang/internal/rterr"
	"corelang/internal/ser"
	"corelang/internal/sym"
)

// stdlibNames lists every word RegisterStdlib binds into the root context,
// in registration order. Init needs the full name set up front to size the
// root context's keylist.
var stdlibNames = []string{
	"add", "+", "subtract", "-", "multiply", "*", "=",
	"if", "func", "function", "for-each", "break", "continue", "stop",
	"hijack", "adapt", "copy", "append", "<-", "specialize", "chain", "enclose", "do",
	"loop", "repeat", "for", "for-skip", "while", "while-not",
	"until", "until-not", "cycle", "map-each", "every", "remove-each",
	"throw", "catch", "trap", "rescue", "fail",
	"comment", "elide", "reeval",
	"mold", "form", "print", "probe", "length-of", "first",
	"integer?", "block?", "word?", "action?", "null?", "any-word?",
}

// globalKey is the Descriptor a root-context (or loop-variable) keylist
// entry carries: just the symbol, since these contexts declare no type
// constraints of their own.
type globalKey struct{ sym sym.Symbol }

func (g *globalKey) DescriptorSymbol() sym.Symbol { return g.sym }

// buildRootKeylist interns every stdlib name and returns a keylist array
// (rootkey at slot 0, one globalKey per name after) sized to hold them.
func buildRootKeylist(tbl *sym.Table) *ser.Array {
	kl := ser.NewArray(len(stdlibNames)+1, ser.FlavorKeylist)
	var rootkey cell.Cell
	cell.InitBlank(&rootkey) // unreadable for a non-FRAME context.2
	kl.Append(rootkey)
	for _, name := range stdlibNames {
		s := tbl.Intern(name)
		var kc cell.Cell
		cell.InitObject(&kc, cell.KindTypeset, &globalKey{sym: s})
		kl.Append(kc)
	}
	return kl
}

// oneVarContext builds a single-slot object context keyed by sym, the
// binding target for-each rewrites its loop variable's word cells into on
// each call for per-iteration variable binding.
func oneVarContext(s sym.Symbol) *ser.Context {
	kl := ser.NewArray(2, ser.FlavorKeylist)
	var rootkey cell.Cell
	cell.InitBlank(&rootkey)
	kl.Append(rootkey)
	var kc cell.Cell
	cell.InitObject(&kc, cell.KindTypeset, &globalKey{sym: s})
	kl.Append(kc)
	return ser.NewContext(cell.KindObject, kl)
}

// bindLoopVar returns a shallow copy of arr with every word-family cell
// named sym rebound absolutely to ctx, recursing into nested blocks/groups.
// Any other binding the block's words already carry is left untouched.
func bindLoopVar(arr *ser.Array, s sym.Symbol, ctx *ser.Context) *ser.Array {
	out := ser.NewArray(arr.Len(), arr.Flavor())
	for i := 0; i < arr.Len(); i++ {
		c := *arr.At(i)
		switch c.Kind() {
		case cell.KindWord, cell.KindSetWord, cell.KindGetWord, cell.KindLitWord:
			if c.Symbol() == s {
				c.SetBinding(cell.Binding{Kind: cell.BoundAbsolute, Context: ctx})
			}
		case cell.KindBlock, cell.KindGroup, cell.KindPath, cell.KindSetPath, cell.KindGetPath:
			if nested, ok := c.Payload().(*ser.Array); ok {
				rebound := bindLoopVar(nested, s, ctx)
				cell.InitArray(&c, c.Kind(), rebound)
			}
		}
		out.Append(c)
	}
	return out
}

func wordCell(kind cell.Kind, s sym.Symbol) cell.Cell {
	var c cell.Cell
	cell.InitWord(&c, kind, s)
	return c
}

func specOf(cells ...cell.Cell) *ser.Array {
	arr := ser.NewArray(len(cells), ser.FlavorPlain)
	for _, c := range cells {
		arr.Append(c)
	}
	return arr
}

func buildParamList(tbl *sym.Table, spec *ser.Array) *paramspec.ParamList {
	pl, err := paramspec.Build(tbl, spec, true)
	if err != nil {
		// Every stdlib spec block is a fixed literal this package controls;
		// a failure here is a programming error in RegisterStdlib itself,
		// not a runtime condition a caller could ever trigger.
		panic(err)
	}
	return pl
}

// buildBinaryMathNative builds a two-argument integer native like add or
// multiply, grounded on internal/action's native dispatcher row.
func buildBinaryMathNative(tbl *sym.Table, op func(a, b int64) int64) *action.Action {
	aSym, bSym := tbl.Intern("a"), tbl.Intern("b")
	pl := buildParamList(tbl, specOf(wordCell(cell.KindWord, aSym), wordCell(cell.KindWord, bSym)))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		av, bv := f.Ctx.VarAt(1), f.Ctx.VarAt(2)
		if av.Kind() != cell.KindInteger || bv.Kind() != cell.KindInteger {
			return action.OutcomeValue, rterr.ArgumentType("a", "arithmetic")
		}
		var out cell.Cell
		cell.InitInteger(&out, op(av.Integer(), bv.Integer()))
		cell.Move(f.Out, &out)
		return action.OutcomeValue, nil
	}))
}

// buildEqualsNative builds the `=` comparison native.
func buildEqualsNative(tbl *sym.Table) *action.Action {
	aSym, bSym := tbl.Intern("a"), tbl.Intern("b")
	pl := buildParamList(tbl, specOf(wordCell(cell.KindWord, aSym), wordCell(cell.KindWord, bSym)))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		var out cell.Cell
		cell.InitLogic(&out, cell.Equal(f.Ctx.VarAt(1), f.Ctx.VarAt(2)))
		cell.Move(f.Out, &out)
		return action.OutcomeValue, nil
	}))
}

// buildIfNative builds the `if condition body` native: body arrives as an
// unevaluated block (blocks are inert) that the native itself runs through
// run only when condition is truthy.
func buildIfNative(tbl *sym.Table, run action.EvalToEnd) *action.Action {
	condSym, bodySym := tbl.Intern("condition"), tbl.Intern("body")
	pl := buildParamList(tbl, specOf(wordCell(cell.KindWord, condSym), wordCell(cell.KindWord, bodySym)))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		cond := f.Ctx.VarAt(1)
		if !cell.IsTruthy(cond) {
			var v cell.Cell
			cell.InitNull(&v)
			cell.Move(f.Out, &v)
			return action.OutcomeValue, nil
		}
		arr, ok := f.Ctx.VarAt(2).Payload().(*ser.Array)
		if !ok {
			return action.OutcomeValue, rterr.ArgumentType("body", "if")
		}
		if err := run(f.Out, arr, f); err != nil {
			if th, isThrown := ctrl.AsThrown(err); isThrown {
				return action.OutcomeThrown, th
			}
			return action.OutcomeValue, err
		}
		return action.OutcomeValue, nil
	}))
}

// buildForEachNative builds `for-each var data body`: var hard-quotes the
// loop variable's own word, data and body
// are plain arrays. Only a single loop variable is supported, a
// simplification of multi-variable for-each.
func buildForEachNative(tbl *sym.Table, run action.EvalToEnd) *action.Action {
	varSym, dataSym, bodySym := tbl.Intern("var"), tbl.Intern("data"), tbl.Intern("body")
	pl := buildParamList(tbl, specOf(
		wordCell(cell.KindGetWord, varSym),
		wordCell(cell.KindWord, dataSym),
		wordCell(cell.KindWord, bodySym),
	))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		varWord := f.Ctx.VarAt(1)
		if varWord.Kind() != cell.KindWord {
			return action.OutcomeValue, rterr.ArgumentType("var", "for-each")
		}
		dataArr, ok := f.Ctx.VarAt(2).Payload().(*ser.Array)
		if !ok {
			return action.OutcomeValue, rterr.ArgumentType("data", "for-each")
		}
		bodyArr, ok := f.Ctx.VarAt(3).Payload().(*ser.Array)
		if !ok {
			return action.OutcomeValue, rterr.ArgumentType("body", "for-each")
		}

		loopSym := varWord.Symbol()
		loopCtx := oneVarContext(loopSym)
		boundBody := bindLoopVar(bodyArr, loopSym, loopCtx)

		release := dataArr.Hold()
		defer release()

		i := 0
		result, err := ctrl.ForEach(
			func() (bool, error) {
				if i >= dataArr.Len() {
					return false, nil
				}
				loopCtx.SetWord(loopSym, *dataArr.At(i))
				i++
				return true, nil
			},
			func() (cell.Cell, error) {
				var out cell.Cell
				if err := run(&out, boundBody, f); err != nil {
					if th, isThrown := ctrl.AsThrown(err); isThrown {
						return cell.Cell{}, th
					}
					return cell.Cell{}, err
				}
				return out, nil
			},
		)
		if err != nil {
			if th, isThrown := ctrl.AsThrown(err); isThrown {
				return action.OutcomeThrown, th
			}
			return action.OutcomeValue, err
		}
		cell.Move(f.Out, &result)
		return action.OutcomeValue, nil
	}))
}

func buildBreakNative(tbl *sym.Table) *action.Action {
	pl := buildParamList(tbl, specOf())
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		return action.OutcomeThrown, ctrl.NewBreak()
	}))
}

func buildContinueNative(tbl *sym.Table) *action.Action {
	pl := buildParamList(tbl, specOf())
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		var v cell.Cell
		cell.InitVoid(&v)
		return action.OutcomeThrown, ctrl.NewContinue(v)
	}))
}

func buildStopNative(tbl *sym.Table) *action.Action {
	valSym := tbl.Intern("value")
	pl := buildParamList(tbl, specOf(wordCell(cell.KindWord, valSym)))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		return action.OutcomeThrown, ctrl.NewStop(*f.Ctx.VarAt(1))
	}))
}

// buildHijackNative builds `hijack victim hijacker`. Call sites pass both
// arguments as get-words (`hijack :add :replacement`), so by the time
// argument fulfillment runs, each has already self-evaluated to the action
// value hijack receives as a plain (class Normal) argument.
func buildHijackNative(tbl *sym.Table, invoke action.Invoke) *action.Action {
	victimSym, hijackerSym := tbl.Intern("victim"), tbl.Intern("hijacker")
	pl := buildParamList(tbl, specOf(wordCell(cell.KindWord, victimSym), wordCell(cell.KindWord, hijackerSym)))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		victim := action.FromCell(f.Ctx.VarAt(1))
		hijacker := action.FromCell(f.Ctx.VarAt(2))
		if victim == nil || hijacker == nil {
			return action.OutcomeValue, rterr.ArgumentType("victim", "hijack")
		}
		action.Hijack(victim, hijacker, invoke)
		var v cell.Cell
		cell.InitVoid(&v)
		cell.Move(f.Out, &v)
		return action.OutcomeValue, nil
	}))
}

// MakeAdapt implements the `adapt` constructor: a fresh action sharing
// adaptee's interface but running prelude first. The paramlist array is copied, mirroring internal/action/
// specialize.go's Specialize, so wiring the new archetype cell at slot 0
// does not clobber adaptee's own.
func MakeAdapt(h *Host, adaptee *action.Action, preludeArr *ser.Array) *action.Action {
	src := adaptee.Paramlist()
	fresh := ser.NewArray(src.Len(), ser.FlavorParamlist)
	for i := 0; i < src.Len(); i++ {
		fresh.Append(*src.At(i))
	}
	pl := &paramspec.ParamList{Array: fresh, Meta: adaptee.ParamList().Meta}
	act := action.New(pl, ser.NewArray(0, ser.FlavorDetails), nil)

	bound := bindBlock(h.Symbols, preludeArr, pl, act.Identity(), h.Root)
	act.SetDispatch(action.NewAdapter(bound, adaptee, EvalToEnd))
	return act
}

// buildAdaptNative builds `adapt adaptee prelude`; adaptee arrives the same
// self-evaluated-get-word way hijack's arguments do.
func buildAdaptNative(tbl *sym.Table, h *Host) *action.Action {
	adapteeSym, preludeSym := tbl.Intern("adaptee"), tbl.Intern("prelude")
	pl := buildParamList(tbl, specOf(wordCell(cell.KindWord, adapteeSym), wordCell(cell.KindWord, preludeSym)))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		adaptee := action.FromCell(f.Ctx.VarAt(1))
		preludeArr, ok := f.Ctx.VarAt(2).Payload().(*ser.Array)
		if adaptee == nil || !ok {
			return action.OutcomeValue, rterr.ArgumentType("adaptee", "adapt")
		}
		act := MakeAdapt(h, adaptee, preludeArr)
		v := action.Cell(act)
		cell.Move(f.Out, &v)
		return action.OutcomeValue, nil
	}))
}

// buildFuncNative builds both `func` and `function` (this module draws no
// distinction between them, unlike the reference dialect's locals-gathering
// difference): spec and body arrive as unevaluated blocks, per MakeFunction.
func buildFuncNative(tbl *sym.Table, h *Host) *action.Action {
	specSym, bodySym := tbl.Intern("spec"), tbl.Intern("body")
	pl := buildParamList(tbl, specOf(wordCell(cell.KindWord, specSym), wordCell(cell.KindWord, bodySym)))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		specArr, ok1 := f.Ctx.VarAt(1).Payload().(*ser.Array)
		bodyArr, ok2 := f.Ctx.VarAt(2).Payload().(*ser.Array)
		if !ok1 || !ok2 {
			return action.OutcomeValue, rterr.ArgumentType("spec", "function")
		}
		act, err := MakeFunction(h, specArr, bodyArr)
		if err != nil {
			return action.OutcomeValue, err
		}
		v := action.Cell(act)
		cell.Move(f.Out, &v)
		return action.OutcomeValue, nil
	}))
}

func refinementCell(s sym.Symbol) cell.Cell {
	var c cell.Cell
	cell.InitWord(&c, cell.KindRefinement, s)
	return c
}

// buildCopyNative builds `copy series`: a shallow duplicate of series' own
// array, exercised by `copy [a]` in the append/copy refinement-ordering
// example, the same array-duplication shape internal/action/specialize.go
// uses for a fresh paramlist array.
func buildCopyNative(tbl *sym.Table) *action.Action {
	seriesSym := tbl.Intern("series")
	pl := buildParamList(tbl, specOf(wordCell(cell.KindWord, seriesSym)))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		src := f.Ctx.VarAt(1)
		arr, ok := src.Payload().(*ser.Array)
		if !ok {
			return action.OutcomeValue, rterr.ArgumentType("series", "copy")
		}
		fresh := ser.NewArray(arr.Len(), arr.Flavor())
		for i := 0; i < arr.Len(); i++ {
			fresh.Append(*arr.At(i))
		}
		var out cell.Cell
		cell.InitArray(&out, src.Kind(), fresh)
		cell.Move(f.Out, &out)
		return action.OutcomeValue, nil
	}))
}

// buildAppendNative builds `append series value /dup count /only`, exercised
// by the refinement-ordering program `append/dup/only copy [a] [b] 2` =>
// `[a [b] [b]]`. /dup repeats value
// count times (default once); /only always inserts value as a single
// element even when it is itself a block, instead of splicing its contents.
func buildAppendNative(tbl *sym.Table) *action.Action {
	seriesSym, valueSym := tbl.Intern("series"), tbl.Intern("value")
	dupSym, countSym, onlySym := tbl.Intern("dup"), tbl.Intern("count"), tbl.Intern("only")
	pl := buildParamList(tbl, specOf(
		wordCell(cell.KindWord, seriesSym),
		wordCell(cell.KindWord, valueSym),
		refinementCell(dupSym),
		wordCell(cell.KindWord, countSym),
		refinementCell(onlySym),
	))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		seriesVal := f.Ctx.VarAt(1)
		arr, ok := seriesVal.Payload().(*ser.Array)
		if !ok {
			return action.OutcomeValue, rterr.ArgumentType("series", "append")
		}
		value := *f.Ctx.VarAt(2)

		count := int64(1)
		if f.Ctx.VarAt(3).Kind() == cell.KindInteger {
			if cv := f.Ctx.VarAt(4); cv.Kind() == cell.KindInteger {
				count = cv.Integer()
			}
		}
		only := f.Ctx.VarAt(5).Kind() == cell.KindInteger

		valueArr, isArray := value.Payload().(*ser.Array)
		splice := isArray && !only && value.Kind() == cell.KindBlock

		fresh := ser.NewArray(arr.Len()+int(count), arr.Flavor())
		for i := 0; i < arr.Len(); i++ {
			fresh.Append(*arr.At(i))
		}
		for n := int64(0); n < count; n++ {
			if splice {
				for i := 0; i < valueArr.Len(); i++ {
					fresh.Append(*valueArr.At(i))
				}
			} else {
				fresh.Append(value)
			}
		}
		var out cell.Cell
		cell.InitArray(&out, seriesVal.Kind(), fresh)
		cell.Move(f.Out, &out)
		return action.OutcomeValue, nil
	}))
}

// buildShoveNative wraps eval.Shove as the `<-` enfix native. Its single declared parameter
// ("left") only exists so the ordinary enfix mechanism presets it with the
// already-produced left-hand value; Shove itself reads the right-hand side
// directly off the feed.
func buildShoveNative(tbl *sym.Table) *action.Action {
	leftSym := tbl.Intern("left")
	pl := buildParamList(tbl, specOf(wordCell(cell.KindWord, leftSym)))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(eval.Shove))
}

// buildSpecializeNative builds `specialize target with`: with is an
// unevaluated block of set-word assignments (e.g. `[dup: 2]`) run against a
// fresh exemplar context sharing target's paramlist as its keylist, using
// internal/action/specialize.go's Specialize. `specialize :append [dup: 2]`
// preserves argument order.
func buildSpecializeNative(tbl *sym.Table) *action.Action {
	targetSym, withSym := tbl.Intern("target"), tbl.Intern("with")
	pl := buildParamList(tbl, specOf(wordCell(cell.KindWord, targetSym), wordCell(cell.KindWord, withSym)))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		target := action.FromCell(f.Ctx.VarAt(1))
		withArr, ok := f.Ctx.VarAt(2).Payload().(*ser.Array)
		if target == nil || !ok {
			return action.OutcomeValue, rterr.ArgumentType("target", "specialize")
		}
		var provErr error
		act := action.Specialize(target, func(ctx *ser.Context) {
			bound := bindToContext(withArr, ctx)
			var scratch cell.Cell
			if err := eval.EvalArrayToEnd(&scratch, bound, f); err != nil {
				provErr = err
			}
		})
		if provErr != nil {
			return action.OutcomeValue, provErr
		}
		v := action.Cell(act)
		cell.Move(f.Out, &v)
		return action.OutcomeValue, nil
	}))
}

// buildChainNative builds `chain pipeline`: pipeline is a block of already-
// evaluated action values (this module has no REDUCE of its own, so callers
// that want a dynamic pipeline build the block with actual action cells
// already in place, rather than get-words CHAIN would normally reduce
// itself). The resulting action borrows its first stage's paramlist, per
// internal/action's chainer row.
func buildChainNative(tbl *sym.Table, invoke action.Invoke) *action.Action {
	pipelineSym := tbl.Intern("pipeline")
	pl := buildParamList(tbl, specOf(wordCell(cell.KindWord, pipelineSym)))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		arr, ok := f.Ctx.VarAt(1).Payload().(*ser.Array)
		if !ok || arr.Len() == 0 {
			return action.OutcomeValue, rterr.ArgumentType("pipeline", "chain")
		}
		stages := make([]*action.Action, 0, arr.Len())
		for i := 0; i < arr.Len(); i++ {
			a := action.FromCell(arr.At(i))
			if a == nil {
				return action.OutcomeValue, rterr.ArgumentType("pipeline", "chain")
			}
			stages = append(stages, a)
		}
		first := stages[0]
		fresh := ser.NewArray(first.Paramlist().Len(), ser.FlavorParamlist)
		for i := 0; i < first.Paramlist().Len(); i++ {
			fresh.Append(*first.Paramlist().At(i))
		}
		newPL := &paramspec.ParamList{Array: fresh, Meta: first.ParamList().Meta}
		act := action.New(newPL, ser.NewArray(0, ser.FlavorDetails), nil)
		act.SetDispatch(action.NewChainer(stages, invoke))
		v := action.Cell(act)
		cell.Move(f.Out, &v)
		return action.OutcomeValue, nil
	}))
}

// buildEncloseNative builds `enclose inner outer`: outer receives a FRAME!
// value carrying inner's already-fulfilled arguments and decides itself
// when (and whether) to invoke it, via `do`, per internal/action's enclose
// row and internal/action/dispatch.go's NewEnclose. The resulting action
// borrows inner's own paramlist, since it is the one callers actually see.
func buildEncloseNative(tbl *sym.Table, invoke action.Invoke) *action.Action {
	innerSym, outerSym := tbl.Intern("inner"), tbl.Intern("outer")
	pl := buildParamList(tbl, specOf(wordCell(cell.KindWord, innerSym), wordCell(cell.KindWord, outerSym)))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		inner := action.FromCell(f.Ctx.VarAt(1))
		outer := action.FromCell(f.Ctx.VarAt(2))
		if inner == nil || outer == nil {
			return action.OutcomeValue, rterr.ArgumentType("inner", "enclose")
		}
		src := inner.Paramlist()
		fresh := ser.NewArray(src.Len(), ser.FlavorParamlist)
		for i := 0; i < src.Len(); i++ {
			fresh.Append(*src.At(i))
		}
		newPL := &paramspec.ParamList{Array: fresh, Meta: inner.ParamList().Meta}
		act := action.New(newPL, ser.NewArray(0, ser.FlavorDetails), nil)
		enclosed := action.NewEnclose(outer, invoke)
		// NewEnclose reifies whatever phase the dispatching frame already
		// carries; a fresh frame built for this composite action would
		// otherwise reify itself (the enclose wrapper) instead of inner, so
		// `do` on that frame would just re-run the wrapper. Stamping inner
		// onto the frame first is what lets `do state` inside outer's body
		// reach inner's own dispatcher.
		act.SetDispatch(func(f *frame.Frame) (action.Outcome, error) {
			f.Phase = inner
			return enclosed(f)
		})
		v := action.Cell(act)
		cell.Move(f.Out, &v)
		return action.OutcomeValue, nil
	}))
}

// buildDoNative builds `do value`, the in-language form of
// evaluate(): most usefully, `do` on a reified FRAME! value is how an
// enclose's outer action invokes the frame it was handed.
func buildDoNative(tbl *sym.Table, h *Host) *action.Action {
	valueSym := tbl.Intern("value")
	pl := buildParamList(tbl, specOf(wordCell(cell.KindWord, valueSym)))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		v := *f.Ctx.VarAt(1)
		out, err := h.Evaluate(v, nil, 0)
		if err != nil {
			if th, isThrown := ctrl.AsThrown(err); isThrown {
				return action.OutcomeThrown, th
			}
			return action.OutcomeValue, err
		}
		cell.Move(f.Out, &out)
		return action.OutcomeValue, nil
	}))
}

func bindGlobal(h *Host, name string, v cell.Cell) {
	s, ok := h.Symbols.Lookup(name)
	if !ok {
		panic("host: " + name + " missing from stdlibNames")
	}
	h.Root.SetWord(s, v)
}

func bindGlobalEnfix(h *Host, name string, v cell.Cell) {
	v.SetFlag(cell.FlagEnfixed)
	bindGlobal(h, name, v)
}

// RegisterStdlib wires every native and constructor above into h.Root,
// called once from Init.
func RegisterStdlib(h *Host) {
	tbl := h.Symbols

	addAct := buildBinaryMathNative(tbl, func(a, b int64) int64 { return a + b })
	subAct := buildBinaryMathNative(tbl, func(a, b int64) int64 { return a - b })
	mulAct := buildBinaryMathNative(tbl, func(a, b int64) int64 { return a * b })
	eqAct := buildEqualsNative(tbl)
	ifAct := buildIfNative(tbl, EvalToEnd)
	forEachAct := buildForEachNative(tbl, EvalToEnd)
	breakAct := buildBreakNative(tbl)
	continueAct := buildContinueNative(tbl)
	stopAct := buildStopNative(tbl)
	hijackAct := buildHijackNative(tbl, h.Invoke())
	adaptAct := buildAdaptNative(tbl, h)
	funcAct := buildFuncNative(tbl, h)
	copyAct := buildCopyNative(tbl)
	appendAct := buildAppendNative(tbl)
	shoveAct := buildShoveNative(tbl)
	specializeAct := buildSpecializeNative(tbl)
	chainAct := buildChainNative(tbl, h.Invoke())
	encloseAct := buildEncloseNative(tbl, h.Invoke())
	doAct := buildDoNative(tbl, h)

	bindGlobal(h, "add", action.Cell(addAct))
	bindGlobalEnfix(h, "+", action.Cell(addAct))
	bindGlobal(h, "subtract", action.Cell(subAct))
	bindGlobalEnfix(h, "-", action.Cell(subAct))
	bindGlobal(h, "multiply", action.Cell(mulAct))
	bindGlobalEnfix(h, "*", action.Cell(mulAct))
	bindGlobalEnfix(h, "=", action.Cell(eqAct))
	bindGlobal(h, "if", action.Cell(ifAct))
	bindGlobal(h, "for-each", action.Cell(forEachAct))
	bindGlobal(h, "break", action.Cell(breakAct))
	bindGlobal(h, "continue", action.Cell(continueAct))
	bindGlobal(h, "stop", action.Cell(stopAct))
	bindGlobal(h, "hijack", action.Cell(hijackAct))
	bindGlobal(h, "adapt", action.Cell(adaptAct))
	bindGlobal(h, "func", action.Cell(funcAct))
	bindGlobal(h, "function", action.Cell(funcAct))
	bindGlobal(h, "copy", action.Cell(copyAct))
	bindGlobal(h, "append", action.Cell(appendAct))
	bindGlobalEnfix(h, "<-", action.Cell(shoveAct))
	bindGlobal(h, "specialize", action.Cell(specializeAct))
	bindGlobal(h, "chain", action.Cell(chainAct))
	bindGlobal(h, "enclose", action.Cell(encloseAct))
	bindGlobal(h, "do", action.Cell(doAct))

	bindGlobal(h, "loop", action.Cell(buildLoopNative(tbl, EvalToEnd)))
	bindGlobal(h, "repeat", action.Cell(buildRepeatNative(tbl, EvalToEnd)))
	bindGlobal(h, "for", action.Cell(buildForNative(tbl, EvalToEnd)))
	bindGlobal(h, "for-skip", action.Cell(buildForSkipNative(tbl, EvalToEnd)))
	bindGlobal(h, "while", action.Cell(buildWhileNative(tbl, EvalToEnd, false)))
	bindGlobal(h, "while-not", action.Cell(buildWhileNative(tbl, EvalToEnd, true)))
	bindGlobal(h, "until", action.Cell(buildUntilNative(tbl, EvalToEnd, false)))
	bindGlobal(h, "until-not", action.Cell(buildUntilNative(tbl, EvalToEnd, true)))
	bindGlobal(h, "cycle", action.Cell(buildCycleNative(tbl, EvalToEnd)))
	bindGlobal(h, "map-each", action.Cell(buildMapEachNative(tbl)))
	bindGlobal(h, "every", action.Cell(buildEveryNative(tbl)))
	bindGlobal(h, "remove-each", action.Cell(buildRemoveEachNative(tbl)))

	bindGlobal(h, "throw", action.Cell(buildThrowNative(tbl)))
	bindGlobal(h, "catch", action.Cell(buildCatchNative(tbl, EvalToEnd)))
	bindGlobal(h, "trap", action.Cell(buildTrapNative(tbl, EvalToEnd)))
	bindGlobal(h, "rescue", action.Cell(buildRescueNative(tbl, EvalToEnd)))
	bindGlobal(h, "fail", action.Cell(buildFailNative(h)))

	bindGlobal(h, "comment", action.Cell(buildCommentNative(tbl)))
	bindGlobal(h, "elide", action.Cell(buildElideNative(tbl)))
	bindGlobal(h, "reeval", action.Cell(buildReevalNative(tbl)))

	bindGlobal(h, "mold", action.Cell(buildMoldNative(h)))
	bindGlobal(h, "form", action.Cell(buildFormNative(h)))
	bindGlobal(h, "print", action.Cell(buildPrintNative(h)))
	bindGlobal(h, "probe", action.Cell(buildProbeNative(h)))
	bindGlobal(h, "length-of", action.Cell(buildLengthOfNative(tbl)))
	bindGlobal(h, "first", action.Cell(buildFirstNative(tbl)))

	bindGlobal(h, "integer?", action.Cell(buildDatatypeCheckNative(tbl, cell.KindInteger, false)))
	bindGlobal(h, "block?", action.Cell(buildDatatypeCheckNative(tbl, cell.KindBlock, false)))
	bindGlobal(h, "word?", action.Cell(buildDatatypeCheckNative(tbl, cell.KindWord, false)))
	bindGlobal(h, "action?", action.Cell(buildDatatypeCheckNative(tbl, cell.KindAction, false)))
	bindGlobal(h, "null?", action.Cell(buildDatatypeCheckNative(tbl, cell.KindNull, true)))
	bindGlobal(h, "any-word?", action.Cell(buildTypesetCheckNative(tbl, anyWordBits())))
}
