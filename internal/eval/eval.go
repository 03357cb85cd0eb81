// Package eval implements the single-step evaluator: per-kind step
// behavior, prefix and enfix action invocation, refinement ordering via
// the shared data stack, and thrown-value propagation.
//
// Grounded on vmregister/vm.go's interpreter loop (a switch on the current
// bytecode op, with CALL pushing a CallFrame and looping until it returns)
// generalized from a fixed bytecode instruction set to a per-cell-kind step
// contract, and from a single flat call stack to the frame package's
// Prior-linked one so relative word binding can walk outward from any
// nested evaluation.
package eval

import (
	"fmt"

	"corelang/internal/action"
	"corelang/internal/cell"
	"corelang/internal/ctrl"
	"corelang/internal/frame"
	"corelang/internal/paramspec"
	"corelang/internal/rterr"
	"corelang/internal/ser"
)

// StepResult is a single step's outcome.
type StepResult uint8

const (
	ResultValue StepResult = iota
	ResultEnd
	ResultThrown

	// ResultInvisible reports a step that ran for its side effects and left
	// out untouched (COMMENT, ELIDE, and any dispatcher reporting
	// OutcomeInvisible). "To-end" evaluation keeps the previous value as the
	// running result across such steps.
	ResultInvisible
)

// Step consumes zero or more items from f.Feed and either writes a value to
// out (StepResult Value), signals End, or returns a non-nil error — always
// a *ctrl.Thrown or an *rterr.Error — reported as StepResult Thrown.
//
// Step also folds in enfix dispatch: once a value has been
// produced, if the next feed item resolves to an enfixed action, that
// action is invoked with the just-produced value as its first argument,
// and this repeats until the feed no longer offers an enfix continuation.
func Step(out *cell.Cell, f *frame.Frame) (StepResult, error) {
	if f.Feed.AtEnd() {
		return ResultEnd, nil
	}
	res, err := stepOnce(out, f)
	if err != nil {
		return ResultThrown, err
	}
	if res != ResultValue {
		return res, nil
	}
	return enfixContinue(out, f)
}

// enfixContinue runs the enfix lookahead loop once a visible value is in
// out, repeatedly invoking any enfixed action the feed offers next with
// that value preset as its first argument.
func enfixContinue(out *cell.Cell, f *frame.Frame) (StepResult, error) {
	for {
		a, ok := enfixActionAt(f)
		if !ok {
			break
		}
		f.Feed.Next()
		lhs := *out
		res, err := runAction(out, f, a, f.Owner.Data.DSP(), &lhs)
		if err != nil {
			return ResultThrown, err
		}
		if res != ResultValue {
			break
		}
	}
	return ResultValue, nil
}

// stepValue steps f until a visible value (or end) is produced; invisible
// steps encountered while gathering a value run for their side effects and
// are skipped.
func stepValue(out *cell.Cell, f *frame.Frame) (StepResult, error) {
	for {
		res, err := Step(out, f)
		if err != nil || res != ResultInvisible {
			return res, err
		}
	}
}

// stepTightValue consumes the immediately-next value with no enfix
// lookahead: unlike stepValue it goes through stepOnce directly, so an
// enfixed action after the consumed value is left on the feed for the
// caller's own boundary to see. Invisible steps are still skipped.
func stepTightValue(out *cell.Cell, f *frame.Frame) (StepResult, error) {
	for {
		if f.Feed.AtEnd() {
			return ResultEnd, nil
		}
		res, err := stepOnce(out, f)
		if err != nil {
			return ResultThrown, err
		}
		if res != ResultInvisible {
			return res, nil
		}
	}
}

func stepOnce(out *cell.Cell, f *frame.Frame) (StepResult, error) {
	head := f.Feed.Peek()
	switch head.Kind() {
	case cell.KindWord:
		return stepWord(out, f)
	case cell.KindGetWord:
		return stepGetWord(out, f)
	case cell.KindLitWord:
		return stepLitWord(out, f)
	case cell.KindSetWord:
		return stepSetWord(out, f)
	case cell.KindPath:
		c := f.Feed.Next()
		return evalPath(out, f, c)
	case cell.KindSetPath:
		return stepSetPath(out, f)
	case cell.KindGroup:
		return stepGroup(out, f)
	case cell.KindAction:
		c := f.Feed.Next()
		return invokeValue(out, f, c)
	default:
		return stepInert(out, f)
	}
}

func stepInert(out *cell.Cell, f *frame.Frame) (StepResult, error) {
	c := f.Feed.Next()
	cp := *c
	cell.Move(out, &cp)
	out.SetFlag(cell.FlagUnevaluated)
	return ResultValue, nil
}

func stepWord(out *cell.Cell, f *frame.Frame) (StepResult, error) {
	c := f.Feed.Next()
	v, ok := lookupValue(c, f)
	if !ok {
		return ResultThrown, rterr.New(rterr.KindScript, "no-value", "word has no value")
	}
	if v.Kind() == cell.KindAction {
		return invokeValue(out, f, &v)
	}
	cell.Move(out, &v)
	return ResultValue, nil
}

func stepGetWord(out *cell.Cell, f *frame.Frame) (StepResult, error) {
	c := f.Feed.Next()
	v, ok := lookupValue(c, f)
	if !ok {
		return ResultThrown, rterr.New(rterr.KindScript, "no-value", "word has no value")
	}
	cell.Move(out, &v)
	return ResultValue, nil
}

func stepLitWord(out *cell.Cell, f *frame.Frame) (StepResult, error) {
	c := f.Feed.Next()
	var w cell.Cell
	cell.InitWord(&w, cell.KindWord, c.Symbol())
	w.SetBinding(c.Binding())
	cell.Move(out, &w)
	return ResultValue, nil
}

func stepSetWord(out *cell.Cell, f *frame.Frame) (StepResult, error) {
	c := f.Feed.Next()
	var tmp cell.Cell
	res, err := stepValue(&tmp, f)
	if err != nil {
		return ResultThrown, err
	}
	if res == ResultEnd {
		return ResultThrown, rterr.New(rterr.KindScript, "need-value", "set-word needs a following value")
	}
	if !assign(c, f, tmp) {
		return ResultThrown, rterr.New(rterr.KindScript, "no-word", "cannot set an unbound word")
	}
	cell.Move(out, &tmp)
	return ResultValue, nil
}

func stepSetPath(out *cell.Cell, f *frame.Frame) (StepResult, error) {
	c := f.Feed.Next()
	arr, _ := c.Payload().(*ser.Array)
	if arr == nil || arr.Len() < 2 {
		return ResultThrown, rterr.Internal("set-path requires at least two segments")
	}
	head := arr.At(0)
	v, ok := lookupValue(head, f)
	if !ok {
		return ResultThrown, rterr.New(rterr.KindScript, "no-value", "path head has no value")
	}
	ctx, ok := v.Payload().(*ser.Context)
	if !ok {
		return ResultThrown, rterr.Internal("set-path currently only writes into object-family contexts")
	}
	for i := 1; i < arr.Len()-1; i++ {
		seg := arr.At(i)
		nested, ok := ctx.GetWord(seg.Symbol())
		if !ok {
			return ResultThrown, rterr.New(rterr.KindScript, "no-value", "no such field")
		}
		ctx, ok = nested.Payload().(*ser.Context)
		if !ok {
			return ResultThrown, rterr.Internal("set-path intermediate segment is not a context")
		}
	}
	last := arr.At(arr.Len() - 1)
	var tmp cell.Cell
	res, err := stepValue(&tmp, f)
	if err != nil {
		return ResultThrown, err
	}
	if res == ResultEnd {
		return ResultThrown, rterr.New(rterr.KindScript, "need-value", "set-path needs a following value")
	}
	if !ctx.SetWord(last.Symbol(), tmp) {
		return ResultThrown, rterr.New(rterr.KindAccess, "protected", "cannot set path target")
	}
	cell.Move(out, &tmp)
	return ResultValue, nil
}

func stepGroup(out *cell.Cell, f *frame.Frame) (StepResult, error) {
	c := f.Feed.Next()
	arr, _ := c.Payload().(*ser.Array)
	if err := EvalArrayToEnd(out, arr, f); err != nil {
		return ResultThrown, err
	}
	return ResultValue, nil
}

// EvalArrayToEnd evaluates arr to completion against f's binding chain,
// leaving the last non-invisible result in out. Its signature matches
// action.EvalToEnd exactly, so it is handed directly to dispatcher
// constructors (package host wires this at action-construction time,
// letting package action invoke the evaluator without importing it).
func EvalArrayToEnd(out *cell.Cell, arr *ser.Array, f *frame.Frame) error {
	saved := f.Feed
	f.Feed = frame.NewFeed(arr)
	defer func() { f.Feed = saved }()

	var last cell.Cell
	wrote := false
	for {
		var v cell.Cell
		res, err := Step(&v, f)
		if err != nil {
			return err
		}
		if res == ResultEnd {
			break
		}
		if res == ResultInvisible {
			continue
		}
		last = v
		wrote = true
	}
	if wrote {
		cell.Move(out, &last)
	}
	return nil
}

// evalPath walks pathCell's segments: refinements encountered along the
// way are pushed on the data stack, and a terminal action cell is invoked
// consuming subsequent feed items as its arguments.
func evalPath(out *cell.Cell, f *frame.Frame, pathCell *cell.Cell) (StepResult, error) {
	arr, _ := pathCell.Payload().(*ser.Array)
	if arr == nil || arr.Len() == 0 {
		return ResultThrown, rterr.Internal("empty path")
	}
	head := arr.At(0)
	var cur cell.Cell
	if head.Kind() == cell.KindWord {
		v, ok := lookupValue(head, f)
		if !ok {
			return ResultThrown, rterr.New(rterr.KindScript, "no-value", "path head has no value")
		}
		cur = v
	} else {
		cur = *head
	}

	dsp0 := f.Owner.Data.DSP()
	i := 1
	for i < arr.Len() {
		seg := arr.At(i)
		switch {
		case cur.Kind() == cell.KindAction && seg.Kind() == cell.KindRefinement:
			f.Owner.Data.PushWord(seg.Symbol())
			i++
		case cur.Payload() != nil:
			if ctx, ok := cur.Payload().(*ser.Context); ok && seg.Kind() == cell.KindWord {
				v, ok := ctx.GetWord(seg.Symbol())
				if !ok {
					return ResultThrown, rterr.New(rterr.KindScript, "no-value", "no such field")
				}
				cur = v
				i++
				continue
			}
			return ResultThrown, rterr.Internal("path walk unsupported for this segment")
		default:
			return ResultThrown, rterr.Internal("path walk unsupported for this segment")
		}
	}

	if cur.Kind() == cell.KindAction {
		a := action.FromCell(&cur)
		if a == nil {
			f.Owner.Data.RestoreDSP(dsp0)
			return invokeReturnMarker(out, f, cur.Binding().Action)
		}
		return runAction(out, f, a, dsp0, nil)
	}
	f.Owner.Data.RestoreDSP(dsp0)
	cell.Move(out, &cur)
	return ResultValue, nil
}

// invokeValue invokes c as a prefix action, or, if c is a relatively-bound action cell carrying no payload,
// recognizes it as the definitional-return marker fulfillArgs installs in a
// paramlist's return slot.
func invokeValue(out *cell.Cell, f *frame.Frame, c *cell.Cell) (StepResult, error) {
	a := action.FromCell(c)
	if a == nil {
		b := c.Binding()
		if b.Kind == cell.BoundRelative {
			return invokeReturnMarker(out, f, b.Action)
		}
		return ResultThrown, rterr.Internal("action cell missing identity")
	}
	return runAction(out, f, a, f.Owner.Data.DSP(), nil)
}

func invokeReturnMarker(out *cell.Cell, f *frame.Frame, target cell.ActionID) (StepResult, error) {
	var payload cell.Cell
	res, err := stepValue(&payload, f)
	if err != nil {
		return ResultThrown, err
	}
	if res == ResultEnd {
		cell.InitNull(&payload)
	}
	return ResultThrown, ctrl.NewReturn(target, payload)
}

// enfixActionAt reports whether f's feed head is, or resolves to, an
// enfixed action value.
func enfixActionAt(f *frame.Frame) (*action.Action, bool) {
	if f.Feed.AtEnd() {
		return nil, false
	}
	head := f.Feed.Peek()
	if head.Kind() == cell.KindWord {
		v, ok := lookupValue(head, f)
		if ok && v.Kind() == cell.KindAction && v.GetFlag(cell.FlagEnfixed) {
			return action.FromCell(&v), true
		}
		return nil, false
	}
	if head.Kind() == cell.KindAction && head.GetFlag(cell.FlagEnfixed) {
		return action.FromCell(head), true
	}
	return nil, false
}

// lookupValue resolves c's binding to a value: an absolute binding reads
// straight from its context, a relative binding requires walking the
// current frame chain for one whose phase identity matches.
func lookupValue(c *cell.Cell, current *frame.Frame) (cell.Cell, bool) {
	b := c.Binding()
	switch b.Kind {
	case cell.BoundAbsolute:
		if b.Context == nil {
			return cell.Cell{}, false
		}
		return b.Context.GetWord(c.Symbol())
	case cell.BoundRelative:
		for fr := current; fr != nil; fr = fr.Prior {
			if fr.Phase != nil && fr.Phase.Identity() == b.Action {
				return fr.Ctx.GetWord(c.Symbol())
			}
		}
		return cell.Cell{}, false
	default:
		return cell.Cell{}, false
	}
}

func assign(c *cell.Cell, current *frame.Frame, v cell.Cell) bool {
	b := c.Binding()
	switch b.Kind {
	case cell.BoundAbsolute:
		if b.Context == nil {
			return false
		}
		return b.Context.SetWord(c.Symbol(), v)
	case cell.BoundRelative:
		for fr := current; fr != nil; fr = fr.Prior {
			if fr.Phase != nil && fr.Phase.Identity() == b.Action {
				return fr.Ctx.SetWord(c.Symbol(), v)
			}
		}
		return false
	default:
		return false
	}
}

// runAction is the shared core of prefix and enfix invocation: push a
// frame, fulfill its paramlist (optionally pre-seeding the first eligible
// slot from presetFirst, for enfix's already-evaluated left operand),
// dispatch, and honor any Redo request.
func runAction(out *cell.Cell, caller *frame.Frame, a *action.Action, dspOrig int, presetFirst *cell.Cell) (StepResult, error) {
	stack := caller.Owner
	fr := stack.Push(a, out, caller.Feed)
	fr.DSPOrig = dspOrig
	defer stack.Drop(fr)

	fulfill := true
	for {
		if fulfill {
			fr.State = frame.FulfillingArgs
			if err := fulfillArgs(fr, caller, a, presetFirst); err != nil {
				return ResultThrown, err
			}
			presetFirst = nil
		}
		fulfill = true

		fr.State = frame.Dispatching
		outcome, err := a.Dispatch()(fr)
		if err != nil {
			if caught, cerr := CatchOwnReturn(fr, a, err); caught {
				return ResultValue, cerr
			}
			return ResultThrown, err
		}

		switch fr.Redo {
		case frame.RedoChecked:
			// Restart argument fulfillment against the (possibly new) phase.
			// Slots already carrying the arg-marked-checked flag — everything
			// the previous fulfillment validated, plus whatever the
			// dispatcher (e.g. a specializer's exemplar copy) filled in — are
			// kept as-is; only the remaining slots gather from the feed.
			fr.Redo = frame.RedoNone
			na, ok := fr.Phase.(*action.Action)
			if !ok {
				return ResultThrown, rterr.Internal("redo requested without a phase action")
			}
			a = na
			continue
		case frame.RedoUnchecked:
			// Reset to Dispatching with arg-check skipped; the new phase's
			// own redo request (e.g. an adaptee that is itself a
			// specializer) is handled by the next trip around this loop.
			fr.Redo = frame.RedoNone
			na, ok := fr.Phase.(*action.Action)
			if !ok {
				return ResultThrown, rterr.Internal("redo requested without a phase action")
			}
			a = na
			fulfill = false
			continue
		case frame.ReevaluateCell:
			// The dispatcher asked for the frame's spare cell to be fed back
			// in as the next input, without advancing the real feed. An
			// injected action (or a word resolving to one) still gathers its
			// arguments from the caller's feed; anything else evaluates as a
			// lone cell.
			fr.Redo = frame.RedoNone
			sp := fr.Spare
			if ia := action.FromCell(&sp); ia != nil {
				return runAction(out, caller, ia, caller.Owner.Data.DSP(), nil)
			}
			if sp.Kind() == cell.KindWord {
				if v, ok := lookupValue(&sp, caller); ok && v.Kind() == cell.KindAction {
					if ia := action.FromCell(&v); ia != nil {
						return runAction(out, caller, ia, caller.Owner.Data.DSP(), nil)
					}
				}
			}
			inj := ser.NewArray(1, ser.FlavorPlain)
			inj.Append(sp)
			if err := EvalArrayToEnd(out, inj, caller); err != nil {
				return ResultThrown, err
			}
			return ResultValue, nil
		}
		if outcome == action.OutcomeInvisible {
			return ResultInvisible, nil
		}
		return ResultValue, nil
	}
}

// Shove implements SHOVE operator: invoked enfix with the
// already-produced left-hand value preset as its own first argument (the
// ordinary enfix mechanism handles that), it then resolves the next feed
// item directly — via lookupValue, not Step, so a bare action reference
// there is not auto-invoked — and re-dispatches that action with the
// left-hand value slipped in as its first argument, gathering the rest of
// that action's arguments from the same feed. Wired as a native by
// package host so a Host can bind it to `<-`.
func Shove(f *frame.Frame) (action.Outcome, error) {
	lhs := *f.Ctx.VarAt(1)
	if f.Feed.AtEnd() {
		return action.OutcomeValue, rterr.New(rterr.KindScript, "no-arg", "SHOVE requires a right-hand action reference")
	}
	c := f.Feed.Next()
	v, ok := lookupValue(c, f)
	if !ok {
		return action.OutcomeValue, rterr.New(rterr.KindScript, "no-value", "SHOVE's right-hand word has no value")
	}
	target := action.FromCell(&v)
	if target == nil {
		return action.OutcomeValue, rterr.ArgumentType("right", "shove")
	}
	_, err := runAction(f.Out, f, target, f.Owner.Data.DSP(), &lhs)
	if err != nil {
		if th, ok := ctrl.AsThrown(err); ok {
			return action.OutcomeThrown, th
		}
		return action.OutcomeValue, err
	}
	return action.OutcomeValue, nil
}

// CatchOwnReturn absorbs a definitional RETURN whose label matches a,
// the action currently being dispatched. RETURN is not an error, it is a
// labeled unwind that the frame it names must catch and turn into an
// ordinary call result. Any other thrown signal (a mismatched RETURN,
// BREAK, CONTINUE, STOP, a user THROW) is left for the caller to propagate
// untouched.
func CatchOwnReturn(fr *frame.Frame, a *action.Action, err error) (bool, error) {
	th, ok := ctrl.AsThrown(err)
	if !ok || !th.MatchesReturn(a.Identity()) {
		return false, nil
	}
	if moveErr := cell.Move(fr.Out, &th.Payload); moveErr != nil {
		return true, moveErr
	}
	return true, nil
}

// fulfillArgs walks a's paramlist in order: normal/
// tight/hard-quote/soft-quote parameters consume feed items (or presetFirst,
// for an enfix left operand), refinement parameters consult the data stack
// segment pushed since dspOrig, and local/return slots are implicitly
// filled. Every non-refinement/local/return slot is then validated against
// its typeset.
func fulfillArgs(fr *frame.Frame, caller *frame.Frame, a *action.Action, presetFirst *cell.Cell) error {
	pl := a.ParamList()
	n := pl.Len()
	scanStart := fr.DSPOrig
	refinementActive := false
	usedPreset := false

	for slot := 1; slot <= n; slot++ {
		p := pl.ParamAt(slot)
		switch p.Class {
		case paramspec.ClassReturn:
			// Always refreshed, never skipped: a redo may have swapped the
			// phase, and the marker's label must match the action whose
			// boundary will catch the throw.
			var v cell.Cell
			cell.InitAction(&v, nil)
			v.SetBinding(cell.Binding{Kind: cell.BoundRelative, Action: a.Identity()})
			cell.Move(fr.Ctx.VarAt(slot), &v)

		case paramspec.ClassLocal:
			if fr.Ctx.VarAt(slot).GetFlag(cell.FlagArgMarkedChecked) {
				continue
			}
			var v cell.Cell
			cell.InitVoid(&v)
			cell.Move(fr.Ctx.VarAt(slot), &v)

		case paramspec.ClassRefinement:
			if cur := fr.Ctx.VarAt(slot); cur.GetFlag(cell.FlagArgMarkedChecked) {
				refinementActive = cur.Kind() != cell.KindNull
				continue
			}
			idx := caller.Owner.Data.IndexOf(scanStart, p.Sym)
			var v cell.Cell
			if idx >= 0 {
				cell.InitInteger(&v, int64(idx-scanStart+1))
				refinementActive = true
			} else {
				cell.InitNull(&v)
				refinementActive = false
			}
			cell.Move(fr.Ctx.VarAt(slot), &v)

		default:
			if fr.Ctx.VarAt(slot).GetFlag(cell.FlagArgMarkedChecked) {
				continue
			}
			if p.RefinementArg && !refinementActive {
				var v cell.Cell
				cell.InitNull(&v)
				cell.Move(fr.Ctx.VarAt(slot), &v)
				continue
			}
			if presetFirst != nil && !usedPreset {
				cp := *presetFirst
				cell.Move(fr.Ctx.VarAt(slot), &cp)
				usedPreset = true
				continue
			}
			if usedPreset && p.Class == paramspec.ClassNormal {
				// An enfix call's remaining normal arguments take no enfix
				// lookahead of their own: `2 + 2 = 4` groups as
				// `(2 + 2) = 4`, leaving `=` for the caller's enfix loop.
				tight := *p
				tight.Class = paramspec.ClassTight
				p = &tight
			}
			if err := fulfillNormalSlot(fr, caller, p, slot); err != nil {
				return err
			}
		}
	}

	for slot := 1; slot <= n; slot++ {
		p := pl.ParamAt(slot)
		v := fr.Ctx.VarAt(slot)
		switch p.Class {
		case paramspec.ClassLocal, paramspec.ClassReturn:
			continue
		case paramspec.ClassRefinement:
			v.SetFlag(cell.FlagArgMarkedChecked)
			continue
		}
		if p.RefinementArg && v.Kind() == cell.KindNull {
			// The governing refinement was not used at this call site; null
			// here means "not supplied," not a value failing the typeset,
			// and RefinementArg params are forbidden from declaring <opt>
			// themselves (build.go rejects it), so Accepts would always
			// reject this slot.
			v.SetFlag(cell.FlagArgMarkedChecked)
			continue
		}
		if !p.Accepts(v) {
			return rterr.ArgumentType(fmt.Sprintf("slot %d", slot), "action")
		}
		v.SetFlag(cell.FlagArgMarkedChecked)
	}
	return nil
}

func fulfillNormalSlot(fr, caller *frame.Frame, p *paramspec.Param, slot int) error {
	switch p.Class {
	case paramspec.ClassHardQuote:
		if caller.Feed.AtEnd() {
			return rterr.New(rterr.KindScript, "no-arg", "missing argument")
		}
		c := caller.Feed.Next()
		if c.Kind() == cell.KindNull {
			return rterr.New(rterr.KindType, "bad-arg", "hard-quoted parameter rejects null")
		}
		cp := *c
		cell.Move(fr.Ctx.VarAt(slot), &cp)
		return nil

	case paramspec.ClassSoftQuote:
		if caller.Feed.AtEnd() {
			return rterr.New(rterr.KindScript, "no-arg", "missing argument")
		}
		head := caller.Feed.Peek()
		if head.Kind() == cell.KindGroup || head.Kind() == cell.KindGetWord {
			var v cell.Cell
			res, err := stepValue(&v, caller)
			if err != nil {
				return err
			}
			if res == ResultEnd {
				cell.InitNull(&v)
			}
			cell.Move(fr.Ctx.VarAt(slot), &v)
			return nil
		}
		c := caller.Feed.Next()
		cp := *c
		cell.Move(fr.Ctx.VarAt(slot), &cp)
		return nil

	case paramspec.ClassTight:
		// Like normal but with no deferral: the immediately-next value is
		// consumed without lookahead relaxation, so `twice 1 + 2` hands
		// twice the 1 and leaves `+ 2` for the caller.
		var v cell.Cell
		res, err := stepTightValue(&v, caller)
		if err != nil {
			return err
		}
		if res == ResultEnd {
			cell.InitNull(&v)
		}
		cell.Move(fr.Ctx.VarAt(slot), &v)
		return nil

	default: // ClassNormal
		var v cell.Cell
		res, err := stepValue(&v, caller)
		if err != nil {
			return err
		}
		if res == ResultEnd {
			cell.InitNull(&v)
		}
		cell.Move(fr.Ctx.VarAt(slot), &v)
		return nil
	}
}
