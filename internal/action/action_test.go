package action

import (
	"testing"

	"corelang/internal/cell"
	"corelang/internal/ctrl"
	"corelang/internal/frame"
	"corelang/internal/paramspec"
	"corelang/internal/ser"
	"corelang/internal/sym"
)

func wordCell(tbl *sym.Table, name string) cell.Cell {
	var c cell.Cell
	cell.InitWord(&c, cell.KindWord, tbl.Intern(name))
	return c
}

func refinementCell(tbl *sym.Table, name string) cell.Cell {
	var c cell.Cell
	cell.InitWord(&c, cell.KindRefinement, tbl.Intern(name))
	return c
}

func specOfCells(cells ...cell.Cell) *ser.Array {
	arr := ser.NewArray(len(cells), ser.FlavorPlain)
	for _, c := range cells {
		arr.Append(c)
	}
	return arr
}

// addOneWithOnly builds a spec block for `add: function [x /only y] [...]`
// style signatures, giving tests a normal param plus a refinement+arg.
func addOneWithOnly(tbl *sym.Table) *ser.Array {
	return specOfCells(
		wordCell(tbl, "x"),
		refinementCell(tbl, "only"),
		wordCell(tbl, "y"),
	)
}

func buildAction(t *testing.T, tbl *sym.Table, dispatch Dispatcher) *Action {
	t.Helper()
	pl, err := paramspec.Build(tbl, addOneWithOnly(tbl), true)
	if err != nil {
		t.Fatalf("unexpected spec build error: %v", err)
	}
	details := ser.NewArray(0, ser.FlavorDetails)
	return New(pl, details, dispatch)
}

func TestNewWiresArchetypeBackToAction(t *testing.T) {
	tbl := sym.NewTable()
	a := buildAction(t, tbl, NewNullDispatcher())
	archetype := a.Paramlist().At(0)
	if FromCell(archetype) != a {
		t.Fatalf("expected archetype cell to carry this action back")
	}
}

func TestDistinctActionsGetDistinctIdentities(t *testing.T) {
	tbl := sym.NewTable()
	a := buildAction(t, tbl, NewNullDispatcher())
	b := buildAction(t, tbl, NewNullDispatcher())
	if a.Identity() == b.Identity() {
		t.Fatalf("expected distinct action identities")
	}
}

func TestSpecializeHidesProvidedSlotOnly(t *testing.T) {
	tbl := sym.NewTable()
	underlying := buildAction(t, tbl, NewNullDispatcher())
	spec := Specialize(underlying, func(ctx *ser.Context) {
		var x cell.Cell
		cell.InitInteger(&x, 10)
		cell.Move(ctx.VarAt(1), &x)
	})
	if !spec.Hidden(1) {
		t.Fatalf("expected slot 1 (x) to be hidden by specialization")
	}
	if spec.Hidden(2) {
		t.Fatalf("did not expect the /only refinement slot to be hidden")
	}
	if underlying.Hidden(1) {
		t.Fatalf("specialization must not mark the shared underlying action hidden")
	}
	if spec.Identity() == underlying.Identity() {
		t.Fatalf("expected specialization to have its own identity")
	}
	if spec.Paramlist() == underlying.Paramlist() {
		t.Fatalf("expected specialization to own a distinct paramlist array")
	}
}

func TestSpecializeEncodesRefinementPartialOrder(t *testing.T) {
	tbl := sym.NewTable()
	underlying := buildAction(t, tbl, NewNullDispatcher())
	spec := Specialize(underlying, func(ctx *ser.Context) {
		var used cell.Cell
		cell.InitLogic(&used, true)
		cell.Move(ctx.VarAt(2), &used) // /only slot
	})
	// After Specialize runs, the exemplar's /only slot (index 2) should
	// have been overwritten with a partial-ordering integer rather than a
	// bare logic true, letting later calls preserve this specialization's
	// own ordering.
	if !spec.Hidden(2) {
		t.Fatalf("expected the /only refinement to be hidden")
	}
	exemplar, ok := spec.Details().At(0).Payload().(*ser.Context)
	if !ok {
		t.Fatalf("expected the specialization's details to carry its exemplar")
	}
	if ord := exemplar.VarAt(2); ord.Kind() != cell.KindInteger || ord.Integer() != 1 {
		t.Fatalf("expected /only encoded as partial-order integer 1, got %s", ord.Kind())
	}
}

func TestHijackSwapsDispatcherForMatchingParamlist(t *testing.T) {
	tbl := sym.NewTable()
	victim := buildAction(t, tbl, NewNullDispatcher())
	called := false
	hijacker := buildAction(t, tbl, func(f *frame.Frame) (Outcome, error) {
		called = true
		var v cell.Cell
		cell.InitInteger(&v, 42)
		cell.Move(f.Out, &v)
		return OutcomeValue, nil
	})
	// Force a matching paramlist identity for this test's direct-swap path,
	// without routing through New (which would rewire the shared array's
	// archetype cell away from victim).
	hijacker.paramlist = &paramspec.ParamList{Array: victim.Paramlist(), Meta: victim.ParamList().Meta}

	Hijack(victim, hijacker, nil)

	s := frame.NewStack()
	var out cell.Cell
	f := s.Push(victim, &out, frame.NewFeed(nil))
	victim.Dispatch()(f)
	if !called {
		t.Fatalf("expected hijacker's dispatcher to run in place of victim's")
	}
	if out.Integer() != 42 {
		t.Fatalf("expected hijacker's result, got %v", out)
	}
}

func TestChainerThreadsResultThroughStages(t *testing.T) {
	tbl := sym.NewTable()
	double := buildAction(t, tbl, NewNative(func(f *frame.Frame) (Outcome, error) {
		var v cell.Cell
		cell.InitInteger(&v, f.Ctx.VarAt(1).Integer()*2)
		cell.Move(f.Out, &v)
		return OutcomeValue, nil
	}))
	addTen := buildAction(t, tbl, NewNative(func(f *frame.Frame) (Outcome, error) {
		var v cell.Cell
		cell.InitInteger(&v, f.Ctx.VarAt(1).Integer()+10)
		cell.Move(f.Out, &v)
		return OutcomeValue, nil
	}))

	invoke := func(out *cell.Cell, target *Action, fill func(callFrame *frame.Frame)) error {
		s := frame.NewStack()
		f := s.Push(target, out, frame.NewFeed(nil))
		fill(f)
		outcome, err := target.Dispatch()(f)
		s.Drop(f)
		if err != nil {
			return err
		}
		_ = outcome
		return nil
	}

	chain := buildAction(t, tbl, NewChainer([]*Action{double, addTen}, invoke))
	s := frame.NewStack()
	var out cell.Cell
	f := s.Push(chain, &out, frame.NewFeed(nil))
	var x cell.Cell
	cell.InitInteger(&x, 3)
	cell.Move(f.Ctx.VarAt(1), &x)
	if _, err := chain.Dispatch()(f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Integer() != 16 { // (3*2)+10
		t.Fatalf("expected chained result 16, got %d", out.Integer())
	}
}

func TestElideLeavesOutUntouched(t *testing.T) {
	tbl := sym.NewTable()
	a := buildAction(t, tbl, NewElider())
	s := frame.NewStack()
	var out cell.Cell
	cell.InitInteger(&out, 7)
	f := s.Push(a, &out, frame.NewFeed(nil))
	outcome, err := a.Dispatch()(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeInvisible {
		t.Fatalf("expected invisible outcome")
	}
	if out.Integer() != 7 {
		t.Fatalf("expected out to remain untouched")
	}
}

func TestBreakThrownFromBodyPropagatesAsOutcomeThrown(t *testing.T) {
	tbl := sym.NewTable()
	run := func(out *cell.Cell, arr *ser.Array, f *frame.Frame) error {
		return ctrl.NewBreak()
	}
	body := ser.NewArray(0, ser.FlavorPlain)
	a := buildAction(t, tbl, NewUnchecked(body, run))
	s := frame.NewStack()
	var out cell.Cell
	f := s.Push(a, &out, frame.NewFeed(nil))
	outcome, err := a.Dispatch()(f)
	if outcome != OutcomeThrown {
		t.Fatalf("expected OutcomeThrown")
	}
	if _, ok := ctrl.AsThrown(err); !ok {
		t.Fatalf("expected a *ctrl.Thrown error")
	}
}

func TestEncloseInvokesOuterWithReifiedFrameArg(t *testing.T) {
	tbl := sym.NewTable()
	var capturedFrame *frame.Frame
	outer := buildAction(t, tbl, NewNative(func(f *frame.Frame) (Outcome, error) {
		arg1 := f.Ctx.VarAt(1)
		capturedFrame, _ = arg1.Payload().(*frame.Frame)
		var v cell.Cell
		cell.InitInteger(&v, 99)
		cell.Move(f.Out, &v)
		return OutcomeValue, nil
	}))
	invoke := func(out *cell.Cell, target *Action, fill func(callFrame *frame.Frame)) error {
		s := frame.NewStack()
		f := s.Push(target, out, frame.NewFeed(nil))
		fill(f)
		_, err := target.Dispatch()(f)
		s.Drop(f)
		return err
	}
	inner := buildAction(t, tbl, NewEnclose(outer, invoke))
	s := frame.NewStack()
	var out cell.Cell
	innerFrame := s.Push(inner, &out, frame.NewFeed(nil))
	if _, err := inner.Dispatch()(innerFrame); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Integer() != 99 {
		t.Fatalf("expected outer's result 99, got %d", out.Integer())
	}
	if capturedFrame != innerFrame {
		t.Fatalf("expected outer to receive the inner invocation's own frame")
	}
	if !innerFrame.Reified {
		t.Fatalf("expected enclose to reify the stolen frame")
	}
}
