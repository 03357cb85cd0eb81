package host

import (
	"testing"

	"corelang/internal/action"
	"corelang/internal/cell"
	"corelang/internal/ser"
	"corelang/internal/sym"
)

// The helpers below build pre-scanned blocks directly (this module has no
// Loader/scanner of its own), the same way internal/action/action_test.go
// builds spec blocks for the dispatcher layer's own unit tests.

func wcell(tbl *sym.Table, kind cell.Kind, name string) cell.Cell {
	var c cell.Cell
	cell.InitWord(&c, kind, tbl.Intern(name))
	return c
}

func icell(v int64) cell.Cell {
	var c cell.Cell
	cell.InitInteger(&c, v)
	return c
}

func tagc(v string) cell.Cell {
	var c cell.Cell
	cell.InitTag(&c, v)
	return c
}

func blockOf(cells ...cell.Cell) cell.Cell {
	arr := ser.NewArray(len(cells), ser.FlavorPlain)
	for _, c := range cells {
		arr.Append(c)
	}
	var c cell.Cell
	cell.InitArray(&c, cell.KindBlock, arr)
	return c
}

func topBlock(cells ...cell.Cell) *ser.Array {
	arr := ser.NewArray(len(cells), ser.FlavorPlain)
	for _, c := range cells {
		arr.Append(c)
	}
	return arr
}

func refCell(tbl *sym.Table, name string) cell.Cell {
	var c cell.Cell
	cell.InitWord(&c, cell.KindRefinement, tbl.Intern(name))
	return c
}

func pathCell(cells ...cell.Cell) cell.Cell {
	arr := ser.NewArray(len(cells), ser.FlavorPlain)
	for _, c := range cells {
		arr.Append(c)
	}
	var c cell.Cell
	cell.InitArray(&c, cell.KindPath, arr)
	return c
}

func mustEval(t *testing.T, h *Host, body *ser.Array) cell.Cell {
	t.Helper()
	var out cell.Cell
	if err := h.EvalBlock(&out, body); err != nil {
		t.Fatalf("EvalBlock: %v", err)
	}
	return out
}

// A function's definitional RETURN short-circuits the rest of its body
// and supplies the call's result.
func TestDefinitionalReturnShortCircuitsBody(t *testing.T) {
	h := Init(nil)
	tbl := h.Symbols

	prog := topBlock(
		wcell(tbl, cell.KindSetWord, "f"),
		wcell(tbl, cell.KindWord, "function"),
		blockOf(wcell(tbl, cell.KindWord, "x")),
		blockOf(
			wcell(tbl, cell.KindWord, "return"),
			wcell(tbl, cell.KindWord, "x"),
			wcell(tbl, cell.KindWord, "+"),
			icell(1),
		),
		wcell(tbl, cell.KindWord, "f"),
		icell(10),
	)

	out := mustEval(t, h, prog)
	if out.Kind() != cell.KindInteger || out.Integer() != 11 {
		t.Fatalf("got kind=%v value=%v, want integer 11", out.Kind(), out.Integer())
	}
}

// An adapter's prelude RETURN short-circuits the
// call before the adaptee ever runs.
func TestAdaptPreludeReturnShortCircuits(t *testing.T) {
	h := Init(nil)
	tbl := h.Symbols

	prog := topBlock(
		wcell(tbl, cell.KindSetWord, "f"),
		wcell(tbl, cell.KindWord, "adapt"),
		wcell(tbl, cell.KindGetWord, "add"),
		blockOf(
			wcell(tbl, cell.KindWord, "if"),
			wcell(tbl, cell.KindWord, "a"),
			wcell(tbl, cell.KindWord, "="),
			icell(0),
			blockOf(
				wcell(tbl, cell.KindWord, "return"),
				tagc("zero"),
			),
		),
		wcell(tbl, cell.KindWord, "f"),
		icell(0),
		icell(5),
	)

	out := mustEval(t, h, prog)
	if out.Kind() != cell.KindTag || out.Tag() != "zero" {
		t.Fatalf("got kind=%v tag=%q, want tag <zero>", out.Kind(), out.Tag())
	}
}

// Scenario 7's complementary path: the adaptee runs normally when the
// prelude's condition never returns.
func TestAdaptFallsThroughToAdapteeWhenPreludeDoesNotReturn(t *testing.T) {
	h := Init(nil)
	tbl := h.Symbols

	prog := topBlock(
		wcell(tbl, cell.KindSetWord, "f"),
		wcell(tbl, cell.KindWord, "adapt"),
		wcell(tbl, cell.KindGetWord, "add"),
		blockOf(
			wcell(tbl, cell.KindWord, "if"),
			wcell(tbl, cell.KindWord, "a"),
			wcell(tbl, cell.KindWord, "="),
			icell(0),
			blockOf(
				wcell(tbl, cell.KindWord, "return"),
				tagc("zero"),
			),
		),
		wcell(tbl, cell.KindWord, "f"),
		icell(3),
		icell(5),
	)

	out := mustEval(t, h, prog)
	if out.Kind() != cell.KindInteger || out.Integer() != 8 {
		t.Fatalf("got kind=%v value=%v, want integer 8", out.Kind(), out.Integer())
	}
}

// Hijacking a native swaps its behavior for every
// existing reference, including an enfix alias sharing its cell.
func TestHijackAffectsEveryReference(t *testing.T) {
	h := Init(nil)
	tbl := h.Symbols

	prog := topBlock(
		wcell(tbl, cell.KindSetWord, "always-zero"),
		wcell(tbl, cell.KindWord, "function"),
		blockOf(
			wcell(tbl, cell.KindWord, "a"),
			wcell(tbl, cell.KindWord, "b"),
		),
		blockOf(icell(0)),
		wcell(tbl, cell.KindWord, "hijack"),
		wcell(tbl, cell.KindGetWord, "add"),
		wcell(tbl, cell.KindGetWord, "always-zero"),
		icell(3),
		wcell(tbl, cell.KindWord, "+"),
		icell(4),
	)

	out := mustEval(t, h, prog)
	if out.Kind() != cell.KindInteger || out.Integer() != 0 {
		t.Fatalf("got kind=%v value=%v, want integer 0 (+ should be hijacked too)", out.Kind(), out.Integer())
	}
}

// for-each with break: a loop that breaks never yields the series' tail,
// and break's null result is the loop's own result.
func TestForEachBreakReturnsNull(t *testing.T) {
	h := Init(nil)
	tbl := h.Symbols

	prog := topBlock(
		wcell(tbl, cell.KindWord, "for-each"),
		wcell(tbl, cell.KindWord, "item"),
		blockOf(icell(1), icell(2), icell(3)),
		blockOf(
			wcell(tbl, cell.KindWord, "if"),
			wcell(tbl, cell.KindWord, "item"),
			wcell(tbl, cell.KindWord, "="),
			icell(2),
			blockOf(wcell(tbl, cell.KindWord, "break")),
		),
	)

	out := mustEval(t, h, prog)
	if out.Kind() != cell.KindNull {
		t.Fatalf("got kind=%v, want null from break", out.Kind())
	}
}

func TestArithmeticAndComparisonNatives(t *testing.T) {
	h := Init(nil)
	tbl := h.Symbols

	prog := topBlock(
		wcell(tbl, cell.KindWord, "multiply"),
		icell(6),
		icell(7),
	)
	out := mustEval(t, h, prog)
	if out.Kind() != cell.KindInteger || out.Integer() != 42 {
		t.Fatalf("got %v, want integer 42", out)
	}

	prog2 := topBlock(
		icell(2),
		wcell(tbl, cell.KindWord, "+"),
		icell(2),
		wcell(tbl, cell.KindWord, "="),
		icell(4),
	)
	out2 := mustEval(t, h, prog2)
	if out2.Kind() != cell.KindLogic || !out2.Logic() {
		t.Fatalf("got %v, want logic true", out2)
	}
}

func TestShutdownSucceedsOnFreshHost(t *testing.T) {
	h := Init(nil)
	if err := h.Shutdown(); err != nil {
		t.Fatalf("Shutdown on a fresh host: %v", err)
	}
}

// Refinements invoked via a path dispatch in a
// fixed order (`/dup` before `/only`), exercising fulfillArgs' data-stack
// based refinement lookup rather than apply's paramlist-order fallback.
func TestAppendDupOnlyRefinementOrdering(t *testing.T) {
	h := Init(nil)
	tbl := h.Symbols

	prog := topBlock(
		pathCell(wcell(tbl, cell.KindWord, "append"), refCell(tbl, "dup"), refCell(tbl, "only")),
		wcell(tbl, cell.KindWord, "copy"),
		blockOf(wcell(tbl, cell.KindWord, "a")),
		blockOf(wcell(tbl, cell.KindWord, "b")),
		icell(2),
	)

	out := mustEval(t, h, prog)
	arr, ok := out.Payload().(*ser.Array)
	if out.Kind() != cell.KindBlock || !ok || arr.Len() != 3 {
		t.Fatalf("got %v, want a 3-element block [a [b] [b]]", out)
	}
	if arr.At(0).Kind() != cell.KindWord || tbl.Spelling(arr.At(0).Symbol()) != "a" {
		t.Fatalf("element 0 = %v, want word a", arr.At(0))
	}
	for _, i := range []int{1, 2} {
		inner, ok := arr.At(i).Payload().(*ser.Array)
		if arr.At(i).Kind() != cell.KindBlock || !ok || inner.Len() != 1 || tbl.Spelling(inner.At(0).Symbol()) != "b" {
			t.Fatalf("element %d = %v, want block [b]", i, arr.At(i))
		}
	}
}

// Omitting /dup leaves its count argument null at the call site;
// that null must not be type-checked against count's (non-opt) typeset,
// since null there means "refinement not used," not a bad argument.
func TestAppendOnlyWithoutDupLeavesCountArgumentNull(t *testing.T) {
	h := Init(nil)
	tbl := h.Symbols

	prog := topBlock(
		pathCell(wcell(tbl, cell.KindWord, "append"), refCell(tbl, "only")),
		wcell(tbl, cell.KindWord, "copy"),
		blockOf(wcell(tbl, cell.KindWord, "a")),
		blockOf(wcell(tbl, cell.KindWord, "b")),
	)

	out := mustEval(t, h, prog)
	arr, ok := out.Payload().(*ser.Array)
	if out.Kind() != cell.KindBlock || !ok || arr.Len() != 2 {
		t.Fatalf("got %v, want a 2-element block [a [b]]", out)
	}
}

// SHOVE slips the left-hand value in as the
// right-hand action's first argument, then gathers the rest of that
// action's arguments from the same feed.
func TestShoveFeedsLeftHandValueAsFirstArgument(t *testing.T) {
	h := Init(nil)
	tbl := h.Symbols

	prog := topBlock(
		icell(10),
		wcell(tbl, cell.KindWord, "<-"),
		wcell(tbl, cell.KindWord, "add"),
		icell(20),
	)

	out := mustEval(t, h, prog)
	if out.Kind() != cell.KindInteger || out.Integer() != 30 {
		t.Fatalf("got %v, want integer 30", out)
	}
}

// A specialization bakes in refinement slots
// following paramlist order, regardless of the order they're written in the
// specialize block — DESIGN.md's Open Question decision for apply-ordering
// applies to specialize's exemplar too, since both build a context keyed by
// the same shared paramlist/keylist.
func TestSpecializeHidesBakedSlotsInParamlistOrder(t *testing.T) {
	h := Init(nil)
	tbl := h.Symbols

	prog := topBlock(
		wcell(tbl, cell.KindSetWord, "s"),
		wcell(tbl, cell.KindWord, "specialize"),
		wcell(tbl, cell.KindGetWord, "append"),
		blockOf(
			wcell(tbl, cell.KindSetWord, "only"),
			icell(1),
			wcell(tbl, cell.KindSetWord, "dup"),
			icell(1),
			wcell(tbl, cell.KindSetWord, "count"),
			icell(2),
		),
	)

	out := mustEval(t, h, prog)
	act := action.FromCell(&out)
	if act == nil {
		t.Fatalf("got %v, want an action! from specialize", out)
	}
	if !act.Hidden(3) || !act.Hidden(4) || !act.Hidden(5) {
		t.Fatalf("expected dup (3), count (4), and only (5) all hidden by specialization")
	}
	if act.Hidden(1) || act.Hidden(2) {
		t.Fatalf("series/value must stay part of the specialization's visible interface")
	}
}

// The chain/enclose composition rows, exercised end to end through the
// stdlib natives rather than only at internal/action's construction-level
// unit tests.
func TestChainThreadsResultThroughEachStage(t *testing.T) {
	h := Init(nil)
	tbl := h.Symbols

	inc, err := MakeFunction(h,
		topBlock(wcell(tbl, cell.KindWord, "x")),
		topBlock(wcell(tbl, cell.KindWord, "x"), wcell(tbl, cell.KindWord, "+"), icell(1)),
	)
	if err != nil {
		t.Fatalf("MakeFunction(inc): %v", err)
	}
	dbl, err := MakeFunction(h,
		topBlock(wcell(tbl, cell.KindWord, "x")),
		topBlock(wcell(tbl, cell.KindWord, "x"), wcell(tbl, cell.KindWord, "*"), icell(2)),
	)
	if err != nil {
		t.Fatalf("MakeFunction(dbl): %v", err)
	}

	pipeline := blockOf(action.Cell(inc), action.Cell(dbl))
	prog := topBlock(
		wcell(tbl, cell.KindSetWord, "c"),
		wcell(tbl, cell.KindWord, "chain"),
		pipeline,
		wcell(tbl, cell.KindWord, "c"),
		icell(5),
	)

	out := mustEval(t, h, prog)
	if out.Kind() != cell.KindInteger || out.Integer() != 12 {
		t.Fatalf("got %v, want integer 12 ((5+1)*2)", out)
	}
}

// enclose wraps add so its outer action can run extra logic around the
// call, invoking the stolen frame itself via `do`.
func TestEncloseInvokesInnerViaDoOnTheStolenFrame(t *testing.T) {
	h := Init(nil)
	tbl := h.Symbols

	// `(do state) + 1`: without the group, do's normal argument would take
	// the `+ 1` enfix lookahead and add would receive the frame itself.
	var doState cell.Cell
	cell.InitArray(&doState, cell.KindGroup, topBlock(
		wcell(tbl, cell.KindWord, "do"),
		wcell(tbl, cell.KindWord, "state"),
	))

	prog := topBlock(
		wcell(tbl, cell.KindSetWord, "f"),
		wcell(tbl, cell.KindWord, "enclose"),
		wcell(tbl, cell.KindGetWord, "add"),
		wcell(tbl, cell.KindWord, "function"),
		blockOf(wcell(tbl, cell.KindWord, "state")),
		blockOf(
			doState,
			wcell(tbl, cell.KindWord, "+"),
			icell(1),
		),
		wcell(tbl, cell.KindWord, "f"),
		icell(2),
		icell(3),
	)

	out := mustEval(t, h, prog)
	if out.Kind() != cell.KindInteger || out.Integer() != 6 {
		t.Fatalf("got %v, want integer 6 (add(2,3)=5, then +1)", out)
	}
}
