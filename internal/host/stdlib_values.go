// The value-inspection natives: MOLD/FORM/PRINT/PROBE over internal/mold,
// the generic (kind-dispatched) series verbs LENGTH-OF and FIRST, and the
// datatype/typeset predicate checkers.
package host

import (
	"fmt"

	"corelang/internal/action"
	"corelang/internal/cell"
	"corelang/internal/frame"
	"corelang/internal/mold"
	"corelang/internal/paramspec"
	"corelang/internal/ser"
	"corelang/internal/sym"
)

func tagCell(v string) cell.Cell {
	var c cell.Cell
	cell.InitTag(&c, v)
	return c
}

func blockCell(cells ...cell.Cell) cell.Cell {
	arr := ser.NewArray(len(cells), ser.FlavorPlain)
	for _, c := range cells {
		arr.Append(c)
	}
	var c cell.Cell
	cell.InitArray(&c, cell.KindBlock, arr)
	return c
}

func buildMoldNative(h *Host) *action.Action {
	tbl := h.Symbols
	pl := buildParamList(tbl, specOf(wordCell(cell.KindWord, tbl.Intern("value"))))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		var out cell.Cell
		cell.InitText(&out, mold.Mold(h.Symbols, f.Ctx.VarAt(1)))
		cell.Move(f.Out, &out)
		return action.OutcomeValue, nil
	}))
}

func buildFormNative(h *Host) *action.Action {
	tbl := h.Symbols
	pl := buildParamList(tbl, specOf(wordCell(cell.KindWord, tbl.Intern("value"))))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		var out cell.Cell
		cell.InitText(&out, mold.Form(h.Symbols, f.Ctx.VarAt(1)))
		cell.Move(f.Out, &out)
		return action.OutcomeValue, nil
	}))
}

// buildPrintNative builds `print value`: writes value's formed text to the
// host's standard output and produces void.
func buildPrintNative(h *Host) *action.Action {
	tbl := h.Symbols
	pl := buildParamList(tbl, specOf(wordCell(cell.KindWord, tbl.Intern("value"))))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		fmt.Fprintln(h.Stdout, mold.Form(h.Symbols, f.Ctx.VarAt(1)))
		var v cell.Cell
		cell.InitVoid(&v)
		cell.Move(f.Out, &v)
		return action.OutcomeValue, nil
	}))
}

// buildProbeNative builds `probe value`: prints value's molded form and
// passes value through unchanged, for inline inspection.
func buildProbeNative(h *Host) *action.Action {
	tbl := h.Symbols
	pl := buildParamList(tbl, specOf(wordCell(cell.KindWord, tbl.Intern("value"))))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewNative(func(f *frame.Frame) (action.Outcome, error) {
		v := *f.Ctx.VarAt(1)
		fmt.Fprintln(h.Stdout, mold.Mold(h.Symbols, &v))
		cell.Move(f.Out, &v)
		return action.OutcomeValue, nil
	}))
}

// arrayKindsTable registers one handler under every array-bearing kind.
func arrayKindsTable(t action.GenericTable, h action.Dispatcher) {
	for _, k := range []cell.Kind{cell.KindBlock, cell.KindGroup, cell.KindPath, cell.KindSetPath, cell.KindGetPath} {
		t[k] = h
	}
}

// buildLengthOfNative builds the generic `length-of series`, dispatching on
// the first argument's kind: arrays count the cells from the value's own
// head offset, text and binary count bytes.
func buildLengthOfNative(tbl *sym.Table) *action.Action {
	pl := buildParamList(tbl, specOf(wordCell(cell.KindWord, tbl.Intern("series"))))
	table := action.GenericTable{}
	arrayKindsTable(table, func(f *frame.Frame) (action.Outcome, error) {
		v := f.Ctx.VarAt(1)
		arr, _ := v.Payload().(*ser.Array)
		n := 0
		if arr != nil && v.ArrayIndex() < arr.Len() {
			n = arr.Len() - v.ArrayIndex()
		}
		var out cell.Cell
		cell.InitInteger(&out, int64(n))
		cell.Move(f.Out, &out)
		return action.OutcomeValue, nil
	})
	textLen := func(f *frame.Frame) (action.Outcome, error) {
		var out cell.Cell
		cell.InitInteger(&out, int64(len(f.Ctx.VarAt(1).Text())))
		cell.Move(f.Out, &out)
		return action.OutcomeValue, nil
	}
	table[cell.KindText] = textLen
	table[cell.KindBinary] = textLen
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewGeneric("length-of", table, nil))
}

// buildFirstNative builds the generic `first series`: the element at the
// value's head offset, or null past the tail.
func buildFirstNative(tbl *sym.Table) *action.Action {
	pl := buildParamList(tbl, specOf(wordCell(cell.KindWord, tbl.Intern("series"))))
	table := action.GenericTable{}
	arrayKindsTable(table, func(f *frame.Frame) (action.Outcome, error) {
		v := f.Ctx.VarAt(1)
		arr, _ := v.Payload().(*ser.Array)
		var out cell.Cell
		if arr != nil && v.ArrayIndex() < arr.Len() {
			out = *arr.At(v.ArrayIndex())
		} else {
			cell.InitNull(&out)
		}
		cell.Move(f.Out, &out)
		return action.OutcomeValue, nil
	})
	table[cell.KindText] = func(f *frame.Frame) (action.Outcome, error) {
		s := f.Ctx.VarAt(1).Text()
		var out cell.Cell
		if s == "" {
			cell.InitNull(&out)
		} else {
			cell.InitText(&out, s[:1])
		}
		cell.Move(f.Out, &out)
		return action.OutcomeValue, nil
	}
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewGeneric("first", table, nil))
}

// buildDatatypeCheckNative builds a `<kind>?` predicate over the
// datatype-checker dispatcher row. optOK additionally admits null through
// the parameter's typeset, which NULL? itself needs.
func buildDatatypeCheckNative(tbl *sym.Table, named cell.Kind, optOK bool) *action.Action {
	valueWord := wordCell(cell.KindWord, tbl.Intern("value"))
	var spec *ser.Array
	if optOK {
		spec = specOf(valueWord, blockCell(tagCell("opt")))
	} else {
		spec = specOf(valueWord)
	}
	pl := buildParamList(tbl, spec)
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewDatatypeChecker(named))
}

// buildTypesetCheckNative builds a family predicate (e.g. `any-word?`) over
// the typeset-checker dispatcher row.
func buildTypesetCheckNative(tbl *sym.Table, bits uint64) *action.Action {
	pl := buildParamList(tbl, specOf(wordCell(cell.KindWord, tbl.Intern("value"))))
	return action.New(pl, ser.NewArray(0, ser.FlavorDetails), action.NewTypesetChecker(bits))
}

// anyWordBits is the word-family typeset ANY-WORD? tests against.
func anyWordBits() uint64 {
	var bits uint64
	for _, k := range []cell.Kind{cell.KindWord, cell.KindSetWord, cell.KindGetWord, cell.KindLitWord, cell.KindRefinement, cell.KindIssue} {
		bits |= paramspec.KindBit(k)
	}
	return bits
}
