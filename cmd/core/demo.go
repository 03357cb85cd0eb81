package main

import (
	"corelang/internal/cell"
	"corelang/internal/host"
	"corelang/internal/mold"
	"corelang/internal/ser"
	"corelang/internal/sym"
)

// scenario pairs a one-line description with a builder that constructs its
// pre-scanned program against h's symbol table, the same technique
// internal/host's own tests use (wcell/icell/blockOf/topBlock there) since
// this module has no scanner/loader to parse source text from.
type scenario struct {
	doc   string
	build func(h *host.Host) *ser.Array
}

var scenarioOrder = []string{
	"definitional-return",
	"hijack",
	"adapt-return",
	"for-each-break",
	"arithmetic",
	"specialize-ordering",
}

var scenarios = map[string]scenario{
	"definitional-return": {
		doc:   "RETURN short-circuits the rest of a function body",
		build: buildDefinitionalReturn,
	},
	"hijack": {
		doc:   "hijacking `add` changes every existing reference, including enfix `+` (scenario 6)",
		build: buildHijack,
	},
	"adapt-return": {
		doc:   "an adapter's prelude RETURN short-circuits before the adaptee runs (scenario 7)",
		build: buildAdaptReturn,
	},
	"for-each-break": {
		doc:   "BREAK inside for-each yields null as the loop's result",
		build: buildForEachBreak,
	},
	"arithmetic": {
		doc:   "enfix `+`/`*` chained at the top level",
		build: buildArithmetic,
	},
	"specialize-ordering": {
		doc:   "a specialized append bakes /dup in while the call site still adds /only (scenario 4)",
		build: buildSpecializeOrdering,
	},
}

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

func buildDefinitionalReturn(h *host.Host) *ser.Array {
	tbl := h.Symbols
	return topBlock(
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
}

func buildHijack(h *host.Host) *ser.Array {
	tbl := h.Symbols
	return topBlock(
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
}

func buildAdaptReturn(h *host.Host) *ser.Array {
	tbl := h.Symbols
	return topBlock(
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
}

func buildForEachBreak(h *host.Host) *ser.Array {
	tbl := h.Symbols
	return topBlock(
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
}

func buildSpecializeOrdering(h *host.Host) *ser.Array {
	tbl := h.Symbols
	return topBlock(
		wcell(tbl, cell.KindSetWord, "ap2"),
		wcell(tbl, cell.KindWord, "specialize"),
		wcell(tbl, cell.KindGetWord, "append"),
		blockOf(
			wcell(tbl, cell.KindSetWord, "dup"),
			icell(1),
			wcell(tbl, cell.KindSetWord, "count"),
			icell(2),
		),
		pathOf(
			wcell(tbl, cell.KindWord, "ap2"),
			wcell(tbl, cell.KindRefinement, "only"),
		),
		wcell(tbl, cell.KindWord, "copy"),
		blockOf(wcell(tbl, cell.KindWord, "a")),
		blockOf(wcell(tbl, cell.KindWord, "b")),
	)
}

func pathOf(cells ...cell.Cell) cell.Cell {
	arr := ser.NewArray(len(cells), ser.FlavorPlain)
	for _, c := range cells {
		arr.Append(c)
	}
	var c cell.Cell
	cell.InitArray(&c, cell.KindPath, arr)
	return c
}

func buildArithmetic(h *host.Host) *ser.Array {
	tbl := h.Symbols
	return topBlock(
		icell(2),
		wcell(tbl, cell.KindWord, "+"),
		icell(2),
		wcell(tbl, cell.KindWord, "*"),
		icell(10),
	)
}

// evalAndMold runs prog to end — through RunProgram, so an escaped throw
// surfaces as the host boundary's no-catch error — and renders the
// resulting cell in loadable form.
func evalAndMold(h *host.Host, prog *ser.Array) (string, error) {
	out, err := h.RunProgram(prog)
	if err != nil {
		return "", err
	}
	return mold.Mold(h.Symbols, &out), nil
}
