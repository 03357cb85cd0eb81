package mold

import (
	"testing"

	"corelang/internal/cell"
	"corelang/internal/ser"
	"corelang/internal/sym"
)

func TestMoldRendersWordSigils(t *testing.T) {
	tbl := sym.NewTable()
	s := tbl.Intern("foo")

	cases := []struct {
		kind cell.Kind
		want string
	}{
		{cell.KindWord, "foo"},
		{cell.KindSetWord, "foo:"},
		{cell.KindGetWord, ":foo"},
		{cell.KindLitWord, "'foo"},
		{cell.KindRefinement, "/foo"},
		{cell.KindIssue, "#foo"},
	}
	for _, tc := range cases {
		var c cell.Cell
		cell.InitWord(&c, tc.kind, s)
		if got := Mold(tbl, &c); got != tc.want {
			t.Errorf("Mold(%v) = %q, want %q", tc.kind, got, tc.want)
		}
	}
}

func TestMoldNestsBlocksAndGroups(t *testing.T) {
	tbl := sym.NewTable()

	inner := ser.NewArray(1, ser.FlavorPlain)
	var one cell.Cell
	cell.InitInteger(&one, 1)
	inner.Append(one)
	var innerCell cell.Cell
	cell.InitArray(&innerCell, cell.KindGroup, inner)

	outer := ser.NewArray(3, ser.FlavorPlain)
	var w cell.Cell
	cell.InitWord(&w, cell.KindWord, tbl.Intern("x"))
	outer.Append(w)
	outer.Append(innerCell)
	var txt cell.Cell
	cell.InitText(&txt, "hi")
	outer.Append(txt)

	var blk cell.Cell
	cell.InitArray(&blk, cell.KindBlock, outer)
	if got := Mold(tbl, &blk); got != `[x (1) "hi"]` {
		t.Fatalf("Mold = %q, want %q", got, `[x (1) "hi"]`)
	}
}

func TestFormUnquotesTextAndUnwrapsBlocks(t *testing.T) {
	tbl := sym.NewTable()

	var txt cell.Cell
	cell.InitText(&txt, "hi")
	if got := Form(tbl, &txt); got != "hi" {
		t.Fatalf("Form(text) = %q, want %q", got, "hi")
	}

	arr := ser.NewArray(2, ser.FlavorPlain)
	var a, b cell.Cell
	cell.InitInteger(&a, 1)
	cell.InitInteger(&b, 2)
	arr.Append(a)
	arr.Append(b)
	var blk cell.Cell
	cell.InitArray(&blk, cell.KindBlock, arr)
	if got := Form(tbl, &blk); got != "1 2" {
		t.Fatalf("Form(block) = %q, want %q", got, "1 2")
	}
}

func TestMoldRespectsSeriesHeadOffset(t *testing.T) {
	tbl := sym.NewTable()

	arr := ser.NewArray(3, ser.FlavorPlain)
	for i := int64(1); i <= 3; i++ {
		var c cell.Cell
		cell.InitInteger(&c, i)
		arr.Append(c)
	}
	var pos cell.Cell
	cell.InitArrayAt(&pos, cell.KindBlock, arr, 1)
	if got := Mold(tbl, &pos); got != "[2 3]" {
		t.Fatalf("Mold = %q, want %q", got, "[2 3]")
	}
}

func TestMoldRendersPathsAndQuotes(t *testing.T) {
	tbl := sym.NewTable()

	arr := ser.NewArray(2, ser.FlavorPlain)
	var head, ref cell.Cell
	cell.InitWord(&head, cell.KindWord, tbl.Intern("append"))
	cell.InitWord(&ref, cell.KindRefinement, tbl.Intern("dup"))
	arr.Append(head)
	arr.Append(ref)
	var p cell.Cell
	cell.InitArray(&p, cell.KindPath, arr)
	if got := Mold(tbl, &p); got != "append/dup" {
		t.Fatalf("Mold(path) = %q, want %q", got, "append/dup")
	}

	var q cell.Cell
	cell.InitInteger(&q, 5)
	cell.Quotify(&q, 2)
	if got := Mold(tbl, &q); got != "''5" {
		t.Fatalf("Mold(quoted) = %q, want %q", got, "''5")
	}
}
