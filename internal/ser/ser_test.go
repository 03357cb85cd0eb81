package ser

import (
	"testing"

	"corelang/internal/cell"
	"corelang/internal/sym"
)

func TestArrayAppendAndTerminator(t *testing.T) {
	a := NewArray(2, FlavorPlain)
	var v cell.Cell
	cell.InitInteger(&v, 1)
	if err := a.Append(v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cell.InitInteger(&v, 2)
	if err := a.Append(v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Len() != 2 {
		t.Fatalf("expected length 2, got %d", a.Len())
	}
	if !cell.IsKind(a.End(), cell.KindEnd) {
		t.Fatalf("array must terminate with an end cell")
	}
	if a.At(0).Integer() != 1 || a.At(1).Integer() != 2 {
		t.Fatalf("unexpected contents")
	}
}

func TestFrozenArrayRejectsMutation(t *testing.T) {
	a := NewArray(1, FlavorPlain)
	var v cell.Cell
	cell.InitInteger(&v, 1)
	a.Append(v)
	a.Freeze()
	if err := a.Append(v); err == nil {
		t.Fatalf("expected frozen array to reject append")
	}
}

func TestHeldArrayRejectsResize(t *testing.T) {
	a := NewArray(1, FlavorPlain)
	release := a.Hold()
	var v cell.Cell
	cell.InitInteger(&v, 1)
	if err := a.Append(v); err == nil {
		t.Fatalf("expected held array to reject append")
	}
	release()
	if err := a.Append(v); err != nil {
		t.Fatalf("expected append to succeed after release: %v", err)
	}
}

// fakeDescriptor lets ser tests build a keylist without importing paramspec.
type fakeDescriptor struct{ s sym.Symbol }

func (f fakeDescriptor) DescriptorSymbol() sym.Symbol { return f.s }

func TestContextGetSetWord(t *testing.T) {
	tbl := sym.NewTable()
	foo := tbl.Intern("foo")

	keys := NewArray(1, FlavorKeylist)
	var rootkey cell.Cell
	cell.InitBlank(&rootkey)
	keys.Append(rootkey)
	var desc cell.Cell
	cell.InitObject(&desc, cell.KindTypeset, fakeDescriptor{s: foo})
	keys.Append(desc)

	ctx := NewContext(cell.KindObject, keys)
	var val cell.Cell
	cell.InitInteger(&val, 99)
	if !ctx.SetWord(foo, val) {
		t.Fatalf("expected SetWord to succeed")
	}
	got, ok := ctx.GetWord(foo)
	if !ok || got.Integer() != 99 {
		t.Fatalf("expected to read back 99, got %v ok=%v", got, ok)
	}

	other := tbl.Intern("bar")
	if _, ok := ctx.GetWord(other); ok {
		t.Fatalf("expected lookup of unbound symbol to fail")
	}
}

func TestStealMarksOldContextInaccessible(t *testing.T) {
	keys := NewArray(0, FlavorKeylist)
	var rootkey cell.Cell
	cell.InitBlank(&rootkey)
	keys.Append(rootkey)
	ctx := NewContext(cell.KindObject, keys)
	original := ctx.varlist
	stolen := ctx.Steal()
	if stolen != original {
		t.Fatalf("steal must return the original varlist")
	}
	if ctx.varlist == original {
		t.Fatalf("steal must detach the context from the original varlist")
	}
	if !ctx.varlist.Inaccessible() {
		t.Fatalf("post-steal context must be inaccessible")
	}
}
