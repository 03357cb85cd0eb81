package frame

import (
	"testing"

	"corelang/internal/cell"
	"corelang/internal/ser"
	"corelang/internal/sym"
)

// fakePhase is a minimal Phase for tests that never needs an action package.
type fakePhase struct {
	paramlist *ser.Array
	id        cell.ActionID
}

func (p *fakePhase) Paramlist() *ser.Array { return p.paramlist }
func (p *fakePhase) Identity() cell.ActionID { return p.id }

func samplePhase(tbl *sym.Table) *fakePhase {
	pl := ser.NewArray(2, ser.FlavorParamlist)
	var archetype cell.Cell
	cell.InitAction(&archetype, nil)
	pl.Append(archetype)
	var d cell.Cell
	cell.InitObject(&d, cell.KindTypeset, nil)
	pl.Append(d)
	return &fakePhase{paramlist: pl, id: 1}
}

func TestFeedPeekNextAtEnd(t *testing.T) {
	arr := ser.NewArray(2, ser.FlavorPlain)
	var a, b cell.Cell
	cell.InitInteger(&a, 1)
	cell.InitInteger(&b, 2)
	arr.Append(a)
	arr.Append(b)
	f := NewFeed(arr)
	if f.AtEnd() {
		t.Fatalf("fresh feed should not be at end")
	}
	if f.Peek().Integer() != 1 {
		t.Fatalf("expected peek to see first element")
	}
	if f.Next().Integer() != 1 {
		t.Fatalf("expected next to consume first element")
	}
	if f.Next().Integer() != 2 {
		t.Fatalf("expected next to consume second element")
	}
	if !f.AtEnd() {
		t.Fatalf("expected feed exhausted")
	}
	if f.Peek().Kind() != cell.KindEnd {
		t.Fatalf("expected end sentinel once exhausted")
	}
}

func TestStackPushDropMarksStackLifetimeInaccessible(t *testing.T) {
	tbl := sym.NewTable()
	phase := samplePhase(tbl)
	s := NewStack()
	var out cell.Cell
	fr := s.Push(phase, &out, NewFeed(nil))
	if fr.State != Initial {
		t.Fatalf("expected Initial state on push")
	}
	if !fr.Ctx.Varlist().StackLifetime() {
		t.Fatalf("expected stack-lifetime flag on a fresh frame's varlist")
	}
	s.Drop(fr)
	if fr.State != Dropped {
		t.Fatalf("expected Dropped state after drop")
	}
	if !fr.Ctx.Varlist().Inaccessible() {
		t.Fatalf("expected un-reified frame's varlist to be marked inaccessible on drop")
	}
}

func TestReifyPreventsInaccessibleOnDrop(t *testing.T) {
	tbl := sym.NewTable()
	phase := samplePhase(tbl)
	s := NewStack()
	var out cell.Cell
	fr := s.Push(phase, &out, NewFeed(nil))
	fr.Reify()
	if fr.Ctx.Varlist().StackLifetime() {
		t.Fatalf("expected Reify to clear the stack-lifetime flag")
	}
	s.Drop(fr)
	if fr.Ctx.Varlist().Inaccessible() {
		t.Fatalf("expected a reified frame's varlist to survive drop")
	}
}

func TestDataStackRestoreDSPScopesRefinementPushes(t *testing.T) {
	tbl := sym.NewTable()
	only := tbl.Intern("only")
	dup := tbl.Intern("dup")
	var d DataStack
	base := d.DSP()
	d.PushWord(only)
	d.PushWord(dup)
	if d.IndexOf(base, only) != base {
		t.Fatalf("expected only at base position")
	}
	if d.IndexOf(base, dup) != base+1 {
		t.Fatalf("expected dup pushed after only, preserving call order")
	}
	d.RestoreDSP(base)
	if d.DSP() != base {
		t.Fatalf("expected RestoreDSP to scope pushes back to baseline")
	}
}

func TestPriorLinksNestedFrames(t *testing.T) {
	tbl := sym.NewTable()
	outer := samplePhase(tbl)
	inner := samplePhase(tbl)
	s := NewStack()
	var out1, out2 cell.Cell
	f1 := s.Push(outer, &out1, NewFeed(nil))
	f2 := s.Push(inner, &out2, NewFeed(nil))
	if f2.Prior != f1 {
		t.Fatalf("expected inner frame's Prior to be the outer frame")
	}
	if s.Top != f2 {
		t.Fatalf("expected stack top to be the most recently pushed frame")
	}
	s.Drop(f2)
	if s.Top != f1 {
		t.Fatalf("expected dropping inner frame to restore outer as top")
	}
}
