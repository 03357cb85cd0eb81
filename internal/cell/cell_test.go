package cell

import (
	"testing"

	"corelang/internal/sym"
)

func TestInitAndKind(t *testing.T) {
	var c Cell
	InitInteger(&c, 42)
	if !IsKind(&c, KindInteger) {
		t.Fatalf("expected integer kind, got %v", c.Kind())
	}
	if c.Integer() != 42 {
		t.Fatalf("expected 42, got %d", c.Integer())
	}
	if c.GetFlag(FlagUnevaluated) {
		t.Fatalf("unevaluated should be clear unless explicitly set")
	}
}

func TestQuoteRoundTrip(t *testing.T) {
	var c Cell
	InitText(&c, "hello")
	Quotify(&c, 3)
	if c.QuoteLevel() != 3 {
		t.Fatalf("expected quote level 3, got %d", c.QuoteLevel())
	}
	for i := 0; i < 3; i++ {
		Dequotify(&c)
	}
	if c.QuoteLevel() != 0 {
		t.Fatalf("expected quote level 0 after dequotify round trip, got %d", c.QuoteLevel())
	}
	if c.Text() != "hello" {
		t.Fatalf("dequotify must not touch payload")
	}
}

func TestDequotifyFloorsAtZero(t *testing.T) {
	var c Cell
	InitBlank(&c)
	if lvl := Dequotify(&c); lvl != 0 {
		t.Fatalf("dequotify on unquoted cell should stay at 0, got %d", lvl)
	}
}

func TestMoveClearsTransientFlags(t *testing.T) {
	var src, dst Cell
	InitInteger(&src, 7)
	src.SetFlag(FlagUnevaluated)
	src.SetFlag(FlagConst)
	if err := Move(&dst, &src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dst.GetFlag(FlagUnevaluated) {
		t.Fatalf("Move must clear transient flags")
	}
	if !dst.GetFlag(FlagConst) {
		t.Fatalf("Move must preserve non-transient flags")
	}
	if dst.Integer() != 7 {
		t.Fatalf("Move must copy payload")
	}
}

func TestMoveRefusesProtectedDestination(t *testing.T) {
	var src, dst Cell
	InitInteger(&src, 1)
	InitInteger(&dst, 0)
	dst.SetFlag(FlagProtected)
	if err := Move(&dst, &src); err == nil {
		t.Fatalf("expected protected-write error")
	}
}

func TestWordSymbolRoundTrip(t *testing.T) {
	tbl := sym.NewTable()
	s := tbl.Intern("foo")
	var c Cell
	InitWord(&c, KindSetWord, s)
	if !IsKind(&c, KindSetWord) {
		t.Fatalf("expected set-word kind")
	}
	if c.Symbol() != s {
		t.Fatalf("expected symbol round trip")
	}
}

func TestEqualModuloQuote(t *testing.T) {
	var a, b Cell
	InitInteger(&a, 5)
	InitInteger(&b, 5)
	Quotify(&b, 2)
	if !Equal(&a, &b) {
		t.Fatalf("equality should be modulo quote level")
	}
	InitInteger(&b, 6)
	if Equal(&a, &b) {
		t.Fatalf("differing payloads must not be equal")
	}
}

func TestIsTruthy(t *testing.T) {
	var n, bl, f, z Cell
	InitNull(&n)
	InitBlank(&bl)
	InitLogic(&f, false)
	InitInteger(&z, 0)
	for _, c := range []*Cell{&n, &bl, &f} {
		if IsTruthy(c) {
			t.Fatalf("%v should be falsy", c.Kind())
		}
	}
	if !IsTruthy(&z) {
		t.Fatalf("integer zero must be truthy")
	}
}
