package frame

import (
	"corelang/internal/cell"
	"corelang/internal/ser"
)

// Feed is the evaluator's input stream abstraction: an array plus a cursor
// index. Variadic feeds are not modeled; Feed always walks a concrete
// array.
type Feed struct {
	Array *ser.Array
	index int
}

// NewFeed starts a feed at the head of arr.
func NewFeed(arr *ser.Array) *Feed { return &Feed{Array: arr} }

// AtEnd reports whether the feed has no more items.
func (f *Feed) AtEnd() bool { return f.Array == nil || f.index >= f.Array.Len() }

// Peek returns the cell at the feed head without advancing, or a shared
// KindEnd sentinel cell if the feed is exhausted.
func (f *Feed) Peek() *cell.Cell {
	if f.AtEnd() {
		return endSentinel()
	}
	return f.Array.At(f.index)
}

// Next returns the cell at the feed head and advances past it.
func (f *Feed) Next() *cell.Cell {
	c := f.Peek()
	if !f.AtEnd() {
		f.index++
	}
	return c
}

// Index returns the feed's current cursor position.
func (f *Feed) Index() int { return f.index }

// SetIndex repositions the cursor.
func (f *Feed) SetIndex(i int) { f.index = i }

var sentinel cell.Cell

func endSentinel() *cell.Cell {
	if sentinel.Kind() != cell.KindEnd {
		cell.InitEnd(&sentinel)
	}
	return &sentinel
}
