// Package mold renders cells back to source-style text: MOLD produces a
// form that would scan back to an equivalent value (quoted text, bracketed
// blocks, word sigils), FORM produces the friendlier display form PRINT
// uses (bare text, no outer brackets on blocks).
//
// Grounded on vmregister/value.go's ToString/PrintValue pair (one recursive
// stringifier shared by the printer, the REPL, and error messages), split
// here into the mold/form distinction this dialect draws.
package mold

import (
	"fmt"
	"strings"

	"corelang/internal/cell"
	"corelang/internal/ser"
	"corelang/internal/sym"
)

// Mold renders c in loadable form.
func Mold(tbl *sym.Table, c *cell.Cell) string {
	var sb strings.Builder
	for i := uint8(0); i < c.QuoteLevel(); i++ {
		sb.WriteByte('\'')
	}
	moldInto(&sb, tbl, c, true)
	return sb.String()
}

// Form renders c for display: text is unquoted and a block's elements are
// joined without the outer brackets.
func Form(tbl *sym.Table, c *cell.Cell) string {
	var sb strings.Builder
	moldInto(&sb, tbl, c, false)
	return sb.String()
}

func moldInto(sb *strings.Builder, tbl *sym.Table, c *cell.Cell, loadable bool) {
	switch c.Kind() {
	case cell.KindNull:
		sb.WriteString("null")
	case cell.KindVoid:
		sb.WriteString("void")
	case cell.KindBlank:
		sb.WriteByte('_')
	case cell.KindLogic:
		if c.Logic() {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case cell.KindInteger:
		fmt.Fprintf(sb, "%d", c.Integer())
	case cell.KindDecimal:
		fmt.Fprintf(sb, "%g", c.Decimal())
	case cell.KindText:
		if loadable {
			fmt.Fprintf(sb, "%q", c.Text())
		} else {
			sb.WriteString(c.Text())
		}
	case cell.KindBinary:
		sb.WriteString("#{")
		for _, b := range []byte(c.Text()) {
			fmt.Fprintf(sb, "%02X", b)
		}
		sb.WriteByte('}')
	case cell.KindTag:
		fmt.Fprintf(sb, "<%s>", c.Tag())
	case cell.KindWord:
		sb.WriteString(tbl.Spelling(c.Symbol()))
	case cell.KindSetWord:
		sb.WriteString(tbl.Spelling(c.Symbol()))
		sb.WriteByte(':')
	case cell.KindGetWord:
		sb.WriteByte(':')
		sb.WriteString(tbl.Spelling(c.Symbol()))
	case cell.KindLitWord:
		sb.WriteByte('\'')
		sb.WriteString(tbl.Spelling(c.Symbol()))
	case cell.KindRefinement:
		sb.WriteByte('/')
		sb.WriteString(tbl.Spelling(c.Symbol()))
	case cell.KindIssue:
		sb.WriteByte('#')
		sb.WriteString(tbl.Spelling(c.Symbol()))
	case cell.KindBlock:
		moldArray(sb, tbl, c, "[", "]", loadable)
	case cell.KindGroup:
		moldArray(sb, tbl, c, "(", ")", loadable)
	case cell.KindPath, cell.KindSetPath, cell.KindGetPath:
		moldPath(sb, tbl, c)
	case cell.KindDatatype:
		fmt.Fprintf(sb, "%s!", c.DatatypeKind())
	case cell.KindError:
		if e, ok := c.Payload().(error); ok {
			fmt.Fprintf(sb, "make error! %q", e.Error())
		} else {
			sb.WriteString("#[error!]")
		}
	default:
		// Actions, frames, objects, and the other opaque kinds have no
		// loadable form; a construction-syntax placeholder names the kind.
		fmt.Fprintf(sb, "#[%s!]", c.Kind())
	}
}

func moldArray(sb *strings.Builder, tbl *sym.Table, c *cell.Cell, open, close string, loadable bool) {
	arr, ok := c.Payload().(*ser.Array)
	if !ok {
		sb.WriteString(open)
		sb.WriteString(close)
		return
	}
	bare := !loadable && c.Kind() == cell.KindBlock
	if !bare {
		sb.WriteString(open)
	}
	for i := c.ArrayIndex(); i < arr.Len(); i++ {
		if i > c.ArrayIndex() {
			sb.WriteByte(' ')
		}
		moldInto(sb, tbl, arr.At(i), true)
	}
	if !bare {
		sb.WriteString(close)
	}
}

func moldPath(sb *strings.Builder, tbl *sym.Table, c *cell.Cell) {
	arr, ok := c.Payload().(*ser.Array)
	if !ok {
		return
	}
	if c.Kind() == cell.KindGetPath {
		sb.WriteByte(':')
	}
	for i := 0; i < arr.Len(); i++ {
		if i > 0 {
			sb.WriteByte('/')
		}
		seg := arr.At(i)
		if seg.Kind() == cell.KindRefinement {
			// Inside a path the segment's own slash is the separator.
			sb.WriteString(tbl.Spelling(seg.Symbol()))
			continue
		}
		moldInto(sb, tbl, seg, true)
	}
	if c.Kind() == cell.KindSetPath {
		sb.WriteByte(':')
	}
}
