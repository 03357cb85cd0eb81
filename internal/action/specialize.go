package action

import (
	"corelang/internal/cell"
	"corelang/internal/paramspec"
	"corelang/internal/ser"
)

// Specialize builds a specialized action over underlying: a context
// sharing underlying's paramlist as its keylist is filled by provide,
// every non-blank slot it sets becomes hidden from the specialization's
// own user-facing interface, and refinement slots used during provide are
// encoded as a partial-ordering integer so later invocations preserve this
// specialization's own call order.
func Specialize(underlying *Action, provide func(ctx *ser.Context)) *Action {
	exemplar := ser.NewContext(cell.KindFrame, underlying.Paramlist())
	provide(exemplar)

	hidden := map[int]bool{}
	order := 0
	n := exemplar.Varlist().Len()
	for i := 1; i < n; i++ {
		v := exemplar.VarAt(i)
		if v.Kind() == cell.KindBlank {
			continue
		}
		hidden[i] = true
		p, _ := exemplar.KeyAt(i).Payload().(*paramspec.Param)
		if p != nil && p.Class == paramspec.ClassRefinement {
			order++
			var ord cell.Cell
			cell.InitInteger(&ord, int64(order))
			cell.Move(exemplar.VarAt(i), &ord)
		}
	}

	// The specialization gets its own paramlist array (same descriptor
	// cells, copied) rather than reusing underlying's: New wires slot 0's
	// archetype back to whichever action owns the array, and underlying's
	// own archetype must keep pointing at underlying.
	original := underlying.Paramlist()
	specArr := ser.NewArray(original.Len(), ser.FlavorParamlist)
	for i := 0; i < original.Len(); i++ {
		specArr.Append(*original.At(i))
	}
	specPL := &paramspec.ParamList{Array: specArr, Meta: underlying.ParamList().Meta}
	dispatch := NewSpecializer(exemplar, underlying)
	details := ser.NewArray(1, ser.FlavorDetails)
	var fv cell.Cell
	cell.InitFrame(&fv, exemplar)
	details.Append(fv)

	a := New(specPL, details, dispatch)
	a.hidden = hidden
	return a
}
