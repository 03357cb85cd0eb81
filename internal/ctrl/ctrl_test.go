package ctrl

import (
	"errors"
	"testing"

	"corelang/internal/cell"
)

func intCell(v int64) cell.Cell {
	var c cell.Cell
	cell.InitInteger(&c, v)
	return c
}

func TestLoopRunsExactCountAndReturnsLastResult(t *testing.T) {
	var sum int64
	result, err := Loop(3, func() (cell.Cell, error) {
		sum++
		return intCell(sum), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum != 3 {
		t.Fatalf("expected body to run 3 times, ran %d", sum)
	}
	if result.Integer() != 3 {
		t.Fatalf("expected last result 3, got %d", result.Integer())
	}
}

func TestLoopZeroIterationsReturnsBlank(t *testing.T) {
	result, err := Loop(0, func() (cell.Cell, error) {
		t.Fatalf("body must not run")
		return cell.Cell{}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Kind() != cell.KindBlank {
		t.Fatalf("expected blank, got %s", result.Kind())
	}
}

func TestBreakReturnsNull(t *testing.T) {
	result, err := Loop(5, func() (cell.Cell, error) {
		return cell.Cell{}, NewBreak()
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Kind() != cell.KindNull {
		t.Fatalf("expected null after break, got %s", result.Kind())
	}
}

func TestContinueAbsorbsPayloadAndProceeds(t *testing.T) {
	var ran int
	result, err := Loop(3, func() (cell.Cell, error) {
		ran++
		if ran == 2 {
			return cell.Cell{}, NewContinue(intCell(99))
		}
		return intCell(int64(ran)), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ran != 3 {
		t.Fatalf("expected all 3 iterations to run, ran %d", ran)
	}
	if result.Integer() != 3 {
		t.Fatalf("expected final iteration's own result, got %d", result.Integer())
	}
}

func TestNullOrBlankResultPromotedToVoid(t *testing.T) {
	var null cell.Cell
	cell.InitNull(&null)
	result, err := Loop(1, func() (cell.Cell, error) {
		return null, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Kind() != cell.KindVoid {
		t.Fatalf("expected void, got %s", result.Kind())
	}
}

func TestNonThrownErrorPropagates(t *testing.T) {
	sentinel := errors.New("boom")
	_, err := Loop(3, func() (cell.Cell, error) {
		return cell.Cell{}, sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error to propagate, got %v", err)
	}
}

func TestReturnMatchesOnlyItsOwnFrame(t *testing.T) {
	th := NewReturn(42, intCell(7))
	if !th.MatchesReturn(42) {
		t.Fatalf("expected return to match its own action id")
	}
	if th.MatchesReturn(99) {
		t.Fatalf("expected return not to match a different action id")
	}
}

func TestCycleStopsOnlyOnStopOrBreak(t *testing.T) {
	var count int
	result, err := Cycle(func() (cell.Cell, error) {
		count++
		if count == 3 {
			return cell.Cell{}, NewStop(intCell(123))
		}
		return cell.Cell{}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Integer() != 123 {
		t.Fatalf("expected stop's payload, got %d", result.Integer())
	}
	if count != 3 {
		t.Fatalf("expected exactly 3 iterations before stop, got %d", count)
	}
}

func TestUntilRunsAtLeastOnce(t *testing.T) {
	var count int
	result, err := Until(func() (cell.Cell, error) {
		count++
		return intCell(int64(count)), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one iteration (truthy result stops immediately), got %d", count)
	}
	if result.Integer() != 1 {
		t.Fatalf("expected result 1, got %d", result.Integer())
	}
}

func TestEveryStopsFalseOnFirstFalsy(t *testing.T) {
	var count int
	values := []bool{true, true, false, true}
	result, err := Every(func() (bool, error) {
		ok := count < len(values)
		return ok, nil
	}, func() (cell.Cell, error) {
		v := values[count]
		count++
		var c cell.Cell
		cell.InitLogic(&c, v)
		return c, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Kind() != cell.KindLogic || result.Logic() {
		t.Fatalf("expected logic false once a falsy iteration is hit")
	}
	if count != 3 {
		t.Fatalf("expected early stop at the 3rd iteration, ran %d", count)
	}
}

func TestMapEachContinuedIterationStillContributesItsPayload(t *testing.T) {
	i := 0
	var seen []cell.Cell
	newArray := func(vs []cell.Cell) cell.Cell {
		seen = vs
		var out cell.Cell
		cell.InitInteger(&out, int64(len(vs)))
		return out
	}
	result, err := MapEach(func() (bool, error) {
		ok := i < 3
		return ok, nil
	}, func() (cell.Cell, error) {
		i++
		if i == 2 {
			var null cell.Cell
			cell.InitNull(&null)
			return cell.Cell{}, NewContinue(null)
		}
		return intCell(int64(i)), nil
	}, newArray)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Integer() != 3 {
		t.Fatalf("expected 3 collected elements including the continued one, got %d", result.Integer())
	}
	if seen[1].Kind() != cell.KindNull {
		t.Fatalf("expected the continued iteration to contribute its payload, got %s", seen[1].Kind())
	}
	if seen[0].Integer() != 1 || seen[2].Integer() != 3 {
		t.Fatalf("expected the surrounding iterations' own results, got %v %v", seen[0], seen[2])
	}
}

func TestMapEachCollectsOneResultPerIteration(t *testing.T) {
	i := 0
	newArray := func(vs []cell.Cell) cell.Cell {
		var out cell.Cell
		cell.InitInteger(&out, int64(len(vs)))
		return out
	}
	result, err := MapEach(func() (bool, error) {
		ok := i < 3
		return ok, nil
	}, func() (cell.Cell, error) {
		i++
		return intCell(int64(i)), nil
	}, newArray)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Integer() != 3 {
		t.Fatalf("expected collected count 3, got %d", result.Integer())
	}
}
