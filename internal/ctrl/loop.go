package ctrl

import "corelang/internal/cell"

// RunBody evaluates one loop iteration's body, returning the body's result
// value or a non-nil error (a *Thrown or a genuine failure).
type RunBody func() (cell.Cell, error)

// Next decides whether another iteration should run (and performs whatever
// side effect binds the loop variable(s) for that iteration) for a given
// loop variant's iteration source. A false/nil return ends the loop
// normally; a non-nil error aborts it.
type Next func() (bool, error)

// Drive applies the shared break/continue/blank/void contract to a
// sequence of iterations produced by next and run through body. Loop,
// Repeat, For, ForSkip, ForEach, MapEach, RemoveEach, While and WhileNot
// are thin wrappers supplying their own next/body pair to Drive; Every,
// Until, UntilNot and Cycle run their own iteration loops.
func Drive(next Next, body RunBody) (cell.Cell, error) {
	var last cell.Cell
	ran := false
	for {
		ok, err := next()
		if err != nil {
			return cell.Cell{}, err
		}
		if !ok {
			break
		}
		v, err := body()
		if err != nil {
			th, isThrown := AsThrown(err)
			if !isThrown {
				return cell.Cell{}, err
			}
			switch th.Signal {
			case SignalBreak:
				var null cell.Cell
				cell.InitNull(&null)
				return null, nil
			case SignalContinue:
				ran = true
				last = th.Payload
				continue
			default:
				return cell.Cell{}, err
			}
		}
		ran = true
		last = v
	}
	return finish(ran, last)
}

// finish applies post-loop convention: no iteration ran ->
// blank; otherwise the last body result, with null and blank promoted to
// void ("null result is reserved to signal break").
func finish(ran bool, last cell.Cell) (cell.Cell, error) {
	if !ran {
		var blank cell.Cell
		cell.InitBlank(&blank)
		return blank, nil
	}
	if last.Kind() == cell.KindNull || last.Kind() == cell.KindBlank {
		cell.InitVoid(&last)
	}
	return last, nil
}

// Loop runs body exactly n times (n<=0 runs zero times).
func Loop(n int64, body RunBody) (cell.Cell, error) {
	i := int64(0)
	return Drive(func() (bool, error) {
		if i >= n {
			return false, nil
		}
		i++
		return true, nil
	}, body)
}

// Repeat runs body n times, calling setVar with the 1-based iteration count
// before each run.
func Repeat(n int64, setVar func(int64) error, body RunBody) (cell.Cell, error) {
	i := int64(0)
	return Drive(func() (bool, error) {
		if i >= n {
			return false, nil
		}
		i++
		if setVar != nil {
			if err := setVar(i); err != nil {
				return false, err
			}
		}
		return true, nil
	}, body)
}

// For drives `for word start end bump`: setVar is called with the current
// numeric value before each iteration, stepping by bump until past end. A
// zero bump can never make progress and runs zero iterations.
func For(start, end, bump int64, setVar func(int64) error, body RunBody) (cell.Cell, error) {
	i := start
	return Drive(func() (bool, error) {
		if bump == 0 {
			return false, nil
		}
		if bump > 0 && i > end {
			return false, nil
		}
		if bump < 0 && i < end {
			return false, nil
		}
		cur := i
		i += bump
		if setVar != nil {
			if err := setVar(cur); err != nil {
				return false, err
			}
		}
		return true, nil
	}, body)
}

// ForSkip drives `for-skip word series n`: atEnd reports whether the cursor
// has reached the series tail, setVar binds the loop word to the current
// position, and advance moves the cursor by n items. The cursor itself
// belongs to the series layer; ForSkip only sequences the three calls
// through the common loop contract above.
func ForSkip(atEnd func() bool, setVar func() error, advance func() error, body RunBody) (cell.Cell, error) {
	return Drive(func() (bool, error) {
		if atEnd() {
			return false, nil
		}
		if setVar != nil {
			if err := setVar(); err != nil {
				return false, err
			}
		}
		return true, nil
	}, func() (cell.Cell, error) {
		v, err := body()
		if err != nil {
			return v, err
		}
		if advance != nil {
			if err := advance(); err != nil {
				return v, err
			}
		}
		return v, nil
	})
}

// ForEach drives `for-each vars data`: next performs the caller's own
// per-element variable binding and end-of-data test.
func ForEach(next Next, body RunBody) (cell.Cell, error) {
	return Drive(next, body)
}

// MapEach drives `map-each`, collecting each iteration's body result via
// newArray once the loop completes normally (broken loops still yield null,
// per the shared contract — a partial collection is not exposed). A
// continued iteration still contributes: its absorbed payload is appended
// here, before Drive's own continue handling moves on to the next
// iteration.
func MapEach(next Next, body RunBody, newArray func([]cell.Cell) cell.Cell) (cell.Cell, error) {
	var collected []cell.Cell
	result, err := Drive(next, func() (cell.Cell, error) {
		v, err := body()
		if err != nil {
			if th, ok := AsThrown(err); ok && th.Signal == SignalContinue {
				collected = append(collected, th.Payload)
			}
			return v, err
		}
		collected = append(collected, v)
		return v, nil
	})
	if err != nil {
		return result, err
	}
	if result.Kind() == cell.KindNull {
		return result, nil
	}
	return newArray(collected), nil
}

// Every drives `every`: the overall result is the last body value if every
// iteration's body was truthy, else logic false as soon as a falsy result is
// seen.
func Every(next Next, body RunBody) (cell.Cell, error) {
	var last cell.Cell
	ran := false
	for {
		ok, err := next()
		if err != nil {
			return cell.Cell{}, err
		}
		if !ok {
			break
		}
		v, err := body()
		if err != nil {
			th, isThrown := AsThrown(err)
			if !isThrown {
				return cell.Cell{}, err
			}
			switch th.Signal {
			case SignalBreak:
				var null cell.Cell
				cell.InitNull(&null)
				return null, nil
			case SignalContinue:
				v = th.Payload
			default:
				return cell.Cell{}, err
			}
		}
		ran = true
		if !cell.IsTruthy(&v) {
			var f cell.Cell
			cell.InitLogic(&f, false)
			return f, nil
		}
		last = v
	}
	if !ran {
		var blank cell.Cell
		cell.InitBlank(&blank)
		return blank, nil
	}
	return last, nil
}

// RemoveEach drives `remove-each`: whenever the body's result is truthy,
// remove is called to excise the current element from the backing series.
// The overall result is the count of elements removed.
func RemoveEach(next Next, body RunBody, remove func() error) (cell.Cell, error) {
	var count int64
	_, err := Drive(next, func() (cell.Cell, error) {
		v, err := body()
		if err != nil {
			return v, err
		}
		if cell.IsTruthy(&v) {
			if remove != nil {
				if err := remove(); err != nil {
					return v, err
				}
			}
			count++
		}
		return v, nil
	})
	if err != nil {
		return cell.Cell{}, err
	}
	var n cell.Cell
	cell.InitInteger(&n, count)
	return n, nil
}

// While drives `while [cond] body`: test is re-evaluated before every
// iteration.
func While(test Next, body RunBody) (cell.Cell, error) {
	return Drive(test, body)
}

// WhileNot drives `while-not [cond] body`, looping while test reports false.
func WhileNot(test Next, body RunBody) (cell.Cell, error) {
	return Drive(func() (bool, error) {
		ok, err := test()
		return !ok, err
	}, body)
}

// Until drives `until body`: a post-condition loop that runs body at least
// once and stops once the body's own result becomes truthy.
func Until(body RunBody) (cell.Cell, error) {
	return postCondition(body, func(v *cell.Cell) bool { return cell.IsTruthy(v) })
}

// UntilNot drives `until-not body`, stopping once the body's result becomes
// falsy.
func UntilNot(body RunBody) (cell.Cell, error) {
	return postCondition(body, func(v *cell.Cell) bool { return !cell.IsTruthy(v) })
}

func postCondition(body RunBody, stop func(*cell.Cell) bool) (cell.Cell, error) {
	var last cell.Cell
	ran := false
	for {
		v, err := body()
		if err != nil {
			th, isThrown := AsThrown(err)
			if !isThrown {
				return cell.Cell{}, err
			}
			switch th.Signal {
			case SignalBreak:
				var null cell.Cell
				cell.InitNull(&null)
				return null, nil
			case SignalContinue:
				v = th.Payload
			default:
				return cell.Cell{}, err
			}
		}
		ran = true
		last = v
		if stop(&v) {
			break
		}
	}
	return finish(ran, last)
}

// Cycle drives `cycle body`, the only loop that accepts a value-bearing
// stop via the STOP action; it never ends on its own.
func Cycle(body RunBody) (cell.Cell, error) {
	for {
		_, err := body()
		if err == nil {
			continue
		}
		th, isThrown := AsThrown(err)
		if !isThrown {
			return cell.Cell{}, err
		}
		switch th.Signal {
		case SignalBreak:
			var null cell.Cell
			cell.InitNull(&null)
			return null, nil
		case SignalStop:
			return th.Payload, nil
		case SignalContinue:
			continue
		default:
			return cell.Cell{}, err
		}
	}
}
