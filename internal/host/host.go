// Package host implements the embedding API: the surface a host program
// presents evaluation requests through (evaluate, apply, redo,
// step_evaluate, init/shutdown), wiring together every lower layer
// (cell/ser/paramspec/frame/ctrl/action/eval) that is otherwise built to
// avoid importing each other.
//
// Grounded on cmd/sentra/main.go's top-level command dispatch (a single
// entry point owning the VM instance and routing each request to it) and
// internal/repl/repl.go's read-eval-print loop shape, generalized from one
// concrete VM type to this module's cell/frame/action/eval stack. A
// scanner/loader external to package host is modeled here as the Loader
// seam: package host never parses source text itself, it only knows how
// to hand a pre-scanned block to the evaluator.
package host

import (
	"io"
	"os"

	"corelang/internal/action"
	"corelang/internal/cell"
	"corelang/internal/ctrl"
	"corelang/internal/eval"
	"corelang/internal/frame"
	"corelang/internal/paramspec"
	"corelang/internal/rterr"
	"corelang/internal/ser"
	"corelang/internal/sym"
)

// Loader is the external collaborator: given raw source text it returns a
// pre-scanned block of cells. Evaluate calls this only for
// text/binary/tag sources; a Host with no Loader configured fails
// with a typed syntax error for those source kinds, since the scanner
// itself is out of this module's scope.
type Loader interface {
	Load(source string) (*ser.Array, error)
}

// Host is one embedding session: its interned-symbol table, call stack,
// root ("system") object, and optional Loader. Stdout receives PRINT/PROBE
// output and defaults to the process's standard output.
type Host struct {
	Symbols *sym.Table
	Stack   *frame.Stack
	Root    *ser.Context
	Loader  Loader
	Stdout  io.Writer
}

// Init initializes a fresh embedding session: a fresh symbol table, the
// root system object, and an empty call stack. loader may be nil if the
// embedding program never evaluates text/binary/tag sources.
func Init(loader Loader) *Host {
	tbl := sym.NewTable()
	// The root keylist is sized up front for every stdlib name, rather than grown incrementally as
	// RegisterStdlib runs.
	root := ser.NewContext(cell.KindObject, buildRootKeylist(tbl))
	h := &Host{Symbols: tbl, Stack: frame.NewStack(), Root: root, Loader: loader, Stdout: os.Stdout}
	RegisterStdlib(h)
	return h
}

// Shutdown frees the host's roots and asserts no call-stack frame or
// refinement-stack entry leaked. Go's own collector reclaims every series
// and context this module allocated; what Shutdown actually checks is the
// bookkeeping this module is responsible for keeping balanced on every
// exit path.
func (h *Host) Shutdown() error {
	if h.Stack.Top != nil {
		return rterr.Internal("shutdown: call stack not empty, a frame was never dropped")
	}
	if h.Stack.Data.DSP() != 0 {
		return rterr.Internal("shutdown: data stack not empty, a refinement push was never restored")
	}
	h.Symbols = nil
	h.Root = nil
	return nil
}

// Flags carries evaluate's reserved modifier bits. None are defined yet;
// the type exists so Evaluate's signature matches the general
// `value = evaluate(source, args, flags)` shape without inventing behavior
// nothing here exercises.
type Flags uint8

// RunProgram is the outermost evaluation entry: EvalBlock plus the host
// boundary's throw policy. A BREAK/CONTINUE/RETURN/STOP or user THROW that
// escapes its intended loop or action has no catch site left by the time it
// reaches the host, so it surfaces as a typed "no catch for throw" error
// rather than leaking the throw protocol into the embedding program.
func (h *Host) RunProgram(arr *ser.Array) (cell.Cell, error) {
	var out cell.Cell
	if err := h.EvalBlock(&out, arr); err != nil {
		if th, ok := ctrl.AsThrown(err); ok {
			return cell.Cell{}, rterr.NoCatch(th.Signal.String())
		}
		return cell.Cell{}, err
	}
	return out, nil
}

// EvalBlock evaluates arr to completion at top level (no enclosing
// action): the block/group evaluated-to-end case. A freshly submitted
// program's words are not yet bound to anything (the scanner/loader that
// would normally stamp a default lexical scope onto scanned source is out
// of this module's scope); EvalBlock gives every still-unbound word in arr
// an absolute binding to h.Root before stepping, the same default scope a
// loaded script's words would carry.
func (h *Host) EvalBlock(out *cell.Cell, arr *ser.Array) error {
	fr := &frame.Frame{Owner: h.Stack}
	bound := bindProgramToRoot(arr, h.Root)
	return eval.EvalArrayToEnd(out, bound, fr)
}

// bindProgramToRoot returns a copy of arr with every still-unbound word-
// family cell (recursing into nested blocks/groups/paths) bound absolutely
// to root. A cell that already carries a binding — because some earlier
// stage deliberately bound it relative to a frame, e.g. a function's own
// compiled body — is left exactly as it was; only freshly scanned, unbound
// words default to global scope.
//
// A set-word additionally DECLARES its word: an unseen symbol gets a fresh
// root slot (initially blank) so the later assignment has somewhere to
// land, the way a loaded script's top-level definitions extend the user
// context. Plain words never extend the root — reading a word that was
// never declared stays a "word has no value" error.
func bindProgramToRoot(arr *ser.Array, root *ser.Context) *ser.Array {
	out := ser.NewArray(arr.Len(), arr.Flavor())
	for i := 0; i < arr.Len(); i++ {
		c := *arr.At(i)
		switch c.Kind() {
		case cell.KindSetWord:
			if c.Binding().Kind == cell.Unbound {
				declareGlobal(root, c.Symbol())
				c.SetBinding(cell.Binding{Kind: cell.BoundAbsolute, Context: root})
			}
		case cell.KindWord, cell.KindGetWord, cell.KindLitWord:
			if c.Binding().Kind == cell.Unbound {
				c.SetBinding(cell.Binding{Kind: cell.BoundAbsolute, Context: root})
			}
		case cell.KindBlock, cell.KindGroup, cell.KindPath, cell.KindSetPath, cell.KindGetPath:
			// Paths recurse too: a path's head word needs the same default
			// scope as a bare word in the program.
			if nested, ok := c.Payload().(*ser.Array); ok {
				rebound := bindProgramToRoot(nested, root)
				cell.InitArray(&c, c.Kind(), rebound)
			}
		}
		out.Append(c)
	}
	return out
}

// declareGlobal gives s a root slot if it has none yet. The keylist grown
// here is the root's own, never a shared paramlist.
func declareGlobal(root *ser.Context, s sym.Symbol) {
	if _, ok := root.GetWord(s); ok {
		return
	}
	var kc cell.Cell
	cell.InitObject(&kc, cell.KindTypeset, &globalKey{sym: s})
	root.Extend(kc)
}

// Evaluate implements `evaluate(source, args, flags)`,
// dispatching on source's kind per the named cases. args is consulted only
// by the Action case (forwarded to Apply as the call's definition block).
func (h *Host) Evaluate(source cell.Cell, args *ser.Array, flags Flags) (cell.Cell, error) {
	switch source.Kind() {
	case cell.KindBlock, cell.KindGroup:
		arr, _ := source.Payload().(*ser.Array)
		var out cell.Cell
		if err := h.EvalBlock(&out, arr); err != nil {
			return cell.Cell{}, err
		}
		return out, nil

	case cell.KindVarargs:
		// A materialized varargs source is treated as an already-scanned
		// block, its only observable behavior here.
		arr, _ := source.Payload().(*ser.Array)
		var out cell.Cell
		if err := h.EvalBlock(&out, arr); err != nil {
			return cell.Cell{}, err
		}
		return out, nil

	case cell.KindText, cell.KindBinary, cell.KindTag:
		if h.Loader == nil {
			return cell.Cell{}, rterr.Syntax("no Loader configured for a text/binary/tag source")
		}
		arr, err := h.Loader.Load(source.Text())
		if err != nil {
			return cell.Cell{}, err
		}
		var out cell.Cell
		if err := h.EvalBlock(&out, arr); err != nil {
			return cell.Cell{}, err
		}
		return out, nil

	case cell.KindAction:
		act := action.FromCell(&source)
		if act == nil {
			return cell.Cell{}, rterr.Internal("action cell missing identity")
		}
		if args == nil {
			args = ser.NewArray(0, ser.FlavorPlain)
		}
		return h.Apply(act, args, true)

	case cell.KindFrame:
		fr, _ := source.Payload().(*frame.Frame)
		if fr == nil {
			return cell.Cell{}, rterr.Internal("frame value missing payload")
		}
		return h.Redo(fr, nil)

	case cell.KindError:
		errVal, _ := source.Payload().(*rterr.Error)
		if errVal == nil {
			return cell.Cell{}, rterr.Internal("error value missing payload")
		}
		return cell.Cell{}, errVal

	default:
		return cell.Cell{}, rterr.New(rterr.KindScript, "bad-do-arg", "cannot evaluate a %s value", source.Kind())
	}
}

// Cursor is step_evaluate's source_in_out: an array plus a cursor position
// that Evaluate's single-step form advances in place.
type Cursor struct {
	Arr  *ser.Array
	feed *frame.Feed
}

// NewCursor starts a Cursor at the head of arr, exactly as given — callers
// that already bound arr's words themselves (e.g. to a non-root context)
// use this form directly.
func NewCursor(arr *ser.Array) *Cursor {
	return &Cursor{Arr: arr, feed: frame.NewFeed(arr)}
}

// NewCursor starts a Cursor over a copy of arr whose still-unbound words
// default to h.Root, the same default scope EvalBlock gives a fresh
// top-level program.
func (h *Host) NewCursor(arr *ser.Array) *Cursor {
	bound := bindProgramToRoot(arr, h.Root)
	return &Cursor{Arr: bound, feed: frame.NewFeed(bound)}
}

// Index reports the cursor's current position within Arr.
func (c *Cursor) Index() int { return c.feed.Index() }

// StepEvaluate implements `step_evaluate(source_in_out,
// set_var?)`: it steps cur once, optionally assigning the stepped value via
// setVar, and returns (value, false, nil) once nothing remains.
func (h *Host) StepEvaluate(cur *Cursor, setVar func(cell.Cell) error) (cell.Cell, bool, error) {
	if cur.feed.AtEnd() {
		return cell.Cell{}, false, nil
	}
	fr := &frame.Frame{Owner: h.Stack, Feed: cur.feed}
	var v cell.Cell
	res, err := eval.Step(&v, fr)
	for err == nil && res == eval.ResultInvisible {
		res, err = eval.Step(&v, fr)
	}
	if err != nil {
		return cell.Cell{}, false, err
	}
	if res == eval.ResultEnd {
		return cell.Cell{}, false, nil
	}
	if setVar != nil {
		if err := setVar(v); err != nil {
			return cell.Cell{}, false, err
		}
	}
	return v, true, nil
}

// Apply implements `apply(action, definition_block,
// opt_nulls_as_args?)`: build a frame from action, bind definition's
// set-words to its paramlist slots by name, evaluate definition (which
// performs those assignments plus any other expressions it contains), then
// invoke. Per DESIGN.md's Open Question decision, refinement ordering
// inside definition always follows paramlist order — only the path-dispatch
// route honors call-site order.
func (h *Host) Apply(act *action.Action, definition *ser.Array, optNullsAsArgs bool) (cell.Cell, error) {
	var out cell.Cell
	fr := h.Stack.Push(act, &out, frame.NewFeed(nil))
	defer h.Stack.Drop(fr)

	pl := act.ParamList()
	n := pl.Len()
	for slot := 1; slot <= n; slot++ {
		var v cell.Cell
		switch pl.ParamAt(slot).Class {
		case paramspec.ClassLocal:
			cell.InitVoid(&v)
		case paramspec.ClassReturn:
			// The same definitional-return marker argument fulfillment
			// installs: `return x` inside the applied body exits this call.
			cell.InitAction(&v, nil)
			v.SetBinding(cell.Binding{Kind: cell.BoundRelative, Action: act.Identity()})
		default:
			cell.InitNull(&v)
		}
		cell.Move(fr.Ctx.VarAt(slot), &v)
	}

	bound := bindToContext(definition, fr.Ctx)
	if err := eval.EvalArrayToEnd(&fr.Spare, bound, fr); err != nil {
		return cell.Cell{}, err
	}

	for slot := 1; slot <= n; slot++ {
		p := pl.ParamAt(slot)
		if p.Class == paramspec.ClassRefinement || p.Class == paramspec.ClassLocal || p.Class == paramspec.ClassReturn {
			continue
		}
		v := fr.Ctx.VarAt(slot)
		if v.Kind() == cell.KindNull {
			if p.RefinementArg {
				// Null here means the governing refinement was left unset
				// by definition, not a missing required argument;
				// RefinementArg params can never declare <opt> themselves,
				// so AcceptsNull() is always false for them.
				continue
			}
			if optNullsAsArgs || p.AcceptsNull() {
				continue
			}
			return cell.Cell{}, rterr.New(rterr.KindScript, "no-arg", "apply: no value provided for a required argument")
		}
		if !p.Accepts(v) {
			return cell.Cell{}, rterr.ArgumentType("apply-arg", "apply")
		}
		v.SetFlag(cell.FlagArgMarkedChecked)
	}

	if err := dispatchLoop(fr, act); err != nil {
		return cell.Cell{}, err
	}
	return out, nil
}

// dispatchLoop dispatches act against fr, honoring Redo requests the way
// the feed-driven evaluator does — except that with no caller feed there is
// nothing left to gather, so a Redo-Checked simply re-dispatches the new
// phase over the already-filled (and already arg-marked-checked) slots. A
// definitional RETURN whose label matches the phase currently dispatching
// is absorbed as the call's ordinary result.
func dispatchLoop(fr *frame.Frame, act *action.Action) error {
	for {
		fr.State = frame.Dispatching
		_, err := act.Dispatch()(fr)
		if err != nil {
			if caught, cerr := eval.CatchOwnReturn(fr, act, err); caught {
				return cerr
			}
			return err
		}
		switch fr.Redo {
		case frame.RedoChecked, frame.RedoUnchecked:
			fr.Redo = frame.RedoNone
			na, ok := fr.Phase.(*action.Action)
			if !ok {
				return rterr.Internal("redo requested without a phase action")
			}
			act = na
		default:
			return nil
		}
	}
}

// Redo implements `redo(frame_or_word, optional_sibling)`:
// restart a currently-running (not-yet-dropped) frame, optionally swapping
// in sibling as its new phase and, when it does, revalidating arguments
// against sibling's typesets (the Redo-Checked variant).
func (h *Host) Redo(fr *frame.Frame, sibling *action.Action) (cell.Cell, error) {
	if fr.Ctx.Varlist().Inaccessible() {
		return cell.Cell{}, rterr.ExpiredFrame("redo target")
	}
	phase := fr.Phase
	if sibling != nil {
		phase = sibling
	}
	act, ok := phase.(*action.Action)
	if !ok {
		return cell.Cell{}, rterr.Internal("redo target has no dispatcher")
	}
	if sibling != nil {
		pl := act.ParamList()
		for slot := 1; slot <= pl.Len(); slot++ {
			p := pl.ParamAt(slot)
			if p.Class == paramspec.ClassRefinement || p.Class == paramspec.ClassLocal || p.Class == paramspec.ClassReturn {
				continue
			}
			if !p.Accepts(fr.Ctx.VarAt(slot)) {
				return cell.Cell{}, rterr.ArgumentType("redo-arg", "redo")
			}
		}
	}
	fr.Phase = act
	if err := dispatchLoop(fr, act); err != nil {
		return cell.Cell{}, err
	}
	return *fr.Out, nil
}

// bindToContext returns a shallow copy of arr with every word/set-word cell
// absolutely bound to ctx, the mechanism Apply uses to let a definition
// block's set-words reach a frame's argument slots by name.
func bindToContext(arr *ser.Array, ctx *ser.Context) *ser.Array {
	out := ser.NewArray(arr.Len(), ser.FlavorPlain)
	for i := 0; i < arr.Len(); i++ {
		c := *arr.At(i)
		if c.Kind() == cell.KindWord || c.Kind() == cell.KindSetWord || c.Kind() == cell.KindGetWord {
			c.SetBinding(cell.Binding{Kind: cell.BoundAbsolute, Context: ctx})
		}
		out.Append(c)
	}
	return out
}
