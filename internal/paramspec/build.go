package paramspec

import (
	"corelang/internal/cell"
	"corelang/internal/rterr"
	"corelang/internal/ser"
	"corelang/internal/sym"
)

// mode tracks which section of the spec block the scanner is in.
type mode uint8

const (
	modeParams mode = iota
	modeLocal
	modeWith
)

// scanned is one pass-one entry: a parameter under construction, in
// declaration order (locals and refinement args interleaved as written).
type scanned struct {
	param *Param
}

// Build compiles spec (a *ser.Array of spec-block cells) into a ParamList.
// wantsReturn requests a synthetic return slot be appended when the spec
// declared no explicit `return:`.
//
// Recognized element kinds:
//   text          -> description (first position) or current param's note
//   block          -> type constraint attached to current param
//   word           -> normal parameter (or local/with, depending on mode)
//   get-word       -> hard-quote parameter
//   lit-word       -> soft-quote parameter
//   issue          -> tight parameter
//   refinement     -> begins a refinement section
//   set-word       -> local parameter
//   tag <local>    -> switches to local mode until the next refinement
//   tag <with>     -> switches to with mode until the next refinement
//   tag <void>     -> marks the action as voidifying its output
func Build(tbl *sym.Table, spec *ser.Array, wantsReturn bool) (*ParamList, error) {
	var (
		scan         []scanned
		description  string
		notes        = map[sym.Symbol]string{}
		withWords    []sym.Symbol
		voidify      bool
		curMode      = modeParams
		lastWasBlock bool
		explicitRet  *Param
		inRefinement bool
	)
	binder := sym.NewBinder()

	attachNote := func(text string) error {
		if len(scan) == 0 {
			if description == "" {
				description = text
				return nil
			}
			return rterr.BadSpecBlock("text with no preceding parameter")
		}
		notes[scan[len(scan)-1].param.Sym] = text
		return nil
	}

	attachType := func(bits uint64) error {
		if len(scan) == 0 {
			binder.Reset()
			return rterr.BadSpecBlock("type block before any parameter")
		}
		p := scan[len(scan)-1].param
		if p.Class == ClassLocal {
			binder.Reset()
			return rterr.BadSpecBlock("type block on a local parameter")
		}
		if p.Class == ClassHardQuote && bits&AcceptsNullBit != 0 {
			binder.Reset()
			return rterr.BadSpecBlock("hard-quoted parameter may not declare <opt>")
		}
		if p.RefinementArg && bits&AcceptsNullBit != 0 {
			binder.Reset()
			return rterr.BadSpecBlock("refinement argument may not declare <opt>")
		}
		p.Types = bits
		return nil
	}

	declare := func(s sym.Symbol, class ParamClass) error {
		if _, fresh := binder.Bind(s, len(scan)+1); !fresh {
			binder.Reset()
			return rterr.DuplicateVariable(tbl.Spelling(s))
		}
		scan = append(scan, scanned{param: &Param{Sym: s, Class: class}})
		return nil
	}

	for i := 0; i < spec.Len(); i++ {
		c := spec.At(i)
		switch c.Kind() {
		case cell.KindText:
			if err := attachNote(c.Text()); err != nil {
				return nil, err
			}
			lastWasBlock = false

		case cell.KindBlock:
			if lastWasBlock {
				binder.Reset()
				return nil, rterr.BadSpecBlock("two consecutive type blocks")
			}
			bits, err := readTypeBlock(c)
			if err != nil {
				binder.Reset()
				return nil, err
			}
			if err := attachType(bits); err != nil {
				return nil, err
			}
			lastWasBlock = true

		case cell.KindTag:
			lastWasBlock = false
			switch c.Tag() {
			case "local":
				curMode = modeLocal
				inRefinement = false
			case "with":
				curMode = modeWith
				inRefinement = false
			case "void":
				voidify = true
			default:
				binder.Reset()
				return nil, rterr.BadSpecBlock("unrecognized mode tag " + c.Tag())
			}

		case cell.KindRefinement:
			lastWasBlock = false
			curMode = modeParams
			if err := declare(c.Symbol(), ClassRefinement); err != nil {
				return nil, err
			}
			inRefinement = true

		case cell.KindSetWord:
			lastWasBlock = false
			if c.Symbol() == returnSym(tbl) {
				if err := declare(c.Symbol(), ClassReturn); err != nil {
					return nil, err
				}
				explicitRet = scan[len(scan)-1].param
				continue
			}
			if err := declare(c.Symbol(), ClassLocal); err != nil {
				return nil, err
			}

		case cell.KindGetWord:
			lastWasBlock = false
			if err := declare(c.Symbol(), ClassHardQuote); err != nil {
				return nil, err
			}
			scan[len(scan)-1].param.RefinementArg = inRefinement

		case cell.KindLitWord:
			lastWasBlock = false
			if err := declare(c.Symbol(), ClassSoftQuote); err != nil {
				return nil, err
			}
			scan[len(scan)-1].param.RefinementArg = inRefinement

		case cell.KindIssue:
			lastWasBlock = false
			if err := declare(c.Symbol(), ClassTight); err != nil {
				return nil, err
			}
			scan[len(scan)-1].param.RefinementArg = inRefinement

		case cell.KindWord:
			lastWasBlock = false
			switch curMode {
			case modeLocal:
				if err := declare(c.Symbol(), ClassLocal); err != nil {
					return nil, err
				}
			case modeWith:
				withWords = append(withWords, c.Symbol())
			default:
				if err := declare(c.Symbol(), ClassNormal); err != nil {
					return nil, err
				}
				scan[len(scan)-1].param.RefinementArg = inRefinement
			}

		default:
			binder.Reset()
			return nil, rterr.BadSpecBlock("unexpected element in spec block")
		}
	}
	binder.Reset()

	if explicitRet != nil {
		explicitRet.Mods |= ModUnbindable
		if explicitRet.Types == 0 {
			explicitRet.Types = ^uint64(0)
		}
	} else if wantsReturn {
		retSym, _ := tbl.Lookup("return")
		if retSym == 0 {
			retSym = tbl.Intern("return")
		}
		scan = append(scan, scanned{param: &Param{
			Sym: retSym, Class: ClassReturn, Types: ^uint64(0), Mods: ModUnbindable,
		}})
	}

	// Pass two: emit, with the return parameter moved to the tail slot —
	// the return parameter is always the last slot.
	var ordered []*Param
	var ret *Param
	for _, s := range scan {
		if s.param.Class == ClassReturn {
			ret = s.param
			continue
		}
		if s.param.Class == ClassLocal {
			s.param.Mods |= ModUnbindable
		}
		ordered = append(ordered, s.param)
	}
	if ret != nil {
		ordered = append(ordered, ret)
	}

	// The paramlist array IS the keylist shared with every frame/context
	// built to call this action — so
	// slot 0 is the archetype cell and slots 1..n carry the typeset
	// descriptors directly, rather than a separate keylist array.
	paramlist := ser.NewArray(len(ordered)+1, ser.FlavorParamlist)
	var archetype cell.Cell
	cell.InitAction(&archetype, nil) // action identity filled in by internal/action
	paramlist.Append(archetype)
	for _, p := range ordered {
		var kc cell.Cell
		cell.InitObject(&kc, cell.KindTypeset, p)
		paramlist.Append(kc)
	}

	var meta *Meta
	if description != "" || len(notes) > 0 || len(withWords) > 0 || voidify {
		meta = &Meta{Description: description, ParameterNotes: notes, With: withWords}
	}
	_ = voidify // consumed by the action builder when wiring the voider dispatcher

	return &ParamList{Array: paramlist, Meta: meta}, nil
}

// Voidify reports whether the spec block carried a <void> mode tag. Callers
// building an action from this ParamList read this before constructing the
// details array so they can choose the voider dispatcher variant.
func Voidify(spec *ser.Array) bool {
	for i := 0; i < spec.Len(); i++ {
		if c := spec.At(i); c.Kind() == cell.KindTag && c.Tag() == "void" {
			return true
		}
	}
	return false
}

func returnSym(tbl *sym.Table) sym.Symbol {
	s, ok := tbl.Lookup("return")
	if !ok {
		return tbl.Intern("return")
	}
	return s
}

// readTypeBlock reads a type-constraint block's contents into a typeset
// bitset. Datatype cells contribute their named kind's bit; <opt> and <end>
// tags contribute the null/end sentinel bits.
func readTypeBlock(block *cell.Cell) (uint64, error) {
	arr, ok := block.Payload().(*ser.Array)
	if !ok {
		return 0, rterr.BadSpecBlock("type block payload is not an array")
	}
	var bits uint64
	for i := 0; i < arr.Len(); i++ {
		c := arr.At(i)
		switch c.Kind() {
		case cell.KindDatatype:
			bits |= KindBit(c.DatatypeKind())
		case cell.KindTag:
			switch c.Tag() {
			case "opt":
				bits |= AcceptsNullBit
			case "end":
				bits |= AcceptsEndBit
			default:
				return 0, rterr.BadSpecBlock("unrecognized type-block tag " + c.Tag())
			}
		default:
			return 0, rterr.BadSpecBlock("type block may only contain datatypes and <opt>/<end>")
		}
	}
	return bits, nil
}
