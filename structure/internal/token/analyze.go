package token

import (
	"github.com/wippyai/rawpack/errors"
)

// Analyze annotates a token tree with slot indices and shape determinacy,
// and validates every internal reference. When unsafe is false (the
// default), references whose target cannot be attributed statically are
// rejected; unsafe mode admits them and leaves resolution to run time.
//
// Slot indexing counts one slot per value a token emits into its scope's
// value vector: a repeat-counted scalar emits count slots, sized and
// substructure elements emit one, layout-only elements emit none.
func Analyze(tokens []Token, format string, unsafe bool) error {
	_, err := analyzeScope(tokens, format, unsafe)
	return err
}

// entry records a token whose slot span is statically countable.
type entry struct {
	tok *Token
	// slot of the token's first value counted from the scope start; -1
	// when an interruption occurred earlier in the scope
	abs int
	// slot of the token's first value counted from the last interruption
	rel int
	// number of slots the token emits
	width int
}

func analyzeScope(tokens []Token, format string, unsafe bool) (Det, error) {
	scopeDet := DetFixed

	// countable-slot bookkeeping: first is the number of slots before the
	// first interruption, last the number since the latest one
	first := 0
	last := 0
	cut := false
	var entries []entry

	for i := range tokens {
		tok := &tokens[i]

		childDet := DetFixed
		if tok.Kind.IsSub() {
			var err error
			childDet, err = analyzeScope(tok.Children, format, unsafe)
			if err != nil {
				return 0, err
			}
		}

		// shape determinacy of this token, subtree included
		det := childDet
		switch tok.Kind {
		case KindString0, KindRest, KindLoop:
			det = DetDynamic
		}
		switch tok.Count.Ref {
		case RefExternal:
			det = maxDet(det, DetExternal)
		case RefAbsolute, RefRelative:
			det = DetDynamic
		}
		tok.Shape = det
		scopeDet = maxDet(scopeDet, det)

		if !cut {
			tok.Slot = first
		} else {
			tok.Slot = -1
		}

		switch tok.Count.Ref {
		case RefAbsolute:
			if err := checkAbsolute(tok, format, first, last, cut, entries, unsafe); err != nil {
				return 0, err
			}
		case RefRelative:
			if err := checkRelative(tok, format, last, cut, entries, unsafe); err != nil {
				return 0, err
			}
		}

		// interruption: a token whose emitted slot count, or the
		// attributability of the slots behind it, cannot be established
		// from the format alone
		interrupts := false
		switch {
		case tok.Kind.Mode() == CountRepeat && tok.Count.Ref != RefNone:
			interrupts = true
		case tok.Kind == KindString0 || tok.Kind == KindRest || tok.Kind == KindLoop:
			interrupts = true
		case tok.Kind.IsSub() && childDet == DetDynamic:
			interrupts = true
		}

		if interrupts {
			cut = true
			last = 0
			continue
		}

		w := tok.Kind.Slots(tok.Count.Value)
		if w > 0 {
			e := entry{tok: tok, rel: last, width: w, abs: -1}
			if !cut {
				e.abs = first
			}
			entries = append(entries, e)
		}
		last += w
		if !cut {
			first += w
		}
	}

	return scopeDet, nil
}

func checkAbsolute(tok *Token, format string, first, last int, cut bool, entries []entry, unsafe bool) error {
	n := tok.Count.Value
	if !cut && n >= last {
		return errors.BadReference(errors.PhaseAnalyze, format, tok.Excerpt(), tok.Pos,
			"absolute reference /%d points at or after the referring element", n)
	}
	if cut && n >= first {
		if !unsafe {
			return errors.UnsafeReference(format, tok.Excerpt(), tok.Pos,
				"absolute reference points into or past an element of indeterminate shape; use unsafe references if this is intended")
		}
		return nil
	}
	// target lies in the countable prefix
	return checkTarget(tok, format, func(e entry) bool {
		return e.abs >= 0 && n >= e.abs && n < e.abs+e.width
	}, entries)
}

func checkRelative(tok *Token, format string, last int, cut bool, entries []entry, unsafe bool) error {
	n := tok.Count.Value
	if n < 1 {
		return errors.BadReference(errors.PhaseAnalyze, format, tok.Excerpt(), tok.Pos,
			"relative reference offset must be at least 1 (the immediately preceding element is /p1)")
	}
	if n > last {
		if !cut {
			return errors.BadReference(errors.PhaseAnalyze, format, tok.Excerpt(), tok.Pos,
				"relative reference /p%d points before the beginning of its scope", n)
		}
		if !unsafe {
			return errors.UnsafeReference(format, tok.Excerpt(), tok.Pos,
				"relative reference points into or past an element of indeterminate shape; use unsafe references if this is intended")
		}
		return nil
	}
	slot := last - n
	return checkTarget(tok, format, func(e entry) bool {
		return slot >= e.rel && slot < e.rel+e.width
	}, entries)
}

func checkTarget(tok *Token, format string, covers func(entry) bool, entries []entry) error {
	for i := len(entries) - 1; i >= 0; i-- {
		if covers(entries[i]) {
			target := entries[i].tok
			if !target.Kind.Referencable() {
				return errors.BadReference(errors.PhaseAnalyze, format, tok.Excerpt(), tok.Pos,
					"reference target '%s' is not an integer element", target.Excerpt())
			}
			return nil
		}
	}
	// the slot exists but no entry covers it; only reachable through an
	// element that emits values without being countable, which interrupts
	return errors.BadReference(errors.PhaseAnalyze, format, tok.Excerpt(), tok.Pos,
		"reference target cannot be attributed to an element")
}
