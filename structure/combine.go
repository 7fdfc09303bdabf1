package structure

import (
	"github.com/wippyai/rawpack/errors"
	"github.com/wippyai/rawpack/structure/internal/token"
)

// Concat builds a new structure that decodes s, then other on the
// remainder. Absolute references on the right side are shifted by the left
// side's top-level slot count and external references by its external
// reference count, so both keep pointing at their original targets.
func (s *Struct) Concat(other *Struct) (*Struct, error) {
	if err := noTerminal(s.format, s.tokens); err != nil {
		return nil, err
	}

	leftSlots, leftKnown := token.TopSlots(s.tokens)
	if !leftKnown && hasTopAbsolute(other.tokens) {
		return nil, errors.New(errors.PhaseCombine, errors.KindIndeterminate).
			Format(s.format).
			Detail("the left structure holds an indeterminate number of elements, impossible to shift right-side absolute references").
			Build()
	}
	leftExternals := token.MaxExternal(s.tokens) + 1

	out := token.Clone(s.tokens)
	right := token.Clone(other.tokens)
	for i := range right {
		if right[i].Count.Ref == token.RefAbsolute {
			right[i].Count.Value += leftSlots
		}
	}
	token.ShiftExternals(right, leftExternals)
	out = append(out, right...)

	return s.rebuild(out, other)
}

// Repeat builds a new structure equivalent to k concatenated copies of s,
// with each copy's references renumbered to point into that copy.
func (s *Struct) Repeat(k int) (*Struct, error) {
	if k < 0 {
		return nil, errors.New(errors.PhaseCombine, errors.KindSyntax).
			Format(s.format).
			Detail("repetition count %d is negative", k).
			Build()
	}
	if err := noTerminal(s.format, s.tokens); err != nil {
		return nil, err
	}

	blockSlots, known := token.TopSlots(s.tokens)
	if k > 1 && !known && hasTopAbsolute(s.tokens) {
		return nil, errors.New(errors.PhaseCombine, errors.KindIndeterminate).
			Format(s.format).
			Detail("the repeated structure holds an indeterminate number of elements, impossible to shift absolute references").
			Build()
	}
	blockExternals := token.MaxExternal(s.tokens) + 1

	var out []token.Token
	for c := 0; c < k; c++ {
		copyToks := token.Clone(s.tokens)
		for i := range copyToks {
			if copyToks[i].Count.Ref == token.RefAbsolute {
				copyToks[i].Count.Value += c * blockSlots
			}
		}
		token.ShiftExternals(copyToks, c*blockExternals)
		out = append(out, copyToks...)
	}

	return s.rebuild(out, s)
}

// rebuild re-analyzes a combined token list and derives the new format
// string from it. Byte order follows the left operand when it forces one,
// otherwise the right operand's marker when it has one.
func (s *Struct) rebuild(toks []token.Token, right *Struct) (*Struct, error) {
	unsafe := s.unsafe || right.unsafe
	order, forced := s.order, s.forced
	if !forced && right.forced {
		order, forced = right.order, true
	}
	format := token.Render(toks)
	if forced {
		if format == "" {
			format = string(order.Marker())
		} else {
			format = string(order.Marker()) + " " + format
		}
	}
	if err := token.Analyze(toks, format, unsafe); err != nil {
		return nil, err
	}
	return &Struct{
		format: format,
		tokens: toks,
		names:  s.names,
		order:  order,
		forced: forced,
		unsafe: unsafe,
	}, nil
}

func noTerminal(format string, toks []token.Token) error {
	for i := range toks {
		switch toks[i].Kind {
		case token.KindLoop, token.KindRest:
			return errors.New(errors.PhaseCombine, errors.KindMisplaced).
				Format(format).
				Excerpt(toks[i].Excerpt(), toks[i].Pos).
				Detail("%s", "'"+string(toks[i].Kind.Symbol())+"' forces the end of the structure; it cannot end up in the middle of a combined structure").
				Build()
		}
	}
	return nil
}

func hasTopAbsolute(toks []token.Token) bool {
	for i := range toks {
		if toks[i].Count.Ref == token.RefAbsolute {
			return true
		}
	}
	return false
}
