package structure

import (
	"github.com/wippyai/rawpack/errors"
	"github.com/wippyai/rawpack/structure/internal/token"
)

// Calcsize returns the number of bytes the structure codes for. It fails
// with a format error when the size depends on the data being decoded:
// null-terminated strings, rest-of-stream, unbounded iterators, absolute
// or relative references. External references resolve against refdata;
// with no refdata supplied they too are indeterminate.
func (s *Struct) Calcsize(refdata ...int) (int, error) {
	return s.sizeScope(s.tokens, refdata)
}

func (s *Struct) sizeScope(toks []token.Token, refdata []int) (int, error) {
	size := 0
	alignBase := 0

	for i := range toks {
		tok := &toks[i]

		count := tok.Count.Value
		switch tok.Count.Ref {
		case token.RefAbsolute, token.RefRelative:
			return 0, errors.Indeterminate(s.format, tok.Excerpt(), tok.Pos,
				"impossible to compute the size of a structure with references")
		case token.RefExternal:
			if refdata == nil {
				return 0, errors.Indeterminate(s.format, tok.Excerpt(), tok.Pos,
					"external reference requires refdata to compute a size")
			}
			if tok.Count.Value >= len(refdata) {
				return 0, errors.OutOfBounds(errors.PhaseSize,
					"external reference #%d out of range (%d refdata values)", tok.Count.Value, len(refdata))
			}
			count = refdata[tok.Count.Value]
			if count < 0 {
				return 0, errors.BadReference(errors.PhaseSize, s.format, tok.Excerpt(), tok.Pos,
					"external reference #%d resolves to negative count %d", tok.Count.Value, count)
			}
		}

		switch tok.Kind {
		case token.KindGroup, token.KindIter:
			sub, err := s.sizeScope(tok.Children, refdata)
			if err != nil {
				return 0, err
			}
			size += count * sub

		case token.KindLoop:
			return 0, errors.Indeterminate(s.format, tok.Excerpt(), tok.Pos,
				"impossible to compute the size of a structure with {} iterators")

		case token.KindString0, token.KindRest:
			return 0, errors.Indeterminate(s.format, tok.Excerpt(), tok.Pos,
				"impossible to compute the size of a structure with '"+string(tok.Kind.Symbol())+"' elements")

		case token.KindAlignBase:
			alignBase = size

		case token.KindAlign:
			if count > 0 {
				if rem := (size - alignBase) % count; rem != 0 {
					size += count - rem
				}
			}

		default:
			size += count * tok.Kind.Width()
		}
	}

	return size, nil
}
