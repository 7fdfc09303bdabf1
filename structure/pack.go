package structure

import (
	"encoding/hex"
	"io"
	"math"

	"github.com/wippyai/rawpack/errors"
	"github.com/wippyai/rawpack/structure/internal/scalar"
	"github.com/wippyai/rawpack/structure/internal/token"
)

// Pack encodes the given values according to the structure and returns the
// resulting bytes.
func (s *Struct) Pack(args []any, refdata ...int) ([]byte, error) {
	out := &bufSink{}
	if err := s.encode(out, args, refdata); err != nil {
		return nil, err
	}
	return out.buf, nil
}

// PackInto encodes into an existing buffer starting at offset. The buffer
// must have enough capacity; it is never grown.
func (s *Struct) PackInto(buf []byte, offset int64, args []any, refdata ...int) error {
	if offset < 0 || offset > int64(len(buf)) {
		return errors.OutOfBounds(errors.PhaseEncode,
			"offset %d out of range for buffer of %d bytes", offset, len(buf))
	}
	return s.encode(&sliceSink{buf: buf, off: offset}, args, refdata)
}

// PackWriter encodes to a writer at its current position.
func (s *Struct) PackWriter(w io.Writer, args []any, refdata ...int) error {
	return s.encode(&writerSink{w: w}, args, refdata)
}

// PackFile encodes to a seekable writer, starting at the given absolute
// position. A negative position means the current one. The writer is left
// after the data that has been written.
func (s *Struct) PackFile(w io.WriteSeeker, position int64, args []any, refdata ...int) error {
	if position >= 0 {
		if _, err := w.Seek(position, io.SeekStart); err != nil {
			return errors.New(errors.PhaseEncode, errors.KindOutOfBounds).
				Format(s.format).
				Cause(err).
				Detail("seeking to position %d", position).
				Build()
		}
	}
	return s.encode(&writerSink{w: w}, args, refdata)
}

func (s *Struct) encode(out sink, args []any, refdata []int) error {
	p := &packer{s: s, out: out, refdata: refdata, little: s.order.little()}
	consumed, err := p.scope(s.tokens, args)
	if err != nil {
		return err
	}
	if consumed != len(args) {
		return errors.New(errors.PhaseEncode, errors.KindLengthMismatch).
			Format(s.format).
			Arg(consumed).
			Detail("%d arguments given, %d consumed by the structure", len(args), consumed).
			Build()
	}
	return nil
}

type packer struct {
	s       *Struct
	out     sink
	refdata []int
	little  bool
	arg     int // running count of consumed arguments, for diagnostics
}

// scope encodes one token list, consuming values from args. It returns the
// number of arguments consumed, which group repetition uses to advance
// through its flat argument sequence.
func (p *packer) scope(toks []token.Token, args []any) (int, error) {
	alignBase := p.out.pos()
	position := 0

	for i := range toks {
		tok := &toks[i]
		count, err := resolveCount(p.s.format, tok, args[:position], p.refdata, errors.PhaseEncode)
		if err != nil {
			return position, err
		}

		switch tok.Kind {
		case token.KindGroup:
			seq, err := p.takeSeq(tok, args, &position)
			if err != nil {
				return position, err
			}
			grouppos := 0
			for j := 0; j < count; j++ {
				n, err := p.scope(tok.Children, seq[grouppos:])
				if err != nil {
					return position, err
				}
				grouppos += n
			}
			if grouppos != len(seq) {
				return position, errors.New(errors.PhaseEncode, errors.KindLengthMismatch).
					Format(p.s.format).
					Excerpt(tok.Excerpt(), tok.Pos).
					Arg(p.arg).
					Detail("group argument holds %d values, %d consumed by %d iterations", len(seq), grouppos, count).
					Build()
			}

		case token.KindIter:
			seq, err := p.takeSeq(tok, args, &position)
			if err != nil {
				return position, err
			}
			if len(seq) != count {
				return position, errors.New(errors.PhaseEncode, errors.KindLengthMismatch).
					Format(p.s.format).
					Excerpt(tok.Excerpt(), tok.Pos).
					Arg(p.arg).
					Detail("iterator takes %d sub-sequences, got %d", count, len(seq)).
					Build()
			}
			if err := p.iterations(tok, seq); err != nil {
				return position, err
			}

		case token.KindLoop:
			seq, err := p.takeSeq(tok, args, &position)
			if err != nil {
				return position, err
			}
			if err := p.iterations(tok, seq); err != nil {
				return position, err
			}

		case token.KindAlignBase:
			alignBase = p.out.pos()

		case token.KindAlign:
			if count > 0 {
				dist := p.out.pos() - alignBase
				if rem := dist % int64(count); rem != 0 {
					if err := p.write(tok, make([]byte, int64(count)-rem)); err != nil {
						return position, err
					}
				}
			}

		case token.KindPad:
			if err := p.write(tok, make([]byte, count)); err != nil {
				return position, err
			}

		case token.KindRest:
			v, err := p.take(tok, args, &position)
			if err != nil {
				return position, err
			}
			b, ok := coerceBytes(v)
			if !ok {
				return position, p.typeErr(tok, v, "bytes or string")
			}
			if err := p.write(tok, b); err != nil {
				return position, err
			}

		case token.KindBool:
			for j := 0; j < count; j++ {
				v, err := p.take(tok, args, &position)
				if err != nil {
					return position, err
				}
				var b byte
				switch t := v.(type) {
				case bool:
					if t {
						b = 1
					}
				default:
					n, ok := coerceInt(v)
					if !ok {
						return position, p.typeErr(tok, v, "bool or integer")
					}
					if n < 0 || n > math.MaxUint8 {
						return position, errors.Overflow(p.s.format, tok.Excerpt(), tok.Pos, p.arg-1, v, "bool byte")
					}
					b = byte(n)
				}
				if err := p.write(tok, []byte{b}); err != nil {
					return position, err
				}
			}

		case token.KindChar:
			for j := 0; j < count; j++ {
				v, err := p.take(tok, args, &position)
				if err != nil {
					return position, err
				}
				b, err2 := p.charByte(tok, v)
				if err2 != nil {
					return position, err2
				}
				if err := p.write(tok, []byte{b}); err != nil {
					return position, err
				}
			}

		case token.KindBytes:
			v, err := p.take(tok, args, &position)
			if err != nil {
				return position, err
			}
			b, ok := coerceBytes(v)
			if !ok {
				return position, p.typeErr(tok, v, "bytes or string")
			}
			if len(b) > count {
				return position, errors.LengthMismatch(p.s.format, tok.Excerpt(), tok.Pos, p.arg-1, len(b), count)
			}
			padded := make([]byte, count)
			copy(padded, b)
			if err := p.write(tok, padded); err != nil {
				return position, err
			}

		case token.KindHex:
			v, err := p.take(tok, args, &position)
			if err != nil {
				return position, err
			}
			b, ok := coerceBytes(v)
			if !ok {
				return position, p.typeErr(tok, v, "hexadecimal string")
			}
			decoded, derr := hex.DecodeString(string(b))
			if derr != nil {
				return position, errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
					Format(p.s.format).
					Excerpt(tok.Excerpt(), tok.Pos).
					Arg(p.arg - 1).
					Cause(derr).
					Detail("invalid hexadecimal string").
					Build()
			}
			if len(decoded) != count {
				return position, errors.LengthMismatch(p.s.format, tok.Excerpt(), tok.Pos, p.arg-1, len(decoded), count)
			}
			if err := p.write(tok, decoded); err != nil {
				return position, err
			}

		case token.KindString0:
			for j := 0; j < count; j++ {
				v, err := p.take(tok, args, &position)
				if err != nil {
					return position, err
				}
				b, ok := coerceBytes(v)
				if !ok {
					return position, p.typeErr(tok, v, "bytes or string")
				}
				if err := p.write(tok, b); err != nil {
					return position, err
				}
				if err := p.write(tok, []byte{0}); err != nil {
					return position, err
				}
			}

		case token.KindFloat16, token.KindFloat32, token.KindFloat64, token.KindFloat128:
			w := tok.Kind.Width()
			buf := make([]byte, w)
			for j := 0; j < count; j++ {
				v, err := p.take(tok, args, &position)
				if err != nil {
					return position, err
				}
				f, ok := coerceFloat(v)
				if !ok {
					return position, p.typeErr(tok, v, "float")
				}
				if !scalar.EncodeFloat(buf, f, p.little) {
					return position, errors.Overflow(p.s.format, tok.Excerpt(), tok.Pos, p.arg-1, v,
						"float"+itoaBits(w))
				}
				if err := p.write(tok, buf); err != nil {
					return position, err
				}
			}

		default: // integer elements
			w := tok.Kind.Width()
			buf := make([]byte, w)
			for j := 0; j < count; j++ {
				v, err := p.take(tok, args, &position)
				if err != nil {
					return position, err
				}
				u, err2 := p.intBits(tok, v, w)
				if err2 != nil {
					return position, err2
				}
				scalar.EncodeUint(buf, u, p.little)
				if err := p.write(tok, buf); err != nil {
					return position, err
				}
			}
		}
	}

	return position, nil
}

func (p *packer) iterations(tok *token.Token, seq []any) error {
	for _, elem := range seq {
		sub, ok := elem.([]any)
		if !ok {
			return p.typeErr(tok, elem, "sub-sequence ([]any)")
		}
		n, err := p.scope(tok.Children, sub)
		if err != nil {
			return err
		}
		if n != len(sub) {
			return errors.New(errors.PhaseEncode, errors.KindLengthMismatch).
				Format(p.s.format).
				Excerpt(tok.Excerpt(), tok.Pos).
				Arg(p.arg).
				Detail("sub-sequence holds %d values, %d consumed by one iteration", len(sub), n).
				Build()
		}
	}
	return nil
}

// intBits validates an integer argument against the token's width and
// signedness and returns its two's-complement bits.
func (p *packer) intBits(tok *token.Token, v any, width int) (uint64, error) {
	if tok.Kind.Signed() {
		n, ok := coerceInt(v)
		if !ok {
			if _, isBig := coerceUint(v); isBig {
				return 0, errors.Overflow(p.s.format, tok.Excerpt(), tok.Pos, p.arg-1, v, "int"+itoaBits(width))
			}
			return 0, p.typeErr(tok, v, "integer")
		}
		if !scalar.IntFits(n, width) {
			return 0, errors.Overflow(p.s.format, tok.Excerpt(), tok.Pos, p.arg-1, v, "int"+itoaBits(width))
		}
		return uint64(n), nil
	}
	u, ok := coerceUint(v)
	if !ok {
		if _, isNeg := coerceInt(v); isNeg {
			return 0, errors.Overflow(p.s.format, tok.Excerpt(), tok.Pos, p.arg-1, v, "uint"+itoaBits(width))
		}
		return 0, p.typeErr(tok, v, "unsigned integer")
	}
	if !scalar.UintFits(u, width) {
		return 0, errors.Overflow(p.s.format, tok.Excerpt(), tok.Pos, p.arg-1, v, "uint"+itoaBits(width))
	}
	return u, nil
}

func (p *packer) charByte(tok *token.Token, v any) (byte, error) {
	switch t := v.(type) {
	case byte:
		return t, nil
	case []byte:
		if len(t) == 1 {
			return t[0], nil
		}
	case string:
		if len(t) == 1 {
			return t[0], nil
		}
	default:
		if n, ok := coerceInt(v); ok {
			if n < 0 || n > math.MaxUint8 {
				return 0, errors.Overflow(p.s.format, tok.Excerpt(), tok.Pos, p.arg-1, v, "char byte")
			}
			return byte(n), nil
		}
	}
	return 0, p.typeErr(tok, v, "single byte")
}

func (p *packer) take(tok *token.Token, args []any, position *int) (any, error) {
	if *position >= len(args) {
		return nil, errors.New(errors.PhaseEncode, errors.KindOutOfData).
			Format(p.s.format).
			Excerpt(tok.Excerpt(), tok.Pos).
			Arg(p.arg).
			Detail("no argument remaining to pack into element '%s'", tok.Excerpt()).
			Build()
	}
	v := args[*position]
	*position++
	p.arg++
	return v, nil
}

func (p *packer) takeSeq(tok *token.Token, args []any, position *int) ([]any, error) {
	v, err := p.take(tok, args, position)
	if err != nil {
		return nil, err
	}
	seq, ok := v.([]any)
	if !ok {
		return nil, p.typeErr(tok, v, "sequence ([]any)")
	}
	return seq, nil
}

func (p *packer) write(tok *token.Token, b []byte) error {
	if _, err := p.out.Write(b); err != nil {
		if full, ok := err.(*sinkFullError); ok {
			return errors.OutOfBounds(errors.PhaseEncode,
				"packed data needs %d bytes, buffer holds %d", full.need, full.cap)
		}
		return errors.New(errors.PhaseEncode, errors.KindOutOfBounds).
			Format(p.s.format).
			Excerpt(tok.Excerpt(), tok.Pos).
			Cause(err).
			Detail("write failed").
			Build()
	}
	return nil
}

func (p *packer) typeErr(tok *token.Token, v any, want string) error {
	return errors.TypeMismatch(p.s.format, tok.Excerpt(), tok.Pos, p.arg-1, v, want)
}

func coerceBytes(v any) ([]byte, bool) {
	switch t := v.(type) {
	case []byte:
		return t, true
	case string:
		return []byte(t), true
	}
	return nil, false
}

func coerceFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	}
	if n, ok := coerceInt(v); ok {
		return float64(n), true
	}
	if u, ok := coerceUint(v); ok {
		return float64(u), true
	}
	return 0, false
}

func itoaBits(width int) string {
	switch width {
	case 1:
		return "8"
	case 2:
		return "16"
	case 3:
		return "24"
	case 4:
		return "32"
	case 8:
		return "64"
	case 16:
		return "128"
	}
	return "?"
}
