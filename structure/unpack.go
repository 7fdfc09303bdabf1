package structure

import (
	"encoding/hex"
	"io"
	"iter"

	"github.com/wippyai/rawpack/errors"
	"github.com/wippyai/rawpack/structure/internal/scalar"
	"github.com/wippyai/rawpack/structure/internal/token"
)

// Unpack decodes data according to the structure, reading from the start
// of the slice. Trailing bytes that no element consumes are ignored.
func (s *Struct) Unpack(data []byte, refdata ...int) ([]any, error) {
	values, _, err := s.decode(newByteSource(data, 0), refdata)
	return values, err
}

// UnpackFrom decodes data starting at offset and also returns the cursor
// position immediately after the decoded bytes.
func (s *Struct) UnpackFrom(data []byte, offset int64, refdata ...int) ([]any, int64, error) {
	return s.decode(newByteSource(data, offset), refdata)
}

// UnpackReader decodes from a seekable reader at its current position,
// leaving it after the data that has been read.
func (s *Struct) UnpackReader(r io.ReadSeeker, refdata ...int) ([]any, error) {
	src, err := newReaderSource(r)
	if err != nil {
		return nil, s.readerErr(err)
	}
	values, _, err := s.decode(src, refdata)
	return values, err
}

// UnpackReaderFrom decodes from a seekable reader at the given absolute
// position and also returns the position immediately after the decoded
// bytes.
func (s *Struct) UnpackReaderFrom(r io.ReadSeeker, offset int64, refdata ...int) ([]any, int64, error) {
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, s.readerErr(err)
	}
	src, err := newReaderSource(r)
	if err != nil {
		return nil, 0, s.readerErr(err)
	}
	return s.decode(src, refdata)
}

// IterUnpack returns an iterator that decodes the structure repeatedly
// over data. The data length must be an exact multiple of the structure's
// determinate size.
func (s *Struct) IterUnpack(data []byte, refdata ...int) iter.Seq2[[]any, error] {
	return func(yield func([]any, error) bool) {
		n, err := s.Calcsize(refdata...)
		if err != nil {
			yield(nil, err)
			return
		}
		if n <= 0 {
			return
		}
		if len(data)%n != 0 {
			yield(nil, errors.New(errors.PhaseDecode, errors.KindLengthMismatch).
				Format(s.format).
				Detail("data length %d is not a multiple of the structure size %d", len(data), n).
				Build())
			return
		}
		for off := 0; off < len(data); off += n {
			values, _, err := s.decode(newByteSource(data, int64(off)), refdata)
			if !yield(values, err) || err != nil {
				return
			}
		}
	}
}

func (s *Struct) readerErr(err error) error {
	return errors.New(errors.PhaseDecode, errors.KindOutOfData).
		Format(s.format).
		Cause(err).
		Detail("reading from source").
		Build()
}

func (s *Struct) decode(src source, refdata []int) ([]any, int64, error) {
	u := &unpacker{s: s, src: src, refdata: refdata, little: s.order.little()}
	values, err := u.scope(s.tokens)
	if err != nil {
		return nil, 0, err
	}
	return values, src.pos(), nil
}

type unpacker struct {
	s       *Struct
	src     source
	refdata []int
	little  bool
}

// scope decodes one token list. Each scope owns its alignment base and its
// value vector; references resolve against the latter.
func (u *unpacker) scope(toks []token.Token) ([]any, error) {
	alignBase := u.src.pos()
	values := make([]any, 0, len(toks))

	for i := range toks {
		tok := &toks[i]
		count, err := resolveCount(u.s.format, tok, values, u.refdata, errors.PhaseDecode)
		if err != nil {
			return nil, err
		}

		switch tok.Kind {
		case token.KindGroup:
			group := []any{}
			for j := 0; j < count; j++ {
				sub, err := u.scope(tok.Children)
				if err != nil {
					return nil, err
				}
				group = append(group, sub...)
			}
			values = append(values, group)

		case token.KindIter:
			list := []any{}
			for j := 0; j < count; j++ {
				sub, err := u.scope(tok.Children)
				if err != nil {
					return nil, err
				}
				list = append(list, any(sub))
			}
			values = append(values, list)

		case token.KindLoop:
			end, err := u.src.size()
			if err != nil {
				return nil, u.dataErr(tok, err)
			}
			list := []any{}
			for u.src.pos() < end {
				before := u.src.pos()
				sub, err := u.scope(tok.Children)
				if err != nil {
					return nil, err
				}
				list = append(list, any(sub))
				if u.src.pos() == before {
					return nil, errors.New(errors.PhaseDecode, errors.KindOutOfData).
						Format(u.s.format).
						Excerpt(tok.Excerpt(), tok.Pos).
						Offset(before).
						Detail("iterator body consumes no data").
						Build()
				}
			}
			values = append(values, list)

		case token.KindAlignBase:
			alignBase = u.src.pos()

		case token.KindAlign:
			if count > 0 {
				dist := u.src.pos() - alignBase
				if rem := dist % int64(count); rem != 0 {
					if err := u.src.skip(int64(count) - rem); err != nil {
						return nil, u.dataErr(tok, err)
					}
				}
			}

		case token.KindPad:
			if err := u.src.skip(int64(count)); err != nil {
				return nil, u.dataErr(tok, err)
			}

		case token.KindRest:
			rest, err := u.src.readRest()
			if err != nil {
				return nil, u.dataErr(tok, err)
			}
			values = append(values, append([]byte(nil), rest...))

		case token.KindBool:
			buf, err := u.read(tok, count)
			if err != nil {
				return nil, err
			}
			for _, b := range buf {
				values = append(values, b != 0)
			}

		case token.KindChar:
			buf, err := u.read(tok, count)
			if err != nil {
				return nil, err
			}
			for _, b := range buf {
				values = append(values, b)
			}

		case token.KindBytes:
			buf, err := u.read(tok, count)
			if err != nil {
				return nil, err
			}
			values = append(values, append([]byte(nil), buf...))

		case token.KindHex:
			buf, err := u.read(tok, count)
			if err != nil {
				return nil, err
			}
			values = append(values, hex.EncodeToString(buf))

		case token.KindString0:
			for j := 0; j < count; j++ {
				str, err := u.readString0(tok)
				if err != nil {
					return nil, err
				}
				values = append(values, str)
			}

		case token.KindFloat16, token.KindFloat32, token.KindFloat64, token.KindFloat128:
			w := tok.Kind.Width()
			buf, err := u.read(tok, w*count)
			if err != nil {
				return nil, err
			}
			for j := 0; j < count; j++ {
				values = append(values, scalar.DecodeFloat(buf[j*w:(j+1)*w], u.little))
			}

		default: // integer elements
			w := tok.Kind.Width()
			buf, err := u.read(tok, w*count)
			if err != nil {
				return nil, err
			}
			for j := 0; j < count; j++ {
				eb := buf[j*w : (j+1)*w]
				if tok.Kind.Signed() {
					values = append(values, scalar.DecodeInt(eb, u.little))
				} else {
					values = append(values, scalar.DecodeUint(eb, u.little))
				}
			}
		}
	}

	return values, nil
}

func (u *unpacker) read(tok *token.Token, n int) ([]byte, error) {
	b, err := u.src.read(n)
	if err != nil {
		return nil, u.dataErr(tok, err)
	}
	return b, nil
}

func (u *unpacker) readString0(tok *token.Token) ([]byte, error) {
	str := []byte{}
	for {
		b, err := u.src.read(1)
		if err != nil {
			return nil, errors.New(errors.PhaseDecode, errors.KindOutOfData).
				Format(u.s.format).
				Excerpt(tok.Excerpt(), tok.Pos).
				Offset(u.src.pos()).
				Detail("unterminated string").
				Build()
		}
		if b[0] == 0 {
			return str, nil
		}
		str = append(str, b[0])
	}
}

func (u *unpacker) dataErr(tok *token.Token, err error) error {
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return errors.OutOfData(u.s.format, tok.Excerpt(), tok.Pos, u.src.pos())
	}
	return errors.New(errors.PhaseDecode, errors.KindOutOfData).
		Format(u.s.format).
		Excerpt(tok.Excerpt(), tok.Pos).
		Offset(u.src.pos()).
		Cause(err).
		Detail("read failed").
		Build()
}
