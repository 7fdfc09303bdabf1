package rawpack

import (
	"io"
	"iter"

	"github.com/wippyai/rawpack/structure"
)

// Unpack decodes data according to the format. Trailing bytes that no
// element consumes are ignored.
func Unpack(format string, data []byte, refdata ...int) ([]any, error) {
	s, err := structure.New(format)
	if err != nil {
		return nil, err
	}
	return s.Unpack(data, refdata...)
}

// UnpackFrom decodes data starting at offset and also returns the cursor
// position immediately after the decoded bytes.
func UnpackFrom(format string, data []byte, offset int64, refdata ...int) ([]any, int64, error) {
	s, err := structure.New(format)
	if err != nil {
		return nil, 0, err
	}
	return s.UnpackFrom(data, offset, refdata...)
}

// IterUnpack decodes the format repeatedly over data. The data length must
// be an exact multiple of the format's determinate size.
func IterUnpack(format string, data []byte, refdata ...int) iter.Seq2[[]any, error] {
	s, err := structure.New(format)
	if err != nil {
		return func(yield func([]any, error) bool) {
			yield(nil, err)
		}
	}
	return s.IterUnpack(data, refdata...)
}

// Pack encodes the given values according to the format.
func Pack(format string, args []any, refdata ...int) ([]byte, error) {
	s, err := structure.New(format)
	if err != nil {
		return nil, err
	}
	return s.Pack(args, refdata...)
}

// PackInto encodes into an existing buffer starting at offset. The buffer
// must have enough capacity; it is never grown.
func PackInto(format string, buf []byte, offset int64, args []any, refdata ...int) error {
	s, err := structure.New(format)
	if err != nil {
		return err
	}
	return s.PackInto(buf, offset, args, refdata...)
}

// PackFile encodes to a seekable writer at the given absolute position; a
// negative position means the current one.
func PackFile(format string, w io.WriteSeeker, position int64, args []any, refdata ...int) error {
	s, err := structure.New(format)
	if err != nil {
		return err
	}
	return s.PackFile(w, position, args, refdata...)
}

// Calcsize returns the byte size of the format, failing when the size is
// indeterminate without data.
func Calcsize(format string, refdata ...int) (int, error) {
	s, err := structure.New(format)
	if err != nil {
		return 0, err
	}
	return s.Calcsize(refdata...)
}
