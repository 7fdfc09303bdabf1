package structure

import (
	"github.com/wippyai/rawpack/errors"
)

// Namer adapts the flat top-level value vector of an unpack into a
// caller-defined record. It is a pure output adapter: nested
// sub-structures stay plain value slices.
type Namer func(values []any) (any, error)

// MapNamer returns a Namer that zips field names with values into a map.
// It fails when the value count does not match the field count.
func MapNamer(fields ...string) Namer {
	return func(values []any) (any, error) {
		if len(values) != len(fields) {
			return nil, errors.New(errors.PhaseDecode, errors.KindLengthMismatch).
				Detail("%d fields named, %d values unpacked", len(fields), len(values)).
				Build()
		}
		record := make(map[string]any, len(fields))
		for i, f := range fields {
			record[f] = values[i]
		}
		return record, nil
	}
}

// UnpackNamed decodes data and passes the top-level value vector through
// the given Namer. A nil namer falls back to the one set with WithNames.
func (s *Struct) UnpackNamed(data []byte, namer Namer, refdata ...int) (any, error) {
	if namer == nil {
		namer = s.names
	}
	values, err := s.Unpack(data, refdata...)
	if err != nil {
		return nil, err
	}
	if namer == nil {
		return values, nil
	}
	return namer(values)
}
