package structure

import (
	"math"

	"github.com/wippyai/rawpack/errors"
	"github.com/wippyai/rawpack/structure/internal/token"
)

// coerceInt converts an integer-valued argument to int64. Floats are
// accepted when they hold an exact integer, which is how JSON-decoded
// counts arrive.
func coerceInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint:
		if uint64(n) <= math.MaxInt64 {
			return int64(n), true
		}
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n), true
		}
	case float64:
		if n >= math.MinInt64 && n <= math.MaxInt64 && n == float64(int64(n)) {
			return int64(n), true
		}
	case float32:
		if float64(n) >= math.MinInt64 && float64(n) <= math.MaxInt64 && n == float32(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}

// coerceUint converts an integer-valued argument to uint64, rejecting
// negatives.
func coerceUint(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint:
		return uint64(n), true
	case uint64:
		return n, true
	case float64:
		if n >= 0 && n <= math.MaxUint64 && n == float64(uint64(n)) {
			return uint64(n), true
		}
	}
	i, ok := coerceInt(v)
	if !ok || i < 0 {
		return 0, false
	}
	return uint64(i), true
}

// resolveCount evaluates a token's repeat specifier against the current
// scope's value vector and the external refdata.
func resolveCount(format string, tok *token.Token, scope []any, refdata []int, phase errors.Phase) (int, error) {
	c := tok.Count
	var raw any
	switch c.Ref {
	case token.RefNone:
		return c.Value, nil
	case token.RefAbsolute:
		if c.Value >= len(scope) {
			return 0, errors.BadReference(phase, format, tok.Excerpt(), tok.Pos,
				"absolute reference index %d out of range (%d values decoded in scope)", c.Value, len(scope))
		}
		raw = scope[c.Value]
	case token.RefRelative:
		if c.Value > len(scope) {
			return 0, errors.BadReference(phase, format, tok.Excerpt(), tok.Pos,
				"relative reference offset %d out of range (%d values decoded in scope)", c.Value, len(scope))
		}
		raw = scope[len(scope)-c.Value]
	case token.RefExternal:
		if c.Value >= len(refdata) {
			return 0, errors.OutOfBounds(phase,
				"external reference #%d out of range (%d refdata values)", c.Value, len(refdata))
		}
		n := refdata[c.Value]
		if n < 0 {
			return 0, errors.BadReference(phase, format, tok.Excerpt(), tok.Pos,
				"external reference #%d resolves to negative count %d", c.Value, n)
		}
		return n, nil
	}

	n, ok := coerceInt(raw)
	if !ok {
		return 0, errors.New(phase, errors.KindTypeMismatch).
			Format(format).
			Excerpt(tok.Excerpt(), tok.Pos).
			Detail("count from %s reference must be an integer, got %T", c.Ref, raw).
			Build()
	}
	if n < 0 {
		return 0, errors.BadReference(phase, format, tok.Excerpt(), tok.Pos,
			"%s reference resolves to negative count %d", c.Ref, n)
	}
	return int(n), nil
}
