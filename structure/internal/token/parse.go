package token

import (
	"github.com/wippyai/rawpack/errors"
)

// Order markers accepted as the first non-space character of a format.
const orderMarkers = "<>!=@"

// Parse tokenizes a format string. The returned marker is the byte-order
// prefix character, or 0 when the format does not carry one. Reference
// validation is left to Analyze; Parse enforces syntax only.
func Parse(format string) (tokens []Token, marker byte, err error) {
	p := &parser{format: format}
	p.skipSpace()
	if p.i < len(format) && isOrderMarker(format[p.i]) {
		marker = format[p.i]
		p.i++
	}
	tokens, err = p.scope(0, true, -1)
	if err != nil {
		return nil, 0, err
	}
	return tokens, marker, nil
}

func isOrderMarker(c byte) bool {
	for i := 0; i < len(orderMarkers); i++ {
		if orderMarkers[i] == c {
			return true
		}
	}
	return false
}

type parser struct {
	format string
	i      int
}

func (p *parser) skipSpace() {
	for p.i < len(p.format) && isSpace(p.format[p.i]) {
		p.i++
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

var closers = map[Kind]byte{
	KindGroup: ')',
	KindIter:  ']',
	KindLoop:  '}',
}

// scope parses tokens until the closing bracket (or end of input at the top
// level, where close is 0). openAt is the position of the opening bracket,
// -1 at the top level.
func (p *parser) scope(close byte, topLevel bool, openAt int) ([]Token, error) {
	var tokens []Token
	terminated := -1 // position of a {…} or $ already seen in this scope

	for p.i < len(p.format) {
		c := p.format[p.i]
		switch {
		case isSpace(c):
			p.i++
			continue
		case c == '\'' || c == '"':
			// quoted runs are comments
			quote := p.i
			p.i++
			for p.i < len(p.format) && p.format[p.i] != '\'' && p.format[p.i] != '"' {
				p.i++
			}
			if p.i >= len(p.format) {
				return nil, errors.New(errors.PhaseParse, errors.KindSyntax).
					Format(p.format).
					Excerpt(string(p.format[quote]), quote).
					Detail("unterminated quote").
					Build()
			}
			p.i++
			continue
		case close != 0 && c == close:
			p.i++
			return tokens, nil
		}

		if terminated >= 0 {
			return nil, errors.Misplaced(p.format, string(p.format[terminated]), terminated,
				"'"+string(p.format[terminated])+"' terminates the structure, there should be nothing else afterwards")
		}

		start := p.i
		count, err := p.count(start)
		if err != nil {
			return nil, err
		}

		if p.i >= len(p.format) {
			return nil, errors.New(errors.PhaseParse, errors.KindSyntax).
				Format(p.format).
				Excerpt(p.format[start:], start).
				Detail("count with no element").
				Build()
		}

		kind, ok := KindOf(p.format[p.i])
		if !ok {
			return nil, errors.UnknownChar(p.format, rune(p.format[p.i]), p.i)
		}

		tok := Token{Kind: kind, Count: count, Pos: start, Slot: -1}
		if kind.IsSub() {
			bracket := p.i
			p.i++
			children, err := p.scope(closers[kind], false, bracket)
			if err != nil {
				return nil, err
			}
			tok.Children = children
		} else {
			p.i++
		}

		if kind.Mode() == CountNone && (!count.Literal() || count.Value != 1) {
			return nil, errors.Misplaced(p.format, tok.Excerpt(), start,
				"'"+string(kind.Symbol())+"' elements should not take a count")
		}
		if kind == KindRest && !topLevel {
			return nil, errors.Misplaced(p.format, "$", start,
				"'$' is only allowed at the end of the top-level structure")
		}
		if kind == KindRest || kind == KindLoop {
			terminated = start
		}

		// IIII reduces to 4I
		if n := len(tokens); n > 0 && kind.Mode() == CountRepeat &&
			tokens[n-1].Kind == kind && count.Literal() && tokens[n-1].Count.Literal() {
			tokens[n-1].Count.Value += count.Value
			continue
		}
		tokens = append(tokens, tok)
	}

	if close != 0 {
		return nil, errors.UnclosedGroup(p.format, rune(p.format[openAt]), openAt)
	}
	return tokens, nil
}

// count parses an optional repeat specifier: decimal digits, or a
// reference (/N, /pN, #N).
func (p *parser) count(start int) (Count, error) {
	ref := RefNone
	switch p.format[p.i] {
	case '/':
		p.i++
		if p.i < len(p.format) && p.format[p.i] == 'p' {
			ref = RefRelative
			p.i++
		} else {
			ref = RefAbsolute
		}
	case '#':
		ref = RefExternal
		p.i++
	}

	digits := 0
	value := 0
	for p.i < len(p.format) && p.format[p.i] >= '0' && p.format[p.i] <= '9' {
		value = value*10 + int(p.format[p.i]-'0')
		digits++
		p.i++
	}

	if digits == 0 {
		if ref != RefNone {
			return Count{}, errors.New(errors.PhaseParse, errors.KindSyntax).
				Format(p.format).
				Excerpt(p.format[start:p.i], start).
				Detail("reference with no index").
				Build()
		}
		return Count{Ref: RefNone, Value: 1}, nil
	}
	return Count{Ref: ref, Value: value}, nil
}
