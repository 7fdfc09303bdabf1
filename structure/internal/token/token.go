package token

// Ref identifies the kind of reference used as a repeat count.
type Ref uint8

const (
	RefNone Ref = iota
	RefRelative
	RefAbsolute
	RefExternal
)

var refNames = [...]string{
	RefNone:     "none",
	RefRelative: "relative",
	RefAbsolute: "absolute",
	RefExternal: "external",
}

func (r Ref) String() string {
	if int(r) < len(refNames) {
		return refNames[r]
	}
	return "unknown"
}

// Count is a repeat specifier: a literal value when Ref is RefNone,
// otherwise a reference index or offset.
type Count struct {
	Ref   Ref
	Value int
}

// Literal reports whether the count is a plain integer.
func (c Count) Literal() bool {
	return c.Ref == RefNone
}

// Det classifies how a token's encoded shape can be known.
type Det uint8

const (
	// DetFixed: the shape follows from the format alone.
	DetFixed Det = iota
	// DetExternal: the shape follows from the format plus refdata.
	DetExternal
	// DetDynamic: the shape depends on the data being decoded.
	DetDynamic
)

func maxDet(a, b Det) Det {
	if a > b {
		return a
	}
	return b
}

// Token is one element of a compiled structure. Children is non-nil for
// substructure kinds. Pos is the byte position of the token in the format
// string it was parsed from. Slot and Shape are filled in by Analyze.
type Token struct {
	Children []Token
	Count    Count
	Kind     Kind
	Pos      int
	// Slot is the index of the token's first value-vector slot within its
	// scope, or -1 when slots before it cannot be counted statically.
	Slot int
	// Shape is the token's determinacy, including its subtree.
	Shape Det
}

// Excerpt renders the token the way it appears in a format string, for
// error messages.
func (t *Token) Excerpt() string {
	return countString(t.Count) + string(t.Kind.Symbol())
}

func countString(c Count) string {
	switch c.Ref {
	case RefRelative:
		return "/p" + itoa(c.Value)
	case RefAbsolute:
		return "/" + itoa(c.Value)
	case RefExternal:
		return "#" + itoa(c.Value)
	}
	if c.Value == 1 {
		return ""
	}
	return itoa(c.Value)
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Clone deep-copies a token list. Used by structure combination, which
// renumbers references in the copy.
func Clone(tokens []Token) []Token {
	if tokens == nil {
		return nil
	}
	out := make([]Token, len(tokens))
	for i, t := range tokens {
		out[i] = t
		out[i].Children = Clone(t.Children)
	}
	return out
}

// MaxExternal returns the highest external reference index in the tree,
// or -1 when there is none.
func MaxExternal(tokens []Token) int {
	max := -1
	for i := range tokens {
		t := &tokens[i]
		if t.Count.Ref == RefExternal && t.Count.Value > max {
			max = t.Count.Value
		}
		if sub := MaxExternal(t.Children); sub > max {
			max = sub
		}
	}
	return max
}

// ShiftExternals adds delta to every external reference index in the tree.
func ShiftExternals(tokens []Token, delta int) {
	if delta == 0 {
		return
	}
	for i := range tokens {
		t := &tokens[i]
		if t.Count.Ref == RefExternal {
			t.Count.Value += delta
		}
		ShiftExternals(t.Children, delta)
	}
}
