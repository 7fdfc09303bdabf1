package token

import "strings"

// Render reconstructs the canonical format string for a token list.
func Render(tokens []Token) string {
	var b strings.Builder
	render(&b, tokens)
	return b.String()
}

func render(b *strings.Builder, tokens []Token) {
	for i := range tokens {
		t := &tokens[i]
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(countString(t.Count))
		b.WriteByte(t.Kind.Symbol())
		if t.Kind.IsSub() {
			render(b, t.Children)
			b.WriteByte(closers[t.Kind])
		}
	}
}

// TopSlots counts the value-vector slots the token list emits in its own
// scope. The second return is false when the count depends on run-time
// data (a repeat-counted element whose count is a reference).
func TopSlots(tokens []Token) (int, bool) {
	n := 0
	for i := range tokens {
		t := &tokens[i]
		if t.Kind.Mode() == CountRepeat && t.Count.Ref != RefNone {
			return 0, false
		}
		n += t.Kind.Slots(t.Count.Value)
	}
	return n, true
}
