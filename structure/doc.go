// Package structure compiles format strings into binary structure codecs.
//
// A format string describes a sequence of binary elements, in the spirit
// of classic fixed-layout packers but with variable-length constructs,
// references and iteration:
//
//	s, err := structure.New("<I /0s 2a")
//	values, err := s.Unpack(data)
//	bytes, err := s.Pack([]any{uint64(3), []byte("abc")})
//
// # Format strings
//
// An optional first character selects the byte order: '<' little-endian,
// '>' big-endian, '!' network order (big-endian), '=' and '@' system
// order. Without a marker the structure codes in the order the Struct was
// constructed with, system order by default.
//
// Elements:
//
//	?        8-bit boolean (decodes any non-zero byte as true)
//	b  B     signed / unsigned 8-bit integer
//	h  H     signed / unsigned 16-bit integer
//	u  U     signed / unsigned 24-bit integer
//	i  I     signed / unsigned 32-bit integer (l and L are aliases)
//	q  Q     signed / unsigned 64-bit integer
//	e f d F  IEEE754 float: half, single, double, quadruple precision
//	c        single byte
//	s        byte string, the count is its length (16s = 16 bytes)
//	n        null-terminated byte string, the count is a number of strings
//	X        hexadecimal string, like s but exposed as hex text
//	x        padding byte, no value
//	a        alignment: pad to the next multiple of the count
//	|        alignment base: a elements align relative to it
//	$        all remaining bytes, only at the end of the format
//
// Counts precede the element: 4I codes four uint32. A count may also be a
// reference resolving at run time: /0 the value of the scope's first
// element, /p2 the value two elements back, #1 the second refdata value.
//
// Substructures nest scopes. 3(2B) extracts six bytes into one flat
// sub-sequence, 3[2B] extracts three sub-sequences of two, and {2B}
// repeats until the data is exhausted. References and alignment are local
// to their substructure.
//
// # Values
//
// Unpacked values are int64 (signed integers), uint64 (unsigned), float64
// (floats), bool, byte (c), []byte (s, n, $), string (X, hex text) and
// []any for substructures. Pack accepts the natural Go families for each
// slot and fails on overflow.
//
// # Safety
//
// References whose target cannot be attributed statically (it sits in or
// beyond an element of indeterminate shape) are rejected at compile time
// unless the structure is built with WithUnsafeReferences.
package structure
