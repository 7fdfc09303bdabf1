// Package rawpack reads and writes binary packed data driven by a compact
// format language.
//
// The package-level functions compile the format on every call. For
// structures used more than once, compile them with the structure
// subpackage:
//
//	s, err := structure.New("<4s #0I")
//	values, err := s.Unpack(data, 2)
//
// See the structure package for the format language reference.
package rawpack
