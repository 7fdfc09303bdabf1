package structure

import (
	"go.uber.org/zap"

	"github.com/wippyai/rawpack/structure/internal/token"
)

// Struct is a compiled binary structure. Compiling a format once
// significantly improves performance for reused structures compared to the
// one-shot package functions.
//
// A Struct is immutable after construction and safe for concurrent use on
// independent data.
type Struct struct {
	format string
	tokens []token.Token
	names  Namer
	order  ByteOrder
	forced bool // the format carried its own byte-order marker
	unsafe bool
}

type config struct {
	order  ByteOrder
	names  Namer
	unsafe bool
}

// Option configures structure compilation.
type Option func(*config)

// WithUnsafeReferences allows references whose target lies in or beyond an
// element of indeterminate shape. Resolution then happens at run time and
// may fail there instead of at compile time.
func WithUnsafeReferences() Option {
	return func(c *config) { c.unsafe = true }
}

// WithByteOrder sets the byte order used when the format string carries no
// order marker. A marker in the format always wins.
func WithByteOrder(order ByteOrder) Option {
	return func(c *config) { c.order = order }
}

// WithNames sets the default record adapter used by UnpackNamed.
func WithNames(n Namer) Option {
	return func(c *config) { c.names = n }
}

// New compiles a format string.
func New(format string, opts ...Option) (*Struct, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	tokens, marker, err := token.Parse(format)
	if err != nil {
		return nil, err
	}
	if err := token.Analyze(tokens, format, cfg.unsafe); err != nil {
		return nil, err
	}

	s := &Struct{
		format: format,
		tokens: tokens,
		names:  cfg.names,
		order:  cfg.order,
		unsafe: cfg.unsafe,
	}
	if marker != 0 {
		s.order = orderOf(marker)
		s.forced = true
	}

	Logger().Debug("compiled structure",
		zap.String("format", format),
		zap.Int("tokens", len(tokens)),
		zap.Stringer("order", s.order))
	return s, nil
}

// Must is a helper that wraps New and panics on error. It is intended for
// package-level structure variables with constant formats.
func Must(s *Struct, err error) *Struct {
	if err != nil {
		panic(err)
	}
	return s
}

// Format returns the format string the structure was compiled from. For
// combined structures it is the canonical rendering of the token tree.
func (s *Struct) Format() string {
	return s.format
}

// ByteOrder returns the order multi-byte scalars are coded with.
func (s *Struct) ByteOrder() ByteOrder {
	return s.order
}

// UnsafeReferences reports whether the structure was compiled with
// relaxed reference checking.
func (s *Struct) UnsafeReferences() bool {
	return s.unsafe
}
