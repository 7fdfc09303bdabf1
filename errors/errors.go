package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseParse   Phase = "parse"   // format string tokenization
	PhaseAnalyze Phase = "analyze" // reference validation
	PhaseSize    Phase = "size"    // size computation
	PhaseDecode  Phase = "decode"  // bytes to values
	PhaseEncode  Phase = "encode"  // values to bytes
	PhaseCombine Phase = "combine" // structure concatenation/repetition
)

// Kind categorizes the error
type Kind string

const (
	KindSyntax          Kind = "syntax"
	KindUnknownChar     Kind = "unknown_char"
	KindUnclosedGroup   Kind = "unclosed_group"
	KindMisplaced       Kind = "misplaced"
	KindBadReference    Kind = "bad_reference"
	KindUnsafeReference Kind = "unsafe_reference"
	KindIndeterminate   Kind = "indeterminate"
	KindOutOfData       Kind = "out_of_data"
	KindOutOfBounds     Kind = "out_of_bounds"
	KindOverflow        Kind = "overflow"
	KindTypeMismatch    Kind = "type_mismatch"
	KindLengthMismatch  Kind = "length_mismatch"
)

// Error is the structured error type used throughout the library.
//
// Format errors (parse/analyze/size phases) carry the format string, the
// offending excerpt and its byte position. Operation errors additionally
// carry the byte offset in the data (decode) or the index of the offending
// argument (encode). Unset positions are -1.
type Error struct {
	Cause    error
	Phase    Phase
	Kind     Kind
	Format   string
	Excerpt  string
	Detail   string
	Pos      int
	Offset   int64
	ArgIndex int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Excerpt != "" {
		b.WriteString(" at '")
		b.WriteString(e.Excerpt)
		b.WriteByte('\'')
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&b, ", byte offset %d", e.Offset)
	}
	if e.ArgIndex >= 0 {
		fmt.Fprintf(&b, ", argument %d", e.ArgIndex)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Format != "" {
		if e.Pos >= 0 {
			fmt.Fprintf(&b, "\n\tin format %q, position %d\n\t%s^", e.Format, e.Pos, strings.Repeat("-", 11+e.Pos))
		} else {
			fmt.Fprintf(&b, "\n\tin format %q", e.Format)
		}
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// IsFormat reports whether the error was raised by static analysis of the
// format string rather than by an encode/decode operation.
func (e *Error) IsFormat() bool {
	switch e.Phase {
	case PhaseParse, PhaseAnalyze, PhaseSize, PhaseCombine:
		return true
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase:    phase,
			Kind:     kind,
			Pos:      -1,
			Offset:   -1,
			ArgIndex: -1,
		},
	}
}

// Format sets the full format string the error occurred in
func (b *Builder) Format(format string) *Builder {
	b.err.Format = format
	return b
}

// Excerpt sets the offending sub-format and its byte position
func (b *Builder) Excerpt(excerpt string, pos int) *Builder {
	b.err.Excerpt = excerpt
	b.err.Pos = pos
	return b
}

// Offset sets the byte offset in the data being decoded
func (b *Builder) Offset(off int64) *Builder {
	b.err.Offset = off
	return b
}

// Arg sets the index of the offending pack argument
func (b *Builder) Arg(index int) *Builder {
	b.err.ArgIndex = index
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// UnknownChar creates a format error for an unrecognised format character
func UnknownChar(format string, char rune, pos int) *Error {
	return New(PhaseParse, KindUnknownChar).
		Format(format).
		Excerpt(string(char), pos).
		Detail("unrecognised format character %q", char).
		Build()
}

// UnclosedGroup creates a format error for a bracket that is never closed
func UnclosedGroup(format string, open rune, pos int) *Error {
	return New(PhaseParse, KindUnclosedGroup).
		Format(format).
		Excerpt(string(open), pos).
		Detail("group starting with %q is never closed", open).
		Build()
}

// Misplaced creates a format error for an element in an invalid position
func Misplaced(format, excerpt string, pos int, detail string) *Error {
	return New(PhaseParse, KindMisplaced).
		Format(format).
		Excerpt(excerpt, pos).
		Detail("%s", detail).
		Build()
}

// BadReference creates a format error for an invalid reference index
func BadReference(phase Phase, format, excerpt string, pos int, detail string, args ...any) *Error {
	return New(phase, KindBadReference).
		Format(format).
		Excerpt(excerpt, pos).
		Detail(detail, args...).
		Build()
}

// UnsafeReference creates a format error for a reference rejected under safe mode
func UnsafeReference(format, excerpt string, pos int, detail string) *Error {
	return New(PhaseAnalyze, KindUnsafeReference).
		Format(format).
		Excerpt(excerpt, pos).
		Detail("%s", detail).
		Build()
}

// Indeterminate creates a size error for a structure whose size depends on data
func Indeterminate(format, excerpt string, pos int, detail string) *Error {
	return New(PhaseSize, KindIndeterminate).
		Format(format).
		Excerpt(excerpt, pos).
		Detail("%s", detail).
		Build()
}

// OutOfData creates a decode error for a read past the end of the source
func OutOfData(format, excerpt string, pos int, offset int64) *Error {
	return New(PhaseDecode, KindOutOfData).
		Format(format).
		Excerpt(excerpt, pos).
		Offset(offset).
		Detail("no data remaining to read element '%s'", excerpt).
		Build()
}

// Overflow creates an encode error for a value out of range for its slot
func Overflow(format, excerpt string, pos, argIndex int, value any, target string) *Error {
	return New(PhaseEncode, KindOverflow).
		Format(format).
		Excerpt(excerpt, pos).
		Arg(argIndex).
		Detail("value %v overflows %s", value, target).
		Build()
}

// TypeMismatch creates an encode error for an argument of the wrong type
func TypeMismatch(format, excerpt string, pos, argIndex int, value any, want string) *Error {
	return New(PhaseEncode, KindTypeMismatch).
		Format(format).
		Excerpt(excerpt, pos).
		Arg(argIndex).
		Detail("argument of type %T, want %s", value, want).
		Build()
}

// LengthMismatch creates an encode error for a sized slot fed the wrong length
func LengthMismatch(format, excerpt string, pos, argIndex, got, want int) *Error {
	return New(PhaseEncode, KindLengthMismatch).
		Format(format).
		Excerpt(excerpt, pos).
		Arg(argIndex).
		Detail("length %d does not match element length %d", got, want).
		Build()
}

// OutOfBounds creates an error for a refdata or buffer index out of range
func OutOfBounds(phase Phase, detail string, args ...any) *Error {
	return New(phase, KindOutOfBounds).
		Detail(detail, args...).
		Build()
}
