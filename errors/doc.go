// Package errors provides structured error types for rawpack.
//
// Errors are categorized by Phase (where processing failed) and Kind (what
// went wrong). Format errors point into the format string with an excerpt
// and byte position; operation errors carry the byte offset in the data or
// the index of the offending argument.
//
// Use the Builder for complex errors:
//
//	errors.New(errors.PhaseDecode, errors.KindOutOfData).
//		Format(format).
//		Excerpt("n", 4).
//		Offset(12).
//		Detail("unterminated string").
//		Build()
//
// Or convenience constructors for common patterns:
//
//	errors.UnknownChar(format, 'Z', 3)
//	errors.Overflow(format, "B", 2, 0, 256, "uint8")
package errors
