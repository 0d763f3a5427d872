// Package errors provides structured error types for the b2-runtime library.
//
// Errors are categorized by Phase (which layer raised them) and Kind (error category).
// The Error type carries a field path, the offending value and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseView, errors.KindInvalidBuffer).
//		Path("contact", "begin").
//		Value(count).
//		Detail("negative count").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.IndexOutOfRange(errors.PhaseView, path, 10, 5)
//	err := errors.StaleHandle("body", id)
//
// All errors implement the standard error interface and support errors.Is/As.
// Sentinels such as ErrStaleHandle match any error of the same Phase and Kind.
package errors
