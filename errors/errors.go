package errors

import (
	stderrors "errors"
	"fmt"
	"math"
	"strings"
)

// Phase indicates which layer raised the error
type Phase string

const (
	PhaseHandle   Phase = "handle"   // handle construction and comparison
	PhaseView     Phase = "view"     // event buffer views
	PhaseCallback Phase = "callback" // host callbacks invoked by native queries
	PhaseNative   Phase = "native"   // native simulation layer
	PhaseLayout   Phase = "layout"   // ABI layout verification
	PhaseHeap     Phase = "heap"     // simulation heap memory
	PhaseRuntime  Phase = "runtime"  // managed facade
	PhaseLoad     Phase = "load"     // scene and script loading
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidBuffer   Kind = "invalid_buffer"
	KindOutOfBounds     Kind = "out_of_bounds"
	KindStaleHandle     Kind = "stale_handle"
	KindCallbackFailure Kind = "callback_failure"
	KindExpired         Kind = "expired"
	KindCrossWorld      Kind = "cross_world"
	KindLayoutMismatch  Kind = "layout_mismatch"
	KindAllocation      Kind = "allocation"
	KindInvalidInput    Kind = "invalid_input"
	KindInvalidData     Kind = "invalid_data"
	KindNotFound        Kind = "not_found"
	KindClosed          Kind = "closed"
	KindCapacity        Kind = "capacity"
)

// Sentinels for errors.Is. They match any *Error with the same Phase and Kind.
var (
	ErrInvalidBuffer   = &Error{Phase: PhaseView, Kind: KindInvalidBuffer}
	ErrIndexOutOfRange = &Error{Phase: PhaseView, Kind: KindOutOfBounds}
	ErrViewExpired     = &Error{Phase: PhaseView, Kind: KindExpired}
	ErrStaleHandle     = &Error{Phase: PhaseNative, Kind: KindStaleHandle}
	ErrCallbackFailure = &Error{Phase: PhaseCallback, Kind: KindCallbackFailure}
	ErrCrossWorld      = &Error{Phase: PhaseRuntime, Kind: KindCrossWorld}
	ErrClosed          = &Error{Phase: PhaseNative, Kind: KindClosed}
)

// Error is the structured error type used throughout the library
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" {
		b.WriteString(": Go type ")
		b.WriteString(e.GoType)
	}

	if e.Detail != "" {
		if e.GoType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
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

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
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

// InvalidBuffer creates an error for a native {pointer, count} pair that
// violates the non-negative count / non-nil-when-nonempty invariant.
func InvalidBuffer(path []string, count int, detail string) *Error {
	return &Error{
		Phase:  PhaseView,
		Kind:   KindInvalidBuffer,
		Path:   path,
		Detail: fmt.Sprintf("%s (count %d)", detail, count),
		Value:  count,
	}
}

// IndexOutOfRange creates an out of bounds error
func IndexOutOfRange(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// ViewExpired creates an error for access through a view whose step has ended
func ViewExpired(path []string, epoch, current uint64) *Error {
	return &Error{
		Phase:  PhaseView,
		Kind:   KindExpired,
		Path:   path,
		Detail: fmt.Sprintf("view from step %d used at step %d", epoch, current),
		Value:  epoch,
	}
}

// StaleHandle creates the error the native layer raises when a handle's
// generation no longer matches the live object in its slot.
func StaleHandle(what string, handle fmt.Stringer) *Error {
	return &Error{
		Phase:  PhaseNative,
		Kind:   KindStaleHandle,
		Path:   []string{what},
		Detail: fmt.Sprintf("%s is not alive", handle),
		Value:  handle,
	}
}

// CallbackFailure converts a recovered panic value into a structured error
func CallbackFailure(recovered any) *Error {
	e := &Error{
		Phase: PhaseCallback,
		Kind:  KindCallbackFailure,
		Value: recovered,
	}
	switch v := recovered.(type) {
	case error:
		e.Cause = v
		e.Detail = "callback panicked"
	default:
		e.Detail = fmt.Sprintf("callback panicked: %v", v)
	}
	return e
}

// InvalidReturn reports a callback result the native loop cannot interpret
func InvalidReturn(value float32) *Error {
	detail := fmt.Sprintf("callback returned %v", value)
	if math.IsNaN(float64(value)) {
		detail = "callback returned NaN"
	}
	return &Error{
		Phase:  PhaseCallback,
		Kind:   KindCallbackFailure,
		Detail: detail,
		Value:  value,
	}
}

// CrossWorld creates an error for a handle used against a world that does not own it
func CrossWorld(handle fmt.Stringer, world fmt.Stringer) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindCrossWorld,
		Detail: fmt.Sprintf("%s does not belong to %s", handle, world),
		Value:  handle,
	}
}

// LayoutMismatch creates an ABI layout verification error
func LayoutMismatch(path []string, detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseLayout,
		Kind:   KindLayoutMismatch,
		Path:   path,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Closed creates an error for use of a closed component
func Closed(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s closed", component),
	}
}

// Capacity creates an error for an exhausted slot table
func Capacity(phase Phase, what string, limit int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCapacity,
		Detail: fmt.Sprintf("%s table full (limit %d)", what, limit),
		Value:  limit,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates a scene or script loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Join returns an error wrapping the non-nil errs.
func Join(errs ...error) error { return stderrors.Join(errs...) }
