package errors

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
)

type stringer string

func (s stringer) String() string { return string(s) }

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseView,
				Kind:   KindInvalidBuffer,
				Path:   []string{"contact", "begin"},
				GoType: "event.ContactBeginTouchEvent",
				Detail: "nil pointer",
			},
			contains: []string{"[view]", "invalid_buffer", "contact.begin", "event.ContactBeginTouchEvent", "nil pointer"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseView,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[view]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseHeap,
				Kind:   KindAllocation,
				Detail: "memory full",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[heap]", "allocation", "memory full", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(PhaseNative, KindInvalidData, cause, "step")

	if !errors.Is(err, cause) {
		t.Error("errors.Is did not reach cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_IsSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel *Error
	}{
		{"invalid buffer", InvalidBuffer([]string{"move"}, -1, "negative count"), ErrInvalidBuffer},
		{"index", IndexOutOfRange(PhaseView, nil, 3, 2), ErrIndexOutOfRange},
		{"expired", ViewExpired(nil, 1, 2), ErrViewExpired},
		{"stale", StaleHandle("body", stringer("body(0:1:1)")), ErrStaleHandle},
		{"callback", CallbackFailure("boom"), ErrCallbackFailure},
		{"cross world", CrossWorld(stringer("a"), stringer("b")), ErrCrossWorld},
		{"closed", Closed(PhaseNative, "engine"), ErrClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Fatalf("%v does not match sentinel %v", tt.err, tt.sentinel)
			}
			wrapped := fmt.Errorf("outer: %w", tt.err)
			if !errors.Is(wrapped, tt.sentinel) {
				t.Fatalf("wrapped %v does not match sentinel", wrapped)
			}
		})
	}

	if errors.Is(StaleHandle("shape", stringer("x")), ErrInvalidBuffer) {
		t.Error("stale handle matched invalid buffer sentinel")
	}
}

func TestError_As(t *testing.T) {
	err := fmt.Errorf("query: %w", IndexOutOfRange(PhaseView, []string{"hits"}, 7, 4))

	var target *Error
	if !errors.As(err, &target) {
		t.Fatal("errors.As failed")
	}
	if target.Value != 7 {
		t.Errorf("Value = %v, want 7", target.Value)
	}
	if got := strings.Join(target.Path, "."); got != "hits" {
		t.Errorf("Path = %q, want hits", got)
	}
}

func TestBuilder(t *testing.T) {
	err := New(PhaseView, KindInvalidBuffer).
		Path("sensor", "end").
		GoType("event.SensorEndTouchEvent").
		Value(-4).
		Detail("count %d", -4).
		Cause(errors.New("native")).
		Build()

	if err.Phase != PhaseView || err.Kind != KindInvalidBuffer {
		t.Fatalf("unexpected phase/kind %s/%s", err.Phase, err.Kind)
	}
	if err.Detail != "count -4" {
		t.Errorf("Detail = %q", err.Detail)
	}
	if err.Value != -4 {
		t.Errorf("Value = %v", err.Value)
	}
	if err.Cause == nil {
		t.Error("Cause not set")
	}
}

func TestCallbackFailure_ErrorCause(t *testing.T) {
	cause := errors.New("script failed")
	err := CallbackFailure(cause)
	if !errors.Is(err, cause) {
		t.Error("panic error value should become the cause")
	}

	err = CallbackFailure(42)
	if !strings.Contains(err.Error(), "42") {
		t.Errorf("message %q should mention recovered value", err.Error())
	}
}

func TestInvalidReturn_NaN(t *testing.T) {
	err := InvalidReturn(float32(math.NaN()))
	if !errors.Is(err, ErrCallbackFailure) {
		t.Fatal("invalid return should be a callback failure")
	}
	if !strings.Contains(err.Detail, "NaN") {
		t.Errorf("Detail = %q", err.Detail)
	}
}
