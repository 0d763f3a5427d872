package callback

// Strategy records how a Func carries its context.
type Strategy uint8

const (
	StrategyNone Strategy = iota
	// StrategyRef shares a reference context with the caller.
	StrategyRef
	// StrategyValue passes an inline value by pointer; the callback may
	// mutate it in place and the caller sees the result.
	StrategyValue
	// StrategyPlain carries no context.
	StrategyPlain
	// StrategyOpaque carries a caller-marshaled integer.
	StrategyOpaque
)

func (s Strategy) String() string {
	switch s {
	case StrategyRef:
		return "ref"
	case StrategyValue:
		return "value"
	case StrategyPlain:
		return "plain"
	case StrategyOpaque:
		return "opaque"
	}
	return "none"
}

// Func is a host callback from In to Out with its context already bound.
// The zero Func has no function and must not be called.
type Func[In, Out any] struct {
	call     func(In) Out
	strategy Strategy
}

// Ref binds fn to a context shared by reference with the caller.
func Ref[In, Out, C any](fn func(In, C) Out, ctx C) Func[In, Out] {
	return Func[In, Out]{
		call:     func(in In) Out { return fn(in, ctx) },
		strategy: StrategyRef,
	}
}

// Value binds fn to an inline context value. Mutations made through the
// pointer are visible to the caller once the query returns.
func Value[In, Out, C any](fn func(In, *C) Out, ctx *C) Func[In, Out] {
	return Func[In, Out]{
		call:     func(in In) Out { return fn(in, ctx) },
		strategy: StrategyValue,
	}
}

// Plain wraps a callback that needs no context.
func Plain[In, Out any](fn func(In) Out) Func[In, Out] {
	return Func[In, Out]{call: fn, strategy: StrategyPlain}
}

// Opaque binds fn to an integer context the caller marshals itself.
func Opaque[In, Out any](fn func(In, uintptr) Out, ctx uintptr) Func[In, Out] {
	return Func[In, Out]{
		call:     func(in In) Out { return fn(in, ctx) },
		strategy: StrategyOpaque,
	}
}

// Call invokes the callback.
func (f Func[In, Out]) Call(in In) Out { return f.call(in) }

// Strategy reports how the context is carried.
func (f Func[In, Out]) Strategy() Strategy { return f.strategy }

// IsZero reports whether f has no function bound.
func (f Func[In, Out]) IsZero() bool { return f.call == nil }

// CastFunc is the host-side form of a ray or shape cast callback.
type CastFunc = Func[Candidate, float32]

// PlaneFunc is the host-side form of a mover plane callback.
type PlaneFunc = Func[PlaneCandidate, bool]
