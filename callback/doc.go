// Package callback implements the host side of native query callbacks.
//
// Ray casts, shape casts and mover queries run a loop inside the native
// layer that calls back into Go once per candidate. The native side only
// knows two fixed signatures, CastFn and PlaneFn, plus an opaque context
// integer. Everything else is expressed with one generic type:
//
//	Func[In, Out]
//
// built by one of four constructors depending on how the caller's context
// travels:
//
//	Ref(fn, ctx)     shared or owned reference
//	Value(fn, &v)    inline value, mutated in place
//	Plain(fn)        no context
//	Opaque(fn, n)    caller-marshaled integer
//
// A Registry hands out Bindings whose Context key is a generation-checked
// arena slot. The registry's trampolines resolve the key, build the
// Candidate and invoke the Func.
//
// # Return values
//
// A cast callback steers the loop with its result:
//
//	< 0          filter: ignore the candidate, keep going
//	== 0         terminate the query
//	(0, max)     clip: later candidates must be closer than the value
//	>= max       accept without clipping, keep going
//
// NaN is a callback failure and terminates. A plane callback returns true to
// keep going and false to stop.
//
// # Failures
//
// A panic inside a callback never unwinds into the native loop. The
// trampoline recovers it, records a CallbackFailure on the binding and
// returns terminate (cast) or false (plane). Callers read the failure from
// Binding.Err after the query.
package callback
