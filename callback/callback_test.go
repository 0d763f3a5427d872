package callback

import (
	"fmt"
	"math"
	"testing"
	"unsafe"

	"github.com/wippyai/b2-runtime/errors"
	"github.com/wippyai/b2-runtime/geom"
	"github.com/wippyai/b2-runtime/handle"
)

func TestInterpret(t *testing.T) {
	nan := float32(math.NaN())
	tests := []struct {
		name   string
		value  float32
		max    float32
		action Action
		next   float32
	}{
		{"filter", -1, 1, ActionFilter, 1},
		{"any negative filters", -0.25, 0.5, ActionFilter, 0.5},
		{"terminate", 0, 1, ActionTerminate, 1},
		{"clip", 0.4, 1, ActionClip, 0.4},
		{"accept at max", 1, 1, ActionAccept, 1},
		{"accept above max", 2, 0.5, ActionAccept, 0.5},
		{"nan terminates", nan, 1, ActionTerminate, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, next := Interpret(tt.value, tt.max)
			if action != tt.action || next != tt.next {
				t.Errorf("Interpret(%v, %v) = %v, %v; want %v, %v", tt.value, tt.max, action, next, tt.action, tt.next)
			}
		})
	}
}

func TestStats_Record(t *testing.T) {
	s := NewStats(1)
	for _, v := range []float32{-1, 0.8, 0.9, 0.5, 1} {
		if !s.Record(v) {
			t.Fatalf("Record(%v) stopped", v)
		}
	}
	if s.Candidates != 5 || s.Filtered != 1 || s.Clipped != 2 || s.Accepted != 2 {
		t.Fatalf("stats = %+v", s)
	}
	if s.Fraction != 0.5 {
		t.Fatalf("Fraction = %v, want 0.5", s.Fraction)
	}
	if s.Record(0) || !s.Terminated {
		t.Fatal("Record(0) must terminate")
	}
}

func TestStrategies(t *testing.T) {
	in := Candidate{Fraction: 0.25}

	type counter struct{ n int }
	shared := &counter{}
	ref := Ref(func(c Candidate, ctx *counter) float32 { ctx.n++; return c.Fraction }, shared)

	var inline counter
	val := Value(func(c Candidate, ctx *counter) float32 { ctx.n += 10; return c.Fraction }, &inline)

	plain := Plain(func(c Candidate) float32 { return c.Fraction * 2 })

	var seen uintptr
	opaque := Opaque(func(c Candidate, ctx uintptr) float32 { seen = ctx; return Continue }, 42)

	if ref.Call(in) != 0.25 || shared.n != 1 || ref.Strategy() != StrategyRef {
		t.Error("ref strategy")
	}
	if val.Call(in) != 0.25 || inline.n != 10 || val.Strategy() != StrategyValue {
		t.Error("value strategy")
	}
	if plain.Call(in) != 0.5 || plain.Strategy() != StrategyPlain {
		t.Error("plain strategy")
	}
	if opaque.Call(in) != Continue || seen != 42 || opaque.Strategy() != StrategyOpaque {
		t.Error("opaque strategy")
	}
	if !(CastFunc{}).IsZero() || ref.IsZero() {
		t.Error("IsZero")
	}
}

// runCast mimics a native cast loop: visit candidates in order, skip the ones
// beyond the current max fraction, steer with the callback result.
func runCast(fn CastFn, ctx uintptr, candidates []Candidate) Stats {
	s := NewStats(1)
	for _, c := range candidates {
		if c.Fraction > s.Fraction {
			continue
		}
		if !s.Record(fn(c.Shape, c.Point, c.Normal, c.Fraction, ctx)) {
			break
		}
	}
	return s
}

func candidates() []Candidate {
	return []Candidate{
		{Shape: handle.ShapeID{Index1: 1, Generation: 1}, Fraction: 0.7, Normal: geom.V(0, 1)},
		{Shape: handle.ShapeID{Index1: 2, Generation: 1}, Fraction: 0.3, Normal: geom.V(0, 1)},
		{Shape: handle.ShapeID{Index1: 3, Generation: 1}, Fraction: 0.5, Normal: geom.V(0, 1)},
		{Shape: handle.ShapeID{Index1: 4, Generation: 1}, Fraction: 0.9, Normal: geom.V(0, 1)},
	}
}

func TestTrampoline_FilterVisitsAll(t *testing.T) {
	r := NewRegistry()
	calls := 0
	b, err := r.BindCast(Plain(func(Candidate) float32 { calls++; return Filter }))
	if err != nil {
		t.Fatal(err)
	}
	defer b.Release()

	s := runCast(r.CastTrampoline(), b.Context(), candidates())
	if calls != 4 || s.Candidates != 4 || s.Filtered != 4 || s.Accepted+s.Clipped != 0 {
		t.Fatalf("calls %d stats %+v", calls, s)
	}
}

func TestTrampoline_ZeroTerminatesAfterOneCall(t *testing.T) {
	r := NewRegistry()
	calls := 0
	b, _ := r.BindCast(Plain(func(Candidate) float32 { calls++; return Terminate }))
	defer b.Release()

	s := runCast(r.CastTrampoline(), b.Context(), candidates())
	if calls != 1 || !s.Terminated {
		t.Fatalf("calls %d stats %+v", calls, s)
	}
}

func TestTrampoline_ClipConstrainsLaterCandidates(t *testing.T) {
	r := NewRegistry()
	var seen []float32
	b, _ := r.BindCast(Plain(func(c Candidate) float32 {
		seen = append(seen, c.Fraction)
		return c.Fraction
	}))
	defer b.Release()

	s := runCast(r.CastTrampoline(), b.Context(), candidates())

	// 0.7 clips, 0.3 clips, 0.5 and 0.9 lie beyond 0.3.
	if len(seen) != 2 || seen[0] != 0.7 || seen[1] != 0.3 {
		t.Fatalf("seen %v", seen)
	}
	if s.Fraction != 0.3 {
		t.Fatalf("Fraction = %v", s.Fraction)
	}
}

func TestClosestAndAllHits(t *testing.T) {
	r := NewRegistry()

	var closest Closest
	b, _ := r.BindCast(ClosestHit(&closest))
	runCast(r.CastTrampoline(), b.Context(), candidates())
	b.Release()
	if !closest.Found || closest.Hit.Shape.Index1 != 2 {
		t.Fatalf("closest = %+v", closest)
	}

	var all Collector
	b, _ = r.BindCast(AllHits(&all))
	runCast(r.CastTrampoline(), b.Context(), candidates())
	b.Release()
	if len(all.Hits) != 4 || all.Hits[0].Shape.Index1 != 1 || all.Hits[3].Shape.Index1 != 4 {
		t.Fatalf("all = %+v", all.Hits)
	}

	var odd Collector
	b, _ = r.BindCast(Where(func(c Candidate) bool { return c.Shape.Index1%2 == 1 }, AllHits(&odd)))
	runCast(r.CastTrampoline(), b.Context(), candidates())
	b.Release()
	if len(odd.Hits) != 2 {
		t.Fatalf("filtered hits = %+v", odd.Hits)
	}
}

func TestTrampoline_PanicIsContained(t *testing.T) {
	r := NewRegistry()
	calls := 0
	b, _ := r.BindCast(Plain(func(Candidate) float32 {
		calls++
		panic(fmt.Errorf("boom"))
	}))
	defer b.Release()

	s := runCast(r.CastTrampoline(), b.Context(), candidates())
	if calls != 1 || !s.Terminated {
		t.Fatalf("calls %d stats %+v", calls, s)
	}
	if !errors.Is(b.Err(), errors.ErrCallbackFailure) {
		t.Fatalf("Err = %v", b.Err())
	}
	var e *errors.Error
	if !errors.As(b.Err(), &e) || e.Cause == nil || e.Cause.Error() != "boom" {
		t.Fatalf("cause not kept: %v", b.Err())
	}
}

func TestTrampoline_NaNIsFailure(t *testing.T) {
	r := NewRegistry()
	b, _ := r.BindCast(Plain(func(Candidate) float32 { return float32(math.NaN()) }))
	defer b.Release()

	s := runCast(r.CastTrampoline(), b.Context(), candidates())
	if !s.Terminated || s.Candidates != 1 {
		t.Fatalf("stats %+v", s)
	}
	if !errors.Is(b.Err(), errors.ErrCallbackFailure) {
		t.Fatalf("Err = %v", b.Err())
	}
}

func TestTrampoline_ReleasedKeyTerminates(t *testing.T) {
	r := NewRegistry()
	calls := 0
	b, _ := r.BindCast(Plain(func(Candidate) float32 { calls++; return Continue }))
	key := b.Context()
	b.Release()

	// A new binding takes the same index with a newer generation.
	b2, _ := r.BindCast(Plain(func(Candidate) float32 { calls += 100; return Continue }))
	defer b2.Release()

	if v := r.CastTrampoline()(handle.ShapeID{}, geom.Vec2{}, geom.Vec2{}, 0.5, key); v != Terminate {
		t.Fatalf("stale key returned %v", v)
	}
	if calls != 0 {
		t.Fatalf("stale key reached a callback (%d)", calls)
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d", r.Len())
	}
}

func TestPlaneTrampoline(t *testing.T) {
	r := NewRegistry()

	var planes Planes
	b, _ := r.BindPlane(CollectPlanes(&planes, 2))
	fn := r.PlaneTrampoline()
	res := PlaneResult{Plane: geom.Plane{Normal: geom.V(0, 1), Offset: 0.1}, Hit: true}

	if !fn(handle.ShapeID{Index1: 1}, &res, b.Context()) {
		t.Fatal("first plane should continue")
	}
	if fn(handle.ShapeID{Index1: 2}, &res, b.Context()) {
		t.Fatal("limit reached, should stop")
	}
	if len(planes.Results) != 2 || planes.Results[1].Shape.Index1 != 2 {
		t.Fatalf("planes = %+v", planes.Results)
	}
	b.Release()

	b, _ = r.BindPlane(Plain(func(PlaneCandidate) bool { panic("bad plane") }))
	if fn(handle.ShapeID{}, &res, b.Context()) {
		t.Fatal("panicking plane callback must stop")
	}
	if !errors.Is(b.Err(), errors.ErrCallbackFailure) {
		t.Fatalf("Err = %v", b.Err())
	}
	b.Release()
}

func TestCandidate_InitialOverlap(t *testing.T) {
	if !(Candidate{}).InitialOverlap() {
		t.Error("zero fraction and normal is an initial overlap")
	}
	if (Candidate{Normal: geom.V(1, 0)}).InitialOverlap() {
		t.Error("a normal means a real hit at fraction 0")
	}
}

func TestPlaneResult_Size(t *testing.T) {
	if got := unsafe.Sizeof(PlaneResult{}); got != 24 {
		t.Fatalf("sizeof(PlaneResult) = %d, want 24", got)
	}
}
