package callback

import (
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/b2-runtime/errors"
	"github.com/wippyai/b2-runtime/geom"
	"github.com/wippyai/b2-runtime/handle"
	"github.com/wippyai/b2-runtime/resource"
)

// Candidate is one ray or shape cast hit offered to the host.
type Candidate struct {
	Shape    handle.ShapeID
	Point    geom.Vec2
	Normal   geom.Vec2
	Fraction float32
}

// InitialOverlap reports the shape-cast case where the proxy already
// overlaps the shape at the start: fraction 0 and a zero normal.
func (c Candidate) InitialOverlap() bool {
	return c.Fraction == 0 && c.Normal == (geom.Vec2{})
}

// PlaneResult is the native mover collision record.
type PlaneResult struct {
	Plane geom.Plane
	Point geom.Vec2
	Hit   bool
	_     [3]byte
}

// PlaneCandidate is one mover collision offered to the host.
type PlaneCandidate struct {
	Shape  handle.ShapeID
	Result PlaneResult
}

// CastFn is the fixed signature the native cast loop calls per candidate.
type CastFn func(shape handle.ShapeID, point, normal geom.Vec2, fraction float32, context uintptr) float32

// PlaneFn is the fixed signature the native mover loop calls per candidate.
type PlaneFn func(shape handle.ShapeID, result *PlaneResult, context uintptr) bool

// Registry maps opaque context keys to bound callbacks for the duration of
// one query. Keys are packed arena slots, so a released key never reaches a
// newer binding.
type Registry struct {
	bindings *resource.Arena[*Binding]

	castOnce  sync.Once
	cast      CastFn
	planeOnce sync.Once
	plane     PlaneFn
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{bindings: resource.NewArena[*Binding]("callback")}
}

// Binding is a callback registered for one query.
type Binding struct {
	reg   *Registry
	slot  resource.Slot
	cast  CastFunc
	plane PlaneFunc
	err   error
	calls int
}

// BindCast registers fn and returns its binding. Release it when the query
// returns.
func (r *Registry) BindCast(fn CastFunc) (*Binding, error) {
	return r.bind(&Binding{reg: r, cast: fn})
}

// BindPlane registers fn and returns its binding.
func (r *Registry) BindPlane(fn PlaneFunc) (*Binding, error) {
	return r.bind(&Binding{reg: r, plane: fn})
}

func (r *Registry) bind(b *Binding) (*Binding, error) {
	s, err := r.bindings.Create(b)
	if err != nil {
		return nil, err
	}
	b.slot = s
	return b, nil
}

// Len returns the number of live bindings.
func (r *Registry) Len() int { return r.bindings.Len() }

// Close releases every binding.
func (r *Registry) Close() error { return r.bindings.Close() }

// Context returns the opaque key passed across the boundary.
func (b *Binding) Context() uintptr { return uintptr(b.slot.Pack()) }

// Err returns the failure recorded while the callback ran, if any.
func (b *Binding) Err() error { return b.err }

// Calls returns how many times the callback was invoked.
func (b *Binding) Calls() int { return b.calls }

// Release unregisters the binding. Calls through its key afterwards
// terminate without reaching the callback.
func (b *Binding) Release() {
	if b.reg != nil {
		b.reg.bindings.Drop(b.slot)
	}
}

func (b *Binding) fail(err *errors.Error) {
	if b.err == nil {
		b.err = err
	}
	Logger().Warn("callback failure contained",
		zap.Stringer("binding", b.slot),
		zap.Error(err))
}

func (r *Registry) lookup(ctx uintptr) (*Binding, bool) {
	b, ok := r.bindings.Get(resource.Unpack(uint64(ctx)))
	if !ok {
		Logger().Debug("callback context is not registered", zap.Uint64("context", uint64(ctx)))
	}
	return b, ok
}

// CastTrampoline returns the CastFn that dispatches to bindings of r.
func (r *Registry) CastTrampoline() CastFn {
	r.castOnce.Do(func() { r.cast = r.dispatchCast })
	return r.cast
}

// PlaneTrampoline returns the PlaneFn that dispatches to bindings of r.
func (r *Registry) PlaneTrampoline() PlaneFn {
	r.planeOnce.Do(func() { r.plane = r.dispatchPlane })
	return r.plane
}

func (r *Registry) dispatchCast(shape handle.ShapeID, point, normal geom.Vec2, fraction float32, ctx uintptr) (out float32) {
	b, ok := r.lookup(ctx)
	if !ok || b.err != nil {
		return Terminate
	}
	if b.cast.IsZero() {
		b.fail(errors.InvalidInput(errors.PhaseCallback, "binding has no cast function"))
		return Terminate
	}

	defer func() {
		if rec := recover(); rec != nil {
			b.fail(errors.CallbackFailure(rec))
			out = Terminate
		}
	}()

	b.calls++
	v := b.cast.Call(Candidate{Shape: shape, Point: point, Normal: normal, Fraction: fraction})
	if math.IsNaN(float64(v)) {
		b.fail(errors.InvalidReturn(v))
		return Terminate
	}
	return v
}

func (r *Registry) dispatchPlane(shape handle.ShapeID, result *PlaneResult, ctx uintptr) (out bool) {
	b, ok := r.lookup(ctx)
	if !ok || b.err != nil {
		return false
	}
	if b.plane.IsZero() {
		b.fail(errors.InvalidInput(errors.PhaseCallback, "binding has no plane function"))
		return false
	}
	if result == nil {
		b.fail(errors.InvalidInput(errors.PhaseCallback, "nil plane result"))
		return false
	}

	defer func() {
		if rec := recover(); rec != nil {
			b.fail(errors.CallbackFailure(rec))
			out = false
		}
	}()

	b.calls++
	return b.plane.Call(PlaneCandidate{Shape: shape, Result: *result})
}

func (b *Binding) String() string {
	return fmt.Sprintf("binding(%s)", b.slot)
}
