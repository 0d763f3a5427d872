package sim

import (
	"go.uber.org/zap"

	"github.com/wippyai/b2-runtime/callback"
	"github.com/wippyai/b2-runtime/errors"
	"github.com/wippyai/b2-runtime/geom"
	"github.com/wippyai/b2-runtime/handle"
	"github.com/wippyai/b2-runtime/native"
)

type candidate struct {
	id     handle.ShapeID
	convex convex
}

// snapshot collects the shapes a query may visit, in creation order. The
// world lock is released before any callback runs so callbacks may call back
// into the engine.
func (e *Engine) snapshot(id handle.WorldID, filter native.QueryFilter) ([]candidate, error) {
	w, err := e.lockWorld(id)
	if err != nil {
		return nil, err
	}
	defer w.mu.Unlock()

	out := make([]candidate, 0, len(w.shapes))
	for _, s := range w.shapes {
		if s.def.IsSensor || !filter.Accepts(s.def.Filter) {
			continue
		}
		out = append(out, candidate{id: s.id, convex: s.convex()})
	}
	return out, nil
}

// CastRay visits every shape the ray crosses, calling fn for each hit
// closer than the current max fraction.
func (e *Engine) CastRay(id handle.WorldID, in native.RayInput, fn callback.CastFn, context uintptr) (callback.Stats, error) {
	if fn == nil {
		return callback.Stats{}, errors.InvalidInput(errors.PhaseNative, "nil cast callback")
	}
	if !finiteVec(in.Origin) || !finiteVec(in.Translation) {
		return callback.Stats{}, errors.InvalidInput(errors.PhaseNative, "ray must be finite")
	}
	shapes, err := e.snapshot(id, in.Filter)
	if err != nil {
		return callback.Stats{}, err
	}

	stats := callback.NewStats(1)
	for i := range shapes {
		hit, ok := rayCast(&shapes[i].convex, in.Origin, in.Translation, stats.Fraction)
		if !ok {
			continue
		}
		if !stats.Record(fn(shapes[i].id, hit.point, hit.normal, hit.fraction, context)) {
			break
		}
	}

	logQuery("ray cast", id, stats)
	return stats, nil
}

// CastShape sweeps a proxy along a translation and calls fn for every shape
// it would touch. Shapes the proxy starts in report fraction 0 with a zero
// normal.
func (e *Engine) CastShape(id handle.WorldID, in native.ShapeCastInput, fn callback.CastFn, context uintptr) (callback.Stats, error) {
	if fn == nil {
		return callback.Stats{}, errors.InvalidInput(errors.PhaseNative, "nil cast callback")
	}
	if !finiteVec(in.Translation) || in.Proxy.Count < 1 || in.Proxy.Count > geom.MaxPolygonVertices {
		return callback.Stats{}, errors.InvalidInput(errors.PhaseNative, "invalid shape cast input")
	}
	shapes, err := e.snapshot(id, in.Filter)
	if err != nil {
		return callback.Stats{}, err
	}

	var encroach float32
	if in.CanEncroach {
		encroach = e.cfg.LinearSlop
	}
	proxy := proxyConvex(&in.Proxy)
	end := proxy.translate(in.Translation)
	box := proxy.aabb().Union(end.aabb())

	stats := callback.NewStats(1)
	for i := range shapes {
		target := &shapes[i].convex
		if !box.Overlaps(target.aabb()) {
			continue
		}
		hit, ok := shapeCast(target, &proxy, in.Translation, stats.Fraction, encroach)
		if !ok {
			continue
		}
		if !stats.Record(fn(shapes[i].id, hit.point, hit.normal, hit.fraction, context)) {
			break
		}
	}

	logQuery("shape cast", id, stats)
	return stats, nil
}

// CollideMover reports a collision plane for every shape overlapping the
// mover capsule.
func (e *Engine) CollideMover(id handle.WorldID, in native.MoverInput, fn callback.PlaneFn, context uintptr) (callback.Stats, error) {
	if fn == nil {
		return callback.Stats{}, errors.InvalidInput(errors.PhaseNative, "nil plane callback")
	}
	m := in.Mover
	if !finiteVec(m.Center1) || !finiteVec(m.Center2) || !finite(m.Radius) || m.Radius < 0 {
		return callback.Stats{}, errors.InvalidInput(errors.PhaseNative, "invalid mover")
	}
	shapes, err := e.snapshot(id, in.Filter)
	if err != nil {
		return callback.Stats{}, err
	}

	var mover convex
	if m.Center1 == m.Center2 {
		mover = pointConvex(m.Center1, m.Radius)
	} else {
		mover = segmentConvex(m.Center1, m.Center2, m.Radius)
	}
	box := mover.aabb()

	stats := callback.NewStats(1)
	for i := range shapes {
		target := &shapes[i].convex
		if !box.Overlaps(target.aabb()) {
			continue
		}
		point, normal, dist := surfaceDistance(target, &mover)
		if dist > 0 {
			continue
		}
		result := callback.PlaneResult{
			Plane: geom.Plane{Normal: normal, Offset: -dist},
			Point: point,
			Hit:   true,
		}
		if !stats.RecordPlane(fn(shapes[i].id, &result, context)) {
			break
		}
	}

	logQuery("mover", id, stats)
	return stats, nil
}

func logQuery(kind string, id handle.WorldID, s callback.Stats) {
	Logger().Debug(kind,
		zap.Stringer("world", id),
		zap.Int("candidates", s.Candidates),
		zap.Int("filtered", s.Filtered),
		zap.Int("clipped", s.Clipped),
		zap.Bool("terminated", s.Terminated),
		zap.Float32("fraction", s.Fraction))
}
