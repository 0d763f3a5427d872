package runtime

import (
	"go.uber.org/zap"

	"github.com/wippyai/b2-runtime/callback"
	"github.com/wippyai/b2-runtime/geom"
	"github.com/wippyai/b2-runtime/native"
)

// CastRay runs a ray cast, calling fn for each candidate. A callback
// failure terminates the query and is returned as its error together with
// the stats gathered so far.
func (w *World) CastRay(in native.RayInput, fn callback.CastFunc) (callback.Stats, error) {
	b, err := w.rt.registry.BindCast(fn)
	if err != nil {
		return callback.Stats{}, err
	}
	defer b.Release()

	stats, err := w.rt.engine.CastRay(w.id, in, w.rt.registry.CastTrampoline(), b.Context())
	return w.finish("ray cast", stats, err, b)
}

// CastShape sweeps a proxy, calling fn for each candidate.
func (w *World) CastShape(in native.ShapeCastInput, fn callback.CastFunc) (callback.Stats, error) {
	b, err := w.rt.registry.BindCast(fn)
	if err != nil {
		return callback.Stats{}, err
	}
	defer b.Release()

	stats, err := w.rt.engine.CastShape(w.id, in, w.rt.registry.CastTrampoline(), b.Context())
	return w.finish("shape cast", stats, err, b)
}

// CollideMover gathers collision planes around a capsule, calling fn for
// each overlapping shape.
func (w *World) CollideMover(in native.MoverInput, fn callback.PlaneFunc) (callback.Stats, error) {
	b, err := w.rt.registry.BindPlane(fn)
	if err != nil {
		return callback.Stats{}, err
	}
	defer b.Release()

	stats, err := w.rt.engine.CollideMover(w.id, in, w.rt.registry.PlaneTrampoline(), b.Context())
	return w.finish("mover", stats, err, b)
}

func (w *World) finish(kind string, stats callback.Stats, err error, b *callback.Binding) (callback.Stats, error) {
	if err != nil {
		return stats, err
	}
	if cbErr := b.Err(); cbErr != nil {
		Logger().Warn("query stopped by callback failure",
			zap.String("query", kind),
			zap.Stringer("world", w.id),
			zap.Int("calls", b.Calls()),
			zap.Error(cbErr))
		return stats, cbErr
	}
	return stats, nil
}

// CastRayClosest returns the closest hit along the ray.
func (w *World) CastRayClosest(origin, translation geom.Vec2, filter native.QueryFilter) (callback.Closest, error) {
	var out callback.Closest
	in := native.RayInput{Origin: origin, Translation: translation, Filter: filter}
	_, err := w.CastRay(in, callback.ClosestHit(&out))
	return out, err
}

// CastRayAll returns every hit along the ray in visit order.
func (w *World) CastRayAll(origin, translation geom.Vec2, filter native.QueryFilter) ([]callback.Candidate, error) {
	var out callback.Collector
	in := native.RayInput{Origin: origin, Translation: translation, Filter: filter}
	_, err := w.CastRay(in, callback.AllHits(&out))
	return out.Hits, err
}

// MoverPlanes returns every collision plane around the mover.
func (w *World) MoverPlanes(mover geom.Capsule, filter native.QueryFilter) ([]callback.PlaneCandidate, error) {
	var out callback.Planes
	_, err := w.CollideMover(native.MoverInput{Mover: mover, Filter: filter}, callback.CollectPlanes(&out, 0))
	return out.Results, err
}
