package sim

import (
	"go.uber.org/zap"

	"github.com/wippyai/b2-runtime/errors"
	"github.com/wippyai/b2-runtime/geom"
	"github.com/wippyai/b2-runtime/handle"
	"github.com/wippyai/b2-runtime/native"
)

func (e *Engine) lockShape(id handle.ShapeID) (*world, *shape, error) {
	w, err := e.lockWorldAt(id.World0)
	if err != nil {
		if errors.Is(err, errors.ErrClosed) {
			return nil, nil, err
		}
		return nil, nil, errors.StaleHandle("shape", id)
	}
	s, ok := w.tables.shapes.Get(slotOf(id.Index1, id.Generation))
	if !ok {
		w.mu.Unlock()
		return nil, nil, errors.StaleHandle("shape", id)
	}
	return w, s, nil
}

func (e *Engine) lockChain(id handle.ChainID) (*world, *chain, error) {
	w, err := e.lockWorldAt(id.World0)
	if err != nil {
		if errors.Is(err, errors.ErrClosed) {
			return nil, nil, err
		}
		return nil, nil, errors.StaleHandle("chain", id)
	}
	c, ok := w.tables.chains.Get(slotOf(id.Index1, id.Generation))
	if !ok {
		w.mu.Unlock()
		return nil, nil, errors.StaleHandle("chain", id)
	}
	return w, c, nil
}

func validShapeDef(def native.ShapeDef) error {
	if !finite(def.Density) || def.Density < 0 {
		return errors.InvalidInput(errors.PhaseNative, "density must be finite and not negative")
	}
	if !finite(def.Friction) || def.Friction < 0 {
		return errors.InvalidInput(errors.PhaseNative, "friction must be finite and not negative")
	}
	if !finite(def.Restitution) || def.Restitution < 0 {
		return errors.InvalidInput(errors.PhaseNative, "restitution must be finite and not negative")
	}
	return nil
}

// attach registers s on b. The world must be locked.
func (w *world) attach(b *body, s *shape) (handle.ShapeID, error) {
	slot, err := w.tables.shapes.Create(s)
	if err != nil {
		return handle.ShapeID{}, err
	}
	s.id = handle.ShapeID{Index1: slot.Index1, World0: b.id.World0, Generation: slot.Generation}
	s.seq = w.nextSeq()
	s.body = b
	b.shapes = append(b.shapes, s)
	w.shapes = append(w.shapes, s)
	b.updateMass()
	b.wake()
	return s.id, nil
}

func (e *Engine) createShape(bid handle.BodyID, def native.ShapeDef, s *shape) (handle.ShapeID, error) {
	if err := validShapeDef(def); err != nil {
		return handle.ShapeID{}, err
	}
	w, b, err := e.lockBody(bid)
	if err != nil {
		return handle.ShapeID{}, err
	}
	defer w.mu.Unlock()

	s.def = def
	id, err := w.attach(b, s)
	if err != nil {
		return handle.ShapeID{}, err
	}
	Logger().Debug("shape created", zap.Stringer("shape", id), zap.Stringer("body", bid))
	return id, nil
}

// CreateCircleShape attaches a circle to a body.
func (e *Engine) CreateCircleShape(bid handle.BodyID, def native.ShapeDef, c geom.Circle) (handle.ShapeID, error) {
	if !finiteVec(c.Center) || !finite(c.Radius) || c.Radius <= 0 {
		return handle.ShapeID{}, errors.InvalidInput(errors.PhaseNative, "circle radius must be positive")
	}
	return e.createShape(bid, def, &shape{kind: circleShape, circle: c})
}

// CreatePolygonShape attaches a convex polygon to a body.
func (e *Engine) CreatePolygonShape(bid handle.BodyID, def native.ShapeDef, p geom.Polygon) (handle.ShapeID, error) {
	if p.Count < 3 || p.Count > geom.MaxPolygonVertices {
		return handle.ShapeID{}, errors.InvalidInput(errors.PhaseNative, "polygon needs 3 to 8 vertices")
	}
	return e.createShape(bid, def, &shape{kind: polygonShape, polygon: p})
}

// CreateSegmentShape attaches a line segment to a body.
func (e *Engine) CreateSegmentShape(bid handle.BodyID, def native.ShapeDef, seg geom.Segment) (handle.ShapeID, error) {
	if !finiteVec(seg.Point1) || !finiteVec(seg.Point2) || seg.Point1 == seg.Point2 {
		return handle.ShapeID{}, errors.InvalidInput(errors.PhaseNative, "segment points must differ")
	}
	return e.createShape(bid, def, &shape{kind: segmentShape, segment: seg})
}

// DestroyShape removes a shape. Chain segments go with their chain only.
func (e *Engine) DestroyShape(id handle.ShapeID) error {
	w, s, err := e.lockShape(id)
	if err != nil {
		return err
	}
	defer w.mu.Unlock()

	if s.kind == chainSegmentShape {
		return errors.InvalidInput(errors.PhaseNative, "chain segments are destroyed with their chain")
	}
	b := s.body
	b.shapes = removeShape(b.shapes, s)
	w.detachShape(s)
	b.updateMass()
	b.wake()

	Logger().Debug("shape destroyed", zap.Stringer("shape", id))
	return nil
}

// ShapeIsValid reports whether id names a live shape.
func (e *Engine) ShapeIsValid(id handle.ShapeID) bool {
	w, _, err := e.lockShape(id)
	if err != nil {
		return false
	}
	w.mu.Unlock()
	return true
}

// ShapeBody returns the body a shape is attached to.
func (e *Engine) ShapeBody(id handle.ShapeID) (handle.BodyID, error) {
	w, s, err := e.lockShape(id)
	if err != nil {
		return handle.BodyID{}, err
	}
	defer w.mu.Unlock()
	return s.body.id, nil
}

// ShapeAABB returns the shape's bounds in world space.
func (e *Engine) ShapeAABB(id handle.ShapeID) (geom.AABB, error) {
	w, s, err := e.lockShape(id)
	if err != nil {
		return geom.AABB{}, err
	}
	defer w.mu.Unlock()
	c := s.convex()
	return c.aabb(), nil
}

// CreateChain attaches a chain of segments to a body. An open chain needs
// two points, a loop three.
func (e *Engine) CreateChain(bid handle.BodyID, def native.ChainDef) (handle.ChainID, error) {
	need := 2
	if def.Loop {
		need = 3
	}
	if len(def.Points) < need {
		return handle.ChainID{}, errors.InvalidInput(errors.PhaseNative, "chain has too few points")
	}
	for i, p := range def.Points {
		if !finiteVec(p) {
			return handle.ChainID{}, errors.InvalidInput(errors.PhaseNative, "chain points must be finite")
		}
		if i > 0 && p == def.Points[i-1] {
			return handle.ChainID{}, errors.InvalidInput(errors.PhaseNative, "chain points must differ")
		}
	}
	if def.Loop && def.Points[0] == def.Points[len(def.Points)-1] {
		return handle.ChainID{}, errors.InvalidInput(errors.PhaseNative, "loop chain must not repeat its first point")
	}

	w, b, err := e.lockBody(bid)
	if err != nil {
		return handle.ChainID{}, err
	}
	defer w.mu.Unlock()

	c := &chain{body: b, loop: def.Loop}
	slot, err := w.tables.chains.Create(c)
	if err != nil {
		return handle.ChainID{}, err
	}
	c.id = handle.ChainID{Index1: slot.Index1, World0: bid.World0, Generation: slot.Generation}

	sdef := native.DefaultShapeDef()
	sdef.Filter = def.Filter
	sdef.Density = 0
	sdef.EnableSensorEvents = def.EnableSensorEvents

	n := len(def.Points)
	segments := n - 1
	if def.Loop {
		segments = n
	}
	for i := 0; i < segments; i++ {
		s := &shape{
			kind:    chainSegmentShape,
			def:     sdef,
			chain:   c,
			segment: geom.Segment{Point1: def.Points[i], Point2: def.Points[(i+1)%n]},
		}
		if _, err := w.attach(b, s); err != nil {
			w.dropChain(c)
			return handle.ChainID{}, err
		}
		c.segments = append(c.segments, s)
	}
	b.chains = append(b.chains, c)

	Logger().Debug("chain created", zap.Stringer("chain", c.id), zap.Int("segments", segments))
	return c.id, nil
}

// dropChain detaches every segment of c and frees its slot.
func (w *world) dropChain(c *chain) {
	b := c.body
	for _, s := range c.segments {
		b.shapes = removeShape(b.shapes, s)
		w.detachShape(s)
	}
	c.segments = nil
	b.chains = removeChain(b.chains, c)
	w.tables.chains.Drop(slotOf(c.id.Index1, c.id.Generation))
	b.updateMass()
}

// DestroyChain removes a chain and its segments.
func (e *Engine) DestroyChain(id handle.ChainID) error {
	w, c, err := e.lockChain(id)
	if err != nil {
		return err
	}
	defer w.mu.Unlock()
	w.dropChain(c)
	Logger().Debug("chain destroyed", zap.Stringer("chain", id))
	return nil
}

// ChainIsValid reports whether id names a live chain.
func (e *Engine) ChainIsValid(id handle.ChainID) bool {
	w, _, err := e.lockChain(id)
	if err != nil {
		return false
	}
	w.mu.Unlock()
	return true
}

// ChainSegments returns the segment shapes of a chain in order.
func (e *Engine) ChainSegments(id handle.ChainID) ([]handle.ShapeID, error) {
	w, c, err := e.lockChain(id)
	if err != nil {
		return nil, err
	}
	defer w.mu.Unlock()

	out := make([]handle.ShapeID, len(c.segments))
	for i, s := range c.segments {
		out[i] = s.id
	}
	return out, nil
}
