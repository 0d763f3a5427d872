package sim

import (
	"go.uber.org/zap"

	"github.com/wippyai/b2-runtime/errors"
	"github.com/wippyai/b2-runtime/geom"
	"github.com/wippyai/b2-runtime/handle"
	"github.com/wippyai/b2-runtime/native"
)

// lockBody resolves a body handle and locks its world. The caller must
// unlock w.mu on success.
func (e *Engine) lockBody(id handle.BodyID) (*world, *body, error) {
	w, err := e.lockWorldAt(id.World0)
	if err != nil {
		if errors.Is(err, errors.ErrClosed) {
			return nil, nil, err
		}
		return nil, nil, errors.StaleHandle("body", id)
	}
	b, ok := w.tables.bodies.Get(slotOf(id.Index1, id.Generation))
	if !ok {
		w.mu.Unlock()
		return nil, nil, errors.StaleHandle("body", id)
	}
	return w, b, nil
}

// CreateBody adds a body to a world.
func (e *Engine) CreateBody(wid handle.WorldID, def native.BodyDef) (handle.BodyID, error) {
	if !finiteVec(def.Position) || !finiteVec(def.LinearVelocity) || !finite(def.AngularVelocity) {
		return handle.BodyID{}, errors.InvalidInput(errors.PhaseNative, "body state must be finite")
	}
	if def.Type > native.DynamicBody {
		return handle.BodyID{}, errors.InvalidInput(errors.PhaseNative, "unknown body type")
	}

	w, err := e.lockWorld(wid)
	if err != nil {
		return handle.BodyID{}, err
	}
	defer w.mu.Unlock()

	rot := def.Rotation
	if rot == (geom.Rot{}) {
		rot = geom.IdentityRot
	}
	b := &body{
		typ:          def.Type,
		xf:           geom.Transform{P: def.Position, Q: rot},
		v:            def.LinearVelocity,
		angular:      def.AngularVelocity,
		gravityScale: def.GravityScale,
		damping:      def.LinearDamping,
		name:         def.Name,
		awake:        def.Type != native.StaticBody,
	}
	if def.Type == native.StaticBody {
		b.v, b.angular = geom.Vec2{}, 0
	}
	b.updateMass()

	slot, err := w.tables.bodies.Create(b)
	if err != nil {
		return handle.BodyID{}, err
	}
	b.id = handle.BodyID{Index1: slot.Index1, World0: wid.Slot(), Generation: slot.Generation}
	w.bodies = append(w.bodies, b)

	Logger().Debug("body created",
		zap.Stringer("body", b.id),
		zap.Stringer("type", b.typ),
		zap.String("name", b.name))
	return b.id, nil
}

// DestroyBody removes a body with its shapes and chains. Contacts it was
// part of end with the next step.
func (e *Engine) DestroyBody(id handle.BodyID) error {
	w, b, err := e.lockBody(id)
	if err != nil {
		return err
	}
	defer w.mu.Unlock()

	for _, c := range b.chains {
		w.tables.chains.Drop(slotOf(c.id.Index1, c.id.Generation))
	}
	for _, s := range b.shapes {
		w.detachShape(s)
	}
	b.shapes, b.chains = nil, nil
	w.bodies = removeBody(w.bodies, b)
	w.tables.bodies.Drop(slotOf(id.Index1, id.Generation))

	Logger().Debug("body destroyed", zap.Stringer("body", id))
	return nil
}

// BodyIsValid reports whether id names a live body.
func (e *Engine) BodyIsValid(id handle.BodyID) bool {
	w, _, err := e.lockBody(id)
	if err != nil {
		return false
	}
	w.mu.Unlock()
	return true
}

// BodyType returns the body's type.
func (e *Engine) BodyType(id handle.BodyID) (native.BodyType, error) {
	w, b, err := e.lockBody(id)
	if err != nil {
		return 0, err
	}
	defer w.mu.Unlock()
	return b.typ, nil
}

// BodyTransform returns the body's position and rotation.
func (e *Engine) BodyTransform(id handle.BodyID) (geom.Transform, error) {
	w, b, err := e.lockBody(id)
	if err != nil {
		return geom.Transform{}, err
	}
	defer w.mu.Unlock()
	return b.xf, nil
}

// SetBodyTransform teleports a body and wakes it.
func (e *Engine) SetBodyTransform(id handle.BodyID, position geom.Vec2, rotation geom.Rot) error {
	if !finiteVec(position) || !finite(rotation.C) || !finite(rotation.S) {
		return errors.InvalidInput(errors.PhaseNative, "transform must be finite")
	}
	w, b, err := e.lockBody(id)
	if err != nil {
		return err
	}
	defer w.mu.Unlock()

	if rotation == (geom.Rot{}) {
		rotation = geom.IdentityRot
	}
	b.xf = geom.Transform{P: position, Q: rotation}
	b.wake()
	return nil
}

// BodyLinearVelocity returns the body's velocity.
func (e *Engine) BodyLinearVelocity(id handle.BodyID) (geom.Vec2, error) {
	w, b, err := e.lockBody(id)
	if err != nil {
		return geom.Vec2{}, err
	}
	defer w.mu.Unlock()
	return b.v, nil
}

// SetBodyLinearVelocity sets the velocity of a moving body and wakes it.
// Static bodies ignore it.
func (e *Engine) SetBodyLinearVelocity(id handle.BodyID, v geom.Vec2) error {
	if !finiteVec(v) {
		return errors.InvalidInput(errors.PhaseNative, "velocity must be finite")
	}
	w, b, err := e.lockBody(id)
	if err != nil {
		return err
	}
	defer w.mu.Unlock()

	if b.typ == native.StaticBody {
		return nil
	}
	b.v = v
	if v != (geom.Vec2{}) {
		b.wake()
	}
	return nil
}

// BodyShapes returns the body's shapes in creation order, chain segments
// included.
func (e *Engine) BodyShapes(id handle.BodyID) ([]handle.ShapeID, error) {
	w, b, err := e.lockBody(id)
	if err != nil {
		return nil, err
	}
	defer w.mu.Unlock()

	out := make([]handle.ShapeID, len(b.shapes))
	for i, s := range b.shapes {
		out[i] = s.id
	}
	return out, nil
}

// BodyAwake reports whether the body is awake. Static bodies never are.
func (e *Engine) BodyAwake(id handle.BodyID) (bool, error) {
	w, b, err := e.lockBody(id)
	if err != nil {
		return false, err
	}
	defer w.mu.Unlock()
	return b.awake, nil
}
