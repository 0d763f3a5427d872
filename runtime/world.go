package runtime

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/b2-runtime/errors"
	"github.com/wippyai/b2-runtime/event"
	"github.com/wippyai/b2-runtime/geom"
	"github.com/wippyai/b2-runtime/handle"
	"github.com/wippyai/b2-runtime/native"
)

// World is one simulation instance. Its methods must not be called
// concurrently with each other.
type World struct {
	rt        *Runtime
	lease     *event.Lease
	id        handle.WorldID
	mu        sync.Mutex
	destroyed bool
}

// Events holds the views of one step's events.
type Events struct {
	Body    event.BodyEvents
	Contact event.ContactEvents
	Sensor  event.SensorEvents
}

// ID returns the world handle.
func (w *World) ID() handle.WorldID { return w.id }

func (w *World) String() string { return w.id.String() }

// Valid asks the native layer whether the world is alive.
func (w *World) Valid() bool { return w.rt.engine.WorldIsValid(w.id) }

// Epoch returns the number of times the world's event views have been
// invalidated.
func (w *World) Epoch() uint64 { return w.lease.Epoch() }

// scoped is implemented by body, shape and chain handles.
type scoped interface {
	fmt.Stringer
	IsNull() bool
	BelongsTo(handle.WorldID) bool
}

// own rejects handles that are null or scoped to another world slot.
func (w *World) own(what string, id scoped) error {
	if id.IsNull() {
		return errors.New(errors.PhaseRuntime, errors.KindInvalidInput).
			Path(what).Detail("null handle").Build()
	}
	if !id.BelongsTo(w.id) {
		return errors.CrossWorld(id, w.id)
	}
	return nil
}

// Step advances the world. Views from the previous step expire.
func (w *World) Step(timeStep float32, subSteps int) error {
	w.lease.Expire()
	return w.rt.engine.Step(w.id, timeStep, subSteps)
}

// Events wraps the native event arrays of the last step. The views expire
// with the next Step or Destroy.
func (w *World) Events() (Events, error) {
	var out Events
	var err error
	if out.Body, err = w.BodyEvents(); err != nil {
		return Events{}, err
	}
	if out.Contact, err = w.ContactEvents(); err != nil {
		return Events{}, err
	}
	if out.Sensor, err = w.SensorEvents(); err != nil {
		return Events{}, err
	}
	return out, nil
}

// BodyEvents returns the move events of the last step.
func (w *World) BodyEvents() (event.BodyEvents, error) {
	raw, err := w.rt.engine.BodyEvents(w.id)
	if err != nil {
		return event.BodyEvents{}, err
	}
	return event.WrapBody(raw, w.lease)
}

// ContactEvents returns the contact events of the last step.
func (w *World) ContactEvents() (event.ContactEvents, error) {
	raw, err := w.rt.engine.ContactEvents(w.id)
	if err != nil {
		return event.ContactEvents{}, err
	}
	return event.WrapContact(raw, w.lease)
}

// SensorEvents returns the sensor events of the last step.
func (w *World) SensorEvents() (event.SensorEvents, error) {
	raw, err := w.rt.engine.SensorEvents(w.id)
	if err != nil {
		return event.SensorEvents{}, err
	}
	return event.WrapSensor(raw, w.lease)
}

// Destroy frees the world. Handles into it go stale and its views expire.
func (w *World) Destroy() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return nil
	}
	w.destroyed = true
	w.lease.Expire()
	w.rt.forget(w.id)

	Logger().Debug("world destroyed", zap.Stringer("world", w.id))
	return w.rt.engine.DestroyWorld(w.id)
}

// CreateBody adds a body.
func (w *World) CreateBody(def native.BodyDef) (handle.BodyID, error) {
	return w.rt.engine.CreateBody(w.id, def)
}

// DestroyBody removes a body with its shapes and chains.
func (w *World) DestroyBody(b handle.BodyID) error {
	if err := w.own("body", b); err != nil {
		return err
	}
	return w.rt.engine.DestroyBody(b)
}

// BodyIsValid asks the native layer whether b is alive in this world.
func (w *World) BodyIsValid(b handle.BodyID) bool {
	return w.own("body", b) == nil && w.rt.engine.BodyIsValid(b)
}

func (w *World) BodyType(b handle.BodyID) (native.BodyType, error) {
	if err := w.own("body", b); err != nil {
		return 0, err
	}
	return w.rt.engine.BodyType(b)
}

func (w *World) BodyTransform(b handle.BodyID) (geom.Transform, error) {
	if err := w.own("body", b); err != nil {
		return geom.Transform{}, err
	}
	return w.rt.engine.BodyTransform(b)
}

func (w *World) SetBodyTransform(b handle.BodyID, position geom.Vec2, rotation geom.Rot) error {
	if err := w.own("body", b); err != nil {
		return err
	}
	return w.rt.engine.SetBodyTransform(b, position, rotation)
}

func (w *World) BodyLinearVelocity(b handle.BodyID) (geom.Vec2, error) {
	if err := w.own("body", b); err != nil {
		return geom.Vec2{}, err
	}
	return w.rt.engine.BodyLinearVelocity(b)
}

func (w *World) SetBodyLinearVelocity(b handle.BodyID, v geom.Vec2) error {
	if err := w.own("body", b); err != nil {
		return err
	}
	return w.rt.engine.SetBodyLinearVelocity(b, v)
}

// BodyShapes returns the shapes attached to b.
func (w *World) BodyShapes(b handle.BodyID) ([]handle.ShapeID, error) {
	if err := w.own("body", b); err != nil {
		return nil, err
	}
	return w.rt.engine.BodyShapes(b)
}

// CreateCircle attaches a circle to b.
func (w *World) CreateCircle(b handle.BodyID, def native.ShapeDef, c geom.Circle) (handle.ShapeID, error) {
	if err := w.own("body", b); err != nil {
		return handle.ShapeID{}, err
	}
	return w.rt.engine.CreateCircleShape(b, def, c)
}

// CreatePolygon attaches a convex polygon to b.
func (w *World) CreatePolygon(b handle.BodyID, def native.ShapeDef, p geom.Polygon) (handle.ShapeID, error) {
	if err := w.own("body", b); err != nil {
		return handle.ShapeID{}, err
	}
	return w.rt.engine.CreatePolygonShape(b, def, p)
}

// CreateSegment attaches a segment to b.
func (w *World) CreateSegment(b handle.BodyID, def native.ShapeDef, s geom.Segment) (handle.ShapeID, error) {
	if err := w.own("body", b); err != nil {
		return handle.ShapeID{}, err
	}
	return w.rt.engine.CreateSegmentShape(b, def, s)
}

func (w *World) DestroyShape(s handle.ShapeID) error {
	if err := w.own("shape", s); err != nil {
		return err
	}
	return w.rt.engine.DestroyShape(s)
}

func (w *World) ShapeIsValid(s handle.ShapeID) bool {
	return w.own("shape", s) == nil && w.rt.engine.ShapeIsValid(s)
}

func (w *World) ShapeBody(s handle.ShapeID) (handle.BodyID, error) {
	if err := w.own("shape", s); err != nil {
		return handle.BodyID{}, err
	}
	return w.rt.engine.ShapeBody(s)
}

func (w *World) ShapeAABB(s handle.ShapeID) (geom.AABB, error) {
	if err := w.own("shape", s); err != nil {
		return geom.AABB{}, err
	}
	return w.rt.engine.ShapeAABB(s)
}

// CreateChain attaches a chain of segments to b.
func (w *World) CreateChain(b handle.BodyID, def native.ChainDef) (handle.ChainID, error) {
	if err := w.own("body", b); err != nil {
		return handle.ChainID{}, err
	}
	return w.rt.engine.CreateChain(b, def)
}

func (w *World) DestroyChain(c handle.ChainID) error {
	if err := w.own("chain", c); err != nil {
		return err
	}
	return w.rt.engine.DestroyChain(c)
}

func (w *World) ChainIsValid(c handle.ChainID) bool {
	return w.own("chain", c) == nil && w.rt.engine.ChainIsValid(c)
}

func (w *World) ChainSegments(c handle.ChainID) ([]handle.ShapeID, error) {
	if err := w.own("chain", c); err != nil {
		return nil, err
	}
	return w.rt.engine.ChainSegments(c)
}
