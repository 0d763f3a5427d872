// Package sim is a reference implementation of the native simulation layer.
//
// It keeps every world, body, shape and chain in generation-checked arenas
// and writes each step's events into a per-world wazero heap, so event
// views alias memory the engine owns exactly like a C library would. The
// solver is deliberately small: linear motion, one-point manifolds and
// impulse-based contact response.
package sim

import (
	"context"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/b2-runtime/errors"
	"github.com/wippyai/b2-runtime/event"
	"github.com/wippyai/b2-runtime/geom"
	"github.com/wippyai/b2-runtime/handle"
	"github.com/wippyai/b2-runtime/internal/heap"
	"github.com/wippyai/b2-runtime/native"
	"github.com/wippyai/b2-runtime/resource"
)

// Engine implements native.Engine.
type Engine struct {
	mu     sync.RWMutex
	cfg    Config
	host   *heap.Host
	worlds *resource.Arena[*world]
	// tables is indexed by world slot.
	tables []*tables
	closed bool
}

var _ native.Engine = (*Engine)(nil)

// New creates an engine. A nil cfg means defaults.
func New(ctx context.Context, cfg *Config) (*Engine, error) {
	c := cfg.withDefaults()
	host, err := heap.NewHost(ctx, c.Heap)
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:    c,
		host:   host,
		worlds: resource.NewArena[*world]("world"),
	}, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// CreateWorld allocates a world and its heap.
func (e *Engine) CreateWorld(def native.WorldDef) (handle.WorldID, error) {
	if !finiteVec(def.Gravity) {
		return handle.WorldID{}, errors.InvalidInput(errors.PhaseNative, "gravity must be finite")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return handle.WorldID{}, errors.Closed(errors.PhaseNative, "engine")
	}

	h, err := e.host.NewHeap(context.Background())
	if err != nil {
		return handle.WorldID{}, err
	}

	slot, err := e.worlds.Create(nil)
	if err != nil {
		_ = h.Close(context.Background())
		return handle.WorldID{}, err
	}
	for len(e.tables) < int(slot.Index1) {
		e.tables = append(e.tables, newTables())
	}

	id := handle.WorldID{Index1: slot.Index1, Generation: slot.Generation}
	w := newWorld(id, def, e.cfg, h, e.tables[slot.Index1-1])
	e.worlds.Set(slot, w)

	Logger().Debug("world created", zap.Stringer("world", id), zap.String("heap", h.Name()))
	return id, nil
}

// DestroyWorld frees the world, its bodies and its heap. Handles into the
// world go stale, including event views of its last step.
func (e *Engine) DestroyWorld(id handle.WorldID) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return errors.Closed(errors.PhaseNative, "engine")
	}
	w, ok := e.worlds.Drop(slotOf(id.Index1, id.Generation))
	e.mu.Unlock()
	if !ok {
		return errors.StaleHandle("world", id)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destroy()
}

func (w *world) destroy() error {
	w.destroyed = true
	w.tables.clear()
	w.bodies, w.shapes = nil, nil
	clear(w.touching)
	clear(w.sensing)
	w.pendingEnds, w.pendingSensorEnds = nil, nil
	w.bodyEvents = event.RawBodyEvents{}
	w.contactEvents = event.RawContactEvents{}
	w.sensorEvents = event.RawSensorEvents{}

	Logger().Debug("world destroyed", zap.Stringer("world", w.id), zap.Uint64("steps", w.steps))
	return w.heap.Close(context.Background())
}

// WorldIsValid reports whether id names a live world.
func (e *Engine) WorldIsValid(id handle.WorldID) bool {
	_, err := e.world(id)
	return err == nil
}

// Close destroys every world and releases the heap runtime.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	var live []*world
	e.worlds.Each(func(_ resource.Slot, w *world) bool {
		live = append(live, w)
		return true
	})
	_ = e.worlds.Close()
	tabs := e.tables
	e.mu.Unlock()

	var errs []error
	for _, w := range live {
		w.mu.Lock()
		if err := w.destroy(); err != nil {
			errs = append(errs, err)
		}
		w.mu.Unlock()
	}
	for _, t := range tabs {
		t.close()
	}
	if err := e.host.Close(context.Background()); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// world resolves a world handle.
func (e *Engine) world(id handle.WorldID) (*world, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, errors.Closed(errors.PhaseNative, "engine")
	}
	w, ok := e.worlds.Get(slotOf(id.Index1, id.Generation))
	if !ok || w == nil {
		return nil, errors.StaleHandle("world", id)
	}
	return w, nil
}

// worldAt resolves the live world in slot0, whatever its generation.
func (e *Engine) worldAt(slot0 uint32) (*world, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, errors.Closed(errors.PhaseNative, "engine")
	}
	gen, live := e.worlds.Generation(slot0 + 1)
	if !live {
		return nil, errors.New(errors.PhaseNative, errors.KindStaleHandle).
			Detail("no live world in slot %d", slot0).Build()
	}
	w, ok := e.worlds.Get(slotOf(slot0+1, gen))
	if !ok || w == nil {
		return nil, errors.New(errors.PhaseNative, errors.KindStaleHandle).
			Detail("no live world in slot %d", slot0).Build()
	}
	return w, nil
}

// lockWorld resolves and locks a world. The caller must unlock it.
func (e *Engine) lockWorld(id handle.WorldID) (*world, error) {
	w, err := e.world(id)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return nil, errors.StaleHandle("world", id)
	}
	return w, nil
}

func (e *Engine) lockWorldAt(slot0 uint32) (*world, error) {
	w, err := e.worldAt(slot0)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return nil, errors.New(errors.PhaseNative, errors.KindStaleHandle).
			Detail("no live world in slot %d", slot0).Build()
	}
	return w, nil
}

// BodyEvents returns the body events of the last step.
func (e *Engine) BodyEvents(id handle.WorldID) (event.RawBodyEvents, error) {
	w, err := e.lockWorld(id)
	if err != nil {
		return event.RawBodyEvents{}, err
	}
	defer w.mu.Unlock()
	return w.bodyEvents, nil
}

// ContactEvents returns the contact events of the last step.
func (e *Engine) ContactEvents(id handle.WorldID) (event.RawContactEvents, error) {
	w, err := e.lockWorld(id)
	if err != nil {
		return event.RawContactEvents{}, err
	}
	defer w.mu.Unlock()
	return w.contactEvents, nil
}

// SensorEvents returns the sensor events of the last step.
func (e *Engine) SensorEvents(id handle.WorldID) (event.RawSensorEvents, error) {
	w, err := e.lockWorld(id)
	if err != nil {
		return event.RawSensorEvents{}, err
	}
	defer w.mu.Unlock()
	return w.sensorEvents, nil
}

// HeapStats reports the bytes used by the last step of a world and the
// largest step so far.
func (e *Engine) HeapStats(id handle.WorldID) (used, peak uint32, err error) {
	w, err := e.lockWorld(id)
	if err != nil {
		return 0, 0, err
	}
	defer w.mu.Unlock()
	return w.heap.Used(), w.heap.Peak(), nil
}

func finite(f float32) bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}

func finiteVec(v geom.Vec2) bool { return finite(v[0]) && finite(v[1]) }
