package runtime

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/b2-runtime/abi"
	"github.com/wippyai/b2-runtime/callback"
	"github.com/wippyai/b2-runtime/errors"
	"github.com/wippyai/b2-runtime/event"
	"github.com/wippyai/b2-runtime/handle"
	"github.com/wippyai/b2-runtime/native"
	"github.com/wippyai/b2-runtime/sim"
)

// Config controls runtime creation. A nil *Config means defaults.
type Config struct {
	// Engine is the native layer to drive. nil creates a sim engine that the
	// runtime owns and closes.
	Engine native.Engine

	// Sim configures the sim engine created when Engine is nil.
	Sim *sim.Config

	// SkipLayoutCheck disables the record layout verification done by New.
	SkipLayoutCheck bool
}

// Runtime owns the native engine, the callback registry and every world
// created through it.
type Runtime struct {
	engine   native.Engine
	registry *callback.Registry
	worlds   map[handle.WorldID]*World
	mu       sync.Mutex
	owned    bool
	closed   bool
}

// New verifies the native record layouts and starts an engine.
func New(ctx context.Context, cfg *Config) (*Runtime, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	if !cfg.SkipLayoutCheck {
		if err := abi.VerifyAll(); err != nil {
			return nil, errors.Wrap(errors.PhaseRuntime, errors.KindLayoutMismatch, err, "native record layout")
		}
	}

	eng, owned := cfg.Engine, false
	if eng == nil {
		s, err := sim.New(ctx, cfg.Sim)
		if err != nil {
			return nil, errors.Load("create engine", err)
		}
		eng, owned = s, true
	}

	return &Runtime{
		engine:   eng,
		registry: callback.NewRegistry(),
		worlds:   make(map[handle.WorldID]*World),
		owned:    owned,
	}, nil
}

// Engine returns the native layer.
func (r *Runtime) Engine() native.Engine { return r.engine }

// CreateWorld creates a world.
func (r *Runtime) CreateWorld(def native.WorldDef) (*World, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.Closed(errors.PhaseRuntime, "runtime")
	}

	id, err := r.engine.CreateWorld(def)
	if err != nil {
		return nil, err
	}
	w := &World{rt: r, id: id, lease: event.NewLease()}
	r.worlds[id] = w

	Logger().Debug("world created", zap.Stringer("world", id))
	return w, nil
}

// World returns the live world with id.
func (r *Runtime) World(id handle.WorldID) (*World, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.worlds[id]
	return w, ok
}

// Worlds returns the live worlds ordered by handle.
func (r *Runtime) Worlds() []*World {
	r.mu.Lock()
	ids := handle.NewSet[handle.WorldID]()
	for id := range r.worlds {
		ids.Insert(id)
	}
	out := make([]*World, 0, ids.Len())
	for id := range ids.All() {
		out = append(out, r.worlds[id])
	}
	r.mu.Unlock()
	return out
}

func (r *Runtime) forget(id handle.WorldID) {
	r.mu.Lock()
	delete(r.worlds, id)
	r.mu.Unlock()
}

// Close destroys every world and, if the runtime created the engine,
// closes it.
func (r *Runtime) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	worlds := make([]*World, 0, len(r.worlds))
	for _, w := range r.worlds {
		worlds = append(worlds, w)
	}
	r.mu.Unlock()

	var errs []error
	for _, w := range worlds {
		if err := w.Destroy(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.registry.Close(); err != nil {
		errs = append(errs, err)
	}
	if r.owned {
		if err := r.engine.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
