// Package heap provides the simulation heap: a wazero linear memory per
// world with a per-step frame allocator.
//
// The native layer writes event arrays into the heap and hands out raw
// addresses to them. Growing the memory may move its buffer, so addresses
// must be taken only after the last allocation of a step.
package heap

import (
	"context"
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	b2runtime "github.com/wippyai/b2-runtime"
	"github.com/wippyai/b2-runtime/errors"
)

const (
	PageSize = 65536

	// reserved keeps offset 0 unused so no record lives at the null address.
	reserved = 16
)

// Config controls heap sizing. A nil *Config means defaults.
type Config struct {
	// InitialPages is the memory each heap starts with. 0 means 1.
	InitialPages uint32

	// MaxPages bounds each heap. 0 means 256 (16MB).
	MaxPages uint32
}

func (c *Config) withDefaults() Config {
	out := Config{InitialPages: 1, MaxPages: 256}
	if c != nil {
		if c.InitialPages > 0 {
			out.InitialPages = c.InitialPages
		}
		if c.MaxPages > 0 {
			out.MaxPages = c.MaxPages
		}
	}
	if out.MaxPages < out.InitialPages {
		out.MaxPages = out.InitialPages
	}
	return out
}

// Host owns the wazero runtime and the compiled memory module that heaps
// are instantiated from.
type Host struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	cfg      Config
	seq      atomic.Uint64
}

// NewHost compiles the memory module. Heaps run on the interpreter; they
// never execute code.
func NewHost(ctx context.Context, cfg *Config) (*Host, error) {
	c := cfg.withDefaults()

	rtCfg := wazero.NewRuntimeConfigInterpreter().
		WithMemoryLimitPages(c.MaxPages).
		WithCloseOnContextDone(false)
	rt := wazero.NewRuntimeWithConfig(ctx, rtCfg)

	compiled, err := rt.CompileModule(ctx, memoryModule(c.InitialPages, c.MaxPages))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseHeap, errors.KindAllocation, err, "compile memory module")
	}

	return &Host{runtime: rt, compiled: compiled, cfg: c}, nil
}

// Config returns the effective configuration.
func (h *Host) Config() Config { return h.cfg }

// NewHeap instantiates a fresh linear memory.
func (h *Host) NewHeap(ctx context.Context) (*Heap, error) {
	name := fmt.Sprintf("heap-%d", h.seq.Add(1))
	mod, err := h.runtime.InstantiateModule(ctx, h.compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseHeap, errors.KindAllocation, err, "instantiate "+name)
	}

	mem := mod.ExportedMemory(memoryExport)
	if mem == nil {
		_ = mod.Close(ctx)
		return nil, errors.NotFound(errors.PhaseHeap, "memory export", memoryExport)
	}

	Logger().Debug("heap created", zap.String("name", name), zap.Uint32("bytes", mem.Size()))
	return &Heap{name: name, mod: mod, mem: mem, top: reserved}, nil
}

// Close releases the runtime and every heap instantiated from it.
func (h *Host) Close(ctx context.Context) error {
	return h.runtime.Close(ctx)
}

// Heap is one linear memory with a bump allocator reset every step.
// It is not safe for concurrent use; each world owns its heap.
type Heap struct {
	mod  api.Module
	mem  api.Memory
	name string
	top  uint32
	peak uint32
}

var _ b2runtime.Heap = (*Heap)(nil)

// Name returns the module name backing the heap.
func (h *Heap) Name() string { return h.name }

// Alloc reserves size bytes aligned to align, growing the memory if needed.
func (h *Heap) Alloc(size, align uint32) (uint32, error) {
	if align == 0 {
		align = 1
	}
	off := (h.top + align - 1) &^ (align - 1)
	end := uint64(off) + uint64(size)
	if end > uint64(^uint32(0)) {
		return 0, errors.AllocationFailed(errors.PhaseHeap, size, align)
	}

	if cur := uint64(h.mem.Size()); end > cur {
		delta := uint32((end - cur + PageSize - 1) / PageSize)
		prev, ok := h.mem.Grow(delta)
		if !ok {
			return 0, errors.AllocationFailed(errors.PhaseHeap, size, align)
		}
		Logger().Debug("heap grown",
			zap.String("name", h.name),
			zap.Uint32("from_pages", prev),
			zap.Uint32("delta_pages", delta))
	}

	h.top = uint32(end)
	h.peak = max(h.peak, h.top)
	return off, nil
}

// Reset releases every allocation of the current frame.
func (h *Heap) Reset() {
	h.top = reserved
}

// Used returns the bytes allocated in the current frame.
func (h *Heap) Used() uint32 { return h.top - reserved }

// Peak returns the largest frame seen.
func (h *Heap) Peak() uint32 { return h.peak - min(h.peak, reserved) }

// Size returns the memory size in bytes.
func (h *Heap) Size() uint32 { return h.mem.Size() }

// Read returns a view of length bytes at offset. The view aliases the heap.
func (h *Heap) Read(offset, length uint32) ([]byte, bool) {
	return h.mem.Read(offset, length)
}

// Write copies data to offset.
func (h *Heap) Write(offset uint32, data []byte) bool {
	return h.mem.Write(offset, data)
}

// Pointer returns the host address of offset, or nil if it lies outside the
// memory.
func (h *Heap) Pointer(offset uint32) unsafe.Pointer {
	buf, ok := h.mem.Read(offset, 1)
	if !ok {
		return nil
	}
	return unsafe.Pointer(&buf[0])
}

// Close releases the memory instance.
func (h *Heap) Close(ctx context.Context) error {
	Logger().Debug("heap closed", zap.String("name", h.name), zap.Uint32("peak", h.Peak()))
	return h.mod.Close(ctx)
}

// Store allocates room for records in h, copies them in and returns the
// offset. Records must not contain Go pointers.
func Store[T any](h b2runtime.Heap, records []T) (uint32, error) {
	if len(records) == 0 {
		return 0, nil
	}
	var zero T
	size := uint32(unsafe.Sizeof(zero))
	align := uint32(unsafe.Alignof(zero))

	off, err := h.Alloc(size*uint32(len(records)), align)
	if err != nil {
		return 0, err
	}
	raw := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(records))), int(size)*len(records))
	if !h.Write(off, raw) {
		return 0, errors.IndexOutOfRange(errors.PhaseHeap, nil, int(off), int(h.Size()))
	}
	return off, nil
}
