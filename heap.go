package b2runtime

import "unsafe"

// Memory represents the simulation heap the native layer writes into.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, bool)
	Write(offset uint32, data []byte) bool
	Size() uint32
}

// Allocator hands out per-step scratch space in the simulation heap.
// Reset releases everything allocated since the previous Reset.
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Reset()
}

// Heap is a Memory with a frame allocator and raw address export.
// Pointer results stay valid until the next allocation that grows the heap.
type Heap interface {
	Memory
	Allocator
	Pointer(offset uint32) unsafe.Pointer
}
