package handle

import "cmp"

// Key is implemented by every handle type.
type Key[T any] interface {
	comparable
	Compare(T) int
	Hash() uint64
}

// Comparer supplies equality, hashing and a strict total order for one handle
// type. The zero value is ready to use.
type Comparer[T Key[T]] struct{}

var (
	Worlds = Comparer[WorldID]{}
	Bodies = Comparer[BodyID]{}
	Shapes = Comparer[ShapeID]{}
	Chains = Comparer[ChainID]{}
)

// Equal reports structural equality over every identifying field.
func (Comparer[T]) Equal(a, b T) bool { return a == b }

// Hash is consistent with Equal.
func (Comparer[T]) Hash(a T) uint64 { return a.Hash() }

// Compare returns -1, 0 or +1.
func (Comparer[T]) Compare(a, b T) int { return a.Compare(b) }

// Less is Compare(a, b) < 0, for sort.Slice style callers.
func (Comparer[T]) Less(a, b T) bool { return a.Compare(b) < 0 }

// Compare orders by Index1, then Generation.
func (id WorldID) Compare(o WorldID) int {
	if c := cmp.Compare(id.Index1, o.Index1); c != 0 {
		return c
	}
	return cmp.Compare(id.Generation, o.Generation)
}

func (id WorldID) Hash() uint64 {
	return mix(uint64(id.Index1)<<32 | uint64(id.Generation))
}

// Compare orders by World0, then Index1, then Generation.
func (id BodyID) Compare(o BodyID) int {
	return compare3(id.World0, id.Index1, id.Generation, o.World0, o.Index1, o.Generation)
}

func (id BodyID) Hash() uint64 { return hash3(id.World0, id.Index1, id.Generation) }

func (id ShapeID) Compare(o ShapeID) int {
	return compare3(id.World0, id.Index1, id.Generation, o.World0, o.Index1, o.Generation)
}

func (id ShapeID) Hash() uint64 { return hash3(id.World0, id.Index1, id.Generation) }

func (id ChainID) Compare(o ChainID) int {
	return compare3(id.World0, id.Index1, id.Generation, o.World0, o.Index1, o.Generation)
}

func (id ChainID) Hash() uint64 { return hash3(id.World0, id.Index1, id.Generation) }

func compare3(aw, ai, ag, bw, bi, bg uint32) int {
	if c := cmp.Compare(aw, bw); c != 0 {
		return c
	}
	if c := cmp.Compare(ai, bi); c != 0 {
		return c
	}
	return cmp.Compare(ag, bg)
}

func hash3(world0, index1, generation uint32) uint64 {
	h := mix(uint64(world0)<<32 | uint64(index1))
	return mix(h ^ uint64(generation))
}

// mix is the splitmix64 finalizer. Hashes are stable across processes so they
// can be logged and compared in tests.
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// WorldRefComparer orders optional world handles. A nil reference is less than
// any present value and equal only to another nil reference.
type WorldRefComparer struct{}

var WorldRefs = WorldRefComparer{}

func (WorldRefComparer) Equal(a, b *WorldID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (WorldRefComparer) Compare(a, b *WorldID) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

func (WorldRefComparer) Hash(a *WorldID) uint64 {
	if a == nil {
		return 0
	}
	return a.Hash()
}
