package handle

import (
	"sort"
	"testing"
)

func worldSamples() []WorldID {
	var out []WorldID
	for i := uint32(0); i < 4; i++ {
		for g := uint32(0); g < 4; g++ {
			out = append(out, WorldID{Index1: i, Generation: g})
		}
	}
	out = append(out, WorldID{Index1: ^uint32(0), Generation: ^uint32(0)})
	return out
}

func bodySamples() []BodyID {
	var out []BodyID
	for w := uint32(0); w < 3; w++ {
		for i := uint32(0); i < 3; i++ {
			for g := uint32(0); g < 3; g++ {
				out = append(out, BodyID{Index1: i, World0: w, Generation: g})
			}
		}
	}
	out = append(out, BodyID{Index1: ^uint32(0), World0: ^uint32(0), Generation: ^uint32(0)})
	return out
}

func checkComparer[T Key[T]](t *testing.T, c Comparer[T], samples []T) {
	t.Helper()
	for _, a := range samples {
		if c.Compare(a, a) != 0 {
			t.Fatalf("Compare(%v, %v) != 0", a, a)
		}
		for _, b := range samples {
			ab := c.Compare(a, b)
			if c.Equal(a, b) != (ab == 0) {
				t.Fatalf("Equal(%v, %v) = %v but Compare = %d", a, b, c.Equal(a, b), ab)
			}
			if ab != -c.Compare(b, a) {
				t.Fatalf("Compare not antisymmetric for %v, %v", a, b)
			}
			if c.Equal(a, b) && c.Hash(a) != c.Hash(b) {
				t.Fatalf("equal handles %v, %v hash differently", a, b)
			}
			for _, x := range samples {
				if ab < 0 && c.Compare(b, x) < 0 && c.Compare(a, x) >= 0 {
					t.Fatalf("Compare not transitive for %v < %v < %v", a, b, x)
				}
			}
		}
	}
}

func TestComparer_World(t *testing.T) {
	checkComparer(t, Worlds, worldSamples())
}

func TestComparer_Body(t *testing.T) {
	checkComparer(t, Bodies, bodySamples())
}

func TestComparer_ShapeAndChain(t *testing.T) {
	var shapes []ShapeID
	var chains []ChainID
	for _, b := range bodySamples() {
		shapes = append(shapes, ShapeID(b))
		chains = append(chains, ChainID(b))
	}
	checkComparer(t, Shapes, shapes)
	checkComparer(t, Chains, chains)
}

func TestWorldID_CompareReduction(t *testing.T) {
	sign := func(x int64) int {
		switch {
		case x < 0:
			return -1
		case x > 0:
			return 1
		}
		return 0
	}

	for _, a := range worldSamples() {
		for _, b := range worldSamples() {
			got := Worlds.Compare(a, b)
			var want int
			if a.Index1 == b.Index1 {
				want = sign(int64(a.Generation) - int64(b.Generation))
			} else {
				want = sign(int64(a.Index1) - int64(b.Index1))
			}
			if got != want {
				t.Fatalf("Compare(%v, %v) = %d, want %d", a, b, got, want)
			}
			if (got == 0) != (a == b) {
				t.Fatalf("Compare(%v, %v) zero mismatch", a, b)
			}
		}
	}
}

func TestBodyID_ScopeIsPrimaryKey(t *testing.T) {
	a := BodyID{Index1: 9, World0: 0, Generation: 9}
	b := BodyID{Index1: 1, World0: 1, Generation: 1}
	if Bodies.Compare(a, b) >= 0 {
		t.Fatalf("world scope should order before index: %v vs %v", a, b)
	}

	c := BodyID{Index1: 1, World0: 1, Generation: 7}
	if Bodies.Compare(b, c) >= 0 {
		t.Fatalf("generation should break ties: %v vs %v", b, c)
	}
}

func TestHandles_IndependentInstancesEqual(t *testing.T) {
	build := func() ShapeID { return ShapeID{Index1: 5, World0: 2, Generation: 3} }
	a, b := build(), build()
	pa, pb := &a, &b
	if pa == pb {
		t.Fatal("test requires distinct instances")
	}
	if !Shapes.Equal(*pa, *pb) || Shapes.Compare(*pa, *pb) != 0 {
		t.Fatal("same triple should compare equal")
	}
	if Shapes.Hash(*pa) != Shapes.Hash(*pb) {
		t.Fatal("same triple should hash identically")
	}

	body := BodyID{Index1: 5, World0: 2, Generation: 3}
	if Bodies.Hash(body) != Bodies.Hash(BodyID{Index1: 5, World0: 2, Generation: 3}) {
		t.Fatal("body hash not deterministic")
	}
}

func TestHandles_CrossWorldDoNotCollide(t *testing.T) {
	a := ShapeID{Index1: 1, World0: 0, Generation: 1}
	b := ShapeID{Index1: 1, World0: 1, Generation: 1}
	if Shapes.Equal(a, b) {
		t.Fatal("shapes from different world slots must differ")
	}
	if !a.BelongsTo(WorldID{Index1: 1, Generation: 1}) {
		t.Error("shape with World0=0 belongs to world index 1")
	}
	if b.BelongsTo(WorldID{Index1: 1, Generation: 1}) {
		t.Error("shape with World0=1 does not belong to world index 1")
	}
	if a.BelongsTo(WorldID{}) {
		t.Error("nothing belongs to the null world")
	}
}

func TestWorldRefComparer(t *testing.T) {
	w1 := &WorldID{Index1: 1, Generation: 1}
	w2 := &WorldID{Index1: 1, Generation: 2}
	same := &WorldID{Index1: 1, Generation: 1}

	tests := []struct {
		name  string
		a, b  *WorldID
		cmp   int
		equal bool
	}{
		{"nil nil", nil, nil, 0, true},
		{"nil present", nil, w1, -1, false},
		{"present nil", w1, nil, 1, false},
		{"ordered", w1, w2, -1, false},
		{"distinct pointers equal values", w1, same, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WorldRefs.Compare(tt.a, tt.b); got != tt.cmp {
				t.Errorf("Compare = %d, want %d", got, tt.cmp)
			}
			if got := WorldRefs.Equal(tt.a, tt.b); got != tt.equal {
				t.Errorf("Equal = %v, want %v", got, tt.equal)
			}
			if tt.equal && WorldRefs.Hash(tt.a) != WorldRefs.Hash(tt.b) {
				t.Error("equal refs hash differently")
			}
		})
	}

	refs := []*WorldID{w2, nil, w1}
	sort.Slice(refs, func(i, j int) bool { return WorldRefs.Compare(refs[i], refs[j]) < 0 })
	if refs[0] != nil || refs[1] != w1 || refs[2] != w2 {
		t.Fatalf("unexpected order %v", refs)
	}
}

func TestNullHandles(t *testing.T) {
	if !(WorldID{}).IsNull() || !(BodyID{}).IsNull() || !(ShapeID{}).IsNull() || !(ChainID{}).IsNull() {
		t.Fatal("zero values must be null")
	}
	if (BodyID{Index1: 1}).IsNull() {
		t.Fatal("Index1 != 0 is not null")
	}
}

func TestHandle_String(t *testing.T) {
	if got := (ShapeID{Index1: 5, World0: 2, Generation: 3}).String(); got != "shape(2:5:3)" {
		t.Errorf("String = %q", got)
	}
	if got := (WorldID{Index1: 1, Generation: 4}).String(); got != "world(1:4)" {
		t.Errorf("String = %q", got)
	}
}
