package native

import "testing"

func TestShouldCollide(t *testing.T) {
	tests := []struct {
		name string
		a, b Filter
		want bool
	}{
		{"defaults", DefaultFilter(), DefaultFilter(), true},
		{"mask excludes", Filter{CategoryBits: 1, MaskBits: 2}, Filter{CategoryBits: 1, MaskBits: ^uint64(0)}, false},
		{"disjoint categories allowed", Filter{CategoryBits: 1, MaskBits: 2}, Filter{CategoryBits: 2, MaskBits: 1}, true},
		{"negative group never", Filter{CategoryBits: 1, MaskBits: ^uint64(0), GroupIndex: -3}, Filter{CategoryBits: 1, MaskBits: ^uint64(0), GroupIndex: -3}, false},
		{"positive group always", Filter{CategoryBits: 1, MaskBits: 0, GroupIndex: 2}, Filter{CategoryBits: 1, MaskBits: 0, GroupIndex: 2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldCollide(tt.a, tt.b); got != tt.want {
				t.Errorf("ShouldCollide = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueryFilter_Accepts(t *testing.T) {
	q := QueryFilter{CategoryBits: 1, MaskBits: 4}
	if q.Accepts(DefaultFilter()) {
		t.Error("default shape category 1 is outside mask 4")
	}
	if !q.Accepts(Filter{CategoryBits: 4, MaskBits: 1}) {
		t.Error("category 4 shape should be visited")
	}
	if !DefaultQueryFilter().Accepts(DefaultFilter()) {
		t.Error("defaults should match")
	}
}
