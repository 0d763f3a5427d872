package sim

import (
	"math"

	"github.com/wippyai/b2-runtime/geom"
)

const (
	maxGJKIterations = 20
	gjkEpsilon       = 1e-6
)

// convex is a shape in world space: a point cloud with normals (polygons
// only) and a rounding radius. Circles have one point, segments two.
type convex struct {
	points  [geom.MaxPolygonVertices]geom.Vec2
	normals [geom.MaxPolygonVertices]geom.Vec2
	count   int
	radius  float32
}

func pointConvex(p geom.Vec2, radius float32) convex {
	c := convex{count: 1, radius: radius}
	c.points[0] = p
	return c
}

func segmentConvex(p1, p2 geom.Vec2, radius float32) convex {
	c := convex{count: 2, radius: radius}
	c.points[0], c.points[1] = p1, p2
	n, _ := geom.Normalize(geom.RightPerp(p2.Sub(p1)))
	c.normals[0], c.normals[1] = n, n.Mul(-1)
	return c
}

func polygonConvex(p *geom.Polygon, xf geom.Transform) convex {
	c := convex{count: int(p.Count), radius: p.Radius}
	for i := 0; i < c.count; i++ {
		c.points[i] = xf.Apply(p.Vertices[i])
		c.normals[i] = xf.Q.Apply(p.Normals[i])
	}
	return c
}

func proxyConvex(p *geom.ShapeProxy) convex {
	n := int(p.Count)
	switch {
	case n <= 0:
		return pointConvex(geom.Vec2{}, p.Radius)
	case n == 1:
		return pointConvex(p.Points[0], p.Radius)
	case n == 2:
		return segmentConvex(p.Points[0], p.Points[1], p.Radius)
	}
	poly, err := geom.MakePolygon(p.Radius, p.Points[:n]...)
	if err != nil {
		// Not convex or wrong winding: fall back to the raw cloud without
		// face normals. Distance queries only need the points.
		c := convex{count: n, radius: p.Radius}
		copy(c.points[:], p.Points[:n])
		return c
	}
	return polygonConvex(&poly, geom.IdentityTransform)
}

func (c *convex) translate(d geom.Vec2) convex {
	out := *c
	for i := 0; i < out.count; i++ {
		out.points[i] = out.points[i].Add(d)
	}
	return out
}

func (c *convex) aabb() geom.AABB {
	lo, hi := c.points[0], c.points[0]
	for i := 1; i < c.count; i++ {
		p := c.points[i]
		lo = geom.V(min(lo[0], p[0]), min(lo[1], p[1]))
		hi = geom.V(max(hi[0], p[0]), max(hi[1], p[1]))
	}
	return geom.AABB{LowerBound: lo, UpperBound: hi}.Inflate(c.radius)
}

func (c *convex) support(d geom.Vec2) int {
	best, bestValue := 0, c.points[0].Dot(d)
	for i := 1; i < c.count; i++ {
		if v := c.points[i].Dot(d); v > bestValue {
			best, bestValue = i, v
		}
	}
	return best
}

// axes returns outward face normals used for separating axis tests.
func (c *convex) axes() []geom.Vec2 {
	if c.count < 2 || c.normals[0] == (geom.Vec2{}) {
		return nil
	}
	return c.normals[:c.count]
}

type simplexVertex struct {
	wA, wB, w geom.Vec2
	a         float32
	iA, iB    int
}

type simplex struct {
	v     [3]simplexVertex
	count int
}

func (s *simplex) searchDirection() geom.Vec2 {
	if s.count == 1 {
		return s.v[0].w.Mul(-1)
	}
	e12 := s.v[1].w.Sub(s.v[0].w)
	if geom.Cross(e12, s.v[0].w.Mul(-1)) > 0 {
		return geom.LeftPerp(e12)
	}
	return geom.RightPerp(e12)
}

func (s *simplex) witness() (geom.Vec2, geom.Vec2) {
	switch s.count {
	case 1:
		return s.v[0].wA, s.v[0].wB
	case 2:
		pA := s.v[0].wA.Mul(s.v[0].a).Add(s.v[1].wA.Mul(s.v[1].a))
		pB := s.v[0].wB.Mul(s.v[0].a).Add(s.v[1].wB.Mul(s.v[1].a))
		return pA, pB
	}
	pA := s.v[0].wA.Mul(s.v[0].a).Add(s.v[1].wA.Mul(s.v[1].a)).Add(s.v[2].wA.Mul(s.v[2].a))
	return pA, pA
}

// solve2 reduces a segment simplex to the feature closest to the origin.
func (s *simplex) solve2() {
	w1, w2 := s.v[0].w, s.v[1].w
	e12 := w2.Sub(w1)

	d12n2 := -w1.Dot(e12)
	if d12n2 <= 0 {
		s.v[0].a = 1
		s.count = 1
		return
	}
	d12n1 := w2.Dot(e12)
	if d12n1 <= 0 {
		s.v[1].a = 1
		s.count = 1
		s.v[0] = s.v[1]
		return
	}
	inv := 1 / (d12n1 + d12n2)
	s.v[0].a = d12n1 * inv
	s.v[1].a = d12n2 * inv
	s.count = 2
}

// solve3 reduces a triangle simplex using barycentric regions.
func (s *simplex) solve3() {
	w1, w2, w3 := s.v[0].w, s.v[1].w, s.v[2].w

	e12 := w2.Sub(w1)
	d12n1 := w2.Dot(e12)
	d12n2 := -w1.Dot(e12)

	e13 := w3.Sub(w1)
	d13n1 := w3.Dot(e13)
	d13n2 := -w1.Dot(e13)

	e23 := w3.Sub(w2)
	d23n1 := w3.Dot(e23)
	d23n2 := -w2.Dot(e23)

	n123 := geom.Cross(e12, e13)
	d123n1 := n123 * geom.Cross(w2, w3)
	d123n2 := n123 * geom.Cross(w3, w1)
	d123n3 := n123 * geom.Cross(w1, w2)

	switch {
	case d12n2 <= 0 && d13n2 <= 0:
		s.v[0].a = 1
		s.count = 1
	case d12n1 > 0 && d12n2 > 0 && d123n3 <= 0:
		inv := 1 / (d12n1 + d12n2)
		s.v[0].a = d12n1 * inv
		s.v[1].a = d12n2 * inv
		s.count = 2
	case d13n1 > 0 && d13n2 > 0 && d123n2 <= 0:
		inv := 1 / (d13n1 + d13n2)
		s.v[0].a = d13n1 * inv
		s.v[2].a = d13n2 * inv
		s.count = 2
		s.v[1] = s.v[2]
	case d12n1 <= 0 && d23n2 <= 0:
		s.v[1].a = 1
		s.count = 1
		s.v[0] = s.v[1]
	case d13n1 <= 0 && d23n1 <= 0:
		s.v[2].a = 1
		s.count = 1
		s.v[0] = s.v[2]
	case d23n1 > 0 && d23n2 > 0 && d123n1 <= 0:
		inv := 1 / (d23n1 + d23n2)
		s.v[1].a = d23n1 * inv
		s.v[2].a = d23n2 * inv
		s.count = 2
		s.v[0] = s.v[2]
	default:
		inv := 1 / (d123n1 + d123n2 + d123n3)
		s.v[0].a = d123n1 * inv
		s.v[1].a = d123n2 * inv
		s.v[2].a = d123n3 * inv
		s.count = 3
	}
}

// coreDistance returns the closest points between the point clouds of a and
// b, ignoring radii. Overlapping clouds report distance 0.
func coreDistance(a, b *convex) (pA, pB geom.Vec2, dist float32) {
	var s simplex
	s.v[0] = simplexVertex{wA: a.points[0], wB: b.points[0], w: b.points[0].Sub(a.points[0]), a: 1}
	s.count = 1

	var saveA, saveB [3]int
	for iter := 0; iter < maxGJKIterations; iter++ {
		saveCount := s.count
		for i := 0; i < saveCount; i++ {
			saveA[i], saveB[i] = s.v[i].iA, s.v[i].iB
		}

		switch s.count {
		case 2:
			s.solve2()
		case 3:
			s.solve3()
		}
		if s.count == 3 {
			break
		}

		d := s.searchDirection()
		if d.LenSqr() < gjkEpsilon*gjkEpsilon {
			break
		}

		vtx := &s.v[s.count]
		vtx.iA = a.support(d.Mul(-1))
		vtx.wA = a.points[vtx.iA]
		vtx.iB = b.support(d)
		vtx.wB = b.points[vtx.iB]
		vtx.w = vtx.wB.Sub(vtx.wA)

		duplicate := false
		for i := 0; i < saveCount; i++ {
			if vtx.iA == saveA[i] && vtx.iB == saveB[i] {
				duplicate = true
				break
			}
		}
		if duplicate {
			break
		}
		s.count++
	}

	pA, pB = s.witness()
	return pA, pB, pB.Sub(pA).Len()
}

func projectRange(c *convex, axis geom.Vec2) (lo, hi float32) {
	lo = c.points[0].Dot(axis)
	hi = lo
	for i := 1; i < c.count; i++ {
		v := c.points[i].Dot(axis)
		lo, hi = min(lo, v), max(hi, v)
	}
	return lo, hi
}

// penetration finds the axis of least overlap between the cores of a and b.
// The returned normal points from a to b; sep is negative when overlapping.
func penetration(a, b *convex) (geom.Vec2, float32) {
	normal := geom.V(0, 1)
	sep := float32(math.Inf(-1))

	for _, ax := range a.axes() {
		_, aHi := projectRange(a, ax)
		bLo, _ := projectRange(b, ax)
		if s := bLo - aHi; s > sep {
			sep, normal = s, ax
		}
	}
	for _, ax := range b.axes() {
		aLo, _ := projectRange(a, ax)
		_, bHi := projectRange(b, ax)
		if s := aLo - bHi; s > sep {
			sep, normal = s, ax.Mul(-1)
		}
	}
	if math.IsInf(float64(sep), -1) {
		sep = 0
	}
	return normal, sep
}

// contactResult is a one-point manifold in world space.
type contactResult struct {
	normal     geom.Vec2
	point      geom.Vec2
	separation float32
}

// collide computes the contact between a and b. ok is false when the
// shapes are farther apart than margin.
func collide(a, b *convex, margin float32) (contactResult, bool) {
	pA, pB, dist := coreDistance(a, b)
	radii := a.radius + b.radius
	if dist > radii+margin {
		return contactResult{}, false
	}

	if dist > gjkEpsilon {
		n := pB.Sub(pA).Mul(1 / dist)
		cA := pA.Add(n.Mul(a.radius))
		cB := pB.Sub(n.Mul(b.radius))
		return contactResult{
			normal:     n,
			point:      geom.Lerp(cA, cB, 0.5),
			separation: dist - radii,
		}, true
	}

	n, sep := penetration(a, b)
	deepest := b.points[b.support(n.Mul(-1))]
	return contactResult{
		normal:     n,
		point:      deepest.Sub(n.Mul(b.radius)),
		separation: sep - radii,
	}, true
}

// surfaceDistance returns the closest surface points between a and b and
// the signed distance between them. The normal points from a to b.
func surfaceDistance(a, b *convex) (pA geom.Vec2, normal geom.Vec2, dist float32) {
	cA, cB, d := coreDistance(a, b)
	if d > gjkEpsilon {
		n := cB.Sub(cA).Mul(1 / d)
		return cA.Add(n.Mul(a.radius)), n, d - a.radius - b.radius
	}
	n, sep := penetration(a, b)
	return cA, n, sep - a.radius - b.radius
}
