package geom

import "errors"

// MaxPolygonVertices is the native polygon capacity.
const MaxPolygonVertices = 8

// MaxManifoldPoints is the native manifold capacity.
const MaxManifoldPoints = 2

var ErrInvalidPolygon = errors.New("polygon needs 3 to 8 counter-clockwise convex points")

// Circle is a solid circle in body-local coordinates.
type Circle struct {
	Center Vec2
	Radius float32
}

// Segment is a two-sided line segment in body-local coordinates.
type Segment struct {
	Point1 Vec2
	Point2 Vec2
}

// Capsule is two circle centers joined by a rectangle of the same radius.
type Capsule struct {
	Center1 Vec2
	Center2 Vec2
	Radius  float32
}

// Polygon is a solid convex polygon, counter-clockwise winding.
type Polygon struct {
	Vertices [MaxPolygonVertices]Vec2
	Normals  [MaxPolygonVertices]Vec2
	Centroid Vec2
	Radius   float32
	Count    int32
}

// ShapeProxy is a convex point cloud with a radius, used by shape casts.
type ShapeProxy struct {
	Points [MaxPolygonVertices]Vec2
	Count  int32
	Radius float32
}

// MakeProxy builds a proxy from up to MaxPolygonVertices points.
func MakeProxy(radius float32, points ...Vec2) ShapeProxy {
	var p ShapeProxy
	n := min(len(points), MaxPolygonVertices)
	copy(p.Points[:], points[:n])
	p.Count = int32(n)
	p.Radius = radius
	return p
}

// MakeBox builds a box centered on the origin with half extents hx, hy.
func MakeBox(hx, hy float32) Polygon {
	p, _ := MakePolygon(0, V(-hx, -hy), V(hx, -hy), V(hx, hy), V(-hx, hy))
	return p
}

// MakeOffsetBox builds a box centered at center and rotated by rot.
func MakeOffsetBox(hx, hy float32, center Vec2, rot Rot) Polygon {
	xf := Transform{P: center, Q: rot}
	p, _ := MakePolygon(0,
		xf.Apply(V(-hx, -hy)), xf.Apply(V(hx, -hy)),
		xf.Apply(V(hx, hy)), xf.Apply(V(-hx, hy)))
	return p
}

// MakePolygon builds a polygon from counter-clockwise convex points.
func MakePolygon(radius float32, points ...Vec2) (Polygon, error) {
	var p Polygon
	n := len(points)
	if n < 3 || n > MaxPolygonVertices {
		return p, ErrInvalidPolygon
	}
	for i := 0; i < n; i++ {
		a, b, c := points[i], points[(i+1)%n], points[(i+2)%n]
		if Cross(b.Sub(a), c.Sub(b)) <= 0 {
			return p, ErrInvalidPolygon
		}
	}

	p.Count = int32(n)
	p.Radius = radius
	copy(p.Vertices[:], points)
	for i := 0; i < n; i++ {
		edge := points[(i+1)%n].Sub(points[i])
		p.Normals[i], _ = Normalize(RightPerp(edge))
	}
	p.Centroid = polygonCentroid(points)
	return p, nil
}

func polygonCentroid(points []Vec2) Vec2 {
	origin := points[0]
	var center Vec2
	var area float32
	for i := 1; i < len(points)-1; i++ {
		e1 := points[i].Sub(origin)
		e2 := points[i+1].Sub(origin)
		a := 0.5 * Cross(e1, e2)
		center = center.Add(e1.Add(e2).Mul(a / 3))
		area += a
	}
	if area == 0 {
		return origin
	}
	return origin.Add(center.Mul(1 / area))
}

// ManifoldPoint is one contact point between two shapes.
type ManifoldPoint struct {
	Point          Vec2
	AnchorA        Vec2
	AnchorB        Vec2
	Separation     float32
	NormalImpulse  float32
	TangentImpulse float32
	NormalVelocity float32
	ID             uint16
	Persisted      bool
	_              [1]byte
}

// Manifold is the contact geometry between two shapes. Normal points from
// shape A to shape B.
type Manifold struct {
	Normal         Vec2
	RollingImpulse float32
	Points         [MaxManifoldPoints]ManifoldPoint
	PointCount     int32
}
