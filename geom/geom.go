package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Vec2 is a 2D vector with the native {x, y float} layout.
type Vec2 = mgl32.Vec2

// V builds a Vec2.
func V(x, y float32) Vec2 { return Vec2{x, y} }

// Cross returns the 2D cross product a.x*b.y - a.y*b.x.
func Cross(a, b Vec2) float32 { return a[0]*b[1] - a[1]*b[0] }

// LeftPerp returns a rotated counter-clockwise by 90 degrees.
func LeftPerp(a Vec2) Vec2 { return Vec2{-a[1], a[0]} }

// RightPerp returns a rotated clockwise by 90 degrees.
func RightPerp(a Vec2) Vec2 { return Vec2{a[1], -a[0]} }

// Normalize returns the unit vector of a and its length. A zero vector
// yields a zero result rather than NaN.
func Normalize(a Vec2) (Vec2, float32) {
	l := a.Len()
	if l < math.SmallestNonzeroFloat32*1e6 {
		return Vec2{}, 0
	}
	return a.Mul(1 / l), l
}

// Lerp interpolates between a and b.
func Lerp(a, b Vec2, t float32) Vec2 {
	return a.Add(b.Sub(a).Mul(t))
}

// Rot is a rotation stored as cosine/sine.
type Rot struct {
	C float32
	S float32
}

// IdentityRot is the zero-angle rotation.
var IdentityRot = Rot{C: 1, S: 0}

// MakeRot builds a rotation from an angle in radians.
func MakeRot(angle float32) Rot {
	s, c := math.Sincos(float64(angle))
	return Rot{C: float32(c), S: float32(s)}
}

// Angle returns the rotation angle in radians.
func (q Rot) Angle() float32 {
	return float32(math.Atan2(float64(q.S), float64(q.C)))
}

// Apply rotates v.
func (q Rot) Apply(v Vec2) Vec2 {
	return Vec2{q.C*v[0] - q.S*v[1], q.S*v[0] + q.C*v[1]}
}

// InvApply rotates v by the inverse rotation.
func (q Rot) InvApply(v Vec2) Vec2 {
	return Vec2{q.C*v[0] + q.S*v[1], -q.S*v[0] + q.C*v[1]}
}

// IntegrateRotation advances q by deltaAngle and renormalizes.
func (q Rot) Integrate(deltaAngle float32) Rot {
	q2 := Rot{C: q.C - deltaAngle*q.S, S: q.S + deltaAngle*q.C}
	mag := float32(math.Sqrt(float64(q2.S*q2.S + q2.C*q2.C)))
	if mag == 0 {
		return IdentityRot
	}
	return Rot{C: q2.C / mag, S: q2.S / mag}
}

// Transform is a rigid transform: translation P and rotation Q.
type Transform struct {
	P Vec2
	Q Rot
}

// IdentityTransform places a frame at the origin with no rotation.
var IdentityTransform = Transform{Q: IdentityRot}

// Apply maps a local point to world space.
func (t Transform) Apply(v Vec2) Vec2 {
	return t.Q.Apply(v).Add(t.P)
}

// InvApply maps a world point to local space.
func (t Transform) InvApply(v Vec2) Vec2 {
	return t.Q.InvApply(v.Sub(t.P))
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	LowerBound Vec2
	UpperBound Vec2
}

// Overlaps reports whether a and b intersect, touching edges included.
func (a AABB) Overlaps(b AABB) bool {
	return !(b.LowerBound[0] > a.UpperBound[0] || b.LowerBound[1] > a.UpperBound[1] ||
		a.LowerBound[0] > b.UpperBound[0] || a.LowerBound[1] > b.UpperBound[1])
}

// Union returns the smallest box containing a and b.
func (a AABB) Union(b AABB) AABB {
	return AABB{
		LowerBound: Vec2{min(a.LowerBound[0], b.LowerBound[0]), min(a.LowerBound[1], b.LowerBound[1])},
		UpperBound: Vec2{max(a.UpperBound[0], b.UpperBound[0]), max(a.UpperBound[1], b.UpperBound[1])},
	}
}

// Inflate grows the box by r on every side.
func (a AABB) Inflate(r float32) AABB {
	return AABB{
		LowerBound: a.LowerBound.Sub(Vec2{r, r}),
		UpperBound: a.UpperBound.Add(Vec2{r, r}),
	}
}

// Plane is a line in 2D: points p with Normal·p == Offset.
type Plane struct {
	Normal Vec2
	Offset float32
}

// Separation returns the signed distance of p from the plane.
func (p Plane) Separation(v Vec2) float32 {
	return p.Normal.Dot(v) - p.Offset
}
