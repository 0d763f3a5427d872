package sim

import (
	"math"

	"github.com/wippyai/b2-runtime/geom"
)

const maxCastIterations = 30

type castHit struct {
	point    geom.Vec2
	normal   geom.Vec2
	fraction float32
}

// rayCast intersects the ray origin + t*d, t in [0, maxFraction], with c.
// Rays starting inside a solid shape do not hit it.
func rayCast(c *convex, origin, d geom.Vec2, maxFraction float32) (castHit, bool) {
	switch {
	case c.count == 1:
		return rayCircle(c.points[0], c.radius, origin, d, maxFraction)
	case c.count == 2 && c.radius == 0:
		return raySegment(c.points[0], c.points[1], origin, d, maxFraction)
	case c.radius == 0 && c.axes() != nil:
		return rayPolygon(c, origin, d, maxFraction)
	}
	ray := pointConvex(origin, 0)
	hit, ok := shapeCast(c, &ray, d, maxFraction, 0)
	if !ok || hit.normal == (geom.Vec2{}) {
		return castHit{}, false
	}
	return hit, true
}

func rayCircle(center geom.Vec2, radius float32, origin, d geom.Vec2, maxFraction float32) (castHit, bool) {
	s := origin.Sub(center)
	if s.LenSqr() <= radius*radius {
		return castHit{}, false
	}

	dir, length := geom.Normalize(d)
	if length == 0 {
		return castHit{}, false
	}

	// Closest approach of the line to the center.
	t := -s.Dot(dir)
	c := s.Add(dir.Mul(t))
	cc := c.LenSqr()
	rr := radius * radius
	if cc > rr {
		return castHit{}, false
	}

	h := float32(math.Sqrt(float64(rr - cc)))
	fraction := (t - h) / length
	if fraction < 0 || fraction > maxFraction {
		return castHit{}, false
	}

	hit := origin.Add(d.Mul(fraction))
	normal, _ := geom.Normalize(hit.Sub(center))
	return castHit{point: hit, normal: normal, fraction: fraction}, true
}

func raySegment(p1, p2 geom.Vec2, origin, d geom.Vec2, maxFraction float32) (castHit, bool) {
	e := p2.Sub(p1)
	n, length := geom.Normalize(geom.RightPerp(e))
	if length == 0 {
		return castHit{}, false
	}

	numerator := n.Dot(p1.Sub(origin))
	denominator := n.Dot(d)
	if denominator == 0 {
		return castHit{}, false
	}

	t := numerator / denominator
	if t < 0 || t > maxFraction {
		return castHit{}, false
	}

	p := origin.Add(d.Mul(t))
	s := p.Sub(p1).Dot(e) / e.Dot(e)
	if s < 0 || s > 1 {
		return castHit{}, false
	}

	if numerator > 0 {
		n = n.Mul(-1)
	}
	return castHit{point: p, normal: n, fraction: t}, true
}

func rayPolygon(c *convex, origin, d geom.Vec2, maxFraction float32) (castHit, bool) {
	lower, upper := float32(0), maxFraction
	index := -1

	for i := 0; i < c.count; i++ {
		numerator := c.normals[i].Dot(c.points[i].Sub(origin))
		denominator := c.normals[i].Dot(d)

		if denominator == 0 {
			if numerator < 0 {
				return castHit{}, false
			}
			continue
		}

		if denominator < 0 && numerator < lower*denominator {
			lower = numerator / denominator
			index = i
		} else if denominator > 0 && numerator < upper*denominator {
			upper = numerator / denominator
		}

		if upper < lower {
			return castHit{}, false
		}
	}

	if index < 0 {
		return castHit{}, false
	}
	return castHit{
		point:    origin.Add(d.Mul(lower)),
		normal:   c.normals[index],
		fraction: lower,
	}, true
}

// shapeCast moves proxy along translation until it touches target, by
// conservative advancement. A proxy that starts overlapping reports an
// initial overlap: fraction 0 with a zero point and normal. encroach shrinks the
// target's radius so a cast may start slightly inside it.
func shapeCast(target, proxy *convex, translation geom.Vec2, maxFraction, encroach float32) (castHit, bool) {
	const tolerance = 0.25 * 0.005

	t := float32(0)
	for iter := 0; iter < maxCastIterations; iter++ {
		moved := proxy.translate(translation.Mul(t))
		pA, pB, d := coreDistance(target, &moved)
		sep := d - target.radius - proxy.radius + encroach

		if iter == 0 && (sep <= 0 || d <= gjkEpsilon) {
			return castHit{fraction: 0}, true
		}
		if d <= gjkEpsilon {
			return castHit{}, false
		}

		n := pB.Sub(pA).Mul(1 / d)
		if sep < tolerance {
			return castHit{
				point:    pA.Add(n.Mul(target.radius)),
				normal:   n,
				fraction: t,
			}, true
		}

		closing := -translation.Dot(n)
		if closing <= 0 {
			return castHit{}, false
		}
		t += sep / closing
		if t > maxFraction {
			return castHit{}, false
		}
	}
	return castHit{}, false
}
