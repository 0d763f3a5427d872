package callback

// Closest accumulates the nearest cast hit.
type Closest struct {
	Hit   Candidate
	Found bool
}

// ClosestHit returns a cast callback that clips the query to every hit it
// sees, leaving the nearest one in dst.
func ClosestHit(dst *Closest) CastFunc {
	return Value(func(c Candidate, acc *Closest) float32 {
		acc.Hit = c
		acc.Found = true
		return c.Fraction
	}, dst)
}

// Collector gathers every cast hit in visit order.
type Collector struct {
	Hits []Candidate
}

// AllHits returns a cast callback that records each hit and continues
// without clipping.
func AllHits(dst *Collector) CastFunc {
	return Ref(func(c Candidate, col *Collector) float32 {
		col.Hits = append(col.Hits, c)
		return Continue
	}, dst)
}

// Where wraps fn so candidates rejected by keep are filtered before fn runs.
func Where(keep func(Candidate) bool, fn CastFunc) CastFunc {
	return Plain(func(c Candidate) float32 {
		if !keep(c) {
			return Filter
		}
		return fn.Call(c)
	})
}

// Planes gathers mover collision planes.
type Planes struct {
	Results []PlaneCandidate
}

// CollectPlanes returns a plane callback that records every candidate and
// keeps going until limit planes were collected. limit <= 0 means no limit.
func CollectPlanes(dst *Planes, limit int) PlaneFunc {
	return Ref(func(c PlaneCandidate, p *Planes) bool {
		p.Results = append(p.Results, c)
		return limit <= 0 || len(p.Results) < limit
	}, dst)
}
