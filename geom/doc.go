// Package geom holds the plain geometry records exchanged with the native layer.
//
// Every type here mirrors a native struct field for field, with explicit
// padding where the native compiler would insert it. The abi package verifies
// the mirrors against the published native sizes. Vec2 is mgl32.Vec2, a
// [2]float32, which has the same layout as the native {x, y float} pair.
//
// Only small helpers live here (rotation, transform, AABB tests, polygon
// construction). Collision algorithms belong to the native layer.
package geom
