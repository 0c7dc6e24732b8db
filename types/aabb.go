package types

import "math"

var (
	posInf = float32(math.Inf(1))
	negInf = float32(math.Inf(-1))
)

// An axis-aligned bounding box. A box is valid when Min <= Max on every
// axis. The empty box has Min = +inf and Max = -inf so that including any
// point or box into it yields that point or box.
type Aabb struct {
	Min Vec3
	Max Vec3
}

// Create the canonical empty box.
func EmptyAabb() Aabb {
	return Aabb{
		Min: Vec3{posInf, posInf, posInf},
		Max: Vec3{negInf, negInf, negInf},
	}
}

// Create a box from its min and max corners.
func NewAabb(min, max Vec3) Aabb {
	return Aabb{Min: min, Max: max}
}

// Calculate the bounding box of a set of points.
func AabbFromPoints(points ...Vec3) Aabb {
	aabb := EmptyAabb()
	for _, p := range points {
		aabb.Include(p)
	}
	return aabb
}

// Returns true if Min <= Max on every axis.
func (a Aabb) IsValid() bool {
	return a.Min[0] <= a.Max[0] && a.Min[1] <= a.Max[1] && a.Min[2] <= a.Max[2]
}

// Returns true if this is the canonical empty box.
func (a Aabb) IsEmpty() bool {
	return a == EmptyAabb()
}

// Get box center.
func (a Aabb) Center() Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// Get box side lengths.
func (a Aabb) Extents() Vec3 {
	return a.Max.Sub(a.Min)
}

// Get box surface area.
func (a Aabb) SurfaceArea() float32 {
	side := a.Extents()
	return 2 * (side[0]*side[1] + side[1]*side[2] + side[0]*side[2])
}

// Grow the box so that it contains point p.
func (a *Aabb) Include(p Vec3) {
	a.Min = MinVec3(a.Min, p)
	a.Max = MaxVec3(a.Max, p)
}

// Grow the box so that it contains box b.
func (a *Aabb) IncludeAabb(b Aabb) {
	a.Min = MinVec3(a.Min, b.Min)
	a.Max = MaxVec3(a.Max, b.Max)
}

// Get the union of two boxes.
func (a Aabb) Union(b Aabb) Aabb {
	return Aabb{Min: MinVec3(a.Min, b.Min), Max: MaxVec3(a.Max, b.Max)}
}

// Returns true if b lies fully inside a.
func (a Aabb) Contains(b Aabb) bool {
	return a.Min[0] <= b.Min[0] && a.Min[1] <= b.Min[1] && a.Min[2] <= b.Min[2] &&
		b.Max[0] <= a.Max[0] && b.Max[1] <= a.Max[1] && b.Max[2] <= a.Max[2]
}

// Get the 8 corners of the box.
func (a Aabb) Corners() [8]Vec3 {
	var corners [8]Vec3
	for i := 0; i < 8; i++ {
		for axis := 0; axis < 3; axis++ {
			if i&(1<<uint(axis)) != 0 {
				corners[i][axis] = a.Max[axis]
			} else {
				corners[i][axis] = a.Min[axis]
			}
		}
	}
	return corners
}
