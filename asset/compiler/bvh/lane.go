package bvh

import "github.com/achilleasa/qbvh/types"

// FourAabbs stores four boxes transposed into per-axis lanes so that a
// traversal kernel can test a ray against all four children at once.
type FourAabbs struct {
	MinX [4]float32
	MinY [4]float32
	MinZ [4]float32
	MaxX [4]float32
	MaxY [4]float32
	MaxZ [4]float32
}

// Create a lane where all four slots hold the canonical empty box.
func EmptyFourAabbs() FourAabbs {
	var lane FourAabbs
	empty := types.EmptyAabb()
	for i := 0; i < 4; i++ {
		lane.Set(i, empty)
	}
	return lane
}

// Get the box stored at slot i.
func (l *FourAabbs) Get(i int) types.Aabb {
	return types.Aabb{
		Min: types.Vec3{l.MinX[i], l.MinY[i], l.MinZ[i]},
		Max: types.Vec3{l.MaxX[i], l.MaxY[i], l.MaxZ[i]},
	}
}

// Store a box at slot i.
func (l *FourAabbs) Set(i int, aabb types.Aabb) {
	l.MinX[i], l.MinY[i], l.MinZ[i] = aabb.Min[0], aabb.Min[1], aabb.Min[2]
	l.MaxX[i], l.MaxY[i], l.MaxZ[i] = aabb.Max[0], aabb.Max[1], aabb.Max[2]
}

// Get the union of all four slots.
func (l *FourAabbs) Compound() types.Aabb {
	var out types.Aabb
	out.Min = types.Vec3{min4(l.MinX), min4(l.MinY), min4(l.MinZ)}
	out.Max = types.Vec3{max4(l.MaxX), max4(l.MaxY), max4(l.MaxZ)}
	return out
}

func min4(v [4]float32) float32 {
	return min(min(v[0], v[1]), min(v[2], v[3]))
}

func max4(v [4]float32) float32 {
	return max(max(v[0], v[1]), max(v[2], v[3]))
}
