package bvh

import (
	"testing"

	"github.com/achilleasa/qbvh/types"
)

func newTestBuilder(aabbs []types.Aabb, heuristic SplitHeuristic) (*builder, Range) {
	capacity := NodeCapacity(len(aabbs))
	b := newBuilder(make([]Node, capacity), NewPointsAndIndices(aabbs), aabbs, heuristic, 2, int32(capacity))
	r := Range{Start: 0, Length: len(aabbs), Root: 1}
	r.Domain = b.pointDomain(&r)
	return b, r
}

func boxesAt(xs ...float32) []types.Aabb {
	aabbs := make([]types.Aabb, len(xs))
	for index, x := range xs {
		origin := types.XYZ(x, 0, 0)
		aabbs[index] = types.NewAabb(origin, origin.Add(types.Splat3(1)))
	}
	return aabbs
}

func TestSegregate(t *testing.T) {
	specs := []struct {
		xs       []float32
		minItems int
		expLeft  int
	}{
		// Even count, every pair swapped.
		{[]float32{90, 80, 70, 60, 50, 40, 30, 20, 10, 0}, 1, 5},
		// The pointers meet on the first right item.
		{[]float32{80, 70, 60, 50, 40, 30, 20, 10, 0}, 1, 4},
		// Already partitioned.
		{[]float32{0, 10, 20, 80, 90}, 1, 3},
		// A single item left of the pivot falls back to a half split.
		{[]float32{0, 100, 100, 100}, 2, 2},
		// All points coincide.
		{[]float32{5, 5, 5, 5, 5, 5, 5}, 1, 3},
	}

	for specIndex, spec := range specs {
		b, r := newTestBuilder(boxesAt(spec.xs...), MedianSplit)
		axis, pivot := computeAxisAndPivot(&r)
		left, right := b.segregate(axis, pivot, &r, spec.minItems)

		if left.Start != 0 || left.Length != spec.expLeft {
			t.Fatalf("[spec %d] expected left range [0, %d); got [%d, %d)", specIndex, spec.expLeft, left.Start, left.Start+left.Length)
		}
		if right.Start != spec.expLeft || right.Length != len(spec.xs)-spec.expLeft {
			t.Fatalf("[spec %d] expected right range [%d, %d); got [%d, %d)", specIndex, spec.expLeft, len(spec.xs), right.Start, right.Start+right.Length)
		}

		if exp := b.pointDomain(&left); left.Domain != exp {
			t.Fatalf("[spec %d] expected left domain to be %v; got %v", specIndex, exp, left.Domain)
		}
		if exp := b.pointDomain(&right); right.Domain != exp {
			t.Fatalf("[spec %d] expected right domain to be %v; got %v", specIndex, exp, right.Domain)
		}

		// Unless we fell back to a half split, the left side precedes the pivot.
		if spec.minItems == 1 && r.Domain.Extents()[axis] > 0 {
			for _, p := range b.points[left.Start : left.Start+left.Length] {
				if p.Position[axis] >= pivot {
					t.Fatalf("[spec %d] expected left point %v to be below pivot %f", specIndex, p.Position, pivot)
				}
			}
			for _, p := range b.points[right.Start : right.Start+right.Length] {
				if p.Position[axis] < pivot {
					t.Fatalf("[spec %d] expected right point %v to be at or above pivot %f", specIndex, p.Position, pivot)
				}
			}
		}
	}
}

func TestSegregatePanicsOnTinyRange(t *testing.T) {
	b, r := newTestBuilder(boxesAt(1), MedianSplit)

	defer func() {
		if recover() == nil {
			t.Fatal("expected segregate to panic for a single item range")
		}
	}()
	b.segregate(0, 0, &r, 1)
}

func TestSegregateSah(t *testing.T) {
	b, r := newTestBuilder(boxesAt(100, 0, 101, 1, 102, 2, 103, 3), SurfaceAreaHeuristic)
	left, right := b.segregateSah(&r, 2)

	if left.Length != 4 || right.Length != 4 {
		t.Fatalf("expected a 4/4 split; got %d/%d", left.Length, right.Length)
	}
	for _, p := range b.points[left.Start : left.Start+left.Length] {
		if p.Position[0] > 50 {
			t.Fatalf("expected left point %v to belong to the first cluster", p.Position)
		}
	}
	if exp := types.AabbFromPoints(types.XYZ(100.5, 0.5, 0.5), types.XYZ(103.5, 0.5, 0.5)); right.Domain != exp {
		t.Fatalf("expected right domain to be %v; got %v", exp, right.Domain)
	}
}

func TestProcessLargeRange(t *testing.T) {
	for _, heuristic := range []SplitHeuristic{MedianSplit, SurfaceAreaHeuristic} {
		b, r := newTestBuilder(randomAabbs(64, 3), heuristic)
		r.Depth = 2
		subRanges := b.processLargeRange(&r)

		next := r.Start
		for index, sub := range subRanges {
			if sub.Start != next || sub.Length < 1 {
				t.Fatalf("[%s] expected sub-range %d to start at %d and be non-empty; got start %d, length %d", heuristic, index, next, sub.Start, sub.Length)
			}
			if sub.Depth != 3 {
				t.Fatalf("[%s] expected sub-range %d depth to be 3; got %d", heuristic, index, sub.Depth)
			}
			next += sub.Length
		}
		if next != r.Start+r.Length {
			t.Fatalf("[%s] expected sub-ranges to cover %d items; got %d", heuristic, r.Length, next-r.Start)
		}
	}
}

func TestSortRange(t *testing.T) {
	b, r := newTestBuilder(boxesAt(5, 3, 9, 1, 7), MedianSplit)
	b.sortRange(0, &r)

	expIndices := []int32{3, 1, 0, 4, 2}
	for index, exp := range expIndices {
		if got := b.points[index].Index; got != exp {
			t.Fatalf("expected point %d to reference primitive %d; got %d", index, exp, got)
		}
	}
}

func TestRangeStackOverflow(t *testing.T) {
	stack := newRangeStack(1)
	stack.push(Range{})

	defer func() {
		if recover() == nil {
			t.Fatal("expected push to panic when the stack is full")
		}
	}()
	stack.push(Range{})
}
