package bvh

import (
	"fmt"
	"math"
	"sort"

	"github.com/achilleasa/qbvh/types"
)

// Per-builder scratch memory for the SAH split. Each axis gets its own
// sorted copy of the range; only the winning axis is written back.
type sahScratch struct {
	scores     []float32
	axisPoints [3][]PointAndIndex
}

// Make sure the scratch buffers can hold n items.
func (s *sahScratch) reserve(n int) {
	if cap(s.scores) >= n {
		return
	}
	s.scores = make([]float32, n)
	for axis := range s.axisPoints {
		s.axisPoints[axis] = make([]PointAndIndex, n)
	}
}

// Select the longest axis of the range domain and its midpoint.
func computeAxisAndPivot(r *Range) (axis int, pivot float32) {
	axis = r.Domain.Extents().MaxComponentIndex()
	pivot = r.Domain.Center()[axis]
	return axis, pivot
}

// Split r into two consecutive ranges where the left one holds size items.
func splitRange(r *Range, size int) (left, right Range) {
	left = Range{Start: r.Start, Length: size}
	right = Range{Start: r.Start + size, Length: r.Length - size}
	return left, right
}

// Calculate the bounding box of the point positions in r.
func (b *builder) pointDomain(r *Range) types.Aabb {
	domain := types.EmptyAabb()
	for _, p := range b.points[r.Start : r.Start+r.Length] {
		domain.Include(p.Position)
	}
	return domain
}

// Partition r in place so that points with position[axis] < pivot come
// first. The domain of each side is accumulated from the visited points.
// If either side ends up with fewer than minItems points (e.g. all points
// share the same position) the range is split in half by index instead.
func (b *builder) segregate(axis int, pivot float32, r *Range, minItems int) (left, right Range) {
	if r.Length <= 1 {
		panic(fmt.Sprintf("bvh: cannot segregate range of length %d", r.Length))
	}

	lDomain := types.EmptyAabb()
	rDomain := types.EmptyAabb()

	p := b.points
	start := r.Start
	end := r.Start + r.Length - 1
	for {
		// Consume left.
		for start <= end && p[start].Position[axis] < pivot {
			lDomain.Include(p[start].Position)
			start++
		}

		// Consume right.
		for end > start && p[end].Position[axis] >= pivot {
			rDomain.Include(p[end].Position)
			end--
		}

		if start >= end {
			break
		}

		lDomain.Include(p[end].Position)
		rDomain.Include(p[start].Position)
		p[start], p[end] = p[end], p[start]
		start++
		end--
	}

	// The pointers met on a point that failed the left test.
	if start == end {
		rDomain.Include(p[start].Position)
	}

	lSize := start - r.Start
	rSize := r.Length - lSize
	if lSize < minItems || rSize < minItems {
		left, right = splitRange(r, r.Length/2)
		left.Domain = b.pointDomain(&left)
		right.Domain = b.pointDomain(&right)
		return left, right
	}

	left, right = splitRange(r, lSize)
	left.Domain = lDomain
	right.Domain = rDomain
	return left, right
}

// Partition r using a full sweep of the surface area heuristic over all
// three axes. The range is reordered by the winning axis.
func (b *builder) segregateSah(r *Range, minItems int) (left, right Range) {
	b.scratch.reserve(r.Length)

	src := b.points[r.Start : r.Start+r.Length]
	bestAxis, pivot := -1, -1
	minScore := float32(math.MaxFloat32)
	for axis := 0; axis < 3; axis++ {
		sorted := b.scratch.axisPoints[axis][:r.Length]
		copy(sorted, src)
		b.scoreAxis(axis, sorted, &bestAxis, &pivot, &minScore)
	}

	lSize := pivot
	rSize := r.Length - lSize
	if lSize < minItems || rSize < minItems {
		left, right = splitRange(r, r.Length/2)
	} else {
		left, right = splitRange(r, lSize)
	}

	if bestAxis != -1 {
		copy(src, b.scratch.axisPoints[bestAxis][:r.Length])
	}

	left.Domain = b.pointDomain(&left)
	right.Domain = b.pointDomain(&right)
	return left, right
}

// Sort points along axis and evaluate the SAH cost of splitting after
// every position. The best split seen so far (across all axes) is tracked
// via bestAxis, pivot and minScore.
func (b *builder) scoreAxis(axis int, points []PointAndIndex, bestAxis, pivot *int, minScore *float32) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Position[axis] < points[j].Position[axis]
	})

	count := len(points)
	scores := b.scratch.scores[:count]

	running := types.EmptyAabb()
	for i := 0; i < count; i++ {
		running.IncludeAabb(b.aabbs[points[i].Index])
		scores[i] = float32(i+1) * running.SurfaceArea()
	}

	running = types.EmptyAabb()
	for i, j := count-1, 1; i > 0; i, j = i-1, j+1 {
		running.IncludeAabb(b.aabbs[points[i].Index])
		sum := scores[i-1] + float32(j)*running.SurfaceArea()
		if sum < *minScore {
			*pivot = i
			*bestAxis = axis
			*minScore = sum
		}
	}
}

// Split a large range into four consecutive sub-ranges. The first split
// guarantees at least two items per half so that the second split can
// always produce four non-empty sub-ranges.
func (b *builder) processLargeRange(r *Range) [4]Range {
	var subRanges [4]Range
	var lHalf, rHalf Range

	switch b.heuristic {
	case SurfaceAreaHeuristic:
		lHalf, rHalf = b.segregateSah(r, 2)
		subRanges[0], subRanges[1] = b.segregateSah(&lHalf, 1)
		subRanges[2], subRanges[3] = b.segregateSah(&rHalf, 1)
	default:
		axis, pivot := computeAxisAndPivot(r)
		lHalf, rHalf = b.segregate(axis, pivot, r, 2)

		lAxis, lPivot := computeAxisAndPivot(&lHalf)
		subRanges[0], subRanges[1] = b.segregate(lAxis, lPivot, &lHalf, 1)

		rAxis, rPivot := computeAxisAndPivot(&rHalf)
		subRanges[2], subRanges[3] = b.segregate(rAxis, rPivot, &rHalf, 1)
	}

	for i := range subRanges {
		subRanges[i].Depth = r.Depth + 1
	}
	return subRanges
}

// Insertion-sort the points in r along axis. Small ranges only.
func (b *builder) sortRange(axis int, r *Range) {
	p := b.points
	for i := r.Start; i < r.Start+r.Length; i++ {
		value := p[i]
		key := value.Position[axis]
		j := i
		for j > r.Start && key < p[j-1].Position[axis] {
			p[j] = p[j-1]
			j--
		}
		p[j] = value
	}
}
