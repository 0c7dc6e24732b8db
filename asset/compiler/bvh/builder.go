package bvh

import (
	"fmt"
	"time"

	"github.com/achilleasa/qbvh/log"
	"github.com/achilleasa/qbvh/types"
)

// A fixed-capacity LIFO stack of pending ranges.
type rangeStack struct {
	items []Range
}

func newRangeStack(capacity int) rangeStack {
	return rangeStack{items: make([]Range, 0, capacity)}
}

func (s *rangeStack) push(r Range) {
	if len(s.items) == cap(s.items) {
		panic(fmt.Sprintf("bvh: range stack overflow (capacity %d)", cap(s.items)))
	}
	s.items = append(s.items, r)
}

func (s *rangeStack) pop() Range {
	r := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return r
}

func (s *rangeStack) len() int { return len(s.items) }

func (s *rangeStack) reset() { s.items = s.items[:0] }

// The builder grows a subtree from a single range. It writes to the node
// that owns the range and to the nodes in [freeNodeIndex, nodeLimit) which
// it allocates in increasing order.
type builder struct {
	nodes  []Node
	points []PointAndIndex
	aabbs  []types.Aabb

	heuristic SplitHeuristic

	// The next node index to hand out and the exclusive upper bound
	// of the node window owned by this builder.
	freeNodeIndex int32
	nodeLimit     int32

	stack     rangeStack
	leftovers rangeStack
	scratch   sahScratch
}

func newBuilder(nodes []Node, points []PointAndIndex, aabbs []types.Aabb, heuristic SplitHeuristic, firstFree, limit int32) *builder {
	if int(limit) > len(nodes) {
		panic(fmt.Sprintf("bvh: node window [%d, %d) exceeds node store capacity %d", firstFree, limit, len(nodes)))
	}
	return &builder{
		nodes:         nodes,
		points:        points,
		aabbs:         aabbs,
		heuristic:     heuristic,
		freeNodeIndex: firstFree,
		nodeLimit:     limit,
		stack:         newRangeStack(UnaryStackSize),
		leftovers:     newRangeStack(1),
	}
}

// Reserve the next node index.
func (b *builder) allocNode() int32 {
	if b.freeNodeIndex >= b.nodeLimit {
		panic(fmt.Sprintf("bvh: node window exhausted at index %d; the node store is undersized", b.freeNodeIndex))
	}
	index := b.freeNodeIndex
	b.freeNodeIndex++
	return index
}

// Allocate a node for each sub-range and link them as the children of
// parentIndex. Sub-ranges with more than 4 items are pushed to pending
// for further processing; the rest become leaves.
func (b *builder) createChildren(subRanges []Range, parentIndex int32, pending *rangeStack) {
	var parentData [4]int32

	for i := range subRanges {
		childIndex := b.allocNode()
		parentData[i] = childIndex

		if subRanges[i].Length > 4 {
			child := subRanges[i]
			child.Root = childIndex
			pending.push(child)
			continue
		}

		b.packLeaf(childIndex, &subRanges[i])
	}

	parent := &b.nodes[parentIndex]
	parent.Data = parentData
	parent.SetLeaf(false)
}

// Store the primitive indices of a range with at most 4 items in a leaf.
func (b *builder) packLeaf(nodeIndex int32, r *Range) {
	leaf := &b.nodes[nodeIndex]
	leaf.SetLeaf(true)
	for slot := 0; slot < 4; slot++ {
		if slot < r.Length {
			leaf.Data[slot] = b.points[r.Start+slot].Index
		} else {
			leaf.Data[slot] = invalidLeafData
		}
	}
}

// Sort a small range along its longest axis and chop it into leaves of 4
// items. When more than 4 leaves are needed the tail becomes a new
// internal child which is chopped in the next pass.
func (b *builder) processSmallRange(base Range) {
	r := base
	axis, _ := computeAxisAndPivot(&r)
	b.sortRange(axis, &r)

	var subRanges [4]Range
	for {
		numSubRanges := 0
		for r.Length > 4 && numSubRanges < 3 {
			subRanges[numSubRanges] = Range{Start: r.Start, Length: 4}
			numSubRanges++
			r.Start += 4
			r.Length -= 4
		}

		if r.Length > 0 {
			subRanges[numSubRanges] = Range{Start: r.Start, Length: r.Length}
			numSubRanges++
		}

		b.leftovers.reset()
		b.createChildren(subRanges[:numSubRanges], r.Root, &b.leftovers)
		if b.leftovers.len() == 0 {
			return
		}
		r = b.leftovers.pop()
	}
}

// Grow the subtree for base. base.Root must already be reserved.
func (b *builder) build(base Range) {
	if base.Length <= 4 {
		b.createChildren([]Range{base}, base.Root, &b.stack)
		return
	}

	b.stack.reset()
	b.stack.push(base)
	for b.stack.len() > 0 {
		r := b.stack.pop()
		if r.Depth <= MaxTreeDepth && r.Length > SmallRangeSize {
			subRanges := b.processLargeRange(&r)
			b.createChildren(subRanges[:], r.Root, &b.stack)
		} else {
			b.processSmallRange(r)
		}
	}
}

// Build a tree over the given primitives on the calling goroutine and
// return the number of nodes used. points must be parallel to aabbs and
// is reordered in place. Leaves store the Index field of the points.
//
// The tree must hold at least NodeCapacity(len(aabbs)) nodes.
func (t *Tree) Build(points []PointAndIndex, aabbs []types.Aabb, heuristic SplitHeuristic) int {
	checkBuildInput(points, aabbs)

	t.Nodes[0] = EmptyNode()
	if len(aabbs) == 0 {
		// Most traversal code jumps straight to node 1 so keep a valid empty root.
		t.Nodes[rootNodeIndex] = EmptyNode()
		return 2
	}

	start := time.Now()
	b := newBuilder(t.Nodes, points, aabbs, heuristic, rootNodeIndex+1, int32(len(t.Nodes)))
	b.build(Range{
		Start:  0,
		Length: len(points),
		Root:   rootNodeIndex,
		Domain: b.pointDomain(&Range{Start: 0, Length: len(points)}),
	})

	t.Refit(aabbs, int(rootNodeIndex), int(b.freeNodeIndex)-1)

	buildLogger.Debugf(
		"built %s tree for %d primitives in %d ms (%d nodes)",
		heuristic, len(aabbs), time.Since(start).Nanoseconds()/1e6, b.freeNodeIndex,
	)
	return int(b.freeNodeIndex)
}

var buildLogger = log.New("bvh builder")

func checkBuildInput(points []PointAndIndex, aabbs []types.Aabb) {
	if len(points) != len(aabbs) {
		panic(fmt.Sprintf("bvh: expected %d points to match the primitive box count; got %d", len(aabbs), len(points)))
	}
}
