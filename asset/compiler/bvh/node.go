package bvh

import (
	"fmt"

	"github.com/achilleasa/qbvh/types"
)

const (
	// Ranges deeper than this are packed into leaves without further splitting.
	MaxTreeDepth = 21

	// The maximum number of independent branches produced by ScheduleBuild.
	MaxNumTreeBranches = 64

	// Ranges with at most this many primitives are chopped into leaves in
	// sorted-axis order instead of being partitioned.
	SmallRangeSize = 32

	// Capacity of the pending range stack used while growing a subtree.
	UnaryStackSize = 256

	// Nodes 0 and 1 plus the slack needed by the first phase of a scheduled
	// build. With I splits the first phase ends with P packed leaves and B
	// branches where 3I+1 = P+B and B <= MaxNumTreeBranches. Its 4I nodes
	// are at most 4(P+MaxNumTreeBranches-1)/3 <= 2P + 84 and each packed
	// leaf holds at least one primitive that no branch window pays for, so
	// 84 extra nodes on top of 2 per primitive always suffice.
	reservedNodes = 2 + 4*((MaxNumTreeBranches-1)/3)

	// Slot sentinels.
	invalidLeafData     int32 = -1
	invalidInternalData int32 = 0

	// The index of the root node.
	rootNodeIndex int32 = 1
)

// A node in a 4-way BVH. Nodes hold four child slots whose meaning depends
// on the node type:
//
// - Internal nodes: Data[i] is the index of a child node or 0 for an unused slot.
// - Leaf nodes: Data[i] is a primitive index or -1 for an unused slot.
//
// Bounds holds the box of each child slot; unused slots hold the canonical
// empty box. The binary layout of a node is exactly NodeSize bytes.
type Node struct {
	Bounds FourAabbs
	Data   [4]int32
	Flags  int32

	_ [3]int32
}

// Create an internal node with no valid children.
func EmptyNode() Node {
	return Node{
		Bounds: EmptyFourAabbs(),
	}
}

func (n *Node) IsLeaf() bool     { return n.Flags != 0 }
func (n *Node) IsInternal() bool { return n.Flags == 0 }

// Flag the node as a leaf (true) or an internal node (false).
func (n *Node) SetLeaf(leaf bool) {
	if leaf {
		n.Flags = 1
	} else {
		n.Flags = 0
	}
}

// Returns true if child slot i holds a valid primitive or node reference.
func (n *Node) IsChildValid(i int) bool {
	if n.IsLeaf() {
		return n.Data[i] != invalidLeafData
	}
	return n.Data[i] != invalidInternalData
}

// Count the valid child slots.
func (n *Node) NumValidChildren() int {
	count := 0
	for i := 0; i < 4; i++ {
		if n.IsChildValid(i) {
			count++
		}
	}
	return count
}

// A primitive center paired with the index of its box in the caller's
// primitive box list. Builds reorder PointAndIndex lists in place.
type PointAndIndex struct {
	Position types.Vec3
	Index    int32
}

// Create the working point list for a set of primitive boxes using the
// box centers as split positions.
func NewPointsAndIndices(aabbs []types.Aabb) []PointAndIndex {
	points := make([]PointAndIndex, len(aabbs))
	for index, aabb := range aabbs {
		points[index] = PointAndIndex{
			Position: aabb.Center(),
			Index:    int32(index),
		}
	}
	return points
}

// A contiguous slice of the point list whose children will be attached
// to node Root.
type Range struct {
	Start  int
	Length int
	Root   int32
	Domain types.Aabb
	Depth  int
}

// Tree is a flat, index-addressed node store. Node 0 is a reserved
// sentinel and node 1 is the root, so a traversal can always start at
// node 1 even for an empty tree.
type Tree struct {
	Nodes []Node
}

// Get the number of nodes required for building a tree over
// primitiveCount primitives with either Build or ScheduleBuild.
func NodeCapacity(primitiveCount int) int {
	return 2*primitiveCount + reservedNodes
}

// Allocate a tree large enough for primitiveCount primitives.
func NewTree(primitiveCount int) *Tree {
	return NewTreeWithCapacity(NodeCapacity(primitiveCount))
}

// Allocate a tree with a fixed node capacity. All nodes are initialized
// to the canonical empty node.
func NewTreeWithCapacity(capacity int) *Tree {
	if capacity < 2 {
		panic(fmt.Sprintf("bvh: node store capacity must be at least 2; got %d", capacity))
	}

	t := &Tree{Nodes: make([]Node, capacity)}
	empty := EmptyNode()
	for index := range t.Nodes {
		t.Nodes[index] = empty
	}
	return t
}

// Get the bounds of the whole tree. For an empty tree this is the
// canonical empty box.
func (t *Tree) Domain() types.Aabb {
	return t.Nodes[rootNodeIndex].Bounds.Compound()
}

// Visit every leaf reachable from the root in depth-first order.
func (t *Tree) Leaves(visit func(nodeIndex int32, leaf *Node)) {
	t.walk(rootNodeIndex, 0, func(nodeIndex int32, node *Node, _ int) {
		if node.IsLeaf() {
			visit(nodeIndex, node)
		}
	})
}

// Depth-first walk over every node reachable from nodeIndex. Child indices
// that do not point past their parent are skipped so that a corrupted
// node list cannot send the walk into a cycle.
func (t *Tree) walk(nodeIndex int32, depth int, visit func(nodeIndex int32, node *Node, depth int)) {
	node := &t.Nodes[nodeIndex]
	visit(nodeIndex, node, depth)
	if node.IsLeaf() {
		return
	}
	for i := 0; i < 4; i++ {
		if !node.IsChildValid(i) {
			continue
		}
		child := node.Data[i]
		if child <= nodeIndex || int(child) >= len(t.Nodes) {
			continue
		}
		t.walk(child, depth+1, visit)
	}
}
