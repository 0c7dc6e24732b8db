package bvh

import (
	"fmt"

	"github.com/achilleasa/qbvh/types"
)

// Recalculate the child bounds of every node in [first, last] without
// touching the tree topology. Nodes are visited in descending index order;
// children are always allocated after their parent so each child is
// refitted before the node that references it.
//
// Leaf slots take the box of the referenced primitive; internal slots take
// the compound box of the referenced child node.
func (t *Tree) Refit(aabbs []types.Aabb, first, last int) {
	for index := last; index >= first; index-- {
		t.refitNode(aabbs, &t.Nodes[index])
	}
}

// Recalculate the bounds of a single internal node from its children.
func (t *Tree) RefitNode(index int) {
	node := &t.Nodes[index]
	if !node.IsInternal() {
		panic(fmt.Sprintf("bvh: RefitNode called on leaf node %d", index))
	}
	t.refitNode(nil, node)
}

func (t *Tree) refitNode(aabbs []types.Aabb, node *Node) {
	empty := types.EmptyAabb()
	for slot := 0; slot < 4; slot++ {
		switch {
		case !node.IsChildValid(slot):
			node.Bounds.Set(slot, empty)
		case node.IsLeaf():
			node.Bounds.Set(slot, aabbs[node.Data[slot]])
		default:
			node.Bounds.Set(slot, t.Nodes[node.Data[slot]].Bounds.Compound())
		}
	}
}
