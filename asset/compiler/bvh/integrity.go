package bvh

import "fmt"

// Returned by CheckIntegrity when the tree violates one of its invariants.
type IntegrityError struct {
	NodeIndex int32
	Slot      int
	Reason    string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("bvh: integrity check failed at node %d slot %d: %s", e.NodeIndex, e.Slot, e.Reason)
}

// Walk the tree from the root and verify that:
// - every slot holding valid data has a valid box and every other slot an invalid one.
// - every valid box is contained in the box its parent stores for this node.
// - every child index is greater than the index of its parent and inside
//   the node store. Builds allocate children after their parent so this
//   also rejects cycles.
//
// Any violation means the tree is unsafe to traverse.
func (t *Tree) CheckIntegrity() error {
	return t.checkNode(rootNodeIndex, 0, 0)
}

// Like CheckIntegrity but panics on failure.
func (t *Tree) MustCheckIntegrity() {
	if err := t.CheckIntegrity(); err != nil {
		panic(err)
	}
}

func (t *Tree) checkNode(nodeIndex, parentIndex int32, childSlot int) error {
	if nodeIndex <= parentIndex || int(nodeIndex) >= len(t.Nodes) {
		return &IntegrityError{
			NodeIndex: parentIndex,
			Slot:      childSlot,
			Reason:    fmt.Sprintf("child index %d out of range (%d, %d)", nodeIndex, parentIndex, len(t.Nodes)),
		}
	}

	node := &t.Nodes[nodeIndex]
	parentAabb := t.Nodes[parentIndex].Bounds.Get(childSlot)

	for slot := 0; slot < 4; slot++ {
		aabb := node.Bounds.Get(slot)
		validData := node.IsChildValid(slot)
		if validData != aabb.IsValid() {
			return &IntegrityError{NodeIndex: nodeIndex, Slot: slot, Reason: "slot validity does not match its bounds"}
		}

		if !validData {
			continue
		}

		if parentIndex != 0 && !parentAabb.Contains(aabb) {
			return &IntegrityError{NodeIndex: nodeIndex, Slot: slot, Reason: "parent bounds do not contain child bounds"}
		}

		if node.IsInternal() {
			if err := t.checkNode(node.Data[slot], nodeIndex, slot); err != nil {
				return err
			}
		}
	}

	return nil
}
