package bvh

import (
	"testing"

	"github.com/achilleasa/qbvh/types"
)

func TestRefitIsIdempotent(t *testing.T) {
	aabbs := randomAabbs(3000, 9)
	tree, nodeCount := buildTree(aabbs, SurfaceAreaHeuristic)

	before := append([]Node(nil), tree.Nodes[:nodeCount]...)
	tree.Refit(aabbs, 1, nodeCount-1)

	for index := range before {
		if before[index] != tree.Nodes[index] {
			t.Fatalf("expected node %d to be unchanged after refit", index)
		}
	}
}

func TestRefitMovedPrimitives(t *testing.T) {
	aabbs := randomAabbs(500, 13)
	tree, nodeCount := buildTree(aabbs, MedianSplit)

	offset := types.XYZ(1000, -50, 3)
	moved := make([]types.Aabb, len(aabbs))
	expDomain := types.EmptyAabb()
	for index, aabb := range aabbs {
		moved[index] = types.NewAabb(aabb.Min.Add(offset), aabb.Max.Add(offset))
		expDomain.IncludeAabb(moved[index])
	}

	tree.Refit(moved, 1, nodeCount-1)

	if got := tree.Domain(); got != expDomain {
		t.Fatalf("expected tree domain to be %v; got %v", expDomain, got)
	}
	if err := tree.CheckIntegrity(); err != nil {
		t.Fatal(err)
	}
}

func TestRefitNode(t *testing.T) {
	aabbs := unitBoxesAlongX(5)
	tree, _ := buildTree(aabbs, MedianSplit)

	// Clobber the root bounds and recover them from the children.
	root := &tree.Nodes[1]
	exp := root.Bounds
	root.Bounds = EmptyFourAabbs()
	tree.RefitNode(1)

	if root.Bounds != exp {
		t.Fatalf("expected root bounds to be %v; got %v", exp, root.Bounds)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected RefitNode to panic for a leaf node")
		}
	}()
	tree.RefitNode(int(root.Data[0]))
}
