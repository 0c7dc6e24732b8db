package bvh

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestEncodeNodesLayout(t *testing.T) {
	tree, nodeCount := buildTree(unitBoxesAlongX(5), MedianSplit)
	nodes := tree.Nodes[:nodeCount]

	data := EncodeNodes(nodes)
	if len(data) != nodeCount*NodeSize {
		t.Fatalf("expected encoded length to be %d; got %d", nodeCount*NodeSize, len(data))
	}

	// Node 2 is the first leaf: data at byte 96, flags at byte 112.
	leaf := data[2*NodeSize : 3*NodeSize]
	specs := []struct {
		offset int
		exp    uint32
	}{
		{0, math.Float32bits(nodes[2].Bounds.MinX[0])},
		{12, math.Float32bits(nodes[2].Bounds.MinX[3])},
		{60, math.Float32bits(nodes[2].Bounds.MaxX[3])},
		{96, 0},
		{100, 1},
		{108, 3},
		{112, 1},
		{116, 0},
		{124, 0},
	}
	for specIndex, spec := range specs {
		if got := binary.LittleEndian.Uint32(leaf[spec.offset:]); got != spec.exp {
			t.Fatalf("[spec %d] expected word at offset %d to be %d; got %d", specIndex, spec.offset, spec.exp, got)
		}
	}

	decoded, err := DecodeNodes(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != nodeCount {
		t.Fatalf("expected %d decoded nodes; got %d", nodeCount, len(decoded))
	}
	for index := range decoded {
		if decoded[index] != nodes[index] {
			t.Fatalf("expected decoded node %d to match the original", index)
		}
	}
}

func TestDecodeNodesBadLength(t *testing.T) {
	_, err := DecodeNodes(make([]byte, NodeSize+1))
	if err == nil {
		t.Fatal("expected an error for a truncated node buffer")
	}
}
