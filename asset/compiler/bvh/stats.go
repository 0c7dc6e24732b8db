package bvh

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"
)

// Stats summarizes the shape of a built tree.
type Stats struct {
	// Nodes allocated by the build (including the two reserved nodes).
	AllocatedNodes int

	InternalNodes int
	LeafNodes     int
	PrimitiveRefs int
	MaxDepth      int

	// Average fraction of occupied slots in leaves.
	LeafFill float32

	// Estimated traversal cost: every node is weighted by the ratio of its
	// surface area to the root surface area and leaves are further
	// weighted by their primitive count.
	SahCost float32
}

// Collect statistics for the nodes reachable from the root. nodeCount is
// the value returned by the build.
func (t *Tree) Stats(nodeCount int) Stats {
	st := Stats{AllocatedNodes: nodeCount}

	rootArea := t.Domain().SurfaceArea()
	t.walk(rootNodeIndex, 0, func(_ int32, node *Node, depth int) {
		st.MaxDepth = max(st.MaxDepth, depth)

		area := node.Bounds.Compound().SurfaceArea()
		weight := float32(0)
		if rootArea > 0 && node.NumValidChildren() > 0 {
			weight = area / rootArea
		}

		if node.IsInternal() {
			st.InternalNodes++
			st.SahCost += weight
			return
		}

		refs := node.NumValidChildren()
		st.LeafNodes++
		st.PrimitiveRefs += refs
		st.SahCost += weight * float32(refs)
	})

	if st.LeafNodes > 0 {
		st.LeafFill = float32(st.PrimitiveRefs) / float32(4*st.LeafNodes)
	}
	return st
}

// Render the statistics as a table.
func (st Stats) Table() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Allocated nodes", fmt.Sprint(st.AllocatedNodes)})
	table.Append([]string{"Internal nodes", fmt.Sprint(st.InternalNodes)})
	table.Append([]string{"Leaf nodes", fmt.Sprint(st.LeafNodes)})
	table.Append([]string{"Primitive refs", fmt.Sprint(st.PrimitiveRefs)})
	table.Append([]string{"Max depth", fmt.Sprint(st.MaxDepth)})
	table.Append([]string{"Leaf fill", fmt.Sprintf("%3.1f%%", 100*st.LeafFill)})
	table.Append([]string{"SAH cost", fmt.Sprintf("%.2f", st.SahCost)})
	table.Render()
	return buf.String()
}
