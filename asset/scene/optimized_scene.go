package scene

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/achilleasa/qbvh/asset/compiler/bvh"
	"github.com/achilleasa/qbvh/types"
	"github.com/olekukonko/tablewriter"
)

// A compiled mesh. The mesh BLAS occupies BlasNodeCount nodes starting at
// BlasOffset; child node indices inside the BLAS are relative to
// BlasOffset and leaves reference mesh-local primitive indices.
//
// The vertices of primitive p are stored at VertexList[3*(PrimitiveOffset+p)].
type Mesh struct {
	Name string

	BlasOffset    uint32
	BlasNodeCount uint32

	PrimitiveOffset uint32
	PrimitiveCount  uint32

	// Mesh bounds in local space.
	Aabb types.Aabb
}

// The MeshInstance structure allows us to apply a transformation matrix to
// a scene mesh so that it can be positioned inside the scene.
type MeshInstance struct {
	MeshIndex uint32

	// The BLAS root for the mesh geometry. This is shared by all
	// instances of the same mesh.
	BlasRoot uint32

	padding [2]uint32

	// Transformations for moving between mesh and world space. Ray
	// traversal uses WorldToLocal to move rays into the BLAS space.
	LocalToWorld types.Mat4
	WorldToLocal types.Mat4
}

// A compiled scene. The TLAS partitions mesh instances; its leaves
// reference indices into MeshInstanceList.
type Scene struct {
	TlasNodes []bvh.Node
	BlasNodes []bvh.Node

	MeshList         []Mesh
	MeshInstanceList []MeshInstance

	// Triangle vertices, 3 per primitive. Vec4 is used for proper
	// alignment inside compute kernels.
	VertexList []types.Vec4
}

// Get the BLAS of a mesh as a standalone tree.
func (sc *Scene) MeshTree(meshIndex int) *bvh.Tree {
	mesh := &sc.MeshList[meshIndex]
	return &bvh.Tree{Nodes: sc.BlasNodes[mesh.BlasOffset : mesh.BlasOffset+mesh.BlasNodeCount]}
}

// Get the TLAS as a standalone tree.
func (sc *Scene) InstanceTree() *bvh.Tree {
	return &bvh.Tree{Nodes: sc.TlasNodes}
}

// Check the integrity of the TLAS and every mesh BLAS and make sure that
// all leaf references are in range.
func (sc *Scene) Verify() error {
	if err := verifyTree("tlas", sc.InstanceTree(), len(sc.MeshInstanceList)); err != nil {
		return err
	}

	for index := range sc.MeshList {
		mesh := &sc.MeshList[index]
		if int(mesh.BlasOffset+mesh.BlasNodeCount) > len(sc.BlasNodes) {
			return fmt.Errorf("blas %q: node window [%d, %d) exceeds node list length %d", mesh.Name, mesh.BlasOffset, mesh.BlasOffset+mesh.BlasNodeCount, len(sc.BlasNodes))
		}
		if int(3*(mesh.PrimitiveOffset+mesh.PrimitiveCount)) > len(sc.VertexList) {
			return fmt.Errorf("blas %q: primitives exceed vertex list length %d", mesh.Name, len(sc.VertexList))
		}
		if err := verifyTree(fmt.Sprintf("blas %q", mesh.Name), sc.MeshTree(index), int(mesh.PrimitiveCount)); err != nil {
			return err
		}
	}

	for index, mi := range sc.MeshInstanceList {
		if int(mi.MeshIndex) >= len(sc.MeshList) {
			return fmt.Errorf("mesh instance %d: invalid mesh index %d", index, mi.MeshIndex)
		}
	}

	return nil
}

func verifyTree(name string, tree *bvh.Tree, primitiveCount int) error {
	if len(tree.Nodes) < 2 {
		return fmt.Errorf("%s: expected at least 2 nodes; got %d", name, len(tree.Nodes))
	}
	if err := tree.CheckIntegrity(); err != nil {
		return fmt.Errorf("%s: %v", name, err)
	}

	var err error
	tree.Leaves(func(nodeIndex int32, leaf *bvh.Node) {
		for slot := 0; slot < 4 && err == nil; slot++ {
			if !leaf.IsChildValid(slot) {
				continue
			}
			if prim := leaf.Data[slot]; prim < 0 || int(prim) >= primitiveCount {
				err = fmt.Errorf("%s: leaf %d references primitive %d; expected [0, %d)", name, nodeIndex, prim, primitiveCount)
			}
		}
	})
	return err
}

// Build a tabular representation of scene statistics.
func (sc *Scene) Stats() string {
	tlas := sc.InstanceTree().Stats(len(sc.TlasNodes))

	var blas bvh.Stats
	for index := range sc.MeshList {
		st := sc.MeshTree(index).Stats(int(sc.MeshList[index].BlasNodeCount))
		blas.AllocatedNodes += st.AllocatedNodes
		blas.InternalNodes += st.InternalNodes
		blas.LeafNodes += st.LeafNodes
		blas.PrimitiveRefs += st.PrimitiveRefs
		blas.MaxDepth = max(blas.MaxDepth, st.MaxDepth)
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Asset Type", "Asset", "Count", "Size"})
	table.Append([]string{"Geometry", "---", " ", fmtSize(sc.VertexList)})
	table.Append([]string{"", "Meshes", fmt.Sprint(len(sc.MeshList)), fmtSize(sc.MeshList)})
	table.Append([]string{"", "Mesh instances", fmt.Sprint(len(sc.MeshInstanceList)), fmtSize(sc.MeshInstanceList)})
	table.Append([]string{"", "Primitives", fmt.Sprint(len(sc.VertexList) / 3), fmtSize(sc.VertexList)})
	table.Append([]string{" ", " ", " ", " "})
	table.Append([]string{"TLAS", "---", fmt.Sprint(len(sc.TlasNodes)), fmtSize(sc.TlasNodes)})
	table.Append([]string{"", "Internal nodes", fmt.Sprint(tlas.InternalNodes), " "})
	table.Append([]string{"", "Leaf nodes", fmt.Sprint(tlas.LeafNodes), " "})
	table.Append([]string{"", "Max depth", fmt.Sprint(tlas.MaxDepth), " "})
	table.Append([]string{" ", " ", " ", " "})
	table.Append([]string{"BLAS", "---", fmt.Sprint(len(sc.BlasNodes)), fmtSize(sc.BlasNodes)})
	table.Append([]string{"", "Internal nodes", fmt.Sprint(blas.InternalNodes), " "})
	table.Append([]string{"", "Leaf nodes", fmt.Sprint(blas.LeafNodes), " "})
	table.Append([]string{"", "Primitive refs", fmt.Sprint(blas.PrimitiveRefs), " "})
	table.Append([]string{"", "Max depth", fmt.Sprint(blas.MaxDepth), " "})
	table.SetFooter([]string{"Total", " ", " ", strings.TrimLeft(fmtSize(sc.VertexList, sc.MeshList, sc.MeshInstanceList, sc.TlasNodes, sc.BlasNodes), " ")})

	table.Render()
	return buf.String()
}

// Sum the total space used by a set of slices and return back a formatted
// value with the appropriate byte/kb/mb unit.
func fmtSize(items ...interface{}) string {
	var totalBytes float32 = 0.0
	for _, item := range items {
		t := reflect.TypeOf(item)
		v := reflect.ValueOf(item)
		if v.Len() == 0 {
			continue
		}

		totalBytes += float32(int(t.Elem().Size()) * v.Len())
	}

	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", int(totalBytes))
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", totalBytes/1e3)
	}
	return fmt.Sprintf("%5.1f mb", totalBytes/1e6)
}
