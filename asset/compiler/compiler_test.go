package compiler

import (
	"math/rand"
	"testing"

	"github.com/achilleasa/qbvh/asset/compiler/input"
	"github.com/achilleasa/qbvh/types"
)

func randomMesh(name string, primitives int, seed int64) *input.Mesh {
	rng := rand.New(rand.NewSource(seed))
	randomVec := func() types.Vec3 {
		return types.XYZ(rng.Float32()*10, rng.Float32()*10, rng.Float32()*10)
	}

	mesh := input.NewMesh(name)
	for index := 0; index < primitives; index++ {
		mesh.AddPrimitive(input.NewPrimitive(randomVec(), randomVec(), randomVec()))
	}
	return mesh
}

func testScene() *input.Scene {
	parsed := input.NewScene()
	parsed.Meshes = append(parsed.Meshes,
		randomMesh("small", 50, 1),
		randomMesh("large", 5000, 2),
		input.NewMesh("empty"),
	)
	parsed.MeshInstances = append(parsed.MeshInstances,
		&input.MeshInstance{MeshIndex: 0, Transform: types.Ident4()},
		&input.MeshInstance{MeshIndex: 0, Transform: types.Translate4(types.XYZ(100, 0, 0))},
		&input.MeshInstance{MeshIndex: 1, Transform: types.Scale4(types.Splat3(2))},
		&input.MeshInstance{MeshIndex: 2, Transform: types.Ident4()},
	)
	return parsed
}

func TestCompile(t *testing.T) {
	parsed := testScene()

	opts := DefaultOptions()
	opts.ParallelThreshold = 1000
	opts.Workers = 4
	opts.CheckIntegrity = true

	sc, err := Compile(parsed, opts)
	if err != nil {
		t.Fatal(err)
	}

	if len(sc.MeshList) != 3 {
		t.Fatalf("expected 3 meshes; got %d", len(sc.MeshList))
	}
	expOffsets := []uint32{0, 50, 5050}
	for index, exp := range expOffsets {
		if got := sc.MeshList[index].PrimitiveOffset; got != exp {
			t.Fatalf("expected mesh %d primitive offset to be %d; got %d", index, exp, got)
		}
	}
	if len(sc.VertexList) != 3*5050 {
		t.Fatalf("expected %d vertices; got %d", 3*5050, len(sc.VertexList))
	}
	if exp, got := parsed.Meshes[1].Primitives[7].Vertices[2].Vec4(0), sc.VertexList[3*(50+7)+2]; exp != got {
		t.Fatalf("expected vertex to be %v; got %v", exp, got)
	}

	// The instance of the empty mesh is dropped.
	if len(sc.MeshInstanceList) != 3 {
		t.Fatalf("expected 3 mesh instances; got %d", len(sc.MeshInstanceList))
	}
	for index, mi := range sc.MeshInstanceList {
		if exp := sc.MeshList[mi.MeshIndex].BlasOffset + 1; mi.BlasRoot != exp {
			t.Fatalf("expected mesh instance %d BLAS root to be %d; got %d", index, exp, mi.BlasRoot)
		}
	}

	if err = sc.Verify(); err != nil {
		t.Fatal(err)
	}

	translated := types.Translate4(types.XYZ(100, 0, 0)).TransformAabb(parsed.Meshes[0].Aabb())
	if domain := sc.InstanceTree().Domain(); !domain.Contains(translated) {
		t.Fatalf("expected scene domain %v to contain instance bounds %v", domain, translated)
	}
}

func TestCompileInvalidMeshIndex(t *testing.T) {
	parsed := input.NewScene()
	parsed.Meshes = append(parsed.Meshes, randomMesh("mesh", 10, 3))
	parsed.MeshInstances = append(parsed.MeshInstances, &input.MeshInstance{MeshIndex: 5, Transform: types.Ident4()})

	_, err := Compile(parsed, DefaultOptions())
	if err == nil {
		t.Fatal("expected an error for an invalid mesh index")
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	opts := DefaultOptions()
	opts.ParallelThreshold = 1000

	sc1, err := Compile(testScene(), opts)
	if err != nil {
		t.Fatal(err)
	}
	sc2, err := Compile(testScene(), opts)
	if err != nil {
		t.Fatal(err)
	}

	if len(sc1.BlasNodes) != len(sc2.BlasNodes) || len(sc1.TlasNodes) != len(sc2.TlasNodes) {
		t.Fatal("expected compiled scenes to have the same number of nodes")
	}
	for index := range sc1.BlasNodes {
		if sc1.BlasNodes[index] != sc2.BlasNodes[index] {
			t.Fatalf("expected BLAS node %d to match", index)
		}
	}
}
