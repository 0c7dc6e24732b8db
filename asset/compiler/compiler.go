package compiler

import (
	"fmt"
	"runtime"
	"time"

	"github.com/achilleasa/qbvh/asset/compiler/bvh"
	"github.com/achilleasa/qbvh/asset/compiler/input"
	"github.com/achilleasa/qbvh/asset/scene"
	"github.com/achilleasa/qbvh/log"
	"github.com/achilleasa/qbvh/types"
	"golang.org/x/sync/errgroup"
)

// Options controls how the scene trees are built.
type Options struct {
	// The split heuristic for mesh trees. The instance tree always uses
	// the median split.
	Heuristic bvh.SplitHeuristic

	// Meshes with more primitives than this use the scheduled build.
	ParallelThreshold int

	// The maximum number of goroutines used for compiling meshes and for
	// completing the branches of each scheduled build.
	Workers int

	// Run an integrity check on every tree after it is built.
	CheckIntegrity bool
}

// Get the default compiler options.
func DefaultOptions() Options {
	return Options{
		Heuristic:         bvh.SurfaceAreaHeuristic,
		ParallelThreshold: 4096,
		Workers:           runtime.GOMAXPROCS(0),
	}
}

type sceneCompiler struct {
	parsedScene    *input.Scene
	optimizedScene *scene.Scene
	opts           Options
	logger         log.Logger
}

// Compile a scene representation parsed by a scene reader into a two-level
// BVH: one tree per mesh and a top-level tree over the mesh instances.
func Compile(parsedScene *input.Scene, opts Options) (*scene.Scene, error) {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	compiler := &sceneCompiler{
		parsedScene:    parsedScene,
		optimizedScene: &scene.Scene{},
		opts:           opts,
		logger:         log.New("scene compiler"),
	}

	start := time.Now()
	compiler.logger.Noticef("compiling scene (%d meshes, %d mesh instances)", len(parsedScene.Meshes), len(parsedScene.MeshInstances))

	err := compiler.partitionMeshes()
	if err != nil {
		return nil, err
	}

	err = compiler.partitionMeshInstances()
	if err != nil {
		return nil, err
	}

	compiler.logger.Noticef("compiled scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return compiler.optimizedScene, nil
}

// Build a tree for each scene mesh and copy the mesh vertices to the flat
// vertex list. Meshes are processed concurrently; each one writes to its
// own vertex window.
func (sc *sceneCompiler) partitionMeshes() error {
	start := time.Now()
	sc.logger.Notice("partitioning meshes")

	// Pre-calculate offsets so that meshes can be processed independently.
	meshCount := len(sc.parsedScene.Meshes)
	sc.optimizedScene.MeshList = make([]scene.Mesh, meshCount)
	var primOffset uint32
	for index, pm := range sc.parsedScene.Meshes {
		sc.optimizedScene.MeshList[index] = scene.Mesh{
			Name:            pm.Name,
			PrimitiveOffset: primOffset,
			PrimitiveCount:  uint32(len(pm.Primitives)),
			Aabb:            pm.Aabb(),
		}
		primOffset += uint32(len(pm.Primitives))
	}
	sc.optimizedScene.VertexList = make([]types.Vec4, 3*primOffset)

	meshNodes := make([][]bvh.Node, meshCount)
	var group errgroup.Group
	group.SetLimit(sc.opts.Workers)
	for index := range sc.parsedScene.Meshes {
		index := index
		group.Go(func() error {
			var err error
			meshNodes[index], err = sc.partitionMesh(index)
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	// Append mesh trees to the BLAS node list.
	var nodeCount int
	for _, nodes := range meshNodes {
		nodeCount += len(nodes)
	}
	sc.optimizedScene.BlasNodes = make([]bvh.Node, 0, nodeCount)
	for index, nodes := range meshNodes {
		mesh := &sc.optimizedScene.MeshList[index]
		mesh.BlasOffset = uint32(len(sc.optimizedScene.BlasNodes))
		mesh.BlasNodeCount = uint32(len(nodes))
		sc.optimizedScene.BlasNodes = append(sc.optimizedScene.BlasNodes, nodes...)
	}

	sc.logger.Noticef("partitioned %d meshes (%d primitives, %d nodes) in %d ms", meshCount, primOffset, nodeCount, time.Since(start).Nanoseconds()/1e6)
	return nil
}

// Build the tree for a single mesh and copy its vertices.
func (sc *sceneCompiler) partitionMesh(meshIndex int) ([]bvh.Node, error) {
	pm := sc.parsedScene.Meshes[meshIndex]
	mesh := &sc.optimizedScene.MeshList[meshIndex]

	aabbs := make([]types.Aabb, len(pm.Primitives))
	vertexOffset := 3 * mesh.PrimitiveOffset
	for index, prim := range pm.Primitives {
		aabbs[index] = prim.Aabb()

		sc.optimizedScene.VertexList[vertexOffset+0] = prim.Vertices[0].Vec4(0)
		sc.optimizedScene.VertexList[vertexOffset+1] = prim.Vertices[1].Vec4(0)
		sc.optimizedScene.VertexList[vertexOffset+2] = prim.Vertices[2].Vec4(0)
		vertexOffset += 3
	}

	sc.logger.Infof(`building BVH tree for "%s" (%d primitives)`, pm.Name, len(pm.Primitives))
	nodes, err := sc.buildTree(aabbs, sc.opts.Heuristic, len(aabbs) > sc.opts.ParallelThreshold)
	if err != nil {
		return nil, fmt.Errorf("mesh %q: %v", pm.Name, err)
	}
	return nodes, nil
}

// Build a tree over the mesh instances. Each instance is bounded by the
// transformed corners of its mesh bounds. Instances of meshes without
// primitives are dropped.
func (sc *sceneCompiler) partitionMeshInstances() error {
	start := time.Now()
	sc.logger.Infof("building scene BVH tree (%d mesh instances)", len(sc.parsedScene.MeshInstances))

	sc.optimizedScene.MeshInstanceList = make([]scene.MeshInstance, 0, len(sc.parsedScene.MeshInstances))
	aabbs := make([]types.Aabb, 0, len(sc.parsedScene.MeshInstances))
	for index, pmi := range sc.parsedScene.MeshInstances {
		if int(pmi.MeshIndex) >= len(sc.optimizedScene.MeshList) {
			return fmt.Errorf("mesh instance %d: invalid mesh index %d", index, pmi.MeshIndex)
		}

		mesh := &sc.optimizedScene.MeshList[pmi.MeshIndex]
		if mesh.PrimitiveCount == 0 {
			sc.logger.Warningf("mesh instance %d: skipping instance of empty mesh %q", index, mesh.Name)
			continue
		}

		sc.optimizedScene.MeshInstanceList = append(sc.optimizedScene.MeshInstanceList, scene.MeshInstance{
			MeshIndex:    pmi.MeshIndex,
			BlasRoot:     mesh.BlasOffset + 1,
			LocalToWorld: pmi.Transform,
			WorldToLocal: pmi.Transform.Inv(),
		})
		aabbs = append(aabbs, pmi.Transform.TransformAabb(mesh.Aabb))
	}

	nodes, err := sc.buildTree(aabbs, bvh.MedianSplit, true)
	if err != nil {
		return fmt.Errorf("mesh instances: %v", err)
	}
	sc.optimizedScene.TlasNodes = nodes

	sc.logger.Noticef("partitioned %d mesh instances in %d ms", len(aabbs), time.Since(start).Nanoseconds()/1e6)
	return nil
}

// Build a tree over the given primitive boxes and return the used nodes.
func (sc *sceneCompiler) buildTree(aabbs []types.Aabb, heuristic bvh.SplitHeuristic, scheduled bool) ([]bvh.Node, error) {
	tree := bvh.NewTree(len(aabbs))
	points := bvh.NewPointsAndIndices(aabbs)

	var nodeCount int
	if scheduled {
		nodeCount = tree.BuildParallel(points, aabbs, heuristic, sc.opts.Workers)
	} else {
		nodeCount = tree.Build(points, aabbs, heuristic)
	}

	tree.Nodes = tree.Nodes[:nodeCount]
	if sc.opts.CheckIntegrity {
		if err := tree.CheckIntegrity(); err != nil {
			return nil, err
		}
	}
	return tree.Nodes, nil
}
